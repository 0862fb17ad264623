package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"waterwatch-hq/healthimpact/pkg/catalog"
)

const backendSQLite = "sqlite"

// SQLiteConfig contains configuration for the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file. Parent directories are created.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns int

	// WALMode enables write-ahead logging.
	WALMode bool

	// BusyTimeout is how long a connection waits on a locked database.
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/catalog.db",
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage stores catalog entries in SQLite using the pure-Go driver.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLiteStorage opens (creating if needed) the database and applies the schema.
func NewSQLiteStorage(config *SQLiteConfig, logger *slog.Logger) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "catalog.storage.sqlite")

	if dir := filepath.Dir(config.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, catalog.NewStorageError(backendSQLite, "mkdir", err)
		}
	}

	db, err := sql.Open("sqlite", buildDSN(config))
	if err != nil {
		return nil, catalog.NewStorageError(backendSQLite, "open", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}

	if err := s.initialize(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("catalog storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)
	return s, nil
}

// buildDSN sets pragmas per connection so every pooled connection gets them.
func buildDSN(cfg *SQLiteConfig) string {
	params := []string{
		fmt.Sprintf("_pragma=busy_timeout(%d)", cfg.BusyTimeout.Milliseconds()),
		"_pragma=foreign_keys(1)",
	}
	if cfg.WALMode {
		params = append(params, "_pragma=journal_mode(WAL)", "_pragma=synchronous(NORMAL)")
	}
	return "file:" + cfg.Path + "?" + strings.Join(params, "&")
}

func (s *SQLiteStorage) initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return catalog.NewStorageError(backendSQLite, "create_schema", err)
	}
	if _, err := s.db.ExecContext(ctx, insertSchemaVersion, SchemaVersion); err != nil {
		return catalog.NewStorageError(backendSQLite, "insert_schema_version", err)
	}

	var version sql.NullInt64
	if err := s.db.QueryRowContext(ctx, getSchemaVersion).Scan(&version); err != nil {
		return catalog.NewStorageError(backendSQLite, "get_schema_version", err)
	}
	if version.Int64 != SchemaVersion {
		return catalog.NewStorageError(backendSQLite, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version.Int64))
	}
	return nil
}

func (s *SQLiteStorage) Create(ctx context.Context, e *catalog.Element) (*catalog.Element, error) {
	rec, err := catalog.Prepare(e, s.now())
	if err != nil {
		return nil, err
	}

	hm, env, comp, err := encodeLists(rec)
	if err != nil {
		return nil, catalog.NewStorageError(backendSQLite, "encode", err)
	}

	_, err = s.db.ExecContext(ctx, insertElement,
		rec.ID, rec.Element, hm, env, comp, rec.CreatedAt.UnixNano(), rec.UpdatedAt.UnixNano())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, catalog.AlreadyExists(rec.Element)
		}
		return nil, catalog.NewStorageError(backendSQLite, "insert", err)
	}
	return rec, nil
}

func (s *SQLiteStorage) Get(ctx context.Context, name string) (*catalog.Element, error) {
	rec, err := scanElement(s.db.QueryRowContext(ctx, selectElementByName, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.NotFound(name)
	}
	if err != nil {
		return nil, catalog.NewStorageError(backendSQLite, "get", err)
	}
	return rec, nil
}

func (s *SQLiteStorage) List(ctx context.Context) ([]*catalog.Element, error) {
	rows, err := s.db.QueryContext(ctx, selectAllElements)
	if err != nil {
		return nil, catalog.NewStorageError(backendSQLite, "list", err)
	}
	defer rows.Close()

	out := []*catalog.Element{}
	for rows.Next() {
		rec, err := scanElement(rows)
		if err != nil {
			return nil, catalog.NewStorageError(backendSQLite, "scan", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, catalog.NewStorageError(backendSQLite, "list", err)
	}
	return out, nil
}

func (s *SQLiteStorage) Update(ctx context.Context, name string, u catalog.Update) (*catalog.Element, error) {
	if err := catalog.ValidateUpdate(u); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, catalog.NewStorageError(backendSQLite, "begin", err)
	}
	defer tx.Rollback()

	rec, err := scanElement(tx.QueryRowContext(ctx, selectElementByName, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.NotFound(name)
	}
	if err != nil {
		return nil, catalog.NewStorageError(backendSQLite, "get", err)
	}

	if !u.Apply(rec) {
		return rec, nil
	}
	rec.UpdatedAt = s.now()

	hm, env, comp, err := encodeLists(rec)
	if err != nil {
		return nil, catalog.NewStorageError(backendSQLite, "encode", err)
	}

	_, err = tx.ExecContext(ctx, updateElement, rec.Element, hm, env, comp, rec.UpdatedAt.UnixNano(), rec.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, catalog.AlreadyExists(rec.Element)
		}
		return nil, catalog.NewStorageError(backendSQLite, "update", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, catalog.NewStorageError(backendSQLite, "commit", err)
	}
	return rec, nil
}

func (s *SQLiteStorage) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, deleteElement, name)
	if err != nil {
		return catalog.NewStorageError(backendSQLite, "delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return catalog.NewStorageError(backendSQLite, "delete", err)
	}
	if n == 0 {
		return catalog.NotFound(name)
	}
	return nil
}

// Ping checks that the database is reachable.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return catalog.NewStorageError(backendSQLite, "close", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanElement(row rowScanner) (*catalog.Element, error) {
	var (
		rec                 catalog.Element
		hm, env, comp       string
		createdAt, updateAt int64
	)
	if err := row.Scan(&rec.ID, &rec.Element, &hm, &env, &comp, &createdAt, &updateAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(hm), &rec.ReactionsWithHeavyMetals); err != nil {
		return nil, fmt.Errorf("decode reactions_with_heavy_metals: %w", err)
	}
	if err := json.Unmarshal([]byte(env), &rec.ReactionsWithEnvironment); err != nil {
		return nil, fmt.Errorf("decode reactions_with_environment: %w", err)
	}
	if err := json.Unmarshal([]byte(comp), &rec.CompoundsFound); err != nil {
		return nil, fmt.Errorf("decode compounds_found: %w", err)
	}
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	rec.UpdatedAt = time.Unix(0, updateAt).UTC()
	return &rec, nil
}

func encodeLists(e *catalog.Element) (string, string, string, error) {
	encode := func(v []string) (string, error) {
		if v == nil {
			v = []string{}
		}
		b, err := json.Marshal(v)
		return string(b), err
	}
	hm, err := encode(e.ReactionsWithHeavyMetals)
	if err != nil {
		return "", "", "", err
	}
	env, err := encode(e.ReactionsWithEnvironment)
	if err != nil {
		return "", "", "", err
	}
	comp, err := encode(e.CompoundsFound)
	if err != nil {
		return "", "", "", err
	}
	return hm, env, comp, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
