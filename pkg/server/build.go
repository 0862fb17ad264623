package server

import (
	"context"
	"fmt"
	"log/slog"

	"waterwatch-hq/healthimpact/pkg/api/middleware"
	"waterwatch-hq/healthimpact/pkg/assessment"
	"waterwatch-hq/healthimpact/pkg/catalog"
	"waterwatch-hq/healthimpact/pkg/catalog/storage"
	"waterwatch-hq/healthimpact/pkg/config"
	"waterwatch-hq/healthimpact/pkg/healthrules/source"
	"waterwatch-hq/healthimpact/pkg/telemetry/health"
	"waterwatch-hq/healthimpact/pkg/telemetry/metrics"
	"waterwatch-hq/healthimpact/pkg/telemetry/tracing"
)

// assemble constructs the components in dependency order. On error the
// caller runs Close to release whatever was already opened.
func (s *Server) assemble(ctx context.Context, logger *slog.Logger, tracingOpts []tracing.Option) error {
	cfg := s.config

	s.metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, s.build.Version, tracingOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	s.tracer = tracer

	if err := s.buildRules(ctx, logger); err != nil {
		return err
	}

	if err := s.buildCatalog(ctx, logger); err != nil {
		return err
	}

	s.health = health.New(cfg.Telemetry.Health.CheckTimeout)
	s.health.RegisterCheck("rules", health.RulesCheck(s.engine.Rules))
	if p, ok := catalogPinger(s.catalog); ok {
		s.health.RegisterCheck("catalog", health.PingCheck(p))
	}

	if cfg.RateLimit.Enabled {
		s.limiter = middleware.NewRateLimiter(cfg.RateLimit)
	}

	return nil
}

// EngineConfig converts the configuration section into engine settings.
func EngineConfig(cfg config.EngineConfig) *assessment.EngineConfig {
	return assessment.DefaultEngineConfig().
		WithFieldPolicy(assessment.FieldPolicy(cfg.FieldPolicy)).
		WithParallelThreshold(cfg.ParallelThreshold).
		WithMaxFields(cfg.MaxFields)
}

func (s *Server) buildRules(ctx context.Context, logger *slog.Logger) error {
	cfg := s.config.Rules

	src, err := s.ruleSource(logger)
	if err != nil {
		return err
	}
	store, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load health rules from %s: %w", src.Describe(), err)
	}

	engine, err := assessment.NewEngine(store, EngineConfig(s.config.Engine), logger)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	s.engine = engine
	s.metrics.SetRulesLoaded(store.Len())

	s.logger.Info("health rules loaded",
		"source", src.Describe(),
		"version", store.Version(),
		"elements", store.Len(),
		"checksum", store.Checksum(),
	)

	s.reloader, err = source.NewReloader(src, engine, s.metrics, logger)
	if err != nil {
		return err
	}

	if gitSrc, ok := src.(*source.GitSource); ok {
		if cfg.Git.PollInterval <= 0 {
			return nil
		}
		s.gitWatcher, err = source.NewGitWatcher(gitSrc, s.reloader, cfg.Git.PollInterval, logger)
		if err != nil {
			return fmt.Errorf("failed to create rules repository watcher: %w", err)
		}
		return nil
	}

	// Watching and scheduled reloads only make sense for a file on disk.
	if cfg.FilePath == "" {
		return nil
	}

	if cfg.Watch {
		wcfg := source.DefaultWatcherConfig()
		wcfg.Path = cfg.FilePath
		if cfg.DebounceInterval > 0 {
			wcfg.DebounceInterval = cfg.DebounceInterval
		}
		s.watcher, err = source.NewFileWatcher(wcfg, logger)
		if err != nil {
			return fmt.Errorf("failed to create rule file watcher: %w", err)
		}
	}

	if cfg.ReloadSchedule != "" {
		s.scheduler, err = source.NewScheduler(s.reloader, cfg.ReloadSchedule, logger)
		if err != nil {
			return fmt.Errorf("failed to create rule reload scheduler: %w", err)
		}
	}
	return nil
}

// ruleSource picks the Git repository, the rules file or the embedded
// defaults, in that order.
func (s *Server) ruleSource(logger *slog.Logger) (source.Source, error) {
	cfg := s.config.Rules
	if !cfg.Git.Enabled {
		return source.New(cfg.FilePath), nil
	}

	git := cfg.Git
	src, err := source.NewGitSource(source.GitConfig{
		Repository: git.Repository,
		Branch:     git.Branch,
		Path:       git.Path,
		Auth: source.GitAuth{
			Type:             git.Auth.Type,
			Token:            git.Auth.Token,
			SSHKeyPath:       git.Auth.SSHKeyPath,
			SSHKeyPassphrase: git.Auth.SSHKeyPassphrase,
		},
		Timeout:      git.Timeout,
		Depth:        git.Depth,
		LocalPath:    git.LocalPath,
		CleanOnStart: git.CleanOnStart,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure rules repository: %w", err)
	}
	return src, nil
}

func (s *Server) buildCatalog(ctx context.Context, logger *slog.Logger) error {
	cfg := s.config.Catalog
	if !cfg.Enabled {
		return nil
	}

	backend, err := OpenCatalog(cfg, logger)
	if err != nil {
		return err
	}

	var store catalog.Storage = backend
	if cfg.Cache.Enabled {
		store = catalog.NewCachedStorage(backend, cfg.Cache.TTL, cfg.Cache.CleanupInterval, s.metrics)
	}
	s.catalog = store

	if cfg.SeedFile != "" {
		res, err := catalog.ImportFile(ctx, store, cfg.SeedFile, false)
		if err != nil {
			return fmt.Errorf("failed to seed catalog from %s: %w", cfg.SeedFile, err)
		}
		s.logger.Info("catalog seeded",
			"file", cfg.SeedFile,
			"created", res.Created,
			"skipped", res.Skipped,
		)
	}
	return nil
}

// OpenCatalog opens the configured storage backend without caching.
func OpenCatalog(cfg config.CatalogConfig, logger *slog.Logger) (catalog.Storage, error) {
	switch cfg.Backend {
	case "memory":
		return storage.NewMemoryStorage(), nil
	case "sqlite":
		store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
			Path:         cfg.SQLite.Path,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.SQLite.MaxIdleConns,
			WALMode:      cfg.SQLite.WALMode,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open catalog database: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown catalog backend %q", cfg.Backend)
	}
}

// catalogPinger finds a Pinger behind the optional cache layer.
func catalogPinger(store catalog.Storage) (health.Pinger, bool) {
	if c, ok := store.(*catalog.CachedStorage); ok {
		store = c.Backend()
	}
	p, ok := store.(health.Pinger)
	return p, ok
}
