package storage

// SchemaVersion is bumped whenever Schema changes incompatibly.
const SchemaVersion = 1

// Schema creates the catalog tables. List columns hold JSON arrays.
const Schema = `
CREATE TABLE IF NOT EXISTS elements (
	id                          TEXT PRIMARY KEY,
	element                     TEXT NOT NULL UNIQUE,
	reactions_with_heavy_metals TEXT NOT NULL,
	reactions_with_environment  TEXT NOT NULL,
	compounds_found             TEXT NOT NULL,
	created_at                  INTEGER NOT NULL,
	updated_at                  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
	version    INTEGER PRIMARY KEY,
	applied_at INTEGER NOT NULL
);
`

const (
	insertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version, applied_at) VALUES (?, strftime('%s','now'))`
	getSchemaVersion    = `SELECT MAX(version) FROM schema_version`

	insertElement = `INSERT INTO elements
	(id, element, reactions_with_heavy_metals, reactions_with_environment, compounds_found, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	selectColumns = `SELECT id, element, reactions_with_heavy_metals, reactions_with_environment, compounds_found, created_at, updated_at FROM elements`

	selectElementByName = selectColumns + ` WHERE element = ?`
	selectAllElements   = selectColumns + ` ORDER BY element`

	updateElement = `UPDATE elements SET
	element = ?, reactions_with_heavy_metals = ?, reactions_with_environment = ?, compounds_found = ?, updated_at = ?
	WHERE id = ?`

	deleteElement = `DELETE FROM elements WHERE element = ?`
)
