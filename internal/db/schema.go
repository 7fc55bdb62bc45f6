package db

// SchemaVersion is the current database schema version
const SchemaVersion = 2

const schema = `
-- Mirror of server collections, replaced wholesale on every sync
CREATE TABLE IF NOT EXISTS cache_records (
    collection TEXT NOT NULL,
    record_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    data TEXT NOT NULL,
    PRIMARY KEY (collection, record_id)
);

CREATE INDEX IF NOT EXISTS idx_cache_records_position ON cache_records(collection, position);

-- Mutations captured while the API was unreachable, replayed in id order
CREATE TABLE IF NOT EXISTS pending_requests (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    url TEXT NOT NULL,
    method TEXT NOT NULL,
    headers TEXT NOT NULL DEFAULT '{}',
    body TEXT NOT NULL DEFAULT '',
    timestamp INTEGER NOT NULL
);

-- String-keyed storage (last sync time, auth session blob)
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_info (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations is the list of all database migrations in order
var Migrations = []Migration{
	// Version 1 is the initial schema - no migration needed
	{
		Version:     2,
		Description: "Add dead_letters table for server-rejected replays",
		SQL: `
CREATE TABLE IF NOT EXISTS dead_letters (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id INTEGER NOT NULL,
    url TEXT NOT NULL,
    method TEXT NOT NULL,
    headers TEXT NOT NULL DEFAULT '{}',
    body TEXT NOT NULL DEFAULT '',
    timestamp INTEGER NOT NULL,
    status INTEGER NOT NULL,
    response TEXT NOT NULL DEFAULT '',
    rejected_at INTEGER NOT NULL
);
`,
	},
}
