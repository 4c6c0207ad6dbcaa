package storage

// Schema DDL for the SQLite store.
const (
	createItems = `CREATE TABLE IF NOT EXISTS items (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);`

	createCookies = `CREATE TABLE IF NOT EXISTS cookies (
    name TEXT NOT NULL,
    path TEXT NOT NULL,
    domain TEXT NOT NULL,
    value TEXT NOT NULL,
    expires TEXT,
    secure INTEGER NOT NULL DEFAULT 0,
    http_only INTEGER NOT NULL DEFAULT 0,
    same_site TEXT NOT NULL,
    created_at TEXT NOT NULL,
    PRIMARY KEY (name, path, domain)
);`
)

// schemaStatements lists DDL in execution order.
var schemaStatements = []string{
	createItems,
	createCookies,
}
