package sqlite

import "database/sql"

// schema runs on startup to ensure tables exist.
const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
    key TEXT PRIMARY KEY,
    data BLOB NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
