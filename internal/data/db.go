package data

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// OpenDB opens the relay database and creates its tables
func OpenDB(dbPath string) (*sql.DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; a single connection keeps transactions serialized
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Create messages table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			batch_id TEXT NOT NULL,
			app_name TEXT NOT NULL,
			carrier TEXT NOT NULL DEFAULT '',
			sms TEXT NOT NULL DEFAULT '',
			time TEXT NOT NULL DEFAULT '',
			color TEXT NOT NULL DEFAULT '',
			received_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create messages table: %w", err)
	}

	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_messages_app_name ON messages(app_name)`)
	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_messages_received_at ON messages(received_at)`)

	// Create origins table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS origins (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			app_name TEXT UNIQUE NOT NULL,
			color TEXT NOT NULL DEFAULT '',
			login_url TEXT,
			url_checked_at INTEGER,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create origins table: %w", err)
	}

	return db, nil
}
