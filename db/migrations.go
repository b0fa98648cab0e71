package db

import (
	"database/sql"
)

const (
	sqlCreateAccountsTable = `CREATE TABLE IF NOT EXISTS accounts (
		id TEXT NOT NULL PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		web_public_key TEXT NOT NULL,
		web_private_key TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	// The uri is the natural key used for idempotent redelivery lookups;
	// the pair constraint enforces at most one edge per follower/followed.
	sqlCreateFollowsTable = `CREATE TABLE IF NOT EXISTS follows (
		id TEXT NOT NULL PRIMARY KEY,
		account_id TEXT NOT NULL,
		target_account_id TEXT NOT NULL,
		uri TEXT UNIQUE NOT NULL,
		accepted INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(account_id, target_account_id)
	)`

	sqlCreateFollowsAccountIdx = `CREATE INDEX IF NOT EXISTS idx_follows_account_id ON follows(account_id)`
	sqlCreateFollowsTargetIdx  = `CREATE INDEX IF NOT EXISTS idx_follows_target_account_id ON follows(target_account_id)`

	sqlCreateLikesTable = `CREATE TABLE IF NOT EXISTS likes (
		id TEXT NOT NULL PRIMARY KEY,
		account_id TEXT NOT NULL,
		note_id TEXT NOT NULL,
		uri TEXT UNIQUE NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(account_id, note_id)
	)`

	sqlCreateLikesNoteIdx    = `CREATE INDEX IF NOT EXISTS idx_likes_note_id ON likes(note_id)`
	sqlCreateLikesAccountIdx = `CREATE INDEX IF NOT EXISTS idx_likes_account_id ON likes(account_id)`

	sqlCreateNotesTable = `CREATE TABLE IF NOT EXISTS notes (
		id TEXT NOT NULL PRIMARY KEY,
		user_id TEXT NOT NULL,
		message TEXT,
		activity_uri TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateNotesUserIdx    = `CREATE INDEX IF NOT EXISTS idx_notes_user_id ON notes(user_id)`
	sqlCreateNotesCreatedIdx = `CREATE INDEX IF NOT EXISTS idx_notes_created_at ON notes(created_at DESC)`

	sqlCreateInboxTable = `CREATE TABLE IF NOT EXISTS inbox_entries (
		id TEXT NOT NULL PRIMARY KEY,
		account_id TEXT NOT NULL,
		activity_uri TEXT NOT NULL,
		activity_type TEXT NOT NULL,
		raw_json TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateInboxAccountIdx = `CREATE INDEX IF NOT EXISTS idx_inbox_entries_account_id ON inbox_entries(account_id)`

	sqlCreateOutboxTable = `CREATE TABLE IF NOT EXISTS outbox_entries (
		id TEXT NOT NULL PRIMARY KEY,
		account_id TEXT NOT NULL,
		activity_uri TEXT NOT NULL,
		activity_type TEXT NOT NULL,
		raw_json TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`

	sqlCreateOutboxAccountIdx = `CREATE INDEX IF NOT EXISTS idx_outbox_entries_account_id ON outbox_entries(account_id)`
)

// RunMigrations executes all schema migrations. Everything is IF NOT EXISTS
// so running them on every start is safe.
func (db *DB) RunMigrations() error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		statements := []string{
			sqlCreateAccountsTable,
			sqlCreateFollowsTable,
			sqlCreateFollowsAccountIdx,
			sqlCreateFollowsTargetIdx,
			sqlCreateLikesTable,
			sqlCreateLikesNoteIdx,
			sqlCreateLikesAccountIdx,
			sqlCreateNotesTable,
			sqlCreateNotesUserIdx,
			sqlCreateNotesCreatedIdx,
			sqlCreateInboxTable,
			sqlCreateInboxAccountIdx,
			sqlCreateOutboxTable,
			sqlCreateOutboxAccountIdx,
		}

		for _, stmt := range statements {
			if _, err := tx.Exec(stmt); err != nil {
				return err
			}
		}
		return nil
	})
}
