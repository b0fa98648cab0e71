package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/plork/plork/domain"
	"github.com/plork/plork/util"
)

// DB is the database struct.
type DB struct {
	db *sql.DB
}

var logger = log.WithPrefix("db")

// Open opens (or creates) the sqlite database at path and runs the schema
// migrations. Callers own the returned handle; there is no package-level
// singleton so tests can run against their own files.
func Open(path string) (*DB, error) {
	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Connection pool sized for concurrent inbox deliveries
	sqldb.SetMaxOpenConns(25)
	sqldb.SetMaxIdleConns(5)
	sqldb.SetConnMaxLifetime(time.Hour)

	var journalMode string
	if err := sqldb.QueryRow("PRAGMA journal_mode=WAL").Scan(&journalMode); err != nil {
		logger.Warnf("Failed to enable WAL mode: %v", err)
	} else {
		logger.Debugf("Database journal mode: %s", journalMode)
	}

	sqldb.Exec("PRAGMA synchronous = NORMAL")
	sqldb.Exec("PRAGMA temp_store = MEMORY")
	sqldb.Exec("PRAGMA busy_timeout = 5000")
	sqldb.Exec("PRAGMA foreign_keys = ON")

	db := &DB{db: sqldb}
	if err := db.RunMigrations(); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

// wrapTransaction runs the given function within a transaction, retrying
// while the database is locked by a concurrent writer.
func (db *DB) wrapTransaction(f func(tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Errorf("error starting transaction: %s", err)
		return err
	}
	for {
		err = f(tx)
		if err != nil {
			serr := &sqlite.Error{}
			if errors.As(err, &serr) && serr.Code()&0xff == sqlitelib.SQLITE_BUSY {
				continue
			}
			tx.Rollback()
			return err
		}
		err = tx.Commit()
		if err != nil {
			logger.Errorf("error committing transaction: %s", err)
			return err
		}
		break
	}
	return nil
}

// wrapConstraint converts sqlite uniqueness violations into
// domain.ErrDuplicate so callers can treat redeliveries as recoverable.
func wrapConstraint(err error) error {
	if err == nil {
		return nil
	}
	serr := &sqlite.Error{}
	if errors.As(err, &serr) && serr.Code()&0xff == sqlitelib.SQLITE_CONSTRAINT {
		return fmt.Errorf("%w: %v", domain.ErrDuplicate, err)
	}
	return err
}

// Accounts

const (
	sqlInsertAccount           = `INSERT INTO accounts(id, username, web_public_key, web_private_key, created_at) VALUES (?, ?, ?, ?, ?)`
	sqlSelectAccountByUsername = `SELECT id, username, web_public_key, web_private_key, created_at FROM accounts WHERE username = ?`
	sqlSelectAccountById       = `SELECT id, username, web_public_key, web_private_key, created_at FROM accounts WHERE id = ?`
)

func (db *DB) CreateAccount(username string, keypair *util.RsaKeyPair) (*domain.Account, error) {
	acc := &domain.Account{
		Id:            uuid.New(),
		Username:      username,
		WebPublicKey:  keypair.Public,
		WebPrivateKey: keypair.Private,
		CreatedAt:     time.Now(),
	}
	err := db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertAccount, acc.Id.String(), acc.Username, acc.WebPublicKey, acc.WebPrivateKey, acc.CreatedAt)
		return err
	})
	if err != nil {
		return nil, wrapConstraint(err)
	}
	return acc, nil
}

func (db *DB) scanAccount(row *sql.Row) (*domain.Account, error) {
	var acc domain.Account
	var idStr string
	err := row.Scan(&idStr, &acc.Username, &acc.WebPublicKey, &acc.WebPrivateKey, &acc.CreatedAt)
	if err != nil {
		return nil, err
	}
	acc.Id, _ = uuid.Parse(idStr)
	return &acc, nil
}

func (db *DB) ReadAccByUsername(username string) (*domain.Account, error) {
	return db.scanAccount(db.db.QueryRow(sqlSelectAccountByUsername, username))
}

func (db *DB) ReadAccById(id uuid.UUID) (*domain.Account, error) {
	return db.scanAccount(db.db.QueryRow(sqlSelectAccountById, id.String()))
}

// Follows

const (
	sqlInsertFollow             = `INSERT INTO follows(id, account_id, target_account_id, uri, accepted, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	sqlSelectFollowByURI        = `SELECT id, account_id, target_account_id, uri, accepted, created_at FROM follows WHERE uri = ?`
	sqlUpdateFollowAccepted     = `UPDATE follows SET accepted = 1 WHERE uri = ?`
	sqlDeleteFollowByURI        = `DELETE FROM follows WHERE uri = ?`
	sqlSelectFollowersByTarget  = `SELECT id, account_id, target_account_id, uri, accepted, created_at FROM follows WHERE target_account_id = ? AND accepted = 1`
	sqlSelectFollowingByAccount = `SELECT id, account_id, target_account_id, uri, accepted, created_at FROM follows WHERE account_id = ? AND accepted = 1`
)

func (db *DB) CreateFollow(follow *domain.Follow) error {
	err := db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertFollow,
			follow.Id.String(),
			follow.AccountId.String(),
			follow.TargetAccountId.String(),
			follow.URI,
			follow.Accepted,
			follow.CreatedAt,
		)
		return err
	})
	return wrapConstraint(err)
}

func scanFollow(scan func(dest ...any) error) (*domain.Follow, error) {
	var follow domain.Follow
	var idStr, accountIdStr, targetIdStr string
	err := scan(&idStr, &accountIdStr, &targetIdStr, &follow.URI, &follow.Accepted, &follow.CreatedAt)
	if err != nil {
		return nil, err
	}
	follow.Id, _ = uuid.Parse(idStr)
	follow.AccountId, _ = uuid.Parse(accountIdStr)
	follow.TargetAccountId, _ = uuid.Parse(targetIdStr)
	return &follow, nil
}

func (db *DB) ReadFollowByURI(uri string) (*domain.Follow, error) {
	return scanFollow(db.db.QueryRow(sqlSelectFollowByURI, uri).Scan)
}

// AcceptFollowByURI flips the accepted flag on the follow created by the
// activity with the given URI. Updating a non-existent follow is a no-op.
func (db *DB) AcceptFollowByURI(uri string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateFollowAccepted, uri)
		return err
	})
}

// DeleteFollowByURI removes the follow edge entirely. Deleting a
// non-existent follow is a no-op.
func (db *DB) DeleteFollowByURI(uri string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteFollowByURI, uri)
		return err
	})
}

func (db *DB) queryFollows(query string, arg any) ([]domain.Follow, error) {
	rows, err := db.db.Query(query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var follows []domain.Follow
	for rows.Next() {
		follow, err := scanFollow(rows.Scan)
		if err != nil {
			return follows, err
		}
		follows = append(follows, *follow)
	}
	return follows, rows.Err()
}

// ReadFollowersByAccountId returns accepted follows where the given account
// is the one being followed.
func (db *DB) ReadFollowersByAccountId(accountId uuid.UUID) ([]domain.Follow, error) {
	return db.queryFollows(sqlSelectFollowersByTarget, accountId.String())
}

// ReadFollowingByAccountId returns accepted follows initiated by the given
// account.
func (db *DB) ReadFollowingByAccountId(accountId uuid.UUID) ([]domain.Follow, error) {
	return db.queryFollows(sqlSelectFollowingByAccount, accountId.String())
}

// Likes

const (
	sqlInsertLike      = `INSERT INTO likes(id, account_id, note_id, uri, created_at) VALUES (?, ?, ?, ?, ?)`
	sqlSelectLikeByURI = `SELECT id, account_id, note_id, uri, created_at FROM likes WHERE uri = ?`
	sqlDeleteLikeByURI = `DELETE FROM likes WHERE uri = ?`
)

func (db *DB) CreateLike(like *domain.Like) error {
	err := db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertLike,
			like.Id.String(),
			like.AccountId.String(),
			like.NoteId.String(),
			like.URI,
			like.CreatedAt,
		)
		return err
	})
	return wrapConstraint(err)
}

func (db *DB) ReadLikeByURI(uri string) (*domain.Like, error) {
	row := db.db.QueryRow(sqlSelectLikeByURI, uri)
	var like domain.Like
	var idStr, accountIdStr, noteIdStr string
	err := row.Scan(&idStr, &accountIdStr, &noteIdStr, &like.URI, &like.CreatedAt)
	if err != nil {
		return nil, err
	}
	like.Id, _ = uuid.Parse(idStr)
	like.AccountId, _ = uuid.Parse(accountIdStr)
	like.NoteId, _ = uuid.Parse(noteIdStr)
	return &like, nil
}

func (db *DB) DeleteLikeByURI(uri string) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteLikeByURI, uri)
		return err
	})
}

// Notes

const (
	sqlInsertNote = `INSERT INTO notes(id, user_id, message, activity_uri, created_at) VALUES (?, ?, ?, ?, ?)`
	sqlSelectNoteById = `SELECT notes.id, notes.user_id, accounts.username, notes.message, notes.activity_uri, notes.created_at FROM notes
                                                            INNER JOIN accounts ON accounts.id = notes.user_id
                                                            WHERE notes.id = ?`
	sqlSelectNotesByUsername = `SELECT notes.id, notes.user_id, accounts.username, notes.message, notes.activity_uri, notes.created_at FROM notes
                                                            INNER JOIN accounts ON accounts.id = notes.user_id
                                                            WHERE accounts.username = ?
                                                            ORDER BY notes.created_at DESC`
	sqlSelectAllNotes = `SELECT notes.id, notes.user_id, accounts.username, notes.message, notes.activity_uri, notes.created_at FROM notes
                                                            INNER JOIN accounts ON accounts.id = notes.user_id
                                                            ORDER BY notes.created_at DESC`
)

func (db *DB) CreateNote(note *domain.Note) error {
	err := db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertNote,
			note.Id.String(),
			note.UserId.String(),
			note.Message,
			note.ActivityURI,
			note.CreatedAt,
		)
		return err
	})
	return wrapConstraint(err)
}

func scanNote(scan func(dest ...any) error) (*domain.Note, error) {
	var note domain.Note
	var idStr, userIdStr string
	err := scan(&idStr, &userIdStr, &note.CreatedBy, &note.Message, &note.ActivityURI, &note.CreatedAt)
	if err != nil {
		return nil, err
	}
	note.Id, _ = uuid.Parse(idStr)
	note.UserId, _ = uuid.Parse(userIdStr)
	return &note, nil
}

func (db *DB) ReadNoteId(id uuid.UUID) (*domain.Note, error) {
	return scanNote(db.db.QueryRow(sqlSelectNoteById, id.String()).Scan)
}

func (db *DB) queryNotes(query string, args ...any) ([]domain.Note, error) {
	rows, err := db.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []domain.Note
	for rows.Next() {
		note, err := scanNote(rows.Scan)
		if err != nil {
			return notes, err
		}
		notes = append(notes, *note)
	}
	return notes, rows.Err()
}

func (db *DB) ReadNotesByUsername(username string) ([]domain.Note, error) {
	return db.queryNotes(sqlSelectNotesByUsername, username)
}

func (db *DB) ReadAllNotes() ([]domain.Note, error) {
	return db.queryNotes(sqlSelectAllNotes)
}

// Inbox/outbox ledgers. Append-only: there are deliberately no update or
// delete statements for these tables.

const (
	sqlInsertInboxEntry   = `INSERT INTO inbox_entries(id, account_id, activity_uri, activity_type, raw_json, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	sqlSelectInboxEntries = `SELECT id, account_id, activity_uri, activity_type, raw_json, created_at FROM inbox_entries WHERE account_id = ? ORDER BY rowid ASC`

	sqlInsertOutboxEntry   = `INSERT INTO outbox_entries(id, account_id, activity_uri, activity_type, raw_json, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	sqlSelectOutboxEntries = `SELECT id, account_id, activity_uri, activity_type, raw_json, created_at FROM outbox_entries WHERE account_id = ? ORDER BY rowid ASC`
)

func (db *DB) AddToInbox(entry *domain.InboxEntry) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertInboxEntry,
			entry.Id.String(),
			entry.AccountId.String(),
			entry.ActivityURI,
			entry.ActivityType,
			entry.RawJSON,
			entry.CreatedAt,
		)
		return err
	})
}

func (db *DB) AddToOutbox(entry *domain.OutboxEntry) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertOutboxEntry,
			entry.Id.String(),
			entry.AccountId.String(),
			entry.ActivityURI,
			entry.ActivityType,
			entry.RawJSON,
			entry.CreatedAt,
		)
		return err
	})
}

func (db *DB) ReadInboxByAccountId(accountId uuid.UUID) ([]domain.InboxEntry, error) {
	rows, err := db.db.Query(sqlSelectInboxEntries, accountId.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.InboxEntry
	for rows.Next() {
		var entry domain.InboxEntry
		var idStr, accountIdStr string
		if err := rows.Scan(&idStr, &accountIdStr, &entry.ActivityURI, &entry.ActivityType, &entry.RawJSON, &entry.CreatedAt); err != nil {
			return entries, err
		}
		entry.Id, _ = uuid.Parse(idStr)
		entry.AccountId, _ = uuid.Parse(accountIdStr)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (db *DB) ReadOutboxByAccountId(accountId uuid.UUID) ([]domain.OutboxEntry, error) {
	rows, err := db.db.Query(sqlSelectOutboxEntries, accountId.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.OutboxEntry
	for rows.Next() {
		var entry domain.OutboxEntry
		var idStr, accountIdStr string
		if err := rows.Scan(&idStr, &accountIdStr, &entry.ActivityURI, &entry.ActivityType, &entry.RawJSON, &entry.CreatedAt); err != nil {
			return entries, err
		}
		entry.Id, _ = uuid.Parse(idStr)
		entry.AccountId, _ = uuid.Parse(accountIdStr)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
