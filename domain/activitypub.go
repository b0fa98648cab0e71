package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicate marks a storage uniqueness violation. Duplicate federated
// deliveries are expected and recoverable, so callers match on this instead
// of crashing.
var ErrDuplicate = errors.New("duplicate record")

// Follow represents a follow relationship: AccountId follows TargetAccountId.
type Follow struct {
	Id              uuid.UUID
	AccountId       uuid.UUID // The follower
	TargetAccountId uuid.UUID // The account being followed
	URI             string    // ActivityPub Follow activity URI, the natural key
	Accepted        bool
	CreatedAt       time.Time
}

// Like represents a like/favorite on a note.
type Like struct {
	Id        uuid.UUID
	AccountId uuid.UUID
	NoteId    uuid.UUID
	URI       string // ActivityPub Like activity URI, the natural key
	CreatedAt time.Time
}

// InboxEntry is one record of an account's inbox ledger. Entries are only
// ever appended, never updated or deleted.
type InboxEntry struct {
	Id           uuid.UUID
	AccountId    uuid.UUID
	ActivityURI  string
	ActivityType string // Follow, Accept, Create, Like, Undo, ...
	RawJSON      string
	CreatedAt    time.Time
}

// OutboxEntry is one record of an account's outbox ledger, consumed by an
// external delivery worker. Append-only like InboxEntry.
type OutboxEntry struct {
	Id           uuid.UUID
	AccountId    uuid.UUID
	ActivityURI  string
	ActivityType string
	RawJSON      string
	CreatedAt    time.Time
}
