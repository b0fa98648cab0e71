package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plork/plork/domain"
	"github.com/plork/plork/util"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testAccount(t *testing.T, db *DB, username string) *domain.Account {
	t.Helper()
	keypair, err := util.GeneratePemKeypair()
	require.NoError(t, err)
	acc, err := db.CreateAccount(username, keypair)
	require.NoError(t, err)
	return acc
}

func TestCreateAndReadAccount(t *testing.T) {
	db := testDB(t)

	created := testAccount(t, db, "alice")

	byName, err := db.ReadAccByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, created.Id, byName.Id)
	assert.Equal(t, "alice", byName.Username)
	assert.Equal(t, created.WebPublicKey, byName.WebPublicKey)
	assert.Equal(t, created.WebPrivateKey, byName.WebPrivateKey)

	byId, err := db.ReadAccById(created.Id)
	require.NoError(t, err)
	assert.Equal(t, "alice", byId.Username)
}

func TestReadAccountMissing(t *testing.T) {
	db := testDB(t)

	_, err := db.ReadAccByUsername("nobody")
	assert.Error(t, err)
}

func TestCreateAccountDuplicateUsername(t *testing.T) {
	db := testDB(t)
	testAccount(t, db, "alice")

	keypair, err := util.GeneratePemKeypair()
	require.NoError(t, err)
	_, err = db.CreateAccount("alice", keypair)
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestFollowLifecycle(t *testing.T) {
	db := testDB(t)
	alice := testAccount(t, db, "alice")
	bob := testAccount(t, db, "bob")

	follow := &domain.Follow{
		Id:              uuid.New(),
		AccountId:       bob.Id,
		TargetAccountId: alice.Id,
		URI:             "https://local.example/activities/f1",
		Accepted:        false,
		CreatedAt:       time.Now(),
	}
	require.NoError(t, db.CreateFollow(follow))

	stored, err := db.ReadFollowByURI(follow.URI)
	require.NoError(t, err)
	assert.Equal(t, bob.Id, stored.AccountId)
	assert.Equal(t, alice.Id, stored.TargetAccountId)
	assert.False(t, stored.Accepted)

	// Pending follows are invisible in the collections
	followers, err := db.ReadFollowersByAccountId(alice.Id)
	require.NoError(t, err)
	assert.Empty(t, followers)

	require.NoError(t, db.AcceptFollowByURI(follow.URI))
	stored, err = db.ReadFollowByURI(follow.URI)
	require.NoError(t, err)
	assert.True(t, stored.Accepted)

	followers, err = db.ReadFollowersByAccountId(alice.Id)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, bob.Id, followers[0].AccountId)

	following, err := db.ReadFollowingByAccountId(bob.Id)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, alice.Id, following[0].TargetAccountId)

	require.NoError(t, db.DeleteFollowByURI(follow.URI))
	_, err = db.ReadFollowByURI(follow.URI)
	assert.Error(t, err)

	// Deleting again is a no-op
	require.NoError(t, db.DeleteFollowByURI(follow.URI))
}

func TestFollowUniqueConstraints(t *testing.T) {
	db := testDB(t)
	alice := testAccount(t, db, "alice")
	bob := testAccount(t, db, "bob")

	follow := &domain.Follow{
		Id:              uuid.New(),
		AccountId:       bob.Id,
		TargetAccountId: alice.Id,
		URI:             "https://local.example/activities/f1",
		CreatedAt:       time.Now(),
	}
	require.NoError(t, db.CreateFollow(follow))

	// Same activity URI
	dup := *follow
	dup.Id = uuid.New()
	assert.ErrorIs(t, db.CreateFollow(&dup), domain.ErrDuplicate)

	// Same account pair under a different URI
	pairDup := *follow
	pairDup.Id = uuid.New()
	pairDup.URI = "https://local.example/activities/f2"
	assert.ErrorIs(t, db.CreateFollow(&pairDup), domain.ErrDuplicate)
}

func TestAcceptFollowMissingIsNoop(t *testing.T) {
	db := testDB(t)
	assert.NoError(t, db.AcceptFollowByURI("https://local.example/activities/none"))
}

func TestLikeLifecycle(t *testing.T) {
	db := testDB(t)
	alice := testAccount(t, db, "alice")
	bob := testAccount(t, db, "bob")

	note := &domain.Note{
		Id:          uuid.New(),
		UserId:      alice.Id,
		Message:     "hello",
		ActivityURI: "https://local.example/activities/c1",
		CreatedAt:   time.Now(),
	}
	require.NoError(t, db.CreateNote(note))

	like := &domain.Like{
		Id:        uuid.New(),
		AccountId: bob.Id,
		NoteId:    note.Id,
		URI:       "https://local.example/activities/l1",
		CreatedAt: time.Now(),
	}
	require.NoError(t, db.CreateLike(like))

	stored, err := db.ReadLikeByURI(like.URI)
	require.NoError(t, err)
	assert.Equal(t, bob.Id, stored.AccountId)
	assert.Equal(t, note.Id, stored.NoteId)

	// Duplicate URI and duplicate pair both collapse
	dup := *like
	dup.Id = uuid.New()
	assert.ErrorIs(t, db.CreateLike(&dup), domain.ErrDuplicate)

	pairDup := *like
	pairDup.Id = uuid.New()
	pairDup.URI = "https://local.example/activities/l2"
	assert.ErrorIs(t, db.CreateLike(&pairDup), domain.ErrDuplicate)

	require.NoError(t, db.DeleteLikeByURI(like.URI))
	_, err = db.ReadLikeByURI(like.URI)
	assert.Error(t, err)
}

func TestNotesByUsername(t *testing.T) {
	db := testDB(t)
	alice := testAccount(t, db, "alice")
	testAccount(t, db, "bob")

	for i, msg := range []string{"first", "second"} {
		note := &domain.Note{
			Id:          uuid.New(),
			UserId:      alice.Id,
			Message:     msg,
			ActivityURI: "https://local.example/activities/c" + string(rune('1'+i)),
			CreatedAt:   time.Now().Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, db.CreateNote(note))
	}

	notes, err := db.ReadNotesByUsername("alice")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	// Newest first, with the author resolved through the join
	assert.Equal(t, "second", notes[0].Message)
	assert.Equal(t, "alice", notes[0].CreatedBy)

	notes, err = db.ReadNotesByUsername("bob")
	require.NoError(t, err)
	assert.Empty(t, notes)

	all, err := db.ReadAllNotes()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byId, err := db.ReadNoteId(all[1].Id)
	require.NoError(t, err)
	assert.Equal(t, "first", byId.Message)
}

func TestLedgersPreserveInsertionOrder(t *testing.T) {
	db := testDB(t)
	alice := testAccount(t, db, "alice")

	now := time.Now()
	for i, typ := range []string{"Follow", "Like", "Undo"} {
		entry := &domain.InboxEntry{
			Id:           uuid.New(),
			AccountId:    alice.Id,
			ActivityURI:  "https://local.example/activities/i" + string(rune('1'+i)),
			ActivityType: typ,
			RawJSON:      `{"type":"` + typ + `"}`,
			// Deliberately identical timestamps: order comes from insertion
			CreatedAt: now,
		}
		require.NoError(t, db.AddToInbox(entry))

		out := &domain.OutboxEntry{
			Id:           uuid.New(),
			AccountId:    alice.Id,
			ActivityURI:  "https://local.example/activities/o" + string(rune('1'+i)),
			ActivityType: typ,
			RawJSON:      `{"type":"` + typ + `"}`,
			CreatedAt:    now,
		}
		require.NoError(t, db.AddToOutbox(out))
	}

	inbox, err := db.ReadInboxByAccountId(alice.Id)
	require.NoError(t, err)
	require.Len(t, inbox, 3)
	assert.Equal(t, "Follow", inbox[0].ActivityType)
	assert.Equal(t, "Like", inbox[1].ActivityType)
	assert.Equal(t, "Undo", inbox[2].ActivityType)

	outbox, err := db.ReadOutboxByAccountId(alice.Id)
	require.NoError(t, err)
	require.Len(t, outbox, 3)
	assert.Equal(t, "https://local.example/activities/o1", outbox[0].ActivityURI)
	assert.Equal(t, "https://local.example/activities/o3", outbox[2].ActivityURI)

	// Ledgers are per-account
	other, err := db.ReadInboxByAccountId(uuid.New())
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestDuplicateLedgerEntriesAllowed(t *testing.T) {
	db := testDB(t)
	alice := testAccount(t, db, "alice")

	entry := &domain.InboxEntry{
		Id:           uuid.New(),
		AccountId:    alice.Id,
		ActivityURI:  "https://local.example/activities/i1",
		ActivityType: "Follow",
		RawJSON:      `{}`,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, db.AddToInbox(entry))

	// A redelivered activity lands in the ledger again under a new row id
	redelivered := *entry
	redelivered.Id = uuid.New()
	require.NoError(t, db.AddToInbox(&redelivered))

	entries, err := db.ReadInboxByAccountId(alice.Id)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
