package activitypub

import (
	"github.com/google/uuid"

	"github.com/plork/plork/domain"
)

// Store is the persistence capability the processors run against. db.DB
// implements it; tests use an in-memory fake.
type Store interface {
	ReadAccByUsername(username string) (*domain.Account, error)
	ReadAccById(id uuid.UUID) (*domain.Account, error)

	CreateFollow(follow *domain.Follow) error
	ReadFollowByURI(uri string) (*domain.Follow, error)
	AcceptFollowByURI(uri string) error
	DeleteFollowByURI(uri string) error

	CreateLike(like *domain.Like) error
	ReadLikeByURI(uri string) (*domain.Like, error)
	DeleteLikeByURI(uri string) error

	CreateNote(note *domain.Note) error

	AddToInbox(entry *domain.InboxEntry) error
	AddToOutbox(entry *domain.OutboxEntry) error
}
