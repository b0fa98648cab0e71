package activitypub

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/plork/plork/domain"
	"github.com/plork/plork/util"
)

var outboxLogger = log.WithPrefix("outbox")

// Outbox publishes activities authored by a local actor. Unlike the inbox,
// failures here belong to the caller: a local client must learn that its
// publish did not happen.
type Outbox struct {
	store Store
	conf  *util.AppConfig
}

func NewOutbox(store Store, conf *util.AppConfig) *Outbox {
	return &Outbox{store: store, conf: conf}
}

// Publish validates a locally authored activity, applies its side effects
// and appends it to the actor's outbox ledger. Nothing is appended when the
// activity is rejected or a side effect fails.
func (out *Outbox) Publish(username string, raw []byte) error {
	acc, err := out.store.ReadAccByUsername(username)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrActorNotFound, username)
	}

	activity, err := ParseActivity(raw)
	if err != nil {
		return err
	}

	switch activity.Type {
	case "Create":
		if err := out.createNote(acc, activity); err != nil {
			return err
		}
	case "Follow", "Like", "Undo":
		// Ledger-only: the delivery worker picks these up from the outbox.
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedActivityType, activity.Type)
	}

	entry := &domain.OutboxEntry{
		Id:           uuid.New(),
		AccountId:    acc.Id,
		ActivityURI:  activity.ID,
		ActivityType: activity.Type,
		RawJSON:      string(raw),
		CreatedAt:    time.Now(),
	}
	if err := out.store.AddToOutbox(entry); err != nil {
		return fmt.Errorf("failed to store outbox entry: %w", err)
	}

	outboxLogger.Infof("Published %s %s for %s", activity.Type, activity.ID, username)
	return nil
}

func (out *Outbox) createNote(acc *domain.Account, activity *Activity) error {
	if activity.Object == nil || activity.Object.Type != "Note" {
		return fmt.Errorf("%w: Create without a Note object", ErrInvalidActivity)
	}

	note := &domain.Note{
		Id:          uuid.New(),
		UserId:      acc.Id,
		Message:     util.NormalizeInput(activity.Object.Content),
		ActivityURI: activity.ID,
		CreatedAt:   time.Now(),
	}

	if err := out.store.CreateNote(note); err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}

	return nil
}
