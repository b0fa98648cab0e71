package activitypub

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/plork/plork/domain"
	"github.com/plork/plork/util"
)

var inboxLogger = log.WithPrefix("inbox")

// Inbox processes activities delivered by other servers to a local actor.
type Inbox struct {
	store Store
	conf  *util.AppConfig
}

func NewInbox(store Store, conf *util.AppConfig) *Inbox {
	return &Inbox{store: store, conf: conf}
}

// Receive takes a raw activity addressed to the given local actor, appends
// it to the actor's inbox ledger and applies its side effects.
//
// The ledger write happens before dispatch and the per-type handlers may
// fail without failing the call: a malformed or adversarial remote activity
// must not be able to wedge a local inbox. Only a missing actor or an
// unparseable body is reported to the caller.
func (in *Inbox) Receive(username string, raw []byte) error {
	acc, err := in.store.ReadAccByUsername(username)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrActorNotFound, username)
	}

	activity, err := ParseActivity(raw)
	if err != nil {
		return err
	}

	inboxLogger.Infof("Received %s from %s for %s", activity.Type, activity.Actor, username)

	entry := &domain.InboxEntry{
		Id:           uuid.New(),
		AccountId:    acc.Id,
		ActivityURI:  activity.ID,
		ActivityType: activity.Type,
		RawJSON:      string(raw),
		CreatedAt:    time.Now(),
	}
	if err := in.store.AddToInbox(entry); err != nil {
		// Intake already succeeded from the remote server's point of view
		inboxLogger.Errorf("Failed to store inbox entry for %s: %v", username, err)
	}

	var herr error
	switch activity.Type {
	case "Follow":
		herr = in.handleFollow(acc, activity)
	case "Accept":
		herr = in.handleAccept(activity)
	case "Create":
		// Stored-only for now: the ledger entry above is the whole effect.
		// TODO: materialize the embedded Note as a post attributed to the
		// remote actor once remote attribution lands.
	case "Like":
		herr = in.handleLike(activity)
	case "Undo":
		herr = in.handleUndo(activity)
	default:
		inboxLogger.Debugf("Ignoring activity type %s", activity.Type)
	}

	if herr != nil {
		inboxLogger.Errorf("Failed to handle %s %s: %v", activity.Type, activity.ID, herr)
	}

	return nil
}

// handleFollow creates the follow edge initiator -> target, keyed by the
// activity URI so redeliveries collapse into a no-op.
func (in *Inbox) handleFollow(target *domain.Account, activity *Activity) error {
	initiatorName := util.LastPathSegment(activity.Actor)
	if initiatorName == "" {
		return fmt.Errorf("cannot resolve username from actor %q", activity.Actor)
	}

	initiator, err := in.store.ReadAccByUsername(initiatorName)
	if err != nil {
		return fmt.Errorf("follow initiator %s not found: %w", initiatorName, err)
	}

	if existing, err := in.store.ReadFollowByURI(activity.ID); err == nil && existing != nil {
		inboxLogger.Debugf("Follow %s already processed, skipping", activity.ID)
		return nil
	}

	follow := &domain.Follow{
		Id:              uuid.New(),
		AccountId:       initiator.Id,
		TargetAccountId: target.Id,
		URI:             activity.ID,
		Accepted:        in.conf.Conf.AutoAcceptFollows,
		CreatedAt:       time.Now(),
	}

	if err := in.store.CreateFollow(follow); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			// Lost a race against a concurrent delivery of the same edge
			inboxLogger.Debugf("Follow %s already exists, skipping", activity.ID)
			return nil
		}
		return fmt.Errorf("failed to create follow: %w", err)
	}

	if in.conf.Conf.AutoAcceptFollows {
		if err := in.enqueueAccept(target, activity); err != nil {
			return fmt.Errorf("failed to enqueue Accept: %w", err)
		}
	}

	inboxLogger.Infof("Created follow %s -> %s", initiator.Username, target.Username)
	return nil
}

// enqueueAccept appends an Accept for the given Follow to the target's
// outbox ledger. Delivering it to the follower's server is the delivery
// worker's job, not ours.
func (in *Inbox) enqueueAccept(target *domain.Account, follow *Activity) error {
	sslDomain := in.conf.Conf.SslDomain
	actorURI := ActorURI(sslDomain, target.Username)
	acceptID := fmt.Sprintf("https://%s/activities/%s", sslDomain, uuid.New().String())

	accept := map[string]interface{}{
		"@context": ActivityStreamsContext,
		"id":       acceptID,
		"type":     "Accept",
		"actor":    actorURI,
		"object": map[string]interface{}{
			"id":     follow.ID,
			"type":   "Follow",
			"actor":  follow.Actor,
			"object": actorURI,
		},
	}

	raw, err := json.Marshal(accept)
	if err != nil {
		return fmt.Errorf("failed to marshal Accept: %w", err)
	}

	return in.store.AddToOutbox(&domain.OutboxEntry{
		Id:           uuid.New(),
		AccountId:    target.Id,
		ActivityURI:  acceptID,
		ActivityType: "Accept",
		RawJSON:      string(raw),
		CreatedAt:    time.Now(),
	})
}

// handleAccept flips the accepted flag on the follow the Accept refers to.
// An Accept for an unknown follow changes nothing.
func (in *Inbox) handleAccept(activity *Activity) error {
	if activity.Object == nil || activity.Object.Type != "Follow" {
		return nil
	}
	return in.store.AcceptFollowByURI(activity.Object.ID)
}

func (in *Inbox) handleLike(activity *Activity) error {
	if activity.Object == nil || activity.Object.ID == "" {
		return fmt.Errorf("like without object")
	}

	noteId, err := uuid.Parse(util.LastPathSegment(activity.Object.ID))
	if err != nil {
		return fmt.Errorf("cannot resolve note id from %q: %w", activity.Object.ID, err)
	}

	likerName := util.LastPathSegment(activity.Actor)
	liker, err := in.store.ReadAccByUsername(likerName)
	if err != nil {
		return fmt.Errorf("like actor %s not found: %w", likerName, err)
	}

	if existing, err := in.store.ReadLikeByURI(activity.ID); err == nil && existing != nil {
		inboxLogger.Debugf("Like %s already processed, skipping", activity.ID)
		return nil
	}

	like := &domain.Like{
		Id:        uuid.New(),
		AccountId: liker.Id,
		NoteId:    noteId,
		URI:       activity.ID,
		CreatedAt: time.Now(),
	}

	if err := in.store.CreateLike(like); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			inboxLogger.Debugf("Like %s already exists, skipping", activity.ID)
			return nil
		}
		return fmt.Errorf("failed to create like: %w", err)
	}

	return nil
}

// handleUndo deletes the follow or like edge created by the activity the
// Undo refers to. Undoing an edge that is already gone is a no-op.
func (in *Inbox) handleUndo(activity *Activity) error {
	if activity.Object == nil {
		return nil
	}

	switch activity.Object.Type {
	case "Follow":
		return in.store.DeleteFollowByURI(activity.Object.ID)
	case "Like":
		return in.store.DeleteLikeByURI(activity.Object.ID)
	}

	return nil
}

// VerifySignature checks the HTTP signature of an inbound inbox request
// against the signing actor's published key. Key resolution is local: the
// keyId owner must be an actor on this instance.
func (in *Inbox) VerifySignature(r *http.Request) bool {
	owner := KeyOwner(r)
	if owner == "" {
		return false
	}

	acc, err := in.store.ReadAccByUsername(util.LastPathSegment(owner))
	if err != nil {
		return false
	}

	publicKey, err := ParsePublicKey(acc.WebPublicKey)
	if err != nil {
		return false
	}

	return VerifyRequest(r, publicKey)
}
