package activitypub

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/plork/plork/domain"
)

// ActorDocument is the JSON structure of an ActivityPub actor.
type ActorDocument struct {
	Context           interface{}    `json:"@context"`
	ID                string         `json:"id"`
	Type              string         `json:"type"`
	PreferredUsername string         `json:"preferredUsername"`
	Inbox             string         `json:"inbox"`
	Outbox            string         `json:"outbox"`
	Followers         string         `json:"followers"`
	Following         string         `json:"following"`
	URL               string         `json:"url"`
	PublicKey         ActorPublicKey `json:"publicKey"`
}

type ActorPublicKey struct {
	ID           string `json:"id"`
	Owner        string `json:"owner"`
	PublicKeyPem string `json:"publicKeyPem"`
}

// Collection is an unordered ActivityPub collection of URI references.
type Collection struct {
	Context    interface{} `json:"@context"`
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	TotalItems int         `json:"totalItems"`
	Items      []string    `json:"items"`
}

// OrderedCollection carries already-rendered activity JSON in stored order.
type OrderedCollection struct {
	Context      interface{}       `json:"@context"`
	ID           string            `json:"id"`
	Type         string            `json:"type"`
	TotalItems   int               `json:"totalItems"`
	OrderedItems []json.RawMessage `json:"orderedItems"`
}

// FormatActor renders a local account as its public actor document.
func FormatActor(acc *domain.Account, sslDomain string) *ActorDocument {
	actorURI := ActorURI(sslDomain, acc.Username)
	return &ActorDocument{
		Context: []string{
			ActivityStreamsContext,
			"https://w3id.org/security/v1",
		},
		ID:                actorURI,
		Type:              "Person",
		PreferredUsername: acc.Username,
		Inbox:             InboxURI(sslDomain, acc.Username),
		Outbox:            OutboxURI(sslDomain, acc.Username),
		Followers:         FollowersURI(sslDomain, acc.Username),
		Following:         FollowingURI(sslDomain, acc.Username),
		URL:               actorURI,
		PublicKey: ActorPublicKey{
			ID:           actorURI + "#main-key",
			Owner:        actorURI,
			PublicKeyPem: acc.WebPublicKey,
		},
	}
}

// FormatCollection renders a list of URI references as a Collection.
func FormatCollection(selfURL string, items []string) *Collection {
	if items == nil {
		items = []string{}
	}
	return &Collection{
		Context:    ActivityStreamsContext,
		ID:         selfURL,
		Type:       "Collection",
		TotalItems: len(items),
		Items:      items,
	}
}

// FormatOrderedCollection renders stored activity JSON as an
// OrderedCollection, preserving the order the caller passed in.
func FormatOrderedCollection(selfURL string, items []json.RawMessage) *OrderedCollection {
	if items == nil {
		items = []json.RawMessage{}
	}
	return &OrderedCollection{
		Context:      ActivityStreamsContext,
		ID:           selfURL,
		Type:         "OrderedCollection",
		TotalItems:   len(items),
		OrderedItems: items,
	}
}

func ActorURI(sslDomain, username string) string {
	return fmt.Sprintf("https://%s/users/%s", sslDomain, username)
}

func InboxURI(sslDomain, username string) string {
	return ActorURI(sslDomain, username) + "/inbox"
}

func OutboxURI(sslDomain, username string) string {
	return ActorURI(sslDomain, username) + "/outbox"
}

func FollowersURI(sslDomain, username string) string {
	return ActorURI(sslDomain, username) + "/followers"
}

func FollowingURI(sslDomain, username string) string {
	return ActorURI(sslDomain, username) + "/following"
}

// LocalUsername resolves an actor URI on this instance to its username, or
// "" when the URI belongs to another server.
func LocalUsername(sslDomain, actorURI string) string {
	prefix := fmt.Sprintf("https://%s/users/", sslDomain)
	if !strings.HasPrefix(actorURI, prefix) {
		return ""
	}
	rest := strings.TrimPrefix(actorURI, prefix)
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return rest
}
