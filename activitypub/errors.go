package activitypub

import "errors"

var (
	// ErrActorNotFound means the referenced local username does not resolve.
	ErrActorNotFound = errors.New("actor not found")

	// ErrInvalidActivity means the body is not parseable JSON or is missing
	// a required top-level field.
	ErrInvalidActivity = errors.New("invalid activity")

	// ErrUnsupportedActivityType is returned by the outbox only: a local
	// actor asked for an activity type the processor cannot honor. The
	// inbox treats unknown types as a stored no-op instead.
	ErrUnsupportedActivityType = errors.New("unsupported activity type")
)
