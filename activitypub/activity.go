package activitypub

import (
	"encoding/json"
	"fmt"
)

const ActivityStreamsContext = "https://www.w3.org/ns/activitystreams"

// Activity represents a generic ActivityPub activity.
type Activity struct {
	Context interface{} `json:"@context,omitempty"`
	ID      string      `json:"id"`
	Type    string      `json:"type"`
	Actor   string      `json:"actor"`
	Object  *Object     `json:"object,omitempty"`
}

// Object is the object of an activity: either a bare URI reference or an
// embedded object. Unknown object types are carried through via Raw so the
// processor can treat them as a no-op without losing the payload.
type Object struct {
	ID      string
	Type    string
	Content string
	Raw     json.RawMessage
}

func (o *Object) UnmarshalJSON(b []byte) error {
	o.Raw = append(json.RawMessage(nil), b...)

	if len(b) > 0 && b[0] == '"' {
		// Object is a simple URI string (like in Follow, Undo, etc.)
		var uri string
		if err := json.Unmarshal(b, &uri); err != nil {
			return err
		}
		o.ID = uri
		return nil
	}

	// Object is a full embedded object (like in Create, Accept)
	var embedded struct {
		ID      string `json:"id"`
		Type    string `json:"type"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(b, &embedded); err != nil {
		return err
	}
	o.ID = embedded.ID
	o.Type = embedded.Type
	o.Content = embedded.Content
	return nil
}

func (o Object) MarshalJSON() ([]byte, error) {
	if len(o.Raw) > 0 {
		return o.Raw, nil
	}
	embedded := struct {
		ID      string `json:"id,omitempty"`
		Type    string `json:"type,omitempty"`
		Content string `json:"content,omitempty"`
	}{o.ID, o.Type, o.Content}
	return json.Marshal(embedded)
}

// ParseActivity unmarshals an activity and checks it carries the required
// top-level fields. Nested objects are trusted as-is; only id, type and
// actor are hard requirements for intake.
func ParseActivity(raw []byte) (*Activity, error) {
	var activity Activity
	if err := json.Unmarshal(raw, &activity); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidActivity, err)
	}
	if activity.ID == "" || activity.Type == "" || activity.Actor == "" {
		return nil, fmt.Errorf("%w: missing id, type or actor", ErrInvalidActivity)
	}
	return &activity, nil
}
