package activitypub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActivityWithStringObject(t *testing.T) {
	raw := []byte(`{
		"@context": "https://www.w3.org/ns/activitystreams",
		"id": "https://remote.example/activities/1",
		"type": "Follow",
		"actor": "https://remote.example/users/bob",
		"object": "https://local.example/users/alice"
	}`)

	activity, err := ParseActivity(raw)
	require.NoError(t, err)

	assert.Equal(t, "https://remote.example/activities/1", activity.ID)
	assert.Equal(t, "Follow", activity.Type)
	assert.Equal(t, "https://remote.example/users/bob", activity.Actor)
	require.NotNil(t, activity.Object)
	assert.Equal(t, "https://local.example/users/alice", activity.Object.ID)
	assert.Empty(t, activity.Object.Type)
}

func TestParseActivityWithEmbeddedObject(t *testing.T) {
	raw := []byte(`{
		"id": "https://remote.example/activities/2",
		"type": "Create",
		"actor": "https://remote.example/users/bob",
		"object": {
			"id": "https://remote.example/notes/7",
			"type": "Note",
			"content": "hello world"
		}
	}`)

	activity, err := ParseActivity(raw)
	require.NoError(t, err)

	require.NotNil(t, activity.Object)
	assert.Equal(t, "https://remote.example/notes/7", activity.Object.ID)
	assert.Equal(t, "Note", activity.Object.Type)
	assert.Equal(t, "hello world", activity.Object.Content)
	assert.JSONEq(t, `{
		"id": "https://remote.example/notes/7",
		"type": "Note",
		"content": "hello world"
	}`, string(activity.Object.Raw))
}

func TestParseActivityWithoutObject(t *testing.T) {
	raw := []byte(`{
		"id": "https://remote.example/activities/3",
		"type": "Arrive",
		"actor": "https://remote.example/users/bob"
	}`)

	activity, err := ParseActivity(raw)
	require.NoError(t, err)
	assert.Nil(t, activity.Object)
}

func TestParseActivityUnknownTypeParses(t *testing.T) {
	raw := []byte(`{
		"id": "https://remote.example/activities/4",
		"type": "Question",
		"actor": "https://remote.example/users/bob",
		"object": "https://remote.example/polls/1"
	}`)

	activity, err := ParseActivity(raw)
	require.NoError(t, err)
	assert.Equal(t, "Question", activity.Type)
}

func TestParseActivityRejectsMissingFields(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing id", `{"type":"Follow","actor":"https://remote.example/users/bob"}`},
		{"missing type", `{"id":"https://remote.example/activities/5","actor":"https://remote.example/users/bob"}`},
		{"missing actor", `{"id":"https://remote.example/activities/5","type":"Follow"}`},
		{"empty object", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseActivity([]byte(tt.raw))
			assert.ErrorIs(t, err, ErrInvalidActivity)
		})
	}
}

func TestParseActivityRejectsMalformedJSON(t *testing.T) {
	_, err := ParseActivity([]byte(`{"id": "https://`))
	assert.ErrorIs(t, err, ErrInvalidActivity)

	_, err = ParseActivity([]byte(`not json at all`))
	assert.ErrorIs(t, err, ErrInvalidActivity)
}

func TestParseActivityRejectsNonStringActor(t *testing.T) {
	raw := []byte(`{
		"id": "https://remote.example/activities/6",
		"type": "Follow",
		"actor": {"id": "https://remote.example/users/bob"}
	}`)

	_, err := ParseActivity(raw)
	assert.ErrorIs(t, err, ErrInvalidActivity)
}

func TestObjectRoundTripKeepsRawPayload(t *testing.T) {
	raw := []byte(`{
		"id": "https://remote.example/activities/7",
		"type": "Create",
		"actor": "https://remote.example/users/bob",
		"object": {
			"id": "https://remote.example/notes/8",
			"type": "Note",
			"content": "hi",
			"inReplyTo": "https://local.example/notes/3"
		}
	}`)

	activity, err := ParseActivity(raw)
	require.NoError(t, err)

	out, err := activity.Object.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "https://remote.example/notes/8",
		"type": "Note",
		"content": "hi",
		"inReplyTo": "https://local.example/notes/3"
	}`, string(out))
}
