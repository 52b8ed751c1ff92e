package realtime

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		want    string
		wantErr error
	}{
		{"valid message", `{"message":"hello"}`, "hello", nil},
		{"extra fields ignored", `{"message":"hi","to":"everyone"}`, "hi", nil},
		{"empty message", `{"message":""}`, "", nil},
		{"multibyte within limit", `{"message":"` + strings.Repeat("é", 10) + `"}`, strings.Repeat("é", 10), nil},
		{"not json", `hello`, "", ErrMalformedFrame},
		{"truncated json", `{"message":`, "", ErrMalformedFrame},
		{"array top level", `["message"]`, "", ErrMalformedFrame},
		{"string top level", `"message"`, "", ErrMalformedFrame},
		{"null top level", `null`, "", ErrMalformedFrame},
		{"missing message field", `{"msg":"hello"}`, "", ErrInvalidShape},
		{"numeric message", `{"message":42}`, "", ErrInvalidShape},
		{"null message", `{"message":null}`, "", ErrInvalidShape},
		{"object message", `{"message":{"text":"hi"}}`, "", ErrInvalidShape},
		{"too long", `{"message":"` + strings.Repeat("a", 11) + `"}`, "", ErrMessageTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFrame([]byte(tt.frame), 10)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFrameWithoutLimit(t *testing.T) {
	text, err := ParseFrame([]byte(`{"message":"`+strings.Repeat("a", 5000)+`"}`), 0)
	require.NoError(t, err)
	assert.Len(t, text, 5000)
}

func TestProtocolErrorText(t *testing.T) {
	assert.Equal(t, "invalid format", ErrMalformedFrame.Error())
	assert.Equal(t, "invalid message format", ErrInvalidShape.Error())
	assert.Equal(t, "message too long", ErrMessageTooLong.Error())
}

func decodeFields(t *testing.T, env Envelope) map[string]any {
	t.Helper()
	raw, err := Encode(env)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	return fields
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestEnvelopeWireShape(t *testing.T) {
	alice := testUser("alice")

	t.Run("welcome", func(t *testing.T) {
		fields := decodeFields(t, Welcome(alice, []ActiveUser{{ID: alice.ID, Name: alice.Name, Email: alice.Email}}))
		assert.ElementsMatch(t, []string{"type", "message", "active_users", "user_count", "timestamp"}, keys(fields))
		assert.Equal(t, "welcome", fields["type"])
		assert.Equal(t, "Welcome alice! You are now connected.", fields["message"])
		assert.EqualValues(t, 1, fields["user_count"])

		users := fields["active_users"].([]any)
		require.Len(t, users, 1)
		first := users[0].(map[string]any)
		assert.Equal(t, alice.ID.String(), first["id"])
		assert.Equal(t, "alice@example.com", first["email"])
	})

	t.Run("welcome with nil roster encodes empty list", func(t *testing.T) {
		fields := decodeFields(t, Welcome(alice, nil))
		assert.Equal(t, []any{}, fields["active_users"])
	})

	t.Run("status change", func(t *testing.T) {
		fields := decodeFields(t, StatusChange(alice, PresenceLeft))
		assert.ElementsMatch(t, []string{"type", "user_id", "user_name", "status", "timestamp"}, keys(fields))
		assert.Equal(t, "user_status", fields["type"])
		assert.Equal(t, "left", fields["status"])
		assert.Equal(t, alice.ID.String(), fields["user_id"])
	})

	t.Run("chat message keeps empty body", func(t *testing.T) {
		fields := decodeFields(t, ChatMessage(alice, ""))
		assert.ElementsMatch(t, []string{"type", "user_id", "user_name", "message", "timestamp"}, keys(fields))
		assert.Equal(t, "", fields["message"])
	})

	t.Run("error", func(t *testing.T) {
		fields := decodeFields(t, ErrorEnvelope("invalid format"))
		assert.Equal(t, map[string]any{"type": "error", "message": "invalid format"}, fields)
	})

	t.Run("delivery ack", func(t *testing.T) {
		fields := decodeFields(t, DeliveryAck())
		assert.ElementsMatch(t, []string{"type", "message", "timestamp"}, keys(fields))
		assert.Equal(t, "message_sent", fields["type"])
		assert.Equal(t, DeliveryAckText, fields["message"])
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := Encode(Envelope{Kind: "bogus"})
		assert.Error(t, err)
	})
}
