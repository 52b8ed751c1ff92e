package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/phrazzld/taskpulse/internal/domain"
)

// Kind is the wire "type" of an outbound envelope.
type Kind string

const (
	KindWelcome      Kind = "welcome"
	KindStatusChange Kind = "user_status"
	KindChatMessage  Kind = "message"
	KindError        Kind = "error"
	KindDeliveryAck  Kind = "message_sent"
)

// Presence is the status carried by a status-change envelope.
type Presence string

const (
	PresenceJoined Presence = "joined"
	PresenceLeft   Presence = "left"
)

// DeliveryAckText is the body of every delivery acknowledgement.
const DeliveryAckText = "Message broadcasted successfully"

// ActiveUser is the public projection of a connected user.
type ActiveUser struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// Envelope is an outbound message. Which fields are serialized depends on Kind.
type Envelope struct {
	Kind        Kind
	Message     string
	UserID      uuid.UUID
	UserName    string
	Status      Presence
	ActiveUsers []ActiveUser
	UserCount   int
	Timestamp   time.Time
}

// Welcome greets a newly connected user with the current roster.
func Welcome(user domain.User, active []ActiveUser) Envelope {
	return Envelope{
		Kind:        KindWelcome,
		Message:     fmt.Sprintf("Welcome %s! You are now connected.", user.Name),
		ActiveUsers: active,
		UserCount:   len(active),
		Timestamp:   time.Now().UTC(),
	}
}

// StatusChange announces that user joined or left.
func StatusChange(user domain.User, status Presence) Envelope {
	return Envelope{
		Kind:      KindStatusChange,
		UserID:    user.ID,
		UserName:  user.Name,
		Status:    status,
		Timestamp: time.Now().UTC(),
	}
}

// ChatMessage carries text sent by user to everyone else.
func ChatMessage(user domain.User, text string) Envelope {
	return Envelope{
		Kind:      KindChatMessage,
		UserID:    user.ID,
		UserName:  user.Name,
		Message:   text,
		Timestamp: time.Now().UTC(),
	}
}

// ErrorEnvelope reports a problem with the client's last frame.
func ErrorEnvelope(message string) Envelope {
	return Envelope{Kind: KindError, Message: message}
}

// DeliveryAck confirms to the sender that its message was broadcast.
// It does not reflect per-peer delivery success.
func DeliveryAck() Envelope {
	return Envelope{
		Kind:      KindDeliveryAck,
		Message:   DeliveryAckText,
		Timestamp: time.Now().UTC(),
	}
}

type welcomeWire struct {
	Type        Kind         `json:"type"`
	Message     string       `json:"message"`
	ActiveUsers []ActiveUser `json:"active_users"`
	UserCount   int          `json:"user_count"`
	Timestamp   time.Time    `json:"timestamp"`
}

type statusWire struct {
	Type      Kind      `json:"type"`
	UserID    uuid.UUID `json:"user_id"`
	UserName  string    `json:"user_name"`
	Status    Presence  `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type chatWire struct {
	Type      Kind      `json:"type"`
	UserID    uuid.UUID `json:"user_id"`
	UserName  string    `json:"user_name"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type errorWire struct {
	Type    Kind   `json:"type"`
	Message string `json:"message"`
}

type ackWire struct {
	Type      Kind      `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// MarshalJSON encodes the envelope with exactly the fields of its kind.
func (e Envelope) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case KindWelcome:
		active := e.ActiveUsers
		if active == nil {
			active = []ActiveUser{}
		}
		return json.Marshal(welcomeWire{e.Kind, e.Message, active, e.UserCount, e.Timestamp})
	case KindStatusChange:
		return json.Marshal(statusWire{e.Kind, e.UserID, e.UserName, e.Status, e.Timestamp})
	case KindChatMessage:
		return json.Marshal(chatWire{e.Kind, e.UserID, e.UserName, e.Message, e.Timestamp})
	case KindError:
		return json.Marshal(errorWire{e.Kind, e.Message})
	case KindDeliveryAck:
		return json.Marshal(ackWire{e.Kind, e.Message, e.Timestamp})
	default:
		return nil, fmt.Errorf("unknown envelope kind %q", e.Kind)
	}
}

// Encode serializes an envelope into a text frame payload.
func Encode(e Envelope) ([]byte, error) {
	return json.Marshal(e)
}

var frameValidator = validator.New()

// ParseFrame decodes an inbound frame and returns its message text.
// It fails with ErrMalformedFrame, ErrInvalidShape or ErrMessageTooLong.
// maxLength counts characters, not bytes; zero disables the check.
func ParseFrame(data []byte, maxLength int) (string, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return "", ErrMalformedFrame
	}

	raw, ok := obj["message"]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", ErrInvalidShape
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", ErrInvalidShape
	}

	if maxLength > 0 {
		if err := frameValidator.Var(text, fmt.Sprintf("max=%d", maxLength)); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				return "", ErrMessageTooLong
			}
			return "", fmt.Errorf("validate message length: %w", err)
		}
	}

	return text, nil
}
