package domain

import (
	"time"

	"github.com/google/uuid"
)

// OutgoingRegistration forwards room messages to an external URL.
// (RoomID, UserID, WebhookURL) is unique: re-registering an existing URL
// re-enables the row instead of creating a duplicate.
type OutgoingRegistration struct {
	ID         int64
	RoomID     string
	UserID     string
	WebhookURL string
	Enabled    bool
	// Template holds a per-registration payload template as JSON text.
	// Nil means the global default template applies.
	Template  *string
	CreatedAt time.Time
}

// IncomingRegistration lets an external caller post into a room through an
// authenticated endpoint. The API key is stored only as a SHA3-256 hex hash;
// the plaintext key is returned exactly once at creation time.
type IncomingRegistration struct {
	ID         uuid.UUID
	RoomID     string
	UserID     string
	APIKeyHash string
	Enabled    bool
	CreatedAt  time.Time
	LastUsedAt *time.Time
}
