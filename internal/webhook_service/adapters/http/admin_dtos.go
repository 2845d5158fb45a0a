package http

import (
	"encoding/json"
	"time"

	"github.com/hookroom/webhook-gateway/internal/webhook_service/domain"
)

// RegisterWebhookRequest registers (or re-enables) an outgoing webhook.
type RegisterWebhookRequest struct {
	URL string `json:"url" validate:"required"`
	// Template optionally overrides the global payload template for this
	// registration. Must be a JSON object.
	Template json.RawMessage `json:"template,omitempty"`
}

// OutgoingWebhookResponse is the admin API view of an outgoing registration.
type OutgoingWebhookResponse struct {
	ID        int64           `json:"id"`
	RoomID    string          `json:"room_id"`
	UserID    string          `json:"user_id"`
	URL       string          `json:"url"`
	Enabled   bool            `json:"enabled"`
	Template  json.RawMessage `json:"template,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func toOutgoingResponse(reg *domain.OutgoingRegistration) OutgoingWebhookResponse {
	resp := OutgoingWebhookResponse{
		ID:        reg.ID,
		RoomID:    reg.RoomID,
		UserID:    reg.UserID,
		URL:       reg.WebhookURL,
		Enabled:   reg.Enabled,
		CreatedAt: reg.CreatedAt,
	}
	if reg.Template != nil {
		resp.Template = json.RawMessage(*reg.Template)
	}
	return resp
}

// IncomingWebhookResponse is returned on incoming webhook creation. APIKey
// is present exactly once, at creation; it is not recoverable afterwards.
type IncomingWebhookResponse struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	APIKey    string    `json:"api_key,omitempty"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

// MutationResponse reports how many registrations an operation touched.
type MutationResponse struct {
	Affected int `json:"affected"`
}
