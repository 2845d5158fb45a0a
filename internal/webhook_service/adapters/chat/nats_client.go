package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hookroom/webhook-gateway/internal/platform/messagebroker"
)

// OutboundMessage is the wire form of a chat send handed to the bridge.
type OutboundMessage struct {
	RoomID        string `json:"room_id"`
	Body          string `json:"body"`
	FormattedBody string `json:"formatted_body,omitempty"`
}

type natsChatClient struct {
	nats    messagebroker.NATSClient
	subject string
	logger  *slog.Logger
}

// NewNATSClient returns a Client that publishes sends on the given NATS
// subject for the chat-side bridge to pick up.
func NewNATSClient(nats messagebroker.NATSClient, subject string, logger *slog.Logger) Client {
	return &natsChatClient{
		nats:    nats,
		subject: subject,
		logger:  logger.With("component", "chat_client"),
	}
}

func (c *natsChatClient) SendMessage(ctx context.Context, roomID, plainText, htmlText string) error {
	msg := OutboundMessage{RoomID: roomID, Body: plainText, FormattedBody: htmlText}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal outbound chat message: %w", err)
	}
	if err := c.nats.Publish(ctx, c.subject, data); err != nil {
		return fmt.Errorf("failed to publish chat message for room %s: %w", roomID, err)
	}
	c.logger.DebugContext(ctx, "Chat message published", "room_id", roomID, "subject", c.subject)
	return nil
}
