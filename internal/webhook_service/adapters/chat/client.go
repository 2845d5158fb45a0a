package chat

import "context"

// Client is the chat-protocol collaborator. The webhook engine only sends;
// room membership and protocol details live in the external bridge process.
// htmlText may be empty for plain-text-only messages.
type Client interface {
	SendMessage(ctx context.Context, roomID, plainText, htmlText string) error
}
