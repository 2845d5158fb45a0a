package domain

import "strconv"

// MessageEvent is one chat-room message as delivered by the chat-side bridge.
// Timestamp is origin server time in milliseconds.
type MessageEvent struct {
	EventID       string `json:"event_id"`
	RoomID        string `json:"room_id"`
	Sender        string `json:"sender"`
	Timestamp     int64  `json:"timestamp"`
	MessageType   string `json:"message_type"`
	Body          string `json:"body"`
	FormattedBody string `json:"formatted_body,omitempty"`
	Format        string `json:"format,omitempty"`
}

// Attribute returns the string form of a named template attribute.
// Unknown names yield ("", false); templates render those as empty strings.
func (e MessageEvent) Attribute(name string) (string, bool) {
	switch name {
	case "event_id":
		return e.EventID, true
	case "room_id":
		return e.RoomID, true
	case "sender":
		return e.Sender, true
	case "timestamp":
		return strconv.FormatInt(e.Timestamp, 10), true
	case "message_type":
		return e.MessageType, true
	case "body":
		return e.Body, true
	case "formatted_body":
		return e.FormattedBody, true
	case "format":
		return e.Format, true
	default:
		return "", false
	}
}

// TombstoneEvent announces a room upgrade: registrations pointing at the old
// room must follow to the replacement room.
type TombstoneEvent struct {
	OldRoomID string `json:"old_room_id"`
	NewRoomID string `json:"new_room_id"`
}
