package chat

import "time"

// ChatRoom holds a two-person conversation about one trip. The last
// message text and time are copied onto the room for list display and
// may lag the message log.
type ChatRoom struct {
	ID               string            `json:"id"`
	TripID           string            `json:"trip_id"`
	Participants     []string          `json:"participants"`
	ParticipantNames map[string]string `json:"participant_names"`
	LastMessage      string            `json:"last_message,omitempty"`
	LastMessageTime  time.Time         `json:"last_message_time,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

type Message struct {
	ID         string    `json:"id"`
	ChatRoomID string    `json:"chat_room_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	ReceiverID string    `json:"receiver_id"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	Read       bool      `json:"read"`
}
