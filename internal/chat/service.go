package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/lordninja097-ops/journey-plus-one/internal/db"
	"github.com/lordninja097-ops/journey-plus-one/internal/stream"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Service struct {
	db  db.Querier
	hub *stream.Hub
}

func NewService(db db.Querier, hub *stream.Hub) *Service {
	return &Service{db: db, hub: hub}
}

// CreateOrGetChatRoom returns the id of the room for the given trip that
// already contains userID, creating one with both participants otherwise.
// Deduplication is find-before-create: two concurrent first calls can
// still produce two rooms for the same pair.
func (s *Service) CreateOrGetChatRoom(ctx context.Context, tripID, userID, userName, tripOwnerID, tripOwnerName string) (string, error) {
	var existing string
	err := s.db.QueryRow(ctx, `
		SELECT id FROM chat_rooms
		WHERE trip_id=$1 AND $2 = ANY(participants)
		LIMIT 1
	`, tripID, userID).Scan(&existing)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	room := ChatRoom{
		ID:           uuid.NewString(),
		TripID:       tripID,
		Participants: []string{userID, tripOwnerID},
		ParticipantNames: map[string]string{
			userID:      userName,
			tripOwnerID: tripOwnerName,
		},
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO chat_rooms (id, trip_id, participants, participant_names)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at
	`, room.ID, room.TripID, room.Participants, room.ParticipantNames)
	if err := row.Scan(&room.CreatedAt); err != nil {
		return "", err
	}
	return room.ID, nil
}

// SendMessage appends to the room's log, then refreshes the room's
// denormalized preview in a second statement. The two writes are not
// atomic; the log stays the source of truth.
func (s *Service) SendMessage(ctx context.Context, roomID, senderID, senderName, receiverID, text string) (Message, error) {
	msg := Message{
		ID:         uuid.NewString(),
		ChatRoomID: roomID,
		SenderID:   senderID,
		SenderName: senderName,
		ReceiverID: receiverID,
		Text:       text,
		Read:       false,
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO messages (id, chat_room_id, sender_id, sender_name, receiver_id, text, read)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING timestamp
	`, msg.ID, msg.ChatRoomID, msg.SenderID, msg.SenderName, msg.ReceiverID, msg.Text, msg.Read)
	if err := row.Scan(&msg.Timestamp); err != nil {
		return Message{}, err
	}

	_, err := s.db.Exec(ctx, `
		UPDATE chat_rooms
		SET last_message=$2, last_message_time=$3
		WHERE id=$1
	`, roomID, msg.Text, msg.Timestamp)
	if err != nil {
		return Message{}, err
	}

	s.broadcastSnapshot(ctx, roomID)
	return msg, nil
}

func (s *Service) broadcastSnapshot(ctx context.Context, roomID string) {
	if s.hub == nil {
		return
	}
	messages, err := s.GetMessages(ctx, roomID)
	if err != nil {
		log.Printf("chat snapshot load error: %v", err)
		return
	}
	payload, err := json.Marshal(messages)
	if err != nil {
		log.Printf("chat snapshot marshal error: %v", err)
		return
	}
	s.hub.Broadcast(roomID, payload)
}

func (s *Service) GetMessages(ctx context.Context, roomID string) ([]Message, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, chat_room_id, sender_id, sender_name, receiver_id, text, timestamp, read
		FROM messages WHERE chat_room_id=$1
		ORDER BY timestamp ASC
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ChatRoomID, &m.SenderID, &m.SenderName, &m.ReceiverID, &m.Text, &m.Timestamp, &m.Read); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// SubscribeToMessages delivers the room's current full message list,
// then the full replacement list after every change. The returned
// cancel function stops delivery and is safe to call more than once;
// a canceled subscription cannot be restarted.
func (s *Service) SubscribeToMessages(ctx context.Context, roomID string, fn func([]Message)) (func(), error) {
	initial, err := s.GetMessages(ctx, roomID)
	if err != nil {
		return nil, err
	}
	fn(initial)

	client := s.hub.Register(roomID)
	go func() {
		for payload := range client.Send {
			var messages []Message
			if err := json.Unmarshal(payload, &messages); err != nil {
				log.Printf("chat snapshot decode error: %v", err)
				continue
			}
			fn(messages)
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.hub.Unregister(client)
		})
	}
	return cancel, nil
}

func (s *Service) GetChatRooms(ctx context.Context, userID string) ([]ChatRoom, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, trip_id, participants, participant_names, COALESCE(last_message,''), last_message_time, created_at
		FROM chat_rooms WHERE $1 = ANY(participants)
		ORDER BY last_message_time DESC NULLS LAST
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chatRooms []ChatRoom
	for rows.Next() {
		var room ChatRoom
		var lastMessageTime *time.Time
		if err := rows.Scan(&room.ID, &room.TripID, &room.Participants, &room.ParticipantNames, &room.LastMessage, &lastMessageTime, &room.CreatedAt); err != nil {
			return nil, err
		}
		if lastMessageTime != nil {
			room.LastMessageTime = *lastMessageTime
		}
		chatRooms = append(chatRooms, room)
	}
	return chatRooms, nil
}
