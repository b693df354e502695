package stream

import (
	"context"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Hub fans message-list snapshots out to every subscriber of a chat room.
// With a redis client attached, snapshots also cross process boundaries.
type Hub struct {
	redis   *redis.Client
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	RoomID string
	Send   chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:   redisClient,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

func (h *Hub) Register(roomID string) *Client {
	client := &Client{
		RoomID: roomID,
		Send:   make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[roomID] == nil {
		h.clients[roomID] = map[*Client]struct{}{}
	}
	h.clients[roomID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if roomClients, ok := h.clients[client.RoomID]; ok {
		delete(roomClients, client)
		if len(roomClients) == 0 {
			delete(h.clients, client.RoomID)
		}
	}
	close(client.Send)
}

func (h *Hub) Broadcast(roomID string, payload []byte) {
	h.fanOut(roomID, payload)

	if h.redis != nil {
		err := h.redis.Publish(context.Background(), redisChannel(roomID), payload).Err()
		if err != nil {
			log.Printf("redis publish error: %v", err)
		}
	}
}

func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	pubsub := h.redis.PSubscribe(ctx, "chat:*:messages")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		h.fanOut(roomIDFromChannel(msg.Channel), []byte(msg.Payload))
	}
}

// fanOut holds the read lock for the whole loop so Unregister cannot
// close a Send channel mid-iteration. Sends are non-blocking, so the
// lock is never held across a slow receiver.
func (h *Hub) fanOut(roomID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[roomID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func redisChannel(roomID string) string {
	return "chat:" + roomID + ":messages"
}

func roomIDFromChannel(ch string) string {
	// chat:{room}:messages
	const prefix = "chat:"
	const suffix = ":messages"
	if len(ch) <= len(prefix)+len(suffix) {
		return ""
	}
	return ch[len(prefix) : len(ch)-len(suffix)]
}
