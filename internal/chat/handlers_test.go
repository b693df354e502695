package chat

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lordninja097-ops/journey-plus-one/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

func passthrough(c *fiber.Ctx) error { return c.Next() }

func newChatApp(mock pgxmock.PgxPoolIface, hub *stream.Hub) *fiber.App {
	app := fiber.New()
	RegisterRoutes(app.Group("/chat"), NewService(mock, hub), hub, passthrough)
	return app
}

func TestChatHandlersCreateRoom(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id FROM chat_rooms`).
		WithArgs("trip-1", "user-1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO chat_rooms`).
		WithArgs(pgxmock.AnyArg(), "trip-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	app := newChatApp(mock, nil)

	body, _ := json.Marshal(map[string]string{
		"trip_id":         "trip-1",
		"user_id":         "user-1",
		"user_name":       "Alice",
		"trip_owner_id":   "owner-1",
		"trip_owner_name": "Bob",
	})
	req := httptest.NewRequest(http.MethodPost, "/chat/rooms", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("create room status: %v", err)
	}

	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out["id"] == "" {
		t.Fatalf("expected room id in response")
	}
}

func TestChatHandlersCreateRoomBadRequest(t *testing.T) {
	app := newChatApp(nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/chat/rooms", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request")
	}
}

func TestChatHandlersCreateRoomError(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id FROM chat_rooms`).
		WithArgs("trip-1", "user-1").
		WillReturnError(errQuery)

	app := newChatApp(mock, nil)

	body, _ := json.Marshal(map[string]string{
		"trip_id":       "trip-1",
		"user_id":       "user-1",
		"trip_owner_id": "owner-1",
	})
	req := httptest.NewRequest(http.MethodPost, "/chat/rooms", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected error status")
	}
}

func TestChatHandlersRoomsByUser(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	lastAt := time.Now()
	rows := pgxmock.NewRows([]string{"id", "trip_id", "participants", "participant_names", "last_message", "last_message_time", "created_at"})
	rows.AddRow("room-1", "trip-1", []string{"user-1", "owner-1"}, map[string]string{"user-1": "Alice", "owner-1": "Bob"}, "hey", &lastAt, lastAt.Add(-time.Hour))

	mock.ExpectQuery(`FROM chat_rooms WHERE \$1 = ANY\(participants\)`).
		WithArgs("user-1").
		WillReturnRows(rows)

	app := newChatApp(mock, nil)

	req := httptest.NewRequest(http.MethodGet, "/chat/rooms/user/user-1", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("rooms status: %v", err)
	}

	var rooms []ChatRoom
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		t.Fatalf("decode rooms: %v", err)
	}
	if len(rooms) != 1 || rooms[0].LastMessage != "hey" {
		t.Fatalf("unexpected rooms body")
	}
}

func TestChatHandlersMessages(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	sentAt := time.Now()
	rows := pgxmock.NewRows(messageColumns)
	rows.AddRow("msg-1", "room-1", "user-1", "Alice", "owner-1", "hello", sentAt, false)
	mock.ExpectQuery(`FROM messages WHERE chat_room_id=\$1`).
		WithArgs("room-1").
		WillReturnRows(rows)

	mock.ExpectQuery(`INSERT INTO messages`).
		WithArgs(pgxmock.AnyArg(), "room-1", "user-1", "Alice", "owner-1", "see you", false).
		WillReturnRows(pgxmock.NewRows([]string{"timestamp"}).AddRow(sentAt))
	mock.ExpectExec(`UPDATE chat_rooms`).
		WithArgs("room-1", "see you", sentAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	app := newChatApp(mock, nil)

	req := httptest.NewRequest(http.MethodGet, "/chat/rooms/room-1/messages", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("get messages status: %v", err)
	}

	body, _ := json.Marshal(map[string]string{
		"sender_id":   "user-1",
		"sender_name": "Alice",
		"receiver_id": "owner-1",
		"text":        "see you",
	})
	req = httptest.NewRequest(http.MethodPost, "/chat/rooms/room-1/messages", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("send message status: %v", err)
	}
}

func TestChatHandlersSendBadRequest(t *testing.T) {
	app := newChatApp(nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/chat/rooms/room-1/messages", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request")
	}
}

func TestChatHandlersWebsocketSnapshots(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`FROM messages WHERE chat_room_id=\$1`).
		WithArgs("room-1").
		WillReturnRows(pgxmock.NewRows(messageColumns))

	hub := stream.NewHub(nil)
	app := newChatApp(mock, hub)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	defer ln.Close()

	go func() {
		_ = app.Listener(ln)
	}()
	defer func() { _ = app.Shutdown() }()

	wsURL := "ws://" + ln.Addr().String() + "/chat/ws/room-1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()

	// first frame is the current (empty) message list
	_, first, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read initial frame: %v", err)
	}
	var initial []Message
	if err := json.Unmarshal(first, &initial); err != nil {
		t.Fatalf("decode initial frame: %v", err)
	}
	if len(initial) != 0 {
		t.Fatalf("expected empty initial snapshot")
	}

	time.Sleep(20 * time.Millisecond)
	payload, _ := json.Marshal([]Message{{ID: "msg-1", ChatRoomID: "room-1", Text: "hello"}})
	hub.Broadcast("room-1", payload)

	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read broadcast frame: %v", err)
	}
	var messages []Message
	if err := json.Unmarshal(frame, &messages); err != nil {
		t.Fatalf("decode broadcast frame: %v", err)
	}
	if len(messages) != 1 || messages[0].Text != "hello" {
		t.Fatalf("unexpected frame")
	}
}

func TestChatHandlersWebsocketUpgradeRequired(t *testing.T) {
	app := newChatApp(nil, stream.NewHub(nil))

	req := httptest.NewRequest(http.MethodGet, "/chat/ws/room-1", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if resp.StatusCode == http.StatusOK {
		t.Fatalf("expected non-200 for non-websocket request")
	}
}
