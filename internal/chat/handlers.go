package chat

import (
	"context"
	"encoding/json"

	"github.com/lordninja097-ops/journey-plus-one/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, hub *stream.Hub, authMiddleware fiber.Handler) {
	r.Post("/rooms", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			TripID        string `json:"trip_id"`
			UserID        string `json:"user_id"`
			UserName      string `json:"user_name"`
			TripOwnerID   string `json:"trip_owner_id"`
			TripOwnerName string `json:"trip_owner_name"`
		}
		if err := c.BodyParser(&body); err != nil || body.TripID == "" || body.UserID == "" || body.TripOwnerID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "trip_id, user_id and trip_owner_id required")
		}
		id, err := svc.CreateOrGetChatRoom(c.Context(), body.TripID, body.UserID, body.UserName, body.TripOwnerID, body.TripOwnerName)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"id": id})
	})

	r.Get("/rooms/user/:userID", func(c *fiber.Ctx) error {
		rooms, err := svc.GetChatRooms(c.Context(), c.Params("userID"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(rooms)
	})

	r.Get("/rooms/:id/messages", func(c *fiber.Ctx) error {
		messages, err := svc.GetMessages(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(messages)
	})

	r.Post("/rooms/:id/messages", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			SenderID   string `json:"sender_id"`
			SenderName string `json:"sender_name"`
			ReceiverID string `json:"receiver_id"`
			Text       string `json:"text"`
		}
		if err := c.BodyParser(&body); err != nil || body.SenderID == "" || body.Text == "" {
			return fiber.NewError(fiber.StatusBadRequest, "sender_id and text required")
		}
		msg, err := svc.SendMessage(c.Context(), c.Params("id"), body.SenderID, body.SenderName, body.ReceiverID, body.Text)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(msg)
	})

	// Each websocket frame carries the room's full ordered message list.
	r.Get("/ws/:roomID", websocket.New(func(c *websocket.Conn) {
		roomID := c.Params("roomID")

		if snapshot, err := svc.GetMessages(context.Background(), roomID); err == nil {
			if payload, err := json.Marshal(snapshot); err == nil {
				if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
					return
				}
			}
		}

		client := hub.Register(roomID)

		done := make(chan struct{})
		go func() {
			for msg := range client.Send {
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					break
				}
			}
			close(done)
		}()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
		hub.Unregister(client)
		<-done
	}))
}
