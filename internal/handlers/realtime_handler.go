package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/middleware"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/realtime"
)

type RealtimeHandler struct {
	Hub *realtime.Hub
	Log *slog.Logger
}

func NewRealtimeHandler(hub *realtime.Hub, log *slog.Logger) *RealtimeHandler {
	return &RealtimeHandler{Hub: hub, Log: log}
}

// Upgrade rejects plain HTTP requests to the websocket route.
func (h *RealtimeHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// Stream pushes job request, payment and rating events for the
// authenticated client until the socket closes.
func (h *RealtimeHandler) Stream(c *websocket.Conn) {
	clientID, _ := c.Locals(middleware.LocalClientID).(uuid.UUID)
	if clientID == uuid.Nil {
		_ = c.Close()
		return
	}

	sub := realtime.NewSubscriber(clientID)
	h.Hub.Register(sub)
	h.Log.Info("websocket connected", "client_id", clientID, "subscriber", sub.ID)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case msg, open := <-sub.Send:
				if !open {
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					h.Log.Warn("websocket write failed", "client_id", clientID, "err", err)
					return
				}
			case <-stop:
				return
			}
		}
	}()

	// reads only keep the connection alive and notice when it closes
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}

	close(stop)
	h.Hub.Unregister(sub)
	<-done
	h.Log.Info("websocket disconnected", "client_id", clientID, "subscriber", sub.ID)
}
