package platform

import (
	"encoding/json"
	"log"

	"matchday/internal/middleware"
	"matchday/internal/realtime"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RealtimeUpgrade gates the realtime endpoint to websocket upgrade requests
// and resolves the optional bearer token.
func (s *Server) RealtimeUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return middleware.WebSocketOptionalAuth(c)
}

// RealtimeHandler handles websocket connections for collection change
// subscriptions.
func (s *Server) RealtimeHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userID").(string)

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			log.Printf("realtime: register failed (user %q): %v", userID, err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","message":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		client.IncomingHandler = func(c *Client, message []byte) {
			var frame realtime.ClientFrame
			if err := json.Unmarshal(message, &frame); err != nil {
				sendErrorFrame(c, "", "invalid frame")
				return
			}

			switch frame.Action {
			case realtime.ActionSubscribe:
				if err := s.hub.Subscribe(c, frame); err != nil {
					sendErrorFrame(c, frame.ID, err.Error())
					return
				}
				ack := realtime.ServerFrame{
					Type:       realtime.FrameSubscribed,
					ID:         frame.ID,
					Collection: frame.Collection,
				}
				if payload, err := json.Marshal(ack); err == nil {
					c.TrySend(payload)
				}

			case realtime.ActionUnsubscribe:
				s.hub.Unsubscribe(c, frame.ID)

			default:
				sendErrorFrame(c, frame.ID, "unknown action")
			}
		}

		go client.WritePump()
		client.ReadPump()
	})
}

func sendErrorFrame(c *Client, id, message string) {
	frame := realtime.ServerFrame{
		Type:    realtime.FrameError,
		ID:      id,
		Message: message,
	}
	if payload, err := json.Marshal(frame); err == nil {
		c.TrySend(payload)
	}
}
