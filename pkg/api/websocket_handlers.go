package api

import (
	"errors"
	"syscall"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/open-teleop/legged-teleop/domain/teleop"
	customlog "github.com/open-teleop/legged-teleop/pkg/log"
	"github.com/open-teleop/legged-teleop/pkg/processing"
)

// InputSink accepts operator samples from the WebSocket. Push reports false
// when an older buffered sample was discarded.
type InputSink interface {
	Push(sample teleop.RawInputSample) bool
}

// RegisterInputRoutes registers the operator input WebSocket at /ws/input.
func RegisterInputRoutes(app *fiber.App, sink InputSink, logger customlog.Logger) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/input", websocket.New(func(conn *websocket.Conn) {
		InputWebSocketHandler(conn, sink, logger)
	}))

	logger.Infof("Registered operator input WebSocket at /ws/input")
}

// InputWebSocketHandler reads JSON channel maps from conn and pushes them into
// sink. Undecodable messages are answered with a rejection and skipped.
func InputWebSocketHandler(conn *websocket.Conn, sink InputSink, logger customlog.Logger) {
	session := uuid.NewString()
	log := logger.WithFields(map[string]interface{}{
		"session": session,
		"remote":  conn.RemoteAddr().String(),
	})
	log.Infof("Input WebSocket connected")

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Errorf("Input WS read error: %v", err)
			} else if !errors.Is(err, websocket.ErrCloseSent) && !errors.Is(err, syscall.EPIPE) && !errors.Is(err, syscall.ECONNRESET) {
				log.Infof("Input WS connection closed: %v", err)
			}
			break
		}

		if mt != websocket.TextMessage {
			log.Debugf("Ignoring non-text input WS message type: %d", mt)
			continue
		}

		sample, err := processing.DecodeInputJSON(msg)
		if err != nil {
			log.Warnf("Rejected input sample: %v", err)
			reply(conn, log, InputReply{Session: session, Status: InputStatusRejected, Error: err.Error()})
			continue
		}

		if !sink.Push(sample) {
			reply(conn, log, InputReply{Session: session, Status: InputStatusDropped})
		}
	}
	log.Infof("Input WebSocket disconnected")
}

func reply(conn *websocket.Conn, log customlog.Logger, r InputReply) {
	if err := conn.WriteJSON(r); err != nil {
		log.Debugf("Failed to write input WS reply: %v", err)
	}
}
