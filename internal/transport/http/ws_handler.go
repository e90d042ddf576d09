package http

import (
	"context"
	"log/slog"
	"net/http"

	"ecoquest-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
)

// ChangeSource is what the websocket feed reads from.
type ChangeSource interface {
	Quizzes(ctx context.Context) []domain.Quiz
	Subscribe() (<-chan domain.QuizzesUpdated, func())
}

type WSHandler struct {
	source   ChangeSource
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(source ChangeSource, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		source: source,
		log:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type string `json:"type"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type messagePayload struct {
	Message string `json:"message"`
}

// ServeWS streams quiz collection snapshots: one "quizzes.snapshot" on connect and a
// "quizzes.updated" after every change. Clients may send {"type":"ping"}.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.source.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only the writer goroutine touches conn for writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", "error", err)
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "quizzes.snapshot", Payload: domain.QuizzesUpdated{
		Quizzes: h.source.Quizzes(r.Context()),
	}}

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "quizzes.updated", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		var reply outboundMessage[any]
		switch inbound.Type {
		case "ping":
			reply = outboundMessage[any]{Type: "pong", Payload: messagePayload{Message: "pong"}}
		default:
			reply = outboundMessage[any]{Type: "error", Payload: messagePayload{Message: "unsupported message type"}}
		}
		select {
		case send <- reply:
		case <-writerDone:
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
