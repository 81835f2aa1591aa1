package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"quiz-progress-service/internal/app"
	"quiz-progress-service/internal/auth"
	"quiz-progress-service/internal/logging"
)

// WSHandler streams the caller's progress notifications over a websocket and
// accepts award/reset commands on the same connection.
type WSHandler struct {
	progress *app.ProgressRegistry
	upgrader websocket.Upgrader
}

func NewWSHandler(progress *app.ProgressRegistry) *WSHandler {
	return &WSHandler{
		progress: progress,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type awardPayload struct {
	Points int `json:"points"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}

// ServeWS sends a snapshot, then one "progress" message per store
// notification. The socket is closed when the user's store is disposed.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	logger := logging.FromContext(r.Context()).With("userId", user.UserID)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	store := h.progress.Get(ctx, user.UserID)
	updates, cancel := store.Subscribe()
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
				logger.Debug("ws write error", "error", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					// Store disposed; unblock the reader so the handler exits.
					_ = conn.Close()
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "progress", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	push := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	push(outboundMessage[any]{Type: "snapshot", Payload: store.Snapshot(ctx)})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "award":
			var payload awardPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Points < 0 {
				push(errorMessage("invalid award payload"))
				continue
			}
			// The resulting update arrives through the subscription.
			if _, err := h.progress.Award(ctx, user.UserID, payload.Points); err != nil {
				push(errorMessage(err.Error()))
			}
		case "reset":
			if err := h.progress.Reset(ctx, user.UserID); err != nil {
				push(errorMessage(err.Error()))
			}
		default:
			push(errorMessage("unsupported message type"))
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
