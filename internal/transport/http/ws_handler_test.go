package http

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialProgress(t *testing.T, env *testEnv, userID string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/progress"
	header := http.Header{}
	header.Set("Authorization", "Bearer "+userID)
	conn, _, err := websocket.DefaultDialer.Dial(u, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketProgressFlow(t *testing.T) {
	env := newTestEnv(t)
	conn := dialProgress(t, env, "u1")

	_, payload := readNext(conn, t, "snapshot")
	if payload["experiencePoints"].(float64) != 0 {
		t.Fatalf("expected empty snapshot, got %v", payload)
	}

	if err := conn.WriteJSON(map[string]any{"type": "award", "payload": map[string]any{"points": 60}}); err != nil {
		t.Fatalf("write award: %v", err)
	}
	_, payload = readNext(conn, t, "progress")
	if payload["experiencePoints"].(float64) != 60 {
		t.Fatalf("expected 60 xp, got %v", payload["experiencePoints"])
	}
	newBadges, _ := payload["newBadges"].([]any)
	if len(newBadges) != 1 {
		t.Fatalf("expected rookie badge, got %v", payload["newBadges"])
	}

	if err := conn.WriteJSON(map[string]any{"type": "reset"}); err != nil {
		t.Fatalf("write reset: %v", err)
	}
	_, payload = readNext(conn, t, "progress")
	if payload["reset"] != true {
		t.Fatalf("expected reset notification, got %v", payload)
	}
}

func TestWebSocketPushesUpdatesFromOtherSurfaces(t *testing.T) {
	env := newTestEnv(t)
	conn := dialProgress(t, env, "u1")
	readNext(conn, t, "snapshot")

	if _, err := env.registry.Award(context.Background(), "u1", 25); err != nil {
		t.Fatalf("award: %v", err)
	}
	if _, err := env.registry.Award(context.Background(), "u2", 99); err != nil {
		t.Fatalf("award: %v", err)
	}

	_, payload := readNext(conn, t, "progress")
	if payload["experiencePoints"].(float64) != 25 {
		t.Fatalf("expected only u1 update, got %v", payload)
	}
}

func TestWebSocketRejectsBadMessages(t *testing.T) {
	env := newTestEnv(t)
	conn := dialProgress(t, env, "u1")
	readNext(conn, t, "snapshot")

	if err := conn.WriteJSON(map[string]any{"type": "award", "payload": map[string]any{"points": -5}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readNext(conn, t, "error")

	if err := conn.WriteJSON(map[string]any{"type": "teleport"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readNext(conn, t, "error")
}

func TestWebSocketClosesWhenStoreDisposed(t *testing.T) {
	env := newTestEnv(t)
	conn := dialProgress(t, env, "u1")
	readNext(conn, t, "snapshot")

	env.registry.Dispose("u1")

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg map[string]any
	if err := conn.ReadJSON(&msg); err == nil {
		t.Fatalf("expected connection to close, got %v", msg)
	}
}

func TestWebSocketRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	u := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/progress"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", resp)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}
