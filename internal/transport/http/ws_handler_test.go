package http

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ecoquest-quiz-service/internal/app"
	"ecoquest-quiz-service/internal/domain"
	"ecoquest-quiz-service/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func TestWebSocketPushesQuizChanges(t *testing.T) {
	store := app.NewQuizStore(memory.NewCollectionStore(), app.StoreOptions{Demo: true})
	server := httptest.NewServer(NewRouter(store, RouterOptions{}))
	defer server.Close()

	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	typ, payload := readNext(t, conn)
	if typ != "quizzes.snapshot" || len(payload.Quizzes) != 2 {
		t.Fatalf("expected initial snapshot with 2 quizzes, got %s with %d", typ, len(payload.Quizzes))
	}

	if _, err := store.CreateQuiz(context.Background(), domain.Quiz{Title: "Glaciers"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	typ, payload = readNext(t, conn)
	if typ != "quizzes.updated" || len(payload.Quizzes) != 3 {
		t.Fatalf("expected update with 3 quizzes, got %s with %d", typ, len(payload.Quizzes))
	}

	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	if typ, _ = readNext(t, conn); typ != "pong" {
		t.Fatalf("expected pong, got %s", typ)
	}

	if err := conn.WriteJSON(map[string]string{"type": "answer"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if typ, _ = readNext(t, conn); typ != "error" {
		t.Fatalf("expected error for unsupported type, got %s", typ)
	}
}

func readNext(t *testing.T, conn *websocket.Conn) (string, domain.QuizzesUpdated) {
	t.Helper()
	var msg struct {
		Type    string                `json:"type"`
		Payload domain.QuizzesUpdated `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type, msg.Payload
}
