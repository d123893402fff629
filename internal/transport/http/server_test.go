package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/vovakirdan/chatrelay/internal/chat"
	"github.com/vovakirdan/chatrelay/internal/config"
	"github.com/vovakirdan/chatrelay/internal/log"
	"github.com/vovakirdan/chatrelay/internal/store/sqlite"
)

func startTestServer(t *testing.T) (*httptest.Server, *sqlite.SQLiteStore) {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	coordinator, handle := chat.New(st, log.Nop())
	go coordinator.Run(ctx)

	router := NewRouter(handle, st, config.Default(), log.Nop())
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	return ts, st
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := startTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestRequestIDHeader(t *testing.T) {
	ts, _ := startTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.Header.Get(HeaderRequestID) == "" {
		t.Fatal("missing request id header")
	}

	req, _ := stdhttp.NewRequest(stdhttp.MethodGet, ts.URL+"/health", nil)
	req.Header.Set(HeaderRequestID, "fixed-id")
	resp2, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp2.Body.Close()

	if got := resp2.Header.Get(HeaderRequestID); got != "fixed-id" {
		t.Fatalf("request id not echoed, got %q", got)
	}
}

func TestMessagesEndpoint(t *testing.T) {
	ts, st := startTestServer(t)
	ctx := context.Background()

	for _, m := range []struct{ room, content string }{
		{"main", "hi"},
		{"main", "there"},
		{"lobby", "elsewhere"},
	} {
		if err := st.SaveMessage(ctx, m.room, m.content); err != nil {
			t.Fatalf("seed message: %v", err)
		}
	}

	resp, err := ts.Client().Get(ts.URL + "/messages/main")
	if err != nil {
		t.Fatalf("messages request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}

	var messages []MessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Content != "hi" || messages[1].Content != "there" {
		t.Fatalf("unexpected order: %q, %q", messages[0].Content, messages[1].Content)
	}
	for _, m := range messages {
		if m.RoomName != "main" {
			t.Fatalf("unexpected roomname: %q", m.RoomName)
		}
		if m.SentAt.IsZero() {
			t.Fatal("missing sent_at")
		}
	}
}

func TestMessagesEndpointStoreError(t *testing.T) {
	ts, st := startTestServer(t)

	// A closed store makes every query fail; the endpoint must answer with a
	// generic server error.
	_ = st.Close()

	resp, err := ts.Client().Get(ts.URL + "/messages/main")
	if err != nil {
		t.Fatalf("messages request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != stdhttp.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestWebSocketChatFlow(t *testing.T) {
	ts, _ := startTestServer(t)

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial A: %v", err)
	}
	defer connA.Close(websocket.StatusNormalClosure, "done")

	connB, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial B: %v", err)
	}
	defer connB.Close(websocket.StatusNormalClosure, "done")

	send := func(conn *websocket.Conn, text string) {
		t.Helper()
		if err := conn.Write(ctx, websocket.MessageText, []byte(text)); err != nil {
			t.Fatalf("write %q: %v", text, err)
		}
	}
	readUntil := func(conn *websocket.Conn, want string) {
		t.Helper()
		for i := 0; i < 20; i++ {
			_, data, err := conn.Read(ctx)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(data) == want {
				return
			}
		}
		t.Fatalf("never received %q", want)
	}

	send(connA, "/join lobby")
	readUntil(connA, "joined lobby")

	send(connB, "/join lobby")
	readUntil(connB, "joined lobby")
	readUntil(connA, "Someone connected")

	send(connA, "/name Alice")
	send(connA, "hi there")
	readUntil(connB, "Alice: hi there")
}
