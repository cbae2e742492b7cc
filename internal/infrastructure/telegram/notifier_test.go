package telegram

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type sentMessage struct {
	path   string
	chatID string
	text   string
}

func newTelegramServer(t *testing.T, status int) (*httptest.Server, *[]sentMessage, *sync.Mutex) {
	t.Helper()
	var (
		mu   sync.Mutex
		sent []sentMessage
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		mu.Lock()
		sent = append(sent, sentMessage{path: r.URL.Path, chatID: r.PostForm.Get("chat_id"), text: r.PostForm.Get("text")})
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(server.Close)
	return server, &sent, &mu
}

func TestNotifierUsesChannelOrDefault(t *testing.T) {
	t.Parallel()

	server, sent, mu := newTelegramServer(t, http.StatusOK)
	n := NewNotifier("TOKEN", "-100default")
	n.endpoint = server.URL

	if err := n.Notify(context.Background(), "-100run", "Article processed."); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if err := n.Notify(context.Background(), "", "Processing article from above URL."); err != nil {
		t.Fatalf("notify default: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(*sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(*sent))
	}
	if (*sent)[0].path != "/botTOKEN/sendMessage" || (*sent)[0].chatID != "-100run" || (*sent)[0].text != "Article processed." {
		t.Fatalf("unexpected first message: %+v", (*sent)[0])
	}
	if (*sent)[1].chatID != "-100default" {
		t.Fatalf("expected default chat, got %+v", (*sent)[1])
	}
}

func TestNotifierSplitsLongMessages(t *testing.T) {
	t.Parallel()

	server, sent, mu := newTelegramServer(t, http.StatusOK)
	n := NewNotifier("TOKEN", "chat")
	n.endpoint = server.URL

	long := strings.Repeat("é", maxMessageRunes+10)
	if err := n.Notify(context.Background(), "", long); err != nil {
		t.Fatalf("notify: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(*sent) != 2 || len([]rune((*sent)[1].text)) != 10 {
		t.Fatalf("unexpected split: %d messages", len(*sent))
	}
}

func TestNotifierErrors(t *testing.T) {
	t.Parallel()

	if err := NewNotifier("", "chat").Notify(context.Background(), "", "x"); err == nil {
		t.Fatalf("expected misconfiguration error")
	}

	server, _, _ := newTelegramServer(t, http.StatusBadRequest)
	n := NewNotifier("TOKEN", "chat")
	n.endpoint = server.URL
	if err := n.Notify(context.Background(), "", "x"); err == nil || !strings.Contains(err.Error(), "400") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestLogNotifier(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))
	if err := n.Notify(context.Background(), "cli", "Article processed."); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if !strings.Contains(buf.String(), "channel=cli") || !strings.Contains(buf.String(), `message="Article processed."`) {
		t.Fatalf("unexpected log: %s", buf.String())
	}
}
