package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ArticleRelay/internal/ports"
)

const maxMessageRunes = 4096

// Notifier sends progress messages to a Telegram chat via bot API.
// The channel of a run is the chat id; runs without one go to the default chat.
type Notifier struct {
	botToken    string
	defaultChat string
	endpoint    string
	client      *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and default chat identifier.
func NewNotifier(botToken, defaultChat string) *Notifier {
	return &Notifier{
		botToken:    botToken,
		defaultChat: defaultChat,
		endpoint:    "https://api.telegram.org",
		client:      &http.Client{Timeout: 5 * time.Second},
	}
}

// Notify posts message to channel, splitting it when it exceeds Telegram's limit.
func (n *Notifier) Notify(ctx context.Context, channel, message string) error {
	chatID := strings.TrimSpace(channel)
	if chatID == "" {
		chatID = n.defaultChat
	}
	if n.botToken == "" || chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	for _, chunk := range split(message, maxMessageRunes) {
		if err := n.send(ctx, chatID, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (n *Notifier) send(ctx context.Context, chatID, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.endpoint, n.botToken)
	form := url.Values{}
	form.Set("chat_id", chatID)
	form.Set("text", text)
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram error: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	return nil
}

func split(message string, limit int) []string {
	runes := []rune(message)
	if len(runes) <= limit {
		return []string{message}
	}
	var chunks []string
	for len(runes) > 0 {
		end := min(limit, len(runes))
		chunks = append(chunks, string(runes[:end]))
		runes = runes[end:]
	}
	return chunks
}
