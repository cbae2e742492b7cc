package telegram

import (
	"context"
	"log/slog"

	"ArticleRelay/internal/ports"
)

// LogNotifier writes channel messages to the log when no bot is configured.
type LogNotifier struct {
	logger *slog.Logger
}

var _ ports.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, channel, message string) error {
	n.logger.InfoContext(ctx, "channel message", "channel", channel, "message", message)
	return nil
}
