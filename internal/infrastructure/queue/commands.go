package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"ArticleRelay/internal/domain"
)

// Command types accepted on the trigger topic.
const (
	CommandIngest     = "ingest"
	CommandPublish    = "publish"
	CommandRegenerate = "regenerate"
)

// Command is one trigger message.
type Command struct {
	Type      string `json:"type"`
	Channel   string `json:"channel"`
	URL       string `json:"url,omitempty"`
	ContentID string `json:"contentId,omitempty"`
	Note      string `json:"note,omitempty"`
}

// Runner executes the relay's runs.
type Runner interface {
	Ingest(ctx context.Context, channel, url string) (domain.IngestReport, error)
	Publish(ctx context.Context, channel, contentID string) (domain.PublishReport, error)
	Regenerate(ctx context.Context, channel, contentID, note string) (domain.Content, error)
}

// NewCommandHandler dispatches commands to runner. Every message is
// committed after one attempt so a publish is never delivered twice.
func NewCommandHandler(runner Runner, logger *slog.Logger) *TypedMessageHandler[Command] {
	return &TypedMessageHandler[Command]{
		Validate:   validateCommand,
		AlwaysMark: true,
		Process: func(ctx context.Context, cmd *Command) error {
			log := logger.With("type", cmd.Type, "channel", cmd.Channel)
			switch strings.ToLower(cmd.Type) {
			case CommandIngest:
				report, err := runner.Ingest(ctx, cmd.Channel, cmd.URL)
				if err != nil {
					return fmt.Errorf("ingest %s: %w", cmd.URL, err)
				}
				log.Info("ingest finished", "run_id", report.RunID, "article_id", report.ArticleID, "contents", len(report.ContentIDs()))
			case CommandPublish:
				report, err := runner.Publish(ctx, cmd.Channel, cmd.ContentID)
				if err != nil {
					return fmt.Errorf("publish %s: %w", cmd.ContentID, err)
				}
				log.Info("publish finished", "run_id", report.RunID, "post_id", report.PostID)
			case CommandRegenerate:
				content, err := runner.Regenerate(ctx, cmd.Channel, cmd.ContentID, cmd.Note)
				if err != nil {
					return fmt.Errorf("regenerate %s: %w", cmd.ContentID, err)
				}
				log.Info("regenerate finished", "content_id", content.RecordID)
			}
			return nil
		},
	}
}

func validateCommand(cmd *Command) error {
	switch strings.ToLower(cmd.Type) {
	case CommandIngest:
		if strings.TrimSpace(cmd.URL) == "" {
			return errors.New("ingest command without url")
		}
	case CommandPublish, CommandRegenerate:
		if strings.TrimSpace(cmd.ContentID) == "" {
			return fmt.Errorf("%s command without contentId", cmd.Type)
		}
	default:
		return fmt.Errorf("unknown command type %q", cmd.Type)
	}
	return nil
}
