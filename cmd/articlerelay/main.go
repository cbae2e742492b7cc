package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ArticleRelay/internal/app"
	"ArticleRelay/internal/config"
	"ArticleRelay/internal/logging"
)

var (
	channelID string
	feedCount int
)

var rootCmd = &cobra.Command{
	Use:           "articlerelay",
	Short:         "Turn article links into social media posts",
	Long:          `Extracts an article, stores it, writes platform copy with a language model and publishes it on request.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, Kafka consumer and feed poller",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			return a.Serve(ctx)
		})
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <url>",
	Short: "Process one article and generate content for every platform",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			report, err := a.Pipeline().Ingest(ctx, channelID, args[0])
			printIngest(cmd.OutOrStdout(), report)
			return err
		})
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish [content-id]",
	Short: "Post a stored content record; defaults to the latest one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			} else {
				latest, found, err := a.Pipeline().LatestContent(ctx)
				if err != nil {
					return err
				}
				if !found {
					return notFound(nil, "content")
				}
				id = latest.RecordID
			}
			report, err := a.Pipeline().Publish(ctx, channelID, id)
			printPublish(cmd.OutOrStdout(), report)
			return err
		})
	},
}

var regenerateCmd = &cobra.Command{
	Use:   "regenerate <content-id> [note...]",
	Short: "Write a new draft for a content record, optionally following a note",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			content, err := a.Pipeline().Regenerate(ctx, channelID, args[0], joinArgs(args[1:]))
			if err != nil {
				return err
			}
			printContent(cmd.OutOrStdout(), content)
			return nil
		})
	},
}

var latestCmd = &cobra.Command{
	Use:       "latest article|content",
	Short:     "Show the newest stored record",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"article", "content"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			out := cmd.OutOrStdout()
			if args[0] == "article" {
				article, found, err := a.Pipeline().LatestArticle(ctx)
				if err != nil || !found {
					return notFound(err, "article")
				}
				printArticle(out, article)
				return nil
			}
			content, found, err := a.Pipeline().LatestContent(ctx)
			if err != nil || !found {
				return notFound(err, "content")
			}
			printContent(out, content)
			return nil
		})
	},
}

var feedCmd = &cobra.Command{
	Use:   "feed <feed-url>",
	Short: "Ingest the newest entries of an RSS or Atom feed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			reports, err := a.Feeds().IngestFeed(ctx, channelID, args[0], feedCount)
			for _, report := range reports {
				printIngest(cmd.OutOrStdout(), report)
			}
			return err
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&channelID, "channel", "", "Channel that receives progress messages (defaults to CHANNEL_ID)")
	feedCmd.Flags().IntVar(&feedCount, "count", 5, "Number of feed entries to ingest, 0 for all")

	rootCmd.AddCommand(serveCmd, ingestCmd, publishCmd, regenerateCmd, latestCmd, feedCmd)
}

func withApp(cmd *cobra.Command, run func(ctx context.Context, a *app.Application) error) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if channelID == "" {
		channelID = cfg.Channel.DefaultID
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := application.Close(); cerr != nil {
			logger.Error("close application", "error", cerr)
		}
	}()

	return run(ctx, application)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
