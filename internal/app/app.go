package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"ArticleRelay/internal/api"
	"ArticleRelay/internal/config"
	"ArticleRelay/internal/domain"
	"ArticleRelay/internal/infrastructure/cache"
	"ArticleRelay/internal/infrastructure/extractor"
	"ArticleRelay/internal/infrastructure/feed"
	"ArticleRelay/internal/infrastructure/llm"
	"ArticleRelay/internal/infrastructure/media"
	"ArticleRelay/internal/infrastructure/queue"
	"ArticleRelay/internal/infrastructure/scheduler"
	"ArticleRelay/internal/infrastructure/social"
	"ArticleRelay/internal/infrastructure/storage"
	"ArticleRelay/internal/infrastructure/telegram"
	"ArticleRelay/internal/logging"
	"ArticleRelay/internal/platform"
	"ArticleRelay/internal/ports"
	"ArticleRelay/internal/usecase"
	"ArticleRelay/pkg/logger"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	pipeline  *usecase.Pipeline
	feeds     *usecase.FeedWatcher
	scheduler *usecase.Scheduler
	closers   []func() error
}

// New builds the application from cfg. Close releases the store and cache.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{cfg: cfg, logger: baseLogger}

	sessions, locker, err := a.buildCache(ctx)
	if err != nil {
		return nil, a.closeOnError(err)
	}
	store, err := a.buildStore(ctx)
	if err != nil {
		return nil, a.closeOnError(err)
	}

	factory := llm.NewFactory(cfg.Providers, sessions, baseLogger.With("component", "llm"))
	registry, err := a.buildRegistry(ctx, factory)
	if err != nil {
		return nil, a.closeOnError(err)
	}

	strategies, err := extractor.Strategies(cfg.Extraction.Strategies)
	if err != nil {
		return nil, a.closeOnError(err)
	}
	ex := extractor.New(
		&http.Client{Timeout: cfg.Extraction.Timeout},
		cfg.Extraction.UserAgent,
		strategies,
		baseLogger.With("component", "extractor"),
	)

	structurer, err := a.buildStructurer(factory)
	if err != nil {
		return nil, a.closeOnError(err)
	}
	illustrator, err := a.buildIllustrator(ctx, factory)
	if err != nil {
		return nil, a.closeOnError(err)
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Extractor:   ex,
		Structurer:  structurer,
		Store:       store,
		Content:     usecase.NewContentGenerator(registry, cfg.Pipeline.ParallelPlatforms),
		Illustrator: illustrator,
		Publisher:   usecase.NewPublisher(registry),
		Notifier:    a.buildNotifier(),
		Locker:      locker,
		LockTTL:     cfg.Pipeline.PublishLockTTL,
		Logger:      baseLogger.With("component", "pipeline"),
	})

	channel := cfg.Feeds.Channel
	if channel == "" {
		channel = cfg.Channel.DefaultID
	}
	a.feeds = usecase.NewFeedWatcher(
		feed.NewReader(cfg.Extraction.Timeout, cfg.Extraction.UserAgent),
		a.pipeline,
		sessions,
		usecase.FeedWatcherOptions{Feeds: cfg.Feeds.URLs, Count: cfg.Feeds.Count, Channel: channel},
		baseLogger.With("component", "feeds"),
	)

	var driver ports.Scheduler = scheduler.NewTicker(cfg.Feeds.Interval)
	if cfg.Feeds.Schedule != "" {
		cronDriver, err := scheduler.NewCronScheduler(cfg.Feeds.Schedule, time.Local)
		if err != nil {
			return nil, a.closeOnError(err)
		}
		driver = cronDriver
	}
	a.scheduler = usecase.NewScheduler(driver, a.feeds, baseLogger.With("component", "scheduler"))

	return a, nil
}

// Pipeline exposes the orchestrator for one-shot CLI runs.
func (a *Application) Pipeline() *usecase.Pipeline {
	return a.pipeline
}

// Feeds exposes the feed watcher for one-shot CLI runs.
func (a *Application) Feeds() *usecase.FeedWatcher {
	return a.feeds
}

// Serve runs the HTTP API, the optional Kafka consumer and the feed
// scheduler until ctx is cancelled or one of them fails.
func (a *Application) Serve(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	gin.DefaultWriter = logger.Writer(a.logger, "gin", slog.LevelDebug)
	gin.DefaultErrorWriter = logger.Writer(a.logger, "gin", slog.LevelError)

	router := api.NewRouter(a.pipeline, a.logger.With("component", "api"))
	server := api.NewServer(a.cfg.Server.Addr, router, a.cfg.Server.ShutdownTimeout, a.logger.With("component", "http"))

	var consumer *queue.Consumer
	if len(a.cfg.Kafka.Brokers) > 0 {
		var err error
		consumer, err = queue.NewConsumer(queue.ConsumerConfig{
			Brokers: a.cfg.Kafka.Brokers,
			Topic:   a.cfg.Kafka.Topic,
			GroupID: a.cfg.Kafka.GroupID,
			Handler: queue.NewCommandHandler(a.pipeline, a.logger.With("component", "commands")),
			Logger:  a.logger.With("component", "kafka"),
		})
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	if consumer != nil {
		g.Go(func() error {
			return consumer.Run(gctx)
		})
	}
	g.Go(func() error {
		if err := a.scheduler.Start(gctx); err != nil {
			return fmt.Errorf("start feed scheduler: %w", err)
		}
		<-gctx.Done()
		return a.scheduler.Stop(context.WithoutCancel(ctx))
	})

	a.logger.Info("article relay serving",
		"addr", a.cfg.Server.Addr,
		"storage", a.cfg.Storage.Driver,
		"feeds", len(a.cfg.Feeds.URLs),
		"kafka", len(a.cfg.Kafka.Brokers) > 0,
	)
	return g.Wait()
}

// Close releases resources opened by New.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *Application) closeOnError(err error) error {
	if cerr := a.Close(); cerr != nil {
		return errors.Join(err, cerr)
	}
	return err
}

func (a *Application) buildCache(ctx context.Context) (ports.SessionCache, ports.Locker, error) {
	if a.cfg.Cache.Redis.Addr == "" {
		a.logger.Warn("redis is not configured, sessions and publish locks are process-local")
		mem := cache.NewMemory()
		return mem, mem, nil
	}
	rdb, closeFn, err := cache.NewRedis(ctx, a.cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	a.closers = append(a.closers, closeFn)
	return rdb, rdb, nil
}

func (a *Application) buildStore(ctx context.Context) (ports.RecordStore, error) {
	switch a.cfg.Storage.Driver {
	case config.DriverAirtable:
		return storage.NewAirtableRepository(a.cfg.Storage.Airtable), nil
	case config.DriverSQLite, config.DriverPostgres:
		db, err := storage.OpenSQL(ctx, a.cfg.Storage.Driver, a.cfg.Storage.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		return storage.NewSQLRepository(db, a.cfg.Storage.Driver), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", a.cfg.Storage.Driver)
	}
}

func (a *Application) buildRegistry(ctx context.Context, factory *llm.Factory) (*platform.Registry, error) {
	registry := platform.NewRegistry()

	var x ports.PlatformClient
	xCfg := a.cfg.Publishers.X
	if xCfg.AccessToken != "" || xCfg.RefreshToken != "" {
		client, err := social.NewXClient(ctx, xCfg)
		if err != nil {
			return nil, err
		}
		x = client
	}

	for _, p := range a.cfg.Platforms {
		instructions, err := p.PlatformInstructions()
		if err != nil {
			return nil, err
		}
		gen, err := factory.Text(p.Provider)
		if err != nil {
			return nil, fmt.Errorf("platform %s: %w", p.Name, err)
		}

		entry := platform.Entry{
			Profile:   domainPlatform(p, instructions),
			Generator: gen,
		}
		if p.Publisher == "x" && x != nil {
			entry.Client = x
		}
		registry.Register(entry)
	}

	a.logger.Info("platforms registered", "platforms", registry.Names(), "publishable", registry.Publishable())
	return registry, nil
}

func domainPlatform(p config.PlatformConfig, instructions string) domain.Platform {
	return domain.Platform{
		Name:          p.Name,
		Version:       p.Version,
		Provider:      p.Provider,
		Model:         p.Model,
		Instructions:  instructions,
		Temperature:   p.Temperature,
		TopP:          p.TopP,
		MaxTokens:     p.MaxTokens,
		RequiresImage: p.RequiresImage,
	}
}

func (a *Application) buildStructurer(factory *llm.Factory) (*usecase.Structurer, error) {
	instructions, err := a.cfg.StructurerInstructions()
	if err != nil {
		return nil, err
	}
	schema, err := a.cfg.StructurerSchema()
	if err != nil {
		return nil, err
	}
	gen, err := factory.Text(a.cfg.Structurer.Provider)
	if err != nil {
		return nil, fmt.Errorf("structurer: %w", err)
	}
	s := a.cfg.Structurer
	return usecase.NewStructurer(gen, usecase.StructurerOptions{
		Model:            s.Model,
		Instructions:     instructions,
		Schema:           schema,
		Temperature:      s.Temperature,
		MaxTokens:        s.MaxTokens,
		ContentMaxTokens: s.ContentMaxTokens,
	}), nil
}

func (a *Application) buildIllustrator(ctx context.Context, factory *llm.Factory) (*usecase.Illustrator, error) {
	if !a.cfg.Image.Enabled {
		return nil, nil
	}
	instructions, err := a.cfg.ImageInstructions()
	if err != nil {
		return nil, err
	}

	var mirror ports.ImageMirror
	if a.cfg.Media.S3.Bucket != "" {
		s3Mirror, err := media.NewS3Mirror(ctx, a.cfg.Media.S3)
		if err != nil {
			return nil, err
		}
		mirror = s3Mirror
	}

	img := a.cfg.Image
	return usecase.NewIllustrator(factory.Images(), mirror, usecase.IllustratorOptions{
		Instructions: instructions,
		Model:        img.Model,
		Size:         img.Size,
		Quality:      img.Quality,
	}), nil
}

func (a *Application) buildNotifier() ports.Notifier {
	tg := a.cfg.Notifications.Telegram
	if tg.BotToken == "" {
		return telegram.NewLogNotifier(a.logger.With("component", "notifier"))
	}
	return telegram.NewNotifier(tg.BotToken, tg.ChatID)
}
