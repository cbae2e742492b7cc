package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ArticleRelay/internal/domain"
)

// Runner is the part of the pipeline the HTTP surface drives.
type Runner interface {
	Ingest(ctx context.Context, channel, url string) (domain.IngestReport, error)
	Publish(ctx context.Context, channel, contentID string) (domain.PublishReport, error)
	Regenerate(ctx context.Context, channel, contentID, note string) (domain.Content, error)
	Article(ctx context.Context, id string) (domain.Article, error)
	Content(ctx context.Context, id string) (domain.Content, error)
	LatestArticle(ctx context.Context) (domain.Article, bool, error)
	LatestContent(ctx context.Context) (domain.Content, bool, error)
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(runner Runner, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	h := &handlers{runner: runner, logger: logger}
	api := r.Group("/api")
	api.GET("/health", h.health)
	api.POST("/messages", h.message)
	api.POST("/ingest", h.ingest)
	api.GET("/articles/latest", h.latestArticle)
	api.GET("/articles/:id", h.article)
	api.GET("/contents/latest", h.latestContent)
	api.GET("/contents/:id", h.content)
	api.POST("/contents/:id/publish", h.publish)
	api.POST("/contents/:id/regenerate", h.regenerate)
	return r
}

// Server runs the router until its context is cancelled.
type Server struct {
	srv             *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

func NewServer(addr string, handler http.Handler, shutdownTimeout time.Duration, logger *slog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
