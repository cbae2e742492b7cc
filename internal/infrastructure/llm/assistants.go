package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ArticleRelay/internal/config"
	"ArticleRelay/internal/domain"
	"ArticleRelay/internal/infrastructure/httpjson"
	"ArticleRelay/internal/ports"
)

// ErrRunTimeout is returned when a run does not finish within the configured wait.
var ErrRunTimeout = errors.New("assistant run timed out")

const assistantCacheNamespace = "assistant:"

// Assistants implements ports.TextGenerator on top of the OpenAI Assistants API.
// One assistant exists per session key (platform-version); each completion runs
// on a fresh thread.
type Assistants struct {
	api          *httpjson.Client
	cache        ports.SessionCache
	pollInterval time.Duration
	maxWait      time.Duration
	logger       *slog.Logger
}

var _ ports.TextGenerator = (*Assistants)(nil)

// NewAssistants wires the API client with a session cache for assistant ids.
func NewAssistants(cfg config.OpenAIConfig, cache ports.SessionCache, logger *slog.Logger) *Assistants {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	maxWait := cfg.MaxWait
	if maxWait <= 0 {
		maxWait = 2 * time.Minute
	}
	return &Assistants{
		api:          httpjson.NewClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout, httpjson.WithHeader("OpenAI-Beta", "assistants=v2")),
		cache:        cache,
		pollInterval: pollInterval,
		maxWait:      maxWait,
		logger:       logger,
	}
}

type assistant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type run struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	LastError *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_error"`
}

// Complete posts the prompt to a new thread of the session's assistant and
// waits for the run to finish.
func (a *Assistants) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	if req.SessionKey == "" {
		return "", fmt.Errorf("assistants need a session key")
	}

	assistantID, err := a.resolveAssistant(ctx, req, true)
	if err != nil {
		return "", err
	}

	var thread struct {
		ID string `json:"id"`
	}
	if err := a.api.Post(ctx, "/threads", map[string]any{}, &thread); err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}

	message := map[string]string{"role": "user", "content": req.Prompt}
	if err := a.api.Post(ctx, "/threads/"+thread.ID+"/messages", message, nil); err != nil {
		return "", fmt.Errorf("add message: %w", err)
	}

	started, err := a.startRun(ctx, thread.ID, assistantID)
	if httpjson.StatusCode(err) == http.StatusNotFound {
		a.debug("cached assistant vanished, resolving again", "session", req.SessionKey, "assistant_id", assistantID)
		if assistantID, err = a.resolveAssistant(ctx, req, false); err != nil {
			return "", err
		}
		started, err = a.startRun(ctx, thread.ID, assistantID)
	}
	if err != nil {
		return "", err
	}

	if _, err := a.waitRun(ctx, thread.ID, started); err != nil {
		return "", err
	}

	return a.lastMessage(ctx, thread.ID)
}

func (a *Assistants) startRun(ctx context.Context, threadID, assistantID string) (run, error) {
	var r run
	if err := a.api.Post(ctx, "/threads/"+threadID+"/runs", map[string]string{"assistant_id": assistantID}, &r); err != nil {
		return run{}, fmt.Errorf("create run: %w", err)
	}
	return r, nil
}

// waitRun polls until the run reaches a terminal state or maxWait elapses.
func (a *Assistants) waitRun(ctx context.Context, threadID string, r run) (run, error) {
	deadline := time.Now().Add(a.maxWait)
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		switch r.Status {
		case "completed":
			return r, nil
		case "failed", "cancelled", "cancelling", "expired", "incomplete", "requires_action":
			reason := r.Status
			if r.LastError != nil && r.LastError.Message != "" {
				reason = fmt.Sprintf("%s: %s", r.Status, r.LastError.Message)
			}
			return r, fmt.Errorf("run %s ended: %s", r.ID, reason)
		}

		if !time.Now().Before(deadline) {
			return r, fmt.Errorf("run %s still %s after %s: %w", r.ID, r.Status, a.maxWait, ErrRunTimeout)
		}

		select {
		case <-ctx.Done():
			return r, fmt.Errorf("wait run %s: %w", r.ID, ctx.Err())
		case <-ticker.C:
		}

		if err := a.api.Get(ctx, "/threads/"+threadID+"/runs/"+r.ID, &r); err != nil {
			return r, fmt.Errorf("poll run: %w", err)
		}
		a.debug("run polled", "run_id", r.ID, "status", r.Status, "attempt", attempt)
	}
}

func (a *Assistants) lastMessage(ctx context.Context, threadID string) (string, error) {
	var list struct {
		Data []struct {
			Role    string `json:"role"`
			Content []struct {
				Type string `json:"type"`
				Text struct {
					Value string `json:"value"`
				} `json:"text"`
			} `json:"content"`
		} `json:"data"`
	}
	if err := a.api.Get(ctx, "/threads/"+threadID+"/messages?limit=1&order=desc", &list); err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}
	if len(list.Data) == 0 || list.Data[0].Role != "assistant" {
		return "", fmt.Errorf("thread %s has no assistant reply", threadID)
	}

	var parts []string
	for _, c := range list.Data[0].Content {
		if c.Type == "text" && strings.TrimSpace(c.Text.Value) != "" {
			parts = append(parts, strings.TrimSpace(c.Text.Value))
		}
	}
	return strings.Join(parts, "\n"), nil
}

// resolveAssistant finds the assistant named after the session key, creating it
// when absent. The name carries the instruction version, so an outdated
// assistant is never matched.
func (a *Assistants) resolveAssistant(ctx context.Context, req domain.CompletionRequest, useCache bool) (string, error) {
	cacheKey := assistantCacheNamespace + req.SessionKey
	if useCache && a.cache != nil {
		id, ok, err := a.cache.Get(ctx, cacheKey)
		if err != nil {
			a.debug("session cache read failed", "session", req.SessionKey, "error", err)
		} else if ok {
			return id, nil
		}
	}

	id, err := a.findAssistant(ctx, req.SessionKey)
	if err != nil {
		return "", err
	}
	if id == "" {
		id, err = a.createAssistant(ctx, req)
		if err != nil {
			return "", err
		}
		a.debug("assistant created", "session", req.SessionKey, "assistant_id", id)
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, cacheKey, id); err != nil {
			a.debug("session cache write failed", "session", req.SessionKey, "error", err)
		}
	}
	return id, nil
}

func (a *Assistants) findAssistant(ctx context.Context, name string) (string, error) {
	after := ""
	for {
		query := url.Values{}
		query.Set("limit", "100")
		query.Set("order", "desc")
		if after != "" {
			query.Set("after", after)
		}

		var page struct {
			Data    []assistant `json:"data"`
			HasMore bool        `json:"has_more"`
			LastID  string      `json:"last_id"`
		}
		if err := a.api.Get(ctx, "/assistants?"+query.Encode(), &page); err != nil {
			return "", fmt.Errorf("list assistants: %w", err)
		}

		for _, asst := range page.Data {
			if asst.Name == name {
				return asst.ID, nil
			}
		}

		if !page.HasMore || page.LastID == "" || page.LastID == after {
			return "", nil
		}
		after = page.LastID
	}
}

func (a *Assistants) createAssistant(ctx context.Context, req domain.CompletionRequest) (string, error) {
	body := map[string]any{
		"model":        req.Model,
		"name":         req.SessionKey,
		"instructions": req.Instructions,
	}
	if req.Temperature > 0 {
		body["temperature"] = req.Temperature
	}
	if req.TopP > 0 {
		body["top_p"] = req.TopP
	}

	var created assistant
	if err := a.api.Post(ctx, "/assistants", body, &created); err != nil {
		return "", fmt.Errorf("create assistant %s: %w", req.SessionKey, err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("create assistant %s: empty id", req.SessionKey)
	}
	return created.ID, nil
}

func (a *Assistants) debug(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}
