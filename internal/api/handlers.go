package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ArticleRelay/internal/domain"
)

type handlers struct {
	runner Runner
	logger *slog.Logger
}

type messageRequest struct {
	Channel string `json:"channel"`
	Text    string `json:"text" binding:"required"`
}

type ingestRequest struct {
	Channel string `json:"channel"`
	URL     string `json:"url" binding:"required"`
}

type publishRequest struct {
	Channel string `json:"channel"`
}

type regenerateRequest struct {
	Channel string `json:"channel"`
	Note    string `json:"note"`
}

type articleResponse struct {
	RecordID  string    `json:"recordId"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Source    string    `json:"source"`
	Body      string    `json:"body"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

type contentResponse struct {
	RecordID        string    `json:"recordId"`
	ArticleRecordID string    `json:"articleRecordId"`
	Platform        string    `json:"platform"`
	Text            string    `json:"text"`
	ImageURL        string    `json:"imageUrl,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt,omitzero"`
}

type outcomeResponse struct {
	Platform  string `json:"platform"`
	ContentID string `json:"contentId,omitempty"`
	Error     string `json:"error,omitempty"`
}

type ingestResponse struct {
	RunID      string            `json:"runId"`
	State      string            `json:"state"`
	Trace      []string          `json:"trace"`
	ArticleID  string            `json:"articleId"`
	ImageURL   string            `json:"imageUrl,omitempty"`
	ImageError string            `json:"imageError,omitempty"`
	Outcomes   []outcomeResponse `json:"outcomes"`
}

type publishResponse struct {
	RunID     string   `json:"runId"`
	ContentID string   `json:"contentId"`
	Platform  string   `json:"platform,omitempty"`
	State     string   `json:"state"`
	Trace     []string `json:"trace"`
	PostID    string   `json:"postId,omitempty"`
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// message handles a chat message event; the first word starting with http is the article URL.
func (h *handlers) message(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	url := FirstURL(req.Text)
	if url == "" {
		c.Status(http.StatusNoContent)
		return
	}
	h.runIngest(c, req.Channel, url)
}

func (h *handlers) ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.runIngest(c, req.Channel, req.URL)
}

func (h *handlers) runIngest(c *gin.Context, channel, url string) {
	report, err := h.runner.Ingest(c.Request.Context(), channel, url)
	body := toIngestResponse(report)
	if err != nil {
		h.respondError(c, err, gin.H{"error": err.Error(), "kind": domain.KindOf(err), "report": body})
		return
	}
	c.JSON(http.StatusOK, body)
}

func (h *handlers) publish(c *gin.Context) {
	var req publishRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	report, err := h.runner.Publish(c.Request.Context(), req.Channel, c.Param("id"))
	body := toPublishResponse(report)
	if err != nil {
		h.respondError(c, err, gin.H{"error": err.Error(), "kind": domain.KindOf(err), "report": body})
		return
	}
	c.JSON(http.StatusOK, body)
}

func (h *handlers) regenerate(c *gin.Context) {
	var req regenerateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	content, err := h.runner.Regenerate(c.Request.Context(), req.Channel, c.Param("id"), req.Note)
	if err != nil {
		h.respondError(c, err, gin.H{"error": err.Error(), "kind": domain.KindOf(err)})
		return
	}
	c.JSON(http.StatusCreated, toContentResponse(content))
}

func (h *handlers) article(c *gin.Context) {
	article, err := h.runner.Article(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, gin.H{"error": err.Error(), "kind": domain.KindOf(err)})
		return
	}
	c.JSON(http.StatusOK, toArticleResponse(article))
}

func (h *handlers) content(c *gin.Context) {
	content, err := h.runner.Content(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, gin.H{"error": err.Error(), "kind": domain.KindOf(err)})
		return
	}
	c.JSON(http.StatusOK, toContentResponse(content))
}

func (h *handlers) latestArticle(c *gin.Context) {
	article, found, err := h.runner.LatestArticle(c.Request.Context())
	if err != nil {
		h.respondError(c, err, gin.H{"error": err.Error(), "kind": domain.KindOf(err)})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no articles stored yet"})
		return
	}
	c.JSON(http.StatusOK, toArticleResponse(article))
}

func (h *handlers) latestContent(c *gin.Context) {
	content, found, err := h.runner.LatestContent(c.Request.Context())
	if err != nil {
		h.respondError(c, err, gin.H{"error": err.Error(), "kind": domain.KindOf(err)})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no content stored yet"})
		return
	}
	c.JSON(http.StatusOK, toContentResponse(content))
}

func (h *handlers) respondError(c *gin.Context, err error, body gin.H) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, body)
}

// StatusFor maps a domain error kind to an HTTP status.
func StatusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindAlreadyPosted, domain.KindPublishInProgress:
		return http.StatusConflict
	case domain.KindUnsupportedPlatform, domain.KindImageRequired:
		return http.StatusBadRequest
	case domain.KindExtractionFailed, domain.KindStructuringFailed:
		return http.StatusUnprocessableEntity
	case domain.KindStoreFailed, domain.KindPublishFailed, domain.KindGenerationFailed, domain.KindImageGenerationFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// FirstURL returns the first whitespace-separated word that starts with "http".
func FirstURL(text string) string {
	for _, word := range strings.Fields(text) {
		if strings.HasPrefix(word, "http") {
			return word
		}
	}
	return ""
}

func toArticleResponse(a domain.Article) articleResponse {
	return articleResponse{
		RecordID:  a.RecordID,
		URL:       a.URL,
		Title:     a.Title,
		Source:    a.Source,
		Body:      a.Body,
		Summary:   a.Summary,
		CreatedAt: a.CreatedAt,
	}
}

func toContentResponse(c domain.Content) contentResponse {
	return contentResponse{
		RecordID:        c.RecordID,
		ArticleRecordID: c.ArticleRecordID,
		Platform:        c.Platform,
		Text:            c.Text,
		ImageURL:        c.ImageURL,
		Status:          string(c.Status),
		CreatedAt:       c.CreatedAt,
	}
}

func toIngestResponse(r domain.IngestReport) ingestResponse {
	resp := ingestResponse{
		RunID:     r.RunID,
		State:     string(r.State),
		ArticleID: r.ArticleID,
		ImageURL:  r.ImageURL,
		Trace:     make([]string, 0, len(r.Trace)),
		Outcomes:  make([]outcomeResponse, 0, len(r.Outcomes)),
	}
	for _, s := range r.Trace {
		resp.Trace = append(resp.Trace, string(s))
	}
	if r.ImageErr != nil {
		resp.ImageError = r.ImageErr.Error()
	}
	for _, o := range r.Outcomes {
		out := outcomeResponse{Platform: o.Platform, ContentID: o.ContentID}
		if o.Err != nil {
			out.Error = o.Err.Error()
		}
		resp.Outcomes = append(resp.Outcomes, out)
	}
	return resp
}

func toPublishResponse(r domain.PublishReport) publishResponse {
	resp := publishResponse{
		RunID:     r.RunID,
		ContentID: r.ContentID,
		Platform:  r.Platform,
		State:     string(r.State),
		PostID:    r.PostID,
		Trace:     make([]string, 0, len(r.Trace)),
	}
	for _, s := range r.Trace {
		resp.Trace = append(resp.Trace, string(s))
	}
	return resp
}
