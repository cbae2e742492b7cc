package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ArticleRelay/internal/config"
	"ArticleRelay/internal/domain"
	"ArticleRelay/internal/infrastructure/httpjson"
	"ArticleRelay/internal/ports"
)

// AirtableRepository stores records in two Airtable tables through the REST API.
// Field names follow the base layout: Articles(url,title,source,text,summary)
// and Post Content(article_record_id,platform,content,image_url,posted).
type AirtableRepository struct {
	api          *httpjson.Client
	baseID       string
	articleTable string
	contentTable string
	sortField    string
}

var _ ports.RecordStore = (*AirtableRepository)(nil)

// NewAirtableRepository builds a repository from configuration.
func NewAirtableRepository(cfg config.AirtableConfig) *AirtableRepository {
	return &AirtableRepository{
		api:          httpjson.NewClient(cfg.Endpoint, cfg.APIKey, 15*time.Second),
		baseID:       cfg.BaseID,
		articleTable: cfg.ArticleTable,
		contentTable: cfg.ContentTable,
		sortField:    cfg.SortField,
	}
}

type airtableRecord struct {
	ID          string         `json:"id,omitempty"`
	CreatedTime string         `json:"createdTime,omitempty"`
	Fields      map[string]any `json:"fields"`
}

type airtableList struct {
	Records []airtableRecord `json:"records"`
}

// SaveArticle creates a row in the articles table.
func (r *AirtableRepository) SaveArticle(ctx context.Context, article domain.Article) (string, error) {
	fields := map[string]any{
		"url":     article.URL,
		"title":   article.Title,
		"source":  article.Source,
		"text":    article.Body,
		"summary": article.Summary,
	}
	return r.create(ctx, "save article", r.articleTable, fields)
}

// SaveContent creates a row in the content table after checking the article exists.
func (r *AirtableRepository) SaveContent(ctx context.Context, content domain.Content) (string, error) {
	if _, err := r.GetArticle(ctx, content.ArticleRecordID); err != nil {
		return "", fmt.Errorf("save content: %w", err)
	}

	fields := map[string]any{
		"article_record_id": content.ArticleRecordID,
		"platform":          content.Platform,
		"content":           content.Text,
		"posted":            postedFlag(content.Status),
	}
	if content.HasImage() {
		fields["image_url"] = content.ImageURL
	}
	return r.create(ctx, "save content", r.contentTable, fields)
}

// GetArticle fetches one article row.
func (r *AirtableRepository) GetArticle(ctx context.Context, id string) (domain.Article, error) {
	rec, err := r.get(ctx, "get article", r.articleTable, id)
	if err != nil {
		return domain.Article{}, err
	}
	return toArticle(rec), nil
}

// GetContent fetches one content row.
func (r *AirtableRepository) GetContent(ctx context.Context, id string) (domain.Content, error) {
	rec, err := r.get(ctx, "get content", r.contentTable, id)
	if err != nil {
		return domain.Content{}, err
	}
	return toContent(rec)
}

// LatestArticle returns the newest article row by the configured sort field.
func (r *AirtableRepository) LatestArticle(ctx context.Context) (domain.Article, bool, error) {
	rec, found, err := r.latest(ctx, "latest article", r.articleTable)
	if err != nil || !found {
		return domain.Article{}, false, err
	}
	return toArticle(rec), true, nil
}

// LatestContent returns the newest content row by the configured sort field.
func (r *AirtableRepository) LatestContent(ctx context.Context) (domain.Content, bool, error) {
	rec, found, err := r.latest(ctx, "latest content", r.contentTable)
	if err != nil || !found {
		return domain.Content{}, false, err
	}
	content, err := toContent(rec)
	if err != nil {
		return domain.Content{}, false, err
	}
	return content, true, nil
}

// UpdateContentStatus patches the posted flag of a content row.
func (r *AirtableRepository) UpdateContentStatus(ctx context.Context, id string, status domain.ContentStatus) error {
	const op = "update content status"
	if strings.TrimSpace(id) == "" {
		return domain.Errorf(domain.KindNotFound, op, "empty record id")
	}

	body := airtableRecord{Fields: map[string]any{"posted": postedFlag(status)}}
	if err := r.api.Patch(ctx, r.recordPath(r.contentTable, id), body, nil); err != nil {
		return classify(op, id, err)
	}
	return nil
}

func (r *AirtableRepository) create(ctx context.Context, op, table string, fields map[string]any) (string, error) {
	var created airtableRecord
	if err := r.api.Post(ctx, r.tablePath(table), airtableRecord{Fields: fields}, &created); err != nil {
		return "", domain.E(domain.KindStoreFailed, op, err)
	}
	if created.ID == "" {
		return "", domain.Errorf(domain.KindStoreFailed, op, "airtable returned no record id")
	}
	return created.ID, nil
}

func (r *AirtableRepository) get(ctx context.Context, op, table, id string) (airtableRecord, error) {
	if strings.TrimSpace(id) == "" {
		return airtableRecord{}, domain.Errorf(domain.KindNotFound, op, "empty record id")
	}
	var rec airtableRecord
	if err := r.api.Get(ctx, r.recordPath(table, id), &rec); err != nil {
		return airtableRecord{}, classify(op, id, err)
	}
	return rec, nil
}

func (r *AirtableRepository) latest(ctx context.Context, op, table string) (airtableRecord, bool, error) {
	query := url.Values{}
	query.Set("maxRecords", "1")
	query.Set("sort[0][field]", r.sortField)
	query.Set("sort[0][direction]", "desc")

	var list airtableList
	if err := r.api.Get(ctx, r.tablePath(table)+"?"+query.Encode(), &list); err != nil {
		return airtableRecord{}, false, domain.E(domain.KindStoreFailed, op, err)
	}
	if len(list.Records) == 0 {
		return airtableRecord{}, false, nil
	}
	return list.Records[0], true, nil
}

func (r *AirtableRepository) tablePath(table string) string {
	return "/" + url.PathEscape(r.baseID) + "/" + url.PathEscape(table)
}

func (r *AirtableRepository) recordPath(table, id string) string {
	return r.tablePath(table) + "/" + url.PathEscape(id)
}

// classify separates "record does not exist" from transport and auth failures.
func classify(op, id string, err error) error {
	code := httpjson.StatusCode(err)
	if code == http.StatusNotFound || (code == http.StatusUnprocessableEntity && strings.Contains(err.Error(), "DOES_NOT_EXIST")) {
		return domain.Errorf(domain.KindNotFound, op, "record %s does not exist", id)
	}
	return domain.E(domain.KindStoreFailed, op, err)
}

func toArticle(rec airtableRecord) domain.Article {
	return domain.Article{
		RecordID:  rec.ID,
		URL:       stringField(rec.Fields, "url"),
		Title:     stringField(rec.Fields, "title"),
		Source:    stringField(rec.Fields, "source"),
		Body:      stringField(rec.Fields, "text"),
		Summary:   stringField(rec.Fields, "summary"),
		CreatedAt: parseCreated(rec.CreatedTime),
	}
}

func toContent(rec airtableRecord) (domain.Content, error) {
	status, err := domain.ParseContentStatus(stringField(rec.Fields, "posted"))
	if err != nil {
		return domain.Content{}, domain.E(domain.KindStoreFailed, "decode content", err)
	}
	return domain.Content{
		RecordID:        rec.ID,
		ArticleRecordID: stringField(rec.Fields, "article_record_id"),
		Platform:        stringField(rec.Fields, "platform"),
		Text:            stringField(rec.Fields, "content"),
		ImageURL:        stringField(rec.Fields, "image_url"),
		Status:          status,
		CreatedAt:       parseCreated(rec.CreatedTime),
	}, nil
}

func postedFlag(status domain.ContentStatus) string {
	if status == domain.StatusPosted {
		return "Y"
	}
	return "N"
}

func stringField(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func parseCreated(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
