package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"ArticleRelay/internal/config"
	"ArticleRelay/internal/domain"
	"ArticleRelay/internal/ports"
)

var (
	articleColumns = []string{"record_id", "url", "title", "source", "body", "summary", "created_at"}
	contentColumns = []string{"record_id", "article_record_id", "platform", "text", "image_url", "status", "created_at"}
)

// SQLRepository persists articles and content into SQLite or Postgres.
type SQLRepository struct {
	db    *sql.DB
	sb    sq.StatementBuilderType
	newID func() string
	now   func() time.Time
}

var _ ports.RecordStore = (*SQLRepository)(nil)

// NewSQLRepository wires a sql.DB; driver selects the placeholder style.
func NewSQLRepository(db *sql.DB, driver string) *SQLRepository {
	var format sq.PlaceholderFormat = sq.Question
	if driver == config.DriverPostgres {
		format = sq.Dollar
	}
	return &SQLRepository{
		db:    db,
		sb:    sq.StatementBuilder.PlaceholderFormat(format),
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// SaveArticle inserts a new article and returns its record id.
func (r *SQLRepository) SaveArticle(ctx context.Context, article domain.Article) (string, error) {
	const op = "save article"

	id := r.newID()
	query, args, err := r.sb.Insert("articles").
		Columns(articleColumns...).
		Values(id, article.URL, article.Title, article.Source, article.Body, article.Summary, r.now().UnixNano()).
		ToSql()
	if err != nil {
		return "", domain.E(domain.KindStoreFailed, op, fmt.Errorf("build insert: %w", err))
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return "", domain.E(domain.KindStoreFailed, op, fmt.Errorf("insert article: %w", err))
	}
	return id, nil
}

// SaveContent inserts a content record; the referenced article must exist.
func (r *SQLRepository) SaveContent(ctx context.Context, content domain.Content) (string, error) {
	const op = "save content"

	exists, err := r.exists(ctx, "articles", content.ArticleRecordID)
	if err != nil {
		return "", domain.E(domain.KindStoreFailed, op, err)
	}
	if !exists {
		return "", domain.Errorf(domain.KindNotFound, op, "article %s does not exist", content.ArticleRecordID)
	}

	status := content.Status
	if status == "" {
		status = domain.StatusUnposted
	}

	id := r.newID()
	ts := r.now().UnixNano()
	query, args, err := r.sb.Insert("contents").
		Columns(append(contentColumns, "updated_at")...).
		Values(id, content.ArticleRecordID, content.Platform, content.Text, nullable(content.ImageURL), string(status), ts, ts).
		ToSql()
	if err != nil {
		return "", domain.E(domain.KindStoreFailed, op, fmt.Errorf("build insert: %w", err))
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return "", domain.E(domain.KindStoreFailed, op, fmt.Errorf("insert content: %w", err))
	}
	return id, nil
}

// GetArticle loads one article by record id.
func (r *SQLRepository) GetArticle(ctx context.Context, id string) (domain.Article, error) {
	article, found, err := r.queryArticle(ctx, r.sb.Select(articleColumns...).From("articles").Where(sq.Eq{"record_id": id}))
	if err != nil {
		return domain.Article{}, domain.E(domain.KindStoreFailed, "get article", err)
	}
	if !found {
		return domain.Article{}, domain.Errorf(domain.KindNotFound, "get article", "article %s does not exist", id)
	}
	return article, nil
}

// LatestArticle returns the most recently created article, if any.
func (r *SQLRepository) LatestArticle(ctx context.Context) (domain.Article, bool, error) {
	article, found, err := r.queryArticle(ctx, r.sb.Select(articleColumns...).From("articles").
		OrderBy("created_at DESC", "record_id DESC").Limit(1))
	if err != nil {
		return domain.Article{}, false, domain.E(domain.KindStoreFailed, "latest article", err)
	}
	return article, found, nil
}

// GetContent loads one content record by id.
func (r *SQLRepository) GetContent(ctx context.Context, id string) (domain.Content, error) {
	content, found, err := r.queryContent(ctx, r.sb.Select(contentColumns...).From("contents").Where(sq.Eq{"record_id": id}))
	if err != nil {
		return domain.Content{}, domain.E(domain.KindStoreFailed, "get content", err)
	}
	if !found {
		return domain.Content{}, domain.Errorf(domain.KindNotFound, "get content", "content %s does not exist", id)
	}
	return content, nil
}

// LatestContent returns the most recently created content record, if any.
func (r *SQLRepository) LatestContent(ctx context.Context) (domain.Content, bool, error) {
	content, found, err := r.queryContent(ctx, r.sb.Select(contentColumns...).From("contents").
		OrderBy("created_at DESC", "record_id DESC").Limit(1))
	if err != nil {
		return domain.Content{}, false, domain.E(domain.KindStoreFailed, "latest content", err)
	}
	return content, found, nil
}

// UpdateContentStatus sets the posting status of a content record.
func (r *SQLRepository) UpdateContentStatus(ctx context.Context, id string, status domain.ContentStatus) error {
	const op = "update content status"

	query, args, err := r.sb.Update("contents").
		Set("status", string(status)).
		Set("updated_at", r.now().UnixNano()).
		Where(sq.Eq{"record_id": id}).
		ToSql()
	if err != nil {
		return domain.E(domain.KindStoreFailed, op, fmt.Errorf("build update: %w", err))
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.E(domain.KindStoreFailed, op, fmt.Errorf("update content: %w", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.E(domain.KindStoreFailed, op, fmt.Errorf("rows affected: %w", err))
	}
	if affected == 0 {
		return domain.Errorf(domain.KindNotFound, op, "content %s does not exist", id)
	}
	return nil
}

func (r *SQLRepository) exists(ctx context.Context, table, id string) (bool, error) {
	query, args, err := r.sb.Select("1").From(table).Where(sq.Eq{"record_id": id}).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build select: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup %s: %w", table, err)
	}
	return true, nil
}

func (r *SQLRepository) queryArticle(ctx context.Context, builder sq.SelectBuilder) (domain.Article, bool, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return domain.Article{}, false, fmt.Errorf("build select: %w", err)
	}

	var (
		a         domain.Article
		createdAt int64
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&a.RecordID, &a.URL, &a.Title, &a.Source, &a.Body, &a.Summary, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Article{}, false, nil
	}
	if err != nil {
		return domain.Article{}, false, fmt.Errorf("scan article: %w", err)
	}
	a.CreatedAt = time.Unix(0, createdAt).UTC()
	return a, true, nil
}

func (r *SQLRepository) queryContent(ctx context.Context, builder sq.SelectBuilder) (domain.Content, bool, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return domain.Content{}, false, fmt.Errorf("build select: %w", err)
	}

	var (
		c         domain.Content
		imageURL  sql.NullString
		status    string
		createdAt int64
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&c.RecordID, &c.ArticleRecordID, &c.Platform, &c.Text, &imageURL, &status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Content{}, false, nil
	}
	if err != nil {
		return domain.Content{}, false, fmt.Errorf("scan content: %w", err)
	}

	c.ImageURL = imageURL.String
	c.Status, err = domain.ParseContentStatus(status)
	if err != nil {
		return domain.Content{}, false, err
	}
	c.CreatedAt = time.Unix(0, createdAt).UTC()
	return c, true, nil
}

func nullable(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
