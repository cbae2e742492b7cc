package social

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"ArticleRelay/internal/config"
	"ArticleRelay/internal/infrastructure/httpjson"
	"ArticleRelay/internal/ports"
)

const maxImageBytes = 5 << 20

// XClient posts to X through the v2 API with a user-context OAuth2 token.
type XClient struct {
	api      *httpjson.Client
	download *http.Client
}

var _ ports.PlatformClient = (*XClient)(nil)

// NewXClient builds a client whose token source refreshes the access token
// with the configured refresh token when it expires.
func NewXClient(ctx context.Context, cfg config.XConfig) (*XClient, error) {
	if cfg.AccessToken == "" && cfg.RefreshToken == "" {
		return nil, errors.New("x: access or refresh token is required")
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: cfg.TokenURL},
	}
	token := &oauth2.Token{AccessToken: cfg.AccessToken, RefreshToken: cfg.RefreshToken}
	if cfg.AccessToken == "" {
		// forces a refresh on first use
		token.Expiry = time.Unix(1, 0)
	}

	authed := oauth2.NewClient(ctx, oauthCfg.TokenSource(ctx, token))
	authed.Timeout = 30 * time.Second

	return newXClient(cfg.BaseURL, authed, &http.Client{Timeout: 30 * time.Second}), nil
}

func newXClient(baseURL string, authed, download *http.Client) *XClient {
	return &XClient{
		api:      httpjson.NewClient(baseURL, "", 30*time.Second, httpjson.WithHTTPClient(authed)),
		download: download,
	}
}

type tweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}

type tweetRequest struct {
	Text  string      `json:"text"`
	Media *tweetMedia `json:"media,omitempty"`
}

type idEnvelope struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Post publishes text with an optional image and returns the tweet id.
func (c *XClient) Post(ctx context.Context, text, imageURL string) (string, error) {
	req := tweetRequest{Text: text}

	if strings.TrimSpace(imageURL) != "" {
		mediaID, err := c.uploadImage(ctx, imageURL)
		if err != nil {
			return "", err
		}
		req.Media = &tweetMedia{MediaIDs: []string{mediaID}}
	}

	var created idEnvelope
	if err := c.api.Post(ctx, "/2/tweets", req, &created); err != nil {
		return "", fmt.Errorf("create tweet: %w", err)
	}
	if created.Data.ID == "" {
		return "", errors.New("create tweet: response has no id")
	}
	return created.Data.ID, nil
}

func (c *XClient) uploadImage(ctx context.Context, imageURL string) (string, error) {
	raw, contentType, err := c.fetchImage(ctx, imageURL)
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("media_category", "tweet_image"); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if err := form.WriteField("media_type", contentType); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	part, err := form.CreateFormFile("media", imageName(imageURL))
	if err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if _, err := part.Write(raw); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.api.URL("/2/media/upload"), &body)
	if err != nil {
		return "", fmt.Errorf("new upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	c.api.Authorize(req)

	var uploaded idEnvelope
	if err := c.api.Send(req, &uploaded); err != nil {
		return "", fmt.Errorf("upload media: %w", err)
	}
	if uploaded.Data.ID == "" {
		return "", errors.New("upload media: response has no id")
	}
	return uploaded.Data.ID, nil
}

func (c *XClient) fetchImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("new image request: %w", err)
	}

	resp, err := c.download.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download image: unexpected status %s", resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	if len(raw) > maxImageBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(raw)
	}
	return raw, contentType, nil
}

func imageName(imageURL string) string {
	name := path.Base(strings.SplitN(imageURL, "?", 2)[0])
	if name == "" || name == "/" || name == "." {
		return "image.png"
	}
	return name
}
