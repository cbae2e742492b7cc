package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"ArticleRelay/internal/config"
	"ArticleRelay/internal/ports"
)

const maxImageBytes = 20 << 20

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type objectPresigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Mirror re-hosts generated images in a bucket; provider URLs expire
// within hours.
type S3Mirror struct {
	objects    objectPutter
	presigner  objectPresigner
	download   *http.Client
	bucket     string
	prefix     string
	publicBase string
	presignTTL time.Duration
	newKey     func() string
}

var _ ports.ImageMirror = (*S3Mirror)(nil)

// NewS3Mirror loads AWS configuration from the default chain with optional
// region and profile overrides.
func NewS3Mirror(ctx context.Context, cfg config.S3Config) (*S3Mirror, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 mirror: bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3Mirror(client, s3.NewPresignClient(client), cfg), nil
}

func newS3Mirror(objects objectPutter, presigner objectPresigner, cfg config.S3Config) *S3Mirror {
	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &S3Mirror{
		objects:    objects,
		presigner:  presigner,
		download:   &http.Client{Timeout: 60 * time.Second},
		bucket:     cfg.Bucket,
		prefix:     cfg.Prefix,
		publicBase: strings.TrimRight(cfg.PublicBaseURL, "/"),
		presignTTL: ttl,
		newKey:     uuid.NewString,
	}
}

// Mirror downloads sourceURL, stores it under the configured prefix and
// returns a durable URL for it.
func (m *S3Mirror) Mirror(ctx context.Context, sourceURL string) (string, error) {
	raw, contentType, err := m.fetch(ctx, sourceURL)
	if err != nil {
		return "", err
	}

	key := m.prefix + m.newKey() + extensionFor(contentType)
	_, err = m.objects.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(m.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(raw),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("put object %s: %s: %w", key, apiErr.ErrorCode(), err)
		}
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	return m.objectURL(ctx, key)
}

func (m *S3Mirror) objectURL(ctx context.Context, key string) (string, error) {
	if m.publicBase != "" {
		return m.publicBase + "/" + key, nil
	}

	signed, err := m.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(m.presignTTL))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return signed.URL, nil
}

func (m *S3Mirror) fetch(ctx context.Context, sourceURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("new image request: %w", err)
	}

	resp, err := m.download.Do(req)
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
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mediaType
	} else {
		contentType = http.DetectContentType(raw)
	}
	return raw, contentType, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ""
	}
}
