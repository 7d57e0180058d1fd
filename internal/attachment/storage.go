// Package attachment uploads problem figures to the object storage bucket and
// returns their public URLs.
package attachment

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/at-ishikawa/osolnote/internal/config"
)

var (
	ErrEmpty    = errors.New("attachment is empty")
	ErrTooLarge = errors.New("attachment is too large")
)

//go:generate mockgen -source=storage.go -destination=../mocks/attachment/mock_storage.go -package=mock_attachment

// Uploader stores a file and returns the URL it is served from.
type Uploader interface {
	Upload(ctx context.Context, filename string, content []byte) (string, error)
}

// StorageClient uploads to a storage API that serves objects at
// /storage/v1/object/public/{bucket}/{name}.
type StorageClient struct {
	client   *resty.Client
	endpoint string
	bucket   string
	maxBytes int64
	now      func() time.Time
	newID    func() string
}

// NewStorageClient creates a new StorageClient.
func NewStorageClient(cfg config.StorageConfig) *StorageClient {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(30 * time.Second)
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey).
			SetHeader("apikey", cfg.APIKey)
	}
	return &StorageClient{
		client:   client,
		endpoint: endpoint,
		bucket:   cfg.Bucket,
		maxBytes: cfg.MaxUploadBytes,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Upload stores content under a fresh object name that keeps the extension
// of filename.
func (c *StorageClient) Upload(ctx context.Context, filename string, content []byte) (string, error) {
	if len(content) == 0 {
		return "", ErrEmpty
	}
	if c.maxBytes > 0 && int64(len(content)) > c.maxBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(content), c.maxBytes)
	}
	if c.endpoint == "" {
		return "", fmt.Errorf("storage endpoint is not configured")
	}

	name := c.objectName(filename)
	res, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType(filename, content)).
		SetBody(content).
		SetPathParams(map[string]string{"bucket": c.bucket, "name": name}).
		Post("/storage/v1/object/{bucket}/{name}")
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	if res.IsError() {
		return "", fmt.Errorf("upload %s: status code: %d, body: %s", name, res.StatusCode(), res.String())
	}
	return c.PublicURL(name), nil
}

// PublicURL returns the URL an uploaded object is served from.
func (c *StorageClient) PublicURL(name string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.endpoint, c.bucket, name)
}

func (c *StorageClient) objectName(filename string) string {
	name := fmt.Sprintf("%d-%s", c.now().UnixMilli(), c.newID())
	if ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")); ext != "" {
		name += "." + ext
	}
	return name
}

func contentType(filename string, content []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(filename)); t != "" {
		return t
	}
	return http.DetectContentType(content)
}
