package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"animrig/internal/config"
)

// HTTPDoer describes the HTTP client used by the storage service.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client downloads and uploads objects over the storage HTTP endpoint.
// A disabled client rejects every remote operation so callers can fail fast
// on gs:// references in local-only deployments.
type Client struct {
	endpoint string
	token    string
	enabled  bool
	client   HTTPDoer
}

// NewClient builds a storage client from configuration.
func NewClient(cfg *config.Config) *Client {
	if cfg == nil {
		return &Client{}
	}
	httpClient := &http.Client{}
	if cfg.Storage.TimeoutSeconds > 0 {
		httpClient.Timeout = time.Duration(cfg.Storage.TimeoutSeconds) * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(strings.TrimSpace(cfg.Storage.Endpoint), "/"),
		token:    strings.TrimSpace(cfg.Storage.Token),
		enabled:  cfg.Storage.Enabled,
		client:   httpClient,
	}
}

// NewHTTPClient constructs a client with an injected HTTP implementation
// (primarily for tests).
func NewHTTPClient(endpoint, token string, doer HTTPDoer) *Client {
	return &Client{
		endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		token:    strings.TrimSpace(token),
		enabled:  true,
		client:   doer,
	}
}

// Enabled reports whether remote storage access is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil && c.endpoint != ""
}

// Download fetches the object named by uri into dest.
func (c *Client) Download(ctx context.Context, uri, dest string) error {
	objectURL, err := c.objectURL(uri)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, objectURL, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", uri, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: storage returned %d", uri, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create download directory: %w", err)
	}
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = os.Remove(dest)
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return out.Close()
}

// Upload stores the local file src at the object named by uri.
func (c *Client) Upload(ctx context.Context, src, uri string) error {
	objectURL, err := c.objectURL(uri)
	if err != nil {
		return err
	}

	file, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, objectURL, file)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", "application/octet-stream")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", uri, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("upload %s: storage returned %d", uri, resp.StatusCode)
	}
	return nil
}

func (c *Client) objectURL(uri string) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("remote storage is disabled: cannot access %s", uri)
	}
	bucket, key, err := SplitURI(uri)
	if err != nil {
		return "", err
	}
	escaped := make([]string, 0, 4)
	for _, part := range strings.Split(key, "/") {
		escaped = append(escaped, url.PathEscape(part))
	}
	return c.endpoint + "/" + bucket + "/" + strings.Join(escaped, "/"), nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
