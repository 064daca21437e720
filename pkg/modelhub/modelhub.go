// Package modelhub downloads model files from a Hugging Face style hub and
// caches them on disk.
//
//	c := modelhub.NewClient(cacheDir, modelhub.WithBearerToken(os.Getenv("HUGGINGFACE_TOKEN")))
//	path, err := c.Fetch(ctx, "ericcbonet/cry_baby_lite", "model.onnx")
package modelhub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultBaseURL  = "https://huggingface.co"
	defaultRevision = "main"
	defaultTimeout  = 5 * time.Minute
)

// ErrMissingToken is returned when a download is needed and no token is set.
var ErrMissingToken = errors.New("modelhub: missing access token")

// StatusError is returned for a non-2xx response.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("modelhub: GET %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// clientConfig represents client configuration
type clientConfig struct {
	baseURL    string
	revision   string
	token      string
	httpClient *http.Client
	timeout    time.Duration
}

// Option represents configuration option function
type Option func(*clientConfig)

// WithBearerToken sets the access token.
// Header format: Authorization: Bearer {token}
func WithBearerToken(token string) Option {
	return func(c *clientConfig) {
		c.token = token
	}
}

// WithBaseURL sets the hub base URL
//
// Default: https://huggingface.co
func WithBaseURL(u string) Option {
	return func(c *clientConfig) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithRevision sets the branch, tag or commit to download from.
func WithRevision(rev string) Option {
	return func(c *clientConfig) {
		c.revision = rev
	}
}

// WithHTTPClient sets custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// Client fetches files into a local cache directory.
type Client struct {
	dir    string
	config *clientConfig
}

// NewClient creates a client caching under dir.
func NewClient(dir string, opts ...Option) *Client {
	config := &clientConfig{
		baseURL:  defaultBaseURL,
		revision: defaultRevision,
		timeout:  defaultTimeout,
	}
	for _, opt := range opts {
		opt(config)
	}
	if config.httpClient == nil {
		config.httpClient = &http.Client{
			Timeout: config.timeout,
		}
	}
	return &Client{dir: dir, config: config}
}

// Path returns where repo/file is cached.
func (c *Client) Path(repo, file string) string {
	return filepath.Join(c.dir, filepath.FromSlash(repo), c.config.revision, filepath.FromSlash(file))
}

// Fetch returns the local path of repo/file, downloading it first if it is
// not cached.
func (c *Client) Fetch(ctx context.Context, repo, file string) (string, error) {
	dst := c.Path(repo, file)
	if fi, err := os.Stat(dst); err == nil && fi.Mode().IsRegular() {
		slog.Debug("modelhub: cache hit", "path", dst)
		return dst, nil
	}
	if c.config.token == "" {
		return "", ErrMissingToken
	}

	u := fmt.Sprintf("%s/%s/resolve/%s/%s",
		c.config.baseURL, repo, url.PathEscape(c.config.revision), file)
	if err := c.download(ctx, u, dst); err != nil {
		return "", err
	}
	slog.Info("modelhub: downloaded", "repo", repo, "file", file, "path", dst)
	return dst, nil
}

func (c *Client) download(ctx context.Context, u, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("modelhub: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.token)

	resp, err := c.config.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("modelhub: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, URL: u}
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("modelhub: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".download-*")
	if err != nil {
		return fmt.Errorf("modelhub: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("modelhub: read body: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("modelhub: write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("modelhub: move file: %w", err)
	}
	return nil
}
