package prerender

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Renderer returns the serialized DOM of the page at url.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// maxPageBytes bounds the body read by the HTTP renderer.
const maxPageBytes = 10 << 20

// StatusError is returned for a non-2xx response. Body holds what the
// server sent, which is still usable for error pages.
type StatusError struct {
	URL  string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Code)
}

// HTTPRenderer fetches pages with a plain GET. It sees only server-rendered
// markup and is used when no browser is available.
type HTTPRenderer struct {
	Client    *http.Client
	UserAgent string
}

// NewHTTPRenderer returns an HTTPRenderer whose requests time out after timeout.
func NewHTTPRenderer(timeout time.Duration) *HTTPRenderer {
	return &HTTPRenderer{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: "destino-prerender/1.0",
	}
}

// Render implements Renderer.
func (r *HTTPRenderer) Render(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	if r.UserAgent != "" {
		req.Header.Set("User-Agent", r.UserAgent)
	}
	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{URL: url, Code: resp.StatusCode, Body: string(body)}
	}
	return string(body), nil
}
