package retrieval

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultMaxBodyBytes caps a single upstream response.
const DefaultMaxBodyBytes int64 = 32 << 20

// ErrBodyTooLarge is returned when a response exceeds the configured limit.
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Fetcher issues plain GET requests against the upstreams and returns the
// response body as text.
type Fetcher struct {
	Client       *http.Client
	UserAgent    string
	MaxBodyBytes int64
}

// NewFetcher creates a fetcher with the given per-request timeout.
func NewFetcher(timeout time.Duration, userAgent string, maxBody int64) *Fetcher {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return &Fetcher{
		Client:       &http.Client{Timeout: timeout},
		UserAgent:    userAgent,
		MaxBodyBytes: maxBody,
	}
}

func (f *Fetcher) client() *http.Client {
	if f == nil || f.Client == nil {
		return http.DefaultClient
	}
	return f.Client
}

// GetText fetches url and returns its body with a leading UTF-8 BOM removed
// and invalid UTF-8 sequences replaced. A non-2xx status fails with
// "HTTP <status>".
func (f *Fetcher) GetText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if f != nil && f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	resp, err := f.client().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	limit := DefaultMaxBodyBytes
	if f != nil && f.MaxBodyBytes > 0 {
		limit = f.MaxBodyBytes
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > limit {
		return "", ErrBodyTooLarge
	}

	return cleanText(body), nil
}

// cleanText strips a UTF-8 byte order mark and replaces invalid sequences
// with U+FFFD.
func cleanText(body []byte) string {
	body = bytes.TrimPrefix(body, utf8BOM)
	return strings.ToValidUTF8(string(body), "\uFFFD")
}
