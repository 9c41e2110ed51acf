// Package catalogs contains one adapter per upstream book catalog. Every adapter builds its
// own query encoding and normalizes its own record shape into entities.Book; callers only
// see the Catalog interface.
package catalogs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mrlokans/bookbridge/internal/entities"
	"github.com/mrlokans/bookbridge/internal/lookup"
)

const (
	DefaultTimeout   = 15 * time.Second
	MaxTimeout       = 20 * time.Second
	DefaultUserAgent = "BookBridge/1.0 (+https://github.com/mrlokans/bookbridge)"

	// upstream JSON bodies larger than this are treated as broken
	maxResponseBytes = 16 << 20
)

// Catalog is the contract every upstream adapter implements.
type Catalog interface {
	Source() entities.SourceID
	// Search never returns a Go error: failures are reported inside the SourceResult.
	Search(ctx context.Context, query string, opts entities.SearchOptions) entities.SourceResult
	// Get fetches a single record by its native id.
	Get(ctx context.Context, nativeID string) (*entities.Book, error)
}

// Options configures an adapter. Zero values fall back to defaults.
type Options struct {
	BaseURL           string
	HTTPClient        *http.Client
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64 // 0 disables client-side throttling
	Tables            *lookup.Tables
	APIKey            string // Google Books only
}

// client is the HTTP plumbing shared by all adapters.
type client struct {
	source     entities.SourceID
	baseURL    string
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
	limiter    *rate.Limiter
}

func newClient(source entities.SourceID, defaultBaseURL string, opts Options) *client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	timeout = min(timeout, MaxTimeout)
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return &client{
		source:     source,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		userAgent:  userAgent,
		timeout:    timeout,
		limiter:    limiter,
	}
}

// getJSON issues one GET with a hard deadline and decodes a 200 response into out.
func (c *client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &UpstreamError{Source: c.source, Err: fmt.Errorf("throttle: %w", err)}
		}
	}

	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &UpstreamError{Source: c.source, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &UpstreamError{Source: c.source, Err: fmt.Errorf("fetch: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &UpstreamError{Source: c.source, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return &UpstreamError{Source: c.source, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// notFoundOr maps an upstream 404 to ErrBookNotFound.
func notFoundOr(err error) error {
	var upErr *UpstreamError
	if errors.As(err, &upErr) && upErr.StatusCode == http.StatusNotFound {
		return ErrBookNotFound
	}
	return err
}

// searchLanguages returns the ISO 639-1 codes a search should be restricted to. An explicit
// language wins; otherwise a known region contributes its languages.
func searchLanguages(opts entities.SearchOptions, tables *lookup.Tables) []string {
	if opts.Language != "" {
		return []string{opts.Language}
	}
	if opts.Region != "" {
		if r, ok := tables.Region(opts.Region); ok {
			return r.Languages
		}
	}
	return nil
}

// normalizeLanguages maps 3-letter codes to 2-letter ones where the table knows them.
func normalizeLanguages(codes []string, tables *lookup.Tables) []string {
	out := make([]string, 0, len(codes))
	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		code = strings.ToLower(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		if l, ok := tables.Language(code); ok {
			code = l.Code
		}
		if seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return entities.DisplayValues(out)
}

func limitBooks(books []entities.Book, limit int) []entities.Book {
	if limit <= 0 || len(books) <= limit {
		return books
	}
	return append([]entities.Book(nil), books[:limit]...)
}

func authorsFromNames(names []string) []entities.Author {
	authors := make([]entities.Author, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		authors = append(authors, entities.Author{Name: n})
	}
	return authors
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// extractYear tries to extract a 4-digit year from a date string.
func extractYear(dateStr string) int {
	dateStr = strings.TrimSpace(dateStr)
	if len(dateStr) < 4 {
		return 0
	}

	formats := []string{
		"2006",
		"2006-01-02",
		"2006-01",
		"January 2, 2006",
		"Jan 2, 2006",
		"January 2006",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t.Year()
		}
	}

	// Last resort: find 4 consecutive digits
	for i := 0; i <= len(dateStr)-4; i++ {
		if dateStr[i] >= '0' && dateStr[i] <= '9' {
			yearStr := dateStr[i : i+4]
			var year int
			if _, err := fmt.Sscanf(yearStr, "%d", &year); err == nil && year > 1000 && year < 3000 {
				return year
			}
		}
	}

	return 0
}
