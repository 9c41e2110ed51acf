// Package downloads locates book files on upstream mirrors. Each (source, id, format) maps to
// an ordered list of candidate URLs which are probed until one returns a plausible file.
package downloads

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/mrlokans/bookbridge/internal/entities"
)

const (
	DefaultProbeTimeout  = 30 * time.Second
	DefaultStreamTimeout = 10 * time.Minute
	DefaultUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// Options configures a Resolver. Zero values fall back to defaults.
type Options struct {
	HTTPClient         *http.Client
	UserAgent          string
	ProbeTimeout       time.Duration // headers plus validation bytes
	StreamTimeout      time.Duration // whole transfer once a candidate is accepted
	GutenbergURL       string
	ArchiveDownloadURL string
	DisableFallback    bool
}

// Download is an accepted candidate. The caller must close Body.
type Download struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64 // -1 when unknown
	URL           string
	Source        entities.SourceID
	Format        entities.Format
}

// Resolver probes candidate URLs in order.
type Resolver struct {
	httpClient    *http.Client
	userAgent     string
	probeTimeout  time.Duration
	streamTimeout time.Duration
	gutenbergURL  string
	archiveURL    string
	fallbacks     map[entities.SourceID]entities.SourceID
}

// NewResolver creates a Resolver.
func NewResolver(opts Options) *Resolver {
	r := &Resolver{
		httpClient:    opts.HTTPClient,
		userAgent:     opts.UserAgent,
		probeTimeout:  opts.ProbeTimeout,
		streamTimeout: opts.StreamTimeout,
		gutenbergURL:  trimBase(opts.GutenbergURL),
		archiveURL:    trimBase(opts.ArchiveDownloadURL),
	}
	if r.httpClient == nil {
		// no client-wide timeout: it would cut long transfers, contexts bound each request instead
		r.httpClient = &http.Client{}
	}
	if r.userAgent == "" {
		r.userAgent = DefaultUserAgent
	}
	if r.probeTimeout <= 0 {
		r.probeTimeout = DefaultProbeTimeout
	}
	if r.streamTimeout <= 0 {
		r.streamTimeout = DefaultStreamTimeout
	}
	if r.gutenbergURL == "" {
		r.gutenbergURL = DefaultGutenbergURL
	}
	if r.archiveURL == "" {
		r.archiveURL = DefaultArchiveDownloadURL
	}
	if !opts.DisableFallback {
		// The Archive mirrors many Gutenberg texts. Ids are assumed to be shared, which only
		// holds for some items.
		r.fallbacks = map[entities.SourceID]entities.SourceID{
			entities.SourceGutendex: entities.SourceArchive,
			entities.SourceArchive:  entities.SourceGutendex,
		}
	}
	return r
}

// Supports reports whether downloads can be resolved for a source.
func (r *Resolver) Supports(source entities.SourceID) bool {
	return source == entities.SourceGutendex || source == entities.SourceArchive
}

// Resolve returns the first candidate that validates, trying the fallback source after the
// primary list is exhausted. Individual candidate failures are never returned; only
// ErrNotFound after exhaustion.
func (r *Resolver) Resolve(ctx context.Context, source entities.SourceID, nativeID string, format entities.Format) (*Download, error) {
	if _, err := entities.ParseFormat(string(format)); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if !r.Supports(source) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, source)
	}
	nativeID = entities.StripSourcePrefix(source, nativeID)

	chain := []entities.SourceID{source}
	if fb, ok := r.fallbacks[source]; ok {
		chain = append(chain, fb)
	}

	for _, src := range chain {
		candidates, err := r.Candidates(src, nativeID, format)
		if err != nil {
			return nil, err
		}
		for _, c := range candidates {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			dl, err := r.probe(ctx, c)
			if err != nil {
				log.Printf("[DOWNLOAD] candidate rejected %s: %v", c.URL, err)
				continue
			}
			dl.Source = src
			dl.Format = format
			if src != source {
				log.Printf("[DOWNLOAD] %s:%s served from fallback source %s", source, nativeID, src)
			}
			return dl, nil
		}
	}
	return nil, ErrNotFound
}

// probe fetches one candidate and validates it from headers and at most MinBytes of body.
func (r *Resolver) probe(ctx context.Context, c Candidate) (*Download, error) {
	ctx, cancel := context.WithCancel(ctx)
	deadline := time.AfterFunc(r.probeTimeout, cancel)

	fail := func(err error) (*Download, error) {
		deadline.Stop()
		cancel()
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return fail(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fail(fmt.Errorf("fetch: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return fail(fmt.Errorf("%w: HTTP %d", errCandidateRejected, resp.StatusCode))
	}
	if resp.ContentLength >= 0 && resp.ContentLength < c.MinBytes {
		resp.Body.Close()
		return fail(fmt.Errorf("%w: %d bytes", errTooSmall, resp.ContentLength))
	}

	var body io.Reader = resp.Body
	if resp.ContentLength < 0 {
		br := bufio.NewReaderSize(resp.Body, int(max(c.MinBytes, 4096)))
		if peeked, err := br.Peek(int(c.MinBytes)); err != nil {
			resp.Body.Close()
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return fail(fmt.Errorf("%w: %d bytes", errTooSmall, len(peeked)))
			}
			return fail(fmt.Errorf("read: %w", err))
		}
		body = br
	}

	// accepted: swap the probe deadline for the transfer deadline. A deadline that already
	// fired has cancelled the request, so the body is dead.
	if !deadline.Stop() {
		resp.Body.Close()
		return fail(fmt.Errorf("probe: %w", context.DeadlineExceeded))
	}
	transfer := time.AfterFunc(r.streamTimeout, cancel)

	return &Download{
		Body:          &stream{Reader: body, body: resp.Body, cancel: cancel, timer: transfer},
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
		URL:           c.URL,
	}, nil
}

// stream releases the request context when the caller closes the body.
type stream struct {
	io.Reader
	body   io.Closer
	cancel context.CancelFunc
	timer  *time.Timer
}

func (s *stream) Close() error {
	s.timer.Stop()
	err := s.body.Close()
	s.cancel()
	return err
}
