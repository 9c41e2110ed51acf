package http

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookbridge/internal/aggregator"
	"github.com/mrlokans/bookbridge/internal/auth"
	"github.com/mrlokans/bookbridge/internal/cache"
	"github.com/mrlokans/bookbridge/internal/catalogs"
	"github.com/mrlokans/bookbridge/internal/config"
	"github.com/mrlokans/bookbridge/internal/convert"
	"github.com/mrlokans/bookbridge/internal/downloads"
	"github.com/mrlokans/bookbridge/internal/entities"
	"github.com/mrlokans/bookbridge/internal/lookup"
	"github.com/mrlokans/bookbridge/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubCatalog struct {
	source entities.SourceID
	fail   bool
}

func (s *stubCatalog) Source() entities.SourceID { return s.source }

func (s *stubCatalog) Search(_ context.Context, query string, _ entities.SearchOptions) entities.SourceResult {
	if s.fail {
		return entities.FailedResult(s.source, &catalogs.UpstreamError{Source: s.source, StatusCode: http.StatusServiceUnavailable})
	}
	book := entities.NewBook(s.source, "1")
	book.Title = entities.StringPtr(query)
	return entities.SourceResult{Success: true, Source: s.source, Books: []entities.Book{book}}
}

func (s *stubCatalog) Get(_ context.Context, nativeID string) (*entities.Book, error) {
	switch nativeID {
	case "404":
		return nil, catalogs.ErrBookNotFound
	case "502":
		return nil, &catalogs.UpstreamError{Source: s.source, StatusCode: http.StatusBadGateway}
	}
	book := entities.NewBook(s.source, nativeID)
	book.Title = entities.StringPtr("Pride and Prejudice")
	return &book, nil
}

// storedEPUB builds an uncompressed EPUB so it clears the minimum download size.
func storedEPUB(t *testing.T, text string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	write := func(name, content string) {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	write("mimetype", "application/epub+zip")
	write("META-INF/container.xml", `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles><rootfile full-path="content.opf" media-type="application/oebps-package+xml"/></rootfiles>
</container>`)
	write("content.opf", `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <manifest><item id="c1" href="c1.xhtml" media-type="application/xhtml+xml"/></manifest>
  <spine><itemref idref="c1"/></spine>
</package>`)
	write("c1.xhtml", `<html><body><p>`+text+`</p></body></html>`)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

type testEnv struct {
	router  *gin.Engine
	mirror  *httptest.Server
	limiter *auth.RateLimiter
}

func setupRouter(t *testing.T, authCfg config.Auth, rps float64) *testEnv {
	t.Helper()

	epub := storedEPUB(t, strings.Repeat("Lorem ipsum dolor sit amet. ", 120))
	mirror := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/files/84/84-0.epub", r.URL.Path == "/ebooks/84.epub.images":
			w.Header().Set("Content-Type", "application/epub+zip")
			_, _ = w.Write(epub)
		case r.URL.Path == "/files/85/85-0.epub", r.URL.Path == "/ebooks/85.epub.images":
			_, _ = w.Write(bytes.Repeat([]byte("x"), 4096))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(mirror.Close)

	coordinator := aggregator.NewCoordinator([]catalogs.Catalog{
		&stubCatalog{source: entities.SourceGutendex},
		&stubCatalog{source: entities.SourceOpenLibrary, fail: true},
	}, time.Second)
	results := cache.New[entities.MergedResult](time.Minute, 100)
	books := cache.New[entities.Book](time.Minute, 100)

	resolver := downloads.NewResolver(downloads.Options{
		GutenbergURL:       mirror.URL,
		ArchiveDownloadURL: mirror.URL + "/download",
		ProbeTimeout:       2 * time.Second,
		DisableFallback:    true,
	})
	converter := convert.NewConverter(convert.Options{ChunkSize: 100, MaxChunks: 3})

	limiter := auth.NewRateLimiter(auth.RateLimitConfig{RequestsPerSecond: rps, Burst: 2, CleanupInterval: time.Hour})
	t.Cleanup(limiter.Stop)

	router := NewRouter(RouterConfig{
		SearchService:   services.NewSearchService(coordinator, results, books),
		DownloadService: services.NewDownloadService(resolver, converter),
		Tables:          lookup.MustDefault(),
		AuthMiddleware:  auth.NewMiddleware(authCfg),
		RateLimiter:     limiter,
		Caches:          map[string]StatsReporter{"search": results, "books": books},
		Version:         "test",
	})
	return &testEnv{router: router, mirror: mirror, limiter: limiter}
}

func get(router *gin.Engine, path string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func noAuth() config.Auth { return config.Auth{Mode: config.AuthModeNone} }

func TestSearchEndpoint(t *testing.T) {
	env := setupRouter(t, noAuth(), 0)

	t.Run("missing q is a bad request", func(t *testing.T) {
		w := get(env.router, "/v1/search")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "missing query parameter 'q'")
	})

	t.Run("invalid page", func(t *testing.T) {
		w := get(env.router, "/v1/search?q=austen&page=abc")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("partial failure still answers 200", func(t *testing.T) {
		w := get(env.router, "/v1/search?q=austen")
		require.Equal(t, http.StatusOK, w.Code)

		var resp services.SearchResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "austen", resp.Query)
		assert.Equal(t, 1, resp.Total)
		assert.Equal(t, []entities.SourceID{entities.SourceGutendex, entities.SourceOpenLibrary}, resp.Sources)
		assert.True(t, resp.PerSourceStatus[entities.SourceGutendex].Success)
		assert.False(t, resp.PerSourceStatus[entities.SourceOpenLibrary].Success)
		assert.Contains(t, resp.PerSourceStatus[entities.SourceOpenLibrary].Error, "503")
	})

	t.Run("unknown source is reported per source", func(t *testing.T) {
		w := get(env.router, "/v1/search?q=austen&sources=gutendex,nowhere")
		require.Equal(t, http.StatusOK, w.Code)

		var resp services.SearchResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "unknown source: nowhere", resp.PerSourceStatus["nowhere"].Error)
	})

	t.Run("second identical search is cached", func(t *testing.T) {
		first := get(env.router, "/v1/search?q=dickens&sources=gutendex")
		second := get(env.router, "/v1/search?q=dickens&sources=gutendex")
		assert.Contains(t, first.Body.String(), `"cached":false`)
		assert.Contains(t, second.Body.String(), `"cached":true`)
	})
}

func TestBooksEndpoint(t *testing.T) {
	env := setupRouter(t, noAuth(), 0)

	tests := []struct {
		path   string
		status int
	}{
		{"/v1/books/gutendex/1342", http.StatusOK},
		{"/v1/books/gutendex/gutendex:1342", http.StatusOK},
		{"/v1/books/gutendex/404", http.StatusNotFound},
		{"/v1/books/gutendex/502", http.StatusBadGateway},
		{"/v1/books/nowhere/1", http.StatusBadRequest},
		{"/v1/books/archive/1", http.StatusBadRequest}, // valid source, not enabled
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := get(env.router, tt.path)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	w := get(env.router, "/v1/books/gutendex/1342")
	assert.Contains(t, w.Body.String(), `"id":"gutendex:1342"`)
	assert.Contains(t, w.Body.String(), `"authors":[]`)
}

func TestDownloadEndpoint(t *testing.T) {
	env := setupRouter(t, noAuth(), 0)

	t.Run("streams epub with attachment name", func(t *testing.T) {
		w := get(env.router, "/v1/download/gutendex/84")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/epub+zip", w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="book-84.epub"`, w.Header().Get("Content-Disposition"))
		assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))
	})

	t.Run("renders pdf and flags truncation", func(t *testing.T) {
		w := get(env.router, "/v1/download/gutendex:84/84?format=pdf")
		assert.Equal(t, http.StatusBadRequest, w.Code, "source segment must be a plain source name")

		w = get(env.router, "/v1/download/gutendex/gutendex:84?format=pdf")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="book-84.pdf"`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, "true", w.Header().Get(TruncatedHeader))
		assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))
	})

	t.Run("broken epub is unprocessable", func(t *testing.T) {
		w := get(env.router, "/v1/download/gutendex/85?format=pdf")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), CodeConversionFailed)
	})

	t.Run("error mapping", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, get(env.router, "/v1/download/gutendex/999").Code)
		assert.Equal(t, http.StatusBadRequest, get(env.router, "/v1/download/gutendex/84?format=docx").Code)
		assert.Equal(t, http.StatusBadRequest, get(env.router, "/v1/download/googlebooks/abc").Code)
		assert.Equal(t, http.StatusBadRequest, get(env.router, "/v1/download/nowhere/abc").Code)
	})
}

func TestLookupEndpoints(t *testing.T) {
	env := setupRouter(t, noAuth(), 0)

	w := get(env.router, "/v1/sources")
	require.Equal(t, http.StatusOK, w.Code)
	var sources struct {
		Sources []SourceInfo `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sources))
	require.Len(t, sources.Sources, 4)
	assert.Equal(t, SourceInfo{ID: entities.SourceGutendex, Enabled: true, Downloads: true}, sources.Sources[0])
	assert.Equal(t, SourceInfo{ID: entities.SourceGoogleBooks, Enabled: false, Downloads: false}, sources.Sources[3])

	w = get(env.router, "/v1/languages?q=swah")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"sw"`)
	assert.NotContains(t, w.Body.String(), `"code":"fr"`)

	w = get(env.router, "/v1/regions?q=kenya")
	assert.Contains(t, w.Body.String(), `"code":"KE"`)

	w = get(env.router, "/v1/collections")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPublicEndpointsAndFallback(t *testing.T) {
	env := setupRouter(t, config.Auth{Mode: config.AuthModeAPIKey, APIKeys: []string{"secret"}}, 0)

	w := get(env.router, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/v1/search")

	w = get(env.router, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Contains(t, health.Caches, "search")

	w = get(env.router, "/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"endpoint not found"}`, w.Body.String())

	assert.NotEmpty(t, w.Header().Get(auth.RequestIDHeader))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestAPIKeyAndRateLimit(t *testing.T) {
	env := setupRouter(t, config.Auth{Mode: config.AuthModeAPIKey, APIKeys: []string{"secret"}}, 0.01)

	assert.Equal(t, http.StatusUnauthorized, get(env.router, "/v1/sources").Code)
	assert.Equal(t, http.StatusUnauthorized, get(env.router, "/v1/sources", auth.APIKeyHeader, "wrong").Code)

	// Burst of 2 per key
	assert.Equal(t, http.StatusOK, get(env.router, "/v1/sources", auth.APIKeyHeader, "secret").Code)
	assert.Equal(t, http.StatusOK, get(env.router, "/v1/sources", "Authorization", "Bearer secret").Code)

	w := get(env.router, "/v1/sources", auth.APIKeyHeader, "secret")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Rejected keys never reach the limiter
	assert.Equal(t, 1, env.limiter.Len())
}
