package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookbridge/internal/aggregator"
	"github.com/mrlokans/bookbridge/internal/catalogs"
	"github.com/mrlokans/bookbridge/internal/convert"
	"github.com/mrlokans/bookbridge/internal/downloads"
	"github.com/mrlokans/bookbridge/internal/entities"
	"github.com/mrlokans/bookbridge/internal/services"
)

const searchFixture = `{"count": 1, "results": [{
  "id": 1342,
  "title": "Pride and Prejudice",
  "authors": [{"name": "Austen, Jane", "birth_year": 1775, "death_year": 1817}],
  "languages": ["en"],
  "formats": {}
}]}`

func searchService(t *testing.T) *services.SearchService {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(searchFixture))
	}))
	t.Cleanup(server.Close)

	coordinator := aggregator.NewCoordinator([]catalogs.Catalog{
		catalogs.NewGutendex(catalogs.Options{BaseURL: server.URL}),
	}, time.Second)
	return services.NewSearchService(coordinator, nil, nil)
}

func TestSearchCommandParseFlags(t *testing.T) {
	cmd := NewSearchCommand()
	require.NoError(t, cmd.ParseFlags([]string{"-sources", "gutendex", "-limit", "5", "pride", "and", "prejudice"}))

	assert.Equal(t, "pride and prejudice", cmd.Query)
	assert.Equal(t, "gutendex", cmd.Sources)
	assert.Equal(t, 5, cmd.Options.Limit)

	assert.Error(t, NewSearchCommand().ParseFlags([]string{"-json"}))
}

func TestSearchCommandTable(t *testing.T) {
	var out bytes.Buffer
	cmd := &SearchCommand{Query: "pride", Sources: "gutendex, nowhere", out: &out}

	require.NoError(t, cmd.run(context.Background(), searchService(t)))

	text := out.String()
	assert.Contains(t, text, `Search: "pride" (1 books)`)
	assert.Contains(t, text, "gutendex:1342")
	assert.Contains(t, text, "Austen, Jane")
	assert.Contains(t, text, "gutendex     ok      1 results")
	assert.Contains(t, text, "nowhere      failed  unknown source: nowhere")
}

func TestSearchCommandJSON(t *testing.T) {
	var out bytes.Buffer
	cmd := &SearchCommand{Query: "pride", JSON: true, out: &out}

	require.NoError(t, cmd.run(context.Background(), searchService(t)))

	var resp services.SearchResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, "Pride and Prejudice", *resp.Books[0].Title)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc…", truncate("abcdef", 4))
}

func downloadService(t *testing.T) *services.DownloadService {
	t.Helper()
	body := bytes.Repeat([]byte("A"), 2048)
	mirror := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/files/84/84-0.txt" {
			_, _ = w.Write(body)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(mirror.Close)

	resolver := downloads.NewResolver(downloads.Options{GutenbergURL: mirror.URL, DisableFallback: true})
	return services.NewDownloadService(resolver, convert.NewConverter(convert.Options{}))
}

func TestDownloadCommandWritesFile(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	cmd := &DownloadCommand{Source: "gutendex", ID: "gutendex:84", Format: "txt", OutputDir: dir, out: &out}
	svc := downloadService(t)

	require.NoError(t, cmd.run(context.Background(), svc))

	data, err := os.ReadFile(filepath.Join(dir, "book-84.txt"))
	require.NoError(t, err)
	assert.Len(t, data, 2048)
	assert.Contains(t, out.String(), "2048 bytes")

	// A second run refuses to overwrite without -force
	err = cmd.run(context.Background(), svc)
	assert.ErrorContains(t, err, "already exists")

	cmd.Force = true
	assert.NoError(t, cmd.run(context.Background(), svc))
}

func TestDownloadCommandErrors(t *testing.T) {
	svc := downloadService(t)

	cmd := &DownloadCommand{Source: "gutendex", ID: "85", Format: "txt", OutputDir: t.TempDir(), out: &bytes.Buffer{}}
	assert.ErrorIs(t, cmd.run(context.Background(), svc), downloads.ErrNotFound)

	cmd = &DownloadCommand{Source: "nowhere", ID: "85", OutputDir: t.TempDir(), out: &bytes.Buffer{}}
	assert.Error(t, cmd.run(context.Background(), svc))

	assert.Error(t, NewDownloadCommand().ParseFlags([]string{"-format", "pdf"}))
}

func TestDownloadCommandDefaults(t *testing.T) {
	cmd := NewDownloadCommand()
	require.NoError(t, cmd.ParseFlags([]string{"-id", "1342"}))
	assert.Equal(t, string(entities.SourceGutendex), cmd.Source)
	assert.Equal(t, string(entities.FormatEPUB), cmd.Format)
}
