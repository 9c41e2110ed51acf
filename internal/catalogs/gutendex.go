package catalogs

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/mrlokans/bookbridge/internal/entities"
	"github.com/mrlokans/bookbridge/internal/lookup"
)

const gutendexBaseURL = "https://gutendex.com"

// Gutendex searches Project Gutenberg through the gutendex.com JSON API.
type Gutendex struct {
	client *client
	tables *lookup.Tables
}

// NewGutendex creates a Gutendex adapter.
func NewGutendex(opts Options) *Gutendex {
	return &Gutendex{
		client: newClient(entities.SourceGutendex, gutendexBaseURL, opts),
		tables: opts.Tables,
	}
}

type gutendexResponse struct {
	Count   flexInt               `json:"count"`
	Results records[gutendexBook] `json:"results"`
}

type gutendexPerson struct {
	Name      string `json:"name"`
	BirthYear *int   `json:"birth_year"`
	DeathYear *int   `json:"death_year"`
}

type gutendexBook struct {
	ID            int                     `json:"id"`
	Title         *string                 `json:"title"`
	Authors       records[gutendexPerson] `json:"authors"`
	Subjects      []string                `json:"subjects"`
	Bookshelves   []string                `json:"bookshelves"`
	Languages     []string                `json:"languages"`
	MediaType     string                  `json:"media_type"`
	Formats       map[string]string       `json:"formats"`
	DownloadCount int                     `json:"download_count"`
}

func (g *Gutendex) Source() entities.SourceID { return entities.SourceGutendex }

func (g *Gutendex) Search(ctx context.Context, query string, opts entities.SearchOptions) entities.SourceResult {
	opts = opts.Normalized()

	var resp gutendexResponse
	if err := g.client.getJSON(ctx, "/books/", g.searchParams(query, opts), &resp); err != nil {
		return entities.FailedResult(g.Source(), err)
	}

	books := make([]entities.Book, 0, len(resp.Results))
	for _, rec := range resp.Results {
		if rec.ID <= 0 {
			continue
		}
		books = append(books, normalizeGutendex(rec))
	}

	total := int(resp.Count)
	return entities.SourceResult{
		Success: true,
		Source:  g.Source(),
		Books:   limitBooks(books, opts.Limit),
		Total:   &total,
	}
}

func (g *Gutendex) Get(ctx context.Context, nativeID string) (*entities.Book, error) {
	id, err := strconv.Atoi(entities.StripSourcePrefix(g.Source(), nativeID))
	if err != nil || id <= 0 {
		return nil, ErrBookNotFound
	}

	var one lenient[gutendexBook]
	if err := g.client.getJSON(ctx, "/books/"+strconv.Itoa(id)+"/", nil, &one); err != nil {
		return nil, notFoundOr(err)
	}
	rec := one.Value
	if rec.ID <= 0 {
		return nil, ErrBookNotFound
	}
	book := normalizeGutendex(rec)
	return &book, nil
}

// searchParams encodes options for gutendex. Gutendex pages in fixed blocks of 32 records
// and has no page size parameter, so page N is always upstream records 32(N-1)+1 to 32N and
// limit only trims that block: page=2&limit=20 yields records 33-52, not 21-40. Mapping
// page/limit onto 32-record blocks would take a second request whenever a window straddles
// two blocks.
func (g *Gutendex) searchParams(query string, opts entities.SearchOptions) url.Values {
	params := url.Values{}

	terms := strings.TrimSpace(strings.Join([]string{query, opts.Author}, " "))
	if terms != "" {
		params.Set("search", terms)
	}
	if langs := searchLanguages(opts, g.tables); len(langs) > 0 {
		params.Set("languages", strings.Join(langs, ","))
	}
	if opts.Topic != "" {
		params.Set("topic", opts.Topic)
	}
	if opts.Page > 1 {
		params.Set("page", strconv.Itoa(opts.Page))
	}
	switch opts.Sort {
	case entities.SortPopular:
		params.Set("sort", "popular")
	case entities.SortNewest:
		params.Set("sort", "descending")
	case entities.SortOldest:
		params.Set("sort", "ascending")
	}
	return params
}

// gutendexTextKeys lists plain-text MIME keys in preference order.
var gutendexTextKeys = []string{
	"text/plain; charset=utf-8",
	"text/plain; charset=us-ascii",
	"text/plain",
}

func normalizeGutendex(rec gutendexBook) entities.Book {
	nativeID := strconv.Itoa(rec.ID)
	book := entities.NewBook(entities.SourceGutendex, nativeID)

	if rec.Title != nil {
		book.Title = entities.StringPtr(*rec.Title)
	}
	for _, a := range rec.Authors {
		if strings.TrimSpace(a.Name) == "" {
			continue
		}
		book.Authors = append(book.Authors, entities.Author{
			Name:      strings.TrimSpace(a.Name),
			BirthYear: a.BirthYear,
			DeathYear: a.DeathYear,
		})
	}
	book.Subjects = entities.DisplayValues(append(append([]string{}, rec.Subjects...), rec.Bookshelves...))
	book.Languages = entities.DisplayValues(rec.Languages)
	book.DownloadCount = entities.IntPtr(rec.DownloadCount)
	book.InfoURL = "https://www.gutenberg.org/ebooks/" + nativeID

	if epub := rec.Formats["application/epub+zip"]; epub != "" {
		book.Formats[string(entities.FormatEPUB)] = epub
	}
	if mobi := rec.Formats["application/x-mobipocket-ebook"]; mobi != "" {
		book.Formats[string(entities.FormatMOBI)] = mobi
		book.Formats[string(entities.FormatKindle)] = entities.FormatAvailable
	}
	if txt := gutendexText(rec.Formats); txt != "" {
		book.Formats[string(entities.FormatTXT)] = txt
	}
	if html := rec.Formats["text/html"]; html != "" {
		book.Formats["html"] = html
	}
	// PDF is rendered from the EPUB on request
	book.Formats[string(entities.FormatPDF)] = entities.FormatAvailable

	if cover := rec.Formats["image/jpeg"]; cover != "" {
		book.Covers = entities.Covers{
			Small:  strings.Replace(cover, ".medium.", ".small.", 1),
			Medium: cover,
			Large:  cover,
		}
	}
	return book
}

func gutendexText(formats map[string]string) string {
	for _, key := range gutendexTextKeys {
		if u := formats[key]; u != "" {
			return u
		}
	}
	keys := make([]string, 0, len(formats))
	for k := range formats {
		if strings.HasPrefix(k, "text/plain") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if formats[k] != "" {
			return formats[k]
		}
	}
	return ""
}
