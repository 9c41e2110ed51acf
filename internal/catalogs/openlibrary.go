package catalogs

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mrlokans/bookbridge/internal/entities"
	"github.com/mrlokans/bookbridge/internal/lookup"
)

const (
	openLibraryBaseURL   = "https://openlibrary.org"
	openLibraryCoversURL = "https://covers.openlibrary.org"
	archiveDownloadURL   = "https://archive.org/download"
)

// openLibraryFields is the projection requested from search.json.
var openLibraryFields = []string{
	"key", "title", "subtitle", "author_name", "first_publish_year", "cover_i", "isbn",
	"language", "subject", "publisher", "edition_count", "ebook_access", "ia",
	"ratings_average", "number_of_pages_median",
}

// OpenLibrary searches the Open Library works index.
type OpenLibrary struct {
	client *client
	tables *lookup.Tables
}

// NewOpenLibrary creates an Open Library adapter.
func NewOpenLibrary(opts Options) *OpenLibrary {
	return &OpenLibrary{
		client: newClient(entities.SourceOpenLibrary, openLibraryBaseURL, opts),
		tables: opts.Tables,
	}
}

type openLibrarySearchResponse struct {
	NumFound flexInt                 `json:"numFound"`
	Docs     records[openLibraryDoc] `json:"docs"`
}

type openLibraryDoc struct {
	Key                 string   `json:"key"`
	Title               *string  `json:"title"`
	Subtitle            string   `json:"subtitle"`
	AuthorName          []string `json:"author_name"`
	FirstPublishYear    int      `json:"first_publish_year"`
	CoverI              int      `json:"cover_i"`
	ISBN                []string `json:"isbn"`
	Language            []string `json:"language"`
	Subject             []string `json:"subject"`
	Publisher           []string `json:"publisher"`
	EditionCount        int      `json:"edition_count"`
	EbookAccess         string   `json:"ebook_access"`
	IA                  []string `json:"ia"`
	RatingsAverage      float64  `json:"ratings_average"`
	NumberOfPagesMedian int      `json:"number_of_pages_median"`
}

func (o *OpenLibrary) Source() entities.SourceID { return entities.SourceOpenLibrary }

func (o *OpenLibrary) Search(ctx context.Context, query string, opts entities.SearchOptions) entities.SourceResult {
	opts = opts.Normalized()

	var resp openLibrarySearchResponse
	if err := o.client.getJSON(ctx, "/search.json", o.searchParams(query, opts), &resp); err != nil {
		return entities.FailedResult(o.Source(), err)
	}

	books := make([]entities.Book, 0, len(resp.Docs))
	for _, doc := range resp.Docs {
		if workID(doc.Key) == "" {
			continue
		}
		books = append(books, normalizeOpenLibrary(doc, o.tables))
	}

	total := int(resp.NumFound)
	return entities.SourceResult{
		Success: true,
		Source:  o.Source(),
		Books:   limitBooks(books, opts.Limit),
		Total:   &total,
	}
}

// Get looks a work up through the search index so the record has the same shape as
// search results.
func (o *OpenLibrary) Get(ctx context.Context, nativeID string) (*entities.Book, error) {
	id := workID(entities.StripSourcePrefix(o.Source(), nativeID))
	if id == "" {
		return nil, ErrBookNotFound
	}

	params := url.Values{}
	params.Set("q", "key:/works/"+id)
	params.Set("fields", strings.Join(openLibraryFields, ","))
	params.Set("limit", "1")

	var resp openLibrarySearchResponse
	if err := o.client.getJSON(ctx, "/search.json", params, &resp); err != nil {
		return nil, notFoundOr(err)
	}
	if len(resp.Docs) == 0 || workID(resp.Docs[0].Key) == "" {
		return nil, ErrBookNotFound
	}
	book := normalizeOpenLibrary(resp.Docs[0], o.tables)
	return &book, nil
}

func (o *OpenLibrary) searchParams(query string, opts entities.SearchOptions) url.Values {
	params := url.Values{}
	if q := strings.TrimSpace(query); q != "" {
		params.Set("q", q)
	}
	if opts.Author != "" {
		params.Set("author", opts.Author)
	}
	if opts.Topic != "" {
		params.Set("subject", opts.Topic)
	}
	if langs := searchLanguages(opts, o.tables); len(langs) > 0 {
		// Open Library indexes MARC codes and accepts a single language filter
		params.Set("language", o.tables.Code3(langs[0]))
	}
	switch opts.Sort {
	case entities.SortNewest:
		params.Set("sort", "new")
	case entities.SortOldest:
		params.Set("sort", "old")
	case entities.SortTitle:
		params.Set("sort", "title")
	case entities.SortPopular:
		params.Set("sort", "rating")
	}
	params.Set("fields", strings.Join(openLibraryFields, ","))
	params.Set("page", strconv.Itoa(opts.Page))
	params.Set("limit", strconv.Itoa(opts.Limit))
	return params
}

// workID strips the "/works/" prefix from a work key.
func workID(key string) string {
	key = strings.TrimSpace(key)
	key = strings.TrimPrefix(key, "/works/")
	if strings.Contains(key, "/") {
		return ""
	}
	return key
}

func normalizeOpenLibrary(doc openLibraryDoc, tables *lookup.Tables) entities.Book {
	nativeID := workID(doc.Key)
	book := entities.NewBook(entities.SourceOpenLibrary, nativeID)

	if doc.Title != nil {
		title := *doc.Title
		if doc.Subtitle != "" && strings.TrimSpace(title) != "" {
			title = title + ": " + doc.Subtitle
		}
		book.Title = entities.StringPtr(title)
	}
	book.Authors = authorsFromNames(doc.AuthorName)
	book.Subjects = entities.DisplayValues(doc.Subject)
	book.Languages = normalizeLanguages(doc.Language, tables)
	book.Year = entities.IntPtr(doc.FirstPublishYear)
	book.EditionCount = entities.IntPtr(doc.EditionCount)
	book.PageCount = entities.IntPtr(doc.NumberOfPagesMedian)
	if doc.RatingsAverage > 0 {
		rating := doc.RatingsAverage
		book.Rating = &rating
	}
	book.ISBNs = entities.DisplayValues(doc.ISBN)
	if len(doc.Publisher) > 0 {
		book.Publisher = strings.TrimSpace(doc.Publisher[0])
	}
	book.InfoURL = openLibraryBaseURL + "/works/" + nativeID

	if doc.CoverI > 0 {
		book.Covers = entities.Covers{
			Small:  fmt.Sprintf("%s/b/id/%d-S.jpg", openLibraryCoversURL, doc.CoverI),
			Medium: fmt.Sprintf("%s/b/id/%d-M.jpg", openLibraryCoversURL, doc.CoverI),
			Large:  fmt.Sprintf("%s/b/id/%d-L.jpg", openLibraryCoversURL, doc.CoverI),
		}
	}

	switch doc.EbookAccess {
	case "public":
		if ia := firstNonEmpty(doc.IA...); ia != "" {
			base := archiveDownloadURL + "/" + ia + "/" + ia
			book.Formats[string(entities.FormatEPUB)] = base + ".epub"
			book.Formats[string(entities.FormatPDF)] = base + ".pdf"
			book.Formats[string(entities.FormatTXT)] = base + "_djvu.txt"
		}
	case "borrowable", "printdisabled":
		book.Formats["borrow"] = entities.FormatAvailable
	}
	return book
}
