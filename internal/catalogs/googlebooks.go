package catalogs

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/mrlokans/bookbridge/internal/entities"
	"github.com/mrlokans/bookbridge/internal/lookup"
)

const googleBooksBaseURL = "https://www.googleapis.com"

// GoogleBooks searches the Google Books volumes API.
type GoogleBooks struct {
	client *client
	tables *lookup.Tables
	apiKey string
}

// NewGoogleBooks creates a Google Books adapter. The API key is optional.
func NewGoogleBooks(opts Options) *GoogleBooks {
	return &GoogleBooks{
		client: newClient(entities.SourceGoogleBooks, googleBooksBaseURL, opts),
		tables: opts.Tables,
		apiKey: opts.APIKey,
	}
}

type googleVolumesResponse struct {
	TotalItems flexInt               `json:"totalItems"`
	Items      records[googleVolume] `json:"items"`
}

type googleVolume struct {
	ID         string                    `json:"id"`
	VolumeInfo lenient[googleVolumeInfo] `json:"volumeInfo"`
	AccessInfo struct {
		EPUB lenient[googleAccess] `json:"epub"`
		PDF  lenient[googleAccess] `json:"pdf"`
	} `json:"accessInfo"`
}

type googleAccess struct {
	IsAvailable  bool   `json:"isAvailable"`
	DownloadLink string `json:"downloadLink"`
	AcsTokenLink string `json:"acsTokenLink"`
}

type googleVolumeInfo struct {
	Title               *string  `json:"title"`
	Subtitle            string   `json:"subtitle"`
	Authors             []string `json:"authors"`
	Publisher           string   `json:"publisher"`
	PublishedDate       string   `json:"publishedDate"`
	Description         string   `json:"description"`
	IndustryIdentifiers []struct {
		Type       string `json:"type"`
		Identifier string `json:"identifier"`
	} `json:"industryIdentifiers"`
	PageCount     int      `json:"pageCount"`
	Categories    []string `json:"categories"`
	AverageRating float64  `json:"averageRating"`
	Language      string   `json:"language"`
	ImageLinks    struct {
		SmallThumbnail string `json:"smallThumbnail"`
		Thumbnail      string `json:"thumbnail"`
		Small          string `json:"small"`
		Medium         string `json:"medium"`
		Large          string `json:"large"`
		ExtraLarge     string `json:"extraLarge"`
	} `json:"imageLinks"`
	InfoLink string `json:"infoLink"`
}

func (g *GoogleBooks) Source() entities.SourceID { return entities.SourceGoogleBooks }

func (g *GoogleBooks) Search(ctx context.Context, query string, opts entities.SearchOptions) entities.SourceResult {
	opts = opts.Normalized()

	params := g.searchParams(query, opts)
	if params.Get("q") == "" {
		// the volumes endpoint rejects empty queries
		total := 0
		return entities.SourceResult{Success: true, Source: g.Source(), Books: []entities.Book{}, Total: &total}
	}

	var resp googleVolumesResponse
	if err := g.client.getJSON(ctx, "/books/v1/volumes", params, &resp); err != nil {
		return entities.FailedResult(g.Source(), err)
	}

	books := make([]entities.Book, 0, len(resp.Items))
	for _, v := range resp.Items {
		if strings.TrimSpace(v.ID) == "" {
			continue
		}
		books = append(books, normalizeGoogleVolume(v, g.tables))
	}

	total := int(resp.TotalItems)
	return entities.SourceResult{
		Success: true,
		Source:  g.Source(),
		Books:   limitBooks(books, opts.Limit),
		Total:   &total,
	}
}

func (g *GoogleBooks) Get(ctx context.Context, nativeID string) (*entities.Book, error) {
	id := strings.TrimSpace(entities.StripSourcePrefix(g.Source(), nativeID))
	if id == "" || strings.ContainsAny(id, "/?#") {
		return nil, ErrBookNotFound
	}

	var params url.Values
	if g.apiKey != "" {
		params = url.Values{"key": {g.apiKey}}
	}

	var one lenient[googleVolume]
	if err := g.client.getJSON(ctx, "/books/v1/volumes/"+url.PathEscape(id), params, &one); err != nil {
		return nil, notFoundOr(err)
	}
	v := one.Value
	if strings.TrimSpace(v.ID) == "" {
		return nil, ErrBookNotFound
	}
	book := normalizeGoogleVolume(v, g.tables)
	return &book, nil
}

func (g *GoogleBooks) searchParams(query string, opts entities.SearchOptions) url.Values {
	terms := []string{}
	if q := strings.TrimSpace(query); q != "" {
		terms = append(terms, q)
	}
	if opts.Author != "" {
		terms = append(terms, "inauthor:"+opts.Author)
	}
	if opts.Topic != "" {
		terms = append(terms, "subject:"+opts.Topic)
	}

	params := url.Values{}
	params.Set("q", strings.Join(terms, " "))
	if langs := searchLanguages(opts, g.tables); len(langs) > 0 {
		params.Set("langRestrict", langs[0])
	}
	if opts.Sort == entities.SortNewest {
		params.Set("orderBy", "newest")
	} else {
		params.Set("orderBy", "relevance")
	}
	params.Set("printType", "books")
	params.Set("startIndex", strconv.Itoa((opts.Page-1)*opts.Limit))
	params.Set("maxResults", strconv.Itoa(opts.Limit))
	if g.apiKey != "" {
		params.Set("key", g.apiKey)
	}
	return params
}

func normalizeGoogleVolume(v googleVolume, tables *lookup.Tables) entities.Book {
	info := v.VolumeInfo.Value
	book := entities.NewBook(entities.SourceGoogleBooks, strings.TrimSpace(v.ID))

	if info.Title != nil {
		title := *info.Title
		if info.Subtitle != "" && strings.TrimSpace(title) != "" {
			title = title + ": " + info.Subtitle
		}
		book.Title = entities.StringPtr(title)
	}
	book.Authors = authorsFromNames(info.Authors)
	book.Subjects = entities.DisplayValues(info.Categories)
	if info.Language != "" {
		book.Languages = normalizeLanguages([]string{info.Language}, tables)
	}
	book.Year = entities.IntPtr(extractYear(info.PublishedDate))
	book.PageCount = entities.IntPtr(info.PageCount)
	if info.AverageRating > 0 {
		rating := info.AverageRating
		book.Rating = &rating
	}
	book.Publisher = strings.TrimSpace(info.Publisher)
	book.Description = strings.TrimSpace(info.Description)
	book.InfoURL = secureURL(info.InfoLink)

	isbns := []string{}
	for _, id := range info.IndustryIdentifiers {
		if id.Type == "ISBN_13" || id.Type == "ISBN_10" {
			isbns = append(isbns, id.Identifier)
		}
	}
	book.ISBNs = entities.DisplayValues(isbns)

	links := info.ImageLinks
	book.Covers = entities.Covers{
		Small:  secureURL(firstNonEmpty(links.SmallThumbnail, links.Thumbnail)),
		Medium: secureURL(firstNonEmpty(links.Thumbnail, links.Small, links.Medium, links.SmallThumbnail)),
		Large:  secureURL(firstNonEmpty(links.Large, links.ExtraLarge, links.Medium, links.Thumbnail)),
	}

	addAccess := func(format entities.Format, access googleAccess) {
		if !access.IsAvailable {
			return
		}
		if link := firstNonEmpty(access.DownloadLink, access.AcsTokenLink); link != "" {
			book.Formats[string(format)] = secureURL(link)
			return
		}
		book.Formats[string(format)] = entities.FormatAvailable
	}
	addAccess(entities.FormatEPUB, v.AccessInfo.EPUB.Value)
	addAccess(entities.FormatPDF, v.AccessInfo.PDF.Value)
	return book
}

// secureURL upgrades the plain-http links Google returns.
func secureURL(u string) string {
	if strings.HasPrefix(u, "http://") {
		return "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}
