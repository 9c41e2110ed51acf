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

const archiveBaseURL = "https://archive.org"

var archiveFields = []string{
	"identifier", "title", "creator", "subject", "language", "year", "date",
	"downloads", "description", "publisher",
}

// Archive searches Internet Archive texts through the advancedsearch endpoint.
type Archive struct {
	client *client
	tables *lookup.Tables
}

// NewArchive creates an Internet Archive adapter.
func NewArchive(opts Options) *Archive {
	return &Archive{
		client: newClient(entities.SourceArchive, archiveBaseURL, opts),
		tables: opts.Tables,
	}
}

type archiveSearchResponse struct {
	Response struct {
		NumFound flexInt             `json:"numFound"`
		Docs     records[archiveDoc] `json:"docs"`
	} `json:"response"`
}

// archiveDoc fields switch between scalar and array shapes per record.
type archiveDoc struct {
	Identifier  string     `json:"identifier"`
	Title       stringList `json:"title"`
	Creator     stringList `json:"creator"`
	Subject     stringList `json:"subject"`
	Language    stringList `json:"language"`
	Year        flexInt    `json:"year"`
	Date        stringList `json:"date"`
	Downloads   flexInt    `json:"downloads"`
	Description stringList `json:"description"`
	Publisher   stringList `json:"publisher"`
}

func (a *Archive) Source() entities.SourceID { return entities.SourceArchive }

func (a *Archive) Search(ctx context.Context, query string, opts entities.SearchOptions) entities.SourceResult {
	opts = opts.Normalized()

	var resp archiveSearchResponse
	if err := a.client.getJSON(ctx, "/advancedsearch.php", a.searchParams(query, opts), &resp); err != nil {
		return entities.FailedResult(a.Source(), err)
	}

	books := make([]entities.Book, 0, len(resp.Response.Docs))
	for _, doc := range resp.Response.Docs {
		if strings.TrimSpace(doc.Identifier) == "" {
			continue
		}
		books = append(books, normalizeArchive(doc, a.tables))
	}

	total := int(resp.Response.NumFound)
	return entities.SourceResult{
		Success: true,
		Source:  a.Source(),
		Books:   limitBooks(books, opts.Limit),
		Total:   &total,
	}
}

func (a *Archive) Get(ctx context.Context, nativeID string) (*entities.Book, error) {
	id := strings.TrimSpace(entities.StripSourcePrefix(a.Source(), nativeID))
	if id == "" || strings.ContainsAny(id, " /\"") {
		return nil, ErrBookNotFound
	}

	params := url.Values{}
	params.Set("q", fmt.Sprintf("identifier:(%s)", id))
	for _, f := range archiveFields {
		params.Add("fl[]", f)
	}
	params.Set("rows", "1")
	params.Set("output", "json")

	var resp archiveSearchResponse
	if err := a.client.getJSON(ctx, "/advancedsearch.php", params, &resp); err != nil {
		return nil, notFoundOr(err)
	}
	if len(resp.Response.Docs) == 0 || strings.TrimSpace(resp.Response.Docs[0].Identifier) == "" {
		return nil, ErrBookNotFound
	}
	book := normalizeArchive(resp.Response.Docs[0], a.tables)
	return &book, nil
}

// searchParams builds a Lucene query restricted to texts.
func (a *Archive) searchParams(query string, opts entities.SearchOptions) url.Values {
	clauses := []string{"mediatype:(texts)"}
	if q := strings.TrimSpace(query); q != "" {
		clauses = append([]string{"(" + q + ")"}, clauses...)
	}
	if opts.Author != "" {
		clauses = append(clauses, fmt.Sprintf("creator:(%q)", opts.Author))
	}
	if opts.Topic != "" {
		clauses = append(clauses, fmt.Sprintf("subject:(%q)", opts.Topic))
	}
	if opts.Collection != "" {
		collection := opts.Collection
		if c, ok := a.tables.Collection(collection); ok {
			collection = c.ID
		}
		clauses = append(clauses, fmt.Sprintf("collection:(%s)", collection))
	}
	if langs := searchLanguages(opts, a.tables); len(langs) > 0 {
		var alts []string
		for _, code := range langs {
			alts = append(alts, a.tables.Code3(code))
			if l, ok := a.tables.Language(code); ok {
				alts = append(alts, strconv.Quote(l.Name))
			}
		}
		clauses = append(clauses, "language:("+strings.Join(alts, " OR ")+")")
	}

	params := url.Values{}
	params.Set("q", strings.Join(clauses, " AND "))
	for _, f := range archiveFields {
		params.Add("fl[]", f)
	}
	switch opts.Sort {
	case entities.SortPopular:
		params.Add("sort[]", "downloads desc")
	case entities.SortNewest:
		params.Add("sort[]", "date desc")
	case entities.SortOldest:
		params.Add("sort[]", "date asc")
	case entities.SortTitle:
		params.Add("sort[]", "titleSorter asc")
	}
	params.Set("rows", strconv.Itoa(opts.Limit))
	params.Set("page", strconv.Itoa(opts.Page))
	params.Set("output", "json")
	return params
}

func normalizeArchive(doc archiveDoc, tables *lookup.Tables) entities.Book {
	id := strings.TrimSpace(doc.Identifier)
	book := entities.NewBook(entities.SourceArchive, id)

	book.Title = entities.StringPtr(doc.Title.first())
	book.Authors = authorsFromNames(doc.Creator)
	book.Subjects = entities.DisplayValues(doc.Subject)
	book.Languages = normalizeLanguages(archiveLanguageCodes(doc.Language, tables), tables)
	book.DownloadCount = entities.IntPtr(int(doc.Downloads))

	year := int(doc.Year)
	if year == 0 {
		year = extractYear(doc.Date.first())
	}
	book.Year = entities.IntPtr(year)
	book.Description = doc.Description.first()
	book.Publisher = doc.Publisher.first()
	book.InfoURL = archiveBaseURL + "/details/" + id

	cover := archiveBaseURL + "/services/img/" + id
	book.Covers = entities.Covers{Small: cover, Medium: cover, Large: cover}

	base := archiveDownloadURL + "/" + id + "/" + id
	book.Formats[string(entities.FormatEPUB)] = base + ".epub"
	book.Formats[string(entities.FormatPDF)] = base + ".pdf"
	book.Formats[string(entities.FormatTXT)] = base + "_djvu.txt"
	return book
}

// archiveLanguageCodes turns free-form language values ("eng", "English") into codes.
func archiveLanguageCodes(values []string, tables *lookup.Tables) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := tables.Language(v); ok {
			out = append(out, v)
			continue
		}
		if tables != nil {
			matched := false
			for _, l := range tables.Languages {
				if strings.EqualFold(l.Name, v) {
					out = append(out, l.Code)
					matched = true
					break
				}
			}
			if matched {
				continue
			}
		}
		out = append(out, v)
	}
	return out
}
