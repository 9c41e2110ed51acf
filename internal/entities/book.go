package entities

import (
	"fmt"
	"strings"
)

// SourceID identifies one upstream catalog.
type SourceID string

const (
	SourceGutendex    SourceID = "gutendex"    // Project Gutenberg metadata mirror
	SourceOpenLibrary SourceID = "openlibrary" // Open Library union catalog
	SourceArchive     SourceID = "archive"     // Internet Archive digitized texts
	SourceGoogleBooks SourceID = "googlebooks" // Google Books volumes
)

// AllSources lists every known catalog in default merge order.
var AllSources = []SourceID{SourceGutendex, SourceOpenLibrary, SourceArchive, SourceGoogleBooks}

// ParseSourceID validates a source name.
func ParseSourceID(s string) (SourceID, error) {
	id := SourceID(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllSources {
		if id == known {
			return id, nil
		}
	}
	return "", fmt.Errorf("unknown source: %q", s)
}

// MaxDisplayValues caps subjects and languages on a normalized Book.
const MaxDisplayValues = 15

// FormatAvailable marks a format that can be produced but has no direct URL.
const FormatAvailable = "available"

// Author is a single credited author.
type Author struct {
	Name      string `json:"name"`
	BirthYear *int   `json:"birth_year,omitempty"`
	DeathYear *int   `json:"death_year,omitempty"`
}

// Covers holds cover image URLs by size. Empty means absent.
type Covers struct {
	Small  string `json:"small,omitempty"`
	Medium string `json:"medium,omitempty"`
	Large  string `json:"large,omitempty"`
}

// Book is the normalized record every catalog adapter produces.
type Book struct {
	ID        string            `json:"id"` // "<source>:<native id>"
	Source    SourceID          `json:"source"`
	NativeID  string            `json:"native_id"`
	Title     *string           `json:"title"`
	Authors   []Author          `json:"authors"`
	Subjects  []string          `json:"subjects"`
	Languages []string          `json:"languages"`
	Covers    Covers            `json:"covers"`
	Formats   map[string]string `json:"formats"`

	DownloadCount *int     `json:"download_count,omitempty"`
	Year          *int     `json:"year,omitempty"`
	EditionCount  *int     `json:"edition_count,omitempty"`
	Rating        *float64 `json:"rating,omitempty"`
	PageCount     *int     `json:"page_count,omitempty"`
	ISBNs         []string `json:"isbns,omitempty"`
	Publisher     string   `json:"publisher,omitempty"`
	Description   string   `json:"description,omitempty"`
	InfoURL       string   `json:"info_url,omitempty"`
}

// CompositeID builds the globally unique id of a record.
func CompositeID(source SourceID, nativeID string) string {
	return string(source) + ":" + nativeID
}

// StripSourcePrefix accepts either "1342" or "gutendex:1342" and returns the native id.
func StripSourcePrefix(source SourceID, id string) string {
	id = strings.TrimSpace(id)
	return strings.TrimPrefix(id, string(source)+":")
}

// NewBook returns a Book with the identity fields set and collections initialized,
// so that JSON output carries empty arrays instead of null.
func NewBook(source SourceID, nativeID string) Book {
	return Book{
		ID:        CompositeID(source, nativeID),
		Source:    source,
		NativeID:  nativeID,
		Authors:   []Author{},
		Subjects:  []string{},
		Languages: []string{},
		Formats:   map[string]string{},
	}
}

// DisplayValues copies at most MaxDisplayValues non-empty values. The input slice is never
// aliased, so trimming for display cannot mutate the decoded upstream value.
func DisplayValues(values []string) []string {
	out := make([]string, 0, min(len(values), MaxDisplayValues))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
		if len(out) == MaxDisplayValues {
			break
		}
	}
	return out
}

// StringPtr returns nil for blank strings, otherwise a pointer to the trimmed value.
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// IntPtr returns nil for zero.
func IntPtr(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}
