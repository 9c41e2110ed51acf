package entities

import (
	"fmt"
	"strings"
)

// Sort values understood by every catalog; each adapter maps them onto its own vocabulary
// and drops the ones it cannot express.
const (
	SortRelevance = "relevance"
	SortPopular   = "popular"
	SortNewest    = "newest"
	SortOldest    = "oldest"
	SortTitle     = "title"
)

const (
	DefaultLimit = 20
	MaxLimit     = 40
)

// SearchOptions are the optional search filters. Adapters ignore fields their upstream
// does not support.
type SearchOptions struct {
	Language   string `json:"language,omitempty"` // ISO 639-1 code
	Author     string `json:"author,omitempty"`
	Topic      string `json:"topic,omitempty"`
	Collection string `json:"collection,omitempty"`
	Region     string `json:"region,omitempty"`
	Page       int    `json:"page,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Sort       string `json:"sort,omitempty"`
}

// Normalized returns a copy with defaults applied and values trimmed.
func (o SearchOptions) Normalized() SearchOptions {
	o.Language = strings.ToLower(strings.TrimSpace(o.Language))
	o.Author = strings.TrimSpace(o.Author)
	o.Topic = strings.TrimSpace(o.Topic)
	o.Collection = strings.TrimSpace(o.Collection)
	o.Region = strings.ToUpper(strings.TrimSpace(o.Region))
	o.Sort = strings.ToLower(strings.TrimSpace(o.Sort))
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit < 1 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	return o
}

// CacheKey is a stable representation of the options, used for memoization.
func (o SearchOptions) CacheKey() string {
	n := o.Normalized()
	return fmt.Sprintf("lang=%s|author=%s|topic=%s|coll=%s|region=%s|page=%d|limit=%d|sort=%s",
		n.Language, strings.ToLower(n.Author), strings.ToLower(n.Topic), n.Collection, n.Region, n.Page, n.Limit, n.Sort)
}

// SourceResult is the envelope one adapter returns for one search.
type SourceResult struct {
	Success bool     `json:"success"`
	Source  SourceID `json:"source"`
	Books   []Book   `json:"books"`
	Total   *int     `json:"total,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// FailedResult builds an unsuccessful SourceResult.
func FailedResult(source SourceID, err error) SourceResult {
	return SourceResult{Success: false, Source: source, Books: []Book{}, Error: err.Error()}
}

// SourceStatus is the per-source diagnostic attached to a merged result.
type SourceStatus struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Total   *int   `json:"total,omitempty"`
	Error   string `json:"error,omitempty"`
}

// MergedResult is the fan-out output.
type MergedResult struct {
	Books           []Book                    `json:"books"`
	Sources         []SourceID                `json:"sources"`
	PerSourceStatus map[SourceID]SourceStatus `json:"per_source"`
}
