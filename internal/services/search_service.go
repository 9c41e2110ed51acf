package services

import (
	"context"
	"strings"

	"github.com/mrlokans/bookbridge/internal/cache"
	"github.com/mrlokans/bookbridge/internal/entities"
)

// SearchResponse is a merged search with the request echo and cache flag.
type SearchResponse struct {
	entities.MergedResult
	Query  string `json:"query"`
	Total  int    `json:"total"`
	Cached bool   `json:"cached"`
}

// SearchService memoizes catalog searches and detail lookups.
// Either cache may be nil, which disables memoization for that call.
type SearchService struct {
	catalogs CatalogSearcher
	results  *cache.Cache[entities.MergedResult]
	books    *cache.Cache[entities.Book]
}

// NewSearchService creates a new SearchService.
func NewSearchService(catalogs CatalogSearcher, results *cache.Cache[entities.MergedResult], books *cache.Cache[entities.Book]) *SearchService {
	return &SearchService{
		catalogs: catalogs,
		results:  results,
		books:    books,
	}
}

// Sources returns the enabled catalogs in merge order.
func (s *SearchService) Sources() []entities.SourceID {
	return s.catalogs.Sources()
}

// Search runs one fan-out, or answers from cache. Only results where every requested
// source succeeded are cached, so a transient upstream failure is retried next time.
func (s *SearchService) Search(ctx context.Context, query string, opts entities.SearchOptions, sources []entities.SourceID) (*SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	opts = opts.Normalized()

	key := searchKey(query, opts, sources)
	if s.results != nil {
		if merged, ok := s.results.Get(key); ok {
			return newSearchResponse(query, merged, true), nil
		}
	}

	merged := s.catalogs.FanOut(ctx, query, opts, sources)

	if s.results != nil && allSucceeded(merged) && ctx.Err() == nil {
		s.results.Set(key, merged)
	}
	return newSearchResponse(query, merged, false), nil
}

// Book returns one book's details from its catalog.
func (s *SearchService) Book(ctx context.Context, source entities.SourceID, nativeID string) (*entities.Book, error) {
	nativeID = strings.TrimSpace(entities.StripSourcePrefix(source, nativeID))
	if nativeID == "" {
		return nil, ErrEmptyID
	}

	key := entities.CompositeID(source, nativeID)
	if s.books != nil {
		if book, ok := s.books.Get(key); ok {
			return &book, nil
		}
	}

	book, err := s.catalogs.Lookup(ctx, source, nativeID)
	if err != nil {
		return nil, err
	}
	if s.books != nil {
		s.books.Set(key, *book)
	}
	return book, nil
}

func newSearchResponse(query string, merged entities.MergedResult, cached bool) *SearchResponse {
	return &SearchResponse{
		MergedResult: merged,
		Query:        query,
		Total:        len(merged.Books),
		Cached:       cached,
	}
}

// searchKey identifies a fan-out. Source order is part of the key since it fixes merge order;
// an empty list stands for every enabled source.
func searchKey(query string, opts entities.SearchOptions, sources []entities.SourceID) string {
	names := make([]string, len(sources))
	for i, src := range sources {
		names[i] = string(src)
	}
	return strings.ToLower(query) + "|" + opts.CacheKey() + "|src=" + strings.Join(names, ",")
}

func allSucceeded(merged entities.MergedResult) bool {
	if len(merged.PerSourceStatus) == 0 {
		return false
	}
	for _, status := range merged.PerSourceStatus {
		if !status.Success {
			return false
		}
	}
	return true
}
