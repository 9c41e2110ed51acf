// Package aggregator fans one search out to every enabled catalog and merges the results.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sourcegraph/conc/iter"

	"github.com/mrlokans/bookbridge/internal/catalogs"
	"github.com/mrlokans/bookbridge/internal/entities"
)

// DefaultCallTimeout bounds one adapter call even when the adapter ignores its context.
const DefaultCallTimeout = 20 * time.Second

var (
	ErrUnknownSource = errors.New("unknown source")
	errAdapterPanic  = errors.New("adapter panicked")
)

// Coordinator owns the enabled catalogs in their merge order.
type Coordinator struct {
	catalogs    map[entities.SourceID]catalogs.Catalog
	order       []entities.SourceID
	callTimeout time.Duration
}

// NewCoordinator registers catalogs in the given order. Later duplicates of a source are ignored.
func NewCoordinator(cats []catalogs.Catalog, callTimeout time.Duration) *Coordinator {
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	c := &Coordinator{
		catalogs:    make(map[entities.SourceID]catalogs.Catalog, len(cats)),
		callTimeout: callTimeout,
	}
	for _, cat := range cats {
		if cat == nil {
			continue
		}
		if _, dup := c.catalogs[cat.Source()]; dup {
			continue
		}
		c.catalogs[cat.Source()] = cat
		c.order = append(c.order, cat.Source())
	}
	return c
}

// Sources returns the enabled sources in merge order.
func (c *Coordinator) Sources() []entities.SourceID {
	return append([]entities.SourceID(nil), c.order...)
}

// Enabled reports whether a source has a registered catalog.
func (c *Coordinator) Enabled(source entities.SourceID) bool {
	_, ok := c.catalogs[source]
	return ok
}

// FanOut searches every requested source concurrently and waits for all of them. Books are
// merged in request order regardless of which call finished first. A nil or empty sources
// slice means every enabled source.
func (c *Coordinator) FanOut(ctx context.Context, query string, opts entities.SearchOptions, sources []entities.SourceID) entities.MergedResult {
	if len(sources) == 0 {
		sources = c.order
	}
	sources = dedupe(sources)
	opts = opts.Normalized()

	results := iter.Map(sources, func(source *entities.SourceID) entities.SourceResult {
		cat, ok := c.catalogs[*source]
		if !ok {
			return entities.FailedResult(*source, fmt.Errorf("%w: %s", ErrUnknownSource, *source))
		}
		return c.call(ctx, cat, query, opts)
	})

	return merge(sources, results)
}

// Lookup fetches one record from one source.
func (c *Coordinator) Lookup(ctx context.Context, source entities.SourceID, nativeID string) (*entities.Book, error) {
	cat, ok := c.catalogs[source]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	return cat.Get(ctx, nativeID)
}

// call runs one adapter search with a hard deadline. A call that outlives the deadline or
// panics is reported as an ordinary failure.
func (c *Coordinator) call(ctx context.Context, cat catalogs.Catalog, query string, opts entities.SearchOptions) entities.SourceResult {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	done := make(chan entities.SourceResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[SEARCH] %s adapter panic: %v", cat.Source(), r)
				done <- entities.FailedResult(cat.Source(), errAdapterPanic)
			}
		}()
		done <- cat.Search(ctx, query, opts)
	}()

	select {
	case res := <-done:
		if res.Source == "" {
			res.Source = cat.Source()
		}
		if res.Books == nil {
			res.Books = []entities.Book{}
		}
		return res
	case <-ctx.Done():
		return entities.FailedResult(cat.Source(), fmt.Errorf("%s: %w", cat.Source(), ctx.Err()))
	}
}

func merge(sources []entities.SourceID, results []entities.SourceResult) entities.MergedResult {
	merged := entities.MergedResult{
		Books:           []entities.Book{},
		Sources:         sources,
		PerSourceStatus: make(map[entities.SourceID]entities.SourceStatus, len(sources)),
	}
	if merged.Sources == nil {
		merged.Sources = []entities.SourceID{}
	}

	for i, res := range results {
		source := sources[i]
		if !res.Success {
			log.Printf("[SEARCH] %s failed: %s", source, res.Error)
			merged.PerSourceStatus[source] = entities.SourceStatus{Success: false, Error: res.Error}
			continue
		}
		merged.Books = append(merged.Books, res.Books...)
		merged.PerSourceStatus[source] = entities.SourceStatus{
			Success: true,
			Count:   len(res.Books),
			Total:   res.Total,
		}
	}
	return merged
}

func dedupe(sources []entities.SourceID) []entities.SourceID {
	seen := make(map[entities.SourceID]bool, len(sources))
	out := make([]entities.SourceID, 0, len(sources))
	for _, s := range sources {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
