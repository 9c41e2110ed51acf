package services

import (
	"context"
	"io"

	"github.com/mrlokans/bookbridge/internal/convert"
	"github.com/mrlokans/bookbridge/internal/downloads"
	"github.com/mrlokans/bookbridge/internal/entities"
)

// CatalogSearcher fans searches out over the configured catalogs.
// Implemented by aggregator.Coordinator.
type CatalogSearcher interface {
	Sources() []entities.SourceID
	Enabled(source entities.SourceID) bool
	FanOut(ctx context.Context, query string, opts entities.SearchOptions, sources []entities.SourceID) entities.MergedResult
	Lookup(ctx context.Context, source entities.SourceID, nativeID string) (*entities.Book, error)
}

// FileResolver finds a downloadable file for a book.
// Implemented by downloads.Resolver.
type FileResolver interface {
	Supports(source entities.SourceID) bool
	Resolve(ctx context.Context, source entities.SourceID, nativeID string, format entities.Format) (*downloads.Download, error)
}

// EPUBConverter renders an EPUB stream as PDF.
// Implemented by convert.Converter.
type EPUBConverter interface {
	Convert(ctx context.Context, title string, epub io.Reader) (*convert.Result, error)
}
