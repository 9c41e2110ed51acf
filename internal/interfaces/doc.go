// Package interfaces documents the core abstractions used throughout the application.
//
// This package consolidates interface documentation to help contributors find
// extension points and see how to implement new functionality.
//
// # Interface Categories
//
// ## Catalog Interfaces
//
//   - Catalog: One upstream book catalog (internal/catalogs/catalog.go)
//   - CatalogSearcher: Fan-out search and single-book lookup (internal/services/interfaces.go)
//
// ## File Interfaces
//
//   - FileResolver: Locates a downloadable file across mirrors (internal/services/interfaces.go)
//   - EPUBConverter: Turns an EPUB stream into a PDF (internal/services/interfaces.go)
//
// ## Cache Interfaces
//
//   - Purger: Entries dropped by the cache janitor (internal/scheduler/cache_janitor.go)
//   - StatsReporter: Counters exposed on /health (internal/http/config.go)
//
// # Adding a New Catalog
//
// To add support for another upstream catalog:
//
//  1. Add a source id in internal/entities/book.go and append it to AllSources.
//
//  2. Implement Catalog in internal/catalogs/
//
//     type Europeana struct {
//         client *client
//     }
//
//     func (e *Europeana) Source() entities.SourceID
//     func (e *Europeana) Search(ctx context.Context, query string, opts entities.SearchOptions) entities.SourceResult
//     func (e *Europeana) Get(ctx context.Context, nativeID string) (*entities.Book, error)
//
//     var _ catalogs.Catalog = (*Europeana)(nil)
//
//  3. Add a case to newCatalog in internal/entrypoint/components.go
//
// # Adding a New Download Location
//
// Mirror locations are plain URL templates tried in order. Add the template to
// gutenbergPaths or archiveSuffixes in internal/downloads/candidates.go.
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// This pattern is used throughout the codebase. See checks.go for examples.
package interfaces
