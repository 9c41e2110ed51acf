package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/bookbridge/internal/aggregator"
	"github.com/mrlokans/bookbridge/internal/cache"
	"github.com/mrlokans/bookbridge/internal/catalogs"
	"github.com/mrlokans/bookbridge/internal/convert"
	"github.com/mrlokans/bookbridge/internal/downloads"
	"github.com/mrlokans/bookbridge/internal/entities"
	"github.com/mrlokans/bookbridge/internal/http"
	"github.com/mrlokans/bookbridge/internal/scheduler"
	"github.com/mrlokans/bookbridge/internal/services"
)

// =============================================================================
// Catalog Adapters
// =============================================================================

var _ catalogs.Catalog = (*catalogs.Gutendex)(nil)
var _ catalogs.Catalog = (*catalogs.OpenLibrary)(nil)
var _ catalogs.Catalog = (*catalogs.Archive)(nil)
var _ catalogs.Catalog = (*catalogs.GoogleBooks)(nil)

// =============================================================================
// Service Dependencies
// =============================================================================

// CatalogSearcher implementations
var _ services.CatalogSearcher = (*aggregator.Coordinator)(nil)

// FileResolver implementations
var _ services.FileResolver = (*downloads.Resolver)(nil)

// EPUBConverter implementations
var _ services.EPUBConverter = (*convert.Converter)(nil)

// =============================================================================
// Caches
// =============================================================================

// Purger implementations (cache janitor targets)
var _ scheduler.Purger = (*cache.Cache[entities.MergedResult])(nil)
var _ scheduler.Purger = (*cache.Cache[entities.Book])(nil)

// StatsReporter implementations (health endpoint)
var _ http.StatsReporter = (*cache.Cache[entities.MergedResult])(nil)
var _ http.StatsReporter = (*cache.Cache[entities.Book])(nil)
