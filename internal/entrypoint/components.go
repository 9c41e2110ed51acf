package entrypoint

import (
	"fmt"
	"log"

	"github.com/mrlokans/bookbridge/internal/aggregator"
	"github.com/mrlokans/bookbridge/internal/cache"
	"github.com/mrlokans/bookbridge/internal/catalogs"
	"github.com/mrlokans/bookbridge/internal/config"
	"github.com/mrlokans/bookbridge/internal/convert"
	"github.com/mrlokans/bookbridge/internal/downloads"
	"github.com/mrlokans/bookbridge/internal/entities"
	"github.com/mrlokans/bookbridge/internal/lookup"
	"github.com/mrlokans/bookbridge/internal/services"
)

// Components is everything the server and the CLI commands share.
type Components struct {
	Tables          *lookup.Tables
	Coordinator     *aggregator.Coordinator
	SearchResults   *cache.Cache[entities.MergedResult]
	BookDetails     *cache.Cache[entities.Book]
	SearchService   *services.SearchService
	DownloadService *services.DownloadService
}

// NewComponents builds the catalog adapters, caches and services from configuration.
func NewComponents(cfg *config.Config) (*Components, error) {
	tables, err := lookup.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to load lookup tables: %w", err)
	}

	cats := make([]catalogs.Catalog, 0, len(cfg.Upstreams.EnabledSources))
	for _, name := range cfg.Upstreams.EnabledSources {
		source, err := entities.ParseSourceID(name)
		if err != nil {
			log.Printf("WARNING: ignoring %v in ENABLED_SOURCES", err)
			continue
		}
		cats = append(cats, newCatalog(source, cfg.Upstreams, tables))
	}
	if len(cats) == 0 {
		return nil, fmt.Errorf("no valid sources in ENABLED_SOURCES")
	}

	coordinator := aggregator.NewCoordinator(cats, aggregator.DefaultCallTimeout)
	log.Printf("Enabled catalogs: %v", coordinator.Sources())

	searchResults := cache.New[entities.MergedResult](cfg.Cache.TTL, cfg.Cache.MaxEntries)
	bookDetails := cache.New[entities.Book](cfg.Cache.TTL, cfg.Cache.MaxEntries)

	resolver := downloads.NewResolver(downloads.Options{
		UserAgent:          cfg.Downloads.UserAgent,
		ProbeTimeout:       cfg.Downloads.ProbeTimeout,
		StreamTimeout:      cfg.Downloads.StreamTimeout,
		GutenbergURL:       cfg.Downloads.GutenbergMirrorURL,
		ArchiveDownloadURL: cfg.Downloads.ArchiveDownloadURL,
		DisableFallback:    !cfg.Downloads.CrossSourceFallback,
	})
	converter := convert.NewConverter(convert.Options{
		ChunkSize:     cfg.Conversion.ChunkSize,
		MaxChunks:     cfg.Conversion.MaxChunks,
		ChunksPerPage: cfg.Conversion.ChunksPerPage,
		MaxEPUBBytes:  cfg.Conversion.MaxEPUBBytes,
		Concurrency:   cfg.Conversion.Concurrency,
	})

	return &Components{
		Tables:          tables,
		Coordinator:     coordinator,
		SearchResults:   searchResults,
		BookDetails:     bookDetails,
		SearchService:   services.NewSearchService(coordinator, searchResults, bookDetails),
		DownloadService: services.NewDownloadService(resolver, converter),
	}, nil
}

func newCatalog(source entities.SourceID, cfg config.Upstreams, tables *lookup.Tables) catalogs.Catalog {
	opts := catalogs.Options{
		UserAgent:         cfg.UserAgent,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Tables:            tables,
	}

	switch source {
	case entities.SourceGutendex:
		opts.BaseURL = cfg.GutendexURL
		return catalogs.NewGutendex(opts)
	case entities.SourceOpenLibrary:
		opts.BaseURL = cfg.OpenLibraryURL
		return catalogs.NewOpenLibrary(opts)
	case entities.SourceArchive:
		opts.BaseURL = cfg.ArchiveURL
		return catalogs.NewArchive(opts)
	default:
		opts.BaseURL = cfg.GoogleBooksURL
		opts.APIKey = cfg.GoogleBooksAPIKey
		return catalogs.NewGoogleBooks(opts)
	}
}
