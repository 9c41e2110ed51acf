package http

import (
	"github.com/mrlokans/bookbridge/internal/auth"
	"github.com/mrlokans/bookbridge/internal/cache"
	"github.com/mrlokans/bookbridge/internal/lookup"
	"github.com/mrlokans/bookbridge/internal/services"
)

// StatsReporter is implemented by every cache.Cache.
type StatsReporter interface {
	Stats() cache.Stats
}

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	SearchService   *services.SearchService
	DownloadService *services.DownloadService
	Tables          *lookup.Tables

	// Access control (both optional)
	AuthMiddleware *auth.Middleware
	RateLimiter    *auth.RateLimiter

	// Reported by /health
	Caches map[string]StatsReporter

	// Send HSTS on HTTPS requests
	EnableHSTS bool

	// Application info
	Version string
}
