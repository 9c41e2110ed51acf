package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookbridge/internal/auth"
	"github.com/mrlokans/bookbridge/internal/lookup"
)

// endpoints is the listing served at GET /.
var endpoints = []gin.H{
	{"method": "GET", "path": "/health", "description": "Service health and cache statistics"},
	{"method": "GET", "path": "/v1/search", "description": "Search every enabled catalog", "params": "q, sources, language, author, topic, collection, region, page, limit, sort"},
	{"method": "GET", "path": "/v1/books/:source/:id", "description": "Book details from one catalog"},
	{"method": "GET", "path": "/v1/download/:source/:id", "description": "Download a book file", "params": "format=epub|epub-noimages|kindle|mobi|txt|pdf"},
	{"method": "GET", "path": "/v1/sources", "description": "Known catalogs"},
	{"method": "GET", "path": "/v1/languages", "description": "Language filter values", "params": "q"},
	{"method": "GET", "path": "/v1/regions", "description": "Region filter values", "params": "q"},
	{"method": "GET", "path": "/v1/collections", "description": "Archive collection filter values", "params": "q"},
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}))
	router.Use(auth.RequestIDMiddleware())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.EnableHSTS {
		router.Use(auth.StrictTransportSecurityMiddleware(0))
	}

	tables := cfg.Tables
	if tables == nil {
		tables = lookup.MustDefault()
	}

	health := NewHealthController(cfg.SearchService.Sources(), cfg.Caches, cfg.Version)
	searchController := NewSearchController(cfg.SearchService)
	booksController := NewBooksController(cfg.SearchService)
	downloadController := NewDownloadController(cfg.DownloadService)
	lookupController := NewLookupController(tables, cfg.SearchService, cfg.DownloadService)

	// Public endpoints
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":      "bookbridge",
			"version":   cfg.Version,
			"endpoints": endpoints,
		})
	})
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// API endpoints: key check first so the limiter can key on the client
	v1 := router.Group("/v1")
	if cfg.AuthMiddleware != nil {
		v1.Use(cfg.AuthMiddleware.Handler())
	}
	if cfg.RateLimiter != nil {
		v1.Use(cfg.RateLimiter.Middleware())
	}

	v1.GET("/search", searchController.Search)
	v1.GET("/books/:source/:id", booksController.GetBook)
	v1.GET("/download/:source/:id", downloadController.Download)
	v1.GET("/sources", lookupController.Sources)
	v1.GET("/languages", lookupController.Languages)
	v1.GET("/regions", lookupController.Regions)
	v1.GET("/collections", lookupController.Collections)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "endpoint not found"})
	})

	return router
}
