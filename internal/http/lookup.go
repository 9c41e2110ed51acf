package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookbridge/internal/entities"
	"github.com/mrlokans/bookbridge/internal/lookup"
	"github.com/mrlokans/bookbridge/internal/services"
)

// SourceInfo describes one catalog to API clients.
type SourceInfo struct {
	ID        entities.SourceID `json:"id"`
	Enabled   bool              `json:"enabled"`
	Downloads bool              `json:"downloads"`
}

// LookupController serves the static tables and the catalog list.
type LookupController struct {
	tables    *lookup.Tables
	search    *services.SearchService
	downloads *services.DownloadService
}

func NewLookupController(tables *lookup.Tables, search *services.SearchService, downloads *services.DownloadService) *LookupController {
	return &LookupController{
		tables:    tables,
		search:    search,
		downloads: downloads,
	}
}

func (controller *LookupController) Sources(c *gin.Context) {
	enabled := make(map[entities.SourceID]bool)
	for _, src := range controller.search.Sources() {
		enabled[src] = true
	}

	sources := make([]SourceInfo, 0, len(entities.AllSources))
	for _, src := range entities.AllSources {
		sources = append(sources, SourceInfo{
			ID:        src,
			Enabled:   enabled[src],
			Downloads: controller.downloads.Supports(src),
		})
	}
	c.JSON(http.StatusOK, gin.H{"sources": sources, "count": len(sources)})
}

func (controller *LookupController) Languages(c *gin.Context) {
	languages := controller.tables.FindLanguages(c.Query("q"))
	c.JSON(http.StatusOK, gin.H{"languages": languages, "count": len(languages)})
}

func (controller *LookupController) Regions(c *gin.Context) {
	regions := controller.tables.FindRegions(c.Query("q"))
	c.JSON(http.StatusOK, gin.H{"regions": regions, "count": len(regions)})
}

func (controller *LookupController) Collections(c *gin.Context) {
	collections := controller.tables.FindCollections(c.Query("q"))
	c.JSON(http.StatusOK, gin.H{"collections": collections, "count": len(collections)})
}
