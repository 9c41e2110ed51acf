package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookbridge/internal/cache"
	"github.com/mrlokans/bookbridge/internal/entities"
)

type HealthResponse struct {
	Status  string                 `json:"status"`
	Time    string                 `json:"time"`
	Version string                 `json:"version,omitempty"`
	Sources []entities.SourceID    `json:"sources"`
	Caches  map[string]cache.Stats `json:"caches,omitempty"`
}

type HealthController struct {
	sources []entities.SourceID
	caches  map[string]StatsReporter
	version string
}

func NewHealthController(sources []entities.SourceID, caches map[string]StatsReporter, version string) *HealthController {
	return &HealthController{
		sources: sources,
		caches:  caches,
		version: version,
	}
}

// Status reports liveness. The service holds no connections of its own, so it is unhealthy
// only when no catalog is enabled.
func (h *HealthController) Status(c *gin.Context) {
	status := "healthy"
	statusCode := http.StatusOK
	if len(h.sources) == 0 {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	caches := make(map[string]cache.Stats, len(h.caches))
	for name, reporter := range h.caches {
		caches[name] = reporter.Stats()
	}

	sources := h.sources
	if sources == nil {
		sources = []entities.SourceID{}
	}

	c.IndentedJSON(statusCode, HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Sources: sources,
		Caches:  caches,
	})
}
