package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookbridge/internal/services"
)

type SearchController struct {
	service *services.SearchService
}

func NewSearchController(service *services.SearchService) *SearchController {
	return &SearchController{
		service: service,
	}
}

// Search handles GET /v1/search. Upstream failures never fail the request; they show up
// in per_source.
func (controller *SearchController) Search(c *gin.Context) {
	query := c.Query("q")
	opts, ok := parseSearchOptions(c)
	if !ok {
		return
	}
	sources := parseSources(c.Query("sources"))

	resp, err := controller.service.Search(c.Request.Context(), query, opts, sources)
	if err != nil {
		if errors.Is(err, services.ErrEmptyQuery) {
			respondBadRequest(c, err.Error())
			return
		}
		respondInternalError(c, err, "search")
		return
	}

	c.JSON(http.StatusOK, resp)
}
