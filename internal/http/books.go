package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookbridge/internal/aggregator"
	"github.com/mrlokans/bookbridge/internal/catalogs"
	"github.com/mrlokans/bookbridge/internal/entities"
	"github.com/mrlokans/bookbridge/internal/services"
)

type BooksController struct {
	service *services.SearchService
}

func NewBooksController(service *services.SearchService) *BooksController {
	return &BooksController{
		service: service,
	}
}

// GetBook handles GET /v1/books/:source/:id.
func (controller *BooksController) GetBook(c *gin.Context) {
	source, err := entities.ParseSourceID(c.Param("source"))
	if err != nil {
		respondError(c, http.StatusBadRequest, CodeUnsupportedSource, err.Error())
		return
	}

	book, err := controller.service.Book(c.Request.Context(), source, c.Param("id"))
	if err != nil {
		var upstreamErr *catalogs.UpstreamError
		switch {
		case errors.Is(err, services.ErrEmptyID):
			respondBadRequest(c, err.Error())
		case errors.Is(err, aggregator.ErrUnknownSource):
			respondError(c, http.StatusBadRequest, CodeUnsupportedSource, "source is not enabled: "+string(source))
		case errors.Is(err, catalogs.ErrBookNotFound):
			respondNotFound(c, "book")
		case errors.As(err, &upstreamErr):
			log.Printf("[BOOKS] %s lookup failed: %v", source, err)
			respondError(c, http.StatusBadGateway, CodeUpstreamFailed, upstreamErr.Error())
		default:
			respondInternalError(c, err, "book lookup")
		}
		return
	}

	c.JSON(http.StatusOK, book)
}
