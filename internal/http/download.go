package http

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookbridge/internal/convert"
	"github.com/mrlokans/bookbridge/internal/downloads"
	"github.com/mrlokans/bookbridge/internal/entities"
	"github.com/mrlokans/bookbridge/internal/services"
)

// TruncatedHeader tells clients a generated PDF holds only part of the book.
const TruncatedHeader = "X-Content-Truncated"

type DownloadController struct {
	service *services.DownloadService
}

func NewDownloadController(service *services.DownloadService) *DownloadController {
	return &DownloadController{
		service: service,
	}
}

// Download handles GET /v1/download/:source/:id?format=.
func (controller *DownloadController) Download(c *gin.Context) {
	source, err := entities.ParseSourceID(c.Param("source"))
	if err != nil {
		respondError(c, http.StatusBadRequest, CodeUnsupportedSource, err.Error())
		return
	}

	result, err := controller.service.Download(c.Request.Context(), source, c.Param("id"), c.Query("format"))
	if err != nil {
		controller.respondDownloadError(c, source, err)
		return
	}
	defer result.Body.Close()

	headers := map[string]string{
		"Content-Disposition": `attachment; filename="` + result.Filename + `"`,
	}
	if result.Truncated {
		headers[TruncatedHeader] = "true"
	}

	c.DataFromReader(http.StatusOK, result.ContentLength, result.ContentType, result.Body, headers)
}

func (controller *DownloadController) respondDownloadError(c *gin.Context, source entities.SourceID, err error) {
	var convErr *convert.ConversionError
	switch {
	case errors.Is(err, downloads.ErrUnsupportedFormat):
		respondError(c, http.StatusBadRequest, CodeUnsupportedFormat, err.Error())
	case errors.Is(err, downloads.ErrUnsupportedSource):
		respondError(c, http.StatusBadRequest, CodeUnsupportedSource, err.Error())
	case errors.Is(err, services.ErrEmptyID):
		respondBadRequest(c, err.Error())
	case errors.Is(err, downloads.ErrNotFound):
		log.Printf("[DOWNLOAD] %s:%s no candidate found", source, c.Param("id"))
		respondError(c, http.StatusNotFound, CodeNotFound, "book file not found in any supported format")
	case errors.As(err, &convErr):
		log.Printf("[DOWNLOAD] %s:%s conversion failed: %v", source, c.Param("id"), err)
		respondError(c, http.StatusUnprocessableEntity, CodeConversionFailed, convErr.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(c, http.StatusGatewayTimeout, CodeUpstreamFailed, "download timed out")
	default:
		respondInternalError(c, err, "download")
	}
}
