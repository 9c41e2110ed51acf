package http

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookbridge/internal/entities"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context (validation errors, etc.)
}

// Error codes used by the /v1 endpoints.
const (
	CodeInvalidRequest    = "invalid_request"
	CodeUnsupportedSource = "unsupported_source"
	CodeUnsupportedFormat = "unsupported_format"
	CodeNotFound          = "not_found"
	CodeConversionFailed  = "conversion_failed"
	CodeUpstreamFailed    = "upstream_failed"
)

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: CodeInvalidRequest})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found", Code: CodeNotFound})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// respondError sends an error response with the given status code and error code.
// Use the specific helpers (respondBadRequest, respondNotFound, etc.) when possible.
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: message, Code: code})
}

// --- Parameter Parsing ---

// parseIntQuery reads an optional positive integer query parameter.
// Returns 0 when absent, or responds with a 400 error and returns false.
func parseIntQuery(c *gin.Context, name string) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		respondBadRequest(c, "invalid "+name)
		return 0, false
	}
	return n, true
}

// parseSearchOptions reads the shared search filters from the query string.
func parseSearchOptions(c *gin.Context) (entities.SearchOptions, bool) {
	page, ok := parseIntQuery(c, "page")
	if !ok {
		return entities.SearchOptions{}, false
	}
	limit, ok := parseIntQuery(c, "limit")
	if !ok {
		return entities.SearchOptions{}, false
	}

	return entities.SearchOptions{
		Language:   c.Query("language"),
		Author:     c.Query("author"),
		Topic:      c.Query("topic"),
		Collection: c.Query("collection"),
		Region:     c.Query("region"),
		Page:       page,
		Limit:      limit,
		Sort:       c.Query("sort"),
	}.Normalized(), true
}

// parseSources splits ?sources=a,b. Names are not validated here: unknown sources are
// reported per source in the merged result.
func parseSources(raw string) []entities.SourceID {
	var out []entities.SourceID
	for _, part := range strings.Split(raw, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, entities.SourceID(part))
		}
	}
	return out
}
