package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/fieldops/internal/domain/apperror"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Message       string            `json:"message"`
	Errors        map[string]string `json:"errors,omitempty"`
	CurrentStatus string            `json:"currentStatus,omitempty"`
}

// respondError maps the error taxonomy onto status codes. Persistence and
// unexpected errors are logged and never echoed to the client.
func (h *Handlers) respondError(c *gin.Context, err error) {
	var (
		validation   *apperror.ValidationError
		notFound     *apperror.NotFoundError
		invalidState *apperror.InvalidStateError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: validation.Message,
			Errors:  validation.Fields,
		})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: notFound.Message})
	case errors.As(err, &invalidState):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message:       invalidState.Message,
			CurrentStatus: invalidState.Current,
		})
	default:
		h.logger.Error("Request failed",
			"error", err,
			"path", c.FullPath(),
			"request_id", c.GetString(requestIDKey))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
	}
}
