package responses

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"dream-export/internal/domain/export"
)

// ErrorResponse is the single error envelope every route uses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Error aborts the request with the given status and message.
func Error(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message})
}

// ServiceError maps export domain errors to HTTP statuses.
func ServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, export.ErrNoMatch):
		Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, export.ErrTooManyForArchive), errors.Is(err, export.ErrTooManyFiles):
		Error(c, http.StatusBadRequest, err.Error())
	default:
		Error(c, http.StatusInternalServerError, err.Error())
	}
}

// MissingConfig rejects a request whose backend secrets are absent,
// naming each missing variable so the operator can fix the deployment.
func MissingConfig(c *gin.Context, vars []string) {
	Error(c, http.StatusInternalServerError, "Missing environment variables: "+strings.Join(vars, ", "))
}
