// Package httpapi holds the pieces every portal handler shares: error to
// status mapping, request binding and the enum validators.
package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/promptportal/pkg/portal/catalog"
	"github.com/mikepea/promptportal/pkg/portal/store"
	"go.uber.org/zap"
)

// Status maps a catalog or store error to an HTTP status code
func Status(err error) int {
	var verr *catalog.ValidationError
	switch {
	case errors.Is(err, catalog.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

var messages = map[int]string{
	http.StatusUnauthorized: "Authentication required",
	http.StatusNotFound:     "Not found",
	http.StatusForbidden:    "You do not have permission to modify this resource",
	http.StatusConflict:     "Already exists",
}

// Error writes err as {"error": ...}. Server errors are logged and reported
// with fallback as the message.
func Error(c *gin.Context, log *zap.Logger, err error, fallback string) {
	status := Status(err)

	var verr *catalog.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(status, gin.H{"error": verr.Error()})
	case status == http.StatusInternalServerError:
		if log != nil {
			log.Error(fallback, zap.Error(err), zap.String("path", c.FullPath()))
		}
		c.JSON(status, gin.H{"error": fallback})
	default:
		c.JSON(status, gin.H{"error": messages[status]})
	}
}

// ParseID reads a numeric path parameter. It writes a 400 and returns false
// when the value is not a positive integer.
func ParseID(c *gin.Context, param, what string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + what + " ID"})
		return 0, false
	}
	return uint(id), true
}
