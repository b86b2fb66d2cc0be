package handlers

import (
	"errors"
	"net/http"

	"spec-registry-service/internal/core/codec"
	"spec-registry-service/internal/core/domain"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func mapDomainError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	// Not found errors
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	// Conflict errors
	case errors.Is(err, domain.ErrGroupNotEmpty),
		errors.Is(err, domain.ErrConditionFailed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	// Bad request / validation errors
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	// Service unavailable errors; the request may be retried as is.
	case errors.Is(err, domain.ErrTransientStore),
		errors.Is(err, domain.ErrTransientQueue),
		errors.Is(err, domain.ErrTransientBlob):
		log.WithError(err).Warn("backend unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable"})

	case errors.Is(err, codec.ErrDecode):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stored record is corrupt"})

	default:
		log.WithError(err).Error("unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
