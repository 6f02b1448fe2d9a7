package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/matheusmosca/shop-service/internal/domain"
	"github.com/matheusmosca/shop-service/internal/logging"
)

// statusFor maps a domain error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrDuplicateKey),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// writeError records err on span and writes the JSON error body. Unclassified
// errors are logged and answered with a generic message.
func writeError(c *gin.Context, logger *zap.Logger, span trace.Span, err error) {
	span.RecordError(err)

	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.FromContext(c.Request.Context(), logger).Error("request failed",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": domain.Message(err)})
}

func badRequest(c *gin.Context, span trace.Span, msg string) {
	span.RecordError(errors.New(msg))
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
