package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/moexdata/moexpulse/internal/apperror"
	"github.com/moexdata/moexpulse/internal/domain/dto"
	"github.com/moexdata/moexpulse/internal/logger"
)

// ErrorHandler converts errors attached to the Gin context into a JSON
// ErrorResponse with a status derived from the error's apperror kind.
//
// Handlers may either write their own error responses directly or attach an
// error via c.Error(err) and leave status mapping to this middleware. Errors
// attached after a response was already written are only logged.
func ErrorHandler(c *gin.Context) {
	c.Next()

	if len(c.Errors) == 0 {
		return
	}

	err := c.Errors.Last().Err
	logger.L().Error().
		Str("request_id", toString(mustGet(c, RequestIDKey))).
		Err(err).
		Msg("request failed")

	if c.Writer.Written() {
		return
	}

	status := http.StatusInternalServerError
	var ae *apperror.Error
	if errors.As(err, &ae) {
		status = ae.HTTPStatus()
	}

	c.AbortWithStatusJSON(status, dto.NewErrorResponse("request failed", err))
}

func mustGet(c *gin.Context, key string) any {
	v, _ := c.Get(key)
	return v
}
