package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jwalitptl/airmeet-sync/pkg/errors"
)

// ErrorResponse is the JSON error envelope: an "error" message and, when an
// underlying cause exists, its message in "details".
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ErrorHandler converts errors attached to the gin context into the JSON
// error envelope. Handlers call c.Error(err) and return; the status comes
// from the AppError.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)
		for _, e := range c.Errors {
			log.Error().
				Err(e.Err).
				Str("request_id", requestID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Str("client_ip", c.ClientIP()).
				Msg("Request error")
		}

		appErr := apperrors.FromError(c.Errors.Last().Err)
		c.JSON(appErr.StatusCode(), ErrorResponse{
			Error:   appErr.Message,
			Details: appErr.Details(),
		})
	}
}
