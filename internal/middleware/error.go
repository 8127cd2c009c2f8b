package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/httputil"
)

// ErrorHandler renders the last error a handler attached with c.Error.
// Internal errors are logged with their cause; the client only sees a
// generic message.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		lastErr := c.Errors.Last()
		if apperrors.KindOf(lastErr.Err) == apperrors.KindInternal {
			log.Error().
				Err(lastErr.Err).
				Str("request_id", c.GetString(ContextRequestID)).
				Str("method", c.Request.Method).
				Str("path", c.Request.URL.Path).
				Str("client_ip", c.ClientIP()).
				Msg("request failed")
		}

		if c.Writer.Written() {
			return
		}
		httputil.RespondWithError(c, lastErr.Err)
	}
}
