package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/speaking-backend/internal/response"
)

// Recovery turns a panic into the generic 500 envelope. The panic value and
// stack go to the log only.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, rec any) {
		log.Error().
			Interface("panic", rec).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("request_id", response.GetRequestID(c)).
			Bytes("stack", debug.Stack()).
			Msg("panic recovered")
		response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
	})
}

// NotFound answers unmatched routes with the JSON envelope.
func NotFound(c *gin.Context) {
	response.Fail(c, http.StatusNotFound, response.ErrNotFound)
}

// MethodNotAllowed answers known paths hit with the wrong method.
func MethodNotAllowed(c *gin.Context) {
	response.Fail(c, http.StatusMethodNotAllowed, response.ErrMethodNotAllowed)
}
