package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/speaking-backend/internal/middleware"
	"github.com/stemsi/speaking-backend/internal/response"
)

// failInternal logs err with request context and sends a generic 500.
func failInternal(c *gin.Context, log zerolog.Logger, err error, msg string) {
	failLogged(c, log, err, msg, http.StatusInternalServerError, response.ErrInternal)
}

// failLogged logs err with request context and sends status with code.
// The error text never reaches the client.
func failLogged(c *gin.Context, log zerolog.Logger, err error, msg string, status int, code response.ErrCode) {
	ev := log.Error().
		Err(err).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Str("request_id", response.GetRequestID(c))
	if id := middleware.GetIdentity(c); id != nil {
		ev = ev.Int("user_id", id.UserID).Str("role", id.Role.String())
	}
	ev.Msg(msg)
	response.Fail(c, status, code)
}

// paramID parses a positive integer path parameter.
func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id < 1 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}

// pageQuery reads ?page= and ?limit=, accepting ?per_page= when limit is
// absent. Bad values fall back to defaults in the service layer.
func pageQuery(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, ok := c.GetQuery("limit")
	if !ok {
		limit = c.Query("per_page")
	}
	perPage, _ = strconv.Atoi(limit)
	return page, perPage
}
