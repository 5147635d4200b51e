package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/speaking-backend/internal/response"
	"github.com/stemsi/speaking-backend/internal/service"
)

// UserHandler serves the admin user directory.
type UserHandler struct {
	userService *service.UserService
	log         zerolog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *service.UserService, log zerolog.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		log:         log.With().Str("component", "user_handler").Logger(),
	}
}

// List godoc
// GET /api/users/list?page=&limit=
func (h *UserHandler) List(c *gin.Context) {
	page, perPage := pageQuery(c)

	users, pagination, err := h.userService.List(c.Request.Context(), page, perPage)
	if err != nil {
		failInternal(c, h.log, err, "list users failed")
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, users, pagination)
}

// Get godoc
// GET /api/users/getuserid/:id
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		failInternal(c, h.log, err, "get user failed")
		return
	}

	response.Success(c, http.StatusOK, user)
}
