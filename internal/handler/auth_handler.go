package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/speaking-backend/internal/middleware"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/response"
	"github.com/stemsi/speaking-backend/internal/service"
	"github.com/stemsi/speaking-backend/internal/validator"
)

// AuthHandler handles registration, login and profile endpoints.
type AuthHandler struct {
	authService *service.AuthService
	log         zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log.With().Str("component", "auth_handler").Logger(),
	}
}

// Register godoc
// POST /api/auth/register
// Creates an account. Role defaults to test_taker.
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRole):
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidRole)
		case errors.Is(err, service.ErrPasswordTooLong):
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
				map[string]string{"password": "password must be at most 72 bytes"})
		case errors.Is(err, service.ErrEmailTaken):
			response.FailWithFields(c, http.StatusConflict, response.ErrConflict,
				map[string]string{"email": "email is already registered"})
		case errors.Is(err, service.ErrPhoneTaken):
			response.FailWithFields(c, http.StatusConflict, response.ErrConflict,
				map[string]string{"phone": "phone is already registered"})
		default:
			failInternal(c, h.log, err, "register failed")
		}
		return
	}

	response.Success(c, http.StatusCreated, user)
}

// Login godoc
// POST /api/auth/login
// Validates email + password and returns a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		failInternal(c, h.log, err, "login failed")
		return
	}

	response.Success(c, http.StatusOK, resp)
}

// Profile godoc
// GET /api/auth/profile
// Returns the account behind the bearer token.
func (h *AuthHandler) Profile(c *gin.Context) {
	id := middleware.GetIdentity(c)
	if id == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	user, err := h.authService.Profile(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		failInternal(c, h.log, err, "profile lookup failed")
		return
	}

	response.Success(c, http.StatusOK, user)
}
