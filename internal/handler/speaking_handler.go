package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/response"
	"github.com/stemsi/speaking-backend/internal/service"
	"github.com/stemsi/speaking-backend/internal/validator"
)

// SpeakingTestHandler schedules and reads speaking tests.
type SpeakingTestHandler struct {
	testService *service.SpeakingTestService
	log         zerolog.Logger
}

// NewSpeakingTestHandler creates a new SpeakingTestHandler.
func NewSpeakingTestHandler(testService *service.SpeakingTestService, log zerolog.Logger) *SpeakingTestHandler {
	return &SpeakingTestHandler{
		testService: testService,
		log:         log.With().Str("component", "speaking_handler").Logger(),
	}
}

// Create godoc
// POST /api/speaking-tests/create
func (h *SpeakingTestHandler) Create(c *gin.Context) {
	var req model.CreateSpeakingTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	t, err := h.testService.Create(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.FailWithFields(c, http.StatusNotFound, response.ErrNotFound,
				map[string]string{"user_id": "user does not exist"})
			return
		}
		failInternal(c, h.log, err, "create speaking test failed")
		return
	}

	response.Success(c, http.StatusCreated, t)
}

// Get godoc
// GET /api/speaking-tests/testid/:id
func (h *SpeakingTestHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	t, err := h.testService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrSpeakingTestNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		failInternal(c, h.log, err, "get speaking test failed")
		return
	}

	response.Success(c, http.StatusOK, t)
}
