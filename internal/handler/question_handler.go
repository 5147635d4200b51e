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

// QuestionHandler handles question generation and listing.
type QuestionHandler struct {
	questionService *service.QuestionService
	log             zerolog.Logger
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService, log zerolog.Logger) *QuestionHandler {
	return &QuestionHandler{
		questionService: questionService,
		log:             log.With().Str("component", "question_handler").Logger(),
	}
}

// GenerateOne godoc
// POST /api/questions/generate-question
// Generates and stores a question for one topic. Model failures are 502.
func (h *QuestionHandler) GenerateOne(c *gin.Context) {
	var req model.GenerateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.questionService.GenerateOne(c.Request.Context(), req.Topic)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyTopic):
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
				map[string]string{"topic": "topic must not be blank"})
		case errors.Is(err, service.ErrUpstream):
			failLogged(c, h.log, err, "question generation failed", http.StatusBadGateway, response.ErrUpstream)
		default:
			failInternal(c, h.log, err, "question generation failed")
		}
		return
	}

	response.Success(c, http.StatusOK, q)
}

// GenerateBatch godoc
// POST /api/questions/generate-questions
// Generates one question per topic. Answers 200 when every topic succeeded
// and 207 otherwise; per-topic failures are listed under data.errors.
func (h *QuestionHandler) GenerateBatch(c *gin.Context) {
	var req model.GenerateQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	out, err := h.questionService.GenerateBatch(c.Request.Context(), req.Topics)
	if err != nil {
		if errors.Is(err, service.ErrNoTopics) || errors.Is(err, service.ErrEmptyTopic) {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
				map[string]string{"topics": err.Error()})
			return
		}
		failInternal(c, h.log, err, "batch generation failed")
		return
	}

	response.Success(c, out.Status(), out)
}

// ListPage godoc
// GET /api/questions/get-question-pages?page=&limit=
func (h *QuestionHandler) ListPage(c *gin.Context) {
	page, perPage := pageQuery(c)

	questions, pagination, err := h.questionService.ListPage(c.Request.Context(), page, perPage)
	if err != nil {
		failInternal(c, h.log, err, "list questions failed")
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, questions, pagination)
}

// ListAll godoc
// GET /api/questions/get-questions
func (h *QuestionHandler) ListAll(c *gin.Context) {
	questions, err := h.questionService.ListAll(c.Request.Context())
	if err != nil {
		failInternal(c, h.log, err, "list questions failed")
		return
	}

	response.Success(c, http.StatusOK, questions)
}
