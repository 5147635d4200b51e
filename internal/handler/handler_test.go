package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/speaking-backend/internal/middleware"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/response"
	"github.com/stemsi/speaking-backend/internal/service"
	"github.com/stemsi/speaking-backend/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

type testEnv struct {
	router    *gin.Engine
	tokens    *service.TokenService
	users     *memUsers
	questions *memQuestions
	gen       *stubGenerator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zerolog.Nop()

	env := &testEnv{
		tokens:    service.NewTokenService("handler-secret", time.Hour),
		users:     &memUsers{},
		questions: &memQuestions{},
		gen:       &stubGenerator{fail: map[string]bool{}},
	}

	authSvc := service.NewAuthService(env.users, service.NewPasswordHasher(bcrypt.MinCost), env.tokens, log)
	questionSvc := service.NewQuestionService(env.questions, nil, env.gen, 4, nil, log)

	authH := NewAuthHandler(authSvc, log)
	userH := NewUserHandler(service.NewUserService(env.users), log)
	questionH := NewQuestionHandler(questionSvc, log)
	speakingH := NewSpeakingTestHandler(service.NewSpeakingTestService(&memSpeaking{users: env.users}), log)
	wsH := NewWSHandler(questionSvc, log, nil)

	r := gin.New()
	r.Use(response.RequestIDMiddleware())
	requireAuth := middleware.RequireAuth(env.tokens, log, nil)
	admin := middleware.RequireRole(model.RoleAdmin)

	r.POST("/auth/register", authH.Register)
	r.POST("/auth/login", authH.Login)
	r.GET("/auth/profile", requireAuth, authH.Profile)
	r.GET("/users/list", requireAuth, admin, userH.List)
	r.GET("/users/getuserid/:id", requireAuth, admin, userH.Get)
	r.POST("/questions/generate-question", requireAuth, admin, questionH.GenerateOne)
	r.POST("/questions/generate-questions", requireAuth, admin, questionH.GenerateBatch)
	r.GET("/questions/get-question-pages", questionH.ListPage)
	r.GET("/questions/get-questions", questionH.ListAll)
	r.POST("/speaking-tests/create", requireAuth, speakingH.Create)
	r.GET("/speaking-tests/testid/:id", requireAuth, speakingH.Get)
	r.GET("/ws/questions", middleware.RequireWSAuth(env.tokens, log, nil), admin, wsH.GenerateStream)

	env.router = r
	return env
}

type envelope struct {
	Data       json.RawMessage      `json:"data"`
	Error      *response.ErrorBody  `json:"error"`
	Pagination *response.Pagination `json:"pagination"`
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func (e *testEnv) register(t *testing.T, email, phone string, role model.Role) model.User {
	t.Helper()
	w, env := e.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"name": "Test User", "email": email, "phone": phone, "password": "secret123", "role": role,
	})
	require.Equal(t, http.StatusCreated, w.Code, string(env.Data))
	var u model.User
	require.NoError(t, json.Unmarshal(env.Data, &u))
	return u
}

func (e *testEnv) login(t *testing.T, email string) string {
	t.Helper()
	w, env := e.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": email, "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp model.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	return resp.Token
}

func (e *testEnv) adminToken(t *testing.T) string {
	e.register(t, "admin@example.com", "0800000001", model.RoleAdmin)
	return e.login(t, "admin@example.com")
}

func TestRegister(t *testing.T) {
	e := newTestEnv(t)

	u := e.register(t, "taker@example.com", "0811111111", "")
	assert.Equal(t, model.RoleTestTaker, u.Role)

	w, env := e.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"name": "Other", "email": "taker@example.com", "phone": "0822222222", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, response.ErrConflict, env.Error.Code)
	assert.Contains(t, env.Error.Fields, "email")

	w, env = e.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"name": "Other", "email": "other@example.com", "phone": "0811111111", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, env.Error.Fields, "phone")

	w, env = e.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"name": "Other", "email": "x@example.com", "phone": "0833333333", "password": "secret123", "role": "root",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.ErrValidation, env.Error.Code)
	assert.Contains(t, env.Error.Fields, "role")

	w, env = e.do(t, http.MethodPost, "/auth/register", "", gin.H{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.ErrValidation, env.Error.Code)
}

func TestRegister_MultibytePasswordIsValidationError(t *testing.T) {
	e := newTestEnv(t)

	w, env := e.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"name": "Test User", "email": "a@example.com", "phone": "0811111111", "password": strings.Repeat("é", 72),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, response.ErrValidation, env.Error.Code)
	assert.Contains(t, env.Error.Fields, "password")
}

func TestRegister_ResponseHidesPasswordHash(t *testing.T) {
	e := newTestEnv(t)
	w, _ := e.do(t, http.MethodPost, "/auth/register", "", gin.H{
		"name": "Test User", "email": "a@example.com", "phone": "0811111111", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
	assert.NotContains(t, w.Body.String(), "$2a$")
}

func TestLoginAndProfile(t *testing.T) {
	e := newTestEnv(t)
	u := e.register(t, "taker@example.com", "0811111111", "")

	w, env := e.do(t, http.MethodPost, "/auth/login", "", gin.H{"email": "taker@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, response.ErrInvalidCredentials, env.Error.Code)

	token := e.login(t, "taker@example.com")

	w, env = e.do(t, http.MethodGet, "/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got model.User
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, u.ID, got.ID)

	w, env = e.do(t, http.MethodGet, "/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, response.ErrTokenRequired, env.Error.Code)
}

func TestProfile_DeletedUser(t *testing.T) {
	e := newTestEnv(t)
	token, err := e.tokens.Issue(77, model.RoleTestTaker)
	require.NoError(t, err)

	w, env := e.do(t, http.MethodGet, "/auth/profile", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.ErrNotFound, env.Error.Code)
}

func TestAdminRoutes_RoleGuard(t *testing.T) {
	e := newTestEnv(t)
	adminTok := e.adminToken(t)
	e.register(t, "taker@example.com", "0811111111", "")
	takerTok := e.login(t, "taker@example.com")

	w, env := e.do(t, http.MethodGet, "/users/list", takerTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, response.ErrForbidden, env.Error.Code)

	w, _ = e.do(t, http.MethodGet, "/users/list", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env = e.do(t, http.MethodGet, "/users/list?page=1&limit=1", adminTok, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.PerPage)
	assert.Equal(t, 2, env.Pagination.TotalItems)
	assert.Equal(t, 2, env.Pagination.TotalPages)
	var users []model.User
	require.NoError(t, json.Unmarshal(env.Data, &users))
	assert.Len(t, users, 1)
}

func TestGetUser(t *testing.T) {
	e := newTestEnv(t)
	adminTok := e.adminToken(t)

	w, _ := e.do(t, http.MethodGet, "/users/getuserid/1", adminTok, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := e.do(t, http.MethodGet, "/users/getuserid/abc", adminTok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.ErrInvalidID, env.Error.Code)

	w, env = e.do(t, http.MethodGet, "/users/getuserid/99", adminTok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.ErrNotFound, env.Error.Code)
}

func TestGenerateBatch_PartialFailure(t *testing.T) {
	e := newTestEnv(t)
	tok := e.adminToken(t)
	e.gen.fail["B"] = true

	w, env := e.do(t, http.MethodPost, "/questions/generate-questions", tok, gin.H{"topics": []string{"A", "B"}})
	assert.Equal(t, http.StatusMultiStatus, w.Code)

	var out model.BatchOutcome
	require.NoError(t, json.Unmarshal(env.Data, &out))
	require.Len(t, out.Generated, 1)
	assert.Equal(t, "A", out.Generated[0].Topic)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "B", out.Errors[0].Topic)
	assert.Equal(t, string(response.ErrUpstream), out.Errors[0].Error)
	assert.NotContains(t, w.Body.String(), "0xdeadbeef")
}

func TestGenerateBatch_AllSucceed(t *testing.T) {
	e := newTestEnv(t)
	tok := e.adminToken(t)

	w, env := e.do(t, http.MethodPost, "/questions/generate-questions", tok, gin.H{"topics": []string{"A", "B"}})
	assert.Equal(t, http.StatusOK, w.Code)

	var out model.BatchOutcome
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Len(t, out.Generated, 2)
	assert.Empty(t, out.Errors)
}

func TestGenerateBatch_InvalidInputMakesNoCalls(t *testing.T) {
	e := newTestEnv(t)
	tok := e.adminToken(t)

	bodies := []any{
		gin.H{"topics": []string{}},
		gin.H{},
		gin.H{"topics": "travel"},
		gin.H{"topics": []any{"travel", 42}},
		gin.H{"topics": []string{"travel", ""}},
		gin.H{"topics": []string{"travel", "   "}},
		`{"topics": [`,
	}
	for _, b := range bodies {
		w, env := e.do(t, http.MethodPost, "/questions/generate-questions", tok, b)
		assert.Equal(t, http.StatusBadRequest, w.Code, "%v", b)
		require.NotNil(t, env.Error)
		assert.Equal(t, response.ErrValidation, env.Error.Code)
	}
	assert.Zero(t, e.gen.calls.Load())
}

func TestGenerateBatch_TestTakerForbidden(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "taker@example.com", "0811111111", "")
	tok := e.login(t, "taker@example.com")

	w, _ := e.do(t, http.MethodPost, "/questions/generate-questions", tok, gin.H{"topics": []string{"A"}})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, e.gen.calls.Load())
}

func TestGenerateOne(t *testing.T) {
	e := newTestEnv(t)
	tok := e.adminToken(t)

	w, env := e.do(t, http.MethodPost, "/questions/generate-question", tok, gin.H{"topic": "travel"})
	require.Equal(t, http.StatusOK, w.Code)
	var q model.GeneratedQuestion
	require.NoError(t, json.Unmarshal(env.Data, &q))
	assert.Equal(t, "Tell me about travel.", q.Question)

	e.gen.fail["storms"] = true
	w, env = e.do(t, http.MethodPost, "/questions/generate-question", tok, gin.H{"topic": "storms"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, response.ErrUpstream, env.Error.Code)
	assert.NotContains(t, w.Body.String(), "0xdeadbeef")

	e.questions.failAll = true
	w, env = e.do(t, http.MethodPost, "/questions/generate-question", tok, gin.H{"topic": "food"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, response.ErrInternal, env.Error.Code)
	assert.NotContains(t, w.Body.String(), "relation")

	w, _ = e.do(t, http.MethodPost, "/questions/generate-question", tok, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListQuestions(t *testing.T) {
	e := newTestEnv(t)
	tok := e.adminToken(t)
	e.do(t, http.MethodPost, "/questions/generate-questions", tok, gin.H{"topics": []string{"A", "B", "C"}})

	w, env := e.do(t, http.MethodGet, "/questions/get-question-pages?page=1&limit=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page []model.GeneratedQuestion
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Len(t, page, 2)
	assert.Equal(t, 2, env.Pagination.PerPage)
	assert.Equal(t, 3, env.Pagination.TotalItems)

	// per_page is still honoured when limit is absent.
	w, env = e.do(t, http.MethodGet, "/questions/get-question-pages?page=2&per_page=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Len(t, page, 1)
	assert.Equal(t, 2, env.Pagination.PerPage)

	w, env = e.do(t, http.MethodGet, "/questions/get-questions", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []model.GeneratedQuestion
	require.NoError(t, json.Unmarshal(env.Data, &all))
	assert.Len(t, all, 3)
}

func TestSpeakingTests(t *testing.T) {
	e := newTestEnv(t)
	u := e.register(t, "taker@example.com", "0811111111", "")
	tok := e.login(t, "taker@example.com")

	w, env := e.do(t, http.MethodPost, "/speaking-tests/create", tok, gin.H{
		"user_id": u.ID, "test_date": "2026-03-01T09:00:00Z", "status": "scheduled",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var st model.SpeakingTest
	require.NoError(t, json.Unmarshal(env.Data, &st))

	w, _ = e.do(t, http.MethodGet, "/speaking-tests/testid/1", tok, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = e.do(t, http.MethodGet, "/speaking-tests/testid/2", tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = e.do(t, http.MethodPost, "/speaking-tests/create", tok, gin.H{
		"user_id": 999, "test_date": "2026-03-01T09:00:00Z", "status": "scheduled",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = e.do(t, http.MethodPost, "/speaking-tests/create", tok, gin.H{"user_id": u.ID, "test_date": "tomorrow", "status": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = e.do(t, http.MethodPost, "/speaking-tests/create", "", gin.H{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestIDEchoed(t *testing.T) {
	e := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/questions/get-questions", nil)
	req.Header.Set(response.RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(response.RequestIDHeader))
	assert.True(t, strings.Contains(w.Body.String(), `"request_id":"abc-123"`))
}
