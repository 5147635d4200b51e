package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/speaking-backend/internal/metrics"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/response"
	"github.com/stemsi/speaking-backend/internal/service"
)

// TokenVerifier resolves a bearer token into an identity.
type TokenVerifier interface {
	Verify(token string) (*model.Identity, error)
}

// RequireAuth validates the bearer token in the Authorization header and
// attaches the caller's identity to the request context. Every rejection is
// a 401. m may be nil.
func RequireAuth(tokens TokenVerifier, log zerolog.Logger, m *metrics.Metrics) gin.HandlerFunc {
	log = log.With().Str("component", "auth").Logger()
	return func(c *gin.Context) {
		authenticate(c, bearerToken(c.GetHeader("Authorization")), tokens, log, m)
	}
}

// RequireWSAuth is RequireAuth for WebSocket upgrades, which carry the token
// in the ?token= query parameter.
func RequireWSAuth(tokens TokenVerifier, log zerolog.Logger, m *metrics.Metrics) gin.HandlerFunc {
	log = log.With().Str("component", "auth").Logger()
	return func(c *gin.Context) {
		authenticate(c, c.Query("token"), tokens, log, m)
	}
}

// GetIdentity returns the identity attached by RequireAuth, or nil.
func GetIdentity(c *gin.Context) *model.Identity {
	return model.IdentityFromContext(c.Request.Context())
}

func authenticate(c *gin.Context, token string, tokens TokenVerifier, log zerolog.Logger, m *metrics.Metrics) {
	event := func() *zerolog.Event {
		return log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("client_ip", c.ClientIP())
	}

	if token == "" {
		m.ObserveAuth(metrics.AuthMissingHeader)
		event().Str("outcome", metrics.AuthMissingHeader).Msg("authentication rejected")
		response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	id, err := tokens.Verify(token)
	if err != nil {
		outcome, code := metrics.AuthInvalid, response.ErrTokenInvalid
		if errors.Is(err, service.ErrTokenExpired) {
			outcome, code = metrics.AuthExpired, response.ErrTokenExpired
		}
		m.ObserveAuth(outcome)
		event().Str("outcome", outcome).Msg("authentication rejected")
		response.AbortFail(c, http.StatusUnauthorized, code)
		return
	}

	m.ObserveAuth(metrics.AuthSuccess)
	event().Str("outcome", metrics.AuthSuccess).Int("user_id", id.UserID).Msg("authenticated")

	c.Request = c.Request.WithContext(model.WithIdentity(c.Request.Context(), id))
	c.Next()
}

// bearerToken extracts the token from "Bearer <token>". The scheme is
// matched case-insensitively; anything else yields "".
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
