package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stemsi/speaking-backend/internal/model"
)

// Claims extends JWT standard claims with the identity fields.
type Claims struct {
	jwt.RegisteredClaims
	UserID int        `json:"user_id"`
	Role   model.Role `json:"role"`
}

// TokenService issues and verifies HS256 bearer tokens.
// Tokens are stateless: nothing is stored and nothing can be revoked
// before it expires.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService signing with secret.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// Issue signs a token for the user that expires after the configured TTL.
func (s *TokenService) Issue(userID int, role model.Role) (string, error) {
	if userID <= 0 || !role.Valid() {
		return "", fmt.Errorf("issue token: %w", ErrTokenInvalid)
	}

	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserID: userID,
		Role:   role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature first and then the claims. An expired but
// correctly signed token yields ErrTokenExpired; every other failure,
// including a token with no expiry, yields ErrTokenInvalid.
func (s *TokenService) Verify(tokenStr string) (*model.Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(*jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
		jwt.WithStrictDecoding(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if claims.UserID <= 0 || !claims.Role.Valid() {
		return nil, ErrTokenInvalid
	}

	return &model.Identity{UserID: claims.UserID, Role: claims.Role}, nil
}
