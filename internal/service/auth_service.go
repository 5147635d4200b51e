package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/repository"
)

// UserStore is the persistence the auth and user services need.
type UserStore interface {
	GetByID(ctx context.Context, id int) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	ListPaginated(ctx context.Context, limit, offset int) ([]model.User, int, error)
	Create(ctx context.Context, u *model.User) error
}

// AuthService handles registration, login and profile lookup.
type AuthService struct {
	users  UserStore
	hasher *PasswordHasher
	tokens *TokenService
	log    zerolog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, hasher *PasswordHasher, tokens *TokenService, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		log:    log.With().Str("component", "auth").Logger(),
	}
}

// Register creates a new account. An empty role defaults to test_taker;
// any other unknown role is rejected.
func (s *AuthService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	role := req.Role
	if role == "" {
		role = model.RoleTestTaker
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if len(req.Password) > MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	phone := strings.TrimSpace(req.Phone)

	taken, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	taken, err = s.users.ExistsByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("check phone: %w", err)
	}
	if taken {
		return nil, ErrPhoneTaken
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
		Role:         role,
	}

	// The existence checks race with concurrent registrations; the unique
	// constraints have the final say.
	if err := s.users.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, ErrEmailTaken
		case errors.Is(err, repository.ErrDuplicatePhone):
			return nil, ErrPhoneTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Int("user_id", user.ID).Str("role", user.Role.String()).Msg("user registered")
	return user, nil
}

// Login verifies credentials and issues a bearer token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := s.hasher.Check(user.PasswordHash, req.Password); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	return &model.LoginResponse{Token: token, User: *user}, nil
}

// Profile returns the user behind a verified identity.
func (s *AuthService) Profile(ctx context.Context, id *model.Identity) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
