package service

import (
	"context"
	"errors"

	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/repository"
	"github.com/stemsi/speaking-backend/internal/response"
)

// UserService serves the admin user directory.
type UserService struct {
	users UserStore
}

// NewUserService creates a new UserService.
func NewUserService(users UserStore) *UserService {
	return &UserService{users: users}
}

// List returns one page of users.
func (s *UserService) List(ctx context.Context, page, perPage int) ([]model.User, *response.Pagination, error) {
	page, perPage = normalizePage(page, perPage)

	users, total, err := s.users.ListPaginated(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if users == nil {
		users = []model.User{}
	}

	return users, response.NewPagination(page, perPage, total), nil
}

// Get returns a single user.
func (s *UserService) Get(ctx context.Context, id int) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}
