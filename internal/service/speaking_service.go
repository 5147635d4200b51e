package service

import (
	"context"
	"errors"
	"strings"

	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/repository"
)

// SpeakingTestStore persists speaking tests.
type SpeakingTestStore interface {
	Create(ctx context.Context, t *model.SpeakingTest) error
	GetByID(ctx context.Context, id int) (*model.SpeakingTest, error)
}

// SpeakingTestService schedules and reads speaking tests.
type SpeakingTestService struct {
	tests SpeakingTestStore
}

// NewSpeakingTestService creates a new SpeakingTestService.
func NewSpeakingTestService(tests SpeakingTestStore) *SpeakingTestService {
	return &SpeakingTestService{tests: tests}
}

// Create schedules a test. A missing user yields ErrUserNotFound.
func (s *SpeakingTestService) Create(ctx context.Context, req *model.CreateSpeakingTestRequest) (*model.SpeakingTest, error) {
	t := &model.SpeakingTest{
		UserID:   req.UserID,
		TestDate: req.TestDate,
		Status:   strings.TrimSpace(req.Status),
	}
	if err := s.tests.Create(ctx, t); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return t, nil
}

// Get returns a speaking test by ID.
func (s *SpeakingTestService) Get(ctx context.Context, id int) (*model.SpeakingTest, error) {
	t, err := s.tests.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSpeakingTestNotFound
	}
	return t, err
}
