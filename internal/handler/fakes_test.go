package handler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stemsi/speaking-backend/internal/generator"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/repository"
)

type memUsers struct {
	mu    sync.Mutex
	users []model.User
}

func (m *memUsers) find(match func(model.User) bool) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id int) (*model.User, error) {
	return m.find(func(u model.User) bool { return u.ID == id })
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	return m.find(func(u model.User) bool { return u.Email == email })
}

func (m *memUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	return err == nil, nil
}

func (m *memUsers) ExistsByPhone(_ context.Context, phone string) (bool, error) {
	_, err := m.find(func(u model.User) bool { return u.Phone == phone })
	return err == nil, nil
}

func (m *memUsers) ListPaginated(_ context.Context, limit, offset int) ([]model.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if offset >= len(m.users) {
		return nil, len(m.users), nil
	}
	end := min(offset+limit, len(m.users))
	return append([]model.User(nil), m.users[offset:end]...), len(m.users), nil
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = len(m.users) + 1
	u.CreatedAt = time.Now()
	m.users = append(m.users, *u)
	return nil
}

type memQuestions struct {
	mu        sync.Mutex
	questions []model.GeneratedQuestion
	failAll   bool
}

func (m *memQuestions) Create(_ context.Context, q *model.GeneratedQuestion) error {
	if m.failAll {
		return errors.New("pq: relation does not exist")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	q.ID = len(m.questions) + 1
	q.CreatedAt = time.Now()
	m.questions = append(m.questions, *q)
	return nil
}

func (m *memQuestions) ListAll(_ context.Context) ([]model.GeneratedQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.GeneratedQuestion, 0, len(m.questions))
	for i := len(m.questions) - 1; i >= 0; i-- {
		out = append(out, m.questions[i])
	}
	return out, nil
}

func (m *memQuestions) ListPaginated(ctx context.Context, limit, offset int) ([]model.GeneratedQuestion, int, error) {
	all, _ := m.ListAll(ctx)
	if offset >= len(all) {
		return nil, len(all), nil
	}
	return all[offset:min(offset+limit, len(all))], len(all), nil
}

// stubGenerator fails for topics listed in fail and counts calls.
type stubGenerator struct {
	fail  map[string]bool
	calls atomic.Int32
}

func (g *stubGenerator) Complete(_ context.Context, p generator.Prompt) (string, error) {
	g.calls.Add(1)
	topic := strings.TrimPrefix(p.User, "Generate a speaking test question about: ")
	if g.fail[topic] {
		return "", &generator.UpstreamError{StatusCode: 500, Err: errors.New("model exploded: internal trace 0xdeadbeef")}
	}
	return "Tell me about " + topic + ".", nil
}

type memSpeaking struct {
	users *memUsers
	tests []model.SpeakingTest
}

func (m *memSpeaking) Create(ctx context.Context, t *model.SpeakingTest) error {
	if _, err := m.users.GetByID(ctx, t.UserID); err != nil {
		return repository.ErrNotFound
	}
	t.ID = len(m.tests) + 1
	t.CreatedAt = time.Now()
	m.tests = append(m.tests, *t)
	return nil
}

func (m *memSpeaking) GetByID(_ context.Context, id int) (*model.SpeakingTest, error) {
	for _, t := range m.tests {
		if t.ID == id {
			t := t
			return &t, nil
		}
	}
	return nil, repository.ErrNotFound
}
