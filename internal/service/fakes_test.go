package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stemsi/speaking-backend/internal/generator"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/repository"
)

type fakeUserStore struct {
	mu     sync.Mutex
	nextID int
	users  []model.User

	createErr error
}

func (f *fakeUserStore) GetByID(_ context.Context, id int) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := f.GetByEmail(ctx, email)
	return err == nil, nil
}

func (f *fakeUserStore) ExistsByPhone(_ context.Context, phone string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserStore) ListPaginated(_ context.Context, limit, offset int) ([]model.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := len(f.users)
	if offset >= total {
		return nil, total, nil
	}
	end := min(offset+limit, total)
	return append([]model.User(nil), f.users[offset:end]...), total, nil
}

func (f *fakeUserStore) Create(_ context.Context, u *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u.ID = f.nextID
	u.CreatedAt = time.Now()
	f.users = append(f.users, *u)
	return nil
}

type fakeQuestionStore struct {
	mu        sync.Mutex
	nextID    int
	questions []model.GeneratedQuestion

	// failTopics makes Create fail for the named topics.
	failTopics map[string]bool
	listErr    error
	listCalls  atomic.Int32
}

func (f *fakeQuestionStore) Create(_ context.Context, q *model.GeneratedQuestion) error {
	if f.failTopics[q.Topic] {
		return errors.New("insert failed: connection reset")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	q.ID = f.nextID
	q.CreatedAt = time.Now()
	f.questions = append(f.questions, *q)
	return nil
}

func (f *fakeQuestionStore) ListAll(_ context.Context) ([]model.GeneratedQuestion, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]model.GeneratedQuestion(nil), f.questions...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeQuestionStore) ListPaginated(ctx context.Context, limit, offset int) ([]model.GeneratedQuestion, int, error) {
	f.listCalls.Add(1)
	all, err := f.ListAll(ctx)
	if err != nil {
		return nil, 0, err
	}
	if offset >= len(all) {
		return nil, len(all), nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], len(all), nil
}

type fakeCache struct {
	mu          sync.Mutex
	pages       map[[2]int]*repository.QuestionPage
	invalidated int
	getErr      error
}

func newFakeCache() *fakeCache {
	return &fakeCache{pages: map[[2]int]*repository.QuestionPage{}}
}

func (c *fakeCache) GetPage(_ context.Context, page, perPage int) (*repository.QuestionPage, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pages[[2]int{page, perPage}]
	return p, ok, nil
}

func (c *fakeCache) SetPage(_ context.Context, page, perPage int, p *repository.QuestionPage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[[2]int{page, perPage}] = p
	return nil
}

func (c *fakeCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	c.pages = map[[2]int]*repository.QuestionPage{}
	return nil
}

// fakeGenerator answers "Q: <topic>" unless the topic is listed in fail or
// panics. It tracks peak concurrency.
type fakeGenerator struct {
	fail   map[string]error
	panics map[string]bool
	delay  time.Duration

	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32

	mu      sync.Mutex
	prompts []generator.Prompt
}

func (g *fakeGenerator) Complete(ctx context.Context, p generator.Prompt) (string, error) {
	g.calls.Add(1)
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		peak := g.peak.Load()
		if n <= peak || g.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	g.mu.Lock()
	g.prompts = append(g.prompts, p)
	g.mu.Unlock()

	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return "", &generator.UpstreamError{Err: ctx.Err()}
		}
	}

	topic := p.User[len("Generate a speaking test question about: "):]
	if g.panics[topic] {
		panic("boom")
	}
	if err, ok := g.fail[topic]; ok {
		return "", err
	}
	return "Q: " + topic, nil
}

type fakeSpeakingStore struct {
	tests     map[int]*model.SpeakingTest
	knownUser map[int]bool
	nextID    int
}

func (f *fakeSpeakingStore) Create(_ context.Context, t *model.SpeakingTest) error {
	if !f.knownUser[t.UserID] {
		return repository.ErrNotFound
	}
	f.nextID++
	t.ID = f.nextID
	t.CreatedAt = time.Now()
	if f.tests == nil {
		f.tests = map[int]*model.SpeakingTest{}
	}
	f.tests[t.ID] = t
	return nil
}

func (f *fakeSpeakingStore) GetByID(_ context.Context, id int) (*model.SpeakingTest, error) {
	t, ok := f.tests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return t, nil
}
