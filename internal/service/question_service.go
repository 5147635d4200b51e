package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/stemsi/speaking-backend/internal/generator"
	"github.com/stemsi/speaking-backend/internal/metrics"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/repository"
	"github.com/stemsi/speaking-backend/internal/response"
)

// ErrUpstream is returned when the language model call fails.
var ErrUpstream = generator.ErrUpstream

// Generator completes a single prompt.
type Generator interface {
	Complete(ctx context.Context, p generator.Prompt) (string, error)
}

// QuestionStore persists generated questions.
type QuestionStore interface {
	Create(ctx context.Context, q *model.GeneratedQuestion) error
	ListAll(ctx context.Context) ([]model.GeneratedQuestion, error)
	ListPaginated(ctx context.Context, limit, offset int) ([]model.GeneratedQuestion, int, error)
}

// QuestionPageCache caches listing pages. Implementations must tolerate
// concurrent use.
type QuestionPageCache interface {
	GetPage(ctx context.Context, page, perPage int) (*repository.QuestionPage, bool, error)
	SetPage(ctx context.Context, page, perPage int, p *repository.QuestionPage) error
	Invalidate(ctx context.Context) error
}

// TopicResult is the settled outcome of one batch topic. Exactly one of
// Question and Error is set.
type TopicResult struct {
	Index    int
	Topic    string
	Question *model.GeneratedQuestion
	Error    *model.TopicError
}

// QuestionService generates, stores and lists speaking questions.
type QuestionService struct {
	questions   QuestionStore
	cache       QuestionPageCache
	gen         Generator
	concurrency int
	metrics     *metrics.Metrics
	log         zerolog.Logger
}

// NewQuestionService creates a new QuestionService. cache and m may be nil.
func NewQuestionService(questions QuestionStore, cache QuestionPageCache, gen Generator, concurrency int, m *metrics.Metrics, log zerolog.Logger) *QuestionService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &QuestionService{
		questions:   questions,
		cache:       cache,
		gen:         gen,
		concurrency: concurrency,
		metrics:     m,
		log:         log.With().Str("component", "questions").Logger(),
	}
}

// GenerateOne produces and stores a question for a single topic.
// Model failures match ErrUpstream; storage failures do not.
func (s *QuestionService) GenerateOne(ctx context.Context, topic string) (*model.GeneratedQuestion, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	return s.generateAndStore(ctx, topic)
}

// GenerateBatch runs GenerateBatchStream without a callback.
func (s *QuestionService) GenerateBatch(ctx context.Context, topics []string) (*model.BatchOutcome, error) {
	return s.GenerateBatchStream(ctx, topics, nil)
}

// GenerateBatchStream generates one question per topic with at most
// s.concurrency calls in flight. A failing topic never cancels its siblings;
// every topic settles before it returns. onSettle, if non-nil, is called once
// per topic in settlement order and never concurrently.
//
// Topics are validated before any call is made. Both result lists keep the
// input order.
func (s *QuestionService) GenerateBatchStream(ctx context.Context, topics []string, onSettle func(TopicResult)) (*model.BatchOutcome, error) {
	if len(topics) == 0 {
		return nil, ErrNoTopics
	}
	cleaned := make([]string, len(topics))
	for i, t := range topics {
		cleaned[i] = strings.TrimSpace(t)
		if cleaned[i] == "" {
			return nil, fmt.Errorf("topic %d: %w", i, ErrEmptyTopic)
		}
	}

	results := make([]TopicResult, len(cleaned))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i, topic := range cleaned {
		g.Go(func() error {
			res := s.settleTopic(ctx, i, topic)
			results[i] = res

			if onSettle != nil {
				mu.Lock()
				onSettle(res)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	out := &model.BatchOutcome{
		Generated: []model.GeneratedQuestion{},
		Errors:    []model.TopicError{},
	}
	for _, r := range results {
		if r.Question != nil {
			out.Generated = append(out.Generated, *r.Question)
		} else {
			out.Errors = append(out.Errors, *r.Error)
		}
	}

	s.log.Info().
		Int("topics", len(cleaned)).
		Int("generated", len(out.Generated)).
		Int("failed", len(out.Errors)).
		Msg("batch settled")

	return out, nil
}

func (s *QuestionService) settleTopic(ctx context.Context, index int, topic string) (res TopicResult) {
	res = TopicResult{Index: index, Topic: topic}

	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error().Interface("panic", rec).Str("topic", topic).Msg("topic generation panicked")
			res.Question = nil
			res.Error = topicError(topic, response.ErrInternal)
			s.metrics.ObserveBatchTopic(metrics.GenerationFailure)
		}
	}()

	q, err := s.generateAndStore(ctx, topic)
	if err != nil {
		code := response.ErrInternal
		if errors.Is(err, ErrUpstream) {
			code = response.ErrUpstream
		}
		s.log.Warn().Err(err).Str("topic", topic).Str("code", string(code)).Msg("topic failed")
		res.Error = topicError(topic, code)
		s.metrics.ObserveBatchTopic(metrics.GenerationFailure)
		return res
	}

	res.Question = q
	s.metrics.ObserveBatchTopic(metrics.GenerationSuccess)
	return res
}

func topicError(topic string, code response.ErrCode) *model.TopicError {
	return &model.TopicError{
		Topic:   topic,
		Error:   string(code),
		Message: response.GetMessage(code),
	}
}

func (s *QuestionService) generateAndStore(ctx context.Context, topic string) (*model.GeneratedQuestion, error) {
	text, err := s.gen.Complete(ctx, generator.QuestionPrompt(topic))
	if err != nil {
		if !errors.Is(err, ErrUpstream) {
			err = &generator.UpstreamError{Err: err}
		}
		return nil, fmt.Errorf("generate %q: %w", topic, err)
	}

	q := &model.GeneratedQuestion{Topic: topic, Question: text}
	if err := s.questions.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("store question: %w", err)
	}

	s.invalidateCache(ctx)
	return q, nil
}

func (s *QuestionService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("invalidate question cache")
	}
}

// ListPage returns one page of questions, newest first. The cache is
// consulted first; cache errors fall through to the database.
func (s *QuestionService) ListPage(ctx context.Context, page, perPage int) ([]model.GeneratedQuestion, *response.Pagination, error) {
	page, perPage = normalizePage(page, perPage)

	if s.cache != nil {
		cached, ok, err := s.cache.GetPage(ctx, page, perPage)
		if err != nil {
			s.log.Warn().Err(err).Msg("read question cache")
		}
		if ok {
			return cached.Questions, response.NewPagination(page, perPage, cached.Total), nil
		}
	}

	questions, total, err := s.questions.ListPaginated(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if questions == nil {
		questions = []model.GeneratedQuestion{}
	}

	if s.cache != nil {
		if err := s.cache.SetPage(ctx, page, perPage, &repository.QuestionPage{Questions: questions, Total: total}); err != nil {
			s.log.Warn().Err(err).Msg("write question cache")
		}
	}

	return questions, response.NewPagination(page, perPage, total), nil
}

// ListAll returns every stored question, newest first.
func (s *QuestionService) ListAll(ctx context.Context) ([]model.GeneratedQuestion, error) {
	questions, err := s.questions.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if questions == nil {
		questions = []model.GeneratedQuestion{}
	}
	return questions, nil
}
