package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/speaking-backend/internal/model"
)

// QuestionRepository handles generated question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// Create inserts one generated question. A single INSERT is atomic, so
// concurrent batch workers never leave a half-written row.
func (r *QuestionRepository) Create(ctx context.Context, q *model.GeneratedQuestion) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO generated_questions (topic, question)
		 VALUES ($1, $2)
		 RETURNING id, created_at`,
		q.Topic, q.Question,
	).Scan(&q.ID, &q.CreatedAt)
}

// ListAll retrieves every generated question, newest first.
func (r *QuestionRepository) ListAll(ctx context.Context) ([]model.GeneratedQuestion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, topic, question, created_at
		 FROM generated_questions
		 ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.GeneratedQuestion
	for rows.Next() {
		var q model.GeneratedQuestion
		if err := rows.Scan(&q.ID, &q.Topic, &q.Question, &q.CreatedAt); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ListPaginated retrieves one page of generated questions, newest first.
func (r *QuestionRepository) ListPaginated(ctx context.Context, limit, offset int) ([]model.GeneratedQuestion, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM generated_questions`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, topic, question, created_at
		 FROM generated_questions
		 ORDER BY created_at DESC, id DESC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var questions []model.GeneratedQuestion
	for rows.Next() {
		var q model.GeneratedQuestion
		if err := rows.Scan(&q.ID, &q.Topic, &q.Question, &q.CreatedAt); err != nil {
			return nil, 0, err
		}
		questions = append(questions, q)
	}
	return questions, total, rows.Err()
}
