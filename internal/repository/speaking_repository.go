package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/speaking-backend/internal/model"
)

// SpeakingTestRepository handles speaking test data access.
type SpeakingTestRepository struct {
	pool *pgxpool.Pool
}

// NewSpeakingTestRepository creates a new SpeakingTestRepository.
func NewSpeakingTestRepository(pool *pgxpool.Pool) *SpeakingTestRepository {
	return &SpeakingTestRepository{pool: pool}
}

// Create inserts a speaking test. A missing user surfaces as ErrNotFound
// through the foreign key.
func (r *SpeakingTestRepository) Create(ctx context.Context, t *model.SpeakingTest) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO speaking_tests (user_id, test_date, status, score)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		t.UserID, t.TestDate, t.Status, t.Score,
	).Scan(&t.ID, &t.CreatedAt)
	if code, _ := pgErrorCode(err); code == pgForeignKeyViolation {
		return ErrNotFound
	}
	return err
}

// GetByID retrieves a speaking test by ID.
func (r *SpeakingTestRepository) GetByID(ctx context.Context, id int) (*model.SpeakingTest, error) {
	t := &model.SpeakingTest{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, test_date, status, score, created_at
		 FROM speaking_tests WHERE id = $1`, id,
	).Scan(&t.ID, &t.UserID, &t.TestDate, &t.Status, &t.Score, &t.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}
