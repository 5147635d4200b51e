package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/speaking-backend/internal/model"
)

const userColumns = `id, name, email, phone, password_hash, role, created_at`

// UserRepository handles user data access.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row, u *model.User) error {
	return row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.Role, &u.CreatedAt)
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id int) (*model.User, error) {
	u := &model.User{}
	err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id), u)
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// GetByEmail retrieves a user by their unique email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u := &model.User{}
	err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email), u)
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// ExistsByEmail reports whether an account already uses email.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	return exists, err
}

// ExistsByPhone reports whether an account already uses phone.
func (r *UserRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE phone = $1)`, phone).Scan(&exists)
	return exists, err
}

// ListPaginated retrieves users ordered by ID.
func (r *UserRepository) ListPaginated(ctx context.Context, limit, offset int) ([]model.User, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// Create inserts a new user. The unique indexes on email and phone are the
// final arbiter when two registrations race past the existence checks.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, phone, password_hash, role)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		u.Name, u.Email, u.Phone, u.PasswordHash, u.Role,
	).Scan(&u.ID, &u.CreatedAt)
	if err == nil {
		return nil
	}

	if code, constraint := pgErrorCode(err); code == pgUniqueViolation {
		switch constraint {
		case "users_phone_key":
			return ErrDuplicatePhone
		default:
			return ErrDuplicateEmail
		}
	}
	return err
}
