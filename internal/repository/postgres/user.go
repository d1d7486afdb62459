package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/todo-tracker/internal/apperror"
	"github.com/sakif/todo-tracker/internal/model"
	"github.com/sakif/todo-tracker/internal/repository"
)

var _ repository.UserRepository = (*UserRepository)(nil)

// UserRepository stores accounts in the users table.
type UserRepository struct {
	db  DBTX
	now func() time.Time
}

// NewUserRepository creates a UserRepository on db.
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db, now: time.Now}
}

// Create inserts user and reads the generated id back with RETURNING.
// A UNIQUE violation on email becomes apperror.DuplicateEmail.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	createdAt := stamp(r.now)

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (first_name, last_name, email, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		user.FirstName, user.LastName, user.Email, user.PasswordHash, createdAt,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.DuplicateEmail()
		}
		return fmt.Errorf("postgres: inserting user: %w", err)
	}

	user.CreatedAt = createdAt
	return nil
}

// GetByEmail looks a user up by (already normalized) email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := r.get(ctx, `WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &apperror.AppError{Err: apperror.ErrNotFound, Message: "user not found"}
		}
		return nil, fmt.Errorf("postgres: getting user by email: %w", err)
	}
	return u, nil
}

// GetByID retrieves a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := r.get(ctx, `WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("User", id)
		}
		return nil, fmt.Errorf("postgres: getting user %d: %w", id, err)
	}
	return u, nil
}

func (r *UserRepository) get(ctx context.Context, where string, arg any) (*model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, email, password_hash, created_at
		 FROM users `+where,
		arg,
	).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}
