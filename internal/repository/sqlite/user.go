package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/todo-tracker/internal/apperror"
	"github.com/sakif/todo-tracker/internal/model"
	"github.com/sakif/todo-tracker/internal/repository"
)

// compile-time check that *userRepo implements repository.UserRepository
var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct {
	db *DB
}

// Create inserts a new user.
//
// The email column is UNIQUE. The auth service checks for an existing
// account first, but two concurrent registrations can both pass that check;
// the constraint is what actually guarantees one account per email, and its
// violation is reported as apperror.DuplicateEmail.
func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	createdAt, stamp := r.db.timestamp()

	res, err := r.db.conn.ExecContext(ctx,
		`INSERT INTO users (first_name, last_name, email, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		stamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.DuplicateEmail()
		}
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new user id: %w", err)
	}

	user.ID = id
	user.CreatedAt = createdAt
	return nil
}

// GetByEmail looks a user up by (already normalized) email.
func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.db.conn.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, email, password_hash, created_at
		 FROM users WHERE email = ?`,
		email,
	)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The email is deliberately not echoed back.
			return nil, &apperror.AppError{Err: apperror.ErrNotFound, Message: "user not found"}
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

// GetByID retrieves a user by id.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (r *userRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	row := r.db.conn.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, email, password_hash, created_at
		 FROM users WHERE id = ?`,
		id,
	)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("User", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %d: %w", id, err)
	}
	return u, nil
}

func scanUser(row *sql.Row) (*model.User, error) {
	var (
		u       model.User
		created string
	)
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &created); err != nil {
		return nil, err
	}

	t, err := parseTime(created)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = t
	return &u, nil
}
