// Package repository defines the storage interfaces the service layer depends on.
//
// WHY INTERFACES?
// The service layer never imports a concrete database package. It depends on
// these interfaces, and the composition root (internal/server) decides which
// backend satisfies them: SQLite for a single-binary deployment, Postgres when
// DB_DRIVER=postgres. Service tests plug in hand-written in-memory fakes.
//
// OWNERSHIP SCOPING:
// Every TodoRepository method takes a model.Identity. The owner filter is part
// of each SQL statement (WHERE id = ? AND user_id = ?), so a caller cannot
// read, change or delete another user's todo even by guessing its id. A todo
// owned by someone else is reported exactly like a todo that doesn't exist.
package repository

import (
	"context"

	"github.com/sakif/todo-tracker/internal/model"
)

// MaxListLimit caps how many rows a single List call may return when a limit
// is given.
const MaxListLimit = 100

// ListOptions pages a List call. Limit <= 0 means "no limit".
type ListOptions struct {
	Limit  int
	Offset int
}

// Normalize clamps the options to the accepted range.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit > MaxListLimit {
		o.Limit = MaxListLimit
	}
	if o.Limit < 0 {
		o.Limit = 0
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// UserRepository stores registered accounts.
//
// Emails are stored and looked up exactly as given; the auth service
// normalizes them (trim + lowercase) before calling in.
type UserRepository interface {
	// Create inserts user, filling in ID and CreatedAt.
	// Returns apperror.ErrDuplicateEmail if the email is already taken.
	Create(ctx context.Context, user *model.User) error
	// GetByEmail returns apperror.ErrNotFound when no account has that email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// TodoRepository stores todos, always scoped to the calling identity.
type TodoRepository interface {
	// Create stamps the owner from identity (whatever todo.UserID held is
	// overwritten) and fills in ID and CreatedAt.
	Create(ctx context.Context, identity model.Identity, todo *model.Todo) error
	GetByID(ctx context.Context, identity model.Identity, id int64) (*model.Todo, error)
	// List returns the identity's todos, newest first.
	List(ctx context.Context, identity model.Identity, opts ListOptions) ([]model.Todo, error)
	// Update overwrites title, description and completion, stamps UpdatedAt,
	// and refreshes todo from the stored row.
	Update(ctx context.Context, identity model.Identity, todo *model.Todo) error
	// Toggle flips completion and returns the updated row.
	Toggle(ctx context.Context, identity model.Identity, id int64) (*model.Todo, error)
	Delete(ctx context.Context, identity model.Identity, id int64) error
}

// Store is an opened database: both repositories share one connection pool.
type Store interface {
	Users() UserRepository
	Todos() TodoRepository
	Ping(ctx context.Context) error
	Close() error
}
