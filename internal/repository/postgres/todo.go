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

var _ repository.TodoRepository = (*TodoRepository)(nil)

const todoColumns = `id, title, description, is_completed, created_at, updated_at, user_id`

// TodoRepository mirrors the SQLite implementation statement for statement;
// only the placeholder syntax and the "no limit" spelling differ.
type TodoRepository struct {
	db  DBTX
	now func() time.Time
}

// NewTodoRepository creates a TodoRepository on db.
func NewTodoRepository(db DBTX) *TodoRepository {
	return &TodoRepository{db: db, now: time.Now}
}

// Create inserts a todo owned by identity; todo.UserID is overwritten.
func (r *TodoRepository) Create(ctx context.Context, identity model.Identity, todo *model.Todo) error {
	createdAt := stamp(r.now)
	todo.UserID = identity.UserID

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO todos (title, description, is_completed, created_at, user_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		todo.Title, nullString(todo.Description), todo.IsCompleted, createdAt, todo.UserID,
	).Scan(&todo.ID)
	if err != nil {
		return fmt.Errorf("postgres: creating todo: %w", err)
	}

	todo.CreatedAt = createdAt
	todo.UpdatedAt = nil
	return nil
}

// GetByID returns the todo only if identity owns it; otherwise NotFound.
func (r *TodoRepository) GetByID(ctx context.Context, identity model.Identity, id int64) (*model.Todo, error) {
	todo, err := scanTodo(r.db.QueryRowContext(ctx,
		`SELECT `+todoColumns+`
		 FROM todos
		 WHERE id = $1 AND user_id = $2`,
		id, identity.UserID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Todo", id)
		}
		return nil, fmt.Errorf("postgres: getting todo %d: %w", id, err)
	}
	return todo, nil
}

// List passes a NULL limit when opts.Limit is 0; LIMIT NULL is "no limit".
func (r *TodoRepository) List(ctx context.Context, identity model.Identity, opts repository.ListOptions) ([]model.Todo, error) {
	opts = opts.Normalize()
	var limit any
	if opts.Limit > 0 {
		limit = opts.Limit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+todoColumns+`
		 FROM todos
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		identity.UserID, limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing todos: %w", err)
	}
	defer rows.Close()

	todos := make([]model.Todo, 0)
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scanning todo row: %w", err)
		}
		todos = append(todos, *todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating todo rows: %w", err)
	}
	return todos, nil
}

// Update overwrites the editable fields with UPDATE ... RETURNING.
func (r *TodoRepository) Update(ctx context.Context, identity model.Identity, todo *model.Todo) error {
	updated, err := scanTodo(r.db.QueryRowContext(ctx,
		`UPDATE todos
		 SET title = $1, description = $2, is_completed = $3, updated_at = $4
		 WHERE id = $5 AND user_id = $6
		 RETURNING `+todoColumns,
		todo.Title, nullString(todo.Description), todo.IsCompleted, stamp(r.now), todo.ID, identity.UserID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("Todo", todo.ID)
		}
		return fmt.Errorf("postgres: updating todo %d: %w", todo.ID, err)
	}

	*todo = *updated
	return nil
}

// Toggle flips is_completed and returns the updated row.
func (r *TodoRepository) Toggle(ctx context.Context, identity model.Identity, id int64) (*model.Todo, error) {
	todo, err := scanTodo(r.db.QueryRowContext(ctx,
		`UPDATE todos
		 SET is_completed = NOT is_completed, updated_at = $1
		 WHERE id = $2 AND user_id = $3
		 RETURNING `+todoColumns,
		stamp(r.now), id, identity.UserID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Todo", id)
		}
		return nil, fmt.Errorf("postgres: toggling todo %d: %w", id, err)
	}
	return todo, nil
}

// Delete removes the todo; zero rows affected means NotFound.
func (r *TodoRepository) Delete(ctx context.Context, identity model.Identity, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM todos WHERE id = $1 AND user_id = $2`,
		id, identity.UserID,
	)
	if err != nil {
		return fmt.Errorf("postgres: deleting todo %d: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("Todo", id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTodo(s scanner) (*model.Todo, error) {
	var (
		t           model.Todo
		description sql.NullString
		updated     sql.NullTime
	)
	if err := s.Scan(&t.ID, &t.Title, &description, &t.IsCompleted, &t.CreatedAt, &updated, &t.UserID); err != nil {
		return nil, err
	}

	if description.Valid {
		t.Description = &description.String
	}
	t.CreatedAt = t.CreatedAt.UTC()
	if updated.Valid {
		u := updated.Time.UTC()
		t.UpdatedAt = &u
	}
	return &t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
