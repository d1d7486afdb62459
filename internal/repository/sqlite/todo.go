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

// COMPILE-TIME INTERFACE CHECK:
// `var _ X = (*Y)(nil)` fails to compile if *Y stops implementing X, instead of
// failing later wherever *Y first gets passed as an X.
var _ repository.TodoRepository = (*todoRepo)(nil)

type todoRepo struct {
	db *DB
}

const todoColumns = `id, title, description, is_completed, created_at, updated_at, user_id`

// Create inserts a new todo owned by identity.
//
// KEY CONCEPTS:
//
//  1. THE OWNER COMES FROM THE IDENTITY, NOT THE TODO:
//     todo.UserID is overwritten before the INSERT. A caller can't plant a
//     todo in someone else's list by filling the field in.
//
//  2. PARAMETERIZED QUERIES (the ? placeholders):
//     NEVER build SQL strings with fmt.Sprintf or string concatenation!
//     BAD:  "WHERE id = '" + userInput + "'"   ← attacker sends: ' OR 1=1 --
//     GOOD: "WHERE id = ?", userInput           ← driver safely escapes the value
func (r *todoRepo) Create(ctx context.Context, identity model.Identity, todo *model.Todo) error {
	createdAt, stamp := r.db.timestamp()
	todo.UserID = identity.UserID

	res, err := r.db.conn.ExecContext(ctx,
		`INSERT INTO todos (title, description, is_completed, created_at, updated_at, user_id)
		 VALUES (?, ?, ?, ?, NULL, ?)`,
		todo.Title,
		nullString(todo.Description),
		todo.IsCompleted,
		stamp,
		todo.UserID,
	)
	if err != nil {
		// ERROR WRAPPING:
		// %w (not %v!) preserves the error chain so callers can use errors.Is().
		return fmt.Errorf("sqlite: creating todo: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new todo id: %w", err)
	}

	todo.ID = id
	todo.CreatedAt = createdAt
	todo.UpdatedAt = nil
	return nil
}

// GetByID retrieves a single todo owned by identity.
//
// A todo that exists but belongs to another user produces the same
// sql.ErrNoRows as one that doesn't exist, so both become the same NotFound.
func (r *todoRepo) GetByID(ctx context.Context, identity model.Identity, id int64) (*model.Todo, error) {
	row := r.db.conn.QueryRowContext(ctx,
		`SELECT `+todoColumns+`
		 FROM todos
		 WHERE id = ? AND user_id = ?`,
		id, identity.UserID,
	)

	todo, err := scanTodo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Todo", id)
		}
		return nil, fmt.Errorf("sqlite: getting todo %d: %w", id, err)
	}
	return todo, nil
}

// List returns identity's todos, newest first.
//
// KEY CONCEPTS:
//
//  1. defer rows.Close() — ABSOLUTELY CRITICAL:
//     sql.Rows holds a connection from the pool until it's closed.
//
//  2. ORDER BY created_at DESC, id DESC:
//     Two todos created within the same nanosecond still come back in a
//     stable order (the later insert first).
//
//  3. LIMIT -1:
//     SQLite's spelling of "no limit". Used when opts.Limit <= 0.
func (r *todoRepo) List(ctx context.Context, identity model.Identity, opts repository.ListOptions) ([]model.Todo, error) {
	opts = opts.Normalize()
	limit := opts.Limit
	if limit == 0 {
		limit = -1
	}

	rows, err := r.db.conn.QueryContext(ctx,
		`SELECT `+todoColumns+`
		 FROM todos
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		identity.UserID, limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing todos: %w", err)
	}
	defer rows.Close()

	// Non-nil so an empty list encodes as [] rather than null.
	todos := make([]model.Todo, 0)
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning todo row: %w", err)
		}
		todos = append(todos, *todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating todo rows: %w", err)
	}

	return todos, nil
}

// Update overwrites the editable fields of a todo owned by identity.
//
// UPDATE ... RETURNING does the ownership check, the write and the read-back
// in one statement. No rows back means no such todo for this owner.
func (r *todoRepo) Update(ctx context.Context, identity model.Identity, todo *model.Todo) error {
	_, stamp := r.db.timestamp()

	row := r.db.conn.QueryRowContext(ctx,
		`UPDATE todos
		 SET title = ?, description = ?, is_completed = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?
		 RETURNING `+todoColumns,
		todo.Title,
		nullString(todo.Description),
		todo.IsCompleted,
		stamp,
		todo.ID,
		identity.UserID,
	)

	updated, err := scanTodo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("Todo", todo.ID)
		}
		return fmt.Errorf("sqlite: updating todo %d: %w", todo.ID, err)
	}

	*todo = *updated
	return nil
}

// Toggle flips is_completed on a todo owned by identity.
func (r *todoRepo) Toggle(ctx context.Context, identity model.Identity, id int64) (*model.Todo, error) {
	_, stamp := r.db.timestamp()

	row := r.db.conn.QueryRowContext(ctx,
		`UPDATE todos
		 SET is_completed = NOT is_completed, updated_at = ?
		 WHERE id = ? AND user_id = ?
		 RETURNING `+todoColumns,
		stamp, id, identity.UserID,
	)

	todo, err := scanTodo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Todo", id)
		}
		return nil, fmt.Errorf("sqlite: toggling todo %d: %w", id, err)
	}
	return todo, nil
}

// Delete removes a todo owned by identity.
//
// RowsAffected tells us whether anything matched both the id and the owner.
// 0 → the todo doesn't exist for this caller → NotFound.
func (r *todoRepo) Delete(ctx context.Context, identity model.Identity, id int64) error {
	result, err := r.db.conn.ExecContext(ctx,
		`DELETE FROM todos WHERE id = ? AND user_id = ?`,
		id, identity.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting todo %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("Todo", id)
	}

	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTodo(s scanner) (*model.Todo, error) {
	var (
		t           model.Todo
		description sql.NullString
		created     string
		updated     sql.NullString
	)

	if err := s.Scan(&t.ID, &t.Title, &description, &t.IsCompleted, &created, &updated, &t.UserID); err != nil {
		return nil, err
	}

	if description.Valid {
		t.Description = &description.String
	}

	createdAt, err := parseTime(created)
	if err != nil {
		return nil, err
	}
	t.CreatedAt = createdAt

	if t.UpdatedAt, err = parseNullTime(updated); err != nil {
		return nil, err
	}

	return &t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
