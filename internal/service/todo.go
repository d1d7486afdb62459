// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// DEPENDENCY INJECTION:
// TodoService takes a repository.TodoRepository (interface), NOT a
// *sqlite.DB (concrete type). Tests pass an in-memory fake; server.go passes
// whichever backend DB_DRIVER selected.
//
// IDENTITY IS AN ARGUMENT:
// Every method takes the caller's model.Identity and hands it straight to the
// repository. The service never decides whose data it is touching on its own.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/todo-tracker/internal/model"
	"github.com/sakif/todo-tracker/internal/repository"
)

// Validation limits, matching the column sizes the browser form enforces.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
)

// TodoInput is the body of a create or update request.
type TodoInput struct {
	Title       string  `json:"title"       validate:"required,max=200"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	IsCompleted bool    `json:"isCompleted"`
}

// normalize trims the title and description. A description that is empty
// after trimming is stored as NULL.
func (in *TodoInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		if d == "" {
			in.Description = nil
		} else {
			in.Description = &d
		}
	}
}

// TodoService handles business logic for todos.
type TodoService struct {
	repo   repository.TodoRepository
	logger *slog.Logger
}

// NewTodoService creates a new TodoService.
func NewTodoService(repo repository.TodoRepository, logger *slog.Logger) *TodoService {
	return &TodoService{
		repo:   repo,
		logger: logger,
	}
}

// Create validates and saves a new todo for identity.
//
// The owner is never taken from the input: TodoInput has no owner field, and
// the repository stamps it from identity.
func (s *TodoService) Create(ctx context.Context, identity model.Identity, in TodoInput) (*model.Todo, error) {
	in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	todo := &model.Todo{
		Title:       in.Title,
		Description: in.Description,
		IsCompleted: in.IsCompleted,
	}
	if err := s.repo.Create(ctx, identity, todo); err != nil {
		return nil, fmt.Errorf("service/todo: creating: %w", err)
	}

	s.logger.Info("todo created",
		slog.Int64("todoID", todo.ID),
		slog.Int64("userID", identity.UserID),
	)
	return todo, nil
}

// Get returns one of identity's todos. Someone else's todo is NotFound.
func (s *TodoService) Get(ctx context.Context, identity model.Identity, id int64) (*model.Todo, error) {
	todo, err := s.repo.GetByID(ctx, identity, id)
	if err != nil {
		return nil, fmt.Errorf("service/todo: getting %d: %w", id, err)
	}
	return todo, nil
}

// List returns identity's todos, newest first.
func (s *TodoService) List(ctx context.Context, identity model.Identity, opts repository.ListOptions) ([]model.Todo, error) {
	todos, err := s.repo.List(ctx, identity, opts.Normalize())
	if err != nil {
		return nil, fmt.Errorf("service/todo: listing: %w", err)
	}
	return todos, nil
}

// Update replaces the editable fields of one of identity's todos.
func (s *TodoService) Update(ctx context.Context, identity model.Identity, id int64, in TodoInput) (*model.Todo, error) {
	in.normalize()
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	todo := &model.Todo{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		IsCompleted: in.IsCompleted,
	}
	if err := s.repo.Update(ctx, identity, todo); err != nil {
		return nil, fmt.Errorf("service/todo: updating %d: %w", id, err)
	}

	s.logger.Info("todo updated",
		slog.Int64("todoID", id),
		slog.Int64("userID", identity.UserID),
	)
	return todo, nil
}

// Toggle flips the completion flag of one of identity's todos.
func (s *TodoService) Toggle(ctx context.Context, identity model.Identity, id int64) (*model.Todo, error) {
	todo, err := s.repo.Toggle(ctx, identity, id)
	if err != nil {
		return nil, fmt.Errorf("service/todo: toggling %d: %w", id, err)
	}
	return todo, nil
}

// Delete removes one of identity's todos.
func (s *TodoService) Delete(ctx context.Context, identity model.Identity, id int64) error {
	if err := s.repo.Delete(ctx, identity, id); err != nil {
		return fmt.Errorf("service/todo: deleting %d: %w", id, err)
	}

	s.logger.Info("todo deleted",
		slog.Int64("todoID", id),
		slog.Int64("userID", identity.UserID),
	)
	return nil
}
