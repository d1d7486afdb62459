package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/todo-tracker/internal/model"
	"github.com/sakif/todo-tracker/internal/repository"
	"github.com/sakif/todo-tracker/internal/service"
)

// TodoService is the part of *service.TodoService the handler calls.
type TodoService interface {
	Create(ctx context.Context, identity model.Identity, in service.TodoInput) (*model.Todo, error)
	Get(ctx context.Context, identity model.Identity, id int64) (*model.Todo, error)
	List(ctx context.Context, identity model.Identity, opts repository.ListOptions) ([]model.Todo, error)
	Update(ctx context.Context, identity model.Identity, id int64, in service.TodoInput) (*model.Todo, error)
	Toggle(ctx context.Context, identity model.Identity, id int64) (*model.Todo, error)
	Delete(ctx context.Context, identity model.Identity, id int64) error
}

// TodoHandler serves the /api/todo routes. All of them sit behind
// RequireAuth; each handler reads the identity once and passes it down.
type TodoHandler struct {
	todos  TodoService
	logger *slog.Logger
}

// NewTodoHandler creates a new TodoHandler.
func NewTodoHandler(todos TodoService, logger *slog.Logger) *TodoHandler {
	return &TodoHandler{todos: todos, logger: logger}
}

// HandleList returns the caller's todos, newest first.
//
// HTTP: GET /api/todo?limit=20&offset=40
//
// Both query parameters are optional. Without limit every todo is returned;
// a limit above 100 is clamped to 100. Unparseable values are ignored.
func (h *TodoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrUnauthorized(w, r, h.logger)
	if !ok {
		return
	}

	opts := repository.ListOptions{
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}

	todos, err := h.todos.List(r.Context(), identity, opts)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, todos)
}

// HandleGet returns one todo.
//
// HTTP: GET /api/todo/{id}
func (h *TodoHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrUnauthorized(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	todo, err := h.todos.Get(r.Context(), identity, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, todo)
}

// HandleCreate saves a new todo.
//
// HTTP: POST /api/todo
// REQUEST BODY: {"title":"Buy milk","description":null,"isCompleted":false}
//
// Any owner-ish field in the body is ignored: TodoInput has none, and
// model.Todo's UserID is json:"-".
func (h *TodoHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrUnauthorized(w, r, h.logger)
	if !ok {
		return
	}

	var in service.TodoInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	todo, err := h.todos.Create(r.Context(), identity, in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, todo)
}

// HandleUpdate replaces a todo's title, description and completion flag.
//
// HTTP: PUT /api/todo/{id}
func (h *TodoHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrUnauthorized(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var in service.TodoInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	todo, err := h.todos.Update(r.Context(), identity, id, in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, todo)
}

// HandleToggle flips a todo between open and completed.
//
// HTTP: PATCH /api/todo/{id}/toggle
func (h *TodoHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrUnauthorized(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	todo, err := h.todos.Toggle(r.Context(), identity, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, todo)
}

// HandleDelete removes a todo.
//
// HTTP: DELETE /api/todo/{id}
// RESPONSE: 204 No Content
func (h *TodoHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrUnauthorized(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.todos.Delete(r.Context(), identity, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// pathID parses the {id} URL parameter.
//
// URL PARAMETERS:
// chi.URLParam(r, "id") returns the {id} segment of the matched route.
// Anything that isn't a positive integer is answered with the same 404 a
// missing todo gets.
func (h *TodoHandler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, h.logger, notFoundPath("Todo", raw))
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}
