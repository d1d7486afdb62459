package service

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sakif/todo-tracker/internal/apperror"
	"github.com/sakif/todo-tracker/internal/auth"
	"github.com/sakif/todo-tracker/internal/model"
	"github.com/sakif/todo-tracker/internal/repository"
)

// =========================================================================
// FAKE REPOSITORIES
// =========================================================================
//
// Hand-written in-memory fakes: you can see exactly what each one does, and
// they record the calls the assertions need (how many writes happened).

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[int64]*model.User
	nextID int64
	writes int

	// set to a non-nil error to simulate a database failure
	createErr error
	getErr    error
	// skipLookup makes GetByEmail always miss, to simulate the window where
	// a concurrent registration has passed the duplicate check.
	skipLookup bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	// Behaves like the UNIQUE constraint on users.email.
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.DuplicateEmail()
		}
	}
	f.writes++
	f.nextID++
	user.ID = f.nextID
	user.CreatedAt = time.Now().UTC()
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if !f.skipLookup {
		for _, u := range f.users {
			if u.Email == email {
				copied := *u
				return &copied, nil
			}
		}
	}
	return nil, &apperror.AppError{Err: apperror.ErrNotFound, Message: "user not found"}
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("User", id)
	}
	copied := *u
	return &copied, nil
}

// fakeTodoRepo applies the same owner filter the SQL does.
type fakeTodoRepo struct {
	mu     sync.Mutex
	todos  map[int64]*model.Todo
	nextID int64
	err    error
}

func newFakeTodoRepo() *fakeTodoRepo {
	return &fakeTodoRepo{todos: make(map[int64]*model.Todo)}
}

func (f *fakeTodoRepo) owned(identity model.Identity, id int64) (*model.Todo, bool) {
	t, ok := f.todos[id]
	if !ok || t.UserID != identity.UserID {
		return nil, false
	}
	return t, true
}

func (f *fakeTodoRepo) Create(_ context.Context, identity model.Identity, todo *model.Todo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.nextID++
	todo.ID = f.nextID
	todo.UserID = identity.UserID
	// Strictly increasing so newest-first ordering is deterministic.
	todo.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(f.nextID) * time.Second)
	stored := *todo
	f.todos[todo.ID] = &stored
	return nil
}

func (f *fakeTodoRepo) GetByID(_ context.Context, identity model.Identity, id int64) (*model.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.owned(identity, id)
	if !ok {
		return nil, apperror.NotFound("Todo", id)
	}
	copied := *t
	return &copied, nil
}

func (f *fakeTodoRepo) List(_ context.Context, identity model.Identity, opts repository.ListOptions) ([]model.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.Todo, 0)
	for _, t := range f.todos {
		if t.UserID == identity.UserID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })

	if opts.Offset >= len(out) {
		return []model.Todo{}, nil
	}
	out = out[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (f *fakeTodoRepo) Update(_ context.Context, identity model.Identity, todo *model.Todo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.owned(identity, todo.ID)
	if !ok {
		return apperror.NotFound("Todo", todo.ID)
	}
	now := time.Now().UTC()
	t.Title, t.Description, t.IsCompleted, t.UpdatedAt = todo.Title, todo.Description, todo.IsCompleted, &now
	*todo = *t
	return nil
}

func (f *fakeTodoRepo) Toggle(_ context.Context, identity model.Identity, id int64) (*model.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.owned(identity, id)
	if !ok {
		return nil, apperror.NotFound("Todo", id)
	}
	now := time.Now().UTC()
	t.IsCompleted = !t.IsCompleted
	t.UpdatedAt = &now
	copied := *t
	return &copied, nil
}

func (f *fakeTodoRepo) Delete(_ context.Context, identity model.Identity, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.owned(identity, id); !ok {
		return apperror.NotFound("Todo", id)
	}
	delete(f.todos, id)
	return nil
}

// =========================================================================
// HELPERS
// =========================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:   "test-secret-at-least-16-chars!!",
		Issuer:   "todo-api",
		Audience: "todo-client",
		TTL:      time.Hour,
	})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return tokens
}

func newTestAuthService(t *testing.T) (*AuthService, *fakeUserRepo, *auth.TokenService) {
	t.Helper()
	users := newFakeUserRepo()
	tokens := newTestTokens(t)
	svc := NewAuthService(users, auth.NewPasswordServiceForTest(), tokens, testLogger())
	return svc, users, tokens
}

func newTestTodoService(t *testing.T) (*TodoService, *fakeTodoRepo) {
	t.Helper()
	repo := newFakeTodoRepo()
	return NewTodoService(repo, testLogger()), repo
}
