package sqlite

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sakif/todo-tracker/internal/apperror"
	"github.com/sakif/todo-tracker/internal/model"
)

// TESTING WITH A REAL SQLITE FILE:
// Each test gets a fresh database file under t.TempDir(), which Go deletes
// when the test finishes. A file (rather than ":memory:") matters because
// sql.DB is a pool: every new connection to ":memory:" would see its own
// empty database.
//
// The `t.Helper()` call tells Go's test framework to report errors at the
// CALLER's line number, not inside this function.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := New(context.Background(), filepath.Join(t.TempDir(), "test.db"), logger)
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	// t.Cleanup registers a function to run when the test finishes.
	t.Cleanup(func() { db.Close() })
	return db
}

// setClock pins the repository clock. Each call to now() advances it by step
// so consecutive inserts get distinct, predictable timestamps.
func setClock(db *DB, start time.Time, step time.Duration) {
	var mu sync.Mutex
	next := start
	db.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(step)
		return t
	}
}

// createTestUser is a test helper that creates a user and fails the test if it errors.
func createTestUser(t *testing.T, db *DB, email string) *model.User {
	t.Helper()
	user := &model.User{
		FirstName:    "Test",
		LastName:     "User",
		Email:        email,
		PasswordHash: "$2a$04$not-a-real-hash",
	}
	if err := db.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestUserCreate(t *testing.T) {
	db := newTestDB(t)
	start := time.Date(2024, 3, 1, 9, 0, 0, 123456789, time.UTC)
	setClock(db, start, time.Second)

	user := &model.User{
		FirstName:    "Ann",
		LastName:     "Lee",
		Email:        "ann@x.io",
		PasswordHash: "hash",
	}

	if err := db.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Verify the user was modified in-place (pointer receiver)
	if user.ID <= 0 {
		t.Errorf("Create() did not set user.ID, got %d", user.ID)
	}
	if !user.CreatedAt.Equal(start) {
		t.Errorf("CreatedAt = %v, want %v", user.CreatedAt, start)
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "dup@x.io")

	err := db.Users().Create(context.Background(), &model.User{
		FirstName: "Other", LastName: "Person", Email: "dup@x.io", PasswordHash: "h",
	})
	if !errors.Is(err, apperror.ErrDuplicateEmail) {
		t.Fatalf("Create() duplicate error = %v, want ErrDuplicateEmail", err)
	}
}

func TestUserCreate_ConcurrentSameEmail(t *testing.T) {
	db := newTestDB(t)

	// Both goroutines race the same insert: the UNIQUE constraint must let
	// exactly one through.
	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = db.Users().Create(context.Background(), &model.User{
				FirstName: "R", LastName: "R", Email: "race@x.io", PasswordHash: "h",
			})
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperror.ErrDuplicateEmail):
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != workers-1 {
		t.Errorf("successes = %d, duplicates = %d; want 1 and %d", ok, dup, workers-1)
	}
}

// =========================================================================
// GET TESTS
// =========================================================================

func TestUserGetByEmail(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "ann@x.io")

	got, err := db.Users().GetByEmail(context.Background(), "ann@x.io")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}

	if got.ID != created.ID {
		t.Errorf("ID = %d, want %d", got.ID, created.ID)
	}
	if got.PasswordHash != created.PasswordHash {
		t.Errorf("PasswordHash = %q, want %q", got.PasswordHash, created.PasswordHash)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created.CreatedAt)
	}
}

func TestUserGetByEmail_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Users().GetByEmail(context.Background(), "nobody@x.io")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByEmail() error = %v, want ErrNotFound", err)
	}
}

func TestUserGetByID(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "ann@x.io")

	got, err := db.Users().GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Email != "ann@x.io" || got.FirstName != "Test" {
		t.Errorf("GetByID() = %+v", got)
	}
}

func TestUserGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Users().GetByID(context.Background(), 999)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// STORE TESTS
// =========================================================================

func TestPing(t *testing.T) {
	db := newTestDB(t)

	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestNew_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "todo.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := New(context.Background(), path, logger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	createTestUser(t, db, "keep@x.io")
	db.Close()

	// Second open re-runs migrations; goose must see they're already applied.
	db, err = New(context.Background(), path, logger)
	if err != nil {
		t.Fatalf("New() reopen error = %v", err)
	}
	defer db.Close()

	if _, err := db.Users().GetByEmail(context.Background(), "keep@x.io"); err != nil {
		t.Errorf("GetByEmail() after reopen error = %v", err)
	}
}
