package model

import "time"

// Todo is a task owned by exactly one user.
//
// Description and UpdatedAt are pointers because both are genuinely optional:
// nil encodes as JSON null, which the client uses to tell "no description"
// apart from an empty one and "never edited" apart from an edit time.
//
// UserID has no JSON tag on purpose — `json:"-"` keeps the owner out of
// responses and, more importantly, out of decoded request bodies.
type Todo struct {
	ID          int64      `json:"id"          db:"id"`
	Title       string     `json:"title"       db:"title"`
	Description *string    `json:"description" db:"description"`
	IsCompleted bool       `json:"isCompleted" db:"is_completed"`
	CreatedAt   time.Time  `json:"createdAt"   db:"created_at"`
	UpdatedAt   *time.Time `json:"updatedAt"   db:"updated_at"`
	UserID      int64      `json:"-"           db:"user_id"`
}
