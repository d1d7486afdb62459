// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// User represents a registered account.
//
// WHY int64 IDs?
// The relational store assigns the ID (INTEGER PRIMARY KEY in SQLite,
// BIGSERIAL in Postgres). Callers treat it as opaque; it is only ever echoed
// back inside tokens and JSON.
//
// WHY json:"-" ON PasswordHash?
// The `-` tag tells encoding/json to skip the field entirely. Even if a
// handler accidentally encodes a *User, the hash never leaves the process.
// Handlers still send PublicUser, never User.
type User struct {
	ID           int64     `json:"id"        db:"id"`
	FirstName    string    `json:"firstName" db:"first_name"`
	LastName     string    `json:"lastName"  db:"last_name"`
	Email        string    `json:"email"     db:"email"` // always stored normalized (trimmed, lowercase)
	PasswordHash string    `json:"-"         db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"` // UTC, set once
}

// PublicUser is the outward view of a User.
type PublicUser struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public returns the view of u that is safe to send to clients.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}
