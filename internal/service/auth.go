// Package service — authentication business logic.
//
// AuthService is the business logic layer for authentication. It sits between
// the HTTP handlers and the repository/auth utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ PasswordService (bcrypt)
//	                   ↘ TokenService (JWT)
//
// KEY RESPONSIBILITIES:
//   - Register: validate, reject duplicates, hash, insert, issue a token
//   - Login: look up, verify the password, issue a token
//   - Profile: resolve a verified identity back to the public user record
//
// EMAIL NORMALIZATION:
// Emails are trimmed and lowercased here, before they reach the repository,
// for both writes and lookups. "A@X.COM" and "a@x.com" are the same account
// whichever database is behind the repository, without relying on a
// case-insensitive collation that SQLite and Postgres spell differently.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/todo-tracker/internal/apperror"
	"github.com/sakif/todo-tracker/internal/auth"
	"github.com/sakif/todo-tracker/internal/model"
	"github.com/sakif/todo-tracker/internal/repository"
)

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 6

// Messages the browser client shows verbatim.
const (
	msgPasswordMismatch = "Password and confirmation password do not match."
	msgPasswordTooShort = "Password must be at least 6 characters long."
	msgPasswordTooLong  = "Password must be at most 72 bytes long."
)

// AuthService handles the authentication business logic.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository  → read/write user records
//   - passwords  *auth.PasswordService      → bcrypt hashing
//   - tokens     *auth.TokenService         → issue JWTs
//   - logger     *slog.Logger               → structured logging
type AuthService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
// Call this in server.go when wiring the dependency graph.
func NewAuthService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		passwords: passwords,
		tokens:    tokens,
		logger:    logger,
	}
}

// RegisterInput is the registration request body.
type RegisterInput struct {
	FirstName       string `json:"firstName"       validate:"required,max=100"`
	LastName        string `json:"lastName"        validate:"required,max=100"`
	Email           string `json:"email"           validate:"required,email,max=255"`
	Password        string `json:"password"        validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// LoginInput is the login request body.
type LoginInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is returned by Register and Login.
// It bundles the public user view and the issued token so the handler can
// respond in one step. The password hash never leaves the service.
type AuthResult struct {
	Token string            `json:"token"`
	User  *model.PublicUser `json:"user"`
}

// NormalizeEmail trims surrounding whitespace and lowercases.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new account and returns a token for it.
//
// ORDER OF CHECKS (each failure returns before the next step runs):
//  1. Input shape (required fields, email format, lengths)
//  2. Password == confirmation
//  3. Password length (>= 6 characters, <= 72 bytes for bcrypt)
//  4. Email not already registered
//  5. Hash, insert (the only write), issue token
//
// The duplicate check in step 4 and the insert in step 5 are two statements,
// so two concurrent registrations can both pass step 4. The UNIQUE constraint
// on users.email catches the loser, and the repository reports that as
// DuplicateEmail too.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = NormalizeEmail(in.Email)

	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.Password != in.ConfirmPassword {
		return nil, apperror.ValidationFailed("confirmPassword", msgPasswordMismatch)
	}
	if len([]rune(in.Password)) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password", msgPasswordTooShort)
	}
	if len(in.Password) > auth.MaxPasswordBytes {
		return nil, apperror.ValidationFailed("password", msgPasswordTooLong)
	}

	_, err := s.users.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, apperror.DuplicateEmail()
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: checking existing email: %w", err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered", slog.Int64("userID", user.ID))

	return s.issue(user)
}

// Login checks an email/password pair and returns a fresh token.
//
// USER ENUMERATION:
// "No such email" and "wrong password" return the same error with the same
// message. For an unknown email a dummy bcrypt comparison still runs, so the
// response time doesn't give the difference away either.
//
// Login never writes to the store.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = NormalizeEmail(in.Email)

	if err := validateStruct(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.passwords.VerifyDummy(in.Password)
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	if !s.passwords.Verify(in.Password, user.PasswordHash) {
		s.logger.Debug("login rejected", slog.Int64("userID", user.ID))
		return nil, apperror.InvalidCredentials()
	}

	s.logger.Info("user logged in", slog.Int64("userID", user.ID))

	return s.issue(user)
}

// Profile returns the public record of the identity's user.
//
// The token is stateless, so it can outlive the account it names; that case
// comes back as NotFound.
func (s *AuthService) Profile(ctx context.Context, identity model.Identity) (*model.PublicUser, error) {
	user, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: fetching user %d: %w", identity.UserID, err)
	}
	return user.Public(), nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for user %d: %w", user.ID, err)
	}
	return &AuthResult{Token: token, User: user.Public()}, nil
}
