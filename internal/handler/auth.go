package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/todo-tracker/internal/apperror"
	"github.com/sakif/todo-tracker/internal/auth"
	"github.com/sakif/todo-tracker/internal/model"
	"github.com/sakif/todo-tracker/internal/service"
)

// AuthService is the part of *service.AuthService the handler calls.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error)
	Login(ctx context.Context, in service.LoginInput) (*service.AuthResult, error)
	Profile(ctx context.Context, identity model.Identity) (*model.PublicUser, error)
}

// AuthHandler serves registration, login and the caller's profile.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister → POST /api/auth/register
//   - HandleLogin    → POST /api/auth/login
//   - HandleProfile  → GET  /api/auth/profile (behind RequireAuth)
//
// The handler only decodes and encodes. Every rule (confirmation match,
// password length, duplicate email) lives in the service.
type AuthHandler struct {
	auth   AuthService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler. All dependencies are injected here;
// the handler has no knowledge of how they're constructed.
func NewAuthHandler(auth AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// HandleRegister creates an account.
//
// HTTP: POST /api/auth/register
// REQUEST BODY:
//
//	{"firstName":"Ann","lastName":"Lee","email":"a@x.com","password":"secret1","confirmPassword":"secret1"}
//
// RESPONSE: 201 {"token":"<jwt>","user":{...}}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.auth.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// HandleLogin exchanges credentials for a token.
//
// HTTP: POST /api/auth/login
// REQUEST BODY: {"email":"a@x.com","password":"secret1"}
// RESPONSE: 200 {"token":"<jwt>","user":{...}}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.auth.Login(r.Context(), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleProfile returns the authenticated user's public record.
//
// HTTP: GET /api/auth/profile
func (h *AuthHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrUnauthorized(w, r, h.logger)
	if !ok {
		return
	}

	profile, err := h.auth.Profile(r.Context(), identity)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// identityOrUnauthorized pulls the identity RequireAuth stored. A route wired
// without RequireAuth fails closed with 401 instead of acting as user 0.
func identityOrUnauthorized(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (model.Identity, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, logger, apperror.Unauthorized(auth.ErrMissingToken))
		return model.Identity{}, false
	}
	return identity, true
}
