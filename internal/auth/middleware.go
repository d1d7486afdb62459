package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/todo-tracker/internal/model"
)

// ErrMissingToken: no usable "Authorization: Bearer <token>" header.
var ErrMissingToken = errors.New("auth: missing bearer token")

// Verifier is the part of TokenService the middleware needs.
// Handler tests substitute a stub so they don't have to mint real tokens.
type Verifier interface {
	Verify(token string) (model.Identity, error)
}

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. If you use a plain string like
// context.WithValue(ctx, "identity", id), ANY package that knows the string
// can read or shadow your value. Using a package-private type prevents
// collisions: only THIS package can create a key of type contextKey.
type contextKey string

const identityKey contextKey = "identity"

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads the bearer token from the Authorization header, verifies it, and
// stores the resulting model.Identity in the request context. If the header
// is missing or the token fails verification, it returns 401 Unauthorized
// and stops the request chain.
//
// The context is only a carrier from middleware to handler: handlers pull
// the identity out with IdentityFromContext and pass it explicitly to every
// service and repository call. Nothing below the handler reads the context
// for identity.
//
// MIDDLEWARE PATTERN IN GO:
//
//	func Middleware(next http.Handler) http.Handler {
//	    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	        // ... do stuff before the handler ...
//	        next.ServeHTTP(w, r)
//	    })
//	}
func RequireAuth(tokens Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := authenticate(r, tokens)
			if err != nil {
				// Debug only: a stream of expired tokens is normal client behaviour.
				logger.Debug("request rejected",
					slog.String("path", r.URL.Path),
					slog.String("reason", err.Error()),
				)
				writeUnauthorized(w)
				return
			}

			ctx := WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext retrieves the identity RequireAuth stored.
//
// Returns (Identity{}, false) if the request did not pass through RequireAuth.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(identityKey).(model.Identity)
	return id, ok && id.UserID > 0
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively (RFC 6750 §2.1).
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func authenticate(r *http.Request, tokens Verifier) (model.Identity, error) {
	token, ok := BearerToken(r)
	if !ok {
		return model.Identity{}, ErrMissingToken
	}
	return tokens.Verify(token)
}

// writeUnauthorized sends the same body the handler package uses for
// apperror.ErrUnauthorized. It is written here directly because handler
// imports auth, not the other way round.
func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="todo-api"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": "valid authentication required",
	})
}
