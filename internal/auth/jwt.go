// Package auth provides credential hashing, JWT issuance/verification and the
// bearer-token middleware for the todo API.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. Client POSTs /api/auth/register or /api/auth/login with email + password
//  2. The auth service checks the credentials and calls TokenService.Issue
//  3. The client stores the token and sends it back on every call as
//     "Authorization: Bearer <token>"
//  4. RequireAuth verifies the token and puts a model.Identity on the request
//     context; handlers pass that identity explicitly to the todo repository
//
// WHY JWT?
// JWT (JSON Web Token) is stateless — the server doesn't need to store session
// data. All the information needed (user id, expiry) is inside the signed token.
// The signature ensures nobody can tamper with it without the secret key.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: algorithm + token type → {"alg":"HS256","typ":"JWT"}
//	- Payload: claims (data) → {"sub":"42","userId":"42","email":"...","exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
//
// The server can verify the signature without any DB lookup — just the secret.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"

	"github.com/sakif/todo-tracker/internal/apperror"
	"github.com/sakif/todo-tracker/internal/model"
)

// MinSecretLength is the shortest HMAC secret NewTokenService accepts.
const MinSecretLength = 16

// DefaultTokenTTL is how long an issued token stays valid.
const DefaultTokenTTL = 24 * time.Hour

// Verification failures. Verify always returns one of these wrapped in an
// apperror.Unauthorized, so callers can match either the specific kind or
// apperror.ErrUnauthorized.
var (
	// ErrInvalidSignature: the signature doesn't match the secret, or the
	// token was signed with an algorithm other than HS256 (including "none").
	ErrInvalidSignature = errors.New("auth: invalid token signature")

	// ErrExpired: the current time is at or past the "exp" claim.
	ErrExpired = errors.New("auth: token expired")

	// ErrMalformed: everything else — undecodable input, missing or
	// non-numeric subject, wrong issuer or audience, missing expiry.
	ErrMalformed = errors.New("auth: malformed token")
)

// TokenConfig holds everything the TokenService needs. The values are read
// once at startup and never change afterwards.
type TokenConfig struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration

	// Now overrides the clock. Nil means time.Now. Tests set it to move
	// across the expiry boundary without sleeping.
	Now func() time.Time
}

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens.
// The same secret must be used for both operations — keep it safe, rotate it
// periodically in production.
type TokenService struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewTokenService creates a TokenService from cfg.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("auth: JWT secret must be at least %d characters", MinSecretLength)
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, errors.New("auth: JWT issuer and audience are required")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &TokenService{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      ttl,
		now:      now,
	}, nil
}

// claims is the JWT payload. It embeds jwt.RegisteredClaims which includes
// standard fields like Issuer, Subject, ExpiresAt, IssuedAt.
//
// "sub" carries the user id as a decimal string. "userId" duplicates it and
// "email" is informational; the browser client reads both without having to
// call /api/auth/profile. Verify trusts only "sub".
type claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Issue creates and signs a token for user.
//
// Signing algorithm: HS256 (HMAC-SHA256)
//   - Symmetric: same key for signing and verifying
//   - Fast and simple — good for single-server deployments
//
// Each token gets a unique "jti" (an xid) so two tokens issued within the same
// second for the same user are still distinct strings.
func (s *TokenService) Issue(user *model.User) (string, error) {
	if user == nil || user.ID <= 0 {
		return "", errors.New("auth: cannot issue token for user without id")
	}

	now := s.now()
	sub := strconv.FormatInt(user.ID, 10)

	c := claims{
		UserID: sub,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        xid.New().String(),
			Subject:   sub,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	// jwt.NewWithClaims creates an unsigned token with the given algorithm.
	// SignedString(key) signs it and returns the complete JWT string.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Verify parses and checks a token string and returns the identity it
// carries. It never touches the store.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
//   - Signature is valid (wasn't tampered with)
//   - "exp" is present and in the future
//   - "iss" and "aud" match this service's configuration
//
// ALGORITHM CONFUSION ATTACK:
// Without checking the algorithm, an attacker could send a token signed with
// "none" and the library might accept it. Passing jwt.WithValidMethods prevents this.
func (s *TokenService) Verify(tokenStr string) (model.Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("%w: unexpected signing method %v", jwt.ErrTokenSignatureInvalid, token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return model.Identity{}, apperror.Unauthorized(classify(err))
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return model.Identity{}, apperror.Unauthorized(ErrMalformed)
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return model.Identity{}, apperror.Unauthorized(fmt.Errorf("%w: bad subject %q", ErrMalformed, c.Subject))
	}

	return model.Identity{UserID: userID}, nil
}

// classify translates jwt library errors into this package's three kinds.
// The library verifies the signature before it looks at any claim, so a
// forged token that is also expired still reports ErrInvalidSignature.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
