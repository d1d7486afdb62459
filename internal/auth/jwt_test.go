package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/todo-tracker/internal/apperror"
	"github.com/sakif/todo-tracker/internal/model"
)

const testSecret = "test-secret-at-least-16-chars!!"

// fakeClock is a settable clock so expiry can be tested without sleeping.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

// newTestTokenService creates a TokenService for testing.
// It uses a fixed, known secret and a controllable clock so tests are
// deterministic.
func newTestTokenService(t *testing.T) (*TokenService, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	ts, err := NewTokenService(TokenConfig{
		Secret:   testSecret,
		Issuer:   "todo-api",
		Audience: "todo-client",
		TTL:      time.Hour,
		Now:      clock.Now,
	})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts, clock
}

func testUser(id int64) *model.User {
	return &model.User{ID: id, Email: "ann@x.io", FirstName: "Ann", LastName: "Lee"}
}

// signRaw signs arbitrary claims with the test secret, bypassing Issue, so
// tests can construct tokens Issue would never produce.
func signRaw(t *testing.T, method jwt.SigningMethod, key any, c jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, c).SignedString(key)
	if err != nil {
		t.Fatalf("signing raw token: %v", err)
	}
	return s
}

func validClaims(now time.Time) *claims {
	return &claims{
		UserID: "7",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "7",
			Issuer:    "todo-api",
			Audience:  jwt.ClaimStrings{"todo-client"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

// =========================================================================
// TOKEN SERVICE CONSTRUCTION TESTS
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	_, err := NewTokenService(TokenConfig{Secret: "short", Issuer: "i", Audience: "a"})
	if err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_MissingIssuerOrAudience(t *testing.T) {
	if _, err := NewTokenService(TokenConfig{Secret: testSecret, Audience: "a"}); err == nil {
		t.Error("NewTokenService() should reject an empty issuer")
	}
	if _, err := NewTokenService(TokenConfig{Secret: testSecret, Issuer: "i"}); err == nil {
		t.Error("NewTokenService() should reject an empty audience")
	}
}

func TestNewTokenService_DefaultsTTL(t *testing.T) {
	ts, err := NewTokenService(TokenConfig{Secret: "this-is-16-chars", Issuer: "i", Audience: "a"})
	if err != nil {
		t.Fatalf("NewTokenService() unexpected error for valid secret: %v", err)
	}
	if ts.ttl != DefaultTokenTTL {
		t.Errorf("ttl = %v, want %v", ts.ttl, DefaultTokenTTL)
	}
}

// =========================================================================
// ISSUE TESTS
// =========================================================================

func TestIssue_ReturnsJWT(t *testing.T) {
	ts, _ := newTestTokenService(t)

	token, err := ts.Issue(testUser(1))
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// JWT tokens have 3 dot-separated parts: header.payload.signature
	if got := strings.Count(token, "."); got != 2 {
		t.Errorf("Issue() token doesn't look like a JWT (expected 2 dots, got %d)", got)
	}
}

func TestIssue_RejectsUserWithoutID(t *testing.T) {
	ts, _ := newTestTokenService(t)

	if _, err := ts.Issue(&model.User{Email: "a@b.c"}); err == nil {
		t.Error("Issue() should reject a user with no id")
	}
	if _, err := ts.Issue(nil); err == nil {
		t.Error("Issue() should reject a nil user")
	}
}

func TestIssue_SameUserTwiceGivesDistinctTokens(t *testing.T) {
	ts, _ := newTestTokenService(t)

	// Same clock instant, same user: only the jti differs.
	t1, _ := ts.Issue(testUser(1))
	t2, _ := ts.Issue(testUser(1))

	if t1 == t2 {
		t.Error("Issue() returned identical tokens; jti should make them unique")
	}
}

func TestIssue_Claims(t *testing.T) {
	ts, clock := newTestTokenService(t)

	token, err := ts.Issue(testUser(42))
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	var c claims
	_, _, err = jwt.NewParser().ParseUnverified(token, &c)
	if err != nil {
		t.Fatalf("ParseUnverified() error = %v", err)
	}

	if c.Subject != "42" || c.UserID != "42" {
		t.Errorf("sub/userId = %q/%q, want 42/42", c.Subject, c.UserID)
	}
	if c.Email != "ann@x.io" {
		t.Errorf("email = %q, want ann@x.io", c.Email)
	}
	if c.ID == "" {
		t.Error("jti should be set")
	}
	if want := clock.t.Add(time.Hour); !c.ExpiresAt.Time.Equal(want) {
		t.Errorf("exp = %v, want %v", c.ExpiresAt.Time, want)
	}
}

// =========================================================================
// VERIFY TESTS
// =========================================================================

func TestVerify_RoundTrip(t *testing.T) {
	ts, _ := newTestTokenService(t)

	for _, id := range []int64{1, 7, 1 << 40} {
		token, err := ts.Issue(testUser(id))
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}

		identity, err := ts.Verify(token)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if identity.UserID != id {
			t.Errorf("Verify() UserID = %d, want %d", identity.UserID, id)
		}
	}
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	ts, clock := newTestTokenService(t)

	token, _ := ts.Issue(testUser(1))
	issuedAt := clock.t

	clock.t = issuedAt.Add(time.Hour - time.Second)
	if _, err := ts.Verify(token); err != nil {
		t.Fatalf("Verify() one second before expiry error = %v", err)
	}

	clock.t = issuedAt.Add(time.Hour)
	_, err := ts.Verify(token)
	if !errors.Is(err, ErrExpired) {
		t.Errorf("Verify() at exp = %v, want ErrExpired", err)
	}

	clock.t = issuedAt.Add(2 * time.Hour)
	_, err = ts.Verify(token)
	if !errors.Is(err, ErrExpired) {
		t.Errorf("Verify() after exp = %v, want ErrExpired", err)
	}
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Error("ErrExpired should also match apperror.ErrUnauthorized")
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	ts1, _ := newTestTokenService(t)
	ts2, err := NewTokenService(TokenConfig{
		Secret:   "completely-different-secret-key",
		Issuer:   "todo-api",
		Audience: "todo-client",
		Now:      ts1.now,
	})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, _ := ts1.Issue(testUser(1))

	_, err = ts2.Verify(token)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("Verify() with wrong secret = %v, want ErrInvalidSignature", err)
	}
}

func TestVerify_TamperedPayload(t *testing.T) {
	ts, clock := newTestTokenService(t)

	token, _ := ts.Issue(testUser(1))

	// Re-sign the header with a different payload but keep the original
	// signature: the payload claims user 2 while the signature covers user 1.
	forged := validClaims(clock.t)
	forged.Subject = "2"
	other := signRaw(t, jwt.SigningMethodHS256, []byte(testSecret), forged)

	parts := strings.Split(token, ".")
	otherParts := strings.Split(other, ".")
	tampered := parts[0] + "." + otherParts[1] + "." + parts[2]

	_, err := ts.Verify(tampered)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("Verify() tampered token = %v, want ErrInvalidSignature", err)
	}
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	ts, clock := newTestTokenService(t)

	cases := []struct {
		name  string
		token string
	}{
		{"none", signRaw(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, validClaims(clock.t))},
		{"HS512 with the right secret", signRaw(t, jwt.SigningMethodHS512, []byte(testSecret), validClaims(clock.t))},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ts.Verify(tc.token)
			if !errors.Is(err, ErrInvalidSignature) {
				t.Errorf("Verify() = %v, want ErrInvalidSignature", err)
			}
		})
	}
}

func TestVerify_Malformed(t *testing.T) {
	ts, clock := newTestTokenService(t)
	secret := []byte(testSecret)

	noSub := validClaims(clock.t)
	noSub.Subject = ""

	textSub := validClaims(clock.t)
	textSub.Subject = "user-123"

	negativeSub := validClaims(clock.t)
	negativeSub.Subject = "-5"

	wrongIss := validClaims(clock.t)
	wrongIss.Issuer = "someone-else"

	wrongAud := validClaims(clock.t)
	wrongAud.Audience = jwt.ClaimStrings{"another-client"}

	noExp := validClaims(clock.t)
	noExp.ExpiresAt = nil

	cases := []struct {
		name  string
		token string
	}{
		{"empty string", ""},
		{"garbage", "not.a.jwt"},
		{"two segments", "abc.def"},
		{"missing subject", signRaw(t, jwt.SigningMethodHS256, secret, noSub)},
		{"non-numeric subject", signRaw(t, jwt.SigningMethodHS256, secret, textSub)},
		{"negative subject", signRaw(t, jwt.SigningMethodHS256, secret, negativeSub)},
		{"wrong issuer", signRaw(t, jwt.SigningMethodHS256, secret, wrongIss)},
		{"wrong audience", signRaw(t, jwt.SigningMethodHS256, secret, wrongAud)},
		{"missing expiry", signRaw(t, jwt.SigningMethodHS256, secret, noExp)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			identity, err := ts.Verify(tc.token)
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("Verify() = %v, want ErrMalformed", err)
			}
			if !errors.Is(err, apperror.ErrUnauthorized) {
				t.Errorf("Verify() error should match apperror.ErrUnauthorized")
			}
			if identity.UserID != 0 {
				t.Errorf("Verify() returned identity %d alongside an error", identity.UserID)
			}
		})
	}
}
