// Package auth — password hashing utilities.
//
// WHY BCRYPT?
// bcrypt is a password hashing function specifically designed to be slow.
// That slowness is a security feature: it makes brute-force attacks expensive.
//
// bcrypt automatically:
//   - Generates a random salt (so two users with the same password get different hashes)
//   - Embeds the salt in the output hash (no separate salt column needed)
//   - Controls the work factor via "cost" (higher = slower = harder to crack)
//
// Hash format (the full output of bcrypt.GenerateFromPassword):
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (12 rounds → 2^12 = 4096 iterations)
//	 version
package auth

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when configuration doesn't
// override it. Roughly ~250ms per hash on a modern server.
const DefaultCost = 12

// MaxPasswordBytes is bcrypt's input limit. Longer inputs would be silently
// truncated by older bcrypt implementations, so Hash rejects them.
const MaxPasswordBytes = 72

// PasswordService provides bcrypt hashing and verification.
//
// It's a struct (not free functions) so that the cost can be injected
// in tests — using a lower cost (e.g. 4) makes tests run much faster
// without compromising the logic being tested.
type PasswordService struct {
	cost int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewPasswordService creates a PasswordService with the given bcrypt cost.
// Costs outside bcrypt's [MinCost, MaxCost] range are rejected.
func NewPasswordService(cost int) (*PasswordService, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("auth: bcrypt cost must be between %d and %d, got %d",
			bcrypt.MinCost, bcrypt.MaxCost, cost)
	}
	return &PasswordService{cost: cost}, nil
}

// NewPasswordServiceForTest creates a PasswordService with bcrypt's minimum
// cost (4). Use this in tests in other packages to avoid the ~250ms overhead
// of cost 12 per hashing operation.
//
// Do NOT use in production — cost 4 is far too weak.
func NewPasswordServiceForTest() *PasswordService {
	return &PasswordService{cost: bcrypt.MinCost}
}

// Hash hashes the given plaintext password with bcrypt.
//
// Every call draws a fresh random salt, so hashing the same password twice
// gives two different strings. Both verify.
//
// Returns an error if the plaintext is longer than MaxPasswordBytes.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", fmt.Errorf("auth: password must be %d bytes or fewer", MaxPasswordBytes)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify reports whether plaintext matches a stored bcrypt hash.
//
// TIMING SAFETY:
// bcrypt.CompareHashAndPassword re-derives the digest and compares it with
// subtle.ConstantTimeCompare, so the time taken doesn't depend on where the
// first differing byte is.
//
// A malformed or truncated stored hash simply yields false.
//
// OVER-LONG INPUT:
// bcrypt only looks at the first 72 bytes, so pw+"anything" would match the
// hash of a 72-byte pw. Hash never stores such a password, so anything longer
// is rejected here too, after a dummy compare to keep the timing the same.
func (p *PasswordService) Verify(plaintext, hash string) bool {
	if len(plaintext) > MaxPasswordBytes {
		return p.VerifyDummy(plaintext)
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// VerifyDummy burns the same amount of CPU as a real Verify against a hash of
// this service's cost, and always reports false.
//
// Login calls it when the email is unknown so that "no such user" and "wrong
// password" take about the same time.
func (p *PasswordService) VerifyDummy(plaintext string) bool {
	p.dummyOnce.Do(func() {
		// The error is impossible here: the input is short and the cost was
		// validated by the constructor.
		p.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), p.cost)
	})
	_ = bcrypt.CompareHashAndPassword(p.dummyHash, []byte(plaintext))
	return false
}

// Cost returns the configured bcrypt work factor.
func (p *PasswordService) Cost() int {
	return p.cost
}
