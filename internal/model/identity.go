package model

// Identity is the caller's user ID as extracted from a verified token.
//
// Every repository method that touches todos takes an Identity explicitly
// instead of reading it from a context value, so the ownership constraint is
// visible in every signature.
type Identity struct {
	UserID int64
}
