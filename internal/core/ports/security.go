package ports

import "time"

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

// TokenIssuer issues and decodes signed bearer tokens whose subject is a user id.
type TokenIssuer interface {
	Issue(subject string) (token string, expiresAt time.Time, err error)
	// Decode returns the subject of a valid, unexpired token.
	Decode(token string) (string, error)
}
