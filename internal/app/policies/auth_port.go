package policies

import "time"

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenClaims is what a bearer token proves about its holder.
type TokenClaims struct {
	UserID    string
	Role      string
	ExpiresAt time.Time
}

type TokenIssuer interface {
	Issue(userID, role string) (string, time.Time, error)
	Verify(token string) (TokenClaims, error)
}
