package auth

import "time"

// Grant is a completed delegation: an upstream client authorized by a user
// whose downstream credentials live in Props. The grant also tracks the
// single-use authorization code and the rotating refresh token.
type Grant struct {
	ID       string
	ClientID string
	UserID   string
	Scopes   []string
	Props    Props

	// Code is the pending upstream authorization code. Cleared on first
	// exchange; a grant with an empty Code cannot be redeemed again.
	Code                string
	CodeExpiresAt       time.Time
	CodeChallenge       string
	CodeChallengeMethod string
	RedirectURI         string

	RefreshToken     string
	RefreshExpiresAt time.Time

	CreatedAt time.Time
}

// GrantRepo stores grants. Implementations must be safe for concurrent use;
// ConsumeCode must be atomic so a code redeems at most once.
type GrantRepo interface {
	Upsert(grant *Grant) error
	Get(id string) (*Grant, error)
	// ConsumeCode finds the grant holding code, clears the code, and
	// returns the grant. A second call with the same code finds nothing.
	ConsumeCode(code string) (*Grant, error)
	GetByRefreshToken(refreshToken string) (*Grant, error)
	Delete(id string) error
}
