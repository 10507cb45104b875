// Package pendingauth stores in-flight authorization bridge sessions, keyed
// by the state value sent to the upstream IndieAuth server.
package pendingauth

import (
	"time"

	"github.com/indiemcp/micropub-bridge/auth"
	"github.com/indiemcp/micropub-bridge/indieauth"
)

// Record captures everything needed to finish an authorization once the
// IndieAuth server redirects back to the bridge.
type Record struct {
	Me           string
	Endpoints    indieauth.Endpoints
	CodeVerifier string
	Request      auth.RequestSnapshot
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

type Repo interface {
	Put(state string, record *Record, ttl time.Duration) error
	Get(state string) (*Record, error)
	Delete(state string) error
}
