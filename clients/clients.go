// Package clients holds the registry of the OAuth clients this service
// issues grants to, i.e. the MCP tool runners. Clients arrive via dynamic
// registration; there is no out-of-band provisioning.
package clients

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type ClientType string

const (
	ClientTypeConfidential ClientType = "confidential" // Can keep secrets (server-side apps)
	ClientTypePublic       ClientType = "public"       // Cannot keep secrets (local agents, CLIs)
)

type Client struct {
	ID           string     `json:"id"`
	Type         ClientType `json:"type"`
	Name         string     `json:"name"`
	SecretHash   string     `json:"-"` // bcrypt hash; empty for public clients
	RedirectURIs []string   `json:"redirectURIs"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// IsPublic returns true if the client is a public client
func (c *Client) IsPublic() bool {
	return c.Type == ClientTypePublic
}

// HasRedirectURI checks that a redirect URI was registered for this client.
// Exact match only; anything looser reopens the open-redirect hole.
func (c *Client) HasRedirectURI(redirectURI string) bool {
	for _, uri := range c.RedirectURIs {
		if uri == redirectURI {
			return true
		}
	}
	return false
}

// ValidateSecret compares a presented secret against the stored bcrypt hash.
func (c *Client) ValidateSecret(secret string) error {
	if c.IsPublic() {
		if secret != "" {
			return ErrPublicClientSecret
		}
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.SecretHash), []byte(secret)); err != nil {
		return ErrInvalidClientSecret
	}
	return nil
}

// HashSecret produces the bcrypt hash stored for a confidential client.
func HashSecret(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}
