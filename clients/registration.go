package clients

import (
	"net/url"
	"time"

	"github.com/google/uuid"
)

// RegistrationRequest is the RFC 7591 subset accepted from MCP clients.
type RegistrationRequest struct {
	RedirectURIs            []string `json:"redirect_uris"`
	ClientName              string   `json:"client_name"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
}

// RegistrationResponse echoes the registered metadata plus the issued
// credentials. ClientSecret is returned exactly once; only its hash is kept.
type RegistrationResponse struct {
	ClientID                string   `json:"client_id"`
	ClientSecret            string   `json:"client_secret,omitempty"`
	ClientName              string   `json:"client_name,omitempty"`
	RedirectURIs            []string `json:"redirect_uris"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
	GrantTypes              []string `json:"grant_types"`
	ResponseTypes           []string `json:"response_types"`
}

// Register validates the registration request, stores the new client, and
// returns its credentials.
func Register(repo Repo, req RegistrationRequest) (*RegistrationResponse, error) {
	if len(req.RedirectURIs) == 0 {
		return nil, ErrNoRedirectURIs
	}
	for _, uri := range req.RedirectURIs {
		parsed, err := url.Parse(uri)
		if err != nil || !parsed.IsAbs() {
			return nil, ErrInvalidRedirectURI
		}
	}

	client := &Client{
		ID:           uuid.New().String(),
		Name:         req.ClientName,
		RedirectURIs: req.RedirectURIs,
		CreatedAt:    time.Now(),
	}

	response := &RegistrationResponse{
		ClientName:    req.ClientName,
		RedirectURIs:  req.RedirectURIs,
		GrantTypes:    []string{"authorization_code", "refresh_token"},
		ResponseTypes: []string{"code"},
	}

	switch req.TokenEndpointAuthMethod {
	case "", "none":
		client.Type = ClientTypePublic
		response.TokenEndpointAuthMethod = "none"
	default:
		client.Type = ClientTypeConfidential
		secret := uuid.New().String()
		hash, err := HashSecret(secret)
		if err != nil {
			return nil, err
		}
		client.SecretHash = hash
		response.ClientSecret = secret
		response.TokenEndpointAuthMethod = "client_secret_post"
	}

	if err := repo.Upsert(client); err != nil {
		return nil, err
	}
	response.ClientID = client.ID
	return response, nil
}
