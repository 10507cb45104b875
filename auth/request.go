package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/indiemcp/micropub-bridge/internal/errors"
)

// Request is a validated upstream authorization request: what an MCP client
// sent to /authorize, checked against its registration.
type Request struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	State               string
	Scopes              []string
	CodeChallenge       string
	CodeChallengeMethod string
}

// QueryValues encodes the request back into authorization-endpoint query
// parameters, used to rebuild retry links.
func (r *Request) QueryValues() url.Values {
	values := url.Values{}
	values.Set("response_type", r.ResponseType)
	values.Set("client_id", r.ClientID)
	values.Set("redirect_uri", r.RedirectURI)
	if r.State != "" {
		values.Set("state", r.State)
	}
	if len(r.Scopes) > 0 {
		values.Set("scope", strings.Join(r.Scopes, " "))
	}
	if r.CodeChallenge != "" {
		values.Set("code_challenge", r.CodeChallenge)
		values.Set("code_challenge_method", r.CodeChallengeMethod)
	}
	return values
}

// snapshotVersion identifies the serialized shape of RequestSnapshot. Bump it
// when fields change meaning so stale pending records fail loudly.
const snapshotVersion = 1

// RequestSnapshot is the serializable form of a Request. It must survive a
// round trip through the pending-authorization store as plain strings, so it
// never retains the original *http.Request.
type RequestSnapshot struct {
	Version             int      `json:"v"`
	ResponseType        string   `json:"response_type"`
	ClientID            string   `json:"client_id"`
	RedirectURI         string   `json:"redirect_uri"`
	State               string   `json:"state,omitempty"`
	Scopes              []string `json:"scopes,omitempty"`
	CodeChallenge       string   `json:"code_challenge,omitempty"`
	CodeChallengeMethod string   `json:"code_challenge_method,omitempty"`
}

// Snapshot captures the request as plain serializable fields.
func (r *Request) Snapshot() RequestSnapshot {
	return RequestSnapshot{
		Version:             snapshotVersion,
		ResponseType:        r.ResponseType,
		ClientID:            r.ClientID,
		RedirectURI:         r.RedirectURI,
		State:               r.State,
		Scopes:              append([]string(nil), r.Scopes...),
		CodeChallenge:       r.CodeChallenge,
		CodeChallengeMethod: r.CodeChallengeMethod,
	}
}

// Validate checks the invariants a snapshot must hold before it can complete
// a grant: client id and redirect URI present and absolute. A failure here is
// a bridging bug, not a user mistake.
func (s RequestSnapshot) Validate() error {
	if s.ClientID == "" || s.RedirectURI == "" {
		return errors.Wrapf(errors.ErrMalformedBridgeState, "snapshot missing client_id or redirect_uri")
	}
	if u, err := url.Parse(s.RedirectURI); err != nil || !u.IsAbs() {
		return errors.Wrapf(errors.ErrMalformedBridgeState, "redirect_uri %q is not an absolute URL", s.RedirectURI)
	}
	if u, err := url.Parse(s.ClientID); err != nil || !u.IsAbs() {
		// MCP clients register with URL client ids; a bare uuid is also
		// accepted since dynamic registration issues those.
		if !isOpaqueID(s.ClientID) {
			return errors.Wrapf(errors.ErrMalformedBridgeState, "client_id %q is not a valid identifier", s.ClientID)
		}
	}
	return nil
}

// Restore reconstitutes the Request after the store round trip.
func (s RequestSnapshot) Restore() (*Request, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &Request{
		ResponseType:        s.ResponseType,
		ClientID:            s.ClientID,
		RedirectURI:         s.RedirectURI,
		State:               s.State,
		Scopes:              append([]string(nil), s.Scopes...),
		CodeChallenge:       s.CodeChallenge,
		CodeChallengeMethod: s.CodeChallengeMethod,
	}, nil
}

func isOpaqueID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}

// ParseAuthRequest validates the shape of an incoming authorization request
// and checks it against the client's registration. Parameters are read via
// FormValue so the same parse serves the initial GET query string and the
// hidden fields round-tripped through the site-URL form POST.
func (s *Service) ParseAuthRequest(r *http.Request) (*Request, error) {
	if err := r.ParseForm(); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "failed to parse form data")
	}
	query := r.Form

	responseType := query.Get("response_type")
	if responseType != "code" {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "unsupported response_type %q", responseType)
	}

	clientID := query.Get("client_id")
	if clientID == "" {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "client_id is required")
	}
	client, err := s.clients.Get(clientID)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidClient, "unknown client %q", clientID)
	}

	redirectURI := query.Get("redirect_uri")
	if redirectURI == "" || !client.HasRedirectURI(redirectURI) {
		return nil, errors.ErrInvalidRedirectURI
	}

	challenge := query.Get("code_challenge")
	method := query.Get("code_challenge_method")
	if challenge != "" && method != "S256" {
		return nil, errors.Wrapf(errors.ErrInvalidCodeChallenge, "code_challenge_method must be S256")
	}
	if challenge == "" && client.IsPublic() {
		return nil, errors.Wrapf(errors.ErrInvalidCodeChallenge, "public clients must use PKCE")
	}

	return &Request{
		ResponseType:        responseType,
		ClientID:            clientID,
		RedirectURI:         redirectURI,
		State:               query.Get("state"),
		Scopes:              strings.Fields(query.Get("scope")),
		CodeChallenge:       challenge,
		CodeChallengeMethod: method,
	}, nil
}
