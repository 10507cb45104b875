package indieauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// AuthorizationRequest carries the parameters of a downstream IndieAuth
// authorization redirect. All fields are required.
type AuthorizationRequest struct {
	ClientID      string
	RedirectURI   string
	Me            string
	Scope         string
	State         string
	CodeChallenge string
}

// ExchangeRequest carries the parameters of an authorization-code exchange.
type ExchangeRequest struct {
	Code         string
	ClientID     string
	RedirectURI  string
	CodeVerifier string
}

// RefreshRequest carries the parameters of a refresh-token exchange.
type RefreshRequest struct {
	RefreshToken string
	ClientID     string
}

// TokenResponse is the token endpoint's JSON response. AccessToken and Me are
// mandatory; everything downstream depends on both.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	Me           string `json:"me"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// BuildAuthorizationURL builds the redirect URL for the downstream
// authorization endpoint, preserving any query parameters the endpoint
// already carries. The challenge method is always S256.
func BuildAuthorizationURL(endpoint string, req AuthorizationRequest) string {
	conf := &oauth2.Config{
		ClientID:    req.ClientID,
		RedirectURL: req.RedirectURI,
		Scopes:      strings.Fields(req.Scope),
		Endpoint:    oauth2.Endpoint{AuthURL: endpoint},
	}
	return conf.AuthCodeURL(req.State,
		oauth2.SetAuthURLParam("me", req.Me),
		oauth2.SetAuthURLParam("code_challenge", req.CodeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// ExchangeCodeForToken redeems an authorization code at the downstream token
// endpoint. Failures carry the provider's own error description when it
// supplies one.
func (c *Client) ExchangeCodeForToken(ctx context.Context, endpoint string, req ExchangeRequest) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {req.Code},
		"client_id":     {req.ClientID},
		"redirect_uri":  {req.RedirectURI},
		"code_verifier": {req.CodeVerifier},
	}
	return c.postTokenRequest(ctx, endpoint, form)
}

// RefreshAccessToken exchanges a refresh token for a new access token. It is
// never invoked automatically; callers that detect expiry decide when.
func (c *Client) RefreshAccessToken(ctx context.Context, endpoint string, req RefreshRequest) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {req.RefreshToken},
		"client_id":     {req.ClientID},
	}
	return c.postTokenRequest(ctx, endpoint, form)
}

func (c *Client) postTokenRequest(ctx context.Context, endpoint string, form url.Values) (*TokenResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("[postTokenRequest] failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("[postTokenRequest] token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDiscoveryBody))
	if err != nil {
		return nil, fmt.Errorf("[postTokenRequest] failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		exchangeErr := &TokenExchangeError{StatusCode: resp.StatusCode}
		var errBody struct {
			Code        string `json:"error"`
			Description string `json:"error_description"`
		}
		if json.Unmarshal(body, &errBody) == nil {
			exchangeErr.Code = errBody.Code
			exchangeErr.Description = errBody.Description
		}
		return nil, exchangeErr
	}

	var token TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, &TokenExchangeError{StatusCode: resp.StatusCode, Description: "token endpoint returned malformed JSON"}
	}
	if token.AccessToken == "" {
		return nil, &TokenExchangeError{StatusCode: resp.StatusCode, Description: "token response is missing access_token"}
	}
	if token.Me == "" {
		return nil, &TokenExchangeError{StatusCode: resp.StatusCode, Description: "token response is missing me"}
	}
	return &token, nil
}
