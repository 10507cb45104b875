package indieauth

import "fmt"

// DiscoveryError reports a failure to fetch the target site or its metadata
// document. Missing endpoints are not discovery errors; callers find those by
// inspecting the Endpoints fields.
type DiscoveryError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DiscoveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("discovery failed for %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("discovery failed for %s: HTTP %d", e.URL, e.StatusCode)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// TokenExchangeError reports a rejected or malformed response from a token
// endpoint. Message precedence follows the provider's own wording:
// error_description, then error, then the HTTP status.
type TokenExchangeError struct {
	StatusCode  int
	Code        string // the provider's "error" value, when present
	Description string // the provider's "error_description" value, when present
}

func (e *TokenExchangeError) Error() string {
	if e.Description != "" {
		return e.Description
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("token endpoint returned HTTP %d", e.StatusCode)
}
