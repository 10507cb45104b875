package clients

import "errors"

var (
	ErrClientNotFound      = errors.New("client not found")
	ErrInvalidClientSecret = errors.New("invalid client secret")
	ErrPublicClientSecret  = errors.New("public clients must not provide client_secret")
	ErrNoRedirectURIs      = errors.New("registration requires at least one redirect_uri")
	ErrInvalidRedirectURI  = errors.New("redirect_uris must be absolute URLs")
)
