// Package auth implements the upstream authorization-provider primitives the
// delegation bridge depends on: parsing incoming authorization requests,
// completing grants with the downstream site's credentials attached, and
// exchanging codes and refresh tokens for upstream access tokens.
package auth

import (
	"context"
	"time"
)

// Props is the durable artifact attached to a completed grant: everything a
// tool handler needs to act against the user's site. It is opaque to the
// upstream client; only this service reads it back.
type Props struct {
	Me               string     `json:"me"`
	MicropubEndpoint string     `json:"micropubEndpoint"`
	MediaEndpoint    string     `json:"mediaEndpoint,omitempty"`
	AccessToken      string     `json:"accessToken"`
	TokenType        string     `json:"tokenType"`
	Scope            string     `json:"scope"`
	RefreshToken     string     `json:"refreshToken,omitempty"`
	ExpiresAt        *time.Time `json:"expiresAt,omitempty"`
	TokenEndpoint    string     `json:"tokenEndpoint"`
}

// Context is the request-scoped authentication context handed to tool
// handlers: the authenticated identity plus the downstream credentials.
// Handlers receive it explicitly; there is no ambient session state.
type Context struct {
	GrantID string
	UserID  string // the downstream "me" identity URL
	Scopes  []string
	Props   Props
}

type contextKey struct{}

// NewContext returns a context carrying the authentication context.
func NewContext(ctx context.Context, authCtx *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, authCtx)
}

// FromContext extracts the authentication context, if any.
func FromContext(ctx context.Context) (*Context, bool) {
	authCtx, ok := ctx.Value(contextKey{}).(*Context)
	return authCtx, ok && authCtx != nil
}
