package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Delegation bridge routes
	RouteAuthorize = "/authorize"
	RouteCallback  = "/indieauth-callback"

	// Upstream OAuth2 routes
	RouteOAuth2Token    = "/oauth2/token"
	RouteOAuth2Register = "/oauth2/register"

	// Metadata routes
	RouteWellKnownAuthServer        = "/.well-known/oauth-authorization-server"
	RouteWellKnownProtectedResource = "/.well-known/oauth-protected-resource"

	// Tool transport route
	RouteMCP = "/mcp"
)
