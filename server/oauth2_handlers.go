package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/indiemcp/micropub-bridge/auth"
	"github.com/indiemcp/micropub-bridge/clients"
	"github.com/indiemcp/micropub-bridge/internal/errors"
)

const contentTypeJSON = "application/json; charset=utf-8"

// Token exchanges an authorization code or refresh token for upstream tokens
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, "invalid_request", "Failed to parse form data", http.StatusBadRequest)
			return
		}

		tokenResponse, err := s.auth.Exchange(authTokenRequest(r))
		if err != nil {
			code, status := oauthErrorCode(err)
			writeJSONError(w, code, err.Error(), status)
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		_ = json.NewEncoder(w).Encode(tokenResponse)
	}
}

// Register handles dynamic client registration
func (s *Server) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req clients.RegistrationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, "invalid_client_metadata", "Failed to parse registration request", http.StatusBadRequest)
			return
		}

		resp, err := clients.Register(s.clients, req)
		if err != nil {
			writeJSONError(w, "invalid_client_metadata", err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// WellKnownAuthServer serves the RFC 8414 authorization server metadata
func (s *Server) WellKnownAuthServer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		baseURL := strings.TrimSuffix(s.config.GetBaseURL(), "/")

		resp := map[string]any{
			"issuer":                 baseURL,
			"authorization_endpoint": baseURL + RouteAuthorize,
			"token_endpoint":         baseURL + RouteOAuth2Token,
			"registration_endpoint":  baseURL + RouteOAuth2Register,

			"response_types_supported": []string{"code"},
			"response_modes_supported": []string{"query"},

			"grant_types_supported": []string{
				"authorization_code",
				"refresh_token",
			},

			"token_endpoint_auth_methods_supported": []string{
				"client_secret_post", // Credentials in POST body
				"none",               // For public clients with PKCE
			},

			"code_challenge_methods_supported": []string{"S256"},

			"scopes_supported": []string{
				"create", // Micropub create
				"update", // Micropub update
				"delete", // Micropub delete/undelete
				"media",  // Media endpoint upload
			},
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "public, max-age=3600") // Cache for 1 hour
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// WellKnownProtectedResource serves the RFC 9728 protected resource metadata,
// pointing MCP clients at this service's own authorization server.
func (s *Server) WellKnownProtectedResource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		baseURL := strings.TrimSuffix(s.config.GetBaseURL(), "/")

		resp := map[string]any{
			"resource":                 baseURL + RouteMCP,
			"authorization_servers":    []string{baseURL},
			"bearer_methods_supported": []string{"header"},
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "public, max-age=3600") // Cache for 1 hour
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Helper functions

func authTokenRequest(r *http.Request) auth.TokenRequest {
	return auth.TokenRequest{
		GrantType:    r.FormValue("grant_type"),
		Code:         r.FormValue("code"),
		ClientID:     r.FormValue("client_id"),
		ClientSecret: r.FormValue("client_secret"),
		RedirectURI:  r.FormValue("redirect_uri"),
		CodeVerifier: r.FormValue("code_verifier"),
		RefreshToken: r.FormValue("refresh_token"),
	}
}

// oauthErrorCode maps service errors onto OAuth2 error codes and statuses
func oauthErrorCode(err error) (string, int) {
	switch {
	case errors.Is(err, errors.ErrInvalidClient), errors.Is(err, clients.ErrInvalidClientSecret):
		return "invalid_client", http.StatusUnauthorized
	case errors.Is(err, errors.ErrInvalidAuthorizationCode),
		errors.Is(err, errors.ErrInvalidRefreshToken),
		errors.Is(err, errors.ErrInvalidGrant),
		errors.Is(err, errors.ErrInvalidCodeChallenge):
		return "invalid_grant", http.StatusBadRequest
	case errors.Is(err, errors.ErrUnsupported):
		return "unsupported_grant_type", http.StatusBadRequest
	default:
		return "invalid_request", http.StatusBadRequest
	}
}

// writeJSONError writes an OAuth2 error response
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}
