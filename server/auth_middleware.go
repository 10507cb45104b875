package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/indiemcp/micropub-bridge/auth"
)

// RequireBearerAuth validates the Authorization header against the upstream
// authorization service and injects the resulting auth context into the
// request context for tool handlers.
func (s *Server) RequireBearerAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			bearer, ok := bearerToken(r)
			if !ok {
				s.unauthorized(w, "missing or malformed Authorization header")
				return
			}

			authCtx, err := s.auth.Authenticate(bearer)
			if err != nil {
				log.Debug().Err(err).Msg("bearer token rejected")
				s.unauthorized(w, "invalid or expired access token")
				return
			}

			next(w, r.WithContext(auth.NewContext(r.Context(), authCtx)))
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// unauthorized writes a 401 with the challenge pointing at the protected
// resource metadata, so MCP clients can locate the authorization server.
func (s *Server) unauthorized(w http.ResponseWriter, description string) {
	metadataURL := strings.TrimSuffix(s.config.GetBaseURL(), "/") + RouteWellKnownProtectedResource
	w.Header().Set("WWW-Authenticate",
		fmt.Sprintf(`Bearer error="invalid_token", error_description=%q, resource_metadata=%q`, description, metadataURL))
	writeJSONError(w, "invalid_token", description, http.StatusUnauthorized)
}
