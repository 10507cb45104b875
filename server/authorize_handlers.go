package server

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/indiemcp/micropub-bridge/auth"
	"github.com/indiemcp/micropub-bridge/indieauth"
	"github.com/indiemcp/micropub-bridge/internal/errors"
	"github.com/indiemcp/micropub-bridge/pkce"
	"github.com/indiemcp/micropub-bridge/server/pendingauth"
)

// AuthorizeGet renders the site-URL entry form for a validated upstream
// authorization request. The request parameters travel through hidden form
// fields so they survive the POST unmodified.
func (s *Server) AuthorizeGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authRequest, err := s.auth.ParseAuthRequest(r)
		if err != nil {
			s.renderErrorPage(w, http.StatusBadRequest, "Invalid authorization request", err.Error(), "")
			return
		}

		s.renderAuthorizeForm(w, authRequest)
	}
}

// AuthorizePost accepts the submitted site URL, discovers the site's
// IndieAuth and Micropub endpoints, stores a pending-authorization record,
// and redirects the user's browser to the downstream authorization endpoint.
func (s *Server) AuthorizePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authRequest, err := s.auth.ParseAuthRequest(r)
		if err != nil {
			s.renderErrorPage(w, http.StatusBadRequest, "Invalid authorization request", err.Error(), "")
			return
		}
		retryURL := s.authorizeRetryURL(authRequest)

		site := strings.TrimSpace(r.FormValue("site"))
		if site == "" {
			s.renderErrorPage(w, http.StatusBadRequest, "Website URL required",
				"Please enter your website URL to continue.", retryURL)
			return
		}

		endpoints, err := s.indieauth.Discover(r.Context(), site)
		if err != nil {
			log.Warn().Err(err).Str("site", site).Msg("endpoint discovery failed")
			s.renderErrorPage(w, http.StatusBadGateway, "Could not reach your website",
				"Fetching your website failed. Check the URL and try again.", retryURL)
			return
		}
		if !endpoints.HasMicropub() {
			log.Info().Err(errors.ErrNoMicropubEndpoint).Str("site", site).Msg("discovery incomplete")
			s.renderErrorPage(w, http.StatusBadRequest, "Micropub not supported",
				"Your site does not advertise a Micropub endpoint, so there is nothing to publish to.", retryURL)
			return
		}
		if !endpoints.HasIndieAuth() {
			log.Info().Err(errors.ErrNoIndieAuthSupport).Str("site", site).Msg("discovery incomplete")
			s.renderErrorPage(w, http.StatusBadRequest, "IndieAuth endpoints not found",
				"Could not find IndieAuth authorization and token endpoints on your site.", retryURL)
			return
		}

		state, err := pkce.GenerateState()
		if err != nil {
			s.renderErrorPage(w, http.StatusInternalServerError, "Something went wrong",
				"Failed to prepare the authorization request. Please try again.", retryURL)
			return
		}
		verifier, err := pkce.GenerateCodeVerifier()
		if err != nil {
			s.renderErrorPage(w, http.StatusInternalServerError, "Something went wrong",
				"Failed to prepare the authorization request. Please try again.", retryURL)
			return
		}

		record := &pendingauth.Record{
			Me:           endpoints.Me,
			Endpoints:    *endpoints,
			CodeVerifier: verifier,
			Request:      authRequest.Snapshot(),
		}
		if err := s.pending.Put(state, record, s.pendingTTL()); err != nil {
			log.Error().Err(err).Msg("failed to store pending authorization")
			s.renderErrorPage(w, http.StatusInternalServerError, "Something went wrong",
				"Failed to store the authorization session. Please try again.", retryURL)
			return
		}

		authorizeURL := indieauth.BuildAuthorizationURL(endpoints.Authorization, indieauth.AuthorizationRequest{
			ClientID:      s.bridgeClientID(),
			RedirectURI:   s.bridgeRedirectURI(),
			Me:            endpoints.Me,
			Scope:         strings.Join(authRequest.Scopes, " "),
			State:         state,
			CodeChallenge: pkce.GenerateCodeChallenge(verifier),
		})
		http.Redirect(w, r, authorizeURL, http.StatusFound)
	}
}

// authorizeRetryURL rebuilds the GET /authorize URL carrying the upstream
// request, so error pages can offer a working retry link.
func (s *Server) authorizeRetryURL(authRequest *auth.Request) string {
	return RouteAuthorize + "?" + authRequest.QueryValues().Encode()
}
