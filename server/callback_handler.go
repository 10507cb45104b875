package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/indiemcp/micropub-bridge/auth"
	"github.com/indiemcp/micropub-bridge/indieauth"
	"github.com/indiemcp/micropub-bridge/internal/errors"
	"github.com/indiemcp/micropub-bridge/micropub"
)

// mediaOutcome records how the media-endpoint lookup went. The lookup is
// best effort; only "found" changes the assembled props.
type mediaOutcome int

const (
	mediaFound mediaOutcome = iota
	mediaNotAdvertised
	mediaLookupFailed
)

// IndieAuthCallback receives the downstream redirect, exchanges the code for
// a site token, and completes the upstream grant. The pending record is
// deleted before any further action so a replayed callback with the same
// state finds nothing and fails as an expired session.
func (s *Server) IndieAuthCallback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		errorParam := r.FormValue("error")
		errorDesc := r.FormValue("error_description")
		if errorParam != "" {
			message := "The authorization server reported: " + errorParam
			if errorDesc != "" {
				message += " - " + errorDesc
			}
			s.renderErrorPage(w, http.StatusBadRequest, "Authorization failed", message, "")
			return
		}

		code := r.FormValue("code")
		state := r.FormValue("state")
		if code == "" || state == "" {
			log.Info().Err(errors.ErrMissingParameters).Msg("callback rejected")
			s.renderErrorPage(w, http.StatusBadRequest, "Missing parameters",
				"The callback is missing the code or state parameter.", "")
			return
		}

		record, err := s.pending.Get(state)
		if err != nil {
			log.Info().Err(errors.ErrSessionExpired).Msg("callback rejected")
			s.renderErrorPage(w, http.StatusBadRequest, "Session expired",
				"Your authorization session has expired or was already used. Please start again.", "")
			return
		}
		// Delete before acting: a concurrent or replayed callback with the
		// same state must find nothing.
		if err := s.pending.Delete(state); err != nil {
			log.Error().Err(err).Msg("failed to delete pending authorization")
			s.renderErrorPage(w, http.StatusInternalServerError, "Something went wrong",
				"Failed to finalize the authorization session. Please start again.", "")
			return
		}

		tokenResp, err := s.indieauth.ExchangeCodeForToken(r.Context(), record.Endpoints.Token, indieauth.ExchangeRequest{
			Code:         code,
			ClientID:     s.bridgeClientID(),
			RedirectURI:  s.bridgeRedirectURI(),
			CodeVerifier: record.CodeVerifier,
		})
		if err != nil {
			log.Warn().Err(err).Str("me", record.Me).Msg("downstream token exchange failed")
			s.renderErrorPage(w, http.StatusBadGateway, "Token exchange failed",
				"Your site's token endpoint rejected the authorization: "+err.Error(), "")
			return
		}

		mediaEndpoint, outcome := s.lookupMediaEndpoint(r.Context(), record.Endpoints.Micropub, tokenResp.AccessToken)
		if outcome == mediaLookupFailed {
			log.Debug().Str("me", record.Me).Msg("media endpoint lookup failed, continuing without one")
		}

		props := auth.Props{
			Me:               tokenResp.Me,
			MicropubEndpoint: record.Endpoints.Micropub,
			MediaEndpoint:    mediaEndpoint,
			AccessToken:      tokenResp.AccessToken,
			TokenType:        tokenResp.TokenType,
			Scope:            tokenResp.Scope,
			RefreshToken:     tokenResp.RefreshToken,
			TokenEndpoint:    record.Endpoints.Token,
		}
		if tokenResp.ExpiresIn > 0 {
			expiresAt := time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
			props.ExpiresAt = &expiresAt
		}

		if err := record.Request.Validate(); err != nil {
			// A malformed snapshot is a bridging bug, not user error.
			log.Error().Err(err).
				Str("client_id", record.Request.ClientID).
				Str("redirect_uri", record.Request.RedirectURI).
				Msg("pending authorization snapshot failed validation")
			s.renderErrorPage(w, http.StatusInternalServerError, "Configuration error",
				"The authorization session is invalid and cannot be completed. Please start again.", "")
			return
		}
		upstreamRequest, err := record.Request.Restore()
		if err != nil {
			log.Error().Err(err).Msg("failed to restore upstream authorization request")
			s.renderErrorPage(w, http.StatusInternalServerError, "Configuration error",
				"The authorization session is invalid and cannot be completed. Please start again.", "")
			return
		}

		redirectTo, err := s.auth.CompleteAuthorization(auth.CompleteParams{
			Request: upstreamRequest,
			UserID:  tokenResp.Me,
			Scopes:  strings.Fields(tokenResp.Scope),
			Props:   props,
		})
		if err != nil {
			log.Error().Err(err).Str("me", tokenResp.Me).Msg("failed to complete upstream grant")
			s.renderErrorPage(w, http.StatusInternalServerError, "Something went wrong",
				"Failed to complete the authorization. Please start again.", "")
			return
		}

		log.Info().Str("me", tokenResp.Me).Str("client_id", upstreamRequest.ClientID).Msg("authorization completed")
		http.Redirect(w, r, redirectTo, http.StatusFound)
	}
}

// lookupMediaEndpoint queries the Micropub config with the fresh token. The
// media endpoint is only ever advertised there, never as a discovery rel.
func (s *Server) lookupMediaEndpoint(ctx context.Context, micropubEndpoint, accessToken string) (string, mediaOutcome) {
	mpClient := micropub.NewClient(micropubEndpoint, accessToken, micropub.WithHTTPClient(s.httpClient))
	config, err := mpClient.GetConfig(ctx)
	if err != nil {
		return "", mediaLookupFailed
	}
	if endpoint, ok := config["media-endpoint"].(string); ok && endpoint != "" {
		return endpoint, mediaFound
	}
	return "", mediaNotAdvertised
}
