package server

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/indiemcp/micropub-bridge/auth"
)

const contentTypeHTML = "text/html; charset=utf-8"

// renderAuthorizeForm renders the site-URL entry page with the upstream
// request round-tripped through hidden fields.
func (s *Server) renderAuthorizeForm(w http.ResponseWriter, authRequest *auth.Request) {
	tmpl, err := ParseTemplate("authorize.html")
	if err != nil {
		log.Error().Err(err).Msg("failed to parse authorize template")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	data := struct {
		Action  string
		Scope   string
		Request *auth.Request
	}{
		Action:  RouteAuthorize,
		Scope:   strings.Join(authRequest.Scopes, " "),
		Request: authRequest,
	}

	w.Header().Set("Content-Type", contentTypeHTML)
	if err := tmpl.Execute(w, data); err != nil {
		log.Error().Err(err).Msg("failed to render authorize template")
	}
}

// renderErrorPage renders a human-readable error page. Message text may
// originate from third-party redirects; html/template escaping keeps it
// inert. An empty retryURL omits the retry link.
func (s *Server) renderErrorPage(w http.ResponseWriter, status int, title, message, retryURL string) {
	tmpl, err := ParseTemplate("error.html")
	if err != nil {
		log.Error().Err(err).Msg("failed to parse error template")
		http.Error(w, message, status)
		return
	}

	data := struct {
		Title    string
		Message  string
		RetryURL string
	}{
		Title:    title,
		Message:  message,
		RetryURL: retryURL,
	}

	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		log.Error().Err(err).Msg("failed to render error template")
	}
}
