package server

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/indiemcp/micropub-bridge/auth"
	"github.com/indiemcp/micropub-bridge/clients"
	"github.com/indiemcp/micropub-bridge/indieauth"
	"github.com/indiemcp/micropub-bridge/internal/config"
	"github.com/indiemcp/micropub-bridge/mcptools"
	"github.com/indiemcp/micropub-bridge/server/pendingauth"
	"github.com/indiemcp/micropub-bridge/token"
)

type Server struct {
	env        string // Environment (e.g., "DEV", "production")
	mux        *http.ServeMux
	routes     []string
	config     config.Config
	auth       *auth.Service
	clients    clients.Repo
	pending    pendingauth.Repo
	indieauth  *indieauth.Client
	httpClient *http.Client
	mcpHandler http.Handler
}

func New(config config.Config, clientRepo clients.Repo, grantRepo auth.GrantRepo, pendingRepo pendingauth.Repo) (*Server, error) {
	tokenManager, err := token.NewManager(config.GetSigningSecret(), config.GetBaseURL(), config.GetAccessTokenExpiry())
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create token manager: %w", err)
	}

	authService, err := auth.NewService(clientRepo, grantRepo, tokenManager, config)
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create authorization service: %w", err)
	}

	httpClient := &http.Client{Timeout: config.GetHTTPTimeout()}
	indieauthClient := indieauth.NewClient(httpClient)

	s := &Server{
		mux:        http.NewServeMux(),
		config:     config,
		auth:       authService,
		clients:    clientRepo,
		pending:    pendingRepo,
		indieauth:  indieauthClient,
		httpClient: httpClient,
	}
	s.env = config.GetEnv()
	s.mcpHandler = mcptools.NewHTTPHandler(config.GetAppName(), httpClient)

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// bridgeClientID is the identifier this service presents to downstream
// IndieAuth servers. IndieAuth client ids are URLs with a trailing slash.
func (s *Server) bridgeClientID() string {
	return strings.TrimSuffix(s.config.GetBaseURL(), "/") + "/"
}

// bridgeRedirectURI is where downstream IndieAuth servers send the user back.
func (s *Server) bridgeRedirectURI() string {
	return strings.TrimSuffix(s.config.GetBaseURL(), "/") + RouteCallback
}

func (s *Server) pendingTTL() time.Duration {
	return s.config.GetPendingAuthTTL()
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}
