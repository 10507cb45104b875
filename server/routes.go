package server

func (s *Server) initRoutes() {
	// Delegation bridge
	s.RegisterRouteHandler("GET "+RouteAuthorize, ChainMiddleware(s.AuthorizeGet(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthorize, ChainMiddleware(s.AuthorizePost(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteCallback, ChainMiddleware(s.IndieAuthCallback(), s.HTMLMiddleWare()...))

	// Upstream OAuth2 API routes
	s.RegisterRouteHandler("POST "+RouteOAuth2Token, ChainMiddleware(s.Token(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteOAuth2Register, ChainMiddleware(s.Register(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteWellKnownAuthServer, ChainMiddleware(s.WellKnownAuthServer(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteWellKnownProtectedResource, ChainMiddleware(s.WellKnownProtectedResource(), s.APIMiddleware()...))

	// Tool transport (bearer-protected)
	s.RegisterRouteHandler(RouteMCP, ChainMiddleware(s.mcpHandler.ServeHTTP, s.APIMiddleware(s.RequireBearerAuth())...))
}
