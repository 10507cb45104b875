package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/indiemcp/micropub-bridge/clients"
	"github.com/indiemcp/micropub-bridge/internal/config"
	"github.com/indiemcp/micropub-bridge/internal/errors"
	"github.com/indiemcp/micropub-bridge/pkce"
	"github.com/indiemcp/micropub-bridge/token"
)

const codeGenerationLength = 32

// Service provides the authorization-provider primitives: request parsing,
// grant completion, token exchange, and bearer authentication.
type Service struct {
	clients      clients.Repo
	grants       GrantRepo
	tokenCreator *token.Manager

	authCodeTimeout time.Duration
	refreshExpiry   time.Duration
	nowTime         func() time.Time
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// NewService initializes the authorization service with required dependencies.
func NewService(clientRepo clients.Repo, grantRepo GrantRepo, tokenCreator *token.Manager, cfg config.OAuthConfig, options ...ServiceOption) (*Service, error) {
	if clientRepo == nil {
		return nil, fmt.Errorf("[NewService] clients repo is required")
	}
	if grantRepo == nil {
		return nil, fmt.Errorf("[NewService] grants repo is required")
	}
	if tokenCreator == nil {
		return nil, fmt.Errorf("[NewService] token creator is required")
	}

	service := &Service{
		clients:         clientRepo,
		grants:          grantRepo,
		tokenCreator:    tokenCreator,
		authCodeTimeout: cfg.GetAuthCodeTimeout(),
		refreshExpiry:   cfg.GetRefreshTokenExpiry(),
		nowTime:         time.Now,
	}
	for _, opt := range options {
		opt(service)
	}
	return service, nil
}

// CompleteParams carries everything needed to finish an upstream grant after
// the downstream flow succeeded.
type CompleteParams struct {
	Request *Request
	UserID  string   // the downstream "me"
	Scopes  []string // granted scopes, already split on whitespace
	Props   Props
}

// CompleteAuthorization persists a grant binding the user to the client with
// the downstream credentials attached, and returns the redirect URL that
// resumes the upstream client's flow.
func (s *Service) CompleteAuthorization(params CompleteParams) (string, error) {
	if params.Request == nil {
		return "", errors.Wrapf(errors.ErrMalformedBridgeState, "request is nil")
	}
	snapshot := params.Request.Snapshot()
	if err := snapshot.Validate(); err != nil {
		return "", err
	}
	if params.UserID == "" {
		return "", errors.Wrapf(errors.ErrMalformedBridgeState, "user id is empty")
	}

	code, err := generateOpaqueToken(codeGenerationLength)
	if err != nil {
		return "", fmt.Errorf("[CompleteAuthorization] failed to generate code: %w", err)
	}

	grant := &Grant{
		ID:                  uuid.New().String(),
		ClientID:            params.Request.ClientID,
		UserID:              params.UserID,
		Scopes:              append([]string(nil), params.Scopes...),
		Props:               params.Props,
		Code:                code,
		CodeExpiresAt:       s.nowTime().Add(s.authCodeTimeout),
		CodeChallenge:       params.Request.CodeChallenge,
		CodeChallengeMethod: params.Request.CodeChallengeMethod,
		RedirectURI:         params.Request.RedirectURI,
		CreatedAt:           s.nowTime(),
	}
	if err := s.grants.Upsert(grant); err != nil {
		return "", fmt.Errorf("[CompleteAuthorization] failed to store grant: %w", err)
	}

	query := url.Values{"code": {code}}
	if params.Request.State != "" {
		query.Set("state", params.Request.State)
	}
	separator := "?"
	if strings.Contains(params.Request.RedirectURI, "?") {
		separator = "&"
	}
	return params.Request.RedirectURI + separator + query.Encode(), nil
}

// TokenRequest holds parameters for the upstream token endpoint.
type TokenRequest struct {
	GrantType    string
	Code         string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	CodeVerifier string
	RefreshToken string
}

// TokenResponse is the upstream token endpoint's JSON response.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// Exchange handles the upstream token endpoint's two grant types.
func (s *Service) Exchange(req TokenRequest) (*TokenResponse, error) {
	client, err := s.clients.Get(req.ClientID)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidClient, "unknown client %q", req.ClientID)
	}
	if err := client.ValidateSecret(req.ClientSecret); err != nil {
		return nil, err
	}

	switch req.GrantType {
	case "authorization_code":
		return s.exchangeCode(req)
	case "refresh_token":
		return s.exchangeRefreshToken(req)
	default:
		return nil, errors.Wrapf(errors.ErrUnsupported, "grant_type %q", req.GrantType)
	}
}

func (s *Service) exchangeCode(req TokenRequest) (*TokenResponse, error) {
	if req.Code == "" {
		return nil, errors.ErrInvalidAuthorizationCode
	}

	// Consume before validating: a code observed once is spent even when
	// the rest of the request turns out to be wrong.
	grant, err := s.grants.ConsumeCode(req.Code)
	if err != nil {
		return nil, errors.ErrInvalidAuthorizationCode
	}
	if s.nowTime().After(grant.CodeExpiresAt) {
		return nil, errors.Wrapf(errors.ErrInvalidAuthorizationCode, "code expired")
	}
	if grant.ClientID != req.ClientID {
		return nil, errors.ErrInvalidGrant
	}
	if grant.RedirectURI != req.RedirectURI {
		return nil, errors.ErrInvalidRedirectURI
	}
	if grant.CodeChallenge != "" {
		if req.CodeVerifier == "" || pkce.GenerateCodeChallenge(req.CodeVerifier) != grant.CodeChallenge {
			return nil, errors.ErrInvalidCodeChallenge
		}
	}

	return s.issueTokens(grant)
}

func (s *Service) exchangeRefreshToken(req TokenRequest) (*TokenResponse, error) {
	if req.RefreshToken == "" {
		return nil, errors.ErrInvalidRefreshToken
	}
	grant, err := s.grants.GetByRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, errors.ErrInvalidRefreshToken
	}
	if grant.ClientID != req.ClientID {
		return nil, errors.ErrInvalidGrant
	}
	if s.nowTime().After(grant.RefreshExpiresAt) {
		return nil, errors.Wrapf(errors.ErrInvalidRefreshToken, "refresh token expired")
	}

	return s.issueTokens(grant)
}

// issueTokens mints an access token and rotates the grant's refresh token.
func (s *Service) issueTokens(grant *Grant) (*TokenResponse, error) {
	scope := strings.Join(grant.Scopes, " ")

	accessToken, _, err := s.tokenCreator.CreateAccessToken(grant.ID, grant.UserID, grant.ClientID, scope)
	if err != nil {
		return nil, fmt.Errorf("[issueTokens] failed to create access token: %w", err)
	}

	refreshToken, err := generateOpaqueToken(codeGenerationLength)
	if err != nil {
		return nil, fmt.Errorf("[issueTokens] failed to generate refresh token: %w", err)
	}
	grant.RefreshToken = refreshToken
	grant.RefreshExpiresAt = s.nowTime().Add(s.refreshExpiry)
	if err := s.grants.Upsert(grant); err != nil {
		return nil, fmt.Errorf("[issueTokens] failed to store rotated grant: %w", err)
	}

	return &TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.tokenCreator.Expiry().Seconds()),
		RefreshToken: refreshToken,
		Scope:        scope,
	}, nil
}

// Authenticate validates a bearer token and loads the grant it references,
// returning the request-scoped authentication context.
func (s *Service) Authenticate(bearer string) (*Context, error) {
	claims, err := s.tokenCreator.ParseAccessToken(bearer)
	if err != nil {
		return nil, err
	}
	grant, err := s.grants.Get(claims.GrantID)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidToken, "grant %q no longer exists", claims.GrantID)
	}
	return &Context{
		GrantID: grant.ID,
		UserID:  grant.UserID,
		Scopes:  append([]string(nil), grant.Scopes...),
		Props:   grant.Props,
	}, nil
}

func generateOpaqueToken(byteLen int) (string, error) {
	buf := make([]byte, byteLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
