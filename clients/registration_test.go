package clients_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/indiemcp/micropub-bridge/clients"
)

func TestRegisterPublicClient(t *testing.T) {
	repo := clients.NewInMemoryRepo()

	resp, err := clients.Register(repo, clients.RegistrationRequest{
		RedirectURIs:            []string{"http://localhost:3334/oauth/callback"},
		ClientName:              "Example MCP Client",
		TokenEndpointAuthMethod: "none",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.ClientID)
	require.Empty(t, resp.ClientSecret)
	require.Equal(t, "none", resp.TokenEndpointAuthMethod)
	require.Equal(t, []string{"authorization_code", "refresh_token"}, resp.GrantTypes)

	stored, err := repo.Get(resp.ClientID)
	require.NoError(t, err)
	require.True(t, stored.IsPublic())
	require.NoError(t, stored.ValidateSecret(""))
	require.ErrorIs(t, stored.ValidateSecret("anything"), clients.ErrPublicClientSecret)
}

func TestRegisterConfidentialClient(t *testing.T) {
	repo := clients.NewInMemoryRepo()

	resp, err := clients.Register(repo, clients.RegistrationRequest{
		RedirectURIs:            []string{"https://agent.example/callback"},
		ClientName:              "Hosted Agent",
		TokenEndpointAuthMethod: "client_secret_post",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.ClientSecret)

	stored, err := repo.Get(resp.ClientID)
	require.NoError(t, err)
	require.False(t, stored.IsPublic())
	require.NotEmpty(t, stored.SecretHash, "secret hash must be stored")
	require.NoError(t, stored.ValidateSecret(resp.ClientSecret))
	require.ErrorIs(t, stored.ValidateSecret("wrong"), clients.ErrInvalidClientSecret)
}

func TestRegisterValidation(t *testing.T) {
	repo := clients.NewInMemoryRepo()

	t.Run("no redirect URIs", func(t *testing.T) {
		_, err := clients.Register(repo, clients.RegistrationRequest{ClientName: "bad"})
		require.ErrorIs(t, err, clients.ErrNoRedirectURIs)
	})

	t.Run("relative redirect URI", func(t *testing.T) {
		_, err := clients.Register(repo, clients.RegistrationRequest{
			RedirectURIs: []string{"/callback"},
		})
		require.ErrorIs(t, err, clients.ErrInvalidRedirectURI)
	})
}

func TestHasRedirectURIExactMatch(t *testing.T) {
	client := &clients.Client{RedirectURIs: []string{"https://agent.example/callback"}}

	require.True(t, client.HasRedirectURI("https://agent.example/callback"))
	require.False(t, client.HasRedirectURI("https://agent.example/callback/extra"))
	require.False(t, client.HasRedirectURI("https://agent.example/"))
}
