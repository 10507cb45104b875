package pendingauth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/indiemcp/micropub-bridge/auth"
	"github.com/indiemcp/micropub-bridge/indieauth"
	"github.com/indiemcp/micropub-bridge/server/pendingauth"
)

func newRecord() *pendingauth.Record {
	return &pendingauth.Record{
		Me: "https://alice.example/",
		Endpoints: indieauth.Endpoints{
			Me:            "https://alice.example/",
			Micropub:      "https://alice.example/micropub",
			Authorization: "https://alice.example/auth",
			Token:         "https://alice.example/token",
		},
		CodeVerifier: "verifier-value",
		Request: auth.RequestSnapshot{
			Version:      1,
			ResponseType: "code",
			ClientID:     "https://agent.example/",
			RedirectURI:  "https://agent.example/callback",
		},
	}
}

func TestPutAndGet(t *testing.T) {
	repo := pendingauth.NewInMemoryRepo()

	require.NoError(t, repo.Put("state-1", newRecord(), time.Minute))

	got, err := repo.Get("state-1")
	require.NoError(t, err)
	require.Equal(t, "https://alice.example/", got.Me)
	require.Equal(t, "verifier-value", got.CodeVerifier)
	require.Equal(t, "https://agent.example/callback", got.Request.RedirectURI)
	require.False(t, got.ExpiresAt.IsZero())
}

func TestGetReturnsCopy(t *testing.T) {
	repo := pendingauth.NewInMemoryRepo()
	require.NoError(t, repo.Put("state-1", newRecord(), time.Minute))

	first, err := repo.Get("state-1")
	require.NoError(t, err)
	first.CodeVerifier = "mutated"

	second, err := repo.Get("state-1")
	require.NoError(t, err)
	require.Equal(t, "verifier-value", second.CodeVerifier)
}

func TestExpiredRecordNotFound(t *testing.T) {
	repo := pendingauth.NewInMemoryRepo()
	require.NoError(t, repo.Put("state-1", newRecord(), -time.Second))

	_, err := repo.Get("state-1")
	require.Error(t, err)

	// The expired record is removed, a later Put under the same state works
	require.NoError(t, repo.Put("state-1", newRecord(), time.Minute))
	_, err = repo.Get("state-1")
	require.NoError(t, err)
}

func TestDeleteMakesRecordUnavailable(t *testing.T) {
	repo := pendingauth.NewInMemoryRepo()
	require.NoError(t, repo.Put("state-1", newRecord(), time.Minute))

	got, err := repo.Get("state-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	require.NoError(t, repo.Delete("state-1"))

	_, err = repo.Get("state-1")
	require.Error(t, err)
}

func TestValidationErrors(t *testing.T) {
	repo := pendingauth.NewInMemoryRepo()

	require.Error(t, repo.Put("", newRecord(), time.Minute))
	require.Error(t, repo.Put("state-1", nil, time.Minute))

	_, err := repo.Get("")
	require.Error(t, err)
	require.Error(t, repo.Delete(""))
}
