package config

import (
	"crypto/rand"
	"os"
	"strconv"
	"time"
)

type OAuthConfig interface {
	GetPendingAuthTTL() time.Duration
	GetAuthCodeTimeout() time.Duration
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetHTTPTimeout() time.Duration
	GetSigningSecret() []byte
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

// GetPendingAuthTTL is the lifetime of a pending-authorization record
// bridging the upstream request to the downstream callback.
func (OAuth) GetPendingAuthTTL() time.Duration {
	return durationEnv("PENDING_AUTH_TTL_SECONDS", 600*time.Second)
}

func (OAuth) GetAuthCodeTimeout() time.Duration {
	return 10 * time.Minute
}

func (OAuth) GetAccessTokenExpiry() time.Duration {
	return durationEnv("ACCESS_TOKEN_EXPIRY_SECONDS", 1*time.Hour)
}

func (OAuth) GetRefreshTokenExpiry() time.Duration {
	return durationEnv("REFRESH_TOKEN_EXPIRY_SECONDS", 30*24*time.Hour)
}

// GetHTTPTimeout bounds every outbound fetch (discovery, token exchange,
// micropub operations) so a stalled third-party site cannot hang a flow.
func (OAuth) GetHTTPTimeout() time.Duration {
	return durationEnv("HTTP_TIMEOUT_SECONDS", 10*time.Second)
}

// GetSigningSecret returns the HMAC key for upstream access tokens. Falls
// back to a per-process random key, which invalidates tokens on restart.
func (OAuth) GetSigningSecret() []byte {
	if secret := os.Getenv(signingKeyVar); secret != "" {
		return []byte(secret)
	}
	return processSigningSecret
}

var processSigningSecret = func() []byte {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic("config: failed to generate signing secret: " + err.Error())
	}
	return buf
}()

func durationEnv(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return defaultValue
	}
	return time.Duration(seconds) * time.Second
}
