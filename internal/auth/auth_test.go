package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegacyToken_RoundTrip(t *testing.T) {
	token, err := IssueLegacyToken("user-1", "a@example.com", "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateLegacyToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, Issuer, claims.Issuer)
}

func TestLegacyToken_WrongSecret(t *testing.T) {
	token, err := IssueLegacyToken("user-1", "", "secret", 0)
	require.NoError(t, err)

	_, err = ValidateLegacyToken(token, "other")
	assert.Error(t, err)
}

func TestLegacyToken_Expired(t *testing.T) {
	claims := LegacyClaims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = ValidateLegacyToken(token, "secret")
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestLegacyToken_RejectsNonHMAC(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, LegacyClaims{UserID: "user-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ValidateLegacyToken(token, "secret")
	assert.Error(t, err)
}

func TestIssueLegacyToken_NoSecret(t *testing.T) {
	_, err := IssueLegacyToken("user-1", "", "", time.Hour)
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestDiscoverJWKSURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"issuer":"x","jwks_uri":"https://idp.example.com/oauth/v2/keys"}`))
	}))
	defer srv.Close()

	url, err := discoverJWKSURL(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "https://idp.example.com/oauth/v2/keys", url)
}

func TestDiscoverJWKSURL_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := discoverJWKSURL(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "jwks_uri not found")

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	_, err = discoverJWKSURL(context.Background(), down.URL)
	assert.ErrorContains(t, err, "status 503")
}
