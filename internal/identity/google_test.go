package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func serveJWKS(t *testing.T, kid string, pub *rsa.PublicKey) (*httptest.Server, *int) {
	t.Helper()
	fetches := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kid": kid,
				"kty": "RSA",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &fetches
}

func signGoogleToken(t *testing.T, key *rsa.PrivateKey, kid string, claims googleClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	return s
}

func TestGoogleVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv, fetches := serveJWKS(t, "k1", &key.PublicKey)

	v := NewGoogleVerifier("client-123", srv.URL, srv.Client())
	now := time.Now()

	valid := googleClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://accounts.google.com",
			Subject:   "10769150350006150715113082367",
			Audience:  jwt.ClaimStrings{"client-123"},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Email:         "ivan@example.com",
		EmailVerified: true,
		Name:          "Ivan Ivanov",
		Picture:       "https://example.com/i.png",
	}

	claims, err := v.Verify(context.Background(), signGoogleToken(t, key, "k1", valid))
	require.NoError(t, err)
	require.Equal(t, "ivan@example.com", claims.Email)
	require.Equal(t, "Ivan Ivanov", claims.Name)
	require.True(t, claims.EmailVerified)

	_, err = v.Verify(context.Background(), signGoogleToken(t, key, "k1", valid))
	require.NoError(t, err)
	require.Equal(t, 1, *fetches, "keys should be cached")

	t.Run("wrong audience", func(t *testing.T) {
		c := valid
		c.Audience = jwt.ClaimStrings{"someone-else"}
		_, err := v.Verify(context.Background(), signGoogleToken(t, key, "k1", c))
		require.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		c := valid
		c.Issuer = "https://evil.example.com"
		_, err := v.Verify(context.Background(), signGoogleToken(t, key, "k1", c))
		require.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		c := valid
		c.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
		_, err := v.Verify(context.Background(), signGoogleToken(t, key, "k1", c))
		require.Error(t, err)
	})

	t.Run("unknown key id", func(t *testing.T) {
		_, err := v.Verify(context.Background(), signGoogleToken(t, key, "k2", valid))
		require.Error(t, err)
	})

	t.Run("signed by another key", func(t *testing.T) {
		other, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		_, err = v.Verify(context.Background(), signGoogleToken(t, other, "k1", valid))
		require.Error(t, err)
	})
}

func TestGoogleVerifierUnknownKeyIDUsesCache(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv, fetches := serveJWKS(t, "k1", &key.PublicKey)

	now := time.Now()
	v := NewGoogleVerifier("client-123", srv.URL, srv.Client())
	v.now = func() time.Time { return now }

	claims := googleClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "accounts.google.com",
			Subject:   "42",
			Audience:  jwt.ClaimStrings{"client-123"},
			ExpiresAt: jwt.NewNumericDate(now.Add(3 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Email: "ivan@example.com",
	}

	_, err = v.Verify(context.Background(), signGoogleToken(t, key, "k1", claims))
	require.NoError(t, err)
	require.Equal(t, 1, *fetches)

	for i := 0; i < 5; i++ {
		_, err = v.Verify(context.Background(), signGoogleToken(t, key, "rotated", claims))
		require.ErrorContains(t, err, "unknown signing key")
	}
	require.Equal(t, 1, *fetches, "unknown key ids must not refetch a fresh key set")

	now = now.Add(certsTTL + time.Minute)
	_, err = v.Verify(context.Background(), signGoogleToken(t, key, "rotated", claims))
	require.Error(t, err)
	require.Equal(t, 2, *fetches, "an expired key set is refetched")
}
