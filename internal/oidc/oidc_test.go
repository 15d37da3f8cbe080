package oidc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/mutsasns/mutsasns/backend/go-services/pkg/middleware"
)

const (
	testIssuer = "http://keycloak.local/realms/mutsasns"
	testClient = "mutsasns-api"
)

func sign(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return raw
}

func TestStaticVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	v := NewStaticVerifier(testIssuer, testClient, &key.PublicKey)
	ctx := context.Background()

	good := sign(t, key, jwt.MapClaims{
		"iss":                testIssuer,
		"aud":                testClient,
		"sub":                "kc-123",
		"preferred_username": "bob",
		"exp":                time.Now().Add(time.Minute).Unix(),
		"iat":                time.Now().Unix(),
	})
	tok, err := v.Verify(ctx, good)
	require.NoError(t, err)
	var claims map[string]interface{}
	require.NoError(t, tok.Claims(&claims))
	require.Equal(t, "bob", middleware.UsernameFromClaims(claims))

	wrongAud := sign(t, key, jwt.MapClaims{
		"iss": testIssuer,
		"aud": "other-client",
		"sub": "kc-123",
		"exp": time.Now().Add(time.Minute).Unix(),
	})
	_, err = v.Verify(ctx, wrongAud)
	require.Error(t, err)

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	forged := sign(t, other, jwt.MapClaims{
		"iss": testIssuer,
		"aud": testClient,
		"sub": "kc-123",
		"exp": time.Now().Add(time.Minute).Unix(),
	})
	_, err = v.Verify(ctx, forged)
	require.Error(t, err)
}

func TestAccessTokenVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	v := NewStaticVerifier(testIssuer, testClient, &key.PublicKey).ForAccessTokens()
	ctx := context.Background()

	access := sign(t, key, jwt.MapClaims{
		"iss":                testIssuer,
		"aud":                "account",
		"azp":                testClient,
		"sub":                "kc-123",
		"preferred_username": "bob",
		"exp":                time.Now().Add(time.Minute).Unix(),
	})
	_, err = v.Verify(ctx, access)
	require.NoError(t, err)

	otherClient := sign(t, key, jwt.MapClaims{
		"iss": testIssuer,
		"aud": "account",
		"azp": "someone-else",
		"sub": "kc-123",
		"exp": time.Now().Add(time.Minute).Unix(),
	})
	_, err = v.Verify(ctx, otherClient)
	require.ErrorContains(t, err, "someone-else")

	// the ID token verifier still insists on aud
	_, err = NewStaticVerifier(testIssuer, testClient, &key.PublicKey).Verify(ctx, access)
	require.Error(t, err)
}
