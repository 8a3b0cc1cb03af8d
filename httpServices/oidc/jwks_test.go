package oidc_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"institution-manager/httpServices/oidc"
	"institution-manager/httpServices/oidc/oidctest"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	audience = "institution-client"
	issuer   = "http://idp.local/realms/campus"
)

func claims(extra jwt.MapClaims) jwt.MapClaims {
	c := jwt.MapClaims{
		"sub":          "kc-123",
		"aud":          audience,
		"iss":          issuer,
		"email":        "ada@example.edu",
		"given_name":   "Ada",
		"family_name":  "Lovelace",
		"realm_access": map[string]interface{}{"roles": []string{"agent", "admin"}},
	}
	for k, v := range extra {
		c[k] = v
	}
	return c
}

func TestVerifyValidToken(t *testing.T) {
	p := oidctest.NewProvider(t)
	v := oidc.NewVerifier(oidc.NewJWKSClient(p.Server.URL, time.Hour), audience, issuer)

	got, err := v.Verify(context.Background(), p.Sign(t, claims(nil)))
	require.NoError(t, err)
	assert.Equal(t, "kc-123", got.Subject)
	assert.Equal(t, "ada@example.edu", *got.Email)
	assert.Equal(t, "Ada", *got.GivenName)
	assert.Equal(t, []string{"agent", "admin"}, got.Roles)
}

func TestVerifyRejectsWrongAudienceIssuerAndMissingSub(t *testing.T) {
	p := oidctest.NewProvider(t)
	v := oidc.NewVerifier(oidc.NewJWKSClient(p.Server.URL, time.Hour), audience, issuer)

	_, err := v.Verify(context.Background(), p.Sign(t, claims(jwt.MapClaims{"aud": "other-client"})))
	assert.Error(t, err)
	_, err = v.Verify(context.Background(), p.Sign(t, claims(jwt.MapClaims{"iss": "http://evil"})))
	assert.Error(t, err)
	_, err = v.Verify(context.Background(), p.Sign(t, claims(jwt.MapClaims{"sub": ""})))
	assert.Error(t, err)
	_, err = v.Verify(context.Background(), p.Sign(t, claims(jwt.MapClaims{"exp": time.Now().Add(-time.Minute).Unix()})))
	assert.Error(t, err)
	_, err = v.Verify(context.Background(), "not-a-token")
	assert.Error(t, err)
}

func TestKeySetIsCachedForTTL(t *testing.T) {
	p := oidctest.NewProvider(t)
	v := oidc.NewVerifier(oidc.NewJWKSClient(p.Server.URL, time.Hour), audience, issuer)

	for i := 0; i < 3; i++ {
		_, err := v.Verify(context.Background(), p.Sign(t, claims(nil)))
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), p.Hits())
}

func TestUnreachableKeySetIsReported(t *testing.T) {
	p := oidctest.NewProvider(t)
	token := p.Sign(t, claims(nil))
	p.Server.Close()

	v := oidc.NewVerifier(oidc.NewJWKSClient(p.Server.URL, time.Hour), audience, issuer)
	_, err := v.Verify(context.Background(), token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, oidc.ErrKeysUnavailable))
}
