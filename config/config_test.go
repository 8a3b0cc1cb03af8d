package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"KEYCLOAK_SERVER_URL", "KEYCLOAK_REALM", "KEYCLOAK_JWKS_TTL", "TYPE_CASCADE_DELETE", "UPLOAD_DIR"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", s.Keycloak.ServerURL)
	assert.Equal(t, "master", s.Keycloak.Realm)
	assert.Equal(t, time.Hour, s.Keycloak.JWKSTTL)
	assert.False(t, s.TypeCascadeDelete)
	assert.Equal(t, "./uploads", s.UploadDir)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("KEYCLOAK_SERVER_URL", "https://sso.example.edu")
	t.Setenv("KEYCLOAK_REALM", "campus")
	t.Setenv("KEYCLOAK_BYPASS", "true")
	t.Setenv("KEYCLOAK_JWKS_TTL", "5m")
	t.Setenv("TYPE_CASCADE_DELETE", "true")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_DATABASE", "helpdesk")

	s, err := Load()
	require.NoError(t, err)

	assert.True(t, s.Keycloak.Bypass)
	assert.True(t, s.TypeCascadeDelete)
	assert.Equal(t, 5*time.Minute, s.Keycloak.JWKSTTL)
	assert.Equal(t, "https://sso.example.edu/realms/campus", s.Keycloak.Issuer())
	assert.Equal(t, "https://sso.example.edu/realms/campus/protocol/openid-connect/certs", s.Keycloak.JWKSURL())
	assert.Contains(t, s.Database.DSN(), "host=db")
	assert.Contains(t, s.Database.DSN(), "dbname=helpdesk")
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("KEYCLOAK_JWKS_TTL", "soon")

	_, err := Load()
	assert.Error(t, err)
}
