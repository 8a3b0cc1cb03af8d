package config

import (
	"fmt"
	"time"

	"institution-manager/logger"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Settings is the whole runtime configuration, loaded once in main and passed down.
type Settings struct {
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppHost     string `envconfig:"APP_HOST" default:"0.0.0.0"`
	AppPort     string `envconfig:"APP_PORT" default:"8000"`
	FrontendURL string `envconfig:"FRONTEND_URL" default:"*"`

	Database Database `envconfig:"DB"`
	Keycloak Keycloak `envconfig:"KEYCLOAK"`

	// TypeCascadeDelete nulls out references instead of rejecting deletes of referenced types.
	TypeCascadeDelete bool   `envconfig:"TYPE_CASCADE_DELETE" default:"false"`
	UploadDir         string `envconfig:"UPLOAD_DIR" default:"./uploads"`
	LogDir            string `envconfig:"LOG_DIR" default:"log/app"`
	RequestLogEnabled bool   `envconfig:"REQUEST_LOG_ENABLED" default:"true"`

	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash-lite"`
}

type Database struct {
	Host     string `envconfig:"HOST" default:"localhost"`
	Port     string `envconfig:"PORT" default:"5432"`
	Name     string `envconfig:"DATABASE" default:"institution"`
	User     string `envconfig:"USERNAME" default:"postgres"`
	Password string `envconfig:"PASSWORD"`
	SSLMode  string `envconfig:"SSLMODE" default:"disable"`
}

// DSN builds the PostgreSQL connection string.
func (d Database) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type Keycloak struct {
	ServerURL string        `envconfig:"SERVER_URL" default:"http://localhost:8080"`
	Realm     string        `envconfig:"REALM" default:"master"`
	ClientID  string        `envconfig:"CLIENT_ID" default:"institution-client"`
	Bypass    bool          `envconfig:"BYPASS" default:"false"`
	JWKSTTL   time.Duration `envconfig:"JWKS_TTL" default:"1h"`
}

// Issuer is the expected "iss" claim of realm tokens.
func (k Keycloak) Issuer() string {
	return fmt.Sprintf("%s/realms/%s", k.ServerURL, k.Realm)
}

// JWKSURL is where the realm publishes its signing keys.
func (k Keycloak) JWKSURL() string {
	return k.Issuer() + "/protocol/openid-connect/certs"
}

// Load reads .env (if any) and the process environment.
func Load() (*Settings, error) {
	if err := godotenv.Load(); err != nil {
		logger.Warning("No .env file loaded: " + err.Error())
	}
	var s Settings
	if err := envconfig.Process("", &s); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	return &s, nil
}
