// Package oidc verifies realm access tokens against the identity provider's
// published signing keys.
package oidc

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"institution-manager/logger"

	"github.com/golang-jwt/jwt/v5"
)

// ErrKeysUnavailable means the key set could not be fetched. Callers answer 502.
var ErrKeysUnavailable = errors.New("failed to fetch JWKS")

// JWK is one entry of a JSON Web Key Set. Only RSA keys are used.
type JWK struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type keySet struct {
	Keys []JWK `json:"keys"`
}

// JWKSClient fetches and caches a key set for ttl.
type JWKSClient struct {
	httpClient *http.Client
	url        string
	ttl        time.Duration

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func NewJWKSClient(url string, ttl time.Duration) *JWKSClient {
	return &JWKSClient{
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		url: url,
		ttl: ttl,
	}
}

// Key returns the RSA key with the given kid. An unknown kid forces one
// refetch in case the provider rotated its keys.
func (c *JWKSClient) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fresh := c.keys != nil && time.Since(c.fetchedAt) < c.ttl
	if fresh {
		if key, ok := c.keys[kid]; ok {
			return key, nil
		}
	}
	if err := c.refresh(ctx); err != nil {
		return nil, err
	}
	key, ok := c.keys[kid]
	if !ok {
		return nil, fmt.Errorf("public key %q not found", kid)
	}
	return key, nil
}

func (c *JWKSClient) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrKeysUnavailable, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("Failed to fetch JWKS", err)
		return fmt.Errorf("%w: %v", ErrKeysUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status code %d", ErrKeysUnavailable, resp.StatusCode)
	}

	var set keySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("%w: %v", ErrKeysUnavailable, err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := k.RSAPublicKey()
		if err != nil {
			logger.Warning(fmt.Sprintf("Skipping malformed JWK %s: %v", k.Kid, err))
			continue
		}
		keys[k.Kid] = pub
	}
	c.keys = keys
	c.fetchedAt = time.Now()
	return nil
}

// RSAPublicKey decodes the base64url modulus and exponent.
func (k JWK) RSAPublicKey() (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}
	exp := new(big.Int).SetBytes(e)
	if !exp.IsInt64() || exp.Int64() <= 1 || exp.Int64() > 1<<31-1 {
		return nil, errors.New("invalid exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(exp.Int64())}, nil
}

// Claims is the subset of an access token the service reads.
type Claims struct {
	Subject    string
	Email      *string
	GivenName  *string
	FamilyName *string
	Roles      []string
}

// Verifier checks signature, audience and issuer of RS* tokens.
type Verifier struct {
	keys     *JWKSClient
	audience string
	issuer   string
}

func NewVerifier(keys *JWKSClient, audience, issuer string) *Verifier {
	return &Verifier{keys: keys, audience: audience, issuer: issuer}
}

// Verify parses the token and extracts Claims. Errors wrapping
// ErrKeysUnavailable are infrastructure failures; anything else is an invalid token.
func (v *Verifier) Verify(ctx context.Context, token string) (*Claims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		return v.keys.Key(ctx, kid)
	},
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
		jwt.WithAudience(v.audience),
		jwt.WithIssuer(v.issuer),
	)
	if err != nil {
		return nil, err
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}

	sub, _ := mapClaims["sub"].(string)
	if sub == "" {
		return nil, errors.New("invalid token: missing sub")
	}

	claims := &Claims{
		Subject:    sub,
		Email:      stringClaim(mapClaims, "email"),
		GivenName:  stringClaim(mapClaims, "given_name"),
		FamilyName: stringClaim(mapClaims, "family_name"),
	}
	if realm, ok := mapClaims["realm_access"].(map[string]interface{}); ok {
		if roles, ok := realm["roles"].([]interface{}); ok {
			for _, r := range roles {
				if s, ok := r.(string); ok {
					claims.Roles = append(claims.Roles, s)
				}
			}
		}
	}
	return claims, nil
}

func stringClaim(claims jwt.MapClaims, name string) *string {
	s, ok := claims[name].(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}
