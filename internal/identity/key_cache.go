package identity

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/statuspage/internal/client"
)

const jwksCacheTTL = time.Hour

// KeyCache fetches identity-provider signing keys from JWKS endpoints and caches
// them per URL for an hour.
type KeyCache struct {
	httpClient *http.Client

	mu    sync.RWMutex
	cache map[string]*cachedJWKS
}

type cachedJWKS struct {
	keys      map[string]crypto.PublicKey // kid → public key
	expiresAt time.Time
}

// NewKeyCache creates a new key cache. A nil client uses an in-memory HTTP caching
// client so JWKS responses also honour the provider's Cache-Control headers.
func NewKeyCache(httpClient *http.Client) *KeyCache {
	if httpClient == nil {
		httpClient = client.NewInMemoryCachingHTTPClient()
		httpClient.Timeout = 10 * time.Second
	}

	return &KeyCache{
		httpClient: httpClient,
		cache:      make(map[string]*cachedJWKS),
	}
}

// Key returns the public key with the given kid published at jwksURL.
func (c *KeyCache) Key(ctx context.Context, jwksURL, kid string) (crypto.PublicKey, error) {
	c.mu.RLock()
	cached, ok := c.cache[jwksURL]
	c.mu.RUnlock()

	if ok && time.Now().Before(cached.expiresAt) {
		if key, ok := cached.keys[kid]; ok {
			return key, nil
		}
	}

	// Cache miss, expiry or an unknown kid after key rotation.
	log.Debug().Str("jwks_url", jwksURL).Str("kid", kid).Msg("Fetching JWKS")

	keys, err := c.fetch(ctx, jwksURL)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[jwksURL] = &cachedJWKS{
		keys:      keys,
		expiresAt: time.Now().Add(jwksCacheTTL),
	}
	c.mu.Unlock()

	key, ok := keys[kid]
	if !ok {
		return nil, fmt.Errorf("kid not found in JWKS: %s", kid)
	}

	log.Debug().Str("kid", kid).Int("total_keys", len(keys)).Msg("Cached JWKS")
	return key, nil
}

func (c *KeyCache) fetch(ctx context.Context, jwksURL string) (map[string]crypto.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS request failed: %s", resp.Status)
	}

	var jwks struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("failed to decode JWKS: %w", err)
	}

	keys := make(map[string]crypto.PublicKey, len(jwks.Keys))
	for _, k := range jwks.Keys {
		if k.Kid == "" {
			log.Warn().Str("kty", k.Kty).Msg("JWK missing kid")
			continue
		}
		key, err := k.publicKey()
		if err != nil {
			log.Warn().Err(err).Str("kid", k.Kid).Msg("Failed to parse JWK")
			continue
		}
		keys[k.Kid] = key
	}

	return keys, nil
}

// jwk is a JSON Web Key holding either an EC P-256 or an RSA public key.
type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`

	// EC
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`

	// RSA
	N string `json:"n,omitempty"`
	E string `json:"e,omitempty"`
}

func (k jwk) publicKey() (crypto.PublicKey, error) {
	switch k.Kty {
	case "EC":
		if k.Crv != "P-256" {
			return nil, fmt.Errorf("unsupported curve: %s", k.Crv)
		}
		x, err := decodeBigInt(k.X)
		if err != nil {
			return nil, fmt.Errorf("failed to decode x: %w", err)
		}
		y, err := decodeBigInt(k.Y)
		if err != nil {
			return nil, fmt.Errorf("failed to decode y: %w", err)
		}
		return &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}, nil

	case "RSA":
		n, err := decodeBigInt(k.N)
		if err != nil {
			return nil, fmt.Errorf("failed to decode modulus: %w", err)
		}
		e, err := decodeBigInt(k.E)
		if err != nil {
			return nil, fmt.Errorf("failed to decode exponent: %w", err)
		}
		if !e.IsInt64() || e.Int64() > 1<<31-1 {
			return nil, fmt.Errorf("exponent out of range")
		}
		return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil

	default:
		return nil, fmt.Errorf("unsupported key type: %s", k.Kty)
	}
}

// decodeBigInt decodes a base64url value, with or without padding.
func decodeBigInt(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("missing value")
	}
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}
