package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// sessionClaims are the claims read from an identity-provider session token.
type sessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// JWTReaderConfig configures a JWTReader.
type JWTReaderConfig struct {
	// JWKSURL is where the identity provider publishes its signing keys.
	JWKSURL string
	// Issuer, when set, must match the token's iss claim.
	Issuer string
}

// JWTReader is a SessionReader that verifies identity-provider session JWTs
// against the provider's JWKS.
type JWTReader struct {
	cfg  JWTReaderConfig
	keys *KeyCache
}

// NewJWTReader creates a reader using keys to resolve signing keys.
func NewJWTReader(cfg JWTReaderConfig, keys *KeyCache) (*JWTReader, error) {
	if cfg.JWKSURL == "" {
		return nil, errors.New("JWKS URL is required")
	}
	if keys == nil {
		keys = NewKeyCache(nil)
	}

	return &JWTReader{cfg: cfg, keys: keys}, nil
}

// Read implements SessionReader. Failures are logged at debug level and reported as no session.
func (j *JWTReader) Read(r *http.Request) (*Session, bool) {
	token, ok := tokenFromRequest(r)
	if !ok {
		return nil, false
	}

	session, err := j.Verify(r.Context(), token)
	if err != nil {
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("Session token rejected")
		return nil, false
	}

	return session, true
}

// Verify parses and validates a session token.
func (j *JWTReader) Verify(ctx context.Context, token string) (*Session, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg(), jwt.SigningMethodES256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if j.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.cfg.Issuer))
	}

	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		kid, ok := t.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, errors.New("token missing kid")
		}
		return j.keys.Key(ctx, j.cfg.JWKSURL, kid)
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}

	if !parsed.Valid {
		return nil, errors.New("session token invalid")
	}

	if claims.Subject == "" {
		return nil, errors.New("session token missing subject")
	}

	return &Session{ExternalID: claims.Subject, Email: claims.Email}, nil
}
