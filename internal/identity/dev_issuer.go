package identity

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog/log"
)

// DevIssuer signs session tokens locally so the server can run without an
// external identity provider. It publishes its key as a JWKS for JWTReader.
type DevIssuer struct {
	issuer     string
	privateKey *ecdsa.PrivateKey
	kid        string
}

// NewDevIssuer creates an issuer with a fresh ECDSA P-256 keypair.
// The key ID (kid) is the base58-encoded SHA256 hash of the public key DER bytes.
func NewDevIssuer(issuer string) (*DevIssuer, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ECDSA key: %w", err)
	}

	pubKeyDER, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}

	hash := sha256.Sum256(pubKeyDER)

	return &DevIssuer{
		issuer:     issuer,
		privateKey: privateKey,
		kid:        base58.Encode(hash[:]),
	}, nil
}

// Kid returns the key ID of the signing key.
func (d *DevIssuer) Kid() string {
	return d.kid
}

// Issuer returns the iss claim placed in minted tokens.
func (d *DevIssuer) Issuer() string {
	return d.issuer
}

// Mint signs a session token for the external user ID.
func (d *DevIssuer) Mint(externalID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    d.issuer,
			Subject:   externalID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = d.kid

	signed, err := token.SignedString(d.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}

	return signed, nil
}

// publicJWK returns the public key in JWK (JSON Web Key) format.
func (d *DevIssuer) publicJWK() jwk {
	pub := d.privateKey.PublicKey
	x := make([]byte, 32)
	y := make([]byte, 32)
	pub.X.FillBytes(x)
	pub.Y.FillBytes(y)

	return jwk{
		Kty: "EC",
		Kid: d.kid,
		Use: "sig",
		Alg: "ES256",
		Crv: "P-256",
		X:   base64.RawURLEncoding.EncodeToString(x),
		Y:   base64.RawURLEncoding.EncodeToString(y),
	}
}

// JWKSHandler serves the issuer's key set.
func (d *DevIssuer) JWKSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		if err := json.NewEncoder(w).Encode(map[string]any{"keys": []jwk{d.publicJWK()}}); err != nil {
			log.Error().Err(err).Msg("Failed to encode JWKS")
		}
	}
}

// SessionHandler mints a session cookie for ?sub=&email= and redirects to ?next=
// (default /dashboard). Only mounted in development mode.
func (d *DevIssuer) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := r.URL.Query().Get("sub")
		if sub == "" {
			http.Error(w, "sub is required", http.StatusBadRequest)
			return
		}

		token, err := d.Mint(sub, r.URL.Query().Get("email"), 12*time.Hour)
		if err != nil {
			log.Error().Err(err).Msg("Failed to mint development session")
			http.Error(w, "failed to mint session", http.StatusInternalServerError)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookieName,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Expires:  time.Now().Add(12 * time.Hour),
		})

		next := r.URL.Query().Get("next")
		if next == "" || next[0] != '/' || (len(next) > 1 && next[1] == '/') {
			next = "/dashboard"
		}

		log.Info().Str("sub", sub).Msg("Minted development session")
		http.Redirect(w, r, next, http.StatusFound)
	}
}
