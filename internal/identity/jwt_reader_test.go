package identity

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T) (*DevIssuer, *httptest.Server, *atomic.Int32) {
	t.Helper()

	issuer, err := NewDevIssuer("https://issuer.test")
	require.NoError(t, err)

	var fetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		issuer.JWKSHandler()(w, r)
	}))
	t.Cleanup(srv.Close)

	return issuer, srv, &fetches
}

func newTestReader(t *testing.T, jwksURL, iss string) *JWTReader {
	t.Helper()
	reader, err := NewJWTReader(JWTReaderConfig{JWKSURL: jwksURL, Issuer: iss}, NewKeyCache(http.DefaultClient))
	require.NoError(t, err)
	return reader
}

func TestJWTReader_Read(t *testing.T) {
	issuer, srv, fetches := newTestIssuer(t)
	reader := newTestReader(t, srv.URL, issuer.Issuer())

	token, err := issuer.Mint("user_123", "jane@example.com", time.Hour)
	require.NoError(t, err)

	t.Run("session cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})

		session, ok := reader.Read(req)
		require.True(t, ok)
		require.Equal(t, "user_123", session.ExternalID)
		require.Equal(t, "jane@example.com", session.Email)
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/services", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		session, ok := reader.Read(req)
		require.True(t, ok)
		require.Equal(t, "user_123", session.ExternalID)
	})

	t.Run("keys are cached", func(t *testing.T) {
		require.EqualValues(t, 1, fetches.Load())
	})

	t.Run("no token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)

		_, ok := reader.Read(req)
		require.False(t, ok)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")

		_, ok := reader.Read(req)
		require.False(t, ok)
	})
}

func TestJWTReader_Verify(t *testing.T) {
	issuer, srv, _ := newTestIssuer(t)

	t.Run("expired token", func(t *testing.T) {
		reader := newTestReader(t, srv.URL, "")
		token, err := issuer.Mint("user_123", "", -time.Minute)
		require.NoError(t, err)

		_, err = reader.Verify(t.Context(), token)
		require.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		reader := newTestReader(t, srv.URL, "https://someone-else.test")
		token, err := issuer.Mint("user_123", "", time.Hour)
		require.NoError(t, err)

		_, err = reader.Verify(t.Context(), token)
		require.Error(t, err)
	})

	t.Run("signed by an unknown key", func(t *testing.T) {
		reader := newTestReader(t, srv.URL, "")
		other, err := NewDevIssuer("https://issuer.test")
		require.NoError(t, err)
		token, err := other.Mint("user_123", "", time.Hour)
		require.NoError(t, err)

		_, err = reader.Verify(t.Context(), token)
		require.Error(t, err)
	})

	t.Run("HS256 is rejected", func(t *testing.T) {
		reader := newTestReader(t, srv.URL, "")
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   "user_123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		token.Header["kid"] = issuer.Kid()
		signed, err := token.SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = reader.Verify(t.Context(), signed)
		require.Error(t, err)
	})
}

func TestJWTReader_RSAKeys(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": []jwk{{
			Kty: "RSA",
			Kid: "rsa-1",
			Alg: "RS256",
			N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	}))
	t.Cleanup(srv.Close)

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user_rsa",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	token.Header["kid"] = "rsa-1"
	signed, err := token.SignedString(key)
	require.NoError(t, err)

	reader := newTestReader(t, srv.URL, "")
	session, err := reader.Verify(t.Context(), signed)
	require.NoError(t, err)
	require.Equal(t, "user_rsa", session.ExternalID)
	require.Empty(t, session.Email)
}

func TestDevIssuer_SessionHandler(t *testing.T) {
	issuer, srv, _ := newTestIssuer(t)
	reader := newTestReader(t, srv.URL, issuer.Issuer())

	rec := httptest.NewRecorder()
	issuer.SessionHandler()(rec, httptest.NewRequest(http.MethodGet, "/dev/session?sub=user_9&email=a@b.test&next=//evil.test", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/dashboard", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookies[0])
	session, ok := reader.Read(req)
	require.True(t, ok)
	require.Equal(t, "user_9", session.ExternalID)

	rec = httptest.NewRecorder()
	issuer.SessionHandler()(rec, httptest.NewRequest(http.MethodGet, "/dev/session", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
