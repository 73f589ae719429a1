package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultTolerance bounds how far a webhook timestamp may be from now.
const DefaultTolerance = 5 * time.Minute

const secretPrefix = "whsec_"

var (
	ErrMissingHeaders   = errors.New("missing webhook signature headers")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrStaleTimestamp   = errors.New("webhook timestamp outside tolerance")
	ErrNoSecret         = errors.New("webhook secret not configured")
)

// Verifier checks Svix style webhook signatures.
type Verifier struct {
	key       []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier creates a verifier from a whsec_<base64> secret.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, secretPrefix))
	if err != nil {
		return nil, fmt.Errorf("invalid webhook secret: %w", err)
	}

	return &Verifier{key: key, tolerance: DefaultTolerance, now: time.Now}, nil
}

// Verify checks the signature headers against body.
func (v *Verifier) Verify(header http.Header, body []byte) error {
	id := firstHeader(header, "svix-id", "webhook-id")
	timestamp := firstHeader(header, "svix-timestamp", "webhook-timestamp")
	signatures := firstHeader(header, "svix-signature", "webhook-signature")
	if id == "" || timestamp == "" || signatures == "" {
		return ErrMissingHeaders
	}

	secs, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
	}
	sent := time.Unix(secs, 0)
	if skew := v.now().Sub(sent); skew > v.tolerance || skew < -v.tolerance {
		return ErrStaleTimestamp
	}

	expected := v.sign(id, timestamp, body)

	for candidate := range strings.FieldsSeq(signatures) {
		version, sig, ok := strings.Cut(candidate, ",")
		if !ok || version != "v1" {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			return nil
		}
	}

	return ErrInvalidSignature
}

// Sign returns a v1 signature header value for the message.
func (v *Verifier) Sign(id string, timestamp time.Time, body []byte) string {
	sig := v.sign(id, strconv.FormatInt(timestamp.Unix(), 10), body)
	return "v1," + base64.StdEncoding.EncodeToString(sig)
}

func (v *Verifier) sign(id, timestamp string, body []byte) []byte {
	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(id))
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return mac.Sum(nil)
}

func firstHeader(header http.Header, names ...string) string {
	for _, name := range names {
		if v := header.Get(name); v != "" {
			return v
		}
	}
	return ""
}
