// Package webpush implements the server half of the Web Push protocol:
// VAPID request signing (RFC 8292), payload encryption (RFC 8291), and an
// HTTP dispatcher that delivers encrypted notifications to push-service
// endpoints and classifies the results.
package webpush

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/mateteriya/chime"
)

const (
	// defaultTokenTTL keeps signed tokens short-lived so a leaked token has
	// little replay value.
	defaultTokenTTL = 12 * time.Hour

	// maxTokenTTL is the protocol ceiling for the exp claim.
	maxTokenTTL = 24 * time.Hour
)

// Signer produces VAPID authorization header values: a short-lived ES256 JWT
// scoped to a specific push-service origin, plus the application public key
// the push service uses to verify it.
//
// Key material is validated once at construction. A malformed key pair is a
// fatal configuration error reported at startup, never per-request.
//
// Thread safety: Safe for concurrent use.
type Signer struct {
	priv    *ecdsa.PrivateKey
	public  string // base64url uncompressed P-256 point, sent as k=
	subject string
	ttl     time.Duration
	now     func() time.Time
}

// SignerOption configures a Signer.
type SignerOption func(*Signer) error

// WithTokenTTL overrides the lifetime of signed tokens. Must be positive and
// at most 24 hours.
func WithTokenTTL(ttl time.Duration) SignerOption {
	return func(s *Signer) error {
		if ttl <= 0 || ttl > maxTokenTTL {
			return fmt.Errorf("token ttl must be in (0, 24h], got %v", ttl)
		}
		s.ttl = ttl
		return nil
	}
}

// WithSignerClock injects the time source used for the exp claim.
// Intended for tests.
func WithSignerClock(now func() time.Time) SignerOption {
	return func(s *Signer) error {
		if now == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		s.now = now
		return nil
	}
}

// NewSigner creates a Signer from base64url-encoded VAPID key material.
//
// privateKey is the 32-byte P-256 scalar; publicKey is the 65-byte
// uncompressed public point (the same value clients pass to
// PushManager.subscribe). subject is the contact claim, a mailto: or https:
// URI identifying the application operator.
//
// Returns a SIGNING_KEY_ERROR if the key material is missing, malformed, or
// inconsistent.
func NewSigner(privateKey, publicKey, subject string, opts ...SignerOption) (*Signer, error) {
	s := &Signer{
		subject: subject,
		ttl:     defaultTokenTTL,
		now:     time.Now,
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, chime.NewErrorWithCause(chime.ErrCodeConfiguration, "failed to apply signer option", err)
		}
	}

	if subject == "" || (!strings.HasPrefix(subject, "mailto:") && !strings.HasPrefix(subject, "https://")) {
		return nil, chime.NewError(chime.ErrCodeSigningKey, "subject must be a mailto: or https: URI")
	}

	d, err := decodeKey(privateKey)
	if err != nil {
		return nil, chime.NewErrorWithCause(chime.ErrCodeSigningKey, "malformed private key", err)
	}
	if len(d) != 32 {
		return nil, chime.NewError(chime.ErrCodeSigningKey,
			fmt.Sprintf("private key must be 32 bytes, got %d", len(d)))
	}

	curve := elliptic.P256()
	priv := &ecdsa.PrivateKey{}
	priv.Curve = curve
	priv.D = new(big.Int).SetBytes(d)
	priv.X, priv.Y = curve.ScalarBaseMult(d)
	if priv.D.Sign() == 0 || priv.D.Cmp(curve.Params().N) >= 0 {
		return nil, chime.NewError(chime.ErrCodeSigningKey, "private key is not a valid P-256 scalar")
	}
	s.priv = priv

	derived := elliptic.Marshal(curve, priv.X, priv.Y)
	s.public = base64.RawURLEncoding.EncodeToString(derived)

	if publicKey != "" {
		supplied, err := decodeKey(publicKey)
		if err != nil {
			return nil, chime.NewErrorWithCause(chime.ErrCodeSigningKey, "malformed public key", err)
		}
		if !bytes.Equal(supplied, derived) {
			return nil, chime.NewError(chime.ErrCodeSigningKey, "public key does not match private key")
		}
	}

	return s, nil
}

// PublicKey returns the base64url application public key (the k= parameter,
// also served to clients for PushManager.subscribe).
func (s *Signer) PublicKey() string {
	return s.public
}

// Sign produces an ES256 JWT whose aud claim is the given push-service
// origin (scheme+host, never the full endpoint URL).
func (s *Signer) Sign(audience string) (string, error) {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"typ":"JWT","alg":"ES256"}`))

	claims, err := json.Marshal(map[string]interface{}{
		"aud": audience,
		"exp": s.now().Add(s.ttl).Unix(),
		"sub": s.subject,
	})
	if err != nil {
		return "", chime.NewErrorWithCause(chime.ErrCodeDelivery, "failed to encode vapid claims", err)
	}

	signingInput := header + "." + base64.RawURLEncoding.EncodeToString(claims)

	digest := sha256.Sum256([]byte(signingInput))
	r, ss, err := ecdsa.Sign(rand.Reader, s.priv, digest[:])
	if err != nil {
		return "", chime.NewErrorWithCause(chime.ErrCodeDelivery, "failed to sign vapid token", err)
	}

	// JOSE wants the raw 64-byte r||s form, each half left-padded to 32 bytes.
	sig := make([]byte, 64)
	r.FillBytes(sig[:32])
	ss.FillBytes(sig[32:])

	return signingInput + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

// AuthorizationHeader returns the full Authorization header value for a
// request to the given push-service origin:
//
//	vapid t=<jwt>, k=<application public key>
func (s *Signer) AuthorizationHeader(audience string) (string, error) {
	token, err := s.Sign(audience)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("vapid t=%s, k=%s", token, s.public), nil
}

// GenerateKeys creates a fresh VAPID key pair, both halves base64url encoded.
// Intended for operator bootstrap; the pair is long-lived and rotating it
// invalidates existing client subscriptions.
func GenerateKeys() (privateKey, publicKey string, err error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", err
	}

	d := make([]byte, 32)
	priv.D.FillBytes(d)

	privateKey = base64.RawURLEncoding.EncodeToString(d)
	publicKey = base64.RawURLEncoding.EncodeToString(elliptic.Marshal(elliptic.P256(), priv.X, priv.Y))
	return privateKey, publicKey, nil
}

// decodeKey accepts any of the base64 dialects browsers and tooling emit for
// push key material.
func decodeKey(value string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.StdEncoding,
	} {
		if b, err := enc.DecodeString(value); err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("value is not valid base64")
}
