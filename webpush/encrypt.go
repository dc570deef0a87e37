package webpush

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// recordSize is the rs field of the aes128gcm content-coding header.
	// Everything is sent as a single record.
	recordSize = 4096

	// maxPlaintextSize leaves room for the coding header (86 bytes), the
	// record delimiter (1 byte), and the GCM tag (16 bytes) within one record.
	maxPlaintextSize = recordSize - 86 - 1 - 16
)

// Encrypt seals a payload for one subscription per RFC 8291 (aes128gcm):
// ECDH key agreement against the client's P-256 key, HKDF-SHA256 key
// derivation bound to the client's auth secret, AES-128-GCM encryption, and
// the self-contained content-coding header (salt, record size, application
// server public key) so the client can decrypt without extra headers.
//
// p256dh and auth are the base64-encoded values captured at subscribe time.
func Encrypt(plaintext []byte, p256dh, auth string) ([]byte, error) {
	return encrypt(plaintext, p256dh, auth, rand.Reader)
}

// encrypt is Encrypt with an injectable entropy source for deterministic tests.
func encrypt(plaintext []byte, p256dh, auth string, rng io.Reader) ([]byte, error) {
	if len(plaintext) > maxPlaintextSize {
		return nil, fmt.Errorf("payload is %d bytes, limit is %d", len(plaintext), maxPlaintextSize)
	}

	uaRaw, err := decodeKey(p256dh)
	if err != nil {
		return nil, fmt.Errorf("malformed p256dh key: %w", err)
	}
	authSecret, err := decodeKey(auth)
	if err != nil {
		return nil, fmt.Errorf("malformed auth secret: %w", err)
	}
	if len(authSecret) != 16 {
		return nil, fmt.Errorf("auth secret must be 16 bytes, got %d", len(authSecret))
	}

	curve := ecdh.P256()
	uaPublic, err := curve.NewPublicKey(uaRaw)
	if err != nil {
		return nil, fmt.Errorf("p256dh is not a valid P-256 point: %w", err)
	}

	asKey, err := curve.GenerateKey(rng)
	if err != nil {
		return nil, fmt.Errorf("failed to generate message key: %w", err)
	}
	asPublic := asKey.PublicKey().Bytes()

	sharedSecret, err := asKey.ECDH(uaPublic)
	if err != nil {
		return nil, fmt.Errorf("ecdh agreement failed: %w", err)
	}

	salt := make([]byte, 16)
	if _, err := io.ReadFull(rng, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	// IKM = HKDF(auth_secret, ecdh_secret, "WebPush: info" || 0x00 || ua_public || as_public)
	keyInfo := make([]byte, 0, 14+len(uaRaw)+len(asPublic))
	keyInfo = append(keyInfo, []byte("WebPush: info\x00")...)
	keyInfo = append(keyInfo, uaRaw...)
	keyInfo = append(keyInfo, asPublic...)

	ikm := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, sharedSecret, authSecret, keyInfo), ikm); err != nil {
		return nil, fmt.Errorf("hkdf ikm derivation failed: %w", err)
	}

	cek := make([]byte, 16)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, salt, []byte("Content-Encoding: aes128gcm\x00")), cek); err != nil {
		return nil, fmt.Errorf("hkdf cek derivation failed: %w", err)
	}

	nonce := make([]byte, 12)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, salt, []byte("Content-Encoding: nonce\x00")), nonce); err != nil {
		return nil, fmt.Errorf("hkdf nonce derivation failed: %w", err)
	}

	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	// Single record: plaintext followed by the 0x02 last-record delimiter.
	record := make([]byte, 0, len(plaintext)+1)
	record = append(record, plaintext...)
	record = append(record, 0x02)

	ciphertext := gcm.Seal(nil, nonce, record, nil)

	// Coding header: salt(16) | rs(4) | idlen(1) | keyid(as_public, 65).
	body := make([]byte, 0, 16+4+1+len(asPublic)+len(ciphertext))
	body = append(body, salt...)
	body = binary.BigEndian.AppendUint32(body, recordSize)
	body = append(body, byte(len(asPublic)))
	body = append(body, asPublic...)
	body = append(body, ciphertext...)

	return body, nil
}
