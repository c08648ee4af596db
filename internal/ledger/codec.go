package ledger

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// Codec renders transcripts opaque at rest. Persistent stores run every
// transcript through a Codec before writing and after reading; in-memory
// stores do not.
type Codec interface {
	Encode(plaintext string) (string, error)
	Decode(stored string) (string, error)
}

// PlainCodec is reversible base64 obfuscation. It keeps transcripts out of
// casual view (log files, ad-hoc queries) but is NOT confidentiality
// preserving — use [AESCodec] when transcripts must stay private.
type PlainCodec struct{}

// Encode implements [Codec.Encode].
func (PlainCodec) Encode(plaintext string) (string, error) {
	return base64.StdEncoding.EncodeToString([]byte(plaintext)), nil
}

// Decode implements [Codec.Decode].
func (PlainCodec) Decode(stored string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return "", fmt.Errorf("ledger: decode transcript: %w", err)
	}
	return string(b), nil
}

// AESCodec encrypts transcripts with AES-256-GCM. The key is derived from
// the configured secret with SHA-256, and every Encode uses a fresh random
// nonce, so equal transcripts produce different ciphertexts.
type AESCodec struct {
	aead cipher.AEAD
}

// NewAESCodec derives an AES-256 key from secret and returns a ready codec.
// secret must be non-empty.
func NewAESCodec(secret string) (*AESCodec, error) {
	if secret == "" {
		return nil, errors.New("ledger: transcript key must not be empty")
	}
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("ledger: init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("ledger: init gcm: %w", err)
	}
	return &AESCodec{aead: aead}, nil
}

// Encode implements [Codec.Encode].
func (c *AESCodec) Encode(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("ledger: generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decode implements [Codec.Decode].
func (c *AESCodec) Decode(stored string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return "", fmt.Errorf("ledger: decode transcript: %w", err)
	}
	ns := c.aead.NonceSize()
	if len(raw) < ns {
		return "", errors.New("ledger: transcript ciphertext too short")
	}
	plain, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("ledger: decrypt transcript: %w", err)
	}
	return string(plain), nil
}
