package session

import (
	"encoding/base64"

	"github.com/godiscuss/godiscuss/internal/cryptox"
)

// SealedCodec encrypts the upstream session value directly into the
// relay cookie, so stateless deployments need no server-side store. The
// value is AES-GCM sealed; the client still never sees the upstream
// session in cleartext.
type SealedCodec struct {
	key []byte
}

// NewSealedCodec derives the sealing key from the cookie secret.
func NewSealedCodec(secret, salt []byte) *SealedCodec {
	return &SealedCodec{key: cryptox.DeriveKey(secret, salt)}
}

// Seal encrypts the upstream session value for transport in a cookie.
func (c *SealedCodec) Seal(value string) (string, error) {
	sealed, err := cryptox.Seal([]byte(value), c.key)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a sealed cookie value. Any tampering or key mismatch
// yields ErrInvalidToken.
func (c *SealedCodec) Open(encoded string) (string, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrInvalidToken
	}
	value, err := cryptox.Open(sealed, c.key)
	if err != nil {
		return "", ErrInvalidToken
	}
	return string(value), nil
}
