// Package cryptox provides the symmetric encryption primitives used by the
// credential vault and the relay's sealed-cookie strategy: AES-GCM with a
// random nonce prefixed to the ciphertext, and argon2id key derivation.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/argon2"
)

const nonceSize = 12

// ErrInvalidCiphertext is returned by Open for data that was not produced by
// Seal with the same key, including truncated or tampered input.
var ErrInvalidCiphertext = errors.New("invalid ciphertext")

// DeriveKey derives a 32-byte AES key from a secret and salt using argon2id.
func DeriveKey(secret, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, 32)
}

// Seal encrypts plaintext with AES-GCM. The returned slice is the random
// 12-byte nonce followed by the ciphertext.
func Seal(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	return aesgcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts data produced by Seal. Any authentication failure is
// reported as ErrInvalidCiphertext.
func Open(data, key []byte) ([]byte, error) {
	if len(data) < nonceSize {
		return nil, ErrInvalidCiphertext
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	plaintext, err := aesgcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return nil, ErrInvalidCiphertext
	}
	return plaintext, nil
}

// RandBytes returns n cryptographically random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
