// Package cryptox implements the reversible path cipher used to hide object
// storage keys behind opaque, tamper-evident URL tokens.
//
// A token is hex(nonce || AES-256-GCM(ciphertext || tag)). The AES key is
// stretched from a long-lived secret with PBKDF2-SHA256 and a fixed salt, so
// every process deriving from the same secret can decrypt every token.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KDFIterations is the PBKDF2 work factor.
	KDFIterations = 100000

	// KeySize is the derived AES key size in bytes (AES-256).
	KeySize = 32

	// NonceSize is the GCM nonce size in bytes (96 bits).
	NonceSize = 12

	// kdfSalt is public and constant so derivation stays deterministic.
	// It matches the salt already used for tokens issued by earlier
	// deployments, which keeps their links decryptable.
	kdfSalt = "salt"
)

// minTokenBytes is the smallest decodable token: a nonce plus a GCM tag.
const minTokenBytes = NonceSize + 16

// PathKey is a derived cipher key ready for encrypting and decrypting paths.
// It is immutable and safe for concurrent use.
type PathKey struct {
	aead cipher.AEAD
}

// KeySource is anything a path can be encrypted with: either a raw Secret,
// which is stretched on every call, or an already derived *PathKey.
type KeySource interface {
	pathKey() (*PathKey, error)
}

// Secret is a raw shared secret. Using it directly as a KeySource derives a
// fresh key per call; derive once with DeriveKey for batches.
type Secret string

func (s Secret) pathKey() (*PathKey, error) { return DeriveKey(string(s)) }

func (k *PathKey) pathKey() (*PathKey, error) { return k, nil }

// DeriveKey stretches secret into an AES-256-GCM key. Two derivations from
// the same secret always interoperate.
func DeriveKey(secret string) (*PathKey, error) {
	raw := pbkdf2.Key([]byte(secret), []byte(kdfSalt), KDFIterations, KeySize, sha256.New)

	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("cipher init: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm init: %w", err)
	}

	return &PathKey{aead: aead}, nil
}

// Encrypt seals path under a fresh random nonce and returns the lowercase
// hex token. Encrypting the same path twice yields different tokens.
func (k *PathKey) Encrypt(path string) (string, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}

	// nonce is used as the dst prefix so the result is nonce || ciphertext
	sealed := k.aead.Seal(nonce, nonce, []byte(path), nil)

	return hex.EncodeToString(sealed), nil
}

// Decrypt recovers the path sealed in token. Malformed hex, truncated input,
// a foreign key and tampered ciphertext all yield ok == false without detail.
func (k *PathKey) Decrypt(token string) (path string, ok bool) {
	data, err := hex.DecodeString(token)
	if err != nil || len(data) < minTokenBytes {
		return "", false
	}

	plaintext, err := k.aead.Open(nil, data[:NonceSize], data[NonceSize:], nil)
	if err != nil {
		return "", false
	}

	return string(plaintext), true
}

// EncryptPath encrypts path with a secret or a derived key.
func EncryptPath(path string, src KeySource) (string, error) {
	k, err := src.pathKey()
	if err != nil {
		return "", err
	}
	return k.Encrypt(path)
}

// DecryptPath decrypts token with a secret or a derived key. Any failure,
// including key derivation, is reported as ok == false.
func DecryptPath(token string, src KeySource) (string, bool) {
	k, err := src.pathKey()
	if err != nil {
		return "", false
	}
	return k.Decrypt(token)
}
