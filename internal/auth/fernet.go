// Fernet-style symmetric encryption with key rotation, grounded in
// stolostron-go-template-utils's EncryptionConfig (AESKey + AESKeyFallback:
// the same "try the primary key, fall back to an older one" rotation spec.md
// §4.5 calls for, generalized here to an ordered list rather than a single
// fallback).
package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrInvalidToken is returned when no configured key can verify and decrypt
// a token — spec.md §7's AuthFailure trigger "token missing/invalid/expired".
var ErrInvalidToken = errors.New("auth: invalid or unverifiable token")

const ivSize = aes.BlockSize // 16 bytes

// fernetKey splits a 32-byte key into its signing half and encryption half,
// following the cryptography library's Fernet key layout: the first 16
// bytes sign (HMAC-SHA256), the last 16 bytes encrypt (AES-128-CBC).
type fernetKey struct {
	signingKey    []byte
	encryptionKey []byte
}

func newFernetKey(raw []byte) (fernetKey, error) {
	if len(raw) != 32 {
		return fernetKey{}, fmt.Errorf("auth: encryption key must be 32 bytes, got %d", len(raw))
	}
	return fernetKey{signingKey: raw[:16], encryptionKey: raw[16:]}, nil
}

// KeyRing holds the ordered list of encryption keys configured via
// spec.md §6's encryption_keys. Decrypt tries each key in order and returns
// the first that verifies — "key rotation over an ordered key list; first
// key that verifies wins" (spec.md §4.5).
type KeyRing struct {
	keys []fernetKey
}

// NewKeyRing builds a KeyRing from raw 32-byte keys, in priority order
// (newest/primary first).
func NewKeyRing(rawKeys [][]byte) (*KeyRing, error) {
	if len(rawKeys) == 0 {
		return nil, fmt.Errorf("auth: at least one encryption key is required")
	}
	keys := make([]fernetKey, 0, len(rawKeys))
	for i, raw := range rawKeys {
		k, err := newFernetKey(raw)
		if err != nil {
			return nil, fmt.Errorf("auth: encryption_keys[%d]: %w", i, err)
		}
		keys = append(keys, k)
	}
	return &KeyRing{keys: keys}, nil
}

// Encrypt produces a Fernet-style token: base64url(IV || ciphertext || HMAC),
// always under the first (primary) key — used only by tests and by any
// operator tooling that mints tokens for this control plane.
func (kr *KeyRing) Encrypt(plaintext []byte, iv []byte) (string, error) {
	return encryptWithKey(kr.keys[0], plaintext, iv)
}

// Decrypt tries every configured key, in order, and returns the plaintext
// from the first one whose HMAC verifies.
func (kr *KeyRing) Decrypt(token string) ([]byte, error) {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, "not valid base64url")
	}
	if len(raw) < ivSize+sha256.Size {
		return nil, fmt.Errorf("%w: token too short", ErrInvalidToken)
	}

	iv := raw[:ivSize]
	sig := raw[len(raw)-sha256.Size:]
	ciphertext := raw[ivSize : len(raw)-sha256.Size]

	for _, k := range kr.keys {
		mac := hmac.New(sha256.New, k.signingKey)
		mac.Write(iv)
		mac.Write(ciphertext)
		expected := mac.Sum(nil)
		if !hmac.Equal(expected, sig) {
			continue
		}

		block, err := aes.NewCipher(k.encryptionKey)
		if err != nil {
			continue
		}
		if len(ciphertext)%aes.BlockSize != 0 {
			continue
		}
		decrypted := make([]byte, len(ciphertext))
		cipher.NewCBCDecrypter(block, iv).CryptBlocks(decrypted, ciphertext)

		plaintext, err := unpadPKCS7(decrypted)
		if err != nil {
			continue
		}
		return plaintext, nil
	}

	return nil, ErrInvalidToken
}

func encryptWithKey(k fernetKey, plaintext, iv []byte) (string, error) {
	if len(iv) != ivSize {
		return "", fmt.Errorf("auth: iv must be %d bytes", ivSize)
	}
	block, err := aes.NewCipher(k.encryptionKey)
	if err != nil {
		return "", fmt.Errorf("auth: %w", err)
	}

	padded := padPKCS7(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	mac := hmac.New(sha256.New, k.signingKey)
	mac.Write(iv)
	mac.Write(ciphertext)
	sig := mac.Sum(nil)

	out := make([]byte, 0, len(iv)+len(ciphertext)+len(sig))
	out = append(out, iv...)
	out = append(out, ciphertext...)
	out = append(out, sig...)
	return base64.URLEncoding.EncodeToString(out), nil
}

func padPKCS7(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := make([]byte, padLen)
	for i := range padding {
		padding[i] = byte(padLen)
	}
	return append(data, padding...)
}

func unpadPKCS7(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("auth: invalid PKCS7 padding")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) || padLen > aes.BlockSize {
		return nil, errors.New("auth: invalid PKCS7 padding")
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, errors.New("auth: invalid PKCS7 padding")
		}
	}
	return data[:len(data)-padLen], nil
}
