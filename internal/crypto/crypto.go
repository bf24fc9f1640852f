package crypto

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// Service seals and opens payloads with AES-256-GCM. Every payload is bound
// to a scope (the owning record's ID) through the GCM additional data, so a
// ciphertext copied onto another row fails to open.
type Service struct {
	keys KeyProvider
}

// NewService creates an encryption service backed by the given key provider.
func NewService(keys KeyProvider) *Service {
	return &Service{keys: keys}
}

// Encrypt seals plaintext for scope and returns base64-encoded nonce+ciphertext.
func (s *Service) Encrypt(ctx context.Context, scope string, plaintext []byte) (string, error) {
	gcm, err := s.aead(ctx)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("crypto: generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, plaintext, []byte(scope))

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a base64-encoded ciphertext (nonce prepended) sealed for scope.
func (s *Service) Decrypt(ctx context.Context, scope, ciphertext string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("crypto: base64 decode: %w", err)
	}

	gcm, err := s.aead(ctx)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("crypto: ciphertext too short")
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, sealed, []byte(scope))
	if err != nil {
		return nil, fmt.Errorf("crypto: decrypt failed: %w", err)
	}

	return plaintext, nil
}

func (s *Service) aead(ctx context.Context) (cipher.AEAD, error) {
	key, err := s.keys.Key(ctx)
	if err != nil {
		return nil, fmt.Errorf("crypto: get key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: new cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: new gcm: %w", err)
	}

	return gcm, nil
}
