package crypto

import (
	"context"
	"encoding/hex"
	"fmt"
)

// StaticProvider returns a single key decoded from ENCRYPTION_KEY.
type StaticProvider struct {
	key []byte
}

// NewStaticProvider creates a StaticProvider from a hex-encoded 32-byte key.
func NewStaticProvider(hexKey string) (*StaticProvider, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("crypto/static: invalid hex key: %w", err)
	}

	if len(key) != 32 {
		return nil, fmt.Errorf("crypto/static: key must be 32 bytes, got %d", len(key))
	}

	return &StaticProvider{key: key}, nil
}

// Key returns a copy of the static key.
func (p *StaticProvider) Key(_ context.Context) ([]byte, error) {
	out := make([]byte, len(p.key))
	copy(out, p.key)

	return out, nil
}
