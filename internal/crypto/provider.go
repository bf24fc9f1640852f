// Package crypto provides AES-256-GCM sealing for stored signature payloads.
package crypto

import "context"

// KeyProvider returns the AES-256 key used to seal payloads.
type KeyProvider interface {
	// Key returns the 32-byte AES-256 key.
	Key(ctx context.Context) ([]byte, error)
}
