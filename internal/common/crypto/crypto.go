// Package crypto derives encryption reference ids and encrypts the optional
// values stored with a sync registration.
package crypto

import (
	"context"
	"fmt"
	"time"

	"workflow-intake/internal/common/config"
	httpclient "workflow-intake/internal/common/http"
)

// TimestampLayout is the ISO-8601 UTC layout, millisecond precision, passed to
// the encryptor alongside each payload.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Encryptor encrypts a plaintext under a subject reference id. The timestamp
// is bound to the ciphertext.
type Encryptor interface {
	Encrypt(ctx context.Context, plaintext, referenceID, timestamp string) ([]byte, error)
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// New builds the Encryptor selected by cfg.Mode.
func New(cfg config.CryptoConfig) (Encryptor, error) {
	switch cfg.Mode {
	case config.CryptoModeLocal:
		return NewLocalEncryptor(cfg.MasterKey)
	case config.CryptoModeKeyManager:
		client := httpclient.NewClient(config.GetDuration(cfg.KeyManager.Timeout))
		return NewKeyManagerEncryptor(client, cfg.KeyManager.BaseURL, cfg.KeyManager.ApplicationID), nil
	default:
		return nil, fmt.Errorf("unsupported crypto mode %q", cfg.Mode)
	}
}
