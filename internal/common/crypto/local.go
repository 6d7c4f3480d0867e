package crypto

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// KeySize is the size in bytes of the master key and of each derived key.
const KeySize = 32

// BlobVersion is the first byte of every blob produced by LocalEncryptor.
// It is part of the AAD.
const BlobVersion byte = 0x01

// BlobOverhead is version + nonce + tag.
const BlobOverhead = 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

const hkdfInfoPrefix = "regproc.optional-values.v1|"

// LocalEncryptor seals payloads with XChaCha20-Poly1305 under a key derived
// per reference id from a master key:
//
//	[Version: 1 byte] [Nonce: 24 bytes] [Ciphertext+Tag]
//
// The AAD is version || referenceId || timestamp, so a blob only opens for
// the reference id and timestamp it was sealed with.
type LocalEncryptor struct {
	masterKey []byte
}

// NewLocalEncryptor decodes a base64 (standard encoding) 32-byte master key.
func NewLocalEncryptor(masterKeyBase64 string) (*LocalEncryptor, error) {
	key, err := base64.StdEncoding.DecodeString(masterKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("decode master key: %w", err)
	}
	return NewLocalEncryptorFromKey(key)
}

func NewLocalEncryptorFromKey(key []byte) (*LocalEncryptor, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("master key is %d bytes, want %d", len(key), KeySize)
	}
	k := make([]byte, KeySize)
	copy(k, key)
	return &LocalEncryptor{masterKey: k}, nil
}

func (e *LocalEncryptor) Encrypt(_ context.Context, plaintext, referenceID, timestamp string) ([]byte, error) {
	key, err := e.deriveKey(referenceID)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}

	var nonce [chacha20poly1305.NonceSizeX]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generating random nonce: %w", err)
	}

	out := make([]byte, 1+chacha20poly1305.NonceSizeX, BlobOverhead+len(plaintext))
	out[0] = BlobVersion
	copy(out[1:], nonce[:])

	return aead.Seal(out, nonce[:], []byte(plaintext), buildAAD(BlobVersion, referenceID, timestamp)), nil
}

// Decrypt opens a blob produced by Encrypt with the same reference id and
// timestamp.
func (e *LocalEncryptor) Decrypt(blob []byte, referenceID, timestamp string) (string, error) {
	if len(blob) < BlobOverhead {
		return "", fmt.Errorf("encrypted blob is %d bytes, minimum is %d", len(blob), BlobOverhead)
	}

	version := blob[0]
	if version != BlobVersion {
		return "", fmt.Errorf("encrypted blob version %d is not supported (expected %d)", version, BlobVersion)
	}

	key, err := e.deriveKey(referenceID)
	if err != nil {
		return "", err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}

	nonce := blob[1 : 1+chacha20poly1305.NonceSizeX]
	plaintext, err := aead.Open(nil, nonce, blob[1+chacha20poly1305.NonceSizeX:], buildAAD(version, referenceID, timestamp))
	if err != nil {
		return "", fmt.Errorf("AEAD decryption failed: %w", err)
	}
	return string(plaintext), nil
}

func (e *LocalEncryptor) deriveKey(referenceID string) ([]byte, error) {
	reader := hkdf.New(sha256.New, e.masterKey, nil, []byte(hkdfInfoPrefix+referenceID))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("HKDF key derivation: %w", err)
	}
	return key, nil
}

// buildAAD is version || len(referenceId) as uint16 || referenceId || timestamp.
func buildAAD(version byte, referenceID, timestamp string) []byte {
	aad := make([]byte, 0, 3+len(referenceID)+len(timestamp))
	aad = append(aad, version, byte(len(referenceID)>>8), byte(len(referenceID)))
	aad = append(aad, referenceID...)
	return append(aad, timestamp...)
}
