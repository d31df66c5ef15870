// Package identity models FHE Worlds participants: an Ed25519 key whose public
// half, written as 0x-prefixed hex, is the participant address.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Address identifies a participant or contract.
type Address string

// ErrInvalidAddress reports an address that is not 32 bytes of hex.
var ErrInvalidAddress = errors.New("invalid address")

// AddressFromPublicKey derives the address of pub.
func AddressFromPublicKey(pub ed25519.PublicKey) Address {
	return Address("0x" + hex.EncodeToString(pub))
}

// ParseAddress normalizes s to lowercase 0x-prefixed hex and checks its length.
func ParseAddress(s string) (Address, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return "", fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidAddress, ed25519.PublicKeySize, len(raw))
	}
	return Address("0x" + s), nil
}

// PublicKey returns the Ed25519 key the address encodes.
func (a Address) PublicKey() (ed25519.PublicKey, error) {
	parsed, err := ParseAddress(string(a))
	if err != nil {
		return nil, err
	}
	raw, _ := hex.DecodeString(strings.TrimPrefix(string(parsed), "0x"))
	return ed25519.PublicKey(raw), nil
}

func (a Address) String() string {
	return string(a)
}

// Key is a participant signing key.
type Key struct {
	private ed25519.PrivateKey
}

// GenerateKey creates a key from reader, or crypto/rand when reader is nil.
func GenerateKey(reader io.Reader) (*Key, error) {
	if reader == nil {
		reader = rand.Reader
	}
	_, private, err := ed25519.GenerateKey(reader)
	if err != nil {
		return nil, fmt.Errorf("generate identity key: %w", err)
	}
	return &Key{private: private}, nil
}

// ParseKey decodes a base64 Ed25519 private key (64 bytes) or seed (32 bytes).
func ParseKey(encoded string) (*Key, error) {
	raw, err := DecodeBase64(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode identity key: %w", err)
	}
	switch len(raw) {
	case ed25519.PrivateKeySize:
		return &Key{private: ed25519.PrivateKey(raw)}, nil
	case ed25519.SeedSize:
		return &Key{private: ed25519.NewKeyFromSeed(raw)}, nil
	default:
		return nil, fmt.Errorf("identity key must be %d or %d bytes", ed25519.SeedSize, ed25519.PrivateKeySize)
	}
}

// Address returns the address of the key.
func (k *Key) Address() Address {
	return AddressFromPublicKey(k.private.Public().(ed25519.PublicKey))
}

// PrivateKey exposes the signing key for JWS signing.
func (k *Key) PrivateKey() ed25519.PrivateKey {
	return k.private
}

// Encode returns the base64 private key, the form ParseKey accepts.
func (k *Key) Encode() string {
	return base64.RawStdEncoding.EncodeToString(k.private)
}

// Sign signs msg.
func (k *Key) Sign(msg []byte) []byte {
	return ed25519.Sign(k.private, msg)
}

// DecodeBase64 accepts both padded and unpadded standard base64.
func DecodeBase64(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("empty base64 value")
	}
	decoded, err := base64.RawStdEncoding.DecodeString(value)
	if err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(value)
}

// ParsePublicKey decodes a base64 Ed25519 public key.
func ParsePublicKey(encoded string) (ed25519.PublicKey, error) {
	raw, err := DecodeBase64(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key must be %d bytes", ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(raw), nil
}
