package userdecrypt

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// KeySize is the length of X25519 private and public keys.
const KeySize = curve25519.ScalarSize

const sealInfo = "fheworlds/user-decrypt/v1"

// ErrOpen reports a sealed value that fails authentication.
var ErrOpen = errors.New("sealed value cannot be opened")

// Keypair is the ephemeral key the user decrypts responses with. The private
// half never leaves the client.
type Keypair struct {
	Private []byte
	Public  []byte
}

// GenerateKeypair creates an X25519 keypair.
func GenerateKeypair() (Keypair, error) {
	priv := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, priv); err != nil {
		return Keypair{}, fmt.Errorf("generate keypair: %w", err)
	}
	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return Keypair{}, fmt.Errorf("derive public key: %w", err)
	}
	return Keypair{Private: priv, Public: pub}, nil
}

// Seal encrypts plaintext to recipient. The output is
// ephemeralPublic || nonce || ciphertext, authenticated together with aad.
func Seal(recipient, plaintext, aad []byte) ([]byte, error) {
	if len(recipient) != KeySize {
		return nil, fmt.Errorf("recipient key must be %d bytes", KeySize)
	}
	eph := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, eph); err != nil {
		return nil, fmt.Errorf("generate ephemeral key: %w", err)
	}
	ephPub, err := curve25519.X25519(eph, curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	aead, err := sealAEAD(eph, recipient, ephPub, recipient)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	out := make([]byte, 0, len(ephPub)+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, ephPub...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, aad), nil
}

// Open decrypts a value produced by Seal for the keypair.
func (k Keypair) Open(sealed, aad []byte) ([]byte, error) {
	if len(k.Private) != KeySize {
		return nil, fmt.Errorf("private key must be %d bytes", KeySize)
	}
	if len(sealed) < KeySize+chacha20poly1305.NonceSize+chacha20poly1305.Overhead {
		return nil, ErrOpen
	}
	public := k.Public
	if len(public) != KeySize {
		derived, err := curve25519.X25519(k.Private, curve25519.Basepoint)
		if err != nil {
			return nil, ErrOpen
		}
		public = derived
	}
	ephPub := sealed[:KeySize]
	nonce := sealed[KeySize : KeySize+chacha20poly1305.NonceSize]
	aead, err := sealAEAD(k.Private, ephPub, ephPub, public)
	if err != nil {
		return nil, ErrOpen
	}
	plaintext, err := aead.Open(nil, nonce, sealed[KeySize+chacha20poly1305.NonceSize:], aad)
	if err != nil {
		return nil, ErrOpen
	}
	return plaintext, nil
}

func sealAEAD(private, peer, ephPub, recipient []byte) (cipher.AEAD, error) {
	shared, err := curve25519.X25519(private, peer)
	if err != nil {
		return nil, fmt.Errorf("key agreement: %w", err)
	}
	salt := make([]byte, 0, 2*KeySize)
	salt = append(salt, ephPub...)
	salt = append(salt, recipient...)
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, salt, []byte(sealInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return chacha20poly1305.New(key)
}
