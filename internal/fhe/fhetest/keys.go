// Package fhetest shares one generated FHE key set per test binary; key
// generation at production parameters is too slow to repeat per test.
package fhetest

import (
	"sync"
	"testing"

	"github.com/louisbranch/fheworlds/internal/fhe"
)

var (
	once    sync.Once
	shared  *fhe.KeySet
	initErr error
)

// Keys returns the shared key set, secret key included.
func Keys(t testing.TB) *fhe.KeySet {
	t.Helper()
	once.Do(func() {
		shared, initErr = fhe.GenerateKeySet()
	})
	if initErr != nil {
		t.Fatalf("generate fhe keys: %v", initErr)
	}
	return shared
}

// Encrypt encrypts value under the shared public key.
func Encrypt(t testing.TB, value uint64) []byte {
	t.Helper()
	enc, err := fhe.NewEncryptor(Keys(t))
	if err != nil {
		t.Fatalf("new encryptor: %v", err)
	}
	data, err := enc.EncryptUint(value)
	if err != nil {
		t.Fatalf("encrypt %d: %v", value, err)
	}
	return data
}

// Decrypt decrypts data with the shared secret key.
func Decrypt(t testing.TB, data []byte) uint64 {
	t.Helper()
	dec, err := fhe.NewDecryptor(Keys(t))
	if err != nil {
		t.Fatalf("new decryptor: %v", err)
	}
	value, err := dec.DecryptUint(data)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	return value
}
