package fhe

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tuneinsight/lattigo/v4/bfv"
	"github.com/tuneinsight/lattigo/v4/rlwe"
)

// Key file names inside a key directory.
const (
	PublicKeyFile = "public.key"
	RelinKeyFile  = "relin.key"
	SecretKeyFile = "secret.key"
)

// ErrNoSecretKey is returned when decryption is attempted with public material only.
var ErrNoSecretKey = errors.New("fhe: secret key not loaded")

// KeySet is the network key material. The ledger holds the public and
// relinearization keys; only the relayer KMS loads the secret key.
type KeySet struct {
	Params bfv.Parameters
	Public *rlwe.PublicKey
	Relin  *rlwe.RelinearizationKey
	Secret *rlwe.SecretKey
}

// GenerateKeySet creates a fresh key set including the secret key.
func GenerateKeySet() (*KeySet, error) {
	p, err := Parameters()
	if err != nil {
		return nil, err
	}
	kgen := bfv.NewKeyGenerator(p)
	sk, pk := kgen.GenKeyPair()
	rlk := kgen.GenRelinearizationKey(sk, 1)
	return &KeySet{Params: p, Public: pk, Relin: rlk, Secret: sk}, nil
}

// PublicOnly returns a copy of the key set without the secret key.
func (k *KeySet) PublicOnly() *KeySet {
	return &KeySet{Params: k.Params, Public: k.Public, Relin: k.Relin}
}

// HasSecret reports whether the secret key is loaded.
func (k *KeySet) HasSecret() bool {
	return k != nil && k.Secret != nil
}

// Save writes the key set into dir. The secret key file is only readable by
// its owner.
func (k *KeySet) Save(dir string) error {
	if k == nil || k.Public == nil || k.Relin == nil {
		return errors.New("fhe: public key material is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create key dir: %w", err)
	}
	if err := writeKey(filepath.Join(dir, PublicKeyFile), k.Public, 0o644); err != nil {
		return err
	}
	if err := writeKey(filepath.Join(dir, RelinKeyFile), k.Relin, 0o644); err != nil {
		return err
	}
	if k.Secret != nil {
		if err := writeKey(filepath.Join(dir, SecretKeyFile), k.Secret, 0o600); err != nil {
			return err
		}
	}
	return nil
}

// LoadKeySet reads a key set from dir. The secret key is read only when
// withSecret is set; a missing secret file is then an error.
func LoadKeySet(dir string, withSecret bool) (*KeySet, error) {
	p, err := Parameters()
	if err != nil {
		return nil, err
	}
	keys := &KeySet{
		Params: p,
		Public: rlwe.NewPublicKey(p.Parameters),
		Relin:  rlwe.NewRelinearizationKey(p.Parameters, 1),
	}
	if err := readKey(filepath.Join(dir, PublicKeyFile), keys.Public); err != nil {
		return nil, err
	}
	if err := readKey(filepath.Join(dir, RelinKeyFile), keys.Relin); err != nil {
		return nil, err
	}
	if withSecret {
		keys.Secret = rlwe.NewSecretKey(p.Parameters)
		if err := readKey(filepath.Join(dir, SecretKeyFile), keys.Secret); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

type binaryKey interface {
	MarshalBinary() ([]byte, error)
	UnmarshalBinary([]byte) error
}

func writeKey(path string, key binaryKey, perm os.FileMode) error {
	data, err := key.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readKey(path string, key binaryKey) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := key.UnmarshalBinary(data); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// MarshalPublicKey returns the encoded public key clients encrypt under.
func (k *KeySet) MarshalPublicKey() ([]byte, error) {
	if k == nil || k.Public == nil {
		return nil, errors.New("fhe: public key is required")
	}
	return k.Public.MarshalBinary()
}

// EncryptionKeySet decodes a public key published by MarshalPublicKey. The
// result can encrypt but cannot evaluate or decrypt.
func EncryptionKeySet(publicKey []byte) (*KeySet, error) {
	p, err := Parameters()
	if err != nil {
		return nil, err
	}
	pk := rlwe.NewPublicKey(p.Parameters)
	if err := pk.UnmarshalBinary(publicKey); err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	return &KeySet{Params: p, Public: pk}, nil
}
