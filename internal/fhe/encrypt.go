package fhe

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tuneinsight/lattigo/v4/bfv"
	"github.com/tuneinsight/lattigo/v4/rlwe"
)

// Encryptor encrypts unsigned integers into slot 0 under the public key.
// It is safe for concurrent use.
type Encryptor struct {
	mu      sync.Mutex
	params  bfv.Parameters
	encoder bfv.Encoder
	enc     rlwe.Encryptor
}

// NewEncryptor returns an encryptor bound to keys.Public.
func NewEncryptor(keys *KeySet) (*Encryptor, error) {
	if keys == nil || keys.Public == nil {
		return nil, errors.New("fhe: public key is required")
	}
	return &Encryptor{
		params:  keys.Params,
		encoder: bfv.NewEncoder(keys.Params),
		enc:     bfv.NewEncryptor(keys.Params, keys.Public),
	}, nil
}

// EncryptUint encrypts value and returns the encoded ciphertext.
func (e *Encryptor) EncryptUint(value uint64) ([]byte, error) {
	if value >= e.params.T() {
		return nil, fmt.Errorf("fhe: value %d exceeds plaintext modulus %d", value, e.params.T())
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	pt := e.encoder.EncodeNew([]uint64{value}, e.params.MaxLevel())
	return marshalCiphertext(e.enc.EncryptNew(pt))
}

// Decryptor decrypts slot 0 of ciphertexts with the secret key. It is safe
// for concurrent use.
type Decryptor struct {
	mu      sync.Mutex
	encoder bfv.Encoder
	dec     rlwe.Decryptor
}

// NewDecryptor returns a decryptor; keys must carry the secret key.
func NewDecryptor(keys *KeySet) (*Decryptor, error) {
	if !keys.HasSecret() {
		return nil, ErrNoSecretKey
	}
	return &Decryptor{
		encoder: bfv.NewEncoder(keys.Params),
		dec:     bfv.NewDecryptor(keys.Params, keys.Secret),
	}, nil
}

// DecryptUint decrypts data and returns the value in slot 0.
func (d *Decryptor) DecryptUint(data []byte) (uint64, error) {
	ct, err := unmarshalCiphertext(data)
	if err != nil {
		return 0, err
	}
	if ct.Degree() != 1 {
		return 0, fmt.Errorf("%w: degree %d", ErrMalformedCiphertext, ct.Degree())
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	values := d.encoder.DecodeUintNew(d.dec.DecryptNew(ct))
	if len(values) == 0 {
		return 0, fmt.Errorf("fhe: decoded plaintext has no slots")
	}
	return values[0], nil
}
