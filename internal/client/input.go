package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/louisbranch/fheworlds/internal/fhe"
	"github.com/louisbranch/fheworlds/internal/fhe/handle"
	"github.com/louisbranch/fheworlds/internal/identity"
	"github.com/louisbranch/fheworlds/internal/services/relayer/attest"
)

// Encrypter encrypts an unsigned integer under the network public key.
type Encrypter interface {
	EncryptUint(value uint64) ([]byte, error)
}

// Attester turns ciphertexts into an attested input proof.
type Attester interface {
	InputProof(ctx context.Context, callToken string, req attest.Request) (attest.Response, error)
}

// EncryptedInput is what a contract call carries: one handle per value and
// the proof covering them.
type EncryptedInput struct {
	Handles    []handle.Handle
	InputProof []byte
}

// InputBuilder collects values encrypted for one contract and identity.
type InputBuilder struct {
	encrypter Encrypter
	attester  Attester
	contract  identity.Address
	key       *identity.Key
	now       func() time.Time
	inputs    []attest.Input
	err       error
}

// NewInputBuilder starts an input bound to the holder of key calling
// contract. The relayer only attests for the identity that signs the request.
func NewInputBuilder(encrypter Encrypter, attester Attester, contract identity.Address, key *identity.Key) *InputBuilder {
	return &InputBuilder{encrypter: encrypter, attester: attester, contract: contract, key: key, now: time.Now}
}

// NewEncrypter builds an Encrypter from a public key published by the relayer.
func NewEncrypter(publicKey []byte) (*fhe.Encryptor, error) {
	keys, err := fhe.EncryptionKeySet(publicKey)
	if err != nil {
		return nil, err
	}
	return fhe.NewEncryptor(keys)
}

// AddUint32 encrypts v and appends it to the input.
func (b *InputBuilder) AddUint32(v uint32) *InputBuilder {
	if b.err != nil {
		return b
	}
	ct, err := b.encrypter.EncryptUint(uint64(v))
	if err != nil {
		b.err = fmt.Errorf("encrypt input %d: %w", len(b.inputs), err)
		return b
	}
	b.inputs = append(b.inputs, attest.Input{Ciphertext: ct, Type: handle.TypeUint32, Declared: uint64(v)})
	return b
}

// Encrypt submits the ciphertexts for attestation.
func (b *InputBuilder) Encrypt(ctx context.Context) (EncryptedInput, error) {
	if b.err != nil {
		return EncryptedInput{}, b.err
	}
	if len(b.inputs) == 0 {
		return EncryptedInput{}, errors.New("input has no values")
	}
	if b.key == nil {
		return EncryptedInput{}, errors.New("input has no signing identity")
	}
	token, err := identity.IssueCallToken(b.key, b.contract, b.now())
	if err != nil {
		return EncryptedInput{}, fmt.Errorf("sign input proof request: %w", err)
	}
	resp, err := b.attester.InputProof(ctx, token, attest.Request{
		Contract: b.contract.String(),
		Identity: b.key.Address().String(),
		Inputs:   b.inputs,
	})
	if err != nil {
		return EncryptedInput{}, err
	}
	if len(resp.Handles) != len(b.inputs) {
		return EncryptedInput{}, fmt.Errorf("relayer returned %d handles for %d inputs", len(resp.Handles), len(b.inputs))
	}
	return EncryptedInput{Handles: resp.Handles, InputProof: resp.InputProof}, nil
}
