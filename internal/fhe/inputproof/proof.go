// Package inputproof binds client ciphertexts to the identity and contract
// they were encrypted for, and to the plaintext the client declared for each.
// An attester that has checked the ciphertexts signs the binding; the ledger
// only accepts handles covered by that signature.
package inputproof

import (
	"crypto/ed25519"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/louisbranch/fheworlds/internal/fhe/handle"
)

// MaxInputs caps the ciphertexts carried by one proof.
const MaxInputs = 16

var (
	// ErrMalformed reports a proof that does not decode or is inconsistent.
	ErrMalformed = errors.New("input proof is malformed")
	// ErrSignature reports a proof the attester did not sign.
	ErrSignature = errors.New("input proof signature is invalid")
	// ErrBinding reports a proof issued for another chain, contract or identity.
	ErrBinding = errors.New("input proof is bound elsewhere")
	// ErrHandleMismatch reports a handle that does not derive from its ciphertext.
	ErrHandleMismatch = errors.New("input proof handle does not match ciphertext")
)

// Input is one ciphertext submitted for attestation and the value the
// submitter declares it encrypts.
type Input struct {
	Ciphertext []byte
	Type       handle.Type
	Declared   uint64
}

// Proof is the attested envelope returned to the client and forwarded to the
// ledger with the handle being submitted.
type Proof struct {
	ChainID     uint64          `json:"chain_id"`
	Contract    string          `json:"contract"`
	Identity    string          `json:"identity"`
	Handles     []handle.Handle `json:"handles"`
	Ciphertexts [][]byte        `json:"ciphertexts"`
	Declared    []uint64        `json:"declared"`
	Signature   []byte          `json:"signature"`
}

// Attest derives the handles for inputs under binding and signs them.
func Attest(key ed25519.PrivateKey, binding handle.Binding, inputs []Input) (*Proof, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, errors.New("attester key is required")
	}
	if len(inputs) == 0 || len(inputs) > MaxInputs {
		return nil, fmt.Errorf("%w: %d inputs, want 1..%d", ErrMalformed, len(inputs), MaxInputs)
	}
	p := &Proof{
		ChainID:     binding.ChainID,
		Contract:    strings.ToLower(binding.Contract),
		Identity:    strings.ToLower(binding.Identity),
		Handles:     make([]handle.Handle, len(inputs)),
		Ciphertexts: make([][]byte, len(inputs)),
		Declared:    make([]uint64, len(inputs)),
	}
	for i, in := range inputs {
		if len(in.Ciphertext) == 0 {
			return nil, fmt.Errorf("%w: input %d is empty", ErrMalformed, i)
		}
		p.Handles[i] = handle.ForInput(in.Ciphertext, uint8(i), in.Type, binding)
		p.Ciphertexts[i] = in.Ciphertext
		p.Declared[i] = in.Declared
	}
	p.Signature = ed25519.Sign(key, p.Digest())
	return p, nil
}

// Binding returns the context the proof was issued for.
func (p *Proof) Binding() handle.Binding {
	return handle.Binding{ChainID: p.ChainID, Contract: p.Contract, Identity: p.Identity}
}

// Digest is the message the attester signs.
func (p *Proof) Digest() []byte {
	hasher := sha3.New256()
	hasher.Write([]byte("fheworlds/input-proof/v2"))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], p.ChainID)
	hasher.Write(buf[:])
	for _, s := range []string{strings.ToLower(p.Contract), strings.ToLower(p.Identity)} {
		binary.BigEndian.PutUint64(buf[:], uint64(len(s)))
		hasher.Write(buf[:])
		hasher.Write([]byte(s))
	}
	binary.BigEndian.PutUint64(buf[:], uint64(len(p.Handles)))
	hasher.Write(buf[:])
	for _, h := range p.Handles {
		hasher.Write(h[:])
	}
	binary.BigEndian.PutUint64(buf[:], uint64(len(p.Declared)))
	hasher.Write(buf[:])
	for _, v := range p.Declared {
		binary.BigEndian.PutUint64(buf[:], v)
		hasher.Write(buf[:])
	}
	return hasher.Sum(nil)
}

// Verify checks the attester signature, the binding and that every handle
// re-derives from the ciphertext carried next to it.
func (p *Proof) Verify(attester ed25519.PublicKey, expected handle.Binding) error {
	if len(attester) != ed25519.PublicKeySize {
		return errors.New("attester public key is not configured")
	}
	if len(p.Handles) == 0 || len(p.Handles) > MaxInputs || len(p.Handles) != len(p.Ciphertexts) {
		return fmt.Errorf("%w: %d handles for %d ciphertexts", ErrMalformed, len(p.Handles), len(p.Ciphertexts))
	}
	if len(p.Declared) != len(p.Handles) {
		return fmt.Errorf("%w: %d handles for %d declared values", ErrMalformed, len(p.Handles), len(p.Declared))
	}
	if !ed25519.Verify(attester, p.Digest(), p.Signature) {
		return ErrSignature
	}
	if p.ChainID != expected.ChainID ||
		!strings.EqualFold(p.Contract, expected.Contract) ||
		!strings.EqualFold(p.Identity, expected.Identity) {
		return ErrBinding
	}
	for i, h := range p.Handles {
		if handle.ForInput(p.Ciphertexts[i], uint8(i), h.Type(), expected) != h {
			return fmt.Errorf("%w: index %d", ErrHandleMismatch, i)
		}
	}
	return nil
}

// Ciphertext returns the ciphertext behind h, if the proof carries it.
func (p *Proof) Ciphertext(h handle.Handle) ([]byte, bool) {
	for i, candidate := range p.Handles {
		if candidate == h && i < len(p.Ciphertexts) {
			return p.Ciphertexts[i], true
		}
	}
	return nil, false
}

// DeclaredValue returns the attested plaintext behind h, if the proof
// carries it.
func (p *Proof) DeclaredValue(h handle.Handle) (uint64, bool) {
	for i, candidate := range p.Handles {
		if candidate == h && i < len(p.Declared) {
			return p.Declared[i], true
		}
	}
	return 0, false
}

// Encode serializes the proof for transport.
func (p *Proof) Encode() ([]byte, error) {
	return json.Marshal(p)
}

// Decode parses an encoded proof.
func Decode(data []byte) (*Proof, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrMalformed)
	}
	var p Proof
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &p, nil
}
