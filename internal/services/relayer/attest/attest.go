// Package attest checks client ciphertexts and signs input proofs binding
// them to a contract, an identity and the value each one encrypts.
package attest

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/louisbranch/fheworlds/internal/fhe"
	"github.com/louisbranch/fheworlds/internal/fhe/handle"
	"github.com/louisbranch/fheworlds/internal/fhe/inputproof"
	"github.com/louisbranch/fheworlds/internal/identity"
	apperrors "github.com/louisbranch/fheworlds/internal/platform/errors"
)

// Input is one ciphertext submitted for attestation with the value the
// client says it encrypts.
type Input struct {
	Ciphertext []byte      `json:"ciphertext"`
	Type       handle.Type `json:"type"`
	Declared   uint64      `json:"declared"`
}

// Request asks for a proof over inputs encrypted by Identity for Contract.
type Request struct {
	Contract string  `json:"contract_address"`
	Identity string  `json:"user_address"`
	Inputs   []Input `json:"inputs"`
}

// Response carries the derived handles and the encoded proof.
type Response struct {
	Handles    []handle.Handle `json:"handles"`
	InputProof []byte          `json:"input_proof"`
}

// Decrypter opens client ciphertexts.
type Decrypter interface {
	DecryptUint(data []byte) (uint64, error)
}

// Config wires an Attester.
type Config struct {
	Key       ed25519.PrivateKey
	ChainID   uint64
	Decrypter Decrypter
	// Check validates ciphertext bytes; defaults to fhe.Validate.
	Check func([]byte) error
	Now   func() time.Time
}

// Attester signs input proofs with the relayer attestation key.
type Attester struct {
	key       ed25519.PrivateKey
	chainID   uint64
	decrypter Decrypter
	check     func([]byte) error
	now       func() time.Time
}

// New builds an Attester.
func New(cfg Config) (*Attester, error) {
	if len(cfg.Key) != ed25519.PrivateKeySize {
		return nil, errors.New("attester private key is required")
	}
	if cfg.Decrypter == nil {
		return nil, errors.New("attester decrypter is required")
	}
	check := cfg.Check
	if check == nil {
		check = fhe.Validate
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Attester{key: cfg.Key, chainID: cfg.ChainID, decrypter: cfg.Decrypter, check: check, now: now}, nil
}

// PublicKey returns the key the ledger verifies proofs with.
func (a *Attester) PublicKey() ed25519.PublicKey {
	return a.key.Public().(ed25519.PublicKey)
}

// Attest validates every ciphertext and returns the signed proof. callToken
// must be a call token issued by the identity being bound, so nobody can
// obtain a proof over ciphertexts in someone else's name. Each ciphertext
// must decrypt to its declared value.
func (a *Attester) Attest(ctx context.Context, callToken string, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	contract, err := identity.ParseAddress(req.Contract)
	if err != nil {
		return Response{}, requestInvalid("contract_address", "contract address is invalid")
	}
	who, err := identity.ParseAddress(req.Identity)
	if err != nil {
		return Response{}, requestInvalid("user_address", "user address is invalid")
	}
	caller, err := identity.VerifyCallToken(callToken, contract, a.now())
	if err != nil {
		return Response{}, err
	}
	if caller != who {
		return Response{}, apperrors.WithMetadata(apperrors.CodeUnauthenticated,
			"call token was not issued by the user address", map[string]string{"Field": "user_address"})
	}
	if len(req.Inputs) == 0 || len(req.Inputs) > inputproof.MaxInputs {
		return Response{}, requestInvalid("inputs", "between 1 and "+strconv.Itoa(inputproof.MaxInputs)+" inputs are required")
	}
	inputs := make([]inputproof.Input, len(req.Inputs))
	for i, in := range req.Inputs {
		if err := a.check(in.Ciphertext); err != nil {
			return Response{}, apperrors.Wrap(apperrors.CodeProofInvalid, fmt.Sprintf("input %d is not a valid ciphertext", i), err)
		}
		value, err := a.decrypter.DecryptUint(in.Ciphertext)
		if err != nil {
			return Response{}, apperrors.Wrap(apperrors.CodeProofInvalid, fmt.Sprintf("input %d cannot be opened", i), err)
		}
		if value != in.Declared {
			return Response{}, apperrors.New(apperrors.CodeProofInvalid, fmt.Sprintf("input %d does not encrypt its declared value", i))
		}
		inputs[i] = inputproof.Input{Ciphertext: in.Ciphertext, Type: in.Type, Declared: in.Declared}
	}

	binding := handle.Binding{ChainID: a.chainID, Contract: contract.String(), Identity: who.String()}
	proof, err := inputproof.Attest(a.key, binding, inputs)
	if err != nil {
		return Response{}, apperrors.Wrap(apperrors.CodeProofInvalid, "inputs cannot be attested", err)
	}
	encoded, err := proof.Encode()
	if err != nil {
		return Response{}, fmt.Errorf("encode input proof: %w", err)
	}
	return Response{Handles: proof.Handles, InputProof: encoded}, nil
}

func requestInvalid(field, message string) error {
	return apperrors.WithMetadata(apperrors.CodeAuthorizationRequestInvalid, message, map[string]string{"Field": field})
}
