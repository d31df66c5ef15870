// Package inputverifier checks encrypted country submissions before the
// ledger records them. It never decrypts.
package inputverifier

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"strconv"

	"github.com/louisbranch/fheworlds/internal/catalog"
	"github.com/louisbranch/fheworlds/internal/fhe"
	"github.com/louisbranch/fheworlds/internal/fhe/handle"
	"github.com/louisbranch/fheworlds/internal/fhe/inputproof"
	apperrors "github.com/louisbranch/fheworlds/internal/platform/errors"
)

// CountryType is the encrypted type of a country selection.
const CountryType = handle.TypeUint32

// ValidatedInput is a submission that passed every check.
type ValidatedInput struct {
	CountryID  uint32
	Handle     handle.Handle
	Ciphertext []byte
}

// Config wires a Verifier.
type Config struct {
	Catalog  *catalog.Catalog
	Attester ed25519.PublicKey
	ChainID  uint64
	Contract string
	// CheckCiphertext validates ciphertext bytes; defaults to fhe.Validate.
	CheckCiphertext func([]byte) error
}

// Verifier validates encrypted inputs against the catalog and the attester.
type Verifier struct {
	catalog  *catalog.Catalog
	attester ed25519.PublicKey
	chainID  uint64
	contract string
	check    func([]byte) error
}

// New builds a Verifier.
func New(cfg Config) (*Verifier, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if len(cfg.Attester) != ed25519.PublicKeySize {
		return nil, errors.New("attester public key is required")
	}
	if cfg.Contract == "" {
		return nil, errors.New("contract address is required")
	}
	check := cfg.CheckCiphertext
	if check == nil {
		check = fhe.Validate
	}
	return &Verifier{
		catalog:  cfg.Catalog,
		attester: cfg.Attester,
		chainID:  cfg.ChainID,
		contract: cfg.Contract,
		check:    check,
	}, nil
}

// Validate checks a submission from identity. The country id is checked
// before the proof so an unsupported selection is reported as such. The
// attester opened the ciphertext, so the proof's declared value must be
// countryID.
func (v *Verifier) Validate(ctx context.Context, identity string, countryID uint32, h handle.Handle, proof []byte) (ValidatedInput, error) {
	if err := ctx.Err(); err != nil {
		return ValidatedInput{}, err
	}
	if !v.catalog.Contains(countryID) {
		id := strconv.FormatUint(uint64(countryID), 10)
		return ValidatedInput{}, apperrors.WithMetadata(apperrors.CodeUnsupportedCountry,
			fmt.Sprintf("country %s is not supported", id), map[string]string{"CountryID": id})
	}
	if h.IsEmpty() {
		return ValidatedInput{}, proofInvalid("encrypted country handle is empty", nil)
	}
	if h.Type() != CountryType {
		return ValidatedInput{}, proofInvalid(fmt.Sprintf("handle type %s, want %s", h.Type(), CountryType), nil)
	}
	p, err := inputproof.Decode(proof)
	if err != nil {
		return ValidatedInput{}, proofInvalid("input proof does not decode", err)
	}
	binding := handle.Binding{ChainID: v.chainID, Contract: v.contract, Identity: identity}
	if err := p.Verify(v.attester, binding); err != nil {
		return ValidatedInput{}, proofInvalid("input proof does not verify", err)
	}
	ciphertext, ok := p.Ciphertext(h)
	if !ok {
		return ValidatedInput{}, proofInvalid("handle is not covered by the input proof", nil)
	}
	declared, ok := p.DeclaredValue(h)
	if !ok || declared != uint64(countryID) {
		return ValidatedInput{}, proofInvalid("input proof does not attest the declared country", nil)
	}
	if err := v.check(ciphertext); err != nil {
		return ValidatedInput{}, proofInvalid("ciphertext is malformed", err)
	}
	return ValidatedInput{CountryID: countryID, Handle: h, Ciphertext: ciphertext}, nil
}

func proofInvalid(message string, cause error) error {
	return apperrors.Wrap(apperrors.CodeProofInvalid, message, cause)
}
