// Package kms answers user decryption requests. It is the only component that
// holds the network secret key.
package kms

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/fheworlds/internal/fhe/handle"
	apperrors "github.com/louisbranch/fheworlds/internal/platform/errors"
	"github.com/louisbranch/fheworlds/internal/userdecrypt"
)

// CiphertextSource reads ciphertexts and access lists from the ledger.
type CiphertextSource interface {
	GetCiphertext(ctx context.Context, h handle.Handle) ([]byte, error)
	IsAllowed(ctx context.Context, h handle.Handle, account string) (bool, error)
}

// Decrypter turns a ciphertext into its plaintext integer.
type Decrypter interface {
	DecryptUint(ciphertext []byte) (uint64, error)
}

// Config wires a KMS.
type Config struct {
	Source    CiphertextSource
	Decrypter Decrypter
	ChainID   uint64
	// MaxDurationDays caps grant windows; zero means userdecrypt.MaxDurationDays.
	MaxDurationDays int
	Now             func() time.Time
}

// KMS verifies decryption grants and seals plaintexts to the grant key.
type KMS struct {
	source    CiphertextSource
	decrypter Decrypter
	domain    userdecrypt.Domain
	maxDays   int
	now       func() time.Time
}

// New builds a KMS.
func New(cfg Config) (*KMS, error) {
	if cfg.Source == nil {
		return nil, errors.New("ciphertext source is required")
	}
	if cfg.Decrypter == nil {
		return nil, errors.New("decrypter is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	maxDays := cfg.MaxDurationDays
	if maxDays <= 0 {
		maxDays = userdecrypt.MaxDurationDays
	}
	return &KMS{
		source:    cfg.Source,
		decrypter: cfg.Decrypter,
		domain:    userdecrypt.NewDomain(cfg.ChainID),
		maxDays:   maxDays,
		now:       now,
	}, nil
}

// Domain returns the decryption domain grants must be signed for.
func (k *KMS) Domain() userdecrypt.Domain {
	return k.domain
}

// UserDecrypt checks, in order, the grant signature, its validity window and
// every handle's access list, then returns one sealed plaintext per handle.
// Nothing is decrypted unless every check passes.
func (k *KMS) UserDecrypt(ctx context.Context, req userdecrypt.Request) (userdecrypt.Response, error) {
	if err := req.Validate(k.maxDays); err != nil {
		return userdecrypt.Response{}, err
	}
	if req.ChainID != k.domain.ChainID {
		return userdecrypt.Response{}, apperrors.WithMetadata(apperrors.CodeAuthorizationRequestInvalid,
			fmt.Sprintf("chain %d is not served here", req.ChainID), map[string]string{"Field": "chain_id"})
	}
	user, err := req.User()
	if err != nil {
		return userdecrypt.Response{}, err
	}
	claimed, err := req.Grant()
	if err != nil {
		return userdecrypt.Response{}, err
	}

	signed, err := userdecrypt.VerifyGrant(req.Signature, user, k.domain)
	if err != nil {
		return userdecrypt.Response{}, err
	}
	if !signed.Matches(claimed) {
		return userdecrypt.Response{}, apperrors.New(apperrors.CodeAuthorizationSignatureInvalid, "signature does not cover the request")
	}
	if !signed.ActiveAt(k.now()) {
		return userdecrypt.Response{}, apperrors.New(apperrors.CodeAuthorizationExpired, "grant is outside its validity window")
	}

	for _, pair := range req.HandleContractPairs {
		if err := k.checkAccess(ctx, signed, user.String(), pair); err != nil {
			return userdecrypt.Response{}, err
		}
	}

	values := make([]userdecrypt.SealedValue, 0, len(req.HandleContractPairs))
	for _, pair := range req.HandleContractPairs {
		ciphertext, err := k.source.GetCiphertext(ctx, pair.Handle)
		if err != nil {
			return userdecrypt.Response{}, fmt.Errorf("fetch ciphertext %s: %w", pair.Handle, err)
		}
		plaintext, err := k.decrypter.DecryptUint(ciphertext)
		if err != nil {
			return userdecrypt.Response{}, fmt.Errorf("decrypt %s: %w", pair.Handle, err)
		}
		sealed, err := userdecrypt.Seal(signed.PublicKey, []byte(strconv.FormatUint(plaintext, 10)), pair.Handle.Bytes())
		if err != nil {
			return userdecrypt.Response{}, fmt.Errorf("seal %s: %w", pair.Handle, err)
		}
		values = append(values, userdecrypt.SealedValue{Handle: pair.Handle, Sealed: sealed})
	}
	return userdecrypt.Response{Values: values}, nil
}

func (k *KMS) checkAccess(ctx context.Context, grant userdecrypt.Grant, user string, pair userdecrypt.HandleContractPair) error {
	contract := strings.ToLower(strings.TrimSpace(pair.ContractAddress))
	if !grant.AllowsContract(contract) {
		return accessDenied(pair.Handle, "contract is not named by the grant")
	}
	for _, account := range []string{user, contract} {
		ok, err := k.source.IsAllowed(ctx, pair.Handle, account)
		if err != nil {
			return fmt.Errorf("check access %s: %w", pair.Handle, err)
		}
		if !ok {
			return accessDenied(pair.Handle, account+" is not allowed")
		}
	}
	return nil
}

func accessDenied(h handle.Handle, message string) error {
	return apperrors.WithMetadata(apperrors.CodeAccessDenied, message, map[string]string{"Handle": h.String()})
}
