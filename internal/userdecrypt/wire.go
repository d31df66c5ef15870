package userdecrypt

import (
	"encoding/hex"
	"strings"

	"github.com/louisbranch/fheworlds/internal/fhe/handle"
	"github.com/louisbranch/fheworlds/internal/identity"
	apperrors "github.com/louisbranch/fheworlds/internal/platform/errors"
)

// HandleContractPair names a handle and the contract that owns it.
type HandleContractPair struct {
	Handle          handle.Handle `json:"handle"`
	ContractAddress string        `json:"contract_address"`
}

// Request is the body of a user decryption call.
type Request struct {
	HandleContractPairs []HandleContractPair `json:"handle_contract_pairs"`
	PublicKey           string               `json:"public_key"`
	Signature           string               `json:"signature"`
	ContractAddresses   []string             `json:"contract_addresses"`
	UserAddress         string               `json:"user_address"`
	StartTimestamp      int64                `json:"start_timestamp"`
	DurationDays        int                  `json:"duration_days"`
	ChainID             uint64               `json:"chain_id"`
}

// SealedValue is one plaintext sealed to the request public key.
type SealedValue struct {
	Handle handle.Handle `json:"handle"`
	Sealed []byte        `json:"sealed"`
}

// Response carries one sealed value per requested handle, in request order.
type Response struct {
	Values []SealedValue `json:"values"`
}

// Grant returns the grant the request claims to be signed over.
func (r Request) Grant() (Grant, error) {
	publicKey, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(r.PublicKey), "0x"))
	if err != nil || len(publicKey) != KeySize {
		return Grant{}, requestInvalid("public_key", "public key must be 32 bytes of hex")
	}
	return Grant{
		PublicKey:         publicKey,
		ContractAddresses: r.ContractAddresses,
		StartTimestamp:    r.StartTimestamp,
		DurationDays:      r.DurationDays,
	}, nil
}

// User returns the parsed user address.
func (r Request) User() (identity.Address, error) {
	user, err := identity.ParseAddress(r.UserAddress)
	if err != nil {
		return "", requestInvalid("user_address", "user address is invalid")
	}
	return user, nil
}

// Validate checks the request shape before any signature work. maxDays caps
// the validity window; zero means MaxDurationDays.
func (r Request) Validate(maxDays int) error {
	if maxDays <= 0 {
		maxDays = MaxDurationDays
	}
	if len(r.HandleContractPairs) == 0 {
		return requestInvalid("handle_contract_pairs", "at least one handle is required")
	}
	for _, pair := range r.HandleContractPairs {
		if pair.Handle.IsEmpty() {
			return requestInvalid("handle", "empty handle cannot be decrypted")
		}
		if strings.TrimSpace(pair.ContractAddress) == "" {
			return requestInvalid("contract_address", "handle contract is required")
		}
	}
	if len(r.ContractAddresses) == 0 {
		return requestInvalid("contract_addresses", "at least one contract is required")
	}
	if r.DurationDays <= 0 || r.DurationDays > maxDays {
		return requestInvalid("duration_days", "duration is out of range")
	}
	if r.StartTimestamp <= 0 {
		return requestInvalid("start_timestamp", "start timestamp is required")
	}
	if strings.TrimSpace(r.Signature) == "" {
		return requestInvalid("signature", "signature is required")
	}
	if _, err := r.User(); err != nil {
		return err
	}
	_, err := r.Grant()
	return err
}

func requestInvalid(field, message string) error {
	return apperrors.WithMetadata(apperrors.CodeAuthorizationRequestInvalid, message, map[string]string{"Field": field})
}
