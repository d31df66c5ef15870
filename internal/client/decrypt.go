package client

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/fheworlds/internal/fhe/handle"
	"github.com/louisbranch/fheworlds/internal/identity"
	"github.com/louisbranch/fheworlds/internal/userdecrypt"
)

// ErrEmptyHandle is returned before any network call when asked to decrypt
// the empty handle.
var ErrEmptyHandle = errors.New("handle is empty; nothing is stored")

// GenerateKeypair creates the ephemeral keypair responses are sealed to.
func GenerateKeypair() (userdecrypt.Keypair, error) {
	return userdecrypt.GenerateKeypair()
}

// NewGrant describes a decryption grant for kp over contracts starting at now.
// A non-positive days uses userdecrypt.DefaultDurationDays.
func NewGrant(kp userdecrypt.Keypair, contracts []string, now time.Time, days int) userdecrypt.Grant {
	if days <= 0 {
		days = userdecrypt.DefaultDurationDays
	}
	return userdecrypt.Grant{
		PublicKey:         kp.Public,
		ContractAddresses: contracts,
		StartTimestamp:    now.Unix(),
		DurationDays:      days,
	}
}

// UserDecryptParams is one user decryption call. Keypair.Private stays in
// this process; it only opens the sealed responses.
type UserDecryptParams struct {
	Pairs          []userdecrypt.HandleContractPair
	Keypair        userdecrypt.Keypair
	Signature      string
	Contracts      []string
	User           identity.Address
	StartTimestamp int64
	DurationDays   int
	ChainID        uint64
}

// UserDecrypt sends a signed grant to the relayer and returns the plaintexts
// keyed by handle.
func (r *Relayer) UserDecrypt(ctx context.Context, p UserDecryptParams) (map[handle.Handle]uint64, error) {
	for _, pair := range p.Pairs {
		if pair.Handle.IsEmpty() {
			return nil, ErrEmptyHandle
		}
	}
	resp, err := r.SendUserDecrypt(ctx, userdecrypt.Request{
		HandleContractPairs: p.Pairs,
		PublicKey:           hex.EncodeToString(p.Keypair.Public),
		Signature:           strings.TrimPrefix(p.Signature, "0x"),
		ContractAddresses:   p.Contracts,
		UserAddress:         p.User.String(),
		StartTimestamp:      p.StartTimestamp,
		DurationDays:        p.DurationDays,
		ChainID:             p.ChainID,
	})
	if err != nil {
		return nil, err
	}

	out := make(map[handle.Handle]uint64, len(resp.Values))
	for _, v := range resp.Values {
		plain, err := p.Keypair.Open(v.Sealed, v.Handle.Bytes())
		if err != nil {
			return nil, fmt.Errorf("open value for %s: %w", v.Handle, err)
		}
		n, err := strconv.ParseUint(string(plain), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("value for %s is not an unsigned integer: %w", v.Handle, err)
		}
		out[v.Handle] = n
	}
	for _, pair := range p.Pairs {
		if _, ok := out[pair.Handle]; !ok {
			return nil, fmt.Errorf("relayer returned no value for %s", pair.Handle)
		}
	}
	return out, nil
}

// DecryptOwn runs the whole protocol for handles owned by contract: a fresh
// keypair, a grant starting now, the user's signature and the relayer call.
func (r *Relayer) DecryptOwn(ctx context.Context, key *identity.Key, chainID uint64, contract identity.Address, now time.Time, handles ...handle.Handle) (map[handle.Handle]uint64, error) {
	if key == nil {
		return nil, errors.New("identity key is required")
	}
	for _, h := range handles {
		if h.IsEmpty() {
			return nil, ErrEmptyHandle
		}
	}
	kp, err := GenerateKeypair()
	if err != nil {
		return nil, err
	}
	contracts := []string{contract.String()}
	grant := NewGrant(kp, contracts, now, userdecrypt.DefaultDurationDays)
	signature, err := userdecrypt.SignGrant(key, userdecrypt.NewDomain(chainID), grant)
	if err != nil {
		return nil, fmt.Errorf("sign decryption grant: %w", err)
	}
	pairs := make([]userdecrypt.HandleContractPair, len(handles))
	for i, h := range handles {
		pairs[i] = userdecrypt.HandleContractPair{Handle: h, ContractAddress: contract.String()}
	}
	return r.UserDecrypt(ctx, UserDecryptParams{
		Pairs:          pairs,
		Keypair:        kp,
		Signature:      signature,
		Contracts:      contracts,
		User:           key.Address(),
		StartTimestamp: grant.StartTimestamp,
		DurationDays:   grant.DurationDays,
		ChainID:        chainID,
	})
}
