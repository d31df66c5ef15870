package kms

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/louisbranch/fheworlds/internal/fhe/handle"
	"github.com/louisbranch/fheworlds/internal/identity"
	apperrors "github.com/louisbranch/fheworlds/internal/platform/errors"
	"github.com/louisbranch/fheworlds/internal/userdecrypt"
)

const (
	chainID  = 31337
	contract = "0x00000000000000000000000000000000000000000000000000000000c0ffee00"
)

var start = time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

type fakeSource struct {
	ciphertexts map[handle.Handle][]byte
	acl         map[handle.Handle]map[string]bool
	fetched     int
}

func (f *fakeSource) GetCiphertext(_ context.Context, h handle.Handle) ([]byte, error) {
	f.fetched++
	return f.ciphertexts[h], nil
}

func (f *fakeSource) IsAllowed(_ context.Context, h handle.Handle, account string) (bool, error) {
	return f.acl[h][account], nil
}

// fakeDecrypter reads ciphertexts written as decimal strings.
type fakeDecrypter struct{}

func (fakeDecrypter) DecryptUint(ciphertext []byte) (uint64, error) {
	return strconv.ParseUint(string(ciphertext), 10, 64)
}

type fixture struct {
	kms     *KMS
	source  *fakeSource
	user    *identity.Key
	keypair userdecrypt.Keypair
	salary  handle.Handle
	country handle.Handle
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	user, err := identity.GenerateKey(bytes.NewReader(bytes.Repeat([]byte{5}, ed25519.SeedSize)))
	require.NoError(t, err)
	keypair, err := userdecrypt.GenerateKeypair()
	require.NoError(t, err)

	country := handle.ForComputation("country", handle.TypeUint32, contract)
	salary := handle.ForComputation("salary", handle.TypeUint32, contract, country)
	owner := user.Address().String()
	source := &fakeSource{
		ciphertexts: map[handle.Handle][]byte{country: []byte("2"), salary: []byte("4800")},
		acl: map[handle.Handle]map[string]bool{
			country: {owner: true, contract: true},
			salary:  {owner: true, contract: true},
		},
	}
	f := &fixture{source: source, user: user, keypair: keypair, salary: salary, country: country, now: start.Add(time.Hour)}
	k, err := New(Config{
		Source:    source,
		Decrypter: fakeDecrypter{},
		ChainID:   chainID,
		Now:       func() time.Time { return f.now },
	})
	require.NoError(t, err)
	f.kms = k
	return f
}

func (f *fixture) request(t *testing.T, signer *identity.Key, days int, handles ...handle.Handle) userdecrypt.Request {
	t.Helper()

	grant := userdecrypt.Grant{
		PublicKey:         f.keypair.Public,
		ContractAddresses: []string{contract},
		StartTimestamp:    start.Unix(),
		DurationDays:      days,
	}
	sig, err := userdecrypt.SignGrant(signer, userdecrypt.NewDomain(chainID), grant)
	require.NoError(t, err)

	pairs := make([]userdecrypt.HandleContractPair, len(handles))
	for i, h := range handles {
		pairs[i] = userdecrypt.HandleContractPair{Handle: h, ContractAddress: contract}
	}
	return userdecrypt.Request{
		HandleContractPairs: pairs,
		PublicKey:           hex.EncodeToString(f.keypair.Public),
		Signature:           sig,
		ContractAddresses:   []string{contract},
		UserAddress:         f.user.Address().String(),
		StartTimestamp:      start.Unix(),
		DurationDays:        days,
		ChainID:             chainID,
	}
}

func (f *fixture) open(t *testing.T, v userdecrypt.SealedValue) string {
	t.Helper()
	plain, err := f.keypair.Open(v.Sealed, v.Handle.Bytes())
	require.NoError(t, err)
	return string(plain)
}

func TestUserDecryptReturnsSealedPlaintexts(t *testing.T) {
	f := newFixture(t)
	resp, err := f.kms.UserDecrypt(context.Background(), f.request(t, f.user, 10, f.country, f.salary))
	require.NoError(t, err)
	require.Len(t, resp.Values, 2)
	require.Equal(t, f.country, resp.Values[0].Handle)
	require.Equal(t, "2", f.open(t, resp.Values[0]))
	require.Equal(t, f.salary, resp.Values[1].Handle)
	require.Equal(t, "4800", f.open(t, resp.Values[1]))

	// A sealed value only opens under the handle it was sealed for.
	_, err = f.keypair.Open(resp.Values[0].Sealed, f.salary.Bytes())
	require.ErrorIs(t, err, userdecrypt.ErrOpen)
}

func TestUserDecryptIsRepeatable(t *testing.T) {
	f := newFixture(t)
	req := f.request(t, f.user, 10, f.salary)
	first, err := f.kms.UserDecrypt(context.Background(), req)
	require.NoError(t, err)
	second, err := f.kms.UserDecrypt(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, f.open(t, first.Values[0]), f.open(t, second.Values[0]))
}

func TestUserDecryptWindowBounds(t *testing.T) {
	f := newFixture(t)
	req := f.request(t, f.user, 10, f.salary)

	f.now = start
	_, err := f.kms.UserDecrypt(context.Background(), req)
	require.NoError(t, err, "window start is inclusive")

	f.now = start.Add(10 * 24 * time.Hour)
	_, err = f.kms.UserDecrypt(context.Background(), req)
	require.NoError(t, err, "window end is inclusive")

	f.now = start.Add(10*24*time.Hour + time.Second)
	_, err = f.kms.UserDecrypt(context.Background(), req)
	require.Equal(t, apperrors.CodeAuthorizationExpired, apperrors.CodeOf(err))

	f.now = start.Add(-time.Second)
	_, err = f.kms.UserDecrypt(context.Background(), req)
	require.Equal(t, apperrors.CodeAuthorizationExpired, apperrors.CodeOf(err))
}

func TestUserDecryptCheckOrder(t *testing.T) {
	f := newFixture(t)
	stranger, err := identity.GenerateKey(bytes.NewReader(bytes.Repeat([]byte{9}, ed25519.SeedSize)))
	require.NoError(t, err)
	foreign := handle.ForComputation("foreign", handle.TypeUint32, contract)

	t.Run("signature before expiry", func(t *testing.T) {
		f.now = start.Add(400 * 24 * time.Hour)
		_, err := f.kms.UserDecrypt(context.Background(), f.request(t, stranger, 10, f.salary))
		require.Equal(t, apperrors.CodeAuthorizationSignatureInvalid, apperrors.CodeOf(err))
	})
	t.Run("expiry before access", func(t *testing.T) {
		f.now = start.Add(400 * 24 * time.Hour)
		_, err := f.kms.UserDecrypt(context.Background(), f.request(t, f.user, 10, foreign))
		require.Equal(t, apperrors.CodeAuthorizationExpired, apperrors.CodeOf(err))
	})
	t.Run("access", func(t *testing.T) {
		f.now = start.Add(time.Hour)
		f.source.fetched = 0
		_, err := f.kms.UserDecrypt(context.Background(), f.request(t, f.user, 10, f.salary, foreign))
		require.Equal(t, apperrors.CodeAccessDenied, apperrors.CodeOf(err))
		require.Zero(t, f.source.fetched, "nothing is fetched when any handle is denied")
	})
}

func TestUserDecryptRejections(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		mut  func(*userdecrypt.Request)
		want apperrors.Code
	}{
		{name: "empty handle", mut: func(r *userdecrypt.Request) { r.HandleContractPairs[0].Handle = handle.Empty }, want: apperrors.CodeAuthorizationRequestInvalid},
		{name: "duration over max", mut: func(r *userdecrypt.Request) { r.DurationDays = 366 }, want: apperrors.CodeAuthorizationRequestInvalid},
		{name: "wrong chain", mut: func(r *userdecrypt.Request) { r.ChainID = 1 }, want: apperrors.CodeAuthorizationRequestInvalid},
		{name: "tampered duration", mut: func(r *userdecrypt.Request) { r.DurationDays = 11 }, want: apperrors.CodeAuthorizationSignatureInvalid},
		{name: "tampered public key", mut: func(r *userdecrypt.Request) { r.PublicKey = hex.EncodeToString(bytes.Repeat([]byte{1}, 32)) }, want: apperrors.CodeAuthorizationSignatureInvalid},
		{name: "other user", mut: func(r *userdecrypt.Request) {
			r.UserAddress = "0x00000000000000000000000000000000000000000000000000000000000000a1"
		}, want: apperrors.CodeAuthorizationSignatureInvalid},
		{name: "contract outside grant", mut: func(r *userdecrypt.Request) {
			r.HandleContractPairs[0].ContractAddress = "0x00000000000000000000000000000000000000000000000000000000000000ff"
		}, want: apperrors.CodeAccessDenied},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := f.request(t, f.user, 10, f.salary)
			tc.mut(&req)
			_, err := f.kms.UserDecrypt(context.Background(), req)
			require.Equal(t, tc.want, apperrors.CodeOf(err), "err = %v", err)
		})
	}
}

func TestUserDecryptRequiresContractGrantOnACL(t *testing.T) {
	f := newFixture(t)
	delete(f.source.acl[f.salary], contract)
	_, err := f.kms.UserDecrypt(context.Background(), f.request(t, f.user, 10, f.salary))
	require.Equal(t, apperrors.CodeAccessDenied, apperrors.CodeOf(err))
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Config{Decrypter: fakeDecrypter{}})
	require.Error(t, err)
	_, err = New(Config{Source: &fakeSource{}})
	require.Error(t, err)
}
