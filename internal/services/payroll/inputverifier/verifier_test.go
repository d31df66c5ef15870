package inputverifier

import (
	"context"
	"crypto/ed25519"
	"errors"
	"testing"

	"github.com/louisbranch/fheworlds/internal/catalog"
	"github.com/louisbranch/fheworlds/internal/fhe/handle"
	"github.com/louisbranch/fheworlds/internal/fhe/inputproof"
	apperrors "github.com/louisbranch/fheworlds/internal/platform/errors"
)

const (
	chainID  = 31337
	contract = "0x00000000000000000000000000000000000000000000000000000000c0ffee00"
	identity = "0x00000000000000000000000000000000000000000000000000000000000000a1"
)

var errBadCiphertext = errors.New("bad ciphertext")

type fixture struct {
	verifier *Verifier
	attester ed25519.PrivateKey
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	seed := make([]byte, ed25519.SeedSize)
	seed[0] = 7
	key := ed25519.NewKeyFromSeed(seed)
	v, err := New(Config{
		Catalog:  catalog.Default(),
		Attester: key.Public().(ed25519.PublicKey),
		ChainID:  chainID,
		Contract: contract,
		CheckCiphertext: func(data []byte) error {
			if string(data) == "corrupt" {
				return errBadCiphertext
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return fixture{verifier: v, attester: key}
}

func (f fixture) attest(t *testing.T, who string, ciphertext string, declared uint64) (handle.Handle, []byte) {
	t.Helper()

	binding := handle.Binding{ChainID: chainID, Contract: contract, Identity: who}
	p, err := inputproof.Attest(f.attester, binding, []inputproof.Input{{Ciphertext: []byte(ciphertext), Type: CountryType, Declared: declared}})
	if err != nil {
		t.Fatalf("attest: %v", err)
	}
	encoded, err := p.Encode()
	if err != nil {
		t.Fatalf("encode proof: %v", err)
	}
	return p.Handles[0], encoded
}

func TestValidateAcceptsAttestedInput(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	h, proof := f.attest(t, identity, "country-ct", 2)
	got, err := f.verifier.Validate(context.Background(), identity, 2, h, proof)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got.CountryID != 2 || got.Handle != h || string(got.Ciphertext) != "country-ct" {
		t.Fatalf("validated = %+v", got)
	}
}

func TestValidateRejections(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	h, proof := f.attest(t, identity, "country-ct", 1)
	otherHandle, otherProof := f.attest(t, "0xbeef", "country-ct", 1)
	corruptHandle, corruptProof := f.attest(t, identity, "corrupt", 1)

	wrongType := h
	wrongType[30] = byte(handle.TypeUint8)

	tests := []struct {
		name      string
		countryID uint32
		handle    handle.Handle
		proof     []byte
		want      apperrors.Code
	}{
		{name: "unsupported country", countryID: 9, handle: h, proof: proof, want: apperrors.CodeUnsupportedCountry},
		{name: "unsupported country wins over bad proof", countryID: 0, handle: handle.Empty, proof: nil, want: apperrors.CodeUnsupportedCountry},
		{name: "empty handle", countryID: 1, handle: handle.Empty, proof: proof, want: apperrors.CodeProofInvalid},
		{name: "wrong type", countryID: 1, handle: wrongType, proof: proof, want: apperrors.CodeProofInvalid},
		{name: "garbage proof", countryID: 1, handle: h, proof: []byte("nope"), want: apperrors.CodeProofInvalid},
		{name: "proof for another identity", countryID: 1, handle: otherHandle, proof: otherProof, want: apperrors.CodeProofInvalid},
		{name: "handle not in proof", countryID: 1, handle: otherHandle, proof: proof, want: apperrors.CodeProofInvalid},
		{name: "malformed ciphertext", countryID: 1, handle: corruptHandle, proof: corruptProof, want: apperrors.CodeProofInvalid},
		{name: "declared country differs", countryID: 2, handle: h, proof: proof, want: apperrors.CodeProofInvalid},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.verifier.Validate(context.Background(), identity, tc.countryID, tc.handle, tc.proof)
			if got := apperrors.CodeOf(err); got != tc.want {
				t.Fatalf("code = %s, want %s (err %v)", got, tc.want, err)
			}
		})
	}
}

func TestValidateRequiresDeclaredCountry(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	h, proof := f.attest(t, identity, "country-ct", 3)
	if _, err := f.verifier.Validate(context.Background(), identity, 1, h, proof); apperrors.CodeOf(err) != apperrors.CodeProofInvalid {
		t.Fatalf("code = %s, want %s", apperrors.CodeOf(err), apperrors.CodeProofInvalid)
	}
	if _, err := f.verifier.Validate(context.Background(), identity, 3, h, proof); err != nil {
		t.Fatalf("validate declared country: %v", err)
	}
}

func TestValidateUnsupportedCountryMetadata(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.verifier.Validate(context.Background(), identity, 9, handle.Empty, nil)
	var domainErr *apperrors.Error
	if !errors.As(err, &domainErr) {
		t.Fatalf("error = %v, want domain error", err)
	}
	if domainErr.Metadata["CountryID"] != "9" {
		t.Fatalf("metadata = %v", domainErr.Metadata)
	}
}

func TestNewRequiresConfig(t *testing.T) {
	t.Parallel()

	pub := make(ed25519.PublicKey, ed25519.PublicKeySize)
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "catalog", cfg: Config{Attester: pub, Contract: contract}},
		{name: "attester", cfg: Config{Catalog: catalog.Default(), Contract: contract}},
		{name: "contract", cfg: Config{Catalog: catalog.Default(), Attester: pub}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.cfg); err == nil {
				t.Fatal("expected config error")
			}
		})
	}
}
