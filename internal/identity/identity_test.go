package identity

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/louisbranch/fheworlds/internal/platform/errors"
)

const contract = Address("0x00000000000000000000000000000000000000000000000000000000c0ffee00")

func testKey(t *testing.T, seed byte) *Key {
	t.Helper()
	key, err := GenerateKey(bytes.NewReader(bytes.Repeat([]byte{seed}, ed25519.SeedSize)))
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func TestAddressRoundTrip(t *testing.T) {
	key := testKey(t, 1)
	addr := key.Address()
	if !strings.HasPrefix(addr.String(), "0x") || len(addr) != 66 {
		t.Fatalf("address = %q", addr)
	}
	parsed, err := ParseAddress(strings.ToUpper(strings.TrimPrefix(addr.String(), "0x")))
	if err != nil {
		t.Fatalf("parse address: %v", err)
	}
	if parsed != addr {
		t.Fatalf("parsed = %q, want %q", parsed, addr)
	}
	pub, err := addr.PublicKey()
	if err != nil {
		t.Fatalf("public key: %v", err)
	}
	if !ed25519.Verify(pub, []byte("msg"), key.Sign([]byte("msg"))) {
		t.Fatal("address key should verify signatures")
	}
}

func TestParseAddressRejectsBadInput(t *testing.T) {
	for _, bad := range []string{"", "0x1234", "0xzz"} {
		if _, err := ParseAddress(bad); !errors.Is(err, ErrInvalidAddress) {
			t.Fatalf("ParseAddress(%q) err = %v", bad, err)
		}
	}
}

func TestParseKeyAcceptsSeedAndPrivateKey(t *testing.T) {
	key := testKey(t, 2)
	fromPrivate, err := ParseKey(key.Encode())
	if err != nil {
		t.Fatalf("parse private key: %v", err)
	}
	if fromPrivate.Address() != key.Address() {
		t.Fatal("private key encoding changed address")
	}
	fromSeed, err := ParseKey("AgICAgICAgICAgICAgICAgICAgICAgICAgICAgICAgI=")
	if err != nil {
		t.Fatalf("parse seed: %v", err)
	}
	if fromSeed.Address() != key.Address() {
		t.Fatal("seed should derive the same key")
	}
	if _, err := ParseKey("AAAA"); err == nil {
		t.Fatal("expected wrong length error")
	}
}

func TestCallTokenRoundTrip(t *testing.T) {
	key := testKey(t, 3)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	token, err := IssueCallToken(key, contract, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	caller, err := VerifyCallToken(token, contract, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if caller != key.Address() {
		t.Fatalf("caller = %s, want %s", caller, key.Address())
	}
}

func TestVerifyCallTokenFailures(t *testing.T) {
	key := testKey(t, 4)
	other := testKey(t, 5)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	token, err := IssueCallToken(key, contract, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	forged := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.RegisteredClaims{
		Subject:   key.Address().String(),
		Audience:  jwt.ClaimStrings{contract.String()},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		ID:        "jti",
	})
	forgedToken, err := forged.SignedString(other.PrivateKey())
	if err != nil {
		t.Fatalf("sign forged: %v", err)
	}

	tests := []struct {
		name     string
		token    string
		contract Address
		now      time.Time
	}{
		{name: "empty", token: "", contract: contract, now: now},
		{name: "expired", token: token, contract: contract, now: now.Add(CallTokenTTL)},
		{name: "other contract", token: token, contract: other.Address(), now: now},
		{name: "issued in future", token: token, contract: contract, now: now.Add(-time.Minute)},
		{name: "signed by someone else", token: forgedToken, contract: contract, now: now},
		{name: "garbage", token: "a.b.c", contract: contract, now: now},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := VerifyCallToken(tc.token, tc.contract, tc.now)
			if apperrors.CodeOf(err) != apperrors.CodeUnauthenticated {
				t.Fatalf("err = %v, want %s", err, apperrors.CodeUnauthenticated)
			}
		})
	}
}
