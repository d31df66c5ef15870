package inputproof

import (
	"bytes"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/louisbranch/fheworlds/internal/fhe/handle"
)

var binding = handle.Binding{
	ChainID:  31337,
	Contract: "0x00000000000000000000000000000000000000000000000000000000c0ffee00",
	Identity: "0x1111111111111111111111111111111111111111111111111111111111111111",
}

func attesterKey(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(bytes.NewReader(bytes.Repeat([]byte{7}, 32)))
	require.NoError(t, err)
	return pub, priv
}

func TestAttestAndVerify(t *testing.T) {
	pub, priv := attesterKey(t)
	proof, err := Attest(priv, binding, []Input{{Ciphertext: []byte("country"), Type: handle.TypeUint32, Declared: 3}})
	require.NoError(t, err)
	require.Len(t, proof.Handles, 1)
	require.Equal(t, handle.TypeUint32, proof.Handles[0].Type())

	encoded, err := proof.Encode()
	require.NoError(t, err)
	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.NoError(t, decoded.Verify(pub, binding))

	ct, ok := decoded.Ciphertext(proof.Handles[0])
	require.True(t, ok)
	require.Equal(t, []byte("country"), ct)
	_, ok = decoded.Ciphertext(handle.Empty)
	require.False(t, ok)

	declared, ok := decoded.DeclaredValue(proof.Handles[0])
	require.True(t, ok)
	require.Equal(t, uint64(3), declared)
	_, ok = decoded.DeclaredValue(handle.Empty)
	require.False(t, ok)
}

func TestVerifyRejectsTampering(t *testing.T) {
	pub, priv := attesterKey(t)
	otherPub, _, err := ed25519.GenerateKey(bytes.NewReader(bytes.Repeat([]byte{9}, 32)))
	require.NoError(t, err)

	fresh := func() *Proof {
		p, err := Attest(priv, binding, []Input{{Ciphertext: []byte("country"), Type: handle.TypeUint32, Declared: 2}})
		require.NoError(t, err)
		return p
	}

	t.Run("wrong attester", func(t *testing.T) {
		require.ErrorIs(t, fresh().Verify(otherPub, binding), ErrSignature)
	})
	t.Run("other identity", func(t *testing.T) {
		other := binding
		other.Identity = "0x2222222222222222222222222222222222222222222222222222222222222222"
		require.ErrorIs(t, fresh().Verify(pub, other), ErrBinding)
	})
	t.Run("relabelled identity", func(t *testing.T) {
		p := fresh()
		p.Identity = "0x2222222222222222222222222222222222222222222222222222222222222222"
		require.ErrorIs(t, p.Verify(pub, binding), ErrSignature)
	})
	t.Run("swapped ciphertext", func(t *testing.T) {
		p := fresh()
		p.Ciphertexts[0] = []byte("other country")
		require.ErrorIs(t, p.Verify(pub, binding), ErrHandleMismatch)
	})
	t.Run("relabelled declared value", func(t *testing.T) {
		p := fresh()
		p.Declared[0] = 1
		require.ErrorIs(t, p.Verify(pub, binding), ErrSignature)
	})
	t.Run("declared values dropped", func(t *testing.T) {
		p := fresh()
		p.Declared = nil
		require.ErrorIs(t, p.Verify(pub, binding), ErrMalformed)
	})
	t.Run("count mismatch", func(t *testing.T) {
		p := fresh()
		p.Ciphertexts = nil
		require.ErrorIs(t, p.Verify(pub, binding), ErrMalformed)
	})
}

func TestAttestRejectsBadInputs(t *testing.T) {
	_, priv := attesterKey(t)
	_, err := Attest(priv, binding, nil)
	require.ErrorIs(t, err, ErrMalformed)
	_, err = Attest(priv, binding, []Input{{Ciphertext: nil}})
	require.ErrorIs(t, err, ErrMalformed)
	_, err = Attest(nil, binding, []Input{{Ciphertext: []byte("x")}})
	require.Error(t, err)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode(nil)
	require.ErrorIs(t, err, ErrMalformed)
	_, err = Decode([]byte("{not json"))
	require.ErrorIs(t, err, ErrMalformed)
}
