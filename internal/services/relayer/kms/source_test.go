package kms

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	payrollv1 "github.com/louisbranch/fheworlds/api/payroll/v1"
	"github.com/louisbranch/fheworlds/internal/fhe/handle"
	"github.com/louisbranch/fheworlds/internal/identity"
)

type recordingClient struct {
	tokens []string
}

func (c *recordingClient) record(ctx context.Context) {
	md, _ := metadata.FromOutgoingContext(ctx)
	c.tokens = append(c.tokens, md.Get("authorization")...)
}

func (c *recordingClient) GetCiphertext(ctx context.Context, in *payrollv1.GetCiphertextRequest, _ ...grpc.CallOption) (*payrollv1.GetCiphertextResponse, error) {
	c.record(ctx)
	return &payrollv1.GetCiphertextResponse{Handle: in.Handle, Ciphertext: []byte("ct")}, nil
}

func (c *recordingClient) CheckAccess(ctx context.Context, _ *payrollv1.CheckAccessRequest, _ ...grpc.CallOption) (*payrollv1.CheckAccessResponse, error) {
	c.record(ctx)
	return &payrollv1.CheckAccessResponse{Allowed: true}, nil
}

func TestLedgerSourceAuthenticatesAsRelayer(t *testing.T) {
	relayer, err := identity.GenerateKey(bytes.NewReader(bytes.Repeat([]byte{6}, ed25519.SeedSize)))
	require.NoError(t, err)
	client := &recordingClient{}
	source, err := NewLedgerSource(client, relayer, identity.Address(contract))
	require.NoError(t, err)

	h := handle.ForInput([]byte("ct"), 0, handle.TypeUint32, handle.Binding{ChainID: chainID})
	data, err := source.GetCiphertext(context.Background(), h)
	require.NoError(t, err)
	require.Equal(t, []byte("ct"), data)
	allowed, err := source.IsAllowed(context.Background(), h, "0xabc")
	require.NoError(t, err)
	require.True(t, allowed)

	require.Len(t, client.tokens, 2)
	for _, header := range client.tokens {
		require.True(t, strings.HasPrefix(header, "Bearer "), header)
		caller, err := identity.VerifyCallToken(strings.TrimPrefix(header, "Bearer "), identity.Address(contract), time.Now())
		require.NoError(t, err)
		require.Equal(t, relayer.Address(), caller)
	}
}

func TestNewLedgerSourceRequiresKey(t *testing.T) {
	_, err := NewLedgerSource(&recordingClient{}, nil, identity.Address(contract))
	require.Error(t, err)
	_, err = NewLedgerSource(nil, nil, identity.Address(contract))
	require.Error(t, err)
}
