package kms

import (
	"context"
	"errors"
	"time"

	payrollv1 "github.com/louisbranch/fheworlds/api/payroll/v1"
	"github.com/louisbranch/fheworlds/internal/fhe/handle"
	"github.com/louisbranch/fheworlds/internal/identity"
	apperrors "github.com/louisbranch/fheworlds/internal/platform/errors"
	grpcmeta "github.com/louisbranch/fheworlds/internal/platform/grpc/metadata"
)

// LedgerSource reads ciphertexts from the payroll CiphertextService. The
// ledger only serves the relayer, so every call carries a call token signed
// with the relayer key.
type LedgerSource struct {
	client   payrollv1.CiphertextServiceClient
	key      *identity.Key
	contract identity.Address
	now      func() time.Time
}

// NewLedgerSource wraps a CiphertextService client that authenticates as key.
func NewLedgerSource(client payrollv1.CiphertextServiceClient, key *identity.Key, contract identity.Address) (*LedgerSource, error) {
	if client == nil {
		return nil, errors.New("ciphertext service client is required")
	}
	if key == nil {
		return nil, errors.New("relayer key is required")
	}
	return &LedgerSource{client: client, key: key, contract: contract, now: time.Now}, nil
}

// GetCiphertext fetches the ciphertext behind h.
func (s *LedgerSource) GetCiphertext(ctx context.Context, h handle.Handle) ([]byte, error) {
	ctx, err := s.authorize(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.GetCiphertext(ctx, &payrollv1.GetCiphertextRequest{Handle: h.String()})
	if err != nil {
		return nil, apperrors.FromGRPC(err)
	}
	return resp.Ciphertext, nil
}

// IsAllowed asks the ledger whether account may decrypt h.
func (s *LedgerSource) IsAllowed(ctx context.Context, h handle.Handle, account string) (bool, error) {
	ctx, err := s.authorize(ctx)
	if err != nil {
		return false, err
	}
	resp, err := s.client.CheckAccess(ctx, &payrollv1.CheckAccessRequest{Handle: h.String(), Account: account})
	if err != nil {
		return false, apperrors.FromGRPC(err)
	}
	return resp.Allowed, nil
}

func (s *LedgerSource) authorize(ctx context.Context) (context.Context, error) {
	token, err := identity.IssueCallToken(s.key, s.contract, s.now())
	if err != nil {
		return nil, err
	}
	return grpcmeta.WithBearerToken(ctx, token), nil
}

var _ CiphertextSource = (*LedgerSource)(nil)
