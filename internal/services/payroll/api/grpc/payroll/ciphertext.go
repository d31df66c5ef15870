package payroll

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	payrollv1 "github.com/louisbranch/fheworlds/api/payroll/v1"
	"github.com/louisbranch/fheworlds/internal/fhe/handle"
	apperrors "github.com/louisbranch/fheworlds/internal/platform/errors"
	"github.com/louisbranch/fheworlds/internal/services/payroll/storage"
)

// Registry reads ciphertexts and their access lists.
type Registry interface {
	Lookup(ctx context.Context, h handle.Handle) ([]byte, error)
	IsAllowed(ctx context.Context, h handle.Handle, account string) (bool, error)
}

// CiphertextService serves registered ciphertexts to the decryption service.
type CiphertextService struct {
	registry Registry
}

// NewCiphertextService creates a ciphertext service backed by registry.
func NewCiphertextService(registry Registry) *CiphertextService {
	return &CiphertextService{registry: registry}
}

// GetCiphertext returns the ciphertext behind a handle.
func (s *CiphertextService) GetCiphertext(ctx context.Context, in *payrollv1.GetCiphertextRequest) (*payrollv1.GetCiphertextResponse, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "get ciphertext request is required")
	}
	if s == nil || s.registry == nil {
		return nil, status.Error(codes.Internal, "ciphertext registry is not configured")
	}
	h, err := handle.Parse(in.Handle)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "handle: %v", err)
	}
	data, err := s.registry.Lookup(ctx, h)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = apperrors.Wrap(apperrors.CodeNotFound, "ciphertext not found", err)
		}
		return nil, handleError(ctx, "get ciphertext", err)
	}
	return &payrollv1.GetCiphertextResponse{Handle: h.String(), Ciphertext: data}, nil
}

// CheckAccess reports whether an account may decrypt a handle.
func (s *CiphertextService) CheckAccess(ctx context.Context, in *payrollv1.CheckAccessRequest) (*payrollv1.CheckAccessResponse, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "check access request is required")
	}
	if s == nil || s.registry == nil {
		return nil, status.Error(codes.Internal, "ciphertext registry is not configured")
	}
	h, err := handle.Parse(in.Handle)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "handle: %v", err)
	}
	allowed, err := s.registry.IsAllowed(ctx, h, in.Account)
	if err != nil {
		return nil, handleError(ctx, "check access", err)
	}
	return &payrollv1.CheckAccessResponse{Allowed: allowed}, nil
}

var _ payrollv1.CiphertextServiceServer = (*CiphertextService)(nil)
