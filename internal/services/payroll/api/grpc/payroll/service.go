// Package payroll exposes the ledger over fheworlds.payroll.v1 gRPC.
package payroll

import (
	"context"
	"errors"
	"log"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	payrollv1 "github.com/louisbranch/fheworlds/api/payroll/v1"
	"github.com/louisbranch/fheworlds/internal/fhe/handle"
	"github.com/louisbranch/fheworlds/internal/identity"
	apperrors "github.com/louisbranch/fheworlds/internal/platform/errors"
	"github.com/louisbranch/fheworlds/internal/platform/requestctx"
	"github.com/louisbranch/fheworlds/internal/services/payroll/domain"
	"github.com/louisbranch/fheworlds/internal/services/payroll/ledger"
)

// Ledger is the state machine surface the service exposes.
type Ledger interface {
	ContractInfo() ledger.ContractInfo
	ListSupportedCountryIDs() []uint32
	HasJoined(ctx context.Context, identity string) (bool, error)
	GetEncryptedCountry(ctx context.Context, identity string) (handle.Handle, error)
	GetEncryptedSalary(ctx context.Context, identity string) (handle.Handle, bool, error)
	JoinCountry(ctx context.Context, identity string, countryID uint32, h handle.Handle, proof []byte) (domain.State, error)
	ClaimSalary(ctx context.Context, identity string) (handle.Handle, error)
}

// Service exposes payroll.v1 PayrollService operations.
type Service struct {
	payrollv1.UnimplementedPayrollServiceServer
	ledger Ledger
}

// NewService creates a payroll service backed by ledger.
func NewService(ledger Ledger) *Service {
	return &Service{ledger: ledger}
}

// GetContractInfo returns the chain, contract address and supported countries.
func (s *Service) GetContractInfo(ctx context.Context, in *payrollv1.GetContractInfoRequest) (*payrollv1.GetContractInfoResponse, error) {
	if s == nil || s.ledger == nil {
		return nil, status.Error(codes.Internal, "payroll ledger is not configured")
	}
	info := s.ledger.ContractInfo()
	return &payrollv1.GetContractInfoResponse{
		ChainId:         info.ChainID,
		ContractAddress: info.Contract,
		CountryIds:      info.CountryIDs,
	}, nil
}

// ListSupportedCountryIds returns catalog ids in catalog order.
func (s *Service) ListSupportedCountryIds(ctx context.Context, in *payrollv1.ListSupportedCountryIdsRequest) (*payrollv1.ListSupportedCountryIdsResponse, error) {
	if s == nil || s.ledger == nil {
		return nil, status.Error(codes.Internal, "payroll ledger is not configured")
	}
	return &payrollv1.ListSupportedCountryIdsResponse{CountryIds: s.ledger.ListSupportedCountryIDs()}, nil
}

// HasJoined reports whether an identity has joined.
func (s *Service) HasJoined(ctx context.Context, in *payrollv1.HasJoinedRequest) (*payrollv1.HasJoinedResponse, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "has joined request is required")
	}
	if s == nil || s.ledger == nil {
		return nil, status.Error(codes.Internal, "payroll ledger is not configured")
	}
	who, err := readIdentity(ctx, in.Identity)
	if err != nil {
		return nil, err
	}
	joined, err := s.ledger.HasJoined(ctx, who)
	if err != nil {
		return nil, handleError(ctx, "has joined", err)
	}
	return &payrollv1.HasJoinedResponse{Joined: joined}, nil
}

// GetEncryptedCountry returns the country handle of an identity.
func (s *Service) GetEncryptedCountry(ctx context.Context, in *payrollv1.GetEncryptedCountryRequest) (*payrollv1.GetEncryptedCountryResponse, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "get encrypted country request is required")
	}
	if s == nil || s.ledger == nil {
		return nil, status.Error(codes.Internal, "payroll ledger is not configured")
	}
	who, err := readIdentity(ctx, in.Identity)
	if err != nil {
		return nil, err
	}
	h, err := s.ledger.GetEncryptedCountry(ctx, who)
	if err != nil {
		return nil, handleError(ctx, "get encrypted country", err)
	}
	return &payrollv1.GetEncryptedCountryResponse{Handle: h.String()}, nil
}

// GetEncryptedSalary returns the salary handle and claim flag of an identity.
func (s *Service) GetEncryptedSalary(ctx context.Context, in *payrollv1.GetEncryptedSalaryRequest) (*payrollv1.GetEncryptedSalaryResponse, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "get encrypted salary request is required")
	}
	if s == nil || s.ledger == nil {
		return nil, status.Error(codes.Internal, "payroll ledger is not configured")
	}
	who, err := readIdentity(ctx, in.Identity)
	if err != nil {
		return nil, err
	}
	h, claimed, err := s.ledger.GetEncryptedSalary(ctx, who)
	if err != nil {
		return nil, handleError(ctx, "get encrypted salary", err)
	}
	return &payrollv1.GetEncryptedSalaryResponse{Handle: h.String(), Claimed: claimed}, nil
}

// JoinCountry joins the authenticated caller with an encrypted country.
func (s *Service) JoinCountry(ctx context.Context, in *payrollv1.JoinCountryRequest) (*payrollv1.JoinCountryResponse, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "join country request is required")
	}
	if s == nil || s.ledger == nil {
		return nil, status.Error(codes.Internal, "payroll ledger is not configured")
	}
	caller := requestctx.CallerFromContext(ctx)
	if caller == "" {
		return nil, handleError(ctx, "join country", apperrors.New(apperrors.CodeUnauthenticated, "call token is required"))
	}
	h, err := handle.Parse(in.EncryptedCountry)
	if err != nil {
		return nil, handleError(ctx, "join country", apperrors.Wrap(apperrors.CodeProofInvalid, "encrypted country handle is malformed", err))
	}
	state, err := s.ledger.JoinCountry(ctx, caller, in.CountryId, h, in.InputProof)
	if err != nil {
		return nil, handleError(ctx, "join country", err)
	}
	log.Printf("participant %s joined country handle %s", caller, state.CountryHandle)
	return &payrollv1.JoinCountryResponse{
		CountryHandle: state.CountryHandle.String(),
		SalaryHandle:  state.SalaryHandle.String(),
	}, nil
}

// ClaimSalary claims the salary of the authenticated caller.
func (s *Service) ClaimSalary(ctx context.Context, in *payrollv1.ClaimSalaryRequest) (*payrollv1.ClaimSalaryResponse, error) {
	if s == nil || s.ledger == nil {
		return nil, status.Error(codes.Internal, "payroll ledger is not configured")
	}
	caller := requestctx.CallerFromContext(ctx)
	if caller == "" {
		return nil, handleError(ctx, "claim salary", apperrors.New(apperrors.CodeUnauthenticated, "call token is required"))
	}
	h, err := s.ledger.ClaimSalary(ctx, caller)
	if err != nil {
		return nil, handleError(ctx, "claim salary", err)
	}
	log.Printf("participant %s claimed salary handle %s", caller, h)
	return &payrollv1.ClaimSalaryResponse{SalaryHandle: h.String()}, nil
}

// readIdentity returns the requested identity, falling back to the caller.
func readIdentity(ctx context.Context, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		requested = requestctx.CallerFromContext(ctx)
	}
	if requested == "" {
		return "", status.Error(codes.InvalidArgument, "identity is required")
	}
	addr, err := identity.ParseAddress(requested)
	if err != nil {
		return "", status.Errorf(codes.InvalidArgument, "identity: %v", err)
	}
	return addr.String(), nil
}

// handleError localizes domain errors and hides everything else.
func handleError(ctx context.Context, op string, err error) error {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		if _, ok := status.FromError(err); !ok {
			log.Printf("%s: %v", op, err)
		}
	}
	return apperrors.HandleError(err, requestctx.LocaleFromContext(ctx))
}
