package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"

	payrollv1 "github.com/louisbranch/fheworlds/api/payroll/v1"
	"github.com/louisbranch/fheworlds/internal/fhe/handle"
	"github.com/louisbranch/fheworlds/internal/identity"
	apperrors "github.com/louisbranch/fheworlds/internal/platform/errors"
	grpcmeta "github.com/louisbranch/fheworlds/internal/platform/grpc/metadata"
)

// ContractInfo describes the payroll instance a client talks to.
type ContractInfo struct {
	ChainID    uint64
	Contract   identity.Address
	CountryIDs []uint32
}

// Salary is the caller's encrypted salary state.
type Salary struct {
	Handle  handle.Handle
	Claimed bool
}

// Payroll calls the payroll ledger as one participant.
type Payroll struct {
	client payrollv1.PayrollServiceClient
	key    *identity.Key
	now    func() time.Time
}

// NewPayroll wraps conn for the participant holding key.
func NewPayroll(conn grpc.ClientConnInterface, key *identity.Key) (*Payroll, error) {
	if conn == nil {
		return nil, errors.New("payroll connection is required")
	}
	if key == nil {
		return nil, errors.New("identity key is required")
	}
	return &Payroll{client: payrollv1.NewPayrollServiceClient(conn), key: key, now: time.Now}, nil
}

// Address returns the participant address.
func (p *Payroll) Address() identity.Address {
	return p.key.Address()
}

// ContractInfo returns the chain, contract and supported countries.
func (p *Payroll) ContractInfo(ctx context.Context) (ContractInfo, error) {
	resp, err := p.client.GetContractInfo(ctx, &payrollv1.GetContractInfoRequest{})
	if err != nil {
		return ContractInfo{}, apperrors.FromGRPC(err)
	}
	contract, err := identity.ParseAddress(resp.ContractAddress)
	if err != nil {
		return ContractInfo{}, fmt.Errorf("contract address: %w", err)
	}
	return ContractInfo{ChainID: resp.ChainId, Contract: contract, CountryIDs: resp.CountryIds}, nil
}

// SupportedCountryIDs lists the catalog in order.
func (p *Payroll) SupportedCountryIDs(ctx context.Context) ([]uint32, error) {
	resp, err := p.client.ListSupportedCountryIds(ctx, &payrollv1.ListSupportedCountryIdsRequest{})
	if err != nil {
		return nil, apperrors.FromGRPC(err)
	}
	return resp.CountryIds, nil
}

// HasJoined reports whether the participant joined.
func (p *Payroll) HasJoined(ctx context.Context) (bool, error) {
	resp, err := p.client.HasJoined(ctx, &payrollv1.HasJoinedRequest{Identity: p.Address().String()})
	if err != nil {
		return false, apperrors.FromGRPC(err)
	}
	return resp.Joined, nil
}

// EncryptedCountry returns the country handle, or handle.Empty.
func (p *Payroll) EncryptedCountry(ctx context.Context) (handle.Handle, error) {
	resp, err := p.client.GetEncryptedCountry(ctx, &payrollv1.GetEncryptedCountryRequest{Identity: p.Address().String()})
	if err != nil {
		return handle.Empty, apperrors.FromGRPC(err)
	}
	return handle.Parse(resp.Handle)
}

// EncryptedSalary returns the salary handle and claim flag.
func (p *Payroll) EncryptedSalary(ctx context.Context) (Salary, error) {
	resp, err := p.client.GetEncryptedSalary(ctx, &payrollv1.GetEncryptedSalaryRequest{Identity: p.Address().String()})
	if err != nil {
		return Salary{}, apperrors.FromGRPC(err)
	}
	h, err := handle.Parse(resp.Handle)
	if err != nil {
		return Salary{}, err
	}
	return Salary{Handle: h, Claimed: resp.Claimed}, nil
}

// JoinCountry submits an encrypted country choice.
func (p *Payroll) JoinCountry(ctx context.Context, contract identity.Address, countryID uint32, in EncryptedInput) (handle.Handle, handle.Handle, error) {
	if len(in.Handles) == 0 {
		return handle.Empty, handle.Empty, errors.New("encrypted input has no handles")
	}
	ctx, err := p.authorize(ctx, contract)
	if err != nil {
		return handle.Empty, handle.Empty, err
	}
	resp, err := p.client.JoinCountry(ctx, &payrollv1.JoinCountryRequest{
		CountryId:        countryID,
		EncryptedCountry: in.Handles[0].String(),
		InputProof:       in.InputProof,
	})
	if err != nil {
		return handle.Empty, handle.Empty, apperrors.FromGRPC(err)
	}
	country, err := handle.Parse(resp.CountryHandle)
	if err != nil {
		return handle.Empty, handle.Empty, err
	}
	salary, err := handle.Parse(resp.SalaryHandle)
	if err != nil {
		return handle.Empty, handle.Empty, err
	}
	return country, salary, nil
}

// ClaimSalary marks the salary claimed and returns its handle.
func (p *Payroll) ClaimSalary(ctx context.Context, contract identity.Address) (handle.Handle, error) {
	ctx, err := p.authorize(ctx, contract)
	if err != nil {
		return handle.Empty, err
	}
	resp, err := p.client.ClaimSalary(ctx, &payrollv1.ClaimSalaryRequest{})
	if err != nil {
		return handle.Empty, apperrors.FromGRPC(err)
	}
	return handle.Parse(resp.SalaryHandle)
}

func (p *Payroll) authorize(ctx context.Context, contract identity.Address) (context.Context, error) {
	token, err := identity.IssueCallToken(p.key, contract, p.now())
	if err != nil {
		return ctx, fmt.Errorf("issue call token: %w", err)
	}
	return grpcmeta.WithBearerToken(ctx, token), nil
}
