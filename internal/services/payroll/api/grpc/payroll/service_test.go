package payroll

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	payrollv1 "github.com/louisbranch/fheworlds/api/payroll/v1"
	"github.com/louisbranch/fheworlds/internal/fhe/handle"
	"github.com/louisbranch/fheworlds/internal/identity"
	apperrors "github.com/louisbranch/fheworlds/internal/platform/errors"
	grpcmeta "github.com/louisbranch/fheworlds/internal/platform/grpc/metadata"
	"github.com/louisbranch/fheworlds/internal/platform/requestctx"
	"github.com/louisbranch/fheworlds/internal/services/payroll/domain"
	"github.com/louisbranch/fheworlds/internal/services/payroll/ledger"
	"github.com/louisbranch/fheworlds/internal/services/payroll/storage"
)

const contract = identity.Address("0x00000000000000000000000000000000000000000000000000000000c0ffee00")

type fakeLedger struct {
	states map[string]domain.State
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{states: map[string]domain.State{}}
}

func (f *fakeLedger) ContractInfo() ledger.ContractInfo {
	return ledger.ContractInfo{ChainID: 31337, Contract: contract.String(), CountryIDs: []uint32{1, 2}}
}

func (f *fakeLedger) ListSupportedCountryIDs() []uint32 { return []uint32{1, 2} }

func (f *fakeLedger) HasJoined(_ context.Context, who string) (bool, error) {
	return f.states[who].Joined, nil
}

func (f *fakeLedger) GetEncryptedCountry(_ context.Context, who string) (handle.Handle, error) {
	return f.states[who].CountryHandle, nil
}

func (f *fakeLedger) GetEncryptedSalary(_ context.Context, who string) (handle.Handle, bool, error) {
	st := f.states[who]
	return st.SalaryHandle, st.Claimed, nil
}

func (f *fakeLedger) JoinCountry(_ context.Context, who string, countryID uint32, h handle.Handle, _ []byte) (domain.State, error) {
	if f.states[who].Joined {
		return domain.State{}, apperrors.New(apperrors.CodeAlreadyJoined, "participant already joined")
	}
	if countryID > 2 {
		return domain.State{}, apperrors.WithMetadata(apperrors.CodeUnsupportedCountry, "unsupported", map[string]string{"CountryID": "9"})
	}
	st := domain.State{
		Identity:      who,
		Joined:        true,
		CountryHandle: h,
		SalaryHandle:  handle.ForComputation("salary", handle.TypeUint32, contract.String(), h),
	}
	f.states[who] = st
	return st, nil
}

func (f *fakeLedger) ClaimSalary(_ context.Context, who string) (handle.Handle, error) {
	st := f.states[who]
	if !st.Joined {
		return handle.Empty, apperrors.New(apperrors.CodeNotJoined, "participant has not joined")
	}
	if st.Claimed {
		return handle.Empty, apperrors.New(apperrors.CodeSalaryAlreadyClaimed, "salary already claimed")
	}
	st.Claimed = true
	f.states[who] = st
	return st.SalaryHandle, nil
}

type fakeRegistry struct {
	data map[handle.Handle][]byte
	acl  map[handle.Handle]map[string]bool
}

func (f *fakeRegistry) Lookup(_ context.Context, h handle.Handle) ([]byte, error) {
	data, ok := f.data[h]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (f *fakeRegistry) IsAllowed(_ context.Context, h handle.Handle, account string) (bool, error) {
	return f.acl[h][account], nil
}

func testKey(t *testing.T, seed byte) *identity.Key {
	t.Helper()
	raw := make([]byte, 32)
	raw[0] = seed
	key, err := identity.GenerateKey(bytesReader(raw))
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

type bytesReader []byte

func (b bytesReader) Read(p []byte) (int, error) {
	return copy(p, b), nil
}

func countryHandle(seed byte) handle.Handle {
	return handle.ForInput([]byte{seed}, 0, handle.TypeUint32, handle.Binding{ChainID: 31337, Contract: contract.String()})
}

func TestReadsReturnEmptyHandleForUnjoined(t *testing.T) {
	svc := NewService(newFakeLedger())
	who := testKey(t, 1).Address().String()

	joined, err := svc.HasJoined(context.Background(), &payrollv1.HasJoinedRequest{Identity: who})
	if err != nil || joined.Joined {
		t.Fatalf("has joined = %+v, %v", joined, err)
	}
	country, err := svc.GetEncryptedCountry(context.Background(), &payrollv1.GetEncryptedCountryRequest{Identity: who})
	if err != nil {
		t.Fatalf("get country: %v", err)
	}
	if country.Handle != handle.Empty.String() {
		t.Fatalf("handle = %s, want empty", country.Handle)
	}
	salary, err := svc.GetEncryptedSalary(context.Background(), &payrollv1.GetEncryptedSalaryRequest{Identity: who})
	if err != nil {
		t.Fatalf("get salary: %v", err)
	}
	if salary.Handle != handle.Empty.String() || salary.Claimed {
		t.Fatalf("salary = %+v, want empty unclaimed", salary)
	}
}

func TestReadsRequireValidIdentity(t *testing.T) {
	svc := NewService(newFakeLedger())
	for _, who := range []string{"", "0xnothex"} {
		_, err := svc.HasJoined(context.Background(), &payrollv1.HasJoinedRequest{Identity: who})
		if status.Code(err) != codes.InvalidArgument {
			t.Fatalf("identity %q code = %v, want %v", who, status.Code(err), codes.InvalidArgument)
		}
	}
	if _, err := svc.HasJoined(context.Background(), nil); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("nil request code = %v", status.Code(err))
	}
}

func TestReadsDefaultToCaller(t *testing.T) {
	fake := newFakeLedger()
	svc := NewService(fake)
	who := testKey(t, 2).Address().String()
	fake.states[who] = domain.State{Identity: who, Joined: true}

	ctx := requestctx.WithCaller(context.Background(), who)
	resp, err := svc.HasJoined(ctx, &payrollv1.HasJoinedRequest{})
	if err != nil || !resp.Joined {
		t.Fatalf("has joined = %+v, %v; want true", resp, err)
	}
}

func TestJoinCountryRequiresCaller(t *testing.T) {
	svc := NewService(newFakeLedger())
	_, err := svc.JoinCountry(context.Background(), &payrollv1.JoinCountryRequest{CountryId: 1, EncryptedCountry: countryHandle(1).String()})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("code = %v, want %v", status.Code(err), codes.Unauthenticated)
	}
	_, err = svc.ClaimSalary(context.Background(), &payrollv1.ClaimSalaryRequest{})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("claim code = %v, want %v", status.Code(err), codes.Unauthenticated)
	}
}

func TestJoinCountryRejectsMalformedHandle(t *testing.T) {
	svc := NewService(newFakeLedger())
	ctx := requestctx.WithCaller(context.Background(), testKey(t, 1).Address().String())
	_, err := svc.JoinCountry(ctx, &payrollv1.JoinCountryRequest{CountryId: 1, EncryptedCountry: "0x12"})
	if got := apperrors.CodeOf(apperrors.FromGRPC(err)); got != apperrors.CodeProofInvalid {
		t.Fatalf("code = %s, want %s", got, apperrors.CodeProofInvalid)
	}
}

func TestJoinAndClaimFlow(t *testing.T) {
	svc := NewService(newFakeLedger())
	who := testKey(t, 3).Address().String()
	ctx := requestctx.WithCaller(context.Background(), who)

	joined, err := svc.JoinCountry(ctx, &payrollv1.JoinCountryRequest{CountryId: 2, EncryptedCountry: countryHandle(2).String()})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if joined.CountryHandle != countryHandle(2).String() || joined.SalaryHandle == handle.Empty.String() {
		t.Fatalf("join response = %+v", joined)
	}

	_, err = svc.JoinCountry(ctx, &payrollv1.JoinCountryRequest{CountryId: 1, EncryptedCountry: countryHandle(1).String()})
	if status.Code(err) != codes.AlreadyExists {
		t.Fatalf("second join code = %v, want %v", status.Code(err), codes.AlreadyExists)
	}

	claimed, err := svc.ClaimSalary(ctx, &payrollv1.ClaimSalaryRequest{})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed.SalaryHandle != joined.SalaryHandle {
		t.Fatalf("claimed handle = %s, want %s", claimed.SalaryHandle, joined.SalaryHandle)
	}
	_, err = svc.ClaimSalary(ctx, &payrollv1.ClaimSalaryRequest{})
	if got := apperrors.CodeOf(apperrors.FromGRPC(err)); got != apperrors.CodeSalaryAlreadyClaimed {
		t.Fatalf("second claim code = %s, want %s", got, apperrors.CodeSalaryAlreadyClaimed)
	}
}

func TestCiphertextService(t *testing.T) {
	h := countryHandle(4)
	reg := &fakeRegistry{
		data: map[handle.Handle][]byte{h: []byte("ct")},
		acl:  map[handle.Handle]map[string]bool{h: {"0xabc": true}},
	}
	svc := NewCiphertextService(reg)

	got, err := svc.GetCiphertext(context.Background(), &payrollv1.GetCiphertextRequest{Handle: h.String()})
	if err != nil {
		t.Fatalf("get ciphertext: %v", err)
	}
	if string(got.Ciphertext) != "ct" {
		t.Fatalf("ciphertext = %q", got.Ciphertext)
	}
	_, err = svc.GetCiphertext(context.Background(), &payrollv1.GetCiphertextRequest{Handle: countryHandle(5).String()})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("missing code = %v, want %v", status.Code(err), codes.NotFound)
	}
	_, err = svc.GetCiphertext(context.Background(), &payrollv1.GetCiphertextRequest{Handle: "nope"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("malformed code = %v, want %v", status.Code(err), codes.InvalidArgument)
	}

	access, err := svc.CheckAccess(context.Background(), &payrollv1.CheckAccessRequest{Handle: h.String(), Account: "0xabc"})
	if err != nil || !access.Allowed {
		t.Fatalf("check access = %+v, %v; want allowed", access, err)
	}
	access, err = svc.CheckAccess(context.Background(), &payrollv1.CheckAccessRequest{Handle: h.String(), Account: "0xdef"})
	if err != nil || access.Allowed {
		t.Fatalf("check access = %+v, %v; want denied", access, err)
	}
}

func TestCallerInterceptorOverGRPC(t *testing.T) {
	now := time.Date(2026, time.March, 3, 12, 0, 0, 0, time.UTC)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(
		grpcmeta.UnaryServerInterceptor(nil),
		CallerInterceptor(contract, testKey(t, 0xee).Address(), func() time.Time { return now }),
	))
	payrollv1.RegisterPayrollServiceServer(server, NewService(newFakeLedger()))
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient(listener.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	client := payrollv1.NewPayrollServiceClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ids, err := client.ListSupportedCountryIds(ctx, &payrollv1.ListSupportedCountryIdsRequest{})
	if err != nil {
		t.Fatalf("list countries: %v", err)
	}
	if len(ids.CountryIds) != 2 {
		t.Fatalf("country ids = %v", ids.CountryIds)
	}

	_, err = client.ClaimSalary(ctx, &payrollv1.ClaimSalaryRequest{})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("anonymous claim code = %v, want %v", status.Code(err), codes.Unauthenticated)
	}

	key := testKey(t, 9)
	token, err := identity.IssueCallToken(key, contract, now)
	if err != nil {
		t.Fatalf("issue call token: %v", err)
	}
	authed := grpcmeta.WithBearerToken(ctx, token)
	authed = metadata.AppendToOutgoingContext(authed, grpcmeta.AcceptLanguageHeader, "pt-BR")

	_, err = client.ClaimSalary(authed, &payrollv1.ClaimSalaryRequest{})
	st, _ := status.FromError(err)
	if st.Code() != codes.FailedPrecondition {
		t.Fatalf("claim before join code = %v, want %v", st.Code(), codes.FailedPrecondition)
	}
	var localized *errdetails.LocalizedMessage
	for _, detail := range st.Details() {
		if msg, ok := detail.(*errdetails.LocalizedMessage); ok {
			localized = msg
		}
	}
	if localized == nil || localized.GetLocale() != "pt-BR" {
		t.Fatalf("localized = %v, want pt-BR message", localized)
	}
	if got := apperrors.CodeOf(apperrors.FromGRPC(err)); got != apperrors.CodeNotJoined {
		t.Fatalf("code = %s, want %s", got, apperrors.CodeNotJoined)
	}

	joined, err := client.JoinCountry(authed, &payrollv1.JoinCountryRequest{CountryId: 1, EncryptedCountry: countryHandle(7).String()})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if joined.CountryHandle != countryHandle(7).String() {
		t.Fatalf("country handle = %s", joined.CountryHandle)
	}
	has, err := client.HasJoined(ctx, &payrollv1.HasJoinedRequest{Identity: key.Address().String()})
	if err != nil || !has.Joined {
		t.Fatalf("has joined = %+v, %v; want true", has, err)
	}

	expired, err := identity.IssueCallToken(key, contract, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("issue call token: %v", err)
	}
	_, err = client.ClaimSalary(grpcmeta.WithBearerToken(ctx, expired), &payrollv1.ClaimSalaryRequest{})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expired token code = %v, want %v", status.Code(err), codes.Unauthenticated)
	}
}

func TestCiphertextServiceServesOnlyTheRelayer(t *testing.T) {
	now := time.Date(2026, time.March, 3, 12, 0, 0, 0, time.UTC)
	relayer := testKey(t, 0xee)
	h := countryHandle(4)
	reg := &fakeRegistry{
		data: map[handle.Handle][]byte{h: []byte("ct")},
		acl:  map[handle.Handle]map[string]bool{h: {"0xabc": true}},
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(
		grpcmeta.UnaryServerInterceptor(nil),
		CallerInterceptor(contract, relayer.Address(), func() time.Time { return now }),
	))
	payrollv1.RegisterCiphertextServiceServer(server, NewCiphertextService(reg))
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient(listener.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	client := payrollv1.NewCiphertextServiceClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = client.GetCiphertext(ctx, &payrollv1.GetCiphertextRequest{Handle: h.String()})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("anonymous get code = %v, want %v", status.Code(err), codes.Unauthenticated)
	}
	_, err = client.CheckAccess(ctx, &payrollv1.CheckAccessRequest{Handle: h.String(), Account: "0xabc"})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("anonymous check code = %v, want %v", status.Code(err), codes.Unauthenticated)
	}

	participantToken, err := identity.IssueCallToken(testKey(t, 9), contract, now)
	if err != nil {
		t.Fatalf("issue call token: %v", err)
	}
	_, err = client.GetCiphertext(grpcmeta.WithBearerToken(ctx, participantToken), &payrollv1.GetCiphertextRequest{Handle: h.String()})
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("participant get code = %v, want %v", status.Code(err), codes.PermissionDenied)
	}

	relayerToken, err := identity.IssueCallToken(relayer, contract, now)
	if err != nil {
		t.Fatalf("issue call token: %v", err)
	}
	authed := grpcmeta.WithBearerToken(ctx, relayerToken)
	got, err := client.GetCiphertext(authed, &payrollv1.GetCiphertextRequest{Handle: h.String()})
	if err != nil {
		t.Fatalf("relayer get: %v", err)
	}
	if string(got.Ciphertext) != "ct" {
		t.Fatalf("ciphertext = %q", got.Ciphertext)
	}
	access, err := client.CheckAccess(authed, &payrollv1.CheckAccessRequest{Handle: h.String(), Account: "0xabc"})
	if err != nil || !access.Allowed {
		t.Fatalf("relayer check = %+v, %v; want allowed", access, err)
	}

	otherContract, err := identity.IssueCallToken(relayer, testKey(t, 3).Address(), now)
	if err != nil {
		t.Fatalf("issue call token: %v", err)
	}
	_, err = client.GetCiphertext(grpcmeta.WithBearerToken(ctx, otherContract), &payrollv1.GetCiphertextRequest{Handle: h.String()})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("foreign audience code = %v, want %v", status.Code(err), codes.Unauthenticated)
	}
}
