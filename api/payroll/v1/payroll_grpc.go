package payrollv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	platformgrpc "github.com/louisbranch/fheworlds/internal/platform/grpc"
)

const (
	PayrollServiceName    = "fheworlds.payroll.v1.PayrollService"
	CiphertextServiceName = "fheworlds.payroll.v1.CiphertextService"

	PayrollService_GetContractInfo_FullMethodName         = "/" + PayrollServiceName + "/GetContractInfo"
	PayrollService_ListSupportedCountryIds_FullMethodName = "/" + PayrollServiceName + "/ListSupportedCountryIds"
	PayrollService_HasJoined_FullMethodName               = "/" + PayrollServiceName + "/HasJoined"
	PayrollService_GetEncryptedCountry_FullMethodName     = "/" + PayrollServiceName + "/GetEncryptedCountry"
	PayrollService_GetEncryptedSalary_FullMethodName      = "/" + PayrollServiceName + "/GetEncryptedSalary"
	PayrollService_JoinCountry_FullMethodName             = "/" + PayrollServiceName + "/JoinCountry"
	PayrollService_ClaimSalary_FullMethodName             = "/" + PayrollServiceName + "/ClaimSalary"

	CiphertextService_GetCiphertext_FullMethodName = "/" + CiphertextServiceName + "/GetCiphertext"
	CiphertextService_CheckAccess_FullMethodName   = "/" + CiphertextServiceName + "/CheckAccess"
)

// PayrollServiceServer is the server API for PayrollService.
type PayrollServiceServer interface {
	GetContractInfo(context.Context, *GetContractInfoRequest) (*GetContractInfoResponse, error)
	ListSupportedCountryIds(context.Context, *ListSupportedCountryIdsRequest) (*ListSupportedCountryIdsResponse, error)
	HasJoined(context.Context, *HasJoinedRequest) (*HasJoinedResponse, error)
	GetEncryptedCountry(context.Context, *GetEncryptedCountryRequest) (*GetEncryptedCountryResponse, error)
	GetEncryptedSalary(context.Context, *GetEncryptedSalaryRequest) (*GetEncryptedSalaryResponse, error)
	JoinCountry(context.Context, *JoinCountryRequest) (*JoinCountryResponse, error)
	ClaimSalary(context.Context, *ClaimSalaryRequest) (*ClaimSalaryResponse, error)
}

// UnimplementedPayrollServiceServer answers every method with Unimplemented.
type UnimplementedPayrollServiceServer struct{}

func (UnimplementedPayrollServiceServer) GetContractInfo(context.Context, *GetContractInfoRequest) (*GetContractInfoResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetContractInfo not implemented")
}

func (UnimplementedPayrollServiceServer) ListSupportedCountryIds(context.Context, *ListSupportedCountryIdsRequest) (*ListSupportedCountryIdsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListSupportedCountryIds not implemented")
}

func (UnimplementedPayrollServiceServer) HasJoined(context.Context, *HasJoinedRequest) (*HasJoinedResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method HasJoined not implemented")
}

func (UnimplementedPayrollServiceServer) GetEncryptedCountry(context.Context, *GetEncryptedCountryRequest) (*GetEncryptedCountryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetEncryptedCountry not implemented")
}

func (UnimplementedPayrollServiceServer) GetEncryptedSalary(context.Context, *GetEncryptedSalaryRequest) (*GetEncryptedSalaryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetEncryptedSalary not implemented")
}

func (UnimplementedPayrollServiceServer) JoinCountry(context.Context, *JoinCountryRequest) (*JoinCountryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method JoinCountry not implemented")
}

func (UnimplementedPayrollServiceServer) ClaimSalary(context.Context, *ClaimSalaryRequest) (*ClaimSalaryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ClaimSalary not implemented")
}

// RegisterPayrollServiceServer registers srv on s.
func RegisterPayrollServiceServer(s grpc.ServiceRegistrar, srv PayrollServiceServer) {
	s.RegisterService(&PayrollService_ServiceDesc, srv)
}

// PayrollService_ServiceDesc describes PayrollService for grpc.Server.
var PayrollService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: PayrollServiceName,
	HandlerType: (*PayrollServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetContractInfo", Handler: unaryHandler(PayrollService_GetContractInfo_FullMethodName, PayrollServiceServer.GetContractInfo)},
		{MethodName: "ListSupportedCountryIds", Handler: unaryHandler(PayrollService_ListSupportedCountryIds_FullMethodName, PayrollServiceServer.ListSupportedCountryIds)},
		{MethodName: "HasJoined", Handler: unaryHandler(PayrollService_HasJoined_FullMethodName, PayrollServiceServer.HasJoined)},
		{MethodName: "GetEncryptedCountry", Handler: unaryHandler(PayrollService_GetEncryptedCountry_FullMethodName, PayrollServiceServer.GetEncryptedCountry)},
		{MethodName: "GetEncryptedSalary", Handler: unaryHandler(PayrollService_GetEncryptedSalary_FullMethodName, PayrollServiceServer.GetEncryptedSalary)},
		{MethodName: "JoinCountry", Handler: unaryHandler(PayrollService_JoinCountry_FullMethodName, PayrollServiceServer.JoinCountry)},
		{MethodName: "ClaimSalary", Handler: unaryHandler(PayrollService_ClaimSalary_FullMethodName, PayrollServiceServer.ClaimSalary)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "payroll/v1/payroll.proto",
}

// CiphertextServiceServer is the server API for CiphertextService.
type CiphertextServiceServer interface {
	GetCiphertext(context.Context, *GetCiphertextRequest) (*GetCiphertextResponse, error)
	CheckAccess(context.Context, *CheckAccessRequest) (*CheckAccessResponse, error)
}

// RegisterCiphertextServiceServer registers srv on s.
func RegisterCiphertextServiceServer(s grpc.ServiceRegistrar, srv CiphertextServiceServer) {
	s.RegisterService(&CiphertextService_ServiceDesc, srv)
}

// CiphertextService_ServiceDesc describes CiphertextService for grpc.Server.
var CiphertextService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: CiphertextServiceName,
	HandlerType: (*CiphertextServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetCiphertext", Handler: unaryHandler(CiphertextService_GetCiphertext_FullMethodName, CiphertextServiceServer.GetCiphertext)},
		{MethodName: "CheckAccess", Handler: unaryHandler(CiphertextService_CheckAccess_FullMethodName, CiphertextServiceServer.CheckAccess)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "payroll/v1/payroll.proto",
}

func unaryHandler[S any, Req any, Resp any](fullMethod string, call func(S, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(S), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(S), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// PayrollServiceClient is the client API for PayrollService.
type PayrollServiceClient interface {
	GetContractInfo(ctx context.Context, in *GetContractInfoRequest, opts ...grpc.CallOption) (*GetContractInfoResponse, error)
	ListSupportedCountryIds(ctx context.Context, in *ListSupportedCountryIdsRequest, opts ...grpc.CallOption) (*ListSupportedCountryIdsResponse, error)
	HasJoined(ctx context.Context, in *HasJoinedRequest, opts ...grpc.CallOption) (*HasJoinedResponse, error)
	GetEncryptedCountry(ctx context.Context, in *GetEncryptedCountryRequest, opts ...grpc.CallOption) (*GetEncryptedCountryResponse, error)
	GetEncryptedSalary(ctx context.Context, in *GetEncryptedSalaryRequest, opts ...grpc.CallOption) (*GetEncryptedSalaryResponse, error)
	JoinCountry(ctx context.Context, in *JoinCountryRequest, opts ...grpc.CallOption) (*JoinCountryResponse, error)
	ClaimSalary(ctx context.Context, in *ClaimSalaryRequest, opts ...grpc.CallOption) (*ClaimSalaryResponse, error)
}

type payrollServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewPayrollServiceClient returns a PayrollService client on cc.
func NewPayrollServiceClient(cc grpc.ClientConnInterface) PayrollServiceClient {
	return &payrollServiceClient{cc: cc}
}

func (c *payrollServiceClient) GetContractInfo(ctx context.Context, in *GetContractInfoRequest, opts ...grpc.CallOption) (*GetContractInfoResponse, error) {
	return invoke[GetContractInfoResponse](ctx, c.cc, PayrollService_GetContractInfo_FullMethodName, in, opts)
}

func (c *payrollServiceClient) ListSupportedCountryIds(ctx context.Context, in *ListSupportedCountryIdsRequest, opts ...grpc.CallOption) (*ListSupportedCountryIdsResponse, error) {
	return invoke[ListSupportedCountryIdsResponse](ctx, c.cc, PayrollService_ListSupportedCountryIds_FullMethodName, in, opts)
}

func (c *payrollServiceClient) HasJoined(ctx context.Context, in *HasJoinedRequest, opts ...grpc.CallOption) (*HasJoinedResponse, error) {
	return invoke[HasJoinedResponse](ctx, c.cc, PayrollService_HasJoined_FullMethodName, in, opts)
}

func (c *payrollServiceClient) GetEncryptedCountry(ctx context.Context, in *GetEncryptedCountryRequest, opts ...grpc.CallOption) (*GetEncryptedCountryResponse, error) {
	return invoke[GetEncryptedCountryResponse](ctx, c.cc, PayrollService_GetEncryptedCountry_FullMethodName, in, opts)
}

func (c *payrollServiceClient) GetEncryptedSalary(ctx context.Context, in *GetEncryptedSalaryRequest, opts ...grpc.CallOption) (*GetEncryptedSalaryResponse, error) {
	return invoke[GetEncryptedSalaryResponse](ctx, c.cc, PayrollService_GetEncryptedSalary_FullMethodName, in, opts)
}

func (c *payrollServiceClient) JoinCountry(ctx context.Context, in *JoinCountryRequest, opts ...grpc.CallOption) (*JoinCountryResponse, error) {
	return invoke[JoinCountryResponse](ctx, c.cc, PayrollService_JoinCountry_FullMethodName, in, opts)
}

func (c *payrollServiceClient) ClaimSalary(ctx context.Context, in *ClaimSalaryRequest, opts ...grpc.CallOption) (*ClaimSalaryResponse, error) {
	return invoke[ClaimSalaryResponse](ctx, c.cc, PayrollService_ClaimSalary_FullMethodName, in, opts)
}

// CiphertextServiceClient is the client API for CiphertextService.
type CiphertextServiceClient interface {
	GetCiphertext(ctx context.Context, in *GetCiphertextRequest, opts ...grpc.CallOption) (*GetCiphertextResponse, error)
	CheckAccess(ctx context.Context, in *CheckAccessRequest, opts ...grpc.CallOption) (*CheckAccessResponse, error)
}

type ciphertextServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewCiphertextServiceClient returns a CiphertextService client on cc.
func NewCiphertextServiceClient(cc grpc.ClientConnInterface) CiphertextServiceClient {
	return &ciphertextServiceClient{cc: cc}
}

func (c *ciphertextServiceClient) GetCiphertext(ctx context.Context, in *GetCiphertextRequest, opts ...grpc.CallOption) (*GetCiphertextResponse, error) {
	return invoke[GetCiphertextResponse](ctx, c.cc, CiphertextService_GetCiphertext_FullMethodName, in, opts)
}

func (c *ciphertextServiceClient) CheckAccess(ctx context.Context, in *CheckAccessRequest, opts ...grpc.CallOption) (*CheckAccessResponse, error) {
	return invoke[CheckAccessResponse](ctx, c.cc, CiphertextService_CheckAccess_FullMethodName, in, opts)
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	callOpts := append([]grpc.CallOption{grpc.CallContentSubtype(platformgrpc.CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, callOpts...); err != nil {
		return nil, err
	}
	return out, nil
}
