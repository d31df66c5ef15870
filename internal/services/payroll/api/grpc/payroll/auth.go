package payroll

import (
	"context"
	"time"

	"google.golang.org/grpc"

	payrollv1 "github.com/louisbranch/fheworlds/api/payroll/v1"
	"github.com/louisbranch/fheworlds/internal/identity"
	apperrors "github.com/louisbranch/fheworlds/internal/platform/errors"
	grpcmeta "github.com/louisbranch/fheworlds/internal/platform/grpc/metadata"
	"github.com/louisbranch/fheworlds/internal/platform/requestctx"
)

// authenticatedMethods require a call token; other methods accept one.
var authenticatedMethods = map[string]bool{
	payrollv1.PayrollService_JoinCountry_FullMethodName: true,
	payrollv1.PayrollService_ClaimSalary_FullMethodName: true,
}

// relayerMethods serve ciphertexts and access lists to the relayer only.
var relayerMethods = map[string]bool{
	payrollv1.CiphertextService_GetCiphertext_FullMethodName: true,
	payrollv1.CiphertextService_CheckAccess_FullMethodName:   true,
}

// CallerInterceptor verifies bearer call tokens addressed to contract and
// stores the caller address in context. CiphertextService calls must come
// from relayer.
func CallerInterceptor(contract, relayer identity.Address, now func() time.Time) grpc.UnaryServerInterceptor {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		token := grpcmeta.BearerTokenFromContext(ctx)
		if token == "" {
			if authenticatedMethods[info.FullMethod] || relayerMethods[info.FullMethod] {
				return nil, handleError(ctx, info.FullMethod, apperrors.New(apperrors.CodeUnauthenticated, "call token is required"))
			}
			return handler(ctx, req)
		}
		caller, err := identity.VerifyCallToken(token, contract, now())
		if err != nil {
			return nil, handleError(ctx, info.FullMethod, err)
		}
		if relayerMethods[info.FullMethod] && caller != relayer {
			return nil, handleError(ctx, info.FullMethod, apperrors.WithMetadata(apperrors.CodeAccessDenied,
				"ciphertexts are only served to the relayer", map[string]string{"Handle": requestedHandle(req)}))
		}
		return handler(requestctx.WithCaller(ctx, caller.String()), req)
	}
}

func requestedHandle(req any) string {
	switch r := req.(type) {
	case *payrollv1.GetCiphertextRequest:
		return r.Handle
	case *payrollv1.CheckAccessRequest:
		return r.Handle
	default:
		return ""
	}
}
