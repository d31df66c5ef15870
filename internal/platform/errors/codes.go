// Package errors provides structured error handling with i18n support.
package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Membership and payroll errors
	CodeUnsupportedCountry   Code = "UNSUPPORTED_COUNTRY"
	CodeAlreadyJoined        Code = "ALREADY_JOINED"
	CodeNotJoined            Code = "NOT_JOINED"
	CodeSalaryAlreadyClaimed Code = "SALARY_ALREADY_CLAIMED"

	// Encrypted input errors
	CodeProofInvalid Code = "PROOF_INVALID"

	// Decryption authorization errors
	CodeAuthorizationExpired          Code = "AUTHORIZATION_EXPIRED"
	CodeAuthorizationSignatureInvalid Code = "AUTHORIZATION_SIGNATURE_INVALID"
	CodeAuthorizationRequestInvalid   Code = "AUTHORIZATION_REQUEST_INVALID"
	CodeAccessDenied                  Code = "ACCESS_DENIED"

	// Caller errors
	CodeUnauthenticated Code = "UNAUTHENTICATED"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeUnsupportedCountry,
		CodeProofInvalid,
		CodeAuthorizationRequestInvalid:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeNotJoined,
		CodeSalaryAlreadyClaimed,
		CodeAuthorizationExpired:
		return codes.FailedPrecondition

	// AlreadyExists - unique resource constraint
	case CodeAlreadyJoined:
		return codes.AlreadyExists

	// PermissionDenied - authenticated but not allowed
	case CodeAccessDenied:
		return codes.PermissionDenied

	// Unauthenticated - caller or grant signature could not be verified
	case CodeUnauthenticated,
		CodeAuthorizationSignatureInvalid:
		return codes.Unauthenticated

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return codes.NotFound

	default:
		return codes.Internal
	}
}

// HTTPStatus maps domain codes to HTTP status codes for the relayer surface.
func (c Code) HTTPStatus() int {
	switch c.GRPCCode() {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.FailedPrecondition:
		return http.StatusPreconditionFailed
	case codes.AlreadyExists:
		return http.StatusConflict
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
