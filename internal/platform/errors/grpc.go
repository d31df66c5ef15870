package errors

import (
	stderrors "errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/louisbranch/fheworlds/internal/platform/errors/i18n"
)

// DefaultLocale is the default locale for error messages.
const DefaultLocale = i18n.BaseLocale

// HandleError converts domain errors to gRPC status for client responses.
// The user-facing message is rendered from the i18n catalog for locale.
func HandleError(err error, locale string) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok && !isDomain(err) {
		return err
	}
	var appErr *Error
	if stderrors.As(err, &appErr) {
		catalog := i18n.GetCatalog(localeOrDefault(locale))
		userMsg := catalog.Format(string(appErr.Code), appErr.Metadata)
		return appErr.ToGRPCStatus(catalog.Locale(), userMsg)
	}
	return status.Error(codes.Internal, "an unexpected error occurred")
}

// LocalizedMessage returns the code and user-facing message for err.
// Errors without a domain code render as UNKNOWN.
func LocalizedMessage(err error, locale string) (Code, string) {
	var appErr *Error
	if !stderrors.As(err, &appErr) {
		return CodeUnknown, i18n.GetCatalog(localeOrDefault(locale)).Format(string(CodeUnknown), nil)
	}
	return appErr.Code, i18n.GetCatalog(localeOrDefault(locale)).Format(string(appErr.Code), appErr.Metadata)
}

func isDomain(err error) bool {
	var appErr *Error
	return stderrors.As(err, &appErr)
}

func localeOrDefault(locale string) string {
	if locale == "" {
		return DefaultLocale
	}
	return locale
}
