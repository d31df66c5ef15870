// Package requestctx carries per-request caller attributes through context.
package requestctx

import "context"

type callerContextKey struct{}

type localeContextKey struct{}

// WithCaller stores the authenticated caller address in context.
func WithCaller(ctx context.Context, address string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, callerContextKey{}, address)
}

// CallerFromContext returns the authenticated caller address, or "".
func CallerFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(callerContextKey{}).(string)
	return value
}

// WithLocale stores the caller's preferred locale (an Accept-Language value).
func WithLocale(ctx context.Context, locale string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, localeContextKey{}, locale)
}

// LocaleFromContext returns the stored locale, or "".
func LocaleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(localeContextKey{}).(string)
	return value
}
