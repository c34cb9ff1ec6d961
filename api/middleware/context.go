package middleware

import "context"

type contextKey string

const ctxLocale contextKey = "locale"

// LocaleFromContext returns the negotiated locale, or "" outside the
// Locale middleware.
func LocaleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxLocale).(string); ok {
		return v
	}
	return ""
}

// WithLocale injects the locale into the context for downstream handlers.
func WithLocale(ctx context.Context, loc string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxLocale, loc)
}
