package auth

import "context"

type bearerTokenKey struct{}

// WithBearerToken stores the caller's raw access token in ctx so downstream
// clients can act on the caller's behalf.
func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerTokenKey{}, token)
}

// BearerToken returns the caller's raw access token, or "" when none was stored
func BearerToken(ctx context.Context) string {
	if token, ok := ctx.Value(bearerTokenKey{}).(string); ok {
		return token
	}
	return ""
}
