package domain

import "context"

// ContextKey is a type for context keys to avoid magic strings
type ContextKey string

const (
	// ContextKeySubject is the key for the subject (account ID) in the context
	ContextKeySubject ContextKey = "sub"
	// ContextKeyTokenID is the key for the access token's jti in the context
	ContextKeyTokenID ContextKey = "jti"
	// ContextKeyAccessToken is the key for the raw bearer token in the context
	ContextKeyAccessToken ContextKey = "access_token"
)

// WithSubject adds the subject (account ID) to the context
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, ContextKeySubject, subject)
}

// WithTokenID adds the access token id to the context
func WithTokenID(ctx context.Context, tokenID string) context.Context {
	return context.WithValue(ctx, ContextKeyTokenID, tokenID)
}

// WithAccessToken adds the raw bearer token to the context
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ContextKeyAccessToken, token)
}

// GetSubject retrieves the subject (account ID) from the context
func GetSubject(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(ContextKeySubject).(string)
	return subject, ok
}

// GetTokenID retrieves the access token id from the context
func GetTokenID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ContextKeyTokenID).(string)
	return id, ok
}

// GetAccessToken retrieves the raw bearer token from the context
func GetAccessToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(ContextKeyAccessToken).(string)
	return token, ok
}
