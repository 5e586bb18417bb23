package scheduler

import "context"

type userKey struct{}

// WithUser attaches an authenticated user id to a context.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// ContextIdentity resolves the current user from the request context.
// The API layer attaches the id after validating credentials.
type ContextIdentity struct{}

func (ContextIdentity) CurrentUser(ctx context.Context) (string, error) {
	id, ok := ctx.Value(userKey{}).(string)
	if !ok || id == "" {
		return "", ErrNotAuthenticated
	}
	return id, nil
}

// StaticIdentity always resolves the same user. Single-user deployments
// and tests.
type StaticIdentity string

func (s StaticIdentity) CurrentUser(ctx context.Context) (string, error) {
	if s == "" {
		return "", ErrNotAuthenticated
	}
	return string(s), nil
}
