package services

import (
	"context"

	"github.com/example/blacktie/internal/utils"
)

type sessionKey struct{}

// WithSession attaches the signed-in staff member to ctx. Audit entries
// written under ctx are attributed to them.
func WithSession(ctx context.Context, s utils.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session stored by WithSession.
func SessionFromContext(ctx context.Context) (utils.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(utils.Session)
	return s, ok
}
