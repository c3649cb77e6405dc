package redis

import (
	"context"
	"errors"
	"fmt"
)

type sessionKey struct{}

// WithSessionID returns a context carrying the session ID.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

// SessionIDFromContext returns the session ID carried by ctx, if any.
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// SessionIdentity resolves the signed-in user from "session:<id>" keys
// written by the platform's auth service.
type SessionIdentity struct {
	store Store
}

// NewSessionIdentity creates a new SessionIdentity.
func NewSessionIdentity(store Store) *SessionIdentity {
	return &SessionIdentity{store: store}
}

// CurrentUser implements engine.IdentityProvider. A missing or expired
// session means nobody is signed in.
func (s *SessionIdentity) CurrentUser(ctx context.Context) (string, bool, error) {
	sessionID := SessionIDFromContext(ctx)
	if sessionID == "" {
		return "", false, nil
	}

	userID, err := s.store.GetString(ctx, SessionKey(sessionID))
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("resolve session: %w", err)
	}
	if userID == "" {
		return "", false, nil
	}
	return userID, true, nil
}
