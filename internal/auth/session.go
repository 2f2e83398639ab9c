package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultTTL       = 24 * 7 * time.Hour
	sessionKeyPrefix = "pushups-session||"
	tokensSetKey     = "pushups-sessions"
	tokenLength      = 35
)

var ErrInvalidSession = errors.New("invalid session")

// Session is what a token resolves to, stored as "<userId>:<createdAtUnix>".
type Session struct {
	UserID    int
	CreatedAt time.Time
}

func (s Session) encode() string {
	return fmt.Sprintf("%d:%d", s.UserID, s.CreatedAt.Unix())
}

func decodeSession(raw string) (Session, error) {
	userIDStr, createdAtStr, found := strings.Cut(raw, ":")
	if !found {
		return Session{}, fmt.Errorf("%w: [%s]", ErrInvalidSession, raw)
	}
	userID, err := strconv.Atoi(userIDStr)
	if err != nil || userID <= 0 {
		return Session{}, fmt.Errorf("%w: user id [%s]", ErrInvalidSession, userIDStr)
	}
	createdAtUnix, err := strconv.ParseInt(createdAtStr, 10, 64)
	if err != nil {
		return Session{}, fmt.Errorf("%w: created at [%s]", ErrInvalidSession, createdAtStr)
	}
	return Session{
		UserID:    userID,
		CreatedAt: time.Unix(createdAtUnix, 0),
	}, nil
}

func (s Session) expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(s.CreatedAt) > ttl
}

type ctxKey struct{}

type Identity struct {
	UserID int
	Token  string
}

func ContextWithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(ctxKey{}).(Identity)
	return identity, ok
}
