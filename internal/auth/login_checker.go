package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/2beens/pushups/internal/telemetry/tracing"
)

type LoginChecker struct {
	ttl         time.Duration
	redisClient *redis.Client
	now         func() time.Time
}

func NewLoginChecker(ttl time.Duration, redisClient *redis.Client) *LoginChecker {
	return &LoginChecker{
		ttl:         ttl,
		redisClient: redisClient,
		now:         time.Now,
	}
}

// UserForToken resolves a session token. ok is false for unknown or expired
// tokens; err is only set when redis fails.
func (c *LoginChecker) UserForToken(ctx context.Context, token string) (_ int, _ bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "loginChecker.userForToken")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	raw, err := c.redisClient.Get(ctx, sessionKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get session: %w", err)
	}

	session, err := decodeSession(raw)
	if err != nil {
		return 0, false, nil
	}

	if session.expired(c.ttl, c.now()) {
		return 0, false, nil
	}

	return session.UserID, true, nil
}
