package entries

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/pushups/internal/pushups/days"
	"github.com/2beens/pushups/internal/pushups/streaks"
	"github.com/2beens/pushups/internal/telemetry/metrics"
	"github.com/2beens/pushups/internal/telemetry/tracing"
	"github.com/2beens/pushups/internal/users"
)

//go:generate mockgen -source=$GOFILE -destination=orchestrator_mocks_test.go -package=entries_test

type userStore interface {
	Get(ctx context.Context, id int) (*users.User, error)
	SetStreaks(ctx context.Context, id int, state streaks.State) error
}

type historyStore interface {
	ListAll(ctx context.Context, userID int) ([]Entry, error)
}

// Orchestrator recomputes a user's streaks from the full history and stores
// them on the user record. Nothing is written unless every read succeeded.
type Orchestrator struct {
	users          userStore
	history        historyStore
	normalizer     *days.Normalizer
	metricsManager *metrics.Manager
}

func NewOrchestrator(
	userRecords userStore,
	history historyStore,
	normalizer *days.Normalizer,
	metricsManager *metrics.Manager,
) *Orchestrator {
	return &Orchestrator{
		users:          userRecords,
		history:        history,
		normalizer:     normalizer,
		metricsManager: metricsManager,
	}
}

// Recompute derives today from timezoneHint, falling back to the user's
// profile timezone when the hint is empty.
func (o *Orchestrator) Recompute(ctx context.Context, userID int, timezoneHint string) (_ streaks.State, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "orchestrator.recompute")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))

	defer func(begin time.Time) {
		o.metricsManager.HistRecomputeDuration.Observe(time.Since(begin).Seconds())
	}(time.Now())

	user, err := o.users.Get(ctx, userID)
	if errors.Is(err, users.ErrUserNotFound) {
		return streaks.State{}, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	if err != nil {
		return streaks.State{}, fmt.Errorf("%w: get user: %w", ErrStorage, err)
	}

	all, err := o.history.ListAll(ctx, userID)
	if err != nil {
		return streaks.State{}, fmt.Errorf("%w: list history: %w", ErrStorage, err)
	}

	if timezoneHint == "" {
		timezoneHint = user.Timezone
	}
	today := o.normalizer.Today(timezoneHint)
	if today.Fallback {
		log.Debugf("recompute streaks for user %d: no usable timezone, using %s", userID, today.Zone)
	}

	state := streaks.Compute(History(all), today.Day)
	span.SetAttributes(
		attribute.Int("streak.current", state.Current),
		attribute.Int("streak.longest", state.Longest),
		attribute.String("today", today.Day.String()),
	)

	if err := o.users.SetStreaks(ctx, userID, state); err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return streaks.State{}, fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}
		return streaks.State{}, fmt.Errorf("%w: set streaks: %w", ErrStorage, err)
	}

	o.metricsManager.CounterStreakRecomputes.Inc()
	return state, nil
}
