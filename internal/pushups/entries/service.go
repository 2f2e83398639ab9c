package entries

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/pushups/internal/pushups/days"
	"github.com/2beens/pushups/internal/pushups/streaks"
	"github.com/2beens/pushups/internal/telemetry/metrics"
	"github.com/2beens/pushups/internal/telemetry/tracing"
	"github.com/2beens/pushups/internal/users"
)

//go:generate mockgen -source=$GOFILE -destination=service_mocks_test.go -package=entries_test

type userDirectory interface {
	Get(ctx context.Context, id int) (*users.User, error)
	ListAll(ctx context.Context) ([]users.User, error)
}

type entriesRepo interface {
	Get(ctx context.Context, userID int, entryID string) (*Entry, error)
	Update(ctx context.Context, entryID string, fields EntryFields) (*Entry, error)
	Delete(ctx context.Context, userID int, entryID string) error
	List(ctx context.Context, userID int, from, to *days.Day) ([]Entry, error)
}

// geoTimezone guesses a timezone from the client IP, "" when unknown.
type geoTimezone interface {
	Timezone(ctx context.Context, ip string) string
}

type ServiceParams struct {
	Users          userDirectory
	Entries        entriesRepo
	Reconciler     *Reconciler
	Orchestrator   *Orchestrator
	Normalizer     *days.Normalizer
	GeoTimezone    geoTimezone
	MetricsManager *metrics.Manager
}

// Service runs every mutation through normalize, reconcile, recompute.
type Service struct {
	users          userDirectory
	entries        entriesRepo
	reconciler     *Reconciler
	orchestrator   *Orchestrator
	normalizer     *days.Normalizer
	geoTimezone    geoTimezone
	metricsManager *metrics.Manager
}

func NewService(params ServiceParams) *Service {
	return &Service{
		users:          params.Users,
		entries:        params.Entries,
		reconciler:     params.Reconciler,
		orchestrator:   params.Orchestrator,
		normalizer:     params.Normalizer,
		geoTimezone:    params.GeoTimezone,
		metricsManager: params.MetricsManager,
	}
}

func (s *Service) Submit(ctx context.Context, userID int, req SubmitRequest) (_ *Result, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.entries.submit")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))

	if err := validateCount(req.Count); err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	hint := s.resolveTimezone(ctx, req.Timezone, user, req.ClientIP)
	normalized, err := s.normalizer.Normalize(req.Date, hint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	s.noteFallback(userID, normalized)

	entry, created, err := s.reconciler.Reconcile(ctx, userID, normalized.Day, *req.Count, user.DailyGoal)
	if err != nil {
		return nil, fmt.Errorf("reconcile entry: %w", err)
	}
	if created {
		s.metricsManager.CounterEntriesCreated.Inc()
	} else {
		s.metricsManager.CounterEntriesAmended.Inc()
	}

	state, err := s.recompute(ctx, userID, hint)
	if err != nil {
		return nil, err
	}

	return &Result{
		Entry:            entry,
		CurrentStreak:    state.Current,
		LongestStreak:    state.Longest,
		Created:          created,
		TimezoneFallback: normalized.Fallback,
	}, nil
}

// Update changes the count of an existing entry and re-derives goalMet
// against the user's current daily goal.
func (s *Service) Update(ctx context.Context, userID int, entryID string, req UpdateRequest) (_ *Result, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.entries.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID), attribute.String("entry.id", entryID))

	if err := validateCount(req.Count); err != nil {
		return nil, err
	}
	count := *req.Count

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	existing, err := s.entries.Get(ctx, userID, entryID)
	if err != nil {
		return nil, storageErr("get entry", err)
	}

	updated, err := s.entries.Update(ctx, existing.ID, EntryFields{
		Count:   count,
		GoalMet: GoalMet(count, user.DailyGoal),
	})
	if err != nil {
		return nil, storageErr("update entry", err)
	}
	s.metricsManager.CounterEntriesAmended.Inc()

	hint := s.resolveTimezone(ctx, req.Timezone, user, req.ClientIP)
	today := s.normalizer.Today(hint)
	s.noteFallback(userID, today)

	state, err := s.recompute(ctx, userID, hint)
	if err != nil {
		return nil, err
	}

	return &Result{
		Entry:            updated,
		CurrentStreak:    state.Current,
		LongestStreak:    state.Longest,
		TimezoneFallback: today.Fallback,
	}, nil
}

func (s *Service) Delete(ctx context.Context, userID int, entryID string, req DeleteRequest) (_ *Result, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.entries.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID), attribute.String("entry.id", entryID))

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.entries.Delete(ctx, userID, entryID); err != nil {
		return nil, storageErr("delete entry", err)
	}
	s.metricsManager.CounterEntriesDeleted.Inc()

	hint := s.resolveTimezone(ctx, req.Timezone, user, req.ClientIP)
	today := s.normalizer.Today(hint)
	s.noteFallback(userID, today)

	state, err := s.recompute(ctx, userID, hint)
	if err != nil {
		return nil, err
	}

	return &Result{
		CurrentStreak:    state.Current,
		LongestStreak:    state.Longest,
		TimezoneFallback: today.Fallback,
	}, nil
}

// List returns the user's entries newest first. Empty bounds are open.
func (s *Service) List(ctx context.Context, userID int, startDate, endDate string) (_ []Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.entries.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))

	from, err := optionalDay(startDate)
	if err != nil {
		return nil, err
	}
	to, err := optionalDay(endDate)
	if err != nil {
		return nil, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, fmt.Errorf("%w: endDate before startDate", ErrInvalidInput)
	}

	list, err := s.entries.List(ctx, userID, from, to)
	if err != nil {
		return nil, storageErr("list entries", err)
	}
	if list == nil {
		list = []Entry{}
	}

	return list, nil
}

// Streaks returns the stored streak state without recomputing it.
func (s *Service) Streaks(ctx context.Context, userID int) (_ streaks.State, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.entries.streaks")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return streaks.State{}, err
	}
	return user.Streaks(), nil
}

// RecomputeAll refreshes the streaks of every user, e.g. after a day rolled
// over for users who did not log anything. Per user failures are logged and
// skipped; the number of recomputed users is returned.
func (s *Service) RecomputeAll(ctx context.Context, timezone string) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.entries.recomputeAll")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	all, err := s.users.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: list users: %w", ErrStorage, err)
	}

	recomputed := 0
	var failed []error
	for _, u := range all {
		if err := ctx.Err(); err != nil {
			return recomputed, err
		}
		if _, err := s.orchestrator.Recompute(ctx, u.ID, timezone); err != nil {
			log.Errorf("recompute streaks for user %d: %s", u.ID, err)
			failed = append(failed, err)
			continue
		}
		recomputed++
	}
	span.SetAttributes(attribute.Int("users.recomputed", recomputed), attribute.Int("users.failed", len(failed)))

	if len(failed) > 0 && recomputed == 0 {
		return 0, errors.Join(failed...)
	}
	return recomputed, nil
}

func (s *Service) getUser(ctx context.Context, userID int) (*users.User, error) {
	user, err := s.users.Get(ctx, userID)
	if errors.Is(err, users.ErrUserNotFound) {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get user: %w", ErrStorage, err)
	}
	return user, nil
}

// resolveTimezone picks the first usable hint: the request, the profile, then
// the client IP. "" lets the normalizer fall back to the default zone.
func (s *Service) resolveTimezone(ctx context.Context, requested string, user *users.User, clientIP string) string {
	requested = strings.TrimSpace(requested)
	if days.ValidZone(requested) {
		return requested
	}
	if requested != "" {
		log.Warnf("user %d sent unknown timezone [%s]", user.ID, requested)
	}

	if days.ValidZone(user.Timezone) {
		return user.Timezone
	}

	if s.geoTimezone != nil && clientIP != "" {
		if tz := s.geoTimezone.Timezone(ctx, clientIP); days.ValidZone(tz) {
			return tz
		}
	}

	return ""
}

// recompute runs after the entry write has committed. On failure the entry
// stays and the stored streaks are stale until the next mutation or a
// pushupctl recompute run re-derives them from the full history.
func (s *Service) recompute(ctx context.Context, userID int, hint string) (streaks.State, error) {
	state, err := s.orchestrator.Recompute(ctx, userID, hint)
	if err != nil {
		log.Errorf("user %d: entry written, streaks left stale: %s", userID, err)
		s.metricsManager.CounterStaleStreaks.Inc()
		return streaks.State{}, fmt.Errorf("recompute streaks: %w", err)
	}
	return state, nil
}

func (s *Service) noteFallback(userID int, normalized days.Normalized) {
	if !normalized.Fallback {
		return
	}
	log.Warnf("user %d: no usable timezone, day %s derived in default zone %s", userID, normalized.Day, normalized.Zone)
	s.metricsManager.CounterTimezoneFallbacks.Inc()
}

func optionalDay(raw string) (*days.Day, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := days.ParseDay(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return &d, nil
}

func storageErr(op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
