package entries

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/pushups/internal/pushups/days"
	"github.com/2beens/pushups/internal/telemetry/tracing"
)

//go:generate mockgen -source=$GOFILE -destination=reconciler_mocks_test.go -package=entries_test

type entryStore interface {
	FindByDay(ctx context.Context, userID int, day days.Day) (*Entry, error)
	Insert(ctx context.Context, entry Entry) (*Entry, error)
	Update(ctx context.Context, entryID string, fields EntryFields) (*Entry, error)
}

// Reconciler keeps one entry per user per day: a submission for a day that
// already has an entry amends it instead of adding a second one.
type Reconciler struct {
	store entryStore
	newID func() string
	now   func() time.Time
}

func NewReconciler(store entryStore) *Reconciler {
	return &Reconciler{
		store: store,
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// Reconcile creates or amends the user's entry for day. created reports
// whether a new entry was inserted.
func (r *Reconciler) Reconcile(
	ctx context.Context,
	userID int,
	day days.Day,
	count int,
	dailyGoal int,
) (_ *Entry, created bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "reconciler.reconcile")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int("user.id", userID),
		attribute.String("entry.day", day.String()),
		attribute.Int("entry.count", count),
	)

	if count < 0 {
		return nil, false, fmt.Errorf("%w: negative count %d", ErrInvalidInput, count)
	}
	if dailyGoal < 0 {
		return nil, false, fmt.Errorf("%w: negative daily goal %d", ErrInvalidInput, dailyGoal)
	}

	goalMet := GoalMet(count, dailyGoal)

	existing, err := r.store.FindByDay(ctx, userID, day)
	switch {
	case err == nil:
		updated, err := r.store.Update(ctx, existing.ID, EntryFields{Count: count, GoalMet: goalMet})
		if err != nil {
			return nil, false, fmt.Errorf("%w: amend entry %s: %w", ErrStorage, existing.ID, err)
		}
		span.SetAttributes(attribute.Bool("entry.created", false))
		return updated, false, nil
	case errors.Is(err, ErrNotFound):
		// first submission for the day
	default:
		return nil, false, fmt.Errorf("%w: find entry: %w", ErrStorage, err)
	}

	inserted, err := r.store.Insert(ctx, Entry{
		ID:        r.newID(),
		UserID:    userID,
		Day:       day,
		Count:     count,
		GoalMet:   goalMet,
		CreatedAt: r.now().UTC(),
	})
	if err != nil {
		return nil, false, fmt.Errorf("%w: insert entry: %w", ErrStorage, err)
	}

	span.SetAttributes(attribute.Bool("entry.created", true))
	return inserted, true, nil
}
