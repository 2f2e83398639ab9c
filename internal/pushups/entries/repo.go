package entries

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/pushups/internal/pushups/days"
	"github.com/2beens/pushups/internal/telemetry/tracing"
)

const entryColumns = `id, user_id, day, count, goal_met, created_at`

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// FindByDay returns ErrNotFound when the user has no entry for the day.
func (r *Repo) FindByDay(ctx context.Context, userID int, day days.Day) (_ *Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.entries.findByDay")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID), attribute.String("entry.day", day.String()))

	rows, err := r.db.Query(
		ctx,
		`SELECT `+entryColumns+` FROM pushup_entry
			WHERE user_id = $1 AND day = $2
			ORDER BY created_at
			LIMIT 1;`,
		userID, day.Time(),
	)
	if err != nil {
		return nil, fmt.Errorf("query entry by day: %w", err)
	}

	return collectOne(rows)
}

// Insert stores a new entry. A concurrent insert for the same user and day
// is turned into an update of that row: last write wins on count.
func (r *Repo) Insert(ctx context.Context, entry Entry) (_ *Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.entries.insert")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", entry.UserID), attribute.String("entry.day", entry.Day.String()))

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO pushup_entry (id, user_id, day, count, goal_met, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (user_id, day) DO UPDATE
				SET count = EXCLUDED.count, goal_met = EXCLUDED.goal_met
			RETURNING `+entryColumns+`;`,
		entry.ID, entry.UserID, entry.Day.Time(), entry.Count, entry.GoalMet, entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}

	return collectOne(rows)
}

func (r *Repo) Update(ctx context.Context, entryID string, fields EntryFields) (_ *Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.entries.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("entry.id", entryID))

	rows, err := r.db.Query(
		ctx,
		`UPDATE pushup_entry SET count = $1, goal_met = $2
			WHERE id = $3
			RETURNING `+entryColumns+`;`,
		fields.Count, fields.GoalMet, entryID,
	)
	if err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}

	return collectOne(rows)
}

func (r *Repo) Delete(ctx context.Context, userID int, entryID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.entries.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID), attribute.String("entry.id", entryID))

	if !validID(entryID) {
		return ErrNotFound
	}

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM pushup_entry WHERE id = $1 AND user_id = $2;`,
		entryID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *Repo) Get(ctx context.Context, userID int, entryID string) (_ *Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.entries.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID), attribute.String("entry.id", entryID))

	if !validID(entryID) {
		return nil, ErrNotFound
	}

	rows, err := r.db.Query(
		ctx,
		`SELECT `+entryColumns+` FROM pushup_entry WHERE id = $1 AND user_id = $2;`,
		entryID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query entry: %w", err)
	}

	return collectOne(rows)
}

// ListAll returns the full history of the user in ascending day order.
func (r *Repo) ListAll(ctx context.Context, userID int) (_ []Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.entries.listAll")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))

	rows, err := r.db.Query(
		ctx,
		`SELECT `+entryColumns+` FROM pushup_entry WHERE user_id = $1 ORDER BY day, created_at;`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	return collectMany(rows)
}

// List returns entries newest first, optionally limited to an inclusive range.
func (r *Repo) List(ctx context.Context, userID int, from, to *days.Day) (_ []Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.entries.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))

	var fromTime, toTime *time.Time
	if from != nil {
		t := from.Time()
		fromTime = &t
	}
	if to != nil {
		t := to.Time()
		toTime = &t
	}

	rows, err := r.db.Query(
		ctx,
		`SELECT `+entryColumns+` FROM pushup_entry
			WHERE user_id = $1
				AND ($2::date IS NULL OR day >= $2::date)
				AND ($3::date IS NULL OR day <= $3::date)
			ORDER BY day DESC;`,
		userID, fromTime, toTime,
	)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}

	return collectMany(rows)
}

// ids are uuids, anything else can not match a row
func validID(entryID string) bool {
	return uuid.Validate(entryID) == nil
}

func collectOne(rows pgx.Rows) (*Entry, error) {
	entry, err := pgx.CollectExactlyOneRow(rows, scanEntry)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan entry: %w", err)
	}
	return &entry, nil
}

func collectMany(rows pgx.Rows) ([]Entry, error) {
	entries, err := pgx.CollectRows(rows, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("collect entries: %w", err)
	}
	return entries, nil
}

func scanEntry(row pgx.CollectableRow) (Entry, error) {
	var (
		e   Entry
		day time.Time
	)
	if err := row.Scan(
		&e.ID,
		&e.UserID,
		&day,
		&e.Count,
		&e.GoalMet,
		&e.CreatedAt,
	); err != nil {
		return Entry{}, err
	}
	e.Day = days.FromDate(day)
	return e, nil
}
