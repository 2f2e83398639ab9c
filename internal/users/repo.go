package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/pushups/internal/pushups/streaks"
	"github.com/2beens/pushups/internal/telemetry/tracing"
	"github.com/2beens/pushups/pkg"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

const userColumns = `id, name, email, password_hash, daily_goal, timezone, current_streak, longest_streak, created_at`

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Create(ctx context.Context, user *User) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO pushups_user (name, email, password_hash, daily_goal, timezone, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+userColumns+`;`,
		user.Name, strings.ToLower(user.Email), user.PasswordHash, user.DailyGoal, user.Timezone, user.CreatedAt,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	created, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	span.SetAttributes(attribute.Int("user.id", created.ID))
	return created, nil
}

func (r *Repo) Get(ctx context.Context, id int) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT `+userColumns+` FROM pushups_user WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	return collectOne(rows)
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.getByEmail")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT `+userColumns+` FROM pushups_user WHERE email = $1;`,
		strings.ToLower(email),
	)
	if err != nil {
		return nil, fmt.Errorf("query user by email: %w", err)
	}

	return collectOne(rows)
}

func (r *Repo) UpdateProfile(ctx context.Context, user *User) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.updateProfile")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", user.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE pushups_user SET name = $1, daily_goal = $2, timezone = $3 WHERE id = $4;`,
		user.Name, user.DailyGoal, user.Timezone, user.ID,
	)
	if err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// SetStreaks unconditionally overwrites the stored streak state.
func (r *Repo) SetStreaks(ctx context.Context, id int, state streaks.State) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.setStreaks")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int("user.id", id),
		attribute.Int("streak.current", state.Current),
		attribute.Int("streak.longest", state.Longest),
	)

	tag, err := r.db.Exec(
		ctx,
		`UPDATE pushups_user SET current_streak = $1, longest_streak = $2 WHERE id = $3;`,
		state.Current, state.Longest, id,
	)
	if err != nil {
		return fmt.Errorf("set streaks: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (r *Repo) ListAll(ctx context.Context) (_ []User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.listAll")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM pushups_user ORDER BY id;`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}

	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (User, error) {
		u, err := scanUser(row)
		if err != nil {
			return User{}, err
		}
		return *u, nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect users: %w", err)
	}

	return users, nil
}

func collectOne(rows pgx.Rows) (*User, error) {
	user, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.CollectableRow) (*User, error) {
	var u User
	if err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.DailyGoal,
		&u.Timezone,
		&u.CurrentStreak,
		&u.LongestStreak,
		&u.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}
