//go:build integration_test || all_tests

package test

import (
	"context"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/pushups/internal/pushups/days"
	"github.com/2beens/pushups/internal/pushups/entries"
	"github.com/2beens/pushups/internal/pushups/streaks"
	"github.com/2beens/pushups/internal/users"
)

func (s *IntegrationTestSuite) createUser(ctx context.Context) *users.User {
	user, err := users.NewRepo(s.dbPool).Create(ctx, &users.User{
		Name:         gofakeit.Name(),
		Email:        gofakeit.Email(),
		PasswordHash: "hash",
		DailyGoal:    10,
		CreatedAt:    time.Now().UTC(),
	})
	s.Require().NoError(err)
	return user
}

func (s *IntegrationTestSuite) TestEntriesRepo_InsertUpsertsSameDay() {
	ctx := context.Background()
	t := s.T()

	user := s.createUser(ctx)
	repo := entries.NewRepo(s.dbPool)
	day, err := days.ParseDay("2024-03-10")
	require.NoError(t, err)

	_, err = repo.FindByDay(ctx, user.ID, day)
	assert.ErrorIs(t, err, entries.ErrNotFound)

	first, err := repo.Insert(ctx, entries.Entry{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Day:       day,
		Count:     5,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, day, first.Day)

	// a racing insert for the same day lands on the existing row
	second, err := repo.Insert(ctx, entries.Entry{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Day:       day,
		Count:     12,
		GoalMet:   true,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 12, second.Count)
	assert.True(t, second.GoalMet)

	found, err := repo.FindByDay(ctx, user.ID, day)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	all, err := repo.ListAll(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func (s *IntegrationTestSuite) TestEntriesRepo_ListBoundsAndDelete() {
	ctx := context.Background()
	t := s.T()

	user := s.createUser(ctx)
	other := s.createUser(ctx)
	repo := entries.NewRepo(s.dbPool)

	start, err := days.ParseDay("2024-01-01")
	require.NoError(t, err)
	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		e, err := repo.Insert(ctx, entries.Entry{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			Day:       start.AddDays(i),
			Count:     i,
			CreatedAt: time.Now().UTC(),
		})
		require.NoError(t, err)
		ids = append(ids, e.ID)
	}

	from, to := start.AddDays(1), start.AddDays(3)
	list, err := repo.List(ctx, user.ID, &from, &to)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, to, list[0].Day)
	assert.Equal(t, from, list[2].Day)

	list, err = repo.List(ctx, user.ID, nil, &from)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = repo.List(ctx, other.ID, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.ErrorIs(t, repo.Delete(ctx, other.ID, ids[0]), entries.ErrNotFound)
	require.NoError(t, repo.Delete(ctx, user.ID, ids[0]))
	_, err = repo.Get(ctx, user.ID, ids[0])
	assert.ErrorIs(t, err, entries.ErrNotFound)

	all, err := repo.ListAll(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, start.AddDays(1), all[0].Day)
}

func (s *IntegrationTestSuite) TestUsersRepo_SetStreaks() {
	ctx := context.Background()
	t := s.T()

	user := s.createUser(ctx)
	repo := users.NewRepo(s.dbPool)

	require.NoError(t, repo.SetStreaks(ctx, user.ID, streaks.State{Current: 4, Longest: 9}))

	stored, err := repo.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.CurrentStreak)
	assert.Equal(t, 9, stored.LongestStreak)

	_, err = repo.Get(ctx, user.ID+1000)
	assert.ErrorIs(t, err, users.ErrUserNotFound)
}
