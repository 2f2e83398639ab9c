//go:build integration_test || all_tests

package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/pushups/internal/pushups/entries"
	"github.com/2beens/pushups/internal/pushups/streaks"
)

func utcDaysAgo(n int) string {
	return time.Now().UTC().AddDate(0, 0, -n).Format(time.DateOnly)
}

func (s *IntegrationTestSuite) submit(ctx context.Context, token string, date string, count int) (int, *entries.Result) {
	status, respBytes := s.doRequest(ctx, http.MethodPost, "/pushups", token, entries.SubmitRequest{
		Date:  date,
		Count: &count,
	}, map[string]string{entries.TimezoneHeader: "UTC"})
	if status != http.StatusOK && status != http.StatusCreated {
		return status, nil
	}

	var result entries.Result
	require.NoError(s.T(), json.Unmarshal(respBytes, &result))
	return status, &result
}

func (s *IntegrationTestSuite) TestPushups_StreakFlow() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t := s.T()
	registered, _ := s.doRegister(ctx, 20)
	token := registered.Token

	status, result := s.submit(ctx, token, utcDaysAgo(2), 25)
	require.Equal(t, http.StatusCreated, status)
	assert.True(t, result.Created)
	assert.True(t, result.Entry.GoalMet)
	// day before yesterday does not touch the current streak
	assert.Equal(t, 0, result.CurrentStreak)
	assert.Equal(t, 1, result.LongestStreak)

	status, result = s.submit(ctx, token, utcDaysAgo(1), 20)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, 2, result.CurrentStreak)
	assert.Equal(t, 2, result.LongestStreak)

	status, result = s.submit(ctx, token, "", 30)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, utcDaysAgo(0), result.Entry.Day.String())
	assert.Equal(t, 3, result.CurrentStreak)
	assert.Equal(t, 3, result.LongestStreak)
	todayEntryID := result.Entry.ID

	// second submission for today amends the same entry
	status, result = s.submit(ctx, token, "", 5)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, result.Created)
	assert.Equal(t, todayEntryID, result.Entry.ID)
	assert.Equal(t, 5, result.Entry.Count)
	assert.False(t, result.Entry.GoalMet)
	assert.Equal(t, 0, result.CurrentStreak)
	assert.Equal(t, 2, result.LongestStreak)

	status, respBytes := s.doRequest(ctx, http.MethodPut, "/pushups/"+todayEntryID, token, entries.UpdateRequest{
		Count: intPtr(40),
	}, nil)
	require.Equal(t, http.StatusOK, status, string(respBytes))
	var updated entries.Result
	require.NoError(t, json.Unmarshal(respBytes, &updated))
	assert.True(t, updated.Entry.GoalMet)
	assert.Equal(t, 3, updated.CurrentStreak)

	status, respBytes = s.doRequest(ctx, http.MethodGet, "/pushups/streaks", token, nil, nil)
	require.Equal(t, http.StatusOK, status)
	var state streaks.State
	require.NoError(t, json.Unmarshal(respBytes, &state))
	assert.Equal(t, streaks.State{Current: 3, Longest: 3}, state)

	status, respBytes = s.doRequest(ctx, http.MethodGet, "/pushups", token, nil, nil)
	require.Equal(t, http.StatusOK, status)
	var list entries.ListResponse
	require.NoError(t, json.Unmarshal(respBytes, &list))
	require.Equal(t, 3, list.Total)
	require.Len(t, list.Entries, 3)
	// newest first
	assert.Equal(t, utcDaysAgo(0), list.Entries[0].Day.String())
	assert.Equal(t, utcDaysAgo(2), list.Entries[2].Day.String())

	// removing yesterday breaks the current streak
	yesterdayID := list.Entries[1].ID
	status, respBytes = s.doRequest(ctx, http.MethodDelete, "/pushups/"+yesterdayID, token, nil, nil)
	require.Equal(t, http.StatusOK, status, string(respBytes))
	var deleted entries.Result
	require.NoError(t, json.Unmarshal(respBytes, &deleted))
	assert.Equal(t, 1, deleted.CurrentStreak)
	assert.Equal(t, 1, deleted.LongestStreak)

	status, _ = s.doRequest(ctx, http.MethodDelete, "/pushups/"+yesterdayID, token, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func (s *IntegrationTestSuite) TestPushups_ListBounds() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t := s.T()
	registered, _ := s.doRegister(ctx, 10)
	for i := 0; i < 5; i++ {
		status, _ := s.submit(ctx, registered.Token, utcDaysAgo(i), 10+i)
		require.Equal(t, http.StatusCreated, status)
	}

	path := fmt.Sprintf("/pushups?startDate=%s&endDate=%s", utcDaysAgo(3), utcDaysAgo(1))
	status, respBytes := s.doRequest(ctx, http.MethodGet, path, registered.Token, nil, nil)
	require.Equal(t, http.StatusOK, status)
	var list entries.ListResponse
	require.NoError(t, json.Unmarshal(respBytes, &list))
	require.Equal(t, 3, list.Total)
	assert.Equal(t, utcDaysAgo(1), list.Entries[0].Day.String())
	assert.Equal(t, utcDaysAgo(3), list.Entries[2].Day.String())

	status, _ = s.doRequest(ctx, http.MethodGet, "/pushups?startDate=yesterday", registered.Token, nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func (s *IntegrationTestSuite) TestPushups_OtherUsersEntries() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t := s.T()
	owner, _ := s.doRegister(ctx, 10)
	intruder, _ := s.doRegister(ctx, 10)

	status, result := s.submit(ctx, owner.Token, "", 15)
	require.Equal(t, http.StatusCreated, status)

	status, _ = s.doRequest(ctx, http.MethodPut, "/pushups/"+result.Entry.ID, intruder.Token, entries.UpdateRequest{
		Count: intPtr(0),
	}, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.doRequest(ctx, http.MethodDelete, "/pushups/"+result.Entry.ID, intruder.Token, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.doRequest(ctx, http.MethodDelete, "/pushups/not-an-id", owner.Token, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.submit(ctx, owner.Token, "", -1)
	assert.Equal(t, http.StatusBadRequest, status)
}

func intPtr(v int) *int {
	return &v
}
