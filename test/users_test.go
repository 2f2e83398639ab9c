//go:build integration_test || all_tests

package test

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/pushups/internal/users"
)

func (s *IntegrationTestSuite) TestUsers_RegisterLoginLogout() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t := s.T()
	registered, reg := s.doRegister(ctx, 30)
	assert.Equal(t, reg.Email, registered.User.Email)
	assert.Equal(t, 30, registered.User.DailyGoal)

	// same email again
	status, _ := s.doRequest(ctx, http.MethodPost, "/users/register", "", reg, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = s.doRequest(ctx, http.MethodPost, "/users/login", "", users.Credentials{
		Email:    reg.Email,
		Password: reg.Password + "x",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, respBytes := s.doRequest(ctx, http.MethodPost, "/users/login", "", users.Credentials{
		Email:    reg.Email,
		Password: reg.Password,
	}, nil)
	require.Equal(t, http.StatusOK, status, string(respBytes))

	var loginResp users.AuthResponse
	require.NoError(t, json.Unmarshal(respBytes, &loginResp))
	require.NotEmpty(t, loginResp.Token)
	assert.NotEqual(t, registered.Token, loginResp.Token)

	status, respBytes = s.doRequest(ctx, http.MethodGet, "/users/profile", loginResp.Token, nil, nil)
	require.Equal(t, http.StatusOK, status)
	var profile users.User
	require.NoError(t, json.Unmarshal(respBytes, &profile))
	assert.Equal(t, registered.User.ID, profile.ID)
	assert.Empty(t, profile.PasswordHash)

	status, _ = s.doRequest(ctx, http.MethodPost, "/users/logout", loginResp.Token, nil, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = s.doRequest(ctx, http.MethodGet, "/users/profile", loginResp.Token, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// the registration session is still alive
	status, _ = s.doRequest(ctx, http.MethodGet, "/users/profile", registered.Token, nil, nil)
	assert.Equal(t, http.StatusOK, status)
}

func (s *IntegrationTestSuite) TestUsers_UpdateProfile() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t := s.T()
	registered, _ := s.doRegister(ctx, 10)

	goal := 50
	timezone := "Europe/Berlin"
	status, respBytes := s.doRequest(ctx, http.MethodPut, "/users/profile", registered.Token, users.ProfileUpdate{
		DailyGoal: &goal,
		Timezone:  &timezone,
	}, nil)
	require.Equal(t, http.StatusOK, status, string(respBytes))

	var profile users.User
	require.NoError(t, json.Unmarshal(respBytes, &profile))
	assert.Equal(t, 50, profile.DailyGoal)
	assert.Equal(t, "Europe/Berlin", profile.Timezone)

	bogus := "Mars/Olympus_Mons"
	status, _ = s.doRequest(ctx, http.MethodPut, "/users/profile", registered.Token, users.ProfileUpdate{
		Timezone: &bogus,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func (s *IntegrationTestSuite) TestPublicRoutes() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t := s.T()
	status, respBytes := s.doRequest(ctx, http.MethodGet, "/", "", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(respBytes), "I'm OK")

	status, respBytes = s.doRequest(ctx, http.MethodGet, "/quote/random", "", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(respBytes), "author")

	status, _ = s.doRequest(ctx, http.MethodGet, "/pushups", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}
