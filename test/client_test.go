//go:build integration_test || all_tests

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"

	"github.com/2beens/pushups/internal/users"
)

func (s *IntegrationTestSuite) doRequest(
	ctx context.Context,
	method, path, token string,
	body any,
	headers map[string]string,
) (int, []byte) {
	t := s.T()

	var reqBody io.Reader
	if body != nil {
		bodyJson, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(bodyJson)
	}

	req, err := http.NewRequestWithContext(ctx, method, fmt.Sprintf("%s%s", serverEndpoint, path), reqBody)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, respBytes
}

func (s *IntegrationTestSuite) doRegister(ctx context.Context, dailyGoal int) (*users.AuthResponse, users.Registration) {
	t := s.T()

	reg := users.Registration{
		Name:      gofakeit.Name(),
		Email:     gofakeit.Email(),
		Password:  gofakeit.Password(true, true, true, false, false, 12),
		DailyGoal: dailyGoal,
	}
	status, respBytes := s.doRequest(ctx, http.MethodPost, "/users/register", "", reg, nil)
	require.Equal(t, http.StatusCreated, status, string(respBytes))

	var authResp users.AuthResponse
	require.NoError(t, json.Unmarshal(respBytes, &authResp))
	require.NotEmpty(t, authResp.Token)

	return &authResp, reg
}
