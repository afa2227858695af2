package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/thorin/workoutapp/internal/users"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) TestSignupAndLogin() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	user := s.signupAndLogin(ctx, t, "gimli")
	assert.NotEmpty(t, user.RefreshToken)
	assert.NotEmpty(t, user.AccessToken)
}

func (s *IntegrationTestSuite) TestSignup_UsernameTaken() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.doSignup(ctx, t, "balin", "pass-balin", "salt-balin")

	signupJson, err := json.Marshal(users.SignupRequest{
		Username:     "balin",
		PasswordHash: "some-other-hash",
		PasswordSalt: "some-other-salt",
	})
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/users/signup", serverEndpoint), bytes.NewBuffer(signupJson))
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var conflict users.ConflictResponse
	require.NoError(t, json.Unmarshal(respBytes, &conflict))
	assert.Equal(t, "username", conflict.Column)
	assert.Equal(t, "balin", conflict.Value)
}

func (s *IntegrationTestSuite) TestSalt_UnknownUsername() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/users/salt?username=nobody", serverEndpoint), nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func (s *IntegrationTestSuite) TestLogin_WrongPassword() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	user := s.doSignup(ctx, t, "dwalin", "pass-dwalin", "salt-dwalin")

	loginJson, err := json.Marshal(users.LoginRequest{
		Username:     user.Username,
		PasswordHash: hashPassword("wrong-password", user.Salt),
	})
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/users/login", serverEndpoint), bytes.NewBuffer(loginJson))
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func (s *IntegrationTestSuite) TestAccessToken_InvalidRefreshToken() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/access_tokens?refresh_token=garbage", serverEndpoint), nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func (s *IntegrationTestSuite) TestLogout() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	user := s.signupAndLogin(ctx, t, "bombur")

	logoutReq, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/a/logout", serverEndpoint), nil)
	require.NoError(t, err)
	logoutReq.Header.Set("User-Agent", "test-agent")
	logoutReq.Header.Set("Authorization", "Bearer "+user.RefreshToken)

	logoutResp, err := http.DefaultClient.Do(logoutReq)
	require.NoError(t, err)
	defer logoutResp.Body.Close()
	assert.Equal(t, http.StatusOK, logoutResp.StatusCode)

	// refresh token is gone, no new access tokens
	tokenReq, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/access_tokens?refresh_token=%s", serverEndpoint, user.RefreshToken), nil)
	require.NoError(t, err)
	tokenReq.Header.Set("User-Agent", "test-agent")

	tokenResp, err := http.DefaultClient.Do(tokenReq)
	require.NoError(t, err)
	defer tokenResp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, tokenResp.StatusCode)
}

func (s *IntegrationTestSuite) TestMe() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	user := s.signupAndLogin(ctx, t, "bifur")

	req := authedRequest(ctx, t, user, "GET", fmt.Sprintf("%s/users/me", serverEndpoint), nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var me users.User
	require.NoError(t, json.Unmarshal(respBytes, &me))
	assert.Equal(t, user.ID, me.ID)
	assert.Equal(t, "bifur", me.Username)
}

func (s *IntegrationTestSuite) TestProtectedRoute_NoToken() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/workouts", serverEndpoint), nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
