package test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/thorin/workoutapp/internal/users"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// testUser is an account created through the signup flow, with the tokens
// obtained through the login flow.
type testUser struct {
	ID           uuid.UUID
	Username     string
	Password     string
	Salt         string
	RefreshToken string
	AccessToken  string
}

// hashPassword mimics what the client app does: hash the cleartext password
// together with the salt, so the server only ever sees the hash.
func hashPassword(password, salt string) string {
	sum := sha256.Sum256([]byte(password + salt))
	return hex.EncodeToString(sum[:])
}

func (s *IntegrationTestSuite) doSignup(ctx context.Context, t *testing.T, username, password, salt string) *testUser {
	signupJson, err := json.Marshal(users.SignupRequest{
		Username:     username,
		PasswordHash: hashPassword(password, salt),
		PasswordSalt: salt,
	})
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/users/signup", serverEndpoint), bytes.NewBuffer(signupJson))
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var created users.User
	require.NoError(t, json.Unmarshal(respBytes, &created))
	require.Equal(t, username, created.Username)
	require.NotEqual(t, uuid.Nil, created.ID)

	return &testUser{
		ID:       created.ID,
		Username: username,
		Password: password,
		Salt:     salt,
	}
}

func (s *IntegrationTestSuite) doLogin(ctx context.Context, t *testing.T, user *testUser) {
	// fetch the salt first, like a real client would
	saltReq, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/users/salt?username=%s", serverEndpoint, user.Username), nil)
	require.NoError(t, err)
	saltReq.Header.Set("User-Agent", "test-agent")

	saltResp, err := http.DefaultClient.Do(saltReq)
	require.NoError(t, err)
	defer saltResp.Body.Close()
	require.Equal(t, http.StatusOK, saltResp.StatusCode)

	saltBytes, err := io.ReadAll(saltResp.Body)
	require.NoError(t, err)
	var salt users.SaltResponse
	require.NoError(t, json.Unmarshal(saltBytes, &salt))
	require.Equal(t, user.Salt, salt.Salt)

	loginJson, err := json.Marshal(users.LoginRequest{
		Username:     user.Username,
		PasswordHash: hashPassword(user.Password, salt.Salt),
	})
	require.NoError(t, err)

	loginReq, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/users/login", serverEndpoint), bytes.NewBuffer(loginJson))
	require.NoError(t, err)
	loginReq.Header.Set("User-Agent", "test-agent")
	loginReq.Header.Set("Content-Type", "application/json")

	loginResp, err := http.DefaultClient.Do(loginReq)
	require.NoError(t, err)
	defer loginResp.Body.Close()
	require.Equal(t, http.StatusOK, loginResp.StatusCode)

	loginBytes, err := io.ReadAll(loginResp.Body)
	require.NoError(t, err)
	var login users.LoginResponse
	require.NoError(t, json.Unmarshal(loginBytes, &login))
	require.NotEmpty(t, login.RefreshToken)

	user.RefreshToken = login.RefreshToken
	user.AccessToken = s.getAccessToken(ctx, t, login.RefreshToken)
}

func (s *IntegrationTestSuite) getAccessToken(ctx context.Context, t *testing.T, refreshToken string) string {
	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/access_tokens?refresh_token=%s", serverEndpoint, refreshToken), nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var accessToken users.AccessTokenResponse
	require.NoError(t, json.Unmarshal(respBytes, &accessToken))
	require.NotEmpty(t, accessToken.AccessToken)

	return accessToken.AccessToken
}

// signupAndLogin runs the whole flow: signup, fetch salt, login, get access token.
func (s *IntegrationTestSuite) signupAndLogin(ctx context.Context, t *testing.T, username string) *testUser {
	user := s.doSignup(ctx, t, username, "s3cr3t-"+username, "salt-"+username)
	s.doLogin(ctx, t, user)
	return user
}

// authedRequest builds a request with the user's access token set.
func authedRequest(ctx context.Context, t *testing.T, user *testUser, method, url string, body []byte) *http.Request {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewBuffer(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+user.AccessToken)
	return req
}
