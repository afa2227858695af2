package test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) TestDropSchema_Guarded() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	user := s.signupAndLogin(ctx, t, "thorin")
	body := []byte(`{"opsPassword":"not-the-ops-pass"}`)

	// wrong ops password -> refused
	req := authedRequest(ctx, t, user, "POST", fmt.Sprintf("%s/admin/schema/drop", serverEndpoint), body)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// without a token the route is not even reachable
	noTokenReq, err := http.NewRequestWithContext(
		ctx, "POST", fmt.Sprintf("%s/admin/schema/drop", serverEndpoint), bytes.NewReader(body),
	)
	require.NoError(t, err)
	noTokenReq.Header.Set("User-Agent", "test-agent")
	noTokenResp, err := http.DefaultClient.Do(noTokenReq)
	require.NoError(t, err)
	noTokenResp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, noTokenResp.StatusCode)

	// nothing was dropped, the tables are still around
	var usersCount int
	require.NoError(t, s.dbPool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&usersCount))
	assert.GreaterOrEqual(t, usersCount, 1)
}
