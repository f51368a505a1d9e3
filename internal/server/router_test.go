package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/1dlvb/async-bank-app/internal/config"
	"github.com/1dlvb/async-bank-app/internal/service"
	"github.com/1dlvb/async-bank-app/internal/store"
)

type apiClient struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func newAPIClient(t *testing.T) *apiClient {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:    "test-secret",
		LockWait:     time.Second,
		LockStrategy: "ordered",
		DevMode:      true,
	}
	log := zap.NewNop()
	st := store.NewMemoryStore()

	accounts := service.NewAccountService(st, 4, log)
	transfers := service.NewTransferService(st, st, log, service.TransferOptions{
		Strategy: service.LockStrategyOrdered,
		LockWait: cfg.LockWait,
		Workers:  4,
	})
	deposits := service.NewDepositService(st, st, 4, log)

	router := SetupRouter(cfg, log, st, nil, accounts, transfers, deposits)
	client := &apiClient{t: t, router: router}
	client.token = client.devToken()
	return client
}

func (a *apiClient) devToken() string {
	w := a.do(http.MethodPost, "/auth/dev/token", nil, false)
	require.Equal(a.t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(a.t, resp.Token)
	return resp.Token
}

func (a *apiClient) do(method, path string, body any, authed bool) *httptest.ResponseRecorder {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *apiClient) createAccount(owner string, balance int64) string {
	a.t.Helper()

	w := a.do(http.MethodPost, "/v1/accounts", gin.H{
		"owner":   owner,
		"balance": balance,
	}, true)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(a.t, resp.ID)
	return resp.ID
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Code
}

func TestHealthEndpointsNeedNoAuth(t *testing.T) {
	client := newAPIClient(t)

	w := client.do(http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestV1RequiresBearerToken(t *testing.T) {
	client := newAPIClient(t)

	w := client.do(http.MethodPost, "/v1/accounts", gin.H{"owner": "x"}, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAccountRoundTrip(t *testing.T) {
	client := newAPIClient(t)

	id := client.createAccount("Acme Inc", 500)

	w := client.do(http.MethodGet, "/v1/accounts/"+id, nil, true)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Owner   string `json:"owner"`
		Balance string `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Acme Inc", resp.Owner)
	assert.Equal(t, "500", resp.Balance)

	w = client.do(http.MethodGet, "/v1/accounts/nope", nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, w))
}

func TestTransferEndpoints(t *testing.T) {
	client := newAPIClient(t)
	from := client.createAccount("from", 100)
	to := client.createAccount("to", 0)

	w := client.do(http.MethodPost, "/v1/transfers", gin.H{
		"from_account_id": from,
		"to_account_id":   to,
		"amount":          "60",
	}, true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = client.do(http.MethodPost, "/v1/transfers", gin.H{
		"from_account_id": from,
		"to_account_id":   to,
		"amount":          "60",
	}, true)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "INSUFFICIENT_FUNDS", errorCode(t, w))

	w = client.do(http.MethodPost, "/v1/transfers/safe", gin.H{
		"from_account_id": from,
		"to_account_id":   to,
		"amount":          "40",
	}, true)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestTransferBatchReportsPartialFailure(t *testing.T) {
	client := newAPIClient(t)
	from := client.createAccount("from", 100)
	to := client.createAccount("to", 0)

	w := client.do(http.MethodPost, "/v1/transfers/batch", []gin.H{
		{"from_account_id": from, "to_account_id": to, "amount": "50"},
		{"from_account_id": "missing", "to_account_id": to, "amount": "50"},
	}, true)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "BATCH_PARTIAL_FAILURE", errorCode(t, w))
}

func TestBalanceBatchEndpoints(t *testing.T) {
	client := newAPIClient(t)
	first := client.createAccount("first", 100)
	second := client.createAccount("second", 100)

	for _, path := range []string{"/v1/accounts/balances", "/v1/accounts/balances/async"} {
		w := client.do(http.MethodPost, path, []gin.H{
			{"account_id": first, "amount": "10"},
			{"account_id": second, "amount": "-10"},
		}, true)
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
}

func TestDepositStatisticsEndpoints(t *testing.T) {
	client := newAPIClient(t)
	account := client.createAccount("owner", 1000)

	w := client.do(http.MethodPost, "/v1/deposits", gin.H{
		"account_id": account,
		"balance":    1000.0,
		"rate":       10.0,
	}, true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var deposit struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &deposit))

	year := time.Now().Year() + 2
	w = client.do(http.MethodGet,
		fmt.Sprintf("/v1/deposits/%s/statistics?rate=5&year=%d", deposit.ID, year), nil, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stats map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, "1210.000", stats["balance_with_actual_rate"])
	assert.Equal(t, "1102.500", stats["balance_by_rate"])

	// year is required
	w = client.do(http.MethodGet, "/v1/deposits/"+deposit.ID+"/statistics", nil, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ARGUMENT", errorCode(t, w))

	for _, path := range []string{"/v1/deposits/statistics", "/v1/deposits/statistics/async"} {
		w = client.do(http.MethodPost, fmt.Sprintf("%s?year=%d", path, year), gin.H{
			"deposit_ids": []string{deposit.ID},
		}, true)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var batch map[string]map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &batch))
		assert.Contains(t, batch, deposit.ID)
	}
}

func TestVolatilityEndpoint(t *testing.T) {
	client := newAPIClient(t)

	for _, mode := range []string{"sequential", "batched", "perfactor"} {
		w := client.do(http.MethodGet, "/v1/volatility?iterations=100&mode="+mode, nil, true)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp struct {
			Mode       string  `json:"mode"`
			Iterations int     `json:"iterations"`
			Volatility float64 `json:"volatility"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, mode, resp.Mode)
		assert.Equal(t, 100, resp.Iterations)
		assert.Greater(t, resp.Volatility, 0.0)
	}

	w := client.do(http.MethodGet, "/v1/volatility?mode=bogus", nil, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
