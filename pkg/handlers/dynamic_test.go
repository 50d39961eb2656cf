package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newDynamicServer(t *testing.T, env *testEnv) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	passthrough := func(next http.Handler) http.Handler { return next }
	NewDynamicHandler(env.dispatcher, zap.NewNop()).RegisterRoutes(mux, passthrough)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestDynamicGetReturnsRows(t *testing.T) {
	env := newTestEnv(t)
	env.addDefinition(t, "orders", "GET")
	srv := newDynamicServer(t, env)

	resp, err := http.Get(srv.URL + "/api/dynamic/orders")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var rows []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "widget", rows[0]["name"])
}

func TestDynamicGetUnknownTable(t *testing.T) {
	env := newTestEnv(t)
	srv := newDynamicServer(t, env)

	resp, err := http.Get(srv.URL + "/api/dynamic/nowhere")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDynamicOperationNotAllowed(t *testing.T) {
	env := newTestEnv(t)
	env.addDefinition(t, "orders", "GET,DELETE")
	srv := newDynamicServer(t, env)

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/dynamic/orders", strings.NewReader(`{"name":"x"}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestDynamicPutInsertsRow(t *testing.T) {
	env := newTestEnv(t)
	env.addDefinition(t, "orders", "GET,PUT")
	srv := newDynamicServer(t, env)

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/dynamic/orders", strings.NewReader(`{"name":"x"}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]int64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, int64(1), body["rowsAffected"])
}

func TestDynamicPutMalformedBody(t *testing.T) {
	env := newTestEnv(t)
	env.addDefinition(t, "orders", "PUT")
	srv := newDynamicServer(t, env)

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/dynamic/orders", strings.NewReader(`not json`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDynamicDeleteWithConditions(t *testing.T) {
	env := newTestEnv(t)
	env.addDefinition(t, "orders", "DELETE")
	srv := newDynamicServer(t, env)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/dynamic/orders?id=7", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDynamicDeleteWithoutConditions(t *testing.T) {
	env := newTestEnv(t)
	env.addDefinition(t, "orders", "DELETE")
	srv := newDynamicServer(t, env)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/dynamic/orders", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDynamicUpstreamFailure(t *testing.T) {
	env := newTestEnv(t)
	env.addDefinition(t, "orders", "GET")
	srv := newDynamicServer(t, env)

	upstreamErr = errors.New("connection reset")
	defer func() { upstreamErr = nil }()

	resp, err := http.Get(srv.URL + "/api/dynamic/orders")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body["error"])
}
