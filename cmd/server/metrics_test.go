package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/matst80/linewire/internal/presence"
	"github.com/matst80/linewire/internal/server"
	"github.com/matst80/linewire/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdmin(t *testing.T) (*admin, *httptest.Server) {
	t.Helper()
	store := presence.NewMemoryStore()
	srv, err := server.New(context.Background(), "127.0.0.1:0", server.Options{PollInterval: 10 * time.Millisecond, Presence: store})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	var h transport.ServerHandle
	require.True(t, h.Init(func() (transport.Server, error) { return srv, nil }))
	a := &admin{handle: &h, srv: srv, store: store}
	ts := httptest.NewServer(a.routes())
	t.Cleanup(ts.Close)
	return a, ts
}

func TestAdminState(t *testing.T) {
	_, ts := newAdmin(t)
	resp, err := http.Get(ts.URL + "/api/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.False(t, st.AcceptingAny)
	assert.Equal(t, 0, st.Verified)
}

func TestAdminHealth(t *testing.T) {
	a, ts := newAdmin(t)
	for path, want := range map[string]int{"/healthz": http.StatusOK, "/readyz": http.StatusOK} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, want, resp.StatusCode, path)
	}

	require.NoError(t, a.srv.Close())
	resp, err := http.Get(ts.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestAdminPasscode(t *testing.T) {
	a, ts := newAdmin(t)

	resp, err := http.PostForm(ts.URL+"/api/passcode", url.Values{"code": {"sesame"}})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "sesame", a.srv.Passcode())

	resp, err = http.PostForm(ts.URL+"/api/passcode", url.Values{"length": {"8"}})
	require.NoError(t, err)
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Len(t, body.Code, 8)
	assert.Equal(t, body.Code, a.srv.Passcode())

	resp, err = http.PostForm(ts.URL+"/api/passcode", url.Values{"length": {"x"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/passcode", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "", a.srv.Passcode())
}

func TestAdminConnections(t *testing.T) {
	a, ts := newAdmin(t)
	post := func(action string) int {
		resp, err := http.Post(ts.URL+"/api/connections/"+action, "text/plain", nil)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, post("enable-all"))
	assert.True(t, a.srv.AcceptingAny())
	assert.True(t, a.srv.AcceptingNew())

	assert.Equal(t, http.StatusOK, post("disable-new"))
	assert.False(t, a.srv.AcceptingNew())
	assert.True(t, a.srv.AcceptingAny())

	assert.Equal(t, http.StatusOK, post("disable-all"))
	assert.Equal(t, http.StatusOK, post("enable-new"))
	assert.False(t, a.srv.AcceptingNew())

	assert.Equal(t, http.StatusOK, post("close-all"))
	assert.Equal(t, http.StatusNotFound, post("explode"))
}

func TestAdminDashboard(t *testing.T) {
	_, ts := newAdmin(t)
	resp, err := http.Get(ts.URL + "/dashboard")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html"))
}

func TestAdminMetrics(t *testing.T) {
	_, ts := newAdmin(t)
	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
