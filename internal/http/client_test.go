package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	internalhttp "github.com/appliance-io/mgmtapi/internal/http"
	"github.com/appliance-io/mgmtapi/pkg/mgmtapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendsBasicAuth(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "admin", username)
		assert.Equal(t, "smartvm", password)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	client := internalhttp.NewClient(server.URL, internalhttp.WithBasicAuth("admin", "smartvm"))

	resp, err := client.Get(context.Background(), "/api", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClientHeaders(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "custom-agent/2.0", r.Header.Get("User-Agent"))

		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := internalhttp.NewClient(server.URL, internalhttp.WithUserAgent("custom-agent/2.0"))

	_, err := client.Post(context.Background(), "/api/vms", map[string]any{"action": "start"})
	require.NoError(t, err)
}

func TestClientAbsoluteHref(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/vms/42", r.URL.Path)

		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	// Base URL deliberately wrong; the absolute href must win.
	client := internalhttp.NewClient("http://unreachable.invalid")

	resp, err := client.Get(context.Background(), server.URL+"/api/vms/42", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClientQueryParameters(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, []string{"name=vm1", "zone_id=1"}, r.URL.Query()["filter[]"])

		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := internalhttp.NewClient(server.URL)

	query := url.Values{"filter[]": []string{"name=vm1", "zone_id=1"}}

	_, err := client.Get(context.Background(), "/api/vms", query)
	require.NoError(t, err)
}

func TestClientRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)

			return
		}

		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	client := internalhttp.NewClient(server.URL,
		internalhttp.WithRetryConfig(2, time.Millisecond, 5*time.Millisecond))

	resp, err := client.Get(context.Background(), "/api", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": {"klass": "NotFound", "message": "no"}}`))
	}))
	defer server.Close()

	client := internalhttp.NewClient(server.URL,
		internalhttp.WithRetryConfig(3, time.Millisecond, 5*time.Millisecond))

	// The transport hands back the response regardless of status; the error
	// envelope is interpreted a layer up.
	resp, err := client.Get(context.Background(), "/api/vms/1", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
	assert.Contains(t, string(resp.Body), "NotFound")
}

func TestClientJSONBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any

		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "start", payload["action"])

		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := internalhttp.NewClient(server.URL)

	_, err := client.Post(context.Background(), "/api/vms", map[string]any{"action": "start"})
	require.NoError(t, err)
}

func TestClientCachesGETResponses(t *testing.T) {
	t.Parallel()

	var hits int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{"cached": true}`))
	}))
	defer server.Close()

	client := internalhttp.NewClient(server.URL,
		internalhttp.WithCache(mgmtapi.NewMemoryCache(10), time.Minute))

	ctx := context.Background()

	_, err := client.Get(ctx, "/api/vms", nil)
	require.NoError(t, err)

	resp, err := client.Get(ctx, "/api/vms", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"cached": true}`, string(resp.Body))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "second GET should be served from cache")

	_, err = client.GetNoCache(ctx, "/api/vms", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits), "no-cache GET must reach the server")
}

func TestClientInterceptors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "value", r.Header.Get("X-Custom"))

		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	var observedStatus int

	chain := mgmtapi.NewInterceptorChain()
	chain.AddRequestInterceptor(mgmtapi.HeaderInterceptor(map[string]string{"X-Custom": "value"}))
	chain.AddResponseInterceptor(func(ctx context.Context, req *mgmtapi.Request, resp *mgmtapi.Response) error {
		observedStatus = resp.StatusCode

		return nil
	})

	client := internalhttp.NewClient(server.URL, internalhttp.WithInterceptors(chain))

	_, err := client.Get(context.Background(), "/api", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, observedStatus)
}
