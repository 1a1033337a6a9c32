package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/appliance-io/mgmtapi/internal/client"
	"github.com/appliance-io/mgmtapi/pkg/mgmtapi"
	"github.com/stretchr/testify/require"
)

// fixture is a fake appliance endpoint. Handlers are registered per test
// under /api paths and the root document is assembled from the declared
// collections.
type fixture struct {
	server *httptest.Server
	mux    *http.ServeMux
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &fixture{server: server, mux: mux}
}

// api returns the endpoint root URL.
func (f *fixture) api() string {
	return f.server.URL + "/api"
}

func (f *fixture) href(parts string) string {
	return f.api() + "/" + parts
}

// stubRoot registers the root document handler for the given API version and
// collection names.
func (f *fixture) stubRoot(version string, collections ...string) {
	refs := make([]map[string]any, 0, len(collections))
	for _, name := range collections {
		refs = append(refs, map[string]any{
			"name":        name,
			"href":        f.href(name),
			"description": name + " collection",
		})
	}

	doc := map[string]any{
		"name":        "API",
		"description": "Management API",
		"version":     version,
		"versions": []map[string]any{
			{"name": version, "href": f.api()},
		},
		"collections": refs,
	}

	f.mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, doc)
	})
}

// handle registers a handler under the endpoint path, e.g. "/api/vms".
func (f *fixture) handle(path string, handler http.HandlerFunc) {
	f.mux.HandleFunc(path, handler)
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(value)
}

// newClient connects a client to the fixture endpoint.
func newClient(t *testing.T, f *fixture) mgmtapi.Client {
	t.Helper()

	apiClient, err := client.New(context.Background(), &mgmtapi.Config{
		Endpoint: f.api(),
		Username: "admin",
		Password: "smartvm",
	})
	require.NoError(t, err)

	return apiClient
}
