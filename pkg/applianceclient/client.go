// Package applianceclient provides a convenient way to create appliance API
// clients.
package applianceclient

import (
	"context"
	"net/url"
	"strings"

	"github.com/appliance-io/mgmtapi/internal/client"
	"github.com/appliance-io/mgmtapi/pkg/mgmtapi"
)

// New creates a new appliance API client from the given configuration. The
// endpoint is normalized before use: a missing scheme defaults to https and a
// bare host gets the standard /api root path appended. Connecting fetches the
// endpoint's root document, so a returned client is ready to traverse.
func New(ctx context.Context, config *mgmtapi.Config) (mgmtapi.Client, error) {
	if config == nil {
		return nil, mgmtapi.ErrConfigRequired
	}

	if config.Endpoint == "" {
		return nil, mgmtapi.ErrEndpointRequired
	}

	config.Endpoint = NormalizeEndpoint(config.Endpoint)

	return client.New(ctx, config)
}

// NewWithPassword creates a client for the given endpoint using basic
// authentication credentials.
func NewWithPassword(ctx context.Context, endpoint, username, password string) (mgmtapi.Client, error) {
	return New(ctx, &mgmtapi.Config{
		Endpoint: endpoint,
		Username: username,
		Password: password,
	})
}

// NormalizeEndpoint canonicalizes an endpoint URL: trailing slashes are
// trimmed, a missing scheme becomes https, and a URL without a path gets
// "/api" appended.
func NormalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")

	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}

	if parsed.Path == "" {
		parsed.Path = "/api"
	}

	return parsed.String()
}
