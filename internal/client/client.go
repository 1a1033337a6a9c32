// Package client provides the implementation of the appliance API client.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/appliance-io/mgmtapi/internal/constants"
	internalhttp "github.com/appliance-io/mgmtapi/internal/http"
	"github.com/appliance-io/mgmtapi/pkg/mgmtapi"
)

// Client implements the mgmtapi.Client interface.
type Client struct {
	config     *mgmtapi.Config
	httpClient *internalhttp.Client
	endpoint   string

	versionName    string
	version        mgmtapi.Version
	versionRefs    []mgmtapi.VersionRef
	collectionRefs []mgmtapi.CollectionRef
	collections    map[string]*Collection
	extra          map[string]any
}

// New creates a new client and loads the endpoint's root document.
func New(ctx context.Context, config *mgmtapi.Config) (*Client, error) {
	if config == nil {
		return nil, mgmtapi.ErrConfigRequired
	}

	if config.Endpoint == "" {
		return nil, mgmtapi.ErrEndpointRequired
	}

	httpClient, err := buildHTTPClient(config)
	if err != nil {
		return nil, err
	}

	client := &Client{
		config:     config,
		httpClient: httpClient,
		endpoint:   strings.TrimSuffix(config.Endpoint, "/"),
	}

	err = client.loadRoot(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading root document: %w", err)
	}

	return client, nil
}

func buildHTTPClient(config *mgmtapi.Config) (*internalhttp.Client, error) {
	opts := []internalhttp.Option{
		internalhttp.WithBasicAuth(config.Username, config.Password),
		internalhttp.WithTLSVerification(config.VerifyTLS),
	}

	if config.Logger != nil {
		opts = append(opts, internalhttp.WithLogger(config.Logger))
	}

	if config.Debug {
		opts = append(opts, internalhttp.WithDebug(true))
	}

	if config.UserAgent != "" {
		opts = append(opts, internalhttp.WithUserAgent(config.UserAgent))
	}

	if config.HTTPTimeout > 0 {
		opts = append(opts, internalhttp.WithTimeout(config.HTTPTimeout))
	}

	if config.RetryMax > 0 {
		waitMin := config.RetryWaitMin
		if waitMin <= 0 {
			waitMin = constants.DefaultRetryWaitMin
		}

		waitMax := config.RetryWaitMax
		if waitMax <= 0 {
			waitMax = constants.DefaultRetryWaitMax
		}

		opts = append(opts, internalhttp.WithRetryConfig(config.RetryMax, waitMin, waitMax))
	}

	if config.Cache != nil {
		cache, err := mgmtapi.NewCacheFromConfig(config.Cache)
		if err != nil {
			return nil, fmt.Errorf("creating cache: %w", err)
		}

		opts = append(opts, internalhttp.WithCache(cache, config.Cache.CacheOptionsOrDefault().TTL))
	}

	if config.Interceptors != nil {
		opts = append(opts, internalhttp.WithInterceptors(config.Interceptors))
	}

	return internalhttp.NewClient(config.Endpoint, opts...), nil
}

// loadRoot fetches and indexes the endpoint's root document. Everything the
// session knows about the server (version, version catalogue, collection
// index) comes from this one response.
func (c *Client) loadRoot(ctx context.Context) error {
	decoded, err := c.get(ctx, c.endpoint, nil, true)
	if err != nil {
		return err
	}

	doc, ok := decoded.(map[string]any)
	if !ok {
		return mgmtapi.ErrMalformedRootDocument
	}

	c.versionName, _ = doc["version"].(string)
	c.version = mgmtapi.ParseVersion(c.versionName)
	c.versionRefs = parseVersionRefs(doc["versions"])
	c.collectionRefs = parseCollectionRefs(doc["collections"])

	c.collections = make(map[string]*Collection, len(c.collectionRefs))
	for _, ref := range c.collectionRefs {
		c.collections[ref.Name] = newCollection(c, ref.Name, ref.Href, ref.Description)
	}

	c.extra = make(map[string]any)

	for key, value := range doc {
		switch key {
		case "version", "versions", "collections":
		default:
			c.extra[key] = value
		}
	}

	return nil
}

func parseVersionRefs(raw any) []mgmtapi.VersionRef {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}

	refs := make([]mgmtapi.VersionRef, 0, len(items))

	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}

		ref := mgmtapi.VersionRef{}
		ref.Name, _ = entry["name"].(string)
		ref.Href, _ = entry["href"].(string)

		if ref.Name != "" {
			refs = append(refs, ref)
		}
	}

	return refs
}

func parseCollectionRefs(raw any) []mgmtapi.CollectionRef {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}

	refs := make([]mgmtapi.CollectionRef, 0, len(items))

	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}

		ref := mgmtapi.CollectionRef{}
		ref.Name, _ = entry["name"].(string)
		ref.Href, _ = entry["href"].(string)
		ref.Description, _ = entry["description"].(string)

		if ref.Name != "" {
			refs = append(refs, ref)
		}
	}

	return refs
}

// Version returns the API version the endpoint reported.
func (c *Client) Version() mgmtapi.Version {
	return c.version
}

// VersionNames returns the known version names, newest first.
func (c *Client) VersionNames() []string {
	names := make([]string, 0, len(c.versionRefs))
	for _, ref := range c.versionRefs {
		names = append(names, ref.Name)
	}

	mgmtapi.SortVersionNames(names)

	return names
}

// LatestVersion returns the newest known version name. The session's own
// version is the floor when the catalogue is empty or older.
func (c *Client) LatestVersion() string {
	latest := c.versionName

	for _, ref := range c.versionRefs {
		if mgmtapi.ParseVersion(latest).Less(mgmtapi.ParseVersion(ref.Name)) {
			latest = ref.Name
		}
	}

	return latest
}

// OnLatestVersion reports whether the session speaks the newest version.
func (c *Client) OnLatestVersion() bool {
	return c.version.Equal(mgmtapi.ParseVersion(c.LatestVersion()))
}

// NewIDBehaviour reports whether entities use href identity (>= 2.0.0).
func (c *Client) NewIDBehaviour() bool {
	return c.version.NewIDBehaviour()
}

// APIVersion returns a sibling client bound to the endpoint recorded for the
// named version, sharing credentials with this one.
func (c *Client) APIVersion(ctx context.Context, name string) (mgmtapi.Client, error) {
	for _, ref := range c.versionRefs {
		if ref.Name != name {
			continue
		}

		siblingConfig := *c.config
		siblingConfig.Endpoint = ref.Href

		sibling, err := New(ctx, &siblingConfig)
		if err != nil {
			return nil, fmt.Errorf("connecting to version %s: %w", name, err)
		}

		return sibling, nil
	}

	return nil, fmt.Errorf("%w: %s", mgmtapi.ErrUnknownVersion, name)
}

// CollectionNames returns the collection names from the root document, in
// document order.
func (c *Client) CollectionNames() []string {
	names := make([]string, 0, len(c.collectionRefs))
	for _, ref := range c.collectionRefs {
		names = append(names, ref.Name)
	}

	return names
}

// Collection returns a collection from the index by name.
func (c *Client) Collection(name string) (mgmtapi.Collection, error) {
	collection, ok := c.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", mgmtapi.ErrUnknownCollection, name)
	}

	return collection, nil
}

// collectionOrAdHoc resolves a collection name against the index, building an
// unindexed reference under the endpoint when the name is unknown. Foreign
// keys may point at collections the root document does not advertise.
func (c *Client) collectionOrAdHoc(name string) *Collection {
	if collection, ok := c.collections[name]; ok {
		return collection
	}

	return newCollection(c, name, c.endpoint+"/"+name, "")
}

// GetEntity returns a stub entity addressed by {collection_href}/{id} without
// fetching it.
func (c *Client) GetEntity(collection string, id any) mgmtapi.Entity {
	return c.collectionOrAdHoc(collection).Entity(id)
}

// Attribute looks up a root-document field outside the recognized set.
func (c *Client) Attribute(name string) (any, bool) {
	value, ok := c.extra[name]

	return value, ok
}

// Get issues a GET and decodes the response.
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values) (any, error) {
	return c.get(ctx, rawURL, query, false)
}

func (c *Client) get(ctx context.Context, rawURL string, query url.Values, noCache bool) (any, error) {
	var (
		resp *internalhttp.Response
		err  error
	)

	if noCache {
		resp, err = c.httpClient.GetNoCache(ctx, rawURL, query)
	} else {
		resp, err = c.httpClient.Get(ctx, rawURL, query)
	}

	if err != nil {
		return nil, err
	}

	return processBody(resp.Body, false)
}

// Post issues a POST with a JSON payload.
func (c *Client) Post(ctx context.Context, rawURL string, payload any) (any, error) {
	resp, err := c.httpClient.Post(ctx, rawURL, payload)
	if err != nil {
		return nil, err
	}

	return processBody(resp.Body, true)
}

// Delete issues a DELETE with a JSON payload.
func (c *Client) Delete(ctx context.Context, rawURL string, payload any) (any, error) {
	resp, err := c.httpClient.Delete(ctx, rawURL, payload)
	if err != nil {
		return nil, err
	}

	return processBody(resp.Body, true)
}

// processBody decodes a response body and surfaces error envelopes. The
// server reports errors as {"error": {...}} on any verb regardless of HTTP
// status, so every decoded object is inspected. Post and delete legitimately
// return empty bodies; an empty body on any other verb is a decode failure.
func processBody(body []byte, allowEmpty bool) (any, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 && allowEmpty {
		return nil, nil
	}

	var decoded any

	err := json.Unmarshal(trimmed, &decoded)
	if err != nil {
		return nil, &mgmtapi.DecodeError{Raw: string(body), Err: err}
	}

	if doc, ok := decoded.(map[string]any); ok {
		if envelope, present := doc["error"]; present {
			return nil, apiErrorFrom(envelope)
		}
	}

	return decoded, nil
}

// apiErrorFrom builds an *APIError from the error envelope payload, which is
// either an object carrying klass and message or a bare string.
func apiErrorFrom(envelope any) *mgmtapi.APIError {
	switch value := envelope.(type) {
	case map[string]any:
		apiErr := &mgmtapi.APIError{}
		apiErr.Klass, _ = value["klass"].(string)
		apiErr.Message, _ = value["message"].(string)

		return apiErr
	case string:
		return &mgmtapi.APIError{Message: value}
	default:
		return &mgmtapi.APIError{Message: fmt.Sprint(value)}
	}
}
