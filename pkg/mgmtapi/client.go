package mgmtapi

import (
	"context"
	"net/url"
	"time"
)

// Client is a session against one appliance API endpoint. It owns the
// collection index built from the root document; collections and entities
// hang off it and are fetched lazily as they are traversed.
//
// A Client and the objects reached through it are not safe for concurrent
// use; callers sharing one across goroutines must serialize access.
type Client interface {
	// Version returns the API version the endpoint reported.
	Version() Version
	// VersionNames returns the known version names, newest first.
	VersionNames() []string
	// LatestVersion returns the newest known version name.
	LatestVersion() string
	// OnLatestVersion reports whether the session speaks the newest version.
	OnLatestVersion() bool
	// NewIDBehaviour reports whether entities use href identity (>= 2.0.0).
	NewIDBehaviour() bool
	// APIVersion returns a sibling client bound to the endpoint recorded for
	// the named version, sharing credentials with this one.
	APIVersion(ctx context.Context, name string) (Client, error)

	// CollectionNames returns the collection names from the root document,
	// in document order.
	CollectionNames() []string
	// Collection returns a collection from the index by name.
	Collection(name string) (Collection, error)
	// GetEntity returns a stub entity addressed by {collection_href}/{id}
	// without fetching it. The collection does not have to appear in the
	// index; an ad hoc reference is built for unknown names.
	GetEntity(collection string, id any) Entity
	// Attribute looks up a root-document field outside the recognized set
	// (collections, version, versions).
	Attribute(name string) (any, bool)

	// Get issues a GET and decodes the response. A decoded body carrying an
	// error envelope is returned as *APIError.
	Get(ctx context.Context, rawURL string, query url.Values) (any, error)
	// Post issues a POST with a JSON payload. An empty response body is a
	// legitimate no-content result and yields (nil, nil).
	Post(ctx context.Context, rawURL string, payload any) (any, error)
	// Delete issues a DELETE with a JSON payload, with the same empty-body
	// tolerance as Post.
	Delete(ctx context.Context, rawURL string, payload any) (any, error)

	// WaitForTask polls the task entity at href until it reaches a terminal
	// state, or the context/poll timeout expires.
	WaitForTask(ctx context.Context, href string) (Entity, error)
}

// Collection is a named set of entities plus collection-level actions. Its
// snapshot (resources, count, subcount, actions) is fetched on first access
// and invalidated only by explicit reload.
type Collection interface {
	Name() string
	Href() string
	Description() string

	// Reload fetches the collection document. With expand set, full entity
	// bodies are requested instead of stub references. A server-reported
	// name that disagrees with the local one is a fatal consistency error.
	Reload(ctx context.Context, expand bool) error
	// Count returns the full collection size, loading the snapshot if needed.
	Count(ctx context.Context) (int, error)
	// Subcount returns the matched size, loading the snapshot if needed.
	Subcount(ctx context.Context) (int, error)
	// All maps every cached resource fragment to an entity, loading the
	// snapshot if needed. Fragments may be stubs on a non-expanded snapshot.
	All(ctx context.Context) ([]Entity, error)
	// Each forces a fully expanded reload and yields one entity per fragment.
	Each(ctx context.Context, fn func(Entity) error) error
	// FindBy runs a server-side filtered search, picking the filter dialect
	// by API version.
	FindBy(ctx context.Context, filters map[string]any) (*SearchResult, error)
	// Get returns the first match of FindBy, reloaded, or ErrNoSuchObject.
	Get(ctx context.Context, filters map[string]any) (Entity, error)
	// Entity returns a stub entity addressed by {href}/{id}.
	Entity(id any) Entity
	// Actions returns the collection's action container.
	Actions() ActionContainer
}

// Entity is one addressable resource. An entity constructed from only an
// href has no fields until the first accessor call triggers a load.
type Entity interface {
	// Href is the address used to fetch the entity body.
	Href() string
	// Identity is the canonical identity value: the numeric id before
	// version 2.0.0, the href at or after it.
	Identity() string
	// Collection returns the owning collection.
	Collection() Collection
	// Loaded reports whether a field snapshot is present.
	Loaded() bool

	// Reload re-fetches the entity body from its href.
	Reload(ctx context.Context) error
	// ReloadExpand re-fetches the body requesting expansion of nested
	// references.
	ReloadExpand(ctx context.Context, expand string) error

	// Attribute returns a field by name, loading the body first if needed.
	// Timestamp fields come back as time.Time and recognized foreign keys
	// additionally expose a de-suffixed stub entity under the trimmed name.
	// A name absent even after a load yields ErrNoSuchAttribute.
	Attribute(ctx context.Context, name string) (any, error)
	// Time returns a parsed timestamp field by name.
	Time(ctx context.Context, name string) (time.Time, error)
	// Related returns the stub entity synthesized for a foreign-key field,
	// by de-suffixed name (e.g. "zone" for zone_id).
	Related(ctx context.Context, name string) (Entity, error)
	// Attributes returns a copy of the current field snapshot.
	Attributes(ctx context.Context) (map[string]any, error)

	// Ref returns the {"href": ...} reference form used in action payloads.
	Ref() map[string]any
	// Actions returns the entity's action container.
	Actions() ActionContainer
}

// ActionContainer exposes the server-declared actions of a collection or
// entity. The action set is re-derived from the owner's latest snapshot on
// every access, never merged, so stale actions from a prior snapshot are
// discarded.
type ActionContainer interface {
	// Reload forces the owner to have a snapshot to derive actions from.
	Reload(ctx context.Context) error
	// Names returns the declared action names.
	Names(ctx context.Context) ([]string, error)
	// Has reports whether an action is declared.
	Has(ctx context.Context, name string) (bool, error)
	// Get returns a declared action by name, or ErrNoSuchAction.
	Get(ctx context.Context, name string) (Action, error)
}

// Action is a named server-declared operation bound to a collection (bulk)
// or entity (single-resource) parent.
type Action interface {
	Name() string
	Method() string
	Href() string

	// Invoke sends a bulk invocation. Entities become {"href": ...}
	// references; anything else is passed through as-is. With no arguments
	// only the action name is sent. A response carrying a results array
	// comes back as []Entity stubs; a null response yields (nil, nil).
	Invoke(ctx context.Context, resources ...any) (any, error)
	// InvokeSingle sends a single-resource invocation with the given fields.
	InvokeSingle(ctx context.Context, resource map[string]any) (any, error)
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Config represents client configuration for building a Client.
//
// Endpoint is the root document URL, e.g. "https://appliance.example.com/api".
// Username and Password are sent as HTTP basic authentication on every
// request. Appliances commonly ship self-signed certificates, so certificate
// verification is off unless VerifyTLS is set.
type Config struct {
	// Endpoint: root document URL. pkg/applianceclient.New normalizes this
	// value by trimming a trailing slash, adding "https://" if no scheme is
	// present, and appending "/api" when the URL carries no path.
	Endpoint string

	// Username for HTTP basic authentication.
	Username string
	// Password for HTTP basic authentication.
	Password string

	// VerifyTLS enables certificate verification. Off by default.
	VerifyTLS bool

	// HTTPTimeout: optional default HTTP timeout. If 0, a sensible default
	// is used.
	HTTPTimeout time.Duration
	// RetryMax: maximum number of retries for transient failures (>=500,
	// 429, and connection errors). If 0, transport retries are disabled.
	RetryMax int
	// RetryWaitMin: minimum backoff between retries. Applied when RetryMax > 0.
	RetryWaitMin time.Duration
	// RetryWaitMax: maximum backoff between retries. Applied when RetryMax > 0.
	RetryWaitMax time.Duration

	// Debug enables verbose HTTP request/response logging when a Logger is
	// provided.
	Debug bool
	// Logger: optional structured logger used by the HTTP layer.
	Logger Logger
	// UserAgent overrides the default User-Agent header.
	UserAgent string

	// Cache: optional response cache configuration for GET requests.
	// Explicit reloads always bypass the cache.
	Cache *CacheConfig

	// Interceptors: optional request/response interceptor chain run by the
	// HTTP layer around every request.
	Interceptors *InterceptorChain
}
