package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/appliance-io/mgmtapi/pkg/mgmtapi"
)

// Collection implements the mgmtapi.Collection interface. Its snapshot is
// fetched on first access and invalidated only by explicit reload.
type Collection struct {
	client      *Client
	name        string
	href        string
	description string

	loaded     bool
	count      int
	subcount   int
	fragments  []map[string]any
	actionRefs []mgmtapi.ActionRef
}

func newCollection(client *Client, name, href, description string) *Collection {
	return &Collection{
		client:      client,
		name:        name,
		href:        href,
		description: description,
	}
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// Href returns the collection address.
func (c *Collection) Href() string {
	return c.href
}

// Description returns the collection description from the root document.
func (c *Collection) Description() string {
	return c.description
}

// Reload fetches the collection document, replacing any cached snapshot.
// With expand set, full entity bodies are requested instead of stub
// references.
func (c *Collection) Reload(ctx context.Context, expand bool) error {
	var query url.Values

	if expand {
		query = url.Values{"expand": []string{"resources"}}
	}

	decoded, err := c.client.get(ctx, c.href, query, true)
	if err != nil {
		return err
	}

	doc, ok := decoded.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: %s", mgmtapi.ErrMalformedCollectionDoc, c.name)
	}

	// The server echoes the collection name; a disagreement means the href
	// no longer addresses what the index says it does.
	if reported, ok := doc["name"].(string); ok && reported != c.name {
		return fmt.Errorf("%w: requested %q, server returned %q",
			mgmtapi.ErrCollectionNameMismatch, c.name, reported)
	}

	c.count = intField(doc, "count")
	c.subcount = intField(doc, "subcount")
	c.fragments = resourceFragments(doc["resources"])
	c.actionRefs = parseActionRefs(doc["actions"])
	c.loaded = true

	return nil
}

func (c *Collection) reloadIfNeeded(ctx context.Context) error {
	if c.loaded {
		return nil
	}

	return c.Reload(ctx, false)
}

func (c *Collection) reload(ctx context.Context) error {
	return c.Reload(ctx, false)
}

func intField(doc map[string]any, key string) int {
	value, ok := doc[key].(float64)
	if !ok {
		return 0
	}

	return int(value)
}

func resourceFragments(raw any) []map[string]any {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}

	fragments := make([]map[string]any, 0, len(items))

	for _, item := range items {
		if fragment, ok := item.(map[string]any); ok {
			fragments = append(fragments, fragment)
		}
	}

	return fragments
}

// Count returns the full collection size, loading the snapshot if needed.
func (c *Collection) Count(ctx context.Context) (int, error) {
	if err := c.reloadIfNeeded(ctx); err != nil {
		return 0, err
	}

	return c.count, nil
}

// Subcount returns the matched size, loading the snapshot if needed.
func (c *Collection) Subcount(ctx context.Context) (int, error) {
	if err := c.reloadIfNeeded(ctx); err != nil {
		return 0, err
	}

	return c.subcount, nil
}

// All maps every cached resource fragment to an entity, loading the snapshot
// if needed. Fragments may be stubs on a non-expanded snapshot.
func (c *Collection) All(ctx context.Context) ([]mgmtapi.Entity, error) {
	if err := c.reloadIfNeeded(ctx); err != nil {
		return nil, err
	}

	return c.entitiesFromFragments(c.fragments)
}

// Each forces a fully expanded reload and yields one entity per fragment.
func (c *Collection) Each(ctx context.Context, fn func(mgmtapi.Entity) error) error {
	if err := c.Reload(ctx, true); err != nil {
		return err
	}

	entities, err := c.entitiesFromFragments(c.fragments)
	if err != nil {
		return err
	}

	for _, entity := range entities {
		if err := fn(entity); err != nil {
			return err
		}
	}

	return nil
}

func (c *Collection) entitiesFromFragments(fragments []map[string]any) ([]mgmtapi.Entity, error) {
	entities := make([]mgmtapi.Entity, 0, len(fragments))

	for _, fragment := range fragments {
		entity, err := newEntityFromFragment(c, fragment)
		if err != nil {
			return nil, err
		}

		entities = append(entities, entity)
	}

	return entities, nil
}

// FindBy runs a server-side filtered search. The filter dialect is picked by
// API version; the one version that may speak either dialect gets exactly one
// retry with the legacy encoding when the server rejects the modern one.
func (c *Collection) FindBy(ctx context.Context, filters map[string]any) (*mgmtapi.SearchResult, error) {
	plan := mgmtapi.PlanForVersion(c.client.version)

	result, err := c.findWithDialect(ctx, plan.Preferred, filters)
	if err != nil && plan.HasFallback && mgmtapi.IsAPIError(err) {
		return c.findWithDialect(ctx, plan.Fallback, filters)
	}

	return result, err
}

func (c *Collection) findWithDialect(ctx context.Context, dialect mgmtapi.FilterDialect, filters map[string]any) (*mgmtapi.SearchResult, error) {
	query := mgmtapi.EncodeFilters(dialect, filters)

	decoded, err := c.client.get(ctx, c.href, query, true)
	if err != nil {
		return nil, err
	}

	doc, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s", mgmtapi.ErrMalformedCollectionDoc, c.name)
	}

	entities, err := c.entitiesFromFragments(resourceFragments(doc["resources"]))
	if err != nil {
		return nil, err
	}

	return &mgmtapi.SearchResult{
		Collection: c,
		Count:      intField(doc, "count"),
		Subcount:   intField(doc, "subcount"),
		Resources:  entities,
	}, nil
}

// Get returns the first match of FindBy, reloaded, or ErrNoSuchObject.
func (c *Collection) Get(ctx context.Context, filters map[string]any) (mgmtapi.Entity, error) {
	result, err := c.FindBy(ctx, filters)
	if err != nil {
		return nil, err
	}

	if len(result.Resources) == 0 {
		return nil, fmt.Errorf("%w: no %s matching %v", mgmtapi.ErrNoSuchObject, c.name, filters)
	}

	entity := result.Resources[0]
	if err := entity.Reload(ctx); err != nil {
		return nil, err
	}

	return entity, nil
}

// Entity returns a stub entity addressed by {href}/{id}.
func (c *Collection) Entity(id any) mgmtapi.Entity {
	href := fmt.Sprintf("%s/%v", c.href, id)

	identity := href
	if !c.client.NewIDBehaviour() {
		identity = fmt.Sprintf("%v", id)
	}

	return newStubEntity(c, href, identity)
}

// Actions returns the collection's action container.
func (c *Collection) Actions() mgmtapi.ActionContainer {
	return &ActionContainer{owner: c}
}

func (c *Collection) actionSet() []mgmtapi.ActionRef {
	return c.actionRefs
}

func (c *Collection) owningCollection() *Collection {
	return c
}

func (c *Collection) ownerHref() string {
	return c.href
}
