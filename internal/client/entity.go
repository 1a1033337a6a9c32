package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/appliance-io/mgmtapi/pkg/mgmtapi"
)

// timeFields are the attribute names whose string values carry timestamps.
var timeFields = map[string]struct{}{
	"updated_on":           {},
	"created_on":           {},
	"last_scan_attempt_on": {},
	"state_changed_on":     {},
	"lastlogon":            {},
	"updated_at":           {},
	"created_at":           {},
}

// foreignKeys maps recognized foreign-key attributes to the collection the
// key points into. Only these keys get a related stub synthesized; other
// *_id attributes stay plain values.
var foreignKeys = map[string]string{
	"ems_id":           "providers",
	"storage_id":       "data_stores",
	"zone_id":          "zones",
	"host_id":          "hosts",
	"current_group_id": "groups",
	"miq_user_role_id": "roles",
}

// timeLayouts are tried in order when parsing a timestamp attribute.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05 MST",
}

// Entity implements the mgmtapi.Entity interface. A stub entity knows only
// its href until the first accessor call triggers a load.
type Entity struct {
	collection *Collection
	href       string
	identity   string
	loaded     bool

	fields     map[string]any
	times      map[string]time.Time
	related    map[string]mgmtapi.Entity
	actionRefs []mgmtapi.ActionRef
}

// newStubEntity builds an unloaded entity from an address.
func newStubEntity(collection *Collection, href, identity string) *Entity {
	return &Entity{
		collection: collection,
		href:       href,
		identity:   identity,
	}
}

// newEntityFromFragment builds an entity from one resource fragment of a
// collection document. A fragment carrying an id becomes a loaded entity; a
// bare href reference becomes a stub.
func newEntityFromFragment(collection *Collection, fragment map[string]any) (*Entity, error) {
	if _, ok := fragment["id"]; ok {
		entity := &Entity{collection: collection}
		entity.populate(fragment)

		return entity, nil
	}

	if href, ok := fragment["href"].(string); ok {
		return newStubEntity(collection, href, href), nil
	}

	return nil, fmt.Errorf("%w: collection %s", mgmtapi.ErrMalformedEntity, collection.name)
}

// populate replaces the entity's snapshot with the given document: it fixes
// the address and identity, splits out declared actions, parses timestamp
// fields, and synthesizes related stubs for recognized foreign keys.
func (e *Entity) populate(doc map[string]any) {
	client := e.collection.client

	if href, ok := doc["href"].(string); ok && href != "" {
		e.href = href
	} else if id, ok := doc["id"]; ok {
		e.href = fmt.Sprintf("%s/%v", e.collection.href, id)
	}

	if client.NewIDBehaviour() {
		e.identity = e.href
	} else if id, ok := doc["id"]; ok {
		e.identity = fmt.Sprintf("%v", id)
	}

	e.fields = make(map[string]any, len(doc))
	e.times = make(map[string]time.Time)
	e.related = make(map[string]mgmtapi.Entity)
	e.actionRefs = nil

	for key, value := range doc {
		if key == "actions" {
			e.actionRefs = parseActionRefs(value)

			continue
		}

		e.fields[key] = value

		if _, isTime := timeFields[key]; isTime {
			if raw, ok := value.(string); ok {
				if parsed, err := parseTime(raw); err == nil {
					e.fields[key] = parsed
					e.times[key] = parsed
				}
			}
		}

		if target, ok := foreignKeyTarget(key); ok && value != nil {
			name := strings.TrimSuffix(key, "_id")
			e.related[name] = client.GetEntity(target, value)
		}
	}

	e.loaded = true
}

func foreignKeyTarget(key string) (string, bool) {
	target, ok := foreignKeys[key]

	return target, ok
}

func parseTime(raw string) (time.Time, error) {
	var lastErr error

	for _, layout := range timeLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			return parsed, nil
		}

		lastErr = err
	}

	return time.Time{}, lastErr
}

// Href is the address used to fetch the entity body.
func (e *Entity) Href() string {
	return e.href
}

// Identity is the canonical identity value: the numeric id before version
// 2.0.0, the href at or after it.
func (e *Entity) Identity() string {
	return e.identity
}

// Collection returns the owning collection.
func (e *Entity) Collection() mgmtapi.Collection {
	return e.collection
}

// Loaded reports whether a field snapshot is present.
func (e *Entity) Loaded() bool {
	return e.loaded
}

// Reload re-fetches the entity body from its href.
func (e *Entity) Reload(ctx context.Context) error {
	return e.fetch(ctx, nil)
}

// ReloadExpand re-fetches the body requesting expansion of nested references.
func (e *Entity) ReloadExpand(ctx context.Context, expand string) error {
	return e.fetch(ctx, url.Values{"expand": []string{expand}})
}

func (e *Entity) fetch(ctx context.Context, query url.Values) error {
	decoded, err := e.collection.client.get(ctx, e.href, query, true)
	if err != nil {
		return err
	}

	doc, ok := decoded.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: %s", mgmtapi.ErrMalformedEntityDoc, e.href)
	}

	e.populate(doc)

	return nil
}

func (e *Entity) ensureLoaded(ctx context.Context) error {
	if e.loaded {
		return nil
	}

	return e.Reload(ctx)
}

func (e *Entity) reloadIfNeeded(ctx context.Context) error {
	return e.ensureLoaded(ctx)
}

func (e *Entity) reload(ctx context.Context) error {
	return e.Reload(ctx)
}

// Attribute returns a field by name, loading the body first if needed.
// Recognized foreign keys also answer under their de-suffixed name with the
// synthesized stub entity.
func (e *Entity) Attribute(ctx context.Context, name string) (any, error) {
	if err := e.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	if value, ok := e.fields[name]; ok {
		return value, nil
	}

	if entity, ok := e.related[name]; ok {
		return entity, nil
	}

	return nil, fmt.Errorf("%w: %s on %s", mgmtapi.ErrNoSuchAttribute, name, e.href)
}

// Time returns a parsed timestamp field by name.
func (e *Entity) Time(ctx context.Context, name string) (time.Time, error) {
	if err := e.ensureLoaded(ctx); err != nil {
		return time.Time{}, err
	}

	parsed, ok := e.times[name]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s on %s", mgmtapi.ErrNoSuchAttribute, name, e.href)
	}

	return parsed, nil
}

// Related returns the stub entity synthesized for a foreign-key field, by
// de-suffixed name.
func (e *Entity) Related(ctx context.Context, name string) (mgmtapi.Entity, error) {
	if err := e.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	entity, ok := e.related[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", mgmtapi.ErrNoSuchAttribute, name, e.href)
	}

	return entity, nil
}

// Attributes returns a copy of the current field snapshot.
func (e *Entity) Attributes(ctx context.Context) (map[string]any, error) {
	if err := e.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	snapshot := make(map[string]any, len(e.fields))
	for key, value := range e.fields {
		snapshot[key] = value
	}

	return snapshot, nil
}

// Ref returns the {"href": ...} reference form used in action payloads.
func (e *Entity) Ref() map[string]any {
	return map[string]any{"href": e.href}
}

// Actions returns the entity's action container.
func (e *Entity) Actions() mgmtapi.ActionContainer {
	return &ActionContainer{owner: e}
}

func (e *Entity) actionSet() []mgmtapi.ActionRef {
	return e.actionRefs
}

func (e *Entity) owningCollection() *Collection {
	return e.collection
}

func (e *Entity) ownerHref() string {
	return e.href
}
