package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/appliance-io/mgmtapi/pkg/mgmtapi"
)

// actionOwner is a collection or entity that declares actions in its
// snapshot.
type actionOwner interface {
	reload(ctx context.Context) error
	reloadIfNeeded(ctx context.Context) error
	actionSet() []mgmtapi.ActionRef
	owningCollection() *Collection
	ownerHref() string
}

func parseActionRefs(raw any) []mgmtapi.ActionRef {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}

	refs := make([]mgmtapi.ActionRef, 0, len(items))

	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}

		ref := mgmtapi.ActionRef{}
		ref.Name, _ = entry["name"].(string)
		ref.Method, _ = entry["method"].(string)
		ref.Href, _ = entry["href"].(string)

		if ref.Name != "" {
			refs = append(refs, ref)
		}
	}

	return refs
}

// ActionContainer implements the mgmtapi.ActionContainer interface. The
// action set is re-derived from the owner's latest snapshot on every access,
// never merged, so stale actions from a prior snapshot are discarded.
type ActionContainer struct {
	owner actionOwner
}

// Reload re-fetches the owner so the action set reflects the server's
// current declarations.
func (c *ActionContainer) Reload(ctx context.Context) error {
	return c.owner.reload(ctx)
}

// Names returns the declared action names.
func (c *ActionContainer) Names(ctx context.Context) ([]string, error) {
	if err := c.owner.reloadIfNeeded(ctx); err != nil {
		return nil, err
	}

	refs := c.owner.actionSet()

	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		names = append(names, ref.Name)
	}

	return names, nil
}

// Has reports whether an action is declared.
func (c *ActionContainer) Has(ctx context.Context, name string) (bool, error) {
	if err := c.owner.reloadIfNeeded(ctx); err != nil {
		return false, err
	}

	for _, ref := range c.owner.actionSet() {
		if ref.Name == name {
			return true, nil
		}
	}

	return false, nil
}

// Get returns a declared action by name, or ErrNoSuchAction.
func (c *ActionContainer) Get(ctx context.Context, name string) (mgmtapi.Action, error) {
	if err := c.owner.reloadIfNeeded(ctx); err != nil {
		return nil, err
	}

	for _, ref := range c.owner.actionSet() {
		if ref.Name == name {
			return &Action{owner: c.owner, ref: ref}, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", mgmtapi.ErrNoSuchAction, name)
}

// Action implements the mgmtapi.Action interface.
type Action struct {
	owner actionOwner
	ref   mgmtapi.ActionRef
}

// Name returns the action name.
func (a *Action) Name() string {
	return a.ref.Name
}

// Method returns the HTTP method the server declared for the action.
func (a *Action) Method() string {
	return a.ref.Method
}

// Href returns the invocation address: the declared href when the server
// provided one, the owner's address otherwise.
func (a *Action) Href() string {
	if a.ref.Href != "" {
		return a.ref.Href
	}

	return a.owner.ownerHref()
}

// Invoke sends a bulk invocation. Entities become {"href": ...} references;
// anything else is passed through as-is. With no arguments only the action
// name is sent.
func (a *Action) Invoke(ctx context.Context, resources ...any) (any, error) {
	payload := map[string]any{"action": a.ref.Name}

	if len(resources) > 0 {
		refs := make([]any, 0, len(resources))

		for _, resource := range resources {
			if entity, ok := resource.(mgmtapi.Entity); ok {
				refs = append(refs, entity.Ref())
			} else {
				refs = append(refs, resource)
			}
		}

		payload["resources"] = refs
	}

	return a.dispatch(ctx, payload)
}

// InvokeSingle sends a single-resource invocation with the given fields.
func (a *Action) InvokeSingle(ctx context.Context, resource map[string]any) (any, error) {
	payload := map[string]any{"action": a.ref.Name}

	if resource != nil {
		payload["resource"] = resource
	}

	return a.dispatch(ctx, payload)
}

func (a *Action) dispatch(ctx context.Context, payload map[string]any) (any, error) {
	client := a.owner.owningCollection().client

	var (
		result any
		err    error
	)

	switch strings.ToLower(a.ref.Method) {
	case "post", "":
		result, err = client.Post(ctx, a.Href(), payload)
	case "delete":
		result, err = client.Delete(ctx, a.Href(), payload)
	default:
		return nil, fmt.Errorf("%w: %s for action %s",
			mgmtapi.ErrUnsupportedActionMethod, a.ref.Method, a.ref.Name)
	}

	if err != nil {
		return nil, err
	}

	return a.mapResult(result)
}

// mapResult turns a results array into stub entities addressed by the items'
// hrefs or ids. Anything else, including a null no-content result, passes
// through unchanged.
func (a *Action) mapResult(result any) (any, error) {
	doc, ok := result.(map[string]any)
	if !ok {
		return result, nil
	}

	items, ok := doc["results"].([]any)
	if !ok {
		return result, nil
	}

	collection := a.owner.owningCollection()

	entities := make([]mgmtapi.Entity, 0, len(items))

	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: action %s", mgmtapi.ErrMalformedActionResult, a.ref.Name)
		}

		switch {
		case entry["href"] != nil:
			href, _ := entry["href"].(string)
			entities = append(entities, newStubEntity(collection, href, href))
		case entry["id"] != nil:
			entities = append(entities, collection.Entity(entry["id"]))
		default:
			return nil, fmt.Errorf("%w: action %s", mgmtapi.ErrMalformedActionResult, a.ref.Name)
		}
	}

	return entities, nil
}
