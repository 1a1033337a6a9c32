package mgmtapi

import "context"

// CollectionRef is one entry of the root document's collections list.
type CollectionRef struct {
	Name        string `json:"name"        yaml:"name"`
	Href        string `json:"href"        yaml:"href"`
	Description string `json:"description" yaml:"description"`
}

// VersionRef is one entry of the root document's versions list.
type VersionRef struct {
	Name string `json:"name" yaml:"name"`
	Href string `json:"href" yaml:"href"`
}

// ActionRef is a server-declared action triple on a collection or entity.
type ActionRef struct {
	Name   string `json:"name"   yaml:"name"`
	Method string `json:"method" yaml:"method"`
	Href   string `json:"href"   yaml:"href"`
}

// SearchResult is the subset of a collection's entities matching a filter.
// Count is the full collection size and Subcount the matched size as
// reported by the server; both are distinct from len(Resources), the page
// size actually returned.
type SearchResult struct {
	Collection Collection
	Count      int
	Subcount   int
	Resources  []Entity
}

// Len returns the server-reported matched size.
func (r *SearchResult) Len() int {
	return r.Subcount
}

// At reloads and returns the entity at the given position.
func (r *SearchResult) At(ctx context.Context, position int) (Entity, error) {
	entity := r.Resources[position]
	if err := entity.Reload(ctx); err != nil {
		return nil, err
	}

	return entity, nil
}

// Each reloads each matched entity in turn and passes it to fn. Iteration
// stops at the first error.
func (r *SearchResult) Each(ctx context.Context, fn func(Entity) error) error {
	for _, entity := range r.Resources {
		if err := entity.Reload(ctx); err != nil {
			return err
		}

		if err := fn(entity); err != nil {
			return err
		}
	}

	return nil
}
