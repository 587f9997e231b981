package lineage

import (
	"context"

	"cix/internal/storage"
	"cix/internal/symbols"
)

// Resolver maps placeholder edge targets to real symbol ids when exactly one
// symbol carries the name. Lookups are cached for the resolver's lifetime.
type Resolver struct {
	repo  *storage.SymbolRepository
	cache map[string]string
}

// NewResolver creates a resolver over repo.
func NewResolver(repo *storage.SymbolRepository) *Resolver {
	return &Resolver{repo: repo, cache: make(map[string]string)}
}

// Resolve returns the id a placeholder stands for, or id unchanged when it is
// not a placeholder or the name is ambiguous or unknown.
func (r *Resolver) Resolve(ctx context.Context, id string) (string, error) {
	name, ok := symbols.PlaceholderName(id)
	if !ok {
		return id, nil
	}
	if got, ok := r.cache[name]; ok {
		return got, nil
	}
	matches, err := r.repo.Resolve(ctx, name, 2)
	if err != nil {
		return "", err
	}
	got := id
	if len(matches) == 1 {
		got = matches[0].ID
	}
	r.cache[name] = got
	return got, nil
}
