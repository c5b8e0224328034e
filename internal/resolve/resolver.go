// Package resolve maps human-readable content names to opaque platform IDs.
package resolve

import (
	"context"
	"fmt"
	"strings"
)

// LiteralPrefix marks a name that is already a verbatim platform ID and
// must not be looked up.
const LiteralPrefix = ":"

// Lookup is the single platform call the resolver depends on. A name with
// no remote match yields "" without error.
type Lookup interface {
	LookupID(ctx context.Context, name string) (string, error)
}

// UnresolvedNameError is returned by ResolveRequired when a name has no
// platform ID and "create new" is not allowed at that position.
type UnresolvedNameError struct {
	Name string
}

func (e *UnresolvedNameError) Error() string {
	return fmt.Sprintf("name %q did not resolve to an ID: the referenced content must already exist", e.Name)
}

// Resolver memoizes name lookups for one manifest branch. Fork it at every
// recursion boundary so sibling branches re-resolve independently.
type Resolver struct {
	lookup Lookup
	memo   map[string]string
}

// New creates a Resolver backed by the given lookup.
func New(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup, memo: make(map[string]string)}
}

// Fork returns a resolver with a copied memo. The underlying lookup (and
// its request counter) stays shared.
func (r *Resolver) Fork() *Resolver {
	memo := make(map[string]string, len(r.memo))
	for k, v := range r.memo {
		memo[k] = v
	}
	return &Resolver{lookup: r.lookup, memo: memo}
}

// Resolve maps a name to its platform ID. An empty name resolves to ""
// without a lookup. A name with the literal prefix is returned verbatim
// (prefix stripped) without a lookup. A missing remote match resolves to
// "", the create-new case, and is not an error.
func (r *Resolver) Resolve(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", nil
	}
	if strings.HasPrefix(name, LiteralPrefix) {
		return strings.TrimPrefix(name, LiteralPrefix), nil
	}
	if id, ok := r.memo[name]; ok {
		return id, nil
	}

	id, err := r.lookup.LookupID(ctx, name)
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", name, err)
	}
	if id != "" {
		r.memo[name] = id
	}
	return id, nil
}

// ResolveRequired is Resolve with "create new" disallowed: an empty result
// is an UnresolvedNameError.
func (r *Resolver) ResolveRequired(ctx context.Context, name string) (string, error) {
	id, err := r.Resolve(ctx, name)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", &UnresolvedNameError{Name: name}
	}
	return id, nil
}
