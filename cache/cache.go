// Package cache provides the optional page cache used to avoid redundant
// network fetches. A failing backend is never fatal: every error path
// degrades to a cache miss so the pipeline can carry on with live fetches.
package cache

import (
	"context"
	"fmt"
)

// Key identifies one cached search-results page.
type Key struct {
	Product string
	Page    int
	Region  string
}

// String renders the storage key. The prefix keeps shared Redis databases
// tidy, mirroring the page cache this replaces.
func (k Key) String() string {
	return fmt.Sprintf("pricescout:html:%s:%s:%d", k.Region, k.Product, k.Page)
}

// Cache is a TTL'd page store. Implementations must treat backend failures
// as misses and never block the caller on unavailability.
type Cache interface {
	Get(ctx context.Context, key Key) ([]byte, bool)
	Put(ctx context.Context, key Key, value []byte)
}

// Disabled is the no-op cache used when caching is turned off.
type Disabled struct{}

func (Disabled) Get(context.Context, Key) ([]byte, bool) { return nil, false }
func (Disabled) Put(context.Context, Key, []byte)        {}

// Tiered checks a remote backend first and falls back to a local in-memory
// tier, populating both on Put.
type Tiered struct {
	remote Cache
	local  Cache
}

// NewTiered combines a remote backend (may be nil) with a local tier.
func NewTiered(remote, local Cache) *Tiered {
	if local == nil {
		local = Disabled{}
	}
	return &Tiered{remote: remote, local: local}
}

func (t *Tiered) Get(ctx context.Context, key Key) ([]byte, bool) {
	if t.remote != nil {
		if value, ok := t.remote.Get(ctx, key); ok {
			return value, true
		}
	}
	return t.local.Get(ctx, key)
}

func (t *Tiered) Put(ctx context.Context, key Key, value []byte) {
	if t.remote != nil {
		t.remote.Put(ctx, key, value)
	}
	t.local.Put(ctx, key, value)
}
