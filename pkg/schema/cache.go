package schema

import (
	"context"
	"sync"

	"github.com/nuxeo/spreadsheet-schemas/pkg/rest"
)

// Fetcher retrieves the fields of a schema by name from an external source.
type Fetcher func(ctx context.Context, name string) (Fields, error)

// Cache provides thread-safe caching of schema fields keyed by schema name.
// It lazily fetches fields on first access and returns cached results thereafter.
// Failed lookups are not cached.
type Cache struct {
	fetcher Fetcher
	cache   map[string]Fields
	mu      sync.RWMutex
}

// NewCache creates a new Cache backed by the given fetcher function.
func NewCache(fetcher Fetcher) *Cache {
	return &Cache{
		fetcher: fetcher,
		cache:   make(map[string]Fields),
	}
}

// NewFieldsCache returns a Cache fetching fields from the schema catalogue.
func NewFieldsCache(client *rest.Client) *Cache {
	resource := rest.NewResource(client, CataloguePath)
	return NewCache(func(ctx context.Context, name string) (Fields, error) {
		resp, err := FetchFields(ctx, resource, name)
		if err != nil {
			return nil, err
		}
		if resp.Fields == nil {
			return Fields{}, nil
		}
		return resp.Fields, nil
	})
}

// Get returns the cached fields for name, fetching them on first access.
func (c *Cache) Get(ctx context.Context, name string) (Fields, error) {
	c.mu.RLock()
	if f, ok := c.cache[name]; ok {
		c.mu.RUnlock()
		return f, nil
	}
	c.mu.RUnlock()

	f, err := c.fetcher(ctx, name)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[name] = f
	c.mu.Unlock()
	return f, nil
}

// Add seeds the cache with already resolved fields.
func (c *Cache) Add(name string, fields Fields) {
	c.mu.Lock()
	c.cache[name] = fields
	c.mu.Unlock()
}
