package generator

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/alexchoi0/blueprint/internal/schema"
)

// DefaultCacheCapacity bounds the number of distinct source files whose
// generated Schema is kept in memory between compiles.
const DefaultCacheCapacity = 100

// SchemaCache memoizes Generate's result by a source-derived key, so
// re-compiling an unchanged script skips re-walking its AST. Supplements
// the distilled spec, which only describes op-level caching; a
// generation-level cache mirrors it at the layer above.
type SchemaCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List
}

type schemaCacheEntry struct {
	key   string
	value *schema.Schema
}

func NewSchemaCache() *SchemaCache {
	return NewSchemaCacheWithCapacity(DefaultCacheCapacity)
}

func NewSchemaCacheWithCapacity(capacity int) *SchemaCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &SchemaCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Key derives a SchemaCache key from a schema version and source text,
// as "v{version}:{sha256(source)}" so a version bump invalidates every
// cached entry without an explicit flush.
func Key(version int, source []byte) string {
	sum := sha256.Sum256(source)
	return fmt.Sprintf("v%d:%s", version, hex.EncodeToString(sum[:]))
}

func (c *SchemaCache) Get(key string) (*schema.Schema, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*schemaCacheEntry).value, true
}

func (c *SchemaCache) Put(key string, s *schema.Schema) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		elem.Value.(*schemaCacheEntry).value = s
		c.order.MoveToFront(elem)
		return
	}
	elem := c.order.PushFront(&schemaCacheEntry{key: key, value: s})
	c.entries[key] = elem
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*schemaCacheEntry).key)
		}
	}
}
