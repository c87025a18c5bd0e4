package offline

import (
	"net/http"
	"sync"
)

// Response types, as reported by a fetch.
const (
	TypeBasic  = "basic"
	TypeCORS   = "cors"
	TypeOpaque = "opaque"
)

// Entry is a stored response.
type Entry struct {
	Status int
	Header http.Header
	Body   []byte
	Type   string
}

func (e Entry) clone() Entry {
	return Entry{
		Status: e.Status,
		Header: e.Header.Clone(),
		Body:   append([]byte(nil), e.Body...),
		Type:   e.Type,
	}
}

// Cache is one named set of responses keyed by request path.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func (c *Cache) Put(path string, e Entry) {
	c.mu.Lock()
	c.entries[path] = e.clone()
	c.mu.Unlock()
}

func (c *Cache) Match(path string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[path]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// CacheStorage holds named caches. Lookups go through caches in the order
// they were created.
type CacheStorage struct {
	mu     sync.RWMutex
	caches map[string]*Cache
	order  []string
}

func NewCacheStorage() *CacheStorage {
	return &CacheStorage{caches: make(map[string]*Cache)}
}

// Open returns the named cache, creating it if needed.
func (s *CacheStorage) Open(name string) *Cache {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.caches[name]; ok {
		return c
	}
	c := &Cache{entries: make(map[string]Entry)}
	s.caches[name] = c
	s.order = append(s.order, name)
	return c
}

// Delete removes a cache and reports whether it existed.
func (s *CacheStorage) Delete(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.caches[name]; !ok {
		return false
	}
	delete(s.caches, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *CacheStorage) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.caches[name]
	return ok
}

// Keys lists cache names in creation order.
func (s *CacheStorage) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Match looks path up in every cache.
func (s *CacheStorage) Match(path string) (Entry, bool) {
	s.mu.RLock()
	caches := make([]*Cache, 0, len(s.order))
	for _, name := range s.order {
		caches = append(caches, s.caches[name])
	}
	s.mu.RUnlock()

	for _, c := range caches {
		if e, ok := c.Match(path); ok {
			return e, true
		}
	}
	return Entry{}, false
}
