package library

import "sync"

// Cache holds fetched library text by reference. It is safe for
// concurrent use and shared across runs.
type Cache struct {
	data sync.Map
}

func NewCache() *Cache {
	return &Cache{}
}

func (c *Cache) Get(ref string) (string, bool) {
	v, ok := c.data.Load(ref)
	if !ok {
		return "", false
	}
	return v.(string), true
}

func (c *Cache) Set(ref, text string) {
	c.data.Store(ref, text)
}

func (c *Cache) Len() int {
	n := 0
	c.data.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
