// internal/cache/lru.go
//
// Tiny generic LRU used by the sign-in limiters to bound how many keys they
// remember.  Not safe for concurrent use; callers hold their own lock.
package cache

import "container/list"

// LRU is a least-recently-used cache.
type LRU[K comparable, V any] struct {
	cap  int
	ll   *list.List
	dict map[K]*list.Element
}

type pair[K comparable, V any] struct {
	key K
	val V
}

// New returns an LRU with the given capacity.  Panics on cap < 1.
func New[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity < 1 {
		panic("cache: capacity must be ≥1")
	}
	return &LRU[K, V]{
		cap:  capacity,
		ll:   list.New(),
		dict: make(map[K]*list.Element),
	}
}

// Get retrieves a value and marks it MRU.
func (c *LRU[K, V]) Get(key K) (val V, ok bool) {
	if ele, hit := c.dict[key]; hit {
		c.ll.MoveToFront(ele)
		return ele.Value.(pair[K, V]).val, true
	}
	return val, false
}

// Add inserts or updates a value, evicting the LRU entry when full.
func (c *LRU[K, V]) Add(key K, val V) {
	if ele, hit := c.dict[key]; hit {
		ele.Value = pair[K, V]{key, val}
		c.ll.MoveToFront(ele)
		return
	}
	c.dict[key] = c.ll.PushFront(pair[K, V]{key, val})
	if c.ll.Len() > c.cap {
		c.Remove(c.ll.Back().Value.(pair[K, V]).key)
	}
}

// Remove deletes key if present.
func (c *LRU[K, V]) Remove(key K) {
	if ele, hit := c.dict[key]; hit {
		c.ll.Remove(ele)
		delete(c.dict, key)
	}
}

// Contains reports presence without touching recency.
func (c *LRU[K, V]) Contains(key K) bool {
	_, ok := c.dict[key]
	return ok
}

// RemoveFunc deletes every entry for which drop returns true.
func (c *LRU[K, V]) RemoveFunc(drop func(K, V) bool) {
	for ele := c.ll.Front(); ele != nil; {
		next := ele.Next()
		p := ele.Value.(pair[K, V])
		if drop(p.key, p.val) {
			c.ll.Remove(ele)
			delete(c.dict, p.key)
		}
		ele = next
	}
}

// Len reports current size.
func (c *LRU[K, V]) Len() int { return c.ll.Len() }
