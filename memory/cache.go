/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package memory

import "sync"

// Factory constructs the Store for a judge name.
type Factory func(judge string) (*Store, error)

// Cache is a keyed pool of per-judge stores, constructed on first use.
// Every caller asking for the same judge gets the same Store.
type Cache struct {
	mu      sync.Mutex
	factory Factory
	stores  map[string]*Store
}

// NewCache returns a cache that builds stores with factory on miss.
func NewCache(factory Factory) *Cache {
	return &Cache{
		factory: factory,
		stores:  map[string]*Store{},
	}
}

// Get returns the store for judge, constructing it on first request.
func (c *Cache) Get(judge string) (*Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.stores[judge]; ok {
		return s, nil
	}
	s, err := c.factory(judge)
	if err != nil {
		return nil, err
	}
	c.stores[judge] = s
	return s, nil
}

// Forget drops the cached store for judge. Used after judge deletion so a
// recreated judge gets fresh collections.
func (c *Cache) Forget(judge string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.stores, judge)
}
