package wordpiece

import (
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru"
)

// Cache is a bounded, concurrency-safe memo of word → pieces.
type Cache struct {
	lru *lru.Cache
}

// NewCache returns a cache holding at most size words.
func NewCache(size int) (*Cache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create wordpiece cache: %w", err)
	}
	return &Cache{lru: c}, nil
}

// Get returns a copy of the cached pieces for word.
func (c *Cache) Get(word string) ([]string, bool) {
	v, ok := c.lru.Get(word)
	if !ok {
		return nil, false
	}
	return slices.Clone(v.([]string)), true
}

// Add stores a copy of pieces under word.
func (c *Cache) Add(word string, pieces []string) {
	c.lru.Add(word, slices.Clone(pieces))
}

// Len returns the number of cached words.
func (c *Cache) Len() int { return c.lru.Len() }

// Purge drops every entry.
func (c *Cache) Purge() { c.lru.Purge() }
