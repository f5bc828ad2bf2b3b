package cache

import (
	"errors"
	"time"
)

// LayeredCache reads through its layers in order, fastest first.
// A hit in a lower layer is copied into every layer above it.
type LayeredCache struct {
	layers []Cache
}

// NewLayeredCache stacks layers; nil layers are ignored
func NewLayeredCache(layers ...Cache) *LayeredCache {
	c := &LayeredCache{}
	for _, l := range layers {
		if l != nil {
			c.layers = append(c.layers, l)
		}
	}
	return c
}

// Get returns the first hit, backfilling faster layers with their default TTL
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	for i, layer := range c.layers {
		val, found := layer.Get(key)
		if !found {
			continue
		}
		for _, upper := range c.layers[:i] {
			_ = upper.Set(key, val, 0)
		}
		return val, true
	}
	return nil, false
}

// Set writes every layer and reports all failures
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	var errs []error
	for _, layer := range c.layers {
		if err := layer.Set(key, value, ttl); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Delete removes key from every layer
func (c *LayeredCache) Delete(key string) error {
	var errs []error
	for _, layer := range c.layers {
		if err := layer.Delete(key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Clear empties every layer
func (c *LayeredCache) Clear() error {
	var errs []error
	for _, layer := range c.layers {
		if err := layer.Clear(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
