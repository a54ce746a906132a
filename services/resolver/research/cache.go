// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package research

import (
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/depscout/services/resolver/datatypes"
)

// DefaultCacheTTL is how long a successful registry lookup stays
// servable from the cache.
const DefaultCacheTTL = 1 * time.Hour

// cacheEntry pairs a research result with its expiry instant.
type cacheEntry struct {
	result    *datatypes.PackageResearchResult
	expiresAt time.Time
}

// Cache is a process-wide TTL cache of research results, keyed by
// lowercase package name.
//
// The cache is shared across concurrently running jobs. Writes are
// last-writer-wins; a race between two jobs on the same key means at
// worst one duplicate upstream fetch, never corruption. Safe for
// concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	clock   func() time.Time

	// done belongs to the currently running janitor goroutine, nil
	// when no janitor is running. Recreated on every start so a
	// stopped cache can be restarted.
	done chan struct{}
}

// NewCache creates a research cache with the given TTL. A zero ttl
// selects DefaultCacheTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		clock:   time.Now,
	}
}

// Get returns the cached result for key, or nil when the key is
// absent or expired. Expired entries are dropped on read.
func (c *Cache) Get(key string) *datatypes.PackageResearchResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil
	}
	if c.clock().After(e.expiresAt) {
		delete(c.entries, key)
		return nil
	}
	return e.result
}

// Put stores a result under key with the cache's fixed TTL.
func (c *Cache) Put(key string, result *datatypes.PackageResearchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{result: result, expiresAt: c.clock().Add(c.ttl)}
}

// Evict removes key regardless of expiry. Used when a cached entry
// turns out to have an unusable shape.
func (c *Cache) Evict(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of entries currently held, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep drops every expired entry and returns how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	removed := 0
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// StartJanitor launches a background goroutine that sweeps expired
// entries on the given interval. Uses the ticker + done channel
// pattern; call StopJanitor to shut it down. A stopped janitor may be
// started again.
func (c *Cache) StartJanitor(interval time.Duration) {
	c.mu.Lock()
	if c.done != nil {
		c.mu.Unlock()
		return
	}
	done := make(chan struct{})
	c.done = done
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := c.Sweep(); n > 0 {
					slog.Debug("Research cache sweep removed expired entries", "removed", n)
				}
			case <-done:
				return
			}
		}
	}()
}

// StopJanitor stops the background sweeper, if running.
func (c *Cache) StopJanitor() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == nil {
		return
	}
	close(c.done)
	c.done = nil
}
