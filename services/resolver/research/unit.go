// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package research implements the per-package research unit: registry
// metadata lookup, TTL caching, static deprecation analysis, and the
// optional AI-assisted alternatives advisor.
//
// Per-package failures are isolated. A lookup failure for one package
// produces a failed result for that package only; it never aborts
// research for the rest of the requirement set.
package research

import (
	"context"
	"errors"
	"log/slog"

	"github.com/AleutianAI/depscout/services/llm"
	"github.com/AleutianAI/depscout/services/resolver/datatypes"
	"github.com/AleutianAI/depscout/services/resolver/knowledge"
	"github.com/AleutianAI/depscout/services/resolver/observability"
	"github.com/AleutianAI/depscout/services/resolver/registry"
)

// MetadataSource abstracts the package registry for testing.
// *registry.Client is the production implementation.
type MetadataSource interface {
	Lookup(ctx context.Context, name string) (*datatypes.PackageInfo, error)
}

// Unit is the package research unit.
//
// # Description
//
// For each package name the unit consults, in order: the built-in
// deprecated module table (no registry round trip), the shared TTL
// cache, and finally the registry. Successful registry lookups are
// written back to the cache. Deprecation analysis always comes from
// the static knowledge tables; the optional LLM advisor only enriches
// results that the tables already flagged.
//
// # Thread Safety
//
// Safe for concurrent use: the cache is internally synchronized and
// all other fields are read-only after construction.
type Unit struct {
	source  MetadataSource
	table   *knowledge.Table
	cache   *Cache
	advisor llm.LLMClient
}

// NewUnit creates a research unit. advisor may be nil, in which case
// the AI enrichment step is skipped entirely.
func NewUnit(source MetadataSource, table *knowledge.Table, cache *Cache, advisor llm.LLMClient) *Unit {
	return &Unit{
		source:  source,
		table:   table,
		cache:   cache,
		advisor: advisor,
	}
}

// usableCacheHit reports whether a cached result has the shape the
// pipeline expects: a package block with a non-empty latest version.
// Anything else is treated as a stale miss and evicted.
func usableCacheHit(res *datatypes.PackageResearchResult) bool {
	return res != nil && res.Package != nil && res.Package.LatestVersion != ""
}

// Research produces the research result for one package name.
//
// The result is a tagged union: either registry metadata plus a
// deprecation analysis, or a per-package error marker. Research never
// returns a Go error; failure is data here, because one bad package
// name must not deny a report for the rest of the set.
func (u *Unit) Research(ctx context.Context, name string) *datatypes.PackageResearchResult {
	key := datatypes.Requirement{Name: name}.Key()

	// Deprecated built-in modules never exist on the registry.
	if entry, ok := u.table.BuiltinModule(key); ok {
		return &datatypes.PackageResearchResult{
			Name:        name,
			Package:     &datatypes.PackageInfo{Name: name, LatestVersion: datatypes.BuiltinVersion},
			Deprecation: entry.Analysis(),
		}
	}

	if cached := u.cache.Get(key); cached != nil {
		if usableCacheHit(cached) {
			observability.RecordCacheEvent("hit")
			return cached
		}
		slog.Warn("Evicting malformed research cache entry", "package", key)
		u.cache.Evict(key)
		observability.RecordCacheEvent("evict")
	}
	observability.RecordCacheEvent("miss")

	info, err := u.source.Lookup(ctx, name)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			observability.RecordRegistryLookup("not_found")
			slog.Info("Package not found on registry", "package", key)
		} else {
			observability.RecordRegistryLookup("error")
			slog.Warn("Registry lookup failed", "package", key, "error", err)
		}
		return &datatypes.PackageResearchResult{Name: name, Err: err.Error()}
	}
	observability.RecordRegistryLookup("ok")

	result := &datatypes.PackageResearchResult{
		Name:        name,
		Package:     info,
		Deprecation: u.table.Analyze(name),
	}
	u.cache.Put(key, result)
	return result
}

// ResearchAll researches every distinct requirement name, keyed by
// the case-folded name.
//
// Iteration is sequential with no internal fan-out, so total latency
// scales linearly with the number of distinct packages. That is the
// designed behavior: submission latency is already decoupled from
// pipeline latency by the background runner.
func (u *Unit) ResearchAll(ctx context.Context, requirements []datatypes.Requirement, opts datatypes.ResolveOptions) map[string]*datatypes.PackageResearchResult {
	results := make(map[string]*datatypes.PackageResearchResult, len(requirements))
	for _, req := range requirements {
		key := req.Key()
		if _, done := results[key]; done {
			continue
		}
		res := u.Research(ctx, req.Name)
		if opts.SuggestAlternatives && u.advisor != nil && !res.Failed() && res.Deprecation.IsDeprecated {
			res = u.advise(ctx, res)
		}
		results[key] = res
	}
	return results
}
