// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine implements the resolution engine: it assigns one
// version per requirement name from the research results, detects
// duplicate-name conflicts, and merges in deprecation flags.
//
// # Limitations
//
// This is not a full package-manager resolver. It builds no transitive
// dependency graph, does no backtracking, and the only conflict it can
// detect is the same name requested more than once. In particular it
// never checks whether ">=1.0" and "==3.2" on one name are mutually
// exclusive beyond raw name duplication, and the ">="/">" policy takes
// the registry's latest version without validating the stated lower
// bound. Both are deliberate: callers wanting a provably valid global
// assignment need a different tool.
package engine

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/depscout/services/resolver/datatypes"
	"github.com/AleutianAI/depscout/services/resolver/knowledge"
)

// Engine assigns versions per the operator policy and detects
// duplicate-name conflicts. Stateless and safe for concurrent use.
type Engine struct {
	table *knowledge.Table
}

// NewEngine creates a resolution engine backed by the given
// deprecation knowledge table.
func NewEngine(table *knowledge.Table) *Engine {
	return &Engine{table: table}
}

// Resolve processes the requirement list in input order against the
// research results (keyed by case-folded name) and produces the
// resolution outcome.
//
// Per requirement: a deprecated built-in module resolves to version
// "built-in" with no registry involvement; a failed research result
// becomes a warning and contributes no resolved package; otherwise the
// operator policy picks a version. After the loop, duplicate resolved
// names (case-insensitive) are compacted into one entry each plus one
// Conflict per duplicated name. Success is true iff there are zero
// conflicts and at least one resolved-or-deprecated package.
func (e *Engine) Resolve(requirements []datatypes.Requirement, research map[string]*datatypes.PackageResearchResult) datatypes.ResolutionResult {
	var result datatypes.ResolutionResult

	for _, req := range requirements {
		if entry, ok := e.table.BuiltinModule(req.Name); ok {
			result.ResolvedPackages = append(result.ResolvedPackages, datatypes.ResolvedPackage{
				Name:    req.Name,
				Version: datatypes.BuiltinVersion,
			})
			result.DeprecatedPackages = append(result.DeprecatedPackages, deprecatedEntry(
				req.Name, datatypes.BuiltinVersion, entry.Analysis()))
			continue
		}

		res := research[req.Key()]
		if res == nil || res.Failed() {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Could not find package '%s'", req.Name))
			continue
		}

		version := assignVersion(req, res.Package)
		result.ResolvedPackages = append(result.ResolvedPackages, datatypes.ResolvedPackage{
			Name:    req.Name,
			Version: version,
		})
		if res.Deprecation.IsDeprecated {
			result.DeprecatedPackages = append(result.DeprecatedPackages,
				deprecatedEntry(req.Name, version, res.Deprecation))
		}
	}

	result.ResolvedPackages, result.Conflicts = detectConflicts(result.ResolvedPackages)
	result.DeprecatedPackages = compactDeprecated(result.DeprecatedPackages)

	result.Success = len(result.Conflicts) == 0 &&
		(len(result.ResolvedPackages) > 0 || len(result.DeprecatedPackages) > 0)

	if !result.Success {
		slog.Info("Resolution did not succeed",
			"conflicts", len(result.Conflicts),
			"resolved", len(result.ResolvedPackages),
			"warnings", len(result.Warnings))
	}
	return result
}

// assignVersion applies the operator-specific policy.
//
//   - "==" (or fixed): the literal requested version verbatim, with no
//     existence check against the registry's version list.
//   - ">=" / ">": the registry's latest version, approximating "latest
//     is always compatible"; the requested version when no latest is
//     known.
//   - anything else, or no operator: the registry's latest version
//     unconditionally.
func assignVersion(req datatypes.Requirement, pkg *datatypes.PackageInfo) string {
	switch {
	case req.Pinned():
		return req.Version
	case req.Operator == ">=" || req.Operator == ">":
		if pkg.LatestVersion == "" {
			return req.Version
		}
		return pkg.LatestVersion
	default:
		return pkg.LatestVersion
	}
}

// deprecatedEntry derives a DeprecatedPackage from a resolved package
// and its deprecation analysis, carrying the first suggested
// alternative.
func deprecatedEntry(name, version string, analysis datatypes.DeprecationAnalysis) datatypes.DeprecatedPackage {
	entry := datatypes.DeprecatedPackage{
		Name:    name,
		Version: version,
		Reason:  analysis.Reason,
	}
	if entry.Reason == "" {
		if len(analysis.Evidence) > 0 {
			entry.Reason = analysis.Evidence[0]
		} else {
			entry.Reason = "flagged as deprecated"
		}
	}
	if len(analysis.Alternatives) > 0 {
		entry.SuggestedAlternative = analysis.Alternatives[0]
	}
	return entry
}

// detectConflicts scans resolved names for case-insensitive duplicates.
// Each duplicated name is compacted to its first occurrence and yields
// exactly one Conflict entry.
func detectConflicts(resolved []datatypes.ResolvedPackage) ([]datatypes.ResolvedPackage, []datatypes.Conflict) {
	counts := make(map[string]int, len(resolved))
	for _, p := range resolved {
		counts[strings.ToLower(p.Name)]++
	}

	var conflicts []datatypes.Conflict
	unique := resolved[:0]
	seen := make(map[string]bool, len(counts))
	for _, p := range resolved {
		key := strings.ToLower(p.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, p)
		if n := counts[key]; n > 1 {
			conflicts = append(conflicts, datatypes.Conflict{
				Packages: []string{key},
				Reason:   fmt.Sprintf("package '%s' is requested %d times", key, n),
				SuggestedResolution: fmt.Sprintf(
					"Consolidate the duplicate requirements for '%s' into a single constraint", key),
			})
		}
	}
	return unique, conflicts
}

// compactDeprecated mirrors the resolved-name set invariant for the
// deprecated list: one entry per case-folded name, first occurrence
// wins.
func compactDeprecated(deprecated []datatypes.DeprecatedPackage) []datatypes.DeprecatedPackage {
	if len(deprecated) < 2 {
		return deprecated
	}
	seen := make(map[string]bool, len(deprecated))
	unique := deprecated[:0]
	for _, d := range deprecated {
		key := strings.ToLower(d.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, d)
	}
	return unique
}
