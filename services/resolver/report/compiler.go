// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report turns a resolution result plus the research results
// into the persisted Report: a plain-text manifest, a narrative
// document with a fixed section order, and per-package analysis
// strings.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/AleutianAI/depscout/services/resolver/datatypes"
)

// Compile builds the Report for one finished resolution.
//
// startTime is the instant the pipeline began; ProcessingTimeMs spans
// all three phases, not just compilation.
func Compile(id string, req datatypes.ResolveRequest, result datatypes.ResolutionResult,
	research map[string]*datatypes.PackageResearchResult, startTime time.Time) *datatypes.Report {

	return &datatypes.Report{
		ID:                 id,
		CreatedAt:          time.Now().UTC(),
		OriginalRequest:    req,
		ResolutionResult:   result,
		ManifestText:       buildManifest(req, result),
		NarrativeText:      buildNarrative(result),
		PerPackageAnalysis: buildAnalysis(research),
		Metadata: datatypes.ReportMetadata{
			PythonVersion:    req.PythonVersion,
			TotalPackages:    len(req.Requirements),
			DeprecatedCount:  len(result.DeprecatedPackages),
			ConflictCount:    len(result.Conflicts),
			ProcessingTimeMs: time.Since(startTime).Milliseconds(),
		},
	}
}

// buildManifest renders one "name==version" line per resolved package,
// sorted alphabetically by name regardless of input order. Entries
// whose version did not come from the primary registry carry a
// provenance comment.
//
// With the exclude_deprecated option set, packages flagged in the
// deprecated list are left out of the manifest. The resolution result
// and narrative still report them; only the installable output drops
// them.
func buildManifest(req datatypes.ResolveRequest, result datatypes.ResolutionResult) string {
	pinned := make(map[string]bool, len(req.Requirements))
	for _, r := range req.Requirements {
		if r.Pinned() {
			pinned[r.Key()] = true
		}
	}

	excluded := make(map[string]bool, len(result.DeprecatedPackages))
	if req.Options.ExcludeDeprecated {
		for _, d := range result.DeprecatedPackages {
			excluded[strings.ToLower(d.Name)] = true
		}
	}

	packages := append([]datatypes.ResolvedPackage(nil), result.ResolvedPackages...)
	sort.Slice(packages, func(i, j int) bool {
		return strings.ToLower(packages[i].Name) < strings.ToLower(packages[j].Name)
	})

	var b strings.Builder
	for _, p := range packages {
		if excluded[strings.ToLower(p.Name)] {
			continue
		}
		line := fmt.Sprintf("%s==%s", p.Name, p.Version)
		switch {
		case p.Version == datatypes.BuiltinVersion:
			line += "  # deprecated built-in module, not installable from the registry"
		case pinned[strings.ToLower(p.Name)]:
			line += "  # pinned by caller, not validated against the registry"
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// buildNarrative renders the human-readable document. Section order is
// fixed: status line, conflict count, deprecated count, resolved
// package list, deprecated detail blocks, conflict detail blocks,
// warnings.
func buildNarrative(result datatypes.ResolutionResult) string {
	var b strings.Builder

	if result.Success {
		b.WriteString("Status: resolution succeeded\n")
	} else {
		b.WriteString("Status: resolution failed\n")
	}
	fmt.Fprintf(&b, "Conflicts: %d\n", len(result.Conflicts))
	fmt.Fprintf(&b, "Deprecated packages: %d\n", len(result.DeprecatedPackages))

	b.WriteString("\nResolved packages:\n")
	if len(result.ResolvedPackages) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, p := range result.ResolvedPackages {
		fmt.Fprintf(&b, "  - %s %s\n", p.Name, p.Version)
	}

	for _, d := range result.DeprecatedPackages {
		fmt.Fprintf(&b, "\nDeprecated: %s %s\n", d.Name, d.Version)
		fmt.Fprintf(&b, "  Reason: %s\n", d.Reason)
		if d.SuggestedAlternative != "" {
			fmt.Fprintf(&b, "  Alternative: %s\n", d.SuggestedAlternative)
		}
	}

	for _, c := range result.Conflicts {
		fmt.Fprintf(&b, "\nConflict: %s\n", strings.Join(c.Packages, ", "))
		fmt.Fprintf(&b, "  Reason: %s\n", c.Reason)
		if c.SuggestedResolution != "" {
			fmt.Fprintf(&b, "  Suggested resolution: %s\n", c.SuggestedResolution)
		}
	}

	if len(result.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range result.Warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}
	return b.String()
}

// buildAnalysis synthesizes one summary string per researched package.
func buildAnalysis(research map[string]*datatypes.PackageResearchResult) map[string]string {
	if len(research) == 0 {
		return nil
	}
	analysis := make(map[string]string, len(research))
	for key, res := range research {
		analysis[key] = summarize(res)
	}
	return analysis
}

func summarize(res *datatypes.PackageResearchResult) string {
	if res.Failed() {
		return fmt.Sprintf("registry lookup failed: %s", res.Err)
	}

	var parts []string
	if res.Builtin() {
		parts = append(parts, "deprecated built-in module")
	} else {
		parts = append(parts, fmt.Sprintf("%d published versions, latest %s",
			len(res.Package.Versions), res.Package.LatestVersion))
	}
	if res.Deprecation.IsDeprecated {
		parts = append(parts, fmt.Sprintf("deprecation confidence %.0f%%", res.Deprecation.Confidence*100))
		if len(res.Deprecation.Alternatives) > 0 {
			parts = append(parts, fmt.Sprintf("alternatives: %s", strings.Join(res.Deprecation.Alternatives, ", ")))
		}
	}
	return strings.Join(parts, "; ")
}
