// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

// BuiltinVersion is the version string assigned to deprecated
// standard-library modules, which never exist on the package registry.
const BuiltinVersion = "built-in"

// PackageInfo is the registry metadata for one published package.
type PackageInfo struct {
	Name          string   `json:"name"`
	LatestVersion string   `json:"latest_version"`
	Versions      []string `json:"versions,omitempty"`
	Author        string   `json:"author,omitempty"`
	License       string   `json:"license,omitempty"`
}

// DeprecationAnalysis is the outcome of the deprecation check for one
// package: whether it is deprecated, how confident the check is, the
// supporting evidence, and any suggested replacements.
type DeprecationAnalysis struct {
	IsDeprecated bool     `json:"is_deprecated"`
	Reason       string   `json:"reason,omitempty"`
	Confidence   float64  `json:"confidence"`
	Evidence     []string `json:"evidence,omitempty"`
	Alternatives []string `json:"alternatives,omitempty"`
}

// PackageResearchResult is everything the research unit learned about
// one requirement name. It is a tagged result: exactly one of Package
// or Err is set. Results are immutable after creation and may be
// served from the shared research cache.
type PackageResearchResult struct {
	Name        string              `json:"name"`
	Package     *PackageInfo        `json:"package,omitempty"`
	Err         string              `json:"error,omitempty"`
	Deprecation DeprecationAnalysis `json:"deprecation"`
}

// Failed reports whether the registry lookup for this package failed.
// A failed result carries no usable metadata and must not abort
// research for the rest of the requirement set.
func (r *PackageResearchResult) Failed() bool {
	return r.Err != ""
}

// Builtin reports whether this result describes a deprecated
// standard-library module rather than a published package.
func (r *PackageResearchResult) Builtin() bool {
	return r.Package != nil && r.Package.LatestVersion == BuiltinVersion
}
