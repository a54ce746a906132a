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

// ResolvedPackage is one assigned name/version pair. Within a single
// ResolutionResult, names form a set: a duplicate requirement name
// produces a Conflict entry, never two ResolvedPackage entries.
type ResolvedPackage struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// DeprecatedPackage is a resolved package that the deprecation check
// flagged, with the reason and the first suggested replacement.
type DeprecatedPackage struct {
	Name                 string `json:"name"`
	Version              string `json:"version"`
	Reason               string `json:"reason"`
	SuggestedAlternative string `json:"suggested_alternative,omitempty"`
}

// Conflict records an inability to satisfy all requirements for one
// package name simultaneously. The only conflict kind the engine can
// produce today is "same name requested more than once".
type Conflict struct {
	Packages            []string `json:"packages"`
	Reason              string   `json:"reason"`
	SuggestedResolution string   `json:"suggested_resolution,omitempty"`
}

// ResolutionResult is the output of the resolution engine for one job.
//
// Success is true iff there are zero conflicts and at least one
// resolved-or-deprecated package.
type ResolutionResult struct {
	Success            bool                `json:"success"`
	ResolvedPackages   []ResolvedPackage   `json:"resolved_packages,omitempty"`
	DeprecatedPackages []DeprecatedPackage `json:"deprecated_packages,omitempty"`
	Conflicts          []Conflict          `json:"conflicts,omitempty"`
	Warnings           []string            `json:"warnings,omitempty"`
	Error              string              `json:"error,omitempty"`
}
