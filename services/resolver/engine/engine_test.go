// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/depscout/services/resolver/datatypes"
	"github.com/AleutianAI/depscout/services/resolver/knowledge"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	table, err := knowledge.Load()
	require.NoError(t, err)
	return NewEngine(table)
}

func okResearch(name, latest string) *datatypes.PackageResearchResult {
	return &datatypes.PackageResearchResult{
		Name:    name,
		Package: &datatypes.PackageInfo{Name: name, LatestVersion: latest},
	}
}

func failedResearch(name string) *datatypes.PackageResearchResult {
	return &datatypes.PackageResearchResult{Name: name, Err: "package not found on registry"}
}

// Two well-known packages resolve to the registry's latest versions.
func TestResolve_LatestVersions(t *testing.T) {
	e := newTestEngine(t)
	reqs := []datatypes.Requirement{
		{Name: "numpy", OriginalSpec: "numpy"},
		{Name: "pandas", Operator: ">=", Version: "1.3.0", OriginalSpec: "pandas>=1.3.0"},
	}
	research := map[string]*datatypes.PackageResearchResult{
		"numpy":  okResearch("numpy", "1.24.3"),
		"pandas": okResearch("pandas", "2.0.1"),
	}

	result := e.Resolve(reqs, research)
	require.True(t, result.Success)
	assert.Empty(t, result.Conflicts)
	assert.Equal(t, []datatypes.ResolvedPackage{
		{Name: "numpy", Version: "1.24.3"},
		{Name: "pandas", Version: "2.0.1"},
	}, result.ResolvedPackages)
}

// The same name requested twice produces exactly one conflict.
func TestResolve_DuplicateNameConflict(t *testing.T) {
	e := newTestEngine(t)
	reqs := []datatypes.Requirement{
		{Name: "django", Operator: ">=", Version: "4.0", OriginalSpec: "django>=4.0"},
		{Name: "django", Operator: "==", Version: "3.2", Fixed: true, OriginalSpec: "django==3.2"},
	}
	research := map[string]*datatypes.PackageResearchResult{
		"django": okResearch("django", "4.2.1"),
	}

	result := e.Resolve(reqs, research)
	assert.False(t, result.Success)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, []string{"django"}, result.Conflicts[0].Packages)
	assert.NotEmpty(t, result.Conflicts[0].SuggestedResolution)

	// Resolved names stay a set.
	names := map[string]int{}
	for _, p := range result.ResolvedPackages {
		names[strings.ToLower(p.Name)]++
	}
	for name, n := range names {
		assert.Equal(t, 1, n, "duplicate resolved entry for %s", name)
	}
}

func TestResolve_DuplicateDetectionIsCaseInsensitive(t *testing.T) {
	e := newTestEngine(t)
	reqs := []datatypes.Requirement{
		{Name: "Django", Operator: "==", Version: "3.2", Fixed: true, OriginalSpec: "Django==3.2"},
		{Name: "django", Operator: ">=", Version: "4.0", OriginalSpec: "django>=4.0"},
	}
	research := map[string]*datatypes.PackageResearchResult{
		"django": okResearch("Django", "4.2.1"),
	}

	result := e.Resolve(reqs, research)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, []string{"django"}, result.Conflicts[0].Packages)
	// First occurrence keeps its display casing.
	assert.Equal(t, "Django", result.ResolvedPackages[0].Name)
}

// A deprecated built-in module resolves without touching the registry.
func TestResolve_BuiltinModule(t *testing.T) {
	e := newTestEngine(t)
	reqs := []datatypes.Requirement{{Name: "imp", OriginalSpec: "imp"}}

	result := e.Resolve(reqs, map[string]*datatypes.PackageResearchResult{})
	require.True(t, result.Success)
	assert.Equal(t, []datatypes.ResolvedPackage{{Name: "imp", Version: "built-in"}}, result.ResolvedPackages)

	require.Len(t, result.DeprecatedPackages, 1)
	dep := result.DeprecatedPackages[0]
	assert.Equal(t, "imp", dep.Name)
	assert.Equal(t, "built-in", dep.Version)
	assert.Contains(t, dep.Reason, "imp module is deprecated")
	assert.Equal(t, "importlib", dep.SuggestedAlternative)
}

// An unknown package yields a warning, no resolved entry, and an
// unsuccessful result when nothing else resolved.
func TestResolve_UnknownPackage(t *testing.T) {
	e := newTestEngine(t)
	reqs := []datatypes.Requirement{{Name: "nonexistent-package-xyz", OriginalSpec: "nonexistent-package-xyz"}}
	research := map[string]*datatypes.PackageResearchResult{
		"nonexistent-package-xyz": failedResearch("nonexistent-package-xyz"),
	}

	result := e.Resolve(reqs, research)
	assert.False(t, result.Success)
	assert.Empty(t, result.ResolvedPackages)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "Could not find package 'nonexistent-package-xyz'")
}

func TestResolve_LookupFailureIsIsolated(t *testing.T) {
	e := newTestEngine(t)
	reqs := []datatypes.Requirement{
		{Name: "numpy", OriginalSpec: "numpy"},
		{Name: "ghost", OriginalSpec: "ghost"},
	}
	research := map[string]*datatypes.PackageResearchResult{
		"numpy": okResearch("numpy", "1.24.3"),
		"ghost": failedResearch("ghost"),
	}

	result := e.Resolve(reqs, research)
	assert.True(t, result.Success)
	assert.Len(t, result.ResolvedPackages, 1)
	assert.Len(t, result.Warnings, 1)
}

func TestAssignVersion_OperatorPolicy(t *testing.T) {
	pkg := &datatypes.PackageInfo{Name: "demo", LatestVersion: "9.9.9"}

	cases := []struct {
		name string
		req  datatypes.Requirement
		pkg  *datatypes.PackageInfo
		want string
	}{
		{"pinned uses literal version verbatim",
			datatypes.Requirement{Name: "demo", Operator: "==", Version: "1.0.0+local", Fixed: true}, pkg, "1.0.0+local"},
		{"fixed flag alone pins",
			datatypes.Requirement{Name: "demo", Fixed: true, Version: "2.0"}, pkg, "2.0"},
		{"gte takes latest",
			datatypes.Requirement{Name: "demo", Operator: ">=", Version: "1.0"}, pkg, "9.9.9"},
		{"gt takes latest",
			datatypes.Requirement{Name: "demo", Operator: ">", Version: "1.0"}, pkg, "9.9.9"},
		{"gte falls back to requested when latest unknown",
			datatypes.Requirement{Name: "demo", Operator: ">=", Version: "1.0"},
			&datatypes.PackageInfo{Name: "demo"}, "1.0"},
		{"no operator takes latest",
			datatypes.Requirement{Name: "demo"}, pkg, "9.9.9"},
		{"other operators take latest unconditionally",
			datatypes.Requirement{Name: "demo", Operator: "~=", Version: "1.4"}, pkg, "9.9.9"},
		{"not-equal takes latest",
			datatypes.Requirement{Name: "demo", Operator: "!=", Version: "9.9.9"}, pkg, "9.9.9"},
		{"arbitrary equality takes latest, only == pins",
			datatypes.Requirement{Name: "demo", Operator: "===", Version: "1.2.3"}, pkg, "9.9.9"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, assignVersion(tc.req, tc.pkg))
		})
	}
}

// A pinned version is never validated against the registry's list.
func TestResolve_PinnedVersionNeverChecked(t *testing.T) {
	e := newTestEngine(t)
	reqs := []datatypes.Requirement{
		{Name: "numpy", Operator: "==", Version: "0.0.0-nonexistent", Fixed: true, OriginalSpec: "numpy==0.0.0-nonexistent"},
	}
	research := map[string]*datatypes.PackageResearchResult{
		"numpy": {
			Name: "numpy",
			Package: &datatypes.PackageInfo{
				Name:          "numpy",
				LatestVersion: "1.24.3",
				Versions:      []string{"1.24.2", "1.24.3"},
			},
		},
	}

	result := e.Resolve(reqs, research)
	require.True(t, result.Success)
	assert.Equal(t, "0.0.0-nonexistent", result.ResolvedPackages[0].Version)
}

func TestResolve_DeprecatedPackageCarriesFirstAlternative(t *testing.T) {
	e := newTestEngine(t)
	reqs := []datatypes.Requirement{{Name: "nose", OriginalSpec: "nose"}}
	research := map[string]*datatypes.PackageResearchResult{
		"nose": {
			Name:    "nose",
			Package: &datatypes.PackageInfo{Name: "nose", LatestVersion: "1.3.7"},
			Deprecation: datatypes.DeprecationAnalysis{
				IsDeprecated: true,
				Reason:       "unmaintained since 2015",
				Confidence:   0.95,
				Alternatives: []string{"pytest", "nose2"},
			},
		},
	}

	result := e.Resolve(reqs, research)
	require.True(t, result.Success)
	require.Len(t, result.DeprecatedPackages, 1)
	assert.Equal(t, "pytest", result.DeprecatedPackages[0].SuggestedAlternative)
	assert.Equal(t, "unmaintained since 2015", result.DeprecatedPackages[0].Reason)
}

func TestResolve_EmptyResearchMapOnly(t *testing.T) {
	e := newTestEngine(t)
	reqs := []datatypes.Requirement{{Name: "mystery", OriginalSpec: "mystery"}}

	result := e.Resolve(reqs, map[string]*datatypes.PackageResearchResult{})
	assert.False(t, result.Success)
	assert.Len(t, result.Warnings, 1)
}
