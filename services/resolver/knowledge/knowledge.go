// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package knowledge provides the static deprecation tables consumed by
// the research unit and the resolution engine.
//
// Two tables are maintained: known-deprecated published packages, and
// deprecated standard-library (built-in) module names. Built-in module
// names are never queried against the package registry and resolve to
// version "built-in".
//
// Both tables are embedded YAML, parsed once at construction into
// immutable maps keyed by lowercase name. A Table is read-only after
// Load returns and is safe for concurrent use.
package knowledge

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/depscout/services/resolver/datatypes"
)

// Entry is one deprecation fact about a package or built-in module.
type Entry struct {
	Name         string   `yaml:"name"`
	Reason       string   `yaml:"reason"`
	Confidence   float64  `yaml:"confidence"`
	Evidence     []string `yaml:"evidence"`
	Alternatives []string `yaml:"alternatives"`
}

// Analysis converts the entry into the research result shape.
func (e Entry) Analysis() datatypes.DeprecationAnalysis {
	return datatypes.DeprecationAnalysis{
		IsDeprecated: true,
		Reason:       e.Reason,
		Confidence:   e.Confidence,
		Evidence:     e.Evidence,
		Alternatives: e.Alternatives,
	}
}

type packagesFile struct {
	Version  int     `yaml:"version"`
	Packages []Entry `yaml:"packages"`
}

type modulesFile struct {
	Version int     `yaml:"version"`
	Modules []Entry `yaml:"modules"`
}

// Table holds both deprecation tables, keyed by lowercase name.
type Table struct {
	packages map[string]Entry
	builtins map[string]Entry
}

// Load parses the embedded YAML tables into an immutable Table.
//
// Load is cheap enough to call once at startup; the returned Table
// must not be mutated afterward.
func Load() (*Table, error) {
	var pf packagesFile
	if err := yaml.Unmarshal(deprecatedPackagesYAML, &pf); err != nil {
		return nil, fmt.Errorf("parse deprecated packages table: %w", err)
	}

	var mf modulesFile
	if err := yaml.Unmarshal(builtinModulesYAML, &mf); err != nil {
		return nil, fmt.Errorf("parse builtin modules table: %w", err)
	}

	t := &Table{
		packages: make(map[string]Entry, len(pf.Packages)),
		builtins: make(map[string]Entry, len(mf.Modules)),
	}
	for _, e := range pf.Packages {
		t.packages[strings.ToLower(e.Name)] = e
	}
	for _, e := range mf.Modules {
		t.builtins[strings.ToLower(e.Name)] = e
	}
	return t, nil
}

// DeprecatedPackage looks up a published-package deprecation entry by
// name (case-insensitive).
func (t *Table) DeprecatedPackage(name string) (Entry, bool) {
	e, ok := t.packages[strings.ToLower(name)]
	return e, ok
}

// BuiltinModule looks up a deprecated built-in module entry by name
// (case-insensitive).
func (t *Table) BuiltinModule(name string) (Entry, bool) {
	e, ok := t.builtins[strings.ToLower(name)]
	return e, ok
}

// IsBuiltin reports whether name is a deprecated built-in module.
func (t *Table) IsBuiltin(name string) bool {
	_, ok := t.builtins[strings.ToLower(name)]
	return ok
}

// Analyze returns the deprecation analysis for one package name.
//
// The published-package table is consulted first, then the built-in
// table. A name absent from both is presumed not deprecated with
// confidence 0.
func (t *Table) Analyze(name string) datatypes.DeprecationAnalysis {
	if e, ok := t.DeprecatedPackage(name); ok {
		return e.Analysis()
	}
	if e, ok := t.BuiltinModule(name); ok {
		return e.Analysis()
	}
	return datatypes.DeprecationAnalysis{}
}
