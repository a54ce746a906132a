// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for user-supplied
// requirement strings.
//
// This package contains the parser that turns raw strings like
// "pandas>=1.3.0" into structured requirements. Using it keeps unvetted
// text out of registry URLs and job records.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/AleutianAI/depscout/services/resolver/datatypes"
)

// namePattern matches valid package names: letters, digits, and
// internal runs of dot, hyphen, or underscore. First and last
// characters must be alphanumeric.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9._-]*[A-Za-z0-9])?$`)

// versionPattern matches version strings: digits, letters, dots,
// plus/minus, underscore, and asterisk for wildcard specs like "1.4.*".
var versionPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._+*!-]*$`)

// operators in match order. Two-character operators come first so
// ">=" is not split into ">" plus a version starting with "=".
var operators = []string{"===", "==", ">=", "<=", "!=", "~=", ">", "<"}

// ParseRequirement parses one requirement string into a structured
// Requirement.
//
// Accepted forms:
//
//	"requests"            -> any version
//	"pandas>=1.3.0"       -> operator ">=", version "1.3.0"
//	"numpy==1.21.0"       -> pinned to one exact version
//
// The name keeps its original casing for display; identity comparisons
// downstream use the lowercase form. OriginalSpec is always set to the
// trimmed input, so reports can echo back exactly what the caller
// asked for.
//
// Environment markers (";python_version<'3.8'") and extras
// ("requests[security]") are rejected: the resolver works on plain
// name-operator-version constraints.
//
// Example:
//
//	req, err := validation.ParseRequirement("pandas>=1.3.0")
//	if err != nil {
//	    return fmt.Errorf("invalid requirement: %w", err)
//	}
func ParseRequirement(spec string) (datatypes.Requirement, error) {
	trimmed := strings.TrimSpace(spec)
	if trimmed == "" {
		return datatypes.Requirement{}, fmt.Errorf("requirement cannot be empty")
	}
	if strings.ContainsAny(trimmed, ";[]") {
		return datatypes.Requirement{}, fmt.Errorf(
			"unsupported requirement %q: extras and environment markers are not accepted", trimmed)
	}

	name := trimmed
	operator := ""
	version := ""

	for _, op := range operators {
		if idx := strings.Index(trimmed, op); idx >= 0 {
			name = strings.TrimSpace(trimmed[:idx])
			operator = op
			version = strings.TrimSpace(trimmed[idx+len(op):])
			break
		}
	}

	if name == "" {
		return datatypes.Requirement{}, fmt.Errorf("requirement %q has no package name", trimmed)
	}
	if !namePattern.MatchString(name) {
		return datatypes.Requirement{}, fmt.Errorf(
			"invalid package name %q (must be alphanumeric with internal dots, hyphens, or underscores)", name)
	}
	if operator != "" {
		if version == "" {
			return datatypes.Requirement{}, fmt.Errorf(
				"requirement %q has operator %q but no version", trimmed, operator)
		}
		if !versionPattern.MatchString(version) {
			return datatypes.Requirement{}, fmt.Errorf("invalid version %q in requirement %q", version, trimmed)
		}
	}

	return datatypes.Requirement{
		Name:         name,
		Operator:     operator,
		Version:      version,
		Fixed:        operator == datatypes.OperatorEqual,
		OriginalSpec: trimmed,
	}, nil
}

// ParseRequirements parses multiple requirement strings.
// Returns an error naming the first invalid entry; valid entries
// before it are discarded.
func ParseRequirements(specs []string) ([]datatypes.Requirement, error) {
	reqs := make([]datatypes.Requirement, 0, len(specs))
	for _, spec := range specs {
		req, err := ParseRequirement(spec)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}
