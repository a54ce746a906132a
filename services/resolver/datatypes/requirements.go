// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the wire and domain types for the resolver
// service: requirements as submitted by callers, per-package research
// results, resolution outcomes, compiled reports, and job records.
//
// Report and JobRecord are read verbatim by external consumers (the
// webhook commenter and the UI), so JSON field names here are a public
// contract. Renaming a field is a breaking interface change.
package datatypes

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// OperatorEqual pins a requirement to one exact version.
const OperatorEqual = "=="

// Operators lists every comparison operator a Requirement may carry.
// An empty operator means "any version".
var Operators = []string{"", "==", ">=", ">", "<=", "<", "!=", "~=", "==="}

// =============================================================================
// Shared Validator Instance
// =============================================================================

// requirementValidate is the validator instance for submission payloads.
// Initialized in init() with custom validators.
var requirementValidate *validator.Validate

func init() {
	requirementValidate = validator.New()

	_ = requirementValidate.RegisterValidation("versionop", validateVersionOperator)
}

// validateVersionOperator checks the field against the Operators set.
// Gin's binding layer only checks field presence; operator membership
// is enforced here so a typo like "=>" is rejected before admission.
func validateVersionOperator(fl validator.FieldLevel) bool {
	op := fl.Field().String()
	for _, known := range Operators {
		if op == known {
			return true
		}
	}
	return false
}

// Requirement is one named-package version constraint as submitted by
// the caller.
//
// Name keeps the caller's original casing for display; identity is
// always the lowercase form (see Key). OriginalSpec is the raw
// requirement string the caller sent and is never empty.
type Requirement struct {
	Name         string `json:"name" binding:"required" validate:"required"`
	Operator     string `json:"operator" validate:"versionop"`
	Version      string `json:"version,omitempty"`
	Fixed        bool   `json:"fixed"`
	OriginalSpec string `json:"original_spec" binding:"required" validate:"required"`
}

// Key returns the case-folded identity of the requirement name.
func (r Requirement) Key() string {
	return strings.ToLower(r.Name)
}

// Pinned reports whether the requirement demands one exact version.
func (r Requirement) Pinned() bool {
	return r.Fixed || r.Operator == OperatorEqual
}

// ResolveOptions are the boolean knobs a caller may set on submission.
type ResolveOptions struct {
	AllowPrereleases    bool `json:"allow_prereleases"`
	PreferStable        bool `json:"prefer_stable"`
	ExcludeDeprecated   bool `json:"exclude_deprecated"`
	SuggestAlternatives bool `json:"suggest_alternatives"`
}

// ResolveRequest is the submission payload for one analysis job.
//
// Requirements must be non-empty; an empty list is rejected before a
// job is created. PythonVersion defaults to "3.9" when unset.
type ResolveRequest struct {
	Requirements  []Requirement  `json:"requirements" binding:"required,min=1,dive" validate:"required,min=1,dive"`
	PythonVersion string         `json:"python_version"`
	Options       ResolveOptions `json:"options"`
}

// Validate checks the request beyond what JSON binding enforces:
// every requirement must name a package, carry its original spec
// string, and use a known comparison operator.
//
// Call after binding and before admitting a job:
//
//	if err := req.Validate(); err != nil {
//	    return fmt.Errorf("invalid request: %w", err)
//	}
func (r *ResolveRequest) Validate() error {
	return requirementValidate.Struct(r)
}

// DefaultPythonVersion is applied when a submission omits python_version.
const DefaultPythonVersion = "3.9"

// ApplyDefaults fills in defaulted fields on a submitted request.
func (r *ResolveRequest) ApplyDefaults() {
	if r.PythonVersion == "" {
		r.PythonVersion = DefaultPythonVersion
	}
}
