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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validRequest() ResolveRequest {
	return ResolveRequest{
		Requirements: []Requirement{
			{Name: "pandas", Operator: ">=", Version: "1.3.0", OriginalSpec: "pandas>=1.3.0"},
		},
	}
}

func TestRequirementKey_CaseFolds(t *testing.T) {
	r := Requirement{Name: "Django"}
	assert.Equal(t, "django", r.Key())
}

func TestRequirementPinned(t *testing.T) {
	tests := []struct {
		name string
		req  Requirement
		want bool
	}{
		{"double equals", Requirement{Operator: "=="}, true},
		{"fixed flag", Requirement{Fixed: true}, true},
		{"minimum bound", Requirement{Operator: ">="}, false},
		{"no constraint", Requirement{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.req.Pinned())
		})
	}
}

func TestResolveRequestValidate_Accepts(t *testing.T) {
	req := validRequest()
	assert.NoError(t, req.Validate())
}

func TestResolveRequestValidate_RejectsUnknownOperator(t *testing.T) {
	req := validRequest()
	req.Requirements[0].Operator = "=>"

	err := req.Validate()
	assert.Error(t, err, "a typoed operator must be rejected before admission")
}

func TestResolveRequestValidate_AcceptsEveryKnownOperator(t *testing.T) {
	for _, op := range Operators {
		req := validRequest()
		req.Requirements[0].Operator = op
		assert.NoError(t, req.Validate(), "operator %q should be accepted", op)
	}
}

func TestResolveRequestValidate_RequiresOriginalSpec(t *testing.T) {
	req := validRequest()
	req.Requirements[0].OriginalSpec = ""

	assert.Error(t, req.Validate())
}

func TestResolveRequestValidate_RequiresRequirements(t *testing.T) {
	req := ResolveRequest{}
	assert.Error(t, req.Validate())
}

func TestApplyDefaults(t *testing.T) {
	req := validRequest()
	req.ApplyDefaults()
	assert.Equal(t, DefaultPythonVersion, req.PythonVersion)

	req.PythonVersion = "3.12"
	req.ApplyDefaults()
	assert.Equal(t, "3.12", req.PythonVersion, "explicit version must be kept")
}
