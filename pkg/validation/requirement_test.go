package validation

import (
	"testing"
)

func TestParseRequirement(t *testing.T) {
	tests := []struct {
		name     string
		spec     string
		wantName string
		wantOp   string
		wantVer  string
		wantErr  bool
	}{
		// Valid specs
		{"bare name", "requests", "requests", "", "", false},
		{"pinned", "numpy==1.21.0", "numpy", "==", "1.21.0", false},
		{"minimum", "pandas>=1.3.0", "pandas", ">=", "1.3.0", false},
		{"strict greater", "flask>2.0", "flask", ">", "2.0", false},
		{"maximum", "django<=4.2", "django", "<=", "4.2", false},
		{"strict less", "boto3<2", "boto3", "<", "2", false},
		{"not equal", "urllib3!=1.25.0", "urllib3", "!=", "1.25.0", false},
		{"compatible release", "attrs~=21.4", "attrs", "~=", "21.4", false},
		{"arbitrary equality", "torch===2.1.0", "torch", "===", "2.1.0", false},
		{"wildcard version", "scipy==1.7.*", "scipy", "==", "1.7.*", false},
		{"hyphenated name", "scikit-learn>=1.0", "scikit-learn", ">=", "1.0", false},
		{"dotted name", "zope.interface", "zope.interface", "", "", false},
		{"underscored name", "typing_extensions>=4.0", "typing_extensions", ">=", "4.0", false},
		{"mixed case kept", "Django>=4.0", "Django", ">=", "4.0", false},
		{"spaces around operator", "pandas >= 1.3.0", "pandas", ">=", "1.3.0", false},
		{"surrounding whitespace", "  requests  ", "requests", "", "", false},
		{"local version", "torch==2.1.0+cu118", "torch", "==", "2.1.0+cu118", false},

		// Invalid specs
		{"empty", "", "", "", "", true},
		{"whitespace only", "   ", "", "", "", true},
		{"operator without version", "pandas>=", "", "", "", true},
		{"operator without name", ">=1.3.0", "", "", "", true},
		{"extras", "requests[security]>=2.0", "", "", "", true},
		{"environment marker", "mock;python_version<'3.3'", "", "", "", true},
		{"name with spaces", "my package>=1.0", "", "", "", true},
		{"leading dot", ".hidden", "", "", "", true},
		{"trailing hyphen", "trailing->=1.0", "", "", "", true},
		{"shell injection", "requests; rm -rf /", "", "", "", true},
		{"path traversal", "../../etc/passwd", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseRequirement(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRequirement(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if req.Name != tt.wantName {
				t.Errorf("ParseRequirement(%q) name = %q, want %q", tt.spec, req.Name, tt.wantName)
			}
			if req.Operator != tt.wantOp {
				t.Errorf("ParseRequirement(%q) operator = %q, want %q", tt.spec, req.Operator, tt.wantOp)
			}
			if req.Version != tt.wantVer {
				t.Errorf("ParseRequirement(%q) version = %q, want %q", tt.spec, req.Version, tt.wantVer)
			}
			if req.OriginalSpec == "" {
				t.Errorf("ParseRequirement(%q) left OriginalSpec empty", tt.spec)
			}
		})
	}
}

func TestParseRequirement_PinnedFlag(t *testing.T) {
	pinned, err := ParseRequirement("numpy==1.21.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pinned.Pinned() {
		t.Error("== requirement should report Pinned()")
	}

	ranged, err := ParseRequirement("pandas>=1.3.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ranged.Pinned() {
		t.Error(">= requirement should not report Pinned()")
	}

	// Arbitrary equality is carried through but does not pin: only ==
	// resolves verbatim, every other operator takes the registry latest.
	arbitrary, err := ParseRequirement("torch===2.1.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if arbitrary.Fixed {
		t.Error("=== requirement should not set Fixed")
	}
	if arbitrary.Pinned() {
		t.Error("=== requirement should not report Pinned()")
	}
}

func TestParseRequirements(t *testing.T) {
	tests := []struct {
		name    string
		specs   []string
		wantLen int
		wantErr bool
	}{
		{"all valid", []string{"requests", "pandas>=1.3.0", "numpy==1.21.0"}, 3, false},
		{"one invalid", []string{"requests", "bad name!", "numpy"}, 0, true},
		{"empty slice", []string{}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reqs, err := ParseRequirements(tt.specs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRequirements(%v) error = %v, wantErr %v", tt.specs, err, tt.wantErr)
			}
			if !tt.wantErr && len(reqs) != tt.wantLen {
				t.Errorf("ParseRequirements(%v) len = %d, want %d", tt.specs, len(reqs), tt.wantLen)
			}
		})
	}
}
