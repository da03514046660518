package middleware

import (
	"strings"
	"testing"
)

func TestValidateUserID(t *testing.T) {
	cases := []struct {
		name    string
		userID  string
		wantErr bool
	}{
		{"simple", "u1", false},
		{"with dash and underscore", "team-42_ops", false},
		{"empty", "", true},
		{"spaces", "user one", true},
		{"sql-ish", "u1'; DROP TABLE", true},
		{"too long", strings.Repeat("a", 65), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateUserID(tc.userID)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateUserID(%q) error = %v, wantErr %v", tc.userID, err, tc.wantErr)
			}
		})
	}
}

func TestValidateSourceFileKey(t *testing.T) {
	cases := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"plain csv", "uploads/locations.csv", false},
		{"xlsx", "u1/sites.xlsx", false},
		{"empty", "", true},
		{"traversal", "../etc/passwd", true},
		{"embedded traversal", "uploads/../../secret", true},
		{"absolute", "/etc/passwd", true},
		{"shell chars", "file;rm -rf.csv", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSourceFileKey(tc.key)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateSourceFileKey(%q) error = %v, wantErr %v", tc.key, err, tc.wantErr)
			}
		})
	}
}

func TestValidateAnalysisID(t *testing.T) {
	if err := ValidateAnalysisID("analysis-a1b2c3d4-e5f6-4a7b-8c9d-0a1b2c3d4e5f"); err != nil {
		t.Errorf("valid id rejected: %v", err)
	}
	for _, bad := range []string{"", "analysis-", "a1b2c3d4-e5f6-4a7b-8c9d-0a1b2c3d4e5f", "analysis-xyz"} {
		if err := ValidateAnalysisID(bad); err == nil {
			t.Errorf("ValidateAnalysisID(%q) accepted", bad)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	got := SanitizeString("  hello\x00 world\x07  ")
	if got != "hello world" {
		t.Errorf("SanitizeString = %q", got)
	}
}

func TestValidateLimit(t *testing.T) {
	if got := ValidateLimit(0); got != 20 {
		t.Errorf("default limit = %d", got)
	}
	if got := ValidateLimit(500); got != 100 {
		t.Errorf("capped limit = %d", got)
	}
	if got := ValidateLimit(5); got != 5 {
		t.Errorf("passthrough limit = %d", got)
	}
}

func TestValidateDays(t *testing.T) {
	if got := ValidateDays(-1); got != 7 {
		t.Errorf("default days = %d", got)
	}
	if got := ValidateDays(400); got != 365 {
		t.Errorf("capped days = %d", got)
	}
}
