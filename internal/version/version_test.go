package version

import (
	"strings"
	"testing"
)

func TestShortCommit(t *testing.T) {
	tests := []struct {
		name string
		hash string
		want string
	}{
		{"full hash", "a1b2c3d4e5f6789012345678901234567890abcd", "a1b2c3d4e5f6"},
		{"exactly 12", "a1b2c3d4e5f6", "a1b2c3d4e5f6"},
		{"short hash", "a1b2c3", "a1b2c3"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShortCommit(tt.hash); got != tt.want {
				t.Errorf("ShortCommit(%q) = %q, want %q", tt.hash, got, tt.want)
			}
		})
	}
}

func TestResolveCommitPrefersStamped(t *testing.T) {
	orig := Commit
	defer SetCommit(orig)

	SetCommit("deadbeefcafe0123456789012345678901234567")
	if got := ResolveCommit(); got != "deadbeefcafe0123456789012345678901234567" {
		t.Errorf("ResolveCommit() = %q, want stamped hash", got)
	}
}

func TestStringIncludesShortCommit(t *testing.T) {
	orig := Commit
	defer SetCommit(orig)

	SetCommit("deadbeefcafe0123456789012345678901234567")
	got := String()
	if !strings.HasPrefix(got, Version) {
		t.Errorf("String() = %q, want %q prefix", got, Version)
	}
	if !strings.Contains(got, "deadbeefcafe") {
		t.Errorf("String() = %q, want short commit included", got)
	}
	if strings.Contains(got, "deadbeefcafe0") {
		t.Errorf("String() = %q, want commit truncated to 12 chars", got)
	}
}
