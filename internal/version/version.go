// Package version records the build identity stamped into the samara
// binary.
package version

import "runtime/debug"

// Version is the release version. Overridden at build time via
// -ldflags "-X github.com/steveyegge/samara/internal/version.Version=...".
var Version = "0.1.0-dev"

// Commit is the VCS revision stamped at build time. When empty, the
// toolchain's embedded build info is consulted instead.
var Commit = ""

// SetCommit overrides the stamped commit, for tests.
func SetCommit(hash string) {
	Commit = hash
}

// ResolveCommit returns the effective commit hash: the stamped value if
// set, else the vcs.revision the Go toolchain embedded. Empty when the
// binary was built outside version control.
func ResolveCommit() string {
	if Commit != "" {
		return Commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return ""
}

// ShortCommit truncates a commit hash to 12 characters for display.
func ShortCommit(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

// String formats the version, with the short commit when one is known.
func String() string {
	if c := ResolveCommit(); c != "" {
		return Version + " (" + ShortCommit(c) + ")"
	}
	return Version
}
