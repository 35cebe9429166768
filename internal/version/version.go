// Package version reports the build of the rangeping binary. The
// variables are set with -ldflags "-X"; when they are left at their
// defaults the VCS stamp recorded by the Go toolchain is used instead.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns the one-line banner printed by -version.
func Info() string {
	commit, date := stamp()
	return fmt.Sprintf("rangeping %s (commit: %s, built: %s, go: %s)",
		Version, commit, date, runtime.Version())
}

// Short returns the bare version, e.g. "0.3.1" or "dev".
func Short() string {
	return Version
}

// Map returns the build details keyed for JSON responses.
func Map() map[string]string {
	commit, date := stamp()
	return map[string]string{
		"version":    Version,
		"git_commit": commit,
		"build_date": date,
		"go_version": runtime.Version(),
		"platform":   runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// stamp prefers ldflags values and falls back to the embedded VCS info.
func stamp() (commit, date string) {
	commit, date = GitCommit, BuildDate
	if commit != "unknown" && date != "unknown" {
		return commit, date
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return commit, date
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && commit == "unknown":
			commit = s.Value
			if len(commit) > 12 {
				commit = commit[:12]
			}
		case s.Key == "vcs.time" && date == "unknown":
			date = s.Value
		}
	}
	return commit, date
}
