// Package version holds the strata release identifiers, set at link time:
//
//	go build -ldflags "-X strata/internal/version.Commit=$(git rev-parse HEAD)"
package version

import "strings"

var (
	Version   = "0.3.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info is the short form shown by --version: the release plus an abbreviated
// commit when one was linked in.
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full is the multi-line form printed by `strata --version`. Build facts that
// were not linked in are left out rather than printed as unknown.
func Full() string {
	lines := []string{"strata " + Version}
	if Commit != "unknown" && Commit != "" {
		lines = append(lines, "commit: "+Commit)
	}
	if BuildDate != "unknown" && BuildDate != "" {
		lines = append(lines, "built: "+BuildDate)
	}
	return strings.Join(lines, "\n")
}
