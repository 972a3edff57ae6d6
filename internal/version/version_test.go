package version

import "testing"

func withBuild(t *testing.T, commit, date string) {
	t.Helper()
	origCommit, origDate := Commit, BuildDate
	t.Cleanup(func() { Commit, BuildDate = origCommit, origDate })
	Commit, BuildDate = commit, date
}

func TestInfo_AbbreviatesCommit(t *testing.T) {
	withBuild(t, "9f2c41be07d1", "unknown")
	if got, want := Info(), Version+" (9f2c41b)"; got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}

	withBuild(t, "unknown", "unknown")
	if got := Info(); got != Version {
		t.Errorf("Info() without commit = %q, want %q", got, Version)
	}
}

func TestFull_OmitsMissingBuildFacts(t *testing.T) {
	withBuild(t, "unknown", "unknown")
	if got := Full(); got != "strata "+Version {
		t.Errorf("Full() = %q", got)
	}

	withBuild(t, "9f2c41be07d1", "2026-10-01")
	want := "strata " + Version + "\ncommit: 9f2c41be07d1\nbuilt: 2026-10-01"
	if got := Full(); got != want {
		t.Errorf("Full() = %q, want %q", got, want)
	}
}
