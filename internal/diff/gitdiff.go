// Package diff renders and reads the unified diffs used to preview a
// migration before any file is written.
package diff

import (
	"fmt"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"
)

// FileStat summarizes one file of a unified diff.
type FileStat struct {
	OldPath string `json:"oldPath,omitempty"`
	NewPath string `json:"newPath,omitempty"`
	Added   int    `json:"added"`
	Removed int    `json:"removed"`
	IsNew   bool   `json:"isNew,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
	Renamed bool   `json:"renamed,omitempty"`
}

// ParseStats parses a multi-file unified diff into per-file line counts.
func ParseStats(diffContent string) ([]FileStat, error) {
	if diffContent == "" {
		return nil, nil
	}

	fileDiffs, err := godiff.ParseMultiFileDiff([]byte(diffContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff: %w", err)
	}

	stats := make([]FileStat, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		stats = append(stats, statOf(fd))
	}
	return stats, nil
}

func statOf(fd *godiff.FileDiff) FileStat {
	st := FileStat{
		OldPath: cleanPath(fd.OrigName),
		NewPath: cleanPath(fd.NewName),
	}

	for _, x := range fd.Extended {
		switch {
		case strings.HasPrefix(x, "rename from "):
			st.OldPath = strings.TrimPrefix(x, "rename from ")
		case strings.HasPrefix(x, "rename to "):
			st.NewPath = strings.TrimPrefix(x, "rename to ")
		case strings.HasPrefix(x, "new file mode"):
			st.IsNew = true
		}
	}

	if fd.OrigName == "/dev/null" {
		st.IsNew = true
		st.OldPath = ""
	}
	if fd.NewName == "/dev/null" {
		st.Deleted = true
		st.NewPath = ""
	}
	if st.OldPath != "" && st.NewPath != "" && st.OldPath != st.NewPath {
		st.Renamed = true
	}

	for _, h := range fd.Hunks {
		for _, line := range strings.Split(string(h.Body), "\n") {
			if line == "" {
				continue
			}
			switch line[0] {
			case '+':
				st.Added++
			case '-':
				st.Removed++
			}
		}
	}
	return st
}

// cleanPath removes the a/ or b/ prefix from git diff paths
func cleanPath(path string) string {
	if path == "" || path == "/dev/null" {
		return path
	}
	if strings.HasPrefix(path, "a/") || strings.HasPrefix(path, "b/") {
		return path[2:]
	}
	return path
}
