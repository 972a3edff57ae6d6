package scanner

import (
	"sort"
	"strings"
)

// Snapshot is the in-memory copy of the source tree taken once per run.
// Analysis only ever reads from it.
type Snapshot struct {
	// Root is the absolute project root.
	Root string

	contents map[string][]byte
	paths    []string // every file seen, canonical and sorted
}

func newSnapshot(root string) *Snapshot {
	return &Snapshot{Root: root, contents: make(map[string][]byte)}
}

// NewSnapshotFromFiles builds a snapshot from canonical path -> content.
func NewSnapshotFromFiles(root string, files map[string]string) *Snapshot {
	s := newSnapshot(root)
	for p, c := range files {
		s.contents[p] = []byte(c)
		s.paths = append(s.paths, p)
	}
	sort.Strings(s.paths)
	return s
}

// Paths returns every file path in the snapshot, sorted.
func (s *Snapshot) Paths() []string {
	return s.paths
}

// SourcePaths returns the paths whose content was loaded, sorted.
func (s *Snapshot) SourcePaths() []string {
	out := make([]string, 0, len(s.contents))
	for _, p := range s.paths {
		if _, ok := s.contents[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Content returns the loaded content of a source file.
func (s *Snapshot) Content(p string) ([]byte, bool) {
	c, ok := s.contents[p]
	return c, ok
}

// Has reports whether a file exists at p.
func (s *Snapshot) Has(p string) bool {
	i := sort.SearchStrings(s.paths, p)
	return i < len(s.paths) && s.paths[i] == p
}

// HasDir reports whether any file lives under dir.
func (s *Snapshot) HasDir(dir string) bool {
	return len(s.Under(dir)) > 0
}

// Under returns every file below dir, sorted.
func (s *Snapshot) Under(dir string) []string {
	prefix := dir + "/"
	i := sort.SearchStrings(s.paths, prefix)
	var out []string
	for ; i < len(s.paths) && strings.HasPrefix(s.paths[i], prefix); i++ {
		out = append(out, s.paths[i])
	}
	return out
}
