// Package tier defines the five ordered hierarchy levels units are migrated into.
package tier

import (
	"fmt"
	"strings"
)

// Level is a hierarchy rank. The zero value is not a valid level.
type Level string

const (
	// Atom is the elementary tier: no in-tree dependencies, no business state.
	Atom Level = "atom"
	// Molecule is the composite-widget tier: a few atoms serving one purpose.
	Molecule Level = "molecule"
	// Organism is the section tier and the default when nothing more specific matches.
	Organism Level = "organism"
	// Template is the layout-shell tier: a content slot with no real data.
	Template Level = "template"
	// Page is the screen tier: routed, top-level views.
	Page Level = "page"
	// Skip excludes a unit from the current run.
	Skip Level = "skip"
)

var rank = map[Level]int{
	Atom:     1,
	Molecule: 2,
	Organism: 3,
	Template: 4,
	Page:     5,
}

// String returns the level name.
func (l Level) String() string {
	return string(l)
}

// DisplayName returns a human-readable level name.
func (l Level) DisplayName() string {
	switch l {
	case Atom:
		return "Atom"
	case Molecule:
		return "Molecule"
	case Organism:
		return "Organism"
	case Template:
		return "Template"
	case Page:
		return "Page"
	case Skip:
		return "Skipped"
	default:
		return string(l)
	}
}

// Rank orders levels from 1 (atom) to 5 (page). Skip and unknown levels rank 0.
func (l Level) Rank() int {
	return rank[l]
}

// IsTier reports whether l is one of the five hierarchy tiers.
func (l Level) IsTier() bool {
	return rank[l] > 0
}

// Below reports whether l is structurally simpler than other.
func (l Level) Below(other Level) bool {
	return l.IsTier() && other.IsTier() && l.Rank() < other.Rank()
}

// All returns the five tiers lowest first.
func All() []Level {
	return []Level{Atom, Molecule, Organism, Template, Page}
}

// Parse parses a level name. Common aliases from other naming schemes are accepted.
func Parse(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "atom", "atoms", "elementary":
		return Atom, nil
	case "molecule", "molecules", "composite", "widget":
		return Molecule, nil
	case "organism", "organisms", "section":
		return Organism, nil
	case "template", "templates", "layout", "shell":
		return Template, nil
	case "page", "pages", "screen":
		return Page, nil
	case "skip", "none", "exclude":
		return Skip, nil
	default:
		return "", fmt.Errorf("unknown level %q (want atom, molecule, organism, template, page or skip)", s)
	}
}

// Dirs maps each tier to its directory name under the components root.
type Dirs map[Level]string

// DefaultDirs returns the conventional plural directory names.
func DefaultDirs() Dirs {
	return Dirs{
		Atom:     "atoms",
		Molecule: "molecules",
		Organism: "organisms",
		Template: "templates",
		Page:     "pages",
	}
}

// Dir returns the directory for a tier, falling back to the default name.
func (d Dirs) Dir(l Level) string {
	if name, ok := d[l]; ok && name != "" {
		return name
	}
	return DefaultDirs()[l]
}

// LevelForDir returns the tier whose directory is name.
func (d Dirs) LevelForDir(name string) (Level, bool) {
	for _, l := range All() {
		if d.Dir(l) == name {
			return l, true
		}
	}
	return "", false
}

// Names returns every tier directory name, lowest tier first.
func (d Dirs) Names() []string {
	out := make([]string, 0, len(rank))
	for _, l := range All() {
		out = append(out, d.Dir(l))
	}
	return out
}
