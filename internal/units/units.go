// Package units holds the records shared by every pipeline stage: discovered
// units, their classification, and the non-fatal warnings raised about them.
package units

import (
	"path"
	"sort"
	"strings"

	"strata/internal/tier"
)

// Confidence is the calibrated certainty attached to a classification.
type Confidence string

const (
	High   Confidence = "high"
	Medium Confidence = "medium"
	Low    Confidence = "low"
)

// Rank orders confidences, low=1 .. high=3.
func (c Confidence) Rank() int {
	switch c {
	case High:
		return 3
	case Medium:
		return 2
	case Low:
		return 1
	default:
		return 0
	}
}

// NeedsReview reports whether a human must confirm the classification.
func (c Confidence) NeedsReview() bool {
	return c == Low
}

// Override records a user-supplied level change.
type Override struct {
	From   tier.Level `json:"from"`
	To     tier.Level `json:"to"`
	Reason string     `json:"reason,omitempty"`
}

// Unit is one discovered structural building block.
type Unit struct {
	Name string `json:"name"`

	// Path is the canonical path of the unit's primary file.
	Path string `json:"path"`

	// Dir is set for directory units; the whole directory moves with the unit.
	Dir string `json:"dir,omitempty"`

	// Files lists every canonical file owned by the unit, sorted.
	Files []string `json:"files"`

	TestFile        string `json:"testFile,omitempty"`
	DocsFile        string `json:"docsFile,omitempty"`
	AggregationFile string `json:"aggregationFile,omitempty"`

	HasPrimaryExport bool `json:"hasPrimaryExport"`

	// Root is the scan root the unit was found under.
	Root string `json:"root"`

	// NonStandard is set for units found outside the conventional root.
	NonStandard bool `json:"nonStandard,omitempty"`

	Level       tier.Level `json:"level"`
	Confidence  Confidence `json:"confidence"`
	Rationale   []string   `json:"rationale"`
	Destination string     `json:"destination,omitempty"`
	Override    *Override  `json:"override,omitempty"`
	Migrated    bool       `json:"migrated,omitempty"`
}

// HasTest reports whether a test file was found next to the unit.
func (u *Unit) HasTest() bool { return u.TestFile != "" }

// HasDocs reports whether a documentation stub was found next to the unit.
func (u *Unit) HasDocs() bool { return u.DocsFile != "" }

// IsDir reports whether the unit is a directory unit.
func (u *Unit) IsDir() bool { return u.Dir != "" }

// MoveRoot is the path that is relocated: the unit directory or the primary file.
func (u *Unit) MoveRoot() string {
	if u.Dir != "" {
		return u.Dir
	}
	return u.Path
}

// Owns reports whether canonical path p belongs to the unit.
func (u *Unit) Owns(p string) bool {
	if u.Dir != "" {
		return p == u.Dir || strings.HasPrefix(p, u.Dir+"/")
	}
	if p == u.Path {
		return true
	}
	for _, f := range u.Files {
		if f == p {
			return true
		}
	}
	return false
}

// ImportTarget is the extension-less path callers reference: the directory
// for directory units, the primary file without extension otherwise.
func (u *Unit) ImportTarget() string {
	if u.Dir != "" {
		return u.Dir
	}
	return strings.TrimSuffix(u.Path, path.Ext(u.Path))
}

// Clone returns a deep copy.
func (u *Unit) Clone() *Unit {
	c := *u
	c.Files = append([]string(nil), u.Files...)
	c.Rationale = append([]string(nil), u.Rationale...)
	if u.Override != nil {
		o := *u.Override
		c.Override = &o
	}
	return &c
}

// SortByName sorts units by name, then path for stability.
func SortByName(list []*Unit) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].Path < list[j].Path
	})
}

// WarningKind classifies a non-fatal finding.
type WarningKind string

const (
	CircularDependency      WarningKind = "circular-dependency"
	NamingConflict          WarningKind = "naming-conflict"
	NonStandardLocation     WarningKind = "non-standard-location"
	AmbiguousClassification WarningKind = "ambiguous-classification"
	MissingPrimaryExport    WarningKind = "missing-primary-export"
	LowConfidence           WarningKind = "low-confidence"
)

// Warning is a non-fatal finding attached to a plan.
type Warning struct {
	Kind       WarningKind `json:"kind"`
	Units      []string    `json:"units"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// SortWarnings orders warnings by kind, then by first unit, then message.
func SortWarnings(ws []Warning) {
	sort.SliceStable(ws, func(i, j int) bool {
		if ws[i].Kind != ws[j].Kind {
			return ws[i].Kind < ws[j].Kind
		}
		a, b := strings.Join(ws[i].Units, ","), strings.Join(ws[j].Units, ",")
		if a != b {
			return a < b
		}
		return ws[i].Message < ws[j].Message
	})
}
