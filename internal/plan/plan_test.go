package plan

import (
	"reflect"
	"strings"
	"testing"

	"strata/internal/classify"
	"strata/internal/errors"
	"strata/internal/graph"
	"strata/internal/imports"
	"strata/internal/tier"
	"strata/internal/units"
)

func testInputs() *Inputs {
	root := "src/components"
	return &Inputs{
		Root:            root,
		TierDirs:        tier.DefaultDirs(),
		AggregationFile: "index.ts",
		Units: []*units.Unit{
			{Name: "Card", Path: root + "/Card/Card.tsx", Dir: root + "/Card", Root: root,
				Files: []string{root + "/Card/Card.tsx", root + "/Card/index.ts"}},
			{Name: "Button", Path: root + "/Button.tsx", Root: root, Files: []string{root + "/Button.tsx"}},
			{Name: "Banner", Path: "src/widgets/Banner.tsx", Root: "src/widgets", NonStandard: true,
				Level: tier.Skip, Files: []string{"src/widgets/Banner.tsx"}},
		},
		Index: &imports.Index{
			ByUnit: map[string][]*imports.Edge{
				"Button": {{File: root + "/Card/Card.tsx"}},
				"Card":   {{File: "src/pages/Home.tsx"}, {File: root + "/Card/index.ts"}},
			},
			Outgoing: map[string][]string{"Card": {"Button"}},
		},
		Results: map[string]classify.Result{
			"Button": {Level: tier.Atom, Confidence: units.High, Rationale: []string{"no dependencies"}},
			"Card":   {Level: tier.Molecule, Confidence: units.High, Rationale: []string{"composes 1 atom"}},
		},
	}
}

func names(list []*units.Unit) []string {
	var out []string
	for _, u := range list {
		out = append(out, u.Name)
	}
	return out
}

func TestBuild(t *testing.T) {
	p := Build(testInputs())

	if p.Version != 1 || p.Status != StatusDraft || p.ID == "" {
		t.Fatalf("unexpected header: id=%q v%d %s", p.ID, p.Version, p.Status)
	}
	if got := names(p.Units); !reflect.DeepEqual(got, []string{"Button", "Card", "Banner"}) {
		t.Errorf("order = %v", got)
	}
	if got := p.Unit("Button").Destination; got != "src/components/atoms/Button.tsx" {
		t.Errorf("Button destination = %q", got)
	}
	if got := p.Unit("Card").Destination; got != "src/components/molecules/Card/Card.tsx" {
		t.Errorf("Card destination = %q", got)
	}
	if p.Unit("Banner").Destination != "" {
		t.Error("skipped unit must have no destination")
	}
	if p.Counts[tier.Atom] != 1 || p.Counts[tier.Molecule] != 1 || p.Counts[tier.Skip] != 1 {
		t.Errorf("counts = %v", p.Counts)
	}

	wantCard := []string{
		"src/components/Card/Card.tsx",
		"src/components/Card/index.ts",
		"src/components/index.ts",
		"src/components/molecules/index.ts",
		"src/pages/Home.tsx",
	}
	if got := p.AffectedFiles["Card"]; !reflect.DeepEqual(got, wantCard) {
		t.Errorf("Card affected = %v", got)
	}
	if p.AffectedFileCount != 7 {
		t.Errorf("AffectedFileCount = %d, want 7", p.AffectedFileCount)
	}
	if p.IsEmpty() {
		t.Error("plan should not be empty")
	}
}

func TestOverride_RecomputesDestination(t *testing.T) {
	p := Build(testInputs())

	p2, err := p.Override("Card", tier.Organism, "owns a data section")
	if err != nil {
		t.Fatalf("Override: %v", err)
	}
	if p2.Version != 2 {
		t.Errorf("Version = %d, want 2", p2.Version)
	}
	card := p2.Unit("Card")
	if card.Level != tier.Organism {
		t.Errorf("Level = %s", card.Level)
	}
	if card.Destination != "src/components/organisms/Card/Card.tsx" {
		t.Errorf("Destination = %q", card.Destination)
	}
	if card.Override == nil || card.Override.From != tier.Molecule {
		t.Errorf("Override = %+v", card.Override)
	}
	if !strings.HasPrefix(card.Rationale[0], "superseded by override: ") {
		t.Errorf("original rationale not annotated: %v", card.Rationale)
	}

	affected := strings.Join(p2.AffectedFiles["Card"], " ")
	if !strings.Contains(affected, "organisms/index.ts") || strings.Contains(affected, "molecules/index.ts") {
		t.Errorf("affected files not recomputed: %s", affected)
	}

	// the earlier version is untouched
	if p.Unit("Card").Level != tier.Molecule || p.Version != 1 {
		t.Error("Override mutated the previous version")
	}
}

func TestOverride_Errors(t *testing.T) {
	p := Build(testInputs())

	if _, err := p.Override("Nope", tier.Atom, ""); !errors.HasCode(err, errors.UnknownUnit) {
		t.Errorf("unknown unit err = %v", err)
	}
	if _, err := p.Override("Card", tier.Level("quark"), ""); !errors.HasCode(err, errors.InvalidLevel) {
		t.Errorf("invalid level err = %v", err)
	}

	approved, err := p.Accept()
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if approved.Version != 1 || approved.Status != StatusApproved {
		t.Errorf("accepted plan = v%d %s", approved.Version, approved.Status)
	}
	if _, err := approved.Override("Card", tier.Organism, ""); !errors.HasCode(err, errors.PlanImmutable) {
		t.Errorf("override after approval err = %v", err)
	}
	if _, err := approved.Exclude("Card"); !errors.HasCode(err, errors.PlanImmutable) {
		t.Errorf("exclude after approval err = %v", err)
	}
}

func TestExcludeAndSelect(t *testing.T) {
	p := Build(testInputs())

	p2, err := p.Exclude("Button")
	if err != nil {
		t.Fatalf("Exclude: %v", err)
	}
	if p2.Unit("Button").Level != tier.Skip || p2.Unit("Button").Destination != "" {
		t.Error("excluded unit should be skipped")
	}
	if _, ok := p2.AffectedFiles["Button"]; ok {
		t.Error("excluded unit should have no affected files")
	}
	if got := names(p2.Active()); !reflect.DeepEqual(got, []string{"Card"}) {
		t.Errorf("Active = %v", got)
	}

	p3, err := p.Select("Button")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got := names(p3.Active()); !reflect.DeepEqual(got, []string{"Button"}) {
		t.Errorf("Active after select = %v", got)
	}
	if p3.Version != 2 || len(p3.Changes) != 1 {
		t.Errorf("select should produce one new version, got v%d %v", p3.Version, p3.Changes)
	}
}

func TestBuild_PinsAndCycles(t *testing.T) {
	in := testInputs()
	in.Pins = map[string]tier.Level{"Button": tier.Molecule}
	in.Cycles = []graph.Cycle{{Units: []string{"Button", "Card"}}}

	p := Build(in)
	b := p.Unit("Button")
	if b.Level != tier.Molecule || b.Override == nil || !strings.Contains(b.Override.Reason, "strata.toml") {
		t.Errorf("pin not applied: %+v", b)
	}

	var kinds []units.WarningKind
	for _, w := range p.Warnings {
		kinds = append(kinds, w.Kind)
	}
	want := []units.WarningKind{units.CircularDependency}
	if !reflect.DeepEqual(kinds, want) {
		t.Errorf("warning kinds = %v, want %v", kinds, want)
	}
	if !strings.Contains(p.Warnings[0].Message, "Button -> Card -> Button") {
		t.Errorf("cycle message = %q", p.Warnings[0].Message)
	}
}

func TestBuild_HierarchyWarningFollowsOverride(t *testing.T) {
	p := Build(testInputs())
	if len(p.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", p.Warnings)
	}

	p2, err := p.Override("Button", tier.Organism, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(p2.Warnings) != 1 || p2.Warnings[0].Kind != units.AmbiguousClassification {
		t.Errorf("warnings after override = %v", p2.Warnings)
	}
}

func TestBuild_Empty(t *testing.T) {
	p := Build(&Inputs{Root: "src/components", TierDirs: tier.DefaultDirs(), AggregationFile: "index.ts"})
	if !p.IsEmpty() || len(p.Warnings) != 0 || p.AffectedFileCount != 0 {
		t.Errorf("empty plan = %+v", p)
	}
	if p.Summary() != "nothing to migrate" {
		t.Errorf("Summary = %q", p.Summary())
	}
}
