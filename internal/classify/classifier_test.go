package classify

import (
	"strings"
	"testing"

	"strata/internal/config"
	"strata/internal/signals"
	"strata/internal/slogutil"
	"strata/internal/tier"
	"strata/internal/units"
)

func newClassifier() *Classifier {
	cfg := config.DefaultConfig()
	return New(cfg.Classify, cfg.Tiers.RoutingDirs, slogutil.NewDiscardLogger())
}

func input(name string, f *signals.Facts, deps ...string) *Input {
	return &Input{
		Unit:  &units.Unit{Name: name, Path: "src/components/" + name + ".tsx", HasPrimaryExport: true},
		Facts: f,
		Deps:  deps,
	}
}

func component() *signals.Facts {
	return &signals.Facts{HasJSX: true, DefaultExport: true}
}

func TestClassifyAll_ScenarioA(t *testing.T) {
	section := component()
	section.State = []signals.StateVar{{Name: "orders"}}
	section.SharedState = []string{"useSelector"}
	section.Fetches = []string{"fetch"}

	inputs := []*Input{
		input("Label", component()),
		input("TextInput", component()),
		input("FormField", component(), "Label", "TextInput"),
		input("OrderPanel", section),
	}

	results := newClassifier().ClassifyAll(inputs, nil)

	want := map[string]struct {
		level tier.Level
		conf  units.Confidence
	}{
		"Label":      {tier.Atom, units.High},
		"TextInput":  {tier.Atom, units.High},
		"FormField":  {tier.Molecule, units.High},
		"OrderPanel": {tier.Organism, units.High},
	}
	for name, w := range want {
		got := results[name]
		if got.Level != w.level || got.Confidence != w.conf {
			t.Errorf("%s = %s/%s, want %s/%s (%v)", name, got.Level, got.Confidence, w.level, w.conf, got.Rationale)
		}
	}
}

func TestClassify_Template(t *testing.T) {
	tests := []struct {
		name     string
		facts    func() *signals.Facts
		deps     []string
		want     tier.Level
		wantConf units.Confidence
	}{
		{
			name: "shell with slot",
			facts: func() *signals.Facts {
				f := component()
				f.ContentSlot = true
				return f
			},
			deps:     []string{"Header", "Footer"},
			want:     tier.Template,
			wantConf: units.High,
		},
		{
			name: "shell reading shared state",
			facts: func() *signals.Facts {
				f := component()
				f.ContentSlot = true
				f.SharedState = []string{"useContext"}
				return f
			},
			deps:     []string{"Header"},
			want:     tier.Template,
			wantConf: units.Medium,
		},
		{
			name: "shell with business logic falls through",
			facts: func() *signals.Facts {
				f := component()
				f.ContentSlot = true
				f.Fetches = []string{"useQuery"}
				return f
			},
			deps:     []string{"Header"},
			want:     tier.Organism,
			wantConf: units.High,
		},
	}

	c := newClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(input("DashboardLayout", tt.facts(), tt.deps...), &Env{})
			if got.Level != tt.want || got.Confidence != tt.wantConf {
				t.Errorf("got %s/%s, want %s/%s (%v)", got.Level, got.Confidence, tt.want, tt.wantConf, got.Rationale)
			}
		})
	}
}

func TestClassify_Page(t *testing.T) {
	c := newClassifier()

	routed := func() *signals.Facts {
		f := component()
		f.RouteReads = []string{"useParams"}
		return f
	}
	screensPath := "src/screens/Checkout.tsx"

	tests := []struct {
		name     string
		unit     string
		facts    *signals.Facts
		path     string
		deps     []string
		want     tier.Level
		wantConf units.Confidence
	}{
		{name: "suffix and route reads", unit: "OrderDetailsPage", facts: routed(), deps: []string{"OrderPanel"}, want: tier.Page, wantConf: units.High},
		{name: "route reads only", unit: "Checkout", facts: routed(), deps: []string{"OrderPanel"}, want: tier.Page, wantConf: units.Medium},
		{name: "location only", unit: "Checkout", facts: component(), path: screensPath, deps: []string{"OrderPanel"}, want: tier.Page, wantConf: units.Medium},
		{name: "suffix without in-tree imports", unit: "SettingsPage", facts: component(), want: tier.Page, wantConf: units.Medium},
		{name: "route reads without in-tree imports", unit: "Checkout", facts: routed(), want: tier.Page, wantConf: units.Medium},
		{name: "location without in-tree imports", unit: "Checkout", facts: component(), path: screensPath, want: tier.Page, wantConf: units.Medium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := input(tt.unit, tt.facts, tt.deps...)
			if tt.path != "" {
				in.Unit.Path = tt.path
			}
			got := c.Classify(in, &Env{})
			if got.Level != tt.want || got.Confidence != tt.wantConf {
				t.Errorf("got %s/%s, want %s/%s (%v)", got.Level, got.Confidence, tt.want, tt.wantConf, got.Rationale)
			}
			if len(tt.deps) == 0 && !strings.Contains(strings.Join(got.Rationale, "\n"), "also considered") {
				t.Errorf("later atom match should be listed in the rationale: %v", got.Rationale)
			}
		})
	}

	navigates := component()
	navigates.Navigation = []string{"useNavigate"}
	got := c.Classify(input("BackButton", navigates), &Env{})
	if got.Level != tier.Atom || got.Confidence != units.Medium {
		t.Errorf("navigation call alone should stay atom/medium, got %s/%s", got.Level, got.Confidence)
	}
}

func TestClassify_FirstMatchWins(t *testing.T) {
	f := component()
	f.ContentSlot = true

	got := newClassifier().Classify(input("CenteredLayout", f), &Env{})
	if got.Level != tier.Template || got.Confidence != units.High {
		t.Fatalf("got %s/%s, want template/high (%v)", got.Level, got.Confidence, got.Rationale)
	}
	if got.Tie {
		t.Errorf("template 3/3 and atom 4/4 are different scores, not a tie")
	}
}

func TestClassify_TieGoesToLowerTier(t *testing.T) {
	f := component()
	f.ContentSlot = true
	f.SharedState = []string{"useContext"}
	f.RouteReads = []string{"useParams"}

	in := input("OrdersLayout", f)
	in.Unit.Path = "src/pages/OrdersLayout.tsx"

	got := newClassifier().Classify(in, &Env{})
	if got.Level != tier.Template || !got.Tie {
		t.Fatalf("got %s tie=%v, want template via tie-break (%v)", got.Level, got.Tie, got.Rationale)
	}
	if !strings.Contains(strings.Join(got.Rationale, "\n"), "tie broken") {
		t.Errorf("rationale should mention the tie: %v", got.Rationale)
	}
}

func TestClassify_MoleculeLowConfidence(t *testing.T) {
	f := component()
	f.State = []signals.StateVar{{Name: "value"}}
	f.Fetches = []string{"fetch"}

	env := &Env{Levels: map[string]tier.Level{"Icon": tier.Atom, "Label": tier.Atom}}
	got := newClassifier().Classify(input("SearchBox", f, "Icon", "Label"), env)
	if got.Level != tier.Molecule || got.Confidence != units.Low {
		t.Errorf("got %s/%s, want molecule/low (%v)", got.Level, got.Confidence, got.Rationale)
	}
}

func TestClassify_OrganismDefaults(t *testing.T) {
	c := newClassifier()

	plain := component()
	plain.ValueExports = []string{"A", "B"}
	plain.Effects = []string{"useEffect"}
	plain.State = []signals.StateVar{{Name: "a", Transient: true}, {Name: "b", Transient: true}, {Name: "c", Transient: true}}
	got := c.Classify(input("Widget", plain, "X"), &Env{})
	if got.Level != tier.Organism || got.Confidence != units.Medium {
		t.Errorf("got %s/%s, want organism/medium", got.Level, got.Confidence)
	}
	if !strings.Contains(got.Rationale[0], "unclear boundary") {
		t.Errorf("rationale = %v", got.Rationale)
	}

	helper := &signals.Facts{Effects: []string{"localStorage"}, State: []signals.StateVar{{Name: "x"}}, Fetches: []string{"fetch"}}
	in := input("storage", helper, "X")
	in.Unit.HasPrimaryExport = false
	in.Facts.Fetches = nil
	in.Facts.SharedState = nil
	got = c.Classify(in, &Env{})
	if got.Level != tier.Organism || got.Confidence != units.High {
		t.Errorf("business state should make organism/high, got %s/%s", got.Level, got.Confidence)
	}

	bare := input("constants", &signals.Facts{Effects: []string{"localStorage"}, Navigation: []string{"navigate"}}, "X", "Y")
	bare.Unit.HasPrimaryExport = false
	bare.Facts.ValueExports = []string{"A", "B"}
	got = c.Classify(bare, &Env{})
	if got.Level != tier.Organism || got.Confidence != units.Low {
		t.Errorf("signal-poor unit should fall back to organism/low, got %s/%s (%v)", got.Level, got.Confidence, got.Rationale)
	}
}

func TestClassifyAll_Deterministic(t *testing.T) {
	build := func() []*Input {
		return []*Input{
			input("B", component(), "A", "C"),
			input("A", component()),
			input("C", component()),
		}
	}
	c := newClassifier()
	first := c.ClassifyAll(build(), nil)
	for i := 0; i < 5; i++ {
		again := c.ClassifyAll(build(), nil)
		for name, r := range first {
			if again[name].Level != r.Level || again[name].Confidence != r.Confidence {
				t.Fatalf("run %d: %s changed from %s/%s to %s/%s", i, name, r.Level, r.Confidence, again[name].Level, again[name].Confidence)
			}
		}
	}
}

func TestWarnings(t *testing.T) {
	list := []*units.Unit{
		{Name: "Button", Level: tier.Atom, Confidence: units.High},
		{Name: "Field", Level: tier.Molecule, Confidence: units.Low},
	}
	outgoing := map[string][]string{"Button": {"Field"}, "Field": {"Header"}}
	placed := map[string]tier.Level{"Header": tier.Organism}

	ws := Warnings(list, outgoing, placed)
	if len(ws) != 3 {
		t.Fatalf("warnings = %+v", ws)
	}
	kinds := map[units.WarningKind]int{}
	for _, w := range ws {
		kinds[w.Kind]++
	}
	if kinds[units.AmbiguousClassification] != 2 || kinds[units.LowConfidence] != 1 {
		t.Errorf("kinds = %v", kinds)
	}
}
