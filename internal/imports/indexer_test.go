package imports

import (
	"context"
	"reflect"
	"testing"

	"strata/internal/scanner"
	"strata/internal/slogutil"
	"strata/internal/tier"
	"strata/internal/units"
)

func TestIndexer_Build(t *testing.T) {
	snap := scanner.NewSnapshotFromFiles("/repo", map[string]string{
		"src/components/Button.tsx":      "export default function Button() {}",
		"src/components/Button.test.tsx": "import Button from './Button'",
		"src/components/Card/Card.tsx":   "import Button from '../Button';\nexport const Card = () => null",
		"src/components/Card/index.ts":   "export { Card } from './Card'",
		"src/components/Form.tsx": `import Button from './Button';
import { Card } from './Card';
import { Icon, Label } from './atoms';
import { Form as Self } from './Form';
export default function Form() {}`,
		"src/components/Modal.tsx":       "const View = import(`./${name}`);\nexport default function Modal() {}",
		"src/components/atoms/Icon.tsx":  "export default function Icon() {}",
		"src/components/atoms/Label.tsx": "export default function Label() {}",
		"src/components/atoms/index.ts":  "export { default as Icon } from './Icon';\nexport { default as Label } from './Label';",
		"src/pages/Home.tsx":             "import Button from '@/components/Button';\nimport { Card } from '../components/Card';",
	})

	candidates := []*units.Unit{
		{Name: "Button", Path: "src/components/Button.tsx", Files: []string{"src/components/Button.test.tsx", "src/components/Button.tsx"}},
		{Name: "Card", Path: "src/components/Card/Card.tsx", Dir: "src/components/Card"},
		{Name: "Form", Path: "src/components/Form.tsx", Files: []string{"src/components/Form.tsx"}},
		{Name: "Modal", Path: "src/components/Modal.tsx", Files: []string{"src/components/Modal.tsx"}},
	}
	residents := []*units.Unit{
		{Name: "Icon", Path: "src/components/atoms/Icon.tsx", Files: []string{"src/components/atoms/Icon.tsx"}, Level: tier.Atom, Migrated: true},
		{Name: "Label", Path: "src/components/atoms/Label.tsx", Files: []string{"src/components/atoms/Label.tsx"}, Level: tier.Atom, Migrated: true},
	}

	resolver := NewResolver("", map[string][]string{"@/*": {"src/*"}}, exts)
	ix := NewIndexer(resolver, "index.ts", 4, slogutil.NewDiscardLogger())
	idx, err := ix.Build(context.Background(), snap, candidates, residents)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	wantEdges := []string{"Card->Button", "Form->Button", "Form->Card"}
	var gotEdges []string
	for _, e := range idx.Graph.Edges() {
		gotEdges = append(gotEdges, e.From+"->"+e.To)
	}
	if !reflect.DeepEqual(gotEdges, wantEdges) {
		t.Errorf("graph edges = %v, want %v", gotEdges, wantEdges)
	}

	if got := idx.Outgoing["Form"]; !reflect.DeepEqual(got, []string{"Button", "Card", "Icon", "Label"}) {
		t.Errorf("Outgoing[Form] = %v", got)
	}

	button := candidates[0]
	if got := idx.ReferencingFiles(button); !reflect.DeepEqual(got, []string{
		"src/components/Card/Card.tsx", "src/components/Form.tsx", "src/pages/Home.tsx",
	}) {
		t.Errorf("ReferencingFiles(Button) = %v", got)
	}

	var homeButton *Edge
	for _, e := range idx.ByUnit["Button"] {
		if e.File == "src/pages/Home.tsx" {
			homeButton = e
		}
	}
	if homeButton == nil || homeButton.Style != StyleAlias || homeButton.Default != "Button" {
		t.Errorf("Home edge = %+v", homeButton)
	}

	for _, e := range idx.ByUnit["Icon"] {
		if e.File == "src/components/Form.tsx" && !e.ViaAggregate {
			t.Errorf("Icon reached through atoms/index.ts should be ViaAggregate: %+v", e)
		}
	}
	for _, e := range idx.ByUnit["Form"] {
		t.Errorf("self import must not be recorded: %+v", e)
	}

	if len(idx.Dynamic) != 1 || idx.Dynamic[0].File != "src/components/Modal.tsx" {
		t.Fatalf("Dynamic = %+v", idx.Dynamic)
	}
	if got := idx.Dynamic[0].Candidates; !reflect.DeepEqual(got, []string{"Button", "Card", "Form", "Modal"}) {
		t.Errorf("dynamic candidates = %v", got)
	}

	if idx.ImportCounts["src/components/Form.tsx"] != 4 {
		t.Errorf("ImportCounts[Form] = %d", idx.ImportCounts["src/components/Form.tsx"])
	}
}
