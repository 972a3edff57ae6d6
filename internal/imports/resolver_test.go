package imports

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"strata/internal/config"
)

type fileSet map[string]bool

func (f fileSet) Has(p string) bool { return f[p] }

var exts = []string{".tsx", ".ts", ".jsx", ".js"}

func TestResolver_Resolve(t *testing.T) {
	files := fileSet{
		"src/components/Button.tsx":    true,
		"src/components/Card/index.ts": true,
		"src/components/Card/Card.tsx": true,
		"src/theme.ts":                 true,
		"src/logo.svg":                 true,
	}
	r := NewResolver("src", map[string][]string{
		"@/*":           {"*"},
		"@components/*": {"components/*"},
	}, exts)

	tests := []struct {
		from, spec string
		want       string
		style      Style
		ok         bool
	}{
		{"src/App.tsx", "./components/Button", "src/components/Button.tsx", StyleRelative, true},
		{"src/App.tsx", "./components/Card", "src/components/Card/index.ts", StyleRelative, true},
		{"src/App.tsx", "./logo.svg", "src/logo.svg", StyleRelative, true},
		{"src/pages/Home.tsx", "@components/Button", "src/components/Button.tsx", StyleAlias, true},
		{"src/pages/Home.tsx", "@/theme", "src/theme.ts", StyleAlias, true},
		{"src/pages/Home.tsx", "components/Card/Card", "src/components/Card/Card.tsx", StyleBare, true},
		{"src/pages/Home.tsx", "react", "", StyleBare, false},
		{"src/App.tsx", "../../outside", "", StyleRelative, false},
	}
	for _, tt := range tests {
		got, style, ok := r.Resolve(files, tt.from, tt.spec)
		if got != tt.want || style != tt.style || ok != tt.ok {
			t.Errorf("Resolve(%q, %q) = %q %s %v, want %q %s %v", tt.from, tt.spec, got, style, ok, tt.want, tt.style, tt.ok)
		}
	}
}

func TestResolver_Specifier(t *testing.T) {
	r := NewResolver("src", map[string][]string{"@components/*": {"components/*"}}, exts)

	tests := []struct {
		from, target string
		style        Style
		want         string
	}{
		{"src/pages/Home.tsx", "src/components/atoms", StyleAlias, "@components/atoms"},
		{"src/pages/Home.tsx", "src/components/atoms", StyleRelative, "../components/atoms"},
		{"src/pages/Home.tsx", "src/components/atoms", StyleBare, "components/atoms"},
		{"lib/x.ts", "lib/y", StyleAlias, "./y"},
	}
	for _, tt := range tests {
		if got := r.Specifier(tt.from, tt.target, tt.style); got != tt.want {
			t.Errorf("Specifier(%q, %q, %s) = %q, want %q", tt.from, tt.target, tt.style, got, tt.want)
		}
	}
}

func TestLoadResolver_Tsconfig(t *testing.T) {
	root := t.TempDir()
	tsconfig := `{
  // editor settings
  "compilerOptions": {
    "baseUrl": "./src",
    "paths": {
      "@ui/*": ["components/*"], /* shared widgets */
    },
  },
}`
	if err := os.WriteFile(filepath.Join(root, "tsconfig.json"), []byte(tsconfig), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig().Aliases
	cfg.Paths = map[string][]string{"~/*": {"*"}}
	r, err := LoadResolver(context.Background(), root, cfg, exts)
	if err != nil {
		t.Fatalf("LoadResolver: %v", err)
	}
	if r.BaseURL != "src" {
		t.Errorf("BaseURL = %q", r.BaseURL)
	}
	if len(r.Aliases) != 2 || r.Aliases[0].Pattern != "@ui/*" {
		t.Fatalf("Aliases = %+v", r.Aliases)
	}
	if r.Aliases[0].Targets[0] != "src/components/*" {
		t.Errorf("target = %q", r.Aliases[0].Targets[0])
	}
}

func TestLoadResolver_NoTsconfig(t *testing.T) {
	r, err := LoadResolver(context.Background(), t.TempDir(), config.DefaultConfig().Aliases, exts)
	if err != nil {
		t.Fatalf("LoadResolver: %v", err)
	}
	if r.BaseURL != "" || len(r.Aliases) != 0 {
		t.Errorf("expected empty resolver, got %+v", r)
	}
}
