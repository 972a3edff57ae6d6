package config

import (
	"os"
	"path/filepath"
	"testing"

	"strata/internal/tier"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Root != "src/components" {
		t.Errorf("Root = %q, want src/components", cfg.Root)
	}
	if len(cfg.Tiers.Dirs) != 5 {
		t.Errorf("Tiers.Dirs has %d entries, want 5", len(cfg.Tiers.Dirs))
	}
	if cfg.Aggregation.FileName != "index.ts" {
		t.Errorf("Aggregation.FileName = %q", cfg.Aggregation.FileName)
	}
	if !cfg.Aggregation.PreferAggregate {
		t.Error("PreferAggregate should default to true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad version", func(c *Config) { c.Version = 9 }, "version"},
		{"empty root", func(c *Config) { c.Root = " " }, "root"},
		{"absolute root", func(c *Config) { c.Root = "/src" }, "root"},
		{"escaping root", func(c *Config) { c.Root = "../other" }, "root"},
		{"no extensions", func(c *Config) { c.Scan.Extensions = nil }, "scan.extensions"},
		{"unknown tier", func(c *Config) { c.Tiers.Dirs["quark"] = "quarks" }, "tiers.dirs"},
		{"nested dir", func(c *Config) { c.Tiers.Dirs["atom"] = "ui/atoms" }, "tiers.dirs.atom"},
		{"no aggregation name", func(c *Config) { c.Aggregation.FileName = "" }, "aggregation.fileName"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			cfgErr, ok := err.(*ConfigError)
			if !ok {
				t.Fatalf("expected *ConfigError, got %T", err)
			}
			if cfgErr.Field != tt.wantErr {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateDuplicateDirs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tiers.Dirs = map[string]string{"atom": "ui", "molecule": "ui"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected duplicate directory error")
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Root != "src/components" {
		t.Errorf("Root = %q, want default", cfg.Root)
	}
}

func TestLoadConfig_OverlaysFile(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, Dir), 0o755); err != nil {
		t.Fatal(err)
	}
	content := `{
  "version": 1,
  "root": "app/ui",
  "tiers": {"dirs": {"atom": "base"}},
  "logging": {"level": "debug"}
}`
	if err := os.WriteFile(filepath.Join(root, Dir, "config.json"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Root != "app/ui" {
		t.Errorf("Root = %q, want app/ui", cfg.Root)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	dirs := cfg.TierDirs()
	if dirs.Dir(tier.Atom) != "base" {
		t.Errorf("atom dir = %q, want base", dirs.Dir(tier.Atom))
	}
	if dirs.Dir(tier.Page) != "pages" {
		t.Errorf("page dir = %q, want pages", dirs.Dir(tier.Page))
	}
	if len(cfg.Scan.Extensions) == 0 {
		t.Error("unset sections must keep their defaults")
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("STRATA_ROOT", "web/components")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Root != "web/components" {
		t.Errorf("Root = %q, want env override", cfg.Root)
	}
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.Root = "lib/components"

	if err := cfg.Save(root); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Root != "lib/components" {
		t.Errorf("Root = %q after round trip", loaded.Root)
	}
}

func TestParsePins(t *testing.T) {
	pins, err := ParsePins([]byte(`
version = 1

[pins]
Button = "atom"
Dashboard = "screen"
Legacy = "skip"
`))
	if err != nil {
		t.Fatalf("ParsePins: %v", err)
	}
	want := map[string]tier.Level{"Button": tier.Atom, "Dashboard": tier.Page, "Legacy": tier.Skip}
	for name, level := range want {
		if pins[name] != level {
			t.Errorf("pins[%s] = %q, want %q", name, pins[name], level)
		}
	}

	if _, err := ParsePins([]byte("[pins]\nCard = \"blob\"\n")); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLoadPins_Missing(t *testing.T) {
	pins, err := LoadPins(t.TempDir())
	if err != nil {
		t.Fatalf("LoadPins: %v", err)
	}
	if len(pins) != 0 {
		t.Errorf("expected no pins, got %v", pins)
	}
}
