package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"strata/internal/config"
)

func TestInitConfig(t *testing.T) {
	root := t.TempDir()
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := initConfig(cmd, root, false); err != nil {
		t.Fatalf("initConfig: %v", err)
	}
	if !strings.Contains(out.String(), "config.json") {
		t.Errorf("output = %q", out.String())
	}

	cfg, err := config.LoadConfig(root)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Root != "src/components" || cfg.Aggregation.FileName != "index.ts" {
		t.Errorf("loaded config = %+v", cfg)
	}

	if err := initConfig(cmd, root, false); err == nil {
		t.Error("second init without --force should fail")
	}
	if err := os.WriteFile(filepath.Join(root, config.Dir, "config.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := initConfig(cmd, root, true); err != nil {
		t.Errorf("init --force: %v", err)
	}
}
