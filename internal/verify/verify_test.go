package verify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"strata/internal/config"
	"strata/internal/slogutil"
)

func testConfig() config.VerifyConfig {
	return config.VerifyConfig{
		TypeCheck: config.CommandConfig{Enabled: true, Command: "tsc", Args: []string{"--noEmit"}},
		Lint:      config.CommandConfig{Enabled: true, Command: "eslint", Args: []string{"."}},
		Test:      config.CommandConfig{Enabled: true, Command: "jest"},
	}
}

func TestVerify_Outcomes(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(f *FakeToolchain)
		want   Outcome
		status []Status
		errs   []int
	}{
		{
			name: "all pass",
			setup: func(f *FakeToolchain) {
				f.Install("tsc", "eslint", "jest")
				f.Reply("jest", "Tests:       12 passed, 12 total", 0)
			},
			want:   FullSuccess,
			status: []Status{StatusPass, StatusPass, StatusPass},
			errs:   []int{0, 0, 0},
		},
		{
			name: "type errors",
			setup: func(f *FakeToolchain) {
				f.Install("tsc", "eslint", "jest")
				f.Reply("tsc --noEmit", "src/a.ts(1,1): error TS2307: x\nsrc/b.ts(2,1): error TS2307: y", 2)
			},
			want:   PartialSuccess,
			status: []Status{StatusFail, StatusPass, StatusPass},
			errs:   []int{2, 0, 0},
		},
		{
			name: "linter missing",
			setup: func(f *FakeToolchain) {
				f.Install("tsc", "jest")
				f.Reply("jest", "Tests:       1 failed, 3 passed, 4 total", 1)
			},
			want:   Blocked,
			status: []Status{StatusPass, StatusUnavailable, StatusFail},
			errs:   []int{0, 0, 1},
		},
		{
			name: "test runner crashed",
			setup: func(f *FakeToolchain) {
				f.Install("tsc", "eslint", "jest")
				f.Crash("jest", errors.New("signal: killed"))
			},
			want:   PartialSuccess,
			status: []Status{StatusPass, StatusPass, StatusError},
			errs:   []int{0, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFakeToolchain()
			tt.setup(f)
			r := New(testConfig(), f, slogutil.NewDiscardLogger()).Verify(context.Background(), Context{})
			if r.Outcome != tt.want {
				t.Errorf("Outcome = %s, want %s", r.Outcome, tt.want)
			}
			var got []Status
			var errs []int
			for _, res := range r.Results {
				got = append(got, res.Status)
				errs = append(errs, res.ErrorCount)
			}
			if !reflect.DeepEqual(got, tt.status) {
				t.Errorf("statuses = %v, want %v", got, tt.status)
			}
			if !reflect.DeepEqual(errs, tt.errs) {
				t.Errorf("error counts = %v, want %v", errs, tt.errs)
			}
		})
	}
}

func TestVerify_DisabledChecksAreSkipped(t *testing.T) {
	cfg := testConfig()
	cfg.Lint.Enabled = false
	cfg.Test.Command = ""

	f := NewFakeToolchain()
	f.Install("tsc")

	r := New(cfg, f, slogutil.NewDiscardLogger()).Verify(context.Background(), Context{})
	if len(r.Results) != 1 || r.Outcome != FullSuccess {
		t.Errorf("report = %+v", r)
	}
	if calls := f.Calls(); !reflect.DeepEqual(calls, []string{"tsc --noEmit"}) {
		t.Errorf("calls = %v", calls)
	}
}

func TestProjectToolchain_PrefersLocalBin(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "node_modules", ".bin")
	if err := os.MkdirAll(bin, 0o755); err != nil {
		t.Fatal(err)
	}
	tsc := filepath.Join(bin, "strata-test-tsc")
	if err := os.WriteFile(tsc, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	tc := NewProjectToolchain(dir, 0)
	got, err := tc.Locate("strata-test-tsc")
	if err != nil || got != tsc {
		t.Errorf("Locate = %q, %v; want %q", got, err, tsc)
	}
	if _, err := tc.Locate("strata-test-no-such-tool"); !errors.Is(err, ErrToolMissing) {
		t.Errorf("missing tool err = %v, want ErrToolMissing", err)
	}
}

func TestCountErrors(t *testing.T) {
	tests := []struct {
		check  Check
		output string
		want   int
	}{
		{TypeCheck, "a.ts(1,1): error TS2307: x\nb.ts(1,1): error TS2304: y\nc.ts(1,1): error TS1005: z", 3},
		{Lint, "✖ 7 problems (5 errors, 2 warnings)", 5},
		{Test, "Tests:       2 failed, 10 passed, 12 total", 2},
		{Test, "something went wrong", 1},
		{Lint, "Error: one\nerror: two", 2},
	}
	for _, tt := range tests {
		if got := countErrors(tt.check, tt.output); got != tt.want {
			t.Errorf("countErrors(%s, %q) = %d, want %d", tt.check, tt.output, got, tt.want)
		}
	}
}

func TestHints(t *testing.T) {
	output := `src/pages/Home.tsx(1,22): error TS2307: Cannot find module '@/components/Card' or its corresponding type declarations.
Module not found: Error: Can't resolve './Legacy' in 'src/pages'
src/pages/Lazy.tsx(3,1): error TS2345: bad`

	vc := Context{
		Moves:         []Move{{Unit: "Card", From: "src/components/Card", To: "src/components/molecules/Card"}},
		FollowUpFiles: []string{"src/pages/Lazy.tsx", "src/pages/Other.tsx"},
	}
	hints := Hints(output, vc)
	if len(hints) != 3 {
		t.Fatalf("hints = %q", hints)
	}
	if !strings.Contains(hints[0], "Card moved from src/components/Card to src/components/molecules/Card") {
		t.Errorf("hint[0] = %q", hints[0])
	}
	if !strings.Contains(hints[1], "matches no moved unit") {
		t.Errorf("hint[1] = %q", hints[1])
	}
	if !strings.Contains(hints[2], "src/pages/Lazy.tsx") {
		t.Errorf("hint[2] = %q", hints[2])
	}
}
