package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCanonicalizePath(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "src", "components", "Button.tsx")
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := CanonicalizePath(file, root)
	if err != nil {
		t.Fatalf("CanonicalizePath: %v", err)
	}
	if got != "src/components/Button.tsx" {
		t.Errorf("CanonicalizePath = %q", got)
	}

	missing, err := CanonicalizePath(filepath.Join(root, "src", "new.tsx"), root)
	if err != nil {
		t.Fatalf("CanonicalizePath(missing): %v", err)
	}
	if missing != "src/new.tsx" {
		t.Errorf("CanonicalizePath(missing) = %q", missing)
	}
}

func TestIsWithinRepo(t *testing.T) {
	root := t.TempDir()
	if !IsWithinRepo(filepath.Join(root, "a", "b.ts"), root) {
		t.Error("child path should be within repo")
	}
	if IsWithinRepo(filepath.Dir(root), root) {
		t.Error("parent path should not be within repo")
	}
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"":                 "",
		`src\components\A`: "src/components/A",
		"src/./a/../b":     "src/b",
		"src/components/":  "src/components",
	}
	for in, want := range tests {
		if got := NormalizePath(in); got != want {
			t.Errorf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestJoinRepoPath(t *testing.T) {
	got := JoinRepoPath("/repo", "src/components/Button.tsx")
	want := filepath.Join("/repo", "src", "components", "Button.tsx")
	if got != want {
		t.Errorf("JoinRepoPath = %q, want %q", got, want)
	}
}

func TestIsUnder(t *testing.T) {
	tests := []struct {
		p, dir string
		want   bool
	}{
		{"src/components/atoms/Button.tsx", "src/components/atoms", true},
		{"src/components/atoms", "src/components/atoms", true},
		{"src/components/atomsExtra/X.tsx", "src/components/atoms", false},
		{"lib/a.ts", ".", true},
	}
	for _, tt := range tests {
		if got := IsUnder(tt.p, tt.dir); got != tt.want {
			t.Errorf("IsUnder(%q, %q) = %v, want %v", tt.p, tt.dir, got, tt.want)
		}
	}
}

func TestRebase(t *testing.T) {
	tests := []struct {
		p, oldDir, newDir, want string
	}{
		{"src/c/Card/Card.tsx", "src/c/Card", "src/c/molecules/Card", "src/c/molecules/Card/Card.tsx"},
		{"src/c/Card", "src/c/Card", "src/c/molecules/Card", "src/c/molecules/Card"},
		{"src/c/CardList/x.tsx", "src/c/Card", "src/c/molecules/Card", "src/c/CardList/x.tsx"},
	}
	for _, tt := range tests {
		if got := Rebase(tt.p, tt.oldDir, tt.newDir); got != tt.want {
			t.Errorf("Rebase(%q) = %q, want %q", tt.p, got, tt.want)
		}
	}
}

func TestStripExt(t *testing.T) {
	if got := StripExt("a/Button.test.tsx"); got != "a/Button.test" {
		t.Errorf("StripExt = %q", got)
	}
	if got := StripExt("a/Button"); got != "a/Button" {
		t.Errorf("StripExt(no ext) = %q", got)
	}
}

func TestRelativeSpecifier(t *testing.T) {
	tests := []struct {
		from, target, want string
	}{
		{"src/components/Form.tsx", "src/components/atoms", "./atoms"},
		{"src/components/organisms/Form.tsx", "src/components/atoms", "../atoms"},
		{"src/pages/Home.tsx", "src/components/atoms/Button", "../components/atoms/Button"},
		{"src/components/atoms/index.ts", "src/components/atoms/Button", "./Button"},
		{"src/components/a.ts", "src/components", "."},
	}
	for _, tt := range tests {
		if got := RelativeSpecifier(tt.from, tt.target); got != tt.want {
			t.Errorf("RelativeSpecifier(%q, %q) = %q, want %q", tt.from, tt.target, got, tt.want)
		}
	}
}
