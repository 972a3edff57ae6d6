// Package paths converts between filesystem paths, repo-relative canonical paths
// and module specifiers. Canonical paths always use forward slashes.
package paths

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

// CanonicalizePath converts an absolute path to a repo-relative canonical path.
// Symlinks are resolved when the file exists.
func CanonicalizePath(absolutePath string, repoRoot string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		resolved = absolutePath
	}

	rootResolved, err := filepath.EvalSymlinks(repoRoot)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		rootResolved = repoRoot
	}

	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// IsWithinRepo checks if a path is within the repository root
func IsWithinRepo(p string, repoRoot string) bool {
	canonical, err := CanonicalizePath(p, repoRoot)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// NormalizePath converts backslashes to forward slashes and cleans the result.
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}
	return path.Clean(strings.ReplaceAll(p, "\\", "/"))
}

// JoinRepoPath joins a repo root with a canonical path
func JoinRepoPath(repoRoot string, canonicalPath string) string {
	parts := strings.Split(strings.ReplaceAll(canonicalPath, "\\", "/"), "/")
	return filepath.Join(append([]string{repoRoot}, parts...)...)
}

// IsUnder reports whether canonical path p is dir itself or inside it.
func IsUnder(p, dir string) bool {
	p, dir = NormalizePath(p), NormalizePath(dir)
	if dir == "." || dir == "" {
		return true
	}
	return p == dir || strings.HasPrefix(p, dir+"/")
}

// Rebase moves canonical path p from under oldDir to under newDir.
// Paths outside oldDir are returned unchanged.
func Rebase(p, oldDir, newDir string) string {
	p, oldDir, newDir = NormalizePath(p), NormalizePath(oldDir), NormalizePath(newDir)
	if p == oldDir {
		return newDir
	}
	if !strings.HasPrefix(p, oldDir+"/") {
		return p
	}
	return path.Join(newDir, strings.TrimPrefix(p, oldDir+"/"))
}

// StripExt removes the final extension, e.g. "a/Button.tsx" -> "a/Button".
func StripExt(p string) string {
	return strings.TrimSuffix(p, path.Ext(p))
}

// RelativeSpecifier returns the relative module specifier that reaches target
// (a canonical file or directory path) from a file at fromFile.
// Extensions are dropped and the result always starts with "./" or "../".
func RelativeSpecifier(fromFile, target string) string {
	fromDir := path.Dir(NormalizePath(fromFile))
	target = NormalizePath(target)

	rel, err := filepath.Rel(filepath.FromSlash(fromDir), filepath.FromSlash(target))
	if err != nil {
		return "./" + target
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return "."
	}
	if !strings.HasPrefix(rel, "../") && rel != ".." {
		rel = "./" + rel
	}
	return rel
}
