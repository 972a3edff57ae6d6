package verify

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ErrToolMissing is returned when a verification tool cannot be located.
var ErrToolMissing = stderrors.New("tool not installed")

// Invocation is what one tool run printed and how it exited.
type Invocation struct {
	// Output is stdout followed by stderr, trimmed.
	Output   string
	ExitCode int
}

// Toolchain locates and runs the project's verification tools: tsc, eslint,
// jest, and the npm/npx wrappers that usually front them.
type Toolchain interface {
	// Locate returns the executable a tool name resolves to.
	Locate(tool string) (string, error)

	// Invoke runs a tool to completion. A non-zero exit is reported through
	// Invocation.ExitCode; err is set only when the tool could not run.
	Invoke(ctx context.Context, tool string, args ...string) (Invocation, error)
}

// ProjectToolchain runs tools from the project's node_modules/.bin before
// falling back to PATH, so the locally pinned tsc and eslint are used.
type ProjectToolchain struct {
	Dir     string
	Timeout time.Duration
}

// NewProjectToolchain creates a toolchain rooted at the project dir.
func NewProjectToolchain(dir string, timeout time.Duration) *ProjectToolchain {
	if timeout == 0 {
		timeout = 10 * time.Minute
	}
	return &ProjectToolchain{Dir: dir, Timeout: timeout}
}

func (p *ProjectToolchain) Locate(tool string) (string, error) {
	if !strings.ContainsRune(tool, filepath.Separator) {
		local := filepath.Join(p.Dir, "node_modules", ".bin", tool)
		if info, err := os.Stat(local); err == nil && !info.IsDir() && info.Mode()&0o111 != 0 {
			return local, nil
		}
	}
	bin, err := exec.LookPath(tool)
	if err != nil {
		return "", ErrToolMissing
	}
	return bin, nil
}

func (p *ProjectToolchain) Invoke(ctx context.Context, tool string, args ...string) (Invocation, error) {
	bin, err := p.Locate(tool)
	if err != nil {
		return Invocation{ExitCode: -1}, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = p.Dir
	var out bytes.Buffer
	var errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	runErr := cmd.Run()
	inv := Invocation{Output: strings.TrimSpace(out.String() + "\n" + errOut.String())}

	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
		return inv, nil
	case ctx.Err() != nil:
		inv.ExitCode = -1
		return inv, ctx.Err()
	case stderrors.As(runErr, &exitErr):
		inv.ExitCode = exitErr.ExitCode()
		return inv, nil
	default:
		inv.ExitCode = -1
		return inv, runErr
	}
}

// FakeToolchain is a scripted Toolchain for tests. Only installed tools
// resolve; each scripted reply is keyed by the tool name alone or by the
// tool name plus its arguments.
type FakeToolchain struct {
	mu        sync.Mutex
	installed map[string]bool
	replies   map[string]fakeReply
	calls     []string
}

type fakeReply struct {
	inv Invocation
	err error
}

// NewFakeToolchain creates an empty fake toolchain.
func NewFakeToolchain() *FakeToolchain {
	return &FakeToolchain{
		installed: make(map[string]bool),
		replies:   make(map[string]fakeReply),
	}
}

// Install makes tools resolvable, each exiting cleanly with no output
// until Reply says otherwise.
func (f *FakeToolchain) Install(tools ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range tools {
		f.installed[t] = true
	}
}

// Reply scripts what command prints and its exit code.
func (f *FakeToolchain) Reply(command, output string, exitCode int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[command] = fakeReply{inv: Invocation{Output: output, ExitCode: exitCode}}
}

// Crash scripts command to fail before producing an exit code.
func (f *FakeToolchain) Crash(command string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[command] = fakeReply{inv: Invocation{ExitCode: -1}, err: err}
}

// Calls returns every invoked command line in order.
func (f *FakeToolchain) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *FakeToolchain) Locate(tool string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.installed[tool] {
		return "", ErrToolMissing
	}
	return filepath.Join("node_modules", ".bin", tool), nil
}

func (f *FakeToolchain) Invoke(_ context.Context, tool string, args ...string) (Invocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	line := strings.TrimSpace(tool + " " + strings.Join(args, " "))
	f.calls = append(f.calls, line)
	if !f.installed[tool] {
		return Invocation{ExitCode: -1}, ErrToolMissing
	}
	if r, ok := f.replies[line]; ok {
		return r.inv, r.err
	}
	if r, ok := f.replies[tool]; ok {
		return r.inv, r.err
	}
	return Invocation{}, nil
}
