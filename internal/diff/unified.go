package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	godiff "github.com/sourcegraph/go-diff/diff"
)

// DefaultContext is the number of unchanged lines kept around each change.
const DefaultContext = 3

// Change is one file's before and after state. An empty OldPath means the
// file is created; a differing NewPath means it is moved.
type Change struct {
	OldPath string
	NewPath string
	Before  []byte
	After   []byte
}

type op struct {
	kind byte // ' ', '-', '+'
	text string
}

// lineOps computes a line-level edit script between two texts.
func lineOps(before, after string) []op {
	dmp := diffmatchpatch.New()
	chars1, chars2, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(chars1, chars2, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var ops []op
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		kind := byte(' ')
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			kind = '-'
		case diffmatchpatch.DiffInsert:
			kind = '+'
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			ops = append(ops, op{kind: kind, text: line})
		}
	}
	return ops
}

// FileDiff builds the unified diff of one change with the given context.
func FileDiff(c Change, context int) *godiff.FileDiff {
	fd := &godiff.FileDiff{
		OrigName: "a/" + c.OldPath,
		NewName:  "b/" + c.NewPath,
	}
	switch {
	case c.OldPath == "":
		fd.OrigName = "/dev/null"
		fd.Extended = []string{"diff --git a/" + c.NewPath + " b/" + c.NewPath, "new file mode 100644"}
	case c.NewPath == "":
		fd.NewName = "/dev/null"
		fd.Extended = []string{"diff --git a/" + c.OldPath + " b/" + c.OldPath, "deleted file mode 100644"}
	case c.OldPath != c.NewPath:
		fd.Extended = []string{
			"diff --git a/" + c.OldPath + " b/" + c.NewPath,
			"rename from " + c.OldPath,
			"rename to " + c.NewPath,
		}
	default:
		fd.Extended = []string{"diff --git a/" + c.OldPath + " b/" + c.NewPath}
	}

	fd.Hunks = hunks(lineOps(string(c.Before), string(c.After)), context)
	return fd
}

// hunks groups an edit script into hunks, merging changes whose context overlaps.
func hunks(ops []op, context int) []*godiff.Hunk {
	var out []*godiff.Hunk

	// line numbers of ops[i] in the old and new file, 1-based
	oldNo := make([]int, len(ops)+1)
	newNo := make([]int, len(ops)+1)
	o, n := 1, 1
	for i, x := range ops {
		oldNo[i], newNo[i] = o, n
		if x.kind != '+' {
			o++
		}
		if x.kind != '-' {
			n++
		}
	}
	oldNo[len(ops)], newNo[len(ops)] = o, n

	i := 0
	for i < len(ops) {
		if ops[i].kind == ' ' {
			i++
			continue
		}
		start := i - context
		if start < 0 {
			start = 0
		}
		end := i
		for end < len(ops) {
			if ops[end].kind != ' ' {
				end++
				continue
			}
			// run of context; stop when it is longer than two contexts
			run := end
			for run < len(ops) && ops[run].kind == ' ' {
				run++
			}
			if run == len(ops) || run-end > 2*context {
				end += min(context, run-end)
				break
			}
			end = run
		}

		h := &godiff.Hunk{}
		var body strings.Builder
		for _, x := range ops[start:end] {
			body.WriteByte(x.kind)
			body.WriteString(x.text)
			body.WriteByte('\n')
			if x.kind != '+' {
				h.OrigLines++
			}
			if x.kind != '-' {
				h.NewLines++
			}
		}
		h.OrigStartLine = int32(oldNo[start])
		h.NewStartLine = int32(newNo[start])
		if h.OrigLines == 0 {
			h.OrigStartLine--
		}
		if h.NewLines == 0 {
			h.NewStartLine--
		}
		h.Body = []byte(body.String())
		out = append(out, h)
		i = end
	}
	return out
}

// Render prints every change as one multi-file unified diff.
func Render(changes []Change) (string, error) {
	fds := make([]*godiff.FileDiff, 0, len(changes))
	for _, c := range changes {
		fds = append(fds, FileDiff(c, DefaultContext))
	}
	out, err := godiff.PrintMultiFileDiff(fds)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
