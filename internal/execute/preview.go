package execute

import (
	"sort"

	"strata/internal/diff"
)

// Preview renders every change of the changeset as a unified diff.
func (cs *Changeset) Preview() (string, error) {
	st := cs.full
	var changes []diff.Change

	for key, after := range st.files {
		c := diff.Change{NewPath: st.final(key), After: after}
		if !st.created[key] {
			c.OldPath = key
			c.Before = cs.original(key)
		}
		changes = append(changes, c)
	}
	for from, to := range st.moved {
		if _, edited := st.files[from]; edited {
			continue
		}
		content := cs.original(from)
		changes = append(changes, diff.Change{OldPath: from, NewPath: to, Before: content, After: content})
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].NewPath < changes[j].NewPath })
	return diff.Render(changes)
}

func (cs *Changeset) original(p string) []byte {
	if cs.src == nil {
		return nil
	}
	content, _ := cs.src.Content(p)
	return content
}
