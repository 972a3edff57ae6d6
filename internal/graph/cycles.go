package graph

import (
	"fmt"
	"strings"
)

// Cycle is one simple cycle, rotated so the smallest name comes first.
// The closing edge back to Units[0] is implied.
type Cycle struct {
	Units []string `json:"units"`
}

// Key identifies the cycle independent of where traversal entered it.
func (c Cycle) Key() string {
	return strings.Join(c.Units, "->")
}

// String renders the cycle with the closing edge, e.g. "A -> B -> A".
func (c Cycle) String() string {
	if len(c.Units) == 0 {
		return ""
	}
	return strings.Join(append(append([]string(nil), c.Units...), c.Units[0]), " -> ")
}

// Suggestion returns the resolution advice for the cycle's shape.
func (c Cycle) Suggestion() string {
	if len(c.Units) == 2 {
		return fmt.Sprintf("Extract the types shared by %s and %s into a separate module both can import", c.Units[0], c.Units[1])
	}
	return fmt.Sprintf("Extract the shared logic of %s into a separate module, or invert one dependency by passing the unit in as a prop or parameter instead of importing it",
		strings.Join(c.Units, ", "))
}

// DetectCycles finds simple cycles with a depth-first traversal over nodes in
// sorted order. Each back edge onto the recursion stack yields the stack slice
// from the revisited node to the current one; fully explored nodes are not
// entered again. Results are canonicalized and deduplicated.
func (g *Graph) DetectCycles() []Cycle {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	seen := make(map[string]bool)
	var cycles []Cycle

	var path []string
	var visit func(node string)
	visit = func(node string) {
		visited[node] = true
		onStack[node] = true
		path = append(path, node)

		for _, next := range g.Successors(node) {
			if onStack[next] {
				start := indexOf(path, next)
				c := canonical(path[start:])
				if !seen[c.Key()] {
					seen[c.Key()] = true
					cycles = append(cycles, c)
				}
				continue
			}
			if !visited[next] {
				visit(next)
			}
		}

		path = path[:len(path)-1]
		onStack[node] = false
	}

	for _, node := range g.Nodes() {
		if !visited[node] {
			visit(node)
		}
	}
	return cycles
}

func canonical(units []string) Cycle {
	first := 0
	for i, u := range units {
		if u < units[first] {
			first = i
		}
	}
	out := make([]string, 0, len(units))
	out = append(out, units[first:]...)
	out = append(out, units[:first]...)
	return Cycle{Units: out}
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
