package execute

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"strata/internal/diff"
	"strata/internal/errors"
	"strata/internal/tier"
	"strata/internal/verify"
)

// Failure records a unit that was not migrated.
type Failure struct {
	Unit   string           `json:"unit"`
	Code   errors.ErrorCode `json:"code"`
	Reason string           `json:"reason"`
}

// FollowUp is an occurrence that could not be rewritten mechanically.
type FollowUp struct {
	Code  errors.ErrorCode `json:"code"`
	File  string           `json:"file"`
	Line  int              `json:"line"`
	Expr  string           `json:"expr"`
	Units []string         `json:"units"`
}

// MoveRecord is one applied relocation; reversing every record in reverse
// order restores the original layout.
type MoveRecord struct {
	Unit  string     `json:"unit"`
	Level tier.Level `json:"level"`
	From  string     `json:"from"`
	To    string     `json:"to"`
}

// Summary is the completion report of one run.
type Summary struct {
	RunID       string    `json:"runId"`
	PlanID      string    `json:"planId"`
	PlanVersion int       `json:"planVersion"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt"`
	DryRun      bool      `json:"dryRun,omitempty"`

	Completed    []string  `json:"completed"`
	Failed       []Failure `json:"failed,omitempty"`
	NotCompleted []string  `json:"notCompleted,omitempty"`
	Skipped      []string  `json:"skipped,omitempty"`

	Moves        []MoveRecord `json:"moves"`
	FollowUps    []FollowUp   `json:"followUps,omitempty"`
	FilesWritten []string     `json:"filesWritten,omitempty"`
	Aggregations []string     `json:"aggregations,omitempty"`
	Rewrites     int          `json:"rewrites"`

	Preview      string          `json:"preview,omitempty"`
	PreviewStats []diff.FileStat `json:"previewStats,omitempty"`
	Verification *verify.Report  `json:"verification,omitempty"`
}

func newSummary(cs *Changeset) *Summary {
	return &Summary{
		RunID:       uuid.New().String(),
		PlanID:      cs.Plan.ID,
		PlanVersion: cs.Plan.Version,
		StartedAt:   time.Now().UTC(),
		Failed:      append([]Failure(nil), cs.Failures...),
		Skipped:     append([]string(nil), cs.Skipped...),
		FollowUps:   cs.FollowUps,
	}
}

// halt records the failing unit and every unit after it as not completed.
func (s *Summary) halt(rest []*move, f Failure) {
	s.Failed = append(s.Failed, f)
	for _, m := range rest {
		s.NotCompleted = append(s.NotCompleted, m.unit.Name)
	}
}

// finish fills the fields derived from the last applied state.
func (s *Summary) finish(st *state) {
	s.FinishedAt = time.Now().UTC()
	s.Rewrites = st.rewrites
	for p := range st.barrels {
		s.Aggregations = append(s.Aggregations, p)
	}
	sort.Strings(s.Aggregations)

	done := make(map[string]bool, len(s.Completed))
	for _, n := range s.Completed {
		done[n] = true
	}
	var kept []FollowUp
	for _, f := range s.FollowUps {
		for _, u := range f.Units {
			if done[u] {
				kept = append(kept, f)
				break
			}
		}
	}
	s.FollowUps = kept
}

// Succeeded reports whether every planned unit was migrated.
func (s *Summary) Succeeded() bool {
	return len(s.Failed) == 0 && len(s.NotCompleted) == 0
}

// MovedTargets maps each moved unit's old location to its new one.
func (s *Summary) MovedTargets() map[string]string {
	out := make(map[string]string, len(s.Moves))
	for _, m := range s.Moves {
		out[m.From] = m.To
	}
	return out
}

// DryRun computes the summary of phase one without writing anything.
func DryRun(cs *Changeset) (*Summary, error) {
	s := newSummary(cs)
	s.DryRun = true
	for _, m := range cs.moves {
		s.Completed = append(s.Completed, m.unit.Name)
		s.Moves = append(s.Moves, MoveRecord{Unit: m.unit.Name, Level: m.unit.Level, From: m.from, To: m.to})
	}
	s.finish(cs.full)

	preview, err := cs.Preview()
	if err != nil {
		return nil, err
	}
	s.Preview = preview
	// Stats are informational; an unparsable preview still gets printed.
	s.PreviewStats, _ = diff.ParseStats(preview)
	return s, nil
}
