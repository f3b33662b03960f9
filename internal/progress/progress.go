// Package progress provides the immutable progress model for analysis runs.
// Snapshots are plain values transformed by pure functions; the orchestrator
// owns the only mutating flow and consumers render whatever snapshot they
// last received.
package progress

import (
	"math"
	"time"
)

// Mode selects which step template a run uses.
type Mode string

const (
	// ModeSingle is the six-step single-analysis pipeline.
	ModeSingle Mode = "single-analysis"

	// ModeList is the one-step analysis-list pipeline.
	ModeList Mode = "list"
)

// StepKey identifies one step of a pipeline. Keys form a closed set per
// mode; operations take the typed key so an unknown step cannot be
// addressed at runtime.
type StepKey string

const (
	StepAnalysisFetch     StepKey = "analysis_fetch"
	StepGraphFetch        StepKey = "graph_fetch"
	StepFilesFetch        StepKey = "files_fetch"
	StepQuestionsCheck    StepKey = "questions_check"
	StepQuestionsGenerate StepKey = "questions_generate"
	StepFinalize          StepKey = "finalize"

	StepAnalysisListFetch StepKey = "analysis_list_fetch"
)

// StepStatus is the lifecycle state of a single step.
type StepStatus string

const (
	StatusPending StepStatus = "pending"
	StatusActive  StepStatus = "active"
	StatusDone    StepStatus = "done"
	StatusFailed  StepStatus = "failed"
)

// activeWeightFactor is the fraction of an active step's weight counted
// toward the overall percent. Empirical constant; keep as-is so the bar
// does not appear nearly finished while a long step is still running.
const activeWeightFactor = 0.35

// StepState is the observable state of one step in a snapshot.
type StepState struct {
	Key    StepKey    `json:"key"`
	Label  string     `json:"label"`
	Status StepStatus `json:"status"`
	Detail string     `json:"detail,omitempty"`
}

// Attempt carries retry metadata during conflict-recovery polling,
// rendered by the UI as "attempt N/M".
type Attempt struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Snapshot is the full progress state of one run at a point in time.
// Snapshots are values: every operation returns a new Snapshot and never
// mutates its input.
type Snapshot struct {
	Mode          Mode        `json:"mode"`
	Title         string      `json:"title"`
	Percent       int         `json:"percent"`
	Steps         []StepState `json:"steps"`
	CurrentKey    StepKey     `json:"current_step_key"`
	CurrentLabel  string      `json:"current_step_label"`
	CurrentDetail string      `json:"current_detail,omitempty"`
	StartedAt     time.Time   `json:"started_at"`
	Attempt       *Attempt    `json:"attempt,omitempty"`
	Err           string      `json:"error,omitempty"`
}

// New creates a fresh snapshot for mode: all steps pending, percent zero,
// the current step pointing at the first template entry.
func New(mode Mode) Snapshot {
	tmpl := templateFor(mode)
	steps := make([]StepState, len(tmpl.steps))
	for i, st := range tmpl.steps {
		steps[i] = StepState{Key: st.Key, Label: st.Label, Status: StatusPending}
	}
	return Snapshot{
		Mode:         mode,
		Title:        tmpl.title,
		Steps:        steps,
		CurrentKey:   tmpl.steps[0].Key,
		CurrentLabel: tmpl.steps[0].Label,
		StartedAt:    time.Now(),
	}
}

// Activate marks the step active and makes it the current step. Any other
// active step is demoted back to pending (an abandoned stage). A step that
// is already done keeps its done status. Attempt metadata is cleared.
func Activate(s Snapshot, key StepKey, detail string) Snapshot {
	out := clone(s)
	for i := range out.Steps {
		st := &out.Steps[i]
		switch {
		case st.Key == key:
			if st.Status != StatusDone {
				st.Status = StatusActive
			}
			st.Detail = detail
			out.CurrentKey = st.Key
			out.CurrentLabel = st.Label
			out.CurrentDetail = detail
		case st.Status == StatusActive:
			st.Status = StatusPending
		}
	}
	out.Attempt = nil
	out.Percent = computePercent(out)
	return out
}

// Complete marks the step done. Completing a step that was never active is
// allowed (short-circuited stages) and the operation is idempotent.
func Complete(s Snapshot, key StepKey, detail string) Snapshot {
	out := clone(s)
	for i := range out.Steps {
		st := &out.Steps[i]
		if st.Key != key {
			continue
		}
		st.Status = StatusDone
		if detail != "" {
			st.Detail = detail
		}
		out.CurrentKey = st.Key
		out.CurrentLabel = st.Label
		out.CurrentDetail = st.Detail
	}
	out.Percent = computePercent(out)
	return out
}

// Fail marks the step failed and records the run error. Percent earned by
// previously completed steps is retained; only the active-step bonus is
// dropped. Attempt metadata is cleared so a stale "retry N/M" indicator
// never survives a terminal failure.
func Fail(s Snapshot, key StepKey, message string) Snapshot {
	out := clone(s)
	for i := range out.Steps {
		st := &out.Steps[i]
		if st.Key != key {
			continue
		}
		st.Status = StatusFailed
		st.Detail = message
		out.CurrentKey = st.Key
		out.CurrentLabel = st.Label
		out.CurrentDetail = message
	}
	out.Err = message
	out.Attempt = nil
	out.Percent = computePercent(out)
	return out
}

// SetDetail updates the detail text of a step without touching its status.
func SetDetail(s Snapshot, key StepKey, detail string) Snapshot {
	out := clone(s)
	for i := range out.Steps {
		st := &out.Steps[i]
		if st.Key != key {
			continue
		}
		st.Detail = detail
		if out.CurrentKey == key {
			out.CurrentDetail = detail
		}
	}
	return out
}

// SetAttempt attaches retry metadata for UI display.
func SetAttempt(s Snapshot, current, total int) Snapshot {
	out := clone(s)
	out.Attempt = &Attempt{Current: current, Total: total}
	return out
}

// Step returns the state of the step with the given key, if present.
func (s Snapshot) Step(key StepKey) (StepState, bool) {
	for _, st := range s.Steps {
		if st.Key == key {
			return st, true
		}
	}
	return StepState{}, false
}

// Done reports whether every step has completed.
func (s Snapshot) Done() bool {
	for _, st := range s.Steps {
		if st.Status != StatusDone {
			return false
		}
	}
	return true
}

// clone copies the snapshot including its steps slice so callers can hold
// earlier snapshots safely.
func clone(s Snapshot) Snapshot {
	out := s
	out.Steps = make([]StepState, len(s.Steps))
	copy(out.Steps, s.Steps)
	if s.Attempt != nil {
		a := *s.Attempt
		out.Attempt = &a
	}
	return out
}

// computePercent derives the percent from step statuses:
// round(sum of done weights + activeWeightFactor * active weight), clamped
// to [0,99] unless every step is done, in which case it is exactly 100.
func computePercent(s Snapshot) int {
	tmpl := templateFor(s.Mode)
	total := 0.0
	allDone := true
	for _, st := range s.Steps {
		w := float64(tmpl.weight(st.Key))
		switch st.Status {
		case StatusDone:
			total += w
		case StatusActive:
			total += w * activeWeightFactor
			allDone = false
		default:
			allDone = false
		}
	}
	if allDone {
		return 100
	}
	pct := int(math.Round(total))
	if pct < 0 {
		pct = 0
	}
	if pct > 99 {
		pct = 99
	}
	return pct
}
