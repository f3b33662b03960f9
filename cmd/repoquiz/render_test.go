package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/repoquiz/internal/api"
	"github.com/fyrsmithlabs/repoquiz/internal/orchestrator"
	"github.com/fyrsmithlabs/repoquiz/internal/progress"
)

func TestRenderer_PrintsEachSettledStepOnce(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf)

	snap := progress.New(progress.ModeSingle)
	snap = progress.Activate(snap, progress.StepAnalysisFetch, "")
	r.observe(snap)
	snap = progress.Complete(snap, progress.StepAnalysisFetch, "")
	r.observe(snap)
	// A later snapshot still carries the done step; it must not repeat.
	snap = progress.Activate(snap, progress.StepGraphFetch, "")
	r.observe(snap)

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "Analyzing repository"), "title printed once")
	assert.Equal(t, 1, strings.Count(out, "Fetching analysis"), "settled step printed once")
}

func TestRenderer_EchoesDetailChanges(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf)

	snap := progress.New(progress.ModeSingle)
	snap = progress.Activate(snap, progress.StepQuestionsGenerate, "")
	snap = progress.SetDetail(snap, progress.StepQuestionsGenerate, "waiting for running generation (attempt 1/12)")
	r.observe(snap)
	r.observe(snap) // unchanged detail is not repeated
	snap = progress.SetDetail(snap, progress.StepQuestionsGenerate, "waiting for running generation (attempt 2/12)")
	r.observe(snap)

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "attempt 1/12"))
	assert.Equal(t, 1, strings.Count(out, "attempt 2/12"))
}

func TestRenderer_SummaryReportsReuse(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf)

	r.summary(&orchestrator.Result{
		Reused: true,
		Questions: []api.Question{
			{Text: "What does the scheduler do?", FilePath: "internal/sched/sched.go"},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "Reused 1 existing questions")
	assert.Contains(t, out, "What does the scheduler do?")
	assert.Contains(t, out, "internal/sched/sched.go")
}

func TestPrintRecent(t *testing.T) {
	var buf bytes.Buffer
	printRecent(&buf, []api.RecentAnalysis{
		{ID: "abc123", RepoURL: "https://example.com/owner/repo", RepoName: "owner/repo", CreatedAt: "2026-08-30T10:00:00Z"},
	}, true)

	out := buf.String()
	assert.Contains(t, out, "cached")
	assert.Contains(t, out, "abc123")
	assert.Contains(t, out, "owner/repo")

	buf.Reset()
	printRecent(&buf, nil, false)
	assert.Contains(t, buf.String(), "none")
}
