package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SingleMode(t *testing.T) {
	s := New(ModeSingle)

	require.Len(t, s.Steps, 6, "single mode should have 6 steps")
	assert.Equal(t, 0, s.Percent, "fresh snapshot should be at 0 percent")
	assert.Equal(t, StepAnalysisFetch, s.CurrentKey, "current step should be the first template entry")
	assert.False(t, s.StartedAt.IsZero(), "started_at should be set")
	for _, st := range s.Steps {
		assert.Equal(t, StatusPending, st.Status, "step %s should start pending", st.Key)
	}
}

func TestNew_ListMode(t *testing.T) {
	s := New(ModeList)

	require.Len(t, s.Steps, 1, "list mode is a single step")
	assert.Equal(t, StepAnalysisListFetch, s.CurrentKey)
}

func TestActivate_PercentProgression(t *testing.T) {
	// Scenario: activating the first step earns 35% of its weight.
	s := New(ModeSingle)

	s = Activate(s, StepAnalysisFetch, "")
	assert.Equal(t, 7, s.Percent, "active analysis_fetch should contribute 20*0.35")

	s = Complete(s, StepAnalysisFetch, "")
	assert.Equal(t, 20, s.Percent, "done analysis_fetch should contribute its full weight")
}

func TestComplete_AllStepsReach100(t *testing.T) {
	s := New(ModeSingle)
	keys := []StepKey{
		StepAnalysisFetch, StepGraphFetch, StepFilesFetch,
		StepQuestionsCheck, StepQuestionsGenerate, StepFinalize,
	}

	expected := []int{20, 35, 50, 65, 95, 100}
	for i, key := range keys {
		s = Activate(s, key, "")
		s = Complete(s, key, "")
		assert.Equal(t, expected[i], s.Percent, "percent after completing %s", key)
	}
	assert.True(t, s.Done(), "all steps should be done")
}

func TestPercent_CappedAt99UntilAllDone(t *testing.T) {
	s := New(ModeSingle)
	for _, key := range []StepKey{StepAnalysisFetch, StepGraphFetch, StepFilesFetch, StepQuestionsCheck, StepQuestionsGenerate} {
		s = Complete(s, key, "")
	}
	// 95 earned, finalize active adds 5*0.35 which rounds to 97.
	s = Activate(s, StepFinalize, "")
	assert.Less(t, s.Percent, 100, "percent must stay below 100 while a step is not done")

	s = Complete(s, StepFinalize, "")
	assert.Equal(t, 100, s.Percent, "percent is 100 iff every step is done")
}

func TestActivate_DemotesPreviousActive(t *testing.T) {
	s := New(ModeSingle)
	s = Activate(s, StepAnalysisFetch, "")
	s = Activate(s, StepGraphFetch, "")

	first, ok := s.Step(StepAnalysisFetch)
	require.True(t, ok)
	assert.Equal(t, StatusPending, first.Status, "abandoned step should return to pending")

	active := 0
	for _, st := range s.Steps {
		if st.Status == StatusActive {
			active++
		}
	}
	assert.Equal(t, 1, active, "at most one step may be active")
}

func TestActivate_DoneStepNeverRegresses(t *testing.T) {
	s := New(ModeSingle)
	s = Complete(s, StepAnalysisFetch, "")
	s = Activate(s, StepAnalysisFetch, "")

	st, ok := s.Step(StepAnalysisFetch)
	require.True(t, ok)
	assert.Equal(t, StatusDone, st.Status, "re-activating a done step must keep it done")
	assert.Equal(t, 20, s.Percent, "percent must not regress")
}

func TestActivate_ClearsAttempt(t *testing.T) {
	s := New(ModeSingle)
	s = SetAttempt(s, 3, 12)
	require.NotNil(t, s.Attempt)

	s = Activate(s, StepGraphFetch, "")
	assert.Nil(t, s.Attempt, "activating a step must clear attempt metadata")
}

func TestFail_KeepsEarnedPercentAndClearsAttempt(t *testing.T) {
	s := New(ModeSingle)
	for _, key := range []StepKey{StepAnalysisFetch, StepGraphFetch, StepFilesFetch, StepQuestionsCheck} {
		s = Complete(s, key, "")
	}
	s = Activate(s, StepQuestionsGenerate, "")
	s = SetAttempt(s, 4, 12)

	s = Fail(s, StepQuestionsGenerate, "generation failed: server error")

	assert.Equal(t, 65, s.Percent, "earned percent is retained after failure")
	assert.Equal(t, "generation failed: server error", s.Err)
	assert.Nil(t, s.Attempt, "failure must clear attempt metadata")

	st, ok := s.Step(StepQuestionsGenerate)
	require.True(t, ok)
	assert.Equal(t, StatusFailed, st.Status)
}

func TestPercent_NonDecreasingAcrossRun(t *testing.T) {
	s := New(ModeSingle)
	last := s.Percent

	step := func(next Snapshot) {
		t.Helper()
		assert.GreaterOrEqual(t, next.Percent, last, "percent must be non-decreasing")
		last = next.Percent
		s = next
	}

	step(Activate(s, StepAnalysisFetch, ""))
	step(Complete(s, StepAnalysisFetch, ""))
	step(Activate(s, StepGraphFetch, ""))
	step(Complete(s, StepGraphFetch, ""))
	step(Activate(s, StepFilesFetch, ""))
	step(Complete(s, StepFilesFetch, ""))
	step(Activate(s, StepQuestionsCheck, ""))
	step(Complete(s, StepQuestionsCheck, ""))
	step(Activate(s, StepQuestionsGenerate, ""))
	step(Complete(s, StepQuestionsGenerate, ""))
	step(Activate(s, StepFinalize, ""))
	step(Complete(s, StepFinalize, ""))

	assert.Equal(t, 100, s.Percent)
}

func TestSetDetail_OnlyTouchesDetail(t *testing.T) {
	s := New(ModeSingle)
	s = Activate(s, StepAnalysisFetch, "requesting")
	s = SetDetail(s, StepAnalysisFetch, "analysis still computing upstream")

	st, ok := s.Step(StepAnalysisFetch)
	require.True(t, ok)
	assert.Equal(t, StatusActive, st.Status)
	assert.Equal(t, "analysis still computing upstream", st.Detail)
	assert.Equal(t, "analysis still computing upstream", s.CurrentDetail)
}

func TestOperations_DoNotMutateInput(t *testing.T) {
	s := New(ModeSingle)
	before := s.Percent

	_ = Activate(s, StepAnalysisFetch, "")
	_ = Complete(s, StepAnalysisFetch, "")
	_ = Fail(s, StepAnalysisFetch, "boom")
	_ = SetAttempt(s, 1, 12)

	assert.Equal(t, before, s.Percent, "input snapshot must be unchanged")
	st, _ := s.Step(StepAnalysisFetch)
	assert.Equal(t, StatusPending, st.Status, "input snapshot steps must be unchanged")
	assert.Nil(t, s.Attempt)
}

func TestComplete_WithoutActivation(t *testing.T) {
	// Short-circuit path: questions_generate can be completed directly when
	// existing questions were found.
	s := New(ModeSingle)
	s = Complete(s, StepQuestionsGenerate, "existing questions reused")

	st, ok := s.Step(StepQuestionsGenerate)
	require.True(t, ok)
	assert.Equal(t, StatusDone, st.Status)
	assert.Equal(t, 30, s.Percent)
}

func TestTemplateWeightsSumTo100(t *testing.T) {
	for _, tmpl := range []modeTemplate{singleTemplate, listTemplate} {
		sum := 0
		for _, st := range tmpl.steps {
			sum += st.Weight
		}
		assert.Equal(t, 100, sum, "weights for %q must sum to 100", tmpl.title)
	}
}
