package progress

import "fmt"

// stepTemplate is a static step definition. Weights are relative
// contributions to the overall percent and sum to 100 within a mode.
type stepTemplate struct {
	Key    StepKey
	Label  string
	Weight int
}

// modeTemplate is the fixed step layout for one mode.
type modeTemplate struct {
	title string
	steps []stepTemplate
}

var singleTemplate = modeTemplate{
	title: "Analyzing repository",
	steps: []stepTemplate{
		{Key: StepAnalysisFetch, Label: "Fetching analysis", Weight: 20},
		{Key: StepGraphFetch, Label: "Fetching dependency graph", Weight: 15},
		{Key: StepFilesFetch, Label: "Fetching file tree", Weight: 15},
		{Key: StepQuestionsCheck, Label: "Checking existing questions", Weight: 15},
		{Key: StepQuestionsGenerate, Label: "Generating questions", Weight: 30},
		{Key: StepFinalize, Label: "Finalizing", Weight: 5},
	},
}

var listTemplate = modeTemplate{
	title: "Loading analyses",
	steps: []stepTemplate{
		{Key: StepAnalysisListFetch, Label: "Fetching analysis list", Weight: 100},
	},
}

func init() {
	for _, tmpl := range []modeTemplate{singleTemplate, listTemplate} {
		sum := 0
		for _, st := range tmpl.steps {
			if st.Weight <= 0 {
				panic(fmt.Sprintf("progress: step %s has non-positive weight %d", st.Key, st.Weight))
			}
			sum += st.Weight
		}
		if sum != 100 {
			panic(fmt.Sprintf("progress: %q weights sum to %d, want 100", tmpl.title, sum))
		}
	}
}

func templateFor(mode Mode) modeTemplate {
	if mode == ModeList {
		return listTemplate
	}
	return singleTemplate
}

// weight returns the template weight for key, or zero for a key that does
// not belong to this mode.
func (t modeTemplate) weight(key StepKey) int {
	for _, st := range t.steps {
		if st.Key == key {
			return st.Weight
		}
	}
	return 0
}
