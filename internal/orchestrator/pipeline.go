package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/repoquiz/internal/api"
	"github.com/fyrsmithlabs/repoquiz/internal/progress"
)

// runSingle executes the six-step single-analysis pipeline. Snapshot
// transitions happen only on this goroutine; the graph and file-tree
// requests are the one pair issued concurrently.
func (s *Service) runSingle(ctx context.Context, run *Run, opts GenerateOptions, force bool) {
	snap := run.Latest()
	result := &Result{}

	fail := func(key progress.StepKey, err error) {
		snap = progress.Fail(snap, key, err.Error())
		run.emit(snap)
		s.metrics.RecordStageFailure(key, true)
		s.metrics.RecordRunFailed(progress.ModeSingle)
		run.finish(nil, err)
	}

	// Step 1: analysis_fetch.
	if err := ctx.Err(); err != nil {
		run.finish(nil, err)
		return
	}
	snap = progress.Activate(snap, progress.StepAnalysisFetch, "")
	run.emit(snap)

	analysis, err := s.backend.GetAnalysis(ctx, run.analysisID)
	if err != nil {
		if api.IsPending(err) {
			// Upstream is still computing. Informational: the step is not
			// failed and nothing is retried automatically.
			snap = progress.SetDetail(snap, progress.StepAnalysisFetch, err.Error())
			run.emit(snap)
			run.finish(nil, err)
			return
		}
		fail(progress.StepAnalysisFetch, err)
		return
	}
	result.Analysis = analysis
	snap = progress.Complete(snap, progress.StepAnalysisFetch, analysis.Repository.Name)
	run.emit(snap)

	// Steps 2 and 3: graph_fetch and files_fetch. The requests are
	// independent and issued concurrently; both are non-fatal. The snapshot
	// still walks the two steps in order once the results are in, so a
	// broken graph view never blocks question display.
	if err := ctx.Err(); err != nil {
		run.finish(nil, err)
		return
	}
	snap = progress.Activate(snap, progress.StepGraphFetch, "")
	run.emit(snap)

	var graph *api.Graph
	var files []api.FileTreeNode
	var graphErr, filesErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		graph, graphErr = s.backend.GetGraph(gctx, run.analysisID)
		return nil
	})
	g.Go(func() error {
		files, filesErr = s.backend.GetFileTree(gctx, run.analysisID, s.maxDepth, s.maxFiles)
		return nil
	})
	_ = g.Wait()

	if graphErr != nil {
		s.logger.Warn("graph fetch failed, continuing without graph",
			zap.String("analysis_id", run.analysisID), zap.Error(graphErr))
		s.metrics.RecordStageFailure(progress.StepGraphFetch, false)
	} else {
		result.Graph = graph
	}
	snap = progress.Complete(snap, progress.StepGraphFetch, "")
	run.emit(snap)

	snap = progress.Activate(snap, progress.StepFilesFetch, "")
	run.emit(snap)
	if filesErr != nil {
		s.logger.Warn("file tree fetch failed, continuing without files",
			zap.String("analysis_id", run.analysisID), zap.Error(filesErr))
		s.metrics.RecordStageFailure(progress.StepFilesFetch, false)
	} else {
		result.Files = files
	}
	snap = progress.Complete(snap, progress.StepFilesFetch, "")
	run.emit(snap)

	// Step 4: questions_check. Skipped result-wise when forcing: the force
	// variant always regenerates, so existing questions are not reused.
	if err := ctx.Err(); err != nil {
		run.finish(nil, err)
		return
	}
	snap = progress.Activate(snap, progress.StepQuestionsCheck, "")
	run.emit(snap)

	if !force {
		existing, err := s.backend.GetQuestions(ctx, run.analysisID)
		if err != nil {
			// A failed lookup only means we cannot reuse; generation still
			// decides the run's fate.
			s.logger.Warn("question lookup failed, generating fresh",
				zap.String("analysis_id", run.analysisID), zap.Error(err))
			s.metrics.RecordStageFailure(progress.StepQuestionsCheck, false)
		} else if len(existing.Questions) > 0 {
			// Short-circuit: reuse existing questions and skip generation.
			result.Questions = existing.Questions
			result.Reused = true
			snap = progress.Complete(snap, progress.StepQuestionsCheck,
				fmt.Sprintf("%d existing questions", len(existing.Questions)))
			run.emit(snap)
			snap = progress.Complete(snap, progress.StepQuestionsGenerate, "existing questions reused")
			run.emit(snap)
			s.finalize(run, snap, result)
			return
		}
	}
	snap = progress.Complete(snap, progress.StepQuestionsCheck, "")
	run.emit(snap)

	// Step 5: questions_generate.
	if err := ctx.Err(); err != nil {
		run.finish(nil, err)
		return
	}
	snap = progress.Activate(snap, progress.StepQuestionsGenerate, "")
	run.emit(snap)

	set, err := s.backend.GenerateQuestions(ctx, api.GenerateRequest{
		RepoURL:         opts.RepoURL,
		AnalysisResult:  analysis,
		QuestionType:    opts.QuestionType,
		Difficulty:      opts.Difficulty,
		ForceRegenerate: force,
	})
	switch {
	case err == nil:
		result.Questions = set.Questions
		snap = progress.Complete(snap, progress.StepQuestionsGenerate,
			fmt.Sprintf("%d questions", len(set.Questions)))
		run.emit(snap)
	case api.IsConflict(err):
		// An equivalent job is already running elsewhere; poll its output
		// instead of surfacing the conflict.
		s.metrics.RecordGenerationConflict()
		polled, pollSnap, pollErr := s.pollForQuestions(ctx, run, snap)
		snap = pollSnap
		if pollErr != nil {
			if errors.Is(pollErr, context.Canceled) || errors.Is(pollErr, context.DeadlineExceeded) {
				run.finish(nil, pollErr)
				return
			}
			fail(progress.StepQuestionsGenerate, pollErr)
			return
		}
		result.Questions = polled.Questions
	default:
		fail(progress.StepQuestionsGenerate, err)
		return
	}

	s.finalize(run, snap, result)
}

// finalize runs the last step, which always succeeds once reached.
// Activating it clears any attempt metadata left over from polling.
func (s *Service) finalize(run *Run, snap progress.Snapshot, result *Result) {
	snap = progress.Activate(snap, progress.StepFinalize, "")
	run.emit(snap)
	snap = progress.Complete(snap, progress.StepFinalize, "")
	run.emit(snap)
	s.metrics.RecordRunCompleted(progress.ModeSingle)
	run.finish(result, nil)
}

// runList executes the one-step list pipeline.
func (s *Service) runList(ctx context.Context, run *Run, limit int) {
	snap := run.Latest()

	snap = progress.Activate(snap, progress.StepAnalysisListFetch, "")
	run.emit(snap)

	recent, err := s.backend.GetRecent(ctx, limit)
	if err != nil {
		snap = progress.Fail(snap, progress.StepAnalysisListFetch, err.Error())
		run.emit(snap)
		s.metrics.RecordStageFailure(progress.StepAnalysisListFetch, true)
		s.metrics.RecordRunFailed(progress.ModeList)
		run.finish(nil, err)
		return
	}

	snap = progress.Complete(snap, progress.StepAnalysisListFetch,
		fmt.Sprintf("%d analyses", len(recent)))
	run.emit(snap)
	s.metrics.RecordRunCompleted(progress.ModeList)
	run.finish(&Result{Recent: recent}, nil)
}
