package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/repoquiz/internal/api"
	"github.com/fyrsmithlabs/repoquiz/internal/progress"
)

// PollExhaustedError is returned when conflict-recovery polling ran out of
// attempts without the concurrent generation job finishing.
type PollExhaustedError struct {
	Attempts int
}

func (e *PollExhaustedError) Error() string {
	return fmt.Sprintf("question generation did not finish after %d checks", e.Attempts)
}

// pollForQuestions recovers from a generation conflict by polling the
// question-existence endpoint at a flat cadence until the concurrent job's
// output appears or the attempt limit is reached. The context is checked
// before every delay and every request; once it is canceled no further
// polls are scheduled.
func (s *Service) pollForQuestions(ctx context.Context, run *Run, snap progress.Snapshot) (*api.QuestionSet, progress.Snapshot, error) {
	s.logger.Info("generation already running elsewhere, polling for its result",
		zap.String("analysis_id", run.analysisID),
		zap.Int("max_attempts", maxPollAttempts),
		zap.Duration("delay", s.delay))

	for attempt := 1; attempt <= maxPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, snap, ctx.Err()
		case <-time.After(s.delay):
		}

		snap = progress.SetAttempt(snap, attempt, maxPollAttempts)
		snap = progress.SetDetail(snap, progress.StepQuestionsGenerate,
			fmt.Sprintf("waiting for running generation (attempt %d/%d)", attempt, maxPollAttempts))
		run.emit(snap)
		s.metrics.RecordPollAttempt(attempt)

		set, err := s.backend.GetQuestions(ctx, run.analysisID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, snap, ctx.Err()
			}
			// Transient lookup failures just consume an attempt.
			s.logger.Warn("poll check failed",
				zap.String("analysis_id", run.analysisID),
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}
		if len(set.Questions) > 0 {
			snap = progress.Complete(snap, progress.StepQuestionsGenerate,
				fmt.Sprintf("%d questions", len(set.Questions)))
			run.emit(snap)
			return set, snap, nil
		}
	}

	return nil, snap, &PollExhaustedError{Attempts: maxPollAttempts}
}
