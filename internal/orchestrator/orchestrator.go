// Package orchestrator drives analysis runs against the remote service:
// it sequences the pipeline stages, transforms progress snapshots, recovers
// from generation conflicts by polling, and exposes each run's snapshot
// stream and terminal result to consumers.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/repoquiz/internal/api"
	"github.com/fyrsmithlabs/repoquiz/internal/progress"
)

// Poll cadence for conflict recovery: a flat cadence, matching the bounded
// duration of the backend's generation jobs. User-facing timing depends on
// both values.
const (
	maxPollAttempts = 12
	pollDelay       = 5 * time.Second
)

// Backend is the slice of the analysis-service client the orchestrator
// needs. *api.Client satisfies it.
type Backend interface {
	GetAnalysis(ctx context.Context, id string) (*api.AnalysisResult, error)
	GetGraph(ctx context.Context, id string) (*api.Graph, error)
	GetFileTree(ctx context.Context, id string, maxDepth, maxFiles int) ([]api.FileTreeNode, error)
	GetQuestions(ctx context.Context, id string) (*api.QuestionSet, error)
	GenerateQuestions(ctx context.Context, req api.GenerateRequest) (*api.QuestionSet, error)
	GetRecent(ctx context.Context, limit int) ([]api.RecentAnalysis, error)
}

// Options configures a Service.
type Options struct {
	// MaxDepth and MaxFiles bound the file-tree stage.
	MaxDepth int
	MaxFiles int

	// Logger is optional.
	Logger *zap.Logger
}

// GenerateOptions carries the caller's generation parameters for one run.
type GenerateOptions struct {
	RepoURL      string
	QuestionType string
	Difficulty   string
}

// Result is the terminal output of a successful single-analysis run.
type Result struct {
	Analysis  *api.AnalysisResult
	Graph     *api.Graph // nil when the graph stage failed (non-fatal)
	Files     []api.FileTreeNode
	Questions []api.Question

	// Reused is true when existing questions were found and generation was
	// skipped entirely.
	Reused bool

	// Recent is set only for list runs.
	Recent []api.RecentAnalysis
}

// Service creates and tracks runs. At most one run is in flight per
// analysis id; a second request for the same id attaches to the existing
// run instead of spawning a duplicate backend job.
type Service struct {
	backend  Backend
	logger   *zap.Logger
	metrics  *Metrics
	maxDepth int
	maxFiles int

	// delay is pollDelay in production; tests shorten it.
	delay time.Duration

	mu       sync.Mutex
	inFlight map[string]*Run
}

// NewService creates a Service around backend.
func NewService(backend Backend, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 4
	}
	maxFiles := opts.MaxFiles
	if maxFiles <= 0 {
		maxFiles = 500
	}
	return &Service{
		backend:  backend,
		logger:   logger,
		metrics:  NewMetrics(),
		maxDepth: maxDepth,
		maxFiles: maxFiles,
		delay:    pollDelay,
		inFlight: make(map[string]*Run),
	}
}

// Analyze starts (or attaches to) the single-analysis run for analysisID.
// When a run for the id is already in flight, the existing run is returned
// and opts are ignored; the caller observes the run already underway.
func (s *Service) Analyze(ctx context.Context, analysisID string, opts GenerateOptions) *Run {
	return s.startSingle(ctx, analysisID, opts, false)
}

// Regenerate starts (or attaches to) a run that always requests generation,
// even when prior questions exist. Conflict recovery is identical to
// Analyze.
func (s *Service) Regenerate(ctx context.Context, analysisID string, opts GenerateOptions) *Run {
	return s.startSingle(ctx, analysisID, opts, true)
}

// List starts the list run: a single fetch of the recent analyses. List
// runs are not keyed; each call starts a fresh run.
func (s *Service) List(ctx context.Context, limit int) *Run {
	run := newRun("", progress.New(progress.ModeList))
	s.metrics.RecordRunStarted(progress.ModeList)
	go s.runList(ctx, run, limit)
	return run
}

func (s *Service) startSingle(ctx context.Context, analysisID string, opts GenerateOptions, force bool) *Run {
	s.mu.Lock()
	if existing, ok := s.inFlight[analysisID]; ok {
		select {
		case <-existing.done:
			// Finished but not yet released; fall through and start fresh.
		default:
			s.mu.Unlock()
			return existing
		}
	}
	run := newRun(analysisID, progress.New(progress.ModeSingle))
	s.inFlight[analysisID] = run
	s.mu.Unlock()

	s.metrics.RecordRunStarted(progress.ModeSingle)
	go func() {
		defer s.release(analysisID, run)
		s.runSingle(ctx, run, opts, force)
	}()
	return run
}

// Metrics exposes the run metrics, e.g. for the recent-cache counters
// recorded by callers.
func (s *Service) Metrics() *Metrics { return s.metrics }

func (s *Service) release(analysisID string, run *Run) {
	s.mu.Lock()
	if s.inFlight[analysisID] == run {
		delete(s.inFlight, analysisID)
	}
	s.mu.Unlock()
}
