package orchestrator

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/repoquiz/internal/progress"
)

// subscriberBuffer is the per-subscriber channel depth. Emits never block
// the run: when a subscriber's buffer is full the oldest snapshot is
// dropped in favor of the newest.
const subscriberBuffer = 16

// Run is a handle on one in-flight (or finished) orchestration run.
// Multiple callers may hold the same Run; each subscribes independently.
type Run struct {
	id         string
	analysisID string

	mu     sync.Mutex
	subs   map[int]chan progress.Snapshot
	nextID int
	last   progress.Snapshot
	closed bool

	done   chan struct{}
	result *Result
	err    error
}

func newRun(analysisID string, initial progress.Snapshot) *Run {
	return &Run{
		id:         uuid.NewString(),
		analysisID: analysisID,
		subs:       make(map[int]chan progress.Snapshot),
		last:       initial,
		done:       make(chan struct{}),
	}
}

// ID is the unique run id.
func (r *Run) ID() string { return r.id }

// AnalysisID is the analysis this run belongs to; empty for list runs.
func (r *Run) AnalysisID() string { return r.analysisID }

// Subscribe registers a snapshot consumer. The returned channel is seeded
// with the latest snapshot and closed when the run ends. The cancel
// function detaches the subscriber; it must be called on teardown.
func (r *Run) Subscribe() (<-chan progress.Snapshot, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan progress.Snapshot, subscriberBuffer)
	ch <- r.last
	if r.closed {
		close(ch)
		return ch, func() {}
	}

	id := r.nextID
	r.nextID++
	r.subs[id] = ch

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if sub, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Latest returns the most recent snapshot.
func (r *Run) Latest() progress.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Done is closed when the run reaches a terminal state.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run ends or ctx is canceled.
func (r *Run) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.done:
		return r.result, r.err
	}
}

// emit publishes a snapshot to every subscriber without blocking. A full
// subscriber loses its oldest buffered snapshot; the newest always lands.
func (r *Run) emit(snap progress.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.last = snap
	for _, ch := range r.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// finish records the terminal result, closes all subscriber channels, and
// releases waiters. It is called exactly once by the run goroutine.
func (r *Run) finish(result *Result, err error) {
	r.mu.Lock()
	r.closed = true
	r.result = result
	r.err = err
	for id, ch := range r.subs {
		delete(r.subs, id)
		close(ch)
	}
	r.mu.Unlock()
	close(r.done)
}
