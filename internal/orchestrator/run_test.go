package orchestrator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/repoquiz/internal/progress"
)

func TestRun_SubscribeSeedsLatestSnapshot(t *testing.T) {
	run := newRun("abc123", progress.New(progress.ModeSingle))

	snap := progress.Activate(run.Latest(), progress.StepAnalysisFetch, "")
	snap = progress.Complete(snap, progress.StepAnalysisFetch, "")
	run.emit(snap)

	ch, cancel := run.Subscribe()
	defer cancel()

	select {
	case seeded := <-ch:
		assert.Equal(t, 20, seeded.Percent, "subscriber must start from the latest snapshot")
	default:
		t.Fatal("expected seeded snapshot")
	}
}

func TestRun_LateSubscriberGetsFinalSnapshotAndClose(t *testing.T) {
	run := newRun("abc123", progress.New(progress.ModeSingle))
	final := progress.Activate(run.Latest(), progress.StepAnalysisFetch, "")
	run.emit(final)
	run.finish(&Result{}, nil)

	ch, cancel := run.Subscribe()
	defer cancel()

	seeded, ok := <-ch
	require.True(t, ok, "seeded snapshot precedes close")
	assert.Equal(t, progress.StepAnalysisFetch, seeded.CurrentKey)

	_, ok = <-ch
	assert.False(t, ok, "channel closed for a finished run")
}

func TestRun_EmitDropsOldestWhenSubscriberLags(t *testing.T) {
	run := newRun("abc123", progress.New(progress.ModeSingle))
	ch, cancel := run.Subscribe()
	defer cancel()

	snap := run.Latest()
	for i := 0; i < subscriberBuffer*2; i++ {
		snap = progress.SetDetail(snap, progress.StepAnalysisFetch, fmt.Sprintf("detail %d", i))
		run.emit(snap)
	}
	run.finish(&Result{}, nil)

	var got []progress.Snapshot
	for s := range ch {
		got = append(got, s)
	}
	require.NotEmpty(t, got)
	assert.LessOrEqual(t, len(got), subscriberBuffer+1)
	last := got[len(got)-1]
	assert.Equal(t, fmt.Sprintf("detail %d", subscriberBuffer*2-1), last.CurrentDetail,
		"the newest snapshot always lands")
}

func TestRun_CancelDetachesSubscriber(t *testing.T) {
	run := newRun("abc123", progress.New(progress.ModeSingle))
	ch, cancel := run.Subscribe()

	cancel()
	cancel() // idempotent

	// Emitting after detach must not panic or deliver.
	run.emit(progress.Activate(run.Latest(), progress.StepAnalysisFetch, ""))

	<-ch // seed
	_, ok := <-ch
	assert.False(t, ok, "channel closed on cancel")
}

func TestRun_WaitHonorsContext(t *testing.T) {
	run := newRun("abc123", progress.New(progress.ModeSingle))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := run.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
