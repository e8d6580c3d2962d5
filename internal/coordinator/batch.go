package coordinator

import (
	"context"
	"sort"
	"sync"
	"time"

	"chatscribe/internal/job"
	"chatscribe/internal/services"
)

// Batch groups the jobs created by one submission. Callers poll it for
// snapshots, wait on it, or cancel it; the coordinator owns its execution.
type Batch struct {
	id      string
	jobs    []*job.Job
	started time.Time

	cancelled  chan struct{}
	done       chan struct{}
	closeOnce  sync.Once
	cancelOnce sync.Once
}

// Snapshot is a point-in-time view of a batch and every job in it.
type Snapshot struct {
	ID        string
	Done      bool
	Completed int
	Failed    int
	Jobs      []job.Snapshot
}

// ID returns the batch identifier.
func (b *Batch) ID() string {
	return b.id
}

// Jobs returns the batch's jobs in submission order.
func (b *Batch) Jobs() []*job.Job {
	out := make([]*job.Job, len(b.jobs))
	copy(out, b.jobs)
	return out
}

// Snapshot captures the current state of every job. Each job snapshot is
// internally consistent; the batch view is a momentary composite.
func (b *Batch) Snapshot() Snapshot {
	snap := Snapshot{
		ID:   b.id,
		Done: b.isDone(),
		Jobs: make([]job.Snapshot, 0, len(b.jobs)),
	}
	for _, jb := range b.jobs {
		js := jb.Snapshot()
		switch js.State {
		case job.StateCompleted:
			snap.Completed++
		case job.StateFailed:
			snap.Failed++
		}
		snap.Jobs = append(snap.Jobs, js)
	}
	return snap
}

// Wait blocks until every job reaches a terminal state or ctx expires. On
// expiry it returns the partial snapshot alongside a timeout error; jobs keep
// running and remain snapshot-able afterwards.
func (b *Batch) Wait(ctx context.Context) (Snapshot, error) {
	select {
	case <-b.done:
		return b.Snapshot(), nil
	case <-ctx.Done():
		return b.Snapshot(), services.Wrap(
			services.ErrTimeout, "batch", "await",
			"Batch still running when the wait expired", ctx.Err())
	}
}

// Cancel stops dispatching: jobs not yet handed a worker slot fail with a
// cancelled cause, while jobs already running finish or time out on their
// own. Safe to call twice.
func (b *Batch) Cancel() {
	b.cancelOnce.Do(func() {
		close(b.cancelled)
	})
}

func (b *Batch) isCancelled() bool {
	select {
	case <-b.cancelled:
		return true
	default:
		return false
	}
}

// Done exposes the batch completion channel.
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

func (b *Batch) isDone() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

func (b *Batch) finish() {
	b.closeOnce.Do(func() {
		close(b.done)
	})
}

func sortBatchesByStart(batches []*Batch) {
	sort.Slice(batches, func(i, j int) bool {
		if batches[i].started.Equal(batches[j].started) {
			return batches[i].id < batches[j].id
		}
		return batches[i].started.After(batches[j].started)
	})
}
