package execute

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"

	"github.com/ultimatemcp/platform/internal/apierr"
)

// Pool bounds concurrent OS-process execution to W workers, with a
// separate, larger admission gate of 2W: requests beyond the admission
// gate are rejected immediately as KindBusy instead of queuing
// indefinitely, while requests inside the gate but beyond W may wait
// briefly for a worker slot.
type Pool struct {
	admission *semaphore.Weighted
	workers   *semaphore.Weighted
}

// DefaultWorkers returns W = min(NumCPU, 4).
func DefaultWorkers() int {
	w := runtime.NumCPU()
	if w > 4 {
		w = 4
	}
	if w < 1 {
		w = 1
	}
	return w
}

// NewPool builds a Pool with the given worker count (0 selects
// DefaultWorkers) and an admission gate sized 2*workers.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	return &Pool{
		admission: semaphore.NewWeighted(int64(2 * workers)),
		workers:   semaphore.NewWeighted(int64(workers)),
	}
}

// Run admits one unit of work: a non-blocking try-acquire against the
// admission gate (rejecting immediately if the system is saturated),
// then a blocking acquire of one worker slot bounded by ctx, then fn.
func (p *Pool) Run(ctx context.Context, fn func(ctx context.Context) (*Result, error)) (*Result, error) {
	if !p.admission.TryAcquire(1) {
		return nil, apierr.New(apierr.KindBusy, "execution pool is saturated, retry later")
	}
	defer p.admission.Release(1)

	if err := p.workers.Acquire(ctx, 1); err != nil {
		return nil, apierr.Wrap(apierr.KindTimeout, "timed out waiting for an execution worker", err)
	}
	defer p.workers.Release(1)

	return fn(ctx)
}
