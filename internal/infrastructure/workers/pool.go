package workers

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/authforge/identity-system/internal/api/metrics"
)

const (
	defaultWorkers = 4
	queueBuffer    = 64
)

type job struct {
	run  func()
	done chan struct{}
}

// Pool executes CPU-heavy jobs on a fixed set of workers, capping how many
// cost-tuned hash computations run at once so they cannot saturate the host
// under load.
type Pool struct {
	jobs chan job
	size int
	log  zerolog.Logger
}

// NewPool creates a Pool with size workers. If size <= 0, defaultWorkers is used.
func NewPool(size int, log zerolog.Logger) *Pool {
	if size <= 0 {
		size = defaultWorkers
	}
	return &Pool{
		jobs: make(chan job, queueBuffer),
		size: size,
		log:  log,
	}
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		go p.runWorker(ctx, i)
	}
	p.log.Debug().Int("workers", p.size).Msg("hashing pool started")
}

// Do submits fn and blocks until it has run or ctx is done. A job accepted by
// a worker always runs to completion even if the submitter has given up.
func (p *Pool) Do(ctx context.Context, fn func()) error {
	j := job{run: fn, done: make(chan struct{})}

	select {
	case p.jobs <- j:
		metrics.HashQueueDepth.Inc()
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-p.jobs:
			if !ok {
				return
			}
			metrics.HashQueueDepth.Dec()
			j.run()
			close(j.done)
		}
	}
}
