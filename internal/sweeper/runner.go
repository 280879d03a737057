package sweeper

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/nqtuan-dev/vietshop-backend/pkg/metrics"
)

// Job is one periodic reconciliation pass. Run returns how many items
// it handled; per-item failures are aggregated into the returned error
// without stopping the pass.
type Job interface {
	Name() string
	Interval() time.Duration
	Run(ctx context.Context) (int, error)
}

// leaser is the distributed-lock surface, satisfied by pkg/redis.Client.
type leaser interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(name string) string
}

// Runner ticks every registered job on its own interval. Overlap
// within one process is prevented by a per-job busy flag; an optional
// lease through the shared store extends that guard across replicas.
type Runner struct {
	jobs    []Job
	lease   leaser
	metrics *metrics.SweeperJobMetrics
	logger  zerolog.Logger
}

// NewRunner builds a runner. lease may be nil to rely on the
// in-process guard only; metrics may be nil to skip instrumentation.
func NewRunner(lease leaser, jobMetrics *metrics.SweeperJobMetrics, logger zerolog.Logger) *Runner {
	return &Runner{
		lease:   lease,
		metrics: jobMetrics,
		logger:  logger,
	}
}

// Register adds a job. Not safe to call after Start.
func (r *Runner) Register(job Job) {
	r.jobs = append(r.jobs, job)
}

// Start runs all registered jobs until ctx is cancelled, then waits
// for in-flight passes to finish.
func (r *Runner) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for _, job := range r.jobs {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			r.loop(ctx, job)
		}(job)
	}
	wg.Wait()
}

func (r *Runner) loop(ctx context.Context, job Job) {
	ticker := time.NewTicker(job.Interval())
	defer ticker.Stop()

	var busy atomic.Bool
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !busy.CompareAndSwap(false, true) {
				r.logger.Debug().Str("job", job.Name()).Msg("previous pass still running, skipping tick")
				continue
			}
			r.runOnce(ctx, job)
			busy.Store(false)
		}
	}
}

// RunOnce executes a single registered job pass immediately, outside
// the ticker loop. Used by the worker main for startup reconciliation.
func (r *Runner) RunOnce(ctx context.Context, job Job) {
	r.runOnce(ctx, job)
}

func (r *Runner) runOnce(ctx context.Context, job Job) {
	if !r.acquireLease(ctx, job) {
		r.logger.Debug().Str("job", job.Name()).Msg("lease held elsewhere, skipping pass")
		return
	}
	defer r.releaseLease(ctx, job)

	started := time.Now()
	processed, err := job.Run(ctx)
	elapsed := time.Since(started)

	r.metrics.ObserveDuration(job.Name(), elapsed)
	r.metrics.AddProcessed(job.Name(), processed)
	if err != nil {
		r.metrics.IncFailure(job.Name())
		r.logger.Error().Err(err).
			Str("job", job.Name()).
			Int("processed", processed).
			Dur("elapsed", elapsed).
			Msg("sweeper pass finished with errors")
		return
	}
	r.metrics.IncSuccess(job.Name())
	r.logger.Info().
		Str("job", job.Name()).
		Int("processed", processed).
		Dur("elapsed", elapsed).
		Msg("sweeper pass finished")
}

func (r *Runner) acquireLease(ctx context.Context, job Job) bool {
	if r.lease == nil {
		return true
	}
	// lease slightly outlives the interval so a crashed holder expires
	ttl := job.Interval() + job.Interval()/2
	ok, err := r.lease.SetNX(ctx, r.lease.LockKey(job.Name()), "1", ttl)
	if err != nil {
		r.logger.Warn().Err(err).Str("job", job.Name()).Msg("lease acquisition failed, running unguarded")
		return true
	}
	return ok
}

func (r *Runner) releaseLease(ctx context.Context, job Job) {
	if r.lease == nil {
		return
	}
	if err := r.lease.Del(ctx, r.lease.LockKey(job.Name())); err != nil {
		r.logger.Warn().Err(err).Str("job", job.Name()).Msg("lease release failed")
	}
}
