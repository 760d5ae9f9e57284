// Package watch polls job info until jobs reach a terminal status.
package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Alwanly/remotebuild-client/pkg/jobs"
	"github.com/Alwanly/remotebuild-client/pkg/logger"
	"github.com/Alwanly/remotebuild-client/pkg/request"
	"github.com/Alwanly/remotebuild-client/pkg/retry"
	"golang.org/x/sync/errgroup"
)

// JobInfoer fetches one job. *remotebuild.Client satisfies it.
type JobInfoer interface {
	JobInfo(ctx context.Context, jobID uint32) (request.Result[jobs.Info], error)
}

// Options configures a watch.
type Options struct {
	// Interval between polls
	Interval time.Duration
	// Retry applies to transport failures only; application errors end the
	// watch immediately.
	Retry retry.Config
	// OnChange is called with the first observed info and after every status
	// change. Jobs serializes calls across its goroutines.
	OnChange func(info jobs.Info)
	Logger   *logger.CanonicalLogger
}

// DefaultOptions polls every 5 seconds.
func DefaultOptions() Options {
	return Options{
		Interval: 5 * time.Second,
		Retry:    retry.DefaultConfig(),
	}
}

// Job polls jobID until its status is terminal and returns the final info.
// When ctx ends first, the last observed info is returned with ctx.Err().
func Job(ctx context.Context, c JobInfoer, jobID uint32, opts Options) (jobs.Info, error) {
	if opts.Interval <= 0 {
		return jobs.Info{}, fmt.Errorf("watch interval must be positive, got %s", opts.Interval)
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("watch").WithJobID(jobID)

	retryCfg := opts.Retry
	retryCfg.ShouldRetry = func(err error) bool {
		return request.IsKind(err, request.KindRequest)
	}
	retryCfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		log.WithError(err).Warn("job info request failed, retrying",
			logger.Int(logger.FieldRetryCount, attempt),
			logger.Duration("wait", wait),
		)
	}

	var (
		last    jobs.Info
		seen    bool
		polls   int
		current jobs.Info
	)

	poll := func() error {
		polls++
		return retry.WithExponentialBackoff(ctx, retryCfg, func(ctx context.Context) error {
			res, err := c.JobInfo(ctx, jobID)
			if err != nil {
				return err
			}
			current = res.Response
			return nil
		})
	}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for {
		if err := poll(); err != nil {
			log.WithError(err).Error("watch failed", logger.Int(logger.FieldPollCount, polls))
			return last, err
		}

		if !seen || current.Status != last.Status {
			log.Info("job status changed",
				logger.String(logger.FieldJobStatus, current.Status.String()),
				logger.Int(logger.FieldPollCount, polls),
			)
			if opts.OnChange != nil {
				opts.OnChange(current)
			}
		}
		last, seen = current, true

		if last.Status.IsTerminal() {
			return last, nil
		}

		select {
		case <-ctx.Done():
			log.Info("stopping watch")
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Jobs watches several jobs concurrently. It stops at the first failing
// watch and returns the final info of every job that finished.
func Jobs(ctx context.Context, c JobInfoer, jobIDs []uint32, opts Options) (map[uint32]jobs.Info, error) {
	var mu sync.Mutex
	out := make(map[uint32]jobs.Info, len(jobIDs))

	if onChange := opts.OnChange; onChange != nil {
		var cbMu sync.Mutex
		opts.OnChange = func(info jobs.Info) {
			cbMu.Lock()
			defer cbMu.Unlock()
			onChange(info)
		}
	}

	g, gCtx := errgroup.WithContext(ctx)
	for _, id := range jobIDs {
		g.Go(func() error {
			info, err := Job(gCtx, c, id, opts)
			if err != nil {
				return fmt.Errorf("watch job %d: %w", id, err)
			}
			mu.Lock()
			out[id] = info
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	return out, err
}
