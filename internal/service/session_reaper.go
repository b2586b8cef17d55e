package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/library-catalog-api/pkg/jobs"
)

// PurgeSessionsJob is the job type handled by SessionReaper.
const PurgeSessionsJob = "sessions.purge"

type sessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// SessionReaper deletes expired session rows on a schedule.
type SessionReaper struct {
	sessions sessionPurger
	queue    *jobs.Queue
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
}

// NewSessionReaper builds a reaper backed by a single-worker queue. Each purge
// is bounded by timeout, 5s when unset.
func NewSessionReaper(sessions sessionPurger, interval, timeout time.Duration, logger *zap.Logger) *SessionReaper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	r := &SessionReaper{sessions: sessions, interval: interval, timeout: timeout, logger: logger}
	r.queue = jobs.NewQueue("session-reaper", r.Handle, jobs.QueueConfig{
		Workers:    1,
		BufferSize: 1,
		MaxRetries: 3,
		RetryDelay: 30 * time.Second,
		Logger:     logger,
	})
	return r
}

// Handle runs one purge.
func (r *SessionReaper) Handle(ctx context.Context, job jobs.Job) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	n, err := r.sessions.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		r.logger.Info("expired sessions purged", zap.Int64("count", n), zap.String("job_id", job.ID))
	}
	return nil
}

// Run purges immediately and then every interval until ctx ends. It blocks.
func (r *SessionReaper) Run(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	r.queue.Start(ctx)
	defer r.queue.Stop()
	r.queue.Every(ctx, r.interval, PurgeSessionsJob)
}
