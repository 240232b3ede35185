package maintenance

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	iauth "github.com/saiakshat556/farm-data-bridge/internal/auth"
	"github.com/saiakshat556/farm-data-bridge/pkg/logger"
)

const defaultSessionSpec = "@hourly"

// Cleaner runs background housekeeping. Today that is purging sessions that
// have expired or been revoked by logout.
type Cleaner struct {
	sessions *iauth.SessionService
	cron     *cron.Cron
	log      *zap.Logger

	sessionSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithSessionSchedule overrides the cron specification for session cleanup.
func WithSessionSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.sessionSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner. A nil session service disables the job.
func NewCleaner(sessions *iauth.SessionService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		sessions:        sessions,
		sessionSchedule: defaultSessionSpec,
		log:             logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.sessions == nil {
		return nil
	}

	if _, err := c.cron.AddFunc(c.sessionSchedule, func() {
		removed, err := c.sessions.CleanupExpired(context.Background())
		if err != nil {
			c.log.Warn("session cleanup failed", zap.Error(err))
			return
		}
		if removed > 0 {
			c.log.Info("purged sessions", zap.Int64("removed", removed))
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if c.sessions != nil {
		if _, err := c.sessions.CleanupExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
