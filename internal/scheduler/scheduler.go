package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/partnerdesk/internal/audit/domain"
	auditcontext "github.com/smallbiznis/partnerdesk/internal/auditcontext"
	"github.com/smallbiznis/partnerdesk/internal/clock"
	obsmetrics "github.com/smallbiznis/partnerdesk/internal/observability/metrics"
	"github.com/smallbiznis/partnerdesk/internal/ratelimit"
	"github.com/smallbiznis/partnerdesk/internal/scheduler/guard"
	settlementdomain "github.com/smallbiznis/partnerdesk/internal/settlement/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// PeriodLocker serialises the monthly close across replicas.
type PeriodLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Settlement settlementdomain.Service
	Locker     *ratelimit.Locker            `optional:"true"`
	Metrics    *obsmetrics.SchedulerMetrics `optional:"true"`
	Config     Config                       `optional:"true"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	genID      *snowflake.Node
	clock      clock.Clock
	settlement settlementdomain.Service
	locker     PeriodLocker
	metrics    *obsmetrics.SchedulerMetrics

	mu         sync.Mutex
	lastClosed settlementdomain.Period
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.Settlement == nil {
		return nil, ErrInvalidConfig
	}
	s := &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		genID:      p.GenID,
		clock:      p.Clock,
		settlement: p.Settlement,
		metrics:    p.Metrics,
	}
	if p.Locker != nil {
		s.locker = p.Locker
	}
	return s, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx = auditcontext.WithActor(ctx, string(auditdomain.ActorTypeScheduler), "scheduler")
	ctx, run, owner := s.ensureJobRun(ctx, name)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	s.metrics.IncJobRun(name)

	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, time.Since(start))
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		s.metrics.IncJobTimeout(name)
	}
	s.metrics.IncJobError(name, err)
	if isTimeout {
		// soft timeout, the next tick picks the work up again
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name    string
		Enabled bool
		Run     func(context.Context) error
	}{
		{JobCloseMonth, s.isJobEnabled(JobCloseMonth), func(ctx context.Context) error {
			return s.runJob(ctx, JobCloseMonth, s.cfg.JobTimeout, s.CloseMonthJob)
		}},
	}

	for _, job := range jobs {
		if job.Enabled {
			err = errors.Join(err, job.Run(parent))
		}
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := time.Now().Add(s.cfg.RunInterval)

	for {
		if runLag := time.Since(nextRun); runLag > 0 {
			s.metrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// CloseMonthJob settles every partner for the previous UTC month once per
// period, starting on the configured close day.
func (s *Scheduler) CloseMonthJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, JobCloseMonth)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	now := s.clock.Now().UTC()
	period := settlementdomain.PreviousPeriod(now)

	if s.isClosed(period) {
		s.deferJob(ctx, period, obsmetrics.SchedulerDeferredReasonAlreadyDone)
		return nil
	}
	if err := guard.EnsureCloseDayReached(now, s.cfg.CloseDay); err != nil {
		s.deferJob(ctx, period, obsmetrics.SchedulerDeferredReasonBeforeWindow)
		return nil
	}
	if err := guard.EnsurePeriodClosable(period, now); err != nil {
		s.logSchedulerError(ctx, run, "scheduler.period.not_closable", JobCloseMonth, 0, err,
			zap.String("period", period.String()),
		)
		return err
	}

	release, acquired, err := s.acquirePeriodLock(ctx, period)
	if err != nil {
		s.logSchedulerError(ctx, run, "scheduler.lock.failed", JobCloseMonth, 0, err,
			zap.String("period", period.String()),
		)
		return err
	}
	if !acquired {
		s.deferJob(ctx, period, obsmetrics.SchedulerDeferredReasonLockHeld)
		return nil
	}
	defer release()

	result, err := s.settlement.CloseMonth(ctx, period.String())
	if result != nil {
		run.AddProcessed(len(result.Settled))
		s.metrics.AddBatchProcessed(JobCloseMonth, "partner", len(result.Settled))
		for partnerID, failure := range result.Failed {
			s.logSchedulerError(ctx, run, "scheduler.partner.settle.failed", JobCloseMonth, partnerID, failure,
				zap.String("period", period.String()),
			)
		}
	}
	if err != nil {
		return err
	}

	s.markClosed(period)
	s.logger(ctx).Info("scheduler.period.closed",
		zap.String("period", period.String()),
		zap.Int("partners", run.processedCount),
	)
	return nil
}

func (s *Scheduler) acquirePeriodLock(ctx context.Context, period settlementdomain.Period) (func(), bool, error) {
	if s.locker == nil {
		return func() {}, true, nil
	}
	key := ratelimit.PeriodLockKey(JobCloseMonth, period.String())
	token, ok, err := s.locker.TryLock(ctx, key, s.cfg.LockTTL)
	if err != nil || !ok {
		return nil, false, err
	}
	return func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.logger(ctx).Warn("scheduler.lock.release_failed", zap.String("key", key), zap.Error(err))
		}
	}, true, nil
}

func (s *Scheduler) deferJob(ctx context.Context, period settlementdomain.Period, reason string) {
	s.metrics.IncJobDeferred(JobCloseMonth, reason)
	s.logger(ctx).Debug("scheduler.job.deferred",
		zap.String("job", JobCloseMonth),
		zap.String("period", period.String()),
		zap.String("reason", reason),
	)
}

func (s *Scheduler) isClosed(period settlementdomain.Period) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastClosed == period
}

func (s *Scheduler) markClosed(period settlementdomain.Period) {
	s.mu.Lock()
	s.lastClosed = period
	s.mu.Unlock()
}
