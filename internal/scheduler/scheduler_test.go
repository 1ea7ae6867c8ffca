package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	auditcontext "github.com/smallbiznis/partnerdesk/internal/auditcontext"
	"github.com/smallbiznis/partnerdesk/internal/clock"
	obsmetrics "github.com/smallbiznis/partnerdesk/internal/observability/metrics"
	settlementdomain "github.com/smallbiznis/partnerdesk/internal/settlement/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSettlement struct {
	mu      sync.Mutex
	periods []string
	actors  []string
	err     error
	failed  map[int64]error
}

func (f *fakeSettlement) SettlePeriod(context.Context, settlementdomain.SettleRequest) (*settlementdomain.Result, error) {
	return nil, errors.New("not used")
}

func (f *fakeSettlement) CloseMonth(ctx context.Context, period string) (*settlementdomain.CloseMonthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.periods = append(f.periods, period)
	actorType, actorID := auditcontext.ActorFromContext(ctx)
	f.actors = append(f.actors, actorType+":"+actorID)

	result := &settlementdomain.CloseMonthResult{
		Period:  period,
		Settled: []settlementdomain.Result{{OK: true, PartnerID: 1, Period: period}, {OK: true, PartnerID: 2, Period: period}},
		Failed:  map[int64]error{},
	}
	if f.err != nil {
		for id, err := range f.failed {
			result.Failed[id] = err
		}
		return result, f.err
	}
	return result, nil
}

type fakeLocker struct {
	held     map[string]bool
	released []string
	err      error
}

func (l *fakeLocker) TryLock(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l.err != nil {
		return "", false, l.err
	}
	if ttl <= 0 {
		return "", false, errors.New("ttl")
	}
	if l.held[key] {
		return "", false, nil
	}
	l.held[key] = true
	return "token-" + key, true, nil
}

func (l *fakeLocker) Release(_ context.Context, key, token string) error {
	if token != "token-"+key {
		return errors.New("token mismatch")
	}
	delete(l.held, key)
	l.released = append(l.released, key)
	return nil
}

func newTestScheduler(t *testing.T, now time.Time, cfg Config) (*Scheduler, *fakeSettlement, *clock.FakeClock, *prometheus.Registry) {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	metrics := obsmetrics.NewSchedulerMetrics(registry, obsmetrics.Config{
		ServiceName: "partnerdesk",
		Environment: "test",
	})

	fc := clock.NewFakeClock(now)
	settlement := &fakeSettlement{}
	s, err := New(Params{
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      fc,
		Settlement: settlement,
		Metrics:    metrics,
		Config:     cfg,
	})
	require.NoError(t, err)
	return s, settlement, fc, registry
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunJobTimeoutDoesNotReturnErrorAndIncrementsTimeout(t *testing.T) {
	s, _, _, registry := newTestScheduler(t, time.Time{}, Config{})

	err := s.runJob(context.Background(), "timeout_job", 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	labels := map[string]string{
		"service": "partnerdesk",
		"env":     "test",
		"job":     "timeout_job",
	}
	assert.Equal(t, 1.0, getCounterValue(t, registry, "partnerdesk_scheduler_job_timeouts_total", labels))

	errorLabels := map[string]string{
		"service": "partnerdesk",
		"env":     "test",
		"job":     "timeout_job",
		"reason":  obsmetrics.SchedulerJobReasonDeadlineExceeded,
	}
	assert.Equal(t, 1.0, getCounterValue(t, registry, "partnerdesk_scheduler_job_errors_total", errorLabels))
}

func TestRunJobWrapsBusinessErrors(t *testing.T) {
	s, _, _, _ := newTestScheduler(t, time.Time{}, Config{})
	boom := errors.New("boom")

	err := s.runJob(context.Background(), "failing", time.Second, func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing")
}

func TestCloseMonthSettlesPreviousPeriodOnce(t *testing.T) {
	s, settlement, fc, registry := newTestScheduler(t, time.Date(2025, 7, 3, 8, 0, 0, 0, time.UTC), Config{CloseDay: 2})
	ctx := context.Background()

	require.NoError(t, s.RunOnce(ctx))
	require.NoError(t, s.RunOnce(ctx))
	assert.Equal(t, []string{"2025-06"}, settlement.periods)
	assert.Equal(t, []string{"scheduler:scheduler"}, settlement.actors)

	assert.Equal(t, 2.0, getCounterValue(t, registry, "partnerdesk_scheduler_batch_processed_total", map[string]string{
		"service":  "partnerdesk",
		"env":      "test",
		"job":      JobCloseMonth,
		"resource": "partner",
	}))
	assert.Equal(t, 1.0, getCounterValue(t, registry, "partnerdesk_scheduler_job_deferred_total", deferredLabels(obsmetrics.SchedulerDeferredReasonAlreadyDone)))

	fc.Set(time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, s.RunOnce(ctx))
	assert.Equal(t, []string{"2025-06"}, settlement.periods, "august 1st is before the close day")
	assert.Equal(t, 1.0, getCounterValue(t, registry, "partnerdesk_scheduler_job_deferred_total", deferredLabels(obsmetrics.SchedulerDeferredReasonBeforeWindow)))

	fc.Advance(24 * time.Hour)
	require.NoError(t, s.RunOnce(ctx))
	assert.Equal(t, []string{"2025-06", "2025-07"}, settlement.periods)
}

func TestCloseMonthRetriesAfterPartialFailure(t *testing.T) {
	s, settlement, _, _ := newTestScheduler(t, time.Date(2025, 7, 1, 0, 30, 0, 0, time.UTC), Config{})
	settlement.err = errors.New("partner 3 failed")
	settlement.failed = map[int64]error{3: errors.New("db down")}

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), JobCloseMonth)

	settlement.err = nil
	require.NoError(t, s.RunOnce(context.Background()))
	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, []string{"2025-06", "2025-06"}, settlement.periods)
}

func TestCloseMonthDefersWhenLockHeld(t *testing.T) {
	s, settlement, _, registry := newTestScheduler(t, time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC), Config{})
	locker := &fakeLocker{held: map[string]bool{"partnerdesk:scheduler:close_month:2025-06": true}}
	s.locker = locker

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Empty(t, settlement.periods)
	assert.Equal(t, 1.0, getCounterValue(t, registry, "partnerdesk_scheduler_job_deferred_total", deferredLabels(obsmetrics.SchedulerDeferredReasonLockHeld)))

	delete(locker.held, "partnerdesk:scheduler:close_month:2025-06")
	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, []string{"2025-06"}, settlement.periods)
	assert.Equal(t, []string{"partnerdesk:scheduler:close_month:2025-06"}, locker.released)
	assert.Empty(t, locker.held)
}

func TestCloseMonthFailsWhenLockUnavailable(t *testing.T) {
	s, settlement, _, _ := newTestScheduler(t, time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC), Config{})
	s.locker = &fakeLocker{held: map[string]bool{}, err: errors.New("redis: connection refused")}

	require.Error(t, s.RunOnce(context.Background()))
	assert.Empty(t, settlement.periods)
}

func TestRunOnceSkipsDisabledJobs(t *testing.T) {
	s, settlement, _, _ := newTestScheduler(t, time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC), Config{EnabledJobs: []string{"other"}})

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Empty(t, settlement.periods)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{CloseDay: 31, JobTimeout: time.Hour}.withDefaults()
	assert.Equal(t, time.Hour, cfg.RunInterval)
	assert.Equal(t, 1, cfg.CloseDay)
	assert.Equal(t, time.Hour, cfg.LockTTL)
}

func deferredLabels(reason string) map[string]string {
	return map[string]string{
		"service": "partnerdesk",
		"env":     "test",
		"job":     JobCloseMonth,
		"reason":  reason,
	}
}

func getCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metricFamilies, err := registry.Gather()
	require.NoError(t, err)
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if !labelsMatch(metric, labels) {
				continue
			}
			require.NotNil(t, metric.Counter, "metric %s is not a counter", name)
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}
