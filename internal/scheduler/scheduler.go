package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/tutorbase/internal/actorcontext"
	"github.com/smallbiznis/tutorbase/internal/clock"
	"github.com/smallbiznis/tutorbase/internal/config"
	customerpolicydomain "github.com/smallbiznis/tutorbase/internal/customerpolicy/domain"
	"github.com/smallbiznis/tutorbase/internal/lock"
	obsmetrics "github.com/smallbiznis/tutorbase/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const JobExpireMaturedPolicies = "expire_matured_policies"

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

type Params struct {
	fx.In

	Log               *zap.Logger
	Clock             clock.Clock
	Config            Config `optional:"true"`
	Insurance         *config.InsuranceConfigHolder
	CustomerPolicySvc customerpolicydomain.Service
	Locker            *lock.Locker        `optional:"true"`
	Metrics           *obsmetrics.Metrics `optional:"true"`
}

type Scheduler struct {
	log               *zap.Logger
	cfg               Config
	clock             clock.Clock
	insurance         *config.InsuranceConfigHolder
	customerPolicySvc customerpolicydomain.Service
	locker            *lock.Locker
	metrics           *obsmetrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.CustomerPolicySvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:               p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:               p.Config.withDefaults(),
		clock:             p.Clock,
		insurance:         p.Insurance,
		customerPolicySvc: p.CustomerPolicySvc,
		locker:            p.Locker,
		metrics:           p.Metrics,
	}, nil
}

// runJob executes fn as the system actor under timeout. When a redis lock
// is configured only one replica runs a given job at a time. A timeout is
// logged and swallowed so the next tick retries.
func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx = actorcontext.WithActor(ctx, actorcontext.System)

	release, acquired := s.acquire(ctx, name)
	if !acquired {
		s.logger(ctx).Debug("sweeper.run.skipped", zap.String("job", name), zap.String("reason", "lock_held"))
		return nil
	}
	defer release()

	ctx, run, owner := s.beginSweep(ctx, name, batchSize)

	err := fn(ctx)
	s.metrics.ObserveJob(name, s.clock.Now().Sub(start), err)
	if owner {
		if err != nil {
			run.fail()
		}
		s.endSweep(ctx, run)
	}
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.String("run_id", run.id),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) acquire(ctx context.Context, name string) (func(), bool) {
	if s.locker == nil {
		return func() {}, true
	}
	key := "tutorbase:scheduler:" + name
	token, ok, err := s.locker.TryLock(ctx, key, s.cfg.LockTTL)
	if err != nil {
		// redis trouble should not stop a single-replica deployment
		s.logger(ctx).Warn("scheduler lock unavailable, running unlocked", zap.String("job", name), zap.Error(err))
		return func() {}, true
	}
	if !ok {
		return nil, false
	}
	return func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.logger(ctx).Warn("scheduler lock release failed", zap.String("job", name), zap.Error(err))
		}
	}, true
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{JobExpireMaturedPolicies, func(ctx context.Context) error {
			return s.runJob(ctx, JobExpireMaturedPolicies, s.batchSize(), s.cfg.JobTimeout, s.ExpireMaturedPoliciesJob)
		}},
	}

	for _, job := range jobs {
		err = errors.Join(err, job.Run(parent))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ExpireMaturedPoliciesJob expires one batch of bindings whose term has run
// out as of now.
func (s *Scheduler) ExpireMaturedPoliciesJob(ctx context.Context) error {
	count, err := s.customerPolicySvc.ExpireMatured(ctx, s.clock.Now(), s.batchSize())
	sweepFrom(ctx).countExpired(count)
	s.metrics.AddPoliciesExpired(count)
	return err
}

func (s *Scheduler) batchSize() int {
	if size := s.insurance.Get().Sweeper.BatchSize; size > 0 {
		return size
	}
	return config.DefaultInsuranceConfig().Sweeper.BatchSize
}
