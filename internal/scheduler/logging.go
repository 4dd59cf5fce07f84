package scheduler

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	obslogger "github.com/smallbiznis/tutorbase/internal/observability/logger"
	"go.uber.org/zap"
)

// sweep describes one execution of a sweeper job. Nested jobs share the
// sweep of the outermost one so a single run id ties their logs together.
type sweep struct {
	job       string
	id        string
	batch     int
	startedAt time.Time
	expired   int
	failures  int
}

type sweepKey struct{}

func (w *sweep) countExpired(n int) {
	if w != nil && n > 0 {
		w.expired += n
	}
}

func (w *sweep) fail() {
	if w != nil {
		w.failures++
	}
}

func (w *sweep) fields(now time.Time) []zap.Field {
	return []zap.Field{
		zap.String("job", w.job),
		zap.String("run_id", w.id),
		zap.Int("batch_size", w.batch),
		zap.Int("expired_count", w.expired),
		zap.Int("error_count", w.failures),
		zap.Duration("elapsed", now.Sub(w.startedAt)),
	}
}

// beginSweep attaches a new sweep to ctx unless one is already running;
// owner reports whether the caller started it.
func (s *Scheduler) beginSweep(ctx context.Context, job string, batch int) (_ context.Context, w *sweep, owner bool) {
	if existing := sweepFrom(ctx); existing != nil {
		return ctx, existing, false
	}
	now := s.clock.Now()
	w = &sweep{
		job:       job,
		id:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		batch:     batch,
		startedAt: now,
	}
	s.logger(ctx).Info("sweeper.run.start", zap.String("job", job), zap.String("run_id", w.id), zap.Int("batch_size", batch))
	return context.WithValue(ctx, sweepKey{}, w), w, true
}

func (s *Scheduler) endSweep(ctx context.Context, w *sweep) {
	log := s.logger(ctx)
	if w.failures > 0 {
		log.Warn("sweeper.run.finish", w.fields(s.clock.Now())...)
		return
	}
	log.Info("sweeper.run.finish", w.fields(s.clock.Now())...)
}

func sweepFrom(ctx context.Context) *sweep {
	if ctx == nil {
		return nil
	}
	w, _ := ctx.Value(sweepKey{}).(*sweep)
	return w
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}
