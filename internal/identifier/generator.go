package identifier

import (
	"context"
	"errors"

	"github.com/smallbiznis/tutorbase/internal/config"
	"github.com/smallbiznis/tutorbase/internal/errs"
	"github.com/smallbiznis/tutorbase/internal/observability/logger"
	"github.com/smallbiznis/tutorbase/internal/observability/metrics"
	"github.com/smallbiznis/tutorbase/pkg/db"
	"go.uber.org/zap"
)

var ErrExhausted = errs.New(errs.ErrConflict, "identifier_exhausted")

// Generator formats identifiers from a CounterStore.
type Generator struct {
	store   CounterStore
	cfg     *config.InsuranceConfigHolder
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewGenerator(store CounterStore, cfg *config.InsuranceConfigHolder, m *metrics.Metrics, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{store: store, cfg: cfg, metrics: m, log: log}
}

// Next returns the identifier the next insert in the bucket should use.
// A width below one uses the configured default.
func (g *Generator) Next(ctx context.Context, prefix, bucket string, width int) (string, error) {
	seq, err := g.store.NextSequence(ctx, Key(prefix, bucket))
	if err != nil {
		return "", err
	}
	return Format(prefix, bucket, seq, g.width(width)), nil
}

// Allocate generates an identifier and passes it to insert, retrying with a
// higher sequence while insert reports a duplicate key.
func (g *Generator) Allocate(ctx context.Context, prefix, bucket string, width int, insert func(id string) error) (string, error) {
	width = g.width(width)
	attempts := g.cfg.Get().Identifiers.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	key := Key(prefix, bucket)

	var last int64
	for attempt := 1; attempt <= attempts; attempt++ {
		seq, err := g.store.NextSequence(ctx, key)
		if err != nil {
			return "", err
		}
		if seq <= last {
			seq = last + 1
		}
		last = seq

		id := Format(prefix, bucket, seq, width)
		err = insert(id)
		if err == nil {
			g.metrics.IncIdentifierAllocation(prefix, metrics.OutcomeAllocated)
			return id, nil
		}
		if !db.IsDuplicateKeyErr(err) {
			return "", err
		}
		if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ctx.Err()
		}

		g.metrics.IncIdentifierAllocation(prefix, metrics.OutcomeRetried)
		logger.WithContext(ctx, g.log).Debug("identifier collision, retrying",
			zap.String("identifier", id),
			zap.Int("attempt", attempt),
		)
	}

	g.metrics.IncIdentifierAllocation(prefix, metrics.OutcomeExhausted)
	logger.WithContext(ctx, g.log).Warn("identifier allocation exhausted",
		zap.String("key", key),
		zap.Int("attempts", attempts),
	)
	return "", ErrExhausted
}

func (g *Generator) width(width int) int {
	if width > 0 {
		return width
	}
	if w := g.cfg.Get().Identifiers.Width; w > 0 {
		return w
	}
	return 4
}
