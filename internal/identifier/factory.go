package identifier

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/tutorbase/internal/config"
	"github.com/smallbiznis/tutorbase/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	App     config.Config
	Config  *config.InsuranceConfigHolder
	Redis   *redis.Client    `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
}

// Factory builds generators bound to the table and column that hold the
// identifiers.
type Factory struct {
	db      *gorm.DB
	log     *zap.Logger
	mode    string
	cfg     *config.InsuranceConfigHolder
	redis   *redis.Client
	metrics *metrics.Metrics
}

func NewFactory(p Params) *Factory {
	log := p.Log.Named("identifier")
	mode := p.App.IdentifierCounter
	if mode == config.CounterModeRedis && p.Redis == nil {
		log.Warn("IDENTIFIER_COUNTER=redis without REDIS_ADDR, counting rows instead")
		mode = config.CounterModeCount
	}
	return &Factory{
		db:      p.DB,
		log:     log,
		mode:    mode,
		cfg:     p.Config,
		redis:   p.Redis,
		metrics: p.Metrics,
	}
}

func (f *Factory) For(table, column string) *Generator {
	count := NewCountStore(f.db, table, column)
	var store CounterStore = count
	if f.mode == config.CounterModeRedis {
		store = NewRedisStore(f.redis, count, f.log)
	}
	return NewGenerator(store, f.cfg, f.metrics, f.log)
}

var Module = fx.Module("identifier",
	fx.Provide(NewFactory),
)
