package identifier

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CounterStore hands out the next sequence for a bucket key.
type CounterStore interface {
	NextSequence(ctx context.Context, key string) (int64, error)
}

// CountStore counts the rows of table whose column starts with key.
type CountStore struct {
	db     *gorm.DB
	table  string
	column string
}

func NewCountStore(db *gorm.DB, table, column string) *CountStore {
	return &CountStore{db: db, table: table, column: column}
}

func (s *CountStore) NextSequence(ctx context.Context, key string) (int64, error) {
	n, err := s.count(ctx, key)
	if err != nil {
		return 0, err
	}
	return n + 1, nil
}

func (s *CountStore) count(ctx context.Context, key string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Table(s.table).
		Where(s.column+" LIKE ?", key+"-%").
		Count(&n).Error
	return n, err
}

const (
	incrExistingScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return redis.call("INCR", KEYS[1])
end
return -1
`
	seedAndIncrScript = `
redis.call("SET", KEYS[1], ARGV[1], "NX", "EX", ARGV[2])
return redis.call("INCR", KEYS[1])
`
)

// RedisStore increments a redis counter per bucket. A missing counter is
// seeded from the persisted row count, and redis failures fall back to
// counting.
type RedisStore struct {
	client   *redis.Client
	fallback *CountStore
	log      *zap.Logger
	ttl      time.Duration
	incr     *redis.Script
	seed     *redis.Script
}

func NewRedisStore(client *redis.Client, fallback *CountStore, log *zap.Logger) *RedisStore {
	return &RedisStore{
		client:   client,
		fallback: fallback,
		log:      log,
		ttl:      400 * 24 * time.Hour,
		incr:     redis.NewScript(incrExistingScript),
		seed:     redis.NewScript(seedAndIncrScript),
	}
}

func (s *RedisStore) NextSequence(ctx context.Context, key string) (int64, error) {
	redisKey := "identifier:" + key

	seq, err := s.incr.Run(ctx, s.client, []string{redisKey}).Int64()
	if err != nil {
		return s.degrade(ctx, key, err)
	}
	if seq > 0 {
		return seq, nil
	}

	existing, err := s.fallback.count(ctx, key)
	if err != nil {
		return 0, err
	}
	seq, err = s.seed.Run(ctx, s.client, []string{redisKey}, existing, int64(s.ttl.Seconds())).Int64()
	if err != nil {
		return s.degrade(ctx, key, err)
	}
	return seq, nil
}

func (s *RedisStore) degrade(ctx context.Context, key string, cause error) (int64, error) {
	s.log.Warn("redis counter unavailable, counting rows", zap.String("key", key), zap.Error(cause))
	return s.fallback.NextSequence(ctx, key)
}
