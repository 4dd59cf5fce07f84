package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("IDENTIFIER_COUNTER", "memcached")
	t.Setenv("DEFAULT_CURRENCY", " usd ")
	t.Setenv("SWEEPER_INTERVAL", "-5m")
	t.Setenv("SWEEPER_ENABLED", "off")

	cfg := Load()
	assert.Equal(t, CounterModeCount, cfg.IdentifierCounter)
	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.Equal(t, time.Hour, cfg.SweeperInterval)
	assert.False(t, cfg.SweeperEnabled)
	assert.False(t, cfg.IsProduction())
}

func TestLoadRedisCounter(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("IDENTIFIER_COUNTER", "Redis")
	t.Setenv("ENVIRONMENT", "Production")

	cfg := Load()
	assert.Equal(t, CounterModeRedis, cfg.IdentifierCounter)
	assert.True(t, cfg.IsProduction())
}

func TestInsuranceConfigDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	holder, err := NewInsuranceConfigHolder(zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, DefaultInsuranceConfig(), holder.Get())
}

func TestInsuranceConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "insurance.yml"), []byte(`
insurance:
  identifiers:
    width: 6
    maxAttempts: 3
  pagination:
    defaultPageSize: 10
    maxPageSize: 50
  sweeper:
    batchSize: 25
`), 0o600))

	holder, err := NewInsuranceConfigHolder(zap.NewNop())
	require.NoError(t, err)
	cfg := holder.Get()
	assert.Equal(t, 6, cfg.Identifiers.Width)
	assert.Equal(t, 3, cfg.Identifiers.MaxAttempts)
	assert.Equal(t, 10, cfg.Pagination.DefaultPageSize)
	assert.Equal(t, 50, cfg.Pagination.MaxPageSize)
	assert.Equal(t, 25, cfg.Sweeper.BatchSize)
}

func TestInsuranceConfigRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "insurance.yml"), []byte(`
insurance:
  pagination:
    defaultPageSize: 200
    maxPageSize: 100
`), 0o600))

	_, err := NewInsuranceConfigHolder(zap.NewNop())
	assert.Error(t, err)
}

func TestNilHolderReturnsDefaults(t *testing.T) {
	var holder *InsuranceConfigHolder
	assert.Equal(t, DefaultInsuranceConfig(), holder.Get())
	assert.Equal(t, DefaultInsuranceConfig(), (&InsuranceConfigHolder{}).Get())
}
