package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// InsuranceConfig holds settings that can change without a restart.
type InsuranceConfig struct {
	Identifiers IdentifierConfig `mapstructure:"identifiers"`
	Pagination  PaginationConfig `mapstructure:"pagination"`
	Sweeper     SweeperConfig    `mapstructure:"sweeper"`
}

type IdentifierConfig struct {
	Width       int `mapstructure:"width"`
	MaxAttempts int `mapstructure:"maxAttempts"`
}

type PaginationConfig struct {
	DefaultPageSize int `mapstructure:"defaultPageSize"`
	MaxPageSize     int `mapstructure:"maxPageSize"`
}

type SweeperConfig struct {
	BatchSize int `mapstructure:"batchSize"`
}

func DefaultInsuranceConfig() InsuranceConfig {
	return InsuranceConfig{
		Identifiers: IdentifierConfig{Width: 4, MaxAttempts: 5},
		Pagination:  PaginationConfig{DefaultPageSize: 20, MaxPageSize: 100},
		Sweeper:     SweeperConfig{BatchSize: 100},
	}
}

type InsuranceConfigHolder struct {
	current atomic.Value // holds InsuranceConfig
}

// StaticInsuranceConfig returns a holder that never reloads.
func StaticInsuranceConfig(cfg InsuranceConfig) *InsuranceConfigHolder {
	holder := &InsuranceConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewInsuranceConfigHolder(log *zap.Logger) (*InsuranceConfigHolder, error) {
	log = log.Named("insurance.config")
	v := viper.New()

	v.SetConfigName("insurance")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/tutorbase")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TUTORBASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultInsuranceConfig()
	v.SetDefault("insurance.identifiers.width", defaults.Identifiers.Width)
	v.SetDefault("insurance.identifiers.maxAttempts", defaults.Identifiers.MaxAttempts)
	v.SetDefault("insurance.pagination.defaultPageSize", defaults.Pagination.DefaultPageSize)
	v.SetDefault("insurance.pagination.maxPageSize", defaults.Pagination.MaxPageSize)
	v.SetDefault("insurance.sweeper.batchSize", defaults.Sweeper.BatchSize)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileFound = false
	}

	var cfg InsuranceConfig
	if err := v.UnmarshalKey("insurance", &cfg); err != nil {
		return nil, err
	}
	if err := validateInsuranceConfig(cfg); err != nil {
		return nil, err
	}

	holder := StaticInsuranceConfig(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated InsuranceConfig
		if err := v.UnmarshalKey("insurance", &updated); err != nil {
			log.Warn("reload failed", zap.String("file", e.Name), zap.Error(err))
			return
		}
		if err := validateInsuranceConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *InsuranceConfigHolder) Get() InsuranceConfig {
	if h == nil {
		return DefaultInsuranceConfig()
	}
	cfg, ok := h.current.Load().(InsuranceConfig)
	if !ok {
		return DefaultInsuranceConfig()
	}
	return cfg
}

func validateInsuranceConfig(cfg InsuranceConfig) error {
	if cfg.Identifiers.Width < 1 || cfg.Identifiers.Width > 12 {
		return errors.New("insurance.identifiers.width must be between 1 and 12")
	}
	if cfg.Identifiers.MaxAttempts < 1 {
		return errors.New("insurance.identifiers.maxAttempts must be positive")
	}
	if cfg.Pagination.DefaultPageSize < 1 || cfg.Pagination.MaxPageSize < cfg.Pagination.DefaultPageSize {
		return errors.New("insurance.pagination sizes are inconsistent")
	}
	if cfg.Sweeper.BatchSize < 1 {
		return errors.New("insurance.sweeper.batchSize must be positive")
	}
	return nil
}
