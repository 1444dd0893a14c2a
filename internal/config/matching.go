package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// MatchingConfig holds the similarity thresholds of the category resolution
// pipeline.
type MatchingConfig struct {
	// PeerThreshold applies when the peer search is constrained to the same
	// store and breadcrumb.
	PeerThreshold float64 `mapstructure:"peerThreshold" yaml:"peerThreshold"`
	// PeerRelaxedThreshold applies to the unconstrained peer retry.
	PeerRelaxedThreshold float64 `mapstructure:"peerRelaxedThreshold" yaml:"peerRelaxedThreshold"`
	CategoryThreshold    float64 `mapstructure:"categoryThreshold" yaml:"categoryThreshold"`
	DiagnosticLimit      int     `mapstructure:"diagnosticLimit" yaml:"diagnosticLimit"`
}

func DefaultMatchingConfig() MatchingConfig {
	return MatchingConfig{
		PeerThreshold:        0.5,
		PeerRelaxedThreshold: 0.7,
		CategoryThreshold:    0.3,
		DiagnosticLimit:      5,
	}
}

type MatchingConfigHolder struct {
	current atomic.Value // holds MatchingConfig
	log     *zap.Logger
}

// NewMatchingConfigHolder loads matching.yml from the usual config paths and
// watches it for changes. A missing file yields the defaults.
func NewMatchingConfigHolder(logger *zap.Logger) (*MatchingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("matching")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/pricewise/config")
	v.AddConfigPath("/etc/pricewise")
	v.AddConfigPath(".")

	return newMatchingConfigHolder(v, logger)
}

// NewMatchingConfigHolderFromFile loads and watches a specific file.
func NewMatchingConfigHolderFromFile(path string, logger *zap.Logger) (*MatchingConfigHolder, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yml")
	return newMatchingConfigHolder(v, logger)
}

func newMatchingConfigHolder(v *viper.Viper, logger *zap.Logger) (*MatchingConfigHolder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	v.SetEnvPrefix("PRICEWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultMatchingConfig()
	v.SetDefault("matching.peerThreshold", defaults.PeerThreshold)
	v.SetDefault("matching.peerRelaxedThreshold", defaults.PeerRelaxedThreshold)
	v.SetDefault("matching.categoryThreshold", defaults.CategoryThreshold)
	v.SetDefault("matching.diagnosticLimit", defaults.DiagnosticLimit)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		watch = false
	}

	cfg := readMatchingConfig(v)
	if err := ValidateMatchingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &MatchingConfigHolder{log: logger.Named("config.matching")}
	holder.current.Store(cfg)

	if watch {
		v.OnConfigChange(func(e fsnotify.Event) {
			holder.reload(v, e.Name)
		})
		v.WatchConfig()
	}

	return holder, nil
}

// NewStaticMatchingConfigHolder returns a holder that never reloads.
func NewStaticMatchingConfigHolder(cfg MatchingConfig) (*MatchingConfigHolder, error) {
	if err := ValidateMatchingConfig(cfg); err != nil {
		return nil, err
	}
	holder := &MatchingConfigHolder{log: zap.NewNop()}
	holder.current.Store(cfg)
	return holder, nil
}

func (h *MatchingConfigHolder) reload(v *viper.Viper, source string) {
	updated := readMatchingConfig(v)
	if err := ValidateMatchingConfig(updated); err != nil {
		h.log.Warn("config.matching.invalid_ignored", zap.Error(err))
		return
	}
	h.current.Store(updated)
	h.log.Info("config.matching.reloaded", zap.String("source", source))
}

// readMatchingConfig reads key by key so defaults fill any key the file omits.
func readMatchingConfig(v *viper.Viper) MatchingConfig {
	return MatchingConfig{
		PeerThreshold:        v.GetFloat64("matching.peerThreshold"),
		PeerRelaxedThreshold: v.GetFloat64("matching.peerRelaxedThreshold"),
		CategoryThreshold:    v.GetFloat64("matching.categoryThreshold"),
		DiagnosticLimit:      v.GetInt("matching.diagnosticLimit"),
	}
}

func (h *MatchingConfigHolder) Get() MatchingConfig {
	return h.current.Load().(MatchingConfig)
}

func ValidateMatchingConfig(cfg MatchingConfig) error {
	thresholds := []struct {
		name  string
		value float64
	}{
		{"matching.peerThreshold", cfg.PeerThreshold},
		{"matching.peerRelaxedThreshold", cfg.PeerRelaxedThreshold},
		{"matching.categoryThreshold", cfg.CategoryThreshold},
	}
	for _, t := range thresholds {
		if t.value <= 0 || t.value > 1 {
			return fmt.Errorf("%s must be in (0,1], got %v", t.name, t.value)
		}
	}
	if cfg.PeerRelaxedThreshold < cfg.PeerThreshold {
		return errors.New("matching.peerRelaxedThreshold cannot be lower than matching.peerThreshold")
	}
	if cfg.CategoryThreshold >= cfg.PeerRelaxedThreshold {
		return errors.New("matching.categoryThreshold must be lower than matching.peerRelaxedThreshold")
	}
	if cfg.DiagnosticLimit <= 0 {
		return errors.New("matching.diagnosticLimit must be positive")
	}
	return nil
}
