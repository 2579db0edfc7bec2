package sysconf

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-sysconf/pkg/activity"
)

// Config holds the environment-driven controller settings.
type Config struct {
	RuleEngine      string `env:"SYSCONF_RULE_ENGINE" envDefault:"expr"`
	Debug           bool   `env:"SYSCONF_DEBUG"`
	ActivityEnabled bool   `env:"SYSCONF_ACTIVITY_ENABLED"`
	ActivityChannel string `env:"SYSCONF_ACTIVITY_CHANNEL" envDefault:"sysconf"`
	ActivityActor   string `env:"SYSCONF_ACTIVITY_ACTOR"`
	StorePath       string `env:"SYSCONF_STORE_PATH"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ControllerOptions turns the configuration into controller options. hooks
// receive activity only when ActivityEnabled is set.
func (c Config) ControllerOptions(hooks activity.Hooks) ([]ControllerOption, error) {
	cache := NewProgramCache()
	evaluator, err := NewEvaluator(c.RuleEngine, cache, nil)
	if err != nil {
		return nil, err
	}
	opts := []ControllerOption{
		WithProgramCache(cache),
		WithEvaluator(evaluator),
		WithStrictLock(c.Debug),
	}
	if c.ActivityEnabled {
		opts = append(opts, WithActivity(hooks, activity.Config{
			Enabled: true,
			Channel: c.ActivityChannel,
			ActorID: c.ActivityActor,
		}))
	}
	return opts, nil
}
