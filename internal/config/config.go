// Package config loads the matchcored daemon's process-level configuration
// — listen address, traded symbols, worker pool size — once at startup.
// The teacher has no config loader of its own; this is grounded in the
// examples pack's polymarket-mm and perp-dex repos, both of which reach
// for viper for exactly this ambient concern.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the daemon's full runtime configuration.
type Config struct {
	ListenAddress  string   `mapstructure:"listen_address"`
	ListenPort     int      `mapstructure:"listen_port"`
	Symbols        []string `mapstructure:"symbols"`
	WorkerPoolSize int      `mapstructure:"worker_pool_size"`
	MetricsAddress string   `mapstructure:"metrics_address"`
}

func defaults() Config {
	return Config{
		ListenAddress:  "0.0.0.0",
		ListenPort:     9001,
		Symbols:        []string{"AAPL"},
		WorkerPoolSize: 10,
		MetricsAddress: "0.0.0.0:9090",
	}
}

// Load reads configuration from environment variables prefixed MATCHCORE_,
// the file at path (if non-empty), and finally the built-in defaults, in
// that order of precedence.
func Load(path string) (Config, error) {
	cfg := defaults()

	v := viper.New()
	v.SetEnvPrefix("MATCHCORE")
	v.AutomaticEnv()

	v.SetDefault("listen_address", cfg.ListenAddress)
	v.SetDefault("listen_port", cfg.ListenPort)
	v.SetDefault("symbols", cfg.Symbols)
	v.SetDefault("worker_pool_size", cfg.WorkerPoolSize)
	v.SetDefault("metrics_address", cfg.MetricsAddress)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshalling: %w", err)
	}
	return cfg, nil
}
