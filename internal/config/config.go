// This file defines the configuration structure for the application.
package config

import (
	// use Viper for loading the config.yml file.
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration settings for the application.
// It maps directly to the structure of config.yml.
//
// The worker and watch thresholds are deliberately plain config constants:
// the engine's correctness does not depend on one "right" value, only on the
// relations between them (stall_after_seconds must comfortably exceed the
// worker heartbeat, stale_after_seconds must exceed the slowest legitimate
// single render).
type Config struct {
	Port     int `mapstructure:"port"`
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Engine struct {
		Default string `mapstructure:"default"`
		BaseURL string `mapstructure:"base_url"`
	} `mapstructure:"engine"`
	Worker struct {
		BudgetSeconds     int `mapstructure:"budget_seconds"`
		MarginSeconds     int `mapstructure:"margin_seconds"`
		HeartbeatSeconds  int `mapstructure:"heartbeat_seconds"`
		StaleAfterSeconds int `mapstructure:"stale_after_seconds"`
		Concurrency       int `mapstructure:"concurrency"`
		ClaimBatch        int `mapstructure:"claim_batch"`
		MaxAttempts       int `mapstructure:"max_attempts"`
		RetryBaseMs       int `mapstructure:"retry_base_ms"`
		RateLimitBaseMs   int `mapstructure:"rate_limit_base_ms"`
	} `mapstructure:"worker"`
	Watch struct {
		SweepSeconds         int `mapstructure:"sweep_seconds"`
		StallAfterSeconds    int `mapstructure:"stall_after_seconds"`
		AbandonedAfterSeconds int `mapstructure:"abandoned_after_seconds"`
	} `mapstructure:"watch"`
}

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or "yaml"
	viper.AddConfigPath(".")      // looking for config in the current directory

	// --- Environment Variable Overrides ---
	// This tells Viper to look for environment variables with a "FORGE_" prefix.
	// e.g., FORGE_DATABASE_PATH will override the `database.path` key.
	viper.SetEnvPrefix("FORGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("port", 8080)
	viper.SetDefault("database.path", "./forge.db")
	viper.SetDefault("engine.default", "forgeapi")
	viper.SetDefault("engine.base_url", "https://api.forge.example")
	viper.SetDefault("worker.budget_seconds", 50)
	viper.SetDefault("worker.margin_seconds", 5)
	viper.SetDefault("worker.heartbeat_seconds", 10)
	viper.SetDefault("worker.stale_after_seconds", 90)
	viper.SetDefault("worker.concurrency", 2)
	viper.SetDefault("worker.claim_batch", 3)
	viper.SetDefault("worker.max_attempts", 3)
	viper.SetDefault("worker.retry_base_ms", 2000)
	viper.SetDefault("worker.rate_limit_base_ms", 5000)
	viper.SetDefault("watch.sweep_seconds", 30)
	viper.SetDefault("watch.stall_after_seconds", 120)
	viper.SetDefault("watch.abandoned_after_seconds", 1800)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error and use defaults
		} else {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
