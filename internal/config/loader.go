package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	// GlobalConfig holds the global configuration instance
	GlobalConfig *Config

	globalMu sync.RWMutex
)

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
		v.AddConfigPath("/etc/flashsale")
	}

	// Environment variables: FLASHSALE_SERVER_PORT overrides server.port
	v.SetEnvPrefix("FLASHSALE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine, defaults and env vars apply
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Hot reload: re-unmarshal on file change, keep the old config if the
	// new one fails validation.
	v.OnConfigChange(func(e fsnotify.Event) {
		updated := &Config{}
		if err := v.Unmarshal(updated); err != nil {
			return
		}
		if err := updated.Validate(); err != nil {
			return
		}
		globalMu.Lock()
		GlobalConfig = updated
		globalMu.Unlock()
	})
	v.WatchConfig()

	globalMu.Lock()
	GlobalConfig = config
	globalMu.Unlock()

	return config, nil
}

// Get returns the current global configuration
func Get() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return GlobalConfig
}

// setDefaults registers defaults so the engine runs with no config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.username", "flashsale")
	v.SetDefault("database.dbname", "flashsale")
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 100)
	v.SetDefault("redis.min_idle_conns", 10)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "flashsale-api")
	v.SetDefault("tracing.sample_rate", 0.1)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.per_ip.rps", 100.0)
	v.SetDefault("rate_limit.per_ip.burst", 200)
	v.SetDefault("rate_limit.join_per_user.limit", 10)
	v.SetDefault("rate_limit.join_per_user.window", time.Second)

	v.SetDefault("security.jwt.secret", "dev-secret-change-me")
	v.SetDefault("security.jwt.issuer", "flashsale")
	v.SetDefault("security.cors.enabled", true)

	// Storefront polls about once per second; 15s TTL leaves ample margin.
	v.SetDefault("flashsale.ticket_ttl", 15*time.Second)
	v.SetDefault("flashsale.grace", 2*time.Second)
	v.SetDefault("flashsale.sweep_interval", time.Second)
	v.SetDefault("flashsale.result_retention", 10*time.Minute)
	v.SetDefault("flashsale.confirm_retries", 3)
	v.SetDefault("flashsale.confirm_retry_interval", 100*time.Millisecond)
	v.SetDefault("flashsale.confirm_timeout", 2*time.Second)
	v.SetDefault("flashsale.direct_lock_ttl", 3*time.Second)
}
