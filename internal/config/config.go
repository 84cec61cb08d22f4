package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Load reads configuration from the environment, applying defaults for
// anything unset, and returns a validated Config.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DNS")
	v.AutomaticEnv()

	bindEnv(v, "host", "HOST")
	bindEnv(v, "port", "PORT")
	bindEnv(v, "db_path", "DB_PATH")
	bindEnv(v, "cache_ttl_seconds", "CACHE_TTL_SECONDS")
	bindEnv(v, "health_check_interval_seconds", "HEALTH_CHECK_INTERVAL_SECONDS")
	bindEnv(v, "health_check_timeout_ms", "HEALTH_CHECK_TIMEOUT_MS")
	bindEnv(v, "rate_limit_qps", "RATE_LIMIT_QPS")
	bindEnv(v, "rate_limit_burst", "RATE_LIMIT_BURST")
	bindEnv(v, "rate_limit_block_seconds", "RATE_LIMIT_BLOCK_SECONDS")
	bindEnv(v, "control_plane_host", "CONTROL_PLANE_HOST")
	bindEnv(v, "control_plane_port", "CONTROL_PLANE_PORT")
	bindEnv(v, "log_level", "LOG_LEVEL")

	cfg := &Config{
		Host:             v.GetString("host"),
		Port:             v.GetInt("port"),
		DBPath:           v.GetString("db_path"),
		RateLimitQPS:     v.GetFloat64("rate_limit_qps"),
		RateLimitBurst:   v.GetInt("rate_limit_burst"),
		ControlPlaneHost: v.GetString("control_plane_host"),
		ControlPlanePort: v.GetInt("control_plane_port"),
		LogLevel:         v.GetString("log_level"),
	}
	cfg.CacheTTL = time.Duration(v.GetInt("cache_ttl_seconds")) * time.Second
	cfg.HealthCheckInterval = time.Duration(v.GetInt("health_check_interval_seconds")) * time.Second
	cfg.HealthCheckTimeout = time.Duration(v.GetInt("health_check_timeout_ms")) * time.Millisecond
	cfg.RateLimitBlockDuration = time.Duration(v.GetInt("rate_limit_block_seconds")) * time.Second

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindEnv binds a single key to DNS_<suffix>; BindEnv never returns an
// error for well-formed arguments, so its error is discarded.
func bindEnv(v *viper.Viper, key, suffix string) {
	_ = v.BindEnv(key, "DNS_"+suffix)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 53)
	v.SetDefault("db_path", "authdns.db")
	v.SetDefault("cache_ttl_seconds", 30)
	v.SetDefault("health_check_interval_seconds", 10)
	v.SetDefault("health_check_timeout_ms", 3000)
	v.SetDefault("rate_limit_qps", 50.0)
	v.SetDefault("rate_limit_burst", 100)
	v.SetDefault("rate_limit_block_seconds", 30)
	v.SetDefault("control_plane_host", "127.0.0.1")
	v.SetDefault("control_plane_port", 8080)
	v.SetDefault("log_level", "INFO")
}

func validate(cfg *Config) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return errors.New("DNS_PORT must be 1..65535")
	}
	if cfg.ControlPlanePort <= 0 || cfg.ControlPlanePort > 65535 {
		return errors.New("DNS_CONTROL_PLANE_PORT must be 1..65535")
	}
	if cfg.DBPath == "" {
		return errors.New("DNS_DB_PATH must not be empty")
	}
	if cfg.HealthCheckTimeout < 250*time.Millisecond {
		cfg.HealthCheckTimeout = 250 * time.Millisecond
	}
	return nil
}
