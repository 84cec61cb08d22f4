// Package config loads the service's runtime configuration using Viper,
// bound entirely through environment variables (no config file): the
// deployment surface is a handful of scalar knobs, not a tree worth a
// YAML document.
//
// Every variable uses the DNS_ prefix, e.g. DNS_HOST, DNS_RATE_LIMIT_QPS.
package config

import "time"

// Config is the root configuration structure.
type Config struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	DBPath string `mapstructure:"db_path"`

	CacheTTL time.Duration

	HealthCheckInterval time.Duration
	HealthCheckTimeout  time.Duration

	RateLimitQPS           float64 `mapstructure:"rate_limit_qps"`
	RateLimitBurst         int     `mapstructure:"rate_limit_burst"`
	RateLimitBlockDuration time.Duration

	ControlPlaneHost string `mapstructure:"control_plane_host"`
	ControlPlanePort int    `mapstructure:"control_plane_port"`

	LogLevel string `mapstructure:"log_level"`
}
