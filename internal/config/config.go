// Package config loads the application configuration from an optional
// YAML file plus LRA_-prefixed environment variables, with sane defaults
// for everything.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Sandbox SandboxConfig `mapstructure:"sandbox"`
	Manager ManagerConfig `mapstructure:"manager"`
	Kernel  KernelConfig  `mapstructure:"kernel"`
	Tools   ToolsConfig   `mapstructure:"tools"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds the HTTP boundary settings.
type ServerConfig struct {
	Addr               string `mapstructure:"addr"`
	APIKey             string `mapstructure:"api_key"`
	RateLimitMax       int    `mapstructure:"rate_limit_max"`
	RateLimitWindowSec int    `mapstructure:"rate_limit_window_sec"`
}

// SandboxConfig holds per-container settings.
type SandboxConfig struct {
	Image        string  `mapstructure:"image"`
	MemoryMB     int     `mapstructure:"memory_mb"`
	CPUPercent   float64 `mapstructure:"cpu_percent"`
	PidsLimit    int     `mapstructure:"pids_limit"`
	KernelPort   int     `mapstructure:"kernel_port"`
	StopGraceSec int     `mapstructure:"stop_grace_sec"`
}

// ManagerConfig holds sandbox lifecycle settings.
type ManagerConfig struct {
	ExecTimeoutSec  int `mapstructure:"exec_timeout_sec"`
	IdleTTLMin      int `mapstructure:"idle_ttl_min"`
	ReapIntervalSec int `mapstructure:"reap_interval_sec"`
}

// KernelConfig holds in-container execution settings. It only matters
// for the kernel process itself.
type KernelConfig struct {
	Addr       string `mapstructure:"addr"`
	Python     string `mapstructure:"python"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
}

// ToolsConfig holds the dynamic tool registry settings.
type ToolsConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoggingConfig holds the logger settings.
type LoggingConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

// New loads the configuration. configFile may be empty, in which case
// the default search paths are used and a missing file is fine.
func New(configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("lra")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".lra"))
		}
	}

	v.SetEnvPrefix("LRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The API key also honors the conventional deployment variable.
	v.BindEnv("server.api_key", "LRA_SERVER_API_KEY", "SANDBOX_API_KEY")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.rate_limit_max", 100)
	v.SetDefault("server.rate_limit_window_sec", 60)

	v.SetDefault("sandbox.image", "lra-kernel:latest")
	v.SetDefault("sandbox.memory_mb", 512)
	v.SetDefault("sandbox.cpu_percent", 0.5)
	v.SetDefault("sandbox.pids_limit", 64)
	v.SetDefault("sandbox.kernel_port", 8000)
	v.SetDefault("sandbox.stop_grace_sec", 5)

	v.SetDefault("manager.exec_timeout_sec", 30)
	v.SetDefault("manager.idle_ttl_min", 30)
	v.SetDefault("manager.reap_interval_sec", 60)

	v.SetDefault("kernel.addr", ":8000")
	v.SetDefault("kernel.python", "python3")
	v.SetDefault("kernel.timeout_sec", 30)

	v.SetDefault("tools.dir", defaultToolsDir())
	v.SetDefault("logging.mode", "production")
	v.SetDefault("logging.level", "info")
}

func defaultToolsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "tools"
	}
	return filepath.Join(home, ".lra", "tools")
}

func (c *Config) validate() error {
	if c.Sandbox.MemoryMB <= 0 {
		return fmt.Errorf("sandbox.memory_mb must be positive, got %d", c.Sandbox.MemoryMB)
	}
	if c.Sandbox.CPUPercent <= 0 || c.Sandbox.CPUPercent > 1 {
		return fmt.Errorf("sandbox.cpu_percent must be in (0, 1], got %g", c.Sandbox.CPUPercent)
	}
	if c.Sandbox.KernelPort <= 0 || c.Sandbox.KernelPort > 65535 {
		return fmt.Errorf("sandbox.kernel_port must be a valid port, got %d", c.Sandbox.KernelPort)
	}
	if c.Manager.ExecTimeoutSec <= 0 {
		return fmt.Errorf("manager.exec_timeout_sec must be positive, got %d", c.Manager.ExecTimeoutSec)
	}
	if c.Server.RateLimitMax <= 0 {
		return fmt.Errorf("server.rate_limit_max must be positive, got %d", c.Server.RateLimitMax)
	}
	return nil
}

// Durations derived from the integer knobs.

func (c *Config) ExecTimeout() time.Duration {
	return time.Duration(c.Manager.ExecTimeoutSec) * time.Second
}

func (c *Config) IdleTTL() time.Duration {
	return time.Duration(c.Manager.IdleTTLMin) * time.Minute
}

func (c *Config) ReapInterval() time.Duration {
	return time.Duration(c.Manager.ReapIntervalSec) * time.Second
}

func (c *Config) StopGrace() time.Duration {
	return time.Duration(c.Sandbox.StopGraceSec) * time.Second
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.Server.RateLimitWindowSec) * time.Second
}

func (c *Config) KernelTimeout() time.Duration {
	return time.Duration(c.Kernel.TimeoutSec) * time.Second
}
