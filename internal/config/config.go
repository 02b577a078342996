// Package config loads ServerConfig from flags and environment variables
// via viper, bound to a cobra command's flag set — the pack's standard
// CLI/config pairing (see DESIGN.md). No config file is read.
package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ServerConfig holds every knob exposed by the demo CLIs.
type ServerConfig struct {
	Port            int
	WorkerCount     int
	IdleTimeoutSecs int
	BaseDir         string
	Development     bool
}

// BindFlags registers the common server flags on cmd and binds them to
// viper so that an environment variable named REACTOR_ plus the
// upper-cased flag name can override the default without code changes.
func BindFlags(cmd *cobra.Command, v *viper.Viper) {
	flags := cmd.Flags()
	flags.Int("port", 9000, "listen port")
	flags.Int("workers", 4, "worker event loop count")
	flags.Int("idle-timeout", 30, "idle connection eviction timeout, in seconds (echo server only; the HTTP server uses 10)")
	flags.String("base-dir", "", "static file root directory (HTTP server only)")
	flags.Bool("dev", false, "enable development-mode logging")

	v.BindPFlags(flags)
	v.SetEnvPrefix("reactor")
	v.AutomaticEnv()
}

// Load reads bound values out of v into a ServerConfig.
func Load(v *viper.Viper) (*ServerConfig, error) {
	cfg := &ServerConfig{
		Port:            v.GetInt("port"),
		WorkerCount:     v.GetInt("workers"),
		IdleTimeoutSecs: v.GetInt("idle-timeout"),
		BaseDir:         v.GetString("base-dir"),
		Development:     v.GetBool("dev"),
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("config: invalid port %d", cfg.Port)
	}
	if cfg.WorkerCount < 0 {
		return nil, fmt.Errorf("config: worker count must be >= 0")
	}
	if cfg.IdleTimeoutSecs <= 0 || cfg.IdleTimeoutSecs >= 60 {
		return nil, fmt.Errorf("config: idle-timeout must be in (0, 60) seconds, got %d", cfg.IdleTimeoutSecs)
	}
	return cfg, nil
}
