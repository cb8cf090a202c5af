// Package config loads server configuration from config.yml and LEAVE_*
// environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gotify/configor"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Configuration struct {
	Server struct {
		Port            int    `default:"8080" env:"LEAVE_PORT" validate:"min=1,max=65535"`
		AllowedOrigins  string `default:"http://localhost:5173,http://localhost:8080" env:"LEAVE_CORS_ORIGINS"`
		ShutdownTimeout string `default:"30s" env:"LEAVE_SHUTDOWN_TIMEOUT"`
	}
	Database struct {
		Path string `default:"leave.db" env:"LEAVE_DB_PATH" validate:"required"`
	}
	Leave struct {
		DefaultCountry    string `default:"IN" env:"LEAVE_DEFAULT_COUNTRY" validate:"required"`
		TypesFile         string `default:"" env:"LEAVE_TYPES_FILE"`
		MaxBridgeDays     int    `default:"31" env:"LEAVE_MAX_BRIDGE_DAYS" validate:"min=1"`
		ApplyCarryForward bool   `default:"false" env:"LEAVE_APPLY_CARRY_FORWARD"`
	}
	Log struct {
		Level       string `default:"info" env:"LEAVE_LOG_LEVEL" validate:"oneof=debug info warn error"`
		Development bool   `default:"false" env:"LEAVE_LOG_DEV"`
	}
	Scheduler struct {
		Enabled  *bool  `default:"true" env:"LEAVE_SCHEDULER_ENABLED"`
		Interval string `default:"1h" env:"LEAVE_SCHEDULER_INTERVAL"`
	}
}

func configFiles() []string {
	return []string{"config.yml"}
}

// Load reads files (config.yml when none are given), applies defaults and
// environment overrides, then validates the result. Missing files are
// skipped.
func Load(files ...string) (*Configuration, error) {
	if len(files) == 0 {
		files = configFiles()
	}
	conf := new(Configuration)
	if err := configor.New(&configor.Config{}).Load(conf, files...); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Validate checks field constraints and duration syntax.
func (c *Configuration) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := time.ParseDuration(c.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid config: server shutdown timeout: %w", err)
	}
	if _, err := c.RefreshInterval(); err != nil {
		return err
	}
	return nil
}

// Origins splits the comma-separated CORS origin list.
func (c *Configuration) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.Server.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// RefreshInterval is the balance-refresh scheduler period.
func (c *Configuration) RefreshInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Scheduler.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid config: scheduler interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid config: scheduler interval must be positive")
	}
	return d, nil
}

// SchedulerEnabled reports whether the balance refresher should run.
func (c *Configuration) SchedulerEnabled() bool {
	return c.Scheduler.Enabled == nil || *c.Scheduler.Enabled
}

// ShutdownTimeout is how long in-flight requests get on SIGTERM.
func (c *Configuration) ShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// Logger builds the root zap logger.
func (c *Configuration) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}

	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
