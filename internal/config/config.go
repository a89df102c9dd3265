// File: internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Target  TargetConfig  `mapstructure:"target" yaml:"target"`
	Engine  EngineConfig  `mapstructure:"engine" yaml:"engine"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the headless browser instance.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Debug             bool          `mapstructure:"debug" yaml:"debug"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// TargetConfig identifies the intake application the engine is allowed to
// operate on. Outside Domain the engine must not touch the page at all.
type TargetConfig struct {
	Domain  string `mapstructure:"domain" yaml:"domain"`
	FormURL string `mapstructure:"form_url" yaml:"form_url"`
}

// EngineConfig carries every tunable duration of the fill pipeline. These are
// configuration parameters rather than literals so the protocols can run with
// short durations under test.
type EngineConfig struct {
	// Readiness gate budget.
	MaxAttempts   int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	RetryInterval time.Duration `mapstructure:"retry_interval" yaml:"retry_interval"`

	// Wait after a dynamic-activation click for the revealed panel to render.
	ActivationSettle time.Duration `mapstructure:"activation_settle" yaml:"activation_settle"`

	// Masked input protocol timings.
	FastPathSettle time.Duration `mapstructure:"fast_path_settle" yaml:"fast_path_settle"`
	DigitInterval  time.Duration `mapstructure:"digit_interval" yaml:"digit_interval"`
	StabilizePoll  time.Duration `mapstructure:"stabilize_poll" yaml:"stabilize_poll"`
	StabilizeMax   time.Duration `mapstructure:"stabilize_max" yaml:"stabilize_max"`
}

// StoreConfig locates the saved-profile store.
type StoreConfig struct {
	// Path to the profile file. Empty means ~/.intakefill/profile.json.
	Path string `mapstructure:"path" yaml:"path"`
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "intakefill")
	v.SetDefault("logger.log_file", "intakefill.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.debug", false)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("store.path", "")
	v.SetDefault("browser.navigation_timeout", "90s")

	// -- Engine --
	v.SetDefault("engine.max_attempts", 10)
	v.SetDefault("engine.retry_interval", "300ms")
	v.SetDefault("engine.activation_settle", "600ms")
	v.SetDefault("engine.fast_path_settle", "50ms")
	// Shorter inter-digit delays make the mask's debounce drop trailing
	// digits; 150ms tracks observed human typing cadence.
	v.SetDefault("engine.digit_interval", "150ms")
	v.SetDefault("engine.stabilize_poll", "100ms")
	v.SetDefault("engine.stabilize_max", "500ms")
}

// NewDefaultConfig creates a configuration struct populated with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
// It also derives target.domain from target.form_url when unset.
func (c *Config) Validate() error {
	if c.Engine.MaxAttempts <= 0 {
		return fmt.Errorf("engine.max_attempts must be a positive integer")
	}
	if c.Engine.RetryInterval <= 0 {
		return fmt.Errorf("engine.retry_interval must be a positive duration")
	}
	if c.Engine.DigitInterval <= 0 {
		return fmt.Errorf("engine.digit_interval must be a positive duration")
	}
	if c.Engine.StabilizePoll <= 0 || c.Engine.StabilizeMax < c.Engine.StabilizePoll {
		return fmt.Errorf("engine.stabilize_poll must be positive and no larger than engine.stabilize_max")
	}
	if c.Target.FormURL != "" {
		u, err := url.Parse(c.Target.FormURL)
		if err != nil || u.Host == "" {
			return fmt.Errorf("target.form_url must be an absolute URL")
		}
		if c.Target.Domain == "" {
			c.Target.Domain = u.Hostname()
		}
	}
	c.Target.Domain = strings.ToLower(strings.TrimSpace(c.Target.Domain))
	return nil
}
