// Package conf loads and validates the application configuration from YAML
// files and AGROALERT_* environment variables.
package conf

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings is the full application configuration.
type Settings struct {
	Database DatabaseSettings `mapstructure:"database"`
	HTTP     HTTPSettings     `mapstructure:"http"`
	Engine   EngineSettings   `mapstructure:"engine"`
	Notify   NotifySettings   `mapstructure:"notify"`
	Log      LogSettings      `mapstructure:"log"`
}

// DatabaseSettings selects and configures the datastore backend.
type DatabaseSettings struct {
	// Driver is "sqlite" or "mysql".
	Driver string `mapstructure:"driver"`
	// DSN is the driver-specific connection string. For sqlite this is the
	// database file path.
	DSN string `mapstructure:"dsn"`
}

// HTTPSettings configures the API server.
type HTTPSettings struct {
	Listen string `mapstructure:"listen"`
	// Metrics exposes Prometheus metrics on /metrics when true.
	Metrics bool `mapstructure:"metrics"`
}

// EngineSettings configures the alert processing schedules.
type EngineSettings struct {
	ProcessInterval Duration `mapstructure:"process_interval"`
	AutoGenInterval Duration `mapstructure:"autogen_interval"`
	// CleanupSpec is a cron expression for the retention sweep.
	CleanupSpec string `mapstructure:"cleanup_spec"`
	// SeedDefaults installs the built-in alert rules on startup.
	SeedDefaults bool `mapstructure:"seed_defaults"`
}

// NotifySettings holds shoutrrr service URLs. Empty URLs disable the channel.
type NotifySettings struct {
	EmailURL string `mapstructure:"email_url"`
	SMSURL   string `mapstructure:"sms_url"`
}

// LogSettings configures structured logging.
type LogSettings struct {
	// Level is debug, info, warn or error.
	Level string `mapstructure:"level"`
	// Encoding is "json" or "console".
	Encoding string `mapstructure:"encoding"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "agroalert.db")
	v.SetDefault("http.listen", ":8080")
	v.SetDefault("http.metrics", true)
	v.SetDefault("engine.process_interval", "5m")
	v.SetDefault("engine.autogen_interval", "15m")
	v.SetDefault("engine.cleanup_spec", "30 3 * * *")
	v.SetDefault("engine.seed_defaults", true)
	v.SetDefault("notify.email_url", "")
	v.SetDefault("notify.sms_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
}

// Load reads the configuration from the given file path. An empty path falls
// back to config.yaml in the working directory; a missing file is not an
// error, defaults and environment variables still apply.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/agroalert")
	}

	v.SetEnvPrefix("AGROALERT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings, viper.DecodeHook(DurationDecodeHook())); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Validate checks settings that would otherwise fail deep inside startup.
func (s *Settings) Validate() error {
	switch s.Database.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported database driver %q", s.Database.Driver)
	}
	if s.Database.DSN == "" {
		return fmt.Errorf("database dsn must not be empty")
	}
	if s.Engine.ProcessInterval.Std() < time.Second {
		return fmt.Errorf("engine process_interval %s is below the 1s minimum", s.Engine.ProcessInterval.Std())
	}
	if s.Engine.AutoGenInterval.Std() < time.Second {
		return fmt.Errorf("engine autogen_interval %s is below the 1s minimum", s.Engine.AutoGenInterval.Std())
	}
	switch s.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", s.Log.Level)
	}
	return nil
}
