package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"go-scoreboard-sse/internal/infrastructure/logger"
)

// ServerConfig defines the HTTP server parameters
type ServerConfig struct {
	// ListenOn is the address the HTTP server binds to, host:port
	ListenOn string `mapstructure:"listen_on" json:"listen_on" validate:"required,hostname_port"`
	// ReadTimeoutSec bounds reading a request, including the body
	ReadTimeoutSec int `mapstructure:"read_timeout_sec" json:"read_timeout_sec" validate:"gte=0"`
	// IdleTimeoutSec is the keep-alive idle timeout
	IdleTimeoutSec int `mapstructure:"idle_timeout_sec" json:"idle_timeout_sec" validate:"gte=0"`
	// ShutdownTimeoutSec bounds graceful shutdown
	ShutdownTimeoutSec int `mapstructure:"shutdown_timeout_sec" json:"shutdown_timeout_sec" validate:"gte=1"`
}

// RealtimeConfig defines the push channel parameters
type RealtimeConfig struct {
	// HeartbeatIntervalMs is the keepalive period of every connection monitor
	HeartbeatIntervalMs int `mapstructure:"heartbeat_interval_ms" json:"heartbeatIntervalMs" validate:"gte=10"`
	// StaleAfterMs is the age of the last successful write after which a connection is evicted
	StaleAfterMs int `mapstructure:"stale_after_ms" json:"staleAfterMs" validate:"gte=20"`
	// WriteTimeoutMs bounds every single write to a client
	WriteTimeoutMs int `mapstructure:"write_timeout_ms" json:"writeTimeoutMs" validate:"gte=1"`
	// PublishConcurrency caps the number of parallel writes per broadcast
	PublishConcurrency int `mapstructure:"publish_concurrency" json:"publishConcurrency" validate:"gte=1"`
	// ResumeWindowMs is how long a retired client id is still treated as a resumption.
	// Zero means "same as StaleAfterMs".
	ResumeWindowMs int `mapstructure:"resume_window_ms" json:"resumeWindowMs" validate:"gte=0"`
	// AdmissionRatePerSec limits new stream admissions; zero disables the limiter
	AdmissionRatePerSec float64 `mapstructure:"admission_rate_per_sec" json:"admissionRatePerSec" validate:"gte=0"`
	// AdmissionBurst is the token bucket size of the admission limiter
	AdmissionBurst int `mapstructure:"admission_burst" json:"admissionBurst" validate:"gte=0"`
}

// HeartbeatInterval returns the keepalive period as a duration
func (c RealtimeConfig) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalMs) * time.Millisecond
}

// StaleAfter returns the staleness threshold as a duration
func (c RealtimeConfig) StaleAfter() time.Duration {
	return time.Duration(c.StaleAfterMs) * time.Millisecond
}

// WriteTimeout returns the per-write timeout as a duration
func (c RealtimeConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutMs) * time.Millisecond
}

// ResumeWindow returns the resumption window as a duration
func (c RealtimeConfig) ResumeWindow() time.Duration {
	if c.ResumeWindowMs == 0 {
		return c.StaleAfter()
	}
	return time.Duration(c.ResumeWindowMs) * time.Millisecond
}

// DatabaseConfig selects the game store
type DatabaseConfig struct {
	// Driver is either "memory" or "postgres"
	Driver string `mapstructure:"driver" json:"driver" validate:"required,oneof=memory postgres"`
	// DSN is the lib/pq connection string, required for postgres
	DSN string `mapstructure:"dsn" json:"dsn" validate:"required_if=Driver postgres"`
	// MaxOpenConns caps the sql.DB pool
	MaxOpenConns int `mapstructure:"max_open_conns" json:"max_open_conns" validate:"gte=0"`
}

// AdminConfig guards the maintenance endpoints
type AdminConfig struct {
	// Token is compared against the X-Admin-Token header; empty disables the check
	Token string `mapstructure:"token" json:"-"`
}

// SystemConfig is the complete application config
type SystemConfig struct {
	Server   ServerConfig   `mapstructure:"server" json:"server"`
	Realtime RealtimeConfig `mapstructure:"realtime" json:"realtime"`
	Log      logger.Config  `mapstructure:"log" json:"log"`
	Database DatabaseConfig `mapstructure:"database" json:"database"`
	Admin    AdminConfig    `mapstructure:"admin" json:"admin"`
}

// minStaleHeartbeatRatio is the minimum staleAfter/heartbeat ratio; one missed keepalive must
// never be enough to evict a connection.
const minStaleHeartbeatRatio = 2

// ErrStaleThreshold is returned when staleAfter leaves no margin over the heartbeat interval
var ErrStaleThreshold = errors.New("realtime.stale_after_ms must be at least twice realtime.heartbeat_interval_ms")

// Validate runs the struct tag validation plus the cross field checks
func (c *SystemConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Realtime.StaleAfterMs < minStaleHeartbeatRatio*c.Realtime.HeartbeatIntervalMs {
		return ErrStaleThreshold
	}
	return nil
}

// InstallDefaultConfigValues installs default config parameters in viper
func InstallDefaultConfigValues(v *viper.Viper) {
	v.SetDefault("server.listen_on", "0.0.0.0:8080")
	v.SetDefault("server.read_timeout_sec", 15)
	v.SetDefault("server.idle_timeout_sec", 60)
	v.SetDefault("server.shutdown_timeout_sec", 5)

	v.SetDefault("realtime.heartbeat_interval_ms", 3000)
	v.SetDefault("realtime.stale_after_ms", 10000)
	v.SetDefault("realtime.write_timeout_ms", 2000)
	v.SetDefault("realtime.publish_concurrency", 64)
	v.SetDefault("realtime.resume_window_ms", 0)
	v.SetDefault("realtime.admission_rate_per_sec", 50)
	v.SetDefault("realtime.admission_burst", 100)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file_path", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", true)

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)

	v.SetDefault("admin.token", "")
}

// Load builds the config from defaults, an optional file and SCOREBOARD_* environment variables
func Load(configFile string) (*SystemConfig, error) {
	v := viper.New()
	InstallDefaultConfigValues(v)

	v.SetEnvPrefix("scoreboard")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg SystemConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	defaults := logger.NewDefaultConfig()
	if cfg.Log.Fields == nil {
		cfg.Log.Fields = defaults.Fields
	}
	cfg.Log.Resolve()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
