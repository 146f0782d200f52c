package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the overall application configuration.
type Config struct {
	Env        string           `mapstructure:"env"`
	Server     ServerConfig     `mapstructure:"server"`
	Sensor     SensorConfig     `mapstructure:"sensor"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Push       PushConfig       `mapstructure:"push"`
	WorkerPool WorkerPoolConfig `mapstructure:"worker_pool"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Client     ClientConfig     `mapstructure:"client"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `mapstructure:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `mapstructure:"vapid_public_key"`
	PrivateKey string `mapstructure:"vapid_private_key"`
	Subject    string `mapstructure:"subject"`
	TTL        int    `mapstructure:"ttl"`
}

// ServerConfig holds the backend HTTP server configuration.
type ServerConfig struct {
	Port            int      `mapstructure:"port"`
	RateLimitPerSec float64  `mapstructure:"rate_limit_per_sec"`
	RateLimitBurst  int      `mapstructure:"rate_limit_burst"`
	CacheTTLSeconds int      `mapstructure:"cache_ttl_seconds"`
	CORSOrigins     []string `mapstructure:"cors_origins"`

	CacheTTL time.Duration `mapstructure:"-"`
}

// SensorConfig holds the occupancy gateway polling configuration.
type SensorConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	Source              string        `mapstructure:"source"`
	IntervalSeconds     int           `mapstructure:"interval_seconds"`
	Interval            time.Duration `mapstructure:"-"`
	HTTPProxy           string        `mapstructure:"http_proxy"`
	Timezone            string        `mapstructure:"timezone"`
	Request             SensorRequest `mapstructure:"request"`
	StateFreeValues     []int         `mapstructure:"state_free_values"`
	StateOccupiedValues []int         `mapstructure:"state_occupied_values"`
	RetryAttempts       int           `mapstructure:"retry_attempts"`
	MQTT                MQTTConfig    `mapstructure:"mqtt"`
}

// MQTTConfig configures the push based sensor source.
type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	Topic    string `mapstructure:"topic"`
	ClientID string `mapstructure:"client_id"`
	QoS      byte   `mapstructure:"qos"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// SensorRequest defines the HTTP request sent to the gateway.
type SensorRequest struct {
	URL      string            `mapstructure:"url"`
	Headers  map[string]string `mapstructure:"headers"`
	PageSize int               `mapstructure:"page_size"`
	Payload  map[string]any    `mapstructure:"payload"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `mapstructure:"dsn"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes"`
}

// AuthConfig holds the signing settings for user tokens.
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TokenTTLHours int           `mapstructure:"token_ttl_hours"`
	TokenTTL      time.Duration `mapstructure:"-"`
}

// ClientConfig holds everything the map client needs.
type ClientConfig struct {
	BaseURL          string         `mapstructure:"base_url"`
	TimeoutSeconds   int            `mapstructure:"timeout_seconds"`
	Timeout          time.Duration  `mapstructure:"-"`
	UserID           int64          `mapstructure:"user_id"`
	Token            string         `mapstructure:"token"`
	Locale           string         `mapstructure:"locale"`
	ThemeDark        bool           `mapstructure:"theme_dark"`
	Renderer         string         `mapstructure:"renderer"`
	RollbackPolicy   string         `mapstructure:"rollback_policy"`
	StatusDurationMS int            `mapstructure:"status_duration_ms"`
	StatusDuration   time.Duration  `mapstructure:"-"`
	Location         LocationConfig `mapstructure:"location"`
}

// LocationConfig is the device position used by the client.
type LocationConfig struct {
	PermissionGranted bool    `mapstructure:"permission_granted"`
	Latitude          float64 `mapstructure:"latitude"`
	Longitude         float64 `mapstructure:"longitude"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads the configuration from the given path. Every key can be
// overridden by a PARKING_ prefixed environment variable, for example
// PARKING_CLIENT_BASE_URL.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PARKING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	applyDerived(&cfg)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_per_sec", 10)
	v.SetDefault("server.rate_limit_burst", 5)
	v.SetDefault("server.cache_ttl_seconds", 5)
	v.SetDefault("server.cors_origins", []string{"http://localhost:8081"})

	v.SetDefault("sensor.enabled", false)
	v.SetDefault("sensor.source", "http")
	v.SetDefault("sensor.retry_attempts", 3)
	v.SetDefault("sensor.mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("sensor.mqtt.topic", "parking/sensors")
	v.SetDefault("sensor.mqtt.client_id", "parkingd")
	v.SetDefault("sensor.mqtt.qos", 1)
	v.SetDefault("sensor.interval_seconds", 30)
	v.SetDefault("sensor.timezone", "Europe/Bratislava")
	v.SetDefault("sensor.request.url", "")
	v.SetDefault("sensor.request.page_size", 100)
	v.SetDefault("sensor.state_free_values", []int{0})
	v.SetDefault("sensor.state_occupied_values", []int{1})

	v.SetDefault("database.dsn", "file:parking.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime_minutes", 30)

	v.SetDefault("push.vapid_public_key", "")
	v.SetDefault("push.vapid_private_key", "")
	v.SetDefault("push.subject", "")
	v.SetDefault("push.ttl", 3600)

	v.SetDefault("worker_pool.size", 1)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl_hours", 24)

	v.SetDefault("client.base_url", "http://localhost:8080")
	v.SetDefault("client.timeout_seconds", 10)
	v.SetDefault("client.user_id", 0)
	v.SetDefault("client.token", "")
	v.SetDefault("client.locale", "en")
	v.SetDefault("client.theme_dark", false)
	v.SetDefault("client.renderer", "classic")
	v.SetDefault("client.rollback_policy", "revert")
	v.SetDefault("client.status_duration_ms", 1000)
	v.SetDefault("client.location.permission_granted", true)
	v.SetDefault("client.location.latitude", 49.2026)
	v.SetDefault("client.location.longitude", 18.7572)
}

// applyDerived fills the duration fields and clamps invalid values.
func applyDerived(cfg *Config) {
	if cfg.Sensor.IntervalSeconds <= 0 {
		cfg.Sensor.IntervalSeconds = 30
	}
	cfg.Sensor.Interval = time.Duration(cfg.Sensor.IntervalSeconds) * time.Second

	if cfg.Sensor.Source != "mqtt" {
		cfg.Sensor.Source = "http"
	}
	if cfg.Sensor.RetryAttempts < 0 {
		cfg.Sensor.RetryAttempts = 0
	}
	if cfg.Sensor.MQTT.QoS > 2 {
		cfg.Sensor.MQTT.QoS = 1
	}

	if cfg.Sensor.Request.PageSize <= 0 {
		cfg.Sensor.Request.PageSize = 100
	}

	if cfg.Server.CacheTTLSeconds < 0 {
		cfg.Server.CacheTTLSeconds = 0
	}
	cfg.Server.CacheTTL = time.Duration(cfg.Server.CacheTTLSeconds) * time.Second

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	if cfg.Auth.TokenTTLHours <= 0 {
		cfg.Auth.TokenTTLHours = 24
	}
	cfg.Auth.TokenTTL = time.Duration(cfg.Auth.TokenTTLHours) * time.Hour

	if cfg.Client.TimeoutSeconds <= 0 {
		cfg.Client.TimeoutSeconds = 10
	}
	cfg.Client.Timeout = time.Duration(cfg.Client.TimeoutSeconds) * time.Second

	if cfg.Client.StatusDurationMS <= 0 {
		cfg.Client.StatusDurationMS = 1000
	}
	cfg.Client.StatusDuration = time.Duration(cfg.Client.StatusDurationMS) * time.Millisecond
}
