package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides, e.g. DELIVERYDESK_REDIS_ADDR.
const EnvPrefix = "DELIVERYDESK"

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Minio    MinioConfig    `yaml:"minio"`
	Booking  BookingConfig  `yaml:"booking"`
	Tracking TrackingConfig `yaml:"tracking"`
	Worker   WorkerConfig   `yaml:"worker"`
}

type HTTPConfig struct {
	Address    string `yaml:"address" split_words:"true"`
	SwaggerDir string `yaml:"swagger_dir" split_words:"true"`
}

type LogConfig struct {
	Level  string `yaml:"level" split_words:"true"`
	Format string `yaml:"format" split_words:"true"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" split_words:"true"`
	Port     int    `yaml:"port" split_words:"true"`
	User     string `yaml:"user" split_words:"true"`
	Password string `yaml:"password" split_words:"true"`
	Name     string `yaml:"name" split_words:"true"`
	SSLMode  string `yaml:"ssl_mode" split_words:"true"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr" split_words:"true"`
	Password string `yaml:"password" split_words:"true"`
	DB       int    `yaml:"db" split_words:"true"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers" split_words:"true"`
	BookingTopic       string   `yaml:"booking_topic" split_words:"true"`
	NotificationsTopic string   `yaml:"notifications_topic" split_words:"true"`
	GroupID            string   `yaml:"group_id" split_words:"true"`
}

type MinioConfig struct {
	Endpoint       string `yaml:"endpoint" split_words:"true"`
	AccessKey      string `yaml:"access_key" split_words:"true"`
	SecretKey      string `yaml:"secret_key" split_words:"true"`
	Bucket         string `yaml:"bucket" split_words:"true"`
	Region         string `yaml:"region" split_words:"true"`
	UseSSL         bool   `yaml:"use_ssl" split_words:"true"`
	LinkTTLMinutes int    `yaml:"link_ttl_minutes" split_words:"true"`
}

// BookingConfig tunes the distributed lock guarding booking transitions.
// LockTTL must stay above the worst-case latency of one guarded operation.
type BookingConfig struct {
	LockTTLSeconds          int `yaml:"lock_ttl_seconds" split_words:"true"`
	LockRetryDelayMS        int `yaml:"lock_retry_delay_ms" split_words:"true"`
	LockMaxRetries          int `yaml:"lock_max_retries" split_words:"true"`
	PartnersCacheTTLSeconds int `yaml:"partners_cache_ttl_seconds" split_words:"true"`
}

type TrackingConfig struct {
	RateLimit         int `yaml:"rate_limit" split_words:"true"`
	RateWindowSeconds int `yaml:"rate_window_seconds" split_words:"true"`
	HeartbeatSeconds  int `yaml:"heartbeat_seconds" split_words:"true"`
}

type WorkerConfig struct {
	ReconcileMinutes int `yaml:"reconcile_minutes" split_words:"true"`
}

func (b BookingConfig) LockTTL() time.Duration {
	return time.Duration(b.LockTTLSeconds) * time.Second
}

func (b BookingConfig) LockRetryDelay() time.Duration {
	return time.Duration(b.LockRetryDelayMS) * time.Millisecond
}

func (b BookingConfig) PartnersCacheTTL() time.Duration {
	return time.Duration(b.PartnersCacheTTLSeconds) * time.Second
}

func (t TrackingConfig) RateWindow() time.Duration {
	return time.Duration(t.RateWindowSeconds) * time.Second
}

func (t TrackingConfig) Heartbeat() time.Duration {
	return time.Duration(t.HeartbeatSeconds) * time.Second
}

func (m MinioConfig) LinkTTL() time.Duration {
	return time.Duration(m.LinkTTLMinutes) * time.Minute
}

// LoadConfig reads the YAML file at path, applies DELIVERYDESK_* environment
// overrides and fills defaults for anything left unset.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Booking.LockTTLSeconds == 0 {
		c.Booking.LockTTLSeconds = 30
	}
	if c.Booking.LockRetryDelayMS == 0 {
		c.Booking.LockRetryDelayMS = 100
	}
	if c.Booking.LockMaxRetries == 0 {
		c.Booking.LockMaxRetries = 50
	}
	if c.Booking.PartnersCacheTTLSeconds == 0 {
		c.Booking.PartnersCacheTTLSeconds = 5
	}
	if c.Tracking.RateLimit == 0 {
		c.Tracking.RateLimit = 6
	}
	if c.Tracking.RateWindowSeconds == 0 {
		c.Tracking.RateWindowSeconds = 60
	}
	if c.Tracking.HeartbeatSeconds == 0 {
		c.Tracking.HeartbeatSeconds = 30
	}
	if c.Minio.LinkTTLMinutes == 0 {
		c.Minio.LinkTTLMinutes = 15
	}
	if c.Worker.ReconcileMinutes == 0 {
		c.Worker.ReconcileMinutes = 10
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required"))
	}
	if c.Database.Host == "" {
		errs = append(errs, errors.New("database.host is required"))
	}
	if c.Booking.LockRetryDelay()*time.Duration(c.Booking.LockMaxRetries) <= 0 {
		errs = append(errs, errors.New("booking lock retry budget must be positive"))
	}
	if c.Tracking.RateLimit < 0 {
		errs = append(errs, errors.New("tracking.rate_limit must not be negative"))
	}
	if c.Tracking.HeartbeatSeconds < 0 {
		errs = append(errs, errors.New("tracking.heartbeat_seconds must not be negative"))
	}
	if c.Worker.ReconcileMinutes < 0 {
		errs = append(errs, errors.New("worker.reconcile_minutes must not be negative"))
	}
	return errors.Join(errs...)
}
