package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Booking  BookingConfig  `yaml:"booking"`
	Lock     LockConfig     `yaml:"lock"`
	Sweeper  SweeperConfig  `yaml:"sweeper"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port                  int      `yaml:"port"`
	RateLimitPerSec       float64  `yaml:"rate_limit_per_sec"`
	RateLimitBurst        int      `yaml:"rate_limit_burst"`
	CacheTTLSeconds       int      `yaml:"cache_ttl_seconds"`
	AllowedOrigins        []string `yaml:"allowed_origins"`
	RequestTimeoutSeconds int      `yaml:"request_timeout_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres or sqlite
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogLevel               string `yaml:"log_level"`
}

// AuthConfig holds token signing and password hashing settings.
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret"`
	TokenTTLMinutes int           `yaml:"token_ttl_minutes"`
	TokenTTL        time.Duration `yaml:"-"`
	BcryptCost      int           `yaml:"bcrypt_cost"`
	CookieName      string        `yaml:"cookie_name"`
	SecureCookie    bool          `yaml:"secure_cookie"`
}

// BookingConfig holds the reservation rules.
type BookingConfig struct {
	Timezone           string        `yaml:"timezone"`
	LockTimeoutSeconds int           `yaml:"lock_timeout_seconds"`
	LockTimeout        time.Duration `yaml:"-"`
	MinGuests          int           `yaml:"min_guests"`
	MaxGuests          int           `yaml:"max_guests"`
}

// LockConfig selects the backend used for per-restaurant exclusive scopes.
type LockConfig struct {
	Backend         string `yaml:"backend"` // memory or redis
	RedisAddr       string `yaml:"redis_addr"`
	RedisPassword   string `yaml:"redis_password"`
	RedisDB         int    `yaml:"redis_db"`
	TTLSeconds      int    `yaml:"ttl_seconds"`
	RetryIntervalMS int    `yaml:"retry_interval_ms"`
}

// SweeperConfig holds the retention sweeper configuration.
type SweeperConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"` // Ignored by YAML parser
	RetentionDays   int           `yaml:"retention_days"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	applyEnv(&cfg)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ErrMissingJWTSecret is returned when no signing secret is configured.
var ErrMissingJWTSecret = errors.New("auth.jwt_secret is not set (configure it in the YAML file or via JWT_SECRET)")

// Validate rejects configurations the server must not start with.
func (cfg *Config) Validate() error {
	if cfg.Auth.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

// applyEnv lets deployment secrets live outside the YAML file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Lock.RedisAddr = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		} else {
			log.Printf("ignoring invalid PORT %q: %v", v, err)
		}
	}
}

// ApplyDefaults fills zero or invalid values and derives the duration fields.
func (cfg *Config) ApplyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}
	if cfg.Server.RequestTimeoutSeconds <= 0 {
		cfg.Server.RequestTimeoutSeconds = 15
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.MaxOpenConns <= 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns <= 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}

	if cfg.Auth.TokenTTLMinutes <= 0 {
		cfg.Auth.TokenTTLMinutes = 24 * 60
	}
	cfg.Auth.TokenTTL = time.Duration(cfg.Auth.TokenTTLMinutes) * time.Minute
	if cfg.Auth.BcryptCost <= 0 {
		cfg.Auth.BcryptCost = 10
	}
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = "tablebook_token"
	}

	if cfg.Booking.Timezone == "" {
		cfg.Booking.Timezone = "UTC"
	}
	if cfg.Booking.LockTimeoutSeconds <= 0 {
		cfg.Booking.LockTimeoutSeconds = 5
	}
	cfg.Booking.LockTimeout = time.Duration(cfg.Booking.LockTimeoutSeconds) * time.Second
	if cfg.Booking.MinGuests <= 0 {
		cfg.Booking.MinGuests = 1
	}
	if cfg.Booking.MaxGuests < cfg.Booking.MinGuests {
		if cfg.Booking.MaxGuests != 0 {
			log.Printf("booking.max_guests %d is below min_guests %d; defaulting to 20", cfg.Booking.MaxGuests, cfg.Booking.MinGuests)
		}
		cfg.Booking.MaxGuests = 20
	}

	if cfg.Lock.Backend == "" {
		cfg.Lock.Backend = "memory"
	}
	if cfg.Lock.TTLSeconds <= 0 {
		cfg.Lock.TTLSeconds = 30
	}
	// Locks are never renewed, so one must outlive the request holding it.
	if cfg.Lock.TTLSeconds <= cfg.Server.RequestTimeoutSeconds {
		raised := 2 * cfg.Server.RequestTimeoutSeconds
		log.Printf("lock.ttl_seconds %d does not exceed server.request_timeout_seconds %d; raising it to %d",
			cfg.Lock.TTLSeconds, cfg.Server.RequestTimeoutSeconds, raised)
		cfg.Lock.TTLSeconds = raised
	}
	if cfg.Lock.RetryIntervalMS <= 0 {
		cfg.Lock.RetryIntervalMS = 25
	}

	if cfg.Sweeper.IntervalSeconds <= 0 {
		cfg.Sweeper.IntervalSeconds = 3600
	}
	cfg.Sweeper.Interval = time.Duration(cfg.Sweeper.IntervalSeconds) * time.Second
	if cfg.Sweeper.RetentionDays <= 0 {
		log.Printf("sweeper.retention_days is not set or invalid; defaulting to 90")
		cfg.Sweeper.RetentionDays = 90
	}
}
