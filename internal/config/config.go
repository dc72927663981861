package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-kiosk/internal/pkg/validator"
	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type Config struct {
	App           AppConfig
	Store         StoreConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	AttendanceAPI AttendanceAPIConfig
	Policy        PolicyConfig
	Session       SessionConfig
	HRAuth        HRAuthConfig
	RateLimit     RateLimitConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Name           string
	Version        string
	Port           int
	Env            string
	LogLevel       string
	AllowedOrigins []string
	SecureCookies  bool
}

// StoreConfig selects where device sessions live
type StoreConfig struct {
	Type string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

type RedisConfig struct {
	Host       string
	Port       int
	Password   string
	DB         int
	MaxRetries int
}

type AttendanceAPIConfig struct {
	BaseURL    string
	Timeout    time.Duration
	RadiusUnit string
}

// PolicyConfig holds the attendance rules applied on the kiosk
type PolicyConfig struct {
	ClockInDeadline  string
	Timezone         string
	GeoLocateTimeout time.Duration
	WorkflowTimeout  time.Duration
}

type SessionConfig struct {
	TTL             time.Duration
	InFlightTTL     time.Duration
	DeviceCookieTTL time.Duration
	Retention       time.Duration
	PurgeInterval   time.Duration
}

// HRAuthConfig verifies the tokens the identity service issues to HR staff
type HRAuthConfig struct {
	Secret string
	Roles  []string
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
		slog.Debug("No .env file found, using environment")
	}

	var p parser
	config := &Config{}

	config.App = AppConfig{
		Name:           getEnv("APP_NAME", "attendance-kiosk"),
		Version:        getEnv("APP_VERSION", "v1.0.0"),
		Port:           p.getInt("APP_PORT", 8080),
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		SecureCookies:  p.getBool("SECURE_COOKIES", false),
	}

	config.Store = StoreConfig{
		Type: strings.ToLower(getEnv("SESSION_STORE", StoreMemory)),
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     p.getInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "attendance_kiosk"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(p.getInt("DB_MAX_CONNS", 10)),
		MinConns: int32(p.getInt("DB_MIN_CONNS", 1)),
	}

	config.Redis = RedisConfig{
		Host:       getEnv("REDIS_HOST", "localhost"),
		Port:       p.getInt("REDIS_PORT", 6379),
		Password:   getEnv("REDIS_PASSWORD", ""),
		DB:         p.getInt("REDIS_DB", 0),
		MaxRetries: p.getInt("REDIS_MAX_RETRIES", 3),
	}

	config.AttendanceAPI = AttendanceAPIConfig{
		BaseURL:    strings.TrimRight(getEnv("ATTENDANCE_API_URL", ""), "/"),
		Timeout:    p.getDuration("ATTENDANCE_API_TIMEOUT", 15*time.Second),
		RadiusUnit: strings.ToLower(getEnv("GPS_RADIUS_UNIT", "m")),
	}

	config.Policy = PolicyConfig{
		ClockInDeadline:  getEnv("CLOCK_IN_DEADLINE", "10:00"),
		Timezone:         getEnv("TIMEZONE", "Local"),
		GeoLocateTimeout: p.getDuration("GEO_LOCATE_TIMEOUT", 10*time.Second),
		WorkflowTimeout:  p.getDuration("WORKFLOW_TIMEOUT", 60*time.Second),
	}

	config.Session = SessionConfig{
		TTL:             p.getDuration("SESSION_TTL", 36*time.Hour),
		InFlightTTL:     p.getDuration("INFLIGHT_LOCK_TTL", 90*time.Second),
		DeviceCookieTTL: p.getDuration("DEVICE_COOKIE_TTL", 365*24*time.Hour),
		Retention:       p.getDuration("SESSION_RETENTION", 7*24*time.Hour),
		PurgeInterval:   p.getDuration("SESSION_PURGE_INTERVAL", time.Hour),
	}

	config.HRAuth = HRAuthConfig{
		Secret: getEnv("HR_JWT_SECRET", ""),
		Roles:  getEnvSlice("HR_ROLES", nil),
	}

	config.RateLimit = RateLimitConfig{
		RequestsPerSecond: p.getFloat("RATE_LIMIT_RPS", 2),
		Burst:             p.getInt("RATE_LIMIT_BURST", 10),
	}

	if p.err != nil {
		return nil, p.err
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.AttendanceAPI.BaseURL == "" {
		return fmt.Errorf("ATTENDANCE_API_URL is required")
	}
	if c.HRAuth.Secret == "" {
		return fmt.Errorf("HR_JWT_SECRET is required")
	}
	if !validator.IsInSlice(c.AttendanceAPI.RadiusUnit, []string{"m", "km"}) {
		return fmt.Errorf("GPS_RADIUS_UNIT must be m or km")
	}
	if _, ok := validator.IsValidClockTime(c.Policy.ClockInDeadline); !ok {
		return fmt.Errorf("CLOCK_IN_DEADLINE must be HH:MM")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	switch c.Store.Type {
	case StoreMemory, StoreRedis:
	case StorePostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required when SESSION_STORE=postgres")
		}
	default:
		return fmt.Errorf("SESSION_STORE must be one of memory, redis, postgres")
	}

	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

// Location resolves the timezone the deadline and day boundaries are evaluated in.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Policy.Timezone)
}

// LogLevel parses App.LogLevel, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.App.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	var result []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}

// parser keeps the first conversion error so Load can report it once.
type parser struct {
	err error
}

func (p *parser) getInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
	return v
}

func (p *parser) getFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
	return v
}

func (p *parser) getBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
	return v
}

func (p *parser) getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
	return v
}
