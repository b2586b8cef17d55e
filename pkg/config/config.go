package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env          string
	Port         int
	APIPrefix    string
	StoreTimeout time.Duration

	Database DatabaseConfig
	Redis    RedisConfig
	Session  SessionConfig
	Auth     AuthConfig
	Books    BooksConfig
	Sheets   SheetsConfig
	CORS     CORSConfig
	Log      LogConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// SessionConfig controls signed session tokens and their storage hygiene.
type SessionConfig struct {
	Secret        string
	TTL           time.Duration
	Issuer        string
	PurgeInterval time.Duration
}

// AuthConfig covers registration and login policy.
type AuthConfig struct {
	StaffKeyword     string
	LoginMaxAttempts int
	LoginLockout     time.Duration
}

// BooksConfig tunes the catalog listing cache.
type BooksConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// SheetsConfig configures the Google Sheets importer.
type SheetsConfig struct {
	APIKey       string
	DefaultRange string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.StoreTimeout = parseDuration(v.GetString("STORE_TIMEOUT"), 5*time.Second)

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Session = SessionConfig{
		Secret:        v.GetString("SESSION_SECRET"),
		TTL:           parseDuration(v.GetString("SESSION_TTL"), 7*24*time.Hour),
		Issuer:        v.GetString("SESSION_ISSUER"),
		PurgeInterval: parseDuration(v.GetString("SESSION_PURGE_INTERVAL"), time.Hour),
	}

	cfg.Auth = AuthConfig{
		StaffKeyword:     v.GetString("STAFF_REGISTRATION_KEYWORD"),
		LoginMaxAttempts: v.GetInt("LOGIN_MAX_ATTEMPTS"),
		LoginLockout:     parseDuration(v.GetString("LOGIN_LOCKOUT_WINDOW"), 15*time.Minute),
	}

	cfg.Books = BooksConfig{
		CacheEnabled: v.GetBool("ENABLE_BOOKS_CACHE"),
		CacheTTL:     parseDuration(v.GetString("BOOKS_CACHE_TTL"), 30*time.Second),
	}

	cfg.Sheets = SheetsConfig{
		APIKey:       v.GetString("SHEETS_API_KEY"),
		DefaultRange: v.GetString("SHEETS_DEFAULT_RANGE"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 3001)
	v.SetDefault("API_PREFIX", "/api")
	v.SetDefault("STORE_TIMEOUT", "5s")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "library_catalog")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SESSION_SECRET", "dev_session_secret")
	v.SetDefault("SESSION_TTL", "168h")
	v.SetDefault("SESSION_ISSUER", "library-catalog-api")
	v.SetDefault("SESSION_PURGE_INTERVAL", "1h")

	v.SetDefault("STAFF_REGISTRATION_KEYWORD", "")
	v.SetDefault("LOGIN_MAX_ATTEMPTS", 5)
	v.SetDefault("LOGIN_LOCKOUT_WINDOW", "15m")

	v.SetDefault("ENABLE_BOOKS_CACHE", false)
	v.SetDefault("BOOKS_CACHE_TTL", "30s")

	v.SetDefault("SHEETS_API_KEY", "")
	v.SetDefault("SHEETS_DEFAULT_RANGE", "Sheet1")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
