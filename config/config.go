package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string   `env:"APP_PORT"`
	BaseURL            string   `env:"BASE_URL" validate:"required,url"`
	JWTSecret          string   `env:"JWT_SECRET" validate:"required"`
	SessionTTLHours    int      `env:"SESSION_TTL_HOURS" validate:"gt=0"`
	RateLimitPerMinute int      `env:"RATE_LIMIT_PER_MINUTE" validate:"gt=0"`
	AllowedOrigins     []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	// Accounts whose email matches are promoted to approved admins on login.
	AdminEmails []string `env:"ADMIN_EMAILS" envSeparator:","`

	// Gin framework configuration
	GinMode string `env:"GIN_MODE" validate:"oneof=debug release test"`
	GinPath string `env:"GIN_PATH"`

	// Database
	DBDriver    string `env:"DB_DRIVER" validate:"oneof=mysql postgres sqlite"`
	DatabaseURI string `env:"DATABASE_URI"`
	DBHost      string `env:"DB_HOST"`
	DBPort      string `env:"DB_PORT"`
	DBUser      string `env:"DB_USER"`
	DBPassword  string `env:"DB_PASSWORD"`
	DBName      string `env:"DB_NAME"`
	SQLitePath  string `env:"SQLITE_PATH"`

	// Redis is optional; an empty host keeps every Redis-backed helper on its fallback.
	RedisHost     string `env:"REDIS_HOST"`
	RedisPort     int    `env:"REDIS_PORT"`
	RedisDB       int    `env:"REDIS_DB"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	// Logging configuration
	LogLevel      string `env:"LOG_LEVEL" validate:"oneof=debug info warn error silent"`
	LogPath       string `env:"LOG_PATH"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS"`
	LogMaxAgeDays int    `env:"LOG_MAX_AGE_DAYS"`
	LogCompress   bool   `env:"LOG_COMPRESS"`

	// Uploaded file byte store
	UploadDir            string `env:"UPLOAD_DIR" validate:"required"`
	MaxUploadMB          int    `env:"MAX_UPLOAD_MB" validate:"gt=0"`
	PurgeExpiredEnabled  bool   `env:"PURGE_EXPIRED_ENABLED"`
	PurgeIntervalMinutes int    `env:"PURGE_INTERVAL_MINUTES" validate:"gt=0"`

	// Daily creation counters: "redis" or "database"
	QuotaBackend string `env:"QUOTA_BACKEND" validate:"oneof=redis database"`

	// OAuth providers
	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	OAuthRedirectBase  string `env:"OAUTH_REDIRECT_BASE_URL"`

	// Registration security
	RegisterCaptchaEnabled bool `env:"REGISTER_CAPTCHA_ENABLED"`
}

// fileConfig mirrors the grouped layout of config/config.json.
type fileConfig struct {
	App struct {
		AppPort            string
		BaseURL            string
		JWTSecret          string
		SessionTTLHours    int
		RateLimitPerMinute int
		AllowedOrigins     []string
		AdminEmails        []string
		OAuthRedirectBase  string
	} `json:"app"`
	Gin struct {
		Mode    string
		LogPath string
	} `json:"gin"`
	Database struct {
		Driver      string
		DatabaseURI string
		DBHost      string
		DBPort      string
		DBUser      string
		DBPassword  string
		DBName      string
		SQLitePath  string
	} `json:"database"`
	Redis struct {
		RedisHost     string
		RedisPort     int
		RedisDB       int
		RedisPassword string
	} `json:"redis"`
	Log struct {
		Level      string
		Path       string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
		Compress   bool
	} `json:"log"`
	Uploads struct {
		Dir                  string
		MaxUploadMB          int
		PurgeExpiredEnabled  bool
		PurgeIntervalMinutes int
	} `json:"uploads"`
	Quota struct {
		Backend string
	} `json:"quota"`
	OAuth struct {
		GitHubClientID     string
		GitHubClientSecret string
		GoogleClientID     string
		GoogleClientSecret string
	} `json:"oauth"`
	Register struct {
		CaptchaEnabled bool
	} `json:"register"`
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	c, err := LoadFrom(filepath.Join("config", "config.json"))
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	cfg = c
	loaded = true
	return cfg
}

// LoadFrom builds a configuration with precedence: JSON file -> defaults -> .env -> environment.
func LoadFrom(path string) (AppConfig, error) {
	var c AppConfig

	if err := loadJSONConfig(path, &c); err != nil {
		return c, fmt.Errorf("read %s: %w", path, err)
	}

	applyDefaults(&c)

	// .env never overrides variables already present in the process environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("ignoring unreadable .env: %v", err)
	}

	if err := env.Parse(&c); err != nil {
		return c, fmt.Errorf("parse environment: %w", err)
	}
	if c.OAuthRedirectBase == "" {
		c.OAuthRedirectBase = c.BaseURL
	}
	if c.DBPort == "" {
		switch c.DBDriver {
		case "postgres":
			c.DBPort = "5432"
		default:
			c.DBPort = "3306"
		}
	}

	if err := validator.New().Struct(c); err != nil {
		return c, err
	}
	return c, nil
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Set installs an already built configuration, bypassing Load.
func Set(c AppConfig) {
	cfg = c
	loaded = true
}

// loadJSONConfig reads JSON file into out if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var fc fileConfig
	if err := json.NewDecoder(f).Decode(&fc); err != nil {
		return err
	}

	out.AppPort = fc.App.AppPort
	out.BaseURL = fc.App.BaseURL
	out.JWTSecret = fc.App.JWTSecret
	out.SessionTTLHours = fc.App.SessionTTLHours
	out.RateLimitPerMinute = fc.App.RateLimitPerMinute
	out.AllowedOrigins = fc.App.AllowedOrigins
	out.AdminEmails = fc.App.AdminEmails
	out.OAuthRedirectBase = fc.App.OAuthRedirectBase

	out.GinMode = fc.Gin.Mode
	out.GinPath = fc.Gin.LogPath

	out.DBDriver = fc.Database.Driver
	out.DatabaseURI = fc.Database.DatabaseURI
	out.DBHost = fc.Database.DBHost
	out.DBPort = fc.Database.DBPort
	out.DBUser = fc.Database.DBUser
	out.DBPassword = fc.Database.DBPassword
	out.DBName = fc.Database.DBName
	out.SQLitePath = fc.Database.SQLitePath

	out.RedisHost = fc.Redis.RedisHost
	out.RedisPort = fc.Redis.RedisPort
	out.RedisDB = fc.Redis.RedisDB
	out.RedisPassword = fc.Redis.RedisPassword

	out.LogLevel = fc.Log.Level
	out.LogPath = fc.Log.Path
	out.LogMaxSizeMB = fc.Log.MaxSizeMB
	out.LogMaxBackups = fc.Log.MaxBackups
	out.LogMaxAgeDays = fc.Log.MaxAgeDays
	out.LogCompress = fc.Log.Compress

	out.UploadDir = fc.Uploads.Dir
	out.MaxUploadMB = fc.Uploads.MaxUploadMB
	out.PurgeExpiredEnabled = fc.Uploads.PurgeExpiredEnabled
	out.PurgeIntervalMinutes = fc.Uploads.PurgeIntervalMinutes

	out.QuotaBackend = fc.Quota.Backend

	out.GitHubClientID = fc.OAuth.GitHubClientID
	out.GitHubClientSecret = fc.OAuth.GitHubClientSecret
	out.GoogleClientID = fc.OAuth.GoogleClientID
	out.GoogleClientSecret = fc.OAuth.GoogleClientSecret

	out.RegisterCaptchaEnabled = fc.Register.CaptchaEnabled
	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8080"
	}
	if c.SessionTTLHours == 0 {
		c.SessionTTLHours = 72
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "sharebox"
	}
	if c.SQLitePath == "" {
		c.SQLitePath = "data/sharebox.db"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.UploadDir == "" {
		c.UploadDir = "uploads"
	}
	if c.MaxUploadMB == 0 {
		c.MaxUploadMB = 512
	}
	if c.PurgeIntervalMinutes == 0 {
		c.PurgeIntervalMinutes = 60
	}
	if c.QuotaBackend == "" {
		c.QuotaBackend = "database"
	}
}

// RedisEnabled reports whether a Redis server has been configured.
func (c AppConfig) RedisEnabled() bool {
	return c.RedisHost != ""
}
