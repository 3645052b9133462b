package config

import (
	"errors"
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
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Session    SessionConfig
	Storage    StorageConfig
	Exports    ExportsConfig
	FaceRecog  FaceRecognitionConfig
	BulkUpload BulkUploadConfig
	Realtime   RealtimeConfig
	Cron       CronConfig
}

type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Name          string
	SSLMode       string
	MaxOpenConns  int
	MaxIdleConns  int
	MigrationsDir string
}

type RedisConfig struct {
	Enabled   bool
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SessionConfig tunes the active-session read-through cache.
type SessionConfig struct {
	CacheTTL time.Duration
}

// StorageConfig selects where request attachments are kept.
type StorageConfig struct {
	Driver           string
	LocalDir         string
	SignedURLSecret  string
	SignedURLTTL     time.Duration
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
	S3               S3Config
}

// S3Config addresses an S3 compatible bucket.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
	UsePathStyle    bool
}

// ExportsConfig controls timetable export files.
type ExportsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	MaxAge          time.Duration
}

// FaceRecognitionConfig points at the remote face detection service.
type FaceRecognitionConfig struct {
	Enabled    bool
	BaseURL    string
	Timeout    time.Duration
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// BulkUploadConfig governs spreadsheet user imports.
type BulkUploadConfig struct {
	EmailDomain      string
	MaxRows          int
	MaxFileSizeBytes int64
	PasswordLength   int
}

// RealtimeConfig tunes the websocket change feed.
type RealtimeConfig struct {
	Enabled      bool
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration
}

// CronConfig schedules periodic maintenance jobs.
type CronConfig struct {
	Enabled            bool
	ExportCleanupSpec  string
	InvariantAuditSpec string
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:          v.GetString("DB_HOST"),
		Port:          v.GetInt("DB_PORT"),
		User:          v.GetString("DB_USER"),
		Password:      v.GetString("DB_PASSWORD"),
		Name:          v.GetString("DB_NAME"),
		SSLMode:       v.GetString("DB_SSL_MODE"),
		MaxOpenConns:  v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:  v.GetInt("DB_MAX_IDLE_CONNS"),
		MigrationsDir: v.GetString("DB_MIGRATIONS_DIR"),
	}

	cfg.Redis = RedisConfig{
		Enabled:   v.GetBool("ENABLE_REDIS"),
		Host:      v.GetString("REDIS_HOST"),
		Port:      v.GetInt("REDIS_PORT"),
		Password:  v.GetString("REDIS_PASSWORD"),
		DB:        v.GetInt("REDIS_DB"),
		KeyPrefix: v.GetString("REDIS_KEY_PREFIX"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Session = SessionConfig{
		CacheTTL: parseDuration(v.GetString("SESSION_CACHE_TTL"), 5*time.Minute),
	}

	maxAttachment := v.GetInt64("STORAGE_MAX_FILE_SIZE")
	if maxAttachment <= 0 {
		maxAttachment = 10 * 1024 * 1024
	}
	cfg.Storage = StorageConfig{
		Driver:           strings.ToLower(v.GetString("STORAGE_DRIVER")),
		LocalDir:         v.GetString("STORAGE_LOCAL_DIR"),
		SignedURLSecret:  v.GetString("STORAGE_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("STORAGE_SIGNED_URL_TTL"), 30*time.Minute),
		MaxFileSizeBytes: maxAttachment,
		AllowedMIMEs:     splitAndTrim(v.GetString("STORAGE_ALLOWED_MIME_TYPES")),
		S3: S3Config{
			Bucket:          v.GetString("S3_BUCKET"),
			Region:          v.GetString("S3_REGION"),
			Endpoint:        v.GetString("S3_ENDPOINT"),
			AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
			Prefix:          v.GetString("S3_PREFIX"),
			UsePathStyle:    v.GetBool("S3_USE_PATH_STYLE"),
		},
	}

	cfg.Exports = ExportsConfig{
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), time.Hour),
		MaxAge:          parseDuration(v.GetString("EXPORTS_MAX_AGE"), 24*time.Hour),
	}

	cfg.FaceRecog = FaceRecognitionConfig{
		Enabled:    v.GetBool("ENABLE_FACE_RECOGNITION"),
		BaseURL:    strings.TrimRight(v.GetString("FACE_RECOGNITION_URL"), "/"),
		Timeout:    parseDuration(v.GetString("FACE_RECOGNITION_TIMEOUT"), 15*time.Second),
		Workers:    v.GetInt("FACE_RECOGNITION_WORKERS"),
		MaxRetries: v.GetInt("FACE_RECOGNITION_RETRIES"),
		RetryDelay: parseDuration(v.GetString("FACE_RECOGNITION_RETRY_DELAY"), 5*time.Second),
	}

	maxUpload := v.GetInt64("BULK_UPLOAD_MAX_FILE_SIZE")
	if maxUpload <= 0 {
		maxUpload = 5 * 1024 * 1024
	}
	cfg.BulkUpload = BulkUploadConfig{
		EmailDomain:      v.GetString("BULK_UPLOAD_EMAIL_DOMAIN"),
		MaxRows:          v.GetInt("BULK_UPLOAD_MAX_ROWS"),
		MaxFileSizeBytes: maxUpload,
		PasswordLength:   v.GetInt("BULK_UPLOAD_PASSWORD_LENGTH"),
	}

	cfg.Realtime = RealtimeConfig{
		Enabled:      v.GetBool("ENABLE_REALTIME"),
		SendBuffer:   v.GetInt("REALTIME_SEND_BUFFER"),
		WriteTimeout: parseDuration(v.GetString("REALTIME_WRITE_TIMEOUT"), 10*time.Second),
		PingInterval: parseDuration(v.GetString("REALTIME_PING_INTERVAL"), 30*time.Second),
	}

	cfg.Cron = CronConfig{
		Enabled:            v.GetBool("ENABLE_CRON"),
		ExportCleanupSpec:  v.GetString("CRON_EXPORT_CLEANUP"),
		InvariantAuditSpec: v.GetString("CRON_INVARIANT_AUDIT"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "school_admin")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_MIGRATIONS_DIR", "migrations")

	v.SetDefault("ENABLE_REDIS", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "school-admin")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SESSION_CACHE_TTL", "5m")

	v.SetDefault("STORAGE_DRIVER", "local")
	v.SetDefault("STORAGE_LOCAL_DIR", "./attachments")
	v.SetDefault("STORAGE_SIGNED_URL_SECRET", "dev_storage_secret")
	v.SetDefault("STORAGE_SIGNED_URL_TTL", "30m")
	v.SetDefault("STORAGE_MAX_FILE_SIZE", 10*1024*1024)
	v.SetDefault("STORAGE_ALLOWED_MIME_TYPES", "application/pdf,image/jpeg,image/png")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_PREFIX", "attachments")

	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "1h")
	v.SetDefault("EXPORTS_MAX_AGE", "24h")

	v.SetDefault("ENABLE_FACE_RECOGNITION", false)
	v.SetDefault("FACE_RECOGNITION_URL", "http://localhost:5000")
	v.SetDefault("FACE_RECOGNITION_TIMEOUT", "15s")
	v.SetDefault("FACE_RECOGNITION_WORKERS", 2)
	v.SetDefault("FACE_RECOGNITION_RETRIES", 3)
	v.SetDefault("FACE_RECOGNITION_RETRY_DELAY", "5s")

	v.SetDefault("BULK_UPLOAD_EMAIL_DOMAIN", "school.edu.ph")
	v.SetDefault("BULK_UPLOAD_MAX_ROWS", 2000)
	v.SetDefault("BULK_UPLOAD_MAX_FILE_SIZE", 5*1024*1024)
	v.SetDefault("BULK_UPLOAD_PASSWORD_LENGTH", 10)

	v.SetDefault("ENABLE_REALTIME", true)
	v.SetDefault("REALTIME_SEND_BUFFER", 64)
	v.SetDefault("REALTIME_WRITE_TIMEOUT", "10s")
	v.SetDefault("REALTIME_PING_INTERVAL", "30s")

	v.SetDefault("ENABLE_CRON", true)
	v.SetDefault("CRON_EXPORT_CLEANUP", "@every 1h")
	v.SetDefault("CRON_INVARIANT_AUDIT", "@every 15m")
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
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
