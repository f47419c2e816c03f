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

// Sink drivers understood by the attendance ledger.
const (
	SinkDriverXLSX     = "xlsx"
	SinkDriverCSV      = "csv"
	SinkDriverPostgres = "postgres"
	SinkDriverSQLite   = "sqlite"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	SQLite     SQLiteConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Roster     RosterConfig
	Attendance AttendanceConfig
	Payload    PayloadConfig
	Capture    CaptureConfig
	Export     ExportConfig
	Upload     UploadConfig
	Cache      ReportCacheConfig
	Operator   OperatorConfig
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
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RosterConfig locates the enrolment spreadsheet.
type RosterConfig struct {
	Path     string
	Required bool
}

// AttendanceConfig selects where presence rows are appended.
type AttendanceConfig struct {
	SinkDriver            string
	SinkPath              string
	SuppressDuplicateRows bool
}

// PayloadConfig toggles accepted QR payload encodings.
type PayloadConfig struct {
	AcceptJSON bool
}

// CaptureConfig drives the frame polling loop.
type CaptureConfig struct {
	Enabled  bool
	SpoolDir string
	Interval time.Duration
}

// ExportConfig controls absence export rendering and retention.
type ExportConfig struct {
	Dir             string
	Format          string
	FileName        string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	Retention       time.Duration
}

// UploadConfig configures publishing of the absence export.
type UploadConfig struct {
	Enabled         bool
	CredentialsFile string
	DisplayName     string
	Async           bool
	Retries         int
}

// ReportCacheConfig governs the Redis snapshot of the latest absence report.
type ReportCacheConfig struct {
	Enabled   bool
	TTL       time.Duration
	Namespace string
}

// OperatorConfig holds the operator passphrase hash used by /auth/token.
type OperatorConfig struct {
	PasswordHash string
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

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects setting combinations that can only fail at run time.
func (c *Config) Validate() error {
	if c.Upload.Enabled && c.Export.Format == "pdf" {
		return errors.New("UPLOAD_ENABLED requires EXPORT_FORMAT xlsx or csv: pdf exports cannot be published as a spreadsheet")
	}
	return nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.SQLite = SQLiteConfig{Path: v.GetString("SQLITE_PATH")}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Roster = RosterConfig{
		Path:     v.GetString("ROSTER_PATH"),
		Required: v.GetBool("ROSTER_REQUIRED"),
	}

	cfg.Attendance = AttendanceConfig{
		SinkDriver:            strings.ToLower(strings.TrimSpace(v.GetString("ATTENDANCE_SINK_DRIVER"))),
		SinkPath:              v.GetString("ATTENDANCE_SINK_PATH"),
		SuppressDuplicateRows: v.GetBool("ATTENDANCE_SUPPRESS_DUPLICATE_ROWS"),
	}

	cfg.Payload = PayloadConfig{AcceptJSON: v.GetBool("PAYLOAD_ACCEPT_JSON")}

	cfg.Capture = CaptureConfig{
		Enabled:  v.GetBool("CAPTURE_ENABLED"),
		SpoolDir: v.GetString("CAPTURE_SPOOL_DIR"),
		Interval: parseDuration(v.GetString("CAPTURE_INTERVAL"), 100*time.Millisecond),
	}

	cfg.Export = ExportConfig{
		Dir:             v.GetString("EXPORT_DIR"),
		Format:          strings.ToLower(strings.TrimSpace(v.GetString("EXPORT_FORMAT"))),
		FileName:        v.GetString("EXPORT_FILENAME"),
		SignedURLSecret: v.GetString("EXPORT_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORT_SIGNED_URL_TTL"), 24*time.Hour),
		Retention:       parseDuration(v.GetString("EXPORT_RETENTION"), 7*24*time.Hour),
	}

	retries := v.GetInt("UPLOAD_RETRIES")
	if retries < 0 {
		retries = 0
	}
	cfg.Upload = UploadConfig{
		Enabled:         v.GetBool("UPLOAD_ENABLED"),
		CredentialsFile: v.GetString("UPLOAD_CREDENTIALS_FILE"),
		DisplayName:     v.GetString("UPLOAD_DISPLAY_NAME"),
		Async:           v.GetBool("UPLOAD_ASYNC"),
		Retries:         retries,
	}

	cfg.Cache = ReportCacheConfig{
		Enabled:   v.GetBool("ENABLE_REPORT_CACHE"),
		TTL:       parseDuration(v.GetString("REPORT_CACHE_TTL"), 12*time.Hour),
		Namespace: strings.Trim(v.GetString("REPORT_CACHE_NAMESPACE"), ": "),
	}

	cfg.Operator = OperatorConfig{PasswordHash: v.GetString("OPERATOR_PASSWORD_HASH")}

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
	v.SetDefault("DB_NAME", "attendance")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 4)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)
	v.SetDefault("SQLITE_PATH", "attendance.db")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ROSTER_PATH", "alunos.xlsx")
	v.SetDefault("ROSTER_REQUIRED", false)

	v.SetDefault("ATTENDANCE_SINK_DRIVER", SinkDriverXLSX)
	v.SetDefault("ATTENDANCE_SINK_PATH", "presenca.xlsx")
	v.SetDefault("ATTENDANCE_SUPPRESS_DUPLICATE_ROWS", false)

	v.SetDefault("PAYLOAD_ACCEPT_JSON", true)

	v.SetDefault("CAPTURE_ENABLED", false)
	v.SetDefault("CAPTURE_SPOOL_DIR", "./frames")
	v.SetDefault("CAPTURE_INTERVAL", "100ms")

	v.SetDefault("EXPORT_DIR", "./exports")
	v.SetDefault("EXPORT_FORMAT", "xlsx")
	v.SetDefault("EXPORT_FILENAME", "faltas")
	v.SetDefault("EXPORT_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORT_SIGNED_URL_TTL", "24h")
	v.SetDefault("EXPORT_RETENTION", "168h")

	v.SetDefault("UPLOAD_ENABLED", false)
	v.SetDefault("UPLOAD_CREDENTIALS_FILE", "client_ico.json")
	v.SetDefault("UPLOAD_DISPLAY_NAME", "Lista de Faltas")
	v.SetDefault("UPLOAD_ASYNC", true)
	v.SetDefault("UPLOAD_RETRIES", 0)

	v.SetDefault("ENABLE_REPORT_CACHE", false)
	v.SetDefault("REPORT_CACHE_TTL", "12h")
	v.SetDefault("REPORT_CACHE_NAMESPACE", "attendance")

	v.SetDefault("OPERATOR_PASSWORD_HASH", "")
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
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
