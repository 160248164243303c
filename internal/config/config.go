package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported record backends.
const (
	BackendMemory   = "memory"
	BackendMongoDB  = "mongodb"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Supported identity providers.
const (
	AuthFirebase = "firebase"
	AuthStatic   = "static"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Shop      ShopConfig
	Store     StoreConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Postgres  PostgresConfig
	Auth      AuthConfig
	Reporting ReportingConfig
	Sheets    SheetsConfig
	WhatsApp  WhatsAppConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port               string
	Env                string
	AdminPath          string
	WelcomeDuration    time.Duration
	SessionTTL         time.Duration
	DashboardIdle      time.Duration
	MaxSessions        int
	CORSAllowedOrigins []string
}

// ShopConfig is the identity printed on screens and reports.
type ShopConfig struct {
	Name   string
	Branch string
}

// StoreConfig selects the record backend.
type StoreConfig struct {
	Backend string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI          string
	DBName       string
	PollInterval time.Duration
}

// RedisConfig holds settings for the Redis backend.
type RedisConfig struct {
	URL    string
	Prefix string
}

// PostgresConfig holds settings for the PostgreSQL backend.
type PostgresConfig struct {
	DatabaseURL string
}

// AuthConfig selects and configures the admin identity provider.
type AuthConfig struct {
	Provider          string
	FirebaseAPIKey    string
	FirebaseBaseURL   string
	AdminEmail        string
	AdminPasswordHash string
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule   string
	Timezone       string
	ArchiveMongoDB bool
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Enabled reports whether close-out rows should be appended to a spreadsheet.
func (s SheetsConfig) Enabled() bool {
	return s.CredentialsPath != "" && s.SpreadsheetID != ""
}

// WhatsAppConfig contains credentials for the Meta WhatsApp Cloud API.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
	APIVersion    string
	OwnerID       string
}

// Enabled reports whether the owner gets a close-out message.
func (w WhatsAppConfig) Enabled() bool {
	return w.AccessToken != "" && w.PhoneNumberID != "" && w.OwnerID != ""
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// A missing .env is fine when the environment is set directly.
		_ = godotenv.Load()
	}

	welcome, err := getDurationWithDefault("WELCOME_DURATION", 4*time.Second)
	if err != nil {
		return nil, err
	}
	sessionTTL, err := getDurationWithDefault("SESSION_TTL", 12*time.Hour)
	if err != nil {
		return nil, err
	}
	dashboardIdle, err := getDurationWithDefault("DASHBOARD_IDLE", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	maxSessions, err := getIntWithDefault("MAX_SESSIONS", 5000)
	if err != nil {
		return nil, err
	}
	pollInterval, err := getDurationWithDefault("MONGODB_POLL_INTERVAL", 2*time.Second)
	if err != nil {
		return nil, err
	}
	archive, err := getBoolWithDefault("REPORT_ARCHIVE_MONGODB", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               getenvWithDefault("APP_PORT", "8080"),
			Env:                getenvWithDefault("APP_ENV", "production"),
			AdminPath:          getenvWithDefault("ADMIN_PATH", "/admin"),
			WelcomeDuration:    welcome,
			SessionTTL:         sessionTTL,
			DashboardIdle:      dashboardIdle,
			MaxSessions:        maxSessions,
			CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		},
		Shop: ShopConfig{
			Name:   getenvWithDefault("SHOP_NAME", "Stylish Cuts"),
			Branch: getenvWithDefault("SHOP_BRANCH", "Icen Shop"),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getenvWithDefault("STORE_BACKEND", BackendMemory)),
		},
		MongoDB: MongoDBConfig{
			URI:          os.Getenv("MONGODB_URI"),
			DBName:       getenvWithDefault("MONGODB_DB_NAME", "stylishcuts"),
			PollInterval: pollInterval,
		},
		Redis: RedisConfig{
			URL:    os.Getenv("REDIS_URL"),
			Prefix: getenvWithDefault("REDIS_PREFIX", "stylishcuts"),
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
		},
		Auth: AuthConfig{
			Provider:          strings.ToLower(getenvWithDefault("AUTH_PROVIDER", AuthStatic)),
			FirebaseAPIKey:    os.Getenv("FIREBASE_API_KEY"),
			FirebaseBaseURL:   getenvWithDefault("FIREBASE_AUTH_BASE_URL", "https://identitytoolkit.googleapis.com/v1"),
			AdminEmail:        os.Getenv("ADMIN_EMAIL"),
			AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		},
		Reporting: ReportingConfig{
			CronSchedule:   getenvWithDefault("REPORT_CRON_SCHEDULE", "0 21 * * *"),
			Timezone:       getenvWithDefault("TIMEZONE", "Africa/Accra"),
			ArchiveMongoDB: archive,
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			OwnerID:       os.Getenv("WHATSAPP_OWNER_ID"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}
	if !strings.HasPrefix(c.Server.AdminPath, "/") || c.Server.AdminPath == "/" {
		return errors.New("ADMIN_PATH must be an absolute path other than /")
	}
	if c.Server.MaxSessions < 1 {
		return errors.New("MAX_SESSIONS must be at least 1")
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendMongoDB:
		if c.MongoDB.URI == "" {
			return errors.New("MONGODB_URI must be provided for the mongodb backend")
		}
	case BackendRedis:
		if c.Redis.URL == "" {
			return errors.New("REDIS_URL must be provided for the redis backend")
		}
	case BackendPostgres:
		if c.Postgres.DatabaseURL == "" {
			return errors.New("DATABASE_URL must be provided for the postgres backend")
		}
	default:
		return fmt.Errorf("STORE_BACKEND %q is not supported", c.Store.Backend)
	}

	switch c.Auth.Provider {
	case AuthFirebase:
		if c.Auth.FirebaseAPIKey == "" {
			return errors.New("FIREBASE_API_KEY must be provided")
		}
	case AuthStatic:
		if c.Auth.AdminEmail == "" || c.Auth.AdminPasswordHash == "" {
			return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD_HASH must be provided")
		}
	default:
		return fmt.Errorf("AUTH_PROVIDER %q is not supported", c.Auth.Provider)
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}
	if c.Reporting.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}
	if c.Reporting.ArchiveMongoDB && c.MongoDB.URI == "" {
		return errors.New("MONGODB_URI must be provided when REPORT_ARCHIVE_MONGODB is set")
	}

	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_DATABASE_ID must be provided together")
	}

	if c.WhatsApp.AccessToken != "" {
		switch {
		case c.WhatsApp.PhoneNumberID == "":
			return errors.New("WHATSAPP_PHONE_NUMBER_ID must be provided")
		case c.WhatsApp.OwnerID == "":
			return errors.New("WHATSAPP_OWNER_ID must be provided")
		case c.WhatsApp.BaseURL == "":
			return errors.New("WHATSAPP_BASE_URL must not be empty")
		case c.WhatsApp.APIVersion == "":
			return errors.New("WHATSAPP_API_VERSION must not be empty")
		}
	}

	return nil
}

// Location resolves the reporting timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Reporting.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", c.Reporting.Timezone, err)
	}
	return loc, nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDurationWithDefault(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}

func getIntWithDefault(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getBoolWithDefault(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
