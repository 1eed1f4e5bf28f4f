package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	CORS        CORSConfig
	RateLimit   RateLimitConfig
	Log         LogConfig
	Redis       RedisConfig
	Metrics     MetricsConfig
	Billing     BillingConfig
	SMTP        SMTPConfig
	Google      GoogleConfig
	Admin       AdminConfig
	Idempotency IdempotencyConfig

	// EnvFile is the path of the .env file that was read, empty when none was found.
	EnvFile string
}

type AppConfig struct {
	Name        string
	Env         string
	Port        string
	Debug       bool
	BaseDomain  string
	FrontendURL string
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver        string
	Host          string
	Port          string
	Name          string
	User          string
	Password      string
	SSLMode       string
	Timezone      string
	SQLitePath    string
	MaxIdleConns  int
	MaxOpenConns  int
	SlowThreshold time.Duration
}

type JWTConfig struct {
	Secret        string
	Expiry        time.Duration
	RefreshExpiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

type RateLimitConfig struct {
	Requests int
	Duration int
}

type LogConfig struct {
	Level  string
	Format string
}

type RedisConfig struct {
	Enabled      bool
	Addr         string
	Password     string
	DB           int
	DashboardTTL time.Duration
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

// BillingConfig holds the defaults applied to invoice requests that omit them.
type BillingConfig struct {
	DefaultCurrency                string
	ApplyDiscountToDiscountedItems bool
}

type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
}

type GoogleConfig struct {
	ClientID           string
	ClientSecret       string
	RedirectURL        string
	FrontendSuccessURL string
	FrontendErrorURL   string
}

type AdminConfig struct {
	Email    string
	Password string
	Name     string
}

type IdempotencyConfig struct {
	TTL time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "invoicely-api")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_DEBUG", true)
	v.SetDefault("APP_BASE_DOMAIN", "localhost")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "invoicely")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_SQLITE_PATH", "invoicely.db")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_SLOW_THRESHOLD_MS", 200)

	v.SetDefault("JWT_SECRET", "change-this-secret-in-production")
	v.SetDefault("JWT_EXPIRY_HOURS", 24)
	v.SetDefault("JWT_REFRESH_EXPIRY_HOURS", 168)

	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("CORS_ALLOWED_METHODS", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
	v.SetDefault("CORS_ALLOWED_HEADERS", "Origin,Content-Type,Accept,Authorization,X-Request-ID,X-Tenant-ID,Idempotency-Key")

	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_DURATION", 60)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_DASHBOARD_TTL_SECONDS", 60)

	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("METRICS_PATH", "/metrics")

	v.SetDefault("BILLING_DEFAULT_CURRENCY", "USD")
	v.SetDefault("BILLING_APPLY_DISCOUNT_TO_DISCOUNTED_ITEMS", true)

	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_FROM_NAME", "Invoicely")

	v.SetDefault("IDEMPOTENCY_TTL_HOURS", 24)
}

// Load reads .env from the working directory and the process environment.
func Load() (*Config, error) {
	return LoadFrom(".env")
}

// LoadFrom reads the given env file (if present) with environment variables taking precedence.
func LoadFrom(envFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{}
	if err := v.ReadInConfig(); err == nil {
		cfg.EnvFile = envFile
	}

	cfg.App = AppConfig{
		Name:        v.GetString("APP_NAME"),
		Env:         v.GetString("APP_ENV"),
		Port:        v.GetString("APP_PORT"),
		Debug:       v.GetBool("APP_DEBUG"),
		BaseDomain:  v.GetString("APP_BASE_DOMAIN"),
		FrontendURL: v.GetString("FRONTEND_URL"),
	}
	cfg.Database = DatabaseConfig{
		Driver:        strings.ToLower(v.GetString("DB_DRIVER")),
		Host:          v.GetString("DB_HOST"),
		Port:          v.GetString("DB_PORT"),
		Name:          v.GetString("DB_NAME"),
		User:          v.GetString("DB_USER"),
		Password:      v.GetString("DB_PASSWORD"),
		SSLMode:       v.GetString("DB_SSL_MODE"),
		Timezone:      v.GetString("DB_TIMEZONE"),
		SQLitePath:    v.GetString("DB_SQLITE_PATH"),
		MaxIdleConns:  v.GetInt("DB_MAX_IDLE_CONNS"),
		MaxOpenConns:  v.GetInt("DB_MAX_OPEN_CONNS"),
		SlowThreshold: time.Duration(v.GetInt("DB_SLOW_THRESHOLD_MS")) * time.Millisecond,
	}
	cfg.JWT = JWTConfig{
		Secret:        v.GetString("JWT_SECRET"),
		Expiry:        time.Duration(v.GetInt("JWT_EXPIRY_HOURS")) * time.Hour,
		RefreshExpiry: time.Duration(v.GetInt("JWT_REFRESH_EXPIRY_HOURS")) * time.Hour,
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		AllowedMethods: splitList(v.GetString("CORS_ALLOWED_METHODS")),
		AllowedHeaders: splitList(v.GetString("CORS_ALLOWED_HEADERS")),
	}
	cfg.RateLimit = RateLimitConfig{
		Requests: v.GetInt("RATE_LIMIT_REQUESTS"),
		Duration: v.GetInt("RATE_LIMIT_DURATION"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}
	cfg.Redis = RedisConfig{
		Enabled:      v.GetBool("REDIS_ENABLED"),
		Addr:         v.GetString("REDIS_ADDR"),
		Password:     v.GetString("REDIS_PASSWORD"),
		DB:           v.GetInt("REDIS_DB"),
		DashboardTTL: time.Duration(v.GetInt("REDIS_DASHBOARD_TTL_SECONDS")) * time.Second,
	}
	cfg.Metrics = MetricsConfig{
		Enabled: v.GetBool("METRICS_ENABLED"),
		Path:    v.GetString("METRICS_PATH"),
	}
	cfg.Billing = BillingConfig{
		DefaultCurrency:                strings.ToUpper(v.GetString("BILLING_DEFAULT_CURRENCY")),
		ApplyDiscountToDiscountedItems: v.GetBool("BILLING_APPLY_DISCOUNT_TO_DISCOUNTED_ITEMS"),
	}
	cfg.SMTP = SMTPConfig{
		Host:      v.GetString("SMTP_HOST"),
		Port:      v.GetInt("SMTP_PORT"),
		Username:  v.GetString("SMTP_USERNAME"),
		Password:  v.GetString("SMTP_PASSWORD"),
		FromName:  v.GetString("SMTP_FROM_NAME"),
		FromEmail: v.GetString("SMTP_FROM_EMAIL"),
	}
	cfg.Google = GoogleConfig{
		ClientID:           v.GetString("GOOGLE_CLIENT_ID"),
		ClientSecret:       v.GetString("GOOGLE_CLIENT_SECRET"),
		RedirectURL:        v.GetString("GOOGLE_REDIRECT_URL"),
		FrontendSuccessURL: v.GetString("GOOGLE_FRONTEND_SUCCESS_URL"),
		FrontendErrorURL:   v.GetString("GOOGLE_FRONTEND_ERROR_URL"),
	}
	cfg.Admin = AdminConfig{
		Email:    v.GetString("ADMIN_EMAIL"),
		Password: v.GetString("ADMIN_PASSWORD"),
		Name:     v.GetString("ADMIN_NAME"),
	}
	cfg.Idempotency = IdempotencyConfig{
		TTL: time.Duration(v.GetInt("IDEMPOTENCY_TTL_HOURS")) * time.Hour,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if len(c.Billing.DefaultCurrency) != 3 {
		return fmt.Errorf("BILLING_DEFAULT_CURRENCY must be a 3-letter code, got %q", c.Billing.DefaultCurrency)
	}
	if c.App.Env == "production" && c.JWT.Secret == "change-this-secret-in-production" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode, c.Timezone)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
