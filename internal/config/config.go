// Package config loads chatd settings from an optional YAML file and the
// environment, applies defaults and validates the result. Keys are the
// environment variable names; in a file they are written in lower case
// (read_timeout: 15s). The environment wins over the file.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// DBConfig selects the database driver and location.
type DBConfig struct {
	Driver  string // DB_DRIVER: sqlite|postgres
	Path    string // DB_PATH (sqlite)
	URL     string // DATABASE_URL (postgres DSN)
	Tracing bool   // DB_TRACING: install the GORM OpenTelemetry plugin
}

// UsageConfig holds the per-tier message limits.
type UsageConfig struct {
	AnonDaily      int // ANON_DAILY_LIMIT
	AuthDaily      int // AUTH_DAILY_LIMIT
	AuthMonthly    int // AUTH_MONTHLY_LIMIT
	PremiumDaily   int // PREMIUM_DAILY_LIMIT
	PremiumMonthly int // PREMIUM_MONTHLY_LIMIT
	PremiumCredits int // PREMIUM_MONTHLY_CREDITS
}

// ProviderConfig is the endpoint and system key of one LLM provider.
type ProviderConfig struct {
	BaseURL string
	APIKey  string
}

// LLMConfig configures the completion proxy.
type LLMConfig struct {
	Providers    map[string]ProviderConfig // <NAME>_API_KEY / <NAME>_BASE_URL
	DefaultModel string                    // DEFAULT_MODEL
	Timeout      time.Duration             // LLM_TIMEOUT
	MaxAttempts  int                       // LLM_MAX_ATTEMPTS
	RetryDelay   time.Duration             // LLM_RETRY_DELAY
	MaxTokens    int                       // LLM_MAX_TOKENS (0 = provider default)
	CacheTTL     time.Duration             // COMPLETION_CACHE_TTL
}

// RedisConfig enables the shared completion cache when Addr is set.
type RedisConfig struct {
	Addr     string // REDIS_ADDR
	Password string // REDIS_PASSWORD
	DB       int    // REDIS_DB
}

// StorageConfig selects MinIO when Endpoint is set, else the local directory.
type StorageConfig struct {
	Endpoint     string        // S3_ENDPOINT
	AccessKey    string        // S3_ACCESS_KEY
	SecretKey    string        // S3_SECRET_KEY
	Bucket       string        // S3_BUCKET
	Region       string        // S3_REGION
	UseSSL       bool          // S3_USE_SSL
	LocalDir     string        // STORAGE_DIR
	SignedURLTTL time.Duration // SIGNED_URL_TTL
	MaxUpload    int64         // MAX_UPLOAD_BYTES
}

// AuthConfig configures identity resolution.
type AuthConfig struct {
	JWTSecret      string        // JWT_SECRET (HS256)
	JWTIssuer      string        // JWT_ISSUER (optional check)
	AnonTokenTTL   time.Duration // ANON_TOKEN_TTL
	AllowDevHeader bool          // AUTH_ALLOW_DEV_HEADER: honour X-User-ID
	CSRFEnabled    bool          // CSRF_ENABLED
	CSRFSecret     string        // CSRF_SECRET (defaults to JWT_SECRET)
}

// OAuthClient is one OAuth2 application registration.
type OAuthClient struct {
	ClientID     string
	ClientSecret string
}

// ConnectorsConfig holds OAuth registrations for the connector providers.
type ConnectorsConfig struct {
	Google      OAuthClient // GOOGLE_CLIENT_ID / GOOGLE_CLIENT_SECRET
	Notion      OAuthClient // NOTION_CLIENT_ID / NOTION_CLIENT_SECRET
	RedirectURL string      // OAUTH_REDIRECT_URL
}

// SchedulerConfig configures the scheduled-task runner.
type SchedulerConfig struct {
	Enabled     bool          // SCHEDULER_ENABLED
	Interval    time.Duration // SCHEDULER_INTERVAL
	Concurrency int           // SCHEDULER_CONCURRENCY
	BatchSize   int           // SCHEDULER_BATCH
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "llm-chat-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Persistence
	DB DBConfig

	// Chat
	MaxPromptRunes int // MAX_PROMPT_RUNES
	Usage          UsageConfig
	LLM            LLMConfig
	Redis          RedisConfig
	Storage        StorageConfig

	// Identity and secrets
	Auth                 AuthConfig
	EncryptionKey        string // ENCRYPTION_KEY: seals API keys and OAuth tokens
	BillingWebhookSecret string // BILLING_WEBHOOK_SECRET
	Connectors           ConnectorsConfig

	// Background work
	Scheduler SchedulerConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the configuration from the environment alone.
func Load() (Config, error) { return LoadFile("") }

// LoadFile reads path (when not empty) and then the environment. Every
// malformed or out-of-range value is reported, joined into one error.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	v.AutomaticEnv()

	r := &reader{v: v}
	cfg := Config{
		Port:              r.str("PORT"),
		ReadTimeout:       r.dur("READ_TIMEOUT"),
		ReadHeaderTimeout: r.dur("READ_HEADER_TIMEOUT"),
		WriteTimeout:      r.dur("WRITE_TIMEOUT"),
		IdleTimeout:       r.dur("IDLE_TIMEOUT"),
		MaxHeaderBytes:    r.int("MAX_HEADER_BYTES"),
		GinMode:           strings.ToLower(r.str("GIN_MODE")),

		LogLevel:       strings.ToLower(r.str("LOG_LEVEL")),
		LogPretty:      r.bool("LOG_PRETTY"),
		SwaggerEnabled: r.bool("SWAGGER_ENABLED"),
		APIBasePath:    normalizeBasePath(r.str("API_BASE_PATH")),

		DB: DBConfig{
			Driver:  strings.ToLower(r.str("DB_DRIVER")),
			Path:    r.str("DB_PATH"),
			URL:     r.str("DATABASE_URL"),
			Tracing: r.bool("DB_TRACING"),
		},

		MaxPromptRunes: r.int("MAX_PROMPT_RUNES"),
		Usage: UsageConfig{
			AnonDaily:      r.int("ANON_DAILY_LIMIT"),
			AuthDaily:      r.int("AUTH_DAILY_LIMIT"),
			AuthMonthly:    r.int("AUTH_MONTHLY_LIMIT"),
			PremiumDaily:   r.int("PREMIUM_DAILY_LIMIT"),
			PremiumMonthly: r.int("PREMIUM_MONTHLY_LIMIT"),
			PremiumCredits: r.int("PREMIUM_MONTHLY_CREDITS"),
		},
		LLM: LLMConfig{
			Providers:    r.providers(),
			DefaultModel: r.str("DEFAULT_MODEL"),
			Timeout:      r.dur("LLM_TIMEOUT"),
			MaxAttempts:  r.int("LLM_MAX_ATTEMPTS"),
			RetryDelay:   r.dur("LLM_RETRY_DELAY"),
			MaxTokens:    r.int("LLM_MAX_TOKENS"),
			CacheTTL:     r.dur("COMPLETION_CACHE_TTL"),
		},
		Redis: RedisConfig{
			Addr:     r.str("REDIS_ADDR"),
			Password: r.str("REDIS_PASSWORD"),
			DB:       r.int("REDIS_DB"),
		},
		Storage: StorageConfig{
			Endpoint:     r.str("S3_ENDPOINT"),
			AccessKey:    r.str("S3_ACCESS_KEY"),
			SecretKey:    r.str("S3_SECRET_KEY"),
			Bucket:       r.str("S3_BUCKET"),
			Region:       r.str("S3_REGION"),
			UseSSL:       r.bool("S3_USE_SSL"),
			LocalDir:     r.str("STORAGE_DIR"),
			SignedURLTTL: r.dur("SIGNED_URL_TTL"),
			MaxUpload:    int64(r.int("MAX_UPLOAD_BYTES")),
		},

		Auth: AuthConfig{
			JWTSecret:      r.str("JWT_SECRET"),
			JWTIssuer:      r.str("JWT_ISSUER"),
			AnonTokenTTL:   r.dur("ANON_TOKEN_TTL"),
			AllowDevHeader: r.bool("AUTH_ALLOW_DEV_HEADER"),
			CSRFEnabled:    r.bool("CSRF_ENABLED"),
			CSRFSecret:     r.str("CSRF_SECRET"),
		},
		EncryptionKey:        r.str("ENCRYPTION_KEY"),
		BillingWebhookSecret: r.str("BILLING_WEBHOOK_SECRET"),
		Connectors: ConnectorsConfig{
			Google:      OAuthClient{ClientID: r.str("GOOGLE_CLIENT_ID"), ClientSecret: r.str("GOOGLE_CLIENT_SECRET")},
			Notion:      OAuthClient{ClientID: r.str("NOTION_CLIENT_ID"), ClientSecret: r.str("NOTION_CLIENT_SECRET")},
			RedirectURL: r.str("OAUTH_REDIRECT_URL"),
		},

		Scheduler: SchedulerConfig{
			Enabled:     r.bool("SCHEDULER_ENABLED"),
			Interval:    r.dur("SCHEDULER_INTERVAL"),
			Concurrency: r.int("SCHEDULER_CONCURRENCY"),
			BatchSize:   r.int("SCHEDULER_BATCH"),
		},

		RateRPS:   r.float("RATE_RPS"),
		RateBurst: r.int("RATE_BURST"),

		CORS:     CORSConfig{AllowedOrigins: splitCSV(r.str("CORS_ALLOWED_ORIGINS"))},
		Security: SecurityConfig{EnableHSTS: r.bool("ENABLE_HSTS"), HSTSMaxAge: r.dur("HSTS_MAX_AGE")},

		IdempotencyTTL: r.dur("IDEMPOTENCY_TTL"),

		OTEL: OTELConfig{
			Enabled:     r.bool("OTEL_ENABLED"),
			Endpoint:    r.str("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Insecure:    r.bool("OTEL_EXPORTER_OTLP_INSECURE"),
			ServiceName: r.str("OTEL_SERVICE_NAME"),
			SampleRatio: r.float("OTEL_TRACES_SAMPLER_ARG"),
		},
	}

	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	if cfg.Auth.CSRFSecret == "" {
		cfg.Auth.CSRFSecret = cfg.Auth.JWTSecret
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	return cfg, errors.Join(append(r.errs, cfg.validate()...)...)
}

func setDefaults(v *viper.Viper) {
	for k, d := range map[string]any{
		"PORT":                "8080",
		"READ_TIMEOUT":        "15s",
		"READ_HEADER_TIMEOUT": "10s",
		"WRITE_TIMEOUT":       "20s",
		"IDLE_TIMEOUT":        "60s",
		"MAX_HEADER_BYTES":    1 << 20,
		"GIN_MODE":            "release",

		"LOG_LEVEL":     "info",
		"API_BASE_PATH": "/api/v1",

		"DB_DRIVER": "sqlite",
		"DB_PATH":   "app.db",

		"MAX_PROMPT_RUNES":        32000,
		"ANON_DAILY_LIMIT":        10,
		"AUTH_DAILY_LIMIT":        100,
		"AUTH_MONTHLY_LIMIT":      1500,
		"PREMIUM_DAILY_LIMIT":     1000,
		"PREMIUM_MONTHLY_LIMIT":   15000,
		"PREMIUM_MONTHLY_CREDITS": 100,

		"DEFAULT_MODEL":        "gpt-4o-mini",
		"LLM_TIMEOUT":          "60s",
		"LLM_MAX_ATTEMPTS":     3,
		"LLM_RETRY_DELAY":      "1s",
		"COMPLETION_CACHE_TTL": "30m",

		"S3_BUCKET":        "attachments",
		"S3_USE_SSL":       true,
		"STORAGE_DIR":      "data/attachments",
		"SIGNED_URL_TTL":   "15m",
		"MAX_UPLOAD_BYTES": 20 << 20,

		"ANON_TOKEN_TTL":     "720h",
		"OAUTH_REDIRECT_URL": "http://localhost:8080/api/v1/connectors/callback",

		"SCHEDULER_INTERVAL":    "30s",
		"SCHEDULER_CONCURRENCY": 4,
		"SCHEDULER_BATCH":       20,

		"RATE_RPS":   5.0,
		"RATE_BURST": 10,

		"HSTS_MAX_AGE":    "4320h",
		"IDEMPOTENCY_TTL": "24h",

		"OTEL_EXPORTER_OTLP_ENDPOINT": "localhost:4317",
		"OTEL_EXPORTER_OTLP_INSECURE": true,
		"OTEL_SERVICE_NAME":           "llm-chat-backend",
		"OTEL_TRACES_SAMPLER_ARG":     1.0,
	} {
		v.SetDefault(k, d)
	}
}

// validate returns one error per rule the configuration breaks.
func (cfg Config) validate() []error {
	var errs []error
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New(msg))
		}
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		errs = append(errs, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic"))
	}
	check(strings.TrimSpace(cfg.Port) != "", "PORT must not be empty")
	check(cfg.ReadTimeout > 0 && cfg.ReadHeaderTimeout > 0 && cfg.WriteTimeout > 0 && cfg.IdleTimeout > 0,
		"timeouts must be positive durations")
	check(cfg.MaxHeaderBytes > 0, "MAX_HEADER_BYTES must be > 0")
	switch cfg.DB.Driver {
	case "sqlite":
		check(strings.TrimSpace(cfg.DB.Path) != "", "DB_PATH must not be empty")
	case "postgres":
		check(strings.TrimSpace(cfg.DB.URL) != "", "DATABASE_URL is required when DB_DRIVER=postgres")
	default:
		errs = append(errs, errors.New("DB_DRIVER must be one of: sqlite, postgres"))
	}
	check(cfg.MaxPromptRunes > 0, "MAX_PROMPT_RUNES must be > 0")
	u := cfg.Usage
	check(min(u.AnonDaily, u.AuthDaily, u.AuthMonthly, u.PremiumDaily, u.PremiumMonthly, u.PremiumCredits) >= 0,
		"usage limits must be >= 0")
	check(cfg.LLM.MaxAttempts >= 1, "LLM_MAX_ATTEMPTS must be >= 1")
	check(cfg.LLM.Timeout > 0 && cfg.LLM.RetryDelay >= 0, "LLM_TIMEOUT must be > 0 and LLM_RETRY_DELAY >= 0")
	check(cfg.Storage.MaxUpload > 0, "MAX_UPLOAD_BYTES must be > 0")
	check(cfg.Storage.Endpoint == "" || (cfg.Storage.AccessKey != "" && cfg.Storage.SecretKey != ""),
		"S3_ACCESS_KEY and S3_SECRET_KEY are required with S3_ENDPOINT")
	check(cfg.Auth.JWTSecret == "" || len(cfg.Auth.JWTSecret) >= 32, "JWT_SECRET must be at least 32 bytes")
	check(!cfg.Auth.CSRFEnabled || cfg.Auth.CSRFSecret != "", "CSRF_ENABLED requires CSRF_SECRET or JWT_SECRET")
	check(cfg.Scheduler.Interval > 0 && cfg.Scheduler.Concurrency >= 1 && cfg.Scheduler.BatchSize >= 1,
		"SCHEDULER_INTERVAL must be > 0, SCHEDULER_CONCURRENCY and SCHEDULER_BATCH >= 1")
	check(cfg.RateRPS >= 0, "RATE_RPS must be >= 0")
	check(cfg.RateBurst >= 1, "RATE_BURST must be >= 1")
	check(cfg.Security.HSTSMaxAge >= 0, "HSTS_MAX_AGE must be >= 0")
	check(cfg.IdempotencyTTL > 0, "IDEMPOTENCY_TTL must be > 0")
	check(cfg.OTEL.SampleRatio >= 0 && cfg.OTEL.SampleRatio <= 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	return errs
}

// reader converts viper values strictly; a value that does not parse is
// recorded as an error rather than silently replaced.
type reader struct {
	v    *viper.Viper
	errs []error
}

func (r *reader) str(k string) string { return strings.TrimSpace(r.v.GetString(k)) }

func (r *reader) bad(k, want string) {
	r.errs = append(r.errs, fmt.Errorf("%s: %q is not a valid %s", k, r.str(k), want))
}

func (r *reader) int(k string) int {
	n, err := strconv.Atoi(r.str(k))
	if err != nil && r.str(k) != "" {
		r.bad(k, "integer")
	}
	return n
}

func (r *reader) float(k string) float64 {
	f, err := strconv.ParseFloat(r.str(k), 64)
	if err != nil && r.str(k) != "" {
		r.bad(k, "number")
	}
	return f
}

func (r *reader) bool(k string) bool {
	switch strings.ToLower(r.str(k)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "", "0", "false", "no", "n", "off":
		return false
	}
	r.bad(k, "boolean")
	return false
}

func (r *reader) dur(k string) time.Duration {
	d, err := time.ParseDuration(r.str(k))
	if err != nil && r.str(k) != "" {
		r.bad(k, "duration")
	}
	return d
}

// providerNames lists the LLM providers configurable through the environment.
var providerNames = []string{"openai", "openrouter", "groq", "mistral", "xai"}

// providers reads <NAME>_API_KEY and <NAME>_BASE_URL for every provider.
// Providers without a key are still listed so that user-supplied keys work.
func (r *reader) providers() map[string]ProviderConfig {
	out := make(map[string]ProviderConfig, len(providerNames))
	for _, name := range providerNames {
		prefix := strings.ToUpper(name)
		out[name] = ProviderConfig{
			BaseURL: r.str(prefix + "_BASE_URL"),
			APIKey:  r.str(prefix + "_API_KEY"),
		}
	}
	return out
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures a leading '/' and strips trailing ones.
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	return "/" + p
}
