package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != "8080" || cfg.APIBasePath != "/api/v1" || cfg.GinMode != "release" || cfg.LogLevel != "info" {
		t.Fatalf("server defaults: %+v", cfg)
	}
	if cfg.DB.Driver != "sqlite" || cfg.DB.Path != "app.db" {
		t.Fatalf("db defaults: %+v", cfg.DB)
	}
	if cfg.Usage != (UsageConfig{AnonDaily: 10, AuthDaily: 100, AuthMonthly: 1500, PremiumDaily: 1000, PremiumMonthly: 15000, PremiumCredits: 100}) {
		t.Fatalf("usage defaults: %+v", cfg.Usage)
	}
	if cfg.LLM.DefaultModel != "gpt-4o-mini" || cfg.LLM.MaxAttempts != 3 || cfg.LLM.Timeout != time.Minute || len(cfg.LLM.Providers) != len(providerNames) {
		t.Fatalf("llm defaults: %+v", cfg.LLM)
	}
	if cfg.Redis.Addr != "" || cfg.Storage.Endpoint != "" || !cfg.Storage.UseSSL || cfg.Storage.MaxUpload != 20<<20 {
		t.Fatalf("optional backends should be off by default: %+v %+v", cfg.Redis, cfg.Storage)
	}
	if cfg.Scheduler.Enabled || cfg.Scheduler.Concurrency != 4 || cfg.RateRPS != 5 || cfg.RateBurst != 10 {
		t.Fatalf("worker/rate defaults: %+v %v %v", cfg.Scheduler, cfg.RateRPS, cfg.RateBurst)
	}
	if cfg.Security.HSTSMaxAge != 180*24*time.Hour || cfg.IdempotencyTTL != 24*time.Hour || cfg.OTEL.SampleRatio != 1 || !cfg.OTEL.Insecure {
		t.Fatalf("misc defaults: %+v %v %+v", cfg.Security, cfg.IdempotencyTTL, cfg.OTEL)
	}
}

func TestLoad_EnvOverridesAndNormalisation(t *testing.T) {
	for k, v := range map[string]string{
		"PORT":                        "8088",
		"READ_TIMEOUT":                "2s",
		"MAX_HEADER_BYTES":            "8192",
		"GIN_MODE":                    "weird",
		"LOG_LEVEL":                   "WARNING",
		"LOG_PRETTY":                  "yes",
		"SWAGGER_ENABLED":             "On",
		"API_BASE_PATH":               "api/v1/",
		"AUTH_DAILY_LIMIT":            "25",
		"GROQ_API_KEY":                "gsk-test",
		"GROQ_BASE_URL":               "http://groq.local/v1",
		"JWT_SECRET":                  strings.Repeat("s", 32),
		"CORS_ALLOWED_ORIGINS":        " https://a.com , , http://b ",
		"ENABLE_HSTS":                 "TRUE",
		"OTEL_EXPORTER_OTLP_INSECURE": "0",
		"OTEL_TRACES_SAMPLER_ARG":     "0.75",
	} {
		t.Setenv(k, v)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != "8088" || cfg.ReadTimeout != 2*time.Second || cfg.MaxHeaderBytes != 8192 || cfg.GinMode != "release" {
		t.Fatalf("server fields: %+v", cfg)
	}
	if cfg.LogLevel != "warn" || !cfg.LogPretty || !cfg.SwaggerEnabled || cfg.APIBasePath != "/api/v1" {
		t.Fatalf("logging/docs fields: %+v", cfg)
	}
	if cfg.Usage.AuthDaily != 25 || cfg.Usage.AnonDaily != 10 {
		t.Fatalf("usage: %+v", cfg.Usage)
	}
	if p := cfg.LLM.Providers["groq"]; p.APIKey != "gsk-test" || p.BaseURL != "http://groq.local/v1" {
		t.Fatalf("groq provider: %+v", p)
	}
	if cfg.Auth.CSRFSecret != cfg.Auth.JWTSecret {
		t.Fatal("CSRF secret should default to the JWT secret")
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("cors origins: %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.OTEL.Insecure || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("security/otel: %+v %+v", cfg.Security, cfg.OTEL)
	}
}

func TestLoadFile_YAMLUnderEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatd.yaml")
	yaml := `port: "9000"
db_driver: postgres
database_url: postgres://chat@db/chat
rate_rps: 2.5
scheduler_enabled: true
scheduler_interval: 5s
premium_monthly_credits: 7
openai_api_key: sk-from-file
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "9100")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Port != "9100" {
		t.Fatalf("env should win over the file, port=%q", cfg.Port)
	}
	if cfg.DB.Driver != "postgres" || cfg.DB.URL != "postgres://chat@db/chat" {
		t.Fatalf("db from file: %+v", cfg.DB)
	}
	if cfg.RateRPS != 2.5 || !cfg.Scheduler.Enabled || cfg.Scheduler.Interval != 5*time.Second || cfg.Usage.PremiumCredits != 7 {
		t.Fatalf("file values: rps=%v sched=%+v credits=%d", cfg.RateRPS, cfg.Scheduler, cfg.Usage.PremiumCredits)
	}
	if cfg.LLM.Providers["openai"].APIKey != "sk-from-file" {
		t.Fatalf("provider key from file: %+v", cfg.LLM.Providers["openai"])
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("missing config file should fail")
	}
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want []string
	}{
		{"log level", map[string]string{"LOG_LEVEL": "verbose"}, []string{"LOG_LEVEL"}},
		{"blank port", map[string]string{"PORT": "   "}, []string{"PORT must not be empty"}},
		{"zero timeout", map[string]string{"READ_TIMEOUT": "0s"}, []string{"timeouts must be positive"}},
		{"header bytes", map[string]string{"MAX_HEADER_BYTES": "0"}, []string{"MAX_HEADER_BYTES"}},
		{"blank sqlite path", map[string]string{"DB_PATH": "  "}, []string{"DB_PATH must not be empty"}},
		{"postgres without url", map[string]string{"DB_DRIVER": "postgres"}, []string{"DATABASE_URL"}},
		{"unknown driver", map[string]string{"DB_DRIVER": "mysql"}, []string{"DB_DRIVER"}},
		{"negative limit", map[string]string{"ANON_DAILY_LIMIT": "-1"}, []string{"usage limits"}},
		{"llm attempts", map[string]string{"LLM_MAX_ATTEMPTS": "0"}, []string{"LLM_MAX_ATTEMPTS"}},
		{"short jwt secret", map[string]string{"JWT_SECRET": "short"}, []string{"JWT_SECRET"}},
		{"csrf without secret", map[string]string{"CSRF_ENABLED": "true"}, []string{"CSRF_ENABLED"}},
		{"s3 without credentials", map[string]string{"S3_ENDPOINT": "minio:9000"}, []string{"S3_ACCESS_KEY"}},
		{"scheduler concurrency", map[string]string{"SCHEDULER_CONCURRENCY": "0"}, []string{"SCHEDULER"}},
		{"negative rps", map[string]string{"RATE_RPS": "-1"}, []string{"RATE_RPS"}},
		{"zero burst", map[string]string{"RATE_BURST": "0"}, []string{"RATE_BURST"}},
		{"negative hsts", map[string]string{"HSTS_MAX_AGE": "-1s"}, []string{"HSTS_MAX_AGE"}},
		{"idempotency ttl", map[string]string{"IDEMPOTENCY_TTL": "0s"}, []string{"IDEMPOTENCY_TTL"}},
		{"sample ratio", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, []string{"OTEL_TRACES_SAMPLER_ARG"}},

		// Malformed values are reported, all of them at once.
		{"malformed numbers", map[string]string{"RATE_RPS": "x", "RATE_BURST": "nope"},
			[]string{`RATE_RPS: "x" is not a valid number`, `RATE_BURST: "nope" is not a valid integer`}},
		{"malformed bool and duration", map[string]string{"LOG_PRETTY": "maybe", "LLM_TIMEOUT": "soon"},
			[]string{"LOG_PRETTY", "LLM_TIMEOUT"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("expected an error")
			}
			for _, w := range tc.want {
				if !strings.Contains(err.Error(), w) {
					t.Fatalf("error %q does not mention %q", err, w)
				}
			}
		})
	}
}

func TestMustLoad(t *testing.T) {
	if cfg := MustLoad(); cfg.APIBasePath == "" {
		t.Fatal("MustLoad returned an empty config")
	}

	t.Setenv("LOG_LEVEL", "verbose")
	defer func() {
		if recover() == nil {
			t.Fatal("MustLoad should panic on invalid config")
		}
	}()
	MustLoad()
}

func TestReaderBool(t *testing.T) {
	for in, want := range map[string]bool{
		"1": true, "TRUE": true, " yes ": true, "Y": true, "On": true,
		"0": false, "false": false, " no ": false, "N": false, "off": false,
	} {
		t.Setenv("CHATD_TEST_BOOL", in)
		v := viper.New()
		v.AutomaticEnv()
		r := &reader{v: v}
		if got := r.bool("CHATD_TEST_BOOL"); got != want || len(r.errs) != 0 {
			t.Fatalf("bool(%q) = %v errs=%v", in, got, r.errs)
		}
	}
}

func TestSplitCSVAndBasePath(t *testing.T) {
	if out := splitCSV(""); out != nil {
		t.Fatalf("splitCSV(\"\") = %#v", out)
	}
	if got := splitCSV(" a, ,b ,  c  ,"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("splitCSV = %#v", got)
	}
	for in, want := range map[string]string{"": "/", " / ": "/", "v1": "/v1", "/v1/": "/v1", "//api//": "/api"} {
		if got := normalizeBasePath(in); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q, want %q", in, got, want)
		}
	}
}
