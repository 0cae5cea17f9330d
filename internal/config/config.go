package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIPort   string
	LogLevel  string
	LogFormat string

	GoogleAPIKey         string
	GeminiBaseURL        string
	GeminiTimeoutSeconds int
	DefaultModels        []string

	ReportTimezone string
	ReportLocation *time.Location
	TemplateFile   string

	PostgresDSN string

	NATSURL     string
	NATSSubject string

	APIRateLimitRPS       float64
	APIRateLimitBurst     int
	APIMaxInFlight        int
	APIBackpressureWaitMS int
	APIMaxConnections     int
	MaxUploadMB           int

	BreakerEnabled            bool
	BreakerMinRequests        int
	BreakerFailureRatio       float64
	BreakerOpenTimeoutSeconds int
}

// Load reads the environment. Values from the YAML file named by CONFIG_FILE sit below it.
func Load() (Config, error) {
	src, err := newSource(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		APIPort:   src.mustEnv("API_PORT", "8080"),
		LogLevel:  src.mustEnv("LOG_LEVEL", "info"),
		LogFormat: src.mustEnv("LOG_FORMAT", "json"),

		GoogleAPIKey:         src.mustEnv("GOOGLE_API_KEY", ""),
		GeminiBaseURL:        src.mustEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		GeminiTimeoutSeconds: src.mustEnvInt("GEMINI_TIMEOUT_SECONDS", 180),
		DefaultModels:        splitList(src.mustEnv("DEFAULT_MODELS", "gemini-1.5-flash,gemini-1.5-pro")),

		ReportTimezone: src.mustEnv("REPORT_TIMEZONE", "Asia/Taipei"),
		TemplateFile:   src.mustEnv("TEMPLATE_FILE", ""),

		PostgresDSN: src.mustEnv("POSTGRES_DSN", ""),

		NATSURL:     src.mustEnv("NATS_URL", ""),
		NATSSubject: src.mustEnv("NATS_SUBJECT", "digests.generated"),

		APIRateLimitRPS:       src.mustEnvFloat("API_RATE_LIMIT_RPS", 5),
		APIRateLimitBurst:     src.mustEnvInt("API_RATE_LIMIT_BURST", 10),
		APIMaxInFlight:        src.mustEnvInt("API_MAX_IN_FLIGHT", 8),
		APIBackpressureWaitMS: src.mustEnvInt("API_BACKPRESSURE_WAIT_MS", 250),
		APIMaxConnections:     src.mustEnvInt("API_MAX_CONNECTIONS", 64),
		MaxUploadMB:           src.mustEnvInt("MAX_UPLOAD_MB", 64),

		BreakerEnabled:            src.mustEnvBool("BREAKER_ENABLED", true),
		BreakerMinRequests:        src.mustEnvInt("BREAKER_MIN_REQUESTS", 5),
		BreakerFailureRatio:       src.mustEnvFloat("BREAKER_FAILURE_RATIO", 0.6),
		BreakerOpenTimeoutSeconds: src.mustEnvInt("BREAKER_OPEN_TIMEOUT_SECONDS", 30),
	}

	loc, err := time.LoadLocation(cfg.ReportTimezone)
	if err != nil {
		return Config{}, fmt.Errorf("load REPORT_TIMEZONE %q: %w", cfg.ReportTimezone, err)
	}
	cfg.ReportLocation = loc
	return cfg, nil
}

// TemplateContent returns the TEMPLATE_FILE contents, or "" when no file is configured.
func (c Config) TemplateContent() (string, error) {
	if c.TemplateFile == "" {
		return "", nil
	}
	raw, err := os.ReadFile(c.TemplateFile)
	if err != nil {
		return "", fmt.Errorf("read TEMPLATE_FILE: %w", err)
	}
	return string(raw), nil
}

type source struct {
	file map[string]string
}

func newSource(path string) (source, error) {
	if path == "" {
		return source{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return source{}, fmt.Errorf("read CONFIG_FILE: %w", err)
	}
	var values map[string]any
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return source{}, fmt.Errorf("parse CONFIG_FILE: %w", err)
	}
	file := make(map[string]string, len(values))
	for k, v := range values {
		if v == nil {
			continue
		}
		file[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return source{file: file}, nil
}

func (s source) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s.file[key]
}

func (s source) mustEnv(key, fallback string) string {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	return v
}

func (s source) mustEnvInt(key string, fallback int) int {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func (s source) mustEnvFloat(key string, fallback float64) float64 {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func (s source) mustEnvBool(key string, fallback bool) bool {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
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
