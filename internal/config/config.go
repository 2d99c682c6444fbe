package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	// Offset, in hours, of the fixed zone used to compute the daily quota
	// window. No DST handling; the service does not consult the host zone.
	QuotaUTCOffsetHours int

	// External identities listed here are promoted to the admin tier on
	// first contact.
	AdminUserIDs []string

	// Sink ref used for users without their own sink.
	DefaultSinkRef string

	// Directory for batch artifacts and other scratch files.
	ArtifactDir string

	// Path of the tier policy YAML. Empty means built-in defaults only.
	TierPolicyPath string

	Logger    LoggerConfig
	DB        DBConfig
	Inference InferenceConfig
	RateLimit RateLimitConfig
}

type LoggerConfig struct {
	Level string
}

type DBConfig struct {
	Type     string
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	// Path of the sqlite file when Type is "sqlite".
	Path string
}

// InferenceConfig configures the OpenAI-compatible extraction model call.
type InferenceConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	// Retries of transport failures per unit, on top of the first attempt.
	MaxRetries int
}

type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Per-user submission rate at the HTTP boundary.
	SubmitRate  float64
	SubmitBurst int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "ingestd"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		QuotaUTCOffsetHours: getenvInt("QUOTA_UTC_OFFSET_HOURS", 7),
		AdminUserIDs:        splitList(getenv("ADMIN_USER_IDS", "")),
		DefaultSinkRef:      getenv("DEFAULT_SINK_REF", "shared"),
		ArtifactDir:         getenv("ARTIFACT_DIR", "artifacts"),
		TierPolicyPath:      getenv("TIER_POLICY_PATH", ""),

		Logger: LoggerConfig{
			Level: getenv("LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			Type:     getenv("DATABASE_TYPE", "postgres"),
			Host:     getenv("DATABASE_HOST", "localhost"),
			Port:     getenv("DATABASE_PORT", "5432"),
			Name:     getenv("DATABASE_NAME", "ingestd"),
			User:     getenv("DATABASE_USER", "postgres"),
			Password: getenv("DATABASE_PASSWORD", ""),
			SSLMode:  getenv("DATABASE_SSLMODE", "disable"),
			Path:     getenv("DATABASE_PATH", "ingestd.db"),
		},
		Inference: InferenceConfig{
			BaseURL:        getenv("INFERENCE_BASE_URL", "https://llm.chutes.ai/v1"),
			APIKey:         getenv("INFERENCE_API_KEY", ""),
			Model:          getenv("INFERENCE_MODEL", "Qwen/Qwen3-VL-235B-A22B-Instruct"),
			Temperature:    getenvFloat("INFERENCE_TEMPERATURE", 0.1),
			MaxTokens:      getenvInt("INFERENCE_MAX_TOKENS", 2000),
			ConnectTimeout: getenvDuration("INFERENCE_CONNECT_TIMEOUT", 60*time.Second),
			ReadTimeout:    getenvDuration("INFERENCE_READ_TIMEOUT", 120*time.Second),
			MaxRetries:     getenvInt("INFERENCE_MAX_RETRIES", 2),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:     getenv("RATE_LIMIT_REDIS_ADDR", ""),
			RedisPassword: getenv("RATE_LIMIT_REDIS_PASSWORD", ""),
			RedisDB:       getenvInt("RATE_LIMIT_REDIS_DB", 0),
			SubmitRate:    getenvFloat("RATE_LIMIT_SUBMIT_RATE", 1),
			SubmitBurst:   getenvInt("RATE_LIMIT_SUBMIT_BURST", 5),
		},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
