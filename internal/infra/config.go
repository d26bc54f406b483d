package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Image generation providers.
const (
	ImageProviderWorkersAI = "workersai"
	ImageProviderOpenAI    = "openai"
)

// Background removal providers.
const (
	RemoverProviderHTTP      = "http"
	RemoverProviderWorkersAI = "workersai"
	RemoverProviderWASM      = "wasm"
)

// MaxSamplingSteps is the step ceiling accepted by the hosted diffusion model.
const MaxSamplingSteps = 20

// Sampling holds the fixed generation parameters. They are never user controlled.
type Sampling struct {
	NegativePrompt string
	Steps          int
	Width          int
	Height         int
}

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv        string
	Port          string
	DefaultLocale string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	UpstreamTimeout  time.Duration

	MaxUploadBytes  int64
	MaxPromptLength int
	Sampling        Sampling

	ImageProvider   string
	RemoverProvider string

	WorkersAIBaseURL      string
	WorkersAIAccountID    string
	WorkersAIAPIToken     string
	WorkersAIImageModel   string
	WorkersAIRemovalModel string

	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIImageModel string

	RemovalAPIURL string
	RemovalAPIKey string
	WASMModelPath string

	OutputDir       string
	OutputRetention time.Duration
	JanitorInterval time.Duration

	DatabaseURL     string
	RedisURL        string
	RateLimitPerMin int
	GeoIPDBPath     string
	CORSOrigins     []string

	// HistoryToken guards GET /history. Empty keeps the page disabled.
	HistoryToken string
	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DefaultLocale:    getEnv("DEFAULT_LOCALE", "en"),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 90)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		UpstreamTimeout:  time.Second * time.Duration(getEnvInt("UPSTREAM_TIMEOUT_SECONDS", 60)),
		MaxUploadBytes:   int64(getEnvInt("MAX_UPLOAD_BYTES", 4*1024*1024)),
		MaxPromptLength:  getEnvInt("MAX_PROMPT_LENGTH", 500),
		Sampling: Sampling{
			NegativePrompt: getEnv("NEGATIVE_PROMPT", "blurry, low quality, distorted, watermark, text"),
			Steps:          clampSteps(getEnvInt("NUM_STEPS", MaxSamplingSteps)),
			Width:          getEnvInt("IMAGE_WIDTH", 1024),
			Height:         getEnvInt("IMAGE_HEIGHT", 1024),
		},
		ImageProvider:         strings.ToLower(getEnv("IMAGE_PROVIDER", ImageProviderWorkersAI)),
		RemoverProvider:       strings.ToLower(getEnv("REMOVER_PROVIDER", RemoverProviderHTTP)),
		WorkersAIBaseURL:      getEnv("WORKERS_AI_BASE_URL", "https://api.cloudflare.com/client/v4"),
		WorkersAIAccountID:    os.Getenv("WORKERS_AI_ACCOUNT_ID"),
		WorkersAIAPIToken:     os.Getenv("WORKERS_AI_API_TOKEN"),
		WorkersAIImageModel:   getEnv("WORKERS_AI_IMAGE_MODEL", "@cf/stabilityai/stable-diffusion-xl-base-1.0"),
		WorkersAIRemovalModel: getEnv("WORKERS_AI_REMOVAL_MODEL", "@cf/transparent-background/removal"),
		OpenAIAPIKey:          os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:         getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIImageModel:      getEnv("OPENAI_IMAGE_MODEL", "dall-e-3"),
		RemovalAPIURL:         os.Getenv("REMOVAL_API_URL"),
		RemovalAPIKey:         os.Getenv("REMOVAL_API_KEY"),
		WASMModelPath:         os.Getenv("WASM_MODEL_PATH"),
		OutputDir:             os.Getenv("OUTPUT_DIR"),
		OutputRetention:       time.Hour * time.Duration(getEnvInt("OUTPUT_RETENTION_HOURS", 72)),
		JanitorInterval:       time.Second * time.Duration(getEnvInt("JANITOR_INTERVAL_SECONDS", 600)),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisURL:              os.Getenv("REDIS_URL"),
		RateLimitPerMin:       getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		GeoIPDBPath:           os.Getenv("GEOIP_DB_PATH"),
		CORSOrigins:           splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		HistoryToken:          strings.TrimSpace(os.Getenv("HISTORY_ADMIN_TOKEN")),
		TrustProxyHeaders:     getEnvBool("TRUST_PROXY_HEADERS", false),
	}

	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if cfg.MaxPromptLength <= 0 {
		return nil, fmt.Errorf("MAX_PROMPT_LENGTH must be positive")
	}
	if cfg.UpstreamTimeout <= 0 {
		return nil, fmt.Errorf("UPSTREAM_TIMEOUT_SECONDS must be positive")
	}
	if cfg.HTTPWriteTimeout > 0 && cfg.UpstreamTimeout >= cfg.HTTPWriteTimeout {
		return nil, fmt.Errorf("UPSTREAM_TIMEOUT_SECONDS (%s) must be below HTTP_WRITE_TIMEOUT_SECONDS (%s)", cfg.UpstreamTimeout, cfg.HTTPWriteTimeout)
	}
	if cfg.Sampling.Width <= 0 || cfg.Sampling.Height <= 0 {
		return nil, fmt.Errorf("IMAGE_WIDTH and IMAGE_HEIGHT must be positive")
	}

	switch cfg.ImageProvider {
	case ImageProviderWorkersAI, ImageProviderOpenAI:
	default:
		return nil, fmt.Errorf("unsupported IMAGE_PROVIDER %q", cfg.ImageProvider)
	}

	switch cfg.RemoverProvider {
	case RemoverProviderHTTP:
		if cfg.RemovalAPIURL == "" {
			return nil, fmt.Errorf("REMOVAL_API_URL is required when REMOVER_PROVIDER=http")
		}
	case RemoverProviderWASM:
		if cfg.WASMModelPath == "" {
			return nil, fmt.Errorf("WASM_MODEL_PATH is required when REMOVER_PROVIDER=wasm")
		}
	case RemoverProviderWorkersAI:
	default:
		return nil, fmt.Errorf("unsupported REMOVER_PROVIDER %q", cfg.RemoverProvider)
	}

	return cfg, nil
}

// PersistOutputs reports whether generated results are written to disk.
func (c *Config) PersistOutputs() bool {
	return strings.TrimSpace(c.OutputDir) != ""
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func clampSteps(steps int) int {
	if steps < 1 {
		return 1
	}
	if steps > MaxSamplingSteps {
		return MaxSamplingSteps
	}
	return steps
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
