package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type Config struct {
	// Server settings
	ServerPort   string        `json:"server_port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
	Debug        bool          `json:"debug"`

	// Application paths
	LogDir string `json:"log_dir"`

	// Middleware settings
	Middleware MiddlewareConfig `json:"middleware"`

	// CORS Configuration
	CORS CORSConfig `json:"cors"`

	// HTTP rate limiting
	RateLimit RateLimitConfig `json:"rate_limit"`

	// Database settings
	Database DatabaseConfig `json:"database"`

	// Model backends
	Models ModelsConfig `json:"models"`

	// Upstream collaborators
	YouTube YouTubeConfig `json:"youtube"`

	// Orchestrator settings
	Processing ProcessingConfig `json:"processing"`

	// Hybrid-vs-single-source heuristics
	Selector SelectorConfig `json:"selector"`

	// Background queue
	Queue QueueConfig `json:"queue"`

	// Cost reporting
	Pricing PricingConfig `json:"pricing"`

	// Optional notes archival
	Storage StorageConfig `json:"storage"`

	// Application version
	Version string `json:"version"`

	// Request and shutdown timeouts
	RequestTimeout  time.Duration `json:"request_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

type MiddlewareConfig struct {
	EnableRecover   bool `json:"enable_recover"`
	EnableRequestID bool `json:"enable_request_id"`
	EnableLogger    bool `json:"enable_logger"`
	EnableTimeout   bool `json:"enable_timeout"`
	EnableCORS      bool `json:"enable_cors"`
	EnableRateLimit bool `json:"enable_rate_limit"`
	EnableCompress  bool `json:"enable_compress"`
	EnableETag      bool `json:"enable_etag"`
}

type CORSConfig struct {
	Enabled          bool     `json:"enabled"`
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	ExposedHeaders   []string `json:"exposed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age"`
}

type RateLimitConfig struct {
	Enabled           bool `json:"enabled"`
	RequestsPerMinute int  `json:"requests_per_minute"`
	BurstSize         int  `json:"burst_size"`
}

type DatabaseConfig struct {
	Path               string        `json:"path"`
	MaxConnections     int           `json:"max_connections"`
	MaxIdleConnections int           `json:"max_idle_connections"`
	ConnMaxLifetime    time.Duration `json:"conn_max_lifetime"`
}

type ModelsConfig struct {
	// VideoModels are video-capable models tried first, in order.
	VideoModels []string `json:"video_models"`
	// TextModels are text-only models appended to the hierarchy.
	TextModels []string `json:"text_models"`

	GeminiAPIBase   string  `json:"gemini_api_base"`
	GeminiAPIKey    string  `json:"-"`
	AnthropicAPIKey string  `json:"-"`
	MaxTokens       int     `json:"max_tokens"`
	Temperature     float64 `json:"temperature"`
}

type YouTubeConfig struct {
	CaptionsAPIURL string        `json:"captions_api_url"`
	CaptionsAPIKey string        `json:"-"`
	MetadataAPIURL string        `json:"metadata_api_url"`
	MetadataAPIKey string        `json:"-"`
	FetchTimeout   time.Duration `json:"fetch_timeout"`
	FetchRetries   int           `json:"fetch_retries"`
}

type ProcessingConfig struct {
	// ProcessTimeout bounds a single request end to end.
	ProcessTimeout time.Duration `json:"process_timeout"`
	// ChunkSeconds is the fixed chunk width for long videos.
	ChunkSeconds int `json:"chunk_seconds"`
	// LongVideoSeconds triggers chunked processing when exceeded.
	LongVideoSeconds int `json:"long_video_seconds"`
	// GenerateRPM is the per-minute call budget for the upstream service.
	GenerateRPM   int `json:"generate_rpm"`
	GenerateBurst int `json:"generate_burst"`
}

type SelectorConfig struct {
	EducationalTags  []string `json:"educational_tags"`
	VisualHints      []string `json:"visual_hints"`
	MinHybridSeconds int      `json:"min_hybrid_seconds"`
	MaxHybridSeconds int      `json:"max_hybrid_seconds"`
}

type QueueConfig struct {
	Workers    int           `json:"workers"`
	MaxSize    int           `json:"max_size"`
	MaxRetries int           `json:"max_retries"`
	ItemDelay  time.Duration `json:"item_delay"`
}

type PricingConfig struct {
	// Cents per 1K tokens.
	InputCentsPer1K  float64 `json:"input_cents_per_1k"`
	OutputCentsPer1K float64 `json:"output_cents_per_1k"`
}

type StorageConfig struct {
	Enabled   bool   `json:"enabled"`
	AccessKey string `json:"-"`
	SecretKey string `json:"-"`
	Region    string `json:"region"`
	Endpoint  string `json:"endpoint"`
	Bucket    string `json:"bucket"`
}

func defaultDevMiddleware() MiddlewareConfig {
	return MiddlewareConfig{
		EnableRecover:   true,
		EnableRequestID: true,
		EnableLogger:    true,
		EnableTimeout:   false,
		EnableCORS:      true,
		EnableRateLimit: false,
		EnableCompress:  false,
		EnableETag:      false,
	}
}

func defaultProdMiddleware() MiddlewareConfig {
	return MiddlewareConfig{
		EnableRecover:   true,
		EnableRequestID: true,
		EnableLogger:    true,
		EnableTimeout:   true,
		EnableCORS:      true,
		EnableRateLimit: true,
		EnableCompress:  true,
		EnableETag:      true,
	}
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		ReadTimeout:  getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
		WriteTimeout: getEnvAsDuration("WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:  getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
		Debug:        getEnvAsBool("DEBUG", false),

		LogDir: getEnv("LOG_DIR", "/var/log/yt-notes"),

		Version: getEnv("VERSION", "1.0.0"),

		RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 60*time.Minute),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		CORS: CORSConfig{
			Enabled:        getEnvAsBool("CORS_ENABLED", true),
			AllowedOrigins: getEnvAsStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsStringSlice(
				"CORS_ALLOWED_METHODS",
				[]string{"GET", "POST", "OPTIONS"},
			),
			AllowedHeaders:   getEnvAsStringSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type"}),
			ExposedHeaders:   getEnvAsStringSlice("CORS_EXPOSED_HEADERS", []string{}),
			AllowCredentials: getEnvAsBool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           getEnvAsInt("CORS_MAX_AGE", 86400),
		},

		RateLimit: RateLimitConfig{
			Enabled:           getEnvAsBool("RATE_LIMIT_ENABLED", true),
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_RPM", 60),
			BurstSize:         getEnvAsInt("RATE_LIMIT_BURST", 10),
		},

		Database: DatabaseConfig{
			Path:               getEnv("DB_PATH", "/var/lib/yt-notes/data.db"),
			MaxConnections:     getEnvAsInt("DB_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DB_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    getEnvAsDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},

		Models: ModelsConfig{
			VideoModels: getEnvAsStringSlice(
				"VIDEO_MODELS",
				[]string{"gemini-2.0-flash", "gemini-1.5-pro"},
			),
			TextModels: getEnvAsStringSlice(
				"TEXT_MODELS",
				[]string{"claude-3-5-sonnet-20241022", "claude-3-5-haiku-20241022"},
			),
			GeminiAPIBase: getEnv(
				"LLM_API_BASE",
				"https://generativelanguage.googleapis.com/v1beta",
			),
			GeminiAPIKey:    getEnv("LLM_API_KEY", ""),
			AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
			MaxTokens:       getEnvAsInt("MODEL_MAX_TOKENS", 8192),
			Temperature:     getEnvAsFloat("MODEL_TEMPERATURE", 0.4),
		},

		YouTube: YouTubeConfig{
			CaptionsAPIURL: getEnv("CAPTIONS_API_URL", ""),
			CaptionsAPIKey: getEnv("CAPTIONS_API_KEY", ""),
			MetadataAPIURL: getEnv("METADATA_API_URL", ""),
			MetadataAPIKey: getEnv("METADATA_API_KEY", ""),
			FetchTimeout:   getEnvAsDuration("YOUTUBE_FETCH_TIMEOUT", 30*time.Second),
			FetchRetries:   getEnvAsInt("YOUTUBE_FETCH_RETRIES", 3),
		},

		Processing: ProcessingConfig{
			ProcessTimeout:   getEnvAsDuration("PROCESS_TIMEOUT", 30*time.Minute),
			ChunkSeconds:     getEnvAsInt("CHUNK_SECONDS", 1200),
			LongVideoSeconds: getEnvAsInt("LONG_VIDEO_SECONDS", 2400),
			GenerateRPM:      getEnvAsInt("GENERATE_RPM", 10),
			GenerateBurst:    getEnvAsInt("GENERATE_BURST", 1),
		},

		Selector: SelectorConfig{
			EducationalTags: getEnvAsStringSlice(
				"SELECTOR_EDUCATIONAL_TAGS",
				[]string{"tutorial", "course", "lesson", "lecture", "how-to", "guide", "education"},
			),
			VisualHints: getEnvAsStringSlice(
				"SELECTOR_VISUAL_HINTS",
				[]string{"slides", "chart", "charts", "diagram", "diagrams", "whiteboard"},
			),
			MinHybridSeconds: getEnvAsInt("SELECTOR_MIN_HYBRID_SECONDS", 60),
			MaxHybridSeconds: getEnvAsInt("SELECTOR_MAX_HYBRID_SECONDS", 3600),
		},

		Queue: QueueConfig{
			Workers:    getEnvAsInt("QUEUE_WORKERS", 1),
			MaxSize:    getEnvAsInt("QUEUE_MAX_SIZE", 100),
			MaxRetries: getEnvAsInt("QUEUE_MAX_RETRIES", 3),
			ItemDelay:  getEnvAsDuration("QUEUE_ITEM_DELAY", 2*time.Second),
		},

		Pricing: PricingConfig{
			InputCentsPer1K:  getEnvAsFloat("PRICE_INPUT_CENTS_PER_1K", 0.0125),
			OutputCentsPer1K: getEnvAsFloat("PRICE_OUTPUT_CENTS_PER_1K", 0.05),
		},

		Storage: StorageConfig{
			Enabled:   getEnvAsBool("STORAGE_ENABLED", false),
			AccessKey: getEnv("SPACES_ACCESS_KEY", ""),
			SecretKey: getEnv("SPACES_SECRET_KEY", ""),
			Region:    getEnv("SPACES_REGION", "nyc3"),
			Endpoint:  getEnv("SPACES_ENDPOINT", ""),
			Bucket:    getEnv("SPACES_BUCKET", ""),
		},

		Middleware: defaultDevMiddleware(),
	}

	if os.Getenv("ENV") == "production" {
		cfg.Middleware = defaultProdMiddleware()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validatePaths(c); err != nil {
		return err
	}
	if err := validateTimeouts(c); err != nil {
		return err
	}
	if err := validateProcessing(c); err != nil {
		return err
	}
	return nil
}

func validatePaths(c *Config) error {
	paths := []struct {
		path string
		name string
	}{
		{c.LogDir, "log directory"},
		{filepath.Dir(c.Database.Path), "database directory"},
	}

	for _, p := range paths {
		if err := os.MkdirAll(p.path, 0755); err != nil {
			return errors.Wrapf(err, "failed to create %s", p.name)
		}
	}

	return nil
}

func validateTimeouts(c *Config) error {
	if c.ReadTimeout <= 0 {
		return errors.New("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return errors.New("write timeout must be positive")
	}
	if c.Processing.ProcessTimeout <= 0 {
		return errors.New("process timeout must be positive")
	}
	return nil
}

func validateProcessing(c *Config) error {
	if c.Processing.ChunkSeconds <= 0 {
		return errors.New("chunk width must be positive")
	}
	if c.Processing.LongVideoSeconds < c.Processing.ChunkSeconds {
		return errors.New("long-video threshold must be at least one chunk wide")
	}
	if len(c.Models.VideoModels)+len(c.Models.TextModels) == 0 {
		return errors.New("at least one model must be configured")
	}
	if c.Queue.Workers <= 0 {
		return errors.New("queue workers must be positive")
	}
	if c.Queue.MaxRetries < 0 {
		return errors.New("queue max retries must not be negative")
	}
	return nil
}

// Helper functions for reading environment variables
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists {
		if value = strings.TrimSpace(value); value != "" {
			return strings.Split(value, ",")
		}
	}
	return defaultValue
}
