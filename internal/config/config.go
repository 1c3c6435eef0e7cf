package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	SarvamBaseURL string
	LLMBaseURL    string
	LLMModel      string

	RecognizeTimeout time.Duration
	ProviderTimeout  time.Duration
	MaxRetries       uint64

	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioUseSSL     bool
	MinioRegion     string
	MinioPublicBase string
	AudioBucket     string

	MongoURI     string
	MongoDB      string
	ReportsTable string

	LocalityDatasetPath string
	CityName            string

	AuthJWTSecret string
	RateLimit     string
	CORSOrigins   []string
	MaxUploadMB   int64

	ReloadCredentials bool
}

// Load reads .env (if present) and then the process environment.
func Load(files ...string) (*Config, error) {
	_ = godotenv.Load(files...)

	cfg := &Config{
		Port:        envOr("PORT", "8000"),
		Environment: os.Getenv("ENVIRONMENT"),
		LogLevel:    os.Getenv("LOG_LEVEL"),

		SarvamBaseURL: envOr("SARVAM_BASE_URL", "https://api.sarvam.ai"),
		LLMBaseURL:    envOr("LLM_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai"),
		LLMModel:      envOr("LLM_MODEL", "gemini-2.0-flash"),

		MinioEndpoint:   os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey:  os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:  os.Getenv("MINIO_SECRET_KEY"),
		MinioUseSSL:     envBool("MINIO_USE_SSL"),
		MinioRegion:     os.Getenv("MINIO_REGION"),
		MinioPublicBase: os.Getenv("MINIO_PUBLIC_BASE"),
		AudioBucket:     envOr("AUDIO_BUCKET", "report-audio"),

		MongoURI:     os.Getenv("MONGODB_URI"),
		MongoDB:      envOr("MONGO_DB", "thooimai"),
		ReportsTable: envOr("REPORTS_TABLE", "issue_reports"),

		LocalityDatasetPath: os.Getenv("LOCALITY_DATASET_PATH"),
		CityName:            envOr("CITY_NAME", "Madurai"),

		AuthJWTSecret: os.Getenv("AUTH_JWT_SECRET"),
		RateLimit:     envOr("RATE_LIMIT", "20-M"),
		CORSOrigins:   splitList(envOr("CORS_ORIGINS", "http://localhost:5173,http://localhost:5174,http://localhost:3000")),

		ReloadCredentials: envBool("RELOAD_CREDENTIALS"),
	}

	var err error
	if cfg.RecognizeTimeout, err = envSeconds("RECOGNIZE_TIMEOUT_SEC", 60); err != nil {
		return nil, err
	}
	if cfg.ProviderTimeout, err = envSeconds("PROVIDER_TIMEOUT_SEC", 30); err != nil {
		return nil, err
	}
	retries, err := envInt("PROVIDER_MAX_RETRIES", 2)
	if err != nil {
		return nil, err
	}
	if retries < 0 {
		return nil, fmt.Errorf("PROVIDER_MAX_RETRIES must not be negative")
	}
	cfg.MaxRetries = uint64(retries)
	if cfg.MaxUploadMB, err = envInt("MAX_UPLOAD_MB", 25); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the process cannot start without.
func (c *Config) Validate() error {
	var missing []string
	for name, v := range map[string]string{
		"MINIO_ENDPOINT":   c.MinioEndpoint,
		"MINIO_ACCESS_KEY": c.MinioAccessKey,
		"MINIO_SECRET_KEY": c.MinioSecretKey,
		"MONGODB_URI":      c.MongoURI,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func envBool(k string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(k)))
	return v == "1" || v == "true" || v == "yes"
}

func envInt(k string, def int64) (int64, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return n, nil
}

func envSeconds(k string, def int64) (time.Duration, error) {
	n, err := envInt(k, def)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive", k)
	}
	return time.Duration(n) * time.Second, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
