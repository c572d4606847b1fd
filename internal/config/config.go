package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	IndexMemory   = "memory"
	IndexPostgres = "postgres"
	IndexSupabase = "supabase"

	ObjectsNone     = "none"
	ObjectsLocal    = "local"
	ObjectsSupabase = "supabase"
)

// requestMargin is the minimum gap kept between the webhook timeout and
// the per-request deadline.
const requestMargin = 15 * time.Second

type Config struct {
	TelegramToken string

	LogLevel string
	Debug    bool

	PreferIPv4     bool
	HTTPTimeout    time.Duration
	RequestTimeout time.Duration
	MaxConcurrent  int
	HistoryLimit   int

	WebhookURL          string
	WebhookTimeout      time.Duration
	WebhookFormFallback bool
	WebhookBeaconQueue  int

	ImageMaxBytes          int64
	ImageAllowPrivateHosts bool

	CopySeed uint64

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTLS      bool

	GalleryIndex       string
	DatabaseURL        string
	GalleryObjects     string
	UploadDir          string
	PublicBaseURL      string
	SupabaseURL        string
	SupabaseServiceKey string
	SupabaseBucket     string
	GalleryWebP        bool
	GalleryWebPQuality int

	WebAddr        string
	AllowedOrigins []string
}

func Load() (Config, error) {
	cfg := Config{
		LogLevel:       strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info"))),
		Debug:          getEnvBool("DEBUG", false),
		PreferIPv4:     getEnvBool("PREFER_IPV4", true),
		HTTPTimeout:    time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 120)) * time.Second,
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 90)) * time.Second,
		MaxConcurrent:  getEnvInt("MAX_CONCURRENT", 4),
		HistoryLimit:   getEnvInt("HISTORY_LIMIT", 10),

		WebhookURL:          strings.TrimSpace(os.Getenv("WEBHOOK_URL")),
		WebhookTimeout:      time.Duration(getEnvInt("WEBHOOK_TIMEOUT_SECONDS", 45)) * time.Second,
		WebhookFormFallback: getEnvBool("WEBHOOK_FORM_FALLBACK", true),
		WebhookBeaconQueue:  getEnvInt("WEBHOOK_BEACON_QUEUE", 16),

		ImageMaxBytes:          int64(getEnvInt("IMAGE_MAX_BYTES", 15<<20)),
		ImageAllowPrivateHosts: getEnvBool("IMAGE_ALLOW_PRIVATE_HOSTS", false),

		CopySeed: uint64(getEnvInt("COPY_SEED", 0)),

		RedisAddr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisTLS:      getEnvBool("REDIS_TLS", false),

		GalleryIndex:       strings.ToLower(getEnv("GALLERY_INDEX", IndexMemory)),
		DatabaseURL:        strings.TrimSpace(os.Getenv("DATABASE_URL")),
		GalleryObjects:     strings.ToLower(getEnv("GALLERY_OBJECTS", ObjectsLocal)),
		UploadDir:          getEnv("UPLOAD_DIR", "./uploads"),
		PublicBaseURL:      strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),
		SupabaseURL:        strings.TrimSpace(os.Getenv("SUPABASE_URL")),
		SupabaseServiceKey: strings.TrimSpace(os.Getenv("SUPABASE_SERVICE_KEY")),
		SupabaseBucket:     getEnv("SUPABASE_BUCKET", "generated"),
		GalleryWebP:        getEnvBool("GALLERY_WEBP", false),
		GalleryWebPQuality: getEnvInt("GALLERY_WEBP_QUALITY", 90),

		WebAddr:        getEnv("WEB_ADDR", ":8080"),
		AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "*")),
	}

	cfg.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.HistoryLimit < 1 {
		cfg.HistoryLimit = 10
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 120 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 90 * time.Second
	}
	if cfg.WebhookTimeout <= 0 {
		cfg.WebhookTimeout = 45 * time.Second
	}
	// A request must outlive the webhook call and leave room for the
	// image fetch, otherwise every slow webhook hits the request deadline.
	if floor := cfg.WebhookTimeout + requestMargin; cfg.RequestTimeout < floor {
		cfg.RequestTimeout = floor
	}
	if cfg.WebhookBeaconQueue < 0 {
		cfg.WebhookBeaconQueue = 0
	}
	if cfg.ImageMaxBytes <= 0 {
		cfg.ImageMaxBytes = 15 << 20
	}
	if cfg.GalleryWebPQuality < 1 || cfg.GalleryWebPQuality > 100 {
		cfg.GalleryWebPQuality = 90
	}

	switch cfg.GalleryIndex {
	case IndexMemory:
	case IndexPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required when GALLERY_INDEX=postgres")
		}
	case IndexSupabase:
		if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
			return Config{}, errors.New("SUPABASE_URL and SUPABASE_SERVICE_KEY are required when GALLERY_INDEX=supabase")
		}
	default:
		return Config{}, fmt.Errorf("unknown GALLERY_INDEX %q", cfg.GalleryIndex)
	}

	switch cfg.GalleryObjects {
	case ObjectsNone, ObjectsLocal:
	case ObjectsSupabase:
		if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
			return Config{}, errors.New("SUPABASE_URL and SUPABASE_SERVICE_KEY are required when GALLERY_OBJECTS=supabase")
		}
	default:
		return Config{}, fmt.Errorf("unknown GALLERY_OBJECTS %q", cfg.GalleryObjects)
	}

	return cfg, nil
}

// ValidateBot reports settings the Telegram front-end cannot start
// without.
func (c Config) ValidateBot() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	var out []string
	for _, p := range strings.Split(value, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
