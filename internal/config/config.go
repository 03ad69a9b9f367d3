package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	JWT      JWTConfig
	MinIO    MinIOConfig
	Render   RenderConfig
	Bulk     BulkConfig
	Approver ApproverConfig
}

type AppConfig struct {
	Port        string
	Env         string
	URL         string // base URL publik untuk link verifikasi
	StoreDriver string // postgres | memory
}

func (c AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type JWTConfig struct {
	Secret string
}

type MinIOConfig struct {
	Enabled  bool
	Endpoint string
	User     string
	Password string
	Bucket   string
	UseSSL   bool
}

type RenderConfig struct {
	Engine      string // chrome | gofpdf
	ChromePath  string
	Timeout     time.Duration
	SettleDelay time.Duration
	Scale       float64
}

type BulkConfig struct {
	BatchSize int
	Cooldown  time.Duration
}

type ApproverConfig struct {
	TitlePrefix        string
	FallbackName       string
	FallbackDepartment string
}

func Load() *Config {
	// Load .env jika ada (development), di production pakai env variable langsung
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found, reading from environment variables")
	}

	minioEnabled, _ := strconv.ParseBool(getEnv("MINIO_ENABLED", "false"))
	minioSSL, _ := strconv.ParseBool(getEnv("MINIO_USE_SSL", "false"))
	batchSize, _ := strconv.Atoi(getEnv("BULK_BATCH_SIZE", "5"))
	scale, _ := strconv.ParseFloat(getEnv("RENDER_SCALE", "3"), 64)

	return &Config{
		App: AppConfig{
			Port:        getEnv("APP_PORT", "8080"),
			Env:         getEnv("APP_ENV", "development"),
			URL:         getEnv("APP_URL", "http://localhost:8080"),
			StoreDriver: getEnv("STORE_DRIVER", "postgres"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "cert_user"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "cert_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "change-this-secret"),
		},
		MinIO: MinIOConfig{
			Enabled:  minioEnabled,
			Endpoint: getEnv("MINIO_ENDPOINT", "localhost:9000"),
			User:     getEnv("MINIO_USER", "minioadmin"),
			Password: getEnv("MINIO_PASSWORD", "minioadmin123"),
			Bucket:   getEnv("MINIO_BUCKET", "certificates"),
			UseSSL:   minioSSL,
		},
		Render: RenderConfig{
			Engine:      getEnv("RENDER_ENGINE", "chrome"),
			ChromePath:  getEnv("RENDER_CHROME_PATH", ""),
			Timeout:     getDuration("RENDER_TIMEOUT", 60*time.Second),
			SettleDelay: getDuration("RENDER_SETTLE_DELAY", 2*time.Second),
			Scale:       scale,
		},
		Bulk: BulkConfig{
			BatchSize: batchSize,
			Cooldown:  getDuration("BULK_COOLDOWN", 2*time.Second),
		},
		Approver: ApproverConfig{
			TitlePrefix:        getEnv("APPROVER_TITLE_PREFIX", "Dr."),
			FallbackName:       getEnv("APPROVER_FALLBACK_NAME", "Head of Department"),
			FallbackDepartment: getEnv("APPROVER_FALLBACK_DEPARTMENT", "Academic Affairs"),
		},
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		log.Warn().Str("key", key).Str("value", val).Msg("Invalid duration, using default")
		return fallback
	}
	return d
}
