package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the environment driven configuration for the export service.
type Config struct {
	// Service Configuration
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"dream-export"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"EXPORT_API_PORT" envDefault:"8290"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	EnableTracing   bool          `env:"ENABLE_TRACING" envDefault:"false"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Generation Provider
	ProviderAPIKey      string        `env:"LUMA_API_KEY"`
	ProviderBaseURL     string        `env:"LUMA_API_BASE_URL" envDefault:"https://api.lumalabs.ai/dream-machine/v1"`
	ProviderPageSize    int           `env:"PROVIDER_PAGE_SIZE" envDefault:"50"`
	ProviderMaxVideos   int           `env:"PROVIDER_MAX_VIDEOS" envDefault:"1000"`
	ProviderBulkMax     int           `env:"PROVIDER_BULK_MAX_VIDEOS" envDefault:"5000"`
	HeadConcurrency     int           `env:"PROVIDER_HEAD_CONCURRENCY" envDefault:"8"`
	ListTimeout         time.Duration `env:"PROVIDER_LIST_TIMEOUT" envDefault:"30s"`
	HeadTimeout         time.Duration `env:"PROVIDER_HEAD_TIMEOUT" envDefault:"10s"`
	DownloadTimeout     time.Duration `env:"PROVIDER_DOWNLOAD_TIMEOUT" envDefault:"60s"`
	ArchiveMaxItems     int           `env:"ARCHIVE_MAX_ITEMS" envDefault:"10"`
	BucketDownloadLimit int           `env:"BUCKET_DOWNLOAD_MAX_FILES" envDefault:"50"`
	ListConcurrency     int           `env:"LIST_CONCURRENCY" envDefault:"16"`

	// Google Drive (Backend A)
	DriveClientID     string `env:"GOOGLE_DRIVE_CLIENT_ID"`
	DriveClientSecret string `env:"GOOGLE_DRIVE_CLIENT_SECRET"`
	DriveRedirectURI  string `env:"GOOGLE_DRIVE_REDIRECT_URI"`
	DriveRefreshToken string `env:"GOOGLE_DRIVE_REFRESH_TOKEN"`
	DriveFolderName   string `env:"DRIVE_FOLDER_NAME" envDefault:"Luma Labs Videos"`

	// Bucket Store (Backend B)
	BucketEndpoint     string        `env:"BUCKET_S3_ENDPOINT"`
	BucketRegion       string        `env:"BUCKET_S3_REGION" envDefault:"us-east-1"`
	BucketName         string        `env:"BUCKET_S3_NAME"`
	BucketAccessKeyID  string        `env:"BUCKET_S3_ACCESS_KEY_ID"`
	BucketSecretKey    string        `env:"BUCKET_S3_SECRET_ACCESS_KEY"`
	BucketUsePathStyle bool          `env:"BUCKET_S3_USE_PATH_STYLE" envDefault:"true"`
	BucketPresignTTL   time.Duration `env:"BUCKET_S3_PRESIGN_TTL" envDefault:"168h"`
	BucketRootPrefix   string        `env:"BUCKET_ROOT_PREFIX" envDefault:"luma-videos"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.ProviderAPIKey = strings.TrimSpace(cfg.ProviderAPIKey)
	cfg.ProviderBaseURL = strings.TrimSuffix(strings.TrimSpace(cfg.ProviderBaseURL), "/")
	cfg.BucketName = strings.TrimSpace(cfg.BucketName)
	cfg.BucketAccessKeyID = strings.TrimSpace(cfg.BucketAccessKeyID)
	cfg.BucketSecretKey = strings.TrimSpace(cfg.BucketSecretKey)
	cfg.BucketEndpoint = strings.TrimSpace(cfg.BucketEndpoint)

	if cfg.ProviderPageSize <= 0 {
		cfg.ProviderPageSize = 50
	}
	if cfg.HeadConcurrency <= 0 {
		cfg.HeadConcurrency = 8
	}
	if cfg.ListConcurrency <= 0 {
		cfg.ListConcurrency = 16
	}

	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// MissingProvider lists absent provider secrets.
func (c *Config) MissingProvider() []string {
	var missing []string
	if c.ProviderAPIKey == "" {
		missing = append(missing, "LUMA_API_KEY")
	}
	return missing
}

// MissingDrive lists absent Google Drive secrets.
func (c *Config) MissingDrive() []string {
	var missing []string
	for _, item := range []struct {
		name  string
		value string
	}{
		{"GOOGLE_DRIVE_CLIENT_ID", c.DriveClientID},
		{"GOOGLE_DRIVE_CLIENT_SECRET", c.DriveClientSecret},
		{"GOOGLE_DRIVE_REDIRECT_URI", c.DriveRedirectURI},
		{"GOOGLE_DRIVE_REFRESH_TOKEN", c.DriveRefreshToken},
	} {
		if strings.TrimSpace(item.value) == "" {
			missing = append(missing, item.name)
		}
	}
	return missing
}

// MissingBucket lists absent bucket store secrets.
func (c *Config) MissingBucket() []string {
	var missing []string
	for _, item := range []struct {
		name  string
		value string
	}{
		{"BUCKET_S3_NAME", c.BucketName},
		{"BUCKET_S3_ACCESS_KEY_ID", c.BucketAccessKeyID},
		{"BUCKET_S3_SECRET_ACCESS_KEY", c.BucketSecretKey},
	} {
		if item.value == "" {
			missing = append(missing, item.name)
		}
	}
	return missing
}
