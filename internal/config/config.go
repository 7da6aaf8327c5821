package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr        string
	Port              string
	DatabasePath      string
	SessionSecret     string
	GinMode           string
	LogLevel          string
	SiteBaseURL       string
	AllowedOrigins    []string
	TrustedProxies    []string
	SecureCookies     bool
	BlogManifestPath  string
	SuperRootUserName string
	SuperRootPassword string

	Storage StorageConfig
	Mail    MailConfig
	Contact ContactConfig
	Upload  UploadConfig
}

// StorageConfig selects and configures the blob bucket for gallery images.
type StorageConfig struct {
	Driver    string // local, s3
	LocalDir  string
	PublicURL string
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// MailConfig configures the notification sender used by the contact form.
type MailConfig struct {
	Provider     string // log, smtp, resend
	From         string
	NotifyTo     []string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	ResendAPIKey string
	ResendURL    string
}

// ContactConfig bounds the per-IP submission rate.
type ContactConfig struct {
	RateLimit  int
	RateWindow time.Duration
}

// UploadConfig bounds accepted gallery uploads and the compressed output.
type UploadConfig struct {
	MaxBytes     int64
	MinDimension int
	MaxDimension int
	OutputMaxDim int
	JPEGQuality  int
}

// LoadDotEnv 读取工作目录下的 .env 文件；已存在的环境变量优先。
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	port := envOr("PORT", "8080")

	listenAddr := envOr("LISTEN_ADDR", fmt.Sprintf(":%s", port))

	return AppConfig{
		ListenAddr:        listenAddr,
		Port:              port,
		DatabasePath:      envOr("DATABASE_PATH", "data/site.db"),
		SessionSecret:     envOr("SESSION_SECRET", "dxbfab-dev-secret"),
		GinMode:           envOr("GIN_MODE", "release"),
		LogLevel:          envOr("LOG_LEVEL", "info"),
		SiteBaseURL:       strings.TrimRight(envOr("SITE_BASE_URL", "https://www.dxbfab.ae"), "/"),
		AllowedOrigins:    splitList(envOr("ALLOWED_ORIGINS", "http://localhost:5173")),
		TrustedProxies:    splitList(os.Getenv("TRUSTED_PROXIES")),
		SecureCookies:     envBool("SECURE_COOKIES", false),
		BlogManifestPath:  strings.TrimSpace(os.Getenv("BLOG_MANIFEST_PATH")),
		SuperRootUserName: strings.TrimSpace(os.Getenv("SUPER_ROOT_USER_NAME")),
		SuperRootPassword: strings.TrimSpace(os.Getenv("SUPER_ROOT_PASSWORD")),
		Storage: StorageConfig{
			Driver:    strings.ToLower(envOr("STORAGE_DRIVER", "local")),
			LocalDir:  envOr("UPLOAD_DIR", "data/uploads"),
			PublicURL: strings.TrimRight(envOr("UPLOAD_URL_PATH", "/uploads"), "/"),
			Bucket:    strings.TrimSpace(os.Getenv("STORAGE_BUCKET")),
			Region:    envOr("STORAGE_REGION", "auto"),
			Endpoint:  strings.TrimSpace(os.Getenv("STORAGE_ENDPOINT")),
			AccessKey: strings.TrimSpace(os.Getenv("STORAGE_ACCESS_KEY")),
			SecretKey: strings.TrimSpace(os.Getenv("STORAGE_SECRET_KEY")),
		},
		Mail: MailConfig{
			Provider:     strings.ToLower(envOr("MAIL_PROVIDER", "log")),
			From:         envOr("MAIL_FROM", "website@dxbfab.ae"),
			NotifyTo:     splitList(envOr("MAIL_NOTIFY_TO", "hello@dxbfab.ae")),
			SMTPHost:     strings.TrimSpace(os.Getenv("SMTP_HOST")),
			SMTPPort:     envInt("SMTP_PORT", 587),
			SMTPUsername: strings.TrimSpace(os.Getenv("SMTP_USERNAME")),
			SMTPPassword: strings.TrimSpace(os.Getenv("SMTP_PASSWORD")),
			ResendAPIKey: strings.TrimSpace(os.Getenv("RESEND_API_KEY")),
			ResendURL:    envOr("RESEND_API_URL", "https://api.resend.com"),
		},
		Contact: ContactConfig{
			RateLimit:  envInt("CONTACT_RATE_LIMIT", 5),
			RateWindow: envDuration("CONTACT_RATE_WINDOW", time.Minute),
		},
		Upload: UploadConfig{
			MaxBytes:     int64(envInt("UPLOAD_MAX_BYTES", 20<<20)),
			MinDimension: envInt("UPLOAD_MIN_DIMENSION", 400),
			MaxDimension: envInt("UPLOAD_MAX_DIMENSION", 8000),
			OutputMaxDim: envInt("UPLOAD_OUTPUT_MAX_DIMENSION", 2400),
			JPEGQuality:  envInt("UPLOAD_JPEG_QUALITY", 82),
		},
	}
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
