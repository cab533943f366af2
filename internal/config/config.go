package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every runtime setting the backend needs. Values come from the
// environment (a .env file is loaded by cmd/main before this runs).
type Config struct {
	HTTPAddr string

	PostgresDSN string
	RedisAddr   string
	RedisDB     int

	JWTSecret string

	S3Region         string
	MediaBuckets     []string // allow-listed buckets, first one is the write target
	UploadGrantTTL   time.Duration
	DownloadLinkTTL  time.Duration
	MaxAudioBytes    int64
	MaxPhotoBytes    int64
	MaxVideoBytes    int64
	DefaultPageSize  int
	StoreCallTimeout time.Duration
}

const (
	defaultUploadGrantTTL  = 10 * time.Minute
	defaultDownloadLinkTTL = 15 * time.Minute

	defaultMaxAudioBytes = 20 << 20  // 20MB
	defaultMaxPhotoBytes = 10 << 20  // 10MB
	defaultMaxVideoBytes = 300 << 20 // 300MB
)

// Load reads the configuration from the environment. JWT_SECRET and
// POSTGRES_DSN have no usable defaults and cause an error when missing.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:         envOr("HTTP_ADDR", ":8080"),
		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		RedisAddr:        envOr("REDIS_ADDR", "localhost:6379"),
		RedisDB:          envIntOr("REDIS_DB", 0),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		S3Region:         envOr("S3_REGION", "ap-northeast-2"),
		MediaBuckets:     splitCSV(envOr("MEDIA_BUCKETS", "lovelink-media")),
		UploadGrantTTL:   envDurationOr("UPLOAD_GRANT_TTL", defaultUploadGrantTTL),
		DownloadLinkTTL:  envDurationOr("DOWNLOAD_LINK_TTL", defaultDownloadLinkTTL),
		MaxAudioBytes:    envInt64Or("MAX_AUDIO_BYTES", defaultMaxAudioBytes),
		MaxPhotoBytes:    envInt64Or("MAX_PHOTO_BYTES", defaultMaxPhotoBytes),
		MaxVideoBytes:    envInt64Or("MAX_VIDEO_BYTES", defaultMaxVideoBytes),
		DefaultPageSize:  envIntOr("DEFAULT_PAGE_SIZE", 20),
		StoreCallTimeout: envDurationOr("STORE_CALL_TIMEOUT", 5*time.Second),
	}

	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("POSTGRES_DSN is not set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64Or(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
