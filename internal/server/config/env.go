package config

import (
	"os"
	"strconv"
	"time"
)

// parseEnv overlays values from environment variables. Unset variables leave
// the current value untouched; malformed durations/sizes are ignored rather
// than guessed at.
func parseEnv(config *Config) {
	if v := os.Getenv("ADDRESS"); v != "" {
		config.Address = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		config.DatabaseDSN = v
	}
	if v := os.Getenv("SECRET_KEY"); v != "" {
		config.SecretKey = v
	}
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			config.TokenTTL = parsed
		}
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.MaxUploadBytes = parsed
		}
	}
	if v := os.Getenv("S3_ACCESS_KEY"); v != "" {
		config.S3AccessKey = v
	}
	if v := os.Getenv("S3_SECRET_KEY"); v != "" {
		config.S3SecretKey = v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		config.S3Bucket = v
	}
	if v := os.Getenv("S3_REGION"); v != "" {
		config.S3Region = v
	}
	if v := os.Getenv("S3_BASE_ENDPOINT"); v != "" {
		config.S3BaseEndpoint = v
	}
}
