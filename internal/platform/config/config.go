package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration. FromEnv keeps main lean.
type Server struct {
	Addr          string
	PostgresURL   string
	Redis         RedisConfig
	ResolveTTL    time.Duration
	JWTSigningKey string
	AnalyticsBuf  int
}

// RedisConfig holds connection settings for the resolution snapshot cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("QRFLOW_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:          addr,
		PostgresURL:   os.Getenv("QRFLOW_POSTGRES_URL"),
		JWTSigningKey: jwtSigningKey,
		ResolveTTL:    durationEnv("QRFLOW_RESOLVE_CACHE_TTL", 30*time.Second),
		AnalyticsBuf:  intEnv("QRFLOW_ANALYTICS_BUFFER", 1024),
		Redis: RedisConfig{
			URL:          os.Getenv("QRFLOW_REDIS_URL"),
			PoolSize:     intEnv("QRFLOW_REDIS_POOL_SIZE", 10),
			MinIdleConns: intEnv("QRFLOW_REDIS_MIN_IDLE", 2),
			DialTimeout:  durationEnv("QRFLOW_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durationEnv("QRFLOW_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durationEnv("QRFLOW_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}
}

func intEnv(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}
