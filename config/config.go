package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds everything tunable from the environment. The matching
// heuristics (window, TTLs, intervals) are deliberately configuration, not
// hard-coded invariants.
type AppConfig struct {
	Port      string
	JWTSecret string

	RedisAddr string
	RedisPass string
	RedisDB   int

	AWSRegion    string
	S3Bucket     string
	GeoEndpoint  string
	GeoTimeout   time.Duration

	MatchWindow      time.Duration // max serverTimestamp delta between two hits
	PendingTTL       time.Duration // lifetime of an unmatched hit
	MatchTTL         time.Duration // lifetime of a match record and its session index
	PollInterval     time.Duration // client-side fallback poll cadence
	HitCooldown      time.Duration // client-side minimum gap between hits
	ExchangeDeadline time.Duration // client-side hard deadline for the whole attempt
}

func Load() AppConfig {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env vars")
	}

	return AppConfig{
		Port:      getEnv("PORT", "8080"),
		JWTSecret: getEnv("JWT_SECRET", ""),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass: getEnv("REDIS_PASS", ""),
		RedisDB:   getEnvInt("REDIS_DB", 0),

		AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
		S3Bucket:    getEnv("S3_BUCKET_NAME", ""),
		GeoEndpoint: getEnv("GEO_ENDPOINT", "http://ip-api.com/json"),
		GeoTimeout:  getEnvDuration("GEO_TIMEOUT", 2*time.Second),

		MatchWindow:      getEnvDuration("MATCH_WINDOW", 3*time.Second),
		PendingTTL:       getEnvDuration("PENDING_TTL", 30*time.Second),
		MatchTTL:         getEnvDuration("MATCH_TTL", 600*time.Second),
		PollInterval:     getEnvDuration("POLL_INTERVAL", time.Second),
		HitCooldown:      getEnvDuration("HIT_COOLDOWN", 500*time.Millisecond),
		ExchangeDeadline: getEnvDuration("EXCHANGE_DEADLINE", 10*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
