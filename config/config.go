package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// SequenceBackend selects where per-day order sequences are drawn from.
type SequenceBackend string

const (
	SequenceMongo SequenceBackend = "mongo"
	SequenceRedis SequenceBackend = "redis"
)

// Development relaxes the secrets check so a fresh checkout runs as is.
const Development = "development"

type Config struct {
	Env  string
	Port string

	MongoURI          string
	MongoDB           string
	MongoTransactions bool

	RedisAddr     string
	RedisPassword string

	OrderSequence SequenceBackend

	JWTSecret     []byte
	TokenTTL      time.Duration
	ReceiptSecret []byte
	CookieSecure  bool

	AllowedOrigins []string
	LogLevel       string

	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found; using system environment")
	}

	cfg := &Config{
		Env:               strings.ToLower(getEnv("APP_ENV", "production")),
		Port:              getEnv("PORT", "8080"),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:           getEnv("MONGO_DB", "agromart"),
		MongoTransactions: getEnv("MONGO_TRANSACTIONS", "false") == "true",
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		OrderSequence:     SequenceBackend(strings.ToLower(getEnv("ORDER_SEQUENCE", string(SequenceMongo)))),
		TokenTTL:          7 * 24 * time.Hour,
		CookieSecure:      getEnv("COOKIE_SECURE", "false") == "true",
		AllowedOrigins:    splitList(os.Getenv("ALLOWED_ORIGINS")),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}

	if _, err := strconv.Atoi(strings.TrimPrefix(cfg.Port, ":")); err != nil {
		return nil, fmt.Errorf("invalid PORT %q: %w", cfg.Port, err)
	}

	switch cfg.OrderSequence {
	case SequenceMongo:
	case SequenceRedis:
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("ORDER_SEQUENCE=redis requires REDIS_ADDR")
		}
	default:
		return nil, fmt.Errorf("unknown ORDER_SEQUENCE %q", cfg.OrderSequence)
	}

	for _, o := range cfg.AllowedOrigins {
		if strings.Contains(o, "*") {
			return nil, fmt.Errorf("ALLOWED_ORIGINS must list exact origins, got %q", o)
		}
	}

	// every instance must sign with the same key
	cfg.JWTSecret = []byte(os.Getenv("JWT_SECRET"))
	if len(cfg.JWTSecret) == 0 {
		if cfg.Env != Development {
			return nil, fmt.Errorf("JWT_SECRET is required when APP_ENV=%s", cfg.Env)
		}
		slog.Warn("JWT_SECRET not set; generating a random key. Tokens will be invalid after restart.")
		cfg.JWTSecret = randomBytes(32)
	}

	cfg.ReceiptSecret = []byte(os.Getenv("RECEIPT_SECRET"))
	if len(cfg.ReceiptSecret) == 0 {
		cfg.ReceiptSecret = cfg.JWTSecret
	}

	rps, err := strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "5"), 64)
	if err != nil || rps <= 0 {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS")
	}
	cfg.RateLimitRPS = rps

	burst, err := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "10"))
	if err != nil || burst <= 0 {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST")
	}
	cfg.RateLimitBurst = burst

	return cfg, nil
}

// Addr returns the listen address in ":port" form.
func (c *Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return []byte(base64.RawURLEncoding.EncodeToString(b))
}
