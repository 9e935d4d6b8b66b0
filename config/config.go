package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Settlement SettlementConfig
	OTP        OTPConfig
	Firebase   FirebaseConfig
	Cloudinary CloudinaryConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig selects the gorm dialect. Driver "memory" runs on the in-process store.
type DatabaseConfig struct {
	Driver          string // mysql | postgres | sqlite | memory
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type RateLimitConfig struct {
	Store         string // redis | database | memory
	SweepInterval time.Duration
	IdleTTL       time.Duration
}

type JWTConfig struct {
	AccessSecret string
	AccessExpiry time.Duration
	Issuer       string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type SettlementConfig struct {
	ReconcileInterval time.Duration
	MaxAttempts       int
	BatchSize         int
	JobsPerSecond     float64
}

type OTPConfig struct {
	TTL         time.Duration
	MaxAttempts int
}

type FirebaseConfig struct {
	ServiceAccountPath string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

type LogConfig struct {
	Level string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8099"),
			Env:          getEnv("APP_ENV", "development"),
			ReadTimeout:  getDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("HTTP_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "mysql"),
			DSN:             getEnv("DB_DSN", "meetly:meetly@tcp(localhost:3306)/meetly?charset=utf8mb4&parseTime=True&loc=UTC"),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		RateLimit: RateLimitConfig{
			Store:         getEnv("RATE_LIMIT_STORE", "redis"),
			SweepInterval: getDuration("RATE_LIMIT_SWEEP_INTERVAL", time.Minute),
			IdleTTL:       getDuration("RATE_LIMIT_IDLE_TTL", 10*time.Minute),
		},
		JWT: JWTConfig{
			AccessSecret: getEnv("JWT_ACCESS_SECRET", "change-me-in-production"),
			AccessExpiry: getDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
			Issuer:       getEnv("JWT_ISSUER", "meetly"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:8081"}),
		},
		Settlement: SettlementConfig{
			ReconcileInterval: getDuration("SETTLEMENT_RECONCILE_INTERVAL", 30*time.Second),
			MaxAttempts:       getInt("SETTLEMENT_MAX_ATTEMPTS", 10),
			BatchSize:         getInt("SETTLEMENT_BATCH_SIZE", 50),
			JobsPerSecond:     getFloat("SETTLEMENT_JOBS_PER_SECOND", 20),
		},
		OTP: OTPConfig{
			TTL:         getDuration("OTP_TTL", 5*time.Minute),
			MaxAttempts: getInt("OTP_MAX_ATTEMPTS", 5),
		},
		Firebase: FirebaseConfig{
			ServiceAccountPath: os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH"),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
			APIKey:    os.Getenv("CLOUDINARY_API_KEY"),
			APISecret: os.Getenv("CLOUDINARY_API_SECRET"),
			Folder:    getEnv("CLOUDINARY_FOLDER", "Meetly"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return d
}

// getList splits a comma separated env value, e.g. CORS_ALLOWED_ORIGINS=https://a.com,https://b.com
func getList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
