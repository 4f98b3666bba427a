package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server needs from the environment so main
// stays lean. Durations accept Go duration syntax ("15m", "48h").
type Config struct {
	Addr        string
	Environment string
	DatabaseURL string
	Redis       RedisConfig

	JWTSigningKey string
	EncryptionKey string // 32 bytes; encrypts MFA secrets at rest
	CSRFKey       string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	LockoutThreshold int
	LockoutDuration  time.Duration

	LoginRateLimit    int
	LoginRateWindow   time.Duration
	RequestRateLimit  int
	RequestRateWindow time.Duration

	ResetTokenTTL       time.Duration
	VerificationCodeTTL time.Duration

	TOTPIssuer string

	CORSOrigins     []string
	CookieSecure    bool
	CleanupInterval time.Duration
	AuditRetention  time.Duration

	// AdminEmail, when set, bootstraps a Master Admin account on startup.
	AdminEmail    string
	AdminUsername string
	AdminPassword string
}

// RedisConfig holds Redis connection tuning.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// IsProduction reports whether the server runs with production hardening
// (secure cookies, strict defaults).
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// FromEnv builds a Config from environment variables with safe defaults.
func FromEnv() Config {
	cfg := Config{
		Addr:        getString("MASTHEAD_ADDR", ":8080"),
		Environment: getString("MASTHEAD_ENV", "development"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},

		JWTSigningKey: getString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		EncryptionKey: getString("ENCRYPTION_KEY", "dev-encryption-key-32-bytes-long"),
		CSRFKey:       getString("CSRF_KEY", "dev-csrf-key-change-in-production"),

		AccessTokenTTL:  getDuration("ACCESS_TOKEN_TTL", 48*time.Hour),
		RefreshTokenTTL: getDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour),

		LockoutThreshold: getInt("LOCKOUT_THRESHOLD", 5),
		LockoutDuration:  getDuration("LOCKOUT_DURATION", 15*time.Minute),

		LoginRateLimit:    getInt("LOGIN_RATE_LIMIT", 5),
		LoginRateWindow:   getDuration("LOGIN_RATE_WINDOW", 15*time.Minute),
		RequestRateLimit:  getInt("REQUEST_RATE_LIMIT", 100),
		RequestRateWindow: getDuration("REQUEST_RATE_WINDOW", time.Minute),

		ResetTokenTTL:       getDuration("RESET_TOKEN_TTL", 10*time.Minute),
		VerificationCodeTTL: getDuration("VERIFICATION_CODE_TTL", 10*time.Minute),

		TOTPIssuer: getString("TOTP_ISSUER", "Masthead"),

		CookieSecure:    getString("COOKIE_SECURE", "") == "true",
		CleanupInterval: getDuration("CLEANUP_INTERVAL", 5*time.Minute),
		AuditRetention:  getDuration("AUDIT_RETENTION", 90*24*time.Hour),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminUsername: getString("ADMIN_USERNAME", "admin"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}
	if cfg.IsProduction() {
		cfg.CookieSecure = true
	}

	return cfg
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
