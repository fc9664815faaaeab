package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// TrustProxy makes the client IP come from X-Forwarded-For. Enable it
	// only behind a proxy that sets the header.
	TrustProxy bool `env:"TRUST_PROXY, default=false"`

	Auth      AuthConfig
	CORS      CORSConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	Mail      MailConfig
	RateLimit RateLimitConfig
	Bootstrap BootstrapConfig
}

type AuthConfig struct {
	JWTSecret           string        `env:"JWT_SECRET, required"`
	JWTIssuer           string        `env:"JWT_ISSUER, default=site-backend"`
	JWTTTL              time.Duration `env:"JWT_TTL,    default=24h"`
	BcryptCost          int           `env:"BCRYPT_COST, default=10"`
	RegisterEmailDomain string        `env:"REGISTER_EMAIL_DOMAIN, default=slimming.com"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS, default=http://localhost:3000,http://localhost:3001,http://localhost:5173"`
}

type MongoConfig struct {
	URI         string        `env:"MONGO_URI,           default=mongodb://localhost:27017"`
	Database    string        `env:"MONGO_DB,            default=site"`
	MaxPoolSize uint64        `env:"MONGO_MAX_POOL_SIZE, default=50"`
	Timeout     time.Duration `env:"MONGO_TIMEOUT,       default=10s"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

type MailConfig struct {
	Host        string `env:"SMTP_HOST"`
	Port        string `env:"SMTP_PORT,     default=587"`
	User        string `env:"SMTP_USER"`
	Pass        string `env:"SMTP_PASS"`
	From        string `env:"SMTP_FROM"`
	Security    string `env:"SMTP_SECURITY, default=starttls"`
	ResetTo     string `env:"RESET_MAIL_TO"`
	FrontendURL string `env:"FRONTEND_URL,  default=http://localhost:5173"`
	Workers     int    `env:"MAIL_WORKERS,  default=2"`
}

type RateLimitConfig struct {
	Window      time.Duration `env:"RATE_LIMIT_WINDOW,       default=15m"`
	MaxAttempts int           `env:"RATE_LIMIT_MAX_ATTEMPTS, default=10"`
}

type BootstrapConfig struct {
	Username string `env:"BOOTSTRAP_ADMIN_USERNAME, default=admin"`
	Password string `env:"BOOTSTRAP_ADMIN_PASSWORD"`
	Email    string `env:"BOOTSTRAP_ADMIN_EMAIL,    default=admin@slimming.com"`
}

// IsDevelopment reports whether the service runs with developer defaults.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Auth.JWTSecret) < 32 && !c.IsDevelopment() {
		return errors.New("JWT_SECRET must be at least 32 bytes outside development")
	}
	if c.Auth.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if c.RateLimit.MaxAttempts <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit window and attempts must be positive")
	}
	return nil
}
