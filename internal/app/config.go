package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/mariotejeda2001/Glazeepink/internal/domain/auth"
)

const defaultAddr = "0.0.0.0:4242"

// Config holds the complete server configuration, loadable from environment
// variables (BAKERY_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:4242" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (BAKERY_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	ImageBaseURL string `default:"" usage:"Base URL prefixed to relative product image paths" flag:"image-base-url"`
	Auth         AuthConfig
	Payment      PaymentConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// AuthConfig controls bearer credentials and password hashing.
type AuthConfig struct {
	Secret     string        `usage:"HS256 signing secret, at least 32 bytes (BAKERY_AUTH_SECRET)" flag:"auth-secret"`
	TTL        time.Duration `default:"168h" usage:"Credential lifetime"`
	BcryptCost int           `default:"10" usage:"bcrypt cost for password hashes"`
}

// PaymentConfig controls the payment processor integration.
type PaymentConfig struct {
	SecretKey       string        `usage:"Processor secret key (BAKERY_PAYMENT_SECRET_KEY)" flag:"payment-secret-key"`
	Currency        string        `default:"mxn" usage:"Charge currency"`
	RequireIntent   bool          `default:"true" usage:"Require a verified, succeeded payment intent to record an order"`
	TotalTolerance  string        `default:"0.01" usage:"Accepted difference between client and catalog totals"`
	Timeout         time.Duration `default:"10s" usage:"Processor request timeout"`
	BreakerFailures uint32        `default:"5" usage:"Consecutive processor failures that open the circuit"`
	BreakerCooldown time.Duration `default:"30s" usage:"Time the circuit stays open"`
	URL             string        `default:"" usage:"Processor API endpoint override"`
}

// RedisConfig enables the catalog cache when Addr is set.
type RedisConfig struct {
	Addr     string        `default:"" usage:"Redis address for the catalog cache (REDIS_URL is also accepted)"`
	Password string        `default:"" usage:"Redis password"`
	DB       int           `default:"0" usage:"Redis database"`
	TTL      time.Duration `default:"10m" usage:"Catalog cache TTL"`
}

// KafkaConfig enables order event publishing when Brokers is set.
type KafkaConfig struct {
	Brokers []string `usage:"Kafka brokers for order events"`
	Topic   string   `default:"bakery.orders" usage:"Order events topic"`
}

// RateLimitConfig controls the per-client token bucket.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Burst size"`
	Window time.Duration `default:"1m"  usage:"Time to refill a full bucket"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, flags and YAML
// config files, then applies platform defaults and validates it.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "BAKERY",
		Files:     []string{"config.yaml", "/etc/bakery/config.yaml"},
		// BAKERY_API_URL and friends belong to the storefront CLI.
		AllowUnknownEnvs: true,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps the standard DATABASE_URL, PORT and REDIS_URL
// variables set by hosting platforms.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = os.Getenv("REDIS_URL")
	}
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set BAKERY_DATABASE_URL or DATABASE_URL")
	}
	if len(c.Auth.Secret) < auth.MinSecretLen {
		return errors.Errorf("auth secret is required and must be at least %d bytes: set BAKERY_AUTH_SECRET", auth.MinSecretLen)
	}
	if c.Payment.SecretKey == "" {
		return errors.New("payment secret key is required: set BAKERY_PAYMENT_SECRET_KEY")
	}
	if _, err := c.Payment.Tolerance(); err != nil {
		return err
	}
	return nil
}

// Tolerance parses TotalTolerance.
func (p PaymentConfig) Tolerance() (decimal.Decimal, error) {
	if p.TotalTolerance == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(p.TotalTolerance)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "payment total tolerance")
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("payment total tolerance must not be negative")
	}
	return d, nil
}
