package config

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Config holds all application configuration
type Config struct {
	Server ServerConfig `env:",prefix=SERVER_"`
	Mongo  MongoConfig  `env:",prefix=MONGO_"`
	Redis  RedisConfig  `env:",prefix=REDIS_"`
	Auth   AuthConfig   `env:",prefix=AUTH_"`
	Mail   MailConfig   `env:",prefix=MAIL_"`
	App    AppConfig    `env:",prefix=APP_"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  int      `env:"READ_TIMEOUT,default=7"`   // seconds
	WriteTimeout int      `env:"WRITE_TIMEOUT,default=60"` // seconds
	AllowOrigins []string `env:"ALLOW_ORIGINS,default=*"`
	// per client IP, on checkout, coupon and login routes
	RatePerMinute int `env:"RATE_PER_MINUTE,default=60"`
	RateBurst     int `env:"RATE_BURST,default=10"`
}

// MongoConfig holds the document store connection settings
type MongoConfig struct {
	URI      string `env:"URI,default=mongodb://localhost:27017"`
	Database string `env:"DATABASE,default=nongxian"`
	// Driver selects "mongo" or "memory"; memory keeps everything in process.
	Driver string `env:"DRIVER,default=mongo"`
}

// RedisConfig holds the event bus settings; an empty Addr disables publishing.
type RedisConfig struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB,default=0"`
	Channel  string `env:"CHANNEL,default=order-events"`
}

type AuthConfig struct {
	JWTSecret string `env:"JWT_SECRET,default=change-me"`
	TokenTTL  int    `env:"TOKEN_TTL_HOURS,default=12"`
}

// MailConfig points the storefront at the email relay.
type MailConfig struct {
	RelayURL    string `env:"RELAY_URL,default=http://localhost:8090/"`
	FromEmail   string `env:"FROM_EMAIL,default=service@nongxian.tw"`
	FromName    string `env:"FROM_NAME,default=農鮮市集"`
	AdminEmail  string `env:"ADMIN_EMAIL,default=admin@nongxian.tw"`
	TimeoutSecs int    `env:"TIMEOUT,default=30"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Environment string `env:"ENVIRONMENT,default=development"`
	StoreURL    string `env:"STORE_URL,default=http://localhost:5173"`
	// LabelFont is a TTF file with CJK glyphs for shipping labels.
	LabelFont string `env:"LABEL_FONT"`
}

// RelayConfig configures cmd/mailrelay.
type RelayConfig struct {
	Relay RelayServerConfig `env:",prefix=RELAY_"`
	SMTP  SMTPConfig        `env:",prefix=SMTP_"`
}

type RelayServerConfig struct {
	Addr       string `env:"ADDR,default=:8090"`
	MaxRetries int    `env:"MAX_RETRIES,default=3"`
	// FetchTimeout bounds attachment downloads, in seconds.
	FetchTimeout int `env:"FETCH_TIMEOUT,default=20"`
}

type SMTPConfig struct {
	Host      string `env:"HOST,default=localhost"`
	Port      int    `env:"PORT,default=587"`
	Username  string `env:"USERNAME"`
	Password  string `env:"PASSWORD"`
	FromEmail string `env:"FROM_EMAIL,default=service@nongxian.tw"`
	FromName  string `env:"FROM_NAME,default=農鮮市集"`
}

// Load reads .env if present, then the process environment.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	return &cfg, nil
}

// LoadRelay reads the mail relay's settings the same way Load does.
func LoadRelay(ctx context.Context) (*RelayConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	var cfg RelayConfig
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process relay config: %w", err)
	}
	return &cfg, nil
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func (c *AuthConfig) TTL() time.Duration {
	return time.Duration(c.TokenTTL) * time.Hour
}

func (c *MailConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// IsProduction returns true if running in production environment
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}
