package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Environment string
	LogLevel    string
	Server      ServerConfig
	AWS         AWSConfig
	Auth        AuthConfig
	Instagram   InstagramConfig
	Redis       RedisConfig
	NATS        NATSConfig
	Discovery   DiscoveryConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CorsOrigins     []string
}

// AWSConfig holds DynamoDB and S3 configuration
type AWSConfig struct {
	Region         string
	Endpoint       string // optional override, e.g. DynamoDB Local
	S3BucketName   string
	PresignExpires time.Duration
}

// AuthConfig holds token and password configuration
type AuthConfig struct {
	JWTSecret     string
	TokenTTL      time.Duration
	ResetTokenTTL time.Duration
	StateTTL      time.Duration
	BcryptCost    int
}

// InstagramConfig holds the Instagram app credentials and endpoints
type InstagramConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	APIBaseURL   string
	AuthURL      string
	TokenURL     string
	MediaLimit   int
}

// RedisConfig holds Redis configuration, empty URL disables Redis
type RedisConfig struct {
	URL string
}

// NATSConfig holds NATS configuration, empty URL disables event publishing
type NATSConfig struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
}

// DiscoveryConfig holds feed configuration
type DiscoveryConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// Load loads configuration from the environment, reading a .env file first when one exists
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment: getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		AWS: AWSConfig{
			Region:         getEnv("AWS_REGION", "us-east-1"),
			Endpoint:       getEnv("AWS_ENDPOINT_URL", ""),
			S3BucketName:   getEnv("S3_BUCKET_NAME", ""),
			PresignExpires: getEnvAsDuration("S3_PRESIGN_EXPIRES", 5*time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", ""),
			TokenTTL:      getEnvAsDuration("JWT_TOKEN_TTL", 7*24*time.Hour),
			ResetTokenTTL: getEnvAsDuration("PASSWORD_RESET_TTL", time.Hour),
			StateTTL:      getEnvAsDuration("OAUTH_STATE_TTL", 10*time.Minute),
			BcryptCost:    getEnvAsInt("BCRYPT_COST", 10),
		},
		Instagram: InstagramConfig{
			ClientID:     getEnv("INSTAGRAM_CLIENT_ID", ""),
			ClientSecret: getEnv("INSTAGRAM_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("INSTAGRAM_REDIRECT_URI", ""),
			APIBaseURL:   getEnv("INSTAGRAM_API_BASE_URL", "https://graph.instagram.com"),
			AuthURL:      getEnv("INSTAGRAM_AUTH_URL", "https://api.instagram.com/oauth/authorize"),
			TokenURL:     getEnv("INSTAGRAM_TOKEN_URL", "https://api.instagram.com/oauth/access_token"),
			MediaLimit:   getEnvAsInt("INSTAGRAM_MEDIA_LIMIT", 30),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		NATS: NATSConfig{
			URL:            getEnv("NATS_URL", ""),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 2*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 5*time.Second),
		},
		Discovery: DiscoveryConfig{
			DefaultLimit: getEnvAsInt("DISCOVERY_DEFAULT_LIMIT", 10),
			MaxLimit:     getEnvAsInt("DISCOVERY_MAX_LIMIT", 50),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsDevelopment reports whether the app runs in the development environment
func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Validate checks settings that have no safe default
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		if !c.IsDevelopment() {
			return errors.New("JWT_SECRET is required outside development")
		}
		c.Auth.JWTSecret = "development-secret"
	}
	if c.Discovery.DefaultLimit <= 0 {
		c.Discovery.DefaultLimit = 10
	}
	if c.Discovery.MaxLimit < c.Discovery.DefaultLimit {
		c.Discovery.MaxLimit = c.Discovery.DefaultLimit
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
