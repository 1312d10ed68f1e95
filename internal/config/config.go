package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	ClamdAddr      string   `mapstructure:"clamd_addr"`
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Name         string `mapstructure:"name"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	PublicEndpoint   string `mapstructure:"public_endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	BucketLookup     string `mapstructure:"bucket_lookup"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
}

// AuthConfig 包含会话令牌与身份提供方配置。
// AdminUIDs 是服务端管理员白名单：模板的创建与删除只允许这里列出的 uid。
type AuthConfig struct {
	PrivateKeyPath        string         `mapstructure:"private_key_path"`
	PublicKeyPath         string         `mapstructure:"public_key_path"`
	AccessTokenTTL        time.Duration  `mapstructure:"access_token_ttl"`
	RefreshTokenTTL       time.Duration  `mapstructure:"refresh_token_ttl"`
	CookieDomain          string         `mapstructure:"cookie_domain"`
	AdminUIDs             []string       `mapstructure:"admin_uids"`
	ExchangeRateLimitHour int            `mapstructure:"exchange_rate_limit_hour"`
	Providers             []OIDCProvider `mapstructure:"providers"`
}

// OIDCProvider 描述一个按标签分发的 OAuth/OIDC 身份提供方。
type OIDCProvider struct {
	Label    string `mapstructure:"label"`
	Issuer   string `mapstructure:"issuer"`
	ClientID string `mapstructure:"client_id"`
}

// WorkerConfig contains background worker settings.
type WorkerConfig struct {
	Concurrency   int    `mapstructure:"concurrency"`
	SweepInterval string `mapstructure:"sweep_interval"`
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Addr returns the host:port pair for the Redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.API.AllowedOrigins = splitAndTrim(v.GetString("api.allowed_origins"))
	cfg.Auth.AdminUIDs = splitAndTrim(v.GetString("auth.admin_uids"))
	cfg.Auth.Providers = providersFromEnv(v)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.allowed_origins", "")
	v.SetDefault("api.clamd_addr", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "resumecraft")
	v.SetDefault("database.user", "resumecraft")
	v.SetDefault("database.password", "resumecraft")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.public_endpoint", "http://localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "resumecraft")
	v.SetDefault("minio.bucket_lookup", "auto")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("auth.refresh_token_ttl", "720h")
	v.SetDefault("auth.admin_uids", "")
	v.SetDefault("auth.exchange_rate_limit_hour", 30)
	v.SetDefault("auth.google_issuer", "https://accounts.google.com")
	v.SetDefault("auth.google_client_id", "")
	v.SetDefault("auth.github_issuer", "")
	v.SetDefault("auth.github_client_id", "")
	v.SetDefault("worker.concurrency", 10)
	v.SetDefault("worker.sweep_interval", "@every 6h")
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                      "API_PORT",
		"api.allowed_origins":           "API_ALLOWED_ORIGINS",
		"api.clamd_addr":                "CLAMD_ADDR",
		"database.host":                 "DATABASE_HOST",
		"database.port":                 "DATABASE_PORT",
		"database.name":                 "POSTGRES_DB",
		"database.user":                 "POSTGRES_USER",
		"database.password":             "POSTGRES_PASSWORD",
		"database.sslmode":              "DATABASE_SSLMODE",
		"database.max_open_conns":       "DATABASE_MAX_OPEN_CONNS",
		"database.max_idle_conns":       "DATABASE_MAX_IDLE_CONNS",
		"redis.host":                    "REDIS_HOST",
		"redis.port":                    "REDIS_PORT",
		"minio.endpoint":                "MINIO_ENDPOINT",
		"minio.public_endpoint":         "MINIO_PUBLIC_ENDPOINT",
		"minio.access_key_id":           "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":       "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":                 "MINIO_USE_SSL",
		"minio.bucket":                  "MINIO_BUCKET",
		"minio.region":                  "MINIO_REGION",
		"minio.bucket_lookup":           "MINIO_BUCKET_LOOKUP",
		"minio.auto_create_bucket":      "MINIO_AUTO_CREATE_BUCKET",
		"auth.private_key_path":         "AUTH_PRIVATE_KEY_PATH",
		"auth.public_key_path":          "AUTH_PUBLIC_KEY_PATH",
		"auth.access_token_ttl":         "AUTH_ACCESS_TOKEN_TTL",
		"auth.refresh_token_ttl":        "AUTH_REFRESH_TOKEN_TTL",
		"auth.cookie_domain":            "AUTH_COOKIE_DOMAIN",
		"auth.admin_uids":               "AUTH_ADMIN_UIDS",
		"auth.exchange_rate_limit_hour": "AUTH_EXCHANGE_RATE_LIMIT_HOUR",
		"auth.google_issuer":            "AUTH_GOOGLE_ISSUER",
		"auth.google_client_id":         "AUTH_GOOGLE_CLIENT_ID",
		"auth.github_issuer":            "AUTH_GITHUB_ISSUER",
		"auth.github_client_id":         "AUTH_GITHUB_CLIENT_ID",
		"worker.concurrency":            "WORKER_CONCURRENCY",
		"worker.sweep_interval":         "WORKER_SWEEP_INTERVAL",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// providersFromEnv 按标签装配身份提供方，未配置 client_id 的条目会被跳过。
func providersFromEnv(v *viper.Viper) []OIDCProvider {
	candidates := []OIDCProvider{
		{Label: "google", Issuer: v.GetString("auth.google_issuer"), ClientID: v.GetString("auth.google_client_id")},
		{Label: "github", Issuer: v.GetString("auth.github_issuer"), ClientID: v.GetString("auth.github_client_id")},
	}
	providers := make([]OIDCProvider, 0, len(candidates))
	for _, c := range candidates {
		if c.Issuer != "" && c.ClientID != "" {
			providers = append(providers, c)
		}
	}
	return providers
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Database.User == "" {
		return errors.New("database user is required")
	}
	if cfg.Database.Password == "" {
		return errors.New("database password is required")
	}
	if cfg.Database.SSLMode == "" {
		return errors.New("database sslmode is required")
	}
	if cfg.Database.MaxOpenConns <= 0 || cfg.Database.MaxIdleConns <= 0 {
		return errors.New("database pool sizes must be positive")
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.MinIO.Endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	if cfg.MinIO.AccessKeyID == "" {
		return errors.New("minio access key id is required")
	}
	if cfg.MinIO.SecretAccessKey == "" {
		return errors.New("minio secret access key is required")
	}
	if cfg.MinIO.Bucket == "" {
		return errors.New("minio bucket is required")
	}
	if cfg.Auth.AccessTokenTTL <= 0 {
		return errors.New("auth access token ttl must be positive")
	}
	if cfg.Auth.RefreshTokenTTL <= 0 {
		return errors.New("auth refresh token ttl must be positive")
	}
	if cfg.Auth.ExchangeRateLimitHour <= 0 {
		return errors.New("auth exchange rate limit must be positive")
	}
	if cfg.Worker.Concurrency <= 0 {
		return errors.New("worker concurrency must be positive")
	}
	return nil
}
