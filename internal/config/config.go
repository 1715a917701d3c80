package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:",squash"`
	Database DatabaseConfig `mapstructure:",squash"`
	Storage  StorageConfig  `mapstructure:",squash"`
	Log      LogConfig      `mapstructure:",squash"`
}

type ServerConfig struct {
	Port              string        `mapstructure:"HTTP_PORT"`
	GRPCPort          string        `mapstructure:"GRPC_PORT"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ReconcileInterval time.Duration `mapstructure:"RECONCILE_INTERVAL"`
	AllowedOrigins    []string      `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"DATABASE_DRIVER"`
	Host         string `mapstructure:"DATABASE_HOST"`
	Port         string `mapstructure:"DATABASE_PORT"`
	User         string `mapstructure:"DATABASE_USER"`
	Password     string `mapstructure:"DATABASE_PASSWORD"`
	Name         string `mapstructure:"DATABASE_NAME"`
	SSLMode      string `mapstructure:"DATABASE_SSLMODE"`
	SQLitePath   string `mapstructure:"DATABASE_SQLITE_PATH"`
	MaxOpenConns int    `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns int    `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
}

type StorageConfig struct {
	Provider          string `mapstructure:"STORAGE_PROVIDER"`
	ConfigPath        string `mapstructure:"STORAGE_CONFIG_PATH"`
	DefaultQuotaBytes int64  `mapstructure:"STORAGE_DEFAULT_QUOTA_BYTES"`
	MaxUploadBytes    int64  `mapstructure:"STORAGE_MAX_UPLOAD_BYTES"`
	Thumbnails        bool   `mapstructure:"STORAGE_THUMBNAILS"`
	ActivityBuffer    int    `mapstructure:"ACTIVITY_BUFFER"`
}

type LogConfig struct {
	Level       string `mapstructure:"LOG_LEVEL"`
	Development bool   `mapstructure:"LOG_DEVELOPMENT"`
}

const (
	ProviderS3    = "s3"
	ProviderMinio = "minio"
)

var defaults = map[string]any{
	"HTTP_PORT":          "2525",
	"GRPC_PORT":          "50051",
	"REQUEST_TIMEOUT":    "60s",
	"RECONCILE_INTERVAL": "1h",
	"CORS_ALLOWED_ORIGINS": []string{"*"},

	"DATABASE_DRIVER":         "postgres",
	"DATABASE_HOST":           "",
	"DATABASE_PORT":           "5432",
	"DATABASE_USER":           "",
	"DATABASE_PASSWORD":       "",
	"DATABASE_NAME":           "storagedrive",
	"DATABASE_SSLMODE":        "disable",
	"DATABASE_SQLITE_PATH":    "storagedrive.db",
	"DATABASE_MAX_OPEN_CONNS": 25,
	"DATABASE_MAX_IDLE_CONNS": 5,

	"STORAGE_PROVIDER":            ProviderS3,
	"STORAGE_CONFIG_PATH":         ".s3.env",
	"STORAGE_DEFAULT_QUOTA_BYTES": int64(10 << 30), // 10 GiB
	"STORAGE_MAX_UPLOAD_BYTES":    int64(100 << 20),
	"STORAGE_THUMBNAILS":          true,
	"ACTIVITY_BUFFER":             256,

	"LOG_LEVEL":       "info",
	"LOG_DEVELOPMENT": false,
}

// NewConfig читает конфигурацию из файла и переменных окружения.
// Переменные окружения имеют приоритет над файлом.
func NewConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("env")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	// Читаем конфигурацию из файла
	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Warning: using only environment variables: %v\n", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres":
		// Проверяем, что все необходимые поля заполнены
		if c.Database.Host == "" || c.Database.User == "" || c.Database.Name == "" {
			return fmt.Errorf("database configuration is incomplete: host=%s, port=%s, user=%s, name=%s",
				c.Database.Host, c.Database.Port, c.Database.User, c.Database.Name)
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("DATABASE_SQLITE_PATH is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER: %q", c.Database.Driver)
	}

	switch c.Storage.Provider {
	case ProviderS3, ProviderMinio:
	default:
		return fmt.Errorf("unsupported STORAGE_PROVIDER: %q", c.Storage.Provider)
	}

	if c.Storage.DefaultQuotaBytes < 0 {
		return fmt.Errorf("STORAGE_DEFAULT_QUOTA_BYTES must not be negative")
	}
	if c.Storage.MaxUploadBytes <= 0 {
		return fmt.Errorf("STORAGE_MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

// GetDSN возвращает строку подключения для выбранного драйвера
func (c *DatabaseConfig) GetDSN() string {
	if c.Driver == "sqlite" {
		return c.SQLitePath
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}

// MigrationURL - адрес базы для golang-migrate. Для sqlite не используется.
func (c *DatabaseConfig) MigrationURL() string {
	if c.Driver != "postgres" {
		return ""
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}
