package s3

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	defaultEndpoint = "https://storage.yandexcloud.net"
	defaultRegion   = "ru-central1"
)

type Config struct {
	Endpoint        string `mapstructure:"Endpoint"`
	Region          string `mapstructure:"Region"`
	AccessKeyID     string `mapstructure:"AccessKeyID"`
	SecretAccessKey string `mapstructure:"SecretAccessKey"`
	Bucket          string `mapstructure:"Bucket"`
	// PublicURL - адрес, по которому объекты доступны клиентам.
	// По умолчанию Endpoint/Bucket.
	PublicURL    string `mapstructure:"PublicURL"`
	UsePathStyle bool   `mapstructure:"UsePathStyle"`
}

func NewConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("Endpoint", defaultEndpoint)
	v.SetDefault("Region", defaultRegion)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("cannot read config from %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	// Проверяем, что все необходимые поля заполнены
	if c.AccessKeyID == "" {
		return fmt.Errorf("AccessKeyID is required")
	}
	if c.SecretAccessKey == "" {
		return fmt.Errorf("SecretAccessKey is required")
	}
	if c.Bucket == "" {
		return fmt.Errorf("Bucket is required")
	}
	if c.Endpoint == "" {
		c.Endpoint = defaultEndpoint
	}
	if c.Region == "" {
		c.Region = defaultRegion
	}
	if c.PublicURL == "" {
		c.PublicURL = strings.TrimSuffix(c.Endpoint, "/") + "/" + c.Bucket
	}
	return nil
}
