package minio

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Endpoint        string `mapstructure:"Endpoint"`
	AccessKeyID     string `mapstructure:"AccessKeyID"`
	SecretAccessKey string `mapstructure:"SecretAccessKey"`
	Bucket          string `mapstructure:"Bucket"`
	Region          string `mapstructure:"Region"`
	UseSSL          bool   `mapstructure:"UseSSL"`
	PublicURL       string `mapstructure:"PublicURL"`
}

func NewConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("Region", "us-east-1")
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
	if c.Endpoint == "" {
		return fmt.Errorf("Endpoint is required")
	}
	if c.AccessKeyID == "" || c.SecretAccessKey == "" {
		return fmt.Errorf("AccessKeyID and SecretAccessKey are required")
	}
	if c.Bucket == "" {
		return fmt.Errorf("Bucket is required")
	}
	if c.PublicURL == "" {
		scheme := "http"
		if c.UseSSL {
			scheme = "https"
		}
		c.PublicURL = fmt.Sprintf("%s://%s/%s", scheme, c.Endpoint, c.Bucket)
	}
	c.PublicURL = strings.TrimSuffix(c.PublicURL, "/")
	return nil
}
