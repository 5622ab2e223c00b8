package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	defaultDBPath       = "./hibp.db"
	defaultRateLimit    = 10
	defaultTemplatePath = "./templates/breach-email.html"
)

type Config struct {
	Env          string `mapstructure:"app_env"`
	APIKey       string `mapstructure:"hibp_api_key"`
	DBPath       string `mapstructure:"hibp_db_path"`
	RateLimit    int    `mapstructure:"hibp_rate_limit"`
	TenantID     string `mapstructure:"graph_tenant_id"`
	ClientID     string `mapstructure:"graph_client_id"`
	TemplatePath string `mapstructure:"notify_template"`
}

// Load reads configuration from the environment, layered over an optional
// .env file. The rate limit here is only the pre-flight default; the value
// actually used for pacing comes from the subscription check.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("loading .env file: %w", err)
		}
	}

	viper.AutomaticEnv()

	viper.SetDefault("APP_ENV", EnvLocal)
	viper.SetDefault("HIBP_DB_PATH", defaultDBPath)
	viper.SetDefault("HIBP_RATE_LIMIT", defaultRateLimit)
	viper.SetDefault("NOTIFY_TEMPLATE", defaultTemplatePath)

	cfg := &Config{
		Env:          viper.GetString("APP_ENV"),
		APIKey:       viper.GetString("HIBP_API_KEY"),
		DBPath:       viper.GetString("HIBP_DB_PATH"),
		RateLimit:    viper.GetInt("HIBP_RATE_LIMIT"),
		TenantID:     viper.GetString("GRAPH_TENANT_ID"),
		ClientID:     viper.GetString("GRAPH_CLIENT_ID"),
		TemplatePath: viper.GetString("NOTIFY_TEMPLATE"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("HIBP_DB_PATH must not be empty")
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("HIBP_RATE_LIMIT must be positive")
	}
	return nil
}

func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}
