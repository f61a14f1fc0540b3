package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

const (
	ModeDevelopment = "development"
	ModeProduction  = "production"

	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Mode     string `mapstructure:"mode"`
	Handlers struct {
		Prometheus struct {
			Enabled bool   `mapstructure:"enabled"`
			Port    string `mapstructure:"port"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Repositories struct {
		Driver       string        `mapstructure:"driver"`
		StoreTimeout time.Duration `mapstructure:"storeTimeout"`
		Postgres     struct {
			Host     string `mapstructure:"host"`
			Password string `mapstructure:"password"`
			Port     string `mapstructure:"port"`
			Username string `mapstructure:"username"`
			DB       string `mapstructure:"db"`
			SSLMode  string `mapstructure:"sslmode"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort        string        `mapstructure:"httpPort"`
		Timeout         time.Duration `mapstructure:"httpTimeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	} `mapstructure:"server"`
	Auth AuthConfig `mapstructure:"auth"`
	CORS struct {
		AllowedOrigins []string `mapstructure:"allowedOrigins"`
	} `mapstructure:"cors"`
}

// AuthConfig carries the credential and token settings. SecretKey is empty
// when JWT_SECRET is not set; consumers must treat that as misconfiguration.
type AuthConfig struct {
	SecretKey           string        `mapstructure:"secretKey"`
	TokenTTL            time.Duration `mapstructure:"tokenTTL"`
	BcryptCost          int           `mapstructure:"bcryptCost"`
	MaxConcurrentHashes int64         `mapstructure:"maxConcurrentHashes"`
	MinPasswordLength   int           `mapstructure:"minPasswordLength"`
	UserCacheTTL        time.Duration `mapstructure:"userCacheTTL"`
}

func (c Config) IsProduction() bool {
	return c.Mode == ModeProduction
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("auth.secretKey", "JWT_SECRET", "APP_AUTH_SECRETKEY"); err != nil {
		return Config{}, fmt.Errorf("failed to bind secret env: %w", err)
	}

	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err = config.validate(); err != nil {
		return Config{}, err
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}

// validate rejects settings that cannot produce a working server. A missing
// signing secret is deliberately not an error here: the server still starts
// and the auth layer refuses to issue or accept tokens.
func (c Config) validate() error {
	switch c.Repositories.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown repositories.driver %q", c.Repositories.Driver)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.tokenTTL must be positive, got %s", c.Auth.TokenTTL)
	}
	if c.Auth.MinPasswordLength < 0 {
		return fmt.Errorf("auth.minPasswordLength must not be negative")
	}
	return nil
}
