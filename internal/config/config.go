package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port               int      `mapstructure:"port"`
		CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods []string `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders []string `mapstructure:"cors_allowed_headers"`
		CorsMaxAge         int      `mapstructure:"cors_max_age"`
	} `mapstructure:"server"`

	Remote struct {
		// Provider selects the backend adapter: "postgres" or "rest".
		Provider string `mapstructure:"provider"`

		Database struct {
			Host     string `mapstructure:"host"`
			Port     int    `mapstructure:"port"`
			User     string `mapstructure:"user"`
			Password string `mapstructure:"password"`
			Name     string `mapstructure:"name"`
		} `mapstructure:"database"`

		REST struct {
			BaseURL        string        `mapstructure:"base_url"`
			APIKey         string        `mapstructure:"api_key"`
			RequestTimeout time.Duration `mapstructure:"request_timeout"`
		} `mapstructure:"rest"`
	} `mapstructure:"remote"`

	Sync struct {
		DataDir       string        `mapstructure:"data_dir"`
		ProbeInterval time.Duration `mapstructure:"probe_interval"`
		ProbeTimeout  time.Duration `mapstructure:"probe_timeout"`
		ProbeURL      string        `mapstructure:"probe_url"`
	} `mapstructure:"sync"`
}

func Load() *Config {
	// Load .env file if exists (ignore error in production)
	godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile("configs/config.yaml")

	// Auto bind environment variables
	v.AutomaticEnv()

	// Set sensible defaults (binary works without config file)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_max_age", 300)
	v.SetDefault("remote.provider", "postgres")
	v.SetDefault("remote.database.host", "localhost")
	v.SetDefault("remote.database.port", 5432)
	v.SetDefault("remote.database.user", "postgres")
	v.SetDefault("remote.database.name", "courier_db")
	v.SetDefault("remote.rest.request_timeout", 15*time.Second)
	v.SetDefault("sync.data_dir", "data")
	v.SetDefault("sync.probe_interval", 30*time.Second)
	v.SetDefault("sync.probe_timeout", 5*time.Second)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		log.Printf("[Config] No config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("config unmarshal error: %v", err)
	}

	// Override database settings from DB_* environment variables
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Remote.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			cfg.Remote.Database.Port = n
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Remote.Database.User = user
	}
	if pass := os.Getenv("DB_PASSWORD"); pass != "" {
		cfg.Remote.Database.Password = pass
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Remote.Database.Name = name
	}

	if provider := os.Getenv("REMOTE_PROVIDER"); provider != "" {
		cfg.Remote.Provider = provider
	}
	if base := os.Getenv("REMOTE_BASE_URL"); base != "" {
		cfg.Remote.REST.BaseURL = base
	}
	if key := os.Getenv("REMOTE_API_KEY"); key != "" {
		cfg.Remote.REST.APIKey = key
	}
	if dir := os.Getenv("SYNC_DATA_DIR"); dir != "" {
		cfg.Sync.DataDir = dir
	}

	return &cfg
}
