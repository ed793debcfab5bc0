package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name" validate:"required"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn warning error"`

	GroupMeToken       string        `mapstructure:"groupme_token" validate:"required"`
	GroupMeBaseURL     string        `mapstructure:"groupme_base_url" validate:"required,url"`
	HTTPTimeoutSeconds int64         `mapstructure:"http_timeout_seconds"`
	HTTPTimeout        time.Duration `mapstructure:"-"`
	UserAgent          string        `mapstructure:"user_agent"`

	GroupsFile     string `mapstructure:"groups_file" validate:"required"`
	PublishersFile string `mapstructure:"publishers_file"`

	OutputDir     string `mapstructure:"output_dir" validate:"required"`
	CSVZero       string `mapstructure:"csv_zero"`
	ProgressWidth int    `mapstructure:"progress_width" validate:"gte=8"`

	RelayIntervalSeconds int64         `mapstructure:"relay_interval"`
	RelayInterval        time.Duration `mapstructure:"-"`

	StorageType            string        `mapstructure:"storage_type" validate:"oneof=bbolt none"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

var validate = validator.New()

// Load reads configuration from configs/.env and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetDefault("app_name", "groupkit")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("groupme_token", "")
	v.SetDefault("groupme_base_url", "https://api.groupme.com/v3")
	v.SetDefault("http_timeout_seconds", 15)
	v.SetDefault("user_agent", "groupkit/0.1")
	v.SetDefault("groups_file", "./configs/groups.yaml")
	v.SetDefault("publishers_file", "./configs/publishers.yaml")
	v.SetDefault("output_dir", "./out")
	v.SetDefault("csv_zero", "0")
	v.SetDefault("progress_width", 80)
	v.SetDefault("relay_interval", 60) // seconds
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/groupkit.db")
	v.SetDefault("storage_ttl_seconds", int64((30*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", describe(err))
	}

	if cfg.HTTPTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	if cfg.RelayIntervalSeconds <= 0 {
		return nil, fmt.Errorf("invalid relay_interval (must be positive seconds)")
	}
	cfg.RelayInterval = time.Duration(cfg.RelayIntervalSeconds) * time.Second

	if cfg.StorageTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return &cfg, nil
}

// describe rewrites validator output in terms of config keys.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fmt.Errorf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return errors.Join(out...)
}
