package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/at-ishikawa/osolnote/internal/validation"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Sheet    SheetConfig    `mapstructure:"sheet"`
}

type ServerConfig struct {
	Port          int        `mapstructure:"port" validate:"min=1,max=65535"`
	SecureCookies bool       `mapstructure:"secure_cookies"`
	CORS          CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Driver          string            `mapstructure:"driver" validate:"oneof=mysql postgres sqlite"`
	Host            string            `mapstructure:"host"`
	Port            int               `mapstructure:"port"`
	Database        string            `mapstructure:"database"`
	Username        string            `mapstructure:"username"`
	Password        string            `mapstructure:"password"`
	TLS             bool              `mapstructure:"tls"`
	Params          map[string]string `mapstructure:"params"`
	Path            string            `mapstructure:"path" validate:"required_if=Driver sqlite"`
	MaxOpenConns    int               `mapstructure:"max_open_conns"`
	MaxIdleConns    int               `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int               `mapstructure:"conn_max_lifetime_seconds"`
	ConnectRetries  uint              `mapstructure:"connect_retries"`
}

// AuthConfig configures the identity token issued at login.
// Secret is only required by commands that issue or verify tokens.
type AuthConfig struct {
	Secret         string          `mapstructure:"secret" validate:"omitempty,min=32"`
	CookieName     string          `mapstructure:"cookie_name" validate:"required"`
	TokenTTL       time.Duration   `mapstructure:"token_ttl" validate:"gt=0"`
	AdminUsers     []string        `mapstructure:"admin_users"`
	LoginRateLimit RateLimitConfig `mapstructure:"login_rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute" validate:"min=0"`
	Burst             int `mapstructure:"burst" validate:"min=0"`
}

type StorageConfig struct {
	Endpoint       string `mapstructure:"endpoint" validate:"omitempty,url"`
	Bucket         string `mapstructure:"bucket" validate:"required"`
	APIKey         string `mapstructure:"api_key"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes" validate:"gt=0"`
}

type SheetConfig struct {
	Template        string `mapstructure:"template" validate:"omitempty,file"`
	OutputDirectory string `mapstructure:"output_directory"`
}

type ConfigLoader struct {
	viper      *viper.Viper
	validator  *validator.Validate
	translator ut.Translator
}

func NewConfigLoader(configFile string) (*ConfigLoader, error) {
	validate, trans, err := validation.New("mapstructure")
	if err != nil {
		return nil, fmt.Errorf("failed to create new validator: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/osolnote")
	}

	return &ConfigLoader{
		viper:      v,
		validator:  validate,
		translator: trans,
	}, nil
}

func (loader *ConfigLoader) Load() (*Config, error) {
	v := loader.viper

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.secure_cookies", false)
	v.SetDefault("server.cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.database", "osolnote")
	v.SetDefault("database.username", "user")
	v.SetDefault("database.connect_retries", 5)
	v.SetDefault("auth.cookie_name", "osolnote_user")
	v.SetDefault("auth.token_ttl", 7*24*time.Hour)
	v.SetDefault("auth.login_rate_limit.requests_per_minute", 10)
	v.SetDefault("auth.login_rate_limit.burst", 5)
	v.SetDefault("storage.bucket", "images")
	v.SetDefault("storage.max_upload_bytes", 2*1024*1024)
	v.SetDefault("sheet.template", "")
	v.SetDefault("sheet.output_directory", filepath.Join("outputs", "sheets"))

	// Secrets are read from the environment only
	if err := v.BindEnv("database.password", "DB_PASSWORD"); err != nil {
		return nil, fmt.Errorf("failed to bind DB_PASSWORD environment variable: %w", err)
	}
	if err := v.BindEnv("auth.secret", "OSOLNOTE_AUTH_SECRET"); err != nil {
		return nil, fmt.Errorf("failed to bind OSOLNOTE_AUTH_SECRET environment variable: %w", err)
	}
	if err := v.BindEnv("storage.api_key", "OSOLNOTE_STORAGE_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind OSOLNOTE_STORAGE_API_KEY environment variable: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("configuration file found but could not be read: %w. Please check the file format and permissions", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if err := loader.validator.Struct(cfg); err != nil {
		errorMsgs := validation.Messages(err, loader.translator)
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errorMsgs, ", "))
	}

	return &cfg, nil
}

// IsAdmin reports whether username may manage the problem catalog.
func (c AuthConfig) IsAdmin(username string) bool {
	for _, admin := range c.AdminUsers {
		if admin == username {
			return true
		}
	}
	return false
}
