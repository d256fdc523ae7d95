package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
	Lark     LarkConfig     `mapstructure:"lark"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// StorageConfig holds blob store configuration
type StorageConfig struct {
	BaseDir       string        `mapstructure:"base_dir"`
	BaseURL       string        `mapstructure:"base_url"`
	UploadTimeout time.Duration `mapstructure:"upload_timeout"`
}

// WorkflowConfig holds approval workflow limits
type WorkflowConfig struct {
	// AllowedMimeTypes is the document format allow-list
	AllowedMimeTypes []string `mapstructure:"allowed_mime_types"`

	// MaxDocumentBytes applies to the LMRO and DLMRO stages
	MaxDocumentBytes int64 `mapstructure:"max_document_bytes"`

	// MaxFinalDocumentBytes applies to the CEO stage (final dossier is larger)
	MaxFinalDocumentBytes int64 `mapstructure:"max_final_document_bytes"`

	// InspectPDF enables deep structural validation of PDF uploads
	InspectPDF bool `mapstructure:"inspect_pdf"`
}

// LarkConfig holds the optional Lark push channel configuration
type LarkConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	AppID      string        `mapstructure:"app_id"`
	AppSecret  string        `mapstructure:"app_secret"`
	APITimeout time.Duration `mapstructure:"api_timeout"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	viper.SetDefault("database.path", "data/caseflow.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	viper.SetDefault("storage.base_dir", "data/documents")
	viper.SetDefault("storage.base_url", "/documents")
	viper.SetDefault("storage.upload_timeout", 30*time.Second)

	viper.SetDefault("workflow.allowed_mime_types", []string{
		"application/pdf",
		"image/jpeg",
		"image/png",
	})
	viper.SetDefault("workflow.max_document_bytes", int64(10*1024*1024))
	viper.SetDefault("workflow.max_final_document_bytes", int64(25*1024*1024))
	viper.SetDefault("workflow.inspect_pdf", true)

	viper.SetDefault("lark.enabled", false)
	viper.SetDefault("lark.api_timeout", 30*time.Second)

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	viper.BindEnv("lark.app_id", "LARK_APP_ID")
	viper.BindEnv("lark.app_secret", "LARK_APP_SECRET")
	viper.BindEnv("database.path", "CASEFLOW_DB_PATH")
	viper.BindEnv("storage.base_dir", "CASEFLOW_STORAGE_DIR")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir is required")
	}
	if len(c.Workflow.AllowedMimeTypes) == 0 {
		return fmt.Errorf("workflow.allowed_mime_types must not be empty")
	}
	if c.Workflow.MaxDocumentBytes <= 0 {
		return fmt.Errorf("workflow.max_document_bytes must be positive")
	}
	if c.Workflow.MaxFinalDocumentBytes < c.Workflow.MaxDocumentBytes {
		return fmt.Errorf("workflow.max_final_document_bytes must be at least workflow.max_document_bytes")
	}
	if c.Lark.Enabled {
		if c.Lark.AppID == "" {
			return fmt.Errorf("lark.app_id is required when lark.enabled")
		}
		if c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_secret is required when lark.enabled")
		}
	}
	return nil
}
