package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Issuance     IssuanceConfig     `mapstructure:"issuance"`
	Verification VerificationConfig `mapstructure:"verification"`
	Delivery     DeliveryConfig     `mapstructure:"delivery"`
	Logger       LoggerConfig       `mapstructure:"logger"`
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

// IssuanceConfig holds voucher issuance configuration
type IssuanceConfig struct {
	CompanyName string `mapstructure:"company_name"`
	NodeID      int64  `mapstructure:"node_id"`
}

// VerificationConfig holds the verification code configuration
type VerificationConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Settle  time.Duration `mapstructure:"settle"`
}

// DeliveryConfig holds document delivery configuration.
// Mode selects the channel: "local" writes to the share directory,
// "email" mails copies to the recipients.
type DeliveryConfig struct {
	Mode       string   `mapstructure:"mode"`
	ShareDir   string   `mapstructure:"share_dir"`
	SMTPHost   string   `mapstructure:"smtp_host"`
	SMTPPort   int      `mapstructure:"smtp_port"`
	SMTPUser   string   `mapstructure:"smtp_user"`
	SMTPPass   string   `mapstructure:"smtp_pass"`
	From       string   `mapstructure:"from"`
	Recipients []string `mapstructure:"recipients"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// .env is optional; deployed sites set real environment variables
	_ = gotenv.Load()

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
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/vales.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	// Issuance defaults
	viper.SetDefault("issuance.node_id", 1)

	// Verification defaults
	viper.SetDefault("verification.settle", 100*time.Millisecond)

	// Delivery defaults
	viper.SetDefault("delivery.mode", "local")
	viper.SetDefault("delivery.share_dir", "generated_vales")
	viper.SetDefault("delivery.smtp_port", 587)

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	// Sensitive credentials from environment
	viper.BindEnv("delivery.smtp_host", "SMTP_HOST")
	viper.BindEnv("delivery.smtp_user", "SMTP_USER")
	viper.BindEnv("delivery.smtp_pass", "SMTP_PASS")
	viper.BindEnv("issuance.company_name", "COMPANY_NAME")
	viper.BindEnv("verification.base_url", "VERIFICATION_BASE_URL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Issuance.CompanyName == "" {
		return fmt.Errorf("issuance.company_name is required")
	}

	if c.Verification.BaseURL == "" {
		return fmt.Errorf("verification.base_url is required")
	}

	switch c.Delivery.Mode {
	case "local":
		if c.Delivery.ShareDir == "" {
			return fmt.Errorf("delivery.share_dir is required in local mode")
		}
	case "email":
		if c.Delivery.SMTPHost == "" {
			return fmt.Errorf("delivery.smtp_host is required in email mode")
		}
		if c.Delivery.From == "" {
			return fmt.Errorf("delivery.from is required in email mode")
		}
		if len(c.Delivery.Recipients) == 0 {
			return fmt.Errorf("delivery.recipients is required in email mode")
		}
	default:
		return fmt.Errorf("delivery.mode must be local or email, got %q", c.Delivery.Mode)
	}

	return nil
}
