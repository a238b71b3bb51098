package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/angelcrypto/referral-ledger/pkg/ledger"
)

// Config represents the referral ledger service configuration
type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Referral       ReferralConfig       `mapstructure:"referral"`
	Reconciliation ReconciliationConfig `mapstructure:"reconciliation"`
	Auth           AuthConfig           `mapstructure:"auth"`
	Monitoring     MonitoringConfig     `mapstructure:"monitoring"`
	Logging        LoggingConfig        `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// ReferralConfig contains the reward table and invite link settings.
// Amounts are decimal strings; the table must be strictly decreasing
// from level 1 to level 3.
type ReferralConfig struct {
	WelcomeBonus  string        `mapstructure:"welcome_bonus"`
	Level1Reward  string        `mapstructure:"level1_reward"`
	Level2Reward  string        `mapstructure:"level2_reward"`
	Level3Reward  string        `mapstructure:"level3_reward"`
	InviteBaseURL string        `mapstructure:"invite_base_url"`
	StoreTimeout  time.Duration `mapstructure:"store_timeout"`
}

// ReconciliationConfig contains settings for the pending-credit reconciler
type ReconciliationConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	BatchSize int           `mapstructure:"batch_size"`
}

// AuthConfig contains settings for the admin diagnostics endpoints.
// When Secret is empty the diagnostics endpoints are left open (development).
type AuthConfig struct {
	AdminJWTSecret string `mapstructure:"admin_jwt_secret"`
	Issuer         string `mapstructure:"issuer"`
}

// MonitoringConfig contains monitoring and metrics settings
type MonitoringConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
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

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "60s")
	viper.SetDefault("server.request_timeout", "60s")
	viper.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.database", "referral_ledger")

	// Referral defaults
	viper.SetDefault("referral.welcome_bonus", "100")
	viper.SetDefault("referral.level1_reward", "50")
	viper.SetDefault("referral.level2_reward", "20")
	viper.SetDefault("referral.level3_reward", "10")
	viper.SetDefault("referral.invite_base_url", "https://app.angelcrypto.io/invite")
	viper.SetDefault("referral.store_timeout", "10s")

	// Reconciliation defaults
	viper.SetDefault("reconciliation.interval", "5m")
	viper.SetDefault("reconciliation.batch_size", 100)

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output_path", "stdout")
}

func validate(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if config.Referral.InviteBaseURL == "" {
		return fmt.Errorf("referral.invite_base_url is required")
	}

	welcome, err := decimal.NewFromString(config.Referral.WelcomeBonus)
	if err != nil {
		return fmt.Errorf("referral.welcome_bonus is not a valid decimal: %w", err)
	}
	if !welcome.IsPositive() {
		return fmt.Errorf("referral.welcome_bonus must be positive")
	}

	levels := make([]decimal.Decimal, 0, 3)
	for i, raw := range []string{
		config.Referral.Level1Reward,
		config.Referral.Level2Reward,
		config.Referral.Level3Reward,
	} {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("referral.level%d_reward is not a valid decimal: %w", i+1, err)
		}
		if !amount.IsPositive() {
			return fmt.Errorf("referral.level%d_reward must be positive", i+1)
		}
		levels = append(levels, amount)
	}

	// The reward table must be strictly decreasing: L1 > L2 > L3.
	for i := 1; i < len(levels); i++ {
		if levels[i].GreaterThanOrEqual(levels[i-1]) {
			return fmt.Errorf("referral reward table must be strictly decreasing: level%d >= level%d", i+1, i)
		}
	}

	return nil
}

// RewardTable converts the configured amounts into the domain reward table.
// Amounts are validated at load time, so conversion cannot fail here.
func (c *ReferralConfig) RewardTable() ledger.RewardTable {
	return ledger.RewardTable{
		Welcome: decimal.RequireFromString(c.WelcomeBonus),
		Level1:  decimal.RequireFromString(c.Level1Reward),
		Level2:  decimal.RequireFromString(c.Level2Reward),
		Level3:  decimal.RequireFromString(c.Level3Reward),
	}
}

// GetConnectionString returns a PostgreSQL connection string
func (c *DatabaseConfig) GetConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
