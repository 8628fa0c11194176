package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Signer   SignerConfig   `mapstructure:"signer"`
	Rewards  RewardsConfig  `mapstructure:"rewards"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User, d.Password, d.Host, d.Port, d.DBName)
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type ChainConfig struct {
	RPCURL          string `mapstructure:"rpc_url"`
	ChainID         int64  `mapstructure:"chain_id"`
	MiningContract  string `mapstructure:"mining_contract"`
	ReceiptInterval int    `mapstructure:"receipt_interval"`
	ReceiptTimeout  int    `mapstructure:"receipt_timeout"`
}

type SignerConfig struct {
	// 64-character hex private key without the 0x prefix.
	PrivateKey string `mapstructure:"private_key"`
}

type RewardsConfig struct {
	PoolAStepThreshold int64  `mapstructure:"pool_a_step_threshold"`
	PoolBStepThreshold int64  `mapstructure:"pool_b_step_threshold"`
	DailyGoalSteps     int64  `mapstructure:"daily_goal_steps"`
	BatchLimit         int    `mapstructure:"batch_limit"`
	TokenDecimals      int32  `mapstructure:"token_decimals"`
	Currency           string `mapstructure:"currency"`
	DistributionCron   string `mapstructure:"distribution_cron"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.Rewards.applyDefaults()
	if config.Chain.ReceiptInterval <= 0 {
		config.Chain.ReceiptInterval = 3
	}
	if config.Chain.ReceiptTimeout <= 0 {
		config.Chain.ReceiptTimeout = 120
	}

	return &config, nil
}

// applyDefaults fills the fixed policy constants for any rewards field
// left unset. The thresholds and batch ceiling are tunable but these
// are the production values.
func (r *RewardsConfig) applyDefaults() {
	if r.PoolAStepThreshold <= 0 {
		r.PoolAStepThreshold = 1500
	}
	if r.PoolBStepThreshold <= 0 {
		r.PoolBStepThreshold = 10000
	}
	if r.DailyGoalSteps <= 0 {
		r.DailyGoalSteps = 1500
	}
	if r.BatchLimit <= 0 {
		r.BatchLimit = 100
	}
	if r.TokenDecimals <= 0 {
		r.TokenDecimals = 18
	}
	if r.Currency == "" {
		r.Currency = "SSBT"
	}
	if r.DistributionCron == "" {
		// Seconds-field cron: daily at 00:00:00 UTC.
		r.DistributionCron = "0 0 0 * * *"
	}
}
