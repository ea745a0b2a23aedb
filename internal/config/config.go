// Package config provides configuration management for the property tycoon
// reconciliation backend. It loads configuration from environment variables
// and .env files.
package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// defaultRPCURLs is the fallback failover chain used when MANTLE_RPC_URLS is unset
var defaultRPCURLs = []string{
	"https://rpc.mantle.xyz",
	"https://mantle-rpc.publicnode.com",
	"https://mantle.drpc.org",
	"https://1rpc.io/mantle",
}

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Chain     ChainConfig
	Contracts ContractsConfig
	Yield     YieldConfig
	Guard     GuardConfig
	Logging   LoggingConfig
}

// ServerConfig holds the ops/status HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Postgres   PostgresConfig
	ClickHouse ClickHouseConfig
	Redis      RedisConfig
}

// PostgresConfig holds Postgres configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// ClickHouseConfig holds ClickHouse configuration
type ClickHouseConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// ChainConfig holds RPC and reconciliation configuration
type ChainConfig struct {
	// RPCURLs is the ordered failover chain of RPC endpoints
	RPCURLs []string
	// ConfirmationDepth is subtracted from the chain head before scanning.
	// 1 is enough for a fast-finality L2.
	ConfirmationDepth uint64
	// SyncInterval is the period of the catch-up scan tick
	SyncInterval time.Duration
	// CallTimeout bounds a single yield calculation call independent of the transport
	CallTimeout time.Duration
	// LogRangeLimit is the maximum block span per getLogs query
	LogRangeLimit uint64
	// ScanRatePerSec throttles log queries during catch-up scans
	ScanRatePerSec int
	// AggregationInterval is the period of the full leaderboard refresh pass
	AggregationInterval time.Duration
}

// ContractsConfig holds the on-chain contract addresses. All four are required
// at startup.
type ContractsConfig struct {
	PropertyRegistry string
	YieldDistributor string
	Marketplace      string
	QuestSystem      string
}

// Validate fails when any contract address is missing
func (c *ContractsConfig) Validate() error {
	missing := []string{}
	if c.PropertyRegistry == "" {
		missing = append(missing, "PROPERTY_REGISTRY_ADDRESS")
	}
	if c.YieldDistributor == "" {
		missing = append(missing, "YIELD_DISTRIBUTOR_ADDRESS")
	}
	if c.Marketplace == "" {
		missing = append(missing, "MARKETPLACE_ADDRESS")
	}
	if c.QuestSystem == "" {
		missing = append(missing, "QUEST_SYSTEM_ADDRESS")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing contract addresses: %s", strings.Join(missing, ", "))
	}
	return nil
}

// All returns every configured contract address, lowercase-normalized
func (c *ContractsConfig) All() []string {
	return []string{
		strings.ToLower(c.PropertyRegistry),
		strings.ToLower(c.YieldDistributor),
		strings.ToLower(c.Marketplace),
		strings.ToLower(c.QuestSystem),
	}
}

// YieldConfig holds yield accounting configuration
type YieldConfig struct {
	// UpdateInterval is the minimum accrual window; yield below it is not claimable
	UpdateInterval time.Duration
}

// GuardConfig holds corruption guard thresholds
type GuardConfig struct {
	// MaxPlausibleWei is the absolute ceiling for any yield/portfolio amount
	MaxPlausibleWei *big.Int
	// MaxDigits rejects decimal representations longer than this (concatenation corruption)
	MaxDigits int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional in production)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8090"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Postgres: PostgresConfig{
				Host:           getEnv("POSTGRES_HOST", "localhost"),
				Port:           getEnv("POSTGRES_PORT", "5432"),
				Database:       getEnv("POSTGRES_DB", "property_tycoon"),
				User:           getEnv("POSTGRES_USER", "tycoon"),
				Password:       getEnv("POSTGRES_PASSWORD", ""),
				MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 50),
			},
			ClickHouse: ClickHouseConfig{
				Host:     getEnv("CLICKHOUSE_HOST", "localhost"),
				Port:     getEnv("CLICKHOUSE_PORT", "9000"),
				Database: getEnv("CLICKHOUSE_DB", "property_tycoon"),
				User:     getEnv("CLICKHOUSE_USER", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
			},
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 20),
			},
		},
		Chain: ChainConfig{
			RPCURLs:             getEnvAsURLList("MANTLE_RPC_URLS", defaultRPCURLs),
			ConfirmationDepth:   uint64(getEnvAsInt("CONFIRMATION_DEPTH", 1)),
			SyncInterval:        getEnvAsDuration("SYNC_INTERVAL", 60*time.Second),
			CallTimeout:         getEnvAsDuration("CHAIN_CALL_TIMEOUT", 10*time.Second),
			LogRangeLimit:       uint64(getEnvAsInt("LOG_RANGE_LIMIT", 2000)),
			ScanRatePerSec:      getEnvAsInt("SCAN_RATE_PER_SEC", 10),
			AggregationInterval: getEnvAsDuration("AGGREGATION_INTERVAL", 10*time.Minute),
		},
		Contracts: ContractsConfig{
			PropertyRegistry: getEnv("PROPERTY_REGISTRY_ADDRESS", ""),
			YieldDistributor: getEnv("YIELD_DISTRIBUTOR_ADDRESS", ""),
			Marketplace:      getEnv("MARKETPLACE_ADDRESS", ""),
			QuestSystem:      getEnv("QUEST_SYSTEM_ADDRESS", ""),
		},
		Yield: YieldConfig{
			UpdateInterval: getEnvAsDuration("YIELD_UPDATE_INTERVAL", 86400*time.Second),
		},
		Guard: GuardConfig{
			// 1,000,000 whole tokens in wei. Generous enough for RWA-linked
			// properties, small enough to catch order-of-magnitude corruption.
			MaxPlausibleWei: getEnvAsBigInt("MAX_PLAUSIBLE_YIELD_WEI", defaultMaxPlausibleWei()),
			MaxDigits:       getEnvAsInt("GUARD_MAX_DIGITS", 27),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config, nil
}

func defaultMaxPlausibleWei() *big.Int {
	ceiling := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return ceiling.Mul(ceiling, big.NewInt(1_000_000))
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBigInt gets an environment variable as a big integer with a default value
func getEnvAsBigInt(key string, defaultValue *big.Int) *big.Int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, ok := new(big.Int).SetString(valueStr, 10)
	if !ok {
		return defaultValue
	}
	return value
}

// getEnvAsURLList parses a comma-separated URL list, dropping empty entries
func getEnvAsURLList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	var urls []string
	for _, u := range strings.Split(valueStr, ",") {
		u = strings.TrimSpace(u)
		if u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		return defaultValue
	}
	return urls
}
