package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string

	DatabaseURL string

	SuiRPCURL     string
	PrivateKey    string
	PackageID     string
	TreasuryCapID string
	TokenDecimals int
	GasBudget     uint64

	PollInterval  time.Duration
	BatchSize     int
	ClaimLease    time.Duration
	RetryCooldown time.Duration
	MaxAttempts   int

	TokensPerSecond int64
	MaxRewardTokens int64
}

func Load() (Config, error) {
	// Optional .env, same as the node scheduler this replaced.
	_ = godotenv.Load()

	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "captminter"
	}
	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	cfg := Config{
		ServiceName: service,
		HTTPPort:    port,

		DatabaseURL: os.Getenv("DATABASE_URL"),

		SuiRPCURL:     envString("SUI_RPC_URL", "http://127.0.0.1:9000"),
		PrivateKey:    os.Getenv("PRIVATE_KEY"),
		PackageID:     os.Getenv("PACKAGE_ID"),
		TreasuryCapID: os.Getenv("TREASURY_CAP_ID"),
		TokenDecimals: envInt("TOKEN_DECIMALS", 6),
		GasBudget:     uint64(envInt("GAS_BUDGET", 10_000_000)),

		PollInterval:  envDuration("POLL_INTERVAL", 5*time.Second),
		BatchSize:     envInt("BATCH_SIZE", 10),
		ClaimLease:    envDuration("CLAIM_LEASE", 2*time.Minute),
		RetryCooldown: envDuration("RETRY_COOLDOWN", 30*time.Second),
		MaxAttempts:   envInt("MAX_REWARD_ATTEMPTS", 5),

		TokensPerSecond: int64(envInt("TOKENS_PER_SECOND", 1)),
		MaxRewardTokens: int64(envInt("MAX_REWARD_TOKENS", 86_400)),
	}

	if cfg.PollInterval <= 0 || cfg.BatchSize <= 0 {
		return Config{}, fmt.Errorf("poll interval and batch size must be positive")
	}
	return cfg, nil
}

// ValidateWorker enforces the startup requirements of the disbursement
// worker. A missing credential or ledger identifier is fatal at startup,
// never a runtime condition.
func (c Config) ValidateWorker() error {
	var missing []string
	if strings.TrimSpace(c.DatabaseURL) == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if strings.TrimSpace(c.PrivateKey) == "" {
		missing = append(missing, "PRIVATE_KEY")
	}
	if strings.TrimSpace(c.PackageID) == "" {
		missing = append(missing, "PACKAGE_ID")
	}
	if strings.TrimSpace(c.TreasuryCapID) == "" {
		missing = append(missing, "TREASURY_CAP_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func envString(name string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
