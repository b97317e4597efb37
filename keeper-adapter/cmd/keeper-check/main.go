package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Checker-Finance/secrets-gateway/keeper-adapter/pkg/config"
	"github.com/Checker-Finance/secrets-gateway/pkg/logger"
	"github.com/Checker-Finance/secrets-gateway/pkg/secrets"
)

// keeper-check performs one real fetch of KEEPER_SECRET_UID outside the
// quota-gated server, to verify credentials and measure latency.
func main() {
	cfg := config.Load()
	logger.Init("keeper-check", cfg.Env, cfg.LogLevel)
	defer logger.Sync()

	if cfg.SecretUID == "" {
		fmt.Fprintln(os.Stderr, "KEEPER_SECRET_UID not set")
		os.Exit(1)
	}

	provider, err := secrets.NewKeeperProvider(secrets.KeeperOptions{
		ConfigFile:   cfg.KeeperConfigFile,
		OneTimeToken: cfg.OneTimeToken,
		Hostname:     cfg.KeeperHostname,
	}, logger.L())
	if err != nil {
		fmt.Fprintf(os.Stderr, "init keeper client: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout)
	defer cancel()

	start := time.Now()
	record, err := provider.GetRecord(ctx, cfg.SecretUID)
	elapsed := time.Since(start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetch failed after %s: %v\n", elapsed, err)
		os.Exit(1)
	}

	fmt.Printf("Keeper call took %d ms\n", elapsed.Milliseconds())
	fmt.Printf("Record UID: %s\n", record.UID)
	fmt.Printf("Record title: %s\n", record.Title)
}
