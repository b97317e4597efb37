package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"

	"github.com/Checker-Finance/secrets-gateway/internal/audit"
	"github.com/Checker-Finance/secrets-gateway/internal/publisher"
	"github.com/Checker-Finance/secrets-gateway/internal/rate"
	"github.com/Checker-Finance/secrets-gateway/keeper-adapter/internal/api"
	"github.com/Checker-Finance/secrets-gateway/keeper-adapter/internal/keeper"
	"github.com/Checker-Finance/secrets-gateway/keeper-adapter/internal/quota"
	"github.com/Checker-Finance/secrets-gateway/keeper-adapter/pkg/config"
	"github.com/Checker-Finance/secrets-gateway/pkg/logger"
	"github.com/Checker-Finance/secrets-gateway/pkg/secrets"
	"github.com/Checker-Finance/secrets-gateway/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	logg := logger.S()
	logg.Infof("starting [%s]...", cfg.ServiceName)

	if cfg.SecretUID == "" {
		logg.Warn("KEEPER_SECRET_UID not set; /keeper/get-secret will answer 500")
	}

	// --- Secret store provider (one-time bootstrap happens here) ---
	provider, err := newProvider(ctx, cfg)
	if err != nil {
		logg.Fatalw("failed to create secrets provider", "backend", cfg.SecretsBackend, "error", err)
	}

	// --- Rate limiter for outbound store calls ---
	rateMgr := rate.NewManager(rate.Config{
		RequestsPerSecond: cfg.KeeperRPS,
		Burst:             cfg.KeeperBurst,
	})

	fetcher := keeper.NewFetcher(logger.L(), provider, rateMgr, cfg.FetchTimeout)
	counter := quota.NewCounter(quota.MaxRealCalls)

	// --- Optional sinks ---
	var (
		recorders audit.Multi
		checks    []api.HealthCheck
		nc        *nats.Conn
		pool      *pgxpool.Pool
	)

	if cfg.NATSURL != "" {
		nc, err = nats.Connect(cfg.NATSURL, nats.Name(cfg.ServiceName))
		if err != nil {
			logg.Fatalw("failed to connect to NATS", "error", err)
		}
		pub, err := publisher.New(nc, cfg.EventsSubject, cfg.ServiceName, logger.L())
		if err != nil {
			logg.Fatalw("failed to init publisher", "error", err)
		}
		recorders = append(recorders, pub)
		checks = append(checks, api.HealthCheck{Name: "nats", Check: func(ctx context.Context) error {
			if !nc.IsConnected() {
				return errors.New("disconnected")
			}
			return nc.FlushTimeout(time.Second)
		}})
	} else {
		logg.Info("NATS_URL not set; fetch events disabled")
	}

	if cfg.DatabaseURL != "" {
		logg.Info("connection to DSN: ", utils.MaskDSN(cfg.DatabaseURL))
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logg.Fatalw("failed to init pg pool", "error", err)
		}
		writer := audit.NewPGWriter(pool, logger.L(), cfg.InstanceID)
		if cfg.AuditEnsureSchema {
			if err := writer.EnsureSchema(ctx); err != nil {
				logg.Fatalw("failed to ensure audit schema", "error", err)
			}
		}
		recorders = append(recorders, writer)
		checks = append(checks, api.HealthCheck{Name: "audit", Check: pool.Ping})
	} else {
		logg.Info("DATABASE_URL not set; fetch audit disabled")
	}

	var recorder audit.Recorder
	if len(recorders) > 0 {
		recorder = recorders
	}

	svc := keeper.NewService(
		logger.L(),
		cfg.ServiceName,
		provider.Name(),
		cfg.SecretUID,
		counter,
		fetcher,
		recorder,
	)

	// --- Fiber HTTP Server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:           cfg.HTTPReadTimeout,
		WriteTimeout:          cfg.HTTPWriteTimeout,
		IdleTimeout:           cfg.HTTPIdleTimeout,
		DisableStartupMessage: true,
	})

	keeperHandler := api.NewKeeperHandler(logger.L(), svc)
	api.RegisterRoutes(app, keeperHandler, checks...)

	go func() {
		logg.Infof("Backend listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	logg.Infow(fmt.Sprintf("Max real Keeper calls allowed: %d", counter.Limit()),
		"backend", provider.Name(),
		"record_uid", utils.MaskUID(cfg.SecretUID),
		"env", cfg.Env)

	<-ctx.Done()
	logg.Infof("shutting down [%s]...", cfg.ServiceName)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	if nc != nil {
		if err := nc.Drain(); err != nil {
			logg.Warnw("nats.drain_failed", "error", err)
		}
	}
	if pool != nil {
		pool.Close()
	}
}

func newProvider(ctx context.Context, cfg *config.Config) (secrets.Provider, error) {
	switch cfg.SecretsBackend {
	case config.BackendKeeper:
		p, err := secrets.NewKeeperProvider(secrets.KeeperOptions{
			ConfigFile:   cfg.KeeperConfigFile,
			OneTimeToken: cfg.OneTimeToken,
			Hostname:     cfg.KeeperHostname,
		}, logger.L())
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.BackendAWS:
		p, err := secrets.NewAWSProvider(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown SECRETS_BACKEND %q", cfg.SecretsBackend)
	}
}
