package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"

	pkgconfig "github.com/Checker-Finance/secrets-gateway/pkg/config"
	"github.com/Checker-Finance/secrets-gateway/pkg/secrets"
)

// Backends selectable through SECRETS_BACKEND.
const (
	BackendKeeper = "keeper"
	BackendAWS    = "aws"
)

// Config holds the runtime configuration for the keeper-adapter.
type Config struct {
	ServiceName string
	Env         string
	LogLevel    string
	Port        int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	ShutdownTimeout  time.Duration

	// Keeper record served by GET /keeper/get-secret. Read once at startup.
	SecretUID        string
	OneTimeToken     string
	KeeperHostname   string
	KeeperConfigFile string
	FetchTimeout     time.Duration
	KeeperRPS        float64
	KeeperBurst      int

	SecretsBackend string
	AWSRegion      string

	// Optional sinks; empty disables them.
	NATSURL       string
	EventsSubject string
	DatabaseURL   string

	// AuditEnsureSchema creates keeper.fetch_audit at startup when true.
	AuditEnsureSchema bool

	// InstanceID identifies this process in audit rows. Defaults to the hostname.
	InstanceID string
}

// Load loads configuration from environment variables and optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServiceName:      pkgconfig.GetEnv("SERVICE_NAME", "keeper-adapter"),
		Env:              pkgconfig.GetEnv("ENV", "dev"),
		LogLevel:         pkgconfig.GetEnv("LOG_LEVEL", "info"),
		Port:             pkgconfig.GetEnvInt("PORT", 3000),
		HTTPReadTimeout:  pkgconfig.GetEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second),
		HTTPWriteTimeout: pkgconfig.GetEnvDuration("HTTP_WRITE_TIMEOUT", 45*time.Second),
		HTTPIdleTimeout:  pkgconfig.GetEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:  pkgconfig.GetEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		SecretUID:        pkgconfig.GetEnv("KEEPER_SECRET_UID", ""),
		OneTimeToken:     pkgconfig.GetEnv("KEEPER_ONE_TIME_TOKEN", ""),
		KeeperHostname:   pkgconfig.GetEnv("KEEPER_HOSTNAME", ""),
		KeeperConfigFile: pkgconfig.GetEnv("KEEPER_CONFIG_FILE", secrets.DefaultKeeperConfigFile),
		FetchTimeout:     pkgconfig.GetEnvDuration("KEEPER_FETCH_TIMEOUT", 30*time.Second),
		KeeperRPS:        pkgconfig.GetEnvFloat("KEEPER_RPS", 5),
		KeeperBurst:      pkgconfig.GetEnvInt("KEEPER_BURST", 10),
		SecretsBackend:   pkgconfig.GetEnv("SECRETS_BACKEND", BackendKeeper),
		AWSRegion:        pkgconfig.GetEnv("AWS_REGION", "us-east-2"),
		NATSURL:          pkgconfig.GetEnv("NATS_URL", ""),
		EventsSubject:    pkgconfig.GetEnv("EVENTS_SUBJECT", "evt.keeper.fetch.v1"),
		DatabaseURL:      pkgconfig.GetEnv("DATABASE_URL", ""),

		AuditEnsureSchema: pkgconfig.GetEnvBool("AUDIT_ENSURE_SCHEMA", true),
		InstanceID:        pkgconfig.GetEnv("INSTANCE_ID", hostname()),
	}
}

func hostname() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "unknown"
}
