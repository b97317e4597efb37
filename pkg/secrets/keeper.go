package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	ksm "github.com/keeper-security/secrets-manager-go/core"
	klog "github.com/keeper-security/secrets-manager-go/core/logger"
	"go.uber.org/zap"

	"github.com/Checker-Finance/secrets-gateway/pkg/utils"
)

// ErrKeeperInit is returned when the SDK cannot build a client from the
// token and config file, e.g. no token and no bound credentials.
var ErrKeeperInit = errors.New("keeper client not initialized")

const (
	// DefaultKeeperConfigFile is where the SDK persists bound application credentials.
	DefaultKeeperConfigFile = "ksm-config.json"

	keeperClientIDKey = "clientId"
)

// KeeperClient is the subset of *ksm.SecretsManager the provider depends on.
type KeeperClient interface {
	GetSecrets(uids []string) ([]*ksm.Record, error)
}

// KeeperOptions configures the Keeper Secrets Manager provider.
type KeeperOptions struct {
	ConfigFile   string
	OneTimeToken string
	Hostname     string
}

// KeeperProvider implements Provider using Keeper Secrets Manager.
// The SDK mutates its config storage without locking (binding a one-time
// token rewrites it), so calls into the client are serialized.
type KeeperProvider struct {
	mu     sync.Mutex
	client KeeperClient
	logger *zap.Logger
}

// NewKeeperProvider bootstraps local storage and builds the SDK client.
// It is meant to run once at process start.
func NewKeeperProvider(opts KeeperOptions, logger *zap.Logger) (*KeeperProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ConfigFile == "" {
		opts.ConfigFile = DefaultKeeperConfigFile
	}

	token, err := BootstrapToken(opts, logger)
	if err != nil {
		return nil, err
	}

	client := ksm.NewSecretsManager(&ksm.ClientOptions{
		Token:    token,
		Hostname: opts.Hostname,
		Config:   ksm.NewFileKeyValueStorage(opts.ConfigFile),
		LogLevel: klog.ErrorLevel,
	})
	if client == nil {
		return nil, fmt.Errorf("keeper client init failed (config %s): %w", opts.ConfigFile, ErrKeeperInit)
	}

	return NewKeeperProviderWithClient(client, logger), nil
}

// NewKeeperProviderWithClient wraps an already constructed client.
func NewKeeperProviderWithClient(client KeeperClient, logger *zap.Logger) *KeeperProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeeperProvider{client: client, logger: logger}
}

// BootstrapToken decides whether the one-time token must be handed to the SDK.
// A token is used only while the config file holds no bound client; once bound,
// a lingering token is ignored so restarts do not try to redeem it again.
func BootstrapToken(opts KeeperOptions, logger *zap.Logger) (string, error) {
	bound, err := StorageBound(opts.ConfigFile)
	if err != nil {
		return "", err
	}

	switch {
	case opts.OneTimeToken == "" && !bound:
		logger.Warn("keeper.storage_unbound",
			zap.String("config_file", opts.ConfigFile))
		return "", nil
	case opts.OneTimeToken == "":
		return "", nil
	case bound:
		logger.Warn("keeper.bootstrap_skipped",
			zap.String("config_file", opts.ConfigFile),
			zap.String("reason", "storage already bound; one-time token ignored"))
		return "", nil
	default:
		logger.Info("keeper.bootstrap",
			zap.String("config_file", opts.ConfigFile),
			zap.String("hostname", opts.Hostname))
		return opts.OneTimeToken, nil
	}
}

// StorageBound reports whether the SDK config file already contains a bound client id.
func StorageBound(path string) (bool, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read keeper config %s: %w", path, err)
	}
	if len(raw) == 0 {
		return false, nil
	}

	var cfg map[string]any
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return false, fmt.Errorf("invalid keeper config %s: %w", path, err)
	}
	id, _ := cfg[keeperClientIDKey].(string)
	return id != "", nil
}

// Name implements Provider.
func (p *KeeperProvider) Name() string { return "keeper" }

type keeperResult struct {
	records []*ksm.Record
	err     error
}

// GetRecord fetches a single record by UID.
// The SDK call is not context aware; on ctx expiry the caller stops waiting
// while the request finishes in the background.
func (p *KeeperProvider) GetRecord(ctx context.Context, uid string) (*Record, error) {
	done := make(chan keeperResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- keeperResult{err: fmt.Errorf("keeper sdk panic: %v", r)}
			}
		}()
		p.mu.Lock()
		defer p.mu.Unlock()
		records, err := p.client.GetSecrets([]string{uid})
		done <- keeperResult{records: records, err: err}
	}()

	var res keeperResult
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("keeper get secret [%s]: %w", utils.MaskUID(uid), ctx.Err())
	case res = <-done:
	}

	if res.err != nil {
		return nil, fmt.Errorf("keeper get secret [%s]: %w", utils.MaskUID(uid), res.err)
	}
	if len(res.records) == 0 || res.records[0] == nil {
		return nil, fmt.Errorf("no records found for uid [%s]: %w", utils.MaskUID(uid), ErrRecordNotFound)
	}
	if len(res.records) > 1 {
		p.logger.Warn("keeper.multiple_records",
			zap.String("uid", utils.MaskUID(uid)),
			zap.Int("count", len(res.records)))
	}

	rec := res.records[0]
	return &Record{
		UID:   rec.Uid,
		Title: rec.Title(),
		Type:  rec.Type(),
	}, nil
}
