package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	ksm "github.com/keeper-security/secrets-manager-go/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ─── Fake client ──────────────────────────────────────────────────────────────

type fakeKeeperClient struct {
	GetSecretsFn func(uids []string) ([]*ksm.Record, error)
}

func (f *fakeKeeperClient) GetSecrets(uids []string) ([]*ksm.Record, error) {
	return f.GetSecretsFn(uids)
}

func keeperRecord(uid, title string) *ksm.Record {
	return &ksm.Record{
		Uid: uid,
		RecordDict: map[string]any{
			"title": title,
			"type":  "login",
		},
	}
}

// ─── GetRecord ────────────────────────────────────────────────────────────────

func TestKeeperProvider_GetRecord_Success(t *testing.T) {
	var gotUIDs []string
	p := NewKeeperProviderWithClient(&fakeKeeperClient{
		GetSecretsFn: func(uids []string) ([]*ksm.Record, error) {
			gotUIDs = uids
			return []*ksm.Record{keeperRecord("rec-uid-0001", "db credentials")}, nil
		},
	}, zap.NewNop())

	rec, err := p.GetRecord(context.Background(), "rec-uid-0001")
	require.NoError(t, err)
	assert.Equal(t, []string{"rec-uid-0001"}, gotUIDs)
	assert.Equal(t, "rec-uid-0001", rec.UID)
	assert.Equal(t, "db credentials", rec.Title)
	assert.Equal(t, "login", rec.Type)
	assert.Equal(t, "keeper", p.Name())
}

func TestKeeperProvider_GetRecord_NoRecords(t *testing.T) {
	p := NewKeeperProviderWithClient(&fakeKeeperClient{
		GetSecretsFn: func([]string) ([]*ksm.Record, error) { return nil, nil },
	}, nil)

	_, err := p.GetRecord(context.Background(), "missing-uid-123")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.NotContains(t, err.Error(), "missing-uid-123", "uid must be masked in errors")
}

func TestKeeperProvider_GetRecord_SDKError(t *testing.T) {
	sdkErr := errors.New("access denied")
	p := NewKeeperProviderWithClient(&fakeKeeperClient{
		GetSecretsFn: func([]string) ([]*ksm.Record, error) { return nil, sdkErr },
	}, nil)

	_, err := p.GetRecord(context.Background(), "rec-uid-0001")
	require.Error(t, err)
	assert.ErrorIs(t, err, sdkErr)
}

func TestKeeperProvider_GetRecord_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	p := NewKeeperProviderWithClient(&fakeKeeperClient{
		GetSecretsFn: func([]string) ([]*ksm.Record, error) {
			<-release
			return []*ksm.Record{keeperRecord("late", "late")}, nil
		},
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.GetRecord(ctx, "rec-uid-0001")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestKeeperProvider_GetRecord_SDKPanicBecomesError(t *testing.T) {
	p := NewKeeperProviderWithClient(&fakeKeeperClient{
		GetSecretsFn: func([]string) ([]*ksm.Record, error) {
			panic("invalid memory address or nil pointer dereference")
		},
	}, nil)

	_, err := p.GetRecord(context.Background(), "rec-uid-0001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keeper sdk panic")
}

func TestKeeperProvider_GetRecord_NilSDKClient(t *testing.T) {
	var client *ksm.SecretsManager
	p := NewKeeperProviderWithClient(client, nil)

	assert.NotPanics(t, func() {
		_, err := p.GetRecord(context.Background(), "rec-uid-0001")
		assert.Error(t, err)
	})
}

func TestKeeperProvider_GetRecord_SerializesSDKCalls(t *testing.T) {
	var (
		inFlight    atomic.Int32
		maxInFlight atomic.Int32
		storage     = map[string]string{}
	)
	p := NewKeeperProviderWithClient(&fakeKeeperClient{
		GetSecretsFn: func(uids []string) ([]*ksm.Record, error) {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				cur := maxInFlight.Load()
				if n <= cur || maxInFlight.CompareAndSwap(cur, n) {
					break
				}
			}
			// the SDK rewrites its config storage while binding
			storage["appKey"] = uids[0]
			delete(storage, "clientKey")
			time.Sleep(time.Millisecond)
			return []*ksm.Record{keeperRecord(uids[0], "t")}, nil
		},
	}, zap.NewNop())

	const callers = 20
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			_, err := p.GetRecord(context.Background(), "rec-uid-0001")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxInFlight.Load(), "sdk calls must not overlap")
	assert.Equal(t, "rec-uid-0001", storage["appKey"])
}

// ─── Bootstrap ────────────────────────────────────────────────────────────────

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ksm-config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestStorageBound(t *testing.T) {
	bound, err := StorageBound(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.False(t, bound, "missing file is unbound")

	bound, err = StorageBound(writeConfig(t, ""))
	require.NoError(t, err)
	assert.False(t, bound, "empty file is unbound")

	bound, err = StorageBound(writeConfig(t, `{"hostname":"keepersecurity.com"}`))
	require.NoError(t, err)
	assert.False(t, bound)

	bound, err = StorageBound(writeConfig(t, `{"clientId":"abc=","privateKey":"xyz"}`))
	require.NoError(t, err)
	assert.True(t, bound)

	_, err = StorageBound(writeConfig(t, `{not json`))
	assert.Error(t, err)
}

func TestBootstrapToken(t *testing.T) {
	unbound := filepath.Join(t.TempDir(), "ksm-config.json")
	bound := writeConfig(t, `{"clientId":"abc="}`)

	tests := []struct {
		name     string
		opts     KeeperOptions
		expected string
	}{
		{
			name:     "token with unbound storage is used",
			opts:     KeeperOptions{ConfigFile: unbound, OneTimeToken: "US:ONE_TIME"},
			expected: "US:ONE_TIME",
		},
		{
			name:     "token with bound storage is ignored",
			opts:     KeeperOptions{ConfigFile: bound, OneTimeToken: "US:ONE_TIME"},
			expected: "",
		},
		{
			name:     "no token and bound storage",
			opts:     KeeperOptions{ConfigFile: bound},
			expected: "",
		},
		{
			name:     "no token and unbound storage",
			opts:     KeeperOptions{ConfigFile: unbound},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := BootstrapToken(tt.opts, zap.NewNop())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, token)
		})
	}
}

func TestNewKeeperProvider_UnboundStorageWithoutTokenFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ksm-config.json")

	p, err := NewKeeperProvider(KeeperOptions{ConfigFile: path}, zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKeeperInit)
	assert.Nil(t, p)
}

func TestBootstrapToken_InvalidConfig(t *testing.T) {
	path := writeConfig(t, `[]`)
	_, err := BootstrapToken(KeeperOptions{ConfigFile: path, OneTimeToken: "US:X"}, zap.NewNop())
	assert.Error(t, err)
}
