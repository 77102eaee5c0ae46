package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfigFile 在临时目录生成配置文件
func writeConfigFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewDefaults(t *testing.T) {
	loader, err := New(nil)
	require.NoError(t, err)
	assert.NotNil(t, loader)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "config.yaml", `
app:
  name: deeperhub
breaker:
  default:
    failure_threshold: 5
`)

	loader, err := New(&Config{Paths: []string{dir}})
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))

	assert.Equal(t, "deeperhub", loader.Get("app.name"))

	var sub struct {
		FailureThreshold int `mapstructure:"failure_threshold"`
	}
	require.NoError(t, loader.UnmarshalKey("breaker.default", &sub))
	assert.Equal(t, 5, sub.FailureThreshold)
}

func TestLoadMissingFile(t *testing.T) {
	loader, err := New(&Config{Paths: []string{t.TempDir()}})
	require.NoError(t, err)

	// 配置文件不存在不是错误，环境变量仍然可用
	assert.NoError(t, loader.Load(context.Background()))
}

func TestUnmarshalBeforeLoad(t *testing.T) {
	loader, err := New(nil)
	require.NoError(t, err)

	var v map[string]any
	assert.ErrorIs(t, loader.Unmarshal(&v), ErrNotLoaded)
	assert.ErrorIs(t, loader.UnmarshalKey("app", &v), ErrNotLoaded)
}

func TestEnvOverride(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "config.yaml", "app:\n  name: from-file\n")

	t.Setenv("DEEPERHUB_APP_NAME", "from-env")

	loader, err := New(&Config{Paths: []string{dir}})
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))

	assert.Equal(t, "from-env", loader.Get("app.name"))
}

func TestWatchFileChange(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "config.yaml", "breaker:\n  default:\n    failure_threshold: 3\n")

	loader, err := New(&Config{Paths: []string{dir}})
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := loader.Watch(ctx, "breaker")
	require.NoError(t, err)

	// 修改文件触发 fsnotify 事件
	require.NoError(t, os.WriteFile(path, []byte("breaker:\n  default:\n    failure_threshold: 7\n"), 0o644))

	select {
	case event := <-ch:
		assert.Equal(t, "breaker", event.Key)
		assert.NotNil(t, event.Value)
	case <-time.After(5 * time.Second):
		t.Skip("fsnotify event not delivered in time, environment dependent")
	}
}

func TestWatchCancel(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "config.yaml", "app:\n  name: x\n")

	loader, err := New(&Config{Paths: []string{dir}})
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := loader.Watch(ctx, "app")
	require.NoError(t, err)

	cancel()

	// 取消后通道最终会被关闭
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("watch channel not closed after cancel")
	}
}
