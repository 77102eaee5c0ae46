package clog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(t *testing.T, cfg *Config, opts ...Option) (*bytes.Buffer, Logger) {
	t.Helper()

	buf := &bytes.Buffer{}
	cfg.Output = "buffer"
	logger, err := New(cfg, append(opts, WithBuffer(buf))...)
	require.NoError(t, err)
	return buf, logger
}

func TestNewDefaults(t *testing.T) {
	logger, err := New(nil)
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewInvalidConfig(t *testing.T) {
	_, err := New(&Config{Level: "verbose"})
	assert.Error(t, err)

	_, err = New(&Config{Format: "xml"})
	assert.Error(t, err)
}

func TestLevelFiltering(t *testing.T) {
	buf, logger := newBufferLogger(t, &Config{Level: "warn", Format: "json"})

	logger.Debug("not shown")
	logger.Info("not shown")
	logger.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "not shown")
	assert.Contains(t, out, "shown")
}

func TestFields(t *testing.T) {
	buf, logger := newBufferLogger(t, &Config{Level: "debug", Format: "json"})

	logger.Info("call finished",
		String("service", "user-service"),
		Int("attempt", 2),
		Bool("degraded", false),
	)

	out := buf.String()
	assert.Contains(t, out, `"service":"user-service"`)
	assert.Contains(t, out, `"attempt":2`)
	assert.Contains(t, out, `"degraded":false`)
}

func TestNamespace(t *testing.T) {
	buf, logger := newBufferLogger(t, &Config{Level: "debug", Format: "json"},
		WithNamespace("deeperhub"))

	logger.WithNamespace("breaker").Info("created")

	assert.Contains(t, buf.String(), `"namespace":"deeperhub.breaker"`)
}

func TestWith(t *testing.T) {
	buf, logger := newBufferLogger(t, &Config{Level: "debug", Format: "json"})

	child := logger.With(String("component", "registry"))
	child.Info("first")
	child.Info("second")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Contains(t, line, `"component":"registry"`)
	}
}

func TestErrorField(t *testing.T) {
	buf, logger := newBufferLogger(t, &Config{Level: "debug", Format: "json"})

	logger.Error("boom", Error(assert.AnError))

	assert.Contains(t, buf.String(), "err_msg")
}

func TestDiscard(t *testing.T) {
	logger := Discard()

	// 静默 Logger 的所有方法都不应 panic
	logger.Debug("x")
	logger.Info("x")
	logger.Warn("x")
	logger.Error("x")
	logger.With(String("k", "v")).WithNamespace("a", "b").Info("x")
}
