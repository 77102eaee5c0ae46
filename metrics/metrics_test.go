package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNilConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestNewDisabled(t *testing.T) {
	meter, err := New(&Config{Enabled: false})
	require.NoError(t, err)

	// 禁用时所有操作应为空操作
	counter, err := meter.Counter("test_total", "test")
	require.NoError(t, err)
	counter.Inc(context.Background(), L("k", "v"))
	counter.Add(context.Background(), 5)

	gauge, err := meter.Gauge("test_gauge", "test")
	require.NoError(t, err)
	gauge.Set(context.Background(), 1)
	gauge.Inc(context.Background())
	gauge.Dec(context.Background())

	histogram, err := meter.Histogram("test_seconds", "test")
	require.NoError(t, err)
	histogram.Record(context.Background(), 0.5)

	assert.NoError(t, meter.Shutdown(context.Background()))
}

func TestNewEnabled(t *testing.T) {
	meter, err := New(&Config{
		Enabled:     true,
		ServiceName: "deeperhub-test",
		Version:     "v0.0.1",
		// Port=0 不启动 HTTP 服务器，避免测试间端口冲突
	})
	require.NoError(t, err)
	defer func() { _ = meter.Shutdown(context.Background()) }()

	ctx := context.Background()

	counter, err := meter.Counter("breaker_requests_total", "请求总数")
	require.NoError(t, err)
	counter.Inc(ctx, L("service", "user-service"))
	counter.Add(ctx, 3, L("service", "user-service"))

	histogram, err := meter.Histogram("breaker_request_duration_seconds", "请求耗时", WithUnit("s"))
	require.NoError(t, err)
	histogram.Record(ctx, 0.042, L("service", "user-service"))

	gauge, err := meter.Gauge("breaker_inflight", "在途请求数")
	require.NoError(t, err)
	gauge.Inc(ctx, L("service", "user-service"))
	gauge.Dec(ctx, L("service", "user-service"))
}

func TestLabelKey(t *testing.T) {
	assert.Equal(t, "", labelKey(nil))
	assert.Equal(t, "a=1", labelKey([]Label{L("a", "1")}))
	assert.Equal(t, "a=1|b=2", labelKey([]Label{L("a", "1"), L("b", "2")}))
}
