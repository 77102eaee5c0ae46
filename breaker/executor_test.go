package breaker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GameOverStudios/deeperhub/breaker/types"
)

func TestRunOperationUnbounded(t *testing.T) {
	result, err := runOperation(context.Background(), succeed, 0)
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestRunOperationWithinTimeout(t *testing.T) {
	result, err := runOperation(context.Background(), succeed, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestRunOperationTimeout(t *testing.T) {
	slow := func(ctx context.Context) (any, error) {
		select {
		case <-time.After(5 * time.Second):
			return "late", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	start := time.Now()
	_, err := runOperation(context.Background(), slow, 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrCallTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRunOperationParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	block := func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	// 调用方取消不算超时，原样透传
	_, err := runOperation(ctx, block, 10*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrCallTimeout)
}

func TestRunOperationPanicRecovered(t *testing.T) {
	boom := func(ctx context.Context) (any, error) {
		panic("operation bug")
	}

	_, err := runOperation(context.Background(), boom, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operation panic")

	// 不限时长的同步路径同样要把 panic 转换为错误
	_, err = runOperation(context.Background(), boom, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operation panic")
}

// 不限时长的探测调用 panic 时结果仍被上报，探测槽位不会被永久占用
func TestExecutePanicReportsOutcomeUnbounded(t *testing.T) {
	clock := newFakeClock()
	brk := newTestBreaker(t, clock) // CallTimeout = 0
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = brk.Execute(ctx, "svc", fail)
	}
	state, err := brk.State("svc")
	require.NoError(t, err)
	require.Equal(t, types.StateOpen, state)

	clock.Advance(10 * time.Second)

	// 半开探测调用 panic
	_, err = brk.Execute(ctx, "svc", func(ctx context.Context) (any, error) {
		panic("boom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operation panic")

	// panic 按失败上报，重新熔断而不是卡死在 HalfOpen
	state, err = brk.State("svc")
	require.NoError(t, err)
	assert.Equal(t, types.StateOpen, state)

	// 计时再次走完后探测槽位依然可用
	clock.Advance(10 * time.Second)
	result, err := brk.Execute(ctx, "svc", succeed)
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, types.OutcomeSuccess, outcomeOf(nil))
	assert.Equal(t, types.OutcomeTimeout, outcomeOf(ErrCallTimeout))
	assert.Equal(t, types.OutcomeFailure, outcomeOf(errBoom))
	assert.Equal(t, types.OutcomeFailure, outcomeOf(context.Canceled))
}

// 超时的调用计入 timeout 统计并推动熔断
func TestExecuteTimeoutTrips(t *testing.T) {
	cfg := testConfig()
	cfg.Default.CallTimeout = 10 * time.Millisecond
	brk, err := New(cfg)
	require.NoError(t, err)
	ctx := context.Background()

	hang := func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	for i := 0; i < 3; i++ {
		_, err := brk.Execute(ctx, "svc", hang)
		assert.ErrorIs(t, err, ErrCallTimeout)
	}

	state, err := brk.State("svc")
	require.NoError(t, err)
	assert.Equal(t, types.StateOpen, state)
}

// 单次调用的 WithCallTimeout 覆盖策略值
func TestExecuteCallTimeoutOverride(t *testing.T) {
	cfg := testConfig()
	cfg.Default.CallTimeout = 10 * time.Second
	brk, err := New(cfg)
	require.NoError(t, err)

	hang := func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	start := time.Now()
	_, err = brk.Execute(context.Background(), "svc", hang, WithCallTimeout(20*time.Millisecond))
	assert.ErrorIs(t, err, ErrCallTimeout)
	assert.Less(t, time.Since(start), time.Second)
}
