package breaker

import (
	"context"
	"time"

	"github.com/GameOverStudios/deeperhub/breaker/types"
	"github.com/GameOverStudios/deeperhub/xerrors"
)

// CallOption 单次调用选项
type CallOption func(*callOptions)

type callOptions struct {
	timeout    time.Duration
	timeoutSet bool
}

func applyCallOptions(opts ...CallOption) *callOptions {
	opt := &callOptions{}
	for _, o := range opts {
		o(opt)
	}
	return opt
}

// WithCallTimeout 覆盖本次调用的超时时间
// 传 0 或负值表示本次调用不限制时长。
func WithCallTimeout(timeout time.Duration) CallOption {
	return func(o *callOptions) {
		o.timeout = timeout
		o.timeoutSet = true
	}
}

// safeCall 执行业务函数并把 panic 转换为普通错误
// 业务函数的 panic 不能穿透执行器，否则已放行的判定永远等不到结果上报，
// HalfOpen 状态下还会永久占用探测槽位。
func safeCall(ctx context.Context, op types.Operation) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = xerrors.Newf("breaker: operation panic: %v", r)
		}
	}()
	return op(ctx)
}

// runOperation 在超时约束下执行业务函数
// timeout <= 0 时不限制时长，直接同步执行。
func runOperation(ctx context.Context, op types.Operation, timeout time.Duration) (any, error) {
	if timeout <= 0 {
		return safeCall(ctx, op)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type callResult struct {
		value any
		err   error
	}
	// 带缓冲，超时后业务 goroutine 写入迟到结果时不会泄漏
	done := make(chan callResult, 1)

	go func() {
		value, err := safeCall(callCtx, op)
		done <- callResult{value: value, err: err}
	}()

	select {
	case res := <-done:
		return res.value, res.err
	case <-callCtx.Done():
		if err := ctx.Err(); err != nil {
			// 调用方自身的取消或截止时间，原样透传，按失败统计
			return nil, err
		}
		return nil, ErrCallTimeout
	}
}

// outcomeOf 将调用错误映射为统计口径
func outcomeOf(err error) types.Outcome {
	switch {
	case err == nil:
		return types.OutcomeSuccess
	case xerrors.Is(err, ErrCallTimeout):
		return types.OutcomeTimeout
	default:
		return types.OutcomeFailure
	}
}
