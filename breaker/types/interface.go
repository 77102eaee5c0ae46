// Package types 定义熔断器组件的公共类型与契约。
package types

import (
	"context"
	"errors"
	"time"
)

// State 熔断器状态
type State string

const (
	StateClosed   State = "closed"    // 正常状态，请求正常通过，统计连续失败
	StateOpen     State = "open"      // 熔断状态，请求快速失败
	StateHalfOpen State = "half_open" // 半开状态，允许有限的探测请求
)

// String 返回状态的字符串表示
func (s State) String() string {
	return string(s)
}

// Outcome 单次调用的结果分类
type Outcome string

const (
	OutcomeSuccess Outcome = "success" // 调用成功
	OutcomeFailure Outcome = "failure" // 调用返回错误
	OutcomeTimeout Outcome = "timeout" // 调用超过 CallTimeout
)

// Operation 受熔断保护的业务函数
// ctx 携带单次调用的超时控制，实现应尽量尊重 ctx 的取消信号。
type Operation func(ctx context.Context) (any, error)

// Fallback 降级函数
// 在请求被熔断拒绝或业务调用失败时执行，err 为原始错误。
// 降级结果原样返回给调用方，降级自身的失败不会计入熔断统计。
type Fallback func(ctx context.Context, service string, err error) (any, error)

// Snapshot 单个熔断器实例的只读状态快照
type Snapshot struct {
	Service              string        // 服务名
	State                State         // 当前状态
	ConsecutiveFailures  int           // 连续失败数（Closed 状态下有意义）
	ConsecutiveSuccesses int           // 连续成功数（HalfOpen 状态下有意义）
	HalfOpenInFlight     int           // HalfOpen 状态下的在途探测请求数
	Generation           uint64        // 状态代次，每次状态转换递增
	StateChangedAt       time.Time     // 进入当前状态的时间
	Policy               Policy        // 生效策略
}

// Clock 时钟抽象，便于测试中模拟时间流逝
type Clock interface {
	Now() time.Time
}

// Observer 熔断器事件观察者
// 所有回调都是尽力通知：在独立 goroutine 中执行，panic 会被隔离，
// 观察者的任何行为都不影响熔断器本身的正确性。
type Observer interface {
	// OnStateChange 状态转换通知
	OnStateChange(service string, from, to State, reason string)

	// OnCallOutcome 调用结果通知
	OnCallOutcome(service string, outcome Outcome, duration time.Duration)
}

// 错误定义
var (
	// ErrOpenState 熔断器处于 Open 状态，请求被拒绝
	ErrOpenState = errors.New("breaker: circuit is open")

	// ErrTooManyRequests HalfOpen 状态下探测请求数已达上限
	ErrTooManyRequests = errors.New("breaker: too many requests in half-open state")

	// ErrCallTimeout 调用超过 CallTimeout 限制
	ErrCallTimeout = errors.New("breaker: call timed out")

	// ErrNotFound 指定服务的熔断器不存在
	ErrNotFound = errors.New("breaker: service not registered")

	// ErrAlreadyRegistered 指定服务的熔断器已存在
	ErrAlreadyRegistered = errors.New("breaker: service already registered")

	// ErrInvalidPolicy 策略配置无效
	ErrInvalidPolicy = errors.New("breaker: invalid policy")
)
