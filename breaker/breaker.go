// Package breaker 提供了熔断器组件，负责 DeeperHub 对下游依赖调用的
// 故障隔离与自动恢复。
//
// breaker 是治理层的核心组件，它提供了：
// - 服务级粒度的熔断管理（按服务名独立熔断，互不阻塞）
// - 基于连续失败计数的熔断触发与半开探测恢复
// - 代次（generation）标记，迟到的调用结果不会污染新状态
// - 单次调用超时控制，超时与失败在统计上严格区分
// - 灵活的降级策略（快速失败或自定义降级逻辑）
// - 策略热更新（替换策略不重置熔断状态）
// - gRPC Unary/Stream Interceptor 无侵入集成
//
// ## 基本使用
//
//	brk, _ := breaker.New(types.DefaultConfig(), breaker.WithLogger(logger))
//
//	result, err := brk.Execute(ctx, "user-service", func(ctx context.Context) (any, error) {
//		return userClient.Get(ctx, id)
//	})
//
// ## 降级策略
//
//	result, err := brk.ExecuteWithFallback(ctx, "user-service",
//		func(ctx context.Context) (any, error) {
//			return userClient.Get(ctx, id)
//		},
//		func(ctx context.Context, service string, err error) (any, error) {
//			// 返回缓存数据或默认值
//			return cachedUser, nil
//		},
//	)
//
// ## 使用 gRPC Interceptor
//
//	conn, _ := grpc.NewClient(
//		"localhost:9001",
//		grpc.WithUnaryInterceptor(brk.UnaryClientInterceptor()),
//	)
package breaker

import (
	"context"

	"google.golang.org/grpc"

	"github.com/GameOverStudios/deeperhub/breaker/types"
	"github.com/GameOverStudios/deeperhub/clog"
)

// Breaker 熔断器核心接口
type Breaker interface {
	// Execute 执行受熔断保护的函数
	// service: 服务名（熔断维度）
	// op: 要执行的业务函数，受生效策略的 CallTimeout 约束
	// opts: 单次调用选项（如 WithCallTimeout）
	Execute(ctx context.Context, service string, op types.Operation, opts ...CallOption) (any, error)

	// ExecuteWithFallback 执行受熔断保护的函数，并提供降级逻辑
	// 请求被拒绝或业务函数失败时执行 fallback，其结果原样返回；
	// fallback 自身的失败不计入熔断统计。
	ExecuteWithFallback(ctx context.Context, service string, op types.Operation, fallback types.Fallback, opts ...CallOption) (any, error)

	// Register 显式注册服务的熔断器，已存在时返回 ErrAlreadyRegistered
	Register(service string, policy types.Policy) error

	// State 获取指定服务的熔断器状态，未注册时返回 ErrNotFound
	State(service string) (types.State, error)

	// Reset 强制指定服务的熔断器回到 Closed 状态并清零计数
	// 立即对后续判定生效，不等待在途调用。
	Reset(service string) error

	// Snapshots 返回所有熔断器实例的状态快照
	// 非阻塞读取，结果可能轻微滞后。
	Snapshots() []types.Snapshot

	// UpdatePolicy 替换指定服务的策略，不重置其状态与计数
	UpdatePolicy(service string, policy types.Policy) error

	// ApplyConfig 整体替换组件配置
	// 新配置对已存在的实例按服务名逐个下发策略，均不重置状态。
	ApplyConfig(cfg *types.Config) error

	// AddObserver 注册熔断器事件观察者（状态转换、调用结果）
	AddObserver(obs types.Observer)

	// UnaryClientInterceptor 返回 gRPC 一元调用客户端拦截器
	// 支持 InterceptorOption 配置熔断 Key 生成策略
	UnaryClientInterceptor(opts ...InterceptorOption) grpc.UnaryClientInterceptor

	// StreamClientInterceptor 返回 gRPC 流式调用客户端拦截器
	StreamClientInterceptor(opts ...InterceptorOption) grpc.StreamClientInterceptor
}

// New 创建熔断器实例
// 这是标准的工厂函数，支持在不依赖其他容器的情况下独立实例化
//
// 参数:
//   - cfg: 熔断器配置（默认策略 + 按服务覆盖）
//   - opts: 可选参数 (Logger, Meter, Observer, Clock)
//
// 使用示例:
//
//	brk, _ := breaker.New(&types.Config{
//		Default: types.Policy{
//			FailureThreshold: 5,
//			SuccessThreshold: 2,
//			ResetTimeout:     30 * time.Second,
//			CallTimeout:      5 * time.Second,
//			HalfOpenMaxCalls: 1,
//		},
//	}, breaker.WithLogger(logger))
func New(cfg *types.Config, opts ...Option) (Breaker, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	// 持有副本，不修改调用方的配置
	cfg = cfg.Clone()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opt := applyOptions(opts...)

	logger := opt.logger
	if logger == nil {
		logger = clog.Discard()
	}

	logger.Info("creating circuit breaker",
		clog.Int("failure_threshold", cfg.Default.FailureThreshold),
		clog.Int("success_threshold", cfg.Default.SuccessThreshold),
		clog.Duration("reset_timeout", cfg.Default.ResetTimeout),
		clog.Duration("call_timeout", cfg.Default.CallTimeout),
		clog.Int("half_open_max_calls", cfg.Default.HalfOpenMaxCalls))

	return newBreaker(cfg, logger, opt.meter, opt.clock, opt.observers), nil
}
