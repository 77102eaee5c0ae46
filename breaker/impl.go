package breaker

import (
	"context"
	"sync"
	"time"

	"google.golang.org/grpc"

	"github.com/GameOverStudios/deeperhub/breaker/types"
	"github.com/GameOverStudios/deeperhub/clog"
	core "github.com/GameOverStudios/deeperhub/internal/breaker"
	"github.com/GameOverStudios/deeperhub/metrics"
	"github.com/GameOverStudios/deeperhub/xerrors"
)

// systemClock 默认时间源，直接读系统时钟
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// circuitBreaker Breaker 接口的默认实现
type circuitBreaker struct {
	logger   clog.Logger
	clock    types.Clock
	registry *core.Registry

	// cfg 仅作为新实例的策略来源，实例创建后各自持有策略副本
	cfgMu sync.RWMutex
	cfg   *types.Config

	obsMu     sync.RWMutex
	observers []types.Observer

	// 指标实例在构造时创建一次，meter 未注入时全部为 nil
	reqCounter      metrics.Counter
	rejectCounter   metrics.Counter
	fallbackCounter metrics.Counter
	stateCounter    metrics.Counter
	durationHist    metrics.Histogram
}

func newBreaker(cfg *types.Config, logger clog.Logger, meter metrics.Meter, clock types.Clock, observers []types.Observer) *circuitBreaker {
	if clock == nil {
		clock = systemClock{}
	}

	cb := &circuitBreaker{
		logger:    logger,
		clock:     clock,
		cfg:       cfg,
		observers: observers,
	}
	cb.registry = core.NewRegistry(clock, cb.onTransition)
	cb.initMetrics(meter)
	return cb
}

func (cb *circuitBreaker) initMetrics(meter metrics.Meter) {
	if meter == nil {
		return
	}
	var err error
	if cb.reqCounter, err = meter.Counter(MetricRequestsTotal, "受熔断保护的调用总数"); err != nil {
		cb.logger.Warn("failed to create counter", clog.String("name", MetricRequestsTotal), clog.Error(err))
	}
	if cb.rejectCounter, err = meter.Counter(MetricRejectsTotal, "被熔断器拒绝的调用总数"); err != nil {
		cb.logger.Warn("failed to create counter", clog.String("name", MetricRejectsTotal), clog.Error(err))
	}
	if cb.fallbackCounter, err = meter.Counter(MetricFallbacksTotal, "走降级路径的调用总数"); err != nil {
		cb.logger.Warn("failed to create counter", clog.String("name", MetricFallbacksTotal), clog.Error(err))
	}
	if cb.stateCounter, err = meter.Counter(MetricStateChangesTotal, "熔断器状态转换总数"); err != nil {
		cb.logger.Warn("failed to create counter", clog.String("name", MetricStateChangesTotal), clog.Error(err))
	}
	if cb.durationHist, err = meter.Histogram(MetricCallDuration, "受熔断保护的调用耗时", metrics.WithUnit("s")); err != nil {
		cb.logger.Warn("failed to create histogram", clog.String("name", MetricCallDuration), clog.Error(err))
	}
}

// Execute 实现 Breaker.Execute
func (cb *circuitBreaker) Execute(ctx context.Context, service string, op types.Operation, opts ...CallOption) (any, error) {
	result, _, err := cb.execute(ctx, service, op, opts...)
	return result, err
}

// ExecuteWithFallback 实现 Breaker.ExecuteWithFallback
func (cb *circuitBreaker) ExecuteWithFallback(ctx context.Context, service string, op types.Operation, fallback types.Fallback, opts ...CallOption) (any, error) {
	result, degradable, err := cb.execute(ctx, service, op, opts...)
	if err == nil || fallback == nil || !degradable {
		return result, err
	}

	cb.logger.Debug("falling back",
		clog.String("service", service),
		clog.Error(err))
	if cb.fallbackCounter != nil {
		cb.fallbackCounter.Inc(ctx, metrics.L(LabelService, service))
	}

	// 降级函数的结果原样透传，失败也不计入熔断统计
	return fallback(ctx, service, err)
}

// execute 执行一次受保护调用
// 返回的 degradable 标记本次失败是否可走降级路径：
// 参数校验失败不降级，熔断拒绝和业务失败都降级。
func (cb *circuitBreaker) execute(ctx context.Context, service string, op types.Operation, opts ...CallOption) (result any, degradable bool, err error) {
	if service == "" {
		return nil, false, ErrKeyEmpty
	}
	if op == nil {
		return nil, false, xerrors.New("breaker: operation is nil")
	}

	callOpt := applyCallOptions(opts...)

	inst := cb.registry.GetOrCreate(service, cb.resolvePolicy(service))

	gen, err := inst.Decide()
	if err != nil {
		cb.recordReject(ctx, service, err)
		return nil, true, err
	}

	timeout := inst.Policy().CallTimeout
	if callOpt.timeoutSet {
		timeout = callOpt.timeout
	}

	start := cb.clock.Now()
	result, err = runOperation(ctx, op, timeout)
	duration := cb.clock.Now().Sub(start)

	outcome := outcomeOf(err)
	// 恰好一次上报：每个放行的判定对应一次结果反馈
	inst.Report(gen, outcome)
	cb.recordOutcome(ctx, service, outcome, duration)

	if err != nil {
		return nil, true, err
	}
	return result, true, nil
}

func (cb *circuitBreaker) resolvePolicy(service string) types.Policy {
	cb.cfgMu.RLock()
	defer cb.cfgMu.RUnlock()
	return cb.cfg.Resolve(service)
}

// Register 实现 Breaker.Register
func (cb *circuitBreaker) Register(service string, policy types.Policy) error {
	if service == "" {
		return ErrKeyEmpty
	}
	if err := policy.Validate(); err != nil {
		return err
	}
	return cb.registry.Register(service, policy)
}

// State 实现 Breaker.State
func (cb *circuitBreaker) State(service string) (types.State, error) {
	inst, ok := cb.registry.Lookup(service)
	if !ok {
		return "", xerrors.Wrapf(ErrNotFound, "service %q", service)
	}
	return inst.Snapshot().State, nil
}

// Reset 实现 Breaker.Reset
func (cb *circuitBreaker) Reset(service string) error {
	if err := cb.registry.Reset(service); err != nil {
		return err
	}
	cb.logger.Info("breaker reset", clog.String("service", service))
	return nil
}

// Snapshots 实现 Breaker.Snapshots
func (cb *circuitBreaker) Snapshots() []types.Snapshot {
	return cb.registry.Snapshots()
}

// UpdatePolicy 实现 Breaker.UpdatePolicy
func (cb *circuitBreaker) UpdatePolicy(service string, policy types.Policy) error {
	if err := policy.Validate(); err != nil {
		return err
	}
	if err := cb.registry.UpdatePolicy(service, policy); err != nil {
		return err
	}
	cb.logger.Info("breaker policy updated",
		clog.String("service", service),
		clog.Int("failure_threshold", policy.FailureThreshold),
		clog.Duration("reset_timeout", policy.ResetTimeout))
	return nil
}

// ApplyConfig 实现 Breaker.ApplyConfig
func (cb *circuitBreaker) ApplyConfig(cfg *types.Config) error {
	if cfg == nil {
		return ErrConfigNil
	}
	// 持有副本，不修改调用方的配置
	cfg = cfg.Clone()
	if err := cfg.Validate(); err != nil {
		return err
	}

	cb.cfgMu.Lock()
	cb.cfg = cfg
	cb.cfgMu.Unlock()

	// 对已存在的实例逐个下发新策略，状态与计数保持不动
	for _, snap := range cb.registry.Snapshots() {
		if err := cb.registry.UpdatePolicy(snap.Service, cfg.Resolve(snap.Service)); err != nil {
			cb.logger.Warn("failed to apply policy",
				clog.String("service", snap.Service),
				clog.Error(err))
		}
	}

	cb.logger.Info("breaker config applied",
		clog.Int("service_overrides", len(cfg.Services)))
	return nil
}

// AddObserver 实现 Breaker.AddObserver
func (cb *circuitBreaker) AddObserver(obs types.Observer) {
	if obs == nil {
		return
	}
	cb.obsMu.Lock()
	cb.observers = append(cb.observers, obs)
	cb.obsMu.Unlock()
}

// UnaryClientInterceptor 实现 Breaker.UnaryClientInterceptor
func (cb *circuitBreaker) UnaryClientInterceptor(opts ...InterceptorOption) grpc.UnaryClientInterceptor {
	return unaryClientInterceptor(cb, opts...)
}

// StreamClientInterceptor 实现 Breaker.StreamClientInterceptor
func (cb *circuitBreaker) StreamClientInterceptor(opts ...InterceptorOption) grpc.StreamClientInterceptor {
	return streamClientInterceptor(cb, opts...)
}

// onTransition 注册到实例上的状态转换回调，在实例锁外被调用
func (cb *circuitBreaker) onTransition(service string, from, to types.State, reason string) {
	if to == types.StateOpen {
		cb.logger.Warn("breaker state changed",
			clog.String("service", service),
			clog.String("from", string(from)),
			clog.String("to", string(to)),
			clog.String("reason", reason))
	} else {
		cb.logger.Info("breaker state changed",
			clog.String("service", service),
			clog.String("from", string(from)),
			clog.String("to", string(to)),
			clog.String("reason", reason))
	}

	if cb.stateCounter != nil {
		cb.stateCounter.Inc(context.Background(),
			metrics.L(LabelService, service),
			metrics.L(LabelFrom, string(from)),
			metrics.L(LabelTo, string(to)),
			metrics.L(LabelReason, reason))
	}

	cb.notifyObservers(func(obs types.Observer) {
		obs.OnStateChange(service, from, to, reason)
	})
}

func (cb *circuitBreaker) recordReject(ctx context.Context, service string, err error) {
	cb.logger.Debug("call rejected",
		clog.String("service", service),
		clog.Error(err))
	if cb.rejectCounter != nil {
		reason := "open"
		if xerrors.Is(err, ErrTooManyRequests) {
			reason = "half_open_full"
		}
		cb.rejectCounter.Inc(ctx,
			metrics.L(LabelService, service),
			metrics.L(LabelReason, reason))
	}
}

func (cb *circuitBreaker) recordOutcome(ctx context.Context, service string, outcome types.Outcome, duration time.Duration) {
	if cb.reqCounter != nil {
		cb.reqCounter.Inc(ctx,
			metrics.L(LabelService, service),
			metrics.L(LabelOutcome, string(outcome)))
	}
	if cb.durationHist != nil {
		cb.durationHist.Record(ctx, duration.Seconds(),
			metrics.L(LabelService, service))
	}

	cb.notifyObservers(func(obs types.Observer) {
		obs.OnCallOutcome(service, outcome, duration)
	})
}

// notifyObservers 异步扇出事件，单个观察者 panic 不影响主流程
func (cb *circuitBreaker) notifyObservers(fn func(types.Observer)) {
	cb.obsMu.RLock()
	observers := make([]types.Observer, len(cb.observers))
	copy(observers, cb.observers)
	cb.obsMu.RUnlock()

	for _, obs := range observers {
		go func(o types.Observer) {
			defer func() {
				if r := recover(); r != nil {
					cb.logger.Error("observer panic", clog.Any("panic", r))
				}
			}()
			fn(o)
		}(obs)
	}
}
