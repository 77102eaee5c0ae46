package breaker

import (
	"github.com/GameOverStudios/deeperhub/breaker/types"
	"github.com/GameOverStudios/deeperhub/clog"
	"github.com/GameOverStudios/deeperhub/metrics"
)

// Option 组件初始化可选参数
type Option func(*options)

type options struct {
	logger    clog.Logger
	meter     metrics.Meter
	clock     types.Clock
	observers []types.Observer
}

func applyOptions(opts ...Option) *options {
	opt := &options{}
	for _, o := range opts {
		o(opt)
	}
	return opt
}

// WithLogger 设置日志记录器
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("breaker")
		}
	}
}

// WithMeter 设置指标上报器
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithObserver 注册熔断器事件观察者，可多次调用
func WithObserver(obs types.Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithClock 替换时间源，主要用于测试
func WithClock(clock types.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}
