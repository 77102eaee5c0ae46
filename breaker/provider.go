package breaker

import (
	"context"

	"github.com/GameOverStudios/deeperhub/breaker/types"
	"github.com/GameOverStudios/deeperhub/clog"
	"github.com/GameOverStudios/deeperhub/config"
	"github.com/GameOverStudios/deeperhub/xerrors"
)

// configKey 配置文件中熔断器配置的根 Key
const configKey = "breaker"

// NewFromLoader 从配置加载器创建熔断器
// 读取配置中的 "breaker" 段，缺失时使用默认配置。
//
// 配置示例 (config.yaml):
//
//	breaker:
//	  default:
//	    failure_threshold: 5
//	    success_threshold: 2
//	    reset_timeout: 30s
//	    call_timeout: 5s
//	    half_open_max_calls: 1
//	  services:
//	    user-service:
//	      failure_threshold: 3
func NewFromLoader(loader config.Loader, opts ...Option) (Breaker, error) {
	cfg, err := loadConfig(loader)
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// BindConfig 将熔断器绑定到配置加载器的热更新通道
// 配置文件中 "breaker" 段变化时自动调用 ApplyConfig，
// 非法的新配置只记录日志，保持旧配置继续生效。
// 通过取消 ctx 停止监听。
func BindConfig(ctx context.Context, brk Breaker, loader config.Loader, logger clog.Logger) error {
	if logger == nil {
		logger = clog.Discard()
	}

	ch, err := loader.Watch(ctx, configKey)
	if err != nil {
		return xerrors.Wrap(err, "breaker: watch config")
	}

	go func() {
		for range ch {
			cfg, err := loadConfig(loader)
			if err != nil {
				logger.Warn("ignoring invalid breaker config", clog.Error(err))
				continue
			}
			if err := brk.ApplyConfig(cfg); err != nil {
				logger.Warn("ignoring invalid breaker config", clog.Error(err))
			}
		}
	}()

	return nil
}

func loadConfig(loader config.Loader) (*types.Config, error) {
	cfg := types.DefaultConfig()
	if loader.Get(configKey) == nil {
		return cfg, nil
	}
	if err := loader.UnmarshalKey(configKey, cfg); err != nil {
		return nil, xerrors.Wrap(err, "breaker: unmarshal config")
	}
	return cfg, nil
}
