package types

import (
	"fmt"
	"time"
)

// Policy 熔断策略
//
// CallTimeout 的取值约定与其他组件保持一致：<= 0 表示不限制单次调用时长，
// 该实例永远不会产生超时结果。
type Policy struct {
	// FailureThreshold 连续失败阈值（>= 1）
	// Closed 状态下连续失败达到该值时熔断
	FailureThreshold int `yaml:"failure_threshold" json:"failure_threshold" mapstructure:"failure_threshold"`

	// SuccessThreshold 连续成功阈值（>= 1）
	// HalfOpen 状态下连续成功达到该值时恢复为 Closed
	SuccessThreshold int `yaml:"success_threshold" json:"success_threshold" mapstructure:"success_threshold"`

	// ResetTimeout 熔断持续时间（>= 0）
	// 进入 Open 状态后等待该时长才允许探测请求
	ResetTimeout time.Duration `yaml:"reset_timeout" json:"reset_timeout" mapstructure:"reset_timeout"`

	// CallTimeout 单次调用的最长执行时间
	// <= 0 表示不限制
	CallTimeout time.Duration `yaml:"call_timeout" json:"call_timeout" mapstructure:"call_timeout"`

	// HalfOpenMaxCalls HalfOpen 状态下允许同时在途的最大探测请求数（>= 1）
	HalfOpenMaxCalls int `yaml:"half_open_max_calls" json:"half_open_max_calls" mapstructure:"half_open_max_calls"`
}

// DefaultPolicy 返回默认策略
func DefaultPolicy() Policy {
	return Policy{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		ResetTimeout:     30 * time.Second,
		CallTimeout:      5 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// Validate 验证策略取值的有效性
func (p Policy) Validate() error {
	if p.FailureThreshold < 1 {
		return fmt.Errorf("%w: failure_threshold must be >= 1, got %d", ErrInvalidPolicy, p.FailureThreshold)
	}
	if p.SuccessThreshold < 1 {
		return fmt.Errorf("%w: success_threshold must be >= 1, got %d", ErrInvalidPolicy, p.SuccessThreshold)
	}
	if p.ResetTimeout < 0 {
		return fmt.Errorf("%w: reset_timeout must be >= 0, got %v", ErrInvalidPolicy, p.ResetTimeout)
	}
	if p.HalfOpenMaxCalls < 1 {
		return fmt.Errorf("%w: half_open_max_calls must be >= 1, got %d", ErrInvalidPolicy, p.HalfOpenMaxCalls)
	}
	return nil
}

// Config 熔断器组件配置
type Config struct {
	// Default 默认策略（应用到所有未单独配置的服务）
	Default Policy `yaml:"default" json:"default" mapstructure:"default"`

	// Services 按服务名配置不同的策略（可选）
	// Key 为服务名（如 "user-service"）
	Services map[string]Policy `yaml:"services" json:"services" mapstructure:"services"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Default:  DefaultPolicy(),
		Services: make(map[string]Policy),
	}
}

// Clone 返回配置的深拷贝
// 组件持有自己的副本，调用方后续修改原配置不会产生影响。
func (c *Config) Clone() *Config {
	services := make(map[string]Policy, len(c.Services))
	for name, p := range c.Services {
		services[name] = p
	}
	return &Config{
		Default:  c.Default,
		Services: services,
	}
}

// Validate 验证配置中的所有策略
func (c *Config) Validate() error {
	if err := c.Default.Validate(); err != nil {
		return fmt.Errorf("default policy: %w", err)
	}
	for name := range c.Services {
		if err := c.Resolve(name).Validate(); err != nil {
			return fmt.Errorf("service %q policy: %w", name, err)
		}
	}
	return nil
}

// Resolve 返回指定服务的生效策略
// 服务特定策略按字段覆盖默认策略，零值字段继承默认值；
// CallTimeout 以非零值覆盖，负值表示显式取消时长限制。
func (c *Config) Resolve(service string) Policy {
	result := c.Default
	svc, ok := c.Services[service]
	if !ok {
		return result
	}

	if svc.FailureThreshold > 0 {
		result.FailureThreshold = svc.FailureThreshold
	}
	if svc.SuccessThreshold > 0 {
		result.SuccessThreshold = svc.SuccessThreshold
	}
	if svc.ResetTimeout > 0 {
		result.ResetTimeout = svc.ResetTimeout
	}
	if svc.CallTimeout != 0 {
		result.CallTimeout = svc.CallTimeout
	}
	if svc.HalfOpenMaxCalls > 0 {
		result.HalfOpenMaxCalls = svc.HalfOpenMaxCalls
	}
	return result
}
