// Package breaker 实现熔断器的状态机核心与实例注册表。
// 对外的组件接口由顶层 breaker 包封装。
package breaker

import (
	"github.com/GameOverStudios/deeperhub/breaker/types"
)

// record 状态机的纯数据快照，不含任何同步原语。
// 状态转移逻辑以 record 为输入输出的纯函数表达，便于独立测试。
type record struct {
	state     types.State
	failures  int // Closed 状态下的连续失败数
	successes int // HalfOpen 状态下的连续成功数
	inflight  int // HalfOpen 状态下的在途探测请求数
}

// 状态转换原因，用于日志与观察者通知
const (
	reasonFailureThreshold = "failure_threshold_reached"
	reasonTrialFailed      = "half_open_trial_failed"
	reasonTrialSucceeded   = "success_threshold_reached"
	reasonResetElapsed     = "reset_timeout_elapsed"
	reasonManualReset      = "manual_reset"
)

// newRecord 返回初始（Closed）状态的 record
func newRecord() record {
	return record{state: types.StateClosed}
}

// decide 计算一次准入判定
//
// elapsed 表示 Open 状态下 ResetTimeout 是否已经走完。
// 返回新的 record、是否发生状态转换、转换原因，以及拒绝错误（nil 表示放行）。
// Open 状态下计时走完的首个调用直接成为 HalfOpen 的第一个探测请求，
// 避免出现无人探测恢复的空窗期。
func decide(r record, p types.Policy, elapsed bool) (record, bool, string, error) {
	switch r.state {
	case types.StateClosed:
		return r, false, "", nil

	case types.StateOpen:
		if !elapsed {
			return r, false, "", types.ErrOpenState
		}
		r.state = types.StateHalfOpen
		r.successes = 0
		r.inflight = 1
		return r, true, reasonResetElapsed, nil

	case types.StateHalfOpen:
		if r.inflight >= p.HalfOpenMaxCalls {
			return r, false, "", types.ErrTooManyRequests
		}
		r.inflight++
		return r, false, "", nil

	default:
		return r, false, "", types.ErrOpenState
	}
}

// applyOutcome 计算一次结果上报后的状态
//
// 返回新的 record、是否发生状态转换及原因。
// 代次校验由调用方（Instance）完成，这里假定上报未过期。
func applyOutcome(r record, p types.Policy, out types.Outcome) (record, bool, string) {
	switch r.state {
	case types.StateClosed:
		if out == types.OutcomeSuccess {
			r.failures = 0
			return r, false, ""
		}
		r.failures++
		if r.failures >= p.FailureThreshold {
			r.state = types.StateOpen
			return r, true, reasonFailureThreshold
		}
		return r, false, ""

	case types.StateHalfOpen:
		if r.inflight > 0 {
			r.inflight--
		}
		if out != types.OutcomeSuccess {
			// 单次探测失败立即重新熔断，不等待其他在途探测
			r.state = types.StateOpen
			r.successes = 0
			r.inflight = 0
			return r, true, reasonTrialFailed
		}
		r.successes++
		if r.successes >= p.SuccessThreshold {
			r.state = types.StateClosed
			r.failures = 0
			r.successes = 0
			r.inflight = 0
			return r, true, reasonTrialSucceeded
		}
		return r, false, ""

	default:
		// Open 状态不会持有有效代次的在途调用，忽略
		return r, false, ""
	}
}

// reset 强制回到 Closed 状态并清零所有计数
func reset(r record) (record, bool, string) {
	transitioned := r.state != types.StateClosed
	return newRecord(), transitioned, reasonManualReset
}
