package breaker

import (
	"sync"
	"time"

	"github.com/GameOverStudios/deeperhub/breaker/types"
)

// TransitionFunc 状态转换回调
// 在实例锁外调用，实现方可以安全地回到实例读取快照。
type TransitionFunc func(service string, from, to types.State, reason string)

// Instance 单个服务的熔断器实例
//
// 所有状态变更都持有互斥锁完成，Decide/Report 是常数时间操作，
// 不做任何 I/O。每次状态转换递增 generation 并刷新 enteredAt；
// 携带过期代次的 Report 是空操作，保证迟到的探测结果不会污染
// 实例已经离开的状态。
type Instance struct {
	service string
	clock   types.Clock
	onTrans TransitionFunc

	mu         sync.Mutex
	rec        record
	policy     types.Policy
	generation uint64
	enteredAt  time.Time
}

// NewInstance 创建处于 Closed 状态的熔断器实例
func NewInstance(service string, policy types.Policy, clock types.Clock, onTrans TransitionFunc) *Instance {
	return &Instance{
		service:   service,
		clock:     clock,
		onTrans:   onTrans,
		rec:       newRecord(),
		policy:    policy,
		enteredAt: clock.Now(),
	}
}

// Decide 判定是否放行一次调用
//
// 返回判定时刻的代次，调用方必须用它上报本次调用的结果。
// 拒绝时返回 ErrOpenState 或 ErrTooManyRequests，此时不应上报。
func (i *Instance) Decide() (uint64, error) {
	i.mu.Lock()

	elapsed := false
	if i.rec.state == types.StateOpen {
		elapsed = i.clock.Now().Sub(i.enteredAt) >= i.policy.ResetTimeout
	}

	next, transitioned, reason, err := decide(i.rec, i.policy, elapsed)
	from := i.rec.state
	i.rec = next
	if transitioned {
		i.bumpLocked()
	}
	gen := i.generation

	i.mu.Unlock()

	if transitioned {
		i.notify(from, next.state, reason)
	}
	return gen, err
}

// Report 上报一次已放行调用的结果
//
// gen 必须是 Decide 返回的代次；代次过期时上报被静默忽略。
func (i *Instance) Report(gen uint64, out types.Outcome) {
	i.mu.Lock()

	if gen != i.generation {
		i.mu.Unlock()
		return
	}

	next, transitioned, reason := applyOutcome(i.rec, i.policy, out)
	from := i.rec.state
	i.rec = next
	if transitioned {
		i.bumpLocked()
	}

	i.mu.Unlock()

	if transitioned {
		i.notify(from, next.state, reason)
	}
}

// Reset 强制回到 Closed 状态并清零计数，任何先前状态下都有效
func (i *Instance) Reset() {
	i.mu.Lock()

	next, transitioned, reason := reset(i.rec)
	from := i.rec.state
	i.rec = next
	// 无条件换代，让所有在途调用的上报全部过期
	i.bumpLocked()

	i.mu.Unlock()

	if transitioned {
		i.notify(from, next.state, reason)
	}
}

// SetPolicy 替换生效策略，不重置状态与计数
func (i *Instance) SetPolicy(p types.Policy) {
	i.mu.Lock()
	i.policy = p
	i.mu.Unlock()
}

// Policy 返回当前生效策略
func (i *Instance) Policy() types.Policy {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.policy
}

// Snapshot 返回只读状态快照
// 不推进状态机，重复调用结果一致。
func (i *Instance) Snapshot() types.Snapshot {
	i.mu.Lock()
	defer i.mu.Unlock()

	return types.Snapshot{
		Service:              i.service,
		State:                i.rec.state,
		ConsecutiveFailures:  i.rec.failures,
		ConsecutiveSuccesses: i.rec.successes,
		HalfOpenInFlight:     i.rec.inflight,
		Generation:           i.generation,
		StateChangedAt:       i.enteredAt,
		Policy:               i.policy,
	}
}

// bumpLocked 推进代次并刷新状态进入时间，必须持锁调用
func (i *Instance) bumpLocked() {
	i.generation++
	i.enteredAt = i.clock.Now()
}

// notify 在锁外触发状态转换回调
func (i *Instance) notify(from, to types.State, reason string) {
	if i.onTrans != nil {
		i.onTrans(i.service, from, to, reason)
	}
}
