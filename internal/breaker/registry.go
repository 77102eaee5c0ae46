package breaker

import (
	"sync"

	"github.com/GameOverStudios/deeperhub/breaker/types"
)

// Registry 服务名到熔断器实例的映射
//
// 映射本身用读写锁保护，仅在查找与创建时短暂持有；
// 实例各自持有独立的互斥锁，不同服务之间的判定与上报互不阻塞。
type Registry struct {
	clock   types.Clock
	onTrans TransitionFunc

	mu        sync.RWMutex
	instances map[string]*Instance
}

// NewRegistry 创建空的实例注册表
func NewRegistry(clock types.Clock, onTrans TransitionFunc) *Registry {
	return &Registry{
		clock:     clock,
		onTrans:   onTrans,
		instances: make(map[string]*Instance),
	}
}

// GetOrCreate 返回指定服务的实例，不存在时创建
//
// 并发的首次访问只会创建一个实例：写锁下二次检查，
// 同一服务名不可能产生重复实例。
func (r *Registry) GetOrCreate(service string, policy types.Policy) *Instance {
	r.mu.RLock()
	inst, ok := r.instances[service]
	r.mu.RUnlock()
	if ok {
		return inst
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if inst, ok = r.instances[service]; ok {
		return inst
	}

	inst = NewInstance(service, policy, r.clock, r.onTrans)
	r.instances[service] = inst
	return inst
}

// Register 显式注册服务实例，已存在时返回 ErrAlreadyRegistered
func (r *Registry) Register(service string, policy types.Policy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.instances[service]; ok {
		return types.ErrAlreadyRegistered
	}
	r.instances[service] = NewInstance(service, policy, r.clock, r.onTrans)
	return nil
}

// Lookup 查找服务实例
func (r *Registry) Lookup(service string) (*Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inst, ok := r.instances[service]
	return inst, ok
}

// Snapshots 返回所有实例的状态快照
// 非阻塞读取，结果可能轻微滞后于最新状态。
func (r *Registry) Snapshots() []types.Snapshot {
	r.mu.RLock()
	instances := make([]*Instance, 0, len(r.instances))
	for _, inst := range r.instances {
		instances = append(instances, inst)
	}
	r.mu.RUnlock()

	snapshots := make([]types.Snapshot, 0, len(instances))
	for _, inst := range instances {
		snapshots = append(snapshots, inst.Snapshot())
	}
	return snapshots
}

// UpdatePolicy 替换服务实例的策略，不重置其状态与计数
func (r *Registry) UpdatePolicy(service string, policy types.Policy) error {
	inst, ok := r.Lookup(service)
	if !ok {
		return types.ErrNotFound
	}
	inst.SetPolicy(policy)
	return nil
}

// Reset 强制服务实例回到 Closed 状态
func (r *Registry) Reset(service string) error {
	inst, ok := r.Lookup(service)
	if !ok {
		return types.ErrNotFound
	}
	inst.Reset()
	return nil
}
