package breaker

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GameOverStudios/deeperhub/breaker/types"
)

func TestRegistryGetOrCreate(t *testing.T) {
	r := NewRegistry(newFakeClock(), nil)

	a := r.GetOrCreate("svc-a", testPolicy())
	b := r.GetOrCreate("svc-b", testPolicy())
	assert.NotSame(t, a, b)

	// 重复获取返回同一实例
	assert.Same(t, a, r.GetOrCreate("svc-a", testPolicy()))
}

// 并发首次访问同一服务名只创建一个实例
func TestRegistryGetOrCreateConcurrent(t *testing.T) {
	r := NewRegistry(newFakeClock(), nil)

	const workers = 64
	instances := make([]*Instance, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			instances[idx] = r.GetOrCreate("shared", testPolicy())
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		require.Same(t, instances[0], instances[i])
	}
}

func TestRegistryRegisterDuplicate(t *testing.T) {
	r := NewRegistry(newFakeClock(), nil)

	require.NoError(t, r.Register("svc", testPolicy()))
	err := r.Register("svc", testPolicy())
	assert.ErrorIs(t, err, types.ErrAlreadyRegistered)
}

func TestRegistryLookupMissing(t *testing.T) {
	r := NewRegistry(newFakeClock(), nil)

	_, ok := r.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistrySnapshots(t *testing.T) {
	r := NewRegistry(newFakeClock(), nil)

	for i := 0; i < 5; i++ {
		r.GetOrCreate(fmt.Sprintf("svc-%d", i), testPolicy())
	}

	snaps := r.Snapshots()
	assert.Len(t, snaps, 5)

	seen := make(map[string]bool)
	for _, s := range snaps {
		seen[s.Service] = true
		assert.Equal(t, types.StateClosed, s.State)
	}
	assert.Len(t, seen, 5)
}

func TestRegistryUpdatePolicy(t *testing.T) {
	r := NewRegistry(newFakeClock(), nil)

	assert.ErrorIs(t, r.UpdatePolicy("missing", testPolicy()), types.ErrNotFound)

	inst := r.GetOrCreate("svc", testPolicy())
	p := testPolicy()
	p.FailureThreshold = 9
	require.NoError(t, r.UpdatePolicy("svc", p))
	assert.Equal(t, 9, inst.Policy().FailureThreshold)
}

func TestRegistryReset(t *testing.T) {
	r := NewRegistry(newFakeClock(), nil)

	assert.ErrorIs(t, r.Reset("missing"), types.ErrNotFound)

	inst := r.GetOrCreate("svc", testPolicy())
	for i := 0; i < 3; i++ {
		gen, err := inst.Decide()
		require.NoError(t, err)
		inst.Report(gen, types.OutcomeFailure)
	}
	require.Equal(t, types.StateOpen, inst.Snapshot().State)

	require.NoError(t, r.Reset("svc"))
	assert.Equal(t, types.StateClosed, inst.Snapshot().State)
}
