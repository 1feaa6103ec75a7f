package capability

import (
	"math/rand"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/modforge/scriptbox/internal/policy"
)

// Random replaces Math.random with a host-controlled source, so executions
// can be made reproducible by seeding.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom creates a source from the given seed; seed 0 picks a
// time-derived one.
func NewRandom(seed int64) *Random {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

// Category implements Injector.
func (r *Random) Category() policy.ApiCategory { return policy.Random }

// Inject overrides Math.random with this source.
func (r *Random) Inject(vm *goja.Runtime, _ *policy.PermissionPolicy) error {
	math := vm.Get("Math")
	if math == nil {
		return nil
	}
	return math.ToObject(vm).Set("random", func() float64 {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.rng.Float64()
	})
}
