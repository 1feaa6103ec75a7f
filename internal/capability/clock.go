package capability

import (
	"time"

	"github.com/dop251/goja"

	"github.com/modforge/scriptbox/internal/policy"
)

// Clock exposes host time to scripts through a small global object, keeping
// the time source swappable for deterministic tests.
type Clock struct {
	now func() time.Time
}

// NewClock creates a wall-clock backed Clock.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// NewFixedClock creates a Clock frozen at t.
func NewFixedClock(t time.Time) *Clock {
	return &Clock{now: func() time.Time { return t }}
}

// Category implements Injector.
func (c *Clock) Category() policy.ApiCategory { return policy.DateTime }

// Inject binds the clock object with now (epoch milliseconds) and iso.
func (c *Clock) Inject(vm *goja.Runtime, _ *policy.PermissionPolicy) error {
	obj := vm.NewObject()
	if err := obj.Set("now", func() int64 {
		return c.now().UnixMilli()
	}); err != nil {
		return err
	}
	if err := obj.Set("iso", func() string {
		return c.now().UTC().Format(time.RFC3339Nano)
	}); err != nil {
		return err
	}
	return vm.Set("clock", obj)
}
