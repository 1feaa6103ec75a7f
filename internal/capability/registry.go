package capability

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/modforge/scriptbox/internal/policy"
)

// Injector binds one capability's host API into a runtime.
type Injector interface {
	// Category is the API category this injector provides.
	Category() policy.ApiCategory

	// Inject binds the capability into the runtime. It is only called
	// when the policy grants Category.
	Inject(vm *goja.Runtime, pol *policy.PermissionPolicy) error
}

// Registry holds the injectors available to one execution. Injectors whose
// category the policy does not grant are skipped, so the bound surface is
// deny-by-default.
type Registry struct {
	injectors []Injector
}

// NewRegistry creates a registry over the given injectors.
func NewRegistry(injectors ...Injector) *Registry {
	return &Registry{injectors: injectors}
}

// Inject applies every policy-granted injector to the runtime.
func (r *Registry) Inject(vm *goja.Runtime, pol *policy.PermissionPolicy) error {
	for _, in := range r.injectors {
		if !pol.Allows(in.Category()) {
			continue
		}
		if err := in.Inject(vm, pol); err != nil {
			return fmt.Errorf("inject %s: %w", in.Category(), err)
		}
	}
	return nil
}
