package sandbox

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/modforge/scriptbox/internal/capability"
	"github.com/modforge/scriptbox/internal/policy"
)

// strippedAlways are escape hatches removed from every runtime regardless of
// policy. The validator rejects references to them first; stripping is the
// runtime backstop.
var strippedAlways = []string{
	"eval",
	"Function",
	"require",
	"process",
	"global",
	"globalThis",
}

// hardenScript severs the remaining paths to the Function intrinsic.
// Stripping the global is not enough: every function value still reaches it
// through its prototype's "constructor" property, so the property is blanked
// on the plain, generator and async function prototypes.
const hardenScript = `(function() {
	"use strict";
	var samples = [
		function () {},
		function* () {},
		async function () {},
	];
	for (var i = 0; i < samples.length; i++) {
		var proto = Object.getPrototypeOf(samples[i]);
		while (proto && proto !== Object.prototype) {
			Object.defineProperty(proto, "constructor", { value: undefined });
			proto = Object.getPrototypeOf(proto);
		}
	}
})();`

// gatedGlobals maps built-ins to the capability that keeps them.
var gatedGlobals = map[string]policy.ApiCategory{
	"JSON": policy.Serialization,
	"Date": policy.DateTime,
}

// newRuntime builds a fresh interpreter for one execution: strip denied
// built-ins, then inject the policy-granted capabilities. VMs are never
// reused across calls, so script-level state cannot leak between runs.
func newRuntime(pol *policy.PermissionPolicy, reg *capability.Registry) (*goja.Runtime, error) {
	vm := goja.New()

	if _, err := vm.RunString(hardenScript); err != nil {
		return nil, fmt.Errorf("harden runtime: %w", err)
	}
	for _, name := range strippedAlways {
		if err := vm.Set(name, goja.Undefined()); err != nil {
			return nil, fmt.Errorf("strip %s: %w", name, err)
		}
	}
	for name, cat := range gatedGlobals {
		if pol.Allows(cat) {
			continue
		}
		if err := vm.Set(name, goja.Undefined()); err != nil {
			return nil, fmt.Errorf("strip %s: %w", name, err)
		}
	}
	if !pol.Allows(policy.Random) {
		if math := vm.Get("Math"); math != nil {
			if err := math.ToObject(vm).Set("random", goja.Undefined()); err != nil {
				return nil, fmt.Errorf("strip Math.random: %w", err)
			}
		}
	}

	if err := reg.Inject(vm, pol); err != nil {
		return nil, err
	}
	return vm, nil
}
