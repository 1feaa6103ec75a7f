package capability

import (
	"sort"
	"strings"
	"sync"

	"github.com/dop251/goja"

	"github.com/modforge/scriptbox/internal/policy"
)

// Store is the shared state a script may see through its namespace
// allowlist. Implementations must be safe for concurrent use.
type Store interface {
	Get(namespace, key string) (interface{}, bool)
	Set(namespace, key string, value interface{})
	Delete(namespace, key string) bool
	Keys(namespace string) []string
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]interface{}
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]interface{})}
}

func (s *MemoryStore) Get(namespace, key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns, ok := s.data[namespace]
	if !ok {
		return nil, false
	}
	v, ok := ns[key]
	return v, ok
}

func (s *MemoryStore) Set(namespace, key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.data[namespace]
	if !ok {
		ns = make(map[string]interface{})
		s.data[namespace] = ns
	}
	ns[key] = value
}

func (s *MemoryStore) Delete(namespace, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.data[namespace]
	if !ok {
		return false
	}
	if _, ok := ns[key]; !ok {
		return false
	}
	delete(ns, key)
	return true
}

func (s *MemoryStore) Keys(namespace string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data[namespace]))
	for k := range s.data[namespace] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// hostRootName is the global the state view binds under. It matches the root
// the validator checks namespace access against.
const hostRootName = "game"

// StateView binds the policy's allowed namespaces as nested objects under
// the game global. Reads need the game state read capability; set and delete
// additionally need the write capability and throw without it.
type StateView struct {
	store Store
}

// NewStateView creates a view over the given store.
func NewStateView(store Store) *StateView {
	return &StateView{store: store}
}

// Category implements Injector.
func (v *StateView) Category() policy.ApiCategory { return policy.GameStateRead }

// Inject binds the allowed namespace tree.
func (v *StateView) Inject(vm *goja.Runtime, pol *policy.PermissionPolicy) error {
	root := vm.NewObject()
	writable := pol.Allows(policy.GameStateWrite)

	namespaces := pol.AllowedNamespaces()
	sort.Strings(namespaces)
	for _, ns := range namespaces {
		if ns != hostRootName && !strings.HasPrefix(ns, hostRootName+".") {
			continue
		}
		node := root
		for _, seg := range strings.Split(ns, ".")[1:] {
			child, err := ensureChild(vm, node, seg)
			if err != nil {
				return err
			}
			node = child
		}
		if err := v.bindNamespace(vm, node, ns, writable); err != nil {
			return err
		}
	}
	return vm.Set(hostRootName, root)
}

// ensureChild returns the named child object, creating it if absent.
func ensureChild(vm *goja.Runtime, parent *goja.Object, name string) (*goja.Object, error) {
	if existing := parent.Get(name); existing != nil && !goja.IsUndefined(existing) {
		return existing.ToObject(vm), nil
	}
	child := vm.NewObject()
	if err := parent.Set(name, child); err != nil {
		return nil, err
	}
	return child, nil
}

func (v *StateView) bindNamespace(vm *goja.Runtime, obj *goja.Object, ns string, writable bool) error {
	if err := obj.Set("get", func(call goja.FunctionCall) goja.Value {
		key := call.Argument(0).String()
		val, ok := v.store.Get(ns, key)
		if !ok {
			return goja.Undefined()
		}
		return vm.ToValue(val)
	}); err != nil {
		return err
	}
	if err := obj.Set("has", func(call goja.FunctionCall) goja.Value {
		_, ok := v.store.Get(ns, call.Argument(0).String())
		return vm.ToValue(ok)
	}); err != nil {
		return err
	}
	if err := obj.Set("keys", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(v.store.Keys(ns))
	}); err != nil {
		return err
	}
	if err := obj.Set("set", func(call goja.FunctionCall) goja.Value {
		if !writable {
			panic(vm.NewTypeError("namespace %q is read-only", ns))
		}
		v.store.Set(ns, call.Argument(0).String(), call.Argument(1).Export())
		return goja.Undefined()
	}); err != nil {
		return err
	}
	return obj.Set("delete", func(call goja.FunctionCall) goja.Value {
		if !writable {
			panic(vm.NewTypeError("namespace %q is read-only", ns))
		}
		return vm.ToValue(v.store.Delete(ns, call.Argument(0).String()))
	})
}
