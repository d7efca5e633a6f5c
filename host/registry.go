package host

import (
	"github.com/wippyai/wasm-interp/wasm"
)

// Func is a host-function adapter. Arguments arrive as raw 64-bit slots,
// marshalled left-to-right according to the function type; results are
// returned the same way. Adapters run synchronously on the engine's thread
// and must not re-enter the engine.
type Func func(args []uint64) ([]uint64, error)

// Binding pairs an adapter with the signature it expects.
type Binding struct {
	Fn   Func
	Type wasm.FuncType
}

type key struct {
	module string
	member string
}

// Registry resolves imports by (module-name, member-name).
type Registry struct {
	bindings map[key]Binding
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{bindings: make(map[key]Binding)}
}

// Register installs an adapter for module.member, replacing any previous
// binding.
func (r *Registry) Register(module, member string, typ wasm.FuncType, fn Func) {
	r.bindings[key{module, member}] = Binding{Fn: fn, Type: typ}
}

// Lookup resolves module.member.
func (r *Registry) Lookup(module, member string) (Binding, bool) {
	b, ok := r.bindings[key{module, member}]
	return b, ok
}
