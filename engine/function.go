package engine

import (
	"github.com/wippyai/wasm-interp/host"
	"github.com/wippyai/wasm-interp/wasm"
)

// Function is an entry in the unified function index space: either a
// module-internal body executed by the dispatch loop, or a host adapter run
// natively. Exactly one of Code and Host is set.
type Function struct {
	Code *wasm.FuncBody
	Host host.Func
	Type wasm.FuncType
	Name string
}

// IsHost reports whether the function runs natively.
func (f *Function) IsHost() bool {
	return f.Host != nil
}
