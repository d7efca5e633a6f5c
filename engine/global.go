package engine

import (
	errs "github.com/wippyai/wasm-interp/errors"
	"github.com/wippyai/wasm-interp/wasm"
)

// GlobalStore holds the module's globals as 64-bit slots. The declared type
// is advisory within the slot; mutability is enforced on every Set.
type GlobalStore struct {
	globals []globalVar
}

type globalVar struct {
	val uint64
	typ wasm.GlobalType
}

// Append adds a global with its initial value. Used only during
// initialisation.
func (g *GlobalStore) Append(typ wasm.GlobalType, val uint64) {
	g.globals = append(g.globals, globalVar{typ: typ, val: val})
}

// Len returns the number of globals.
func (g *GlobalStore) Len() int {
	return len(g.globals)
}

// Get reads global i.
func (g *GlobalStore) Get(i uint32) uint64 {
	if i >= uint32(len(g.globals)) {
		panic(errs.OutOfBounds([]string{"globals"}, int(i), len(g.globals)))
	}
	return g.globals[i].val
}

// Set writes global i. Writing a non-mutable global after initialisation is
// fatal.
func (g *GlobalStore) Set(i uint32, val uint64) {
	if i >= uint32(len(g.globals)) {
		panic(errs.OutOfBounds([]string{"globals"}, int(i), len(g.globals)))
	}
	if !g.globals[i].typ.Mutable {
		panic(errs.ImmutableGlobal(i))
	}
	g.globals[i].val = val
}
