package engine

import (
	errs "github.com/wippyai/wasm-interp/errors"
	"github.com/wippyai/wasm-interp/wasm"
)

// Table is a vector of function references. Slots start unbound (nil);
// element segments bind them at initialisation. Calling an unbound slot
// traps.
type Table struct {
	elems []*Function
	max   *uint32
}

// NewTable allocates a table at its declared minimum size.
func NewTable(tt wasm.TableType) *Table {
	return &Table{
		elems: make([]*Function, tt.Limits.Min),
		max:   tt.Limits.Max,
	}
}

// Size returns the current element count.
func (t *Table) Size() uint32 {
	return uint32(len(t.elems))
}

// Grow appends n unbound slots.
func (t *Table) Grow(n uint32) {
	t.elems = append(t.elems, make([]*Function, n)...)
}

// Get returns the function bound at index i. An out-of-range index or an
// unbound slot traps.
func (t *Table) Get(i uint32) *Function {
	if i >= uint32(len(t.elems)) {
		panic(errs.Trap(errs.KindUndefinedElement, "table index %d out of range (size %d)", i, len(t.elems)))
	}
	f := t.elems[i]
	if f == nil {
		panic(errs.Trap(errs.KindUndefinedElement, "table slot %d is unbound", i))
	}
	return f
}

// Set binds the function at index i.
func (t *Table) Set(i uint32, f *Function) {
	if i >= uint32(len(t.elems)) {
		panic(errs.Trap(errs.KindUndefinedElement, "table index %d out of range (size %d)", i, len(t.elems)))
	}
	t.elems[i] = f
}
