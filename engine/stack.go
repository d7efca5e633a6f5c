package engine

import (
	"math"

	errs "github.com/wippyai/wasm-interp/errors"
)

// OperandStack is the untyped value stack. Every value occupies one 64-bit
// slot; narrower integers are zero-extended on push and truncated on pop,
// floats round-trip through their bit pattern. NaN payloads are not
// canonicalised. Readers must not rely on the high bits of a narrow value.
type OperandStack struct {
	slots []uint64
}

// NewOperandStack returns an empty operand stack.
func NewOperandStack() *OperandStack {
	return &OperandStack{}
}

// Depth returns the number of live slots.
func (s *OperandStack) Depth() int {
	return len(s.slots)
}

// Get reads the slot at absolute index i (0 is the stack bottom).
func (s *OperandStack) Get(i int) uint64 {
	if i < 0 || i >= len(s.slots) {
		panic(errs.OutOfBounds([]string{"operand_stack"}, i, len(s.slots)))
	}
	return s.slots[i]
}

// Set writes the slot at absolute index i.
func (s *OperandStack) Set(i int, v uint64) {
	if i < 0 || i >= len(s.slots) {
		panic(errs.OutOfBounds([]string{"operand_stack"}, i, len(s.slots)))
	}
	s.slots[i] = v
}

// PushU64 pushes a raw 64-bit slot.
func (s *OperandStack) PushU64(v uint64) {
	s.slots = append(s.slots, v)
}

// PopU64 pops a raw 64-bit slot. Popping from an empty stack means the
// module was malformed or untrusted; it aborts execution.
func (s *OperandStack) PopU64() uint64 {
	n := len(s.slots)
	if n == 0 {
		panic(errs.Trap(errs.KindStackUnderflow, "pop from empty operand stack"))
	}
	v := s.slots[n-1]
	s.slots = s.slots[:n-1]
	return v
}

// PushN pushes the slots in order (vs[0] deepest).
func (s *OperandStack) PushN(vs []uint64) {
	s.slots = append(s.slots, vs...)
}

// PopN removes the top n slots and returns them in original order
// (bottom-of-slice first).
func (s *OperandStack) PopN(n int) []uint64 {
	if n > len(s.slots) {
		panic(errs.Trap(errs.KindStackUnderflow, "pop %d from stack of depth %d", n, len(s.slots)))
	}
	vs := make([]uint64, n)
	copy(vs, s.slots[len(s.slots)-n:])
	s.slots = s.slots[:len(s.slots)-n]
	return vs
}

// DropTo discards slots from the top down to depth n.
func (s *OperandStack) DropTo(n int) {
	if n > len(s.slots) {
		panic(errs.Trap(errs.KindStackUnderflow, "drop to depth %d from depth %d", n, len(s.slots)))
	}
	s.slots = s.slots[:n]
}

func (s *OperandStack) PushU32(v uint32) { s.PushU64(uint64(v)) }

func (s *OperandStack) PopU32() uint32 { return uint32(s.PopU64()) }

func (s *OperandStack) PushI32(v int32) { s.PushU64(uint64(uint32(v))) }

func (s *OperandStack) PopI32() int32 { return int32(uint32(s.PopU64())) }

func (s *OperandStack) PushI64(v int64) { s.PushU64(uint64(v)) }

func (s *OperandStack) PopI64() int64 { return int64(s.PopU64()) }

func (s *OperandStack) PushF32(v float32) { s.PushU64(uint64(math.Float32bits(v))) }

func (s *OperandStack) PopF32() float32 { return math.Float32frombits(uint32(s.PopU64())) }

func (s *OperandStack) PushF64(v float64) { s.PushU64(math.Float64bits(v)) }

func (s *OperandStack) PopF64() float64 { return math.Float64frombits(s.PopU64()) }

// PushBool pushes 1 for true, 0 for false.
func (s *OperandStack) PushBool(v bool) {
	if v {
		s.PushU64(1)
	} else {
		s.PushU64(0)
	}
}

// PopBool pops a slot and reports whether it is non-zero.
func (s *OperandStack) PopBool() bool { return s.PopU64() != 0 }
