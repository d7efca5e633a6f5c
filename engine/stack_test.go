package engine

import (
	"math"
	"testing"

	errs "github.com/wippyai/wasm-interp/errors"
)

func wantTrapPanic(t *testing.T, kind errs.Kind, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a trap panic")
		}
		e, ok := r.(*errs.Error)
		if !ok {
			t.Fatalf("panic value %T, want *errors.Error", r)
		}
		if e.Kind != kind {
			t.Errorf("kind: got %s, want %s", e.Kind, kind)
		}
	}()
	fn()
}

func TestOperandStackTypedProjections(t *testing.T) {
	s := NewOperandStack()

	s.PushI32(-1)
	if got := s.PopU64(); got != 0xFFFFFFFF {
		t.Errorf("i32 push zero-extends: got %#x", got)
	}

	s.PushU64(0xAABBCCDD11223344)
	if got := s.PopU32(); got != 0x11223344 {
		t.Errorf("u32 pop truncates: got %#x", got)
	}

	s.PushI64(-5)
	if got := s.PopI64(); got != -5 {
		t.Errorf("i64 round trip: got %d", got)
	}

	s.PushF32(1.5)
	if got := s.PopF32(); got != 1.5 {
		t.Errorf("f32 round trip: got %g", got)
	}

	s.PushF64(-2.25)
	if got := s.PopF64(); got != -2.25 {
		t.Errorf("f64 round trip: got %g", got)
	}

	s.PushBool(true)
	s.PushBool(false)
	if s.PopBool() || !s.PopBool() {
		t.Error("bool round trip failed")
	}

	// Any non-zero slot is true.
	s.PushU64(42)
	if !s.PopBool() {
		t.Error("non-zero slot must pop as true")
	}
}

func TestOperandStackFloatBitsPreserved(t *testing.T) {
	s := NewOperandStack()

	// A NaN with a distinctive payload must round-trip bit-exactly.
	payload := uint64(0x7FF800000000BEEF)
	s.PushF64(math.Float64frombits(payload))
	if got := math.Float64bits(s.PopF64()); got != payload {
		t.Errorf("NaN payload: got %#x, want %#x", got, payload)
	}

	payload32 := uint32(0x7FC00ABC)
	s.PushF32(math.Float32frombits(payload32))
	if got := math.Float32bits(s.PopF32()); got != payload32 {
		t.Errorf("NaN payload (f32): got %#x, want %#x", got, payload32)
	}
}

func TestOperandStackBulk(t *testing.T) {
	s := NewOperandStack()
	s.PushN([]uint64{1, 2, 3, 4})

	if s.Depth() != 4 {
		t.Fatalf("depth: %d", s.Depth())
	}

	top := s.PopN(2)
	if len(top) != 2 || top[0] != 3 || top[1] != 4 {
		t.Errorf("PopN order: got %v, want [3 4]", top)
	}
	if s.Depth() != 2 {
		t.Errorf("depth after PopN: %d", s.Depth())
	}

	s.Set(0, 9)
	if s.Get(0) != 9 {
		t.Errorf("Get/Set: %d", s.Get(0))
	}

	s.DropTo(1)
	if s.Depth() != 1 {
		t.Errorf("depth after DropTo: %d", s.Depth())
	}
}

func TestOperandStackUnderflow(t *testing.T) {
	wantTrapPanic(t, errs.KindStackUnderflow, func() {
		NewOperandStack().PopU64()
	})
	wantTrapPanic(t, errs.KindStackUnderflow, func() {
		s := NewOperandStack()
		s.PushU64(1)
		s.PopN(2)
	})
}

func TestControlStackTopCallFrame(t *testing.T) {
	var cs controlStack
	cs.push(controlFrame{opcode: 0x10 /* call */, bp: 0})
	cs.push(controlFrame{opcode: 0x02 /* block */, bp: 1})
	cs.push(controlFrame{opcode: 0x03 /* loop */, bp: 2})

	cf, label := cs.topCallFrame()
	if cf == nil || cf.bp != 0 {
		t.Fatalf("topCallFrame: %+v", cf)
	}
	if label != 2 {
		t.Errorf("label depth: got %d, want 2", label)
	}

	var empty controlStack
	if cf, label := empty.topCallFrame(); cf != nil || label != -1 {
		t.Errorf("empty stack: %v %d", cf, label)
	}
}
