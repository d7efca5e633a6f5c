package engine

import (
	"math"
	"testing"

	errs "github.com/wippyai/wasm-interp/errors"
)

func TestDivTraps(t *testing.T) {
	wantTrapPanic(t, errs.KindDivideByZero, func() { divS32(1, 0) })
	wantTrapPanic(t, errs.KindDivideByZero, func() { divU32(1, 0) })
	wantTrapPanic(t, errs.KindDivideByZero, func() { remS32(1, 0) })
	wantTrapPanic(t, errs.KindDivideByZero, func() { remU64(1, 0) })
	wantTrapPanic(t, errs.KindIntegerOverflow, func() { divS32(math.MinInt32, -1) })
	wantTrapPanic(t, errs.KindIntegerOverflow, func() { divS64(math.MinInt64, -1) })

	if got := divS32(-7, 2); got != -3 {
		t.Errorf("signed division truncates toward zero: got %d", got)
	}
	if got := remS32(-7, 2); got != -1 {
		t.Errorf("signed remainder keeps the dividend sign: got %d", got)
	}
	if got := remS32(math.MinInt32, -1); got != 0 {
		t.Errorf("MIN rem -1: got %d, want 0", got)
	}
	if got := remS64(math.MinInt64, -1); got != 0 {
		t.Errorf("MIN rem -1 (64): got %d, want 0", got)
	}
	if got := divU32(math.MaxUint32, 2); got != math.MaxUint32/2 {
		t.Errorf("unsigned division: got %d", got)
	}
}

func TestFloatMinMax(t *testing.T) {
	nan := math.NaN()
	negZero := math.Copysign(0, -1)

	if !math.IsNaN(fmin(nan, 1)) || !math.IsNaN(fmin(1, nan)) {
		t.Error("min with NaN must be NaN")
	}
	if !math.IsNaN(fmax(nan, math.Inf(1))) {
		t.Error("max(NaN, +Inf) must be NaN")
	}
	if got := fmin(negZero, 0); !math.Signbit(got) {
		t.Error("min(-0, +0) must be -0")
	}
	if got := fmax(negZero, 0); math.Signbit(got) {
		t.Error("max(-0, +0) must be +0")
	}
	if fmin(1, 2) != 1 || fmax(1, 2) != 2 {
		t.Error("ordinary min/max")
	}
	if fmin(math.Inf(-1), 5) != math.Inf(-1) {
		t.Error("min with -Inf")
	}
}

func TestTruncBounds(t *testing.T) {
	wantTrapPanic(t, errs.KindInvalidConversion, func() { truncS32(math.NaN(), false) })
	wantTrapPanic(t, errs.KindIntegerOverflow, func() { truncS32(2147483648, false) })
	wantTrapPanic(t, errs.KindIntegerOverflow, func() { truncS32(-2147483649, false) })
	wantTrapPanic(t, errs.KindIntegerOverflow, func() { truncU32(-1, false) })
	wantTrapPanic(t, errs.KindIntegerOverflow, func() { truncS64(math.MaxInt64, false) })
	wantTrapPanic(t, errs.KindIntegerOverflow, func() { truncU64(-1.5, false) })

	if got := truncS32(-2147483648, false); got != math.MinInt32 {
		t.Errorf("exact lower bound: got %d", got)
	}
	if got := truncS32(-1.9, false); got != -1 {
		t.Errorf("truncate toward zero: got %d", got)
	}
	if got := truncU32(4294967295, false); got != math.MaxUint32 {
		t.Errorf("exact upper bound: got %d", got)
	}
	// -0.5 truncates to zero for unsigned targets.
	if got := truncU32(-0.5, false); got != 0 {
		t.Errorf("-0.5 unsigned: got %d", got)
	}
}

func TestTruncSaturating(t *testing.T) {
	if got := truncS32(math.NaN(), true); got != 0 {
		t.Errorf("sat NaN: got %d", got)
	}
	if got := truncS32(1e300, true); got != math.MaxInt32 {
		t.Errorf("sat +huge: got %d", got)
	}
	if got := truncS32(-1e300, true); got != math.MinInt32 {
		t.Errorf("sat -huge: got %d", got)
	}
	if got := truncU32(-5, true); got != 0 {
		t.Errorf("sat negative to unsigned: got %d", got)
	}
	if got := truncU64(1e300, true); got != math.MaxUint64 {
		t.Errorf("sat u64: got %d", got)
	}
	if got := truncS64(math.Inf(-1), true); got != math.MinInt64 {
		t.Errorf("sat -Inf: got %d", got)
	}
}
