package engine

import (
	"math"

	errs "github.com/wippyai/wasm-interp/errors"
)

// Integer division and remainder. Divide-by-zero always traps; signed
// division additionally traps on MIN / -1, whose quotient is
// unrepresentable. Quotients truncate toward zero.

func divS32(a, b int32) int32 {
	if b == 0 {
		panic(errs.Trap(errs.KindDivideByZero, "i32.div_s: divide by zero"))
	}
	if a == math.MinInt32 && b == -1 {
		panic(errs.Trap(errs.KindIntegerOverflow, "i32.div_s: %d / -1 overflows", a))
	}
	return a / b
}

func divU32(a, b uint32) uint32 {
	if b == 0 {
		panic(errs.Trap(errs.KindDivideByZero, "i32.div_u: divide by zero"))
	}
	return a / b
}

func remS32(a, b int32) int32 {
	if b == 0 {
		panic(errs.Trap(errs.KindDivideByZero, "i32.rem_s: divide by zero"))
	}
	if a == math.MinInt32 && b == -1 {
		// The quotient overflows but the remainder is well-defined.
		return 0
	}
	return a % b
}

func remU32(a, b uint32) uint32 {
	if b == 0 {
		panic(errs.Trap(errs.KindDivideByZero, "i32.rem_u: divide by zero"))
	}
	return a % b
}

func divS64(a, b int64) int64 {
	if b == 0 {
		panic(errs.Trap(errs.KindDivideByZero, "i64.div_s: divide by zero"))
	}
	if a == math.MinInt64 && b == -1 {
		panic(errs.Trap(errs.KindIntegerOverflow, "i64.div_s: %d / -1 overflows", a))
	}
	return a / b
}

func divU64(a, b uint64) uint64 {
	if b == 0 {
		panic(errs.Trap(errs.KindDivideByZero, "i64.div_u: divide by zero"))
	}
	return a / b
}

func remS64(a, b int64) int64 {
	if b == 0 {
		panic(errs.Trap(errs.KindDivideByZero, "i64.rem_s: divide by zero"))
	}
	if a == math.MinInt64 && b == -1 {
		return 0
	}
	return a % b
}

func remU64(a, b uint64) uint64 {
	if b == 0 {
		panic(errs.Trap(errs.KindDivideByZero, "i64.rem_u: divide by zero"))
	}
	return a % b
}

// Float min/max per the wasm spec: NaN if either input is NaN, and
// -0 orders below +0. math.Min/Max do not comply, so these are written out.

func fmin(x, y float64) float64 {
	switch {
	case math.IsNaN(x) || math.IsNaN(y):
		return math.NaN()
	case math.IsInf(x, -1) || math.IsInf(y, -1):
		return math.Inf(-1)
	case x == 0 && x == y:
		if math.Signbit(x) {
			return x
		}
		return y
	}
	if x < y {
		return x
	}
	return y
}

func fmax(x, y float64) float64 {
	switch {
	case math.IsNaN(x) || math.IsNaN(y):
		return math.NaN()
	case math.IsInf(x, 1) || math.IsInf(y, 1):
		return math.Inf(1)
	case x == 0 && x == y:
		if math.Signbit(x) {
			return y
		}
		return x
	}
	if x > y {
		return x
	}
	return y
}

func fmin32(x, y float32) float32 {
	return float32(fmin(float64(x), float64(y)))
}

func fmax32(x, y float32) float32 {
	return float32(fmax(float64(x), float64(y)))
}

// Float-to-int truncation. The trapping variants reject NaN and any value
// whose truncation falls outside the destination; the saturating 0xFC
// variants clamp instead. The i64 upper bounds use >= because the exact
// integer bound rounds up in float representation.

func truncS32(v float64, sat bool) int32 {
	v = math.Trunc(v)
	if math.IsNaN(v) {
		if sat {
			return 0
		}
		panic(errs.Trap(errs.KindInvalidConversion, "truncation of NaN to i32"))
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		if sat {
			if v < 0 {
				return math.MinInt32
			}
			return math.MaxInt32
		}
		panic(errs.Trap(errs.KindIntegerOverflow, "%g overflows i32", v))
	}
	return int32(v)
}

func truncU32(v float64, sat bool) uint32 {
	v = math.Trunc(v)
	if math.IsNaN(v) {
		if sat {
			return 0
		}
		panic(errs.Trap(errs.KindInvalidConversion, "truncation of NaN to u32"))
	}
	if v < 0 || v > math.MaxUint32 {
		if sat {
			if v < 0 {
				return 0
			}
			return math.MaxUint32
		}
		panic(errs.Trap(errs.KindIntegerOverflow, "%g overflows u32", v))
	}
	return uint32(v)
}

func truncS64(v float64, sat bool) int64 {
	v = math.Trunc(v)
	if math.IsNaN(v) {
		if sat {
			return 0
		}
		panic(errs.Trap(errs.KindInvalidConversion, "truncation of NaN to i64"))
	}
	if v < math.MinInt64 || v >= math.MaxInt64 {
		if sat {
			if v < 0 {
				return math.MinInt64
			}
			return math.MaxInt64
		}
		panic(errs.Trap(errs.KindIntegerOverflow, "%g overflows i64", v))
	}
	return int64(v)
}

func truncU64(v float64, sat bool) uint64 {
	v = math.Trunc(v)
	if math.IsNaN(v) {
		if sat {
			return 0
		}
		panic(errs.Trap(errs.KindInvalidConversion, "truncation of NaN to u64"))
	}
	if v < 0 || v >= math.MaxUint64 {
		if sat {
			if v < 0 {
				return 0
			}
			return math.MaxUint64
		}
		panic(errs.Trap(errs.KindIntegerOverflow, "%g overflows u64", v))
	}
	return uint64(v)
}
