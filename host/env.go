package host

import (
	"fmt"
	"io"
	"math"
	"os"

	"go.uber.org/zap"

	errs "github.com/wippyai/wasm-interp/errors"
	"github.com/wippyai/wasm-interp/wasm"
)

// Env is the built-in `env` host module: a character printer and the assert
// family the test corpus compiles against. Assert failures are fatal.
type Env struct {
	out    io.Writer
	logger *zap.Logger
}

// Option configures the env module.
type Option func(*Env)

// WithWriter redirects print_char output (default os.Stdout).
func WithWriter(w io.Writer) Option {
	return func(e *Env) { e.out = w }
}

// WithLogger sets the logger (default nop).
func WithLogger(l *zap.Logger) Option {
	return func(e *Env) { e.logger = l }
}

// NewEnv constructs the env module.
func NewEnv(opts ...Option) *Env {
	e := &Env{out: os.Stdout, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func sig(params ...wasm.ValType) wasm.FuncType {
	return wasm.FuncType{Params: params}
}

// DefaultRegistry returns a registry holding the env module built with opts.
func DefaultRegistry(opts ...Option) *Registry {
	r := NewRegistry()
	NewEnv(opts...).RegisterInto(r)
	return r
}

// RegisterInto installs the env bindings into a registry.
func (e *Env) RegisterInto(r *Registry) {
	r.Register("env", "print_char", sig(wasm.ValI32), e.printChar)
	r.Register("env", "assert_true", sig(wasm.ValI32), e.assertTrue)
	r.Register("env", "assert_false", sig(wasm.ValI32), e.assertFalse)
	r.Register("env", "assert_eq_i32", sig(wasm.ValI32, wasm.ValI32), e.assertEqI32)
	r.Register("env", "assert_eq_i64", sig(wasm.ValI64, wasm.ValI64), e.assertEqI64)
	r.Register("env", "assert_eq_f32", sig(wasm.ValF32, wasm.ValF32), e.assertEqF32)
	r.Register("env", "assert_eq_f64", sig(wasm.ValF64, wasm.ValF64), e.assertEqF64)
}

func (e *Env) printChar(args []uint64) ([]uint64, error) {
	c := byte(uint32(args[0]))
	if _, err := fmt.Fprintf(e.out, "%c", c); err != nil {
		return nil, errs.Wrap(errs.PhaseHost, errs.KindInvalidInput, err, "print_char")
	}
	return nil, nil
}

func (e *Env) assertTrue(args []uint64) ([]uint64, error) {
	if uint32(args[0]) == 0 {
		return nil, errs.AssertFailed("assert_true", "got 0")
	}
	e.logger.Debug("assert_true passed")
	return nil, nil
}

func (e *Env) assertFalse(args []uint64) ([]uint64, error) {
	if uint32(args[0]) != 0 {
		return nil, errs.AssertFailed("assert_false", "got %d", uint32(args[0]))
	}
	e.logger.Debug("assert_false passed")
	return nil, nil
}

func (e *Env) assertEqI32(args []uint64) ([]uint64, error) {
	left, right := int32(uint32(args[0])), int32(uint32(args[1]))
	if left != right {
		return nil, errs.AssertFailed("assert_eq_i32", "%d != %d", left, right)
	}
	e.logger.Debug("assert_eq_i32 passed", zap.Int32("value", left))
	return nil, nil
}

func (e *Env) assertEqI64(args []uint64) ([]uint64, error) {
	left, right := int64(args[0]), int64(args[1])
	if left != right {
		return nil, errs.AssertFailed("assert_eq_i64", "%d != %d", left, right)
	}
	e.logger.Debug("assert_eq_i64 passed", zap.Int64("value", left))
	return nil, nil
}

func (e *Env) assertEqF32(args []uint64) ([]uint64, error) {
	left := math.Float32frombits(uint32(args[0]))
	right := math.Float32frombits(uint32(args[1]))
	if left != right {
		return nil, errs.AssertFailed("assert_eq_f32", "%g != %g", left, right)
	}
	return nil, nil
}

func (e *Env) assertEqF64(args []uint64) ([]uint64, error) {
	left := math.Float64frombits(args[0])
	right := math.Float64frombits(args[1])
	if left != right {
		return nil, errs.AssertFailed("assert_eq_f64", "%g != %g", left, right)
	}
	return nil, nil
}
