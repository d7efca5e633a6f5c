package host_test

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	errs "github.com/wippyai/wasm-interp/errors"
	"github.com/wippyai/wasm-interp/host"
	"github.com/wippyai/wasm-interp/wasm"
)

func lookup(t *testing.T, r *host.Registry, name string) host.Binding {
	t.Helper()
	b, ok := r.Lookup("env", name)
	if !ok {
		t.Fatalf("env.%s not registered", name)
	}
	return b
}

func TestEnvBindingsRegistered(t *testing.T) {
	r := host.DefaultRegistry()

	tests := []struct {
		name   string
		params []wasm.ValType
	}{
		{"print_char", []wasm.ValType{wasm.ValI32}},
		{"assert_true", []wasm.ValType{wasm.ValI32}},
		{"assert_false", []wasm.ValType{wasm.ValI32}},
		{"assert_eq_i32", []wasm.ValType{wasm.ValI32, wasm.ValI32}},
		{"assert_eq_i64", []wasm.ValType{wasm.ValI64, wasm.ValI64}},
		{"assert_eq_f32", []wasm.ValType{wasm.ValF32, wasm.ValF32}},
		{"assert_eq_f64", []wasm.ValType{wasm.ValF64, wasm.ValF64}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := lookup(t, r, tt.name)
			want := wasm.FuncType{Params: tt.params}
			if !b.Type.Equal(want) {
				t.Errorf("type: got %s, want %s", b.Type, want)
			}
		})
	}

	if _, ok := r.Lookup("env", "no_such"); ok {
		t.Error("unknown member must not resolve")
	}
	if _, ok := r.Lookup("other", "print_char"); ok {
		t.Error("unknown module must not resolve")
	}
}

func TestPrintChar(t *testing.T) {
	var out bytes.Buffer
	r := host.DefaultRegistry(host.WithWriter(&out))
	b := lookup(t, r, "print_char")

	for _, c := range "ok\n" {
		results, err := b.Fn([]uint64{uint64(uint32(c))})
		if err != nil {
			t.Fatalf("print_char: %v", err)
		}
		if len(results) != 0 {
			t.Fatalf("print_char results: %v", results)
		}
	}
	if out.String() != "ok\n" {
		t.Errorf("output: %q", out.String())
	}
}

func TestAssertFamily(t *testing.T) {
	r := host.DefaultRegistry()

	pass := []struct {
		name string
		args []uint64
	}{
		{"assert_true", []uint64{1}},
		{"assert_false", []uint64{0}},
		{"assert_eq_i32", []uint64{42, 42}},
		{"assert_eq_i64", []uint64{1 << 40, 1 << 40}},
		{"assert_eq_f32", []uint64{uint64(math.Float32bits(1.5)), uint64(math.Float32bits(1.5))}},
		{"assert_eq_f64", []uint64{math.Float64bits(-2.5), math.Float64bits(-2.5)}},
	}
	for _, tt := range pass {
		t.Run(tt.name+" pass", func(t *testing.T) {
			if _, err := lookup(t, r, tt.name).Fn(tt.args); err != nil {
				t.Errorf("unexpected failure: %v", err)
			}
		})
	}

	fail := []struct {
		name string
		args []uint64
	}{
		{"assert_true", []uint64{0}},
		{"assert_false", []uint64{7}},
		{"assert_eq_i32", []uint64{1, 2}},
		{"assert_eq_i64", []uint64{1, 2}},
		{"assert_eq_f32", []uint64{uint64(math.Float32bits(1.5)), uint64(math.Float32bits(2.5))}},
		{"assert_eq_f64", []uint64{math.Float64bits(1.5), math.Float64bits(2.5)}},
	}
	for _, tt := range fail {
		t.Run(tt.name+" fail", func(t *testing.T) {
			_, err := lookup(t, r, tt.name).Fn(tt.args)
			var e *errs.Error
			if !errors.As(err, &e) || e.Kind != errs.KindAssertFailed {
				t.Fatalf("got %v, want assert_failed", err)
			}
			if !strings.Contains(e.Error(), tt.name) {
				t.Errorf("diagnostic %q does not identify %s", e.Error(), tt.name)
			}
		})
	}
}

func TestAssertEqI32Diagnostic(t *testing.T) {
	r := host.DefaultRegistry()
	_, err := lookup(t, r, "assert_eq_i32").Fn([]uint64{40, 42})
	if err == nil {
		t.Fatal("expected failure")
	}
	msg := err.Error()
	if !strings.Contains(msg, "40") || !strings.Contains(msg, "42") {
		t.Errorf("diagnostic %q must carry both values", msg)
	}
}

func TestRegistryReplace(t *testing.T) {
	r := host.DefaultRegistry()
	called := false
	r.Register("env", "print_char", wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}},
		func(args []uint64) ([]uint64, error) {
			called = true
			return nil, nil
		})

	b := lookup(t, r, "print_char")
	if _, err := b.Fn([]uint64{65}); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("replacement binding not invoked")
	}
}
