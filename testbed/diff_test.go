// Package testbed cross-checks the engine against wazero's interpreter:
// every module here is encoded with the wasm package, executed on both
// runtimes, and must produce identical results (or trap on both).
package testbed

import (
	"bytes"
	"context"
	"testing"

	"github.com/tetratelabs/wazero"

	"github.com/wippyai/wasm-interp/engine"
	"github.com/wippyai/wasm-interp/host"
	"github.com/wippyai/wasm-interp/wasm"
)

func i32Const(v int32) wasm.Instruction {
	return wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: v}}
}

func op(opcode byte) wasm.Instruction {
	return wasm.Instruction{Opcode: opcode}
}

// pureModule exports "compute" with signature ()->(i32).
func pureModule(locals []wasm.LocalGroup, body ...wasm.Instruction) *wasm.Module {
	return &wasm.Module{
		Types:   []wasm.FuncType{{Results: []wasm.ValType{wasm.ValI32}}},
		Funcs:   []uint32{0},
		Exports: []wasm.Export{{Name: "compute", Kind: wasm.KindFunc, Index: 0}},
		Code:    []wasm.FuncBody{{Locals: locals, Body: body}},
	}
}

// runOurs executes compute on this engine.
func runOurs(t *testing.T, bin []byte) (uint64, error) {
	t.Helper()
	m, err := wasm.ParseModuleValidate(bin)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	vm, err := engine.New(m)
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	results, err := vm.Call(context.Background(), "compute")
	if err != nil {
		return 0, err
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	return results[0], nil
}

// runWazero executes compute on wazero's interpreter.
func runWazero(t *testing.T, bin []byte) (uint64, error) {
	t.Helper()
	ctx := context.Background()
	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())
	defer r.Close(ctx)

	mod, err := r.Instantiate(ctx, bin)
	if err != nil {
		return 0, err
	}
	results, err := mod.ExportedFunction("compute").Call(ctx)
	if err != nil {
		return 0, err
	}
	if len(results) != 1 {
		t.Fatalf("wazero: got %d results, want 1", len(results))
	}
	return results[0], nil
}

func diff(t *testing.T, m *wasm.Module) {
	t.Helper()
	if err := m.Validate(); err != nil {
		t.Fatalf("test module invalid: %v", err)
	}
	bin := m.Encode()

	ours, ourErr := runOurs(t, bin)
	theirs, theirErr := runWazero(t, bin)

	if (ourErr == nil) != (theirErr == nil) {
		t.Fatalf("trap divergence: ours=%v wazero=%v", ourErr, theirErr)
	}
	if ourErr != nil {
		return
	}
	// Results are i32; compare the low halves (high slot bits are
	// unspecified).
	if uint32(ours) != uint32(theirs) {
		t.Errorf("result divergence: ours=%#x wazero=%#x", ours, theirs)
	}
}

func TestDiffArithmetic(t *testing.T) {
	diff(t, pureModule(nil,
		i32Const(40),
		i32Const(2),
		op(wasm.OpI32Add),
		i32Const(3),
		op(wasm.OpI32Mul),
		i32Const(6),
		op(wasm.OpI32Sub),
		i32Const(4),
		op(wasm.OpI32DivS),
	))
}

func TestDiffBitOps(t *testing.T) {
	diff(t, pureModule(nil,
		i32Const(0x00F0),
		op(wasm.OpI32Clz),
		i32Const(0x00F0),
		op(wasm.OpI32Ctz),
		op(wasm.OpI32Add),
		i32Const(0x00F0),
		op(wasm.OpI32Popcnt),
		op(wasm.OpI32Add),
		i32Const(1),
		i32Const(33),
		op(wasm.OpI32Shl),
		op(wasm.OpI32Add),
		i32Const(0x1234),
		i32Const(8),
		op(wasm.OpI32Rotr),
		op(wasm.OpI32Xor),
	))
}

func TestDiffLoopSum(t *testing.T) {
	loop := wasm.Instruction{Opcode: wasm.OpLoop, Imm: wasm.BlockImm{
		Type: wasm.BlockTypeVoid,
		Body: []wasm.Instruction{
			{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 1}},
			i32Const(1),
			op(wasm.OpI32Add),
			{Opcode: wasm.OpLocalTee, Imm: wasm.LocalImm{LocalIdx: 1}},
			{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
			op(wasm.OpI32Add),
			{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: 0}},
			{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 1}},
			i32Const(10),
			op(wasm.OpI32LtS),
			{Opcode: wasm.OpBrIf, Imm: wasm.BranchImm{LabelIdx: 0}},
		},
	}}
	diff(t, pureModule(
		[]wasm.LocalGroup{{Count: 2, Type: wasm.ValI32}},
		loop,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
	))
}

func TestDiffMemory(t *testing.T) {
	m := pureModule(nil,
		i32Const(16),
		i32Const(0x12345678),
		wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Align: 2}},
		i32Const(14),
		wasm.Instruction{Opcode: wasm.OpI32Load16U, Imm: wasm.MemoryImm{Align: 1, Offset: 2}},
	)
	m.Memories = []wasm.MemoryType{{Limits: wasm.Limits{Min: 1}}}
	diff(t, m)
}

func TestDiffMemoryGrow(t *testing.T) {
	one := uint32(1)
	m := pureModule(nil,
		i32Const(1),
		wasm.Instruction{Opcode: wasm.OpMemoryGrow, Imm: wasm.MemoryIdxImm{}},
		wasm.Instruction{Opcode: wasm.OpMemorySize, Imm: wasm.MemoryIdxImm{}},
		op(wasm.OpI32Add),
	)
	m.Memories = []wasm.MemoryType{{Limits: wasm.Limits{Min: 1, Max: &one}}}
	diff(t, m)
}

func TestDiffCallIndirect(t *testing.T) {
	m := &wasm.Module{
		Types: []wasm.FuncType{
			{Results: []wasm.ValType{wasm.ValI32}},
			{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValI32}},
		},
		Funcs:  []uint32{0, 1},
		Tables: []wasm.TableType{{Elem: wasm.ValFuncRef, Limits: wasm.Limits{Min: 4}}},
		Elements: []wasm.Element{{
			Offset: []wasm.Instruction{i32Const(3)},
			Init:   []uint32{1},
		}},
		Exports: []wasm.Export{{Name: "compute", Kind: wasm.KindFunc, Index: 0}},
		Code: []wasm.FuncBody{
			{Body: []wasm.Instruction{
				i32Const(7),
				i32Const(3),
				{Opcode: wasm.OpCallIndirect, Imm: wasm.CallIndirectImm{TypeIdx: 1}},
			}},
			{Body: []wasm.Instruction{
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
				op(wasm.OpI32Mul),
			}},
		},
	}
	diff(t, m)
}

func TestDiffDivideByZeroTrapsOnBoth(t *testing.T) {
	diff(t, pureModule(nil,
		i32Const(1),
		i32Const(0),
		op(wasm.OpI32DivS),
	))
}

func TestDiffTruncSat(t *testing.T) {
	diff(t, pureModule(nil,
		wasm.Instruction{Opcode: wasm.OpF64Const, Imm: wasm.F64Imm{Value: 1e300}},
		wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscI32TruncSatF64S}},
	))
}

func TestDiffSignExtension(t *testing.T) {
	diff(t, pureModule(nil,
		i32Const(0x1280),
		op(wasm.OpI32Extend8S),
	))
}

func TestDiffPrintOutput(t *testing.T) {
	ctx := context.Background()

	// start function prints 'W' through env.print_char.
	start := uint32(1)
	m := &wasm.Module{
		Types: []wasm.FuncType{
			{Params: []wasm.ValType{wasm.ValI32}},
			{},
		},
		Imports: []wasm.Import{
			{Module: "env", Name: "print_char", Desc: wasm.ImportDesc{Kind: wasm.KindFunc, Func: 0}},
		},
		Funcs: []uint32{1},
		Start: &start,
		Code: []wasm.FuncBody{{Body: []wasm.Instruction{
			i32Const('W'),
			wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: 0}},
		}}},
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("test module invalid: %v", err)
	}
	bin := m.Encode()

	// Ours.
	var ourOut bytes.Buffer
	parsed, err := wasm.ParseModuleValidate(bin)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	vm, err := engine.New(parsed, engine.WithHostRegistry(host.DefaultRegistry(host.WithWriter(&ourOut))))
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if err := vm.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	// wazero.
	var theirOut bytes.Buffer
	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())
	defer r.Close(ctx)
	_, err = r.NewHostModuleBuilder("env").
		NewFunctionBuilder().
		WithFunc(func(c int32) { theirOut.WriteByte(byte(c)) }).
		Export("print_char").
		Instantiate(ctx)
	if err != nil {
		t.Fatalf("wazero host module: %v", err)
	}
	if _, err := r.Instantiate(ctx, bin); err != nil {
		t.Fatalf("wazero instantiate: %v", err)
	}

	if ourOut.String() != theirOut.String() {
		t.Errorf("output divergence: ours=%q wazero=%q", ourOut.String(), theirOut.String())
	}
	if ourOut.String() != "W" {
		t.Errorf("output: %q, want \"W\"", ourOut.String())
	}
}
