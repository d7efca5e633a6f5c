package dump_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/wippyai/wasm-interp/dump"
	"github.com/wippyai/wasm-interp/wasm"
)

func TestDumpListing(t *testing.T) {
	maxMem := uint32(2)
	start := uint32(1)
	m := &wasm.Module{
		Types: []wasm.FuncType{
			{Params: []wasm.ValType{wasm.ValI32, wasm.ValI32}},
			{},
		},
		Imports: []wasm.Import{
			{Module: "env", Name: "assert_eq_i32", Desc: wasm.ImportDesc{Kind: wasm.KindFunc, Func: 0}},
		},
		Funcs:    []uint32{1},
		Tables:   []wasm.TableType{{Elem: wasm.ValFuncRef, Limits: wasm.Limits{Min: 4}}},
		Memories: []wasm.MemoryType{{Limits: wasm.Limits{Min: 1, Max: &maxMem}}},
		Globals: []wasm.Global{{
			Type: wasm.GlobalType{Type: wasm.ValI64, Mutable: true},
			Init: []wasm.Instruction{{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: 0}}},
		}},
		Exports: []wasm.Export{{Name: "main", Kind: wasm.KindFunc, Index: 1}},
		Start:   &start,
		Elements: []wasm.Element{{
			Offset: []wasm.Instruction{{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}}},
			Init:   []uint32{1},
		}},
		Code: []wasm.FuncBody{{
			Locals: []wasm.LocalGroup{{Count: 2, Type: wasm.ValI32}},
			Body: []wasm.Instruction{
				{Opcode: wasm.OpBlock, Imm: wasm.BlockImm{
					Type: wasm.BlockTypeVoid,
					Body: []wasm.Instruction{
						{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 40}},
						{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: 0}},
						{Opcode: wasm.OpBr, Imm: wasm.BranchImm{LabelIdx: 0}},
					},
				}},
				{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Align: 2, Offset: 16}},
			},
		}},
		Data: []wasm.DataSegment{{
			Offset: []wasm.Instruction{{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 8}}},
			Init:   []byte{1},
		}},
		CustomSections: []wasm.CustomSection{{Name: "name", Data: []byte{0}}},
	}

	var out bytes.Buffer
	dump.Dump(&out, m)
	got := out.String()

	want := []string{
		"Version: 1",
		"Type[2]:",
		"  type[0]: (i32,i32)->()",
		"Import[1]:",
		"  func[0]: env.assert_eq_i32, sig=0",
		"Function[1]:",
		"  func[1]: sig = 1",
		"Table[1]:",
		"  table[0]: {min: 4}",
		"Memory[1]:",
		"  memory[0]: {min: 1, max: 2}",
		"Global[1]:",
		"  global[0]: var i64",
		"Export[1]:",
		"  func[1]: name = main",
		"Start: ",
		"  func = 1",
		"Element[1]:",
		"  elem[0]: table = 0",
		"Code[1]:",
		"  func[1]: locals = [i32 x 2]",
		"    block ()->()",
		"      i32.const 40",
		"      local.set 0",
		"      br 0",
		"    end",
		"    i32.store align=2 offset=16",
		"Data[1]:",
		"  data[0]: mem = 0",
		"Custom[1]:",
		"  custom[0]: name = name",
	}

	for _, line := range want {
		if !strings.Contains(got, line+"\n") {
			t.Errorf("listing missing line %q\n--- got ---\n%s", line, got)
		}
	}
}

func TestDumpEmptyModule(t *testing.T) {
	var out bytes.Buffer
	dump.Dump(&out, &wasm.Module{})
	got := out.String()

	for _, line := range []string{"Type[0]:", "Start: ", "  none", "Custom[0]:"} {
		if !strings.Contains(got, line+"\n") {
			t.Errorf("listing missing %q\n%s", line, got)
		}
	}
}
