package wasm_test

import (
	"errors"
	"testing"

	"github.com/wippyai/wasm-interp/wasm"
)

func header() []byte {
	return []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}
}

func TestParseModuleHeader(t *testing.T) {
	tests := []struct {
		want error
		name string
		data []byte
	}{
		{name: "empty module", data: header()},
		{name: "bad magic", data: []byte{0x00, 0x61, 0x73, 0x6E, 0x01, 0x00, 0x00, 0x00}, want: wasm.ErrInvalidMagic},
		{name: "bad version", data: []byte{0x00, 0x61, 0x73, 0x6D, 0x02, 0x00, 0x00, 0x00}, want: wasm.ErrInvalidVersion},
		{name: "truncated header", data: []byte{0x00, 0x61}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := wasm.ParseModule(tt.data)
			switch {
			case tt.name == "empty module":
				if err != nil {
					t.Errorf("got %v, want nil", err)
				}
			case tt.want != nil:
				if !errors.Is(err, tt.want) {
					t.Errorf("got %v, want %v", err, tt.want)
				}
			default:
				if err == nil {
					t.Error("expected error")
				}
			}
		})
	}
}

func TestParseModuleSectionOrder(t *testing.T) {
	// Function section (3) before type section (1).
	data := append(header(),
		0x03, 0x01, 0x00, // function section, empty vec
		0x01, 0x01, 0x00, // type section, empty vec
	)
	if _, err := wasm.ParseModule(data); err == nil {
		t.Error("expected out-of-order section error")
	}

	// Duplicate section tag.
	data = append(header(),
		0x01, 0x01, 0x00,
		0x01, 0x01, 0x00,
	)
	if _, err := wasm.ParseModule(data); err == nil {
		t.Error("expected duplicate section error")
	}
}

func TestParseModuleUnknownSection(t *testing.T) {
	data := append(header(), 0x0D, 0x00)
	if _, err := wasm.ParseModule(data); err == nil {
		t.Error("expected unknown section error")
	}
}

func TestParseModuleSectionSizeMismatch(t *testing.T) {
	// Type section claims 3 bytes but the empty vec consumes only 1.
	data := append(header(), 0x01, 0x03, 0x00, 0x00, 0x00)
	if _, err := wasm.ParseModule(data); err == nil {
		t.Error("expected section size mismatch error")
	}
}

func TestParseModuleCustomSectionAnywhere(t *testing.T) {
	data := append(header(),
		0x01, 0x01, 0x00, // type section
		0x00, 0x05, 0x04, 'n', 'a', 'm', 'e', // custom section "name"
	)
	m, err := wasm.ParseModule(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(m.CustomSections) != 1 || m.CustomSections[0].Name != "name" {
		t.Errorf("custom sections: %+v", m.CustomSections)
	}
}

func TestParseModuleRoundTrip(t *testing.T) {
	maxMem := uint32(2)
	start := uint32(1)
	src := &wasm.Module{
		Types: []wasm.FuncType{
			{Params: []wasm.ValType{wasm.ValI32}},
			{},
			{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValI32}},
		},
		Imports: []wasm.Import{
			{Module: "env", Name: "print_char", Desc: wasm.ImportDesc{Kind: wasm.KindFunc, Func: 0}},
		},
		Funcs: []uint32{1, 2},
		Tables: []wasm.TableType{
			{Elem: wasm.ValFuncRef, Limits: wasm.Limits{Min: 4}},
		},
		Memories: []wasm.MemoryType{
			{Limits: wasm.Limits{Min: 1, Max: &maxMem}},
		},
		Globals: []wasm.Global{
			{
				Type: wasm.GlobalType{Type: wasm.ValI32, Mutable: true},
				Init: []wasm.Instruction{{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 7}}},
			},
		},
		Exports: []wasm.Export{
			{Name: "main", Kind: wasm.KindFunc, Index: 1},
		},
		Start: &start,
		Elements: []wasm.Element{
			{
				Offset: []wasm.Instruction{{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 3}}},
				Init:   []uint32{2},
			},
		},
		Code: []wasm.FuncBody{
			{Body: []wasm.Instruction{{Opcode: wasm.OpNop}}},
			{
				Locals: []wasm.LocalGroup{{Count: 2, Type: wasm.ValI64}},
				Body: []wasm.Instruction{
					{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
				},
			},
		},
		Data: []wasm.DataSegment{
			{
				Offset: []wasm.Instruction{{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 8}}},
				Init:   []byte{1, 2, 3},
			},
		},
	}

	m, err := wasm.ParseModuleValidate(src.Encode())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(m.Types) != 3 || !m.Types[2].Equal(src.Types[2]) {
		t.Errorf("types: %+v", m.Types)
	}
	if len(m.Imports) != 1 || m.Imports[0].Module != "env" || m.Imports[0].Name != "print_char" {
		t.Errorf("imports: %+v", m.Imports)
	}
	if m.NumImportedFuncs() != 1 {
		t.Errorf("imported funcs: %d", m.NumImportedFuncs())
	}
	if len(m.Funcs) != 2 || m.Funcs[0] != 1 || m.Funcs[1] != 2 {
		t.Errorf("funcs: %+v", m.Funcs)
	}
	if len(m.Memories) != 1 || m.Memories[0].Limits.Min != 1 || *m.Memories[0].Limits.Max != 2 {
		t.Errorf("memories: %+v", m.Memories)
	}
	if m.Start == nil || *m.Start != 1 {
		t.Errorf("start: %v", m.Start)
	}
	if idx, ok := m.ExportedFunc("main"); !ok || idx != 1 {
		t.Errorf("exported main: %d %v", idx, ok)
	}
	if len(m.Code) != 2 || len(m.Code[1].Locals) != 1 || m.Code[1].LocalCount() != 2 {
		t.Errorf("code: %+v", m.Code)
	}
	if len(m.Data) != 1 || string(m.Data[0].Init) != "\x01\x02\x03" {
		t.Errorf("data: %+v", m.Data)
	}
	if len(m.Elements) != 1 || m.Elements[0].Init[0] != 2 {
		t.Errorf("elements: %+v", m.Elements)
	}
}

func TestBlockFuncType(t *testing.T) {
	m := &wasm.Module{Types: []wasm.FuncType{
		{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValI64}},
	}}

	if ft := m.BlockFuncType(wasm.BlockTypeVoid); len(ft.Params) != 0 || len(ft.Results) != 0 {
		t.Errorf("void: %s", ft)
	}
	if ft := m.BlockFuncType(wasm.BlockTypeF64); len(ft.Results) != 1 || ft.Results[0] != wasm.ValF64 {
		t.Errorf("f64 short form: %s", ft)
	}
	if ft := m.BlockFuncType(0); len(ft.Params) != 1 || ft.Results[0] != wasm.ValI64 {
		t.Errorf("type index: %s", ft)
	}
}
