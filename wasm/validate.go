package wasm

import (
	"fmt"
	"math"
)

// Validate checks the module for structural validity: every index referenced
// by a section falls within its declared space, limits are well-formed, and
// the single-table/single-memory profile holds. Bytecode well-typedness is
// not checked here.
func (m *Module) Validate() error {
	if err := m.validateImports(); err != nil {
		return err
	}
	if err := m.validateFunctions(); err != nil {
		return err
	}
	if err := m.validateTables(); err != nil {
		return err
	}
	if err := m.validateMemories(); err != nil {
		return err
	}
	if err := m.validateGlobals(); err != nil {
		return err
	}
	if err := m.validateExports(); err != nil {
		return err
	}
	if err := m.validateStart(); err != nil {
		return err
	}
	if err := m.validateElements(); err != nil {
		return err
	}
	if err := m.validateData(); err != nil {
		return err
	}
	if err := m.validateCode(); err != nil {
		return err
	}
	return nil
}

// ParseModuleValidate parses a WebAssembly binary and validates it.
func ParseModuleValidate(data []byte) (*Module, error) {
	m, err := ParseModule(data)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// numFuncs is the size of the unified function index space.
func (m *Module) numFuncs() uint32 {
	return m.NumImportedFuncs() + uint32(len(m.Funcs))
}

func (m *Module) numGlobals() uint32 {
	var imported uint32
	for _, imp := range m.Imports {
		if imp.Desc.Kind == KindGlobal {
			imported++
		}
	}
	return imported + uint32(len(m.Globals))
}

func (m *Module) validateImports() error {
	for i, imp := range m.Imports {
		if imp.Desc.Kind == KindFunc && imp.Desc.Func >= uint32(len(m.Types)) {
			return fmt.Errorf("import %d (%s.%s): type index %d out of range (%d types)",
				i, imp.Module, imp.Name, imp.Desc.Func, len(m.Types))
		}
	}
	return nil
}

func (m *Module) validateFunctions() error {
	if len(m.Funcs) != len(m.Code) {
		return fmt.Errorf("function section declares %d functions but code section has %d bodies",
			len(m.Funcs), len(m.Code))
	}
	for i, typeIdx := range m.Funcs {
		if typeIdx >= uint32(len(m.Types)) {
			return fmt.Errorf("function %d: type index %d out of range (%d types)",
				i, typeIdx, len(m.Types))
		}
	}
	for i, body := range m.Code {
		if body.LocalCount() > math.MaxUint32 {
			return fmt.Errorf("code %d: local count overflows uint32", i)
		}
	}
	return nil
}

func (m *Module) validateTables() error {
	if len(m.Tables) > 1 {
		return fmt.Errorf("at most one table is supported, got %d", len(m.Tables))
	}
	for i, t := range m.Tables {
		if t.Limits.Max != nil && *t.Limits.Max < t.Limits.Min {
			return fmt.Errorf("table %d: max %d below min %d", i, *t.Limits.Max, t.Limits.Min)
		}
	}
	return nil
}

func (m *Module) validateMemories() error {
	if len(m.Memories) > 1 {
		return fmt.Errorf("at most one memory is supported, got %d", len(m.Memories))
	}
	for i, mem := range m.Memories {
		if mem.Limits.Min > MaxPages {
			return fmt.Errorf("memory %d: min %d pages exceeds %d", i, mem.Limits.Min, MaxPages)
		}
		if mem.Limits.Max != nil {
			if *mem.Limits.Max > MaxPages {
				return fmt.Errorf("memory %d: max %d pages exceeds %d", i, *mem.Limits.Max, MaxPages)
			}
			if *mem.Limits.Max < mem.Limits.Min {
				return fmt.Errorf("memory %d: max %d below min %d", i, *mem.Limits.Max, mem.Limits.Min)
			}
		}
	}
	return nil
}

func (m *Module) validateGlobals() error {
	n := m.numGlobals()
	for i, g := range m.Globals {
		for _, instr := range g.Init {
			if imm, ok := instr.Imm.(GlobalImm); ok && imm.GlobalIdx >= n {
				return fmt.Errorf("global %d init: global index %d out of range (%d globals)",
					i, imm.GlobalIdx, n)
			}
		}
	}
	return nil
}

func (m *Module) validateExports() error {
	seen := make(map[string]bool, len(m.Exports))
	for i, exp := range m.Exports {
		if seen[exp.Name] {
			return fmt.Errorf("export %d: duplicate name %q", i, exp.Name)
		}
		seen[exp.Name] = true

		var space uint32
		var what string
		switch exp.Kind {
		case KindFunc:
			space, what = m.numFuncs(), "function"
		case KindTable:
			space, what = uint32(len(m.Tables)), "table"
		case KindMemory:
			space, what = uint32(len(m.Memories)), "memory"
		case KindGlobal:
			space, what = m.numGlobals(), "global"
		default:
			return fmt.Errorf("export %d (%q): invalid descriptor tag 0x%02x", i, exp.Name, exp.Kind)
		}
		if exp.Index >= space {
			return fmt.Errorf("export %d (%q): %s index %d out of range (%d)",
				i, exp.Name, what, exp.Index, space)
		}
	}
	return nil
}

func (m *Module) validateStart() error {
	if m.Start == nil {
		return nil
	}
	idx := *m.Start
	if idx >= m.numFuncs() {
		return fmt.Errorf("start: function index %d out of range (%d functions)", idx, m.numFuncs())
	}
	ft := m.FuncTypeAt(idx)
	if len(ft.Params) != 0 || len(ft.Results) != 0 {
		return fmt.Errorf("start: function %d has signature %s, want ()->()", idx, ft)
	}
	return nil
}

// FuncTypeAt resolves the type of a function in the unified index space
// (imports first, then code-section functions). The index must be in range.
func (m *Module) FuncTypeAt(idx uint32) FuncType {
	var n uint32
	for _, imp := range m.Imports {
		if imp.Desc.Kind != KindFunc {
			continue
		}
		if n == idx {
			return m.Types[imp.Desc.Func]
		}
		n++
	}
	return m.Types[m.Funcs[idx-n]]
}

func (m *Module) validateElements() error {
	for i, elem := range m.Elements {
		if elem.TableIdx >= uint32(len(m.Tables)) {
			return fmt.Errorf("element %d: table index %d out of range (%d tables)",
				i, elem.TableIdx, len(m.Tables))
		}
		for j, funcIdx := range elem.Init {
			if funcIdx >= m.numFuncs() {
				return fmt.Errorf("element %d entry %d: function index %d out of range (%d functions)",
					i, j, funcIdx, m.numFuncs())
			}
		}
	}
	return nil
}

// validateCode walks every function body and checks that each index an
// instruction carries falls within its declared space: branch depths,
// function/type/local/global indices and block types. The engine relies on
// this so dispatch needs no per-instruction range checks.
func (m *Module) validateCode() error {
	for i, body := range m.Code {
		typeIdx := m.Funcs[i]
		locals := len(m.Types[typeIdx].Params) + int(body.LocalCount())
		if err := m.walkExpr(body.Body, 0, locals); err != nil {
			return fmt.Errorf("code %d: %w", i, err)
		}
	}
	return nil
}

func (m *Module) validateBlockType(bt int32) error {
	switch bt {
	case BlockTypeVoid, BlockTypeI32, BlockTypeI64, BlockTypeF32, BlockTypeF64:
		return nil
	}
	if bt < 0 || bt >= int32(len(m.Types)) {
		return fmt.Errorf("block type %d out of range (%d types)", bt, len(m.Types))
	}
	return nil
}

// walkExpr recurses through an instruction tree. depth counts the enclosing
// block/loop/if labels, not the function body's own label, so a branch
// index is valid when it does not exceed depth.
func (m *Module) walkExpr(expr []Instruction, depth int, locals int) error {
	for i := range expr {
		switch imm := expr[i].Imm.(type) {
		case BlockImm:
			if err := m.validateBlockType(imm.Type); err != nil {
				return err
			}
			if err := m.walkExpr(imm.Body, depth+1, locals); err != nil {
				return err
			}
		case IfImm:
			if err := m.validateBlockType(imm.Type); err != nil {
				return err
			}
			if err := m.walkExpr(imm.Then, depth+1, locals); err != nil {
				return err
			}
			if err := m.walkExpr(imm.Else, depth+1, locals); err != nil {
				return err
			}
		case BranchImm:
			if imm.LabelIdx > uint32(depth) {
				return fmt.Errorf("%s depth %d exceeds nesting %d",
					OpcodeName(expr[i].Opcode), imm.LabelIdx, depth)
			}
		case BrTableImm:
			for _, l := range imm.Labels {
				if l > uint32(depth) {
					return fmt.Errorf("br_table depth %d exceeds nesting %d", l, depth)
				}
			}
			if imm.Default > uint32(depth) {
				return fmt.Errorf("br_table default depth %d exceeds nesting %d", imm.Default, depth)
			}
		case CallImm:
			if imm.FuncIdx >= m.numFuncs() {
				return fmt.Errorf("call: function index %d out of range (%d functions)",
					imm.FuncIdx, m.numFuncs())
			}
		case CallIndirectImm:
			if imm.TypeIdx >= uint32(len(m.Types)) {
				return fmt.Errorf("call_indirect: type index %d out of range (%d types)",
					imm.TypeIdx, len(m.Types))
			}
		case LocalImm:
			if imm.LocalIdx >= uint32(locals) {
				return fmt.Errorf("%s: local index %d out of range (%d locals)",
					OpcodeName(expr[i].Opcode), imm.LocalIdx, locals)
			}
		case GlobalImm:
			if imm.GlobalIdx >= m.numGlobals() {
				return fmt.Errorf("%s: global index %d out of range (%d globals)",
					OpcodeName(expr[i].Opcode), imm.GlobalIdx, m.numGlobals())
			}
		}
	}
	return nil
}

func (m *Module) validateData() error {
	for i, seg := range m.Data {
		if seg.MemIdx >= uint32(len(m.Memories)) {
			return fmt.Errorf("data %d: memory index %d out of range (%d memories)",
				i, seg.MemIdx, len(m.Memories))
		}
	}
	return nil
}
