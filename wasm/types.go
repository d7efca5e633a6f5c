package wasm

import (
	"fmt"
	"strings"
)

// ValType is a WebAssembly value type.
type ValType byte

func (v ValType) String() string {
	switch v {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	case ValFuncRef:
		return "funcref"
	}
	return fmt.Sprintf("valtype(0x%02x)", byte(v))
}

// FuncType represents a WebAssembly function signature with parameter and
// result types. Equality is structural.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// Equal reports structural equality of two function types.
func (t FuncType) Equal(other FuncType) bool {
	if len(t.Params) != len(other.Params) || len(t.Results) != len(other.Results) {
		return false
	}
	for i, p := range t.Params {
		if other.Params[i] != p {
			return false
		}
	}
	for i, r := range t.Results {
		if other.Results[i] != r {
			return false
		}
	}
	return true
}

func (t FuncType) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range t.Params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.String())
	}
	b.WriteString(")->(")
	for i, r := range t.Results {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(r.String())
	}
	b.WriteByte(')')
	return b.String()
}

// Limits bound the size of a table or memory. Max is nil when unbounded.
type Limits struct {
	Max *uint32
	Min uint32
}

func (l Limits) String() string {
	if l.Max != nil {
		return fmt.Sprintf("{min: %d, max: %d}", l.Min, *l.Max)
	}
	return fmt.Sprintf("{min: %d}", l.Min)
}

// TableType describes a table: element type plus limits.
type TableType struct {
	Limits Limits
	Elem   ValType
}

// MemoryType describes a linear memory in page units.
type MemoryType struct {
	Limits Limits
}

// GlobalType pairs a value type with mutability.
type GlobalType struct {
	Type    ValType
	Mutable bool
}

func (g GlobalType) String() string {
	if g.Mutable {
		return "var " + g.Type.String()
	}
	return "const " + g.Type.String()
}

// Global is a global declaration with its constant init expression.
type Global struct {
	Init []Instruction
	Type GlobalType
}

// ImportDesc is the tagged descriptor of an import.
type ImportDesc struct {
	Kind   byte
	Func   uint32 // type index, Kind == KindFunc
	Table  TableType
	Memory MemoryType
	Global GlobalType
}

// Import names an item provided by the host.
type Import struct {
	Module string
	Name   string
	Desc   ImportDesc
}

// Export names an item of this module visible to the host.
type Export struct {
	Name  string
	Kind  byte
	Index uint32
}

// Element is an element segment: function indices installed into the table
// at an offset computed from a constant expression.
type Element struct {
	Offset   []Instruction
	Init     []uint32
	TableIdx uint32
}

// LocalGroup is a run-length encoded group of locals of one type.
type LocalGroup struct {
	Count uint32
	Type  ValType
}

// FuncBody is a code-section entry: local declarations plus the body
// expression.
type FuncBody struct {
	Locals []LocalGroup
	Body   []Instruction
}

// LocalCount returns the total number of locals declared by the body.
// The sum is computed in 64 bits; validation rejects totals past uint32.
func (b FuncBody) LocalCount() uint64 {
	var n uint64
	for _, g := range b.Locals {
		n += uint64(g.Count)
	}
	return n
}

// DataSegment writes bytes into memory at an offset computed from a
// constant expression.
type DataSegment struct {
	Offset []Instruction
	Init   []byte
	MemIdx uint32
}

// CustomSection carries an uninterpreted named payload.
type CustomSection struct {
	Name string
	Data []byte
}

// Module is a decoded WebAssembly module. The engine borrows it read-only.
type Module struct {
	Types          []FuncType
	Imports        []Import
	Funcs          []uint32 // type indices for code-section functions
	Tables         []TableType
	Memories       []MemoryType
	Globals        []Global
	Exports        []Export
	Start          *uint32
	Elements       []Element
	Code           []FuncBody
	Data           []DataSegment
	CustomSections []CustomSection
}

// NumImportedFuncs returns how many functions the module imports. Imported
// functions occupy the front of the function index space.
func (m *Module) NumImportedFuncs() uint32 {
	var n uint32
	for _, imp := range m.Imports {
		if imp.Desc.Kind == KindFunc {
			n++
		}
	}
	return n
}

// ExportedFunc resolves an exported function by name to its index in the
// unified function index space.
func (m *Module) ExportedFunc(name string) (uint32, bool) {
	for _, exp := range m.Exports {
		if exp.Kind == KindFunc && exp.Name == name {
			return exp.Index, true
		}
	}
	return 0, false
}

// BlockFuncType promotes a block-type immediate to a FuncType: negative
// short forms denote zero or one result, non-negative values index the type
// section.
func (m *Module) BlockFuncType(bt int32) FuncType {
	switch bt {
	case BlockTypeVoid:
		return FuncType{}
	case BlockTypeI32:
		return FuncType{Results: []ValType{ValI32}}
	case BlockTypeI64:
		return FuncType{Results: []ValType{ValI64}}
	case BlockTypeF32:
		return FuncType{Results: []ValType{ValF32}}
	case BlockTypeF64:
		return FuncType{Results: []ValType{ValF64}}
	}
	return m.Types[bt]
}
