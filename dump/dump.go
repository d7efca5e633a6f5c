// Package dump renders a decoded module as a textual section listing, one
// section per block with entries indexed in the unified index spaces
// (imports first).
package dump

import (
	"fmt"
	"io"
	"strings"

	"github.com/wippyai/wasm-interp/wasm"
)

// Dumper walks a module and writes the listing.
type Dumper struct {
	w      io.Writer
	module *wasm.Module

	importedFuncs   int
	importedTables  int
	importedMems    int
	importedGlobals int
}

// Dump writes the section listing for m to w.
func Dump(w io.Writer, m *wasm.Module) {
	d := &Dumper{w: w, module: m}

	fmt.Fprintf(w, "Version: %d\n", wasm.Version)
	d.dumpTypes()
	d.dumpImports()
	d.dumpFunctions()
	d.dumpTables()
	d.dumpMemories()
	d.dumpGlobals()
	d.dumpExports()
	d.dumpStart()
	d.dumpElements()
	d.dumpCode()
	d.dumpData()
	d.dumpCustom()
}

func (d *Dumper) dumpTypes() {
	fmt.Fprintf(d.w, "Type[%d]:\n", len(d.module.Types))
	for i, ft := range d.module.Types {
		fmt.Fprintf(d.w, "  type[%d]: %s\n", i, ft)
	}
}

func (d *Dumper) dumpImports() {
	fmt.Fprintf(d.w, "Import[%d]:\n", len(d.module.Imports))
	for _, imp := range d.module.Imports {
		switch imp.Desc.Kind {
		case wasm.KindFunc:
			fmt.Fprintf(d.w, "  func[%d]: %s.%s, sig=%d\n",
				d.importedFuncs, imp.Module, imp.Name, imp.Desc.Func)
			d.importedFuncs++
		case wasm.KindTable:
			fmt.Fprintf(d.w, "  table[%d]: %s.%s, %s\n",
				d.importedTables, imp.Module, imp.Name, imp.Desc.Table.Limits)
			d.importedTables++
		case wasm.KindMemory:
			fmt.Fprintf(d.w, "  memory[%d]: %s.%s, %s\n",
				d.importedMems, imp.Module, imp.Name, imp.Desc.Memory.Limits)
			d.importedMems++
		case wasm.KindGlobal:
			fmt.Fprintf(d.w, "  global[%d]: %s.%s, %s\n",
				d.importedGlobals, imp.Module, imp.Name, imp.Desc.Global)
			d.importedGlobals++
		}
	}
}

func (d *Dumper) dumpFunctions() {
	fmt.Fprintf(d.w, "Function[%d]:\n", len(d.module.Funcs))
	for i, sig := range d.module.Funcs {
		fmt.Fprintf(d.w, "  func[%d]: sig = %d\n", d.importedFuncs+i, sig)
	}
}

func (d *Dumper) dumpTables() {
	fmt.Fprintf(d.w, "Table[%d]:\n", len(d.module.Tables))
	for i, t := range d.module.Tables {
		fmt.Fprintf(d.w, "  table[%d]: %s\n", d.importedTables+i, t.Limits)
	}
}

func (d *Dumper) dumpMemories() {
	fmt.Fprintf(d.w, "Memory[%d]:\n", len(d.module.Memories))
	for i, mem := range d.module.Memories {
		fmt.Fprintf(d.w, "  memory[%d]: %s\n", d.importedMems+i, mem.Limits)
	}
}

func (d *Dumper) dumpGlobals() {
	fmt.Fprintf(d.w, "Global[%d]:\n", len(d.module.Globals))
	for i, g := range d.module.Globals {
		fmt.Fprintf(d.w, "  global[%d]: %s\n", d.importedGlobals+i, g.Type)
	}
}

func (d *Dumper) dumpExports() {
	fmt.Fprintf(d.w, "Export[%d]:\n", len(d.module.Exports))
	for _, exp := range d.module.Exports {
		var kind string
		switch exp.Kind {
		case wasm.KindFunc:
			kind = "func"
		case wasm.KindTable:
			kind = "table"
		case wasm.KindMemory:
			kind = "memory"
		case wasm.KindGlobal:
			kind = "global"
		}
		fmt.Fprintf(d.w, "  %s[%d]: name = %s\n", kind, exp.Index, exp.Name)
	}
}

func (d *Dumper) dumpStart() {
	fmt.Fprintln(d.w, "Start: ")
	if d.module.Start != nil {
		fmt.Fprintf(d.w, "  func = %d\n", *d.module.Start)
	} else {
		fmt.Fprintln(d.w, "  none")
	}
}

func (d *Dumper) dumpElements() {
	fmt.Fprintf(d.w, "Element[%d]:\n", len(d.module.Elements))
	for i, elem := range d.module.Elements {
		fmt.Fprintf(d.w, "  elem[%d]: table = %d\n", i, elem.TableIdx)
	}
}

func (d *Dumper) dumpCode() {
	fmt.Fprintf(d.w, "Code[%d]:\n", len(d.module.Code))
	for i, code := range d.module.Code {
		fmt.Fprintf(d.w, "  func[%d]: locals = [", d.importedFuncs+i)
		for j, local := range code.Locals {
			if j > 0 {
				fmt.Fprint(d.w, ", ")
			}
			fmt.Fprintf(d.w, "%s x %d", local.Type, local.Count)
		}
		fmt.Fprintln(d.w, "]")
		d.dumpExpr("    ", code.Body)
	}
}

func (d *Dumper) dumpData() {
	fmt.Fprintf(d.w, "Data[%d]:\n", len(d.module.Data))
	for i, seg := range d.module.Data {
		fmt.Fprintf(d.w, "  data[%d]: mem = %d\n", i, seg.MemIdx)
	}
}

func (d *Dumper) dumpCustom() {
	fmt.Fprintf(d.w, "Custom[%d]:\n", len(d.module.CustomSections))
	for i, cs := range d.module.CustomSections {
		fmt.Fprintf(d.w, "  custom[%d]: name = %s\n", i, cs.Name)
	}
}

func (d *Dumper) dumpExpr(indent string, expr []wasm.Instruction) {
	for i := range expr {
		instr := &expr[i]
		switch imm := instr.Imm.(type) {
		case wasm.BlockImm:
			fmt.Fprintf(d.w, "%s%s %s\n", indent, instr.Name(), d.module.BlockFuncType(imm.Type))
			d.dumpExpr(indent+"  ", imm.Body)
			fmt.Fprintf(d.w, "%send\n", indent)
		case wasm.IfImm:
			fmt.Fprintf(d.w, "%sif %s\n", indent, d.module.BlockFuncType(imm.Type))
			d.dumpExpr(indent+"  ", imm.Then)
			if len(imm.Else) > 0 {
				fmt.Fprintf(d.w, "%selse\n", indent)
				d.dumpExpr(indent+"  ", imm.Else)
			}
			fmt.Fprintf(d.w, "%send\n", indent)
		case wasm.BranchImm:
			fmt.Fprintf(d.w, "%s%s %d\n", indent, instr.Name(), imm.LabelIdx)
		case wasm.BrTableImm:
			labels := make([]string, len(imm.Labels))
			for j, l := range imm.Labels {
				labels[j] = fmt.Sprint(l)
			}
			fmt.Fprintf(d.w, "%sbr_table [%s] %d\n", indent, strings.Join(labels, " "), imm.Default)
		case wasm.CallImm:
			fmt.Fprintf(d.w, "%scall %d\n", indent, imm.FuncIdx)
		case wasm.CallIndirectImm:
			fmt.Fprintf(d.w, "%scall_indirect %d\n", indent, imm.TypeIdx)
		case wasm.LocalImm:
			fmt.Fprintf(d.w, "%s%s %d\n", indent, instr.Name(), imm.LocalIdx)
		case wasm.GlobalImm:
			fmt.Fprintf(d.w, "%s%s %d\n", indent, instr.Name(), imm.GlobalIdx)
		case wasm.MemoryImm:
			fmt.Fprintf(d.w, "%s%s align=%d offset=%d\n", indent, instr.Name(), imm.Align, imm.Offset)
		case wasm.MemoryIdxImm:
			fmt.Fprintf(d.w, "%s%s\n", indent, instr.Name())
		case wasm.I32Imm:
			fmt.Fprintf(d.w, "%si32.const %d\n", indent, imm.Value)
		case wasm.I64Imm:
			fmt.Fprintf(d.w, "%si64.const %d\n", indent, imm.Value)
		case wasm.F32Imm:
			fmt.Fprintf(d.w, "%sf32.const %g\n", indent, imm.Value)
		case wasm.F64Imm:
			fmt.Fprintf(d.w, "%sf64.const %g\n", indent, imm.Value)
		default:
			fmt.Fprintf(d.w, "%s%s\n", indent, instr.Name())
		}
	}
}
