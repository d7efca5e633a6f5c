package wasm

import (
	"bytes"
	"fmt"
	"io"
)

// Opcode constants are defined in constants.go

// Instruction represents a decoded WebAssembly instruction. Immediates are
// typed per opcode family; block-shaped instructions own their decoded
// sub-bodies, so end and else bytes never appear in decoded output.
type Instruction struct {
	Imm    interface{}
	Opcode byte
}

// BlockImm holds the block type and body for block and loop instructions.
type BlockImm struct {
	Body []Instruction
	Type int32 // -64=void, -1=i32, -2=i64, -3=f32, -4=f64, >=0=type index
}

// IfImm holds the block type and both arms of an if instruction. Else is
// empty when the instruction has no else branch.
type IfImm struct {
	Then []Instruction
	Else []Instruction
	Type int32
}

// BranchImm holds the label index for br and br_if instructions.
type BranchImm struct {
	LabelIdx uint32
}

// BrTableImm holds the label table for br_table instruction.
type BrTableImm struct {
	Labels  []uint32
	Default uint32
}

// CallImm holds the function index for call instruction.
type CallImm struct {
	FuncIdx uint32
}

// CallIndirectImm holds type and table indices for call_indirect instruction.
type CallIndirectImm struct {
	TypeIdx  uint32
	TableIdx uint32
}

// LocalImm holds the local index for local.get, local.set, local.tee.
type LocalImm struct {
	LocalIdx uint32
}

// GlobalImm holds the global index for global.get and global.set.
type GlobalImm struct {
	GlobalIdx uint32
}

// MemoryImm holds memory access parameters for load and store instructions.
type MemoryImm struct {
	Align  uint32
	Offset uint32
}

// MemoryIdxImm holds the reserved memory index for memory.size, memory.grow.
type MemoryIdxImm struct {
	MemIdx uint32
}

// I32Imm holds the constant value for i32.const instruction.
type I32Imm struct {
	Value int32
}

// I64Imm holds the constant value for i64.const instruction.
type I64Imm struct {
	Value int64
}

// F32Imm holds the constant value for f32.const instruction.
type F32Imm struct {
	Value float32
}

// F64Imm holds the constant value for f64.const instruction.
type F64Imm struct {
	Value float64
}

// MiscImm holds the sub-opcode for 0xFC prefix instructions.
type MiscImm struct {
	SubOpcode uint32
}

// DecodeExpr decodes an expression (a function body, an if/block/loop body,
// or a constant initialiser) up to and including its terminating end byte.
func DecodeExpr(r io.ByteReader) ([]Instruction, error) {
	instrs, term, err := decodeInstructions(r)
	if err != nil {
		return nil, err
	}
	if term != OpEnd {
		return nil, fmt.Errorf("expression terminated by 0x%02x, want end", term)
	}
	return instrs, nil
}

// decodeInstructions reads instructions until an end or else byte, which is
// consumed and returned as the terminator.
func decodeInstructions(r io.ByteReader) ([]Instruction, byte, error) {
	var instrs []Instruction

	for {
		op, err := r.ReadByte()
		if err != nil {
			return nil, 0, fmt.Errorf("unterminated expression: %w", err)
		}

		if op == OpEnd || op == OpElse {
			return instrs, op, nil
		}

		instr := Instruction{Opcode: op}

		switch op {
		case OpBlock, OpLoop:
			bt, err := ReadLEB128s(r)
			if err != nil {
				return nil, 0, err
			}
			body, term, err := decodeInstructions(r)
			if err != nil {
				return nil, 0, err
			}
			if term != OpEnd {
				return nil, 0, fmt.Errorf("%s terminated by else", OpcodeName(op))
			}
			instr.Imm = BlockImm{Type: bt, Body: body}

		case OpIf:
			bt, err := ReadLEB128s(r)
			if err != nil {
				return nil, 0, err
			}
			imm := IfImm{Type: bt}
			thenBody, term, err := decodeInstructions(r)
			if err != nil {
				return nil, 0, err
			}
			imm.Then = thenBody
			if term == OpElse {
				elseBody, term2, err := decodeInstructions(r)
				if err != nil {
					return nil, 0, err
				}
				if term2 != OpEnd {
					return nil, 0, fmt.Errorf("else branch terminated by else")
				}
				imm.Else = elseBody
			}
			instr.Imm = imm

		case OpBr, OpBrIf:
			idx, err := ReadLEB128u(r)
			if err != nil {
				return nil, 0, err
			}
			instr.Imm = BranchImm{LabelIdx: idx}

		case OpBrTable:
			count, err := ReadLEB128u(r)
			if err != nil {
				return nil, 0, err
			}
			labels := make([]uint32, count)
			for i := uint32(0); i < count; i++ {
				labels[i], err = ReadLEB128u(r)
				if err != nil {
					return nil, 0, err
				}
			}
			def, err := ReadLEB128u(r)
			if err != nil {
				return nil, 0, err
			}
			instr.Imm = BrTableImm{Labels: labels, Default: def}

		case OpCall:
			idx, err := ReadLEB128u(r)
			if err != nil {
				return nil, 0, err
			}
			instr.Imm = CallImm{FuncIdx: idx}

		case OpCallIndirect:
			typeIdx, err := ReadLEB128u(r)
			if err != nil {
				return nil, 0, err
			}
			tableIdx, err := ReadLEB128u(r)
			if err != nil {
				return nil, 0, err
			}
			instr.Imm = CallIndirectImm{TypeIdx: typeIdx, TableIdx: tableIdx}

		case OpLocalGet, OpLocalSet, OpLocalTee:
			idx, err := ReadLEB128u(r)
			if err != nil {
				return nil, 0, err
			}
			instr.Imm = LocalImm{LocalIdx: idx}

		case OpGlobalGet, OpGlobalSet:
			idx, err := ReadLEB128u(r)
			if err != nil {
				return nil, 0, err
			}
			instr.Imm = GlobalImm{GlobalIdx: idx}

		case OpI32Load, OpI64Load, OpF32Load, OpF64Load,
			OpI32Load8S, OpI32Load8U, OpI32Load16S, OpI32Load16U,
			OpI64Load8S, OpI64Load8U, OpI64Load16S, OpI64Load16U, OpI64Load32S, OpI64Load32U,
			OpI32Store, OpI64Store, OpF32Store, OpF64Store,
			OpI32Store8, OpI32Store16, OpI64Store8, OpI64Store16, OpI64Store32:
			align, err := ReadLEB128u(r)
			if err != nil {
				return nil, 0, err
			}
			offset, err := ReadLEB128u(r)
			if err != nil {
				return nil, 0, err
			}
			instr.Imm = MemoryImm{Align: align, Offset: offset}

		case OpMemorySize, OpMemoryGrow:
			memIdx, err := ReadLEB128u(r)
			if err != nil {
				return nil, 0, err
			}
			instr.Imm = MemoryIdxImm{MemIdx: memIdx}

		case OpI32Const:
			val, err := ReadLEB128s(r)
			if err != nil {
				return nil, 0, err
			}
			instr.Imm = I32Imm{Value: val}

		case OpI64Const:
			val, err := ReadLEB128s64(r)
			if err != nil {
				return nil, 0, err
			}
			instr.Imm = I64Imm{Value: val}

		case OpF32Const:
			val, err := ReadFloat32(r)
			if err != nil {
				return nil, 0, err
			}
			instr.Imm = F32Imm{Value: val}

		case OpF64Const:
			val, err := ReadFloat64(r)
			if err != nil {
				return nil, 0, err
			}
			instr.Imm = F64Imm{Value: val}

		// Instructions with no immediates
		case OpUnreachable, OpNop, OpReturn, OpDrop, OpSelect,
			OpI32Eqz, OpI32Eq, OpI32Ne, OpI32LtS, OpI32LtU, OpI32GtS, OpI32GtU,
			OpI32LeS, OpI32LeU, OpI32GeS, OpI32GeU,
			OpI64Eqz, OpI64Eq, OpI64Ne, OpI64LtS, OpI64LtU, OpI64GtS, OpI64GtU,
			OpI64LeS, OpI64LeU, OpI64GeS, OpI64GeU,
			OpF32Eq, OpF32Ne, OpF32Lt, OpF32Gt, OpF32Le, OpF32Ge,
			OpF64Eq, OpF64Ne, OpF64Lt, OpF64Gt, OpF64Le, OpF64Ge,
			OpI32Clz, OpI32Ctz, OpI32Popcnt, OpI32Add, OpI32Sub, OpI32Mul,
			OpI32DivS, OpI32DivU, OpI32RemS, OpI32RemU, OpI32And, OpI32Or, OpI32Xor,
			OpI32Shl, OpI32ShrS, OpI32ShrU, OpI32Rotl, OpI32Rotr,
			OpI64Clz, OpI64Ctz, OpI64Popcnt, OpI64Add, OpI64Sub, OpI64Mul,
			OpI64DivS, OpI64DivU, OpI64RemS, OpI64RemU, OpI64And, OpI64Or, OpI64Xor,
			OpI64Shl, OpI64ShrS, OpI64ShrU, OpI64Rotl, OpI64Rotr,
			OpF32Abs, OpF32Neg, OpF32Ceil, OpF32Floor, OpF32Trunc, OpF32Nearest, OpF32Sqrt,
			OpF32Add, OpF32Sub, OpF32Mul, OpF32Div, OpF32Min, OpF32Max, OpF32Copysign,
			OpF64Abs, OpF64Neg, OpF64Ceil, OpF64Floor, OpF64Trunc, OpF64Nearest, OpF64Sqrt,
			OpF64Add, OpF64Sub, OpF64Mul, OpF64Div, OpF64Min, OpF64Max, OpF64Copysign,
			OpI32WrapI64, OpI32TruncF32S, OpI32TruncF32U, OpI32TruncF64S, OpI32TruncF64U,
			OpI64ExtendI32S, OpI64ExtendI32U, OpI64TruncF32S, OpI64TruncF32U,
			OpI64TruncF64S, OpI64TruncF64U,
			OpF32ConvertI32S, OpF32ConvertI32U, OpF32ConvertI64S, OpF32ConvertI64U, OpF32DemoteF64,
			OpF64ConvertI32S, OpF64ConvertI32U, OpF64ConvertI64S, OpF64ConvertI64U, OpF64PromoteF32,
			OpI32ReinterpretF32, OpI64ReinterpretF64, OpF32ReinterpretI32, OpF64ReinterpretI64,
			OpI32Extend8S, OpI32Extend16S, OpI64Extend8S, OpI64Extend16S, OpI64Extend32S:
			// No immediate

		case OpPrefixMisc:
			subOp, err := ReadLEB128u(r)
			if err != nil {
				return nil, 0, err
			}
			switch subOp {
			case MiscI32TruncSatF32S, MiscI32TruncSatF32U,
				MiscI32TruncSatF64S, MiscI32TruncSatF64U,
				MiscI64TruncSatF32S, MiscI64TruncSatF32U,
				MiscI64TruncSatF64S, MiscI64TruncSatF64U:
				// Saturating truncations: no additional operands
			default:
				return nil, 0, fmt.Errorf("unknown 0xFC sub-opcode: 0x%02x", subOp)
			}
			instr.Imm = MiscImm{SubOpcode: subOp}

		default:
			return nil, 0, fmt.Errorf("unknown opcode: 0x%02x", op)
		}

		instrs = append(instrs, instr)
	}
}

// EncodeInstructionTo writes a single instruction to the provided buffer,
// including the end/else framing of any owned sub-bodies.
func EncodeInstructionTo(buf *bytes.Buffer, instr *Instruction) {
	buf.WriteByte(instr.Opcode)

	switch instr.Opcode {
	case OpBlock, OpLoop:
		imm := instr.Imm.(BlockImm)
		WriteLEB128s(buf, imm.Type)
		EncodeInstructionsTo(buf, imm.Body)
		buf.WriteByte(OpEnd)

	case OpIf:
		imm := instr.Imm.(IfImm)
		WriteLEB128s(buf, imm.Type)
		EncodeInstructionsTo(buf, imm.Then)
		if len(imm.Else) > 0 {
			buf.WriteByte(OpElse)
			EncodeInstructionsTo(buf, imm.Else)
		}
		buf.WriteByte(OpEnd)

	case OpBr, OpBrIf:
		imm := instr.Imm.(BranchImm)
		WriteLEB128u(buf, imm.LabelIdx)

	case OpBrTable:
		imm := instr.Imm.(BrTableImm)
		WriteLEB128u(buf, uint32(len(imm.Labels)))
		for _, l := range imm.Labels {
			WriteLEB128u(buf, l)
		}
		WriteLEB128u(buf, imm.Default)

	case OpCall:
		imm := instr.Imm.(CallImm)
		WriteLEB128u(buf, imm.FuncIdx)

	case OpCallIndirect:
		imm := instr.Imm.(CallIndirectImm)
		WriteLEB128u(buf, imm.TypeIdx)
		WriteLEB128u(buf, imm.TableIdx)

	case OpLocalGet, OpLocalSet, OpLocalTee:
		imm := instr.Imm.(LocalImm)
		WriteLEB128u(buf, imm.LocalIdx)

	case OpGlobalGet, OpGlobalSet:
		imm := instr.Imm.(GlobalImm)
		WriteLEB128u(buf, imm.GlobalIdx)

	case OpI32Load, OpI64Load, OpF32Load, OpF64Load,
		OpI32Load8S, OpI32Load8U, OpI32Load16S, OpI32Load16U,
		OpI64Load8S, OpI64Load8U, OpI64Load16S, OpI64Load16U, OpI64Load32S, OpI64Load32U,
		OpI32Store, OpI64Store, OpF32Store, OpF64Store,
		OpI32Store8, OpI32Store16, OpI64Store8, OpI64Store16, OpI64Store32:
		imm := instr.Imm.(MemoryImm)
		WriteLEB128u(buf, imm.Align)
		WriteLEB128u(buf, imm.Offset)

	case OpMemorySize, OpMemoryGrow:
		imm := instr.Imm.(MemoryIdxImm)
		WriteLEB128u(buf, imm.MemIdx)

	case OpI32Const:
		imm := instr.Imm.(I32Imm)
		WriteLEB128s(buf, imm.Value)

	case OpI64Const:
		imm := instr.Imm.(I64Imm)
		WriteLEB128s64(buf, imm.Value)

	case OpF32Const:
		imm := instr.Imm.(F32Imm)
		WriteFloat32(buf, imm.Value)

	case OpF64Const:
		imm := instr.Imm.(F64Imm)
		WriteFloat64(buf, imm.Value)

	case OpPrefixMisc:
		imm := instr.Imm.(MiscImm)
		WriteLEB128u(buf, imm.SubOpcode)
	}
}

// EncodeInstructionsTo writes multiple instructions to the provided buffer.
func EncodeInstructionsTo(buf *bytes.Buffer, instrs []Instruction) {
	for i := range instrs {
		EncodeInstructionTo(buf, &instrs[i])
	}
}

// EncodeExpr encodes an expression including its terminating end byte.
func EncodeExpr(instrs []Instruction) []byte {
	var buf bytes.Buffer
	buf.Grow(len(instrs)*3 + 1)
	EncodeInstructionsTo(&buf, instrs)
	buf.WriteByte(OpEnd)
	return buf.Bytes()
}
