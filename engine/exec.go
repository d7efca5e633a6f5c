package engine

import (
	"math"
	"math/bits"

	errs "github.com/wippyai/wasm-interp/errors"
	"github.com/wippyai/wasm-interp/wasm"
)

// enterBlock pushes a control frame whose parameters are already on top of
// the operand stack. Entering is the only way a program counter resets to
// zero.
func (vm *VM) enterBlock(opcode byte, bt wasm.FuncType, body []wasm.Instruction) {
	bp := vm.stack.Depth() - len(bt.Params)
	if bp < 0 {
		panic(errs.Trap(errs.KindStackUnderflow, "block entry with %d params on stack of depth %d",
			len(bt.Params), vm.stack.Depth()))
	}
	vm.frames.push(controlFrame{opcode: opcode, blockType: bt, body: body, bp: bp})
	if opcode == wasm.OpCall {
		vm.local0 = bp
	}
}

// exitBlock completes the top frame: results move over the frame's
// operands, and a completed call restores local 0 from the next call frame
// down.
func (vm *VM) exitBlock() {
	cf := vm.frames.pop()
	results := vm.stack.PopN(len(cf.blockType.Results))
	vm.stack.DropTo(cf.bp)
	vm.stack.PushN(results)
	if cf.opcode == wasm.OpCall && vm.frames.depth() > 0 {
		if call, _ := vm.frames.topCallFrame(); call != nil {
			vm.local0 = call.bp
		}
	}
}

// branch pops `label` frames and targets the new top: a loop rewinds to its
// head keeping its parameters, anything else exits normally.
func (vm *VM) branch(label uint32) {
	for i := uint32(0); i < label; i++ {
		vm.frames.pop()
	}
	cf := vm.frames.top()
	if cf.opcode != wasm.OpLoop {
		vm.exitBlock()
		return
	}
	cf.pc = 0
	params := vm.stack.PopN(len(cf.blockType.Params))
	vm.stack.DropTo(cf.bp)
	vm.stack.PushN(params)
}

func (vm *VM) callFunc(idx uint32) {
	if idx >= uint32(len(vm.funcs)) {
		panic(errs.OutOfBounds([]string{"functions"}, int(idx), len(vm.funcs)))
	}
	f := vm.funcs[idx]
	if f.IsHost() {
		vm.callHost(f)
		return
	}
	vm.callInternal(f)
}

// callInternal enters a call frame for the function body. Parameters are
// already on the stack; locals are appended as zero slots.
func (vm *VM) callInternal(f *Function) {
	vm.enterBlock(wasm.OpCall, f.Type, f.Code.Body)
	for i := uint64(0); i < f.Code.LocalCount(); i++ {
		vm.stack.PushU64(0)
	}
}

// callHost marshals arguments left-to-right per the function type, runs the
// adapter synchronously and pushes its results. No control frame is
// created.
func (vm *VM) callHost(f *Function) {
	args := vm.stack.PopN(len(f.Type.Params))
	results, err := f.Host(args)
	if err != nil {
		if e, ok := err.(*errs.Error); ok {
			panic(e)
		}
		panic(errs.Wrap(errs.PhaseHost, errs.KindInvalidInput, err, f.Name))
	}
	if len(results) != len(f.Type.Results) {
		panic(errs.New(errs.PhaseHost, errs.KindSignatureMismatch).
			Path(f.Name).
			Detail("host returned %d results, type %s", len(results), f.Type).
			Build())
	}
	vm.stack.PushN(results)
}

func (vm *VM) callIndirect(imm wasm.CallIndirectImm) {
	i := vm.stack.PopU32()
	if vm.table == nil {
		panic(errs.Trap(errs.KindUndefinedElement, "call_indirect with no table"))
	}
	f := vm.table.Get(i)
	want := vm.module.Types[imm.TypeIdx]
	if !f.Type.Equal(want) {
		panic(errs.Trap(errs.KindSignatureMismatch,
			"indirect call type mismatch: table entry %s, expected %s", f.Type, want))
	}
	if f.IsHost() {
		vm.callHost(f)
		return
	}
	vm.callInternal(f)
}

// effAddr computes the effective address for a memory access: the popped
// i32 base plus the static offset, widened to 64 bits so the sum cannot
// wrap past 2^32-1.
func (vm *VM) effAddr(imm wasm.MemoryImm) uint64 {
	return uint64(vm.stack.PopU32()) + uint64(imm.Offset)
}

// execInstr dispatches a single instruction. Branch instructions rewrite
// the control stack in place and yield to the outer loop.
func (vm *VM) execInstr(instr *wasm.Instruction) {
	s := vm.stack

	switch instr.Opcode {
	// Control
	case wasm.OpUnreachable:
		panic(errs.Trap(errs.KindUnreachable, "unreachable executed"))
	case wasm.OpNop:
	case wasm.OpBlock:
		imm := instr.Imm.(wasm.BlockImm)
		vm.enterBlock(wasm.OpBlock, vm.module.BlockFuncType(imm.Type), imm.Body)
	case wasm.OpLoop:
		imm := instr.Imm.(wasm.BlockImm)
		vm.enterBlock(wasm.OpLoop, vm.module.BlockFuncType(imm.Type), imm.Body)
	case wasm.OpIf:
		imm := instr.Imm.(wasm.IfImm)
		body := imm.Then
		if !s.PopBool() {
			body = imm.Else
		}
		vm.enterBlock(wasm.OpIf, vm.module.BlockFuncType(imm.Type), body)
	case wasm.OpBr:
		vm.branch(instr.Imm.(wasm.BranchImm).LabelIdx)
	case wasm.OpBrIf:
		if s.PopBool() {
			vm.branch(instr.Imm.(wasm.BranchImm).LabelIdx)
		}
	case wasm.OpBrTable:
		imm := instr.Imm.(wasm.BrTableImm)
		i := s.PopU32()
		if i < uint32(len(imm.Labels)) {
			vm.branch(imm.Labels[i])
		} else {
			vm.branch(imm.Default)
		}
	case wasm.OpReturn:
		_, label := vm.frames.topCallFrame()
		if label < 0 {
			panic(errs.Trap(errs.KindStackUnderflow, "return outside a call frame"))
		}
		vm.branch(uint32(label))
	case wasm.OpCall:
		vm.callFunc(instr.Imm.(wasm.CallImm).FuncIdx)
	case wasm.OpCallIndirect:
		vm.callIndirect(instr.Imm.(wasm.CallIndirectImm))

	// Parametric
	case wasm.OpDrop:
		s.PopU64()
	case wasm.OpSelect:
		c := s.PopU32()
		v2 := s.PopU64()
		v1 := s.PopU64()
		if c != 0 {
			s.PushU64(v1)
		} else {
			s.PushU64(v2)
		}

	// Locals and globals
	case wasm.OpLocalGet:
		imm := instr.Imm.(wasm.LocalImm)
		s.PushU64(s.Get(vm.local0 + int(imm.LocalIdx)))
	case wasm.OpLocalSet:
		imm := instr.Imm.(wasm.LocalImm)
		s.Set(vm.local0+int(imm.LocalIdx), s.PopU64())
	case wasm.OpLocalTee:
		imm := instr.Imm.(wasm.LocalImm)
		v := s.PopU64()
		s.PushU64(v)
		s.Set(vm.local0+int(imm.LocalIdx), v)
	case wasm.OpGlobalGet:
		s.PushU64(vm.globals.Get(instr.Imm.(wasm.GlobalImm).GlobalIdx))
	case wasm.OpGlobalSet:
		vm.globals.Set(instr.Imm.(wasm.GlobalImm).GlobalIdx, s.PopU64())

	// Memory loads
	case wasm.OpI32Load:
		s.PushU32(vm.memory.ReadU32(vm.effAddr(instr.Imm.(wasm.MemoryImm))))
	case wasm.OpI64Load:
		s.PushU64(vm.memory.ReadU64(vm.effAddr(instr.Imm.(wasm.MemoryImm))))
	case wasm.OpF32Load:
		s.PushU32(vm.memory.ReadU32(vm.effAddr(instr.Imm.(wasm.MemoryImm))))
	case wasm.OpF64Load:
		s.PushU64(vm.memory.ReadU64(vm.effAddr(instr.Imm.(wasm.MemoryImm))))
	case wasm.OpI32Load8S:
		s.PushI32(int32(int8(vm.memory.ReadU8(vm.effAddr(instr.Imm.(wasm.MemoryImm))))))
	case wasm.OpI32Load8U:
		s.PushU32(uint32(vm.memory.ReadU8(vm.effAddr(instr.Imm.(wasm.MemoryImm)))))
	case wasm.OpI32Load16S:
		s.PushI32(int32(int16(vm.memory.ReadU16(vm.effAddr(instr.Imm.(wasm.MemoryImm))))))
	case wasm.OpI32Load16U:
		s.PushU32(uint32(vm.memory.ReadU16(vm.effAddr(instr.Imm.(wasm.MemoryImm)))))
	case wasm.OpI64Load8S:
		s.PushI64(int64(int8(vm.memory.ReadU8(vm.effAddr(instr.Imm.(wasm.MemoryImm))))))
	case wasm.OpI64Load8U:
		s.PushU64(uint64(vm.memory.ReadU8(vm.effAddr(instr.Imm.(wasm.MemoryImm)))))
	case wasm.OpI64Load16S:
		s.PushI64(int64(int16(vm.memory.ReadU16(vm.effAddr(instr.Imm.(wasm.MemoryImm))))))
	case wasm.OpI64Load16U:
		s.PushU64(uint64(vm.memory.ReadU16(vm.effAddr(instr.Imm.(wasm.MemoryImm)))))
	case wasm.OpI64Load32S:
		s.PushI64(int64(int32(vm.memory.ReadU32(vm.effAddr(instr.Imm.(wasm.MemoryImm))))))
	case wasm.OpI64Load32U:
		s.PushU64(uint64(vm.memory.ReadU32(vm.effAddr(instr.Imm.(wasm.MemoryImm)))))

	// Memory stores: value on top, then the base address.
	case wasm.OpI32Store:
		v := s.PopU32()
		vm.memory.WriteU32(vm.effAddr(instr.Imm.(wasm.MemoryImm)), v)
	case wasm.OpI64Store:
		v := s.PopU64()
		vm.memory.WriteU64(vm.effAddr(instr.Imm.(wasm.MemoryImm)), v)
	case wasm.OpF32Store:
		v := s.PopU32()
		vm.memory.WriteU32(vm.effAddr(instr.Imm.(wasm.MemoryImm)), v)
	case wasm.OpF64Store:
		v := s.PopU64()
		vm.memory.WriteU64(vm.effAddr(instr.Imm.(wasm.MemoryImm)), v)
	case wasm.OpI32Store8:
		v := s.PopU32()
		vm.memory.WriteU8(vm.effAddr(instr.Imm.(wasm.MemoryImm)), uint8(v))
	case wasm.OpI32Store16:
		v := s.PopU32()
		vm.memory.WriteU16(vm.effAddr(instr.Imm.(wasm.MemoryImm)), uint16(v))
	case wasm.OpI64Store8:
		v := s.PopU64()
		vm.memory.WriteU8(vm.effAddr(instr.Imm.(wasm.MemoryImm)), uint8(v))
	case wasm.OpI64Store16:
		v := s.PopU64()
		vm.memory.WriteU16(vm.effAddr(instr.Imm.(wasm.MemoryImm)), uint16(v))
	case wasm.OpI64Store32:
		v := s.PopU64()
		vm.memory.WriteU32(vm.effAddr(instr.Imm.(wasm.MemoryImm)), uint32(v))

	case wasm.OpMemorySize:
		s.PushU32(vm.memory.SizePages())
	case wasm.OpMemoryGrow:
		s.PushU32(vm.memory.Grow(s.PopU32()))

	// Constants
	case wasm.OpI32Const:
		s.PushI32(instr.Imm.(wasm.I32Imm).Value)
	case wasm.OpI64Const:
		s.PushI64(instr.Imm.(wasm.I64Imm).Value)
	case wasm.OpF32Const:
		s.PushF32(instr.Imm.(wasm.F32Imm).Value)
	case wasm.OpF64Const:
		s.PushF64(instr.Imm.(wasm.F64Imm).Value)

	// i32 comparisons
	case wasm.OpI32Eqz:
		s.PushBool(s.PopU32() == 0)
	case wasm.OpI32Eq:
		b, a := s.PopU32(), s.PopU32()
		s.PushBool(a == b)
	case wasm.OpI32Ne:
		b, a := s.PopU32(), s.PopU32()
		s.PushBool(a != b)
	case wasm.OpI32LtS:
		b, a := s.PopI32(), s.PopI32()
		s.PushBool(a < b)
	case wasm.OpI32LtU:
		b, a := s.PopU32(), s.PopU32()
		s.PushBool(a < b)
	case wasm.OpI32GtS:
		b, a := s.PopI32(), s.PopI32()
		s.PushBool(a > b)
	case wasm.OpI32GtU:
		b, a := s.PopU32(), s.PopU32()
		s.PushBool(a > b)
	case wasm.OpI32LeS:
		b, a := s.PopI32(), s.PopI32()
		s.PushBool(a <= b)
	case wasm.OpI32LeU:
		b, a := s.PopU32(), s.PopU32()
		s.PushBool(a <= b)
	case wasm.OpI32GeS:
		b, a := s.PopI32(), s.PopI32()
		s.PushBool(a >= b)
	case wasm.OpI32GeU:
		b, a := s.PopU32(), s.PopU32()
		s.PushBool(a >= b)

	// i64 comparisons
	case wasm.OpI64Eqz:
		s.PushBool(s.PopU64() == 0)
	case wasm.OpI64Eq:
		b, a := s.PopU64(), s.PopU64()
		s.PushBool(a == b)
	case wasm.OpI64Ne:
		b, a := s.PopU64(), s.PopU64()
		s.PushBool(a != b)
	case wasm.OpI64LtS:
		b, a := s.PopI64(), s.PopI64()
		s.PushBool(a < b)
	case wasm.OpI64LtU:
		b, a := s.PopU64(), s.PopU64()
		s.PushBool(a < b)
	case wasm.OpI64GtS:
		b, a := s.PopI64(), s.PopI64()
		s.PushBool(a > b)
	case wasm.OpI64GtU:
		b, a := s.PopU64(), s.PopU64()
		s.PushBool(a > b)
	case wasm.OpI64LeS:
		b, a := s.PopI64(), s.PopI64()
		s.PushBool(a <= b)
	case wasm.OpI64LeU:
		b, a := s.PopU64(), s.PopU64()
		s.PushBool(a <= b)
	case wasm.OpI64GeS:
		b, a := s.PopI64(), s.PopI64()
		s.PushBool(a >= b)
	case wasm.OpI64GeU:
		b, a := s.PopU64(), s.PopU64()
		s.PushBool(a >= b)

	// Float comparisons (NaN compares unequal)
	case wasm.OpF32Eq:
		b, a := s.PopF32(), s.PopF32()
		s.PushBool(a == b)
	case wasm.OpF32Ne:
		b, a := s.PopF32(), s.PopF32()
		s.PushBool(a != b)
	case wasm.OpF32Lt:
		b, a := s.PopF32(), s.PopF32()
		s.PushBool(a < b)
	case wasm.OpF32Gt:
		b, a := s.PopF32(), s.PopF32()
		s.PushBool(a > b)
	case wasm.OpF32Le:
		b, a := s.PopF32(), s.PopF32()
		s.PushBool(a <= b)
	case wasm.OpF32Ge:
		b, a := s.PopF32(), s.PopF32()
		s.PushBool(a >= b)
	case wasm.OpF64Eq:
		b, a := s.PopF64(), s.PopF64()
		s.PushBool(a == b)
	case wasm.OpF64Ne:
		b, a := s.PopF64(), s.PopF64()
		s.PushBool(a != b)
	case wasm.OpF64Lt:
		b, a := s.PopF64(), s.PopF64()
		s.PushBool(a < b)
	case wasm.OpF64Gt:
		b, a := s.PopF64(), s.PopF64()
		s.PushBool(a > b)
	case wasm.OpF64Le:
		b, a := s.PopF64(), s.PopF64()
		s.PushBool(a <= b)
	case wasm.OpF64Ge:
		b, a := s.PopF64(), s.PopF64()
		s.PushBool(a >= b)

	// i32 arithmetic
	case wasm.OpI32Clz:
		s.PushU32(uint32(bits.LeadingZeros32(s.PopU32())))
	case wasm.OpI32Ctz:
		s.PushU32(uint32(bits.TrailingZeros32(s.PopU32())))
	case wasm.OpI32Popcnt:
		s.PushU32(uint32(bits.OnesCount32(s.PopU32())))
	case wasm.OpI32Add:
		b, a := s.PopU32(), s.PopU32()
		s.PushU32(a + b)
	case wasm.OpI32Sub:
		b, a := s.PopU32(), s.PopU32()
		s.PushU32(a - b)
	case wasm.OpI32Mul:
		b, a := s.PopU32(), s.PopU32()
		s.PushU32(a * b)
	case wasm.OpI32DivS:
		b, a := s.PopI32(), s.PopI32()
		s.PushI32(divS32(a, b))
	case wasm.OpI32DivU:
		b, a := s.PopU32(), s.PopU32()
		s.PushU32(divU32(a, b))
	case wasm.OpI32RemS:
		b, a := s.PopI32(), s.PopI32()
		s.PushI32(remS32(a, b))
	case wasm.OpI32RemU:
		b, a := s.PopU32(), s.PopU32()
		s.PushU32(remU32(a, b))
	case wasm.OpI32And:
		b, a := s.PopU32(), s.PopU32()
		s.PushU32(a & b)
	case wasm.OpI32Or:
		b, a := s.PopU32(), s.PopU32()
		s.PushU32(a | b)
	case wasm.OpI32Xor:
		b, a := s.PopU32(), s.PopU32()
		s.PushU32(a ^ b)
	case wasm.OpI32Shl:
		b, a := s.PopU32(), s.PopU32()
		s.PushU32(a << (b & 31))
	case wasm.OpI32ShrS:
		b, a := s.PopU32(), s.PopI32()
		s.PushI32(a >> (b & 31))
	case wasm.OpI32ShrU:
		b, a := s.PopU32(), s.PopU32()
		s.PushU32(a >> (b & 31))
	case wasm.OpI32Rotl:
		b, a := s.PopU32(), s.PopU32()
		s.PushU32(bits.RotateLeft32(a, int(b&31)))
	case wasm.OpI32Rotr:
		b, a := s.PopU32(), s.PopU32()
		s.PushU32(bits.RotateLeft32(a, -int(b&31)))

	// i64 arithmetic
	case wasm.OpI64Clz:
		s.PushU64(uint64(bits.LeadingZeros64(s.PopU64())))
	case wasm.OpI64Ctz:
		s.PushU64(uint64(bits.TrailingZeros64(s.PopU64())))
	case wasm.OpI64Popcnt:
		s.PushU64(uint64(bits.OnesCount64(s.PopU64())))
	case wasm.OpI64Add:
		b, a := s.PopU64(), s.PopU64()
		s.PushU64(a + b)
	case wasm.OpI64Sub:
		b, a := s.PopU64(), s.PopU64()
		s.PushU64(a - b)
	case wasm.OpI64Mul:
		b, a := s.PopU64(), s.PopU64()
		s.PushU64(a * b)
	case wasm.OpI64DivS:
		b, a := s.PopI64(), s.PopI64()
		s.PushI64(divS64(a, b))
	case wasm.OpI64DivU:
		b, a := s.PopU64(), s.PopU64()
		s.PushU64(divU64(a, b))
	case wasm.OpI64RemS:
		b, a := s.PopI64(), s.PopI64()
		s.PushI64(remS64(a, b))
	case wasm.OpI64RemU:
		b, a := s.PopU64(), s.PopU64()
		s.PushU64(remU64(a, b))
	case wasm.OpI64And:
		b, a := s.PopU64(), s.PopU64()
		s.PushU64(a & b)
	case wasm.OpI64Or:
		b, a := s.PopU64(), s.PopU64()
		s.PushU64(a | b)
	case wasm.OpI64Xor:
		b, a := s.PopU64(), s.PopU64()
		s.PushU64(a ^ b)
	case wasm.OpI64Shl:
		b, a := s.PopU64(), s.PopU64()
		s.PushU64(a << (b & 63))
	case wasm.OpI64ShrS:
		b, a := s.PopU64(), s.PopI64()
		s.PushI64(a >> (b & 63))
	case wasm.OpI64ShrU:
		b, a := s.PopU64(), s.PopU64()
		s.PushU64(a >> (b & 63))
	case wasm.OpI64Rotl:
		b, a := s.PopU64(), s.PopU64()
		s.PushU64(bits.RotateLeft64(a, int(b&63)))
	case wasm.OpI64Rotr:
		b, a := s.PopU64(), s.PopU64()
		s.PushU64(bits.RotateLeft64(a, -int(b&63)))

	// f32 arithmetic
	case wasm.OpF32Abs:
		// Sign-bit op on the raw slot; keeps NaN payloads intact.
		s.PushU32(s.PopU32() &^ (1 << 31))
	case wasm.OpF32Neg:
		s.PushU32(s.PopU32() ^ (1 << 31))
	case wasm.OpF32Ceil:
		s.PushF32(float32(math.Ceil(float64(s.PopF32()))))
	case wasm.OpF32Floor:
		s.PushF32(float32(math.Floor(float64(s.PopF32()))))
	case wasm.OpF32Trunc:
		s.PushF32(float32(math.Trunc(float64(s.PopF32()))))
	case wasm.OpF32Nearest:
		s.PushF32(float32(math.RoundToEven(float64(s.PopF32()))))
	case wasm.OpF32Sqrt:
		s.PushF32(float32(math.Sqrt(float64(s.PopF32()))))
	case wasm.OpF32Add:
		b, a := s.PopF32(), s.PopF32()
		s.PushF32(a + b)
	case wasm.OpF32Sub:
		b, a := s.PopF32(), s.PopF32()
		s.PushF32(a - b)
	case wasm.OpF32Mul:
		b, a := s.PopF32(), s.PopF32()
		s.PushF32(a * b)
	case wasm.OpF32Div:
		b, a := s.PopF32(), s.PopF32()
		s.PushF32(a / b)
	case wasm.OpF32Min:
		b, a := s.PopF32(), s.PopF32()
		s.PushF32(fmin32(a, b))
	case wasm.OpF32Max:
		b, a := s.PopF32(), s.PopF32()
		s.PushF32(fmax32(a, b))
	case wasm.OpF32Copysign:
		b, a := s.PopF32(), s.PopF32()
		s.PushF32(float32(math.Copysign(float64(a), float64(b))))

	// f64 arithmetic
	case wasm.OpF64Abs:
		s.PushF64(math.Abs(s.PopF64()))
	case wasm.OpF64Neg:
		s.PushF64(-s.PopF64())
	case wasm.OpF64Ceil:
		s.PushF64(math.Ceil(s.PopF64()))
	case wasm.OpF64Floor:
		s.PushF64(math.Floor(s.PopF64()))
	case wasm.OpF64Trunc:
		s.PushF64(math.Trunc(s.PopF64()))
	case wasm.OpF64Nearest:
		s.PushF64(math.RoundToEven(s.PopF64()))
	case wasm.OpF64Sqrt:
		s.PushF64(math.Sqrt(s.PopF64()))
	case wasm.OpF64Add:
		b, a := s.PopF64(), s.PopF64()
		s.PushF64(a + b)
	case wasm.OpF64Sub:
		b, a := s.PopF64(), s.PopF64()
		s.PushF64(a - b)
	case wasm.OpF64Mul:
		b, a := s.PopF64(), s.PopF64()
		s.PushF64(a * b)
	case wasm.OpF64Div:
		b, a := s.PopF64(), s.PopF64()
		s.PushF64(a / b)
	case wasm.OpF64Min:
		b, a := s.PopF64(), s.PopF64()
		s.PushF64(fmin(a, b))
	case wasm.OpF64Max:
		b, a := s.PopF64(), s.PopF64()
		s.PushF64(fmax(a, b))
	case wasm.OpF64Copysign:
		b, a := s.PopF64(), s.PopF64()
		s.PushF64(math.Copysign(a, b))

	// Conversions
	case wasm.OpI32WrapI64:
		s.PushU32(uint32(s.PopU64()))
	case wasm.OpI32TruncF32S:
		s.PushI32(truncS32(float64(s.PopF32()), false))
	case wasm.OpI32TruncF32U:
		s.PushU32(truncU32(float64(s.PopF32()), false))
	case wasm.OpI32TruncF64S:
		s.PushI32(truncS32(s.PopF64(), false))
	case wasm.OpI32TruncF64U:
		s.PushU32(truncU32(s.PopF64(), false))
	case wasm.OpI64ExtendI32S:
		s.PushI64(int64(s.PopI32()))
	case wasm.OpI64ExtendI32U:
		s.PushU64(uint64(s.PopU32()))
	case wasm.OpI64TruncF32S:
		s.PushI64(truncS64(float64(s.PopF32()), false))
	case wasm.OpI64TruncF32U:
		s.PushU64(truncU64(float64(s.PopF32()), false))
	case wasm.OpI64TruncF64S:
		s.PushI64(truncS64(s.PopF64(), false))
	case wasm.OpI64TruncF64U:
		s.PushU64(truncU64(s.PopF64(), false))
	case wasm.OpF32ConvertI32S:
		s.PushF32(float32(s.PopI32()))
	case wasm.OpF32ConvertI32U:
		s.PushF32(float32(s.PopU32()))
	case wasm.OpF32ConvertI64S:
		s.PushF32(float32(s.PopI64()))
	case wasm.OpF32ConvertI64U:
		s.PushF32(float32(s.PopU64()))
	case wasm.OpF32DemoteF64:
		s.PushF32(float32(s.PopF64()))
	case wasm.OpF64ConvertI32S:
		s.PushF64(float64(s.PopI32()))
	case wasm.OpF64ConvertI32U:
		s.PushF64(float64(s.PopU32()))
	case wasm.OpF64ConvertI64S:
		s.PushF64(float64(s.PopI64()))
	case wasm.OpF64ConvertI64U:
		s.PushF64(float64(s.PopU64()))
	case wasm.OpF64PromoteF32:
		s.PushF64(float64(s.PopF32()))

	case wasm.OpI32ReinterpretF32, wasm.OpI64ReinterpretF64,
		wasm.OpF32ReinterpretI32, wasm.OpF64ReinterpretI64:
		// Identity on the 64-bit slot: the bit pattern is already in place.

	// Sign extension
	case wasm.OpI32Extend8S:
		s.PushI32(int32(int8(s.PopU32())))
	case wasm.OpI32Extend16S:
		s.PushI32(int32(int16(s.PopU32())))
	case wasm.OpI64Extend8S:
		s.PushI64(int64(int8(s.PopU64())))
	case wasm.OpI64Extend16S:
		s.PushI64(int64(int16(s.PopU64())))
	case wasm.OpI64Extend32S:
		s.PushI64(int64(int32(s.PopU64())))

	case wasm.OpPrefixMisc:
		vm.execMisc(instr.Imm.(wasm.MiscImm))

	default:
		panic(errs.New(errs.PhaseRun, errs.KindMalformedModule).
			Detail("unhandled opcode %s", wasm.OpcodeName(instr.Opcode)).Build())
	}
}

// execMisc handles the 0xFC space: non-trapping float-to-int conversions.
func (vm *VM) execMisc(imm wasm.MiscImm) {
	s := vm.stack
	switch imm.SubOpcode {
	case wasm.MiscI32TruncSatF32S:
		s.PushI32(truncS32(float64(s.PopF32()), true))
	case wasm.MiscI32TruncSatF32U:
		s.PushU32(truncU32(float64(s.PopF32()), true))
	case wasm.MiscI32TruncSatF64S:
		s.PushI32(truncS32(s.PopF64(), true))
	case wasm.MiscI32TruncSatF64U:
		s.PushU32(truncU32(s.PopF64(), true))
	case wasm.MiscI64TruncSatF32S:
		s.PushI64(truncS64(float64(s.PopF32()), true))
	case wasm.MiscI64TruncSatF32U:
		s.PushU64(truncU64(float64(s.PopF32()), true))
	case wasm.MiscI64TruncSatF64S:
		s.PushI64(truncS64(s.PopF64(), true))
	case wasm.MiscI64TruncSatF64U:
		s.PushU64(truncU64(s.PopF64(), true))
	default:
		panic(errs.New(errs.PhaseRun, errs.KindMalformedModule).
			Detail("unhandled 0xFC sub-opcode 0x%02x", imm.SubOpcode).Build())
	}
}
