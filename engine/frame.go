package engine

import (
	errs "github.com/wippyai/wasm-interp/errors"
	"github.com/wippyai/wasm-interp/wasm"
)

// controlFrame is one entry on the control stack: an active block, loop, if
// or call. bp marks the frame's operand floor: the operand-stack depth at
// entry minus the frame's parameter count. For call frames, local 0 lives
// at bp.
type controlFrame struct {
	body      []wasm.Instruction
	blockType wasm.FuncType
	bp        int
	pc        int
	opcode    byte
}

// controlStack orders active frames; the bottom is the outermost call.
type controlStack struct {
	frames []controlFrame
}

func (cs *controlStack) depth() int {
	return len(cs.frames)
}

func (cs *controlStack) push(cf controlFrame) {
	cs.frames = append(cs.frames, cf)
}

func (cs *controlStack) pop() controlFrame {
	n := len(cs.frames)
	if n == 0 {
		panic(errs.Trap(errs.KindStackUnderflow, "pop from empty control stack"))
	}
	cf := cs.frames[n-1]
	cs.frames = cs.frames[:n-1]
	return cf
}

func (cs *controlStack) top() *controlFrame {
	n := len(cs.frames)
	if n == 0 {
		panic(errs.Trap(errs.KindStackUnderflow, "empty control stack"))
	}
	return &cs.frames[n-1]
}

// topCallFrame returns the nearest call frame from the top and its label
// depth (the br depth that targets it). The second result is -1 when no
// call frame is active.
func (cs *controlStack) topCallFrame() (*controlFrame, int) {
	for i := len(cs.frames) - 1; i >= 0; i-- {
		if cs.frames[i].opcode == wasm.OpCall {
			return &cs.frames[i], len(cs.frames) - 1 - i
		}
	}
	return nil, -1
}
