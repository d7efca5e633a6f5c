// Package engine implements the execution engine: a stack-machine
// interpreter over decoded modules.
//
// The engine splits its state into independent sub-objects — OperandStack,
// Memory, Table, GlobalStore and the control stack — each owned exclusively
// by one VM and mutated only from its dispatch loop. Execution is
// single-threaded with no suspension points; host calls run synchronously
// on the same goroutine and must not re-enter the engine.
//
// Traps (divide-by-zero, out-of-bounds access, indirect-call mismatches,
// unreachable, ...) propagate as panics carrying *errors.Error and are
// recovered into ordinary error returns at the Run and Call boundaries.
// Bytecode never observes them; there is no exception mechanism in this
// profile.
//
//	m, _ := wasm.ParseModuleValidate(data)
//	vm, err := engine.New(m)
//	if err != nil {
//	    ... // link error
//	}
//	if err := vm.Run(ctx); err != nil {
//	    ... // trap or assert failure
//	}
package engine
