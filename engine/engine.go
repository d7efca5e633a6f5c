package engine

import (
	"context"

	"go.uber.org/zap"

	errs "github.com/wippyai/wasm-interp/errors"
	"github.com/wippyai/wasm-interp/host"
	"github.com/wippyai/wasm-interp/wasm"
)

// VM executes one module to completion. It owns all runtime state (operand
// stack, control stack, memory, table, globals, function registry) and
// mutates it only from its own dispatch loop; the module is borrowed
// read-only. A VM is single-threaded and not reusable across modules.
type VM struct {
	module  *wasm.Module
	stack   *OperandStack
	frames  controlStack
	memory  *Memory
	table   *Table
	globals *GlobalStore
	funcs   []*Function
	logger  *zap.Logger
	local0  int
	inited  bool
}

type config struct {
	logger *zap.Logger
	hosts  *host.Registry
}

// Option configures a VM.
type Option func(*config)

// WithLogger sets the logger (default nop).
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithHostRegistry supplies the import resolver. Defaults to the built-in
// env module writing to stdout.
func WithHostRegistry(r *host.Registry) Option {
	return func(c *config) { c.hosts = r }
}

// New links a VM for the module: resolves imports against the host
// registry, allocates memory and table at their declared minimums, and
// builds the unified function registry (imports first, then code-section
// functions). Segment and global initialisation runs on first Run or Call.
func New(m *wasm.Module, opts ...Option) (*VM, error) {
	cfg := config{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.hosts == nil {
		cfg.hosts = host.DefaultRegistry()
	}

	vm := &VM{
		module:  m,
		stack:   NewOperandStack(),
		globals: &GlobalStore{},
		logger:  cfg.logger,
		local0:  -1,
	}

	if len(m.Memories) > 0 {
		vm.memory = NewMemory(m.Memories[0])
	} else {
		vm.memory = NewMemory(wasm.MemoryType{})
	}
	if len(m.Tables) > 0 {
		vm.table = NewTable(m.Tables[0])
	}

	// Imports occupy the front of the function index space, in import order.
	for _, imp := range m.Imports {
		if imp.Desc.Kind != wasm.KindFunc {
			return nil, errs.InvalidInput(errs.PhaseLink,
				"only function imports are supported: "+imp.Module+"."+imp.Name)
		}
		if imp.Desc.Func >= uint32(len(m.Types)) {
			return nil, errs.InvalidInput(errs.PhaseLink,
				"import type index out of range: "+imp.Module+"."+imp.Name)
		}
		binding, ok := cfg.hosts.Lookup(imp.Module, imp.Name)
		if !ok {
			return nil, errs.MissingImport(imp.Module, imp.Name)
		}
		declared := m.Types[imp.Desc.Func]
		if !binding.Type.Equal(declared) {
			return nil, errs.New(errs.PhaseLink, errs.KindSignatureMismatch).
				Path(imp.Module, imp.Name).
				Detail("declared %s, host provides %s", declared, binding.Type).
				Build()
		}
		vm.funcs = append(vm.funcs, &Function{
			Host: binding.Fn,
			Type: declared,
			Name: imp.Module + "." + imp.Name,
		})
	}
	for i, typeIdx := range m.Funcs {
		if i >= len(m.Code) || typeIdx >= uint32(len(m.Types)) {
			return nil, errs.InvalidInput(errs.PhaseLink, "function and code sections disagree")
		}
		vm.funcs = append(vm.funcs, &Function{
			Code: &m.Code[i],
			Type: m.Types[typeIdx],
		})
	}

	vm.logger.Debug("module linked",
		zap.Int("functions", len(vm.funcs)),
		zap.Uint32("memory_pages", vm.memory.SizePages()))
	return vm, nil
}

// Memory exposes the linear memory (for the host layer and tests).
func (vm *VM) Memory() *Memory {
	return vm.memory
}

// initialize runs the one-shot init phase: globals from their constant
// expressions, data segments into memory, element segments into the table.
// Init expressions execute through the main dispatcher against an empty
// control stack.
func (vm *VM) initialize() {
	if vm.inited {
		return
	}
	vm.inited = true

	for i := range vm.module.Globals {
		g := &vm.module.Globals[i]
		vm.evalConstExpr(g.Init)
		vm.globals.Append(g.Type, vm.stack.PopU64())
	}

	for i := range vm.module.Data {
		seg := &vm.module.Data[i]
		vm.evalConstExpr(seg.Offset)
		offset := vm.stack.PopU32()
		vm.memory.Write(uint64(offset), seg.Init)
	}

	for i := range vm.module.Elements {
		elem := &vm.module.Elements[i]
		if vm.table == nil {
			panic(errs.Trap(errs.KindUndefinedElement, "element segment with no table"))
		}
		vm.evalConstExpr(elem.Offset)
		offset := vm.stack.PopU32()
		for j, funcIdx := range elem.Init {
			vm.table.Set(offset+uint32(j), vm.funcs[funcIdx])
		}
	}

	vm.logger.Debug("module initialized",
		zap.Int("globals", vm.globals.Len()),
		zap.Int("data_segments", len(vm.module.Data)),
		zap.Int("element_segments", len(vm.module.Elements)))
}

func (vm *VM) evalConstExpr(expr []wasm.Instruction) {
	for i := range expr {
		vm.execInstr(&expr[i])
	}
}

// Run executes the module's entry point to completion: the start function
// if the module declares one, otherwise the export named "main". Traps,
// assert failures and link problems are returned as *errors.Error.
func (vm *VM) Run(ctx context.Context) (err error) {
	defer vm.recovered(&err)
	if err := ctx.Err(); err != nil {
		return err
	}
	vm.initialize()

	var entry uint32
	switch {
	case vm.module.Start != nil:
		entry = *vm.module.Start
	default:
		idx, ok := vm.module.ExportedFunc("main")
		if !ok {
			return errs.NoEntry()
		}
		entry = idx
	}

	vm.logger.Debug("entering", zap.Uint32("func", entry))
	vm.invoke(entry)
	return nil
}

// Call invokes an exported function by name with raw operand-slot
// arguments, returning its results the same way. Arguments are typed by the
// export's function type.
func (vm *VM) Call(ctx context.Context, name string, args ...uint64) (results []uint64, err error) {
	defer vm.recovered(&err)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vm.initialize()

	idx, ok := vm.module.ExportedFunc(name)
	if !ok {
		return nil, errs.New(errs.PhaseLink, errs.KindNoEntry).
			Detail("no exported function %q", name).Build()
	}
	f := vm.funcs[idx]
	if len(args) != len(f.Type.Params) {
		return nil, errs.InvalidInput(errs.PhaseRun, "argument count mismatch for "+name)
	}

	vm.stack.PushN(args)
	vm.invoke(idx)
	return vm.stack.PopN(len(f.Type.Results)), nil
}

// invoke calls a registry function with its parameters already on the
// operand stack, and drives internal functions to completion.
func (vm *VM) invoke(idx uint32) {
	f := vm.funcs[idx]
	if f.IsHost() {
		vm.callHost(f)
		return
	}
	vm.callInternal(f)
	vm.mainLoop()
}

// mainLoop alternates frame advance and instruction dispatch until the
// frame active at entry pops.
func (vm *VM) mainLoop() {
	depth := vm.frames.depth()
	for vm.frames.depth() >= depth {
		cf := vm.frames.top()
		if cf.pc == len(cf.body) {
			vm.exitBlock()
			continue
		}
		instr := &cf.body[cf.pc]
		cf.pc++
		vm.execInstr(instr)
	}
}

func (vm *VM) recovered(err *error) {
	if r := recover(); r != nil {
		e, ok := r.(*errs.Error)
		if !ok {
			panic(r)
		}
		vm.logger.Error("execution aborted", zap.Error(e))
		*err = e
	}
}
