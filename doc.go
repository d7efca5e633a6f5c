// Package wasminterp is an interpreter for WebAssembly MVP modules, plus
// the sign-extension and non-trapping float-to-int conversion proposals.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	wasminterp/          Root package (documentation only)
//	├── wasm/            Binary format: decoder, encoder, instruction model,
//	│                    structural validation
//	├── engine/          Execution engine: operand stack, control stack,
//	│                    linear memory, table, globals, dispatch loop
//	├── host/            Host-function registry and the built-in env module
//	├── dump/            Textual section dumper
//	├── errors/          Structured error and trap taxonomy
//	└── cmd/wasmrun/     CLI driver and interactive inspector
//
// # Quick Start
//
// Decode and execute a module:
//
//	data, _ := os.ReadFile("module.wasm")
//	m, err := wasm.ParseModuleValidate(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	vm, err := engine.New(m)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := vm.Run(context.Background()); err != nil {
//	    log.Fatal(err) // trap or assert failure
//	}
//
// Execution enters the module's start function if declared, otherwise the
// export named "main". The host side is a registry keyed by
// (module-name, member-name); the default registry carries the `env`
// module: print_char and the assert family.
package wasminterp
