// Package wasm provides WebAssembly binary format parsing and encoding for
// the MVP profile plus the sign-extension and non-trapping float-to-int
// conversion proposals.
//
// # Parsing
//
// Parse a module from binary:
//
//	data, _ := os.ReadFile("module.wasm")
//	module, err := wasm.ParseModule(data)
//
// Parse with structural validation:
//
//	module, err := wasm.ParseModuleValidate(data)
//
// The parser checks the \0asm header and version, walks sections in strictly
// ascending tag order (custom sections may appear anywhere), and rejects
// unknown tags, trailing section bytes and LEB128 overruns.
//
// # Instructions
//
// Decoded instructions are structured: block and loop immediates own their
// body, if owns both arms, and end/else bytes never appear in decoded
// output. Every opcode family carries a typed immediate struct, so the
// execution engine dispatches on the opcode byte and reads exactly the
// immediate shape it expects.
//
// # Encoding
//
// (*Module).Encode serialises a module back to binary; it is the inverse of
// ParseModule within this profile and is what the tests and the testbed use
// to build modules programmatically.
package wasm
