// Package host provides the host-function layer: a registry keyed by
// (module-name, member-name) and the built-in `env` module with the
// print/assert bindings the engine links at initialisation.
//
// Adapters exchange values as raw 64-bit operand slots, marshalled
// left-to-right per the function type; the engine does the slot
// packing/unpacking. Adapters return an error to abort execution (the
// assert family does this on mismatch) and must not re-enter the engine.
package host
