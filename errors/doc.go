// Package errors provides the structured error type shared by the execution
// engine and the host layer. The decoder and validator in package wasm
// return plain errors and do not use this type.
//
// Every error carries a Phase (where in the pipeline it happened) and a Kind
// (what went wrong). Trap kinds correspond to the fatal runtime errors the
// bytecode specification defines; IsTrap reports whether an error is one.
//
// Errors compare with errors.Is on (Phase, Kind), so callers can match a
// category without caring about the detail text:
//
//	if errors.Is(err, &errs.Error{Phase: errs.PhaseRun, Kind: errs.KindDivideByZero}) {
//	    ...
//	}
package errors
