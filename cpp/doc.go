// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package cpp provides C++ source generation from kernelgen IR.
//
// The package lowers one compute kernel into one self-contained
// translation unit for a C++ GPU dialect: CUDA, HIP, or Metal Shading
// Language. Dialects differ only in spelling, captured by read-only
// per-dialect tables; a single lowering engine walks the IR once per
// (kernel, dialect) pair.
//
// # Compiling a kernel
//
//	src, info, err := cpp.Compile(kernel, cpp.CUDA, cpp.DefaultOptions())
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Compile is deterministic: identical inputs yield byte-identical source.
// A failed compile returns a *cpp.Error carrying an ErrorKind and never
// partial source. Match kinds with errors.Is:
//
//	if errors.Is(err, &cpp.Error{Kind: cpp.ErrUnsupportedAtomic}) {
//		// fall back to a non-atomic strategy
//	}
//
// # Dialect coverage
//
// The lowering covers:
//   - Scalar types from bool through f64, with f64 rejected on Metal
//   - Vector types of width 2..4, widening CUDA/HIP half vectors of
//     width 3 and 4 to a generated aligned struct
//   - Global, shared, local, and constant address spaces
//   - Math built-ins, cross-lane shuffles, atomics, and barriers
//   - Structured control flow: if, counted loops, while, infinite loops
//
// Unsupported (operation, type, dialect) combinations fail fast rather
// than emitting approximate code; in particular atomics never widen
// their element type.
package cpp
