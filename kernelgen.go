// Package kernelgen provides a Pure Go compute-kernel compiler.
//
// kernelgen lowers a typed kernel IR to C++ source for multiple GPU
// toolchains:
//   - CUDA: nvcc-compilable CUDA C++
//   - HIP: hipcc-compilable HIP C++
//   - Metal: the Metal Shading Language C++ dialect
//
// The package provides a simple, high-level API as well as lower-level
// access to the individual stages.
//
// Example usage:
//
//	b := kir.NewBuilder()
//	out := b.Named("out", kir.Pointer{Pointee: kir.Scalar{Kind: kir.F32}, Space: kir.SpaceGlobal})
//	x := b.Local(kir.Scalar{Kind: kir.F32})
//	y := b.Local(kir.Scalar{Kind: kir.F32})
//
//	body := &kir.Scope{}
//	body.Push(
//		kir.Load{Ptr: out, Index: kir.GlobalIndex, Result: x},
//		kir.CallBuiltin{Fn: kir.BuiltinSqrt, Args: []kir.Operand{x}, Result: y},
//		kir.Store{Ptr: out, Index: kir.GlobalIndex, Value: y},
//	)
//
//	kernel := &kir.Kernel{
//		Signature: kir.Signature{
//			Name:   "sqrt_inplace",
//			Params: []kir.Param{{Var: out, Binding: 0}},
//		},
//		Body: body,
//	}
//
//	src, info, err := kernelgen.Compile(kernel, kernelgen.DefaultOptions())
//	if err != nil {
//		log.Fatal(err)
//	}
//
// For direct control over a single dialect pass, use the cpp package:
//
//	src, info, err := cpp.Compile(kernel, cpp.Metal, cpp.DefaultOptions())
package kernelgen

import (
	"fmt"

	"github.com/gogpu/kernelgen/cpp"
	"github.com/gogpu/kernelgen/kir"
)

// Dialect selects the target C++ variant.
type Dialect = cpp.Dialect

// Supported dialects.
const (
	CUDA  = cpp.CUDA
	HIP   = cpp.HIP
	Metal = cpp.Metal
)

// Info carries launch metadata for a compiled kernel.
type Info = cpp.Info

// CompileOptions configures kernel compilation.
type CompileOptions struct {
	// Dialect is the target C++ variant (default: CUDA).
	Dialect Dialect

	// RestrictPointers marks buffer parameters non-aliasing on dialects
	// with a restrict qualifier.
	RestrictPointers bool

	// Validate enables IR validation before code generation.
	Validate bool
}

// DefaultOptions returns sensible default options.
func DefaultOptions() CompileOptions {
	return CompileOptions{
		Dialect:          cpp.CUDA,
		RestrictPointers: true,
		Validate:         true,
	}
}

// Compile lowers a kernel to C++ source using the given options.
//
// The compilation pipeline is:
//  1. Validate IR (if enabled)
//  2. Lower IR to dialect source text
func Compile(kernel *kir.Kernel, opts CompileOptions) (string, Info, error) {
	if opts.Validate {
		if errs := kir.Validate(kernel); len(errs) > 0 {
			return "", Info{}, fmt.Errorf("validation failed: %w", &errs[0])
		}
	}

	src, info, err := cpp.Compile(kernel, opts.Dialect, cpp.Options{
		RestrictPointers: opts.RestrictPointers,
	})
	if err != nil {
		return "", Info{}, fmt.Errorf("code generation error: %w", err)
	}
	return src, info, nil
}

// Validate validates a kernel for correctness.
//
// Validation checks include:
//   - Definition order (no read before write)
//   - Single assignment outside mutable variables
//   - Binding uniqueness within a signature
//   - Vector lane and shuffle pattern bounds
//
// Returns a slice of validation errors. If the slice is empty, validation
// passed.
func Validate(kernel *kir.Kernel) []kir.ValidationError {
	return kir.Validate(kernel)
}
