// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cpp

import "github.com/gogpu/kernelgen/kir"

// Options controls the emitted source.
type Options struct {
	// RestrictPointers marks buffer parameters __restrict__ on dialects
	// that support the qualifier, asserting that buffers do not alias.
	RestrictPointers bool
}

// DefaultOptions returns the default compilation options.
func DefaultOptions() Options {
	return Options{
		RestrictPointers: true,
	}
}

// Info carries launch metadata for a compiled kernel.
type Info struct {
	// EntryPoint is the emitted kernel function name, after keyword
	// escaping.
	EntryPoint string

	// SharedMemoryBytes is the kernel's static shared-memory request.
	SharedMemoryBytes uint32

	// MaxThreadsPerBlock echoes the signature's launch bound; zero means
	// unbounded.
	MaxThreadsPerBlock uint32
}

// Compile lowers one kernel into one self-contained source string for the
// given dialect. The kernel is read-only; concurrent Compile calls over
// the same kernel are safe. Two calls with identical inputs return
// byte-identical source.
//
// Compile assumes a well-formed kernel; run kir.Validate first when the
// input comes from an untrusted builder. A failed Compile returns no
// partial source.
func Compile(k *kir.Kernel, d Dialect, opts Options) (string, Info, error) {
	if k == nil || k.Body == nil {
		return "", Info{}, errorf(d, ErrInvalidSignature, "nil kernel")
	}
	if !d.valid() {
		return "", Info{}, errorf(d, ErrInternal, "unknown dialect %d", d)
	}

	w := newWriter(d)
	if err := w.lowerKernel(k, opts); err != nil {
		return "", Info{}, err
	}

	src, err := w.asm.finalize()
	if err != nil {
		return "", Info{}, err
	}

	return src, Info{
		EntryPoint:         w.entryName,
		SharedMemoryBytes:  k.Signature.SharedBytes(),
		MaxThreadsPerBlock: k.Signature.MaxThreadsPerBlock,
	}, nil
}
