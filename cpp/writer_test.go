// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cpp

import (
	"errors"
	"strings"
	"testing"
)

// =============================================================================
// Test: Assembler sections
// =============================================================================

func TestAssembler_SectionOrder(t *testing.T) {
	a := newAssembler(CUDA)
	a.body.WriteString("__global__ void k() {\n}\n")
	a.registerHelper("__device__ int helper() { return 0; }\n")

	src, err := a.finalize()
	if err != nil {
		t.Fatalf("finalize() error: %v", err)
	}

	include := strings.Index(src, "#include <cstdint>")
	helper := strings.Index(src, "helper()")
	kernel := strings.Index(src, "__global__")
	if include < 0 || helper < 0 || kernel < 0 {
		t.Fatalf("missing section in output:\n%s", src)
	}
	if !(include < helper && helper < kernel) {
		t.Errorf("sections out of order: include=%d helper=%d kernel=%d", include, helper, kernel)
	}
}

func TestAssembler_FinalizeOnce(t *testing.T) {
	a := newAssembler(Metal)
	if _, err := a.finalize(); err != nil {
		t.Fatalf("first finalize() error: %v", err)
	}
	_, err := a.finalize()
	if !errors.Is(err, &Error{Kind: ErrAlreadyFinalized}) {
		t.Errorf("second finalize() error = %v, want AlreadyFinalized", err)
	}
}

// Registering the same helper from many instructions must emit exactly one
// definition.
func TestAssembler_HelperDedup(t *testing.T) {
	a := newAssembler(CUDA)
	helper := clampHelper(descriptorFor(CUDA))
	for i := 0; i < 16; i++ {
		a.registerHelper(helper)
	}

	src, err := a.finalize()
	if err != nil {
		t.Fatalf("finalize() error: %v", err)
	}
	if got := strings.Count(src, "_kg_clamp(T v, T lo, T hi)"); got != 1 {
		t.Errorf("helper emitted %d times, want 1", got)
	}
}

func TestAssembler_HelperOrder(t *testing.T) {
	a := newAssembler(CUDA)
	a.registerHelper("// first\n")
	a.registerHelper("// second\n")
	a.registerHelper("// first\n")

	src, err := a.finalize()
	if err != nil {
		t.Fatalf("finalize() error: %v", err)
	}
	if strings.Index(src, "// first") > strings.Index(src, "// second") {
		t.Errorf("helpers reordered:\n%s", src)
	}
}

// =============================================================================
// Test: Conditional half include
// =============================================================================

func TestAssembler_F16Include(t *testing.T) {
	plain := newAssembler(CUDA)
	src, err := plain.finalize()
	if err != nil {
		t.Fatalf("finalize() error: %v", err)
	}
	if strings.Contains(src, "cuda_fp16.h") {
		t.Error("half header emitted without any half usage")
	}

	half := newAssembler(CUDA)
	half.noteF16()
	src, err = half.finalize()
	if err != nil {
		t.Fatalf("finalize() error: %v", err)
	}
	if !strings.Contains(src, "#include <cuda_fp16.h>") {
		t.Error("half header missing despite half usage")
	}
}

func TestAssembler_MetalHeader(t *testing.T) {
	a := newAssembler(Metal)
	a.noteF16()
	src, err := a.finalize()
	if err != nil {
		t.Fatalf("finalize() error: %v", err)
	}
	if !strings.Contains(src, "#include <metal_stdlib>") {
		t.Error("metal_stdlib include missing")
	}
	if !strings.Contains(src, "using namespace metal;") {
		t.Error("using directive missing")
	}
}

// =============================================================================
// Test: Declaration tracking
// =============================================================================

func TestWriter_ScopeStack(t *testing.T) {
	w := newWriter(CUDA)

	w.markDeclared(1)
	if !w.isDeclared(1) {
		t.Error("id 1 should be declared")
	}

	w.pushScope()
	w.markDeclared(2)
	if !w.isDeclared(1) || !w.isDeclared(2) {
		t.Error("inner scope should see both ids")
	}

	w.popScope()
	if w.isDeclared(2) {
		t.Error("id 2 should not survive its scope")
	}
	if !w.isDeclared(1) {
		t.Error("id 1 should survive the inner scope")
	}
}
