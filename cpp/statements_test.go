// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cpp

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/kernelgen/kir"
)

// lowerBody lowers a scope with the given parameters pre-declared and
// returns the emitted body text.
func lowerBody(t *testing.T, d Dialect, params []*kir.Variable, s *kir.Scope) string {
	t.Helper()
	w := newWriter(d)
	for _, p := range params {
		w.markDeclared(p.ID)
		w.names[p.ID] = w.namer.call(p.Name)
	}
	w.scanWrites(s)
	if err := w.lowerScope(s); err != nil {
		t.Fatalf("lowerScope() error: %v", err)
	}
	return w.asm.body.String()
}

func f32Ptr() kir.Pointer {
	return kir.Pointer{Pointee: kir.Scalar{Kind: kir.F32}, Space: kir.SpaceGlobal}
}

// =============================================================================
// Test: Declaration at first write
// =============================================================================

func TestLower_ConstDeclaration(t *testing.T) {
	b := kir.NewBuilder()
	out := b.Named("out", f32Ptr())
	x := b.Named("x", kir.Scalar{Kind: kir.F32})
	y := b.Named("y", kir.Scalar{Kind: kir.F32})

	s := &kir.Scope{}
	s.Push(
		kir.Load{Ptr: out, Index: kir.GlobalIndex, Result: x},
		kir.Binary{Op: kir.OpAdd, LHS: x, RHS: x, Result: y},
		kir.Store{Ptr: out, Index: kir.GlobalIndex, Value: y},
	)

	got := lowerBody(t, CUDA, []*kir.Variable{out}, s)
	mustContain(t, got, "const float x = out[_kg_global_id];")
	mustContain(t, got, "const float y = x + x;")
	mustContain(t, got, "out[_kg_global_id] = y;")
}

func TestLower_MutableReassignment(t *testing.T) {
	b := kir.NewBuilder()
	out := b.Named("out", f32Ptr())
	acc := b.Mutable("acc", kir.Scalar{Kind: kir.F32})

	s := &kir.Scope{}
	s.Push(
		kir.Load{Ptr: out, Index: kir.GlobalIndex, Result: acc},
		kir.Binary{Op: kir.OpMul, LHS: acc, RHS: acc, Result: acc},
	)

	got := lowerBody(t, CUDA, []*kir.Variable{out}, s)
	mustContain(t, got, "float acc = out[_kg_global_id];")
	mustNotContain(t, got, "const float acc")
	mustContain(t, got, "acc = acc * acc;")
	// The reassignment must not redeclare.
	if strings.Count(got, "float acc") != 1 {
		t.Errorf("acc declared more than once:\n%s", got)
	}
}

// =============================================================================
// Test: Direct dereference
// =============================================================================

// Memory operations with no index dereference the pointer itself.
func TestLower_DirectDereference(t *testing.T) {
	b := kir.NewBuilder()
	cell := b.Named("cell", f32Ptr())
	x := b.Named("x", kir.Scalar{Kind: kir.F32})

	s := &kir.Scope{}
	s.Push(
		kir.Load{Ptr: cell, Result: x},
		kir.Store{Ptr: cell, Value: x},
	)

	got := lowerBody(t, CUDA, []*kir.Variable{cell}, s)
	mustContain(t, got, "const float x = (*cell);")
	mustContain(t, got, "(*cell) = x;")
}

func TestLower_DirectDereferenceAtomic(t *testing.T) {
	u32Ptr := kir.Pointer{Pointee: kir.Scalar{Kind: kir.U32}, Space: kir.SpaceGlobal}
	one := kir.Const{Value: kir.LiteralU32(1)}

	b := kir.NewBuilder()
	counter := b.Named("counter", u32Ptr)
	s := &kir.Scope{}
	s.Push(kir.Atomic{Op: kir.AtomicAdd, Ptr: counter, Value: one})

	got := lowerBody(t, CUDA, []*kir.Variable{counter}, s)
	mustContain(t, got, "atomicAdd(&(*counter), 1u);")

	bm := kir.NewBuilder()
	mcounter := bm.Named("counter", u32Ptr)
	sm := &kir.Scope{}
	sm.Push(kir.Atomic{Op: kir.AtomicAdd, Ptr: mcounter, Value: one})

	metal := lowerBody(t, Metal, []*kir.Variable{mcounter}, sm)
	mustContain(t, metal, "atomic_fetch_add_explicit((device atomic_uint*)&(*counter), 1u, memory_order_relaxed);")
}

// Atomics through a shared-space pointer cast to the threadgroup address
// space on Metal.
func TestLower_SharedAtomic(t *testing.T) {
	sharedU32 := kir.Pointer{Pointee: kir.Scalar{Kind: kir.U32}, Space: kir.SpaceShared}
	one := kir.Const{Value: kir.LiteralU32(1)}

	b := kir.NewBuilder()
	counts := b.Named("counts", sharedU32)
	s := &kir.Scope{}
	s.Push(kir.Atomic{Op: kir.AtomicAdd, Ptr: counts, Index: kir.LocalIndex, Value: one})

	metal := lowerBody(t, Metal, []*kir.Variable{counts}, s)
	mustContain(t, metal, "atomic_fetch_add_explicit((threadgroup atomic_uint*)&counts[_kg_local_id], 1u, memory_order_relaxed);")
}

// =============================================================================
// Test: Control flow
// =============================================================================

func TestLower_IfElse(t *testing.T) {
	b := kir.NewBuilder()
	out := b.Named("out", f32Ptr())
	cond := b.Named("cond", kir.Scalar{Kind: kir.Bool})

	then := &kir.Scope{}
	then.Push(kir.Store{Ptr: out, Index: kir.GlobalIndex, Value: kir.Const{Value: kir.LiteralF32(1)}})
	els := &kir.Scope{}
	els.Push(kir.Store{Ptr: out, Index: kir.GlobalIndex, Value: kir.Const{Value: kir.LiteralF32(2)}})

	s := &kir.Scope{}
	s.Push(kir.If{Cond: cond, Then: then, Else: els})

	got := lowerBody(t, CUDA, []*kir.Variable{out, cond}, s)
	mustContain(t, got, "if (cond) {\n")
	mustContain(t, got, "} else {\n")
	mustContain(t, got, "out[_kg_global_id] = 1.0f;")
	mustContain(t, got, "out[_kg_global_id] = 2.0f;")
}

func TestLower_ForLoop(t *testing.T) {
	b := kir.NewBuilder()
	out := b.Named("out", f32Ptr())
	i := b.Mutable("i", kir.Scalar{Kind: kir.U32})

	body := &kir.Scope{}
	body.Push(kir.Store{Ptr: out, Index: i, Value: kir.Const{Value: kir.LiteralF32(0)}})

	s := &kir.Scope{}
	s.Push(kir.For{
		Counter: i,
		Start:   kir.Const{Value: kir.LiteralU32(0)},
		End:     kir.Const{Value: kir.LiteralU32(16)},
		Step:    kir.Const{Value: kir.LiteralU32(4)},
		Body:    body,
	})

	got := lowerBody(t, CUDA, []*kir.Variable{out}, s)
	mustContain(t, got, "for (uint32_t i = 0u; i < 16u; i += 4u) {")
	mustContain(t, got, "out[i] = 0.0f;")
}

func TestLower_WhileAndLoop(t *testing.T) {
	b := kir.NewBuilder()
	out := b.Named("out", f32Ptr())
	cond := b.Named("cond", kir.Scalar{Kind: kir.Bool})

	whileBody := &kir.Scope{}
	whileBody.Push(kir.Continue{})
	loopBody := &kir.Scope{}
	loopBody.Push(kir.Break{})

	s := &kir.Scope{}
	s.Push(
		kir.While{Cond: cond, Body: whileBody},
		kir.Loop{Body: loopBody},
		kir.Return{},
	)

	got := lowerBody(t, CUDA, []*kir.Variable{out, cond}, s)
	mustContain(t, got, "while (cond) {\n")
	mustContain(t, got, "continue;")
	mustContain(t, got, "while (true) {\n")
	mustContain(t, got, "break;")
	mustContain(t, got, "return;")
}

// =============================================================================
// Test: Atomics
// =============================================================================

func TestLower_AtomicAdd(t *testing.T) {
	b := kir.NewBuilder()
	hist := b.Named("hist", kir.Pointer{Pointee: kir.Scalar{Kind: kir.U32}, Space: kir.SpaceGlobal})
	old := b.Named("old", kir.Scalar{Kind: kir.U32})

	s := &kir.Scope{}
	s.Push(kir.Atomic{
		Op:     kir.AtomicAdd,
		Ptr:    hist,
		Index:  kir.GlobalIndex,
		Value:  kir.Const{Value: kir.LiteralU32(1)},
		Result: old,
	})

	cuda := lowerBody(t, CUDA, []*kir.Variable{hist}, s)
	mustContain(t, cuda, "const uint32_t old = atomicAdd(&hist[_kg_global_id], 1u);")

	metal := lowerBody(t, Metal, []*kir.Variable{hist}, s)
	mustContain(t, metal,
		"const uint old = atomic_fetch_add_explicit((device atomic_uint*)&hist[_kg_global_id], 1u, memory_order_relaxed);")
}

// A discarded atomic result emits a bare statement.
func TestLower_AtomicNoResult(t *testing.T) {
	b := kir.NewBuilder()
	hist := b.Named("hist", kir.Pointer{Pointee: kir.Scalar{Kind: kir.I32}, Space: kir.SpaceGlobal})

	s := &kir.Scope{}
	s.Push(kir.Atomic{
		Op:    kir.AtomicMax,
		Ptr:   hist,
		Index: kir.GlobalIndex,
		Value: kir.Const{Value: kir.LiteralI32(7)},
	})

	got := lowerBody(t, CUDA, []*kir.Variable{hist}, s)
	mustContain(t, got, "atomicMax(&hist[_kg_global_id], 7);\n")
}

func TestLower_CompareExchange(t *testing.T) {
	b := kir.NewBuilder()
	slots := b.Named("slots", kir.Pointer{Pointee: kir.Scalar{Kind: kir.I32}, Space: kir.SpaceGlobal})
	old := b.Named("old", kir.Scalar{Kind: kir.I32})

	s := &kir.Scope{}
	s.Push(kir.Atomic{
		Op:      kir.AtomicCompareExchange,
		Ptr:     slots,
		Index:   kir.GlobalIndex,
		Compare: kir.Const{Value: kir.LiteralI32(0)},
		Value:   kir.Const{Value: kir.LiteralI32(1)},
		Result:  old,
	})

	cuda := lowerBody(t, CUDA, []*kir.Variable{slots}, s)
	mustContain(t, cuda, "const int32_t old = atomicCAS(&slots[_kg_global_id], 0, 1);")

	// Metal reports the original value through the expected slot, so the
	// lowering stages it in a temporary.
	metal := lowerBody(t, Metal, []*kir.Variable{slots}, s)
	mustContain(t, metal, "int _kg_expected = 0;")
	mustContain(t, metal,
		"atomic_compare_exchange_weak_explicit((device atomic_int*)&slots[_kg_global_id], &_kg_expected, 1, memory_order_relaxed, memory_order_relaxed);")
	mustContain(t, metal, "const int old = _kg_expected;")
}

func TestLower_AtomicUnsupported(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		op      kir.AtomicOp
		kind    kir.ScalarKind
	}{
		{"metal f32 add", Metal, kir.AtomicAdd, kir.F32},
		{"metal u64 add", Metal, kir.AtomicAdd, kir.U64},
		{"cuda f32 min", CUDA, kir.AtomicMin, kir.F32},
		{"cuda f64 xor", CUDA, kir.AtomicXor, kir.F64},
		{"cuda u16 add", CUDA, kir.AtomicAdd, kir.U16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := kir.NewBuilder()
			buf := b.Named("buf", kir.Pointer{Pointee: kir.Scalar{Kind: tt.kind}, Space: kir.SpaceGlobal})

			s := &kir.Scope{}
			s.Push(kir.Atomic{
				Op:    tt.op,
				Ptr:   buf,
				Index: kir.GlobalIndex,
				Value: buf, // value text is irrelevant; resolution fails first
			})

			w := newWriter(tt.dialect)
			w.markDeclared(buf.ID)
			w.names[buf.ID] = "buf"
			err := w.lowerScope(s)
			if !errors.Is(err, &Error{Kind: ErrUnsupportedAtomic}) {
				t.Errorf("error = %v, want UnsupportedAtomic", err)
			}
		})
	}
}

// =============================================================================
// Test: Barriers
// =============================================================================

func TestLower_Barriers(t *testing.T) {
	s := &kir.Scope{}
	s.Push(
		kir.Barrier{Flags: kir.BarrierShared},
		kir.Barrier{Flags: kir.BarrierShared | kir.BarrierGlobal},
		kir.Barrier{Flags: kir.BarrierSubgroup},
	)

	cuda := lowerBody(t, CUDA, nil, s)
	if got := strings.Count(cuda, "__syncthreads();"); got != 2 {
		t.Errorf("__syncthreads count = %d, want 2", got)
	}
	mustContain(t, cuda, "__threadfence();")
	mustContain(t, cuda, "__syncwarp();")

	metal := lowerBody(t, Metal, nil, s)
	if got := strings.Count(metal, "threadgroup_barrier(mem_flags::mem_threadgroup);"); got != 2 {
		t.Errorf("threadgroup barrier count = %d, want 2", got)
	}
	mustContain(t, metal, "threadgroup_barrier(mem_flags::mem_device);")
	mustContain(t, metal, "simdgroup_barrier(mem_flags::mem_none);")
}

// =============================================================================
// Test: Select
// =============================================================================

func TestLower_Select(t *testing.T) {
	b := kir.NewBuilder()
	out := b.Named("out", f32Ptr())
	cond := b.Named("cond", kir.Scalar{Kind: kir.Bool})
	r := b.Named("r", kir.Scalar{Kind: kir.F32})

	s := &kir.Scope{}
	s.Push(
		kir.Select{
			Cond:   cond,
			Then:   kir.Const{Value: kir.LiteralF32(1)},
			Else:   kir.Const{Value: kir.LiteralF32(0)},
			Result: r,
		},
		kir.Store{Ptr: out, Index: kir.GlobalIndex, Value: r},
	)

	got := lowerBody(t, CUDA, []*kir.Variable{out, cond}, s)
	mustContain(t, got, "const float r = cond ? 1.0f : 0.0f;")
}
