// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cpp

import "github.com/gogpu/kernelgen/kir"

// Dialect selects the target C++ variant for one lowering pass. A pass
// lowers exactly one kernel for exactly one dialect; dialects are never
// mixed within a single emission.
type Dialect uint8

const (
	// CUDA targets nvcc-compilable CUDA C++.
	CUDA Dialect = iota

	// HIP targets hipcc-compilable HIP C++.
	HIP

	// Metal targets the Metal Shading Language's C++ dialect.
	Metal
)

// String returns the dialect name.
func (d Dialect) String() string {
	switch d {
	case CUDA:
		return "cuda"
	case HIP:
		return "hip"
	case Metal:
		return "metal"
	default:
		return "unknown"
	}
}

// valid reports whether d names a known dialect.
func (d Dialect) valid() bool {
	switch d {
	case CUDA, HIP, Metal:
		return true
	default:
		return false
	}
}

// descriptor is the read-only per-dialect policy table: keyword and
// qualifier spellings, header lines, and syntax switches. Intrinsic,
// atomic, and barrier spellings are resolved by exhaustive switches on the
// dialect so that auditing coverage stays a compile-time exercise.
type descriptor struct {
	// includes are header lines emitted for every kernel.
	includes []string

	// f16Include is an extra header emitted only when half precision is
	// used. Empty when the base includes already cover it.
	f16Include string

	// using lines follow the includes.
	using []string

	// kernelQualifier opens the kernel definition, up to and including the
	// return type.
	kernelQualifier string

	// launchBoundsFmt formats the launch bound; launchBoundsOwnLine places
	// it on its own line before the qualifier instead of inline after it.
	launchBoundsFmt     string
	launchBoundsOwnLine bool

	// helperQualifier prefixes generated helper functions.
	helperQualifier string

	sharedQualifier   string
	restrictQualifier string

	// indexType is the spelling of the 32-bit unsigned index type used by
	// the thread-index prologue.
	indexType string

	// maxBindings is the dialect's addressable parameter binding limit.
	maxBindings int

	// scalarByValue: scalars pass by value (CUDA/HIP) rather than through
	// an attributed constant reference (Metal).
	scalarByValue bool

	// bufferAttr: parameters carry [[buffer(n)]] binding attributes.
	bufferAttr bool

	// castCtor: conversions spell T(x) rather than static_cast<T>(x).
	castCtor bool

	// hasSwizzle: vectors support .xyz swizzle selection.
	hasSwizzle bool

	// makeVectorPrefix prefixes native vector constructor names.
	makeVectorPrefix string

	// warpSize is the fixed warp width used to derive the lane index.
	// Zero means the lane index arrives as an attributed kernel argument.
	warpSize uint32
}

var cudaDescriptor = descriptor{
	includes:        []string{"#include <cstdint>"},
	f16Include:      "#include <cuda_fp16.h>",
	kernelQualifier: `extern "C" __global__ void`,
	launchBoundsFmt: "__launch_bounds__(%d)",
	helperQualifier: "__device__ __forceinline__",
	sharedQualifier: "__shared__",

	restrictQualifier: "__restrict__",
	indexType:         "uint32_t",
	maxBindings:       256,
	scalarByValue:     true,
	makeVectorPrefix:  "make_",
	warpSize:          32,
}

var hipDescriptor = descriptor{
	includes:        []string{"#include <hip/hip_runtime.h>", "#include <cstdint>"},
	f16Include:      "#include <hip/hip_fp16.h>",
	kernelQualifier: `extern "C" __global__ void`,
	launchBoundsFmt: "__launch_bounds__(%d)",
	helperQualifier: "__device__ __forceinline__",
	sharedQualifier: "__shared__",

	restrictQualifier: "__restrict__",
	indexType:         "uint32_t",
	maxBindings:       256,
	scalarByValue:     true,
	makeVectorPrefix:  "make_",
	warpSize:          64,
}

var metalDescriptor = descriptor{
	includes:            []string{"#include <metal_stdlib>", "#include <simd/simd.h>"},
	using:               []string{"using namespace metal;"},
	kernelQualifier:     "kernel void",
	launchBoundsFmt:     "[[max_total_threads_per_threadgroup(%d)]]",
	launchBoundsOwnLine: true,
	helperQualifier:     "inline",
	sharedQualifier:     "threadgroup",
	indexType:           "uint",
	maxBindings:         31,
	bufferAttr:          true,
	castCtor:            true,
	hasSwizzle:          true,
}

// descriptorFor returns the dialect's policy table. Callers must have
// checked d.valid().
func descriptorFor(d Dialect) *descriptor {
	switch d {
	case HIP:
		return &hipDescriptor
	case Metal:
		return &metalDescriptor
	default:
		return &cudaDescriptor
	}
}

// intrinsic is one resolved built-in spelling: the native name, the
// expected IR argument count, and any extra arguments the dialect
// requires before or after the IR arguments. A non-empty helper is a
// generated function definition registered with the assembler on first
// use.
type intrinsic struct {
	name     string
	arity    int
	leading  []string
	trailing []string
	helper   string
}

// cudaShuffleMask is the full-warp participation mask required by the
// *_sync shuffle intrinsics.
const cudaShuffleMask = "0xffffffffu"

// builtinIntrinsic resolves an abstract built-in against a dialect and the
// scalar kind of its operands. A false return means the (builtin, kind)
// pair has no native lowering for the dialect.
//
//nolint:gocyclo,cyclop,funlen // One exhaustive table per dialect family.
func builtinIntrinsic(d Dialect, fn kir.Builtin, kind kir.ScalarKind) (intrinsic, bool) {
	// Cross-lane shuffles are kind-insensitive within each dialect.
	switch fn {
	case kir.BuiltinSubgroupShuffle, kir.BuiltinSubgroupShuffleDown, kir.BuiltinSubgroupShuffleXor:
		return shuffleIntrinsic(d, fn, kind)
	}

	if d == Metal {
		return metalIntrinsic(fn, kind)
	}
	return cudaIntrinsic(d, fn, kind)
}

func shuffleIntrinsic(d Dialect, fn kir.Builtin, kind kir.ScalarKind) (intrinsic, bool) {
	if kind == kir.Bool {
		return intrinsic{}, false
	}

	switch d {
	case CUDA:
		var name string
		switch fn {
		case kir.BuiltinSubgroupShuffle:
			name = "__shfl_sync"
		case kir.BuiltinSubgroupShuffleDown:
			name = "__shfl_down_sync"
		case kir.BuiltinSubgroupShuffleXor:
			name = "__shfl_xor_sync"
		}
		return intrinsic{name: name, arity: 2, leading: []string{cudaShuffleMask}}, true

	case HIP:
		var name string
		switch fn {
		case kir.BuiltinSubgroupShuffle:
			name = "__shfl"
		case kir.BuiltinSubgroupShuffleDown:
			name = "__shfl_down"
		case kir.BuiltinSubgroupShuffleXor:
			name = "__shfl_xor"
		}
		return intrinsic{name: name, arity: 2}, true

	default: // Metal
		var name string
		switch fn {
		case kir.BuiltinSubgroupShuffle:
			name = "simd_shuffle"
		case kir.BuiltinSubgroupShuffleDown:
			name = "simd_shuffle_down"
		case kir.BuiltinSubgroupShuffleXor:
			name = "simd_shuffle_xor"
		}
		return intrinsic{name: name, arity: 2}, true
	}
}

// clampHelper is the integer/float clamp polyfill for CUDA and HIP, which
// have no clamp in their device math libraries.
func clampHelper(desc *descriptor) string {
	return "template <typename T>\n" +
		desc.helperQualifier + " T _kg_clamp(T v, T lo, T hi) {\n" +
		"    return v < lo ? lo : (v > hi ? hi : v);\n" +
		"}\n"
}

// cudaIntrinsic covers CUDA and HIP, which share device math spellings.
//
//nolint:gocyclo,cyclop,funlen // Exhaustive (builtin, kind) table.
func cudaIntrinsic(d Dialect, fn kir.Builtin, kind kir.ScalarKind) (intrinsic, bool) {
	desc := descriptorFor(d)

	one := func(name string) (intrinsic, bool) { return intrinsic{name: name, arity: 1}, true }
	two := func(name string) (intrinsic, bool) { return intrinsic{name: name, arity: 2}, true }
	three := func(name string) (intrinsic, bool) { return intrinsic{name: name, arity: 3}, true }
	none := func() (intrinsic, bool) { return intrinsic{}, false }

	if fn == kir.BuiltinClamp {
		if kind == kir.Bool {
			return none()
		}
		return intrinsic{name: "_kg_clamp", arity: 3, helper: clampHelper(desc)}, true
	}

	switch kind {
	case kir.F32:
		switch fn {
		case kir.BuiltinSqrt:
			return one("sqrtf")
		case kir.BuiltinRsqrt:
			return one("rsqrtf")
		case kir.BuiltinExp:
			return one("expf")
		case kir.BuiltinExp2:
			return one("exp2f")
		case kir.BuiltinLog:
			return one("logf")
		case kir.BuiltinLog2:
			return one("log2f")
		case kir.BuiltinSin:
			return one("sinf")
		case kir.BuiltinCos:
			return one("cosf")
		case kir.BuiltinTanh:
			return one("tanhf")
		case kir.BuiltinErf:
			return one("erff")
		case kir.BuiltinPow:
			return two("powf")
		case kir.BuiltinFloor:
			return one("floorf")
		case kir.BuiltinCeil:
			return one("ceilf")
		case kir.BuiltinRound:
			return one("roundf")
		case kir.BuiltinTrunc:
			return one("truncf")
		case kir.BuiltinAbs:
			return one("fabsf")
		case kir.BuiltinMin:
			return two("fminf")
		case kir.BuiltinMax:
			return two("fmaxf")
		case kir.BuiltinFma:
			return three("fmaf")
		}

	case kir.F64:
		switch fn {
		case kir.BuiltinSqrt:
			return one("sqrt")
		case kir.BuiltinRsqrt:
			return one("rsqrt")
		case kir.BuiltinExp:
			return one("exp")
		case kir.BuiltinExp2:
			return one("exp2")
		case kir.BuiltinLog:
			return one("log")
		case kir.BuiltinLog2:
			return one("log2")
		case kir.BuiltinSin:
			return one("sin")
		case kir.BuiltinCos:
			return one("cos")
		case kir.BuiltinTanh:
			return one("tanh")
		case kir.BuiltinErf:
			return one("erf")
		case kir.BuiltinPow:
			return two("pow")
		case kir.BuiltinFloor:
			return one("floor")
		case kir.BuiltinCeil:
			return one("ceil")
		case kir.BuiltinRound:
			return one("round")
		case kir.BuiltinTrunc:
			return one("trunc")
		case kir.BuiltinAbs:
			return one("fabs")
		case kir.BuiltinMin:
			return two("fmin")
		case kir.BuiltinMax:
			return two("fmax")
		case kir.BuiltinFma:
			return three("fma")
		}

	case kir.F16:
		// The half-precision device library covers only part of the math
		// surface; the rest has no native lowering and fails fast.
		switch fn {
		case kir.BuiltinSqrt:
			return one("hsqrt")
		case kir.BuiltinRsqrt:
			return one("hrsqrt")
		case kir.BuiltinExp:
			return one("hexp")
		case kir.BuiltinExp2:
			return one("hexp2")
		case kir.BuiltinLog:
			return one("hlog")
		case kir.BuiltinLog2:
			return one("hlog2")
		case kir.BuiltinSin:
			return one("hsin")
		case kir.BuiltinCos:
			return one("hcos")
		case kir.BuiltinFloor:
			return one("hfloor")
		case kir.BuiltinCeil:
			return one("hceil")
		case kir.BuiltinRound:
			return one("hrint")
		case kir.BuiltinTrunc:
			return one("htrunc")
		case kir.BuiltinAbs:
			return one("__habs")
		case kir.BuiltinMin:
			return two("__hmin")
		case kir.BuiltinMax:
			return two("__hmax")
		case kir.BuiltinFma:
			return three("__hfma")
		}

	case kir.I32:
		switch fn {
		case kir.BuiltinAbs:
			return one("abs")
		case kir.BuiltinMin:
			return two("min")
		case kir.BuiltinMax:
			return two("max")
		}

	case kir.I64:
		switch fn {
		case kir.BuiltinAbs:
			return one("llabs")
		case kir.BuiltinMin:
			return two("min")
		case kir.BuiltinMax:
			return two("max")
		}

	case kir.U8, kir.U16, kir.U32, kir.U64, kir.I8, kir.I16:
		switch fn {
		case kir.BuiltinMin:
			return two("min")
		case kir.BuiltinMax:
			return two("max")
		}
	}

	return none()
}

// metalIntrinsic resolves built-ins for MSL, whose math library is
// overloaded across float widths and integer kinds.
//
//nolint:gocyclo,cyclop // Exhaustive (builtin, kind) table.
func metalIntrinsic(fn kir.Builtin, kind kir.ScalarKind) (intrinsic, bool) {
	one := func(name string) (intrinsic, bool) { return intrinsic{name: name, arity: 1}, true }
	two := func(name string) (intrinsic, bool) { return intrinsic{name: name, arity: 2}, true }
	three := func(name string) (intrinsic, bool) { return intrinsic{name: name, arity: 3}, true }
	none := func() (intrinsic, bool) { return intrinsic{}, false }

	if kind.IsFloat() {
		switch fn {
		case kir.BuiltinSqrt:
			return one("sqrt")
		case kir.BuiltinRsqrt:
			return one("rsqrt")
		case kir.BuiltinExp:
			return one("exp")
		case kir.BuiltinExp2:
			return one("exp2")
		case kir.BuiltinLog:
			return one("log")
		case kir.BuiltinLog2:
			return one("log2")
		case kir.BuiltinSin:
			return one("sin")
		case kir.BuiltinCos:
			return one("cos")
		case kir.BuiltinTanh:
			return one("tanh")
		case kir.BuiltinErf:
			// MSL has no erf.
			return none()
		case kir.BuiltinPow:
			return two("pow")
		case kir.BuiltinFloor:
			return one("floor")
		case kir.BuiltinCeil:
			return one("ceil")
		case kir.BuiltinRound:
			return one("round")
		case kir.BuiltinTrunc:
			return one("trunc")
		case kir.BuiltinAbs:
			return one("abs")
		case kir.BuiltinMin:
			return two("min")
		case kir.BuiltinMax:
			return two("max")
		case kir.BuiltinClamp:
			return three("clamp")
		case kir.BuiltinFma:
			return three("fma")
		}
		return none()
	}

	if kind.IsInteger() {
		switch fn {
		case kir.BuiltinAbs:
			if kind.IsSigned() {
				return one("abs")
			}
			return none()
		case kir.BuiltinMin:
			return two("min")
		case kir.BuiltinMax:
			return two("max")
		case kir.BuiltinClamp:
			return three("clamp")
		}
	}

	return none()
}

// atomicForm is one resolved atomic spelling.
type atomicForm struct {
	// name is the native function name.
	name string

	// explicitOrder appends memory_order_relaxed argument(s) (Metal).
	explicitOrder bool

	// atomicType, when non-empty, is the atomic pointee spelling the
	// address expression must be cast to (Metal).
	atomicType string
}

// atomicIntrinsic resolves an (atomic op, element kind) pair for a
// dialect. A false return means the pair has no native equivalent; the
// lowerer must fail rather than widen the element type.
//
//nolint:gocyclo,cyclop // Exhaustive (op, kind) table per dialect family.
func atomicIntrinsic(d Dialect, op kir.AtomicOp, kind kir.ScalarKind) (atomicForm, bool) {
	if d == Metal {
		return metalAtomic(op, kind)
	}

	ok := func(name string) (atomicForm, bool) { return atomicForm{name: name}, true }
	none := func() (atomicForm, bool) { return atomicForm{}, false }

	switch kind {
	case kir.I32, kir.U32:
		switch op {
		case kir.AtomicAdd:
			return ok("atomicAdd")
		case kir.AtomicSub:
			return ok("atomicSub")
		case kir.AtomicMin:
			return ok("atomicMin")
		case kir.AtomicMax:
			return ok("atomicMax")
		case kir.AtomicAnd:
			return ok("atomicAnd")
		case kir.AtomicOr:
			return ok("atomicOr")
		case kir.AtomicXor:
			return ok("atomicXor")
		case kir.AtomicExchange:
			return ok("atomicExch")
		case kir.AtomicCompareExchange:
			return ok("atomicCAS")
		}

	case kir.U64:
		switch op {
		case kir.AtomicAdd:
			return ok("atomicAdd")
		case kir.AtomicMin:
			return ok("atomicMin")
		case kir.AtomicMax:
			return ok("atomicMax")
		case kir.AtomicAnd:
			return ok("atomicAnd")
		case kir.AtomicOr:
			return ok("atomicOr")
		case kir.AtomicXor:
			return ok("atomicXor")
		case kir.AtomicExchange:
			return ok("atomicExch")
		case kir.AtomicCompareExchange:
			return ok("atomicCAS")
		}

	case kir.F32, kir.F64:
		// Floating-point hardware atomics cover addition only.
		if op == kir.AtomicAdd {
			return ok("atomicAdd")
		}
	}

	return none()
}

func metalAtomic(op kir.AtomicOp, kind kir.ScalarKind) (atomicForm, bool) {
	var atomicType string
	switch kind {
	case kir.I32:
		atomicType = "atomic_int"
	case kir.U32:
		atomicType = "atomic_uint"
	default:
		// MSL device atomics cover 32-bit integers only; in particular
		// there is no float atomic add.
		return atomicForm{}, false
	}

	ok := func(name string) (atomicForm, bool) {
		return atomicForm{name: name, explicitOrder: true, atomicType: atomicType}, true
	}

	switch op {
	case kir.AtomicAdd:
		return ok("atomic_fetch_add_explicit")
	case kir.AtomicSub:
		return ok("atomic_fetch_sub_explicit")
	case kir.AtomicMin:
		return ok("atomic_fetch_min_explicit")
	case kir.AtomicMax:
		return ok("atomic_fetch_max_explicit")
	case kir.AtomicAnd:
		return ok("atomic_fetch_and_explicit")
	case kir.AtomicOr:
		return ok("atomic_fetch_or_explicit")
	case kir.AtomicXor:
		return ok("atomic_fetch_xor_explicit")
	case kir.AtomicExchange:
		return ok("atomic_exchange_explicit")
	case kir.AtomicCompareExchange:
		return ok("atomic_compare_exchange_weak_explicit")
	default:
		return atomicForm{}, false
	}
}

// barrierLines returns the dialect's statements for a barrier, in emission
// order. Flags may select several fences; each occurrence in the IR emits
// its lines exactly once, in program order.
func barrierLines(d Dialect, flags kir.BarrierFlags) []string {
	if d == Metal {
		var lines []string
		if flags&kir.BarrierSubgroup != 0 {
			lines = append(lines, "simdgroup_barrier(mem_flags::mem_none);")
		}
		if flags&kir.BarrierShared != 0 {
			lines = append(lines, "threadgroup_barrier(mem_flags::mem_threadgroup);")
		}
		if flags&kir.BarrierGlobal != 0 {
			lines = append(lines, "threadgroup_barrier(mem_flags::mem_device);")
		}
		if len(lines) == 0 {
			lines = append(lines, "threadgroup_barrier(mem_flags::mem_none);")
		}
		return lines
	}

	var lines []string
	if flags&kir.BarrierSubgroup != 0 {
		lines = append(lines, "__syncwarp();")
	}
	if flags&kir.BarrierShared != 0 {
		lines = append(lines, "__syncthreads();")
	}
	if flags&kir.BarrierGlobal != 0 {
		lines = append(lines, "__threadfence();")
	}
	if len(lines) == 0 {
		lines = append(lines, "__syncthreads();")
	}
	return lines
}
