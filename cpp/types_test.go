// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cpp

import (
	"errors"
	"testing"

	"github.com/gogpu/kernelgen/kir"
)

func scalar(k kir.ScalarKind) kir.Scalar { return kir.Scalar{Kind: k} }

func vec(k kir.ScalarKind, w uint8) kir.Vector {
	return kir.Vector{Elem: scalar(k), Width: w}
}

// =============================================================================
// Test: Scalar type spellings
// =============================================================================

func TestRenderType_Scalars(t *testing.T) {
	tests := []struct {
		name    string
		kind    kir.ScalarKind
		dialect Dialect
		want    string
	}{
		{"cuda bool", kir.Bool, CUDA, "bool"},
		{"cuda i8", kir.I8, CUDA, "int8_t"},
		{"cuda i16", kir.I16, CUDA, "int16_t"},
		{"cuda i32", kir.I32, CUDA, "int32_t"},
		{"cuda i64", kir.I64, CUDA, "int64_t"},
		{"cuda u8", kir.U8, CUDA, "uint8_t"},
		{"cuda u32", kir.U32, CUDA, "uint32_t"},
		{"cuda u64", kir.U64, CUDA, "uint64_t"},
		{"cuda f16", kir.F16, CUDA, "__half"},
		{"cuda f32", kir.F32, CUDA, "float"},
		{"cuda f64", kir.F64, CUDA, "double"},
		{"hip f16", kir.F16, HIP, "__half"},
		{"hip u16", kir.U16, HIP, "uint16_t"},
		{"metal bool", kir.Bool, Metal, "bool"},
		{"metal i8", kir.I8, Metal, "char"},
		{"metal i16", kir.I16, Metal, "short"},
		{"metal i32", kir.I32, Metal, "int"},
		{"metal i64", kir.I64, Metal, "long"},
		{"metal u8", kir.U8, Metal, "uchar"},
		{"metal u16", kir.U16, Metal, "ushort"},
		{"metal u32", kir.U32, Metal, "uint"},
		{"metal u64", kir.U64, Metal, "ulong"},
		{"metal f16", kir.F16, Metal, "half"},
		{"metal f32", kir.F32, Metal, "float"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderType(scalar(tt.kind), tt.dialect)
			if err != nil {
				t.Fatalf("RenderType() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("RenderType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderType_MetalF64Unsupported(t *testing.T) {
	_, err := RenderType(scalar(kir.F64), Metal)
	if !errors.Is(err, &Error{Kind: ErrUnsupportedType}) {
		t.Errorf("RenderType(f64, Metal) error = %v, want UnsupportedType", err)
	}
}

// =============================================================================
// Test: Vector type spellings
// =============================================================================

func TestRenderType_Vectors(t *testing.T) {
	tests := []struct {
		name    string
		vec     kir.Vector
		dialect Dialect
		want    string
	}{
		{"cuda float4", vec(kir.F32, 4), CUDA, "float4"},
		{"cuda float3", vec(kir.F32, 3), CUDA, "float3"},
		{"cuda double2", vec(kir.F64, 2), CUDA, "double2"},
		{"cuda int4", vec(kir.I32, 4), CUDA, "int4"},
		{"cuda uint2", vec(kir.U32, 2), CUDA, "uint2"},
		{"cuda longlong3", vec(kir.I64, 3), CUDA, "longlong3"},
		{"cuda ulonglong4", vec(kir.U64, 4), CUDA, "ulonglong4"},
		{"cuda char2", vec(kir.I8, 2), CUDA, "char2"},
		{"cuda ushort4", vec(kir.U16, 4), CUDA, "ushort4"},
		{"cuda half2", vec(kir.F16, 2), CUDA, "__half2"},
		{"cuda half3 fallback", vec(kir.F16, 3), CUDA, Half4TypeName},
		{"cuda half4 fallback", vec(kir.F16, 4), CUDA, Half4TypeName},
		{"hip half3 fallback", vec(kir.F16, 3), HIP, Half4TypeName},
		{"metal float4", vec(kir.F32, 4), Metal, "float4"},
		{"metal half3", vec(kir.F16, 3), Metal, "half3"},
		{"metal half4", vec(kir.F16, 4), Metal, "half4"},
		{"metal uint2", vec(kir.U32, 2), Metal, "uint2"},
		{"metal bool2", vec(kir.Bool, 2), Metal, "bool2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderType(tt.vec, tt.dialect)
			if err != nil {
				t.Fatalf("RenderType() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("RenderType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVectorLayout_HalfFallback(t *testing.T) {
	info, err := VectorLayout(vec(kir.F16, 3), CUDA)
	if err != nil {
		t.Fatalf("VectorLayout() error: %v", err)
	}
	if !info.Fallback {
		t.Error("f16x3 on CUDA should report Fallback")
	}
	if info.PhysicalWidth != 4 {
		t.Errorf("PhysicalWidth = %d, want 4", info.PhysicalWidth)
	}

	native, err := VectorLayout(vec(kir.F32, 3), CUDA)
	if err != nil {
		t.Fatalf("VectorLayout() error: %v", err)
	}
	if native.Fallback || native.PhysicalWidth != 3 {
		t.Errorf("f32x3 layout = %+v, want native width 3", native)
	}
}

func TestVectorLayout_Errors(t *testing.T) {
	tests := []struct {
		name    string
		vec     kir.Vector
		dialect Dialect
		kind    ErrorKind
	}{
		{"width 1", vec(kir.F32, 1), CUDA, ErrUnsupportedType},
		{"width 5", vec(kir.F32, 5), Metal, ErrUnsupportedType},
		{"cuda bool vector", vec(kir.Bool, 4), CUDA, ErrUnsupportedType},
		{"metal double vector", vec(kir.F64, 2), Metal, ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VectorLayout(tt.vec, tt.dialect)
			if !errors.Is(err, &Error{Kind: tt.kind}) {
				t.Errorf("VectorLayout() error = %v, want %v", err, tt.kind)
			}
		})
	}
}

// =============================================================================
// Test: Pointer spellings
// =============================================================================

func TestRenderType_Pointers(t *testing.T) {
	tests := []struct {
		name    string
		typ     kir.Type
		dialect Dialect
		want    string
	}{
		{"cuda global", kir.Pointer{Pointee: scalar(kir.F32), Space: kir.SpaceGlobal}, CUDA, "float*"},
		{"cuda constant", kir.Pointer{Pointee: scalar(kir.F32), Space: kir.SpaceConstant}, CUDA, "const float*"},
		{"cuda shared", kir.Pointer{Pointee: scalar(kir.U32), Space: kir.SpaceShared}, CUDA, "uint32_t*"},
		{"cuda vector pointee", kir.Pointer{Pointee: vec(kir.F16, 4), Space: kir.SpaceGlobal}, CUDA, Half4TypeName + "*"},
		{"metal device", kir.Pointer{Pointee: scalar(kir.F32), Space: kir.SpaceGlobal}, Metal, "device float*"},
		{"metal constant", kir.Pointer{Pointee: scalar(kir.F32), Space: kir.SpaceConstant}, Metal, "constant float*"},
		{"metal threadgroup", kir.Pointer{Pointee: scalar(kir.I32), Space: kir.SpaceShared}, Metal, "threadgroup int*"},
		{"metal thread", kir.Pointer{Pointee: scalar(kir.F16), Space: kir.SpaceLocal}, Metal, "thread half*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderType(tt.typ, tt.dialect)
			if err != nil {
				t.Fatalf("RenderType() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("RenderType() = %q, want %q", got, tt.want)
			}
		})
	}
}

// =============================================================================
// Test: Vector literals
// =============================================================================

func TestRenderVectorLiteral(t *testing.T) {
	f32x3 := []kir.LiteralValue{
		kir.LiteralF32(1), kir.LiteralF32(2), kir.LiteralF32(3),
	}

	cuda, err := RenderVectorLiteral(f32x3, vec(kir.F32, 3), CUDA)
	if err != nil {
		t.Fatalf("RenderVectorLiteral() error: %v", err)
	}
	if cuda != "make_float3(1.0f, 2.0f, 3.0f)" {
		t.Errorf("CUDA literal = %q", cuda)
	}

	metal, err := RenderVectorLiteral(f32x3, vec(kir.F32, 3), Metal)
	if err != nil {
		t.Fatalf("RenderVectorLiteral() error: %v", err)
	}
	if metal != "float3(1.0f, 2.0f, 3.0f)" {
		t.Errorf("Metal literal = %q", metal)
	}
}

// A half vector of width 3 on CUDA widens to the generated struct with a
// zero in the unused lane.
func TestRenderVectorLiteral_HalfWidening(t *testing.T) {
	f16x3 := []kir.LiteralValue{
		kir.LiteralF16(1), kir.LiteralF16(2), kir.LiteralF16(3),
	}

	got, err := RenderVectorLiteral(f16x3, vec(kir.F16, 3), CUDA)
	if err != nil {
		t.Fatalf("RenderVectorLiteral() error: %v", err)
	}
	want := Half4CtorName + "(__float2half(1.0f), __float2half(2.0f), __float2half(3.0f), __float2half(0.0f))"
	if got != want {
		t.Errorf("widened literal = %q, want %q", got, want)
	}
}

func TestRenderVectorLiteral_Mismatches(t *testing.T) {
	t.Run("count", func(t *testing.T) {
		_, err := RenderVectorLiteral(
			[]kir.LiteralValue{kir.LiteralF32(1)}, vec(kir.F32, 2), CUDA)
		if !errors.Is(err, &Error{Kind: ErrUnsupportedType}) {
			t.Errorf("error = %v, want UnsupportedType", err)
		}
	})

	t.Run("element kind", func(t *testing.T) {
		_, err := RenderVectorLiteral(
			[]kir.LiteralValue{kir.LiteralF32(1), kir.LiteralI32(2)}, vec(kir.F32, 2), CUDA)
		if !errors.Is(err, &Error{Kind: ErrUnsupportedType}) {
			t.Errorf("error = %v, want UnsupportedType", err)
		}
	})
}
