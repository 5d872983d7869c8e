// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cpp

import "strings"

// UnnamedIdentifier is the default name for empty identifiers.
const UnnamedIdentifier = "_unnamed"

// kernelgen helper and prologue names, reserved so user identifiers can
// never collide with generated code.
const (
	ClampHelperName    = "_kg_clamp"
	Half4TypeName      = "_kg_half4"
	Half4CtorName      = "_kg_make_half4"
	GlobalIndexName    = "_kg_global_id"
	LocalIndexName     = "_kg_local_id"
	BlockIndexName     = "_kg_block_id"
	BlockDimName       = "_kg_block_dim"
	LaneIndexName      = "_kg_lane_id"
	CompareExchangeVar = "_kg_expected"
)

// cppKeywords are C++ reserved words plus spellings every target's
// standard headers claim. Shared by all three dialects.
var cppKeywords = map[string]struct{}{
	"alignas": {}, "alignof": {}, "asm": {}, "auto": {}, "bool": {},
	"break": {}, "case": {}, "catch": {}, "char": {}, "class": {},
	"const": {}, "constexpr": {}, "continue": {}, "default": {},
	"delete": {}, "do": {}, "double": {}, "else": {}, "enum": {},
	"explicit": {}, "extern": {}, "false": {}, "float": {}, "for": {},
	"friend": {}, "goto": {}, "if": {}, "inline": {}, "int": {},
	"long": {}, "namespace": {}, "new": {}, "nullptr": {},
	"operator": {}, "private": {}, "protected": {}, "public": {},
	"register": {}, "return": {}, "short": {}, "signed": {},
	"sizeof": {}, "static": {}, "struct": {}, "switch": {},
	"template": {}, "this": {}, "throw": {}, "true": {}, "try": {},
	"typedef": {}, "typeid": {}, "typename": {}, "union": {},
	"unsigned": {}, "using": {}, "virtual": {}, "void": {},
	"volatile": {}, "while": {},
	"int8_t": {}, "int16_t": {}, "int32_t": {}, "int64_t": {},
	"uint8_t": {}, "uint16_t": {}, "uint32_t": {}, "uint64_t": {},
	"size_t": {}, "min": {}, "max": {}, "abs": {}, "sqrt": {},
}

// cudaKeywords are identifiers claimed by the CUDA/HIP programming model.
var cudaKeywords = map[string]struct{}{
	"__global__": {}, "__device__": {}, "__host__": {}, "__shared__": {},
	"__constant__": {}, "__restrict__": {}, "__managed__": {},
	"__launch_bounds__": {}, "__forceinline__": {},
	"threadIdx": {}, "blockIdx": {}, "blockDim": {}, "gridDim": {},
	"warpSize": {}, "half": {}, "half2": {},
	"float2": {}, "float3": {}, "float4": {},
	"double2": {}, "double3": {}, "double4": {},
	"int2": {}, "int3": {}, "int4": {},
	"uint2": {}, "uint3": {}, "uint4": {},
	"char2": {}, "char3": {}, "char4": {},
	"uchar2": {}, "uchar3": {}, "uchar4": {},
	"short2": {}, "short3": {}, "short4": {},
	"ushort2": {}, "ushort3": {}, "ushort4": {},
	"longlong2": {}, "longlong3": {}, "longlong4": {},
	"ulonglong2": {}, "ulonglong3": {}, "ulonglong4": {},
	"dim3": {},
}

// metalKeywords are identifiers claimed by MSL on top of the C++ core.
var metalKeywords = map[string]struct{}{
	"kernel": {}, "vertex": {}, "fragment": {}, "device": {},
	"constant": {}, "thread": {}, "threadgroup": {}, "ray_data": {},
	"half": {}, "uchar": {}, "ushort": {}, "uint": {}, "ulong": {},
	"half2": {}, "half3": {}, "half4": {},
	"float2": {}, "float3": {}, "float4": {},
	"char2": {}, "char3": {}, "char4": {},
	"uchar2": {}, "uchar3": {}, "uchar4": {},
	"short2": {}, "short3": {}, "short4": {},
	"ushort2": {}, "ushort3": {}, "ushort4": {},
	"int2": {}, "int3": {}, "int4": {},
	"uint2": {}, "uint3": {}, "uint4": {},
	"long2": {}, "long3": {}, "long4": {},
	"metal": {}, "simd": {}, "texture1d": {}, "texture2d": {},
	"texture3d": {}, "sampler": {}, "atomic_int": {}, "atomic_uint": {},
	"mem_flags": {}, "clamp": {}, "fma": {}, "as_type": {},
}

// isReserved reports whether name collides with a reserved word of the
// dialect, with a helper/prologue name, or with the C++ core.
func isReserved(d Dialect, name string) bool {
	if _, ok := cppKeywords[name]; ok {
		return true
	}
	if len(name) >= 3 && name[:3] == "_kg" {
		return true
	}
	switch d {
	case Metal:
		_, ok := metalKeywords[name]
		return ok
	default:
		_, ok := cudaKeywords[name]
		return ok
	}
}

// escapeName makes an identifier safe for the dialect. Leading
// underscores are trimmed so no user name can land in the C++ "__"
// space or the _kg helper namespace; reserved words get a trailing
// underscore. Uniqueness is the namer's job.
func escapeName(d Dialect, name string) string {
	name = strings.TrimLeft(name, "_")
	if name == "" {
		return UnnamedIdentifier
	}
	if isReserved(d, name) {
		return name + "_"
	}
	return name
}
