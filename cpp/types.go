// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cpp

import (
	"fmt"

	"github.com/gogpu/kernelgen/kir"
)

// half4Helper is the aligned 4-wide half vector CUDA and HIP fall back to,
// since their headers stop at __half2.
const half4Helper = "struct alignas(8) _kg_half4 {\n" +
	"    __half x, y, z, w;\n" +
	"};\n"

func half4CtorHelper(desc *descriptor) string {
	return desc.helperQualifier + " _kg_half4 _kg_make_half4(__half x, __half y, __half z, __half w) {\n" +
		"    _kg_half4 v;\n" +
		"    v.x = x;\n" +
		"    v.y = y;\n" +
		"    v.z = z;\n" +
		"    v.w = w;\n" +
		"    return v;\n" +
		"}\n"
}

// scalarTypeName returns the dialect's spelling for a scalar kind.
func scalarTypeName(d Dialect, k kir.ScalarKind) (string, error) {
	if d == Metal {
		switch k {
		case kir.Bool:
			return "bool", nil
		case kir.I8:
			return "char", nil
		case kir.I16:
			return "short", nil
		case kir.I32:
			return "int", nil
		case kir.I64:
			return "long", nil
		case kir.U8:
			return "uchar", nil
		case kir.U16:
			return "ushort", nil
		case kir.U32:
			return "uint", nil
		case kir.U64:
			return "ulong", nil
		case kir.F16:
			return "half", nil
		case kir.F32:
			return "float", nil
		case kir.F64:
			// MSL has no double.
			return "", errorf(d, ErrUnsupportedType, "scalar %s has no Metal spelling", k)
		}
		return "", errorf(d, ErrUnsupportedType, "unknown scalar kind %d", k)
	}

	switch k {
	case kir.Bool:
		return "bool", nil
	case kir.I8:
		return "int8_t", nil
	case kir.I16:
		return "int16_t", nil
	case kir.I32:
		return "int32_t", nil
	case kir.I64:
		return "int64_t", nil
	case kir.U8:
		return "uint8_t", nil
	case kir.U16:
		return "uint16_t", nil
	case kir.U32:
		return "uint32_t", nil
	case kir.U64:
		return "uint64_t", nil
	case kir.F16:
		return "__half", nil
	case kir.F32:
		return "float", nil
	case kir.F64:
		return "double", nil
	}
	return "", errorf(d, ErrUnsupportedType, "unknown scalar kind %d", k)
}

// cudaVectorBase returns the element name CUDA/HIP built-in vector types
// are derived from (float -> float4, long long -> longlong4).
func cudaVectorBase(k kir.ScalarKind) (string, bool) {
	switch k {
	case kir.I8:
		return "char", true
	case kir.I16:
		return "short", true
	case kir.I32:
		return "int", true
	case kir.I64:
		return "longlong", true
	case kir.U8:
		return "uchar", true
	case kir.U16:
		return "ushort", true
	case kir.U32:
		return "uint", true
	case kir.U64:
		return "ulonglong", true
	case kir.F32:
		return "float", true
	case kir.F64:
		return "double", true
	default:
		return "", false
	}
}

// VectorInfo describes how a dialect realizes an IR vector type.
type VectorInfo struct {
	// TypeName is the emitted type spelling.
	TypeName string

	// PhysicalWidth is the lane count of the emitted type. It exceeds the
	// IR width when the dialect lacks a native spelling for that width and
	// falls back to the next wider vector; the extra lanes are never read
	// or written.
	PhysicalWidth uint8

	// Fallback is true when PhysicalWidth differs from the IR width or the
	// type is a generated struct rather than a dialect built-in.
	Fallback bool
}

// VectorLayout resolves an IR vector against a dialect's native vector
// types. The fallback policy is explicit here rather than buried in the
// emitted text so callers and tests can query it.
func VectorLayout(v kir.Vector, d Dialect) (VectorInfo, error) {
	if v.Width < 2 || v.Width > 4 {
		return VectorInfo{}, errorf(d, ErrUnsupportedType, "vector width %d outside 2..4", v.Width)
	}

	if d == Metal {
		elem, err := scalarTypeName(d, v.Elem.Kind)
		if err != nil {
			return VectorInfo{}, errorf(d, ErrUnsupportedType,
				"vector of %s has no Metal spelling", v.Elem.Kind)
		}
		return VectorInfo{
			TypeName:      fmt.Sprintf("%s%d", elem, v.Width),
			PhysicalWidth: v.Width,
		}, nil
	}

	switch v.Elem.Kind {
	case kir.Bool:
		return VectorInfo{}, errorf(d, ErrUnsupportedType,
			"%s has no boolean vector types", d)
	case kir.F16:
		// Only __half2 is native; wider half vectors use the generated
		// aligned struct, and width 3 widens to it with lane 3 unused.
		if v.Width == 2 {
			return VectorInfo{TypeName: "__half2", PhysicalWidth: 2}, nil
		}
		return VectorInfo{TypeName: Half4TypeName, PhysicalWidth: 4, Fallback: true}, nil
	default:
		base, ok := cudaVectorBase(v.Elem.Kind)
		if !ok {
			return VectorInfo{}, errorf(d, ErrUnsupportedType,
				"vector of %s has no %s spelling", v.Elem.Kind, d)
		}
		return VectorInfo{
			TypeName:      fmt.Sprintf("%s%d", base, v.Width),
			PhysicalWidth: v.Width,
		}, nil
	}
}

// addressSpaceQualifier returns the dialect's pointer qualifier for a
// memory space. CUDA and HIP infer the global space and express constant
// data through const; Metal requires an explicit address space keyword.
func addressSpaceQualifier(d Dialect, space kir.AddressSpace) (string, error) {
	if d == Metal {
		switch space {
		case kir.SpaceGlobal:
			return "device", nil
		case kir.SpaceShared:
			return "threadgroup", nil
		case kir.SpaceLocal:
			return "thread", nil
		case kir.SpaceConstant:
			return "constant", nil
		default:
			return "", errorf(d, ErrUnsupportedAddressSpace, "unknown address space %d", space)
		}
	}

	switch space {
	case kir.SpaceGlobal, kir.SpaceShared, kir.SpaceLocal:
		return "", nil
	case kir.SpaceConstant:
		return "const", nil
	default:
		return "", errorf(d, ErrUnsupportedAddressSpace, "unknown address space %d", space)
	}
}

// RenderType translates an IR type into the dialect's native spelling.
func RenderType(t kir.Type, d Dialect) (string, error) {
	if !d.valid() {
		return "", errorf(d, ErrInternal, "unknown dialect %d", d)
	}

	switch tt := t.(type) {
	case kir.Scalar:
		return scalarTypeName(d, tt.Kind)

	case kir.Vector:
		info, err := VectorLayout(tt, d)
		if err != nil {
			return "", err
		}
		return info.TypeName, nil

	case kir.Pointer:
		pointee, err := RenderType(tt.Pointee, d)
		if err != nil {
			return "", err
		}
		qual, err := addressSpaceQualifier(d, tt.Space)
		if err != nil {
			return "", err
		}
		if qual != "" {
			return fmt.Sprintf("%s %s*", qual, pointee), nil
		}
		return pointee + "*", nil

	default:
		return "", errorf(d, ErrUnsupportedType, "unknown type %T", t)
	}
}

// RenderVectorLiteral renders a vector constant in the dialect's
// construction syntax, padding fallback lanes with zero.
func RenderVectorLiteral(values []kir.LiteralValue, t kir.Vector, d Dialect) (string, error) {
	if len(values) != int(t.Width) {
		return "", errorf(d, ErrUnsupportedType,
			"vector literal has %d values for width %d", len(values), t.Width)
	}

	elems := make([]string, 0, len(values))
	for _, v := range values {
		if v.Scalar() != t.Elem {
			return "", errorf(d, ErrUnsupportedType,
				"vector literal element %s does not match element type %s",
				v.Scalar().Kind, t.Elem.Kind)
		}
		text, err := renderLiteral(d, v)
		if err != nil {
			return "", err
		}
		elems = append(elems, text)
	}

	ctor, err := vectorCtor(d, t, elems)
	if err != nil {
		return "", err
	}
	return ctor.text, nil
}

// vectorCtorResult carries a rendered vector construction plus the helper
// definitions it depends on.
type vectorCtorResult struct {
	text    string
	helpers []string
}

// vectorCtor renders a vector construction expression from element texts,
// padding fallback lanes with the element type's zero.
func vectorCtor(d Dialect, t kir.Vector, elems []string) (vectorCtorResult, error) {
	info, err := VectorLayout(t, d)
	if err != nil {
		return vectorCtorResult{}, err
	}

	padded := elems
	if int(info.PhysicalWidth) > len(elems) {
		zero, zerr := zeroLiteral(d, t.Elem.Kind)
		if zerr != nil {
			return vectorCtorResult{}, zerr
		}
		padded = append(append([]string{}, elems...), zero)
		for len(padded) < int(info.PhysicalWidth) {
			padded = append(padded, zero)
		}
	}

	args := ""
	for i, e := range padded {
		if i > 0 {
			args += ", "
		}
		args += e
	}

	if d == Metal {
		return vectorCtorResult{text: fmt.Sprintf("%s(%s)", info.TypeName, args)}, nil
	}

	if info.TypeName == Half4TypeName {
		desc := descriptorFor(d)
		return vectorCtorResult{
			text:    fmt.Sprintf("%s(%s)", Half4CtorName, args),
			helpers: []string{half4Helper, half4CtorHelper(desc)},
		}, nil
	}

	desc := descriptorFor(d)
	return vectorCtorResult{
		text: fmt.Sprintf("%s%s(%s)", desc.makeVectorPrefix, info.TypeName, args),
	}, nil
}
