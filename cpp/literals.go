// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cpp

import (
	"fmt"
	"math"
	"strconv"

	"github.com/x448/float16"

	"github.com/gogpu/kernelgen/kir"
)

// formatFloat renders a float in the shortest form that round-trips,
// forcing a decimal point so the literal stays a floating literal.
func formatFloat(v float64, bits int) string {
	if math.IsInf(v, 1) {
		return "INFINITY"
	}
	if math.IsInf(v, -1) {
		return "-INFINITY"
	}
	if math.IsNaN(v) {
		return "NAN"
	}
	s := strconv.FormatFloat(v, 'g', -1, bits)
	needsPoint := true
	for _, c := range s {
		if c == '.' || c == 'e' || c == 'E' {
			needsPoint = false
			break
		}
	}
	if needsPoint {
		s += ".0"
	}
	return s
}

// renderLiteral returns the dialect's spelling of a scalar constant.
func renderLiteral(d Dialect, v kir.LiteralValue) (string, error) {
	switch lit := v.(type) {
	case kir.LiteralBool:
		if lit {
			return "true", nil
		}
		return "false", nil

	case kir.LiteralI32:
		return strconv.FormatInt(int64(lit), 10), nil

	case kir.LiteralU32:
		return fmt.Sprintf("%du", uint32(lit)), nil

	case kir.LiteralI64:
		return fmt.Sprintf("%dL", int64(lit)), nil

	case kir.LiteralU64:
		return fmt.Sprintf("%duL", uint64(lit)), nil

	case kir.LiteralF32:
		return formatFloat(float64(float32(lit)), 32) + "f", nil

	case kir.LiteralF64:
		if d == Metal {
			return "", errorf(d, ErrUnsupportedType, "f64 literal has no Metal spelling")
		}
		return formatFloat(float64(lit), 64), nil

	case kir.LiteralF16:
		// Round through binary16 so the emitted value matches what the
		// device will hold.
		h := float16.Fromfloat32(float32(lit))
		text := formatFloat(float64(h.Float32()), 32)
		if d == Metal {
			return fmt.Sprintf("half(%sf)", text), nil
		}
		return fmt.Sprintf("__float2half(%sf)", text), nil

	default:
		return "", errorf(d, ErrUnsupportedType, "unknown literal %T", v)
	}
}

// zeroLiteral is the zero constant for a scalar kind, used to pad the
// unused lanes of widened vector constructions.
func zeroLiteral(d Dialect, k kir.ScalarKind) (string, error) {
	switch {
	case k == kir.Bool:
		return "false", nil
	case k == kir.F16:
		return renderLiteral(d, kir.LiteralF16(0))
	case k == kir.F32:
		return renderLiteral(d, kir.LiteralF32(0))
	case k == kir.F64:
		return renderLiteral(d, kir.LiteralF64(0))
	case k.IsSigned():
		if k.Bits() == 64 {
			return renderLiteral(d, kir.LiteralI64(0))
		}
		return renderLiteral(d, kir.LiteralI32(0))
	default:
		if k.Bits() == 64 {
			return renderLiteral(d, kir.LiteralU64(0))
		}
		return renderLiteral(d, kir.LiteralU32(0))
	}
}
