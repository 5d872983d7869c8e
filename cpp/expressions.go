// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cpp

import (
	"fmt"
	"strings"

	"github.com/gogpu/kernelgen/kir"
)

// builtinOperandName returns the prologue identifier for a thread-geometry
// value.
func builtinOperandName(b kir.BuiltinOperand) string {
	switch b {
	case kir.GlobalIndex:
		return GlobalIndexName
	case kir.LocalIndex:
		return LocalIndexName
	case kir.BlockIndex:
		return BlockIndexName
	case kir.BlockDim:
		return BlockDimName
	case kir.LaneIndex:
		return LaneIndexName
	default:
		return UnnamedIdentifier
	}
}

// operandText renders an operand as an expression.
func (w *writer) operandText(op kir.Operand) (string, error) {
	switch o := op.(type) {
	case *kir.Variable:
		w.noteTypeUse(o.Type)
		return w.name(o), nil
	case kir.Const:
		w.noteTypeUse(o.Value.Scalar())
		return renderLiteral(w.dialect, o.Value)
	case kir.BuiltinOperand:
		w.usedBuiltins[o] = struct{}{}
		return builtinOperandName(o), nil
	default:
		return "", errorf(w.dialect, ErrInternal, "unknown operand %T", op)
	}
}

// binaryToken returns the C++ operator spelling.
func binaryToken(op kir.BinaryOp) string {
	switch op {
	case kir.OpAdd:
		return "+"
	case kir.OpSub:
		return "-"
	case kir.OpMul:
		return "*"
	case kir.OpDiv:
		return "/"
	case kir.OpMod:
		return "%"
	case kir.OpAnd:
		return "&"
	case kir.OpOr:
		return "|"
	case kir.OpXor:
		return "^"
	case kir.OpShl:
		return "<<"
	case kir.OpShr:
		return ">>"
	case kir.OpEq:
		return "=="
	case kir.OpNe:
		return "!="
	case kir.OpLt:
		return "<"
	case kir.OpLe:
		return "<="
	case kir.OpGt:
		return ">"
	case kir.OpGe:
		return ">="
	case kir.OpLogicalAnd:
		return "&&"
	case kir.OpLogicalOr:
		return "||"
	default:
		return "?"
	}
}

func unaryToken(op kir.UnaryOp) string {
	switch op {
	case kir.OpNeg:
		return "-"
	case kir.OpNot:
		return "!"
	case kir.OpBitNot:
		return "~"
	default:
		return "?"
	}
}

// operandScalar returns the scalar kind of an operand, unwrapping vectors
// to their element kind.
func operandScalar(op kir.Operand) (kir.ScalarKind, bool) {
	switch t := kir.OperandType(op).(type) {
	case kir.Scalar:
		return t.Kind, true
	case kir.Vector:
		return t.Elem.Kind, true
	default:
		return 0, false
	}
}

// comparisonOp reports whether the operation yields a boolean rather
// than a value in the operand domain.
func comparisonOp(op kir.BinaryOp) bool {
	switch op {
	case kir.OpEq, kir.OpNe, kir.OpLt, kir.OpLe, kir.OpGt, kir.OpGe,
		kir.OpLogicalAnd, kir.OpLogicalOr:
		return true
	default:
		return false
	}
}

// binaryExpr renders a binary operation. Scalar operands of differing
// kinds are converted explicitly; native implicit conversions are never
// relied on. Floating-point modulo has no % operator and routes through
// fmod.
func (w *writer) binaryExpr(in kir.Binary) (string, error) {
	lhs, err := w.operandText(in.LHS)
	if err != nil {
		return "", err
	}
	rhs, err := w.operandText(in.RHS)
	if err != nil {
		return "", err
	}

	kind, kindOK := operandScalar(in.LHS)

	lt, lok := kir.OperandType(in.LHS).(kir.Scalar)
	rt, rok := kir.OperandType(in.RHS).(kir.Scalar)
	if lok && rok && lt.Kind != rt.Kind {
		// Value-producing operations convert both sides to the result's
		// kind; comparisons have a boolean result, so the left operand's
		// kind is the common type.
		target := lt
		if !comparisonOp(in.Op) && in.Result != nil {
			if res, ok := in.Result.Type.(kir.Scalar); ok {
				target = res
			}
		}
		if lt.Kind != target.Kind {
			if lhs, err = w.convertExpr(target, lt.Kind, lhs); err != nil {
				return "", err
			}
		}
		if rt.Kind != target.Kind {
			if rhs, err = w.convertExpr(target, rt.Kind, rhs); err != nil {
				return "", err
			}
		}
		kind, kindOK = target.Kind, true
	}

	if in.Op == kir.OpMod && kindOK && kind.IsFloat() {
		return w.floatModExpr(kind, lhs, rhs)
	}

	return fmt.Sprintf("%s %s %s", lhs, binaryToken(in.Op), rhs), nil
}

func (w *writer) floatModExpr(kind kir.ScalarKind, lhs, rhs string) (string, error) {
	switch kind {
	case kir.F32:
		if w.dialect == Metal {
			return fmt.Sprintf("fmod(%s, %s)", lhs, rhs), nil
		}
		return fmt.Sprintf("fmodf(%s, %s)", lhs, rhs), nil
	case kir.F64:
		if w.dialect == Metal {
			return "", errorf(w.dialect, ErrUnsupportedType, "f64 modulo has no Metal spelling")
		}
		return fmt.Sprintf("fmod(%s, %s)", lhs, rhs), nil
	case kir.F16:
		if w.dialect == Metal {
			return fmt.Sprintf("fmod(%s, %s)", lhs, rhs), nil
		}
		// The half device library has no fmod.
		return "", errorf(w.dialect, ErrUnsupportedIntrinsic, "f16 modulo has no %s spelling", w.dialect)
	default:
		return "", errorf(w.dialect, ErrInternal, "float modulo on %s", kind)
	}
}

// castExpr renders a numeric conversion. CUDA and HIP route half
// conversions through the fp16 intrinsics since __half has no arithmetic
// conversion operators on older toolkits.
func (w *writer) castExpr(in kir.Cast) (string, error) {
	value, err := w.operandText(in.Value)
	if err != nil {
		return "", err
	}
	from, ok := operandScalar(in.Value)
	if !ok {
		return "", errorf(w.dialect, ErrUnsupportedType, "cast of non-numeric operand")
	}
	target, ok := in.Result.Type.(kir.Scalar)
	if !ok {
		return "", errorf(w.dialect, ErrUnsupportedType, "cast target %T is not a scalar", in.Result.Type)
	}
	return w.convertExpr(target, from, value)
}

// convertExpr renders a numeric conversion of a rendered value to the
// target scalar type.
func (w *writer) convertExpr(target kir.Scalar, from kir.ScalarKind, value string) (string, error) {
	to := target.Kind

	name, err := w.typeName(target)
	if err != nil {
		return "", err
	}

	if w.desc.castCtor {
		return fmt.Sprintf("%s(%s)", name, value), nil
	}

	switch {
	case from == kir.F16 && to == kir.F16:
		return value, nil
	case from == kir.F16 && to == kir.F32:
		return fmt.Sprintf("__half2float(%s)", value), nil
	case from == kir.F16:
		return fmt.Sprintf("static_cast<%s>(__half2float(%s))", name, value), nil
	case to == kir.F16 && from == kir.F32:
		return fmt.Sprintf("__float2half(%s)", value), nil
	case to == kir.F16:
		return fmt.Sprintf("__float2half(static_cast<float>(%s))", value), nil
	default:
		return fmt.Sprintf("static_cast<%s>(%s)", name, value), nil
	}
}

// reinterpretExpr renders a bit-preserving type pun between equal-width
// scalars. Metal spells every pun as as_type; CUDA and HIP use the
// dedicated *_as_* intrinsics where they exist and static_cast between
// same-signedness-agnostic integer pairs.
func (w *writer) reinterpretExpr(in kir.Reinterpret) (string, error) {
	value, err := w.operandText(in.Value)
	if err != nil {
		return "", err
	}
	from, ok := operandScalar(in.Value)
	if !ok {
		return "", errorf(w.dialect, ErrUnsupportedType, "reinterpret of non-numeric operand")
	}
	target, ok := in.Result.Type.(kir.Scalar)
	if !ok {
		return "", errorf(w.dialect, ErrUnsupportedType, "reinterpret target %T is not a scalar", in.Result.Type)
	}
	to := target.Kind

	if from.Bits() != to.Bits() {
		return "", errorf(w.dialect, ErrUnsupportedType,
			"reinterpret between %s and %s changes width", from, to)
	}

	name, err := w.typeName(target)
	if err != nil {
		return "", err
	}

	if w.dialect == Metal {
		return fmt.Sprintf("as_type<%s>(%s)", name, value), nil
	}

	switch {
	case from == to:
		return value, nil
	case from.IsInteger() && to.IsInteger():
		return fmt.Sprintf("static_cast<%s>(%s)", name, value), nil
	case from == kir.F32 && to == kir.I32:
		return fmt.Sprintf("__float_as_int(%s)", value), nil
	case from == kir.F32 && to == kir.U32:
		return fmt.Sprintf("__float_as_uint(%s)", value), nil
	case from == kir.I32 && to == kir.F32:
		return fmt.Sprintf("__int_as_float(%s)", value), nil
	case from == kir.U32 && to == kir.F32:
		return fmt.Sprintf("__uint_as_float(%s)", value), nil
	case from == kir.F64 && to == kir.I64:
		return fmt.Sprintf("__double_as_longlong(%s)", value), nil
	case from == kir.F64 && to == kir.U64:
		return fmt.Sprintf("static_cast<uint64_t>(__double_as_longlong(%s))", value), nil
	case from == kir.I64 && to == kir.F64:
		return fmt.Sprintf("__longlong_as_double(%s)", value), nil
	case from == kir.U64 && to == kir.F64:
		return fmt.Sprintf("__longlong_as_double(static_cast<int64_t>(%s))", value), nil
	case from == kir.F16 && to == kir.U16:
		return fmt.Sprintf("__half_as_ushort(%s)", value), nil
	case from == kir.F16 && to == kir.I16:
		return fmt.Sprintf("static_cast<int16_t>(__half_as_ushort(%s))", value), nil
	case from == kir.U16 && to == kir.F16:
		return fmt.Sprintf("__ushort_as_half(%s)", value), nil
	case from == kir.I16 && to == kir.F16:
		return fmt.Sprintf("__ushort_as_half(static_cast<uint16_t>(%s))", value), nil
	default:
		return "", errorf(w.dialect, ErrUnsupportedType,
			"reinterpret between %s and %s has no %s spelling", from, to, w.dialect)
	}
}

// builtinCallExpr renders an abstract built-in call as a native intrinsic
// invocation.
func (w *writer) builtinCallExpr(in kir.CallBuiltin) (string, error) {
	if len(in.Args) == 0 {
		return "", errorf(w.dialect, ErrIntrinsicArityMismatch, "%s called with no arguments", in.Fn)
	}
	kind, ok := operandScalar(in.Args[0])
	if !ok {
		return "", errorf(w.dialect, ErrUnsupportedIntrinsic, "%s on non-numeric operand", in.Fn)
	}
	if _, isVec := kir.OperandType(in.Args[0]).(kir.Vector); isVec {
		return "", errorf(w.dialect, ErrUnsupportedIntrinsic, "%s on vector operands", in.Fn)
	}

	form, ok := builtinIntrinsic(w.dialect, in.Fn, kind)
	if !ok {
		return "", errorf(w.dialect, ErrUnsupportedIntrinsic,
			"%s has no %s lowering for %s", in.Fn, w.dialect, kind)
	}
	if len(in.Args) != form.arity {
		return "", errorf(w.dialect, ErrIntrinsicArityMismatch,
			"%s expects %d arguments, got %d", in.Fn, form.arity, len(in.Args))
	}
	if form.helper != "" {
		w.asm.registerHelper(form.helper)
	}

	args := make([]string, 0, len(form.leading)+len(in.Args)+len(form.trailing))
	args = append(args, form.leading...)
	for _, a := range in.Args {
		text, err := w.operandText(a)
		if err != nil {
			return "", err
		}
		args = append(args, text)
	}
	args = append(args, form.trailing...)

	return fmt.Sprintf("%s(%s)", form.name, strings.Join(args, ", ")), nil
}

// selectExpr renders a branchless select.
func (w *writer) selectExpr(in kir.Select) (string, error) {
	cond, err := w.operandText(in.Cond)
	if err != nil {
		return "", err
	}
	then, err := w.operandText(in.Then)
	if err != nil {
		return "", err
	}
	els, err := w.operandText(in.Else)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s ? %s : %s", cond, then, els), nil
}

var laneFields = [4]string{"x", "y", "z", "w"}

// operandVector returns the vector type of an operand.
func (w *writer) operandVector(op kir.Operand) (kir.Vector, error) {
	v, ok := kir.OperandType(op).(kir.Vector)
	if !ok {
		return kir.Vector{}, errorf(w.dialect, ErrUnsupportedType, "operand is not a vector")
	}
	return v, nil
}

// vecExtractExpr renders a single-lane read. Lane bounds are checked
// against the logical width, not the widened physical width.
func (w *writer) vecExtractExpr(in kir.VecExtract) (string, error) {
	vec, err := w.operandVector(in.Vec)
	if err != nil {
		return "", err
	}
	if in.Lane >= vec.Width {
		return "", errorf(w.dialect, ErrLaneIndexOutOfRange,
			"lane %d out of range for width %d", in.Lane, vec.Width)
	}
	text, err := w.operandText(in.Vec)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.%s", text, laneFields[in.Lane]), nil
}

// vecConstructExpr renders a vector construction from scalar elements.
func (w *writer) vecConstructExpr(in kir.VecConstruct) (string, error) {
	vec, ok := in.Result.Type.(kir.Vector)
	if !ok {
		return "", errorf(w.dialect, ErrUnsupportedType,
			"vector construct result %T is not a vector", in.Result.Type)
	}
	if len(in.Elems) != int(vec.Width) {
		return "", errorf(w.dialect, ErrUnsupportedType,
			"vector construct has %d elements for width %d", len(in.Elems), vec.Width)
	}

	elems := make([]string, 0, len(in.Elems))
	for _, e := range in.Elems {
		text, err := w.operandText(e)
		if err != nil {
			return "", err
		}
		elems = append(elems, text)
	}

	w.noteTypeUse(vec)
	ctor, err := vectorCtor(w.dialect, vec, elems)
	if err != nil {
		return "", err
	}
	for _, h := range ctor.helpers {
		w.asm.registerHelper(h)
	}
	return ctor.text, nil
}

// vecShuffleExpr renders a lane permutation. Metal uses swizzle selection;
// CUDA and HIP reconstruct through the vector constructor.
func (w *writer) vecShuffleExpr(in kir.VecShuffle) (string, error) {
	vec, err := w.operandVector(in.Vec)
	if err != nil {
		return "", err
	}
	if len(in.Pattern) < 2 || len(in.Pattern) > 4 {
		return "", errorf(w.dialect, ErrUnsupportedType,
			"shuffle pattern length %d outside 2..4", len(in.Pattern))
	}
	for _, lane := range in.Pattern {
		if lane >= vec.Width {
			return "", errorf(w.dialect, ErrLaneIndexOutOfRange,
				"shuffle lane %d out of range for width %d", lane, vec.Width)
		}
	}

	text, err := w.operandText(in.Vec)
	if err != nil {
		return "", err
	}

	if w.desc.hasSwizzle {
		var sw strings.Builder
		for _, lane := range in.Pattern {
			sw.WriteString(laneFields[lane])
		}
		return fmt.Sprintf("%s.%s", text, sw.String()), nil
	}

	out := kir.Vector{Elem: vec.Elem, Width: uint8(len(in.Pattern))}
	elems := make([]string, 0, len(in.Pattern))
	for _, lane := range in.Pattern {
		elems = append(elems, fmt.Sprintf("%s.%s", text, laneFields[lane]))
	}
	w.noteTypeUse(out)
	ctor, cerr := vectorCtor(w.dialect, out, elems)
	if cerr != nil {
		return "", cerr
	}
	for _, h := range ctor.helpers {
		w.asm.registerHelper(h)
	}
	return ctor.text, nil
}

// indexedLValue renders the ptr[index] lvalue for loads, stores, and
// atomic addresses. A nil index is a direct dereference.
func (w *writer) indexedLValue(ptr, index kir.Operand) (string, error) {
	base, err := w.operandText(ptr)
	if err != nil {
		return "", err
	}
	if _, ok := kir.OperandType(ptr).(kir.Pointer); !ok {
		return "", errorf(w.dialect, ErrUnsupportedType, "memory access through non-pointer")
	}
	if index == nil {
		return fmt.Sprintf("(*%s)", base), nil
	}
	idx, err := w.operandText(index)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s[%s]", base, idx), nil
}
