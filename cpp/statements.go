// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cpp

import (
	"fmt"

	"github.com/gogpu/kernelgen/kir"
)

// assign emits a store into a local, declaring it at its first write. A
// local written exactly once and not marked mutable is declared const.
func (w *writer) assign(result *kir.Variable, expr string) error {
	if result == nil {
		return errorf(w.dialect, ErrInternal, "instruction has no result variable")
	}
	name := w.name(result)
	if w.isDeclared(result.ID) {
		w.line("%s = %s;", name, expr)
		return nil
	}

	typ, err := w.typeName(result.Type)
	if err != nil {
		return err
	}
	w.markDeclared(result.ID)
	if !result.Mutable && w.writeCounts[result.ID] <= 1 {
		w.line("const %s %s = %s;", typ, name, expr)
	} else {
		w.line("%s %s = %s;", typ, name, expr)
	}
	return nil
}

// lowerScope emits every instruction of a scope in program order.
//
//nolint:gocyclo,cyclop // One arm per instruction kind.
func (w *writer) lowerScope(s *kir.Scope) error {
	if s == nil {
		return nil
	}
	for _, inst := range s.Body {
		var err error
		switch in := inst.(type) {
		case kir.Binary:
			err = w.lowerExprInst(in.Result, func() (string, error) { return w.binaryExpr(in) })
		case kir.Unary:
			err = w.lowerUnary(in)
		case kir.Cast:
			err = w.lowerExprInst(in.Result, func() (string, error) { return w.castExpr(in) })
		case kir.Reinterpret:
			err = w.lowerExprInst(in.Result, func() (string, error) { return w.reinterpretExpr(in) })
		case kir.Select:
			err = w.lowerExprInst(in.Result, func() (string, error) { return w.selectExpr(in) })
		case kir.Load:
			err = w.lowerExprInst(in.Result, func() (string, error) { return w.indexedLValue(in.Ptr, in.Index) })
		case kir.Store:
			err = w.lowerStore(in)
		case kir.Atomic:
			err = w.lowerAtomic(in)
		case kir.Barrier:
			for _, l := range barrierLines(w.dialect, in.Flags) {
				w.line("%s", l)
			}
		case kir.CallBuiltin:
			err = w.lowerExprInst(in.Result, func() (string, error) { return w.builtinCallExpr(in) })
		case kir.VecConstruct:
			err = w.lowerExprInst(in.Result, func() (string, error) { return w.vecConstructExpr(in) })
		case kir.VecExtract:
			err = w.lowerExprInst(in.Result, func() (string, error) { return w.vecExtractExpr(in) })
		case kir.VecShuffle:
			err = w.lowerExprInst(in.Result, func() (string, error) { return w.vecShuffleExpr(in) })
		case kir.If:
			err = w.lowerIf(in)
		case kir.For:
			err = w.lowerFor(in)
		case kir.While:
			err = w.lowerWhile(in)
		case kir.Loop:
			err = w.lowerLoop(in)
		case kir.Break:
			w.line("break;")
		case kir.Continue:
			w.line("continue;")
		case kir.Return:
			w.line("return;")
		default:
			err = errorf(w.dialect, ErrInternal, "unknown instruction %T", inst)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// lowerExprInst evaluates an expression renderer and assigns its result.
func (w *writer) lowerExprInst(result *kir.Variable, render func() (string, error)) error {
	expr, err := render()
	if err != nil {
		return err
	}
	return w.assign(result, expr)
}

func (w *writer) lowerUnary(in kir.Unary) error {
	value, err := w.operandText(in.Operand)
	if err != nil {
		return err
	}
	return w.assign(in.Result, fmt.Sprintf("%s%s", unaryToken(in.Op), value))
}

func (w *writer) lowerStore(in kir.Store) error {
	lvalue, err := w.indexedLValue(in.Ptr, in.Index)
	if err != nil {
		return err
	}
	value, err := w.operandText(in.Value)
	if err != nil {
		return err
	}
	w.line("%s = %s;", lvalue, value)
	return nil
}

// atomicElem returns the scalar element kind behind an atomic's pointer.
func (w *writer) atomicElem(ptr kir.Operand) (kir.Pointer, kir.ScalarKind, error) {
	p, ok := kir.OperandType(ptr).(kir.Pointer)
	if !ok {
		return kir.Pointer{}, 0, errorf(w.dialect, ErrUnsupportedAtomic, "atomic through non-pointer operand")
	}
	s, ok := p.Pointee.(kir.Scalar)
	if !ok {
		return kir.Pointer{}, 0, errorf(w.dialect, ErrUnsupportedAtomic, "atomic on non-scalar element")
	}
	return p, s.Kind, nil
}

// lowerAtomic emits a read-modify-write. Unsupported (op, element) pairs
// fail; an element type is never widened to reach a supported atomic.
func (w *writer) lowerAtomic(in kir.Atomic) error {
	ptr, kind, err := w.atomicElem(in.Ptr)
	if err != nil {
		return err
	}
	form, ok := atomicIntrinsic(w.dialect, in.Op, kind)
	if !ok {
		return errorf(w.dialect, ErrUnsupportedAtomic,
			"%s on %s has no %s equivalent", in.Op, kind, w.dialect)
	}

	lvalue, err := w.indexedLValue(in.Ptr, in.Index)
	if err != nil {
		return err
	}
	value, err := w.operandText(in.Value)
	if err != nil {
		return err
	}

	addr := "&" + lvalue
	if form.atomicType != "" {
		space, qerr := addressSpaceQualifier(w.dialect, ptr.Space)
		if qerr != nil {
			return qerr
		}
		addr = fmt.Sprintf("(%s %s*)%s", space, form.atomicType, addr)
	}

	if in.Op == kir.AtomicCompareExchange {
		return w.lowerCompareExchange(in, form, addr, value)
	}

	var expr string
	if form.explicitOrder {
		expr = fmt.Sprintf("%s(%s, %s, memory_order_relaxed)", form.name, addr, value)
	} else {
		expr = fmt.Sprintf("%s(%s, %s)", form.name, addr, value)
	}

	if in.Result == nil {
		w.line("%s;", expr)
		return nil
	}
	return w.assign(in.Result, expr)
}

// lowerCompareExchange emits a CAS. CUDA and HIP return the original value
// directly; Metal's explicit form reports it through the expected slot, so
// the lowering stages the comparand in a temporary and reads the original
// value back out of it.
func (w *writer) lowerCompareExchange(in kir.Atomic, form atomicForm, addr, value string) error {
	if in.Compare == nil {
		return errorf(w.dialect, ErrUnsupportedAtomic, "compare-exchange without comparand")
	}
	compare, err := w.operandText(in.Compare)
	if err != nil {
		return err
	}

	if !form.explicitOrder {
		expr := fmt.Sprintf("%s(%s, %s, %s)", form.name, addr, compare, value)
		if in.Result == nil {
			w.line("%s;", expr)
			return nil
		}
		return w.assign(in.Result, expr)
	}

	temp := CompareExchangeVar
	if w.casTemps > 0 {
		temp = fmt.Sprintf("%s_%d", CompareExchangeVar, w.casTemps)
	}
	w.casTemps++

	_, kind, err := w.atomicElem(in.Ptr)
	if err != nil {
		return err
	}
	typ, err := w.typeName(kir.Scalar{Kind: kind})
	if err != nil {
		return err
	}

	w.line("%s %s = %s;", typ, temp, compare)
	w.line("%s(%s, &%s, %s, memory_order_relaxed, memory_order_relaxed);",
		form.name, addr, temp, value)
	if in.Result != nil {
		return w.assign(in.Result, temp)
	}
	return nil
}

func (w *writer) lowerIf(in kir.If) error {
	cond, err := w.operandText(in.Cond)
	if err != nil {
		return err
	}
	w.line("if (%s) {", cond)
	if err := w.lowerNested(in.Then); err != nil {
		return err
	}
	if in.Else != nil {
		w.line("} else {")
		if err := w.lowerNested(in.Else); err != nil {
			return err
		}
	}
	w.line("}")
	return nil
}

// lowerFor emits a counted loop. The counter runs from Start while
// counter < End, advancing by Step; it is scoped to the loop header.
func (w *writer) lowerFor(in kir.For) error {
	if in.Counter == nil {
		return errorf(w.dialect, ErrInternal, "counted loop without counter")
	}
	typ, err := w.typeName(in.Counter.Type)
	if err != nil {
		return err
	}
	start, err := w.operandText(in.Start)
	if err != nil {
		return err
	}
	end, err := w.operandText(in.End)
	if err != nil {
		return err
	}
	step, err := w.operandText(in.Step)
	if err != nil {
		return err
	}

	name := w.name(in.Counter)
	w.line("for (%s %s = %s; %s < %s; %s += %s) {", typ, name, start, name, end, name, step)

	w.pushScope()
	w.markDeclared(in.Counter.ID)
	w.level++
	err = w.lowerScope(in.Body)
	w.level--
	w.popScope()
	if err != nil {
		return err
	}
	w.line("}")
	return nil
}

func (w *writer) lowerWhile(in kir.While) error {
	cond, err := w.operandText(in.Cond)
	if err != nil {
		return err
	}
	w.line("while (%s) {", cond)
	if err := w.lowerNested(in.Body); err != nil {
		return err
	}
	w.line("}")
	return nil
}

func (w *writer) lowerLoop(in kir.Loop) error {
	w.line("while (true) {")
	if err := w.lowerNested(in.Body); err != nil {
		return err
	}
	w.line("}")
	return nil
}

// lowerNested lowers a child scope one indent level deeper, with its own
// declaration scope.
func (w *writer) lowerNested(s *kir.Scope) error {
	w.pushScope()
	w.level++
	err := w.lowerScope(s)
	w.level--
	w.popScope()
	return err
}
