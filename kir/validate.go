package kir

import "fmt"

// ValidationError describes one well-formedness defect found in a kernel.
type ValidationError struct {
	Message string

	// Kernel is the kernel name, when known.
	Kernel string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Kernel != "" {
		return fmt.Sprintf("kernel %s: %s", e.Kernel, e.Message)
	}
	return e.Message
}

// Validate checks a kernel for the local well-formedness the lowering core
// assumes: legal vector widths, lane bounds, unique parameter bindings, and
// every variable read preceded by a write reachable in program order within
// the enclosing scope chain. It returns all defects found, or nil.
//
// Validate is a boundary check for IR providers; the cpp package does not
// re-run it.
func Validate(k *Kernel) []ValidationError {
	if k == nil {
		return []ValidationError{{Message: "kernel is nil"}}
	}

	v := &validator{kernel: k}
	v.validateSignature()
	if k.Body != nil {
		// Parameters and shared buffers are readable from the first
		// instruction on.
		defined := make(map[uint32]struct{})
		for _, p := range k.Signature.Params {
			if p.Var != nil {
				defined[p.Var.ID] = struct{}{}
			}
		}
		for _, buf := range k.Signature.Shared {
			if buf.Var != nil {
				defined[buf.Var.ID] = struct{}{}
			}
		}
		v.validateScope(k.Body, defined)
	}
	return v.errors
}

type validator struct {
	kernel *Kernel
	errors []ValidationError
}

func (v *validator) errorf(format string, args ...any) {
	v.errors = append(v.errors, ValidationError{
		Message: fmt.Sprintf(format, args...),
		Kernel:  v.kernel.Signature.Name,
	})
}

func (v *validator) validateSignature() {
	sig := &v.kernel.Signature
	if sig.Name == "" {
		v.errorf("signature has no name")
	}

	seen := make(map[uint32]int)
	for i, p := range sig.Params {
		if p.Var == nil {
			v.errorf("parameter %d has no variable", i)
			continue
		}
		switch t := p.Var.Type.(type) {
		case Scalar:
		case Pointer:
			v.validateType(t.Pointee, fmt.Sprintf("parameter %s", v.describe(p.Var)))
		default:
			v.errorf("parameter %s: type must be a scalar or pointer, got %T",
				v.describe(p.Var), p.Var.Type)
		}
		if prev, ok := seen[p.Binding]; ok {
			v.errorf("parameters %d and %d share binding %d", prev, i, p.Binding)
		}
		seen[p.Binding] = i
	}

	for i, buf := range sig.Shared {
		if buf.Var == nil {
			v.errorf("shared buffer %d has no variable", i)
			continue
		}
		p, ok := buf.Var.Type.(Pointer)
		if !ok || p.Space != SpaceShared {
			v.errorf("shared buffer %s: type must be a shared-space pointer", v.describe(buf.Var))
			continue
		}
		v.validateType(p.Pointee, fmt.Sprintf("shared buffer %s", v.describe(buf.Var)))
		if _, ok := p.Pointee.(Pointer); ok {
			v.errorf("shared buffer %s: element type must not be a pointer", v.describe(buf.Var))
		}
	}
}

func (v *validator) validateType(t Type, context string) {
	switch tt := t.(type) {
	case Scalar:
	case Vector:
		if tt.Width < 2 || tt.Width > 4 {
			v.errorf("%s: vector width %d outside 2..4", context, tt.Width)
		}
	case Pointer:
		v.validateType(tt.Pointee, context)
	default:
		v.errorf("%s: unknown type %T", context, t)
	}
}

// validateScope walks instructions in program order. defined holds the IDs
// of variables written so far along the enclosing scope chain; child scopes
// see a copy so sibling scopes cannot leak definitions into each other.
func (v *validator) validateScope(s *Scope, defined map[uint32]struct{}) {
	for _, inst := range s.Body {
		v.validateInstruction(inst, defined)
	}
}

func child(defined map[uint32]struct{}) map[uint32]struct{} {
	c := make(map[uint32]struct{}, len(defined))
	for id := range defined {
		c[id] = struct{}{}
	}
	return c
}

//nolint:gocyclo,cyclop // Instruction validation is one exhaustive dispatch.
func (v *validator) validateInstruction(inst Instruction, defined map[uint32]struct{}) {
	switch i := inst.(type) {
	case Binary:
		v.useOperand(i.LHS, defined)
		v.useOperand(i.RHS, defined)
		v.define(i.Result, defined)
	case Unary:
		v.useOperand(i.Operand, defined)
		v.define(i.Result, defined)
	case Cast:
		v.useOperand(i.Value, defined)
		v.define(i.Result, defined)
	case Reinterpret:
		v.useOperand(i.Value, defined)
		v.define(i.Result, defined)
		if i.Result != nil {
			from := OperandType(i.Value)
			if from != nil && BitWidth(from) != BitWidth(i.Result.Type) {
				v.errorf("reinterpret changes width: %d bits to %d bits",
					BitWidth(from), BitWidth(i.Result.Type))
			}
		}
	case Select:
		v.useOperand(i.Cond, defined)
		v.useOperand(i.Then, defined)
		v.useOperand(i.Else, defined)
		v.define(i.Result, defined)
	case Load:
		v.usePointer(i.Ptr, "load", defined)
		if i.Index != nil {
			v.useOperand(i.Index, defined)
		}
		v.define(i.Result, defined)
	case Store:
		v.usePointer(i.Ptr, "store", defined)
		if i.Index != nil {
			v.useOperand(i.Index, defined)
		}
		v.useOperand(i.Value, defined)
	case Atomic:
		v.usePointer(i.Ptr, i.Op.String(), defined)
		if i.Index != nil {
			v.useOperand(i.Index, defined)
		}
		if i.Op == AtomicCompareExchange {
			if i.Compare == nil {
				v.errorf("%s has no compare operand", i.Op)
			} else {
				v.useOperand(i.Compare, defined)
			}
		}
		v.useOperand(i.Value, defined)
		v.define(i.Result, defined)
	case Barrier:
	case CallBuiltin:
		for _, arg := range i.Args {
			v.useOperand(arg, defined)
		}
		v.define(i.Result, defined)
	case VecConstruct:
		for _, e := range i.Elems {
			v.useOperand(e, defined)
		}
		v.define(i.Result, defined)
		if i.Result != nil {
			vec, ok := i.Result.Type.(Vector)
			if !ok {
				v.errorf("vector construct result %s is not a vector", v.describe(i.Result))
			} else if int(vec.Width) != len(i.Elems) {
				v.errorf("vector construct has %d elements for width %d", len(i.Elems), vec.Width)
			}
		}
	case VecExtract:
		v.useOperand(i.Vec, defined)
		v.define(i.Result, defined)
		if vec, ok := OperandType(i.Vec).(Vector); ok && i.Lane >= vec.Width {
			v.errorf("extract of lane %d from width-%d vector", i.Lane, vec.Width)
		}
	case VecShuffle:
		v.useOperand(i.Vec, defined)
		v.define(i.Result, defined)
		if len(i.Pattern) < 2 || len(i.Pattern) > 4 {
			v.errorf("shuffle pattern length %d outside 2..4", len(i.Pattern))
		}
		if vec, ok := OperandType(i.Vec).(Vector); ok {
			for _, lane := range i.Pattern {
				if lane >= vec.Width {
					v.errorf("shuffle selects lane %d from width-%d vector", lane, vec.Width)
				}
			}
		}
	case If:
		v.useOperand(i.Cond, defined)
		if i.Then != nil {
			v.validateScope(i.Then, child(defined))
		}
		if i.Else != nil {
			v.validateScope(i.Else, child(defined))
		}
	case For:
		v.useOperand(i.Start, defined)
		v.useOperand(i.End, defined)
		v.useOperand(i.Step, defined)
		if i.Counter == nil {
			v.errorf("for loop has no counter variable")
		} else if sc, ok := i.Counter.Type.(Scalar); !ok || !sc.Kind.IsInteger() {
			v.errorf("for counter %s is not an integer scalar", v.describe(i.Counter))
		}
		inner := child(defined)
		if i.Counter != nil {
			inner[i.Counter.ID] = struct{}{}
		}
		if i.Body != nil {
			v.validateScope(i.Body, inner)
		}
	case While:
		v.useOperand(i.Cond, defined)
		if i.Body != nil {
			v.validateScope(i.Body, child(defined))
		}
	case Loop:
		if i.Body != nil {
			v.validateScope(i.Body, child(defined))
		}
	case Break, Continue, Return:
	default:
		v.errorf("unknown instruction %T", inst)
	}
}

func (v *validator) define(result *Variable, defined map[uint32]struct{}) {
	if result == nil {
		return
	}
	if _, ok := defined[result.ID]; ok && !result.Mutable {
		v.errorf("single-assignment variable %s written twice", v.describe(result))
	}
	v.validateType(result.Type, fmt.Sprintf("variable %s", v.describe(result)))
	defined[result.ID] = struct{}{}
}

func (v *validator) useOperand(op Operand, defined map[uint32]struct{}) {
	vr, ok := op.(*Variable)
	if !ok {
		if op == nil {
			v.errorf("nil operand")
		}
		return
	}
	if _, ok := defined[vr.ID]; !ok {
		v.errorf("variable %s read before any write", v.describe(vr))
	}
}

func (v *validator) usePointer(op Operand, context string, defined map[uint32]struct{}) {
	v.useOperand(op, defined)
	t := OperandType(op)
	if t == nil {
		return
	}
	if _, ok := t.(Pointer); !ok {
		v.errorf("%s through non-pointer operand", context)
	}
}

func (v *validator) describe(vr *Variable) string {
	if vr.Name != "" {
		return vr.Name
	}
	return fmt.Sprintf("#%d", vr.ID)
}
