package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/kernelgen/kir"
)

// Manifest describes a set of elementwise kernels to generate. Each kernel
// is a straight-line pipeline over buffers indexed by the global thread
// index.
type Manifest struct {
	Kernels []KernelSpec `yaml:"kernels"`
}

// KernelSpec describes one kernel.
type KernelSpec struct {
	Name       string       `yaml:"name"`
	Element    string       `yaml:"element"`
	MaxThreads uint32       `yaml:"max_threads"`
	Buffers    []BufferSpec `yaml:"buffers"`
	Scalars    []string     `yaml:"scalars"`
	Ops        []OpSpec     `yaml:"ops"`
}

// BufferSpec describes one global buffer parameter.
type BufferSpec struct {
	Name     string `yaml:"name"`
	ReadOnly bool   `yaml:"read_only"`
}

// OpSpec is one pipeline step. Op selects the step kind; the remaining
// fields apply per kind:
//
//	load:   from, as
//	store:  to, value
//	add, sub, mul, div, min, max:  lhs, rhs, as
//	call:   fn, args, as
type OpSpec struct {
	Op    string   `yaml:"op"`
	From  string   `yaml:"from"`
	To    string   `yaml:"to"`
	As    string   `yaml:"as"`
	LHS   string   `yaml:"lhs"`
	RHS   string   `yaml:"rhs"`
	Fn    string   `yaml:"fn"`
	Args  []string `yaml:"args"`
	Value string   `yaml:"value"`
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if len(m.Kernels) == 0 {
		return nil, fmt.Errorf("manifest %s declares no kernels", path)
	}
	return &m, nil
}

func scalarKind(name string) (kir.ScalarKind, error) {
	switch name {
	case "f16":
		return kir.F16, nil
	case "f32", "":
		return kir.F32, nil
	case "f64":
		return kir.F64, nil
	case "i32":
		return kir.I32, nil
	case "i64":
		return kir.I64, nil
	case "u32":
		return kir.U32, nil
	case "u64":
		return kir.U64, nil
	default:
		return 0, fmt.Errorf("unknown element type %q", name)
	}
}

var builtinByName = map[string]kir.Builtin{
	"sqrt":  kir.BuiltinSqrt,
	"rsqrt": kir.BuiltinRsqrt,
	"exp":   kir.BuiltinExp,
	"exp2":  kir.BuiltinExp2,
	"log":   kir.BuiltinLog,
	"log2":  kir.BuiltinLog2,
	"sin":   kir.BuiltinSin,
	"cos":   kir.BuiltinCos,
	"tanh":  kir.BuiltinTanh,
	"erf":   kir.BuiltinErf,
	"pow":   kir.BuiltinPow,
	"floor": kir.BuiltinFloor,
	"ceil":  kir.BuiltinCeil,
	"round": kir.BuiltinRound,
	"trunc": kir.BuiltinTrunc,
	"abs":   kir.BuiltinAbs,
	"min":   kir.BuiltinMin,
	"max":   kir.BuiltinMax,
	"clamp": kir.BuiltinClamp,
	"fma":   kir.BuiltinFma,
}

var binaryByName = map[string]kir.BinaryOp{
	"add": kir.OpAdd,
	"sub": kir.OpSub,
	"mul": kir.OpMul,
	"div": kir.OpDiv,
	"mod": kir.OpMod,
}

// kernelBuilder translates one KernelSpec into IR.
type kernelBuilder struct {
	spec KernelSpec
	elem kir.Scalar
	b    *kir.Builder

	// env maps manifest identifiers to IR operands.
	env map[string]kir.Operand

	params []kir.Param
	body   *kir.Scope
}

// BuildKernel translates a kernel spec into IR.
func BuildKernel(spec KernelSpec) (*kir.Kernel, error) {
	elemKind, err := scalarKind(spec.Element)
	if err != nil {
		return nil, fmt.Errorf("kernel %s: %w", spec.Name, err)
	}
	kb := &kernelBuilder{
		spec: spec,
		elem: kir.Scalar{Kind: elemKind},
		b:    kir.NewBuilder(),
		env:  make(map[string]kir.Operand),
		body: &kir.Scope{},
	}

	if err := kb.declareParams(); err != nil {
		return nil, fmt.Errorf("kernel %s: %w", spec.Name, err)
	}
	for i, op := range spec.Ops {
		if err := kb.addOp(op); err != nil {
			return nil, fmt.Errorf("kernel %s op %d: %w", spec.Name, i, err)
		}
	}

	return &kir.Kernel{
		Signature: kir.Signature{
			Name:               spec.Name,
			Params:             kb.params,
			MaxThreadsPerBlock: spec.MaxThreads,
		},
		Body: kb.body,
	}, nil
}

func (kb *kernelBuilder) declareParams() error {
	binding := uint32(0)
	for _, buf := range kb.spec.Buffers {
		if buf.Name == "" {
			return fmt.Errorf("buffer %d has no name", binding)
		}
		if _, dup := kb.env[buf.Name]; dup {
			return fmt.Errorf("duplicate identifier %q", buf.Name)
		}
		v := kb.b.Named(buf.Name, kir.Pointer{Pointee: kb.elem, Space: kir.SpaceGlobal})
		kb.params = append(kb.params, kir.Param{Var: v, Binding: binding, ReadOnly: buf.ReadOnly})
		kb.env[buf.Name] = v
		binding++
	}
	for _, name := range kb.spec.Scalars {
		if _, dup := kb.env[name]; dup {
			return fmt.Errorf("duplicate identifier %q", name)
		}
		v := kb.b.Named(name, kb.elem)
		kb.params = append(kb.params, kir.Param{Var: v, Binding: binding})
		kb.env[name] = v
		binding++
	}
	return nil
}

// operand resolves a manifest reference: a declared identifier or a
// numeric literal of the element type.
func (kb *kernelBuilder) operand(ref string) (kir.Operand, error) {
	if ref == "" {
		return nil, fmt.Errorf("empty operand reference")
	}
	if op, ok := kb.env[ref]; ok {
		return op, nil
	}

	switch {
	case kb.elem.Kind.IsFloat():
		f, err := strconv.ParseFloat(ref, 64)
		if err != nil {
			return nil, fmt.Errorf("unknown identifier %q", ref)
		}
		switch kb.elem.Kind {
		case kir.F16:
			return kir.Const{Value: kir.LiteralF16(f)}, nil
		case kir.F32:
			return kir.Const{Value: kir.LiteralF32(f)}, nil
		default:
			return kir.Const{Value: kir.LiteralF64(f)}, nil
		}
	case kb.elem.Kind.IsSigned():
		n, err := strconv.ParseInt(ref, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("unknown identifier %q", ref)
		}
		if kb.elem.Kind == kir.I64 {
			return kir.Const{Value: kir.LiteralI64(n)}, nil
		}
		return kir.Const{Value: kir.LiteralI32(int32(n))}, nil
	default:
		n, err := strconv.ParseUint(ref, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("unknown identifier %q", ref)
		}
		if kb.elem.Kind == kir.U64 {
			return kir.Const{Value: kir.LiteralU64(n)}, nil
		}
		return kir.Const{Value: kir.LiteralU32(uint32(n))}, nil
	}
}

// result allocates the destination variable for a value-producing op.
func (kb *kernelBuilder) result(as string) (*kir.Variable, error) {
	if as == "" {
		return nil, fmt.Errorf("missing result name")
	}
	if _, dup := kb.env[as]; dup {
		return nil, fmt.Errorf("duplicate identifier %q", as)
	}
	v := kb.b.Named(as, kb.elem)
	kb.env[as] = v
	return v, nil
}

func (kb *kernelBuilder) addOp(op OpSpec) error {
	switch {
	case op.Op == "load":
		ptr, err := kb.operand(op.From)
		if err != nil {
			return err
		}
		res, err := kb.result(op.As)
		if err != nil {
			return err
		}
		kb.body.Push(kir.Load{Ptr: ptr, Index: kir.GlobalIndex, Result: res})
		return nil

	case op.Op == "store":
		ptr, err := kb.operand(op.To)
		if err != nil {
			return err
		}
		value, err := kb.operand(op.Value)
		if err != nil {
			return err
		}
		kb.body.Push(kir.Store{Ptr: ptr, Index: kir.GlobalIndex, Value: value})
		return nil

	case op.Op == "call":
		fn, ok := builtinByName[op.Fn]
		if !ok {
			return fmt.Errorf("unknown builtin %q", op.Fn)
		}
		args := make([]kir.Operand, 0, len(op.Args))
		for _, a := range op.Args {
			arg, err := kb.operand(a)
			if err != nil {
				return err
			}
			args = append(args, arg)
		}
		res, err := kb.result(op.As)
		if err != nil {
			return err
		}
		kb.body.Push(kir.CallBuiltin{Fn: fn, Args: args, Result: res})
		return nil

	default:
		if fn, ok := builtinByName[op.Op]; ok && (op.Op == "min" || op.Op == "max") {
			lhs, err := kb.operand(op.LHS)
			if err != nil {
				return err
			}
			rhs, err := kb.operand(op.RHS)
			if err != nil {
				return err
			}
			res, err := kb.result(op.As)
			if err != nil {
				return err
			}
			kb.body.Push(kir.CallBuiltin{Fn: fn, Args: []kir.Operand{lhs, rhs}, Result: res})
			return nil
		}

		bin, ok := binaryByName[op.Op]
		if !ok {
			return fmt.Errorf("unknown op %q", op.Op)
		}
		lhs, err := kb.operand(op.LHS)
		if err != nil {
			return err
		}
		rhs, err := kb.operand(op.RHS)
		if err != nil {
			return err
		}
		res, err := kb.result(op.As)
		if err != nil {
			return err
		}
		kb.body.Push(kir.Binary{Op: bin, LHS: lhs, RHS: rhs, Result: res})
		return nil
	}
}
