// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cpp

import (
	"fmt"
	"strings"

	"github.com/gogpu/kernelgen/kir"
)

// builtinOrder fixes the emission order of thread-geometry values in
// prologues and attributed argument lists.
var builtinOrder = [...]kir.BuiltinOperand{
	kir.GlobalIndex,
	kir.LocalIndex,
	kir.BlockIndex,
	kir.BlockDim,
	kir.LaneIndex,
}

// metalBuiltinAttrs maps thread-geometry values to MSL argument
// attributes. Grids are linear, so the position types are plain uint.
var metalBuiltinAttrs = map[kir.BuiltinOperand]string{
	kir.GlobalIndex: "[[thread_position_in_grid]]",
	kir.LocalIndex:  "[[thread_position_in_threadgroup]]",
	kir.BlockIndex:  "[[threadgroup_position_in_grid]]",
	kir.BlockDim:    "[[threads_per_threadgroup]]",
	kir.LaneIndex:   "[[thread_index_in_simdgroup]]",
}

// validateSignature checks the parameter list against the dialect's
// binding model before any text is emitted.
func (w *writer) validateSignature(sig *kir.Signature) error {
	if sig.Name == "" {
		return errorf(w.dialect, ErrInvalidSignature, "kernel has no name")
	}

	bindings := make(map[uint32]struct{}, len(sig.Params))
	for i, p := range sig.Params {
		if p.Var == nil {
			return errorf(w.dialect, ErrInvalidSignature, "parameter %d has no variable", i)
		}
		if _, dup := bindings[p.Binding]; dup {
			return errorf(w.dialect, ErrInvalidSignature,
				"binding %d bound more than once", p.Binding)
		}
		bindings[p.Binding] = struct{}{}
		if int(p.Binding) >= w.desc.maxBindings {
			return errorf(w.dialect, ErrInvalidSignature,
				"binding %d exceeds the %s limit of %d", p.Binding, w.dialect, w.desc.maxBindings)
		}

		switch t := p.Var.Type.(type) {
		case kir.Scalar:
			// Passed by value, or through an attributed constant
			// reference on Metal.
		case kir.Pointer:
			if t.Space != kir.SpaceGlobal && t.Space != kir.SpaceConstant {
				return errorf(w.dialect, ErrUnsupportedAddressSpace,
					"parameter %q binds %s memory; kernel parameters address global or constant memory",
					p.Var.Name, t.Space)
			}
		default:
			return errorf(w.dialect, ErrInvalidSignature,
				"parameter %q has type %T; parameters are scalars or buffer pointers",
				p.Var.Name, p.Var.Type)
		}
	}
	return nil
}

// paramText renders one parameter declaration.
func (w *writer) paramText(p kir.Param, opts Options) (string, error) {
	name := w.name(p.Var)

	switch t := p.Var.Type.(type) {
	case kir.Scalar:
		typ, err := w.typeName(t)
		if err != nil {
			return "", err
		}
		if w.desc.scalarByValue {
			return fmt.Sprintf("%s %s", typ, name), nil
		}
		return fmt.Sprintf("constant %s& %s [[buffer(%d)]]", typ, name, p.Binding), nil

	case kir.Pointer:
		pointee, err := w.typeName(t.Pointee)
		if err != nil {
			return "", err
		}
		space, err := addressSpaceQualifier(w.dialect, t.Space)
		if err != nil {
			return "", err
		}

		var b strings.Builder
		if space != "" {
			b.WriteString(space)
			b.WriteByte(' ')
		}
		if p.ReadOnly && t.Space != kir.SpaceConstant {
			b.WriteString("const ")
		}
		b.WriteString(pointee)
		b.WriteByte('*')
		if opts.RestrictPointers && w.desc.restrictQualifier != "" {
			b.WriteByte(' ')
			b.WriteString(w.desc.restrictQualifier)
		}
		b.WriteByte(' ')
		b.WriteString(name)
		if w.desc.bufferAttr {
			fmt.Fprintf(&b, " [[buffer(%d)]]", p.Binding)
		}
		return b.String(), nil

	default:
		return "", errorf(w.dialect, ErrInvalidSignature, "parameter %q has type %T", p.Var.Name, p.Var.Type)
	}
}

// usedBuiltinList returns the referenced thread-geometry values in fixed
// order.
func (w *writer) usedBuiltinList() []kir.BuiltinOperand {
	var used []kir.BuiltinOperand
	for _, b := range builtinOrder {
		if _, ok := w.usedBuiltins[b]; ok {
			used = append(used, b)
		}
	}
	return used
}

// emitSignature writes the kernel's opening lines through the opening
// brace.
func (w *writer) emitSignature(sig *kir.Signature, opts Options) error {
	params := make([]string, 0, len(sig.Params)+4)
	for _, p := range sig.Params {
		text, err := w.paramText(p, opts)
		if err != nil {
			return err
		}
		params = append(params, text)
	}

	// Metal receives thread geometry through attributed arguments rather
	// than a prologue.
	if w.dialect == Metal {
		for _, b := range w.usedBuiltinList() {
			params = append(params, fmt.Sprintf("%s %s %s",
				w.desc.indexType, builtinOperandName(b), metalBuiltinAttrs[b]))
		}
	}

	name := w.namer.call(sig.Name)
	w.entryName = name

	var bounds string
	if sig.MaxThreadsPerBlock > 0 {
		bounds = fmt.Sprintf(w.desc.launchBoundsFmt, sig.MaxThreadsPerBlock)
	}

	if bounds != "" && w.desc.launchBoundsOwnLine {
		w.line("%s", bounds)
		bounds = ""
	}

	opening := w.desc.kernelQualifier
	if bounds != "" {
		opening += " " + bounds
	}

	if len(params) == 0 {
		w.line("%s %s() {", opening, name)
		return nil
	}
	w.line("%s %s(", opening, name)
	for i, p := range params {
		sep := ","
		if i == len(params)-1 {
			sep = ""
		}
		w.line("%s%s%s", indentUnit, p, sep)
	}
	w.line(") {")
	return nil
}

// emitPrologue derives the referenced thread-geometry values from the
// native index registers. Metal needs none; its values arrive as
// arguments.
func (w *writer) emitPrologue() {
	if w.dialect == Metal {
		return
	}
	idx := w.desc.indexType
	for _, b := range w.usedBuiltinList() {
		switch b {
		case kir.GlobalIndex:
			w.line("const %s %s = blockIdx.x * blockDim.x + threadIdx.x;", idx, GlobalIndexName)
		case kir.LocalIndex:
			w.line("const %s %s = threadIdx.x;", idx, LocalIndexName)
		case kir.BlockIndex:
			w.line("const %s %s = blockIdx.x;", idx, BlockIndexName)
		case kir.BlockDim:
			w.line("const %s %s = blockDim.x;", idx, BlockDimName)
		case kir.LaneIndex:
			w.line("const %s %s = threadIdx.x %% %du;", idx, LaneIndexName, w.desc.warpSize)
		}
	}
}

// emitShared declares the kernel's static shared-memory buffers. Each
// declaration binds the buffer's variable, so body loads and stores
// resolve to the declared identifier.
func (w *writer) emitShared(sig *kir.Signature) error {
	for _, buf := range sig.Shared {
		if buf.Var == nil {
			return errorf(w.dialect, ErrInvalidSignature, "shared buffer has no variable")
		}
		p, ok := buf.Var.Type.(kir.Pointer)
		if !ok || p.Space != kir.SpaceShared {
			return errorf(w.dialect, ErrInvalidSignature,
				"shared buffer %q must be a shared-space pointer", buf.Var.Name)
		}
		if buf.Len == 0 {
			continue
		}
		elem, err := w.typeName(p.Pointee)
		if err != nil {
			return err
		}
		name := w.name(buf.Var)
		w.markDeclared(buf.Var.ID)
		w.line("%s %s %s[%d];", w.desc.sharedQualifier, elem, name, buf.Len)
	}
	return nil
}

// lowerKernel emits one complete kernel definition into the assembler.
func (w *writer) lowerKernel(k *kir.Kernel, opts Options) error {
	sig := &k.Signature
	if err := w.validateSignature(sig); err != nil {
		return err
	}

	w.scanBuiltins(k.Body)
	w.scanWrites(k.Body)

	// Parameter names claim their identifiers before any body locals.
	for _, p := range sig.Params {
		w.markDeclared(p.Var.ID)
	}

	if err := w.emitSignature(sig, opts); err != nil {
		return err
	}

	w.level++
	w.emitPrologue()
	if err := w.emitShared(sig); err != nil {
		return err
	}
	if err := w.lowerScope(k.Body); err != nil {
		return err
	}
	w.level--
	w.line("}")
	return nil
}
