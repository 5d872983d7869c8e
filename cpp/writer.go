// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cpp

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/gogpu/kernelgen/kir"
)

const indentUnit = "    "

// assembler accumulates the sections of one translation unit. Helpers are
// discovered mid-body but must precede the kernel, so the body is staged
// separately and the sections are stitched together once at finalize.
type assembler struct {
	dialect   Dialect
	desc      *descriptor
	body      strings.Builder
	helpers   []string
	helperIDs map[uint64]struct{}
	usesF16   bool
	finalized bool
}

func newAssembler(d Dialect) *assembler {
	return &assembler{
		dialect:   d,
		desc:      descriptorFor(d),
		helperIDs: make(map[uint64]struct{}),
	}
}

// registerHelper records a helper definition for the helper section.
// Duplicate registrations are collapsed by content hash; helpers keep
// their first-request order.
func (a *assembler) registerHelper(src string) {
	id := xxhash.Sum64String(src)
	if _, seen := a.helperIDs[id]; seen {
		return
	}
	a.helperIDs[id] = struct{}{}
	a.helpers = append(a.helpers, src)
}

// noteF16 marks that the unit touches half precision, pulling in the
// dialect's half header at finalize.
func (a *assembler) noteF16() {
	a.usesF16 = true
}

// finalize stitches header, helpers, and body into the final source text.
// An assembler emits exactly one unit; further calls fail.
func (a *assembler) finalize() (string, error) {
	if a.finalized {
		return "", errorf(a.dialect, ErrAlreadyFinalized, "assembler already finalized")
	}
	a.finalized = true

	var out strings.Builder
	for _, inc := range a.desc.includes {
		out.WriteString(inc)
		out.WriteByte('\n')
	}
	if a.usesF16 && a.desc.f16Include != "" {
		out.WriteString(a.desc.f16Include)
		out.WriteByte('\n')
	}
	for _, u := range a.desc.using {
		out.WriteString(u)
		out.WriteByte('\n')
	}
	out.WriteByte('\n')

	for _, h := range a.helpers {
		out.WriteString(h)
		out.WriteByte('\n')
	}

	out.WriteString(a.body.String())
	return out.String(), nil
}

// writer carries the per-pass lowering state: the emitted body text, the
// indentation level, variable naming, and declaration tracking.
type writer struct {
	dialect Dialect
	desc    *descriptor
	asm     *assembler
	level   int

	namer *namer

	// names maps variable IDs to their emitted identifiers.
	names map[uint32]string

	// declared is the stack of per-scope declared-ID sets, used to decide
	// whether a write is a declaration or a plain assignment.
	declared []map[uint32]struct{}

	// writeCounts holds the per-variable store count for the whole kernel,
	// computed up front so single-assignment locals can be emitted const.
	writeCounts map[uint32]int

	// usedBuiltins are the thread-geometry values referenced anywhere in
	// the body; the shell emits prologue lines only for these.
	usedBuiltins map[kir.BuiltinOperand]struct{}

	// casTemps counts emitted compare-exchange temporaries so each
	// occurrence gets a distinct identifier.
	casTemps int

	// entryName is the emitted kernel identifier, recorded for launch
	// metadata.
	entryName string
}

func newWriter(d Dialect) *writer {
	return &writer{
		dialect:      d,
		desc:         descriptorFor(d),
		asm:          newAssembler(d),
		namer:        newNamer(d),
		names:        make(map[uint32]string),
		declared:     []map[uint32]struct{}{{}},
		writeCounts:  make(map[uint32]int),
		usedBuiltins: make(map[kir.BuiltinOperand]struct{}),
	}
}

// line writes one indented line into the body section.
func (w *writer) line(format string, args ...any) {
	for i := 0; i < w.level; i++ {
		w.asm.body.WriteString(indentUnit)
	}
	fmt.Fprintf(&w.asm.body, format, args...)
	w.asm.body.WriteByte('\n')
}

// raw writes text into the body without indentation or newline.
func (w *writer) raw(s string) {
	w.asm.body.WriteString(s)
}

// pushScope opens a lexical scope for declaration tracking.
func (w *writer) pushScope() {
	w.declared = append(w.declared, make(map[uint32]struct{}))
}

func (w *writer) popScope() {
	w.declared = w.declared[:len(w.declared)-1]
}

// isDeclared reports whether the variable is visible in the current scope
// chain.
func (w *writer) isDeclared(id uint32) bool {
	for _, scope := range w.declared {
		if _, ok := scope[id]; ok {
			return true
		}
	}
	return false
}

// markDeclared records a declaration in the innermost scope.
func (w *writer) markDeclared(id uint32) {
	w.declared[len(w.declared)-1][id] = struct{}{}
}

// name returns the emitted identifier for a variable, assigning one on
// first use. Assignment order follows program order, so repeated passes
// produce identical names.
func (w *writer) name(v *kir.Variable) string {
	if n, ok := w.names[v.ID]; ok {
		return n
	}
	base := v.Name
	if base == "" {
		base = fmt.Sprintf("v%d", v.ID)
	}
	n := w.namer.call(base)
	w.names[v.ID] = n
	return n
}

// typeName resolves a type spelling and registers any helper definitions
// the spelling depends on.
func (w *writer) typeName(t kir.Type) (string, error) {
	name, err := RenderType(t, w.dialect)
	if err != nil {
		return "", err
	}
	w.noteTypeUse(t)
	return name, nil
}

// noteTypeUse records side effects of touching a type: the half header
// and the generated half4 struct.
func (w *writer) noteTypeUse(t kir.Type) {
	switch tt := t.(type) {
	case kir.Scalar:
		if tt.Kind == kir.F16 {
			w.asm.noteF16()
		}
	case kir.Vector:
		if tt.Elem.Kind == kir.F16 {
			w.asm.noteF16()
			if w.dialect != Metal && tt.Width > 2 {
				w.asm.registerHelper(half4Helper)
			}
		}
	case kir.Pointer:
		w.noteTypeUse(tt.Pointee)
	}
}

// scanBuiltins walks a scope and records every thread-geometry builtin the
// body references, before any text is emitted.
func (w *writer) scanBuiltins(s *kir.Scope) {
	if s == nil {
		return
	}
	note := func(ops ...kir.Operand) {
		for _, op := range ops {
			if b, ok := op.(kir.BuiltinOperand); ok {
				w.usedBuiltins[b] = struct{}{}
			}
		}
	}
	for _, inst := range s.Body {
		switch in := inst.(type) {
		case kir.Binary:
			note(in.LHS, in.RHS)
		case kir.Unary:
			note(in.Operand)
		case kir.Cast:
			note(in.Value)
		case kir.Reinterpret:
			note(in.Value)
		case kir.Select:
			note(in.Cond, in.Then, in.Else)
		case kir.Load:
			note(in.Ptr, in.Index)
		case kir.Store:
			note(in.Ptr, in.Index, in.Value)
		case kir.Atomic:
			note(in.Ptr, in.Index, in.Compare, in.Value)
		case kir.CallBuiltin:
			note(in.Args...)
		case kir.VecConstruct:
			note(in.Elems...)
		case kir.VecExtract:
			note(in.Vec)
		case kir.VecShuffle:
			note(in.Vec)
		case kir.If:
			note(in.Cond)
			w.scanBuiltins(in.Then)
			w.scanBuiltins(in.Else)
		case kir.For:
			note(in.Start, in.End, in.Step)
			w.scanBuiltins(in.Body)
		case kir.While:
			note(in.Cond)
			w.scanBuiltins(in.Body)
		case kir.Loop:
			w.scanBuiltins(in.Body)
		}
	}
}

// scanWrites counts stores to each variable across the whole kernel so
// declarations can pick between const and mutable forms.
func (w *writer) scanWrites(s *kir.Scope) {
	if s == nil {
		return
	}
	count := func(v *kir.Variable) {
		if v != nil {
			w.writeCounts[v.ID]++
		}
	}
	for _, inst := range s.Body {
		switch in := inst.(type) {
		case kir.Binary:
			count(in.Result)
		case kir.Unary:
			count(in.Result)
		case kir.Cast:
			count(in.Result)
		case kir.Reinterpret:
			count(in.Result)
		case kir.Select:
			count(in.Result)
		case kir.Load:
			count(in.Result)
		case kir.Atomic:
			count(in.Result)
		case kir.CallBuiltin:
			count(in.Result)
		case kir.VecConstruct:
			count(in.Result)
		case kir.VecExtract:
			count(in.Result)
		case kir.VecShuffle:
			count(in.Result)
		case kir.If:
			w.scanWrites(in.Then)
			w.scanWrites(in.Else)
		case kir.For:
			count(in.Counter)
			w.scanWrites(in.Body)
		case kir.While:
			w.scanWrites(in.Body)
		case kir.Loop:
			w.scanWrites(in.Body)
		}
	}
}
