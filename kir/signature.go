package kir

// Param is one kernel parameter: a global/constant buffer pointer or a
// scalar passed by value, bound at an explicit index. The body references
// the parameter through Var.
type Param struct {
	// Var carries the parameter's name and type. The type must be a
	// Pointer (buffer) or Scalar (by-value argument).
	Var *Variable

	// Binding is the parameter's binding slot. Bindings must be unique
	// within a signature.
	Binding uint32

	// ReadOnly buffers are emitted const-qualified, letting the native
	// compiler assume no writes through the parameter.
	ReadOnly bool
}

// SharedBuffer requests a statically sized block of shared/threadgroup
// memory. Var carries the buffer's name and must be a pointer into
// SpaceShared; the body loads, stores, and runs atomics through it like
// any other pointer operand. A zero Len emits no declaration.
type SharedBuffer struct {
	Var *Variable
	Len uint32
}

// Elem returns the buffer's element type, or nil when Var is not a
// pointer.
func (b SharedBuffer) Elem() Type {
	if b.Var == nil {
		return nil
	}
	p, ok := b.Var.Type.(Pointer)
	if !ok {
		return nil
	}
	return p.Pointee
}

// Bytes returns the buffer's size in bytes.
func (b SharedBuffer) Bytes() uint32 {
	elem := b.Elem()
	if elem == nil {
		return 0
	}
	return b.Len * uint32(BitWidth(elem)/8)
}

// Signature describes a kernel entry point: name, ordered parameters,
// launch-bound metadata, and shared-memory requests.
type Signature struct {
	Name string

	Params []Param

	// MaxThreadsPerBlock caps the block/threadgroup size the kernel may be
	// launched with. Zero leaves the bound unspecified.
	MaxThreadsPerBlock uint32

	Shared []SharedBuffer
}

// SharedBytes returns the total shared-memory request in bytes.
func (s *Signature) SharedBytes() uint32 {
	var total uint32
	for _, buf := range s.Shared {
		total += buf.Bytes()
	}
	return total
}

// Kernel is one complete compute kernel: its signature and root scope.
// A Kernel is a read-only input to a lowering pass; independent passes
// over the same Kernel may run concurrently.
type Kernel struct {
	Signature Signature
	Body      *Scope
}
