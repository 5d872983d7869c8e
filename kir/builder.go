package kir

// Builder allocates variables with dense, deterministic IDs for one
// kernel. Lowering the same kernel twice yields byte-identical source only
// if variable IDs are stable, so construction code should allocate every
// variable through a single Builder.
//
// A Builder is not safe for concurrent use; build each kernel on its own
// Builder.
type Builder struct {
	next uint32
}

// NewBuilder returns a Builder whose first variable gets ID 0.
func NewBuilder() *Builder {
	return &Builder{}
}

// Local allocates an anonymous single-assignment variable. Its emitted
// name is derived from the ID.
func (b *Builder) Local(t Type) *Variable {
	v := &Variable{ID: b.next, Type: t}
	b.next++
	return v
}

// Named allocates a named single-assignment variable.
func (b *Builder) Named(name string, t Type) *Variable {
	v := &Variable{Name: name, ID: b.next, Type: t}
	b.next++
	return v
}

// Mutable allocates a named variable that may be reassigned.
func (b *Builder) Mutable(name string, t Type) *Variable {
	v := &Variable{Name: name, ID: b.next, Type: t, Mutable: true}
	b.next++
	return v
}
