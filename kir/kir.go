// Package kir defines the target-independent kernel intermediate
// representation for kernelgen.
//
// The IR describes a single GPU compute kernel: a typed signature, a tree
// of scopes, and a closed set of instructions. It carries no dialect
// knowledge; the cpp package lowers it to CUDA, HIP, or Metal source text.
package kir

// ScalarKind enumerates the scalar types the IR can express.
type ScalarKind uint8

const (
	Bool ScalarKind = iota
	I8
	I16
	I32
	I64
	U8
	U16
	U32
	U64
	F16
	F32
	F64
)

// String returns the IR spelling of the scalar kind.
func (k ScalarKind) String() string {
	switch k {
	case Bool:
		return "bool"
	case I8:
		return "i8"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	case U64:
		return "u64"
	case F16:
		return "f16"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return "unknown"
	}
}

// Bits returns the width of the scalar kind in bits.
func (k ScalarKind) Bits() int {
	switch k {
	case Bool, I8, U8:
		return 8
	case I16, U16, F16:
		return 16
	case I32, U32, F32:
		return 32
	case I64, U64, F64:
		return 64
	default:
		return 0
	}
}

// IsFloat reports whether the kind is a floating-point type.
func (k ScalarKind) IsFloat() bool {
	return k == F16 || k == F32 || k == F64
}

// IsInteger reports whether the kind is an integer type (bool excluded).
func (k ScalarKind) IsInteger() bool {
	switch k {
	case I8, I16, I32, I64, U8, U16, U32, U64:
		return true
	default:
		return false
	}
}

// IsSigned reports whether the kind is a signed integer type.
func (k ScalarKind) IsSigned() bool {
	switch k {
	case I8, I16, I32, I64:
		return true
	default:
		return false
	}
}

// AddressSpace tags where a pointer's data resides.
type AddressSpace uint8

const (
	// SpaceGlobal is device-visible buffer memory.
	SpaceGlobal AddressSpace = iota

	// SpaceShared is block/threadgroup-local memory.
	SpaceShared

	// SpaceLocal is per-thread memory.
	SpaceLocal

	// SpaceConstant is read-only constant memory.
	SpaceConstant
)

// String returns the IR spelling of the address space.
func (s AddressSpace) String() string {
	switch s {
	case SpaceGlobal:
		return "global"
	case SpaceShared:
		return "shared"
	case SpaceLocal:
		return "local"
	case SpaceConstant:
		return "constant"
	default:
		return "unknown"
	}
}

// Type is the closed set of IR types: scalars, fixed-width vectors, and
// pointers tagged with an address space.
type Type interface {
	typeKind()
}

// Scalar is a scalar type.
type Scalar struct {
	Kind ScalarKind
}

func (Scalar) typeKind() {}

// Vector is a fixed-width vector of scalars. Width must be 2, 3, or 4.
type Vector struct {
	Elem  Scalar
	Width uint8
}

func (Vector) typeKind() {}

// Pointer is a pointer to a pointee type in a given address space.
type Pointer struct {
	Pointee Type
	Space   AddressSpace
}

func (Pointer) typeKind() {}

// BitWidth returns the total size of a type in bits. Pointers report the
// width of a 64-bit device pointer.
func BitWidth(t Type) int {
	switch tt := t.(type) {
	case Scalar:
		return tt.Kind.Bits()
	case Vector:
		return tt.Elem.Kind.Bits() * int(tt.Width)
	case Pointer:
		return 64
	default:
		return 0
	}
}

// Variable is a typed binding owned by exactly one scope. Variables with
// an empty Name receive a deterministic identifier at emission time.
type Variable struct {
	// Name is the preferred identifier. It is escaped against the target
	// dialect's reserved words during lowering.
	Name string

	// ID is unique within one kernel. Allocate variables through a Builder
	// to keep IDs dense and deterministic.
	ID uint32

	// Type is the variable's type.
	Type Type

	// Mutable marks variables assigned more than once. Single-assignment
	// variables are emitted as const where the dialect allows it.
	Mutable bool
}

func (*Variable) operand() {}

// Operand is a value consumed by an instruction: a variable reference,
// a literal constant, or a thread-geometry builtin.
type Operand interface {
	operand()
}

// Const wraps a literal value as an instruction operand.
type Const struct {
	Value LiteralValue
}

func (Const) operand() {}

// LiteralValue is the closed set of literal constants.
type LiteralValue interface {
	literalValue()

	// Scalar returns the scalar type of the literal.
	Scalar() Scalar
}

// LiteralBool is a boolean literal.
type LiteralBool bool

func (LiteralBool) literalValue() {}

// Scalar returns the literal's scalar type.
func (LiteralBool) Scalar() Scalar { return Scalar{Kind: Bool} }

// LiteralI32 is a 32-bit signed integer literal.
type LiteralI32 int32

func (LiteralI32) literalValue() {}

// Scalar returns the literal's scalar type.
func (LiteralI32) Scalar() Scalar { return Scalar{Kind: I32} }

// LiteralI64 is a 64-bit signed integer literal.
type LiteralI64 int64

func (LiteralI64) literalValue() {}

// Scalar returns the literal's scalar type.
func (LiteralI64) Scalar() Scalar { return Scalar{Kind: I64} }

// LiteralU32 is a 32-bit unsigned integer literal.
type LiteralU32 uint32

func (LiteralU32) literalValue() {}

// Scalar returns the literal's scalar type.
func (LiteralU32) Scalar() Scalar { return Scalar{Kind: U32} }

// LiteralU64 is a 64-bit unsigned integer literal.
type LiteralU64 uint64

func (LiteralU64) literalValue() {}

// Scalar returns the literal's scalar type.
func (LiteralU64) Scalar() Scalar { return Scalar{Kind: U64} }

// LiteralF16 is a half-precision float literal. The value is held as a
// float32 and rounded to f16 at emission time.
type LiteralF16 float32

func (LiteralF16) literalValue() {}

// Scalar returns the literal's scalar type.
func (LiteralF16) Scalar() Scalar { return Scalar{Kind: F16} }

// LiteralF32 is a 32-bit float literal.
type LiteralF32 float32

func (LiteralF32) literalValue() {}

// Scalar returns the literal's scalar type.
func (LiteralF32) Scalar() Scalar { return Scalar{Kind: F32} }

// LiteralF64 is a 64-bit float literal.
type LiteralF64 float64

func (LiteralF64) literalValue() {}

// Scalar returns the literal's scalar type.
func (LiteralF64) Scalar() Scalar { return Scalar{Kind: F64} }

// BuiltinOperand references a thread-geometry value provided by the kernel
// shell prologue. All builtins have type u32.
type BuiltinOperand uint8

const (
	// GlobalIndex is the absolute linear thread index.
	GlobalIndex BuiltinOperand = iota

	// LocalIndex is the thread index within its block/threadgroup.
	LocalIndex

	// BlockIndex is the block/threadgroup index within the grid.
	BlockIndex

	// BlockDim is the number of threads per block/threadgroup.
	BlockDim

	// LaneIndex is the thread index within its warp/SIMD-group.
	LaneIndex
)

func (BuiltinOperand) operand() {}

// String returns the IR spelling of the builtin.
func (b BuiltinOperand) String() string {
	switch b {
	case GlobalIndex:
		return "global_index"
	case LocalIndex:
		return "local_index"
	case BlockIndex:
		return "block_index"
	case BlockDim:
		return "block_dim"
	case LaneIndex:
		return "lane_index"
	default:
		return "unknown"
	}
}

// OperandType returns the IR type of an operand, or nil for an unknown
// operand kind.
func OperandType(op Operand) Type {
	switch o := op.(type) {
	case *Variable:
		return o.Type
	case Const:
		return o.Value.Scalar()
	case BuiltinOperand:
		return Scalar{Kind: U32}
	default:
		return nil
	}
}
