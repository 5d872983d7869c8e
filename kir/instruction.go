package kir

// Instruction is the closed set of kernel operations. Adding a lowering
// rule for a new kind is a single exhaustive switch arm in the cpp package.
type Instruction interface {
	instruction()
}

// BinaryOp enumerates binary operators.
type BinaryOp uint8

const (
	// Arithmetic and bitwise operators.
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr

	// Comparison operators. The result variable must be Bool.
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	// Logical operators over Bool operands.
	OpLogicalAnd
	OpLogicalOr
)

// IsComparison reports whether the operator yields a Bool.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	default:
		return false
	}
}

// UnaryOp enumerates unary operators.
type UnaryOp uint8

const (
	OpNeg UnaryOp = iota
	OpNot
	OpBitNot
)

// Binary applies a binary operator and assigns the result.
type Binary struct {
	Op     BinaryOp
	LHS    Operand
	RHS    Operand
	Result *Variable
}

func (Binary) instruction() {}

// Unary applies a unary operator and assigns the result.
type Unary struct {
	Op      UnaryOp
	Operand Operand
	Result  *Variable
}

func (Unary) instruction() {}

// Cast converts a value to the result variable's type, changing the
// numeric value representation.
type Cast struct {
	Value  Operand
	Result *Variable
}

func (Cast) instruction() {}

// Reinterpret reuses a value's bit pattern as the result variable's type.
// Source and destination widths must match.
type Reinterpret struct {
	Value  Operand
	Result *Variable
}

func (Reinterpret) instruction() {}

// Select assigns Then or Else depending on Cond.
type Select struct {
	Cond   Operand
	Then   Operand
	Else   Operand
	Result *Variable
}

func (Select) instruction() {}

// Load reads through a pointer. When Index is non-nil the pointer is
// indexed first; otherwise the pointer is dereferenced directly.
type Load struct {
	Ptr    Operand
	Index  Operand
	Result *Variable
}

func (Load) instruction() {}

// Store writes a value through a pointer, with the same indexing rule
// as Load.
type Store struct {
	Ptr   Operand
	Index Operand
	Value Operand
}

func (Store) instruction() {}

// AtomicOp enumerates atomic read-modify-write operations.
type AtomicOp uint8

const (
	AtomicAdd AtomicOp = iota
	AtomicSub
	AtomicMin
	AtomicMax
	AtomicAnd
	AtomicOr
	AtomicXor
	AtomicExchange
	AtomicCompareExchange
)

// String returns the IR spelling of the atomic operation.
func (op AtomicOp) String() string {
	switch op {
	case AtomicAdd:
		return "atomic_add"
	case AtomicSub:
		return "atomic_sub"
	case AtomicMin:
		return "atomic_min"
	case AtomicMax:
		return "atomic_max"
	case AtomicAnd:
		return "atomic_and"
	case AtomicOr:
		return "atomic_or"
	case AtomicXor:
		return "atomic_xor"
	case AtomicExchange:
		return "atomic_exchange"
	case AtomicCompareExchange:
		return "atomic_cmpxchg"
	default:
		return "unknown"
	}
}

// Atomic performs an atomic operation on the addressed element.
// Compare is only consulted for AtomicCompareExchange. Result, when
// non-nil, receives the value held before the operation.
type Atomic struct {
	Op      AtomicOp
	Ptr     Operand
	Index   Operand
	Compare Operand
	Value   Operand
	Result  *Variable
}

func (Atomic) instruction() {}

// BarrierFlags selects which memory accesses a barrier orders, using the
// bitflags pattern. A zero value is a plain execution barrier over the
// block/threadgroup.
type BarrierFlags uint32

const (
	// BarrierShared orders shared/threadgroup memory accesses.
	BarrierShared BarrierFlags = 1 << 0

	// BarrierGlobal orders global/device memory accesses.
	BarrierGlobal BarrierFlags = 1 << 1

	// BarrierSubgroup synchronizes only the warp/SIMD-group.
	BarrierSubgroup BarrierFlags = 1 << 2
)

// Barrier synchronizes invocations. Barriers are emitted exactly once per
// occurrence in program order; they are never merged or reordered.
type Barrier struct {
	Flags BarrierFlags
}

func (Barrier) instruction() {}

// Builtin enumerates the abstract built-in functions the IR may call.
// Dialect-native spellings are resolved by the cpp dialect descriptors.
type Builtin uint8

const (
	BuiltinSqrt Builtin = iota
	BuiltinRsqrt
	BuiltinExp
	BuiltinExp2
	BuiltinLog
	BuiltinLog2
	BuiltinSin
	BuiltinCos
	BuiltinTanh
	BuiltinErf
	BuiltinPow
	BuiltinFloor
	BuiltinCeil
	BuiltinRound
	BuiltinTrunc
	BuiltinAbs
	BuiltinMin
	BuiltinMax
	BuiltinClamp
	BuiltinFma

	// Warp/SIMD-group cross-lane operations.
	BuiltinSubgroupShuffle
	BuiltinSubgroupShuffleDown
	BuiltinSubgroupShuffleXor
)

// String returns the IR spelling of the builtin.
func (b Builtin) String() string {
	switch b {
	case BuiltinSqrt:
		return "sqrt"
	case BuiltinRsqrt:
		return "rsqrt"
	case BuiltinExp:
		return "exp"
	case BuiltinExp2:
		return "exp2"
	case BuiltinLog:
		return "log"
	case BuiltinLog2:
		return "log2"
	case BuiltinSin:
		return "sin"
	case BuiltinCos:
		return "cos"
	case BuiltinTanh:
		return "tanh"
	case BuiltinErf:
		return "erf"
	case BuiltinPow:
		return "pow"
	case BuiltinFloor:
		return "floor"
	case BuiltinCeil:
		return "ceil"
	case BuiltinRound:
		return "round"
	case BuiltinTrunc:
		return "trunc"
	case BuiltinAbs:
		return "abs"
	case BuiltinMin:
		return "min"
	case BuiltinMax:
		return "max"
	case BuiltinClamp:
		return "clamp"
	case BuiltinFma:
		return "fma"
	case BuiltinSubgroupShuffle:
		return "subgroup_shuffle"
	case BuiltinSubgroupShuffleDown:
		return "subgroup_shuffle_down"
	case BuiltinSubgroupShuffleXor:
		return "subgroup_shuffle_xor"
	default:
		return "unknown"
	}
}

// CallBuiltin calls a built-in function and assigns the result.
type CallBuiltin struct {
	Fn     Builtin
	Args   []Operand
	Result *Variable
}

func (CallBuiltin) instruction() {}

// VecConstruct builds a vector from element operands. The result variable
// must have a Vector type whose width matches len(Elems).
type VecConstruct struct {
	Elems  []Operand
	Result *Variable
}

func (VecConstruct) instruction() {}

// VecExtract reads one lane of a vector.
type VecExtract struct {
	Vec    Operand
	Lane   uint8
	Result *Variable
}

func (VecExtract) instruction() {}

// VecShuffle builds a vector by selecting lanes of a source vector.
// The result width equals len(Pattern).
type VecShuffle struct {
	Vec     Operand
	Pattern []uint8
	Result  *Variable
}

func (VecShuffle) instruction() {}

// If executes Then when Cond holds, otherwise Else. A nil Else emits no
// else block.
type If struct {
	Cond Operand
	Then *Scope
	Else *Scope
}

func (If) instruction() {}

// For is a counted loop: the counter runs from Start while counter < End,
// advancing by Step each iteration. The counter is owned by the loop
// header scope.
type For struct {
	Counter *Variable
	Start   Operand
	End     Operand
	Step    Operand
	Body    *Scope
}

func (For) instruction() {}

// While executes Body while Cond holds.
type While struct {
	Cond Operand
	Body *Scope
}

func (While) instruction() {}

// Loop executes Body until a Break or Return exits it.
type Loop struct {
	Body *Scope
}

func (Loop) instruction() {}

// Break exits the innermost enclosing loop.
type Break struct{}

func (Break) instruction() {}

// Continue skips to the next iteration of the innermost enclosing loop.
type Continue struct{}

func (Continue) instruction() {}

// Return exits the kernel. Kernels return no value.
type Return struct{}

func (Return) instruction() {}

// Scope is an ordered sequence of instructions. Nested scopes hang off
// control instructions; each scope owns the variables first written
// within it.
type Scope struct {
	Body []Instruction
}

// Push appends instructions to the scope in program order.
func (s *Scope) Push(inst ...Instruction) {
	s.Body = append(s.Body, inst...)
}
