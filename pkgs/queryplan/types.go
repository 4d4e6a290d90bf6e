// Package queryplan holds the plan-step tree types the server ships to the
// client, and the deserializer that decodes them from the wire format
// described in the engine's external interfaces: a tagged byte per step, a
// fixed header, then a kind-specific payload.
package queryplan

import "github.com/oracle/nosql-go-queryexec/pkgs/value"

// Kind is the wire ordinal of a plan step, taken from the server's
// plan-iterator enum. Values not listed here are out of scope for this
// engine and produce a bad-protocol error naming the decoded ordinal.
type Kind uint8

const (
	KindConst        Kind = 0
	KindVarRef       Kind = 1
	KindExternalVar  Kind = 2
	KindArithOp      Kind = 8
	KindFieldStep    Kind = 11
	KindSFW          Kind = 14
	KindRecv         Kind = 17
	KindFnSum        Kind = 39
	KindFnMinMax     Kind = 41
	KindSort         Kind = 47
	nullTag          byte = 0xFF
)

func (k Kind) String() string {
	switch k {
	case KindConst:
		return "CONST"
	case KindVarRef:
		return "VAR_REF"
	case KindExternalVar:
		return "EXTERNAL_VAR_REF"
	case KindArithOp:
		return "ARITH_OP"
	case KindFieldStep:
		return "FIELD_STEP"
	case KindSFW:
		return "SFW"
	case KindRecv:
		return "RECV"
	case KindFnSum:
		return "FN_SUM"
	case KindFnMinMax:
		return "FN_MIN_MAX"
	case KindSort:
		return "SORT"
	default:
		return "UNKNOWN"
	}
}

// FuncCode identifies an aggregate or min/max function, shared between the
// FN_MIN_MAX iterator's own function code and the aggregator kinds derived
// from SFW's column list.
type FuncCode int32

const (
	FuncCountStar            FuncCode = 42
	FuncCount                FuncCode = 43
	FuncCountNumbers         FuncCode = 44
	FuncSum                  FuncCode = 45
	FuncMin                  FuncCode = 47
	FuncMax                  FuncCode = 48
	FuncArrayCollect         FuncCode = 91
	FuncArrayCollectDistinct FuncCode = 92
)

func (f FuncCode) String() string {
	switch f {
	case FuncCountStar:
		return "COUNT_STAR"
	case FuncCount:
		return "COUNT"
	case FuncCountNumbers:
		return "COUNT_NUMBERS"
	case FuncSum:
		return "SUM"
	case FuncMin:
		return "MIN"
	case FuncMax:
		return "MAX"
	case FuncArrayCollect:
		return "ARRAY_COLLECT"
	case FuncArrayCollectDistinct:
		return "ARRAY_COLLECT_DISTINCT"
	default:
		return "UNKNOWN"
	}
}

// ArithOp selects ADD_SUB or MULT_DIV semantics for an ARITH_OP step.
type ArithOp int32

const (
	OpAddSub  ArithOp = 14
	OpMultDiv ArithOp = 15
)

func (o ArithOp) String() string {
	switch o {
	case OpAddSub:
		return "ADD_SUB"
	case OpMultDiv:
		return "MULT_DIV"
	default:
		return "UNKNOWN"
	}
}

// DistKind is a RECEIVE step's distribution kind.
type DistKind int32

const (
	DistSinglePartition DistKind = 0
	DistAllPartitions   DistKind = 1
	DistAllShards       DistKind = 2
)

func (d DistKind) String() string {
	switch d {
	case DistSinglePartition:
		return "SINGLE_PARTITION"
	case DistAllPartitions:
		return "ALL_PARTITIONS"
	case DistAllShards:
		return "ALL_SHARDS"
	default:
		return "UNKNOWN"
	}
}

// Location mirrors errors.Location so this package doesn't import the
// errors package's validation side effects into every Step literal.
type Location struct {
	StartLine, StartColumn, EndLine, EndColumn int32
}

// SortSpec is one field's sort directive: field name, direction, and a
// null-rank already resolved from the wire's "nulls lowest" boolean.
type SortSpec struct {
	FieldName  string
	Descending bool
	NullRank   value.NullRank
}

// Step is a single plan tree node. Only the fields relevant to Kind are
// populated; this mirrors the "one struct, fields per variant" shape used
// for the wire's own per-kind payloads.
type Step struct {
	Kind   Kind
	ResPos int32
	Loc    Location

	// CONST
	ConstVal value.Value

	// VAR_REF
	VarName string

	// EXTERNAL_VAR_REF
	ExtVarName  string
	ExtVarIndex int32

	// FIELD_STEP
	Input     *Step
	FieldName string

	// ARITH_OP
	ArithOp  ArithOp
	Args     []*Step
	ArithOps string // one char per argument, '+'/'-' or '*'/'/'

	// FN_MIN_MAX
	MinMaxFunc FuncCode

	// FN_SUM / FN_MIN_MAX share Input above for their single argument.

	// SORT
	SortSpecs []SortSpec

	// RECV
	DistKind DistKind
	RecvSort []SortSpec
	PKFields []string

	// SFW
	ColumnNames  []string
	GBColCount   int32
	FromVar      string
	SelectStar   bool
	ColumnSteps  []*Step
	FromStep     *Step
	OffsetStep   *Step
	LimitStep    *Step
	Aggregators  []FuncCode // derived: one per column that is an aggregate, FuncCode(0) otherwise
}
