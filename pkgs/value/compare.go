package value

import (
	"bytes"
	"math/big"
)

// NullRank is the sort-time treatment of SQL NULL / JSON NULL / EMPTY:
// -1 sorts nulls first (ascending), +1 sorts nulls last.
type NullRank int

const (
	NullsFirst NullRank = -1
	NullsLast  NullRank = 1
)

// NumberHandler lets a caller install a custom big-decimal implementation;
// when present, arithmetic and comparisons on Number values route through
// it instead of the engine's built-in big.Rat-backed Decimal.
type NumberHandler interface {
	// Compare returns -1, 0, 1 comparing two decimal-string-encoded numbers.
	Compare(a, b string) int
	// Add, Sub, Mul, Div perform decimal arithmetic on string-encoded numbers.
	Add(a, b string) string
	Sub(a, b string) string
	Mul(a, b string) string
	Div(a, b string) string
}

// typeRank orders Kinds for the heterogeneous total ordering used when two
// values of incompatible kinds must still be ordered deterministically
// (e.g. a mixed-type array sort). Numeric kinds share one rank so that
// cross-numeric comparisons fall through to numeric comparison instead.
func typeRank(k Kind) int {
	switch k {
	case KindSQLNull:
		return 0
	case KindJSONNull:
		return 1
	case KindEmpty:
		return 2
	case KindBoolean:
		return 3
	case KindInteger, KindLong, KindFloat, KindDouble, KindNumber:
		return 4
	case KindTimestamp:
		return 5
	case KindString:
		return 6
	case KindEnum:
		return 7
	case KindBinary:
		return 8
	case KindArray:
		return 9
	case KindMap:
		return 10
	case KindRecord:
		return 11
	default:
		return 12
	}
}

func isNullLike(v Value) bool {
	return v.kind == KindSQLNull || v.kind == KindJSONNull || v.kind == KindEmpty
}

// Compare implements the total ordering used by SORT and FN_MIN_MAX: null-like
// values (SQL NULL, JSON NULL, EMPTY) sort according to rank against other
// values and by type rank among themselves (SQL NULL < JSON NULL < EMPTY),
// numerics compare across representations via the promotion lattice, and
// same-kind complex values compare element-wise / field-wise. Returns -1, 0
// or 1.
func Compare(a, b Value, rank NullRank, numHandler NumberHandler) int {
	aNull, bNull := isNullLike(a), isNullLike(b)
	if aNull && bNull {
		return sign(typeRank(a.kind) - typeRank(b.kind))
	}
	if aNull {
		return int(rank)
	}
	if bNull {
		return -int(rank)
	}

	if a.IsNumeric() && b.IsNumeric() {
		return compareNumeric(a, b, numHandler)
	}

	ra, rb := typeRank(a.kind), typeRank(b.kind)
	if ra != rb {
		return sign(ra - rb)
	}

	switch a.kind {
	case KindBoolean:
		return sign(boolInt(a.boolVal) - boolInt(b.boolVal))
	case KindString:
		return cmpStr(a.strVal, b.strVal)
	case KindEnum:
		return sign(a.enumVal.Ordinal - b.enumVal.Ordinal)
	case KindTimestamp:
		if a.tsVal.Before(b.tsVal) {
			return -1
		} else if a.tsVal.After(b.tsVal) {
			return 1
		}
		return 0
	case KindBinary:
		return bytes.Compare(a.binVal, b.binVal)
	case KindArray:
		return compareArrays(a.arrVal, b.arrVal, rank, numHandler)
	case KindMap, KindRecord:
		// Complex container comparisons are unsupported for ordering; callers
		// (FN_MIN_MAX) skip these rather than calling Compare on them.
		return 0
	default:
		return 0
	}
}

func compareArrays(a, b []Value, rank NullRank, numHandler NumberHandler) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := Compare(a[i], b[i], rank, numHandler); c != 0 {
			return c
		}
	}
	return sign(len(a) - len(b))
}

// compareNumeric implements the promotion lattice: Integer ⊂ Long ⊂ Double,
// with Decimal as a lateral branch that pulls the comparison to decimal
// whenever either operand is a Number.
func compareNumeric(a, b Value, numHandler NumberHandler) int {
	if a.kind == KindNumber || b.kind == KindNumber {
		da, db := toDecimalString(a), toDecimalString(b)
		if numHandler != nil {
			return numHandler.Compare(da, db)
		}
		ra, _ := new(big.Rat).SetString(da)
		rb, _ := new(big.Rat).SetString(db)
		return ra.Cmp(rb)
	}
	fa, _ := a.AsFloat64()
	fb, _ := b.AsFloat64()
	if fa < fb {
		return -1
	} else if fa > fb {
		return 1
	}
	return 0
}

func toDecimalString(v Value) string {
	if v.kind == KindNumber {
		return v.numVal.String()
	}
	f, _ := v.AsFloat64()
	return new(big.Float).SetFloat64(f).Text('f', -1)
}

// Equal implements query equality: numerics compare equal across
// representations (a decimal equal to its double form is query-equal),
// which is the basis for grouping-key equivalence (spec §8 law 3).
func Equal(a, b Value, numHandler NumberHandler) bool {
	if isNullLike(a) || isNullLike(b) {
		return a.kind == b.kind
	}
	if a.IsNumeric() && b.IsNumeric() {
		return compareNumeric(a, b, numHandler) == 0
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindBoolean:
		return a.boolVal == b.boolVal
	case KindString:
		return a.strVal == b.strVal
	case KindEnum:
		return a.enumVal.Ordinal == b.enumVal.Ordinal
	case KindTimestamp:
		return a.tsVal.Equal(b.tsVal)
	case KindBinary:
		return bytes.Equal(a.binVal, b.binVal)
	case KindArray:
		if len(a.arrVal) != len(b.arrVal) {
			return false
		}
		for i := range a.arrVal {
			if !Equal(a.arrVal[i], b.arrVal[i], numHandler) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.mapVal) != len(b.mapVal) {
			return false
		}
		for k, av := range a.mapVal {
			bv, ok := b.mapVal[k]
			if !ok || !Equal(av, bv, numHandler) {
				return false
			}
		}
		return true
	case KindRecord:
		if len(a.recVal) != len(b.recVal) {
			return false
		}
		for i := range a.recVal {
			if a.recVal[i].Name != b.recVal[i].Name || !Equal(a.recVal[i].Value, b.recVal[i].Value, numHandler) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func sign(i int) int {
	if i < 0 {
		return -1
	} else if i > 0 {
		return 1
	}
	return 0
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func cmpStr(a, b string) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}
