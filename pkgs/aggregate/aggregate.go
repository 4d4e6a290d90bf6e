// Package aggregate implements the group/aggregator engine SFW drives in
// grouping mode: a hash table of running aggregates keyed by a serialized
// grouping key, and the eight aggregator kinds the plan's column list can
// reference.
package aggregate

import (
	"math/big"

	"github.com/oracle/nosql-go-queryexec/pkgs/binfmt"
	queryerr "github.com/oracle/nosql-go-queryexec/pkgs/errors"
	"github.com/oracle/nosql-go-queryexec/pkgs/queryplan"
	"github.com/oracle/nosql-go-queryexec/pkgs/value"
)

// Aggregator accumulates one column's running value across the rows of a
// single group. A fresh Aggregator is created per group, per column.
type Aggregator interface {
	// Add folds one input value into the accumulator.
	Add(v value.Value) error
	// MergePartial folds a server-computed partial aggregate of the same
	// kind into the accumulator (spec §8 law 4).
	MergePartial(v value.Value) error
	// Result returns the aggregator's current value.
	Result() value.Value
}

// New builds the Aggregator for fn. ARRAY_COLLECT_DISTINCT additionally
// needs a NumberHandler for its element dedup key.
func New(fn queryplan.FuncCode, numHandler value.NumberHandler) (Aggregator, error) {
	switch fn {
	case queryplan.FuncCountStar:
		return &countStar{}, nil
	case queryplan.FuncCount:
		return &count{}, nil
	case queryplan.FuncCountNumbers:
		return &countNumbers{}, nil
	case queryplan.FuncSum:
		return &sumAgg{acc: new(big.Rat)}, nil
	case queryplan.FuncMin, queryplan.FuncMax:
		return &minMaxAgg{fn: fn}, nil
	case queryplan.FuncArrayCollect:
		return &arrayCollect{}, nil
	case queryplan.FuncArrayCollectDistinct:
		return &arrayCollect{distinct: true, numHandler: numHandler, seen: map[string]struct{}{}}, nil
	default:
		return nil, queryerr.BadProtocol("aggregate: unknown function code %d", fn)
	}
}

// countStar counts every input row unconditionally.
type countStar struct{ n int64 }

func (c *countStar) Add(value.Value) error          { c.n++; return nil }
func (c *countStar) MergePartial(v value.Value) error {
	n, _ := v.AsFloat64()
	c.n += int64(n)
	return nil
}
func (c *countStar) Result() value.Value { return value.Long(c.n) }

// count increments for every value that is neither SQL NULL nor EMPTY.
type count struct{ n int64 }

func (c *count) Add(v value.Value) error {
	if !v.IsNull() && !v.IsEmpty() {
		c.n++
	}
	return nil
}
func (c *count) MergePartial(v value.Value) error {
	n, _ := v.AsFloat64()
	c.n += int64(n)
	return nil
}
func (c *count) Result() value.Value { return value.Long(c.n) }

// countNumbers increments only for numeric inputs.
type countNumbers struct{ n int64 }

func (c *countNumbers) Add(v value.Value) error {
	if v.IsNumeric() {
		c.n++
	}
	return nil
}
func (c *countNumbers) MergePartial(v value.Value) error {
	n, _ := v.AsFloat64()
	c.n += int64(n)
	return nil
}
func (c *countNumbers) Result() value.Value { return value.Long(c.n) }

// sumAgg accumulates numeric values only; an empty SUM resolves to SQL NULL.
type sumAgg struct {
	hasAny bool
	acc    *big.Rat
}

func (s *sumAgg) Add(v value.Value) error {
	if !v.IsNumeric() {
		return nil
	}
	s.hasAny = true
	s.acc.Add(s.acc, toRat(v))
	return nil
}

func (s *sumAgg) MergePartial(v value.Value) error { return s.Add(v) }

func (s *sumAgg) Result() value.Value {
	if !s.hasAny {
		return value.SQLNull
	}
	return value.NumberFromRat(s.acc)
}

// minMaxAgg tracks the best value seen so far per comparator rules. Types
// unsupported for ordering (Map, Record) are skipped.
type minMaxAgg struct {
	fn     queryplan.FuncCode
	hasAcc bool
	acc    value.Value
}

func (m *minMaxAgg) Add(v value.Value) error {
	if v.Kind() == value.KindMap || v.Kind() == value.KindRecord {
		return nil
	}
	if !m.hasAcc {
		m.acc, m.hasAcc = v, true
		return nil
	}
	c := value.Compare(v, m.acc, value.NullsLast, nil)
	if (m.fn == queryplan.FuncMin && c < 0) || (m.fn == queryplan.FuncMax && c > 0) {
		m.acc = v
	}
	return nil
}

func (m *minMaxAgg) MergePartial(v value.Value) error { return m.Add(v) }

func (m *minMaxAgg) Result() value.Value {
	if !m.hasAcc {
		return value.SQLNull
	}
	return m.acc
}

// arrayCollect appends each element of an array input to a running list,
// requiring that the input actually be an array (spec §4.5). Distinct mode
// skips elements whose serialized key has already been seen.
type arrayCollect struct {
	distinct   bool
	numHandler value.NumberHandler
	elems      []value.Value
	seen       map[string]struct{}
}

func (a *arrayCollect) Add(v value.Value) error {
	if v.Kind() != value.KindArray {
		return queryerr.IllegalState("ARRAY_COLLECT: input is not an array (kind %v)", v.Kind())
	}
	for _, e := range v.Elems() {
		if a.distinct {
			key, err := elemKey(e, a.numHandler)
			if err != nil {
				return err
			}
			if _, ok := a.seen[key]; ok {
				continue
			}
			a.seen[key] = struct{}{}
		}
		a.elems = append(a.elems, e)
	}
	return nil
}

func (a *arrayCollect) MergePartial(v value.Value) error { return a.Add(v) }

func (a *arrayCollect) Result() value.Value { return value.Array(a.elems...) }

func elemKey(v value.Value, numHandler value.NumberHandler) (string, error) {
	b, err := binfmt.GroupKey(v, numHandler)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func toRat(v value.Value) *big.Rat {
	if v.Kind() == value.KindNumber {
		return v.Decimal().Rat
	}
	f, _ := v.AsFloat64()
	return new(big.Rat).SetFloat64(f)
}
