package iterator

import (
	"github.com/oracle/nosql-go-queryexec/pkgs/aggregate"
	"github.com/oracle/nosql-go-queryexec/pkgs/binfmt"
	queryerr "github.com/oracle/nosql-go-queryexec/pkgs/errors"
	"github.com/oracle/nosql-go-queryexec/pkgs/queryplan"
	"github.com/oracle/nosql-go-queryexec/pkgs/value"
)

// sfwIter is the top-level Select-From-Where operator: it projects columns
// from its FROM source, optionally groups and aggregates, applies offset
// and limit, and assembles the output row (or passes one through directly
// for SELECT *).
type sfwIter struct {
	resPos      int32
	columnNames []string
	columnSteps []Iter
	fromStep    Iter
	fromVar     string
	selectStar  bool
	grouping    bool
	gbColCount  int32
	aggregators []queryplan.FuncCode

	offsetStep Iter
	limitStep  Iter

	offset     int64
	limit      int64
	haveBounds bool
	emitted    int64
	consumedOffset int64

	table        *aggregate.Table
	groupsPos    int
	groupsReady  bool
	numHandler   value.NumberHandler
}

func newSFWIter(s *queryplan.Step) (Iter, error) {
	from, err := Build(s.FromStep)
	if err != nil {
		return nil, err
	}
	cols, err := buildAll(s.ColumnSteps)
	if err != nil {
		return nil, err
	}
	var offsetIt, limitIt Iter
	if s.OffsetStep != nil {
		offsetIt, err = Build(s.OffsetStep)
		if err != nil {
			return nil, err
		}
	}
	if s.LimitStep != nil {
		limitIt, err = Build(s.LimitStep)
		if err != nil {
			return nil, err
		}
	}
	return &sfwIter{
		resPos:      s.ResPos,
		columnNames: s.ColumnNames,
		columnSteps: cols,
		fromStep:    from,
		fromVar:     s.FromVar,
		selectStar:  s.SelectStar,
		grouping:    s.GBColCount >= 0,
		gbColCount:  s.GBColCount,
		aggregators: s.Aggregators,
		offsetStep:  offsetIt,
		limitStep:   limitIt,
		limit:       -1,
	}, nil
}

func (f *sfwIter) ResPos() int32 { return f.resPos }

func (f *sfwIter) Next(env *Env) (bool, error) {
	if err := f.ensureBounds(env); err != nil {
		return false, err
	}
	if f.limit == 0 {
		return false, nil
	}
	if f.grouping {
		return f.nextGrouped(env)
	}
	return f.nextPlain(env)
}

// ensureBounds evaluates offset/limit exactly once, from synchronous
// sub-iterators, at first use (spec §4.6).
func (f *sfwIter) ensureBounds(env *Env) error {
	if f.haveBounds {
		return nil
	}
	f.haveBounds = true
	f.numHandler = env.NumHandler
	if f.offsetStep != nil {
		v, err := evalInt32Bound(env, f.offsetStep, "OFFSET")
		if err != nil {
			return err
		}
		f.offset = int64(v)
	}
	if f.limitStep != nil {
		v, err := evalInt32Bound(env, f.limitStep, "LIMIT")
		if err != nil {
			return err
		}
		f.limit = int64(v)
	} else {
		f.limit = -1
	}
	return nil
}

func evalInt32Bound(env *Env, it Iter, name string) (int32, error) {
	has, err := it.Next(env)
	if err != nil {
		return 0, err
	}
	if !has {
		return 0, queryerr.IllegalState("SFW: %s iterator produced no result", name).WithIterator("SFW")
	}
	v := env.Reg(it.ResPos())
	var n int64
	switch v.Kind() {
	case value.KindInteger:
		n = int64(v.Int())
	case value.KindLong:
		n = v.Long()
	default:
		return 0, queryerr.IllegalArgument("SFW: %s must be an integer value, got %v", name, v.Kind()).WithIterator("SFW")
	}
	if n < 0 || n > int64(1)<<31-1 {
		return 0, queryerr.IllegalArgument("SFW: %s value %d is out of 32-bit non-negative range", name, n).WithIterator("SFW")
	}
	return int32(n), nil
}

func (f *sfwIter) limitReached() bool {
	return f.limit >= 0 && f.emitted >= f.limit
}

// nextPlain handles the non-grouping path: project each row, applying
// offset/limit, with SELECT * passthrough via the first column's register.
func (f *sfwIter) nextPlain(env *Env) (bool, error) {
	for {
		if f.limitReached() {
			return false, nil
		}
		row, err := f.pullRow(env)
		if err != nil {
			return false, err
		}
		if !row.ok {
			return false, nil
		}
		if f.consumedOffset < f.offset {
			f.consumedOffset++
			continue
		}
		f.emitted++
		env.SetReg(f.resPos, row.val)
		return true, nil
	}
}

type pulledRow struct {
	ok  bool
	val value.Value
}

func (f *sfwIter) pullRow(env *Env) (pulledRow, error) {
	has, err := f.fromStep.Next(env)
	if err != nil {
		return pulledRow{}, err
	}
	if !has {
		return pulledRow{}, nil
	}
	val, err := f.assembleRow(env)
	if err != nil {
		return pulledRow{}, err
	}
	return pulledRow{ok: true, val: val}, nil
}

func (f *sfwIter) assembleRow(env *Env) (value.Value, error) {
	if f.selectStar {
		if _, err := f.columnSteps[0].Next(env); err != nil {
			return value.Value{}, err
		}
		return env.Reg(f.columnSteps[0].ResPos()), nil
	}
	fields := make([]value.Field, 0, len(f.columnSteps))
	for i, col := range f.columnSteps {
		if _, err := col.Next(env); err != nil {
			return value.Value{}, err
		}
		fields = append(fields, value.Field{Name: f.columnNames[i], Value: env.Reg(col.ResPos())})
	}
	return value.Record(fields...), nil
}

// nextGrouped buffers the entire grouped result on first call (groups can
// only be finalized once the whole input is seen or continuation stops it),
// then drains one group per call.
func (f *sfwIter) nextGrouped(env *Env) (bool, error) {
	if !f.groupsReady {
		if err := f.fillGroups(env); err != nil {
			return false, err
		}
		if env.NeedUserContinuation {
			return false, nil
		}
		f.groupsReady = true
	}
	for {
		if f.limitReached() || f.table == nil || f.groupsPos >= f.table.Len() {
			return false, nil
		}
		g := f.table.Groups()[f.groupsPos]
		f.groupsPos++
		if f.consumedOffset < f.offset {
			f.consumedOffset++
			continue
		}
		f.emitted++
		env.SetReg(f.resPos, f.assembleGroupRow(g))
		return true, nil
	}
}

func (f *sfwIter) fillGroups(env *Env) error {
	if f.table == nil {
		f.table = aggregate.NewTable()
	}
	for {
		has, err := f.fromStep.Next(env)
		if err != nil {
			return err
		}
		if !has {
			return nil
		}
		byCols := make([]value.Value, f.gbColCount)
		skip := false
		for i := 0; i < int(f.gbColCount); i++ {
			if _, err := f.columnSteps[i].Next(env); err != nil {
				return err
			}
			v := env.Reg(f.columnSteps[i].ResPos())
			if v.IsEmpty() {
				skip = true
				break
			}
			byCols[i] = v
		}
		if skip {
			if env.NeedUserContinuation {
				return nil
			}
			continue
		}
		key, err := binfmt.CompositeGroupKey(byCols, false, f.numHandler)
		if err != nil {
			return err
		}
		g, _, err := f.table.GroupFor(string(key), byCols, func() ([]aggregate.Aggregator, error) {
			aggs := make([]aggregate.Aggregator, len(f.columnSteps)-int(f.gbColCount))
			for i := range aggs {
				a, err := aggregate.New(f.aggregators[int(f.gbColCount)+i], f.numHandler)
				if err != nil {
					return nil, err
				}
				aggs[i] = a
			}
			return aggs, nil
		})
		if err != nil {
			return err
		}
		for i, agg := range g.Aggregators {
			colIdx := int(f.gbColCount) + i
			if _, err := f.columnSteps[colIdx].Next(env); err != nil {
				return err
			}
			v := env.Reg(f.columnSteps[colIdx].ResPos())
			if err := agg.Add(v); err != nil {
				return err
			}
		}
		if env.NeedUserContinuation {
			return nil
		}
	}
}

func (f *sfwIter) assembleGroupRow(g *aggregate.Group) value.Value {
	fields := make([]value.Field, 0, len(f.columnNames))
	for i := 0; i < int(f.gbColCount); i++ {
		fields = append(fields, value.Field{Name: f.columnNames[i], Value: g.ByCols[i]})
	}
	for i, agg := range g.Aggregators {
		fields = append(fields, value.Field{Name: f.columnNames[int(f.gbColCount)+i], Value: agg.Result()})
	}
	return value.Record(fields...)
}

func (f *sfwIter) Reset(env *Env, resetRegister bool) error {
	f.haveBounds = false
	f.emitted = 0
	f.consumedOffset = 0
	f.table = nil
	f.groupsPos = 0
	f.groupsReady = false
	if resetRegister {
		env.SetReg(f.resPos, value.Empty)
	}
	return f.fromStep.Reset(env, true)
}
