package iterator

import (
	"sort"

	"github.com/oracle/nosql-go-queryexec/pkgs/queryplan"
	"github.com/oracle/nosql-go-queryexec/pkgs/value"
)

type sortState int

const (
	sortFilling sortState = iota
	sortReady
	sortDraining
	sortDone
)

// sortIter buffers its entire input, charging memory per buffered row, then
// emits rows in a single stable sort ordered by its SortSpecs. EMPTY inputs
// are converted to SQL NULL only at drain time, not as rows are buffered
// (locked open-question decision: the server's own SORT is bug-compatible
// with this ordering of operations).
type sortIter struct {
	resPos int32
	specs  []queryplan.SortSpec
	input  Iter

	state sortState
	rows  []value.Value
	sizes []int64
	pos   int
}

func newSortIter(s *queryplan.Step) (Iter, error) {
	input, err := Build(s.Input)
	if err != nil {
		return nil, err
	}
	return &sortIter{resPos: s.ResPos, specs: s.SortSpecs, input: input}, nil
}

func (s *sortIter) ResPos() int32 { return s.resPos }

func (s *sortIter) Next(env *Env) (bool, error) {
	if s.state == sortFilling {
		if err := s.fill(env); err != nil {
			return false, err
		}
		if env.NeedUserContinuation {
			// Filling was cut short by the at-most-one-fetch rule; leave the
			// partial buffer in place and come back next user call.
			return false, nil
		}
		s.convertEmptyToNull()
		sort.SliceStable(s.rows, func(i, j int) bool { return s.less(s.rows[i], s.rows[j]) })
		s.state = sortReady
	}
	if s.pos >= len(s.rows) {
		s.state = sortDone
		return false, nil
	}
	row := s.rows[s.pos]
	env.Mem.Dec(s.sizes[s.pos])
	s.pos++
	env.SetReg(s.resPos, row)
	return true, nil
}

func (s *sortIter) fill(env *Env) error {
	for {
		has, err := s.input.Next(env)
		if err != nil {
			return err
		}
		if !has {
			return nil
		}
		v := env.Reg(s.input.ResPos())
		sz := v.ByteSize()
		if err := env.Mem.Inc(sz); err != nil {
			return err
		}
		s.rows = append(s.rows, v)
		s.sizes = append(s.sizes, sz)
		if env.NeedUserContinuation {
			return nil
		}
	}
}

// convertEmptyToNull applies the EMPTY->SQL NULL rule to every buffered row
// right before sorting, not as each row arrives.
func (s *sortIter) convertEmptyToNull() {
	for i, v := range s.rows {
		if v.IsEmpty() {
			s.rows[i] = value.SQLNull
		}
	}
}

func (s *sortIter) less(a, b value.Value) bool {
	for _, spec := range s.specs {
		fa, fb := fieldOf(a, spec.FieldName), fieldOf(b, spec.FieldName)
		c := value.Compare(fa, fb, spec.NullRank, nil)
		if spec.Descending {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
	}
	return false
}

func fieldOf(row value.Value, field string) value.Value {
	switch row.Kind() {
	case value.KindMap:
		if v, ok := row.MapGet(field); ok {
			return v
		}
	case value.KindRecord:
		if v, ok := row.RecordGet(field); ok {
			return v
		}
	}
	return value.Empty
}

func (s *sortIter) Reset(env *Env, resetRegister bool) error {
	for _, sz := range s.sizes[s.pos:] {
		env.Mem.Dec(sz)
	}
	s.rows, s.sizes = nil, nil
	s.pos = 0
	s.state = sortFilling
	if resetRegister {
		env.SetReg(s.resPos, value.Empty)
	}
	return s.input.Reset(env, true)
}
