package iterator

import (
	"github.com/oracle/nosql-go-queryexec/pkgs/queryplan"
	"github.com/oracle/nosql-go-queryexec/pkgs/value"
)

// minMaxIter aggregates its input stream into a single accumulator holding
// the current best value per comparator rules. Types unsupported for
// ordering (Map, Record) are skipped rather than erroring, matching the
// comparator's own treatment of those kinds.
type minMaxIter struct {
	resPos int32
	fn     queryplan.FuncCode
	input  Iter

	hasAcc bool
	acc    value.Value
	done   bool
}

func newMinMaxIter(s *queryplan.Step) (Iter, error) {
	input, err := Build(s.Input)
	if err != nil {
		return nil, err
	}
	return &minMaxIter{resPos: s.ResPos, fn: s.MinMaxFunc, input: input}, nil
}

func (m *minMaxIter) ResPos() int32 { return m.resPos }

func (m *minMaxIter) Next(env *Env) (bool, error) {
	if m.done {
		return false, nil
	}
	for {
		has, err := m.input.Next(env)
		if err != nil {
			return false, err
		}
		if !has {
			break
		}
		v := env.Reg(m.input.ResPos())
		if v.Kind() == value.KindMap || v.Kind() == value.KindRecord {
			continue
		}
		if !m.hasAcc {
			m.acc, m.hasAcc = v, true
			continue
		}
		cmp := value.Compare(v, m.acc, value.NullsLast, env.NumHandler)
		if (m.fn == queryplan.FuncMin && cmp < 0) || (m.fn == queryplan.FuncMax && cmp > 0) {
			m.acc = v
		}
	}
	m.done = true
	if !m.hasAcc {
		return false, nil
	}
	env.SetReg(m.resPos, m.acc)
	return true, nil
}

func (m *minMaxIter) Reset(env *Env, resetRegister bool) error {
	m.hasAcc, m.done = false, false
	m.acc = value.Empty
	if resetRegister {
		env.SetReg(m.resPos, value.Empty)
	}
	return m.input.Reset(env, true)
}

// MergePartial folds a partial extremum (produced server-side) into this
// accumulator, implementing the streaming contract: MIN/MAX merges extrema
// (spec §4.5/§8 law 4).
func (m *minMaxIter) MergePartial(v value.Value, numHandler value.NumberHandler) {
	if !m.hasAcc {
		m.acc, m.hasAcc = v, true
		return
	}
	cmp := value.Compare(v, m.acc, value.NullsLast, numHandler)
	if (m.fn == queryplan.FuncMin && cmp < 0) || (m.fn == queryplan.FuncMax && cmp > 0) {
		m.acc = v
	}
}
