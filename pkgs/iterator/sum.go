package iterator

import (
	"math/big"

	"github.com/oracle/nosql-go-queryexec/pkgs/queryplan"
	"github.com/oracle/nosql-go-queryexec/pkgs/value"
)

// sumIter accumulates numeric inputs only; non-numeric inputs are skipped.
// SUM of no numeric inputs is SQL NULL (spec §4.3).
type sumIter struct {
	resPos int32
	input  Iter

	hasAny     bool
	useDecimal bool
	accF       float64
	accR       *big.Rat
	done       bool
}

func newSumIter(s *queryplan.Step) (Iter, error) {
	input, err := Build(s.Input)
	if err != nil {
		return nil, err
	}
	return &sumIter{resPos: s.ResPos, input: input, accR: new(big.Rat)}, nil
}

func (s *sumIter) ResPos() int32 { return s.resPos }

func (s *sumIter) Next(env *Env) (bool, error) {
	if s.done {
		return false, nil
	}
	for {
		has, err := s.input.Next(env)
		if err != nil {
			return false, err
		}
		if !has {
			break
		}
		v := env.Reg(s.input.ResPos())
		if !v.IsNumeric() {
			continue
		}
		s.add(v)
	}
	s.done = true
	env.SetReg(s.resPos, s.result())
	return true, nil
}

func (s *sumIter) add(v value.Value) {
	s.hasAny = true
	if v.Kind() == value.KindNumber {
		s.useDecimal = true
	}
	if s.useDecimal {
		// Converting any float-accumulated total into the decimal lattice
		// as soon as a Number appears preserves exactness for the rest.
		if s.accF != 0 && s.accR.Sign() == 0 {
			s.accR = new(big.Rat).SetFloat64(s.accF)
			s.accF = 0
		}
		s.accR.Add(s.accR, toRat(v))
		return
	}
	f, _ := v.AsFloat64()
	s.accF += f
}

func (s *sumIter) result() value.Value {
	if !s.hasAny {
		return value.SQLNull
	}
	if s.useDecimal {
		return value.NumberFromRat(s.accR)
	}
	return value.Double(s.accF)
}

func (s *sumIter) Reset(env *Env, resetRegister bool) error {
	s.hasAny, s.useDecimal, s.done = false, false, false
	s.accF = 0
	s.accR = new(big.Rat)
	if resetRegister {
		env.SetReg(s.resPos, value.Empty)
	}
	return s.input.Reset(env, true)
}

// MergePartial folds a server-computed partial sum into this accumulator
// (spec §8 law 4: SUM(stream) = SUM(partials)).
func (s *sumIter) MergePartial(v value.Value) {
	if !v.IsNumeric() {
		return
	}
	s.add(v)
}
