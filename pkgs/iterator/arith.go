package iterator

import (
	"math/big"
	"strconv"

	queryerr "github.com/oracle/nosql-go-queryexec/pkgs/errors"
	"github.com/oracle/nosql-go-queryexec/pkgs/queryplan"
	"github.com/oracle/nosql-go-queryexec/pkgs/value"
)

// arithIter implements ADD_SUB (start from 0, apply +/- sequentially) and
// MULT_DIV (start from 1, apply * or / sequentially). Any non-numeric
// argument is an illegal-state error; mixed representations promote to the
// widest one present, pulling to Decimal when any argument is a Number.
type arithIter struct {
	resPos int32
	op     queryplan.ArithOp
	args   []Iter
	opstr  string
}

func newArithIter(s *queryplan.Step) (Iter, error) {
	args, err := buildAll(s.Args)
	if err != nil {
		return nil, err
	}
	return &arithIter{resPos: s.ResPos, op: s.ArithOp, args: args, opstr: s.ArithOps}, nil
}

func (a *arithIter) ResPos() int32 { return a.resPos }

func (a *arithIter) Next(env *Env) (bool, error) {
	vals := make([]value.Value, len(a.args))
	for i, arg := range a.args {
		has, err := arg.Next(env)
		if err != nil {
			return false, err
		}
		if !has {
			return false, nil
		}
		v := env.Reg(arg.ResPos())
		if !v.IsNumeric() {
			return false, queryerr.IllegalState("ARITH_OP: argument %d is not numeric (kind %v)", i, v.Kind()).WithIterator("ARITH_OP")
		}
		vals[i] = v
	}

	useDecimal := false
	for _, v := range vals {
		if v.Kind() == value.KindNumber {
			useDecimal = true
			break
		}
	}

	var result value.Value
	if a.op == queryplan.OpAddSub {
		result = a.reduceAddSub(env, vals, useDecimal)
	} else {
		result = a.reduceMultDiv(env, vals, useDecimal)
	}
	env.SetReg(a.resPos, result)
	return true, nil
}

func (a *arithIter) reduceAddSub(env *Env, vals []value.Value, useDecimal bool) value.Value {
	if useDecimal {
		if env.NumHandler != nil {
			acc := "0"
			for i, v := range vals {
				s := toDecimalStr(v)
				if a.opstr[i] == '+' {
					acc = env.NumHandler.Add(acc, s)
				} else {
					acc = env.NumHandler.Sub(acc, s)
				}
			}
			v, _ := value.Number(acc)
			return v
		}
		acc := new(big.Rat)
		for i, v := range vals {
			r := toRat(v)
			if a.opstr[i] == '+' {
				acc.Add(acc, r)
			} else {
				acc.Sub(acc, r)
			}
		}
		return value.NumberFromRat(acc)
	}
	acc := 0.0
	for i, v := range vals {
		f, _ := v.AsFloat64()
		if a.opstr[i] == '+' {
			acc += f
		} else {
			acc -= f
		}
	}
	return value.Double(acc)
}

func (a *arithIter) reduceMultDiv(env *Env, vals []value.Value, useDecimal bool) value.Value {
	if useDecimal {
		if env.NumHandler != nil {
			acc := "1"
			for i, v := range vals {
				s := toDecimalStr(v)
				if a.opstr[i] == '*' {
					acc = env.NumHandler.Mul(acc, s)
				} else {
					acc = env.NumHandler.Div(acc, s)
				}
			}
			v, _ := value.Number(acc)
			return v
		}
		acc := big.NewRat(1, 1)
		for i, v := range vals {
			r := toRat(v)
			if a.opstr[i] == '*' {
				acc.Mul(acc, r)
			} else {
				acc.Quo(acc, r)
			}
		}
		return value.NumberFromRat(acc)
	}
	acc := 1.0
	for i, v := range vals {
		f, _ := v.AsFloat64()
		if a.opstr[i] == '*' {
			acc *= f
		} else {
			acc /= f
		}
	}
	return value.Double(acc)
}

func (a *arithIter) Reset(env *Env, resetRegister bool) error {
	for _, arg := range a.args {
		if err := arg.Reset(env, true); err != nil {
			return err
		}
	}
	if resetRegister {
		env.SetReg(a.resPos, value.Empty)
	}
	return nil
}

func toDecimalStr(v value.Value) string {
	if v.Kind() == value.KindNumber {
		return v.Decimal().String()
	}
	f, _ := v.AsFloat64()
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func toRat(v value.Value) *big.Rat {
	if v.Kind() == value.KindNumber {
		return v.Decimal().Rat
	}
	f, _ := v.AsFloat64()
	return new(big.Rat).SetFloat64(f)
}
