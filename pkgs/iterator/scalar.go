package iterator

import (
	queryerr "github.com/oracle/nosql-go-queryexec/pkgs/errors"
	"github.com/oracle/nosql-go-queryexec/pkgs/queryplan"
	"github.com/oracle/nosql-go-queryexec/pkgs/value"
)

// constIter emits its literal once, then terminates.
type constIter struct {
	resPos int32
	lit    value.Value
	done   bool
}

func newConstIter(s *queryplan.Step) (Iter, error) {
	return &constIter{resPos: s.ResPos, lit: s.ConstVal}, nil
}

func (c *constIter) ResPos() int32 { return c.resPos }

func (c *constIter) Next(env *Env) (bool, error) {
	if c.done {
		return false, nil
	}
	c.done = true
	env.SetReg(c.resPos, c.lit)
	return true, nil
}

func (c *constIter) Reset(env *Env, resetRegister bool) error {
	c.done = false
	if resetRegister {
		env.SetReg(c.resPos, value.Empty)
	}
	return nil
}

// varRefIter is a no-op: the value lives in its defining iterator's
// register, which this step merely names for its consumers.
type varRefIter struct {
	resPos int32
	name   string
}

func newVarRefIter(s *queryplan.Step) Iter {
	return &varRefIter{resPos: s.ResPos, name: s.VarName}
}

func (v *varRefIter) ResPos() int32 { return v.resPos }
func (v *varRefIter) Next(env *Env) (bool, error) { return true, nil }
func (v *varRefIter) Reset(env *Env, resetRegister bool) error { return nil }

// extVarRefIter emits the bound external variable at its declared position.
type extVarRefIter struct {
	resPos int32
	name   string
	idx    int32
}

func newExtVarRefIter(s *queryplan.Step) Iter {
	return &extVarRefIter{resPos: s.ResPos, name: s.ExtVarName, idx: s.ExtVarIndex}
}

func (x *extVarRefIter) ResPos() int32 { return x.resPos }

func (x *extVarRefIter) Next(env *Env) (bool, error) {
	v, err := env.ExtVar(x.idx, x.name)
	if err != nil {
		return false, err
	}
	env.SetReg(x.resPos, v)
	return true, nil
}

func (x *extVarRefIter) Reset(env *Env, resetRegister bool) error {
	if resetRegister {
		env.SetReg(x.resPos, value.Empty)
	}
	return nil
}

// fieldStepIter reads a named field off its input's current row. A missing
// field or an EMPTY value both produce "no result", matching the data
// model's EMPTY-on-absence rule.
type fieldStepIter struct {
	resPos int32
	input  Iter
	field  string
}

func newFieldStepIter(s *queryplan.Step) (Iter, error) {
	input, err := Build(s.Input)
	if err != nil {
		return nil, err
	}
	return &fieldStepIter{resPos: s.ResPos, input: input, field: s.FieldName}, nil
}

func (f *fieldStepIter) ResPos() int32 { return f.resPos }

func (f *fieldStepIter) Next(env *Env) (bool, error) {
	has, err := f.input.Next(env)
	if err != nil {
		return false, err
	}
	if !has {
		return false, nil
	}
	row := env.Reg(f.input.ResPos())
	if row.Kind() != value.KindMap && row.Kind() != value.KindRecord {
		return false, queryerr.IllegalState("FIELD_STEP: input is not an object (kind %v)", row.Kind()).WithIterator("FIELD_STEP")
	}
	var fv value.Value
	var ok bool
	if row.Kind() == value.KindMap {
		fv, ok = row.MapGet(f.field)
	} else {
		fv, ok = row.RecordGet(f.field)
	}
	if !ok || fv.IsEmpty() {
		return false, nil
	}
	env.SetReg(f.resPos, fv)
	return true, nil
}

func (f *fieldStepIter) Reset(env *Env, resetRegister bool) error {
	if resetRegister {
		env.SetReg(f.resPos, value.Empty)
	}
	return f.input.Reset(env, true)
}
