package iterator

import "github.com/oracle/nosql-go-queryexec/pkgs/value"

// fakeIter replays a fixed slice of values through a register, used across
// this package's tests as a stand-in for a real sub-iterator.
type fakeIter struct {
	pos    int32
	values []value.Value
	i      int
	resets int
}

func newFakeIter(pos int32, values ...value.Value) *fakeIter {
	return &fakeIter{pos: pos, values: values}
}

func (f *fakeIter) ResPos() int32 { return f.pos }

func (f *fakeIter) Next(env *Env) (bool, error) {
	if f.i >= len(f.values) {
		return false, nil
	}
	env.SetReg(f.pos, f.values[f.i])
	f.i++
	return true, nil
}

func (f *fakeIter) Reset(env *Env, resetRegister bool) error {
	f.i = 0
	f.resets++
	if resetRegister {
		env.SetReg(f.pos, value.Empty)
	}
	return nil
}
