package iterator

import (
	"testing"

	"github.com/oracle/nosql-go-queryexec/pkgs/queryplan"
	"github.com/oracle/nosql-go-queryexec/pkgs/value"
)

func TestArithAddSubReducesLeftToRight(t *testing.T) {
	const aPos, bPos, cPos, outPos int32 = 0, 1, 2, 3
	a := newFakeIter(aPos, value.Int(10))
	b := newFakeIter(bPos, value.Int(3))
	c := newFakeIter(cPos, value.Int(2))
	it := &arithIter{resPos: outPos, op: queryplan.OpAddSub, args: []Iter{a, b, c}, opstr: "+-+"}
	env := NewEnv(4)
	has, err := it.Next(env)
	if err != nil || !has {
		t.Fatalf("Next: has=%v err=%v", has, err)
	}
	got, _ := env.Reg(outPos).AsFloat64()
	if got != 9 {
		t.Errorf("10+(-3)... got %v, want 9 (10 - 3 +2 style)", got)
	}
}

func TestArithMultDivReducesLeftToRight(t *testing.T) {
	const aPos, bPos, outPos int32 = 0, 1, 2
	a := newFakeIter(aPos, value.Int(8))
	b := newFakeIter(bPos, value.Int(2))
	it := &arithIter{resPos: outPos, op: queryplan.OpMultDiv, args: []Iter{a, b}, opstr: "/"}
	env := NewEnv(3)
	has, err := it.Next(env)
	if err != nil || !has {
		t.Fatalf("Next: has=%v err=%v", has, err)
	}
	got, _ := env.Reg(outPos).AsFloat64()
	if got != 4 {
		t.Errorf("8/2 = %v, want 4", got)
	}
}

func TestArithPromotesToDecimalWhenAnyArgIsNumber(t *testing.T) {
	const aPos, bPos, outPos int32 = 0, 1, 2
	dec, err := value.Number("1.5")
	if err != nil {
		t.Fatal(err)
	}
	a := newFakeIter(aPos, dec)
	b := newFakeIter(bPos, value.Int(1))
	it := &arithIter{resPos: outPos, op: queryplan.OpAddSub, args: []Iter{a, b}, opstr: "++"}
	env := NewEnv(3)
	if _, err := it.Next(env); err != nil {
		t.Fatal(err)
	}
	if env.Reg(outPos).Kind() != value.KindNumber {
		t.Errorf("mixing a Number argument must promote the result to Number, got %v", env.Reg(outPos).Kind())
	}
}

func TestArithNonNumericArgumentIsIllegalState(t *testing.T) {
	const aPos, outPos int32 = 0, 1
	a := newFakeIter(aPos, value.Str("nope"))
	it := &arithIter{resPos: outPos, op: queryplan.OpAddSub, args: []Iter{a}, opstr: "+"}
	env := NewEnv(2)
	if _, err := it.Next(env); err == nil {
		t.Error("a non-numeric argument should raise an illegal-state error")
	}
}

func TestArithResetPropagatesToArgs(t *testing.T) {
	const aPos, outPos int32 = 0, 1
	a := newFakeIter(aPos, value.Int(1))
	it := &arithIter{resPos: outPos, op: queryplan.OpAddSub, args: []Iter{a}, opstr: "+"}
	env := NewEnv(2)
	if _, err := it.Next(env); err != nil {
		t.Fatal(err)
	}
	if err := it.Reset(env, true); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if a.resets != 1 {
		t.Errorf("Reset must propagate to every argument, resets=%d", a.resets)
	}
}
