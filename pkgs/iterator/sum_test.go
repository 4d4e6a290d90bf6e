package iterator

import (
	"math/big"
	"testing"

	"github.com/oracle/nosql-go-queryexec/pkgs/value"
)

func TestSumIterSkipsNonNumericInputs(t *testing.T) {
	const inPos, outPos int32 = 0, 1
	input := newFakeIter(inPos, value.Int(1), value.Str("skip"), value.Int(2))
	s := &sumIter{resPos: outPos, input: input, accR: new(big.Rat)}
	env := NewEnv(2)
	has, err := s.Next(env)
	if err != nil || !has {
		t.Fatalf("Next: has=%v err=%v", has, err)
	}
	f, _ := env.Reg(outPos).AsFloat64()
	if f != 3 {
		t.Errorf("sum = %v, want 3", f)
	}
}

func TestSumIterOfNoNumericInputsIsSQLNull(t *testing.T) {
	const inPos, outPos int32 = 0, 1
	input := newFakeIter(inPos, value.Str("a"), value.Str("b"))
	s := &sumIter{resPos: outPos, input: input, accR: new(big.Rat)}
	env := NewEnv(2)
	has, err := s.Next(env)
	if err != nil || !has {
		t.Fatalf("Next: has=%v err=%v", has, err)
	}
	if env.Reg(outPos).Kind() != value.KindSQLNull {
		t.Errorf("SUM of no numeric rows must be SQL NULL, got %v", env.Reg(outPos).Kind())
	}
}

func TestSumIterEmitsExactlyOnce(t *testing.T) {
	const inPos, outPos int32 = 0, 1
	input := newFakeIter(inPos, value.Int(1))
	s := &sumIter{resPos: outPos, input: input, accR: new(big.Rat)}
	env := NewEnv(2)
	if has, _ := s.Next(env); !has {
		t.Fatal("expected first Next to produce the sum")
	}
	if has, _ := s.Next(env); has {
		t.Fatal("a second Next must not re-emit")
	}
}

func TestSumIterMergePartialsMatchesStreamSum(t *testing.T) {
	const inPos, outPos int32 = 0, 1
	s := &sumIter{resPos: outPos, input: newFakeIter(inPos), accR: new(big.Rat)}
	s.MergePartial(value.Int(4))
	s.MergePartial(value.Int(6))
	f, _ := s.result().AsFloat64()
	if f != 10 {
		t.Errorf("merged partials = %v, want 10", f)
	}
}
