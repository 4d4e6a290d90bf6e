package iterator

import (
	"testing"

	"github.com/oracle/nosql-go-queryexec/pkgs/queryplan"
	"github.com/oracle/nosql-go-queryexec/pkgs/value"
)

func drainSort(t *testing.T, s *sortIter, env *Env) []value.Value {
	t.Helper()
	var out []value.Value
	for {
		has, err := s.Next(env)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !has {
			break
		}
		out = append(out, env.Reg(s.resPos))
	}
	return out
}

func TestSortOrdersByFieldAscending(t *testing.T) {
	const inPos, outPos int32 = 0, 1
	rows := []value.Value{
		value.Map([]string{"k"}, map[string]value.Value{"k": value.Int(3)}),
		value.Map([]string{"k"}, map[string]value.Value{"k": value.Int(1)}),
		value.Map([]string{"k"}, map[string]value.Value{"k": value.Int(2)}),
	}
	input := newFakeIter(inPos, rows...)
	s := &sortIter{
		resPos: outPos,
		specs:  []queryplan.SortSpec{{FieldName: "k", NullRank: value.NullsLast}},
		input:  input,
	}
	env := NewEnv(2)
	out := drainSort(t, s, env)
	if len(out) != 3 {
		t.Fatalf("got %d rows, want 3", len(out))
	}
	want := []int32{1, 2, 3}
	for i, w := range want {
		if got, _ := out[i].MapGet("k"); got.Int() != w {
			t.Errorf("row %d = %d, want %d", i, got.Int(), w)
		}
	}
}

func TestSortDescendingReversesOrder(t *testing.T) {
	const inPos, outPos int32 = 0, 1
	rows := []value.Value{
		value.Map([]string{"k"}, map[string]value.Value{"k": value.Int(1)}),
		value.Map([]string{"k"}, map[string]value.Value{"k": value.Int(3)}),
		value.Map([]string{"k"}, map[string]value.Value{"k": value.Int(2)}),
	}
	input := newFakeIter(inPos, rows...)
	s := &sortIter{
		resPos: outPos,
		specs:  []queryplan.SortSpec{{FieldName: "k", Descending: true, NullRank: value.NullsLast}},
		input:  input,
	}
	env := NewEnv(2)
	out := drainSort(t, s, env)
	want := []int32{3, 2, 1}
	for i, w := range want {
		if got, _ := out[i].MapGet("k"); got.Int() != w {
			t.Errorf("row %d = %d, want %d", i, got.Int(), w)
		}
	}
}

func TestSortChargesAndReleasesMemory(t *testing.T) {
	const inPos, outPos int32 = 0, 1
	rows := []value.Value{
		value.Map([]string{"k"}, map[string]value.Value{"k": value.Int(1)}),
		value.Map([]string{"k"}, map[string]value.Value{"k": value.Int(2)}),
	}
	input := newFakeIter(inPos, rows...)
	s := &sortIter{
		resPos: outPos,
		specs:  []queryplan.SortSpec{{FieldName: "k", NullRank: value.NullsLast}},
		input:  input,
	}
	env := NewEnv(2)
	drainSort(t, s, env)
	if !env.Mem.Baseline() {
		t.Errorf("all buffered rows should be released once drained, used=%d", env.Mem.Used())
	}
}

func TestSortConvertsEmptyToNullOnlyAtDrainTime(t *testing.T) {
	const inPos, outPos int32 = 0, 1
	rows := []value.Value{value.Empty, value.Int(1)}
	input := newFakeIter(inPos, rows...)
	s := &sortIter{
		resPos: outPos,
		specs:  []queryplan.SortSpec{{FieldName: "", NullRank: value.NullsFirst}},
		input:  input,
	}
	env := NewEnv(2)
	out := drainSort(t, s, env)
	if len(out) != 2 {
		t.Fatalf("got %d rows, want 2", len(out))
	}
	if out[0].Kind() != value.KindSQLNull {
		t.Errorf("EMPTY row must surface as SQL NULL after sorting, got kind %v", out[0].Kind())
	}
}

func TestSortResetClearsBufferAndPropagatesToInput(t *testing.T) {
	const inPos, outPos int32 = 0, 1
	input := newFakeIter(inPos, value.Int(1), value.Int(2))
	s := &sortIter{
		resPos: outPos,
		specs:  nil,
		input:  input,
	}
	env := NewEnv(2)
	drainSort(t, s, env)
	if err := s.Reset(env, true); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if input.resets != 1 {
		t.Errorf("Reset must propagate to the input iterator, resets=%d", input.resets)
	}
	if s.state != sortFilling {
		t.Errorf("state after Reset = %v, want sortFilling", s.state)
	}
	if len(s.rows) != 0 {
		t.Errorf("rows buffer not cleared: %d entries remain", len(s.rows))
	}
}
