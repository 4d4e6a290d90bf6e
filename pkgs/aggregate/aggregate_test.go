package aggregate

import (
	"testing"

	"github.com/oracle/nosql-go-queryexec/pkgs/queryplan"
	"github.com/oracle/nosql-go-queryexec/pkgs/value"
)

func TestCountStarCountsUnconditionally(t *testing.T) {
	a, err := New(queryplan.FuncCountStar, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range []value.Value{value.Int(1), value.Empty, value.SQLNull} {
		if err := a.Add(v); err != nil {
			t.Fatal(err)
		}
	}
	if got := a.Result().Long(); got != 3 {
		t.Errorf("COUNT_STAR = %d, want 3", got)
	}
}

func TestCountExcludesNullAndEmpty(t *testing.T) {
	a, err := New(queryplan.FuncCount, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range []value.Value{value.Int(1), value.Empty, value.SQLNull, value.Str("x")} {
		if err := a.Add(v); err != nil {
			t.Fatal(err)
		}
	}
	if got := a.Result().Long(); got != 2 {
		t.Errorf("COUNT = %d, want 2", got)
	}
}

func TestCountNumbersOnlyCountsNumeric(t *testing.T) {
	a, err := New(queryplan.FuncCountNumbers, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range []value.Value{value.Int(1), value.Str("x"), value.Double(2.5), value.Empty} {
		if err := a.Add(v); err != nil {
			t.Fatal(err)
		}
	}
	if got := a.Result().Long(); got != 2 {
		t.Errorf("COUNT_NUMBERS = %d, want 2", got)
	}
}

func TestSumSkipsNonNumericAndNullsOnEmptyInput(t *testing.T) {
	a, err := New(queryplan.FuncSum, nil)
	if err != nil {
		t.Fatal(err)
	}
	if a.Result().Kind() != value.KindSQLNull {
		t.Error("SUM of no numeric inputs must be SQL NULL")
	}
	for _, v := range []value.Value{value.Int(1), value.Str("skip"), value.Int(2), value.Empty} {
		if err := a.Add(v); err != nil {
			t.Fatal(err)
		}
	}
	f, _ := a.Result().AsFloat64()
	if f != 3 {
		t.Errorf("SUM = %v, want 3", f)
	}
}

func TestMinMaxSkipsUnorderableKinds(t *testing.T) {
	a, err := New(queryplan.FuncMin, nil)
	if err != nil {
		t.Fatal(err)
	}
	m := value.Map([]string{"x"}, map[string]value.Value{"x": value.Int(1)})
	for _, v := range []value.Value{value.Int(5), m, value.Int(2), value.Int(9)} {
		if err := a.Add(v); err != nil {
			t.Fatal(err)
		}
	}
	if got := a.Result().Int(); got != 2 {
		t.Errorf("MIN = %d, want 2", got)
	}
}

func TestArrayCollectRequiresArrayInput(t *testing.T) {
	a, err := New(queryplan.FuncArrayCollect, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Add(value.Int(1)); err == nil {
		t.Error("ARRAY_COLLECT over a non-array input should raise illegal-state")
	}
}

func TestArrayCollectDistinctDedupsElements(t *testing.T) {
	a, err := New(queryplan.FuncArrayCollectDistinct, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Add(value.Array(value.Int(1), value.Int(2), value.Int(1))); err != nil {
		t.Fatal(err)
	}
	if err := a.Add(value.Array(value.Int(2), value.Int(3))); err != nil {
		t.Fatal(err)
	}
	got := a.Result().Elems()
	if len(got) != 3 {
		t.Errorf("ARRAY_COLLECT_DISTINCT produced %d elements, want 3 (1,2,3 deduped)", len(got))
	}
}

func TestSumMergesPartials(t *testing.T) {
	a, err := New(queryplan.FuncSum, nil)
	if err != nil {
		t.Fatal(err)
	}
	// SUM(stream) == SUM(partials): two partial sums of {1,2} and {3,4}.
	if err := a.MergePartial(value.Int(3)); err != nil {
		t.Fatal(err)
	}
	if err := a.MergePartial(value.Int(7)); err != nil {
		t.Fatal(err)
	}
	f, _ := a.Result().AsFloat64()
	if f != 10 {
		t.Errorf("merged SUM = %v, want 10", f)
	}
}
