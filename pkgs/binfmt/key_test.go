package binfmt

import (
	"bytes"
	"testing"

	"github.com/oracle/nosql-go-queryexec/pkgs/value"
)

func TestGroupKeyDeterministicAcrossMapOrder(t *testing.T) {
	m1 := value.Map([]string{"a", "b"}, map[string]value.Value{"a": value.Int(1), "b": value.Str("x")})
	m2 := value.Map([]string{"b", "a"}, map[string]value.Value{"b": value.Str("x"), "a": value.Int(1)})

	k1, err := GroupKey(m1, nil)
	if err != nil {
		t.Fatalf("GroupKey: %v", err)
	}
	k2, err := GroupKey(m2, nil)
	if err != nil {
		t.Fatalf("GroupKey: %v", err)
	}
	if !bytes.Equal(k1, k2) {
		t.Error("grouping key must be invariant under map-key insertion order")
	}
}

func TestGroupKeyNumericNormalization(t *testing.T) {
	dec, err := value.Number("2.5")
	if err != nil {
		t.Fatalf("Number: %v", err)
	}
	kDec, err := GroupKey(dec, nil)
	if err != nil {
		t.Fatalf("GroupKey(decimal): %v", err)
	}
	kDouble, err := GroupKey(value.Double(2.5), nil)
	if err != nil {
		t.Fatalf("GroupKey(double): %v", err)
	}
	if !bytes.Equal(kDec, kDouble) {
		t.Error("a decimal equal to its double form must produce an identical grouping key")
	}
}

func TestGroupKeyDistinguishesNullKinds(t *testing.T) {
	kNull, err := GroupKey(value.SQLNull, nil)
	if err != nil {
		t.Fatal(err)
	}
	kEmpty, err := GroupKey(value.Empty, nil)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(kNull, kEmpty) {
		t.Error("SQL NULL and EMPTY must produce distinct grouping keys")
	}
}

func TestCompositeGroupKeyDistinctFieldsProduceDistinctKeys(t *testing.T) {
	k1, err := CompositeGroupKey([]value.Value{value.Str("a"), value.Int(1)}, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	k2, err := CompositeGroupKey([]value.Value{value.Str("a"), value.Int(2)}, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(k1, k2) {
		t.Error("composite keys differing in one field must not collide")
	}
}
