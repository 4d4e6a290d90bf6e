package binfmt

import (
	"testing"

	"github.com/oracle/nosql-go-queryexec/pkgs/value"
)

func TestCompositeDedupKeyStableAndDistinct(t *testing.T) {
	k1, err := CompositeDedupKey([]value.Value{value.Str("shard-1"), value.Long(42)})
	if err != nil {
		t.Fatalf("CompositeDedupKey: %v", err)
	}
	k2, err := CompositeDedupKey([]value.Value{value.Str("shard-1"), value.Long(42)})
	if err != nil {
		t.Fatalf("CompositeDedupKey: %v", err)
	}
	if k1 != k2 {
		t.Error("identical field values must produce identical dedup keys")
	}

	k3, err := CompositeDedupKey([]value.Value{value.Str("shard-1"), value.Long(43)})
	if err != nil {
		t.Fatalf("CompositeDedupKey: %v", err)
	}
	if k1 == k3 {
		t.Error("differing PK field values must not collide")
	}
}

func TestCompositeDedupKeyUnambiguousConcatenation(t *testing.T) {
	// Without length-prefixing, ("ab","c") and ("a","bc") would collide on
	// naive concatenation. The length-prefixed join must tell them apart.
	k1, err := CompositeDedupKey([]value.Value{value.Str("ab"), value.Str("c")})
	if err != nil {
		t.Fatal(err)
	}
	k2, err := CompositeDedupKey([]value.Value{value.Str("a"), value.Str("bc")})
	if err != nil {
		t.Fatal(err)
	}
	if k1 == k2 {
		t.Error("dedup key encoding must not be ambiguous across field boundaries")
	}
}

func TestCanonicalFieldStringUnsupportedKind(t *testing.T) {
	_, err := CanonicalFieldString(value.Array(value.Int(1)))
	if err == nil {
		t.Error("expected an error for an unsupported primary-key field kind")
	}
}
