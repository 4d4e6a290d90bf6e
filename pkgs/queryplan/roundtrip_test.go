package queryplan

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/oracle/nosql-go-queryexec/pkgs/value"
)

// valueComparer treats two value.Values as equal for diffing purposes using
// the engine's own query-equality rule rather than reflecting over its
// unexported fields.
var valueComparer = cmp.Comparer(func(a, b value.Value) bool {
	return value.Equal(a, b, nil)
})

func samplePlan() *Step {
	constStep := &Step{Kind: KindConst, ResPos: 0, ConstVal: value.Int(7)}
	fieldStep := &Step{
		Kind:      KindFieldStep,
		ResPos:    1,
		Input:     &Step{Kind: KindVarRef, ResPos: 2, VarName: "row"},
		FieldName: "age",
	}
	arith := &Step{
		Kind:     KindArithOp,
		ResPos:   3,
		ArithOp:  OpAddSub,
		Args:     []*Step{constStep, fieldStep},
		ArithOps: "+-",
	}
	from := &Step{Kind: KindVarRef, ResPos: 4, VarName: "t"}
	sfw := &Step{
		Kind:        KindSFW,
		ResPos:      5,
		ColumnNames: []string{"result"},
		GBColCount:  -1,
		FromVar:     "t",
		ColumnSteps: []*Step{arith},
		FromStep:    from,
	}
	return sfw
}

// TestRoundTrip exercises spec law 1: decode(encode(plan)) reproduces a
// byte-identical wire form, by re-encoding a decoded plan and diffing the
// two byte streams.
func TestRoundTrip(t *testing.T) {
	plan := samplePlan()

	var buf1 bytes.Buffer
	if err := NewWriter(&buf1).WritePlan(plan); err != nil {
		t.Fatalf("initial encode: %v", err)
	}

	decoded, err := NewReader(bytes.NewReader(buf1.Bytes())).ReadPlan()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	var buf2 bytes.Buffer
	if err := NewWriter(&buf2).WritePlan(decoded); err != nil {
		t.Fatalf("re-encode: %v", err)
	}

	if !bytes.Equal(buf1.Bytes(), buf2.Bytes()) {
		t.Fatalf("round trip not byte-identical:\n got %x\nwant %x", buf2.Bytes(), buf1.Bytes())
	}
}

// TestRoundTrip_StructuralEquality decodes the same plan and diffs it
// against the original tree structurally, rather than byte-for-byte, so a
// future field added to Step without a wire-format counterpart would still
// be caught.
func TestRoundTrip_StructuralEquality(t *testing.T) {
	plan := samplePlan()

	var buf bytes.Buffer
	if err := NewWriter(&buf).WritePlan(plan); err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := NewReader(bytes.NewReader(buf.Bytes())).ReadPlan()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if diff := cmp.Diff(plan, decoded, valueComparer, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("decoded plan differs from original (-want +got):\n%s", diff)
	}
}

func TestReadPlan_RejectsNullRoot(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(nullTag)
	if _, err := NewReader(&buf).ReadPlan(); err == nil {
		t.Fatalf("expected error for null root step")
	}
}

func TestSFWValidation_RequiresFromStep(t *testing.T) {
	s := &Step{
		Kind:        KindSFW,
		ColumnNames: []string{"x"},
		ColumnSteps: []*Step{{Kind: KindConst, ConstVal: value.Int(1)}},
	}
	if err := validateStep(s); err == nil {
		t.Fatalf("expected error for SFW with no FROM step")
	}
}

func TestSFWValidation_SelectStarCardinality(t *testing.T) {
	s := &Step{
		Kind:        KindSFW,
		ColumnNames: []string{"x", "y"},
		ColumnSteps: []*Step{{Kind: KindConst}, {Kind: KindConst}},
		FromStep:    &Step{Kind: KindVarRef, VarName: "t"},
		SelectStar:  true,
	}
	if err := validateStep(s); err == nil {
		t.Fatalf("expected error: SELECT * must have exactly one column iterator")
	}
}

func TestSortSpecsLengthMismatch(t *testing.T) {
	var buf bytes.Buffer
	wr := NewWriter(&buf)
	// Hand-craft a SORT step whose wire form has mismatched sort-spec arrays.
	if err := wr.writeByte(byte(KindSort)); err != nil {
		t.Fatal(err)
	}
	if err := wr.writeHeader(0, Location{}); err != nil {
		t.Fatal(err)
	}
	if err := wr.writeStep(&Step{Kind: KindVarRef, VarName: "t"}); err != nil {
		t.Fatal(err)
	}
	if err := wr.writeStringArray([]string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	if err := wr.writeInt32(1); err != nil { // only one record for two names
		t.Fatal(err)
	}
	if err := wr.writeBool(false); err != nil {
		t.Fatal(err)
	}
	if err := wr.writeBool(false); err != nil {
		t.Fatal(err)
	}

	if _, err := NewReader(&buf).ReadPlan(); err == nil {
		t.Fatalf("expected sort-specs length mismatch error")
	}
}

func TestArithOpRejectsUnknownFunctionCode(t *testing.T) {
	var buf bytes.Buffer
	wr := NewWriter(&buf)
	if err := wr.writeByte(byte(KindArithOp)); err != nil {
		t.Fatal(err)
	}
	if err := wr.writeHeader(0, Location{}); err != nil {
		t.Fatal(err)
	}
	if err := wr.writeInt32(999); err != nil { // bogus function code
		t.Fatal(err)
	}
	if err := wr.writeMulti(nil); err != nil {
		t.Fatal(err)
	}
	if err := wr.writeString(""); err != nil {
		t.Fatal(err)
	}

	if _, err := NewReader(&buf).ReadPlan(); err == nil {
		t.Fatalf("expected bad-protocol error for unknown ARITH_OP function code")
	}
}
