package queryplan

import (
	"encoding/binary"
	"fmt"
	"io"

	queryerr "github.com/oracle/nosql-go-queryexec/pkgs/errors"
	"github.com/oracle/nosql-go-queryexec/pkgs/value"
)

// Reader decodes a plan step tree from the server's binary representation.
// Adapted from the teacher's Reader-over-io.Reader idiom (core/planfmt),
// rewritten from its little-endian framed-file format to this protocol's
// big-endian per-step tagged format.
type Reader struct {
	r io.Reader
}

// NewReader wraps r for plan decoding.
func NewReader(r io.Reader) *Reader { return &Reader{r: r} }

// ReadPlan decodes the root step of a prepared statement. A nil step (the
// -1/0xFF tag) at the root is itself a protocol error: a plan must have a
// root operator.
func (rd *Reader) ReadPlan() (*Step, error) {
	step, err := rd.readStep()
	if err != nil {
		return nil, err
	}
	if step == nil {
		return nil, queryerr.BadProtocol("plan has no root step")
	}
	return step, nil
}

func (rd *Reader) readByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(rd.r, b[:]); err != nil {
		return 0, queryerr.BadProtocol("reading kind tag: %v", err)
	}
	return b[0], nil
}

func (rd *Reader) readInt32() (int32, error) {
	var b [4]byte
	if _, err := io.ReadFull(rd.r, b[:]); err != nil {
		return 0, queryerr.BadProtocol("reading int32: %v", err)
	}
	return int32(binary.BigEndian.Uint32(b[:])), nil
}

func (rd *Reader) readNonNegInt32(field string) (int32, error) {
	v, err := rd.readInt32()
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, queryerr.BadProtocol("%s must be non-negative, got %d", field, v)
	}
	return v, nil
}

func (rd *Reader) readString() (string, error) {
	n, err := rd.readInt32()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", queryerr.BadProtocol("string length must be non-negative, got %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(rd.r, buf); err != nil {
		return "", queryerr.BadProtocol("reading string body: %v", err)
	}
	return string(buf), nil
}

// readStringArray decodes a length-prefixed array of length-prefixed UTF-8
// strings. A sentinel length of -1 denotes a null (absent) optional array.
func (rd *Reader) readStringArray() ([]string, error) {
	n, err := rd.readInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, nil
	}
	out := make([]string, n)
	for i := range out {
		s, err := rd.readString()
		if err != nil {
			return nil, fmt.Errorf("string array element %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

// readSortSpecRecords decodes the length-prefixed array of {isDesc,
// nullsLowest} records that accompanies a sort-specs' field-name array.
func (rd *Reader) readSortSpecRecords() ([]struct {
	isDesc      bool
	nullsLowest bool
}, error) {
	n, err := rd.readInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, nil
	}
	out := make([]struct {
		isDesc      bool
		nullsLowest bool
	}, n)
	for i := range out {
		b, err := rd.readByte()
		if err != nil {
			return nil, err
		}
		out[i].isDesc = b != 0
		b, err = rd.readByte()
		if err != nil {
			return nil, err
		}
		out[i].nullsLowest = b != 0
	}
	return out, nil
}

// readSortSpecs decodes a field-names array paired with a records array,
// enforcing the invariant that the two lists agree in length.
func (rd *Reader) readSortSpecs() ([]SortSpec, error) {
	names, err := rd.readStringArray()
	if err != nil {
		return nil, err
	}
	records, err := rd.readSortSpecRecords()
	if err != nil {
		return nil, err
	}
	if len(names) != len(records) {
		return nil, queryerr.BadProtocol("sort-specs length mismatch: %d field names, %d records", len(names), len(records))
	}
	specs := make([]SortSpec, len(names))
	for i := range names {
		rank := value.NullsLast
		if records[i].nullsLowest {
			rank = value.NullsFirst
		}
		specs[i] = SortSpec{FieldName: names[i], Descending: records[i].isDesc, NullRank: rank}
	}
	return specs, nil
}

// readHeader decodes the common per-step header: resPos, a discarded
// statePos, and the four non-negative location integers.
func (rd *Reader) readHeader() (resPos int32, loc Location, err error) {
	resPos, err = rd.readInt32()
	if err != nil {
		return 0, Location{}, err
	}
	if _, err = rd.readInt32(); err != nil { // statePos, discarded
		return 0, Location{}, err
	}
	sl, err := rd.readNonNegInt32("startLine")
	if err != nil {
		return 0, Location{}, err
	}
	sc, err := rd.readNonNegInt32("startColumn")
	if err != nil {
		return 0, Location{}, err
	}
	el, err := rd.readNonNegInt32("endLine")
	if err != nil {
		return 0, Location{}, err
	}
	ec, err := rd.readNonNegInt32("endColumn")
	if err != nil {
		return 0, Location{}, err
	}
	return resPos, Location{StartLine: sl, StartColumn: sc, EndLine: el, EndColumn: ec}, nil
}

// readStep decodes one step, or nil if the wire's null-step tag (0xFF) is
// present — legal wherever a step is optional (e.g. SFW's offset/limit).
func (rd *Reader) readStep() (*Step, error) {
	tagByte, err := rd.readByte()
	if err != nil {
		return nil, err
	}
	if tagByte == nullTag {
		return nil, nil
	}
	kind := Kind(tagByte)

	resPos, loc, err := rd.readHeader()
	if err != nil {
		return nil, err
	}

	step := &Step{Kind: kind, ResPos: resPos, Loc: loc}

	switch kind {
	case KindConst:
		v, err := rd.readValue()
		if err != nil {
			return nil, fmt.Errorf("CONST step: %w", err)
		}
		step.ConstVal = v

	case KindVarRef:
		name, err := rd.readString()
		if err != nil {
			return nil, fmt.Errorf("VAR_REF step: %w", err)
		}
		step.VarName = name

	case KindExternalVar:
		name, err := rd.readString()
		if err != nil {
			return nil, fmt.Errorf("EXTERNAL_VAR_REF step: %w", err)
		}
		idx, err := rd.readNonNegInt32("EXTERNAL_VAR_REF index")
		if err != nil {
			return nil, err
		}
		step.ExtVarName, step.ExtVarIndex = name, idx

	case KindFieldStep:
		input, err := rd.readStep()
		if err != nil {
			return nil, fmt.Errorf("FIELD_STEP input: %w", err)
		}
		name, err := rd.readString()
		if err != nil {
			return nil, fmt.Errorf("FIELD_STEP field name: %w", err)
		}
		step.Input, step.FieldName = input, name

	case KindArithOp:
		opOrd, err := rd.readInt32()
		if err != nil {
			return nil, fmt.Errorf("ARITH_OP function code: %w", err)
		}
		op := ArithOp(opOrd)
		if op != OpAddSub && op != OpMultDiv {
			return nil, queryerr.BadProtocol("ARITH_OP: unknown function code ordinal %d", opOrd)
		}
		args, err := rd.readMulti()
		if err != nil {
			return nil, fmt.Errorf("ARITH_OP args: %w", err)
		}
		ops, err := rd.readString()
		if err != nil {
			return nil, fmt.Errorf("ARITH_OP operator string: %w", err)
		}
		step.ArithOp, step.Args, step.ArithOps = op, args, ops

	case KindFnMinMax:
		fnOrd, err := rd.readInt32()
		if err != nil {
			return nil, fmt.Errorf("FN_MIN_MAX function code: %w", err)
		}
		fn := FuncCode(fnOrd)
		if fn != FuncMin && fn != FuncMax {
			return nil, queryerr.BadProtocol("FN_MIN_MAX: unknown function code ordinal %d", fnOrd)
		}
		input, err := rd.readStep()
		if err != nil {
			return nil, fmt.Errorf("FN_MIN_MAX input: %w", err)
		}
		step.MinMaxFunc, step.Input = fn, input

	case KindFnSum:
		input, err := rd.readStep()
		if err != nil {
			return nil, fmt.Errorf("FN_SUM input: %w", err)
		}
		step.Input = input

	case KindSort:
		input, err := rd.readStep()
		if err != nil {
			return nil, fmt.Errorf("SORT input: %w", err)
		}
		specs, err := rd.readSortSpecs()
		if err != nil {
			return nil, fmt.Errorf("SORT sort-specs: %w", err)
		}
		step.Input, step.SortSpecs = input, specs

	case KindRecv:
		distOrd, err := rd.readInt32()
		if err != nil {
			return nil, fmt.Errorf("RECV distribution kind: %w", err)
		}
		dist := DistKind(distOrd)
		if dist != DistSinglePartition && dist != DistAllPartitions && dist != DistAllShards {
			return nil, queryerr.BadProtocol("RECV: unknown distribution kind ordinal %d", distOrd)
		}
		hasSort, err := rd.readByte()
		if err != nil {
			return nil, err
		}
		var specs []SortSpec
		if hasSort != 0 {
			specs, err = rd.readSortSpecs()
			if err != nil {
				return nil, fmt.Errorf("RECV sort-specs: %w", err)
			}
		}
		pkFields, err := rd.readStringArray()
		if err != nil {
			return nil, fmt.Errorf("RECV primary-key fields: %w", err)
		}
		step.DistKind, step.RecvSort, step.PKFields = dist, specs, pkFields

	case KindSFW:
		names, err := rd.readStringArray()
		if err != nil {
			return nil, fmt.Errorf("SFW column names: %w", err)
		}
		gbCnt, err := rd.readInt32()
		if err != nil {
			return nil, fmt.Errorf("SFW group-by count: %w", err)
		}
		fromVar, err := rd.readString()
		if err != nil {
			return nil, fmt.Errorf("SFW from variable: %w", err)
		}
		starByte, err := rd.readByte()
		if err != nil {
			return nil, err
		}
		cols, err := rd.readMulti()
		if err != nil {
			return nil, fmt.Errorf("SFW column steps: %w", err)
		}
		fromStep, err := rd.readStep()
		if err != nil {
			return nil, fmt.Errorf("SFW from step: %w", err)
		}
		offsetStep, err := rd.readStep()
		if err != nil {
			return nil, fmt.Errorf("SFW offset step: %w", err)
		}
		limitStep, err := rd.readStep()
		if err != nil {
			return nil, fmt.Errorf("SFW limit step: %w", err)
		}
		step.ColumnNames = names
		step.GBColCount = gbCnt
		step.FromVar = fromVar
		step.SelectStar = starByte != 0
		step.ColumnSteps = cols
		step.FromStep = fromStep
		step.OffsetStep = offsetStep
		step.LimitStep = limitStep

	default:
		return nil, queryerr.BadProtocol("unknown plan step kind ordinal %d", tagByte)
	}

	if err := validateStep(step); err != nil {
		return nil, err
	}
	return step, nil
}

// readMulti decodes a length-prefixed array of steps.
func (rd *Reader) readMulti() ([]*Step, error) {
	n, err := rd.readInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, queryerr.BadProtocol("multi-step array length must be non-negative, got %d", n)
	}
	out := make([]*Step, n)
	for i := range out {
		s, err := rd.readStep()
		if err != nil {
			return nil, fmt.Errorf("multi-step element %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}
