package queryplan

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/oracle/nosql-go-queryexec/pkgs/value"
)

// Writer encodes a plan step tree to the wire format Reader decodes. It
// exists primarily so plan round-trips (spec §8 law 1) can be exercised in
// tests without a live server; production traffic only ever reads plans
// the server produced.
type Writer struct {
	w io.Writer
}

// NewWriter wraps w for plan encoding.
func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// WritePlan encodes step as the root of a plan.
func (wr *Writer) WritePlan(step *Step) error { return wr.writeStep(step) }

func (wr *Writer) writeByte(b byte) error {
	_, err := wr.w.Write([]byte{b})
	return err
}

func (wr *Writer) writeInt32(v int32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	_, err := wr.w.Write(b[:])
	return err
}

func (wr *Writer) writeString(s string) error {
	if err := wr.writeInt32(int32(len(s))); err != nil {
		return err
	}
	_, err := wr.w.Write([]byte(s))
	return err
}

func (wr *Writer) writeStringArray(arr []string) error {
	if arr == nil {
		return wr.writeInt32(-1)
	}
	if err := wr.writeInt32(int32(len(arr))); err != nil {
		return err
	}
	for _, s := range arr {
		if err := wr.writeString(s); err != nil {
			return err
		}
	}
	return nil
}

func (wr *Writer) writeSortSpecs(specs []SortSpec) error {
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.FieldName
	}
	if err := wr.writeStringArray(names); err != nil {
		return err
	}
	if err := wr.writeInt32(int32(len(specs))); err != nil {
		return err
	}
	for _, s := range specs {
		if err := wr.writeBool(s.Descending); err != nil {
			return err
		}
		if err := wr.writeBool(s.NullRank == value.NullsFirst); err != nil {
			return err
		}
	}
	return nil
}

func (wr *Writer) writeBool(b bool) error {
	if b {
		return wr.writeByte(1)
	}
	return wr.writeByte(0)
}

func (wr *Writer) writeHeader(resPos int32, loc Location) error {
	if err := wr.writeInt32(resPos); err != nil {
		return err
	}
	if err := wr.writeInt32(0); err != nil { // statePos
		return err
	}
	for _, v := range []int32{loc.StartLine, loc.StartColumn, loc.EndLine, loc.EndColumn} {
		if err := wr.writeInt32(v); err != nil {
			return err
		}
	}
	return nil
}

func (wr *Writer) writeMulti(steps []*Step) error {
	if err := wr.writeInt32(int32(len(steps))); err != nil {
		return err
	}
	for _, s := range steps {
		if err := wr.writeStep(s); err != nil {
			return err
		}
	}
	return nil
}

func (wr *Writer) writeStep(step *Step) error {
	if step == nil {
		return wr.writeByte(nullTag)
	}
	if err := wr.writeByte(byte(step.Kind)); err != nil {
		return err
	}
	if err := wr.writeHeader(step.ResPos, step.Loc); err != nil {
		return err
	}
	switch step.Kind {
	case KindConst:
		return wr.writeValue(step.ConstVal)
	case KindVarRef:
		return wr.writeString(step.VarName)
	case KindExternalVar:
		if err := wr.writeString(step.ExtVarName); err != nil {
			return err
		}
		return wr.writeInt32(step.ExtVarIndex)
	case KindFieldStep:
		if err := wr.writeStep(step.Input); err != nil {
			return err
		}
		return wr.writeString(step.FieldName)
	case KindArithOp:
		if err := wr.writeInt32(int32(step.ArithOp)); err != nil {
			return err
		}
		if err := wr.writeMulti(step.Args); err != nil {
			return err
		}
		return wr.writeString(step.ArithOps)
	case KindFnMinMax:
		if err := wr.writeInt32(int32(step.MinMaxFunc)); err != nil {
			return err
		}
		return wr.writeStep(step.Input)
	case KindFnSum:
		return wr.writeStep(step.Input)
	case KindSort:
		if err := wr.writeStep(step.Input); err != nil {
			return err
		}
		return wr.writeSortSpecs(step.SortSpecs)
	case KindRecv:
		if err := wr.writeInt32(int32(step.DistKind)); err != nil {
			return err
		}
		if err := wr.writeBool(step.RecvSort != nil); err != nil {
			return err
		}
		if step.RecvSort != nil {
			if err := wr.writeSortSpecs(step.RecvSort); err != nil {
				return err
			}
		}
		return wr.writeStringArray(step.PKFields)
	case KindSFW:
		if err := wr.writeStringArray(step.ColumnNames); err != nil {
			return err
		}
		if err := wr.writeInt32(step.GBColCount); err != nil {
			return err
		}
		if err := wr.writeString(step.FromVar); err != nil {
			return err
		}
		if err := wr.writeBool(step.SelectStar); err != nil {
			return err
		}
		if err := wr.writeMulti(step.ColumnSteps); err != nil {
			return err
		}
		if err := wr.writeStep(step.FromStep); err != nil {
			return err
		}
		if err := wr.writeStep(step.OffsetStep); err != nil {
			return err
		}
		return wr.writeStep(step.LimitStep)
	default:
		return nil
	}
}

func (wr *Writer) writeValue(v value.Value) error {
	if err := wr.writeByte(byte(v.Kind())); err != nil {
		return err
	}
	switch v.Kind() {
	case value.KindSQLNull, value.KindJSONNull, value.KindEmpty:
		return nil
	case value.KindBoolean:
		return wr.writeBool(v.Bool())
	case value.KindInteger:
		return wr.writeInt32(v.Int())
	case value.KindLong:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v.Long()))
		_, err := wr.w.Write(b[:])
		return err
	case value.KindFloat:
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], math.Float32bits(v.Float32()))
		_, err := wr.w.Write(b[:])
		return err
	case value.KindDouble:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], math.Float64bits(v.Double()))
		_, err := wr.w.Write(b[:])
		return err
	case value.KindNumber:
		return wr.writeString(v.Decimal().String())
	case value.KindString:
		return wr.writeString(v.String())
	case value.KindBinary:
		if err := wr.writeInt32(int32(len(v.Bytes()))); err != nil {
			return err
		}
		_, err := wr.w.Write(v.Bytes())
		return err
	case value.KindTimestamp:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v.Time().Unix()))
		if _, err := wr.w.Write(b[:]); err != nil {
			return err
		}
		return wr.writeInt32(int32(v.Time().Nanosecond()))
	case value.KindArray:
		if err := wr.writeInt32(int32(len(v.Elems()))); err != nil {
			return err
		}
		for _, e := range v.Elems() {
			if err := wr.writeValue(e); err != nil {
				return err
			}
		}
		return nil
	case value.KindMap:
		keys := v.MapKeys()
		if err := wr.writeInt32(int32(len(keys))); err != nil {
			return err
		}
		for _, k := range keys {
			if err := wr.writeString(k); err != nil {
				return err
			}
			mv, _ := v.MapGet(k)
			if err := wr.writeValue(mv); err != nil {
				return err
			}
		}
		return nil
	case value.KindRecord:
		fields := v.Fields()
		if err := wr.writeInt32(int32(len(fields))); err != nil {
			return err
		}
		for _, f := range fields {
			if err := wr.writeString(f.Name); err != nil {
				return err
			}
			if err := wr.writeValue(f.Value); err != nil {
				return err
			}
		}
		return nil
	case value.KindEnum:
		e := v.Enum()
		if err := wr.writeInt32(int32(len(e.Members))); err != nil {
			return err
		}
		for _, m := range e.Members {
			if err := wr.writeString(m); err != nil {
				return err
			}
		}
		return wr.writeInt32(int32(e.Ordinal))
	default:
		return nil
	}
}
