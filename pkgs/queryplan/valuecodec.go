package queryplan

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	queryerr "github.com/oracle/nosql-go-queryexec/pkgs/errors"
	"github.com/oracle/nosql-go-queryexec/pkgs/value"
)

// CONST literal values are embedded directly in the plan step stream. The
// spec leaves the exact bit layout of a Value to the server's general
// message format; this module defines its own compact, self-consistent
// encoding (one byte tag from value.Kind, then a kind-specific payload) so
// that plan round-trips (spec §8 law 1) are exact within this engine.
func (rd *Reader) readValue() (value.Value, error) {
	tag, err := rd.readByte()
	if err != nil {
		return value.Value{}, err
	}
	switch value.Kind(tag) {
	case value.KindSQLNull:
		return value.SQLNull, nil
	case value.KindJSONNull:
		return value.JSONNull, nil
	case value.KindEmpty:
		return value.Empty, nil
	case value.KindBoolean:
		b, err := rd.readByte()
		if err != nil {
			return value.Value{}, err
		}
		return value.Bool(b != 0), nil
	case value.KindInteger:
		i, err := rd.readInt32()
		if err != nil {
			return value.Value{}, err
		}
		return value.Int(i), nil
	case value.KindLong:
		var b [8]byte
		if _, err := io.ReadFull(rd.r, b[:]); err != nil {
			return value.Value{}, queryerr.BadProtocol("reading long value: %v", err)
		}
		return value.Long(int64(binary.BigEndian.Uint64(b[:]))), nil
	case value.KindFloat:
		var b [4]byte
		if _, err := io.ReadFull(rd.r, b[:]); err != nil {
			return value.Value{}, queryerr.BadProtocol("reading float value: %v", err)
		}
		bits := binary.BigEndian.Uint32(b[:])
		return value.Float32(math.Float32frombits(bits)), nil
	case value.KindDouble:
		var b [8]byte
		if _, err := io.ReadFull(rd.r, b[:]); err != nil {
			return value.Value{}, queryerr.BadProtocol("reading double value: %v", err)
		}
		bits := binary.BigEndian.Uint64(b[:])
		return value.Double(math.Float64frombits(bits)), nil
	case value.KindNumber:
		s, err := rd.readString()
		if err != nil {
			return value.Value{}, err
		}
		return value.Number(s)
	case value.KindString:
		s, err := rd.readString()
		if err != nil {
			return value.Value{}, err
		}
		return value.Str(s), nil
	case value.KindBinary:
		n, err := rd.readNonNegInt32("binary length")
		if err != nil {
			return value.Value{}, err
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(rd.r, buf); err != nil {
			return value.Value{}, queryerr.BadProtocol("reading binary value: %v", err)
		}
		return value.Binary(buf), nil
	case value.KindTimestamp:
		var b [8]byte
		if _, err := io.ReadFull(rd.r, b[:]); err != nil {
			return value.Value{}, queryerr.BadProtocol("reading timestamp seconds: %v", err)
		}
		sec := int64(binary.BigEndian.Uint64(b[:]))
		nsec, err := rd.readInt32()
		if err != nil {
			return value.Value{}, err
		}
		return value.Timestamp(time.Unix(sec, int64(nsec)).UTC()), nil
	case value.KindArray:
		n, err := rd.readNonNegInt32("array length")
		if err != nil {
			return value.Value{}, err
		}
		elems := make([]value.Value, n)
		for i := range elems {
			elems[i], err = rd.readValue()
			if err != nil {
				return value.Value{}, fmt.Errorf("array element %d: %w", i, err)
			}
		}
		return value.Array(elems...), nil
	case value.KindMap:
		n, err := rd.readNonNegInt32("map length")
		if err != nil {
			return value.Value{}, err
		}
		keys := make([]string, n)
		vals := make(map[string]value.Value, n)
		for i := 0; i < int(n); i++ {
			k, err := rd.readString()
			if err != nil {
				return value.Value{}, err
			}
			v, err := rd.readValue()
			if err != nil {
				return value.Value{}, fmt.Errorf("map entry %q: %w", k, err)
			}
			keys[i] = k
			vals[k] = v
		}
		return value.Map(keys, vals), nil
	case value.KindRecord:
		n, err := rd.readNonNegInt32("record length")
		if err != nil {
			return value.Value{}, err
		}
		fields := make([]value.Field, n)
		for i := range fields {
			name, err := rd.readString()
			if err != nil {
				return value.Value{}, err
			}
			v, err := rd.readValue()
			if err != nil {
				return value.Value{}, fmt.Errorf("record field %q: %w", name, err)
			}
			fields[i] = value.Field{Name: name, Value: v}
		}
		return value.Record(fields...), nil
	case value.KindEnum:
		n, err := rd.readNonNegInt32("enum member count")
		if err != nil {
			return value.Value{}, err
		}
		members := make([]string, n)
		for i := range members {
			members[i], err = rd.readString()
			if err != nil {
				return value.Value{}, err
			}
		}
		ord, err := rd.readNonNegInt32("enum ordinal")
		if err != nil {
			return value.Value{}, err
		}
		return value.EnumVal(value.Enum{Members: members, Ordinal: int(ord)}), nil
	default:
		return value.Value{}, queryerr.BadProtocol("unknown value kind tag %d", tag)
	}
}
