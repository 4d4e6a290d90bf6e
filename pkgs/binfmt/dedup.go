package binfmt

import (
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/oracle/nosql-go-queryexec/pkgs/value"
)

// DedupKey is the fixed-size, compacted form of a RECEIVE primary-key
// projection. Storing a 16-byte digest instead of the raw composite string
// bounds the per-row memory cost of the duplicate-elimination set
// regardless of key field width.
type DedupKey [16]byte

// CanonicalFieldString renders one primary-key field per the per-field
// conversion rules: strings pass through, numbers stringify, timestamps use
// ISO-8601 UTC, decimals use their string form.
func CanonicalFieldString(v value.Value) (string, error) {
	switch v.Kind() {
	case value.KindString:
		return v.String(), nil
	case value.KindInteger:
		return strconv.FormatInt(int64(v.Int()), 10), nil
	case value.KindLong:
		return strconv.FormatInt(v.Long(), 10), nil
	case value.KindFloat:
		return strconv.FormatFloat(float64(v.Float32()), 'g', -1, 32), nil
	case value.KindDouble:
		return strconv.FormatFloat(v.Double(), 'g', -1, 64), nil
	case value.KindNumber:
		return v.Decimal().String(), nil
	case value.KindTimestamp:
		return v.Time().UTC().Format("2006-01-02T15:04:05.999999999Z"), nil
	case value.KindBoolean:
		return strconv.FormatBool(v.Bool()), nil
	case value.KindEnum:
		return strconv.Itoa(v.Enum().Ordinal), nil
	default:
		return "", errUnsupportedPKField(v.Kind())
	}
}

func errUnsupportedPKField(k value.Kind) error {
	return &unsupportedPKFieldError{kind: k}
}

type unsupportedPKFieldError struct{ kind value.Kind }

func (e *unsupportedPKFieldError) Error() string {
	return "binfmt: value kind " + e.kind.String() + " cannot serve as a primary-key dedup field"
}

// CompositeDedupKey joins the canonical per-field strings, each prefixed by
// its decimal length and a ':' so the join stays unambiguous even when a
// field value itself contains ':', and compacts the result to a fixed-size
// digest via BLAKE2b-128.
func CompositeDedupKey(fields []value.Value) (DedupKey, error) {
	var sb strings.Builder
	for _, f := range fields {
		s, err := CanonicalFieldString(f)
		if err != nil {
			return DedupKey{}, err
		}
		sb.WriteString(strconv.Itoa(len(s)))
		sb.WriteByte(':')
		sb.WriteString(s)
	}
	h, err := blake2b.New(16, nil)
	if err != nil {
		return DedupKey{}, err
	}
	h.Write([]byte(sb.String()))
	var out DedupKey
	copy(out[:], h.Sum(nil))
	return out, nil
}
