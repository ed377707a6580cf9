package encoder

import (
	"fmt"

	"json-decoding/internal/models"
)

// unchangedToastDatum marks an out-of-line value the upstream did not materialize
const unchangedToastDatum = `"???unchanged-toast-datum???"`

// EncodeRow returns the comma separated "col":value fields of row, without braces
func EncodeRow(columns []models.Column, row []models.ColumnValue, skipNulls bool) (string, error) {
	buf, err := appendRow(nil, columns, row, skipNulls, EscapeJSON, 0)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// appendRow walks columns in schema order. Dropped and system columns are skipped,
// as are NULL cells when skipNulls is set. With limit > 0 it stops with
// ErrResourceExhausted once dst would grow past limit bytes, checking each field
// before it is appended.
func appendRow(dst []byte, columns []models.Column, row []models.ColumnValue, skipNulls bool, esc Escaping, limit int) ([]byte, error) {
	if len(row) != len(columns) {
		return dst, fmt.Errorf("%w: row has %d values but relation has %d columns", ErrPrecondition, len(row), len(columns))
	}

	first := true
	for i := range columns {
		col := &columns[i]
		if col.Dropped || col.Ordinal < 0 {
			continue
		}

		val := &row[i]
		if val.Null && skipNulls {
			continue
		}

		// Escaping never shrinks a value, so this is a lower bound of the field size
		if need := len(dst) + len(col.Name) + len(val.Text); limit > 0 && need > limit {
			return dst, errRecordTooLarge(need, limit)
		}

		if !first {
			dst = append(dst, ',')
		}
		first = false

		dst = appendName(dst, col.Name, esc)
		dst = append(dst, ':')

		switch {
		case val.Null:
			dst = append(dst, "null"...)
		case val.Unavailable:
			dst = append(dst, unchangedToastDatum...)
		default:
			dst = AppendLiteral(dst, col.Type, val.Text, esc)
		}

		if limit > 0 && len(dst) > limit {
			return dst, errRecordTooLarge(len(dst), limit)
		}
	}
	return dst, nil
}

// appendName quotes a schema derived name. Legacy output copies it verbatim.
func appendName(dst []byte, name string, esc Escaping) []byte {
	if esc == EscapeLegacy {
		dst = append(dst, '"')
		dst = append(dst, name...)
		return append(dst, '"')
	}
	return appendJSONString(dst, name)
}
