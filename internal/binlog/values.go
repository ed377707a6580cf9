package binlog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-mysql-org/go-mysql/mysql"
	"github.com/go-mysql-org/go-mysql/replication"
	"github.com/shopspring/decimal"

	"json-decoding/internal/models"
)

const timeLayout = "2006-01-02 15:04:05.999999"

// RowValues converts a decoded binlog row image into cells aligned with relation.
// skipped lists the column indexes absent from a partial row image
// (RowsEvent.SkippedColumns); go-mysql leaves them nil in row, so they are
// reported as unavailable rather than NULL.
func RowValues(table *replication.TableMapEvent, relation *models.Relation, row []interface{}, skipped []int) []models.ColumnValue {
	values := make([]models.ColumnValue, len(relation.Columns))
	for i := range relation.Columns {
		if i >= len(row) || isSkipped(skipped, i) {
			values[i] = models.UnavailableValue()
			continue
		}
		values[i] = columnValue(table, relation.Columns[i].Type, i, row[i])
	}
	return values
}

func isSkipped(skipped []int, i int) bool {
	for _, idx := range skipped {
		if idx == i {
			return true
		}
	}
	return false
}

func columnValue(table *replication.TableMapEvent, tag models.TypeTag, i int, val interface{}) models.ColumnValue {
	if val == nil {
		return models.NullValue()
	}

	switch tag {
	case models.TypeBoolean:
		return models.TextValue(booleanText(val))
	case models.TypeBitString:
		if v, ok := val.(int64); ok {
			return models.TextValue(bitText(v, bitWidth(table, i)))
		}
	}

	if table != nil && i < len(table.ColumnType) {
		switch realType(table, i) {
		case mysql.MYSQL_TYPE_ENUM:
			if v, ok := val.(int64); ok {
				return models.TextValue(enumText(table, i, v))
			}
		case mysql.MYSQL_TYPE_SET:
			if v, ok := val.(int64); ok {
				return models.TextValue(setText(table, i, v))
			}
		}
		if v, ok := val.(decimal.Decimal); ok {
			if scale, ok := decimalScale(table, i); ok {
				return models.TextValue(v.StringFixed(scale))
			}
		}
		if table.UnsignedMap()[i] && table.IsNumericColumn(i) {
			val = unsigned(table, i, val)
		}
	}

	return models.TextValue(text(val))
}

// text renders a go-mysql decoded value in canonical textual form
func text(val interface{}) string {
	switch v := val.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case decimal.Decimal:
		return v.String()
	case time.Time:
		return v.Format(timeLayout)
	case bool:
		if v {
			return "t"
		}
		return "f"
	default:
		return fmt.Sprint(v)
	}
}

// unsigned reinterprets a signed value of an unsigned column.
// go-mysql decodes every integer as signed.
func unsigned(table *replication.TableMapEvent, i int, val interface{}) interface{} {
	switch v := val.(type) {
	case int8:
		return uint8(v)
	case int16:
		return uint16(v)
	case int32:
		if v < 0 && table.ColumnType[i] == mysql.MYSQL_TYPE_INT24 {
			// 16777215 is the maximum value of mediumint
			return uint32(16777215 + v + 1)
		}
		return uint32(v)
	case int64:
		return uint64(v)
	case int:
		return uint(v)
	default:
		return val
	}
}

// decimalScale is the declared scale of a NEWDECIMAL column, kept in the low
// byte of its metadata (precision is the high byte)
func decimalScale(table *replication.TableMapEvent, i int) (int32, bool) {
	if table.ColumnType[i] != mysql.MYSQL_TYPE_NEWDECIMAL || i >= len(table.ColumnMeta) {
		return 0, false
	}
	return int32(table.ColumnMeta[i] & 0xff), true
}

func booleanText(val interface{}) string {
	switch v := val.(type) {
	case bool:
		if v {
			return "t"
		}
	case int8:
		if v != 0 {
			return "t"
		}
	case int16:
		if v != 0 {
			return "t"
		}
	case int32:
		if v != 0 {
			return "t"
		}
	case int64:
		if v != 0 {
			return "t"
		}
	case int:
		if v != 0 {
			return "t"
		}
	case string:
		if v != "" && v != "0" {
			return "t"
		}
	}
	return "f"
}

func bitWidth(table *replication.TableMapEvent, i int) int {
	if table == nil || i >= len(table.ColumnMeta) {
		return 0
	}
	meta := table.ColumnMeta[i]
	return int(meta>>8)*8 + int(meta&0xff)
}

// bitText renders v as binary digits left padded with zeros to width
func bitText(v int64, width int) string {
	digits := strconv.FormatUint(uint64(v), 2)
	if len(digits) < width {
		digits = strings.Repeat("0", width-len(digits)) + digits
	}
	return digits
}

func enumText(table *replication.TableMapEvent, i int, v int64) string {
	values := table.EnumStrValueMap()[i]
	if v >= 1 && int(v) <= len(values) {
		return values[v-1]
	}
	if v == 0 {
		return ""
	}
	return strconv.FormatInt(v, 10)
}

func setText(table *replication.TableMapEvent, i int, v int64) string {
	values := table.SetStrValueMap()[i]
	if values == nil {
		return strconv.FormatInt(v, 10)
	}
	var parts []string
	for j := 0; j < 64 && j < len(values); j++ {
		if v&(1<<uint(j)) != 0 {
			parts = append(parts, values[j])
		}
	}
	return strings.Join(parts, ",")
}
