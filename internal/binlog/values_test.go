package binlog

import (
	"testing"
	"time"

	"github.com/go-mysql-org/go-mysql/mysql"
	"github.com/go-mysql-org/go-mysql/replication"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"json-decoding/internal/models"
)

func TestRowValues(t *testing.T) {
	assert := assert.New(t)

	table := &replication.TableMapEvent{
		ColumnCount: 8,
		ColumnType: []byte{
			mysql.MYSQL_TYPE_LONG, mysql.MYSQL_TYPE_VARCHAR, mysql.MYSQL_TYPE_TINY,
			mysql.MYSQL_TYPE_NEWDECIMAL, mysql.MYSQL_TYPE_BIT, mysql.MYSQL_TYPE_DOUBLE,
			mysql.MYSQL_TYPE_DATETIME2, mysql.MYSQL_TYPE_BLOB,
		},
		// BIT(10): 1 full byte + 2 bits.
		ColumnMeta: []uint16{0, 255, 0, 0x0a02, 0x0102, 0, 0, 2},
	}
	relation := &models.Relation{Columns: []models.Column{
		{Name: "id", Type: models.TypeSignedInteger, Ordinal: 1},
		{Name: "name", Type: models.TypeOther, Ordinal: 2},
		{Name: "active", Type: models.TypeBoolean, Ordinal: 3},
		{Name: "balance", Type: models.TypeArbitraryPrecision, Ordinal: 4},
		{Name: "flags", Type: models.TypeBitString, Ordinal: 5},
		{Name: "ratio", Type: models.TypeFloatingPoint, Ordinal: 6},
		{Name: "created", Type: models.TypeOther, Ordinal: 7},
		{Name: "body", Type: models.TypeOther, Ordinal: 8},
	}}

	row := []interface{}{
		int32(-7),
		[]byte("Ann"),
		int8(1),
		decimal.New(1250, -2),
		int64(5),
		float64(0.1),
		time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
	}

	values := RowValues(table, relation, row, nil)
	assert.Equal([]models.ColumnValue{
		models.TextValue("-7"),
		models.TextValue("Ann"),
		models.TextValue("t"),
		models.TextValue("12.50"),
		models.TextValue("0000000101"),
		models.TextValue("0.1"),
		models.TextValue("2024-03-01 12:30:00"),
		// Missing from the row image.
		models.UnavailableValue(),
	}, values)

	nulls := RowValues(table, relation, make([]interface{}, 8), nil)
	for _, v := range nulls {
		assert.True(v.Null)
	}
}

func TestText(t *testing.T) {
	assert := assert.New(t)

	for _, testCase := range []struct {
		Value  interface{}
		Expect string
	}{
		{"abc", "abc"},
		{int8(-1), "-1"},
		{int16(300), "300"},
		{int64(-9223372036854775808), "-9223372036854775808"},
		{uint64(18446744073709551615), "18446744073709551615"},
		{uint32(16777215), "16777215"},
		{float32(1.5), "1.5"},
		{float64(1e21), "1e+21"},
		{true, "t"},
		{false, "f"},
		{time.Date(2024, 3, 1, 0, 0, 0, 123000000, time.UTC), "2024-03-01 00:00:00.123"},
	} {
		assert.Equal(testCase.Expect, text(testCase.Value))
	}
}

func TestBooleanText(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("t", booleanText(int8(1)))
	assert.Equal("t", booleanText(int8(-1)))
	assert.Equal("f", booleanText(int8(0)))
	assert.Equal("t", booleanText(true))
	assert.Equal("f", booleanText("0"))
	assert.Equal("f", booleanText(3.5))
}

func TestBitText(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("101", bitText(5, 0))
	assert.Equal("00000101", bitText(5, 8))
	assert.Equal("0", bitText(0, 1))
}

func TestUnsignedColumns(t *testing.T) {
	assert := assert.New(t)

	table := &replication.TableMapEvent{
		ColumnCount:      2,
		ColumnType:       []byte{mysql.MYSQL_TYPE_LONGLONG, mysql.MYSQL_TYPE_INT24},
		ColumnMeta:       []uint16{0, 0},
		SignednessBitmap: []byte{0xc0},
	}
	relation := &models.Relation{Columns: []models.Column{
		{Name: "big", Type: models.TypeSignedInteger, Ordinal: 1},
		{Name: "medium", Type: models.TypeSignedInteger, Ordinal: 2},
	}}

	values := RowValues(table, relation, []interface{}{int64(-1), int32(-1)}, nil)
	assert.Equal("18446744073709551615", values[0].Text)
	assert.Equal("16777215", values[1].Text)
}

func TestEnumColumns(t *testing.T) {
	assert := assert.New(t)

	table := &replication.TableMapEvent{
		ColumnCount:  1,
		ColumnType:   []byte{mysql.MYSQL_TYPE_STRING},
		ColumnMeta:   []uint16{uint16(mysql.MYSQL_TYPE_ENUM)<<8 | 1},
		EnumStrValue: [][][]byte{{[]byte("small"), []byte("large")}},
	}
	relation := &models.Relation{Columns: []models.Column{
		{Name: "size", Type: models.TypeOther, Ordinal: 1},
	}}

	assert.Equal("large", RowValues(table, relation, []interface{}{int64(2)}, nil)[0].Text)
	assert.Equal("", RowValues(table, relation, []interface{}{int64(0)}, nil)[0].Text)
}

func TestSkippedColumns(t *testing.T) {
	assert := assert.New(t)

	table := &replication.TableMapEvent{
		ColumnCount: 3,
		ColumnType:  []byte{mysql.MYSQL_TYPE_LONG, mysql.MYSQL_TYPE_VARCHAR, mysql.MYSQL_TYPE_VARCHAR},
		ColumnMeta:  []uint16{0, 255, 255},
	}
	relation := &models.Relation{Columns: []models.Column{
		{Name: "id", Type: models.TypeSignedInteger, Ordinal: 1},
		{Name: "name", Type: models.TypeOther, Ordinal: 2},
		{Name: "note", Type: models.TypeOther, Ordinal: 3},
	}}

	// binlog_row_image=MINIMAL: go-mysql keeps the row full length and
	// leaves skipped columns nil.
	values := RowValues(table, relation, []interface{}{int32(1), nil, nil}, []int{1})
	assert.Equal([]models.ColumnValue{
		models.TextValue("1"),
		models.UnavailableValue(),
		models.NullValue(),
	}, values)
}

func TestDecimalScale(t *testing.T) {
	assert := assert.New(t)

	table := &replication.TableMapEvent{
		ColumnCount: 2,
		ColumnType:  []byte{mysql.MYSQL_TYPE_NEWDECIMAL, mysql.MYSQL_TYPE_NEWDECIMAL},
		// DECIMAL(10,2) and DECIMAL(12,0)
		ColumnMeta: []uint16{0x0a02, 0x0c00},
	}
	relation := &models.Relation{Columns: []models.Column{
		{Name: "price", Type: models.TypeArbitraryPrecision, Ordinal: 1},
		{Name: "units", Type: models.TypeArbitraryPrecision, Ordinal: 2},
	}}

	for _, testCase := range []struct {
		Price  decimal.Decimal
		Expect string
	}{
		{decimal.New(150, -2), "1.50"},
		{decimal.New(10000, -2), "100.00"},
		{decimal.New(-5, -1), "-0.50"},
		{decimal.New(0, 0), "0.00"},
	} {
		values := RowValues(table, relation, []interface{}{testCase.Price, decimal.New(42, 0)}, nil)
		assert.Equal(testCase.Expect, values[0].Text)
		assert.Equal("42", values[1].Text)
	}
}
