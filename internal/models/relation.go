package models

// TypeTag is the semantic category of a column used to choose its literal rendering.
// Source types are mapped onto a tag by the schema provider; the encoder only
// ever sees tags.
type TypeTag int

const (
	TypeOther TypeTag = iota
	TypeSignedInteger
	TypeFloatingPoint
	TypeArbitraryPrecision
	TypeBoolean
	TypeBitString
)

var typeTagNames = map[TypeTag]string{
	TypeOther:              "other",
	TypeSignedInteger:      "signed_integer",
	TypeFloatingPoint:      "floating_point",
	TypeArbitraryPrecision: "arbitrary_precision",
	TypeBoolean:            "boolean",
	TypeBitString:          "bit_string",
}

func (t TypeTag) String() string {
	if name, ok := typeTagNames[t]; ok {
		return name
	}
	return typeTagNames[TypeOther]
}

// Column describes one column of a relation
type Column struct {
	Name    string
	Type    TypeTag
	Ordinal int  // negative for system columns
	Dropped bool // dropped columns are kept for alignment but never encoded
}

// Relation is an immutable table version: qualified identity and ordered columns.
// Encoders hold references to it and must not modify it.
type Relation struct {
	ID        uint64
	Namespace string
	Name      string
	Columns   []Column
}

// ColumnValue is one cell in canonical textual form.
// Use the constructors so that at most one disposition is set.
type ColumnValue struct {
	Null        bool
	Unavailable bool // out-of-line value not materialized by the upstream
	Text        string
}

// NullValue returns a NULL cell
func NullValue() ColumnValue {
	return ColumnValue{Null: true}
}

// UnavailableValue returns a cell whose out-of-line value was not materialized
func UnavailableValue() ColumnValue {
	return ColumnValue{Unavailable: true}
}

// TextValue returns a cell holding text
func TextValue(text string) ColumnValue {
	return ColumnValue{Text: text}
}
