package models

// TxnID is the transaction identifier carried by begin and commit records
type TxnID uint64

// ChangeKind is the kind of a row change
type ChangeKind int

const (
	Insert ChangeKind = iota + 1
	Update
	Delete
)

// String returns the kind as it appears in the "change" field of a record
func (k ChangeKind) String() string {
	switch k {
	case Insert:
		return "INSERT"
	case Update:
		return "UPDATE"
	case Delete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// ChangeEvent represents a single row change delivered inside a transaction.
// NewRow is set for INSERT and UPDATE, OldRow for DELETE. Both are aligned
// with Relation.Columns.
type ChangeEvent struct {
	Kind     ChangeKind
	Relation *Relation
	NewRow   []ColumnValue
	OldRow   []ColumnValue
}

// Row returns the row image used for encoding and whether it is present
func (e *ChangeEvent) Row() ([]ColumnValue, bool) {
	switch e.Kind {
	case Insert, Update:
		return e.NewRow, e.NewRow != nil
	case Delete:
		return e.OldRow, e.OldRow != nil
	default:
		return nil, false
	}
}
