package binlog

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-mysql-org/go-mysql/mysql"
	"github.com/go-mysql-org/go-mysql/replication"
	"github.com/sirupsen/logrus"

	"json-decoding/internal/models"
)

// ColumnInfo is one column as reported by INFORMATION_SCHEMA
type ColumnInfo struct {
	Name       string
	ColumnType string // e.g. "tinyint(1)", "varchar(64)"
}

// ColumnLookup fetches column names and declared types in ordinal order
type ColumnLookup interface {
	Columns(ctx context.Context, database, table string) ([]ColumnInfo, error)
	Forget(database string)
}

type tableEntry struct {
	table    *replication.TableMapEvent
	relation *models.Relation
}

// SchemaCache keeps the relation of every table id seen in a TableMapEvent.
// Relations are never modified once built; a table map with a different shape
// replaces the cached relation with a new one.
type SchemaCache struct {
	tables map[uint64]*tableEntry
	lookup ColumnLookup
	logger *logrus.Logger
}

// NewSchemaCache creates a cache. lookup may be nil, in which case column names
// must come from the binlog (binlog_row_metadata=FULL).
func NewSchemaCache(lookup ColumnLookup, logger *logrus.Logger) *SchemaCache {
	return &SchemaCache{
		tables: make(map[uint64]*tableEntry),
		lookup: lookup,
		logger: logger,
	}
}

// Update records a table map event and returns the relation it describes
func (c *SchemaCache) Update(ctx context.Context, table *replication.TableMapEvent) (*models.Relation, error) {
	if entry, ok := c.tables[table.TableID]; ok && sameShape(entry.table, table) {
		entry.table = table
		return entry.relation, nil
	}

	relation, err := c.buildRelation(ctx, table)
	if err != nil {
		return nil, err
	}
	c.tables[table.TableID] = &tableEntry{table: table, relation: relation}
	c.logger.Debugf("Cached table map for %s.%s (ID: %d, %d columns)",
		relation.Namespace, relation.Name, table.TableID, len(relation.Columns))
	return relation, nil
}

// Relation returns the cached relation for a table id
func (c *SchemaCache) Relation(tableID uint64) (*models.Relation, bool) {
	entry, ok := c.tables[tableID]
	if !ok {
		return nil, false
	}
	return entry.relation, true
}

// Invalidate forgets every table of database (all tables when database is empty)
func (c *SchemaCache) Invalidate(database string) {
	for id, entry := range c.tables {
		if database == "" || entry.relation.Namespace == database {
			delete(c.tables, id)
		}
	}
	if c.lookup != nil {
		c.lookup.Forget(database)
	}
}

func (c *SchemaCache) buildRelation(ctx context.Context, table *replication.TableMapEvent) (*models.Relation, error) {
	database := string(table.Schema)
	name := string(table.Table)
	count := int(table.ColumnCount)

	var infos []ColumnInfo
	if c.lookup != nil {
		var err error
		infos, err = c.lookup.Columns(ctx, database, name)
		if err != nil {
			if len(table.ColumnName) != count {
				return nil, fmt.Errorf("failed to get column info for %s.%s: %w", database, name, err)
			}
			c.logger.Warnf("Failed to get column types for %s.%s: %v, continuing without type info", database, name, err)
			infos = nil
		}
		if infos != nil && len(infos) != count {
			c.logger.Warnf("Column count mismatch for %s.%s: binlog has %d columns, schema has %d",
				database, name, count, len(infos))
		}
	}

	columns := make([]models.Column, count)
	for i := 0; i < count; i++ {
		var info ColumnInfo
		if i < len(infos) {
			info = infos[i]
		}

		colName := info.Name
		if i < len(table.ColumnName) && len(table.ColumnName) == count {
			colName = string(table.ColumnName[i])
		}
		if colName == "" {
			colName = fmt.Sprintf("col%d", i+1)
		}

		columns[i] = models.Column{
			Name:    colName,
			Type:    TypeTagFor(realType(table, i), info.ColumnType),
			Ordinal: i + 1,
		}
	}

	return &models.Relation{
		ID:        table.TableID,
		Namespace: database,
		Name:      name,
		Columns:   columns,
	}, nil
}

// TypeTagFor maps a binlog column type onto a type tag. columnType is the
// declared INFORMATION_SCHEMA type when known; it is needed to tell booleans
// (tinyint(1)) apart from other tiny integers.
func TypeTagFor(typ byte, columnType string) models.TypeTag {
	switch typ {
	case mysql.MYSQL_TYPE_TINY:
		if isBooleanColumnType(columnType) {
			return models.TypeBoolean
		}
		return models.TypeSignedInteger

	case mysql.MYSQL_TYPE_SHORT, mysql.MYSQL_TYPE_INT24, mysql.MYSQL_TYPE_LONG,
		mysql.MYSQL_TYPE_LONGLONG, mysql.MYSQL_TYPE_YEAR:
		return models.TypeSignedInteger

	case mysql.MYSQL_TYPE_FLOAT, mysql.MYSQL_TYPE_DOUBLE:
		return models.TypeFloatingPoint

	case mysql.MYSQL_TYPE_DECIMAL, mysql.MYSQL_TYPE_NEWDECIMAL:
		return models.TypeArbitraryPrecision

	case mysql.MYSQL_TYPE_BIT:
		return models.TypeBitString

	default:
		return models.TypeOther
	}
}

func isBooleanColumnType(columnType string) bool {
	ct := strings.ToLower(strings.TrimSpace(columnType))
	return strings.HasPrefix(ct, "tinyint(1)") || ct == "bool" || ct == "boolean"
}

// realType resolves the type hidden in MYSQL_TYPE_STRING metadata (ENUM/SET)
func realType(table *replication.TableMapEvent, i int) byte {
	typ := table.ColumnType[i]
	if typ == mysql.MYSQL_TYPE_STRING && i < len(table.ColumnMeta) {
		rtyp := byte(table.ColumnMeta[i] >> 8)
		if rtyp == mysql.MYSQL_TYPE_ENUM || rtyp == mysql.MYSQL_TYPE_SET {
			return rtyp
		}
	}
	return typ
}

func sameShape(a, b *replication.TableMapEvent) bool {
	if !bytes.Equal(a.Schema, b.Schema) || !bytes.Equal(a.Table, b.Table) {
		return false
	}
	if !bytes.Equal(a.ColumnType, b.ColumnType) || len(a.ColumnName) != len(b.ColumnName) {
		return false
	}
	for i := range a.ColumnName {
		if !bytes.Equal(a.ColumnName[i], b.ColumnName[i]) {
			return false
		}
	}
	return true
}
