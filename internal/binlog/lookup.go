package binlog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

// DSN builds a go-sql-driver DSN for the server
func DSN(host string, port int, user, password string) string {
	cfg := mysqldriver.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", host, port)
	cfg.User = user
	cfg.Passwd = password
	cfg.InterpolateParams = true
	return cfg.FormatDSN()
}

// InformationSchema looks column metadata up in INFORMATION_SCHEMA.COLUMNS
// and caches it per table until forgotten.
type InformationSchema struct {
	db     *sql.DB
	cache  map[string][]ColumnInfo
	logger *logrus.Logger
}

var _ ColumnLookup = (*InformationSchema)(nil)

// OpenInformationSchema opens a connection used for column lookups
func OpenInformationSchema(dsn string, logger *logrus.Logger) (*InformationSchema, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return NewInformationSchema(db, logger), nil
}

// NewInformationSchema wraps an existing connection
func NewInformationSchema(db *sql.DB, logger *logrus.Logger) *InformationSchema {
	return &InformationSchema{
		db:     db,
		cache:  make(map[string][]ColumnInfo),
		logger: logger,
	}
}

// Columns implements ColumnLookup
func (s *InformationSchema) Columns(ctx context.Context, database, table string) ([]ColumnInfo, error) {
	cacheKey := database + "." + table
	if cols, ok := s.cache[cacheKey]; ok {
		return cols, nil
	}

	const query = `
		SELECT COLUMN_NAME, COLUMN_TYPE
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION
	`
	rows, err := s.db.QueryContext(ctx, query, database, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query column info: %w", err)
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var col ColumnInfo
		if err := rows.Scan(&col.Name, &col.ColumnType); err != nil {
			return nil, fmt.Errorf("failed to scan column info: %w", err)
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}

	s.cache[cacheKey] = cols
	s.logger.Debugf("Fetched %d columns for %s.%s", len(cols), database, table)
	return cols, nil
}

// Forget implements ColumnLookup
func (s *InformationSchema) Forget(database string) {
	if database == "" {
		s.cache = make(map[string][]ColumnInfo)
		return
	}
	for key := range s.cache {
		if strings.HasPrefix(key, database+".") {
			delete(s.cache, key)
		}
	}
}

// Close closes the underlying connection
func (s *InformationSchema) Close() error {
	return s.db.Close()
}
