package binlog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

// requiredPrivileges are the grants a replication client needs
var requiredPrivileges = []string{
	"REPLICATION SLAVE",
	"REPLICATION CLIENT",
	"SELECT",
}

// Checker validates MySQL connection and required permissions
type Checker struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewChecker creates a checker on an open connection
func NewChecker(db *sql.DB, logger *logrus.Logger) *Checker {
	return &Checker{db: db, logger: logger}
}

// Check verifies connectivity, replication grants and binlog settings.
// A binlog_format other than ROW only produces a warning.
func (c *Checker) Check(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to MySQL server: %w", err)
	}
	c.logger.Info("Successfully connected to MySQL server")

	if err := c.checkGrants(ctx); err != nil {
		return err
	}
	c.logger.Info("All required permissions verified")

	logBin, err := c.variable(ctx, "log_bin")
	if err != nil {
		c.logger.Warn("Could not verify binlog status")
	} else {
		if logBin != "ON" && logBin != "1" {
			return fmt.Errorf("binary logging (log_bin) is not enabled. Current value: %s. Enable it in MySQL configuration", logBin)
		}
		c.logger.Info("Binary logging is enabled")
	}

	binlogFormat, err := c.variable(ctx, "binlog_format")
	if err != nil {
		c.logger.Warn("Could not verify binlog format")
	} else if binlogFormat != "ROW" {
		c.logger.Warnf("binlog_format is set to '%s', but ROW format is required for row changes", binlogFormat)
	} else {
		c.logger.Info("binlog_format is set to ROW")
	}

	return nil
}

func (c *Checker) checkGrants(ctx context.Context) error {
	rows, err := c.db.QueryContext(ctx, "SHOW GRANTS FOR CURRENT_USER()")
	if err != nil {
		// Older servers only accept the bare form
		rows, err = c.db.QueryContext(ctx, "SHOW GRANTS")
		if err != nil {
			return fmt.Errorf("failed to check grants: %w", err)
		}
	}
	defer rows.Close()

	var allGrants []string
	for rows.Next() {
		var grant string
		if err := rows.Scan(&grant); err != nil {
			return fmt.Errorf("failed to scan grant: %w", err)
		}
		allGrants = append(allGrants, grant)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating grants: %w", err)
	}

	missing := MissingPrivileges(allGrants)
	if len(missing) > 0 {
		return fmt.Errorf("missing required permissions: %s. Current grants: %s",
			strings.Join(missing, ", "), strings.Join(allGrants, "; "))
	}
	return nil
}

// MissingPrivileges returns the required privileges not covered by grants.
// ALL PRIVILEGES covers everything.
func MissingPrivileges(grants []string) []string {
	upper := strings.ToUpper(strings.Join(grants, "; "))
	if strings.Contains(upper, "ALL PRIVILEGES") {
		return nil
	}
	var missing []string
	for _, priv := range requiredPrivileges {
		if !strings.Contains(upper, priv) {
			missing = append(missing, priv)
		}
	}
	return missing
}

func (c *Checker) variable(ctx context.Context, name string) (string, error) {
	var value string
	if err := c.db.QueryRowContext(ctx, "SELECT @@"+name).Scan(&value); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	return strings.ToUpper(value), nil
}
