package database

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Dialect captures the SQL differences between the supported drivers
type Dialect string

const (
	DialectMySQL  Dialect = DriverMySQL
	DialectSQLite Dialect = DriverSQLite
)

// DialectOf returns the dialect for an open connection
func DialectOf(db *sqlx.DB) Dialect {
	if db.DriverName() == DriverSQLite {
		return DialectSQLite
	}
	return DialectMySQL
}

// Quote quotes an identifier. Both MySQL and SQLite accept backticks.
func (d Dialect) Quote(name string) string {
	return "`" + name + "`"
}

// InsertSQL builds a named-parameter INSERT for the given columns
func (d Dialect) InsertSQL(table string, columns []string) string {
	quoted := make([]string, len(columns))
	params := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = d.Quote(col)
		params[i] = ":" + col
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Quote(table), strings.Join(quoted, ", "), strings.Join(params, ", "))
}

// UpsertSQL builds a single-statement INSERT that updates updateColumns when
// a row with the same conflictColumn already exists. It reports false for
// MySQL, whose ON DUPLICATE KEY UPDATE also fires on secondary UNIQUE indexes
// and so cannot be scoped to the primary key; use UpdateSQL and InsertSQL there.
func (d Dialect) UpsertSQL(table, conflictColumn string, columns, updateColumns []string) (string, bool) {
	if d != DialectSQLite {
		return "", false
	}
	insert := d.InsertSQL(table, columns)
	if len(updateColumns) == 0 {
		return fmt.Sprintf("%s ON CONFLICT(%s) DO NOTHING", insert, d.Quote(conflictColumn)), true
	}

	assignments := make([]string, len(updateColumns))
	for i, col := range updateColumns {
		assignments[i] = fmt.Sprintf("%s = excluded.%s", d.Quote(col), d.Quote(col))
	}
	return fmt.Sprintf("%s ON CONFLICT(%s) DO UPDATE SET %s",
		insert, d.Quote(conflictColumn), strings.Join(assignments, ", ")), true
}

// UpdateSQL builds a named-parameter UPDATE of updateColumns for the row whose
// keyColumn matches. It returns "" when there is nothing to update.
func (d Dialect) UpdateSQL(table, keyColumn string, updateColumns []string) string {
	if len(updateColumns) == 0 {
		return ""
	}
	assignments := make([]string, len(updateColumns))
	for i, col := range updateColumns {
		assignments[i] = fmt.Sprintf("%s = :%s", d.Quote(col), col)
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = :%s",
		d.Quote(table), strings.Join(assignments, ", "), d.Quote(keyColumn), keyColumn)
}

// timestampType is the column type used for timestamps
func (d Dialect) timestampType() string {
	if d == DialectMySQL {
		return "DATETIME(6)"
	}
	return "DATETIME"
}
