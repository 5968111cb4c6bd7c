// Package store is the relational store collaborator: one generic Table per
// entity type, exposing findMany, findUnique, upsert and create over sqlx.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	apperrors "risk-register-backup/internal/errors"
	"risk-register-backup/internal/database"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned by FindUnique when no row has the given key
var ErrNotFound = errors.New("record not found")

// immutable columns are written on insert and never touched by upsert updates
var immutableColumns = map[string]bool{
	"id":         true,
	"created_at": true,
}

// FindOptions bounds and orders FindMany
type FindOptions struct {
	Limit      int
	OrderBy    string
	Descending bool
	Where      map[string]interface{} // column = value, ANDed
}

// Table maps rows of one SQL table onto T using T's db tags
type Table[T any] struct {
	db      *sqlx.DB
	dialect database.Dialect
	name    string
	key     string
	columns []string
	known   map[string]bool

	selectSQL string
	insertSQL string
	upsertSQL string // single-statement upsert; empty when the dialect has none
	updateSQL string
}

// NewTable builds a table over T. The primary key column is "id".
func NewTable[T any](db *sqlx.DB, name string) *Table[T] {
	var zero T
	columns := Columns(reflect.TypeOf(zero))
	dialect := database.DialectOf(db)

	known := make(map[string]bool, len(columns))
	quoted := make([]string, len(columns))
	var mutable []string
	for i, col := range columns {
		known[col] = true
		quoted[i] = dialect.Quote(col)
		if !immutableColumns[col] {
			mutable = append(mutable, col)
		}
	}

	upsertSQL, _ := dialect.UpsertSQL(name, "id", columns, mutable)

	return &Table[T]{
		db:        db,
		dialect:   dialect,
		name:      name,
		key:       "id",
		columns:   columns,
		known:     known,
		selectSQL: fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), dialect.Quote(name)),
		insertSQL: dialect.InsertSQL(name, columns),
		upsertSQL: upsertSQL,
		updateSQL: dialect.UpdateSQL(name, "id", mutable),
	}
}

// Name returns the SQL table name
func (t *Table[T]) Name() string {
	return t.name
}

// ColumnNames returns the mapped columns in struct order
func (t *Table[T]) ColumnNames() []string {
	return append([]string(nil), t.columns...)
}

// FindMany returns rows matching opts. A zero Limit means no limit.
func (t *Table[T]) FindMany(ctx context.Context, opts FindOptions) ([]T, error) {
	query := t.selectSQL
	var args []interface{}

	if len(opts.Where) > 0 {
		columns := make([]string, 0, len(opts.Where))
		for col := range opts.Where {
			if !t.known[col] {
				return nil, fmt.Errorf("%s: unknown filter column %q", t.name, col)
			}
			columns = append(columns, col)
		}
		sort.Strings(columns)

		conditions := make([]string, len(columns))
		for i, col := range columns {
			conditions[i] = t.dialect.Quote(col) + " = ?"
			args = append(args, opts.Where[col])
		}
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	if opts.OrderBy != "" {
		if !t.known[opts.OrderBy] {
			return nil, fmt.Errorf("%s: unknown order column %q", t.name, opts.OrderBy)
		}
		direction := "ASC"
		if opts.Descending {
			direction = "DESC"
		}
		// id breaks ties so equal timestamps still produce a stable order
		query += fmt.Sprintf(" ORDER BY %s %s, %s %s", t.dialect.Quote(opts.OrderBy), direction, t.dialect.Quote(t.key), direction)
	}

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows := []T{}
	if err := t.db.SelectContext(ctx, &rows, t.db.Rebind(query), args...); err != nil {
		return nil, apperrors.WrapError(err, fmt.Sprintf("failed to query %s", t.name))
	}
	return rows, nil
}

// FindUnique returns the row with the given primary key, or ErrNotFound
func (t *Table[T]) FindUnique(ctx context.Context, id string) (*T, error) {
	query := fmt.Sprintf("%s WHERE %s = ?", t.selectSQL, t.dialect.Quote(t.key))

	var row T
	err := t.db.GetContext(ctx, &row, t.db.Rebind(query), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, apperrors.WrapError(err, fmt.Sprintf("failed to load %s %s", t.name, id))
	}
	return &row, nil
}

// Exists reports whether a row with the given primary key exists
func (t *Table[T]) Exists(ctx context.Context, id string) (bool, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?", t.dialect.Quote(t.name), t.dialect.Quote(t.key))

	var n int
	if err := t.db.GetContext(ctx, &n, t.db.Rebind(query), id); err != nil {
		return false, apperrors.WrapError(err, fmt.Sprintf("failed to check %s %s", t.name, id))
	}
	return n > 0, nil
}

// Upsert inserts rec, or updates every mutable column of the existing row
// with the same primary key. A clash on any other UNIQUE column is a
// constraint error on every dialect.
func (t *Table[T]) Upsert(ctx context.Context, rec T) error {
	if t.upsertSQL != "" {
		if _, err := t.db.NamedExecContext(ctx, t.upsertSQL, &rec); err != nil {
			return apperrors.WrapError(err, fmt.Sprintf("failed to upsert into %s", t.name))
		}
		return nil
	}

	id, err := t.keyOf(rec)
	if err != nil {
		return err
	}
	exists, err := t.Exists(ctx, id)
	if err != nil {
		return err
	}

	query := t.insertSQL
	if exists {
		if t.updateSQL == "" {
			return nil
		}
		query = t.updateSQL
	}
	if _, err := t.db.NamedExecContext(ctx, query, &rec); err != nil {
		return apperrors.WrapError(err, fmt.Sprintf("failed to upsert into %s", t.name))
	}
	return nil
}

// keyOf reads the primary key field of rec through the db tag mapping
func (t *Table[T]) keyOf(rec T) (string, error) {
	v := reflect.Indirect(reflect.ValueOf(rec))
	field := t.db.Mapper.FieldByName(v, t.key)
	if field.Kind() != reflect.String {
		return "", fmt.Errorf("%s: no string %q column on %s", t.name, t.key, v.Type())
	}
	return field.String(), nil
}

// Create inserts rec
func (t *Table[T]) Create(ctx context.Context, rec T) error {
	if _, err := t.db.NamedExecContext(ctx, t.insertSQL, &rec); err != nil {
		return apperrors.WrapError(err, fmt.Sprintf("failed to insert into %s", t.name))
	}
	return nil
}

// Delete removes the row with the given primary key. Deleting a missing row is not an error.
func (t *Table[T]) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", t.dialect.Quote(t.name), t.dialect.Quote(t.key))
	if _, err := t.db.ExecContext(ctx, t.db.Rebind(query), id); err != nil {
		return apperrors.WrapError(err, fmt.Sprintf("failed to delete %s %s", t.name, id))
	}
	return nil
}

// Count returns the number of rows
func (t *Table[T]) Count(ctx context.Context) (int, error) {
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", t.dialect.Quote(t.name))
	if err := t.db.GetContext(ctx, &n, query); err != nil {
		return 0, apperrors.WrapError(err, fmt.Sprintf("failed to count %s", t.name))
	}
	return n, nil
}

// Columns returns the db-tagged columns of a struct type in field order.
// Untagged embedded structs are flattened.
func Columns(typ reflect.Type) []string {
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}

	var columns []string
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tag, hasTag := field.Tag.Lookup("db")

		if field.Anonymous && !hasTag && field.Type.Kind() == reflect.Struct {
			columns = append(columns, Columns(field.Type)...)
			continue
		}
		if !field.IsExported() || !hasTag || tag == "-" {
			continue
		}
		columns = append(columns, strings.Split(tag, ",")[0])
	}
	return columns
}
