package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDialect_InsertSQL(t *testing.T) {
	sql := DialectMySQL.InsertSQL("departments", []string{"id", "code"})
	assert.Equal(t, "INSERT INTO `departments` (`id`, `code`) VALUES (:id, :code)", sql)
}

func TestDialect_UpsertSQL(t *testing.T) {
	columns := []string{"id", "code", "name_en", "created_at"}
	update := []string{"code", "name_en"}

	sql, ok := DialectSQLite.UpsertSQL("departments", "id", columns, update)
	assert.True(t, ok)
	assert.Equal(t,
		"INSERT INTO `departments` (`id`, `code`, `name_en`, `created_at`) VALUES (:id, :code, :name_en, :created_at)"+
			" ON CONFLICT(`id`) DO UPDATE SET `code` = excluded.`code`, `name_en` = excluded.`name_en`",
		sql)

	// ON DUPLICATE KEY UPDATE would match the UNIQUE code index as well as id
	sql, ok = DialectMySQL.UpsertSQL("departments", "id", columns, update)
	assert.False(t, ok)
	assert.Empty(t, sql)
}

func TestDialect_UpsertSQL_NoUpdateColumns(t *testing.T) {
	sql, ok := DialectSQLite.UpsertSQL("t", "id", []string{"id"}, nil)
	assert.True(t, ok)
	assert.Contains(t, sql, "DO NOTHING")
}

func TestDialect_UpdateSQL(t *testing.T) {
	assert.Equal(t,
		"UPDATE `departments` SET `code` = :code, `name_en` = :name_en WHERE `id` = :id",
		DialectMySQL.UpdateSQL("departments", "id", []string{"code", "name_en"}))
	assert.Empty(t, DialectMySQL.UpdateSQL("departments", "id", nil))
}

func TestSchemaStatements(t *testing.T) {
	mysqlDDL := SchemaStatements(DialectMySQL)
	sqliteDDL := SchemaStatements(DialectSQLite)

	assert.Len(t, mysqlDDL, len(Tables))
	assert.Len(t, sqliteDDL, len(Tables))
	for i, table := range Tables {
		assert.Contains(t, mysqlDDL[i], "CREATE TABLE IF NOT EXISTS "+table+" (")
		assert.NotContains(t, mysqlDDL[i], "TIMESTAMP_T")
		assert.Contains(t, mysqlDDL[i], "DATETIME(6)")
		assert.NotContains(t, sqliteDDL[i], "DATETIME(6)")
	}
}
