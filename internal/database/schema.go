package database

import (
	"context"
	"fmt"
	"strings"

	"risk-register-backup/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Tables lists every table created by EnsureSchema, parents before children.
var Tables = []string{
	"departments",
	"categories",
	"risk_statuses",
	"risk_sources",
	"impact_criteria",
	"likelihood_criteria",
	"users",
	"risk_owners",
	"risks",
	"treatment_plans",
	"treatment_tasks",
	"treatment_steps",
	"task_updates",
	"risk_assessments",
	"comments",
	"discussions",
	"change_logs",
	"notifications",
	"audit_entries",
	"direct_messages",
	"backup_records",
}

// DDL uses TIMESTAMP_T as a placeholder for the dialect's timestamp type.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS departments (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	code VARCHAR(64) NOT NULL UNIQUE,
	name_en VARCHAR(255) NOT NULL,
	name_ar VARCHAR(255) NOT NULL DEFAULT '',
	description TEXT NULL,
	created_at TIMESTAMP_T NOT NULL,
	updated_at TIMESTAMP_T NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS categories (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	code VARCHAR(64) NOT NULL UNIQUE,
	name_en VARCHAR(255) NOT NULL,
	name_ar VARCHAR(255) NOT NULL DEFAULT '',
	description TEXT NULL,
	created_at TIMESTAMP_T NOT NULL,
	updated_at TIMESTAMP_T NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS risk_statuses (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	code VARCHAR(64) NOT NULL UNIQUE,
	name_en VARCHAR(255) NOT NULL,
	name_ar VARCHAR(255) NOT NULL DEFAULT '',
	sort_order INT NOT NULL DEFAULT 0,
	is_closed BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMP_T NOT NULL,
	updated_at TIMESTAMP_T NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS risk_sources (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	code VARCHAR(64) NOT NULL UNIQUE,
	name_en VARCHAR(255) NOT NULL,
	name_ar VARCHAR(255) NOT NULL DEFAULT '',
	created_at TIMESTAMP_T NOT NULL,
	updated_at TIMESTAMP_T NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS impact_criteria (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	level INT NOT NULL UNIQUE,
	name_en VARCHAR(255) NOT NULL,
	name_ar VARCHAR(255) NOT NULL DEFAULT '',
	description TEXT NULL,
	created_at TIMESTAMP_T NOT NULL,
	updated_at TIMESTAMP_T NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS likelihood_criteria (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	level INT NOT NULL UNIQUE,
	name_en VARCHAR(255) NOT NULL,
	name_ar VARCHAR(255) NOT NULL DEFAULT '',
	description TEXT NULL,
	created_at TIMESTAMP_T NOT NULL,
	updated_at TIMESTAMP_T NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS users (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	email VARCHAR(255) NOT NULL UNIQUE,
	full_name VARCHAR(255) NOT NULL,
	role VARCHAR(32) NOT NULL,
	department_id VARCHAR(64) NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	password_hash VARCHAR(255) NOT NULL DEFAULT '',
	last_login_at TIMESTAMP_T NULL,
	created_at TIMESTAMP_T NOT NULL,
	updated_at TIMESTAMP_T NOT NULL,
	FOREIGN KEY (department_id) REFERENCES departments(id)
)`,
	`CREATE TABLE IF NOT EXISTS risk_owners (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	full_name VARCHAR(255) NOT NULL,
	email VARCHAR(255) NOT NULL UNIQUE,
	department_id VARCHAR(64) NULL,
	user_id VARCHAR(64) NULL,
	created_at TIMESTAMP_T NOT NULL,
	updated_at TIMESTAMP_T NOT NULL,
	FOREIGN KEY (department_id) REFERENCES departments(id),
	FOREIGN KEY (user_id) REFERENCES users(id)
)`,
	`CREATE TABLE IF NOT EXISTS risks (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	risk_number VARCHAR(32) NOT NULL UNIQUE,
	title_en VARCHAR(255) NOT NULL,
	title_ar VARCHAR(255) NOT NULL DEFAULT '',
	description TEXT NULL,
	department_id VARCHAR(64) NOT NULL,
	category_id VARCHAR(64) NOT NULL,
	status_id VARCHAR(64) NOT NULL,
	source_id VARCHAR(64) NULL,
	owner_id VARCHAR(64) NULL,
	inherent_likelihood INT NOT NULL,
	inherent_impact INT NOT NULL,
	residual_likelihood INT NULL,
	residual_impact INT NULL,
	identified_at TIMESTAMP_T NULL,
	review_due_at TIMESTAMP_T NULL,
	created_at TIMESTAMP_T NOT NULL,
	updated_at TIMESTAMP_T NOT NULL,
	FOREIGN KEY (department_id) REFERENCES departments(id),
	FOREIGN KEY (category_id) REFERENCES categories(id),
	FOREIGN KEY (status_id) REFERENCES risk_statuses(id),
	FOREIGN KEY (source_id) REFERENCES risk_sources(id),
	FOREIGN KEY (owner_id) REFERENCES risk_owners(id)
)`,
	`CREATE TABLE IF NOT EXISTS treatment_plans (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	risk_id VARCHAR(64) NOT NULL,
	title VARCHAR(255) NOT NULL,
	strategy VARCHAR(32) NOT NULL,
	status VARCHAR(32) NOT NULL,
	owner_id VARCHAR(64) NULL,
	start_date TIMESTAMP_T NULL,
	due_date TIMESTAMP_T NULL,
	completed_at TIMESTAMP_T NULL,
	created_at TIMESTAMP_T NOT NULL,
	updated_at TIMESTAMP_T NOT NULL,
	FOREIGN KEY (risk_id) REFERENCES risks(id),
	FOREIGN KEY (owner_id) REFERENCES risk_owners(id)
)`,
	`CREATE TABLE IF NOT EXISTS treatment_tasks (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	plan_id VARCHAR(64) NOT NULL,
	title VARCHAR(255) NOT NULL,
	status VARCHAR(32) NOT NULL,
	assignee_id VARCHAR(64) NULL,
	due_date TIMESTAMP_T NULL,
	completed_at TIMESTAMP_T NULL,
	created_at TIMESTAMP_T NOT NULL,
	updated_at TIMESTAMP_T NOT NULL,
	FOREIGN KEY (plan_id) REFERENCES treatment_plans(id),
	FOREIGN KEY (assignee_id) REFERENCES users(id)
)`,
	`CREATE TABLE IF NOT EXISTS treatment_steps (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	task_id VARCHAR(64) NOT NULL,
	description TEXT NOT NULL,
	sort_order INT NOT NULL DEFAULT 0,
	is_done BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMP_T NOT NULL,
	updated_at TIMESTAMP_T NOT NULL,
	FOREIGN KEY (task_id) REFERENCES treatment_tasks(id)
)`,
	`CREATE TABLE IF NOT EXISTS task_updates (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	task_id VARCHAR(64) NOT NULL,
	author_id VARCHAR(64) NULL,
	body TEXT NOT NULL,
	progress INT NOT NULL DEFAULT 0,
	created_at TIMESTAMP_T NOT NULL,
	FOREIGN KEY (task_id) REFERENCES treatment_tasks(id),
	FOREIGN KEY (author_id) REFERENCES users(id)
)`,
	`CREATE TABLE IF NOT EXISTS risk_assessments (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	risk_id VARCHAR(64) NOT NULL,
	assessor_id VARCHAR(64) NULL,
	likelihood INT NOT NULL,
	impact INT NOT NULL,
	score INT NOT NULL,
	notes TEXT NULL,
	assessed_at TIMESTAMP_T NOT NULL,
	created_at TIMESTAMP_T NOT NULL,
	FOREIGN KEY (risk_id) REFERENCES risks(id),
	FOREIGN KEY (assessor_id) REFERENCES users(id)
)`,
	`CREATE TABLE IF NOT EXISTS comments (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	risk_id VARCHAR(64) NOT NULL,
	author_id VARCHAR(64) NULL,
	body TEXT NOT NULL,
	created_at TIMESTAMP_T NOT NULL,
	FOREIGN KEY (risk_id) REFERENCES risks(id),
	FOREIGN KEY (author_id) REFERENCES users(id)
)`,
	`CREATE TABLE IF NOT EXISTS discussions (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	risk_id VARCHAR(64) NOT NULL,
	author_id VARCHAR(64) NULL,
	title VARCHAR(255) NOT NULL,
	body TEXT NOT NULL,
	created_at TIMESTAMP_T NOT NULL,
	FOREIGN KEY (risk_id) REFERENCES risks(id),
	FOREIGN KEY (author_id) REFERENCES users(id)
)`,
	`CREATE TABLE IF NOT EXISTS change_logs (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	risk_id VARCHAR(64) NULL,
	user_id VARCHAR(64) NULL,
	action VARCHAR(64) NOT NULL,
	field_name VARCHAR(128) NULL,
	old_value TEXT NULL,
	new_value TEXT NULL,
	created_at TIMESTAMP_T NOT NULL,
	FOREIGN KEY (risk_id) REFERENCES risks(id),
	FOREIGN KEY (user_id) REFERENCES users(id)
)`,
	`CREATE TABLE IF NOT EXISTS notifications (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	user_id VARCHAR(64) NOT NULL,
	kind VARCHAR(64) NOT NULL,
	title VARCHAR(255) NOT NULL,
	body TEXT NULL,
	link VARCHAR(512) NULL,
	is_read BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMP_T NOT NULL,
	FOREIGN KEY (user_id) REFERENCES users(id)
)`,
	`CREATE TABLE IF NOT EXISTS audit_entries (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	user_id VARCHAR(64) NULL,
	action VARCHAR(64) NOT NULL,
	entity_type VARCHAR(64) NOT NULL,
	entity_id VARCHAR(64) NULL,
	details TEXT NULL,
	ip_address VARCHAR(64) NULL,
	created_at TIMESTAMP_T NOT NULL,
	FOREIGN KEY (user_id) REFERENCES users(id)
)`,
	`CREATE TABLE IF NOT EXISTS direct_messages (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	sender_id VARCHAR(64) NOT NULL,
	recipient_id VARCHAR(64) NOT NULL,
	body TEXT NOT NULL,
	read_at TIMESTAMP_T NULL,
	created_at TIMESTAMP_T NOT NULL,
	FOREIGN KEY (sender_id) REFERENCES users(id),
	FOREIGN KEY (recipient_id) REFERENCES users(id)
)`,
	`CREATE TABLE IF NOT EXISTS backup_records (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	file_name VARCHAR(255) NOT NULL,
	file_size_bytes BIGINT NOT NULL DEFAULT 0,
	backup_kind VARCHAR(16) NOT NULL,
	status VARCHAR(16) NOT NULL,
	created_by_user_id VARCHAR(64) NULL,
	stats_snapshot TEXT NULL,
	error_message TEXT NULL,
	created_at TIMESTAMP_T NOT NULL
)`,
}

// SchemaStatements returns the DDL for the given dialect
func SchemaStatements(d Dialect) []string {
	stmts := make([]string, len(schemaStatements))
	for i, stmt := range schemaStatements {
		stmts[i] = strings.ReplaceAll(stmt, "TIMESTAMP_T", d.timestampType())
	}
	return stmts
}

// EnsureSchema creates every table that does not exist yet
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range SchemaStatements(DialectOf(db)) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.WrapError(err, fmt.Sprintf("failed to create table %s", Tables[i]))
		}
	}
	return nil
}
