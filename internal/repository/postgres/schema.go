package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ignite/person-registry/internal/domain"
	"github.com/lib/pq"
)

// TableName is the single table backing person registrations.
const TableName = "person_registrations"

var createTableSQL = fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS person_registrations (
	id          BIGSERIAL    PRIMARY KEY,
	name        VARCHAR(%d) NOT NULL,
	birth_date  DATE         NOT NULL,
	cpf         CHAR(%d)     NOT NULL,
	email       VARCHAR(%d) NOT NULL,
	created_at  TIMESTAMPTZ  NOT NULL,
	CONSTRAINT uq_person_registrations_cpf UNIQUE (cpf),
	CONSTRAINT uq_person_registrations_email UNIQUE (email)
)`, domain.MaxNameLength, domain.CPFLength, domain.MaxEmailLength)

// Deployments created before description existed gain the column in place.
const addDescriptionSQL = `
ALTER TABLE person_registrations ADD COLUMN IF NOT EXISTS description TEXT NULL`

const hasColumnSQL = `
SELECT EXISTS (
	SELECT 1 FROM information_schema.columns
	WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2
)`

// duplicateTable is reported instead of a notice when a concurrent CREATE
// TABLE IF NOT EXISTS commits first; 23505 on pg_type is the other form.
const duplicateTable = "42P07"

// schemaConn is implemented by *sql.DB, *sql.Conn and *sql.Tx.
type schemaConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// EnsureSchema creates person_registrations and its optional columns if they
// are missing. Repeated calls are no-ops. The ALTER runs only when the
// catalog lacks the column, so a provisioned table never takes its ACCESS
// EXCLUSIVE lock on the request path.
func EnsureSchema(ctx context.Context, db schemaConn) error {
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil && !lostCreateRace(err) {
		return fmt.Errorf("ensure table: %w", err)
	}

	var exists bool
	if err := db.QueryRowContext(ctx, hasColumnSQL, TableName, "description").Scan(&exists); err != nil {
		return fmt.Errorf("ensure description column: %w", err)
	}
	if exists {
		return nil
	}
	if _, err := db.ExecContext(ctx, addDescriptionSQL); err != nil {
		return fmt.Errorf("ensure description column: %w", err)
	}
	return nil
}

// lostCreateRace reports whether a CREATE TABLE IF NOT EXISTS failed only
// because another session created the table at the same time.
func lostCreateRace(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == uniqueViolation || pqErr.Code == duplicateTable
}

// Column describes one column of person_registrations as reported by the catalog.
type Column struct {
	Name     string
	DataType string
	Nullable bool
}

// DescribeSchema lists the columns of person_registrations in ordinal order.
// An empty result means the table has not been provisioned yet.
func DescribeSchema(ctx context.Context, db *sql.DB) ([]Column, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable = 'YES'
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position
	`, TableName)
	if err != nil {
		return nil, fmt.Errorf("describe schema: %w", err)
	}
	defer rows.Close()

	var out []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.DataType, &c.Nullable); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
