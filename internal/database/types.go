/*-------------------------------------------------------------------------
 *
 * DB Chat - Natural Language Database Query Tool
 *
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package database

import "fmt"

// Type identifies a supported database engine.
type Type string

const (
	TypeSQLite   Type = "sqlite"
	TypePostgres Type = "postgres"
	TypeMSSQL    Type = "mssql"
	TypeMySQL    Type = "mysql"
)

// Valid reports whether t names a supported engine.
func (t Type) Valid() bool {
	switch t {
	case TypeSQLite, TypePostgres, TypeMSSQL, TypeMySQL:
		return true
	}
	return false
}

// Params holds engine-specific connection parameters.
// SQLite uses Path; the networked engines use the remaining fields.
type Params struct {
	Path     string // SQLite database file path
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string // PostgreSQL only: disable, require, verify-ca, verify-full
}

// Result is the tabular outcome of an executed query.
type Result struct {
	Columns   []string
	Rows      [][]any
	Truncated bool // true when the row limit cut off further rows
}

// RawIntrospection is the engine-shaped metadata snapshot returned by
// Connection.Introspect. Tables and columns appear in declaration order
// where the engine exposes it, otherwise in a stable catalog order.
type RawIntrospection struct {
	Engine Type
	Tables []RawTable
}

// RawTable describes one table as reported by the engine's catalog.
type RawTable struct {
	Name        string
	Columns     []RawColumn
	PrimaryKeys []string
	ForeignKeys []RawForeignKey
	RowEstimate int64 // -1 when the engine provides no estimate
}

// RawColumn describes one column as reported by the engine's catalog.
type RawColumn struct {
	Name     string
	DataType string
	Nullable bool
}

// RawForeignKey is a single-column foreign key reference.
type RawForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// ConnectionError reports a failed or invalid connection attempt.
type ConnectionError struct {
	Type   Type
	Reason string
	Err    error
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("connection to %s failed: %s: %v", e.Type, e.Reason, e.Err)
	}
	return fmt.Sprintf("connection to %s failed: %s", e.Type, e.Reason)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IntrospectionError reports a failed schema metadata query.
type IntrospectionError struct {
	Type Type
	Err  error
}

func (e *IntrospectionError) Error() string {
	return fmt.Sprintf("schema introspection on %s failed: %v", e.Type, e.Err)
}

func (e *IntrospectionError) Unwrap() error { return e.Err }
