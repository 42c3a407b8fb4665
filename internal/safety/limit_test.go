/*-------------------------------------------------------------------------
 *
 * DB Chat - Natural Language Database Query Tool
 *
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package safety

import (
	"testing"

	"dbchat/internal/database"
)

func TestHasRowLimit(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		engine database.Type
		want   bool
	}{
		{"limit clause", "SELECT * FROM t LIMIT 5", database.TypeSQLite, true},
		{"lowercase limit", "select * from t limit 10", database.TypePostgres, true},
		{"no limit", "SELECT * FROM t", database.TypePostgres, false},
		{"limit in string literal", "SELECT * FROM t WHERE s = 'LIMIT 5'", database.TypePostgres, false},
		{"fetch first", "SELECT * FROM t FETCH FIRST 5 ROWS ONLY", database.TypePostgres, true},
		{"top", "SELECT TOP 5 * FROM t", database.TypeMSSQL, true},
		{"distinct top", "SELECT DISTINCT TOP 5 * FROM t", database.TypeMSSQL, true},
		{"mssql no top", "SELECT * FROM t", database.TypeMSSQL, false},
		{"column named top does not count", "SELECT * FROM t LIMIT 3", database.TypeMySQL, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasRowLimit(tt.query, tt.engine); got != tt.want {
				t.Errorf("HasRowLimit(%q, %v) = %v, want %v", tt.query, tt.engine, got, tt.want)
			}
		})
	}
}

func TestInjectRowLimit(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		engine database.Type
		want   string
	}{
		{
			name:   "select gets limit",
			query:  "SELECT * FROM users",
			engine: database.TypeSQLite,
			want:   "SELECT * FROM users LIMIT 10",
		},
		{
			name:   "trailing semicolon removed before limit",
			query:  "SELECT * FROM users;",
			engine: database.TypePostgres,
			want:   "SELECT * FROM users LIMIT 10",
		},
		{
			name:   "existing limit untouched",
			query:  "SELECT * FROM users LIMIT 3",
			engine: database.TypeMySQL,
			want:   "SELECT * FROM users LIMIT 3",
		},
		{
			name:   "cte gets limit",
			query:  "WITH t AS (SELECT 1) SELECT * FROM t",
			engine: database.TypePostgres,
			want:   "WITH t AS (SELECT 1) SELECT * FROM t LIMIT 10",
		},
		{
			name:   "mssql select becomes top",
			query:  "SELECT id FROM users",
			engine: database.TypeMSSQL,
			want:   "SELECT TOP (10) id FROM users",
		},
		{
			name:   "mssql distinct keeps its order",
			query:  "SELECT DISTINCT name FROM users",
			engine: database.TypeMSSQL,
			want:   "SELECT DISTINCT TOP (10) name FROM users",
		},
		{
			name:   "mssql lowercase distinct",
			query:  "select distinct name from users",
			engine: database.TypeMSSQL,
			want:   "SELECT DISTINCT TOP (10) name from users",
		},
		{
			name:   "mssql existing top untouched",
			query:  "SELECT TOP 5 id FROM users",
			engine: database.TypeMSSQL,
			want:   "SELECT TOP 5 id FROM users",
		},
		{
			name:   "mssql cte left to scan cap",
			query:  "WITH t AS (SELECT 1 AS x) SELECT * FROM t",
			engine: database.TypeMSSQL,
			want:   "WITH t AS (SELECT 1 AS x) SELECT * FROM t",
		},
		{
			name:   "explain left alone",
			query:  "EXPLAIN SELECT * FROM users",
			engine: database.TypePostgres,
			want:   "EXPLAIN SELECT * FROM users",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InjectRowLimit(tt.query, 10, tt.engine); got != tt.want {
				t.Errorf("InjectRowLimit(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}

	t.Run("non-positive limit is a no-op", func(t *testing.T) {
		q := "SELECT * FROM users"
		if got := InjectRowLimit(q, 0, database.TypeSQLite); got != q {
			t.Errorf("got %q", got)
		}
	})
}
