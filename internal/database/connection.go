/*-------------------------------------------------------------------------
 *
 * DB Chat - Natural Language Database Query Tool
 *
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package database

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"     // mysql driver
	_ "github.com/jackc/pgx/v5/stdlib"     // pgx stdlib driver
	_ "github.com/microsoft/go-mssqldb"    // sqlserver driver
	_ "modernc.org/sqlite"                 // sqlite driver
)

const connectTimeout = 5 * time.Second

// Connection is an open handle to one database. It owns a single underlying
// connection and is not safe for concurrent use; the session layer serializes
// access to it.
type Connection struct {
	dbType Type
	dsn    string
	db     *sql.DB
	closed bool
}

// Connect validates params, opens a handle for the engine, and verifies it
// with a ping. On any failure no handle is retained.
func Connect(ctx context.Context, t Type, p Params) (*Connection, error) {
	driver, dsn, err := p.DSN(t)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	db, err := sql.Open(driver, dsn)
	if err != nil {
		LogConnect(t, dsn, time.Since(start), err)
		return nil, &ConnectionError{Type: t, Reason: "open failed", Err: err}
	}

	// One underlying connection: the session model is single in-flight
	// query, and SQLite in particular misbehaves with more.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		LogConnect(t, dsn, time.Since(start), err)
		return nil, &ConnectionError{Type: t, Reason: "ping failed", Err: err}
	}

	LogConnect(t, dsn, time.Since(start), nil)
	return &Connection{dbType: t, dsn: dsn, db: db}, nil
}

// NewFromDB wraps an existing handle. Used by tests that substitute a
// mock driver for a real engine.
func NewFromDB(t Type, db *sql.DB) *Connection {
	return &Connection{dbType: t, db: db}
}

// Type returns the engine this connection talks to.
func (c *Connection) Type() Type { return c.dbType }

// Connected reports whether the handle is open.
func (c *Connection) Connected() bool { return !c.closed }

// Close releases the underlying handle. Closing an already-closed
// connection is a no-op.
func (c *Connection) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.db.Close()
}

// Execute runs a query and collects up to rowLimit rows (unlimited when
// rowLimit <= 0). Result.Truncated is set when more rows were available.
func (c *Connection) Execute(ctx context.Context, query string, rowLimit int) (*Result, error) {
	if c.closed {
		return nil, &ConnectionError{Type: c.dbType, Reason: "connection is closed"}
	}

	start := time.Now()
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		LogQuery(query, time.Since(start), 0, err)
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &Result{Columns: cols}
	for rows.Next() {
		if rowLimit > 0 && len(result.Rows) >= rowLimit {
			result.Truncated = true
			break
		}

		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		for i, v := range values {
			switch x := v.(type) {
			case []byte:
				// MySQL and SQLite hand TEXT back as []byte.
				values[i] = string(x)
			case time.Time:
				values[i] = x.Format(time.RFC3339Nano)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		LogQuery(query, time.Since(start), len(result.Rows), err)
		return nil, err
	}

	LogQuery(query, time.Since(start), len(result.Rows), nil)
	return result, nil
}

// Exec runs a mutating statement and returns the number of affected rows.
func (c *Connection) Exec(ctx context.Context, query string) (int64, error) {
	if c.closed {
		return 0, &ConnectionError{Type: c.dbType, Reason: "connection is closed"}
	}

	start := time.Now()
	res, err := c.db.ExecContext(ctx, query)
	if err != nil {
		LogQuery(query, time.Since(start), 0, err)
		return 0, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		// Some engines cannot report affected rows; not a failure.
		affected = -1
	}
	LogQuery(query, time.Since(start), int(affected), nil)
	return affected, nil
}

// Introspect queries the engine's metadata catalog and returns the raw
// schema snapshot for the schema builder.
func (c *Connection) Introspect(ctx context.Context) (*RawIntrospection, error) {
	if c.closed {
		return nil, &IntrospectionError{Type: c.dbType, Err: &ConnectionError{Type: c.dbType, Reason: "connection is closed"}}
	}

	start := time.Now()
	var (
		raw *RawIntrospection
		err error
	)
	switch c.dbType {
	case TypeSQLite:
		raw, err = c.introspectSQLite(ctx)
	case TypePostgres:
		raw, err = c.introspectPostgres(ctx)
	case TypeMySQL:
		raw, err = c.introspectMySQL(ctx)
	case TypeMSSQL:
		raw, err = c.introspectMSSQL(ctx)
	}

	if err != nil {
		LogIntrospect(c.dbType, 0, time.Since(start), err)
		return nil, &IntrospectionError{Type: c.dbType, Err: err}
	}

	LogIntrospect(c.dbType, len(raw.Tables), time.Since(start), nil)
	return raw, nil
}
