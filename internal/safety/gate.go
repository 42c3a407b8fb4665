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
	"context"
	"fmt"

	"dbchat/internal/database"
)

// Mode controls whether mutating statements may execute.
type Mode string

const (
	ModeReadOnly  Mode = "read-only"
	ModeReadWrite Mode = "read-write"
)

// QueryResult is the successful outcome of a gated execution.
type QueryResult struct {
	GeneratedQuery string
	Columns        []string
	Rows           [][]any
	Truncated      bool
}

// ExecutionError carries the engine's error verbatim together with the
// offending statement so the user can adjust their question.
type ExecutionError struct {
	Query string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("query execution failed: %v\nquery: %s", e.Err, e.Query)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Gate validates a synthesized statement against policy before letting it
// reach the database.
type Gate struct {
	conn           *database.Connection
	maxPreviewRows int
}

// NewGate builds a gate over an open connection. maxPreviewRows bounds
// result sets that carry no explicit limit.
func NewGate(conn *database.Connection, maxPreviewRows int) *Gate {
	return &Gate{conn: conn, maxPreviewRows: maxPreviewRows}
}

// Run classifies the statement, enforces the mode policy, injects a row
// limit where needed, and executes. A statement either fully executes or
// the gate reports failure without retrying; there is no implicit
// transaction retry that could re-run a mutating statement.
func (g *Gate) Run(ctx context.Context, query string, mode Mode) (*QueryResult, error) {
	return g.run(ctx, query, mode, g.maxPreviewRows)
}

// RunWithLimit is Run with an explicit row limit, used by exports that
// need more rows than the preview cap allows.
func (g *Gate) RunWithLimit(ctx context.Context, query string, mode Mode, rowLimit int) (*QueryResult, error) {
	if rowLimit < 1 {
		rowLimit = g.maxPreviewRows
	}
	return g.run(ctx, query, mode, rowLimit)
}

func (g *Gate) run(ctx context.Context, query string, mode Mode, rowLimit int) (*QueryResult, error) {
	class, err := Classify(query)
	if err != nil {
		return nil, err
	}

	if class == ClassMutating {
		if mode != ModeReadWrite {
			return nil, &PolicyViolation{
				Query:  query,
				Reason: fmt.Sprintf("%s statement rejected in %s mode", class, mode),
			}
		}

		affected, err := g.conn.Exec(ctx, query)
		if err != nil {
			return nil, &ExecutionError{Query: query, Err: err}
		}
		return &QueryResult{
			GeneratedQuery: query,
			Columns:        []string{"rows_affected"},
			Rows:           [][]any{{affected}},
		}, nil
	}

	// Ask the engine for one row beyond the cap so the scan can tell a
	// full page from a truncated result.
	bounded := InjectRowLimit(query, rowLimit+1, g.conn.Type())

	// The executor's scan cap backstops statements the dialect rewrite
	// left alone.
	result, err := g.conn.Execute(ctx, bounded, rowLimit)
	if err != nil {
		return nil, &ExecutionError{Query: bounded, Err: err}
	}

	// Report the statement as synthesized, not the bounded rewrite, so a
	// later export of the same query is free to use its own limit.
	return &QueryResult{
		GeneratedQuery: query,
		Columns:        result.Columns,
		Rows:           result.Rows,
		Truncated:      result.Truncated,
	}, nil
}
