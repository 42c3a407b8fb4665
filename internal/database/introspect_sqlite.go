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
	"fmt"
	"strings"
)

// introspectSQLite reads sqlite_master plus per-table PRAGMAs.
// sqlite_master rows come back in creation order, which preserves the
// schema author's table ordering for prompting.
func (c *Connection) introspectSQLite(ctx context.Context) (*RawIntrospection, error) {
	const tableQuery = `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY rowid;
	`

	rows, err := c.db.QueryContext(ctx, tableQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	raw := &RawIntrospection{Engine: TypeSQLite}
	for _, name := range names {
		table, err := c.sqliteTable(ctx, name)
		if err != nil {
			return nil, err
		}
		raw.Tables = append(raw.Tables, table)
	}
	return raw, nil
}

func (c *Connection) sqliteTable(ctx context.Context, name string) (RawTable, error) {
	table := RawTable{Name: name, RowEstimate: -1}

	colRows, err := c.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s);", quoteSQLiteIdent(name)))
	if err != nil {
		return table, err
	}
	defer colRows.Close()

	for colRows.Next() {
		var cid, notnull, pk int
		var colName, colType string
		var dflt sql.NullString
		if err := colRows.Scan(&cid, &colName, &colType, &notnull, &dflt, &pk); err != nil {
			return table, err
		}
		table.Columns = append(table.Columns, RawColumn{
			Name:     colName,
			DataType: colType,
			Nullable: notnull == 0,
		})
		if pk > 0 {
			table.PrimaryKeys = append(table.PrimaryKeys, colName)
		}
	}
	if err := colRows.Err(); err != nil {
		return table, err
	}

	fkRows, err := c.db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s);", quoteSQLiteIdent(name)))
	if err != nil {
		return table, err
	}
	defer fkRows.Close()

	for fkRows.Next() {
		var id, seq int
		var refTable, from string
		var to sql.NullString // NULL when the FK targets the referenced table's PK implicitly
		var onUpdate, onDelete, match string
		if err := fkRows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return table, err
		}
		table.ForeignKeys = append(table.ForeignKeys, RawForeignKey{
			Column:    from,
			RefTable:  refTable,
			RefColumn: to.String,
		})
	}
	return table, fkRows.Err()
}

func quoteSQLiteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
