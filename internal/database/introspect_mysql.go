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
)

// introspectMySQL reads information_schema for the current database.
// MySQL does not expose table creation order, so tables are sorted by name
// for determinism; columns use ORDINAL_POSITION, which is declaration order.
func (c *Connection) introspectMySQL(ctx context.Context) (*RawIntrospection, error) {
	const tableQuery = `
		SELECT TABLE_NAME, COALESCE(TABLE_ROWS, -1)
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = DATABASE()
		  AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME;
	`

	rows, err := c.db.QueryContext(ctx, tableQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	raw := &RawIntrospection{Engine: TypeMySQL}
	index := make(map[string]int)
	for rows.Next() {
		var name string
		var estimate int64
		if err := rows.Scan(&name, &estimate); err != nil {
			return nil, err
		}
		index[name] = len(raw.Tables)
		raw.Tables = append(raw.Tables, RawTable{Name: name, RowEstimate: estimate})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const columnQuery = `
		SELECT TABLE_NAME, COLUMN_NAME, DATA_TYPE, IS_NULLABLE, COLUMN_KEY
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE()
		ORDER BY TABLE_NAME, ORDINAL_POSITION;
	`

	colRows, err := c.db.QueryContext(ctx, columnQuery)
	if err != nil {
		return nil, err
	}
	defer colRows.Close()

	for colRows.Next() {
		var table, column, dataType, nullable, key string
		if err := colRows.Scan(&table, &column, &dataType, &nullable, &key); err != nil {
			return nil, err
		}
		i, ok := index[table]
		if !ok {
			continue
		}
		raw.Tables[i].Columns = append(raw.Tables[i].Columns, RawColumn{
			Name:     column,
			DataType: dataType,
			Nullable: nullable == "YES",
		})
		if key == "PRI" {
			raw.Tables[i].PrimaryKeys = append(raw.Tables[i].PrimaryKeys, column)
		}
	}
	if err := colRows.Err(); err != nil {
		return nil, err
	}

	const fkQuery = `
		SELECT TABLE_NAME, COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME
		FROM information_schema.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = DATABASE()
		  AND REFERENCED_TABLE_NAME IS NOT NULL
		ORDER BY TABLE_NAME, ORDINAL_POSITION;
	`

	fkRows, err := c.db.QueryContext(ctx, fkQuery)
	if err != nil {
		return nil, err
	}
	defer fkRows.Close()

	for fkRows.Next() {
		var table, column string
		var refTable, refColumn sql.NullString
		if err := fkRows.Scan(&table, &column, &refTable, &refColumn); err != nil {
			return nil, err
		}
		if i, ok := index[table]; ok {
			raw.Tables[i].ForeignKeys = append(raw.Tables[i].ForeignKeys, RawForeignKey{
				Column:    column,
				RefTable:  refTable.String,
				RefColumn: refColumn.String,
			})
		}
	}
	return raw, fkRows.Err()
}
