/*-------------------------------------------------------------------------
 *
 * DB Chat - Natural Language Database Query Tool
 *
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package database

import "context"

// introspectMSSQL reads the sys catalog views. Tables are ordered by
// object_id, which tracks creation order; columns by column_id. Tables
// outside dbo carry a schema-qualified name.
func (c *Connection) introspectMSSQL(ctx context.Context) (*RawIntrospection, error) {
	const tableQuery = `
		SELECT s.name, t.name, COALESCE(SUM(p.rows), -1)
		FROM sys.tables t
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		LEFT JOIN sys.partitions p ON p.object_id = t.object_id AND p.index_id IN (0, 1)
		GROUP BY s.name, t.name, t.object_id
		ORDER BY t.object_id;
	`

	rows, err := c.db.QueryContext(ctx, tableQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	raw := &RawIntrospection{Engine: TypeMSSQL}
	index := make(map[string]int)
	for rows.Next() {
		var schema, name string
		var estimate int64
		if err := rows.Scan(&schema, &name, &estimate); err != nil {
			return nil, err
		}
		display := name
		if schema != "dbo" {
			display = schema + "." + name
		}
		index[schema+"."+name] = len(raw.Tables)
		raw.Tables = append(raw.Tables, RawTable{Name: display, RowEstimate: estimate})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const columnQuery = `
		SELECT s.name, t.name, c.name, ty.name, c.is_nullable
		FROM sys.columns c
		JOIN sys.tables t ON t.object_id = c.object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		JOIN sys.types ty ON ty.user_type_id = c.user_type_id
		ORDER BY t.object_id, c.column_id;
	`

	colRows, err := c.db.QueryContext(ctx, columnQuery)
	if err != nil {
		return nil, err
	}
	defer colRows.Close()

	for colRows.Next() {
		var schema, table, column, dataType string
		var nullable bool
		if err := colRows.Scan(&schema, &table, &column, &dataType, &nullable); err != nil {
			return nil, err
		}
		if i, ok := index[schema+"."+table]; ok {
			raw.Tables[i].Columns = append(raw.Tables[i].Columns, RawColumn{
				Name:     column,
				DataType: dataType,
				Nullable: nullable,
			})
		}
	}
	if err := colRows.Err(); err != nil {
		return nil, err
	}

	const pkQuery = `
		SELECT s.name, t.name, c.name
		FROM sys.indexes i
		JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
		JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
		JOIN sys.tables t ON t.object_id = i.object_id
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		WHERE i.is_primary_key = 1
		ORDER BY t.object_id, ic.key_ordinal;
	`

	pkRows, err := c.db.QueryContext(ctx, pkQuery)
	if err != nil {
		return nil, err
	}
	defer pkRows.Close()

	for pkRows.Next() {
		var schema, table, column string
		if err := pkRows.Scan(&schema, &table, &column); err != nil {
			return nil, err
		}
		if i, ok := index[schema+"."+table]; ok {
			raw.Tables[i].PrimaryKeys = append(raw.Tables[i].PrimaryKeys, column)
		}
	}
	if err := pkRows.Err(); err != nil {
		return nil, err
	}

	const fkQuery = `
		SELECT sp.name, tp.name, cp.name, sr.name, tr.name, cr.name
		FROM sys.foreign_key_columns fkc
		JOIN sys.tables tp ON tp.object_id = fkc.parent_object_id
		JOIN sys.schemas sp ON sp.schema_id = tp.schema_id
		JOIN sys.columns cp ON cp.object_id = fkc.parent_object_id AND cp.column_id = fkc.parent_column_id
		JOIN sys.tables tr ON tr.object_id = fkc.referenced_object_id
		JOIN sys.schemas sr ON sr.schema_id = tr.schema_id
		JOIN sys.columns cr ON cr.object_id = fkc.referenced_object_id AND cr.column_id = fkc.referenced_column_id
		ORDER BY fkc.constraint_object_id, fkc.constraint_column_id;
	`

	fkRows, err := c.db.QueryContext(ctx, fkQuery)
	if err != nil {
		return nil, err
	}
	defer fkRows.Close()

	for fkRows.Next() {
		var schema, table, column, refSchema, refTable, refColumn string
		if err := fkRows.Scan(&schema, &table, &column, &refSchema, &refTable, &refColumn); err != nil {
			return nil, err
		}
		i, ok := index[schema+"."+table]
		if !ok {
			continue
		}
		ref := refTable
		if refSchema != "dbo" {
			ref = refSchema + "." + refTable
		}
		raw.Tables[i].ForeignKeys = append(raw.Tables[i].ForeignKeys, RawForeignKey{
			Column:    column,
			RefTable:  ref,
			RefColumn: refColumn,
		})
	}
	return raw, fkRows.Err()
}
