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

// introspectPostgres reads pg_catalog. Tables are ordered by pg_class oid,
// which is creation order; columns by attnum, which is declaration order.
// Tables outside the public schema carry a schema-qualified name.
func (c *Connection) introspectPostgres(ctx context.Context) (*RawIntrospection, error) {
	const tableQuery = `
		SELECT n.nspname,
		       c.relname,
		       GREATEST(c.reltuples::bigint, -1)
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE c.relkind = 'r'
		  AND n.nspname NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY c.oid;
	`

	rows, err := c.db.QueryContext(ctx, tableQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	raw := &RawIntrospection{Engine: TypePostgres}
	index := make(map[string]int) // schema.table -> position in raw.Tables
	for rows.Next() {
		var schema, name string
		var estimate int64
		if err := rows.Scan(&schema, &name, &estimate); err != nil {
			return nil, err
		}
		display := name
		if schema != "public" {
			display = schema + "." + name
		}
		index[schema+"."+name] = len(raw.Tables)
		raw.Tables = append(raw.Tables, RawTable{Name: display, RowEstimate: estimate})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := c.postgresColumns(ctx, raw, index); err != nil {
		return nil, err
	}
	if err := c.postgresKeys(ctx, raw, index); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Connection) postgresColumns(ctx context.Context, raw *RawIntrospection, index map[string]int) error {
	const columnQuery = `
		SELECT n.nspname,
		       c.relname,
		       a.attname,
		       pg_catalog.format_type(a.atttypid, a.atttypmod),
		       NOT a.attnotnull
		FROM pg_attribute a
		JOIN pg_class c ON c.oid = a.attrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE c.relkind = 'r'
		  AND n.nspname NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		  AND a.attnum > 0
		  AND NOT a.attisdropped
		ORDER BY c.oid, a.attnum;
	`

	rows, err := c.db.QueryContext(ctx, columnQuery)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var schema, table, column, dataType string
		var nullable bool
		if err := rows.Scan(&schema, &table, &column, &dataType, &nullable); err != nil {
			return err
		}
		if i, ok := index[schema+"."+table]; ok {
			raw.Tables[i].Columns = append(raw.Tables[i].Columns, RawColumn{
				Name:     column,
				DataType: dataType,
				Nullable: nullable,
			})
		}
	}
	return rows.Err()
}

func (c *Connection) postgresKeys(ctx context.Context, raw *RawIntrospection, index map[string]int) error {
	const keyQuery = `
		SELECT n.nspname,
		       c.relname,
		       a.attname,
		       con.contype::text,
		       COALESCE(fn.nspname, ''),
		       COALESCE(fc.relname, ''),
		       COALESCE(fa.attname, '')
		FROM pg_constraint con
		JOIN pg_class c ON c.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		JOIN LATERAL unnest(con.conkey) WITH ORDINALITY AS ck(attnum, ord) ON true
		JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = ck.attnum
		LEFT JOIN pg_class fc ON fc.oid = con.confrelid
		LEFT JOIN pg_namespace fn ON fn.oid = fc.relnamespace
		LEFT JOIN LATERAL unnest(con.confkey) WITH ORDINALITY AS fk(attnum, ord)
			ON con.contype = 'f' AND fk.ord = ck.ord
		LEFT JOIN pg_attribute fa ON fa.attrelid = fc.oid AND fa.attnum = fk.attnum
		WHERE con.contype IN ('p', 'f')
		  AND n.nspname NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY con.oid, ck.ord;
	`

	rows, err := c.db.QueryContext(ctx, keyQuery)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var schema, table, column, conType string
		var refSchema, refTable, refColumn sql.NullString
		if err := rows.Scan(&schema, &table, &column, &conType, &refSchema, &refTable, &refColumn); err != nil {
			return err
		}
		i, ok := index[schema+"."+table]
		if !ok {
			continue
		}
		switch conType {
		case "p":
			raw.Tables[i].PrimaryKeys = append(raw.Tables[i].PrimaryKeys, column)
		case "f":
			ref := refTable.String
			if refSchema.String != "" && refSchema.String != "public" {
				ref = refSchema.String + "." + ref
			}
			raw.Tables[i].ForeignKeys = append(raw.Tables[i].ForeignKeys, RawForeignKey{
				Column:    column,
				RefTable:  ref,
				RefColumn: refColumn.String,
			})
		}
	}
	return rows.Err()
}
