/*-------------------------------------------------------------------------
 *
 * DB Chat - Natural Language Database Query Tool
 *
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package schema

import (
	"fmt"

	"dbchat/internal/database"
)

// Build normalizes a raw introspection snapshot into a Model. It is
// deterministic: identical input always yields a structurally equal model.
// Duplicate table names, or duplicate column names within a table, are
// treated as corrupt introspection output and rejected.
func Build(raw *database.RawIntrospection) (*Model, error) {
	if raw == nil {
		return nil, fmt.Errorf("nil introspection")
	}

	model := &Model{Engine: raw.Engine}
	seen := make(map[string]bool, len(raw.Tables))

	for _, rt := range raw.Tables {
		if seen[rt.Name] {
			return nil, fmt.Errorf("duplicate table name %q in introspection output", rt.Name)
		}
		seen[rt.Name] = true

		table := Table{Name: rt.Name, RowEstimate: rt.RowEstimate}

		colSeen := make(map[string]bool, len(rt.Columns))
		for _, rc := range rt.Columns {
			if colSeen[rc.Name] {
				return nil, fmt.Errorf("duplicate column name %q in table %q", rc.Name, rt.Name)
			}
			colSeen[rc.Name] = true
			table.Columns = append(table.Columns, Column{
				Name:     rc.Name,
				DataType: rc.DataType,
				Nullable: rc.Nullable,
			})
		}

		for _, pk := range rt.PrimaryKeys {
			if col := table.column(pk); col != nil {
				col.PrimaryKey = true
			}
		}

		model.Tables = append(model.Tables, table)
	}

	// FK resolution needs the complete table set, so run it second.
	for ti, rt := range raw.Tables {
		for _, fk := range rt.ForeignKeys {
			col := model.Tables[ti].column(fk.Column)
			if col == nil {
				continue
			}
			col.ForeignKey = true
			col.SelfReferential = fk.RefTable == rt.Name

			target := model.Lookup(fk.RefTable)
			refColumn := fk.RefColumn
			if target != nil && refColumn == "" {
				// SQLite reports NULL for FKs that implicitly target
				// the referenced table's primary key.
				refColumn = firstPrimaryKey(target)
			}

			col.References = fk.RefTable + "." + refColumn
			col.Unresolved = target == nil || target.column(refColumn) == nil
		}
	}

	return model, nil
}

func firstPrimaryKey(t *Table) string {
	for _, c := range t.Columns {
		if c.PrimaryKey {
			return c.Name
		}
	}
	return ""
}
