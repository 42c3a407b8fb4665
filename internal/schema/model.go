/*-------------------------------------------------------------------------
 *
 * DB Chat - Natural Language Database Query Tool
 *
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package schema

import "dbchat/internal/database"

// Model is the normalized, immutable schema representation handed to the
// query synthesizer. Tables and columns keep declaration order so prompts
// reflect the schema author's intent.
type Model struct {
	Engine database.Type
	Tables []Table
}

// Table describes one table in the model.
type Table struct {
	Name        string
	Columns     []Column
	RowEstimate int64 // -1 when unknown
}

// Column describes one column in the model.
type Column struct {
	Name            string
	DataType        string
	Nullable        bool
	PrimaryKey      bool
	ForeignKey      bool
	References      string // "table.column" when ForeignKey is set
	SelfReferential bool   // FK pointing back at its own table
	Unresolved      bool   // FK whose target is missing from the model
}

// Lookup returns the table with the given name, or nil.
func (m *Model) Lookup(name string) *Table {
	for i := range m.Tables {
		if m.Tables[i].Name == name {
			return &m.Tables[i]
		}
	}
	return nil
}

// TableNames returns all table names in model order.
func (m *Model) TableNames() []string {
	names := make([]string, len(m.Tables))
	for i, t := range m.Tables {
		names[i] = t.Name
	}
	return names
}

// column returns the named column of t, or nil.
func (t *Table) column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}
