package models

import (
	"sort"
)

// ColumnValue represents a single column of a table, optionally carrying
// the value fetched for one row.
type ColumnValue struct {
	Name    string
	SQLType SQLType
	Size    int64
	Data    interface{}
	Fetched bool
}

// NewColumnValue creates a schema-only column entry
func NewColumnValue(name string, sqlType SQLType, size int64) ColumnValue {
	return ColumnValue{
		Name:    name,
		SQLType: sqlType,
		Size:    size,
	}
}

// WithData returns a copy of the column carrying the given cell value.
// A nil value is a fetched SQL NULL.
func (c ColumnValue) WithData(data interface{}) ColumnValue {
	c.Data = data
	c.Fetched = true
	return c
}

// RowRecord represents one fetched table row
type RowRecord struct {
	Values map[string]ColumnValue
}

// NewRowRecord creates an empty row
func NewRowRecord() RowRecord {
	return RowRecord{Values: make(map[string]ColumnValue)}
}

// Set stores the value for a column. An existing entry for the same column is replaced.
func (r *RowRecord) Set(value ColumnValue) {
	if r.Values == nil {
		r.Values = make(map[string]ColumnValue)
	}
	r.Values[value.Name] = value
}

// Get returns the column value stored under name
func (r RowRecord) Get(name string) (ColumnValue, bool) {
	v, ok := r.Values[name]
	return v, ok
}

// Value returns the fetched cell data for a column, or nil if it is absent
func (r RowRecord) Value(name string) interface{} {
	return r.Values[name].Data
}

// ColumnNames returns the column names of the row in lexical order
func (r RowRecord) ColumnNames() []string {
	names := make([]string, 0, len(r.Values))
	for name := range r.Values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of columns in the row
func (r RowRecord) Len() int {
	return len(r.Values)
}

// TableCategory represents the role of a table in the reference graph
type TableCategory int

const (
	// Standalone tables neither reference nor are referenced by other matched tables
	Standalone TableCategory = iota
	// Parent tables are only referenced by other tables
	Parent
	// Dependent tables reference at least one other table
	Dependent
)

func (c TableCategory) String() string {
	switch c {
	case Parent:
		return "Parent"
	case Dependent:
		return "Dependent"
	default:
		return "Standalone"
	}
}

// TableDescriptor represents a matched table: its column schema, the rows
// fetched for the match criterion and its foreign key references.
type TableDescriptor struct {
	Name    string
	Columns []ColumnValue
	Rows    []RowRecord

	outgoing map[string]struct{}
	incoming map[string]struct{}
}

// NewTableDescriptor creates a table descriptor with the given column schema
func NewTableDescriptor(name string, columns []ColumnValue) *TableDescriptor {
	return &TableDescriptor{
		Name:     name,
		Columns:  columns,
		outgoing: make(map[string]struct{}),
		incoming: make(map[string]struct{}),
	}
}

// HasColumn reports whether the table has a column with exactly this name
func (t *TableDescriptor) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// Column returns the schema entry for the named column
func (t *TableDescriptor) Column(name string) (ColumnValue, bool) {
	for _, col := range t.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return ColumnValue{}, false
}

// ColumnNames returns the column names in schema order
func (t *TableDescriptor) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// AppendRow adds a fetched row to the table
func (t *TableDescriptor) AppendRow(row RowRecord) {
	t.Rows = append(t.Rows, row)
}

// CloneWithRows returns a copy of the table holding rows instead of the
// fetched ones. Columns are shared, references are copied.
func (t *TableDescriptor) CloneWithRows(rows []RowRecord) *TableDescriptor {
	clone := NewTableDescriptor(t.Name, t.Columns)
	clone.Rows = rows
	for ref := range t.outgoing {
		clone.outgoing[ref] = struct{}{}
	}
	for ref := range t.incoming {
		clone.incoming[ref] = struct{}{}
	}
	return clone
}

// AddOutgoingReference records that this table has a foreign key to table
func (t *TableDescriptor) AddOutgoingReference(table string) {
	if t.outgoing == nil {
		t.outgoing = make(map[string]struct{})
	}
	t.outgoing[table] = struct{}{}
}

// RemoveOutgoingReference forgets an outgoing reference. Removing an unknown name is a no-op.
func (t *TableDescriptor) RemoveOutgoingReference(table string) {
	delete(t.outgoing, table)
}

// HasOutgoingReferences reports whether the table references any other table
func (t *TableDescriptor) HasOutgoingReferences() bool {
	return len(t.outgoing) > 0
}

// HasOutgoingReference reports whether the table references the named table
func (t *TableDescriptor) HasOutgoingReference(table string) bool {
	_, ok := t.outgoing[table]
	return ok
}

// OutgoingReferences returns the referenced table names in lexical order
func (t *TableDescriptor) OutgoingReferences() []string {
	return sortedKeys(t.outgoing)
}

// AddIncomingReference records that table has a foreign key to this table
func (t *TableDescriptor) AddIncomingReference(table string) {
	if t.incoming == nil {
		t.incoming = make(map[string]struct{})
	}
	t.incoming[table] = struct{}{}
}

// RemoveIncomingReference forgets an incoming reference. Removing an unknown name is a no-op.
func (t *TableDescriptor) RemoveIncomingReference(table string) {
	delete(t.incoming, table)
}

// IncomingReferences returns the names of referencing tables in lexical order
func (t *TableDescriptor) IncomingReferences() []string {
	return sortedKeys(t.incoming)
}

// Category classifies the table by its references
func (t *TableDescriptor) Category() TableCategory {
	switch {
	case len(t.outgoing) > 0:
		return Dependent
	case len(t.incoming) > 0:
		return Parent
	default:
		return Standalone
	}
}

// ByName sorts table descriptors by name
type ByName []*TableDescriptor

func (s ByName) Len() int           { return len(s) }
func (s ByName) Less(i, j int) bool { return s[i].Name < s[j].Name }
func (s ByName) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

// ForeignKey represents a foreign key relationship
type ForeignKey struct {
	Table            string `json:"table"`
	Column           string `json:"column"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
	ConstraintName   string `json:"constraint_name,omitempty"`
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
