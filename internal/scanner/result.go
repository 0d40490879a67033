package scanner

import (
	"github.com/vitebski/mysql-context-extractor/pkg/models"
)

// ScanResult holds the tables and rows found by one scan session
type ScanResult struct {
	Catalog     string
	MatchColumn string
	MatchValue  interface{}
	MatchType   models.SQLType

	// Tables is in discovery order
	Tables []*models.TableDescriptor
	// InsertionOrder lists parents before the tables referencing them
	InsertionOrder []*models.TableDescriptor
	ForeignKeys    map[string][]models.ForeignKey
}

// DeletionOrder lists referencing tables before their parents
func (r *ScanResult) DeletionOrder() []*models.TableDescriptor {
	order := make([]*models.TableDescriptor, len(r.InsertionOrder))
	for i, table := range r.InsertionOrder {
		order[len(order)-1-i] = table
	}
	return order
}

// RowCount returns the number of fetched rows across all tables
func (r *ScanResult) RowCount() int {
	total := 0
	for _, table := range r.Tables {
		total += len(table.Rows)
	}
	return total
}

// Table returns the matched table with the given name
func (r *ScanResult) Table(name string) *models.TableDescriptor {
	for _, table := range r.Tables {
		if table.Name == name {
			return table
		}
	}
	return nil
}

// KeyColumns returns the columns of table that take part in the match
// criterion or a foreign key, on either side.
func (r *ScanResult) KeyColumns(table string) map[string]bool {
	keys := map[string]bool{r.MatchColumn: true}
	for _, fk := range r.ForeignKeys[table] {
		keys[fk.Column] = true
	}
	for _, fks := range r.ForeignKeys {
		for _, fk := range fks {
			if fk.ReferencedTable == table {
				keys[fk.ReferencedColumn] = true
			}
		}
	}
	return keys
}
