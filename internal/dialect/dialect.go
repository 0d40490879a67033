// Package dialect holds the per-database SQL needed to introspect a catalog
// and fetch matched rows: metadata queries, placeholders, identifier quoting
// and the mapping from native column types to standard SQL type codes.
//
// Every metadata query aliases its result columns to lower-case names so the
// scanner can read them the same way regardless of the server:
//
//	CatalogExistsQuery  -> schema_name
//	TablesQuery         -> table_name
//	ColumnsQuery        -> column_name, data_type, column_size
//	ImportedKeysQuery   -> table_name, column_name, referenced_table_name,
//	                       referenced_column_name, constraint_name
package dialect

import (
	"fmt"
	"strings"

	"github.com/vitebski/mysql-context-extractor/pkg/models"
)

// Endpoint holds what a dialect needs to build a driver DSN
type Endpoint struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
}

// Dialect describes how to talk to one kind of database server
type Dialect interface {
	// Name is the name used on the command line ("mysql", "postgres")
	Name() string
	// DriverName is the database/sql driver name
	DriverName() string
	DSN(e Endpoint) string
	DefaultPort() string
	// DefaultCatalog returns the catalog scanned when none is configured
	DefaultCatalog(database string) string

	// Placeholder returns the bind marker for the n-th (1-based) parameter
	Placeholder(n int) string
	QuoteIdentifier(name string) string
	QualifiedTable(catalog, table string) string
	StringLiteral(s string) string
	BinaryLiteral(b []byte) string

	// CatalogExistsQuery takes the catalog name as its only parameter
	CatalogExistsQuery() string
	// TablesQuery takes the catalog name as its only parameter
	TablesQuery() string
	// ColumnsQuery takes the catalog and table names
	ColumnsQuery() string
	// ImportedKeysQuery takes the catalog and table names
	ImportedKeysQuery() string

	// SQLType maps an information_schema data_type to a standard SQL type code
	SQLType(dataType string) models.SQLType
}

// ForName returns the dialect registered under name
func ForName(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "mysql", "mariadb":
		return MySQL{}, nil
	case "postgres", "postgresql", "pg":
		return Postgres{}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", name)
}

// Names returns the canonical names of the supported dialects
func Names() []string {
	return []string{MySQL{}.Name(), Postgres{}.Name()}
}
