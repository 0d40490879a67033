package scanner

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-context-extractor/internal/connector"
	"github.com/vitebski/mysql-context-extractor/internal/depgraph"
	"github.com/vitebski/mysql-context-extractor/pkg/models"
)

// SchemaScanner finds every table of a catalog that carries the match column,
// fetches the rows matching the criterion and orders the tables by their
// foreign key dependencies. A scanner holds the state of one scan session and
// must not be shared between goroutines; the connection stays owned by the caller.
type SchemaScanner struct {
	DB          *connector.DatabaseConnector
	Catalog     string
	MatchColumn string
	MatchValue  interface{}
	MatchType   models.SQLType
	Tables      []*models.TableDescriptor
	ForeignKeys map[string][]models.ForeignKey
	Logger      logrus.FieldLogger
}

// NewSchemaScanner creates a new schema scanner
func NewSchemaScanner(db *connector.DatabaseConnector, logger logrus.FieldLogger) *SchemaScanner {
	return &SchemaScanner{
		DB:          db,
		ForeignKeys: make(map[string][]models.ForeignKey),
		Logger:      logger,
	}
}

// Configure selects the catalog every following query runs against
func (s *SchemaScanner) Configure(catalog string) error {
	op := fmt.Sprintf("select catalog %q", catalog)
	if catalog == "" {
		return storageError(op, "", "", errors.New("catalog name is empty"))
	}

	rows, err := s.DB.ExecuteQuery(s.DB.Dialect.CatalogExistsQuery(), catalog)
	if err != nil {
		return storageError(op, "", "", err)
	}
	if len(rows) == 0 {
		return storageError(op, "", "", errors.Newf("catalog %s does not exist", catalog))
	}

	s.Catalog = catalog
	s.Tables = nil
	s.ForeignKeys = make(map[string][]models.ForeignKey)
	s.Logger.Debugf("Using catalog %s", catalog)
	return nil
}

// SetMatchCriterion sets the column and value rows are matched on. The value
// is converted to the Go type used to bind a parameter of sqlType.
func (s *SchemaScanner) SetMatchCriterion(column string, value interface{}, sqlType models.SQLType) error {
	if column == "" {
		return errors.Wrap(ErrInvalidCriterion, "column name is empty")
	}

	bound, err := sqlType.Coerce(value)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "match value for column %s", column), ErrInvalidCriterion)
	}

	s.MatchColumn = column
	s.MatchValue = bound
	s.MatchType = sqlType
	return nil
}

// DiscoverTables returns every table of the catalog that has the match column.
// Column names are compared exactly as the server reports them.
func (s *SchemaScanner) DiscoverTables() ([]*models.TableDescriptor, error) {
	if s.Catalog == "" {
		return nil, storageError("list tables", "", "", errors.New("no catalog configured"))
	}
	if s.MatchColumn == "" {
		return nil, errors.Wrap(ErrInvalidCriterion, "no match column configured")
	}

	tablesResult, err := s.DB.ExecuteQuery(s.DB.Dialect.TablesQuery(), s.Catalog)
	if err != nil {
		return nil, storageError("list tables", "", "", err)
	}

	var tables []*models.TableDescriptor
	for _, row := range tablesResult {
		name := stringValue(row["table_name"])

		columns, err := s.discoverColumns(name)
		if err != nil {
			return nil, err
		}

		table := models.NewTableDescriptor(name, columns)
		if !table.HasColumn(s.MatchColumn) {
			s.Logger.WithField("table", name).Debugf("Skipping table without column %s", s.MatchColumn)
			continue
		}
		tables = append(tables, table)
	}

	s.Tables = tables
	s.Logger.Infof("Found %d of %d tables with column %s in %s",
		len(tables), len(tablesResult), s.MatchColumn, s.Catalog)
	return tables, nil
}

func (s *SchemaScanner) discoverColumns(table string) ([]models.ColumnValue, error) {
	columnsResult, err := s.DB.ExecuteQuery(s.DB.Dialect.ColumnsQuery(), s.Catalog, table)
	if err != nil {
		return nil, storageError("read columns of", table, "", err)
	}

	columns := make([]models.ColumnValue, 0, len(columnsResult))
	for _, row := range columnsResult {
		name := stringValue(row["column_name"])
		if name == "" {
			return nil, storageError("read columns of", table, "", errors.New("server returned an unnamed column"))
		}

		var size int64
		if row["column_size"] != nil {
			size, _ = strconv.ParseInt(fmt.Sprintf("%v", row["column_size"]), 10, 64)
		}

		sqlType := s.DB.Dialect.SQLType(stringValue(row["data_type"]))
		columns = append(columns, models.NewColumnValue(name, sqlType, size))
	}
	return columns, nil
}

// FetchRows selects the rows of table matching the criterion and appends them
// to the table. Calling it twice for the same table appends the rows twice.
func (s *SchemaScanner) FetchRows(table *models.TableDescriptor) (*models.TableDescriptor, error) {
	if len(table.Columns) == 0 {
		return nil, storageError("fetch rows from", table.Name, "", errors.New("table has no columns"))
	}
	if !table.HasColumn(s.MatchColumn) {
		return nil, storageError("fetch rows from", table.Name, s.MatchColumn, errors.New("match column not present"))
	}

	results, err := s.DB.ExecuteQuery(s.SelectQuery(table), s.MatchValue)
	if err != nil {
		return nil, storageError("fetch rows from", table.Name, s.MatchColumn, err)
	}

	for _, result := range results {
		row := models.NewRowRecord()
		for _, col := range table.Columns {
			row.Set(col.WithData(cellValue(col, result[col.Name])))
		}
		table.AppendRow(row)
	}

	s.Logger.WithField("table", table.Name).Debugf("Fetched %d row(s)", len(results))
	return table, nil
}

// SelectQuery builds the parameterized SELECT used to fetch matching rows
func (s *SchemaScanner) SelectQuery(table *models.TableDescriptor) string {
	d := s.DB.Dialect
	columns := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		columns[i] = d.QuoteIdentifier(col.Name)
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		strings.Join(columns, ", "),
		d.QualifiedTable(s.Catalog, table.Name),
		d.QuoteIdentifier(s.MatchColumn),
		d.Placeholder(1),
	)
}

// DiscoverReferences reads the foreign keys of every table and records the
// references between them. References to tables outside the given set are
// kept as outgoing references; TopologicalSort ignores them.
func (s *SchemaScanner) DiscoverReferences(tables []*models.TableDescriptor) error {
	present := make(map[string]*models.TableDescriptor, len(tables))
	for _, table := range tables {
		present[table.Name] = table
	}

	for _, table := range tables {
		keysResult, err := s.DB.ExecuteQuery(s.DB.Dialect.ImportedKeysQuery(), s.Catalog, table.Name)
		if err != nil {
			return storageError("read foreign keys of", table.Name, "", err)
		}

		var fks []models.ForeignKey
		for _, row := range keysResult {
			fk := models.ForeignKey{
				Table:            table.Name,
				Column:           stringValue(row["column_name"]),
				ReferencedTable:  stringValue(row["referenced_table_name"]),
				ReferencedColumn: stringValue(row["referenced_column_name"]),
				ConstraintName:   stringValue(row["constraint_name"]),
			}
			if fk.ReferencedTable == "" {
				continue
			}
			fks = append(fks, fk)

			table.AddOutgoingReference(fk.ReferencedTable)
			if parent, ok := present[fk.ReferencedTable]; ok {
				parent.AddIncomingReference(table.Name)
			} else {
				s.Logger.WithField("table", table.Name).
					Debugf("Foreign key %s references unmatched table %s", fk.ConstraintName, fk.ReferencedTable)
			}
		}
		s.ForeignKeys[table.Name] = fks
	}

	return nil
}

// BuildGraph copies the references between the given tables into a
// dependency graph. References to tables outside the set and self
// references are left out.
func BuildGraph(tables []*models.TableDescriptor, logger logrus.FieldLogger) *depgraph.Graph {
	g := depgraph.New()
	for _, table := range tables {
		g.AddNode(table.Name)
	}

	for _, table := range tables {
		for _, ref := range table.OutgoingReferences() {
			switch {
			case ref == table.Name:
				logger.WithField("table", table.Name).Debug("Ignoring self reference")
			case !g.HasNode(ref):
				logger.WithField("table", table.Name).Debugf("Ignoring reference to unmatched table %s", ref)
			default:
				g.AddEdge(table.Name, ref)
			}
		}
	}
	return g
}

// TopologicalSort orders tables so that every table comes after the tables it
// references. The descriptors are left untouched. Tables that cannot be
// ordered because they reference each other produce an error matching
// ErrGraphInconsistency.
func (s *SchemaScanner) TopologicalSort(tables []*models.TableDescriptor) ([]*models.TableDescriptor, error) {
	byName := make(map[string]*models.TableDescriptor, len(tables))
	for _, table := range tables {
		byName[table.Name] = table
	}

	order, err := BuildGraph(tables, s.Logger).Sort()
	if err != nil {
		s.Logger.Errorf("Cannot order tables: %v", err)
		return nil, err
	}

	sorted := make([]*models.TableDescriptor, len(order))
	for i, name := range order {
		sorted[i] = byName[name]
	}
	return sorted, nil
}

// Scan runs a whole session: discover tables, fetch their rows once, read
// references and order the tables. On an ordering failure the result still
// carries the fetched tables.
func (s *SchemaScanner) Scan() (*ScanResult, error) {
	tables, err := s.DiscoverTables()
	if err != nil {
		return nil, err
	}

	for _, table := range tables {
		if _, err := s.FetchRows(table); err != nil {
			return nil, err
		}
	}

	if err := s.DiscoverReferences(tables); err != nil {
		return nil, err
	}

	result := &ScanResult{
		Catalog:     s.Catalog,
		MatchColumn: s.MatchColumn,
		MatchValue:  s.MatchValue,
		MatchType:   s.MatchType,
		Tables:      tables,
		ForeignKeys: s.ForeignKeys,
	}

	ordered, err := s.TopologicalSort(tables)
	if err != nil {
		return result, err
	}
	result.InsertionOrder = ordered

	s.Logger.Infof("Scan complete: %d table(s), %d row(s)", len(tables), result.RowCount())
	return result, nil
}

// cellValue restores the bytes of binary cells, which ExecuteQuery returns as strings
func cellValue(col models.ColumnValue, v interface{}) interface{} {
	if s, ok := v.(string); ok && (col.SQLType.IsBinary() || col.SQLType == models.Bit) {
		return []byte(s)
	}
	return v
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
