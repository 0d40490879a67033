package copier

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-context-extractor/internal/connector"
	"github.com/vitebski/mysql-context-extractor/internal/scanner"
	"github.com/vitebski/mysql-context-extractor/pkg/models"
)

// DefaultBatchSize is the number of rows inserted per transaction
const DefaultBatchSize = 100

// ErrIncomplete is returned when at least one table could not be copied
var ErrIncomplete = errors.New("copy incomplete")

// Copier writes scanned rows into a database, or removes them from one
type Copier struct {
	DB *connector.DatabaseConnector
	// Catalog qualifies table names when set
	Catalog      string
	BatchSize    int
	Copied       map[string]int64
	Deleted      map[string]int64
	FailedTables map[string]bool
	Logger       logrus.FieldLogger
}

// NewCopier creates a new copier
func NewCopier(db *connector.DatabaseConnector, catalog string, batchSize int, logger logrus.FieldLogger) *Copier {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Copier{
		DB:           db,
		Catalog:      catalog,
		BatchSize:    batchSize,
		Copied:       make(map[string]int64),
		Deleted:      make(map[string]int64),
		FailedTables: make(map[string]bool),
		Logger:       logger,
	}
}

// Copy inserts every fetched row in insertion order. A table whose parent
// failed is skipped and counted as failed too.
func (c *Copier) Copy(result *scanner.ScanResult) error {
	if result.InsertionOrder == nil && len(result.Tables) > 0 {
		return errors.New("cannot copy tables without a dependency order")
	}

	for _, table := range result.InsertionOrder {
		if parent := c.failedParent(table); parent != "" {
			c.Logger.WithField("table", table.Name).Warningf("Skipping table, parent %s was not copied", parent)
			c.FailedTables[table.Name] = true
			continue
		}

		if err := c.copyTable(table); err != nil {
			c.Logger.WithField("table", table.Name).Errorf("Error copying rows: %v", err)
			c.FailedTables[table.Name] = true
		}
	}

	if len(c.FailedTables) > 0 {
		return errors.Wrapf(ErrIncomplete, "%d table(s) failed: %s",
			len(c.FailedTables), strings.Join(c.Failed(), ", "))
	}
	return nil
}

func (c *Copier) failedParent(table *models.TableDescriptor) string {
	for _, failed := range c.Failed() {
		if failed != table.Name && table.HasOutgoingReference(failed) {
			return failed
		}
	}
	return ""
}

func (c *Copier) copyTable(table *models.TableDescriptor) error {
	if len(table.Rows) == 0 {
		c.Logger.WithField("table", table.Name).Debug("No rows to copy")
		return nil
	}
	if len(table.Columns) == 0 {
		return errors.Newf("no columns found for table %s", table.Name)
	}

	insertSQL := c.InsertStatement(table)

	var paramsList [][]interface{}
	for i, row := range table.Rows {
		params := make([]interface{}, len(table.Columns))
		for j, col := range table.Columns {
			params[j] = row.Value(col.Name)
		}
		paramsList = append(paramsList, params)

		if len(paramsList) >= c.BatchSize || i == len(table.Rows)-1 {
			affected, err := c.DB.ExecuteMany(insertSQL, paramsList)
			if err != nil {
				return err
			}
			c.Copied[table.Name] += affected
			paramsList = nil
		}
	}

	c.Logger.WithField("table", table.Name).Infof("Copied %d row(s)", c.Copied[table.Name])
	return nil
}

// InsertStatement builds the parameterized INSERT for table
func (c *Copier) InsertStatement(table *models.TableDescriptor) string {
	d := c.DB.Dialect
	columns := make([]string, len(table.Columns))
	placeholders := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		columns[i] = d.QuoteIdentifier(col.Name)
		placeholders[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QualifiedTable(c.Catalog, table.Name),
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)
}

// Purge deletes the rows matching the scan criterion, children first, and
// stops at the first failure.
func (c *Copier) Purge(result *scanner.ScanResult) error {
	if result.InsertionOrder == nil && len(result.Tables) > 0 {
		return errors.New("cannot purge tables without a dependency order")
	}

	d := c.DB.Dialect
	for _, table := range result.DeletionOrder() {
		deleteSQL := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
			d.QualifiedTable(c.Catalog, table.Name),
			d.QuoteIdentifier(result.MatchColumn),
			d.Placeholder(1),
		)

		affected, err := c.DB.ExecuteStatement(deleteSQL, result.MatchValue)
		if err != nil {
			c.FailedTables[table.Name] = true
			return errors.Wrapf(err, "deleting from %s", table.Name)
		}
		c.Deleted[table.Name] = affected
		c.Logger.WithField("table", table.Name).Infof("Deleted %d row(s)", affected)
	}
	return nil
}

// Failed returns the names of the tables that could not be processed
func (c *Copier) Failed() []string {
	names := make([]string, 0, len(c.FailedTables))
	for name := range c.FailedTables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
