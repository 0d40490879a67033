// Package exporter writes the rows found by a scan as a replayable SQL script
// or as a JSON document.
package exporter

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-context-extractor/internal/dialect"
	"github.com/vitebski/mysql-context-extractor/internal/scanner"
	"github.com/vitebski/mysql-context-extractor/pkg/models"
)

// ErrNotOrdered is returned when a result without an insertion order is exported as SQL
var ErrNotOrdered = errors.New("scan result has no dependency order")

// Format is an output format of the exporter
type Format string

const (
	FormatSQL  Format = "sql"
	FormatJSON Format = "json"
)

// ParseFormat returns the format named by s
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatSQL:
		return FormatSQL, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", errors.Newf("unknown export format %q (expected sql or json)", s)
}

// Exporter renders scan results for one dialect
type Exporter struct {
	Dialect dialect.Dialect
	Logger  logrus.FieldLogger

	// IncludeDelete prefixes the script with DELETE statements in deletion order
	IncludeDelete bool
}

// NewExporter creates a new exporter
func NewExporter(d dialect.Dialect, logger logrus.FieldLogger) *Exporter {
	return &Exporter{
		Dialect: d,
		Logger:  logger,
	}
}

// Write renders result in the given format
func (e *Exporter) Write(w io.Writer, result *scanner.ScanResult, format Format) error {
	switch format {
	case FormatSQL:
		return e.WriteSQL(w, result)
	case FormatJSON:
		return e.WriteJSON(w, result)
	}
	return errors.Newf("unknown export format %q", format)
}

// WriteSQL writes one INSERT per fetched row, parents first. Table names are
// not qualified so the script can be replayed into any catalog.
func (e *Exporter) WriteSQL(w io.Writer, result *scanner.ScanResult) error {
	if result.InsertionOrder == nil && len(result.Tables) > 0 {
		return ErrNotOrdered
	}

	matchLiteral := e.Literal(result.MatchValue, result.MatchType)

	bw := bufio.NewWriter(w)
	header := fmt.Sprintf("Rows of %s where %s = %s", result.Catalog, result.MatchColumn, matchLiteral)
	fmt.Fprintf(bw, "-- %s\n", commentEscaper.Replace(header))
	if e.IncludeDelete {
		for _, table := range result.DeletionOrder() {
			fmt.Fprintf(bw, "DELETE FROM %s WHERE %s = %s;\n",
				e.Dialect.QuoteIdentifier(table.Name),
				e.Dialect.QuoteIdentifier(result.MatchColumn),
				matchLiteral,
			)
		}
	}

	statements := 0
	for _, table := range result.InsertionOrder {
		if len(table.Rows) == 0 {
			continue
		}
		fmt.Fprintf(bw, "\n-- %s: %d row(s)\n", table.Name, len(table.Rows))

		prefix := e.insertPrefix(table)
		for _, row := range table.Rows {
			values := make([]string, len(table.Columns))
			for i, col := range table.Columns {
				values[i] = e.Literal(row.Value(col.Name), col.SQLType)
			}
			fmt.Fprintf(bw, "%s (%s);\n", prefix, strings.Join(values, ", "))
			statements++
		}
	}

	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, "writing SQL export")
	}
	e.Logger.Infof("Exported %d INSERT statement(s)", statements)
	return nil
}

// commentEscaper keeps a value on the single line of an SQL comment
var commentEscaper = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func (e *Exporter) insertPrefix(table *models.TableDescriptor) string {
	columns := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		columns[i] = e.Dialect.QuoteIdentifier(col.Name)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES",
		e.Dialect.QuoteIdentifier(table.Name), strings.Join(columns, ", "))
}

// Literal renders v as an SQL literal for a column of the given type
func (e *Exporter) Literal(v interface{}, sqlType models.SQLType) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case time.Time:
		return e.Dialect.StringLiteral(formatTime(val, sqlType))
	case []byte:
		if sqlType.IsBinary() || sqlType == models.Bit {
			return e.Dialect.BinaryLiteral(val)
		}
		return e.Dialect.StringLiteral(string(val))
	case string:
		switch {
		case sqlType.IsBinary(), sqlType == models.Bit && !isNumber(val):
			return e.Dialect.BinaryLiteral([]byte(val))
		case sqlType.IsNumeric() && isNumber(val):
			return val
		}
		return e.Dialect.StringLiteral(val)
	}
	return e.Dialect.StringLiteral(fmt.Sprintf("%v", v))
}

func formatTime(t time.Time, sqlType models.SQLType) string {
	switch sqlType {
	case models.Date:
		return t.Format("2006-01-02")
	case models.Time:
		return t.Format("15:04:05.999999")
	}
	return t.Format("2006-01-02 15:04:05.999999")
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// jsonValue keeps binary cells as []byte so they are written as base64
func jsonValue(cell models.ColumnValue) interface{} {
	if s, ok := cell.Data.(string); ok && (cell.SQLType.IsBinary() || cell.SQLType == models.Bit) {
		return []byte(s)
	}
	return cell.Data
}

type jsonDocument struct {
	Catalog        string      `json:"catalog"`
	Match          jsonMatch   `json:"match"`
	InsertionOrder []string    `json:"insertion_order,omitempty"`
	Tables         []jsonTable `json:"tables"`
}

type jsonMatch struct {
	Column string      `json:"column"`
	Value  interface{} `json:"value"`
	Type   string      `json:"type"`
}

type jsonTable struct {
	Name         string                   `json:"name"`
	Category     string                   `json:"category"`
	Columns      []jsonColumn             `json:"columns"`
	References   []string                 `json:"references,omitempty"`
	ReferencedBy []string                 `json:"referenced_by,omitempty"`
	ForeignKeys  []models.ForeignKey      `json:"foreign_keys,omitempty"`
	Rows         []map[string]interface{} `json:"rows"`
}

type jsonColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size,omitempty"`
}

// WriteJSON writes the result as one indented JSON document. Tables follow the
// insertion order when there is one, discovery order otherwise.
func (e *Exporter) WriteJSON(w io.Writer, result *scanner.ScanResult) error {
	doc := jsonDocument{
		Catalog: result.Catalog,
		Match: jsonMatch{
			Column: result.MatchColumn,
			Value:  result.MatchValue,
			Type:   result.MatchType.String(),
		},
		Tables: []jsonTable{},
	}

	tables := result.Tables
	if result.InsertionOrder != nil {
		tables = result.InsertionOrder
		for _, table := range tables {
			doc.InsertionOrder = append(doc.InsertionOrder, table.Name)
		}
	}

	for _, table := range tables {
		jt := jsonTable{
			Name:         table.Name,
			Category:     table.Category().String(),
			References:   table.OutgoingReferences(),
			ReferencedBy: table.IncomingReferences(),
			ForeignKeys:  result.ForeignKeys[table.Name],
			Rows:         make([]map[string]interface{}, 0, len(table.Rows)),
		}
		for _, col := range table.Columns {
			jt.Columns = append(jt.Columns, jsonColumn{Name: col.Name, Type: col.SQLType.String(), Size: col.Size})
		}
		for _, row := range table.Rows {
			values := make(map[string]interface{}, row.Len())
			for _, name := range row.ColumnNames() {
				values[name] = jsonValue(row.Values[name])
			}
			jt.Rows = append(jt.Rows, values)
		}
		doc.Tables = append(doc.Tables, jt)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "writing JSON export")
	}
	e.Logger.Infof("Exported %d table(s) as JSON", len(doc.Tables))
	return nil
}
