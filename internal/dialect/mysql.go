package dialect

import (
	"encoding/hex"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/vitebski/mysql-context-extractor/pkg/models"
)

// MySQL is the dialect for MySQL and MariaDB servers. A catalog is a database.
type MySQL struct{}

func (MySQL) Name() string       { return "mysql" }
func (MySQL) DriverName() string { return "mysql" }
func (MySQL) DefaultPort() string {
	return "3306"
}

func (MySQL) DefaultCatalog(database string) string {
	return database
}

// DSN builds a go-sql-driver DSN. Times are parsed into time.Time.
func (MySQL) DSN(e Endpoint) string {
	cfg := mysql.NewConfig()
	cfg.User = e.User
	cfg.Passwd = e.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(e.Host, e.Port)
	cfg.DBName = e.Database
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

func (MySQL) Placeholder(int) string { return "?" }

func (MySQL) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (d MySQL) QualifiedTable(catalog, table string) string {
	if catalog == "" {
		return d.QuoteIdentifier(table)
	}
	return d.QuoteIdentifier(catalog) + "." + d.QuoteIdentifier(table)
}

var mysqlStringEscaper = strings.NewReplacer(`\`, `\\`, `'`, `''`, "\x00", `\0`)

// StringLiteral quotes s for the default sql_mode, where backslash escapes
func (MySQL) StringLiteral(s string) string {
	return "'" + mysqlStringEscaper.Replace(s) + "'"
}

func (MySQL) BinaryLiteral(b []byte) string {
	return "X'" + hex.EncodeToString(b) + "'"
}

func (MySQL) CatalogExistsQuery() string {
	return `SELECT schema_name AS schema_name
		FROM information_schema.schemata
		WHERE schema_name = ?`
}

func (MySQL) TablesQuery() string {
	return `SELECT table_name AS table_name
		FROM information_schema.tables
		WHERE table_schema = ?
		AND table_type = 'BASE TABLE'`
}

func (MySQL) ColumnsQuery() string {
	return `SELECT
			column_name AS column_name,
			data_type AS data_type,
			COALESCE(character_maximum_length, numeric_precision, datetime_precision, 0) AS column_size
		FROM information_schema.columns
		WHERE table_schema = ?
		AND table_name = ?
		ORDER BY ordinal_position`
}

func (MySQL) ImportedKeysQuery() string {
	return `SELECT
			table_name AS table_name,
			column_name AS column_name,
			referenced_table_name AS referenced_table_name,
			referenced_column_name AS referenced_column_name,
			constraint_name AS constraint_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
		AND table_name = ?
		AND referenced_table_name IS NOT NULL
		AND referenced_table_schema = table_schema
		ORDER BY constraint_name, ordinal_position`
}

// SQLType follows the type mapping MySQL's JDBC driver reports
func (MySQL) SQLType(dataType string) models.SQLType {
	switch strings.ToLower(dataType) {
	case "bit":
		return models.Bit
	case "bool", "boolean":
		return models.Boolean
	case "tinyint":
		return models.TinyInt
	case "smallint":
		return models.SmallInt
	case "mediumint", "int", "integer":
		return models.Integer
	case "bigint":
		return models.BigInt
	case "decimal", "numeric":
		return models.Decimal
	case "float":
		return models.Real
	case "double", "real":
		return models.Double
	case "char", "enum", "set":
		return models.Char
	case "varchar":
		return models.VarChar
	case "tinytext", "text", "mediumtext", "longtext", "json":
		return models.LongVarChar
	case "date", "year":
		return models.Date
	case "time":
		return models.Time
	case "datetime", "timestamp":
		return models.Timestamp
	case "binary":
		return models.Binary
	case "varbinary":
		return models.VarBinary
	case "tinyblob", "blob", "mediumblob", "longblob":
		return models.LongVarBinary
	}
	return models.Other
}
