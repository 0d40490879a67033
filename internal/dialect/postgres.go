package dialect

import (
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/lib/pq"
	"github.com/vitebski/mysql-context-extractor/pkg/models"
)

// Postgres is the dialect for PostgreSQL. A catalog is a schema inside the connected database.
type Postgres struct{}

func (Postgres) Name() string       { return "postgres" }
func (Postgres) DriverName() string { return "postgres" }
func (Postgres) DefaultPort() string {
	return "5432"
}

func (Postgres) DefaultCatalog(string) string {
	return "public"
}

func (Postgres) DSN(e Endpoint) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(e.User, e.Password),
		Host:   net.JoinHostPort(e.Host, e.Port),
		Path:   "/" + e.Database,
	}
	sslMode := e.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u.RawQuery = url.Values{"sslmode": {sslMode}}.Encode()
	return u.String()
}

func (Postgres) Placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func (Postgres) QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

func (d Postgres) QualifiedTable(catalog, table string) string {
	if catalog == "" {
		return d.QuoteIdentifier(table)
	}
	return d.QuoteIdentifier(catalog) + "." + d.QuoteIdentifier(table)
}

// StringLiteral quotes s assuming standard_conforming_strings is on
func (Postgres) StringLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (Postgres) BinaryLiteral(b []byte) string {
	return `'\x` + hex.EncodeToString(b) + `'::bytea`
}

func (Postgres) CatalogExistsQuery() string {
	return `SELECT schema_name AS schema_name
		FROM information_schema.schemata
		WHERE schema_name = $1`
}

func (Postgres) TablesQuery() string {
	return `SELECT table_name AS table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		AND table_type = 'BASE TABLE'`
}

func (Postgres) ColumnsQuery() string {
	return `SELECT
			column_name AS column_name,
			data_type AS data_type,
			COALESCE(character_maximum_length, numeric_precision, datetime_precision, 0) AS column_size
		FROM information_schema.columns
		WHERE table_schema = $1
		AND table_name = $2
		ORDER BY ordinal_position`
}

func (Postgres) ImportedKeysQuery() string {
	return `SELECT
			kcu.table_name AS table_name,
			kcu.column_name AS column_name,
			ukcu.table_name AS referenced_table_name,
			ukcu.column_name AS referenced_column_name,
			rc.constraint_name AS constraint_name
		FROM information_schema.referential_constraints rc
		JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_schema = rc.constraint_schema
			AND kcu.constraint_name = rc.constraint_name
		JOIN information_schema.key_column_usage ukcu
			ON ukcu.constraint_schema = rc.unique_constraint_schema
			AND ukcu.constraint_name = rc.unique_constraint_name
			AND ukcu.ordinal_position = kcu.position_in_unique_constraint
		WHERE kcu.table_schema = $1
		AND kcu.table_name = $2
		AND ukcu.table_schema = kcu.table_schema
		ORDER BY rc.constraint_name, kcu.ordinal_position`
}

// SQLType follows the type mapping the PostgreSQL JDBC driver reports
func (Postgres) SQLType(dataType string) models.SQLType {
	dt := strings.ToLower(dataType)
	switch {
	case dt == "smallint":
		return models.SmallInt
	case dt == "integer":
		return models.Integer
	case dt == "bigint":
		return models.BigInt
	case dt == "numeric" || dt == "decimal":
		return models.Numeric
	case dt == "real":
		return models.Real
	case dt == "double precision":
		return models.Double
	case dt == "boolean":
		return models.Bit
	case dt == "character":
		return models.Char
	case dt == "character varying" || dt == "text":
		return models.VarChar
	case dt == "bytea":
		return models.Binary
	case dt == "date":
		return models.Date
	case strings.HasPrefix(dt, "time "), dt == "time":
		return models.Time
	case strings.HasPrefix(dt, "timestamp"):
		return models.Timestamp
	}
	return models.Other
}
