package connector

import (
	"database/sql"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-context-extractor/internal/config"
	"github.com/vitebski/mysql-context-extractor/internal/dialect"
)

// DatabaseConnector handles database connection and query execution
type DatabaseConnector struct {
	Config  config.ConnectionConfig
	Dialect dialect.Dialect
	DB      *sql.DB
	Logger  logrus.FieldLogger

	// owned is false when the pool was handed in by the caller
	owned bool
}

// NewDatabaseConnector creates a connector that opens its own pool on Connect
func NewDatabaseConnector(cfg config.ConnectionConfig, logger logrus.FieldLogger) (*DatabaseConnector, error) {
	d, err := cfg.Dialect()
	if err != nil {
		return nil, err
	}
	return &DatabaseConnector{
		Config:  cfg,
		Dialect: d,
		Logger:  logger,
		owned:   true,
	}, nil
}

// NewFromDB wraps a caller-owned pool. Disconnect leaves such a pool open.
func NewFromDB(db *sql.DB, d dialect.Dialect, logger logrus.FieldLogger) *DatabaseConnector {
	return &DatabaseConnector{
		Dialect: d,
		DB:      db,
		Logger:  logger,
	}
}

// Connect establishes a connection to the database
func (dc *DatabaseConnector) Connect() error {
	if dc.DB != nil {
		return nil
	}
	if dc.Config.Database == "" {
		return errors.New("database name must be provided either as an argument or as an environment variable")
	}

	db, err := sql.Open(dc.Dialect.DriverName(), dc.Dialect.DSN(dc.Config.Endpoint()))
	if err != nil {
		dc.Logger.Errorf("Error opening %s connection: %v", dc.Dialect.Name(), err)
		return errors.Wrapf(err, "opening %s connection", dc.Dialect.Name())
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		dc.Logger.Errorf("Error pinging %s database: %v", dc.Dialect.Name(), err)
		_ = db.Close()
		return errors.Wrapf(err, "pinging %s database %s", dc.Dialect.Name(), dc.Config.Database)
	}

	dc.DB = db
	dc.owned = true
	dc.Logger.Infof("Connected to %s database: %s", dc.Dialect.Name(), dc.Config.Database)
	return nil
}

// Disconnect closes the database connection if this connector opened it
func (dc *DatabaseConnector) Disconnect() {
	if dc.DB == nil || !dc.owned {
		return
	}
	if err := dc.DB.Close(); err != nil {
		dc.Logger.Errorf("Error closing database connection: %v", err)
	} else {
		dc.Logger.Infof("%s connection closed", dc.Dialect.Name())
	}
	dc.DB = nil
}

// ExecuteQuery executes a SQL query and returns the results keyed by column name
func (dc *DatabaseConnector) ExecuteQuery(query string, params ...interface{}) ([]map[string]interface{}, error) {
	if dc.DB == nil {
		if err := dc.Connect(); err != nil {
			return nil, err
		}
	}

	rows, err := dc.DB.Query(query, params...)
	if err != nil {
		dc.Logger.Debugf("Error executing query: %v", err)
		return nil, err
	}
	defer dc.closeRows(rows)

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]interface{}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range columns {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			// Text comes back as []byte from most drivers
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}

		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// ExecuteStatement executes a SQL statement and returns the number of affected rows
func (dc *DatabaseConnector) ExecuteStatement(query string, params ...interface{}) (int64, error) {
	if dc.DB == nil {
		if err := dc.Connect(); err != nil {
			return 0, err
		}
	}

	result, err := dc.DB.Exec(query, params...)
	if err != nil {
		dc.Logger.Debugf("Error executing statement: %v", err)
		return 0, err
	}

	return result.RowsAffected()
}

// ExecuteMany executes a SQL statement with multiple parameter sets in one transaction
func (dc *DatabaseConnector) ExecuteMany(query string, paramsList [][]interface{}) (int64, error) {
	if dc.DB == nil {
		if err := dc.Connect(); err != nil {
			return 0, err
		}
	}

	tx, err := dc.DB.Begin()
	if err != nil {
		return 0, errors.Wrap(err, "starting transaction")
	}

	stmt, err := tx.Prepare(query)
	if err != nil {
		dc.rollback(tx)
		return 0, errors.Wrap(err, "preparing statement")
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			dc.Logger.Warningf("Error closing statement: %v", err)
		}
	}()

	var totalAffected int64

	for _, params := range paramsList {
		result, err := stmt.Exec(params...)
		if err != nil {
			dc.rollback(tx)
			return 0, errors.Wrap(err, "executing batch statement")
		}

		affected, err := result.RowsAffected()
		if err != nil {
			dc.rollback(tx)
			return 0, errors.Wrap(err, "getting affected rows")
		}

		totalAffected += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "committing transaction")
	}

	return totalAffected, nil
}

func (dc *DatabaseConnector) rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		dc.Logger.Warningf("Error rolling back transaction: %v", err)
	}
}

func (dc *DatabaseConnector) closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		dc.Logger.Warningf("Error closing result set: %v", err)
	}
}
