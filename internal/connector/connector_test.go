package connector

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/vitebski/mysql-context-extractor/internal/config"
	"github.com/vitebski/mysql-context-extractor/internal/dialect"
)

func newMockConnector(t *testing.T) (*DatabaseConnector, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger, _ := test.NewNullLogger()
	return NewFromDB(db, dialect.MySQL{}, logger), mock
}

func TestNewDatabaseConnector(t *testing.T) {
	logger, _ := test.NewNullLogger()

	dc, err := NewDatabaseConnector(config.ConnectionConfig{Driver: "postgres", Database: "app"}, logger)
	require.NoError(t, err)
	require.Equal(t, "postgres", dc.Dialect.Name())
	require.Nil(t, dc.DB)

	_, err = NewDatabaseConnector(config.ConnectionConfig{Driver: "oracle"}, logger)
	require.Error(t, err)
}

func TestConnectRequiresDatabase(t *testing.T) {
	logger, _ := test.NewNullLogger()
	dc, err := NewDatabaseConnector(config.ConnectionConfig{Driver: "mysql"}, logger)
	require.NoError(t, err)
	require.Error(t, dc.Connect())
}

func TestExecuteQuery(t *testing.T) {
	dc, mock := newMockConnector(t)

	mock.ExpectQuery("SELECT id, name FROM users WHERE id = ?").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "note"}).
			AddRow(int64(1), []byte("alice"), nil))

	rows, err := dc.ExecuteQuery("SELECT id, name FROM users WHERE id = ?", int64(1))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, int64(1), rows[0]["id"])
	require.Equal(t, "alice", rows[0]["name"])
	require.Nil(t, rows[0]["note"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteQueryError(t *testing.T) {
	dc, mock := newMockConnector(t)

	mock.ExpectQuery("SELECT 1").WillReturnError(errors.New("connection lost"))

	_, err := dc.ExecuteQuery("SELECT 1")
	require.EqualError(t, err, "connection lost")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteMany(t *testing.T) {
	dc, mock := newMockConnector(t)

	query := "INSERT INTO users (id, name) VALUES (?, ?)"
	mock.ExpectBegin()
	prep := mock.ExpectPrepare(query)
	prep.ExpectExec().WithArgs(int64(1), "a").WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs(int64(2), "b").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	affected, err := dc.ExecuteMany(query, [][]interface{}{{int64(1), "a"}, {int64(2), "b"}})
	require.NoError(t, err)
	require.Equal(t, int64(2), affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteManyRollsBack(t *testing.T) {
	dc, mock := newMockConnector(t)

	query := "INSERT INTO users (id) VALUES (?)"
	mock.ExpectBegin()
	prep := mock.ExpectPrepare(query)
	prep.ExpectExec().WithArgs(int64(1)).WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	_, err := dc.ExecuteMany(query, [][]interface{}{{int64(1)}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate key")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteStatement(t *testing.T) {
	dc, mock := newMockConnector(t)

	mock.ExpectExec("DELETE FROM users WHERE cid = ?").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	affected, err := dc.ExecuteStatement("DELETE FROM users WHERE cid = ?", int64(7))
	require.NoError(t, err)
	require.Equal(t, int64(3), affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDisconnectLeavesCallerPoolOpen(t *testing.T) {
	dc, mock := newMockConnector(t)
	dc.Disconnect()
	require.NotNil(t, dc.DB)
	require.NoError(t, mock.ExpectationsWereMet())
}
