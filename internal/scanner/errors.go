package scanner

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/vitebski/mysql-context-extractor/internal/depgraph"
)

// ErrInvalidCriterion is returned for an unusable match criterion
var ErrInvalidCriterion = errors.New("invalid match criterion")

// ErrGraphInconsistency is returned when matched tables cannot be ordered
var ErrGraphInconsistency = depgraph.ErrGraphInconsistency

// StorageError reports a failure to read metadata or execute SQL
type StorageError struct {
	Op     string
	Table  string
	Column string
	Err    error
}

func (e *StorageError) Error() string {
	msg := e.Op
	if e.Table != "" {
		msg += fmt.Sprintf(" table %s", e.Table)
	}
	if e.Column != "" {
		msg += fmt.Sprintf(" column %s", e.Column)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageError(op, table, column string, err error) error {
	return &StorageError{Op: op, Table: table, Column: column, Err: err}
}
