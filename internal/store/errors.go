package store

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Constraint kinds carried by a *DatabaseError. Match them with errors.Is.
var (
	ErrDuplicate  = errors.New("duplicate key")
	ErrForeignKey = errors.New("referenced entity does not exist")
	ErrCycle      = errors.New("would create circular reference")
)

// DatabaseError is a constraint violation or driver failure on one key.
type DatabaseError struct {
	Op   string
	Key  string
	Kind error
	Err  error
}

func (e *DatabaseError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Key != "" {
		fmt.Fprintf(&b, " %q", e.Key)
	}
	switch {
	case e.Kind != nil && e.Err != nil:
		fmt.Fprintf(&b, ": %v (%v)", e.Kind, e.Err)
	case e.Kind != nil:
		fmt.Fprintf(&b, ": %v", e.Kind)
	case e.Err != nil:
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *DatabaseError) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// IsConstraint reports whether err is a duplicate, missing reference or cycle violation.
func IsConstraint(err error) bool {
	return errors.Is(err, ErrDuplicate) || errors.Is(err, ErrForeignKey) || errors.Is(err, ErrCycle)
}

// dbError wraps a driver error, classifying SQLite constraint codes.
func dbError(op, key string, err error) error {
	return &DatabaseError{Op: op, Key: key, Kind: classify(err), Err: err}
}

func classify(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return ErrDuplicate
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return ErrForeignKey
		}
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return ErrDuplicate
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return ErrForeignKey
	}
	return nil
}
