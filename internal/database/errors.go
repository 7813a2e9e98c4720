package database

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Error taxonomy of the data layer. Returned errors wrap one of these, so
// callers check them with errors.Is.
var (
	// ErrValidation reports malformed or out-of-range input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound reports a missing row or a dangling foreign key reference.
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a uniqueness violation that was not resolved as an upsert.
	ErrConflict = errors.New("conflict")
)

func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFoundErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// classifyError maps SQLite constraint violations onto the error taxonomy.
// Other errors are returned unchanged.
func classifyError(err error) error {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case sqlite3.SQLITE_CONSTRAINT_CHECK, sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	// Without extended result codes only the primary code is set.
	if sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		msg := err.Error()
		switch {
		case strings.Contains(msg, "FOREIGN KEY"):
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case strings.Contains(msg, "UNIQUE"):
			return fmt.Errorf("%w: %v", ErrConflict, err)
		default:
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	return err
}
