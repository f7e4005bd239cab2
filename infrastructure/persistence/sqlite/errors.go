package sqlite

import (
	"errors"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	pkgerrors "cosmos-backend/pkg/errors"
)

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func isBusyError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	// Extended codes such as SQLITE_BUSY_SNAPSHOT keep the primary code in the low byte.
	code := sqliteErr.Code() & 0xff
	return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
}

// storageError classifies a driver error. Lock contention is retryable.
func storageError(operation string, err error) error {
	appErr := pkgerrors.NewStorageError(operation, err)
	if isBusyError(err) {
		return appErr.AsRetryable()
	}
	return appErr
}
