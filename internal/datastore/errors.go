package datastore

import (
	"github.com/mattn/go-sqlite3"

	"github.com/jaja2302/Palm-counting-AI/internal/errors"
)

// Sentinel errors for store operations.
var (
	// ErrModelNotFound indicates the requested model does not exist.
	ErrModelNotFound = errors.NewStd("model not found")

	// ErrSourceNotFound indicates a model import source file is missing.
	ErrSourceNotFound = errors.NewStd("source file not found")
)

// dbError creates a categorized database error with context pairs.
func dbError(err error, operation string, context ...any) error {
	builder := errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation)

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		builder = builder.
			Context("sqlite_code", int(sqliteErr.Code)).
			Context("sqlite_extended_code", int(sqliteErr.ExtendedCode))
		if IsBusy(sqliteErr) {
			// another process (a second instance or a DB browser) holds the lock
			builder = builder.Context("busy", true)
		}
	}

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}
	return builder.Build()
}

// IsBusy reports whether err is a SQLite busy or locked condition.
func IsBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
}
