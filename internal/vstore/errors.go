package vstore

import "fmt"

// UnavailableError reports that the store could not be reached or a
// connection could not be acquired.
type UnavailableError struct {
	// Op is the operation that failed ("connect", "insert", "search", ...).
	Op string
	// Err is the underlying driver error.
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("vstore: store unavailable during %s: %v — check DB_HOST/DB_PORT and that the database is running", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// WriteError reports a failed document insert: a malformed vector rejected
// before execution, or a statement failure inside the document's transaction.
// The transaction is always rolled back, so no partial row is ever committed.
type WriteError struct {
	// Reason describes the failure.
	Reason string
	// Err is the underlying error, if any.
	Err error
}

func (e *WriteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("vstore: insert failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("vstore: insert failed: %s", e.Reason)
}

func (e *WriteError) Unwrap() error { return e.Err }
