// Package errors defines the engine's closed error taxonomy. Every error the
// engine returns to a caller is one of the typed values below; subsystems
// never return a bare fmt.Errorf across a public boundary.
package errors

import (
	"fmt"

	cockroacherrors "github.com/cockroachdb/errors"
)

// IOError wraps an I/O failure from the underlying storage layer, propagated
// verbatim from the filesystem or pebble.
type IOError struct{ Cause error }

func (e *IOError) Error() string { return fmt.Sprintf("io error: %v", e.Cause) }
func (e *IOError) Unwrap() error { return e.Cause }

// WrapIO stack-traces the cause via cockroachdb/errors before boxing it as
// the taxonomy's IOError, so operational logs carry a stack even though
// callers only ever type-switch on *IOError.
func WrapIO(cause error) *IOError {
	return &IOError{Cause: cockroacherrors.Wrap(cause, "io")}
}

// SerializationError covers framing, metadata, or WAL decode failures.
type SerializationError struct{ Message string }

func (e *SerializationError) Error() string { return "serialization error: " + e.Message }

// SchemaError covers unknown column, unresolved identifier, or unsupported
// type during DDL/DML binding.
type SchemaError struct{ Message string }

func (e *SchemaError) Error() string { return "schema error: " + e.Message }

type TableAlreadyExistsError struct{ Name string }

func (e *TableAlreadyExistsError) Error() string {
	return fmt.Sprintf("table %q already exists", e.Name)
}

// TableNotFoundError is distinguished from SchemaError so DDL (DROP TABLE IF
// EXISTS) can special-case it.
type TableNotFoundError struct{ Name string }

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("table %q not found", e.Name)
}

// TwoPrimarykeysError guards CREATE TABLE: a table has at most one primary
// key column.
type TwoPrimarykeysError struct{ Total int }

func (e *TwoPrimarykeysError) Error() string {
	return fmt.Sprintf("table defines %d primary keys; only one is allowed", e.Total)
}

type PrimarykeyNotDefinedError struct{ TableName string }

func (e *PrimarykeyNotDefinedError) Error() string {
	return fmt.Sprintf("primary key not defined for table %q", e.TableName)
}

// DuplicateKeyError is raised by a unique-index insert that collides with an
// existing visible row.
type DuplicateKeyError struct{ Key string }

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key violation: key %q already exists in unique index", e.Key)
}

type IndexNotFoundError struct{ Name string }

func (e *IndexNotFoundError) Error() string {
	return fmt.Sprintf("index %q not found", e.Name)
}

type IndexAlreadyExistsError struct{ Name string }

func (e *IndexAlreadyExistsError) Error() string {
	return fmt.Sprintf("index %q already exists", e.Name)
}

// KeyNotFoundError is returned by single-row retrievals when no row
// qualifies.
type KeyNotFoundError struct{ Key string }

func (e *KeyNotFoundError) Error() string { return fmt.Sprintf("key %q not found", e.Key) }

// TypeMismatchError is raised by expression evaluation and index binding
// over incompatible column types.
type TypeMismatchError struct{ Expected, Actual string }

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: expected %s, got %s", e.Expected, e.Actual)
}

// InvalidOperationError covers misuse: mixing parameter styles, reusing a
// finalized transaction, writing through a read-only snapshot.
type InvalidOperationError struct {
	Message string
	Context string
}

func (e *InvalidOperationError) Error() string {
	if e.Context == "" {
		return "invalid operation: " + e.Message
	}
	return fmt.Sprintf("invalid operation: %s (%s)", e.Message, e.Context)
}

// SqlParseError carries the offending SQL text alongside the parser's
// complaint.
type SqlParseError struct {
	Message string
	Sql     string
}

func (e *SqlParseError) Error() string {
	return fmt.Sprintf("sql parse error: %s: %q", e.Message, e.Sql)
}

// SqlNotSupportedError names a statement or expression shape beyond the
// supported subset.
type SqlNotSupportedError struct {
	Feature string
	Hint    string
}

func (e *SqlNotSupportedError) Error() string {
	if e.Hint == "" {
		return fmt.Sprintf("sql feature not supported: %s", e.Feature)
	}
	return fmt.Sprintf("sql feature not supported: %s (%s)", e.Feature, e.Hint)
}

// SqlExecutionError covers executor-time type/value errors (division by
// zero, aggregate over non-numeric column, ...).
type SqlExecutionError struct {
	Message string
	Context string
}

func (e *SqlExecutionError) Error() string {
	if e.Context == "" {
		return "sql execution error: " + e.Message
	}
	return fmt.Sprintf("sql execution error: %s (%s)", e.Message, e.Context)
}

// NotImplementedError names an explicit gap rather than failing silently.
type NotImplementedError struct{ Feature string }

func (e *NotImplementedError) Error() string { return "not implemented: " + e.Feature }

// StorageError is a subsystem-scoped catch-all for the persistent (Tier 3)
// backend.
type StorageError struct{ Cause error }

func (e *StorageError) Error() string { return fmt.Sprintf("storage error: %v", e.Cause) }
func (e *StorageError) Unwrap() error { return e.Cause }

// WrapStorage stack-traces cause and boxes it for callers that only
// type-switch on *StorageError.
func WrapStorage(cause error) *StorageError {
	return &StorageError{Cause: cockroacherrors.Wrap(cause, "storage")}
}

// WalError is a subsystem-scoped catch-all for the write-ahead log.
type WalError struct{ Cause error }

func (e *WalError) Error() string { return fmt.Sprintf("wal error: %v", e.Cause) }
func (e *WalError) Unwrap() error { return e.Cause }

func WrapWal(cause error) *WalError {
	return &WalError{Cause: cockroacherrors.Wrap(cause, "wal")}
}

// EncryptionError and GpuError name the out-of-scope encryption and GPU
// collaborators (see Non-goals) so a caller's type-switch over engine errors
// stays exhaustive even though the core never constructs either today.
type EncryptionError struct{ Cause error }

func (e *EncryptionError) Error() string { return fmt.Sprintf("encryption error: %v", e.Cause) }

type GpuError struct{ Cause error }

func (e *GpuError) Error() string { return fmt.Sprintf("gpu error: %v", e.Cause) }
