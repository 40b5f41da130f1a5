package table

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Fatal errors are reported through the typed errors below and
// match these sentinels with errors.Is. Missing values are data, not errors.
var (
	ErrFileNotFound      = errors.New("file not found")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrSchema            = errors.New("schema error")
	ErrJoinKey           = errors.New("join key error")
)

// SchemaError reports an expected column that is absent or a column name
// collision. Table and Column always name the offending resource.
type SchemaError struct {
	Table  string
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: table %q column %q: %s", e.Table, e.Column, e.Reason)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// JoinKeyError reports a declared join key that cannot be used. Side is
// "fact" or "dimension".
type JoinKeyError struct {
	Table  string
	Column string
	Side   string
	Reason string
}

func (e *JoinKeyError) Error() string {
	return fmt.Sprintf("join: %s table %q key %q: %s", e.Side, e.Table, e.Column, e.Reason)
}

func (e *JoinKeyError) Is(target error) bool { return target == ErrJoinKey }

// FileError wraps a loader failure with the attempted path. Available lists
// the files found next to Path when the path does not exist.
type FileError struct {
	Path      string
	Available []string
	Err       error
}

func (e *FileError) Error() string {
	msg := fmt.Sprintf("file %s: %v", e.Path, e.Err)
	if len(e.Available) > 0 {
		msg += fmt.Sprintf(" (available: %s)", strings.Join(e.Available, ", "))
	}
	return msg
}

func (e *FileError) Unwrap() error { return e.Err }
