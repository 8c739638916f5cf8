package db

import "fmt"

// WriteError wraps a failed insert, update or delete.
type WriteError struct {
	Op    string
	Table string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("store write %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ReadError wraps a failed select.
type ReadError struct {
	Table string
	Err   error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("store read %s: %v", e.Table, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Write returns nil for a nil err, otherwise a *WriteError.
func Write(op, table string, err error) error {
	if err == nil {
		return nil
	}
	return &WriteError{Op: op, Table: table, Err: err}
}

// Read returns nil for a nil err, otherwise a *ReadError.
func Read(table string, err error) error {
	if err == nil {
		return nil
	}
	return &ReadError{Table: table, Err: err}
}
