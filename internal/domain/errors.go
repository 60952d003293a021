package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is() to check these.
var (
	ErrNotFound           = errors.New("not found")
	ErrEmptyCollection    = errors.New("nothing to export")
	ErrIndexOutOfRange    = errors.New("index out of range")
	ErrInvalidItem        = errors.New("invalid item")
	ErrCredentialRequired = errors.New("api credential required")
	ErrUnsupportedImage   = errors.New("unsupported image format")
)

// IOError reports a failed blob read or write.
type IOError struct {
	Op  string
	Ref string
	Err error
}

func (e *IOError) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("blob %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("blob %s %s: %v", e.Op, e.Ref, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// PersistenceError reports a failed snapshot encode, decode or write.
type PersistenceError struct {
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ExportError reports a document that could not be produced or written.
type ExportError struct {
	Op  string
	Err error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Op, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }
