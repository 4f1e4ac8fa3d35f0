package ingest

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned for files that are neither PDF, CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ParseError reports an unreadable or corrupt spreadsheet or PDF.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// PairingEmptyError reports an upload batch that produced no (spreadsheet, pdf) pair.
type PairingEmptyError struct {
	Files int
}

func (e *PairingEmptyError) Error() string {
	return fmt.Sprintf("no spreadsheet/pdf pairs found among %d uploaded files", e.Files)
}
