// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package sheetmap

import (
	"io"

	"go4.org/mem"
)

// A CellPos addresses a single cell by sheet name and zero-based row
// and column indices.
type CellPos struct {
	Sheet string
	Row   int
	Col   int
}

// An ImportSheet accepts cell values during document import. Row and
// column indices are zero-based. Implementations decide how to store
// values; out-of-range writes may be ignored.
type ImportSheet interface {
	// SetAuto parses value as a bare string and stores it as the most
	// appropriate scalar type for the cell.
	SetAuto(row, col int, value mem.RO)

	// SetString stores the shared string with the given identifier.
	SetString(row, col int, sid int)

	// SetValue stores a numeric value.
	SetValue(row, col int, value float64)

	// SetBool stores a Boolean value.
	SetBool(row, col int, value bool)
}

// SharedStrings interns string values shared across sheets during
// import. Add returns the identifier for the given bytes, which is
// stable for the life of the pool.
type SharedStrings interface {
	Add(value mem.RO) int
}

// An ImportFactory supplies the sheets of the document being imported
// into. It is the write half of the sink the mapping engine drives.
type ImportFactory interface {
	// GetSheet returns the sheet with the given name. The second result
	// is false if no such sheet exists; the mapping engine silently
	// skips links into missing sheets.
	GetSheet(name string) (ImportSheet, bool)

	// AppendSheet creates a new sheet at the given index.
	AppendSheet(index int, name string) (ImportSheet, error)

	// SharedStrings returns the shared string pool, if the document
	// model has one.
	SharedStrings() (SharedStrings, bool)

	// Finalize is called once after import completes.
	Finalize()
}

// An ExportSheet supplies stored cell values during round-trip export.
type ExportSheet interface {
	// WriteString writes the cell's value at (row, col) to w as text.
	// An empty cell writes nothing.
	WriteString(w io.Writer, row, col int) error
}

// An ExportFactory supplies sheets of an imported document for export.
type ExportFactory interface {
	// GetSheet returns the named sheet for export, or false if no such
	// sheet exists.
	GetSheet(name string) (ExportSheet, bool)
}
