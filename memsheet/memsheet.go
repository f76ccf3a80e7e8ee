// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Package memsheet provides an in-memory spreadsheet document
// implementing the sink interfaces of package sheetmap. It is used by
// the command-line tools and is convenient for tests; it stores cells
// sparsely and makes no attempt at styles, formulas, or persistence.
package memsheet

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"go4.org/mem"

	"github.com/creachadair/sheetmap"
	"github.com/creachadair/sheetmap/internal/numparse"
	"github.com/creachadair/sheetmap/stringpool"
)

// Writes beyond these bounds are silently discarded, mirroring common
// spreadsheet limits.
const (
	maxRows = 1048576
	maxCols = 16384
)

// A Kind discriminates the value stored in a cell.
type Kind int

const (
	Empty Kind = iota
	String
	Number
	Bool
)

// A Cell is one stored cell value.
type Cell struct {
	Kind   Kind
	String string
	Number float64
	Bool   bool
}

// Text renders the cell value as plain text; an empty cell renders as
// the empty string.
func (c Cell) Text() string {
	switch c.Kind {
	case String:
		return c.String
	case Number:
		if c.Number == math.Trunc(c.Number) && math.Abs(c.Number) < 1e15 {
			return strconv.FormatInt(int64(c.Number), 10)
		}
		return strconv.FormatFloat(c.Number, 'g', -1, 64)
	case Bool:
		return strconv.FormatBool(c.Bool)
	}
	return ""
}

// A Document is an in-memory spreadsheet. It implements
// sheetmap.ImportFactory; use Export for the export half.
type Document struct {
	sheets []*Sheet
	byName map[string]*Sheet
	shared *sharedPool
}

// New constructs an empty document.
func New() *Document {
	return &Document{
		byName: make(map[string]*Sheet),
		shared: &sharedPool{pool: stringpool.New()},
	}
}

// GetSheet implements part of sheetmap.ImportFactory.
func (d *Document) GetSheet(name string) (sheetmap.ImportSheet, bool) {
	s, ok := d.byName[name]
	return s, ok
}

// AppendSheet implements part of sheetmap.ImportFactory.
func (d *Document) AppendSheet(index int, name string) (sheetmap.ImportSheet, error) {
	if name == "" {
		return nil, fmt.Errorf("empty sheet name")
	}
	if _, ok := d.byName[name]; ok {
		return nil, fmt.Errorf("duplicate sheet name %q", name)
	}
	if index != len(d.sheets) {
		return nil, fmt.Errorf("sheet index %d out of order, want %d", index, len(d.sheets))
	}
	s := &Sheet{name: name, doc: d, rows: make(map[int]map[int]Cell)}
	d.sheets = append(d.sheets, s)
	d.byName[name] = s
	return s, nil
}

// SharedStrings implements part of sheetmap.ImportFactory.
func (d *Document) SharedStrings() (sheetmap.SharedStrings, bool) { return d.shared, true }

// Finalize implements part of sheetmap.ImportFactory. It is a no-op
// for the in-memory model.
func (d *Document) Finalize() {}

// Sheet returns the named sheet, or nil.
func (d *Document) Sheet(name string) *Sheet { return d.byName[name] }

// Export returns the export view of d, implementing
// sheetmap.ExportFactory over the imported cells.
func (d *Document) Export() sheetmap.ExportFactory { return exportView{doc: d} }

// Dump writes a flat dump of every sheet to w in row-major order, one
// line per non-empty cell in the form "sheet!R,C: value".
func (d *Document) Dump(w io.Writer) error {
	for _, s := range d.sheets {
		rows := make([]int, 0, len(s.rows))
		for r := range s.rows {
			rows = append(rows, r)
		}
		sort.Ints(rows)
		for _, r := range rows {
			cols := make([]int, 0, len(s.rows[r]))
			for c := range s.rows[r] {
				cols = append(cols, c)
			}
			sort.Ints(cols)
			for _, c := range cols {
				cell := s.rows[r][c]
				if cell.Kind == Empty {
					continue
				}
				if _, err := fmt.Fprintf(w, "%s!%d,%d: %s\n", s.name, r, c, cell.Text()); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// A Sheet is one sheet of a Document. It implements both
// sheetmap.ImportSheet and sheetmap.ExportSheet.
type Sheet struct {
	name string
	doc  *Document
	rows map[int]map[int]Cell
}

// Name reports the sheet's name.
func (s *Sheet) Name() string { return s.name }

// At returns the cell at (row, col); the second result is false if the
// cell has never been written.
func (s *Sheet) At(row, col int) (Cell, bool) {
	c, ok := s.rows[row][col]
	return c, ok
}

func (s *Sheet) set(row, col int, c Cell) {
	if row < 0 || col < 0 || row >= maxRows || col >= maxCols {
		return
	}
	m := s.rows[row]
	if m == nil {
		m = make(map[int]Cell)
		s.rows[row] = m
	}
	m[col] = c
}

// SetAuto implements part of sheetmap.ImportSheet: a value that parses
// completely as a number is stored numeric, anything else is stored as
// a string.
func (s *Sheet) SetAuto(row, col int, value mem.RO) {
	b := mem.Append(nil, value)
	if v, n := numparse.Generic(b); n == len(b) && n > 0 && !math.IsNaN(v) {
		s.set(row, col, Cell{Kind: Number, Number: v})
		return
	}
	s.set(row, col, Cell{Kind: String, String: s.doc.shared.pool.InternBytes(b)})
}

// SetString implements part of sheetmap.ImportSheet.
func (s *Sheet) SetString(row, col int, sid int) {
	s.set(row, col, Cell{Kind: String, String: s.doc.shared.at(sid)})
}

// SetValue implements part of sheetmap.ImportSheet.
func (s *Sheet) SetValue(row, col int, value float64) {
	s.set(row, col, Cell{Kind: Number, Number: value})
}

// SetBool implements part of sheetmap.ImportSheet.
func (s *Sheet) SetBool(row, col int, value bool) {
	s.set(row, col, Cell{Kind: Bool, Bool: value})
}

// WriteString implements sheetmap.ExportSheet.
func (s *Sheet) WriteString(w io.Writer, row, col int) error {
	c, ok := s.At(row, col)
	if !ok || c.Kind == Empty {
		return nil
	}
	_, err := io.WriteString(w, c.Text())
	return err
}

// sharedPool implements sheetmap.SharedStrings over a string pool,
// assigning dense identifiers in insertion order.
type sharedPool struct {
	pool *stringpool.Pool
	ids  map[string]int
	list []string
}

func (p *sharedPool) Add(value mem.RO) int {
	s := p.pool.InternString(value.StringCopy())
	if p.ids == nil {
		p.ids = make(map[string]int)
	}
	if id, ok := p.ids[s]; ok {
		return id
	}
	id := len(p.list)
	p.ids[s] = id
	p.list = append(p.list, s)
	return id
}

func (p *sharedPool) at(sid int) string {
	if sid < 0 || sid >= len(p.list) {
		return ""
	}
	return p.list[sid]
}

// exportView adapts a Document to sheetmap.ExportFactory.
type exportView struct{ doc *Document }

func (e exportView) GetSheet(name string) (sheetmap.ExportSheet, bool) {
	s, ok := e.doc.byName[name]
	return s, ok
}
