// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jsonmap

import (
	"fmt"

	"github.com/creachadair/sheetmap"
	"github.com/creachadair/sheetmap/internal/mapdef"
	"github.com/creachadair/sheetmap/jsax"
)

// A Mapper drives one JSON mapping session: build the map from the
// programmatic API or a map definition, then read a content stream
// into the import sink.
type Mapper struct {
	im   sheetmap.ImportFactory
	tree *Tree

	sheetCount  int
	placeholder string
}

// New constructs a Mapper writing into im.
func New(im sheetmap.ImportFactory) *Mapper {
	return &Mapper{im: im, tree: NewTree(), placeholder: "---"}
}

// SetPlaceholder changes the text written into range columns that
// received no value for a partially-filled row. The default is "---".
func (m *Mapper) SetPlaceholder(s string) { m.placeholder = s }

// SetCellLink links the value at path to a single cell.
func (m *Mapper) SetCellLink(path, sheet string, row, col int) error {
	return m.tree.SetCellLink(path, sheetmap.CellPos{Sheet: sheet, Row: row, Col: col})
}

// StartRange begins the definition of a range anchored at the given
// origin. Unlike the XML variant, JSON ranges write no header row:
// the first data row lands at the origin.
func (m *Mapper) StartRange(sheet string, row, col int) {
	m.tree.StartRange(sheetmap.CellPos{Sheet: sheet, Row: row, Col: col})
}

// AppendFieldLink appends the value at path as the next column of the
// range being defined.
func (m *Mapper) AppendFieldLink(path string) error {
	return m.tree.AppendFieldLink(path)
}

// SetRangeRowGroup marks the node at path as a row boundary of the
// range being defined.
func (m *Mapper) SetRangeRowGroup(path string) error {
	return m.tree.SetRangeRowGroup(path)
}

// CommitRange completes the range being defined.
func (m *Mapper) CommitRange() error { return m.tree.CommitRange() }

// AppendSheet creates the next sheet in the import sink. Empty names
// are ignored.
func (m *Mapper) AppendSheet(name string) error {
	if name == "" {
		return nil
	}
	if _, err := m.im.AppendSheet(m.sheetCount, name); err != nil {
		return err
	}
	m.sheetCount++
	return nil
}

// ReadMapDefinition builds the map from a JSON map definition.
func (m *Mapper) ReadMapDefinition(data []byte) error {
	def, err := mapdef.Parse(data)
	if err != nil {
		return err
	}
	for _, name := range def.Sheets {
		if err := m.AppendSheet(name); err != nil {
			return err
		}
	}
	for _, c := range def.Cells {
		if err := m.SetCellLink(c.Path, c.Sheet, c.Row, c.Col); err != nil {
			return err
		}
	}
	for _, r := range def.Ranges {
		m.StartRange(r.Sheet, r.Row, r.Col)
		for _, f := range r.Fields {
			if err := m.AppendFieldLink(f.Path); err != nil {
				return err
			}
		}
		for _, g := range r.RowGroups {
			if err := m.SetRangeRowGroup(g); err != nil {
				return err
			}
		}
		if err := m.CommitRange(); err != nil {
			return err
		}
	}
	return nil
}

// ReadStream parses the content document in data, committing linked
// values into the import sink.
func (m *Mapper) ReadStream(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	for _, ref := range m.tree.order {
		ref.rowPos = 0
		ref.reset()
	}
	h := &walker{tree: m.tree, im: m.im, placeholder: m.placeholder}
	if err := jsax.NewParser(data, h).Parse(); err != nil {
		return fmt.Errorf("reading content: %w", err)
	}
	m.im.Finalize()
	return nil
}
