// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package xmlmap

import (
	"fmt"

	"go4.org/mem"

	"github.com/creachadair/sheetmap"
	"github.com/creachadair/sheetmap/internal/mapdef"
	"github.com/creachadair/sheetmap/sax"
	"github.com/creachadair/sheetmap/xmlns"
)

// A Mapper drives one XML mapping session: build the map (from the
// programmatic API or a map definition), read a content stream into
// the import sink, and optionally rewrite the source with the export
// sink's values.
type Mapper struct {
	repo *xmlns.Repository
	im   sheetmap.ImportFactory
	ex   sheetmap.ExportFactory
	tree *Tree

	sheetCount  int
	placeholder string

	// Positions of all linked elements recorded by the last content
	// parse, ordered for the writer. Linked elements are not nested, by
	// construction of the map.
	links []*element
}

// New constructs a Mapper resolving namespaces in repo and writing
// into im. The export factory ex may be nil if Write is not used.
func New(repo *xmlns.Repository, im sheetmap.ImportFactory, ex sheetmap.ExportFactory) *Mapper {
	return &Mapper{
		repo:        repo,
		im:          im,
		ex:          ex,
		tree:        NewTree(repo),
		placeholder: "---",
	}
}

// SetPlaceholder changes the text written into range columns that
// received no value for a row. The default is "---".
func (m *Mapper) SetPlaceholder(s string) { m.placeholder = s }

// SetNamespaceAlias registers a prefix used by map paths for uri.
func (m *Mapper) SetNamespaceAlias(alias, uri string, isDefault bool) {
	m.tree.SetNamespaceAlias(alias, uri, isDefault)
}

// SetCellLink links the element or attribute at path to a single cell.
func (m *Mapper) SetCellLink(path, sheet string, row, col int) error {
	return m.tree.SetCellLink(path, sheetmap.CellPos{Sheet: sheet, Row: row, Col: col})
}

// StartRange begins the definition of a range anchored at the given
// origin. Field links appended before CommitRange become its columns.
func (m *Mapper) StartRange(sheet string, row, col int) {
	m.tree.StartRange(sheetmap.CellPos{Sheet: sheet, Row: row, Col: col})
}

// AppendFieldLink appends the element or attribute at path as the next
// column of the range being defined.
func (m *Mapper) AppendFieldLink(path, label string) error {
	return m.tree.AppendFieldLink(path, label)
}

// SetRangeRowGroup marks the element at path as the row boundary of
// the range being defined.
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

// ReadMapDefinition builds the map from a JSON map definition. The
// definition may register namespaces with a "namespaces" object and a
// "default-namespace" alias in addition to the common sections.
func (m *Mapper) ReadMapDefinition(data []byte) error {
	def, err := mapdef.Parse(data)
	if err != nil {
		return err
	}
	for alias, uri := range def.Namespaces {
		m.SetNamespaceAlias(alias, uri, alias == def.DefaultNS)
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
			if err := m.AppendFieldLink(f.Path, f.Label); err != nil {
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
// values into the import sink. Each range writes a header row at its
// origin before row data, which starts on the following row. The
// buffer must remain valid while the mapper is used; the recorded
// positions consumed by Write refer into it.
func (m *Mapper) ReadStream(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	for _, e := range m.links {
		e.recorded = false
	}
	m.links = m.links[:0]

	// Write the range headers and reset the row cursors.
	for _, ref := range m.tree.order {
		ref.rowSize = 1
		ref.reset()
		sheet, ok := m.im.GetSheet(ref.pos.Sheet)
		if !ok {
			continue
		}
		for i, f := range ref.fields {
			sheet.SetAuto(ref.pos.Row, ref.pos.Col+i, mem.S(f.displayName(m.repo)))
		}
	}

	h := &dataHandler{
		tree:        m.tree,
		im:          m.im,
		pool:        m.tree.pool,
		links:       &m.links,
		placeholder: m.placeholder,
	}
	cxt := m.repo.NewContext() // fresh context for the content stream
	if err := sax.NewNSParser(data, cxt, h).Parse(); err != nil {
		return fmt.Errorf("reading content: %w", err)
	}
	h.postprocess()
	m.im.Finalize()
	return nil
}
