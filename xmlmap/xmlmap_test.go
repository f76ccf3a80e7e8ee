// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package xmlmap_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/creachadair/sheetmap/memsheet"
	"github.com/creachadair/sheetmap/xmlmap"
	"github.com/creachadair/sheetmap/xmlns"
	"go4.org/mem"
)

func newMapper(t *testing.T, sheets ...string) (*xmlmap.Mapper, *memsheet.Document) {
	t.Helper()
	doc := memsheet.New()
	m := xmlmap.New(xmlns.NewRepository(), doc, doc.Export())
	for _, name := range sheets {
		if err := m.AppendSheet(name); err != nil {
			t.Fatalf("AppendSheet(%q) failed: %v", name, err)
		}
	}
	return m, doc
}

func checkCell(t *testing.T, doc *memsheet.Document, sheet string, row, col int, want string) {
	t.Helper()
	s := doc.Sheet(sheet)
	if s == nil {
		t.Fatalf("sheet %q not found", sheet)
	}
	got, ok := s.At(row, col)
	if !ok {
		t.Errorf("cell %s!(%d,%d) is empty, want %q", sheet, row, col, want)
		return
	}
	if got.Text() != want {
		t.Errorf("cell %s!(%d,%d): got %q, want %q", sheet, row, col, got.Text(), want)
	}
}

func TestSingleCellLink(t *testing.T) {
	m, doc := newMapper(t, "S")
	if err := m.SetCellLink("/doc/v", "S", 0, 0); err != nil {
		t.Fatalf("SetCellLink failed: %v", err)
	}
	if err := m.ReadStream([]byte(`<doc><v>42</v></doc>`)); err != nil {
		t.Fatalf("ReadStream failed: %v", err)
	}
	checkCell(t, doc, "S", 0, 0, "42")
}

func TestEntityDecoding(t *testing.T) {
	// Entities decode before the value reaches the cell.
	m, doc := newMapper(t, "S")
	if err := m.SetCellLink("/t", "S", 0, 0); err != nil {
		t.Fatalf("SetCellLink failed: %v", err)
	}
	if err := m.ReadStream([]byte(`<t>a&amp;b&#x3C;c</t>`)); err != nil {
		t.Fatalf("ReadStream failed: %v", err)
	}
	checkCell(t, doc, "S", 0, 0, "a&b<c")
}

func TestAttributeRange(t *testing.T) {
	// Rows land one past the range origin; the origin row holds the
	// field headers.
	m, doc := newMapper(t, "S")
	m.StartRange("S", 0, 0)
	if err := m.AppendFieldLink("/r/it/@n", ""); err != nil {
		t.Fatalf("AppendFieldLink failed: %v", err)
	}
	if err := m.SetRangeRowGroup("/r/it"); err != nil {
		t.Fatalf("SetRangeRowGroup failed: %v", err)
	}
	if err := m.CommitRange(); err != nil {
		t.Fatalf("CommitRange failed: %v", err)
	}
	if err := m.ReadStream([]byte(`<r><it n="x"/><it n="y"/></r>`)); err != nil {
		t.Fatalf("ReadStream failed: %v", err)
	}
	checkCell(t, doc, "S", 0, 0, "n") // header
	checkCell(t, doc, "S", 1, 0, "x")
	checkCell(t, doc, "S", 2, 0, "y")
}

func TestElementRange(t *testing.T) {
	m, doc := newMapper(t, "S")
	m.StartRange("S", 0, 0)
	for _, p := range []string{"/items/item/name", "/items/item/count"} {
		if err := m.AppendFieldLink(p, ""); err != nil {
			t.Fatalf("AppendFieldLink(%q) failed: %v", p, err)
		}
	}
	if err := m.SetRangeRowGroup("/items/item"); err != nil {
		t.Fatalf("SetRangeRowGroup failed: %v", err)
	}
	if err := m.CommitRange(); err != nil {
		t.Fatalf("CommitRange failed: %v", err)
	}

	const input = `<items>
  <item><name>apple</name><count>3</count></item>
  <item><name>pear</name><count>7</count></item>
  <item><name>plum</name><count>1</count></item>
</items>`
	if err := m.ReadStream([]byte(input)); err != nil {
		t.Fatalf("ReadStream failed: %v", err)
	}
	checkCell(t, doc, "S", 0, 0, "name")
	checkCell(t, doc, "S", 0, 1, "count")
	checkCell(t, doc, "S", 1, 0, "apple")
	checkCell(t, doc, "S", 1, 1, "3")
	checkCell(t, doc, "S", 2, 0, "pear")
	checkCell(t, doc, "S", 2, 1, "7")
	checkCell(t, doc, "S", 3, 0, "plum")
	checkCell(t, doc, "S", 3, 1, "1")
}

func TestPartialRowFill(t *testing.T) {
	// Columns that receive no value for a row are filled with the
	// placeholder when the row completes.
	m, doc := newMapper(t, "S")
	m.StartRange("S", 0, 0)
	if err := m.AppendFieldLink("/r/it/@a", ""); err != nil {
		t.Fatalf("AppendFieldLink failed: %v", err)
	}
	if err := m.AppendFieldLink("/r/it/@b", ""); err != nil {
		t.Fatalf("AppendFieldLink failed: %v", err)
	}
	if err := m.SetRangeRowGroup("/r/it"); err != nil {
		t.Fatalf("SetRangeRowGroup failed: %v", err)
	}
	if err := m.CommitRange(); err != nil {
		t.Fatalf("CommitRange failed: %v", err)
	}
	if err := m.ReadStream([]byte(`<r><it a="1" b="2"/><it a="3"/></r>`)); err != nil {
		t.Fatalf("ReadStream failed: %v", err)
	}
	checkCell(t, doc, "S", 1, 0, "1")
	checkCell(t, doc, "S", 1, 1, "2")
	checkCell(t, doc, "S", 2, 0, "3")
	checkCell(t, doc, "S", 2, 1, "---")
}

func TestNamespaces(t *testing.T) {
	m, doc := newMapper(t, "S")
	m.SetNamespaceAlias("d", "urn:data", true)
	if err := m.SetCellLink("/doc/v", "S", 0, 0); err != nil {
		t.Fatalf("SetCellLink failed: %v", err)
	}
	if err := m.SetCellLink("/doc/d:w", "S", 0, 1); err != nil {
		t.Fatalf("SetCellLink failed: %v", err)
	}
	const input = `<doc xmlns="urn:data"><v>one</v><w>two</w></doc>`
	if err := m.ReadStream([]byte(input)); err != nil {
		t.Fatalf("ReadStream failed: %v", err)
	}
	checkCell(t, doc, "S", 0, 0, "one")
	checkCell(t, doc, "S", 0, 1, "two")
}

func TestMissingSheet(t *testing.T) {
	// Links into unregistered sheets are skipped without error.
	m, doc := newMapper(t) // no sheets at all
	if err := m.SetCellLink("/t", "Missing", 0, 0); err != nil {
		t.Fatalf("SetCellLink failed: %v", err)
	}
	m.StartRange("Missing", 0, 0)
	if err := m.AppendFieldLink("/t/u", ""); err != nil {
		t.Fatalf("AppendFieldLink failed: %v", err)
	}
	if err := m.SetRangeRowGroup("/t/u"); err != nil {
		t.Fatalf("SetRangeRowGroup failed: %v", err)
	}
	if err := m.CommitRange(); err != nil {
		t.Fatalf("CommitRange failed: %v", err)
	}
	if err := m.ReadStream([]byte(`<t>v<u>w</u></t>`)); err != nil {
		t.Fatalf("ReadStream failed: %v", err)
	}
	if doc.Sheet("Missing") != nil {
		t.Error("sheet Missing unexpectedly exists")
	}
}

func TestMapBuildErrors(t *testing.T) {
	m, _ := newMapper(t, "S")

	var bp *xmlmap.BadPathError
	if err := m.SetCellLink("nope", "S", 0, 0); !errors.As(err, &bp) {
		t.Errorf("relative path: got %v, want *BadPathError", err)
	}
	if err := m.SetCellLink("/", "S", 0, 0); !errors.As(err, &bp) {
		t.Errorf("empty path: got %v, want *BadPathError", err)
	}
	if err := m.SetCellLink("/a/@x/b", "S", 0, 0); !errors.As(err, &bp) {
		t.Errorf("interior attribute step: got %v, want *BadPathError", err)
	}

	var up *xmlmap.UnresolvedPrefixError
	if err := m.SetCellLink("/q:a", "S", 0, 0); !errors.As(err, &up) {
		t.Errorf("unknown prefix: got %v, want *UnresolvedPrefixError", err)
	}

	if err := m.SetCellLink("/a/b", "S", 0, 0); err != nil {
		t.Fatalf("SetCellLink failed: %v", err)
	}
	var dup *xmlmap.DuplicateLinkError
	if err := m.SetCellLink("/a/b", "S", 1, 1); !errors.As(err, &dup) {
		t.Errorf("duplicate link: got %v, want *DuplicateLinkError", err)
	}

	m.StartRange("S", 0, 0)
	if err := m.AppendFieldLink("/a/c/d", ""); err != nil {
		t.Fatalf("AppendFieldLink failed: %v", err)
	}
	var brs *xmlmap.BadRangeShapeError
	if err := m.SetRangeRowGroup("/a/other"); err != nil {
		t.Fatalf("SetRangeRowGroup failed: %v", err)
	}
	if err := m.CommitRange(); !errors.As(err, &brs) {
		t.Errorf("disjoint row group: got %v, want *BadRangeShapeError", err)
	}
}

func TestRoundTripUnchanged(t *testing.T) {
	// With unchanged sink values, bytes outside linked spans are
	// preserved exactly; here the linked span itself also reproduces.
	const input = "<!-- head -->\n<doc><v>42</v>\n<w>keep &amp; this</w></doc>\n<!-- tail -->\n"

	m, _ := newMapper(t, "S")
	if err := m.SetCellLink("/doc/v", "S", 0, 0); err != nil {
		t.Fatalf("SetCellLink failed: %v", err)
	}
	if err := m.ReadStream([]byte(input)); err != nil {
		t.Fatalf("ReadStream failed: %v", err)
	}

	var sb strings.Builder
	if err := m.Write([]byte(input), &sb); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := sb.String(); got != input {
		t.Errorf("round trip altered the document:\n got: %q\nwant: %q", got, input)
	}
}

func TestRoundTripUpdatedAttributes(t *testing.T) {
	const input = "<!-- head -->\n<r><it n=\"x\"/><it n=\"y\"/></r>\n<!-- tail -->"

	m, doc := newMapper(t, "S")
	m.StartRange("S", 0, 0)
	if err := m.AppendFieldLink("/r/it/@n", ""); err != nil {
		t.Fatalf("AppendFieldLink failed: %v", err)
	}
	if err := m.SetRangeRowGroup("/r/it"); err != nil {
		t.Fatalf("SetRangeRowGroup failed: %v", err)
	}
	if err := m.CommitRange(); err != nil {
		t.Fatalf("CommitRange failed: %v", err)
	}
	if err := m.ReadStream([]byte(input)); err != nil {
		t.Fatalf("ReadStream failed: %v", err)
	}

	// Update the imported values, then export.
	sheet := doc.Sheet("S")
	sheet.SetAuto(1, 0, mem.S("z1"))
	sheet.SetAuto(2, 0, mem.S("z2"))

	var sb strings.Builder
	if err := m.Write([]byte(input), &sb); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	want := "<!-- head -->\n<r><it n=\"z1\"/><it n=\"z2\"/></r>\n<!-- tail -->"
	if got := sb.String(); got != want {
		t.Errorf("round trip:\n got: %q\nwant: %q", got, want)
	}
}

func TestRoundTripUpdatedCell(t *testing.T) {
	const input = `<doc attr="keep"><v>old</v></doc>`

	m, doc := newMapper(t, "S")
	if err := m.SetCellLink("/doc/v", "S", 0, 0); err != nil {
		t.Fatalf("SetCellLink failed: %v", err)
	}
	if err := m.ReadStream([]byte(input)); err != nil {
		t.Fatalf("ReadStream failed: %v", err)
	}
	doc.Sheet("S").SetAuto(0, 0, mem.S("new <value>"))

	var sb strings.Builder
	if err := m.Write([]byte(input), &sb); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	want := `<doc attr="keep"><v>new &lt;value&gt;</v></doc>`
	if got := sb.String(); got != want {
		t.Errorf("round trip:\n got: %q\nwant: %q", got, want)
	}
}

func TestMapDefinition(t *testing.T) {
	m, doc := newMapper(t)
	def := `{
  // Comments are tolerated in map definitions.
  "sheets": ["S"],
  "cells": [{"path": "/doc/title", "sheet": "S", "row": 0, "column": 0}],
  "ranges": [
    {
      "sheet": "S", "row": 2, "column": 0,
      "fields": [
        {"path": "/doc/rows/row/a", "label": "first"},
        {"path": "/doc/rows/row/b"},
      ],
      "row-groups": [{"path": "/doc/rows/row"}]
    }
  ]
}`
	if err := m.ReadMapDefinition([]byte(def)); err != nil {
		t.Fatalf("ReadMapDefinition failed: %v", err)
	}

	const input = `<doc><title>T</title><rows>` +
		`<row><a>1</a><b>2</b></row>` +
		`<row><a>3</a><b>4</b></row>` +
		`</rows></doc>`
	if err := m.ReadStream([]byte(input)); err != nil {
		t.Fatalf("ReadStream failed: %v", err)
	}

	checkCell(t, doc, "S", 0, 0, "T")
	checkCell(t, doc, "S", 2, 0, "first") // label overrides the header
	checkCell(t, doc, "S", 2, 1, "b")
	checkCell(t, doc, "S", 3, 0, "1")
	checkCell(t, doc, "S", 3, 1, "2")
	checkCell(t, doc, "S", 4, 0, "3")
	checkCell(t, doc, "S", 4, 1, "4")
}
