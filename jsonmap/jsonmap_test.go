// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jsonmap_test

import (
	"errors"
	"testing"

	"github.com/creachadair/sheetmap/jsonmap"
	"github.com/creachadair/sheetmap/memsheet"
)

func newMapper(t *testing.T, sheets ...string) (*jsonmap.Mapper, *memsheet.Document) {
	t.Helper()
	doc := memsheet.New()
	m := jsonmap.New(doc)
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

func checkEmpty(t *testing.T, doc *memsheet.Document, sheet string, row, col int) {
	t.Helper()
	if s := doc.Sheet(sheet); s != nil {
		if got, ok := s.At(row, col); ok {
			t.Errorf("cell %s!(%d,%d): got %q, want empty", sheet, row, col, got.Text())
		}
	}
}

func TestSingleCell(t *testing.T) {
	m, doc := newMapper(t, "S")
	if err := m.SetCellLink("/a/b", "S", 0, 0); err != nil {
		t.Fatalf("SetCellLink failed: %v", err)
	}
	if err := m.ReadStream([]byte(`{"a":{"b":42}}`)); err != nil {
		t.Fatalf("ReadStream failed: %v", err)
	}
	sheet := doc.Sheet("S")
	got, ok := sheet.At(0, 0)
	if !ok || got.Kind != memsheet.Number || got.Number != 42 {
		t.Errorf("cell (0,0): got %+v, %v; want numeric 42", got, ok)
	}
}

func TestRangeWithRowGroup(t *testing.T) {
	// Rows land at the origin; JSON ranges write no header row.
	m, doc := newMapper(t, "S")
	m.StartRange("S", 0, 0)
	if err := m.AppendFieldLink("/rows/k"); err != nil {
		t.Fatalf("AppendFieldLink failed: %v", err)
	}
	if err := m.AppendFieldLink("/rows/v"); err != nil {
		t.Fatalf("AppendFieldLink failed: %v", err)
	}
	if err := m.SetRangeRowGroup("/rows"); err != nil {
		t.Fatalf("SetRangeRowGroup failed: %v", err)
	}
	if err := m.CommitRange(); err != nil {
		t.Fatalf("CommitRange failed: %v", err)
	}
	if err := m.ReadStream([]byte(`{"rows":[{"k":"x","v":1},{"k":"y","v":2}]}`)); err != nil {
		t.Fatalf("ReadStream failed: %v", err)
	}
	checkCell(t, doc, "S", 0, 0, "x")
	checkCell(t, doc, "S", 0, 1, "1")
	checkCell(t, doc, "S", 1, 0, "y")
	checkCell(t, doc, "S", 1, 1, "2")
}

func TestScalarRows(t *testing.T) {
	// A field may address the array itself; each scalar element
	// becomes one row entry.
	m, doc := newMapper(t, "S")
	m.StartRange("S", 0, 0)
	if err := m.AppendFieldLink("/names"); err != nil {
		t.Fatalf("AppendFieldLink failed: %v", err)
	}
	if err := m.SetRangeRowGroup("/names"); err != nil {
		t.Fatalf("SetRangeRowGroup failed: %v", err)
	}
	if err := m.CommitRange(); err != nil {
		t.Fatalf("CommitRange failed: %v", err)
	}
	if err := m.ReadStream([]byte(`{"names":["ann","bob"]}`)); err != nil {
		t.Fatalf("ReadStream failed: %v", err)
	}
	checkCell(t, doc, "S", 0, 0, "ann")
	checkCell(t, doc, "S", 1, 0, "bob")
}

func TestValueTypes(t *testing.T) {
	m, doc := newMapper(t, "S")
	for i, p := range []string{"/s", "/n", "/b", "/z"} {
		if err := m.SetCellLink(p, "S", 0, i); err != nil {
			t.Fatalf("SetCellLink(%q) failed: %v", p, err)
		}
	}
	if err := m.ReadStream([]byte(`{"s":"txt","n":2.5,"b":true,"z":null}`)); err != nil {
		t.Fatalf("ReadStream failed: %v", err)
	}
	checkCell(t, doc, "S", 0, 0, "txt")
	checkCell(t, doc, "S", 0, 1, "2.5")
	checkCell(t, doc, "S", 0, 2, "true")
	checkEmpty(t, doc, "S", 0, 3) // null writes nothing
}

func TestTypeMismatch(t *testing.T) {
	// A container arriving at a scalar-linked node discards only that
	// value; parsing continues.
	m, doc := newMapper(t, "S")
	if err := m.SetCellLink("/a", "S", 0, 0); err != nil {
		t.Fatalf("SetCellLink failed: %v", err)
	}
	if err := m.SetCellLink("/b", "S", 0, 1); err != nil {
		t.Fatalf("SetCellLink failed: %v", err)
	}
	if err := m.ReadStream([]byte(`{"a":{"nested":1},"b":"kept"}`)); err != nil {
		t.Fatalf("ReadStream failed: %v", err)
	}
	checkEmpty(t, doc, "S", 0, 0)
	checkCell(t, doc, "S", 0, 1, "kept")
}

func TestPartialRowFill(t *testing.T) {
	m, doc := newMapper(t, "S")
	m.StartRange("S", 0, 0)
	if err := m.AppendFieldLink("/rows/k"); err != nil {
		t.Fatalf("AppendFieldLink failed: %v", err)
	}
	if err := m.AppendFieldLink("/rows/v"); err != nil {
		t.Fatalf("AppendFieldLink failed: %v", err)
	}
	if err := m.SetRangeRowGroup("/rows"); err != nil {
		t.Fatalf("SetRangeRowGroup failed: %v", err)
	}
	if err := m.CommitRange(); err != nil {
		t.Fatalf("CommitRange failed: %v", err)
	}
	if err := m.ReadStream([]byte(`{"rows":[{"k":"x","v":1},{"k":"y"}]}`)); err != nil {
		t.Fatalf("ReadStream failed: %v", err)
	}
	checkCell(t, doc, "S", 1, 0, "y")
	checkCell(t, doc, "S", 1, 1, "---")
}

func TestMissingSheet(t *testing.T) {
	m, doc := newMapper(t) // no sheets registered
	if err := m.SetCellLink("/a", "Missing", 0, 0); err != nil {
		t.Fatalf("SetCellLink failed: %v", err)
	}
	if err := m.ReadStream([]byte(`{"a":1}`)); err != nil {
		t.Fatalf("ReadStream failed: %v", err)
	}
	if doc.Sheet("Missing") != nil {
		t.Error("sheet Missing unexpectedly exists")
	}
}

func TestMapBuildErrors(t *testing.T) {
	m, _ := newMapper(t, "S")

	var bp *jsonmap.BadPathError
	if err := m.SetCellLink("rel/path", "S", 0, 0); !errors.As(err, &bp) {
		t.Errorf("relative path: got %v, want *BadPathError", err)
	}
	if err := m.SetCellLink("/", "S", 0, 0); !errors.As(err, &bp) {
		t.Errorf("empty path: got %v, want *BadPathError", err)
	}
	if err := m.SetCellLink("/a//b", "S", 0, 0); !errors.As(err, &bp) {
		t.Errorf("empty step: got %v, want *BadPathError", err)
	}

	if err := m.SetCellLink("/a", "S", 0, 0); err != nil {
		t.Fatalf("SetCellLink failed: %v", err)
	}
	var dup *jsonmap.DuplicateLinkError
	if err := m.SetCellLink("/a", "S", 1, 1); !errors.As(err, &dup) {
		t.Errorf("duplicate link: got %v, want *DuplicateLinkError", err)
	}

	var brs *jsonmap.BadRangeShapeError
	if err := m.AppendFieldLink("/x"); !errors.As(err, &brs) {
		t.Errorf("field link outside range: got %v, want *BadRangeShapeError", err)
	}
}

func TestMapDefinition(t *testing.T) {
	m, doc := newMapper(t)
	def := `{
  "sheets": ["S"],
  "cells": [{"path": "/meta/title", "sheet": "S", "row": 0, "column": 0}],
  "ranges": [
    {
      "sheet": "S", "row": 2, "column": 0,
      "fields": [{"path": "/rows/k"}, {"path": "/rows/v"}],
      "row-groups": [{"path": "/rows"}]
    }
  ],
  "unknown-key": {"ignored": true}
}`
	if err := m.ReadMapDefinition([]byte(def)); err != nil {
		t.Fatalf("ReadMapDefinition failed: %v", err)
	}
	input := `{"meta":{"title":"T"},"rows":[{"k":"x","v":1},{"k":"y","v":2}]}`
	if err := m.ReadStream([]byte(input)); err != nil {
		t.Fatalf("ReadStream failed: %v", err)
	}
	checkCell(t, doc, "S", 0, 0, "T")
	checkCell(t, doc, "S", 2, 0, "x")
	checkCell(t, doc, "S", 2, 1, "1")
	checkCell(t, doc, "S", 3, 0, "y")
	checkCell(t, doc, "S", 3, 1, "2")
}

func TestNestedRowGroups(t *testing.T) {
	// A row group nested in a repeating outer array: the pending signal
	// left when the inner array closes carries into the next outer
	// element, so the range advances once per inner element throughout.
	m, doc := newMapper(t, "S")
	m.StartRange("S", 0, 0)
	if err := m.AppendFieldLink("/groups/items/v"); err != nil {
		t.Fatalf("AppendFieldLink failed: %v", err)
	}
	if err := m.SetRangeRowGroup("/groups/items"); err != nil {
		t.Fatalf("SetRangeRowGroup failed: %v", err)
	}
	if err := m.CommitRange(); err != nil {
		t.Fatalf("CommitRange failed: %v", err)
	}
	input := `{"groups":[{"items":[{"v":1},{"v":2}]},{"items":[{"v":3}]}]}`
	if err := m.ReadStream([]byte(input)); err != nil {
		t.Fatalf("ReadStream failed: %v", err)
	}
	checkCell(t, doc, "S", 0, 0, "1")
	checkCell(t, doc, "S", 1, 0, "2")
	checkCell(t, doc, "S", 2, 0, "3")
}
