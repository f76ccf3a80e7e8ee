// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package memsheet_test

import (
	"strings"
	"testing"

	"github.com/creachadair/sheetmap/memsheet"
	"github.com/google/go-cmp/cmp"
	"go4.org/mem"
)

func TestDocument(t *testing.T) {
	doc := memsheet.New()
	if _, ok := doc.GetSheet("S"); ok {
		t.Error("GetSheet(S) on empty document unexpectedly succeeded")
	}
	s, err := doc.AppendSheet(0, "S")
	if err != nil {
		t.Fatalf("AppendSheet failed: %v", err)
	}

	s.SetAuto(0, 0, mem.S("42"))
	s.SetAuto(0, 1, mem.S("hello"))
	s.SetAuto(0, 2, mem.S("3.5"))
	s.SetValue(1, 0, 2.5)
	s.SetBool(1, 1, true)

	ss, ok := doc.SharedStrings()
	if !ok {
		t.Fatal("SharedStrings missing")
	}
	sid := ss.Add(mem.S("shared"))
	if sid2 := ss.Add(mem.S("shared")); sid2 != sid {
		t.Errorf("shared string id not stable: %d vs %d", sid, sid2)
	}
	s.SetString(1, 2, sid)

	sheet := doc.Sheet("S")
	checks := []struct {
		row, col int
		want     string
	}{
		{0, 0, "42"},
		{0, 1, "hello"},
		{0, 2, "3.5"},
		{1, 0, "2.5"},
		{1, 1, "true"},
		{1, 2, "shared"},
	}
	for _, c := range checks {
		got, ok := sheet.At(c.row, c.col)
		if !ok || got.Text() != c.want {
			t.Errorf("At(%d, %d): got %q, %v; want %q", c.row, c.col, got.Text(), ok, c.want)
		}
	}

	// SetAuto with a numeric value stores a number.
	if got, _ := sheet.At(0, 0); got.Kind != memsheet.Number || got.Number != 42 {
		t.Errorf("cell (0,0): got kind %v value %v, want numeric 42", got.Kind, got.Number)
	}
}

func TestDocumentErrors(t *testing.T) {
	doc := memsheet.New()
	if _, err := doc.AppendSheet(0, ""); err == nil {
		t.Error("AppendSheet with empty name unexpectedly succeeded")
	}
	if _, err := doc.AppendSheet(0, "A"); err != nil {
		t.Fatalf("AppendSheet(A) failed: %v", err)
	}
	if _, err := doc.AppendSheet(0, "A"); err == nil {
		t.Error("duplicate AppendSheet unexpectedly succeeded")
	}
	if _, err := doc.AppendSheet(5, "B"); err == nil {
		t.Error("out-of-order AppendSheet unexpectedly succeeded")
	}
}

func TestDump(t *testing.T) {
	doc := memsheet.New()
	s, _ := doc.AppendSheet(0, "S")
	s.SetAuto(1, 0, mem.S("b"))
	s.SetAuto(0, 0, mem.S("a"))
	s.SetAuto(0, 1, mem.S("7"))

	var sb strings.Builder
	if err := doc.Dump(&sb); err != nil {
		t.Fatalf("Dump failed: %v", err)
	}
	want := "S!0,0: a\nS!0,1: 7\nS!1,0: b\n"
	if diff := cmp.Diff(want, sb.String()); diff != "" {
		t.Errorf("Dump: (-want, +got)\n%s", diff)
	}
}

func TestExportView(t *testing.T) {
	doc := memsheet.New()
	s, _ := doc.AppendSheet(0, "S")
	s.SetAuto(0, 0, mem.S("x"))

	ex := doc.Export()
	es, ok := ex.GetSheet("S")
	if !ok {
		t.Fatal("export GetSheet(S) failed")
	}
	var sb strings.Builder
	if err := es.WriteString(&sb, 0, 0); err != nil {
		t.Fatalf("WriteString failed: %v", err)
	}
	if sb.String() != "x" {
		t.Errorf("WriteString: got %q, want %q", sb.String(), "x")
	}
	// An unwritten cell writes nothing.
	sb.Reset()
	if err := es.WriteString(&sb, 9, 9); err != nil || sb.String() != "" {
		t.Errorf("WriteString(empty): got %q, %v; want empty, nil", sb.String(), err)
	}
	if _, ok := ex.GetSheet("Missing"); ok {
		t.Error("export GetSheet(Missing) unexpectedly succeeded")
	}
}
