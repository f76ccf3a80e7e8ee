// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jdom_test

import (
	"strings"
	"testing"

	"github.com/creachadair/sheetmap/jdom"
	"github.com/google/go-cmp/cmp"
)

func mustParse(t *testing.T, src string) jdom.Value {
	t.Helper()
	v, err := jdom.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse(%#q) failed: %v", src, err)
	}
	return v
}

func TestParseShape(t *testing.T) {
	v := mustParse(t, `{"a": {"b": 42}, "c": [1, "two", true, null]}`)

	root, ok := v.(*jdom.Object)
	if !ok {
		t.Fatalf("root: got %T, want *Object", v)
	}
	if n, ok := jdom.Num(root.Key("a").(*jdom.Object).Key("b")); !ok || n != 42 {
		t.Errorf("a/b: got %v, %v; want 42, true", n, ok)
	}
	arr, ok := root.Key("c").(*jdom.Array)
	if !ok {
		t.Fatalf("c: got %T, want *Array", root.Key("c"))
	}
	if len(arr.Values) != 4 {
		t.Fatalf("c: got %d values, want 4", len(arr.Values))
	}
	if s, ok := jdom.Str(arr.Values[1]); !ok || s != "two" {
		t.Errorf("c[1]: got %q, %v; want %q, true", s, ok, "two")
	}
	if b, ok := arr.Values[2].(jdom.Bool); !ok || !bool(b) {
		t.Errorf("c[2]: got %v, want true", arr.Values[2])
	}
	if _, ok := arr.Values[3].(jdom.Null); !ok {
		t.Errorf("c[3]: got %T, want Null", arr.Values[3])
	}
}

func TestFindMissing(t *testing.T) {
	v := mustParse(t, `{"a": 1}`).(*jdom.Object)
	if m := v.Find("nope"); m != nil {
		t.Errorf("Find(nope): got %v, want nil", m)
	}
	if got := v.Key("nope"); got != nil {
		t.Errorf("Key(nope): got %v, want nil", got)
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	const input = `{"name": "test", "vals": [1, 2.5, true], "sub": {"x": null}}`
	v := mustParse(t, input)

	var sb strings.Builder
	if err := jdom.WriteJSON(&sb, v); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	// The output must parse back to the same tree.
	v2 := mustParse(t, sb.String())
	if diff := cmp.Diff(v, v2); diff != "" {
		t.Errorf("Round trip: (-orig, +reparsed)\n%s", diff)
	}
}

func TestWriteFlat(t *testing.T) {
	v := mustParse(t, `{"rows": [{"k": "x"}, {"k": "y"}], "n": 3}`)
	var sb strings.Builder
	if err := jdom.WriteFlat(&sb, v); err != nil {
		t.Fatalf("WriteFlat failed: %v", err)
	}
	want := strings.Join([]string{
		"/rows[0]/k = x (string)",
		"/rows[1]/k = y (string)",
		"/n = 3 (number)",
	}, "\n") + "\n"
	if diff := cmp.Diff(want, sb.String()); diff != "" {
		t.Errorf("Flat dump: (-want, +got)\n%s", diff)
	}
}

func TestWriteStructure(t *testing.T) {
	v := mustParse(t, `{"rows": [{"k": "x", "v": 1}, {"k": "y", "v": 2}]}`)
	var sb strings.Builder
	if err := jdom.WriteStructure(&sb, v); err != nil {
		t.Fatalf("WriteStructure failed: %v", err)
	}
	want := "/rows[]/k: string\n/rows[]/v: number\n"
	if diff := cmp.Diff(want, sb.String()); diff != "" {
		t.Errorf("Structure dump: (-want, +got)\n%s", diff)
	}
}

func TestWriteXML(t *testing.T) {
	v := mustParse(t, `{"items": [{"name": "a<b"}, {"name": "c&d"}]}`)
	var sb strings.Builder
	if err := jdom.WriteXML(&sb, v); err != nil {
		t.Fatalf("WriteXML failed: %v", err)
	}
	want := `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<root><items><name>a&lt;b</name></items><items><name>c&amp;d</name></items></root>`
	if diff := cmp.Diff(want, sb.String()); diff != "" {
		t.Errorf("XML dump: (-want, +got)\n%s", diff)
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"plain", `"plain"`},
		{`say "hi"`, `"say \"hi\""`},
		{"tab\there", `"tab\there"`},
		{"line\nbreak", `"line\nbreak"`},
		{"\x01", `"\u0001"`},
	}
	for _, test := range tests {
		if got := jdom.Quote(test.input); got != test.want {
			t.Errorf("Quote(%q): got %s, want %s", test.input, got, test.want)
		}
	}
}
