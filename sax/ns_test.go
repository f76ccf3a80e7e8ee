// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package sax_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/creachadair/sheetmap/sax"
	"github.com/creachadair/sheetmap/xmlns"
	"github.com/google/go-cmp/cmp"
	"go4.org/mem"
)

// nsEvents records namespace-resolved events, rendering each qualified
// name as uri|local.
type nsEvents struct {
	repo *xmlns.Repository
	list []string
}

func (e *nsEvents) qname(q sax.QName) string {
	return e.repo.URI(q.NS) + "|" + q.Name.StringCopy()
}

func (e *nsEvents) add(msg string, args ...any) {
	e.list = append(e.list, fmt.Sprintf(msg, args...))
}

func (e *nsEvents) StartElement(elem sax.NSElement) { e.add("open %s", e.qname(elem.Name)) }
func (e *nsEvents) EndElement(elem sax.NSElement)   { e.add("close %s", e.qname(elem.Name)) }

func (e *nsEvents) Attribute(attr sax.NSAttr) {
	e.add("attr %s=%s", e.qname(attr.Name), attr.Value.StringCopy())
}

func (e *nsEvents) Characters(value mem.RO, transient bool) {
	if s := strings.TrimSpace(value.StringCopy()); s != "" {
		e.add("chars %s", s)
	}
}

func TestNSParser(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"no-namespace", `<a x="1"/>`, []string{
			"attr |x=1", "open |a", "close |a",
		}},

		{"default-ns", `<a xmlns="urn:d"><b/></a>`, []string{
			"open urn:d|a", "open urn:d|b", "close urn:d|b", "close urn:d|a",
		}},

		// The default namespace does not apply to attributes.
		{"default-ns-attr", `<a xmlns="urn:d" x="1"/>`, []string{
			"attr |x=1", "open urn:d|a", "close urn:d|a",
		}},

		{"prefixed", `<p:a xmlns:p="urn:p" p:x="1">v</p:a>`, []string{
			"attr urn:p|x=1", "open urn:p|a", "chars v", "close urn:p|a",
		}},

		// An inner binding shadows an outer one and is restored on close.
		{"shadowing", `<p:a xmlns:p="urn:1"><p:b xmlns:p="urn:2"/><p:c/></p:a>`, []string{
			"open urn:1|a",
			"open urn:2|b", "close urn:2|b",
			"open urn:1|c", "close urn:1|c",
			"close urn:1|a",
		}},

		{"unbound-prefix", `<q:a/>`, []string{
			"open |a", "close |a",
		}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			repo := xmlns.NewRepository()
			got := &nsEvents{repo: repo}
			p := sax.NewNSParser([]byte(test.input), repo.NewContext(), got)
			if err := p.Parse(); err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if diff := cmp.Diff(test.want, got.list); diff != "" {
				t.Errorf("Events: (-want, +got)\n%s", diff)
			}
		})
	}
}

func TestNSParserAliases(t *testing.T) {
	repo := xmlns.NewRepository()
	cxt := repo.NewContext()
	got := &nsEvents{repo: repo}
	const input = `<tbl:doc xmlns:tbl="urn:table"><tbl:row/></tbl:doc>`
	if err := sax.NewNSParser([]byte(input), cxt, got).Parse(); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	id := repo.InternString("urn:table")
	alias, ok := cxt.Alias(id)
	if !ok || alias != "tbl" {
		t.Errorf("Alias: got %q, %v; want %q, true", alias, ok, "tbl")
	}
}
