// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package sax

import (
	"go4.org/mem"

	"github.com/creachadair/sheetmap/xmlns"
)

// An NSParser layers namespace resolution over a Parser. It maintains
// the prefix scopes declared by xmlns attributes in the given context
// and reports elements and attributes with resolved qualified names.
// The context records the aliases observed in the stream so a writer
// can replay them.
type NSParser struct {
	p *Parser
	n *nsHandler
}

// NewNSParser constructs a namespace-aware tokenizer over src,
// resolving prefixes in cxt and delivering events to h. Use a fresh
// context per stream.
func NewNSParser(src []byte, cxt *xmlns.Context, h NSHandler) *NSParser {
	n := &nsHandler{cxt: cxt, h: h}
	return &NSParser{p: NewParser(src, n), n: n}
}

// Parse consumes the entire input. See Parser.Parse for the error
// contract.
func (p *NSParser) Parse() error { return p.p.Parse() }

// nsHandler adapts raw parser events into namespace-resolved events.
type nsHandler struct {
	cxt *xmlns.Context
	h   NSHandler

	attrs  []Attr // attributes of the tag currently being opened
	scopes []nsScope
}

// nsScope records the prefixes a single element declared, so its close
// can pop exactly those bindings.
type nsScope struct {
	declared []string
}

func (n *nsHandler) Attribute(attr Attr) {
	if attr.Transient {
		// The raw parser reuses its scratch buffer; keep a copy until
		// the tag is complete.
		attr.Value = mem.S(attr.Value.StringCopy())
	}
	n.attrs = append(n.attrs, attr)
}

func (n *nsHandler) StartElement(elem Element) {
	var scope nsScope

	// Process namespace declarations before resolving anything else in
	// the tag.
	for _, attr := range n.attrs {
		switch {
		case attr.Prefix.Len() == 0 && attr.Name.EqualString("xmlns"):
			n.cxt.Push("", attr.Value)
			scope.declared = append(scope.declared, "")
		case attr.Prefix.EqualString("xmlns"):
			prefix := attr.Name.StringCopy()
			n.cxt.Push(prefix, attr.Value)
			scope.declared = append(scope.declared, prefix)
		}
	}
	n.scopes = append(n.scopes, scope)

	for _, attr := range n.attrs {
		if isXMLNSDecl(attr) {
			continue
		}
		// An unprefixed attribute has no namespace; the default
		// namespace does not apply to attributes.
		ns := xmlns.Unknown
		if attr.Prefix.Len() != 0 {
			ns = n.cxt.Resolve(attr.Prefix)
		}
		n.h.Attribute(NSAttr{
			Name:      QName{NS: ns, Name: attr.Name},
			Alias:     attr.Prefix,
			Value:     attr.Value,
			Transient: attr.Transient,
		})
	}
	n.attrs = n.attrs[:0]

	n.h.StartElement(NSElement{
		Name:  QName{NS: n.cxt.Resolve(elem.Prefix), Name: elem.Name},
		Alias: elem.Prefix,
		Begin: elem.Begin,
		End:   elem.End,
	})
}

func (n *nsHandler) EndElement(elem Element) {
	// Resolve the closing tag in the scope it is about to end, then
	// drop the bindings this element declared.
	out := NSElement{
		Name:  QName{NS: n.cxt.Resolve(elem.Prefix), Name: elem.Name},
		Alias: elem.Prefix,
		Begin: elem.Begin,
		End:   elem.End,
	}
	if len(n.scopes) != 0 {
		scope := n.scopes[len(n.scopes)-1]
		n.scopes = n.scopes[:len(n.scopes)-1]
		for i := len(scope.declared) - 1; i >= 0; i-- {
			n.cxt.Pop(scope.declared[i])
		}
	}
	n.h.EndElement(out)
}

func (n *nsHandler) Characters(value mem.RO, transient bool) {
	n.h.Characters(value, transient)
}

func (n *nsHandler) Doctype(dt Doctype) {
	if dh, ok := n.h.(DoctypeHandler); ok {
		dh.Doctype(dt)
	}
}

func (n *nsHandler) DeclStart() {
	if dh, ok := n.h.(DeclHandler); ok {
		dh.DeclStart()
	}
}

func (n *nsHandler) DeclAttribute(name, value mem.RO) {
	if dh, ok := n.h.(DeclHandler); ok {
		dh.DeclAttribute(name, value)
	}
}

func (n *nsHandler) DeclEnd() {
	if dh, ok := n.h.(DeclHandler); ok {
		dh.DeclEnd()
	}
}

func isXMLNSDecl(attr Attr) bool {
	return (attr.Prefix.Len() == 0 && attr.Name.EqualString("xmlns")) ||
		attr.Prefix.EqualString("xmlns")
}
