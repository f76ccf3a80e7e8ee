// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Package sax implements a streaming, namespace-aware XML tokenizer.
//
// The tokenizer consumes a byte slice in a single pass without copying
// and reports the structure of the input through callbacks on a
// handler. Values surfaced to the handler are read-only views into the
// input buffer whenever possible; a value that had to be materialized
// (because it contained character references, for example) is flagged
// transient, and the handler must copy it if it outlives the callback.
//
// Two layers are provided. Parser reports raw prefix:name tokens.
// NSParser layers namespace resolution on top, maintaining prefix
// scopes from xmlns declarations and reporting qualified names.
package sax

import (
	"fmt"

	"github.com/creachadair/sheetmap/xmlns"
	"go4.org/mem"
)

// An Element describes the opening or closing tag of an element as
// reported by a Parser. Begin is the byte offset of the '<' that opens
// the tag, End is one past its closing '>'. For a self-closing tag the
// parser reports both a start and an end event with equal positions.
type Element struct {
	Prefix, Name mem.RO
	Begin, End   int
}

// An Attr describes one attribute of an element tag. The surrounding
// quotes are stripped from Value. Transient reports that Value does not
// point into the input buffer and must be copied to outlive the event.
type Attr struct {
	Prefix, Name mem.RO
	Value        mem.RO
	Transient    bool
}

// A Doctype describes a document type declaration.
type Doctype struct {
	Root     mem.RO
	Keyword  mem.RO // PUBLIC or SYSTEM
	PublicID mem.RO
	SystemID mem.RO
}

// A Handler receives events from a Parser. Views passed to a handler
// are only valid for the duration of the call unless they are
// non-transient, in which case they remain valid for the life of the
// input buffer.
type Handler interface {
	// StartElement reports an opening (or self-closing) tag. All
	// Attribute calls for the tag are delivered before StartElement.
	StartElement(elem Element)

	// EndElement reports a closing tag.
	EndElement(elem Element)

	// Attribute reports one attribute of the tag being opened.
	Attribute(attr Attr)

	// Characters reports a run of character data between tags.
	Characters(value mem.RO, transient bool)
}

// DoctypeHandler is an optional interface a Handler may implement to
// receive document type declarations.
type DoctypeHandler interface {
	Doctype(dt Doctype)
}

// DeclHandler is an optional interface a Handler may implement to
// observe the XML declaration. Attributes of the declaration are
// reported through DeclAttribute, not Attribute.
type DeclHandler interface {
	DeclStart()
	DeclAttribute(name, value mem.RO)
	DeclEnd()
}

// A MalformedError reports a well-formedness violation at a byte
// offset in the input.
type MalformedError struct {
	Offset int
	Msg    string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed XML at offset %d: %s", e.Offset, e.Msg)
}

// A StructureError reports structurally invalid content, such as a
// numeric character reference that denotes no valid code point.
type StructureError struct {
	Offset int
	Msg    string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("invalid XML structure at offset %d: %s", e.Offset, e.Msg)
}

// A QName is a namespace-qualified name reported by an NSParser.
// Two names are equal exactly when both components are equal.
type QName struct {
	NS   xmlns.ID
	Name mem.RO
}

// Equal reports whether q and o denote the same qualified name.
func (q QName) Equal(o QName) bool { return q.NS == o.NS && q.Name.Equal(o.Name) }

func (q QName) String() string { return q.Name.StringCopy() }

// An NSElement describes an element tag with its name resolved against
// the namespace context in effect. Alias is the prefix actually written
// in the source document.
type NSElement struct {
	Name       QName
	Alias      mem.RO
	Begin, End int
}

// An NSAttr describes an attribute with a resolved name. An attribute
// with no prefix has no namespace (xmlns.Unknown); default namespace
// declarations do not apply to attributes.
type NSAttr struct {
	Name      QName
	Alias     mem.RO
	Value     mem.RO
	Transient bool
}

// An NSHandler receives namespace-resolved events from an NSParser.
type NSHandler interface {
	StartElement(elem NSElement)
	EndElement(elem NSElement)
	Attribute(attr NSAttr)
	Characters(value mem.RO, transient bool)
}
