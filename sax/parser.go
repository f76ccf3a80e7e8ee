// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package sax

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"go4.org/mem"
)

// A Parser is a single-pass tokenizer over an XML byte slice. It does
// not validate against a schema and does not expand external entities;
// only the five predefined entities and numeric character references
// are decoded.
type Parser struct {
	src []byte
	pos int
	h   Handler

	// One growable scratch buffer per open element depth, reused across
	// siblings to absorb decoded character runs.
	bufs []*bytes.Buffer
	nest int

	// Names of the elements currently open, for tag balancing.
	open []openTag
}

type openTag struct {
	prefix, name mem.RO
}

// NewParser constructs a tokenizer that reads src and delivers events
// to h. The input buffer must outlive any non-transient views the
// handler retains.
func NewParser(src []byte, h Handler) *Parser {
	return &Parser{src: src, h: h}
}

// Parse consumes the entire input, delivering events to the handler.
// It reports a *MalformedError for well-formedness violations and a
// *StructureError for invalid character references.
func (p *Parser) Parse() (err error) {
	defer p.recoverParseError(&err)

	p.skipBOM()
	p.blank()
	for p.has() {
		p.body()
	}
	if p.nest != 0 {
		p.fail("unexpected end of stream with unclosed elements")
	}
	return nil
}

func (p *Parser) recoverParseError(errp *error) {
	if serr := recover(); serr != nil {
		switch err := serr.(type) {
		case *MalformedError:
			*errp = err
		case *StructureError:
			*errp = err
		default:
			panic(serr)
		}
	}
}

func (p *Parser) body() {
	if p.cur() == '<' {
		p.markup()
	} else {
		p.characters()
	}
}

func (p *Parser) markup() {
	begin := p.pos // at '<'
	p.next()
	switch p.curChecked() {
	case '/':
		p.next()
		p.closeElement(begin)
	case '!':
		p.next()
		p.special()
	case '?':
		p.next()
		p.declaration()
	default:
		p.openElement(begin)
	}
}

// special handles the "<!" family: comments, CDATA sections, and
// doctype declarations.
func (p *Parser) special() {
	switch p.curChecked() {
	case '-':
		p.expect("--")
		p.comment()
	case '[':
		p.expect("[CDATA[")
		p.cdata()
	default:
		p.doctype()
	}
}

func (p *Parser) openElement(begin int) {
	prefix, name := p.qname()
	p.nest++

	for {
		p.blank()
		switch p.curChecked() {
		case '/':
			p.next()
			if p.curChecked() != '>' {
				p.fail("expected '>' after '/' in empty-element tag")
			}
			p.next()
			elem := Element{Prefix: prefix, Name: name, Begin: begin, End: p.pos}
			p.h.StartElement(elem)
			p.h.EndElement(elem)
			p.nest--
			return
		case '>':
			p.next()
			p.open = append(p.open, openTag{prefix: prefix, name: name})
			p.h.StartElement(Element{Prefix: prefix, Name: name, Begin: begin, End: p.pos})
			return
		default:
			p.attribute()
		}
	}
}

func (p *Parser) closeElement(begin int) {
	prefix, name := p.qname()
	p.blank()
	if p.curChecked() != '>' {
		p.fail("expected '>' to close element")
	}
	p.next()
	if len(p.open) == 0 {
		p.fail("closing tag without a matching opening tag")
	}
	top := p.open[len(p.open)-1]
	if !top.name.Equal(name) || !top.prefix.Equal(prefix) {
		p.fail(fmt.Sprintf("mismatched closing tag </%s>", name.StringCopy()))
	}
	p.open = p.open[:len(p.open)-1]
	p.nest--
	p.h.EndElement(Element{Prefix: prefix, Name: name, Begin: begin, End: p.pos})
}

func (p *Parser) attribute() {
	prefix, name := p.qname()
	p.blank()
	if p.curChecked() != '=' {
		p.fail("expected '=' after attribute name")
	}
	p.next()
	p.blank()
	value, transient := p.value()
	p.h.Attribute(Attr{Prefix: prefix, Name: name, Value: value, Transient: transient})
}

// value parses a quoted attribute value with its surrounding quotes
// stripped. Both quote characters are accepted; the closing quote must
// match the opening one.
func (p *Parser) value() (mem.RO, bool) {
	quote := p.curChecked()
	if quote != '"' && quote != '\'' {
		p.fail("value must be quoted")
	}
	p.next()

	p0 := p.pos
	for {
		c := p.curChecked()
		if c == quote {
			break
		}
		if c == '&' {
			// The value contains encoded characters; switch to a scratch
			// buffer for the rest of the run.
			buf := p.buffer()
			buf.Write(p.src[p0:p.pos])
			p.decodeRun(buf, quote)
			p.next() // skip the closing quote
			return mem.B(buf.Bytes()), true
		}
		p.next()
	}
	v := mem.B(p.src[p0:p.pos])
	p.next() // skip the closing quote
	return v, false
}

func (p *Parser) characters() {
	p0 := p.pos
	for p.has() {
		c := p.cur()
		if c == '<' {
			break
		}
		if c == '&' {
			buf := p.buffer()
			buf.Write(p.src[p0:p.pos])
			p.decodeRun(buf, '<')
			p.h.Characters(mem.B(buf.Bytes()), true)
			return
		}
		p.next()
	}
	p.h.Characters(mem.B(p.src[p0:p.pos]), false)
}

// decodeRun consumes input until stop (or end of input for character
// data), appending decoded content to buf. The current position is at
// an '&' on entry.
func (p *Parser) decodeRun(buf *bytes.Buffer, stop byte) {
	for {
		p.encodedChar(buf)
		p0 := p.pos
		for p.has() && p.cur() != '&' && p.cur() != stop {
			p.next()
		}
		buf.Write(p.src[p0:p.pos])
		if !p.has() {
			if stop != '<' {
				p.fail("unexpected end of stream in attribute value")
			}
			return
		}
		if p.cur() == stop {
			return
		}
	}
}

// encodedChar decodes one character reference at the current position,
// which is at '&' on entry and one past the ';' on return. The five
// predefined entities and numeric references are decoded; any other
// named entity is appended verbatim.
func (p *Parser) encodedChar(buf *bytes.Buffer) {
	start := p.pos
	p.next() // past '&'
	p0 := p.pos
	for p.has() {
		if p.cur() != ';' {
			p.next()
			continue
		}
		ref := p.src[p0:p.pos]
		if len(ref) == 0 {
			p.fail("empty character reference")
		}
		p.next() // past ';'

		if c, ok := decodeEntityName(ref); ok {
			buf.WriteByte(c)
		} else if ref[0] == '#' {
			if !p.unicodeChar(buf, ref) {
				buf.Write(p.src[start:p.pos]) // pass through verbatim
			}
		} else {
			// Unknown named entity; pass it through verbatim.
			buf.Write(p.src[start:p.pos])
		}
		return
	}
	p.fail("character reference is not terminated")
}

// unicodeChar decodes a numeric character reference ref (without the
// leading '&' or trailing ';') and appends its UTF-8 encoding to buf.
// It reports false for a bare "#" so the caller can pass the original
// text through.
func (p *Parser) unicodeChar(buf *bytes.Buffer, ref []byte) bool {
	digits := ref[1:]
	base := 10
	if len(digits) > 0 && digits[0] == 'x' {
		digits = digits[1:]
		base = 16
		if len(digits) == 0 {
			p.failStructure("hexadecimal character reference has no digits")
		}
	}
	if len(digits) == 0 {
		return false
	}
	var point uint32
	for _, c := range digits {
		var d uint32
		switch {
		case c >= '0' && c <= '9':
			d = uint32(c - '0')
		case base == 16 && c >= 'a' && c <= 'f':
			d = uint32(c-'a') + 10
		case base == 16 && c >= 'A' && c <= 'F':
			d = uint32(c-'A') + 10
		default:
			p.failStructure(fmt.Sprintf("invalid digit %q in character reference", c))
		}
		point = point*uint32(base) + d
		if point > utf8.MaxRune {
			p.failStructure("character reference beyond U+10FFFF")
		}
	}
	var tmp [utf8.UTFMax]byte
	buf.Write(tmp[:utf8.EncodeRune(tmp[:], rune(point))])
	return true
}

func (p *Parser) comment() {
	// Scan to the terminating "-->"; a "--" not followed by '>' is an
	// error, as is running out of input.
	var hyphens int
	for p.has() {
		c := p.cur()
		p.next()
		switch {
		case c == '-':
			hyphens++
			if hyphens == 2 {
				if p.curChecked() != '>' {
					p.fail("'--' should not occur in comment other than in the closing tag")
				}
				p.next()
				return
			}
		default:
			hyphens = 0
		}
	}
	p.fail("unterminated comment")
}

func (p *Parser) cdata() {
	p0 := p.pos
	for p.remains() >= 3 {
		if p.src[p.pos] == ']' && p.src[p.pos+1] == ']' && p.src[p.pos+2] == '>' {
			p.h.Characters(mem.B(p.src[p0:p.pos]), false)
			p.pos += 3
			return
		}
		p.next()
	}
	p.fail("unterminated CDATA section")
}

func (p *Parser) doctype() {
	p.expect("DOCTYPE")
	p.blankChecked()

	var dt Doctype
	dt.Root = p.name()
	p.blank()

	if p.curChecked() != '>' {
		dt.Keyword = p.name()
		p.blank()
		if p.curChecked() == '"' || p.curChecked() == '\'' {
			dt.PublicID, _ = p.value()
			p.blank()
		}
		if p.curChecked() == '"' || p.curChecked() == '\'' {
			dt.SystemID, _ = p.value()
			p.blank()
		}
	}
	if p.curChecked() != '>' {
		p.fail("expected '>' to close doctype declaration")
	}
	p.next()

	if dh, ok := p.h.(DoctypeHandler); ok {
		dh.Doctype(dt)
	}
}

// declaration handles "<?...?>" forms. An XML declaration is reported
// through the optional DeclHandler; other processing instructions are
// consumed and discarded.
func (p *Parser) declaration() {
	target := p.name()
	dh, _ := p.h.(DeclHandler)
	if !target.EqualString("xml") || dh == nil {
		// Skip to the terminating "?>".
		for p.remains() >= 2 {
			if p.src[p.pos] == '?' && p.src[p.pos+1] == '>' {
				p.pos += 2
				return
			}
			p.next()
		}
		p.fail("unterminated processing instruction")
	}

	dh.DeclStart()
	for {
		p.blank()
		if p.curChecked() == '?' {
			p.next()
			if p.curChecked() != '>' {
				p.fail("expected '>' after '?' in XML declaration")
			}
			p.next()
			dh.DeclEnd()
			return
		}
		_, name := p.qname()
		p.blank()
		if p.curChecked() != '=' {
			p.fail("expected '=' in XML declaration")
		}
		p.next()
		p.blank()
		value, _ := p.value()
		dh.DeclAttribute(name, value)
	}
}

// qname parses prefix:name, returning an empty prefix when the name is
// not prefixed.
func (p *Parser) qname() (prefix, name mem.RO) {
	name = p.name()
	if p.has() && p.cur() == ':' {
		p.next()
		return name, p.name()
	}
	return mem.RO{}, name
}

// name scans one XML name. The accepted alphabet follows the byte
// ranges a-z A-Z 0-9 and the punctuation "-_", with the first byte
// restricted to a letter or underscore. The scan uses a 256-entry
// table so the per-byte test is a single load.
func (p *Parser) name() mem.RO {
	c := p.curChecked()
	if !isAlpha(c) && c != '_' {
		p.fail(fmt.Sprintf("name must begin with an alphabet, but got %q", c))
	}
	p0 := p.pos
	for p.has() && nameByte[p.cur()] {
		p.next()
	}
	return mem.B(p.src[p0:p.pos])
}

func (p *Parser) skipBOM() {
	if p.remains() >= 3 && bytes.HasPrefix(p.src, []byte{0xEF, 0xBB, 0xBF}) {
		p.pos = 3
		return
	}
	if p.has() && p.cur() >= 0x80 {
		p.fail("unsupported encoding; only 8-bit encodings are supported")
	}
}

func (p *Parser) buffer() *bytes.Buffer {
	for len(p.bufs) <= p.nest {
		p.bufs = append(p.bufs, new(bytes.Buffer))
	}
	buf := p.bufs[p.nest]
	buf.Reset()
	return buf
}

func (p *Parser) has() bool    { return p.pos < len(p.src) }
func (p *Parser) remains() int { return len(p.src) - p.pos }
func (p *Parser) cur() byte    { return p.src[p.pos] }
func (p *Parser) next()        { p.pos++ }

func (p *Parser) curChecked() byte {
	if !p.has() {
		p.fail("unexpected end of stream")
	}
	return p.cur()
}

func (p *Parser) blank() {
	for p.has() && isBlank(p.cur()) {
		p.next()
	}
}

func (p *Parser) blankChecked() {
	if !isBlank(p.curChecked()) {
		p.fail("expected whitespace")
	}
	p.blank()
}

func (p *Parser) expect(s string) {
	if p.remains() < len(s) || !mem.B(p.src[p.pos:p.pos+len(s)]).EqualString(s) {
		p.fail(fmt.Sprintf("%q was expected, but not found", s))
	}
	p.pos += len(s)
}

func (p *Parser) fail(msg string) {
	panic(&MalformedError{Offset: p.pos, Msg: msg})
}

func (p *Parser) failStructure(msg string) {
	panic(&StructureError{Offset: p.pos, Msg: msg})
}

// decodeEntityName decodes one of the five predefined entity names.
func decodeEntityName(ref []byte) (byte, bool) {
	switch string(ref) {
	case "lt":
		return '<', true
	case "gt":
		return '>', true
	case "amp":
		return '&', true
	case "apos":
		return '\'', true
	case "quot":
		return '"', true
	}
	return 0, false
}

func isBlank(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

// nameByte reports the bytes permitted in an XML name after the first:
// the ranges a-z, A-Z, 0-9, and "-_".
var nameByte = func() (t [256]bool) {
	for c := 'a'; c <= 'z'; c++ {
		t[c] = true
	}
	for c := 'A'; c <= 'Z'; c++ {
		t[c] = true
	}
	for c := '0'; c <= '9'; c++ {
		t[c] = true
	}
	t['-'] = true
	t['_'] = true
	return
}()
