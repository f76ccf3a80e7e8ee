// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Package jsax implements an event-driven JSON tokenizer.
//
// A Parser consumes a byte slice in a single pass and delivers the
// structure of the input to a Handler. String values and object keys
// are surfaced as read-only views into the input when no unescaping is
// required; a decoded value is flagged transient and must be copied if
// it outlives the callback. Numbers are parsed into IEEE-754 doubles.
//
// The accepted grammar is strict JSON: no comments, no trailing
// commas, no hexadecimal numbers, and no redundant leading zeroes in
// the integer part of a number.
package jsax

import (
	"fmt"
	"math"
	"unicode/utf16"
	"unicode/utf8"

	"go4.org/mem"

	"github.com/creachadair/sheetmap/internal/numparse"
)

// A Handler receives parse events from a Parser. If a method reports
// an error, parsing stops and that error is returned to the caller.
// The parser ensures objects and arrays are correctly balanced.
type Handler interface {
	// BeginParse is called once before any other event.
	BeginParse() error

	// EndParse is called once after the input is fully consumed.
	EndParse() error

	// BeginArray and EndArray bracket each array.
	BeginArray() error
	EndArray() error

	// BeginObject and EndObject bracket each object. Each member key is
	// reported by ObjectKey before the events of its value.
	BeginObject() error
	ObjectKey(key mem.RO, transient bool) error
	EndObject() error

	// Scalar values.
	Boolean(value bool) error
	Null() error
	String(value mem.RO, transient bool) error
	Number(value float64) error
}

// A ParseError reports a syntax error at a byte offset in the input,
// with a short context string from the surrounding text.
type ParseError struct {
	Offset  int
	Msg     string
	Context string
}

func (e *ParseError) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("JSON parse error at offset %d: %s", e.Offset, e.Msg)
	}
	return fmt.Sprintf("JSON parse error at offset %d: %s (near %q)", e.Offset, e.Msg, e.Context)
}

// A Parser is a single-pass tokenizer over a JSON byte slice.
type Parser struct {
	src []byte
	pos int
	h   Handler
	buf []byte // scratch for unescaped strings, reused per value
}

// NewParser constructs a tokenizer that reads src and delivers events
// to h. The input buffer must outlive any non-transient views the
// handler retains.
func NewParser(src []byte, h Handler) *Parser {
	return &Parser{src: src, h: h}
}

// Parse consumes the input, which must hold exactly one JSON value,
// and delivers events to the handler. Syntax errors are reported as
// *ParseError; handler errors are returned as given.
func (p *Parser) Parse() (err error) {
	defer p.recoverParseError(&err)

	p.checkError(p.h.BeginParse())
	p.space()
	p.parseValue()
	p.space()
	if p.has() {
		p.fail("unexpected content after value")
	}
	p.checkError(p.h.EndParse())
	return nil
}

func (p *Parser) recoverParseError(errp *error) {
	if serr := recover(); serr != nil {
		switch err := serr.(type) {
		case *ParseError:
			*errp = err
		case handlerError:
			*errp = err.error
		default:
			panic(serr)
		}
	}
}

type handlerError struct{ error }

func (h handlerError) Unwrap() error { return h.error }

func (p *Parser) checkError(err error) {
	if err != nil {
		panic(handlerError{err})
	}
}

func (p *Parser) parseValue() {
	switch c := p.curChecked(); {
	case c == '{':
		p.parseObject()
	case c == '[':
		p.parseArray()
	case c == '"':
		v, transient := p.parseString()
		p.checkError(p.h.String(v, transient))
	case c == 't':
		p.literal("true")
		p.checkError(p.h.Boolean(true))
	case c == 'f':
		p.literal("false")
		p.checkError(p.h.Boolean(false))
	case c == 'n':
		p.literal("null")
		p.checkError(p.h.Null())
	case c == '-' || (c >= '0' && c <= '9'):
		p.parseNumber()
	default:
		p.fail(fmt.Sprintf("unexpected %q", c))
	}
}

func (p *Parser) parseObject() {
	p.next() // consume '{'
	p.checkError(p.h.BeginObject())
	p.space()
	if p.curChecked() == '}' {
		p.next()
		p.checkError(p.h.EndObject())
		return
	}
	for {
		if p.curChecked() != '"' {
			p.fail("expected object key")
		}
		key, transient := p.parseString()
		p.checkError(p.h.ObjectKey(key, transient))
		p.space()
		if p.curChecked() != ':' {
			p.fail("expected ':' after object key")
		}
		p.next()
		p.space()
		p.parseValue()
		p.space()
		switch p.curChecked() {
		case ',':
			p.next()
			p.space()
		case '}':
			p.next()
			p.checkError(p.h.EndObject())
			return
		default:
			p.fail("expected ',' or '}' in object")
		}
	}
}

func (p *Parser) parseArray() {
	p.next() // consume '['
	p.checkError(p.h.BeginArray())
	p.space()
	if p.curChecked() == ']' {
		p.next()
		p.checkError(p.h.EndArray())
		return
	}
	for {
		p.parseValue()
		p.space()
		switch p.curChecked() {
		case ',':
			p.next()
			p.space()
		case ']':
			p.next()
			p.checkError(p.h.EndArray())
			return
		default:
			p.fail("expected ',' or ']' in array")
		}
	}
}

// parseNumber parses a number into a double using the JSON numeric
// rules; a redundant leading zero yields NaN from the sub-parser and
// is reported as a syntax error here.
func (p *Parser) parseNumber() {
	v, n := numparse.JSON(p.src[p.pos:])
	if n == 0 {
		p.fail("invalid number")
	}
	p.pos += n
	if math.IsNaN(v) {
		p.fail("invalid number")
	}
	p.checkError(p.h.Number(v))
}

func (p *Parser) literal(want string) {
	if p.remains() < len(want) || !mem.B(p.src[p.pos:p.pos+len(want)]).EqualString(want) {
		p.fail(fmt.Sprintf("unknown constant, expected %q", want))
	}
	p.pos += len(want)
}

// parseString parses a quoted string. The fast path, with no escape
// sequences, returns a view into the input; otherwise the decoded text
// is materialized in a scratch buffer and flagged transient.
func (p *Parser) parseString() (mem.RO, bool) {
	p.next() // consume the opening quote
	p0 := p.pos
	for {
		c := p.curChecked()
		if c == '"' {
			v := mem.B(p.src[p0:p.pos])
			p.next()
			return v, false
		}
		if c == '\\' {
			return p.parseEscapedString(p0), true
		}
		if c < 0x20 {
			p.fail(fmt.Sprintf("unescaped control %q in string", c))
		}
		p.next()
	}
}

// parseEscapedString continues a string scan from the first backslash,
// decoding escape sequences into the scratch buffer.
func (p *Parser) parseEscapedString(p0 int) mem.RO {
	p.buf = append(p.buf[:0], p.src[p0:p.pos]...)
	for {
		c := p.curChecked()
		switch {
		case c == '"':
			p.next()
			return mem.B(p.buf)
		case c == '\\':
			p.next()
			p.escape()
		case c < 0x20:
			p.fail(fmt.Sprintf("unescaped control %q in string", c))
		default:
			p.buf = append(p.buf, c)
			p.next()
		}
	}
}

func (p *Parser) escape() {
	switch c := p.curChecked(); c {
	case '"', '\\', '/':
		p.buf = append(p.buf, c)
		p.next()
	case 'b':
		p.buf = append(p.buf, '\b')
		p.next()
	case 'f':
		p.buf = append(p.buf, '\f')
		p.next()
	case 'n':
		p.buf = append(p.buf, '\n')
		p.next()
	case 'r':
		p.buf = append(p.buf, '\r')
		p.next()
	case 't':
		p.buf = append(p.buf, '\t')
		p.next()
	case 'u':
		p.next()
		p.unicodeEscape()
	default:
		p.fail(fmt.Sprintf("invalid %q after escape", c))
	}
}

// unicodeEscape decodes a \uXXXX sequence, pairing UTF-16 surrogates
// when a second escape follows. An unpaired surrogate is replaced by
// U+FFFD.
func (p *Parser) unicodeEscape() {
	r := rune(p.hex4())
	if utf16.IsSurrogate(r) {
		if p.remains() >= 2 && p.src[p.pos] == '\\' && p.src[p.pos+1] == 'u' {
			p.pos += 2
			r2 := rune(p.hex4())
			r = utf16.DecodeRune(r, r2)
		} else {
			r = utf8.RuneError
		}
	}
	p.buf = utf8.AppendRune(p.buf, r)
}

func (p *Parser) hex4() uint32 {
	var v uint32
	for i := 0; i < 4; i++ {
		c := p.curChecked()
		switch {
		case c >= '0' && c <= '9':
			v = v<<4 | uint32(c-'0')
		case c >= 'a' && c <= 'f':
			v = v<<4 | uint32(c-'a'+10)
		case c >= 'A' && c <= 'F':
			v = v<<4 | uint32(c-'A'+10)
		default:
			p.fail(fmt.Sprintf("not a hex digit: %q", c))
		}
		p.next()
	}
	return v
}

func (p *Parser) space() {
	for p.has() {
		switch p.cur() {
		case ' ', '\t', '\n', '\r':
			p.next()
		default:
			return
		}
	}
}

func (p *Parser) has() bool    { return p.pos < len(p.src) }
func (p *Parser) remains() int { return len(p.src) - p.pos }
func (p *Parser) cur() byte    { return p.src[p.pos] }
func (p *Parser) next()        { p.pos++ }

func (p *Parser) curChecked() byte {
	if !p.has() {
		p.fail("unexpected end of input")
	}
	return p.cur()
}

func (p *Parser) fail(msg string) {
	panic(&ParseError{Offset: p.pos, Msg: msg, Context: p.context()})
}

// context extracts a short excerpt of the input around the current
// position for error messages.
func (p *Parser) context() string {
	begin := p.pos - 8
	if begin < 0 {
		begin = 0
	}
	end := p.pos + 8
	if end > len(p.src) {
		end = len(p.src)
	}
	return string(p.src[begin:end])
}
