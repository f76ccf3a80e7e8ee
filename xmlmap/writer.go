// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package xmlmap

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/creachadair/sheetmap"
)

// Write rewrites the source document src with the current values of
// the export sink, writing the result to w. The document must
// previously have been read with ReadStream against the same buffer:
// the recorded element positions refer into it. All bytes outside the
// recorded linked spans, including comments, processing instructions,
// and whitespace, are emitted verbatim.
func (m *Mapper) Write(src []byte, w io.Writer) error {
	if m.ex == nil {
		return errors.New("no export factory configured")
	}
	if len(src) == 0 || len(m.links) == 0 {
		return nil
	}

	links := m.links
	sort.Slice(links, func(i, j int) bool {
		return links[i].streamPos.OpenBegin < links[j].streamPos.OpenBegin
	})

	begin := 0
	for _, e := range links {
		sp := e.streamPos
		switch {
		case e.kind == linkCell:
			sheet, ok := m.ex.GetSheet(e.cell.pos.Sheet)
			if !ok {
				continue // leave the original bytes in place
			}
			if _, err := w.Write(src[begin:sp.OpenBegin]); err != nil {
				return err
			}
			if err := m.writeCellElement(w, src, e, sheet); err != nil {
				return err
			}
			begin = sp.CloseEnd

		case e.rangeParent != nil:
			ref := e.rangeParent
			sheet, ok := m.ex.GetSheet(ref.pos.Sheet)
			if !ok {
				continue
			}
			if _, err := w.Write(src[begin:sp.OpenBegin]); err != nil {
				return err
			}
			if err := m.rewriteOpenTag(w, src[sp.OpenBegin:sp.OpenEnd], e, m.cellAttrValue); err != nil {
				return err
			}
			if err := m.writeRangeRows(w, ref, sheet); err != nil {
				return err
			}
			if _, err := w.Write(src[sp.CloseBegin:sp.CloseEnd]); err != nil {
				return err
			}
			begin = sp.CloseEnd

		case e.unlinkedAttributeAnchor():
			if _, err := w.Write(src[begin:sp.OpenBegin]); err != nil {
				return err
			}
			if err := m.rewriteOpenTag(w, src[sp.OpenBegin:sp.OpenEnd], e, m.cellAttrValue); err != nil {
				return err
			}
			begin = sp.OpenEnd

		default:
			return fmt.Errorf("unexpected link state for element %q", e.name)
		}
	}
	_, err := w.Write(src[begin:])
	return err
}

// writeCellElement rewrites one single-cell linked element: the open
// tag with any cell-linked attributes, the cell value as content, and
// the original close tag. A self-closing source element gains a
// synthesized close tag to hold the content.
func (m *Mapper) writeCellElement(w io.Writer, src []byte, e *element, sheet sheetmap.ExportSheet) error {
	sp := e.streamPos
	selfClosing := sp.OpenBegin == sp.CloseBegin
	var open bytes.Buffer
	if err := m.rewriteOpenTag(&open, src[sp.OpenBegin:sp.OpenEnd], e, m.cellAttrValue); err != nil {
		return err
	}
	tag := open.Bytes()
	if selfClosing && bytes.HasSuffix(tag, []byte("/>")) {
		// Turn the empty-element tag into an open tag that can hold content.
		tag = append(tag[:len(tag)-2], '>')
	}
	if _, err := w.Write(tag); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := sheet.WriteString(&buf, e.cell.pos.Row, e.cell.pos.Col); err != nil {
		return err
	}
	if err := writeEscaped(w, buf.Bytes(), false); err != nil {
		return err
	}
	if selfClosing {
		// The source element was self-closing; synthesize a close tag.
		_, err := fmt.Fprintf(w, "</%s>", tagName(&e.linkable))
		return err
	}
	_, err := w.Write(src[sp.CloseBegin:sp.CloseEnd])
	return err
}

// cellAttrValue resolves the replacement value for a cell-linked
// attribute during open-tag rewriting.
func (m *Mapper) cellAttrValue(l *linkable) (string, bool) {
	if l.kind != linkCell {
		return "", false
	}
	sheet, ok := m.ex.GetSheet(l.cell.pos.Sheet)
	if !ok {
		return "", false
	}
	var buf bytes.Buffer
	if err := sheet.WriteString(&buf, l.cell.pos.Row, l.cell.pos.Col); err != nil {
		return "", false
	}
	return buf.String(), true
}

// rewriteOpenTag re-emits the original open tag span, substituting the
// values of linked attributes and copying everything else, including
// spacing, quoting, and unlinked attributes, verbatim.
func (m *Mapper) rewriteOpenTag(w io.Writer, span []byte, e *element, value func(*linkable) (string, bool)) error {
	// Copy "<name" up to the first delimiter.
	i := 1
	for i < len(span) && !isSpace(span[i]) && span[i] != '/' && span[i] != '>' {
		i++
	}
	if _, err := w.Write(span[:i]); err != nil {
		return err
	}

	for i < len(span) {
		start := i
		for i < len(span) && isSpace(span[i]) {
			i++
		}
		if i >= len(span) || span[i] == '/' || span[i] == '>' {
			// Trailing space and the tag close: copy the rest verbatim.
			_, err := w.Write(span[start:])
			return err
		}
		if _, err := w.Write(span[start:i]); err != nil {
			return err
		}

		// One attribute: name [ws] '=' [ws] quoted-value.
		nameStart := i
		for i < len(span) && span[i] != '=' && !isSpace(span[i]) {
			i++
		}
		nameEnd := i
		for i < len(span) && isSpace(span[i]) {
			i++
		}
		if i < len(span) && span[i] == '=' {
			i++
		}
		for i < len(span) && isSpace(span[i]) {
			i++
		}
		if i >= len(span) || (span[i] != '"' && span[i] != '\'') {
			// Not a well-formed attribute; copy the rest and stop.
			_, err := w.Write(span[nameStart:])
			return err
		}
		quote := span[i]
		i++
		valStart := i
		for i < len(span) && span[i] != quote {
			i++
		}
		if i < len(span) {
			i++ // closing quote
		}

		prefix, local := splitRawName(span[nameStart:nameEnd])
		attr := e.findAttrByAlias(prefix, local)
		if attr != nil {
			if v, ok := value(&attr.linkable); ok {
				if _, err := w.Write(span[nameStart : valStart-1]); err != nil {
					return err
				}
				if _, err := w.Write([]byte{quote}); err != nil {
					return err
				}
				if err := writeEscaped(w, []byte(v), true); err != nil {
					return err
				}
				if _, err := w.Write([]byte{quote}); err != nil {
					return err
				}
				continue
			}
		}
		// Unlinked attribute: preserved as originally written.
		if _, err := w.Write(span[nameStart:i]); err != nil {
			return err
		}
	}
	return nil
}

// writeRangeRows emits the row subtrees of a range, one copy of the
// mapped row structure per imported row. Field values are addressed
// one row past the range origin, which holds the headers.
func (m *Mapper) writeRangeRows(w io.Writer, ref *rangeRef, sheet sheetmap.ExportSheet) error {
	for r := 0; r < ref.rowSize; r++ {
		if err := m.writeRowSubtree(w, ref.rowRoot, ref, sheet, r); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mapper) writeRowSubtree(w io.Writer, e *element, ref *rangeRef, sheet sheetmap.ExportSheet, row int) error {
	fieldValue := func(l *linkable) (string, bool) {
		if l.kind != linkRangeField || l.field.ref != ref {
			return "", false
		}
		var buf bytes.Buffer
		if err := sheet.WriteString(&buf, ref.pos.Row+1+row, ref.pos.Col+l.field.column); err != nil {
			return "", false
		}
		return buf.String(), true
	}

	selfClose := len(e.children) == 0 && e.kind != linkRangeField
	if _, err := fmt.Fprintf(w, "<%s", tagName(&e.linkable)); err != nil {
		return err
	}
	for _, a := range e.attrs {
		v, ok := fieldValue(&a.linkable)
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(w, ` %s="`, tagName(&a.linkable)); err != nil {
			return err
		}
		if err := writeEscaped(w, []byte(v), true); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `"`); err != nil {
			return err
		}
	}
	if selfClose {
		_, err := io.WriteString(w, "/>")
		return err
	}
	if _, err := io.WriteString(w, ">"); err != nil {
		return err
	}
	for _, c := range e.children {
		if err := m.writeRowSubtree(w, c, ref, sheet, row); err != nil {
			return err
		}
	}
	if e.kind == linkRangeField {
		var buf bytes.Buffer
		if err := sheet.WriteString(&buf, ref.pos.Row+1+row, ref.pos.Col+e.field.column); err != nil {
			return err
		}
		if err := writeEscaped(w, buf.Bytes(), false); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "</%s>", tagName(&e.linkable))
	return err
}

// findAttrByAlias locates a linked attribute of e by the raw prefix
// and local name written in the content stream.
func (e *element) findAttrByAlias(prefix, local string) *attribute {
	for _, a := range e.attrs {
		if a.name == local && a.nsAlias == prefix {
			return a
		}
	}
	return nil
}

// tagName renders a node's name with the alias observed in the content
// stream.
func tagName(l *linkable) string {
	if l.nsAlias != "" {
		return l.nsAlias + ":" + l.name
	}
	return l.name
}

func splitRawName(b []byte) (prefix, local string) {
	if i := bytes.IndexByte(b, ':'); i >= 0 {
		return string(b[:i]), string(b[i+1:])
	}
	return "", string(b)
}

// writeEscaped writes text with the XML-reserved characters escaped.
// In attribute context the double quote is escaped as well.
func writeEscaped(w io.Writer, text []byte, attr bool) error {
	start := 0
	flush := func(end int, repl string) error {
		if _, err := w.Write(text[start:end]); err != nil {
			return err
		}
		_, err := io.WriteString(w, repl)
		start = end + 1
		return err
	}
	for i, c := range text {
		switch c {
		case '<':
			if err := flush(i, "&lt;"); err != nil {
				return err
			}
		case '>':
			if err := flush(i, "&gt;"); err != nil {
				return err
			}
		case '&':
			if err := flush(i, "&amp;"); err != nil {
				return err
			}
		case '"':
			if attr {
				if err := flush(i, "&quot;"); err != nil {
					return err
				}
			}
		}
	}
	_, err := w.Write(text[start:])
	return err
}
